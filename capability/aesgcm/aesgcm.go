// Package aesgcm is the authenticated-encryption capability of §8 S5:
// AES-GCM seal/open offloaded through a simulated native context, using
// the standard library's crypto/aes and crypto/cipher (no ecosystem
// library supersedes the standard AEAD implementation for this - see
// DESIGN.md's stdlib justification audit).
package aesgcm

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"github.com/fknauf/shoc-go/native"
	"github.com/fknauf/shoc-go/native/sim"
	"github.com/fknauf/shoc-go/octx"
	"github.com/fknauf/shoc-go/otask"
	"github.com/fknauf/shoc-go/pe"
)

const Category = "aesgcm.seal"

// TagSize is the GCM authentication tag size in bytes used by this
// context (shorter than GCM's 16-byte default).
const TagSize = 12

// SealResult is the outcome of a Seal call.
type SealResult struct {
	Nonce      []byte
	Ciphertext []byte // includes the trailing TagSize-byte tag
}

// Context is a started AES-GCM capability context.
type Context struct {
	*octx.Context
	engine    *pe.Engine
	simEngine *sim.Engine
	native    *sim.Context
	aead      cipher.AEAD
}

// Open creates and starts an AES-GCM context bound to a 256-bit key.
func Open(ctx context.Context, engine *pe.Engine, simEngine *sim.Engine, key []byte) (*Context, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aesgcm: new cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithTagSize(block, TagSize)
	if err != nil {
		return nil, fmt.Errorf("aesgcm: new gcm: %w", err)
	}

	nc := sim.NewContext(simEngine, "aesgcm")
	oc, err := engine.CreateContext(nc)
	if err != nil {
		return nil, err
	}
	_, slot, err := oc.Start(ctx)
	if err != nil {
		return nil, err
	}
	if err := oc.AwaitStart(ctx, slot); err != nil {
		return nil, fmt.Errorf("aesgcm: start: %w", err)
	}
	return &Context{Context: oc, engine: engine, simEngine: simEngine, native: nc, aead: aead}, nil
}

// Seal encrypts and authenticates plaintext, generating a fresh random
// nonce per call.
func Seal(ctx context.Context, c *Context, plaintext, additionalData []byte) (SealResult, error) {
	decode := func(native.Task) (SealResult, error) {
		nonce := make([]byte, c.aead.NonceSize())
		if _, err := rand.Read(nonce); err != nil {
			return SealResult{}, fmt.Errorf("aesgcm: nonce: %w", err)
		}
		ciphertext := c.aead.Seal(nil, nonce, plaintext, additionalData)
		return SealResult{Nonce: nonce, Ciphertext: ciphertext}, nil
	}

	var t *sim.Task
	t = sim.NewTask(c.simEngine, c.native, func() (native.Status, error) {
		return native.StatusSuccess, nil
	}, func(*sim.Task) {
		otask.Complete(c.engine, t, decode)
	})

	slot, err := otask.Submit[SealResult](ctx, c.engine, Category, t)
	if err != nil {
		return SealResult{}, err
	}
	return otask.Await(ctx, slot)
}

// OpenCiphertext authenticates and decrypts a SealResult produced by Seal, for test
// round-trips. Tampered ciphertext or additionalData surfaces as an
// error from the underlying AEAD, never a silent corruption.
func (c *Context) OpenCiphertext(r SealResult, additionalData []byte) ([]byte, error) {
	return c.aead.Open(nil, r.Nonce, r.Ciphertext, additionalData)
}

// Close stops and destroys the underlying context.
func (c *Context) Close(ctx context.Context) error {
	slot, err := c.Stop(ctx)
	if err != nil {
		return err
	}
	if err := c.AwaitStop(ctx, slot); err != nil {
		return err
	}
	return c.Context.Close()
}
