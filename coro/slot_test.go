package coro

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlot_FromValue_ReadyImmediately(t *testing.T) {
	s := FromValue(42)
	assert.True(t, s.Ready())
	v, err := s.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestSlot_FromError_ReadyImmediately(t *testing.T) {
	wantErr := ErrAlreadySet
	s := FromError[int](wantErr)
	assert.True(t, s.Ready())
	_, err := s.Await(context.Background())
	assert.ErrorIs(t, err, wantErr)
}

func TestSlot_SetValue_ThenResume_UnblocksAwaiter(t *testing.T) {
	s := NewSlot[string]()
	done := make(chan struct{})
	var got string
	var gotErr error
	go func() {
		got, gotErr = s.Await(context.Background())
		close(done)
	}()

	time.Sleep(10 * time.Millisecond) // give the awaiter a chance to block
	require.NoError(t, s.SetValue("hello"))
	s.Resume()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("awaiter never resumed")
	}
	require.NoError(t, gotErr)
	assert.Equal(t, "hello", got)
}

func TestSlot_SetValue_Twice_ReturnsErrAlreadySet(t *testing.T) {
	s := NewSlot[int]()
	require.NoError(t, s.SetValue(1))
	assert.ErrorIs(t, s.SetValue(2), ErrAlreadySet)
}

func TestSlot_Await_ZeroValue_ReturnsErrInvalidState(t *testing.T) {
	var s Slot[int]
	_, err := s.Await(context.Background())
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestSlot_Await_ResumedWithoutSet_ReturnsError(t *testing.T) {
	s := NewSlot[int]()
	go func() {
		time.Sleep(10 * time.Millisecond)
		s.Resume() // resumed without ever being set
	}()
	_, err := s.Await(context.Background())
	assert.Error(t, err)
}

func TestSlot_Resume_IsIdempotent(t *testing.T) {
	s := FromValue(1)
	s.Resume()
	s.Resume()
	v, err := s.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestSlot_Await_RespectsContextCancellation(t *testing.T) {
	s := NewSlot[int]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Await(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
