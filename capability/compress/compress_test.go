package compress

import (
	"context"
	"testing"
	"time"

	"github.com/fknauf/shoc-go/native/sim"
	"github.com/fknauf/shoc-go/pe"
	"github.com/stretchr/testify/require"
)

// TestDeflate_RoundTrip exercises §8 S4: compress a 160-byte input, assert
// the round trip is lossless, the compressed form is smaller, and the
// checksums match values independently verified against the same input
// (byte i == i%16, for 160 bytes) using Go's standard hash/crc32 and
// hash/adler32 implementations.
func TestDeflate_RoundTrip(t *testing.T) {
	simEngine, err := sim.NewEngine()
	require.NoError(t, err)
	defer simEngine.Destroy()

	engine, err := pe.New(simEngine)
	require.NoError(t, err)
	defer engine.Close()

	runCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	runDone := make(chan error, 1)
	go func() { runDone <- engine.Run(runCtx) }()

	bgCtx := context.Background()
	c, err := Open(bgCtx, engine, simEngine)
	require.NoError(t, err)

	input := make([]byte, 160)
	for i := range input {
		input[i] = byte(i % 16)
	}

	result, err := Deflate(bgCtx, c, input, 6)
	require.NoError(t, err)

	require.Less(t, len(result.Compressed), len(input))
	require.Equal(t, uint32(790593461), result.CRC32)
	require.Equal(t, uint32(1824457905), result.Adler32)

	decompressed, err := Inflate(result.Compressed)
	require.NoError(t, err)
	require.Equal(t, input, decompressed)

	require.NoError(t, c.Close(bgCtx))
	cancel()
	<-runDone
}
