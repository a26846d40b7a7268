package dummy

import (
	"context"
	"testing"
	"time"

	"github.com/fknauf/shoc-go/native/sim"
	"github.com/fknauf/shoc-go/pe"
	"github.com/stretchr/testify/require"
)

// TestEcho_TaskRoundTrip exercises §8 S3 (adapted to this adapter's
// echo-shaped dummy task rather than a literal constant 42): the
// submitted task completes through the engine and the awaited value
// matches what was submitted.
func TestEcho_TaskRoundTrip(t *testing.T) {
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

	out, err := Echo(bgCtx, c, []byte("42"))
	require.NoError(t, err)
	require.Equal(t, []byte("42"), out)

	require.NoError(t, c.Close(bgCtx))
	cancel()
	<-runDone
}
