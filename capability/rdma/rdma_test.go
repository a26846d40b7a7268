package rdma

import (
	"context"
	"testing"
	"time"

	"github.com/fknauf/shoc-go/native/sim"
	"github.com/fknauf/shoc-go/pe"
	"github.com/stretchr/testify/require"
)

func TestSendReceive_RoundTrip(t *testing.T) {
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
	host, err := Open(bgCtx, engine, simEngine)
	require.NoError(t, err)
	dpu, err := Open(bgCtx, engine, simEngine)
	require.NoError(t, err)

	_, ok, err := Receive(bgCtx, dpu)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, Send(bgCtx, host, dpu, []byte("payload")))

	data, ok, err := Receive(bgCtx, dpu)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("payload"), data)

	require.NoError(t, host.Close(bgCtx))
	require.NoError(t, dpu.Close(bgCtx))
	cancel()
	<-runDone
}
