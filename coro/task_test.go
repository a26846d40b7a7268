package coro

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLazyTask_BodyDoesNotRunUntilAwaited(t *testing.T) {
	var started atomic.Bool
	task := NewLazyTask(func(context.Context) (int, error) {
		started.Store(true)
		return 7, nil
	})

	time.Sleep(10 * time.Millisecond)
	assert.False(t, started.Load(), "lazy task body ran before first await")

	v, err := task.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.True(t, started.Load())
}

func TestEagerTask_BodyRunsAtConstruction(t *testing.T) {
	var started atomic.Bool
	task := NewEagerTask(context.Background(), func(context.Context) (int, error) {
		started.Store(true)
		return 9, nil
	})

	require.Eventually(t, started.Load, time.Second, time.Millisecond)

	v, err := task.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 9, v)
}

func TestTask_Await_IsIdempotent(t *testing.T) {
	var calls atomic.Int32
	task := NewLazyTask(func(context.Context) (int, error) {
		calls.Add(1)
		return 1, nil
	})

	for i := 0; i < 3; i++ {
		v, err := task.Await(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, v)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestTask_BodyError_PropagatesAtAwait(t *testing.T) {
	wantErr := errors.New("boom")
	task := NewLazyTask(func(context.Context) (int, error) {
		return 0, wantErr
	})
	_, err := task.Await(context.Background())
	assert.ErrorIs(t, err, wantErr)
}

func TestTask_BodyPanic_PropagatesAsError(t *testing.T) {
	task := NewLazyTask(func(context.Context) (int, error) {
		panic("kaboom")
	})
	_, err := task.Await(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestTask_MultipleAwaiters_AllReceiveTheSameResult(t *testing.T) {
	task := NewLazyTask(func(context.Context) (int, error) {
		time.Sleep(10 * time.Millisecond)
		return 5, nil
	})

	results := make(chan int, 4)
	for i := 0; i < 4; i++ {
		go func() {
			v, err := task.Await(context.Background())
			require.NoError(t, err)
			results <- v
		}()
	}
	for i := 0; i < 4; i++ {
		assert.Equal(t, 5, <-results)
	}
}
