package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTakeWithinCapacitySucceedsImmediately(t *testing.T) {
	b := New(10, 100)
	start := time.Now()
	require.NoError(t, b.Take(context.Background(), 5))
	require.Less(t, time.Since(start), 20*time.Millisecond)
}

func TestTakeBlocksUntilRefill(t *testing.T) {
	b := New(1, 100) // 1 token capacity, 100/sec refill (~10ms per token)
	require.NoError(t, b.Take(context.Background(), 1))

	start := time.Now()
	require.NoError(t, b.Take(context.Background(), 1))
	require.GreaterOrEqual(t, time.Since(start), minWait)
}

func TestTakeMoreThanCapacityFails(t *testing.T) {
	b := New(5, 10)
	err := b.Take(context.Background(), 6)
	require.Error(t, err)
}

func TestTakeCancellation(t *testing.T) {
	b := New(1, 1) // 1 token/sec refill; draining to zero makes the next Take wait ~1s
	require.NoError(t, b.Take(context.Background(), 1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := b.Take(ctx, 1)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAvailableCapsAtCapacity(t *testing.T) {
	b := New(3, 1000)
	time.Sleep(20 * time.Millisecond)
	require.LessOrEqual(t, b.Available(), 3.0)
}
