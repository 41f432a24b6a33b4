package resource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAcquireIsIdempotentForOwner(t *testing.T) {
	c := NewCoordinator()
	require.NoError(t, c.Acquire("a1", "r1"))
	require.NoError(t, c.Acquire("a1", "r1"))
	owner, held := c.Owner("r1")
	require.True(t, held)
	require.Equal(t, "a1", owner)
}

func TestAcquireFailsForDifferentAgent(t *testing.T) {
	c := NewCoordinator()
	require.NoError(t, c.Acquire("a1", "r1"))
	require.Error(t, c.Acquire("a2", "r1"))
}

func TestReleaseFailsForNonOwner(t *testing.T) {
	c := NewCoordinator()
	require.NoError(t, c.Acquire("a1", "r1"))
	require.Error(t, c.Release("a2", "r1"))
}

func TestReleaseIsIdempotentWhenUnheld(t *testing.T) {
	c := NewCoordinator()
	require.NoError(t, c.Release("a1", "r1"))
}

func TestReleaseAllReleasesOnlyOwnedLocks(t *testing.T) {
	c := NewCoordinator()
	require.NoError(t, c.Acquire("a1", "r1"))
	require.NoError(t, c.Acquire("a1", "r2"))
	require.NoError(t, c.Acquire("a2", "r3"))

	c.ReleaseAll("a1")

	_, held := c.Owner("r1")
	require.False(t, held)
	_, held = c.Owner("r2")
	require.False(t, held)
	owner, held := c.Owner("r3")
	require.True(t, held)
	require.Equal(t, "a2", owner)
}

func TestAcquireWaitBlocksUntilRelease(t *testing.T) {
	c := NewCoordinator()
	require.NoError(t, c.Acquire("a1", "r1"))

	done := make(chan error, 1)
	go func() {
		done <- c.AcquireWait(context.Background(), "a2", "r1")
	}()

	select {
	case <-done:
		t.Fatal("AcquireWait returned before the lock was released")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, c.Release("a1", "r1"))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("AcquireWait did not unblock after release")
	}

	owner, held := c.Owner("r1")
	require.True(t, held)
	require.Equal(t, "a2", owner)
}

func TestAcquireWaitCancellation(t *testing.T) {
	c := NewCoordinator()
	require.NoError(t, c.Acquire("a1", "r1"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := c.AcquireWait(ctx, "a2", "r1")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
