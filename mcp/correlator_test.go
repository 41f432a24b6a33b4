package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/loopstack/loopstack/toolerrors"
)

func TestCorrelator_ResolveDeliversMatchingResponse(t *testing.T) {
	c := newCorrelator()
	id := c.nextRequestID()
	ch, cleanup := c.register(id)
	defer cleanup()

	go c.resolve(response{ID: id, Result: []byte(`"ok"`)})

	resp, err := c.waitFor(context.Background(), ch, cleanup)
	require.NoError(t, err)
	require.Equal(t, id, resp.ID)
}

func TestCorrelator_ResolveDropsUnknownID(t *testing.T) {
	c := newCorrelator()
	c.resolve(response{ID: 999}) // no pending entry; must not panic or block
}

func TestCorrelator_WaitForTimesOutOnContextCancel(t *testing.T) {
	c := newCorrelator()
	id := c.nextRequestID()
	ch, cleanup := c.register(id)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.waitFor(ctx, ch, cleanup)
	require.Error(t, err)
	var toolErr *toolerrors.Error
	require.True(t, errors.As(err, &toolErr))
	require.Equal(t, toolerrors.KindProtocol, toolErr.Kind)
}

func TestCorrelator_DrainUnblocksPendingWaiters(t *testing.T) {
	c := newCorrelator()
	id := c.nextRequestID()
	ch, cleanup := c.register(id)

	go func() {
		time.Sleep(5 * time.Millisecond)
		c.drain()
	}()

	resp, err := c.waitFor(context.Background(), ch, cleanup)
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
}

func TestCorrelator_NextRequestIDIsMonotonic(t *testing.T) {
	c := newCorrelator()
	a := c.nextRequestID()
	b := c.nextRequestID()
	require.Equal(t, a+1, b)
}

func TestCorrelator_MarkClosedIsIdempotent(t *testing.T) {
	c := newCorrelator()
	c.markClosed()
	require.NotPanics(t, func() { c.markClosed() })
}
