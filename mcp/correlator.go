package mcp

import (
	"context"
	"sync"
	"time"

	"github.com/loopstack/loopstack/toolerrors"
)

// defaultTimeout is the default per-request deadline (spec §4.4).
const defaultTimeout = 30 * time.Second

// correlator implements the request/response correlation scheme shared by
// every transport: a monotonically increasing id per request, a pending
// map from id to a one-shot delivery channel, and idempotent draining on
// shutdown. Transports differ only in how bytes get to and from the wire;
// this type is embedded by Client, which every transport feeds.
type correlator struct {
	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]chan response

	closeOnce sync.Once
	closed    chan struct{}
}

func newCorrelator() *correlator {
	return &correlator{
		pending: make(map[uint64]chan response),
		closed:  make(chan struct{}),
	}
}

// nextRequestID returns the next monotonically increasing request id.
func (c *correlator) nextRequestID() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	return c.nextID
}

// register inserts a pending entry for id and returns the channel that will
// receive the eventual response, plus a cleanup func that must be called
// once the caller is done waiting (on success, timeout, or send error).
func (c *correlator) register(id uint64) (chan response, func()) {
	ch := make(chan response, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()
	return ch, func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}
}

// resolve routes resp to its pending entry, if any. Unknown ids (late
// replies after cleanup, or server bugs) are silently dropped.
func (c *correlator) resolve(resp response) {
	c.mu.Lock()
	ch, ok := c.pending[resp.ID]
	if ok {
		delete(c.pending, resp.ID)
	}
	c.mu.Unlock()
	if ok {
		ch <- resp
	}
}

// drain delivers a synthetic "connection closed" error response to every
// still-pending request, unblocking any callers waiting in waitFor.
func (c *correlator) drain() {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[uint64]chan response)
	c.mu.Unlock()
	for id, ch := range pending {
		ch <- response{ID: id, Error: &rpcError{Code: -1, Message: "connection closed"}}
	}
}

// markClosed idempotently signals that the transport has shut down.
func (c *correlator) markClosed() {
	c.closeOnce.Do(func() { close(c.closed) })
}

// waitFor blocks until ch delivers a response, ctx is canceled, or
// defaultTimeout elapses, whichever comes first. cleanup is always called
// before returning.
func (c *correlator) waitFor(ctx context.Context, ch chan response, cleanup func()) (response, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	select {
	case resp := <-ch:
		cleanup()
		return resp, nil
	case <-ctx.Done():
		cleanup()
		return response{}, toolerrors.NewWithCause(toolerrors.KindProtocol, "mcp: request timed out", ctx.Err())
	case <-c.closed:
		cleanup()
		return response{}, toolerrors.New(toolerrors.KindProtocol, "mcp: connection closed")
	}
}
