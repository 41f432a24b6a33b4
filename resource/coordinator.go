// Package resource implements the freestanding resource-lock coordinator
// described in spec §5: a mutex-style lock service keyed by resource_id,
// where acquire is idempotent for the current owner and release fails for
// any caller that is not the owner.
package resource

import (
	"context"
	"fmt"
	"sync"
)

// Coordinator grants exclusive ownership of resource ids to agent ids.
type Coordinator struct {
	mu       sync.Mutex
	owners   map[string]string // resource_id -> agent_id
	released chan struct{}     // closed and replaced whenever any lock is released
}

// NewCoordinator returns a Coordinator with no locks held.
func NewCoordinator() *Coordinator {
	return &Coordinator{owners: make(map[string]string), released: make(chan struct{})}
}

// Acquire grants agentID exclusive ownership of resourceID. It is
// idempotent when agentID already holds the lock, and fails when a
// different agent holds it.
func (c *Coordinator) Acquire(agentID, resourceID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if owner, held := c.owners[resourceID]; held {
		if owner == agentID {
			return nil
		}
		return fmt.Errorf("resource: %q is held by %q", resourceID, owner)
	}
	c.owners[resourceID] = agentID
	return nil
}

// AcquireWait blocks until agentID can acquire resourceID (it is free, or
// already owned by agentID), or until ctx is cancelled. This is the
// cancellable counterpart to Acquire referenced by the spec's
// "acquire(agent_id, resource_id) [+cancel]" signature.
func (c *Coordinator) AcquireWait(ctx context.Context, agentID, resourceID string) error {
	for {
		c.mu.Lock()
		owner, held := c.owners[resourceID]
		if !held || owner == agentID {
			c.owners[resourceID] = agentID
			c.mu.Unlock()
			return nil
		}
		wake := c.released
		c.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Release relinquishes agentID's ownership of resourceID. It is
// idempotent when the resource is not currently locked, and fails when a
// different agent holds it.
func (c *Coordinator) Release(agentID, resourceID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	owner, held := c.owners[resourceID]
	if !held {
		return nil
	}
	if owner != agentID {
		return fmt.Errorf("resource: %q is held by %q, not %q", resourceID, owner, agentID)
	}
	delete(c.owners, resourceID)
	c.wakeWaiters()
	return nil
}

// ReleaseAll releases exactly the locks currently owned by agentID.
func (c *Coordinator) ReleaseAll(agentID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	released := false
	for resourceID, owner := range c.owners {
		if owner == agentID {
			delete(c.owners, resourceID)
			released = true
		}
	}
	if released {
		c.wakeWaiters()
	}
}

// wakeWaiters must be called with c.mu held. It closes the current
// released channel (waking every blocked AcquireWait) and installs a
// fresh one for future waiters.
func (c *Coordinator) wakeWaiters() {
	close(c.released)
	c.released = make(chan struct{})
}

// Owner returns the agent id currently holding resourceID, if any.
func (c *Coordinator) Owner(resourceID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	owner, held := c.owners[resourceID]
	return owner, held
}
