package hooks

import (
	"context"
	"fmt"
	"sync"
)

// Registry is the ordered, thread-safe hook pipeline described in spec
// §4.3. Hooks are invoked in registration order; the first Block or error
// short-circuits the remaining hooks.
type Registry struct {
	mu    sync.RWMutex
	hooks []*registration
	next  uint64
}

type registration struct {
	id   uint64
	hook Hook
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds h to the end of the pipeline and returns a Subscription
// that, when closed, removes it. Register returns an error if h is nil.
func (r *Registry) Register(h Hook) (Subscription, error) {
	if h == nil {
		return nil, fmt.Errorf("hooks: hook is required")
	}
	r.mu.Lock()
	r.next++
	reg := &registration{id: r.next, hook: h}
	r.hooks = append(r.hooks, reg)
	r.mu.Unlock()
	return &regSubscription{registry: r, id: reg.id}, nil
}

// Fire runs ev through every registered hook that accepts its kind, in
// registration order, applying each hook's decision as it's returned:
//
//   - Continue: proceed to the next hook unchanged.
//   - Block: stop immediately; Fire returns that Action.
//   - Transform: legal only when ev is a *PreToolUseEvent. The event's
//     Input is mutated in place and the pipeline continues, so a later
//     hook observes the transformed input. Any other event kind makes
//     Transform an error, and the pipeline stops immediately (spec
//     invariant: Transform scoped to PreToolUse).
//
// A hook that returns an error is treated exactly as Block, with Reason
// set to the error's message (fail closed).
//
// If every hook returns Continue (or none accept ev), Fire returns
// Continue(). If one or more hooks returned Transform and no later hook
// Blocked, Fire returns the last Transform applied (spec §4.3: "final ←
// Transform(new_input)"), so callers that only inspect Fire's return value
// still observe the effective input.
func (r *Registry) Fire(ctx context.Context, ev Event) (Action, error) {
	r.mu.RLock()
	snapshot := make([]Hook, len(r.hooks))
	for i, reg := range r.hooks {
		snapshot[i] = reg.hook
	}
	r.mu.RUnlock()

	final := Continue()
	for _, h := range snapshot {
		if !h.Accepts(ev.Kind()) {
			continue
		}
		action, err := h.OnEvent(ctx, ev)
		if err != nil {
			return Block(err.Error()), nil
		}
		switch action.Kind {
		case ActionContinue:
			continue
		case ActionBlock:
			return action, nil
		case ActionTransform:
			pre, ok := ev.(*PreToolUseEvent)
			if !ok {
				return Action{}, fmt.Errorf("hooks: transform is not valid for event kind %q", ev.Kind())
			}
			pre.Input = action.NewInput
			final = action
		default:
			return Action{}, fmt.Errorf("hooks: unknown action kind %q", action.Kind)
		}
	}
	return final, nil
}

// Len reports the number of hooks currently registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.hooks)
}

type regSubscription struct {
	registry *Registry
	id       uint64
	once     sync.Once
}

// Close removes the associated hook from the registry. Idempotent.
func (s *regSubscription) Close() error {
	s.once.Do(func() {
		s.registry.mu.Lock()
		defer s.registry.mu.Unlock()
		for i, reg := range s.registry.hooks {
			if reg.id == s.id {
				s.registry.hooks = append(s.registry.hooks[:i], s.registry.hooks[i+1:]...)
				break
			}
		}
	})
	return nil
}
