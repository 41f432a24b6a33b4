package hooks

import (
	"context"
	"errors"
	"sync"
)

type (
	// Bus publishes events to registered subscribers in a fan-out pattern,
	// independent of the Block/Transform control flow in Registry. Bus is
	// for observers — loggers, metrics, a redisbus.Publisher — that want to
	// see every event without being able to affect it.
	//
	// Events are delivered synchronously in the publisher's goroutine, and
	// iteration stops at the first subscriber error.
	Bus interface {
		// Publish delivers event to every currently registered subscriber,
		// in registration order, stopping at the first error.
		Publish(ctx context.Context, event Event) error

		// Register adds a subscriber and returns a Subscription that can be
		// closed to unregister it. Returns an error if sub is nil.
		Register(sub Subscriber) (Subscription, error)
	}

	// Subscriber reacts to published events.
	Subscriber interface {
		HandleEvent(ctx context.Context, event Event) error
	}

	// Subscription represents an active registration on a Bus or Registry.
	// Close is idempotent and safe to call multiple times.
	Subscription interface {
		Close() error
	}

	bus struct {
		mu   sync.RWMutex
		subs []*busSubscription
		next uint64
	}

	busSubscription struct {
		bus  *bus
		id   uint64
		sub  Subscriber
		once sync.Once
	}
)

// NewBus constructs an empty, thread-safe event bus.
func NewBus() Bus {
	return &bus{}
}

func (b *bus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	snapshot := make([]Subscriber, len(b.subs))
	for i, s := range b.subs {
		snapshot[i] = s.sub
	}
	b.mu.RUnlock()

	for _, sub := range snapshot {
		if err := sub.HandleEvent(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func (b *bus) Register(sub Subscriber) (Subscription, error) {
	if sub == nil {
		return nil, errors.New("hooks: subscriber is required")
	}
	b.mu.Lock()
	b.next++
	s := &busSubscription{bus: b, id: b.next, sub: sub}
	b.subs = append(b.subs, s)
	b.mu.Unlock()
	return s, nil
}

func (s *busSubscription) Close() error {
	s.once.Do(func() {
		s.bus.mu.Lock()
		defer s.bus.mu.Unlock()
		for i, cand := range s.bus.subs {
			if cand.id == s.id {
				s.bus.subs = append(s.bus.subs[:i], s.bus.subs[i+1:]...)
				break
			}
		}
	})
	return nil
}

// SubscriberFunc adapts a plain function into a Subscriber.
type SubscriberFunc func(ctx context.Context, event Event) error

func (f SubscriberFunc) HandleEvent(ctx context.Context, event Event) error { return f(ctx, event) }
