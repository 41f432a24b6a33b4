// Package redisbus adapts hooks.Subscriber onto a Redis pub/sub channel, so
// hook events observed in one process can be fanned out to observers
// running in another (dashboards, audit loggers, a separate telemetry
// pipeline) without participating in the Block/Transform decision itself.
package redisbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/loopstack/loopstack/hooks"
)

// envelope is the wire format published to the channel: the event's kind
// plus its JSON-encoded payload, so a consumer can dispatch on Kind before
// unmarshaling the concrete struct.
type envelope struct {
	Kind    hooks.EventKind `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// Publisher is a hooks.Subscriber that republishes every event it receives
// to a Redis channel as JSON. Register it on a hooks.Bus to mirror local
// events to remote observers.
type Publisher struct {
	client  *redis.Client
	channel string
}

// NewPublisher returns a Publisher that publishes to channel using client.
func NewPublisher(client *redis.Client, channel string) *Publisher {
	return &Publisher{client: client, channel: channel}
}

// HandleEvent implements hooks.Subscriber.
func (p *Publisher) HandleEvent(ctx context.Context, event hooks.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("redisbus: marshal event: %w", err)
	}
	env, err := json.Marshal(envelope{Kind: event.Kind(), Payload: payload})
	if err != nil {
		return fmt.Errorf("redisbus: marshal envelope: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, env).Err(); err != nil {
		return fmt.Errorf("redisbus: publish: %w", err)
	}
	return nil
}

// Subscription is a live Redis subscription delivering remote events to a
// local callback. Close unsubscribes and stops the delivery goroutine.
type Subscription struct {
	pubsub *redis.PubSub
	done   chan struct{}
}

// Subscribe starts receiving events published to channel and invokes fn
// with each envelope's Kind and its undecoded JSON payload; messages that
// do not parse as an envelope are skipped. Delivery runs on its own goroutine until the returned Subscription is
// closed or ctx is canceled.
func Subscribe(ctx context.Context, client *redis.Client, channel string, fn func(hooks.EventKind, json.RawMessage)) *Subscription {
	pubsub := client.Subscribe(ctx, channel)
	sub := &Subscription{pubsub: pubsub, done: make(chan struct{})}

	go func() {
		defer close(sub.done)
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var env envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					continue
				}
				fn(env.Kind, env.Payload)
			}
		}
	}()

	return sub
}

// Close unsubscribes from the channel and waits for the delivery goroutine
// to exit.
func (s *Subscription) Close() error {
	err := s.pubsub.Close()
	<-s.done
	return err
}
