package hooks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBusPublishFanOut(t *testing.T) {
	bus := NewBus()
	ctx := context.Background()

	count := 0
	sub := SubscriberFunc(func(ctx context.Context, event Event) error {
		count++
		return nil
	})
	_, err := bus.Register(sub)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, AgentStartEvent{AgentID: "a1"}))
	require.NoError(t, bus.Publish(ctx, AgentStopEvent{AgentID: "a1", Result: "ok"}))
	require.Equal(t, 2, count)
}

func TestBusRegisterNil(t *testing.T) {
	bus := NewBus()
	_, err := bus.Register(nil)
	require.Error(t, err)
}

func TestSubscriptionClose(t *testing.T) {
	bus := NewBus()
	ctx := context.Background()
	count := 0
	sub := SubscriberFunc(func(ctx context.Context, event Event) error {
		count++
		return nil
	})
	subscription, err := bus.Register(sub)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, AgentStartEvent{AgentID: "a1"}))
	require.NoError(t, subscription.Close())
	require.NoError(t, subscription.Close())
	require.NoError(t, bus.Publish(ctx, AgentStopEvent{AgentID: "a1"}))
	require.Equal(t, 1, count)
}

func TestBusFanOutIsInRegistrationOrder(t *testing.T) {
	bus := NewBus()
	ctx := context.Background()
	var order []int
	for i := 0; i < 3; i++ {
		i := i
		_, err := bus.Register(SubscriberFunc(func(ctx context.Context, event Event) error {
			order = append(order, i)
			return nil
		}))
		require.NoError(t, err)
	}
	require.NoError(t, bus.Publish(ctx, AgentStartEvent{}))
	require.Equal(t, []int{0, 1, 2}, order)
}
