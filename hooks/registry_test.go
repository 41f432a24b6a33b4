package hooks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryFireOrderAndBlockShortCircuits(t *testing.T) {
	r := NewRegistry()
	var calls []string

	_, err := r.Register(HookFunc(func(ctx context.Context, ev Event) (Action, error) {
		calls = append(calls, "first")
		return Continue(), nil
	}))
	require.NoError(t, err)

	_, err = r.Register(HookFunc(func(ctx context.Context, ev Event) (Action, error) {
		calls = append(calls, "second")
		return Block("denied"), nil
	}))
	require.NoError(t, err)

	_, err = r.Register(HookFunc(func(ctx context.Context, ev Event) (Action, error) {
		calls = append(calls, "third")
		return Continue(), nil
	}))
	require.NoError(t, err)

	action, err := r.Fire(context.Background(), &PreToolUseEvent{ToolName: "f"})
	require.NoError(t, err)
	require.Equal(t, ActionBlock, action.Kind)
	require.Equal(t, "denied", action.Reason)
	require.Equal(t, []string{"first", "second"}, calls)
}

func TestRegistryNoHooksContinues(t *testing.T) {
	r := NewRegistry()
	action, err := r.Fire(context.Background(), &PreToolUseEvent{})
	require.NoError(t, err)
	require.Equal(t, ActionContinue, action.Kind)
}

func TestRegistryAcceptsFiltersHooks(t *testing.T) {
	r := NewRegistry()
	called := false
	_, err := r.Register(Filter(HookFunc(func(ctx context.Context, ev Event) (Action, error) {
		called = true
		return Continue(), nil
	}), KindPostToolUse))
	require.NoError(t, err)

	_, err = r.Fire(context.Background(), &PreToolUseEvent{})
	require.NoError(t, err)
	require.False(t, called)

	_, err = r.Fire(context.Background(), PostToolUseEvent{})
	require.NoError(t, err)
	require.True(t, called)
}

func TestRegistryTransformMutatesPreToolUseInput(t *testing.T) {
	r := NewRegistry()
	_, err := r.Register(HookFunc(func(ctx context.Context, ev Event) (Action, error) {
		return Transform(map[string]any{"sanitized": true}), nil
	}))
	require.NoError(t, err)

	var observed any
	_, err = r.Register(HookFunc(func(ctx context.Context, ev Event) (Action, error) {
		observed = ev.(*PreToolUseEvent).Input
		return Continue(), nil
	}))
	require.NoError(t, err)

	ev := &PreToolUseEvent{ToolName: "f", Input: map[string]any{"raw": true}}
	action, err := r.Fire(context.Background(), ev)
	require.NoError(t, err)
	require.Equal(t, ActionTransform, action.Kind)
	require.Equal(t, map[string]any{"sanitized": true}, action.NewInput)
	require.Equal(t, map[string]any{"sanitized": true}, ev.Input)
	require.Equal(t, map[string]any{"sanitized": true}, observed)
}

func TestRegistryTransformOnNonPreToolUseIsError(t *testing.T) {
	r := NewRegistry()
	_, err := r.Register(HookFunc(func(ctx context.Context, ev Event) (Action, error) {
		return Transform("nope"), nil
	}))
	require.NoError(t, err)

	_, err = r.Fire(context.Background(), PostToolUseEvent{})
	require.Error(t, err)
}

func TestRegistryHookErrorTreatedAsBlock(t *testing.T) {
	r := NewRegistry()
	_, err := r.Register(HookFunc(func(ctx context.Context, ev Event) (Action, error) {
		return Action{}, errors.New("boom")
	}))
	require.NoError(t, err)

	action, err := r.Fire(context.Background(), &PreToolUseEvent{})
	require.NoError(t, err)
	require.Equal(t, ActionBlock, action.Kind)
	require.Equal(t, "boom", action.Reason)
}

func TestRegistrySubscriptionCloseRemovesHook(t *testing.T) {
	r := NewRegistry()
	called := false
	sub, err := r.Register(HookFunc(func(ctx context.Context, ev Event) (Action, error) {
		called = true
		return Continue(), nil
	}))
	require.NoError(t, err)
	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	_, err = r.Fire(context.Background(), &PreToolUseEvent{})
	require.NoError(t, err)
	require.False(t, called)
	require.Equal(t, 0, r.Len())
}

func TestRegistryRegisterNilIsError(t *testing.T) {
	r := NewRegistry()
	_, err := r.Register(nil)
	require.Error(t, err)
}
