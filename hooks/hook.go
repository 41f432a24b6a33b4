package hooks

import "context"

// ActionKind tags the variant of a decision returned by a Hook, per spec
// §3's HookAction union.
type ActionKind string

const (
	// ActionContinue lets the pipeline proceed unchanged.
	ActionContinue ActionKind = "continue"
	// ActionBlock halts the pipeline; Reason is surfaced to the caller and
	// no further hooks in the same Fire call are invoked.
	ActionBlock ActionKind = "block"
	// ActionTransform replaces a PreToolUseEvent's Input with NewInput.
	// Legal only in response to a PreToolUseEvent; any other use is an
	// error.
	ActionTransform ActionKind = "transform"
)

// Action is a Hook's decision for a single event.
type Action struct {
	Kind     ActionKind
	Reason   string
	NewInput any
}

// Continue is the zero-cost "do nothing" decision.
func Continue() Action { return Action{Kind: ActionContinue} }

// Block halts the pipeline with the given human-readable reason.
func Block(reason string) Action { return Action{Kind: ActionBlock, Reason: reason} }

// Transform replaces the triggering PreToolUseEvent's Input.
func Transform(newInput any) Action { return Action{Kind: ActionTransform, NewInput: newInput} }

// Hook observes and, for PreToolUseEvent, may alter the pipeline.
type Hook interface {
	// Accepts reports whether this hook wants to see events of ev's kind.
	// Registry.Fire skips hooks that return false, so a hook registered for
	// PreToolUse only is never asked to evaluate an unrelated event.
	Accepts(kind EventKind) bool

	// OnEvent evaluates ev and returns the hook's decision. An error is
	// treated identically to an explicit Block, with Reason set to the
	// error's message (spec §7: hook errors fail closed).
	OnEvent(ctx context.Context, ev Event) (Action, error)
}

// HookFunc adapts a plain function into a Hook that accepts every event
// kind. Use Filter to narrow it to a subset.
type HookFunc func(ctx context.Context, ev Event) (Action, error)

func (f HookFunc) Accepts(EventKind) bool { return true }

func (f HookFunc) OnEvent(ctx context.Context, ev Event) (Action, error) { return f(ctx, ev) }

// Filter wraps a Hook so that Accepts reports true only for the listed
// kinds, regardless of what the wrapped hook itself would answer.
func Filter(h Hook, kinds ...EventKind) Hook {
	set := make(map[EventKind]struct{}, len(kinds))
	for _, k := range kinds {
		set[k] = struct{}{}
	}
	return filteredHook{Hook: h, kinds: set}
}

type filteredHook struct {
	Hook
	kinds map[EventKind]struct{}
}

func (f filteredHook) Accepts(kind EventKind) bool {
	_, ok := f.kinds[kind]
	return ok
}
