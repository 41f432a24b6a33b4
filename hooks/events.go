package hooks

// EventKind tags the variant carried by an Event, matching the HookEvent
// union in spec §3.
type EventKind string

const (
	KindPreToolUse       EventKind = "pre_tool_use"
	KindPostToolUse      EventKind = "post_tool_use"
	KindAgentStart       EventKind = "agent_start"
	KindAgentStop        EventKind = "agent_stop"
	KindIteration        EventKind = "iteration"
	KindSessionStart     EventKind = "session_start"
	KindSessionEnd       EventKind = "session_end"
	KindStop             EventKind = "stop"
	KindSubagentStart    EventKind = "subagent_start"
	KindSubagentStop     EventKind = "subagent_stop"
	KindResponseReceived EventKind = "response_received"
)

// Event is the marker interface implemented by every concrete hook event.
// Registry.Fire type-asserts PreToolUseEvent to apply a Transform action;
// every other variant is read-only from a hook's perspective.
type Event interface {
	Kind() EventKind
}

type (
	// PreToolUseEvent fires before a tool is executed. Input is the payload
	// that will be passed to the tool unless a hook returns Transform (which
	// mutates Input in place) or Block (which skips execution entirely).
	PreToolUseEvent struct {
		AgentID  string
		ToolName string
		Input    any
	}

	// PostToolUseEvent fires after a tool call resolves, successfully or
	// not. Input reflects the effective input actually executed (post any
	// PreToolUse Transform).
	PostToolUseEvent struct {
		AgentID   string
		ToolName  string
		ToolUseID string
		Input     any
		Result    ToolExecutionResult
	}

	// AgentStartEvent fires once at the beginning of Runner.Run.
	AgentStartEvent struct {
		AgentID string
		Task    string
	}

	// AgentStopEvent fires once when Runner.Run returns after
	// AgentStartEvent has fired, whether the run succeeded or failed; Err
	// holds the run's error, if any.
	AgentStopEvent struct {
		AgentID string
		Result  string
		Err     error
	}

	// IterationEvent fires at the start of every loop iteration.
	IterationEvent struct {
		AgentID   string
		Iteration int
	}

	// SessionStartEvent marks the start of an orchestrator-level
	// conversation. Nothing in this module fires it.
	SessionStartEvent struct {
		SessionID string
	}

	// SessionEndEvent marks the end of an orchestrator-level conversation.
	// Nothing in this module fires it.
	SessionEndEvent struct {
		SessionID string
	}

	// StopEvent carries a mutable Continue flag that a hook may flip to
	// false. Nothing in this module fires StopEvent or reads Continue, so
	// it does not end a running loop.
	StopEvent struct {
		AgentID  string
		Continue bool
	}

	// SubagentStartEvent marks a parent agent spawning a subagent via a
	// tool call. Nothing in this module fires it.
	SubagentStartEvent struct {
		ParentAgentID string
		AgentID       string
		Task          string
	}

	// SubagentStopEvent marks the completion of a subagent's run. Nothing
	// in this module fires it.
	SubagentStopEvent struct {
		ParentAgentID string
		AgentID       string
		Result        string
	}

	// ResponseReceivedEvent fires after every model call, before tool calls
	// in the response (if any) are executed.
	ResponseReceivedEvent struct {
		AgentID  string
		Text     string
		ToolUses []ToolUseSummary
	}
)

// ToolUseSummary is the (name, id, input) triple surfaced on
// ResponseReceivedEvent, per spec §4.1 step 2d.
type ToolUseSummary struct {
	Name  string
	ID    string
	Input any
}

// ToolExecutionResult mirrors the execution-time tool result shape (spec
// §3, "ToolResult (execution)").
type ToolExecutionResult struct {
	Content  string
	IsError  bool
	Metadata map[string]any
}

func (PreToolUseEvent) Kind() EventKind       { return KindPreToolUse }
func (PostToolUseEvent) Kind() EventKind      { return KindPostToolUse }
func (AgentStartEvent) Kind() EventKind       { return KindAgentStart }
func (AgentStopEvent) Kind() EventKind        { return KindAgentStop }
func (IterationEvent) Kind() EventKind        { return KindIteration }
func (SessionStartEvent) Kind() EventKind     { return KindSessionStart }
func (SessionEndEvent) Kind() EventKind       { return KindSessionEnd }
func (*StopEvent) Kind() EventKind            { return KindStop }
func (SubagentStartEvent) Kind() EventKind    { return KindSubagentStart }
func (SubagentStopEvent) Kind() EventKind     { return KindSubagentStop }
func (ResponseReceivedEvent) Kind() EventKind { return KindResponseReceived }
