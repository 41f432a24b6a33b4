// Package agent implements the agentic loop runner (spec §4.1): it drives
// model turns, interleaves tool execution through the hook pipeline and an
// optional approval gate, and enforces an iteration budget while keeping
// the transcript, usage, and tool_use_count observable even on failure.
package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/loopstack/loopstack/content"
	"github.com/loopstack/loopstack/hooks"
	"github.com/loopstack/loopstack/telemetry"
	"github.com/loopstack/loopstack/toolerrors"
	"github.com/loopstack/loopstack/tools"
)

// toolResolver is the subset of *tools.FilteredRegistry the runner needs.
// Narrowing to an interface lets tests substitute a bare *tools.Registry or
// a fake without dragging in the filtering machinery.
type toolResolver interface {
	Get(name string) (tools.Tool, bool)
	ToDefinitions() []content.ToolDefinition
}

// ApprovalContext carries the metadata an ApprovalHandler needs to render
// a human-facing approval prompt (spec §6.5).
type ApprovalContext struct {
	ToolDescription string
	RequestID       string
}

// ApprovalHandler gates tool calls a Tool has flagged as
// requires_approval. Absence of a handler is equivalent to deny for any
// such tool (spec §6.5).
type ApprovalHandler interface {
	RequestApproval(ctx context.Context, toolName string, params any, reqCtx ApprovalContext) (bool, error)
}

// ApprovalHandlerFunc adapts a function to ApprovalHandler.
type ApprovalHandlerFunc func(ctx context.Context, toolName string, params any, reqCtx ApprovalContext) (bool, error)

func (f ApprovalHandlerFunc) RequestApproval(ctx context.Context, toolName string, params any, reqCtx ApprovalContext) (bool, error) {
	return f(ctx, toolName, params, reqCtx)
}

// Config configures a Runner. Model, Client, and Tools are required (Run
// returns an error when one is missing); AgentID is not validated.
// MaxIterations defaults to 10 when zero (spec §3, AgentDefinition).
type Config struct {
	AgentID       string
	Model         string
	SystemPrompt  string
	MaxIterations int

	Client content.Client
	Tools  toolResolver
	Hooks  *hooks.Registry

	// Approval gates tools that declare requires_approval = true. Nil means
	// deny by default for every such tool.
	Approval ApprovalHandler

	// Telemetry defaults to a no-op provider when nil.
	Telemetry *telemetry.Provider
}

const defaultMaxIterations = 10
const defaultMaxTokens = 4096

// Result is the outcome of a successful Runner.Run.
type Result struct {
	AgentID      string
	Content      string
	ToolUseCount int
	Usage        content.Usage
	Iterations   int
}

// Runner drives a single agent's model/tool loop. A Runner is not safe for
// concurrent use by multiple goroutines calling Run simultaneously; the
// mutex below protects only the observable getters used for mid-flight
// inspection (e.g. after an IterationLimitExceeded error).
type Runner struct {
	cfg Config
	tel *telemetry.Provider

	mu           sync.Mutex
	history      []content.Message
	usage        content.Usage
	toolUseCount int
	iterations   int
}

// New constructs a Runner from cfg. Client and Tools are required; an
// empty Model is accepted here but surfaces as an error from Run (model
// absence must fail the first request, never default silently — spec
// §4.1 invariants). AgentID is not validated.
func New(cfg Config) *Runner {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = defaultMaxIterations
	}
	tel := cfg.Telemetry
	if tel == nil {
		tel = telemetry.NewNoopProvider()
	}
	return &Runner{cfg: cfg, tel: tel}
}

// Resume rebuilds a Runner whose message history is the given transcript;
// usage and iteration counters reset (spec §4.1, "resume(agent_id,
// transcript) → Agent... metrics reset").
func Resume(cfg Config, transcript []content.Message) *Runner {
	r := New(cfg)
	r.history = append([]content.Message(nil), transcript...)
	return r
}

// History returns a copy of the runner's current message transcript.
func (r *Runner) History() []content.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]content.Message(nil), r.history...)
}

// Usage returns the runner's cumulative token usage, observable even
// after a failed Run.
func (r *Runner) Usage() content.Usage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.usage
}

// ToolUseCount returns the number of tool invocations recorded so far,
// observable even after a failed Run.
func (r *Runner) ToolUseCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.toolUseCount
}

// Iterations returns the number of loop iterations completed so far.
func (r *Runner) Iterations() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.iterations
}

func (r *Runner) fire(ctx context.Context, ev hooks.Event) (hooks.Action, error) {
	if r.cfg.Hooks == nil {
		return hooks.Continue(), nil
	}
	return r.cfg.Hooks.Fire(ctx, ev)
}

// Run executes the agent loop against task per spec §4.1. On success it
// returns the final Result; on an iteration-limit exhaustion or a
// provider error it returns a non-nil error while the runner's History,
// Usage, ToolUseCount, and Iterations remain inspectable.
func (r *Runner) Run(ctx context.Context, task string) (Result, error) {
	if r.cfg.Client == nil {
		return Result{}, toolerrors.New(toolerrors.KindEngine, "agent: model client is required")
	}
	if r.cfg.Tools == nil {
		return Result{}, toolerrors.New(toolerrors.KindEngine, "agent: tool resolver is required")
	}

	r.fireAgentStart(ctx, task)

	r.mu.Lock()
	r.history = append(r.history, content.Message{
		Role:    content.RoleUser,
		Content: []content.ContentBlock{content.TextBlock{Text: task}},
	})
	r.mu.Unlock()

	result, err := r.loop(ctx)

	r.fireAgentStop(ctx, result, err)
	return result, err
}

func (r *Runner) fireAgentStart(ctx context.Context, task string) {
	r.tel.Logger.Info(ctx, "agent start", "agent_id", r.cfg.AgentID)
	if _, err := r.fire(ctx, hooks.AgentStartEvent{AgentID: r.cfg.AgentID, Task: task}); err != nil {
		r.tel.Logger.Warn(ctx, "agent_start hook error", "error", err)
	}
}

func (r *Runner) fireAgentStop(ctx context.Context, result Result, runErr error) {
	ev := hooks.AgentStopEvent{AgentID: r.cfg.AgentID, Result: result.Content, Err: runErr}
	if _, err := r.fire(ctx, ev); err != nil {
		r.tel.Logger.Warn(ctx, "agent_stop hook error", "error", err)
	}
}

func (r *Runner) loop(ctx context.Context) (Result, error) {
	for iteration := 1; iteration <= r.cfg.MaxIterations; iteration++ {
		r.mu.Lock()
		r.iterations = iteration
		r.mu.Unlock()

		if _, err := r.fire(ctx, hooks.IterationEvent{AgentID: r.cfg.AgentID, Iteration: iteration}); err != nil {
			return r.partialResult(), toolerrors.NewWithCause(toolerrors.KindEngine, "iteration hook failed", err)
		}

		if r.cfg.Model == "" {
			return r.partialResult(), &content.LlmError{Kind: content.LlmErrorConfiguration, Message: content.ErrModelNotConfigured.Error(), Cause: content.ErrModelNotConfigured}
		}

		req := content.Request{
			Model:     r.cfg.Model,
			System:    r.cfg.SystemPrompt,
			Messages:  r.History(),
			Tools:     r.cfg.Tools.ToDefinitions(),
			MaxTokens: defaultMaxTokens,
		}

		resp, err := r.cfg.Client.CreateMessage(ctx, req)
		if err != nil {
			return r.partialResult(), toolerrors.NewWithCause(toolerrors.KindEngine, "model call failed", err)
		}

		r.mu.Lock()
		r.usage.Add(resp.Usage)
		r.mu.Unlock()

		toolUses := resp.ToolUses()
		if _, err := r.fire(ctx, hooks.ResponseReceivedEvent{
			AgentID:  r.cfg.AgentID,
			Text:     resp.Text(),
			ToolUses: toSummaries(toolUses),
		}); err != nil {
			return r.partialResult(), toolerrors.NewWithCause(toolerrors.KindEngine, "response_received hook failed", err)
		}

		if len(toolUses) == 0 || resp.StopReason != content.StopReasonToolUse {
			r.appendMessage(content.Message{Role: content.RoleAssistant, Content: resp.Content})
			return Result{
				AgentID:      r.cfg.AgentID,
				Content:      resp.Text(),
				ToolUseCount: r.ToolUseCount(),
				Usage:        r.Usage(),
				Iterations:   r.Iterations(),
			}, nil
		}

		r.appendMessage(content.Message{Role: content.RoleAssistant, Content: resp.Content})

		results := make([]content.ContentBlock, 0, len(toolUses))
		for _, tu := range toolUses {
			results = append(results, r.executeToolUse(ctx, tu))
		}
		r.appendMessage(content.Message{Role: content.RoleUser, Content: results})
	}

	return r.partialResult(), &toolerrors.IterationLimitExceeded{MaxIterations: r.cfg.MaxIterations}
}

func (r *Runner) partialResult() Result {
	return Result{
		AgentID:      r.cfg.AgentID,
		Content:      fmt.Sprintf("Agent loop terminated after %d iterations without a final response", r.cfg.MaxIterations),
		ToolUseCount: r.ToolUseCount(),
		Usage:        r.Usage(),
		Iterations:   r.Iterations(),
	}
}

func (r *Runner) appendMessage(m content.Message) {
	r.mu.Lock()
	r.history = append(r.history, m)
	r.mu.Unlock()
}

// executeToolUse runs the PreToolUse/approval/execute/PostToolUse pipeline
// for a single ToolUse block and returns the paired ToolResultBlock (spec
// §4.1 step 3f).
func (r *Runner) executeToolUse(ctx context.Context, tu content.ToolUseBlock) content.ToolResultBlock {
	defer func() {
		r.mu.Lock()
		r.toolUseCount++
		r.mu.Unlock()
	}()

	effectiveInput := tu.Input

	preEvent := &hooks.PreToolUseEvent{AgentID: r.cfg.AgentID, ToolName: tu.Name, Input: tu.Input}
	action, err := r.fire(ctx, preEvent)
	if err != nil {
		// Registry.Fire already folds hook errors into Block; it still
		// returns an error when a hook answers with an unknown action
		// kind (a Transform cannot fail here, since preEvent is a
		// *PreToolUseEvent). Treat that as a block.
		result := content.ToolResultBlock{ToolUseID: tu.ID, Content: "Blocked by hook: " + err.Error(), IsError: true}
		r.firePostToolUse(ctx, tu, effectiveInput, result)
		return result
	}

	if action.Kind == hooks.ActionBlock {
		result := content.ToolResultBlock{ToolUseID: tu.ID, Content: "Blocked by hook: " + action.Reason, IsError: true}
		r.firePostToolUse(ctx, tu, effectiveInput, result)
		return result
	}
	// preEvent.Input reflects any Transform hooks applied in place,
	// regardless of what Fire's returned Action reports.
	effectiveInput = preEvent.Input

	tool, ok := r.cfg.Tools.Get(tu.Name)
	if !ok {
		result := content.ToolResultBlock{ToolUseID: tu.ID, Content: fmt.Sprintf("Tool %q not found or not allowed", tu.Name), IsError: true}
		r.firePostToolUse(ctx, tu, effectiveInput, result)
		return result
	}

	if tool.RequiresApproval(effectiveInput) {
		allowed, approvalErr := r.requestApproval(ctx, tool, tu, effectiveInput)
		if approvalErr != nil {
			result := content.ToolResultBlock{ToolUseID: tu.ID, Content: "Approval handler error: " + approvalErr.Error(), IsError: true}
			r.firePostToolUse(ctx, tu, effectiveInput, result)
			return result
		}
		if !allowed {
			result := content.ToolResultBlock{ToolUseID: tu.ID, Content: "Tool call denied by approval handler", IsError: true}
			r.firePostToolUse(ctx, tu, effectiveInput, result)
			return result
		}
	}

	execResult, execErr := tool.Execute(ctx, effectiveInput)
	var result content.ToolResultBlock
	if execErr != nil {
		result = content.ToolResultBlock{ToolUseID: tu.ID, Content: execErr.Error(), IsError: true}
	} else {
		result = content.ToolResultBlock{ToolUseID: tu.ID, Content: execResult.Content, IsError: execResult.IsError}
	}
	r.firePostToolUse(ctx, tu, effectiveInput, result)
	return result
}

func (r *Runner) requestApproval(ctx context.Context, tool tools.Tool, tu content.ToolUseBlock, effectiveInput any) (bool, error) {
	if r.cfg.Approval == nil {
		return false, nil
	}
	return r.cfg.Approval.RequestApproval(ctx, tu.Name, effectiveInput, ApprovalContext{
		ToolDescription: tool.Description(),
		RequestID:       tu.ID,
	})
}

func (r *Runner) firePostToolUse(ctx context.Context, tu content.ToolUseBlock, effectiveInput any, result content.ToolResultBlock) {
	ev := hooks.PostToolUseEvent{
		AgentID:   r.cfg.AgentID,
		ToolName:  tu.Name,
		ToolUseID: tu.ID,
		Input:     effectiveInput,
		Result:    hooks.ToolExecutionResult{Content: result.Content, IsError: result.IsError},
	}
	if _, err := r.fire(ctx, ev); err != nil {
		r.tel.Logger.Warn(ctx, "post_tool_use hook error", "error", err)
	}
}

func toSummaries(uses []content.ToolUseBlock) []hooks.ToolUseSummary {
	if len(uses) == 0 {
		return nil
	}
	out := make([]hooks.ToolUseSummary, len(uses))
	for i, u := range uses {
		out[i] = hooks.ToolUseSummary{Name: u.Name, ID: u.ID, Input: u.Input}
	}
	return out
}
