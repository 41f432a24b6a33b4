// Package orchestrator implements the façade described in spec §2/C8: it
// owns the tool registry, hook pipeline, provider configuration, and
// per-conversation message history, and dispatches user messages through
// the agent loop runner (C7), routing hook and context-warning events to
// host callbacks.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/loopstack/loopstack/agent"
	"github.com/loopstack/loopstack/content"
	"github.com/loopstack/loopstack/contextmgr"
	"github.com/loopstack/loopstack/hooks"
	"github.com/loopstack/loopstack/telemetry"
	"github.com/loopstack/loopstack/tools"
	"github.com/loopstack/loopstack/transcript"
)

// defaultChatMaxIterations is the orchestrator chat loop's iteration
// ceiling, deliberately higher than a subagent's (spec §5, §9 Open
// Questions: "up to 50 for chat sessions").
const defaultChatMaxIterations = 50

// ContextWarningFunc is invoked when a conversation's usage crosses its
// model's warning threshold (spec §4.5). Not rate-limited; callers should
// suppress duplicates themselves if desired.
type ContextWarningFunc func(conversationID string, usage contextmgr.Usage)

// ErrorFunc receives textual error messages for host observability (spec
// §7, "on_error").
type ErrorFunc func(conversationID string, err error)

// Config configures an Orchestrator.
type Config struct {
	Client content.Client

	// Models maps model identifiers to their context-manager
	// configuration (spec §4.5).
	Models map[string]contextmgr.ModelConfig

	// Transcripts persists per-agent conversation history for resume,
	// keyed by conversation id (spec C9). Nil disables persistence.
	Transcripts transcript.Store

	Telemetry *telemetry.Provider

	OnContextWarning ContextWarningFunc
	OnError          ErrorFunc
}

// conversation holds the mutable state the orchestrator tracks for one
// conversation id.
type conversation struct {
	mu      sync.Mutex
	history []content.Message
	model   string
}

// Orchestrator owns tool and hook registries, provider configuration, and
// conversation history, dispatching each user turn through an agent.Runner
// (spec §2, C8).
type Orchestrator struct {
	cfg Config
	tel *telemetry.Provider

	tools *tools.Registry
	hooks *hooks.Registry

	mu            sync.RWMutex
	conversations map[string]*conversation
}

// New constructs an Orchestrator. Client is required; every other Config
// field is optional.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("orchestrator: model client is required")
	}
	tel := cfg.Telemetry
	if tel == nil {
		tel = telemetry.NewNoopProvider()
	}
	return &Orchestrator{
		cfg:           cfg,
		tel:           tel,
		tools:         tools.NewRegistry(),
		hooks:         hooks.NewRegistry(),
		conversations: make(map[string]*conversation),
	}, nil
}

// Tools returns the orchestrator's base tool registry, for callers that
// want to Register/Unregister built-in or MCP-wrapped tools directly.
func (o *Orchestrator) Tools() *tools.Registry { return o.tools }

// Hooks returns the orchestrator's hook registry, for callers that want to
// Register host-supplied hooks directly.
func (o *Orchestrator) Hooks() *hooks.Registry { return o.hooks }

// TurnOptions configures a single SendMessage call.
type TurnOptions struct {
	// AgentID identifies the agent/conversation. A fresh uuid is generated
	// when empty.
	AgentID string
	// Model overrides the conversation's previously used model; required
	// on the conversation's first turn.
	Model string
	SystemPrompt  string
	MaxIterations int
	AllowedTools  []string
	DeniedTools   []string
	Approval      agent.ApprovalHandler
}

// SendMessage appends task to the named conversation's history, builds a
// filtered tool registry, constructs an agent.Runner over the
// orchestrator's shared hook registry and model client, and runs the
// think-act loop to completion (spec §2 control flow, §4.1).
func (o *Orchestrator) SendMessage(ctx context.Context, opts TurnOptions, task string) (agent.Result, error) {
	convID := opts.AgentID
	if convID == "" {
		convID = uuid.NewString()
	}

	conv := o.getOrCreateConversation(convID)
	conv.mu.Lock()
	if opts.Model != "" {
		conv.model = opts.Model
	}
	model := conv.model
	history := append([]content.Message(nil), conv.history...)
	conv.mu.Unlock()

	maxIter := opts.MaxIterations
	if maxIter <= 0 {
		maxIter = defaultChatMaxIterations
	}

	filtered := tools.NewFilteredRegistry(o.tools, opts.AllowedTools, opts.DeniedTools)

	runner := agent.Resume(agent.Config{
		AgentID:       convID,
		Model:         model,
		SystemPrompt:  opts.SystemPrompt,
		MaxIterations: maxIter,
		Client:        o.cfg.Client,
		Tools:         filtered,
		Hooks:         o.hooks,
		Approval:      opts.Approval,
		Telemetry:     o.tel,
	}, history)

	result, err := runner.Run(ctx, task)

	conv.mu.Lock()
	conv.history = runner.History()
	conv.mu.Unlock()

	if err != nil && o.cfg.OnError != nil {
		o.cfg.OnError(convID, err)
	}

	o.checkContextWarning(convID, conv)
	o.persist(ctx, convID, conv)

	return result, err
}

// SendMessageAsync runs SendMessage on a dedicated goroutine and delivers
// the result to done, matching spec §5's "dedicated worker threads... for
// fire-and-forget commands" model (cancellation is achieved by the caller
// abandoning ctx or the Orchestrator itself, not by an explicit cancel
// handle).
func (o *Orchestrator) SendMessageAsync(ctx context.Context, opts TurnOptions, task string, done func(agent.Result, error)) {
	go func() {
		result, err := o.SendMessage(ctx, opts, task)
		if done != nil {
			done(result, err)
		}
	}()
}

// CompactContext runs contextmgr.CompactContext against the named
// conversation's current history, persisting the (possibly unchanged)
// result in place.
func (o *Orchestrator) CompactContext(ctx context.Context, conversationID string) (contextmgr.Usage, error) {
	conv := o.getOrCreateConversation(conversationID)
	conv.mu.Lock()
	history := append([]content.Message(nil), conv.history...)
	cfg := o.modelConfig(conv.model)
	conv.mu.Unlock()

	compacted, usage, err := contextmgr.CompactContext(ctx, o.cfg.Client, history, cfg)
	if err != nil {
		return contextmgr.Usage{}, err
	}

	conv.mu.Lock()
	conv.history = compacted
	conv.mu.Unlock()

	o.persist(ctx, conversationID, conv)
	return usage, nil
}

// ClearContext empties the named conversation's history.
func (o *Orchestrator) ClearContext(ctx context.Context, conversationID string) {
	conv := o.getOrCreateConversation(conversationID)
	conv.mu.Lock()
	conv.history = contextmgr.ClearContext(conv.history)
	conv.mu.Unlock()
	o.persist(ctx, conversationID, conv)
}

// History returns a copy of the named conversation's current message
// history.
func (o *Orchestrator) History(conversationID string) []content.Message {
	conv := o.getOrCreateConversation(conversationID)
	conv.mu.Lock()
	defer conv.mu.Unlock()
	return append([]content.Message(nil), conv.history...)
}

// Resume loads a persisted transcript (if Transcripts is configured) into
// the named conversation, returning transcript.ErrNotFound when none
// exists.
func (o *Orchestrator) Resume(ctx context.Context, conversationID string) error {
	if o.cfg.Transcripts == nil {
		return fmt.Errorf("orchestrator: no transcript store configured")
	}
	record, err := o.cfg.Transcripts.Load(ctx, conversationID)
	if err != nil {
		return err
	}
	conv := o.getOrCreateConversation(conversationID)
	conv.mu.Lock()
	conv.history = record.Messages
	conv.mu.Unlock()
	return nil
}

func (o *Orchestrator) getOrCreateConversation(id string) *conversation {
	o.mu.RLock()
	conv, ok := o.conversations[id]
	o.mu.RUnlock()
	if ok {
		return conv
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if conv, ok := o.conversations[id]; ok {
		return conv
	}
	conv = &conversation{}
	o.conversations[id] = conv
	return conv
}

// modelConfig looks up model's context-manager configuration, defaulting
// CompactionModel to model itself when unset, so a host that configures a
// ContextLimit/summarize mode without a separate compaction model still
// gets a usable fallback (spec §4.5: "the configured (or fallback)
// model").
func (o *Orchestrator) modelConfig(model string) contextmgr.ModelConfig {
	var cfg contextmgr.ModelConfig
	if o.cfg.Models != nil {
		cfg = o.cfg.Models[model]
	}
	if cfg.CompactionModel == "" {
		cfg.CompactionModel = model
	}
	return cfg
}

func (o *Orchestrator) checkContextWarning(conversationID string, conv *conversation) {
	if o.cfg.OnContextWarning == nil {
		return
	}
	conv.mu.Lock()
	history := append([]content.Message(nil), conv.history...)
	cfg := o.modelConfig(conv.model)
	conv.mu.Unlock()

	usage := contextmgr.GetContextUsage(history, cfg)
	if contextmgr.ShouldWarn(usage, cfg) {
		o.cfg.OnContextWarning(conversationID, usage)
	}
}

func (o *Orchestrator) persist(ctx context.Context, conversationID string, conv *conversation) {
	if o.cfg.Transcripts == nil {
		return
	}
	conv.mu.Lock()
	history := append([]content.Message(nil), conv.history...)
	conv.mu.Unlock()
	if err := o.cfg.Transcripts.Save(ctx, conversationID, history, time.Now()); err != nil {
		o.tel.Logger.Warn(ctx, "orchestrator: transcript save failed", "conversation_id", conversationID, "error", err)
	}
}
