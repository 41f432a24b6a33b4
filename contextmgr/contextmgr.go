// Package contextmgr estimates token usage for a conversation and
// compacts it when a model's context window is at risk of overflowing
// (spec §4.5).
package contextmgr

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/loopstack/loopstack/content"
)

// CompactionMode selects how CompactContext behaves when a model's
// ContextLimit is exceeded. ModeAuto defers to the size-based heuristic
// (truncate for small limits, summarize for large ones); the explicit
// modes force one behavior regardless of limit size.
type CompactionMode string

const (
	ModeAuto      CompactionMode = ""
	ModeTruncate  CompactionMode = "truncate"
	ModeSummarize CompactionMode = "summarize"
)

// autoSummarizeThreshold is the ContextLimit above which ModeAuto chooses
// summarize over truncate-oldest (spec §4.5).
const autoSummarizeThreshold = 8192

// defaultWarningThreshold is applied when ModelConfig.WarningThreshold is
// left at its zero value.
const defaultWarningThreshold = 0.8

// ModelConfig carries the per-model settings that drive token accounting
// and compaction decisions.
type ModelConfig struct {
	// ContextLimit is the model's total context window in tokens. Zero
	// means unbounded: CompactContext is always a no-op and UsagePercent
	// is never reported.
	ContextLimit int
	// CompactionMode overrides the size-based truncate/summarize choice.
	// Leave as ModeAuto to use the default heuristic.
	CompactionMode CompactionMode
	// WarningThreshold is the usage fraction (0..1) at which ShouldWarn
	// reports true. Zero is treated as defaultWarningThreshold.
	WarningThreshold float64
	// CompactionModel names the model invoked to produce a summary during
	// summarize-mode compaction. Empty means "use the conversation's own
	// model", left to the caller to resolve.
	CompactionModel string
}

func (c ModelConfig) warningThreshold() float64 {
	if c.WarningThreshold == 0 {
		return defaultWarningThreshold
	}
	return c.WarningThreshold
}

// EffectiveLimit is floor(ContextLimit * 0.8): compaction targets this
// smaller budget, not the raw limit, to guarantee headroom for the next
// model response.
func (c ModelConfig) EffectiveLimit() int {
	return int(float64(c.ContextLimit) * 0.8)
}

// Usage reports a conversation's current size relative to a model's
// context limit (spec §4.5 get_context_usage).
type Usage struct {
	MessageCount    int
	EstimatedTokens int
	ContextLimit    *int
	UsagePercent    *float64
}

// EstimateTokens implements the spec's deliberately cheap token estimate:
// ceil(byte_length / 4).
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + 3) / 4
}

// EstimateMessageTokens sums EstimateTokens over exactly the textual
// fields the spec names: TextBlock text, ToolUseBlock input (serialized
// as JSON), and ToolResultBlock content. ThinkingBlock and ImageBlock are
// deliberately excluded from the estimate.
func EstimateMessageTokens(m content.Message) int {
	total := 0
	for _, b := range m.Content {
		switch block := b.(type) {
		case content.TextBlock:
			total += EstimateTokens(block.Text)
		case content.ToolUseBlock:
			if raw, err := json.Marshal(block.Input); err == nil {
				total += EstimateTokens(string(raw))
			}
		case content.ToolResultBlock:
			total += EstimateTokens(block.Content)
		}
	}
	return total
}

func estimateTotalTokens(messages []content.Message) int {
	total := 0
	for _, m := range messages {
		total += EstimateMessageTokens(m)
	}
	return total
}

// GetContextUsage reports the conversation's message count, estimated
// token count, and (when cfg.ContextLimit is nonzero) the limit and usage
// percentage.
func GetContextUsage(messages []content.Message, cfg ModelConfig) Usage {
	tokens := estimateTotalTokens(messages)
	usage := Usage{MessageCount: len(messages), EstimatedTokens: tokens}
	if cfg.ContextLimit > 0 {
		limit := cfg.ContextLimit
		usage.ContextLimit = &limit
		pct := 100 * float64(tokens) / float64(limit)
		usage.UsagePercent = &pct
	}
	return usage
}

// ShouldWarn reports whether usage has crossed cfg's warning threshold,
// per spec §4.5's "After each turn... fires a ContextWarning event"
// trigger condition. The caller (orchestrator) is responsible for
// deduplicating repeated warnings if desired; ShouldWarn itself is
// idempotent and not rate-limited.
func ShouldWarn(usage Usage, cfg ModelConfig) bool {
	if usage.UsagePercent == nil {
		return false
	}
	return *usage.UsagePercent >= 100*cfg.warningThreshold()
}

// ClearContext empties the message list without touching any workspace
// metadata the caller tracks alongside it.
func ClearContext(messages []content.Message) []content.Message {
	return nil
}

const summarizationSystemPrompt = "Summarize the conversation so far in enough detail that an assistant " +
	"picking up the task from this summary alone could continue it without re-reading the original " +
	"messages. Focus on decisions made, state changed, and work remaining."

const handoffPreface = "Here is a summary of the conversation so far, provided to continue the task:\n\n"

// CompactContext implements spec §4.5's compact_context: a no-op for
// unbounded models, truncate-oldest for small limits, and
// model-driven summarization (with an anti-oscillation guard) for large
// ones. It returns the (possibly unchanged) message list and the usage
// computed against it.
func CompactContext(ctx context.Context, client content.Client, messages []content.Message, cfg ModelConfig) ([]content.Message, Usage, error) {
	if cfg.ContextLimit == 0 {
		return messages, GetContextUsage(messages, cfg), nil
	}

	mode := cfg.CompactionMode
	if mode == ModeAuto {
		if cfg.ContextLimit <= autoSummarizeThreshold {
			mode = ModeTruncate
		} else {
			mode = ModeSummarize
		}
	}

	switch mode {
	case ModeTruncate:
		truncated := truncateOldest(messages, cfg.EffectiveLimit())
		return truncated, GetContextUsage(truncated, cfg), nil
	case ModeSummarize:
		return summarize(ctx, client, messages, cfg)
	default:
		return messages, GetContextUsage(messages, cfg), fmt.Errorf("contextmgr: unknown compaction mode %q", mode)
	}
}

// truncateOldest scans messages from newest to oldest, keeping the
// longest suffix whose total estimated tokens does not exceed budget. If
// even the single newest message exceeds budget, every message is
// dropped (spec's explicitly deliberate behavior).
func truncateOldest(messages []content.Message, budget int) []content.Message {
	total := 0
	cut := len(messages)
	for i := len(messages) - 1; i >= 0; i-- {
		total += EstimateMessageTokens(messages[i])
		if total > budget {
			break
		}
		cut = i
	}
	if cut == len(messages) {
		return nil
	}
	kept := make([]content.Message, len(messages)-cut)
	copy(kept, messages[cut:])
	return kept
}

// summarize calls the configured (or supplied) model to produce a
// handoff summary, replacing history with
// [Assistant(preface+summary), most_recent_user_message]. If the
// resulting estimate is not strictly smaller than the original, the
// replacement is abandoned and the original history is returned
// untouched (anti-oscillation guard).
func summarize(ctx context.Context, client content.Client, messages []content.Message, cfg ModelConfig) ([]content.Message, Usage, error) {
	before := estimateTotalTokens(messages)

	model := cfg.CompactionModel
	if model == "" {
		return messages, GetContextUsage(messages, cfg), fmt.Errorf("contextmgr: summarize requires a compaction model")
	}

	resp, err := client.CreateMessage(ctx, content.Request{
		Model:     model,
		System:    summarizationSystemPrompt,
		Messages:  messages,
		MaxTokens: 4096,
	})
	if err != nil {
		return nil, Usage{}, fmt.Errorf("contextmgr: summarization call: %w", err)
	}

	summaryText := resp.Text()
	var lastUser *content.Message
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == content.RoleUser {
			m := messages[i]
			lastUser = &m
			break
		}
	}

	replacement := []content.Message{
		{Role: content.RoleAssistant, Content: []content.ContentBlock{content.TextBlock{Text: handoffPreface + summaryText}}},
	}
	if lastUser != nil {
		replacement = append(replacement, *lastUser)
	}

	after := estimateTotalTokens(replacement)
	if after >= before {
		// Anti-oscillation guard: the summary didn't actually shrink the
		// conversation, so keep the original history intact.
		return messages, GetContextUsage(messages, cfg), nil
	}
	return replacement, GetContextUsage(replacement, cfg), nil
}
