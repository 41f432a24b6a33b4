// Package transcript persists per-agent message history so a Runner can
// be resumed later (spec §4.1, "resume(agent_id, transcript) → Agent") and
// so subagent transcripts can be stored separately, keyed by agent id
// (spec §3, Lifecycle).
package transcript

import (
	"context"
	"errors"
	"time"

	"github.com/loopstack/loopstack/content"
)

// Record is a stored transcript snapshot. Messages is saved as a whole
// snapshot rather than an append log, since compaction may replace an
// entire prefix with a single summary message (spec §4.5) — there is no
// stable suffix to append to after that happens.
type Record struct {
	AgentID   string
	Messages  []content.Message
	UpdatedAt time.Time
}

// Store persists and retrieves transcript Records, keyed by agent id.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save replaces the stored transcript for agentID with messages.
	Save(ctx context.Context, agentID string, messages []content.Message, updatedAt time.Time) error
	// Load returns the stored transcript for agentID.
	// Returns ErrNotFound when no transcript has been saved for agentID.
	Load(ctx context.Context, agentID string) (Record, error)
	// Delete removes the stored transcript for agentID, if any.
	Delete(ctx context.Context, agentID string) error
}

// ErrNotFound is returned by Store.Load when agentID has no saved
// transcript.
var ErrNotFound = errors.New("transcript: not found")
