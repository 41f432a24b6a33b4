package inmem

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/loopstack/loopstack/content"
	"github.com/loopstack/loopstack/transcript"
)

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()
	msgs := []content.Message{{Role: content.RoleUser, Content: []content.ContentBlock{content.TextBlock{Text: "hi"}}}}

	require.NoError(t, s.Save(ctx, "agent-1", msgs, time.Unix(0, 0)))

	rec, err := s.Load(ctx, "agent-1")
	require.NoError(t, err)
	require.Equal(t, "agent-1", rec.AgentID)
	require.Len(t, rec.Messages, 1)
}

func TestStore_LoadMissingReturnsErrNotFound(t *testing.T) {
	s := New()
	_, err := s.Load(context.Background(), "missing")
	require.ErrorIs(t, err, transcript.ErrNotFound)
}

func TestStore_LoadDoesNotAliasStoredSlice(t *testing.T) {
	s := New()
	ctx := context.Background()
	msgs := []content.Message{{Role: content.RoleUser}}
	require.NoError(t, s.Save(ctx, "a", msgs, time.Unix(0, 0)))

	rec, err := s.Load(ctx, "a")
	require.NoError(t, err)
	rec.Messages[0] = content.Message{Role: content.RoleAssistant}

	rec2, err := s.Load(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, content.RoleUser, rec2.Messages[0].Role)
}

func TestStore_Delete(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, "a", nil, time.Unix(0, 0)))
	require.NoError(t, s.Delete(ctx, "a"))
	_, err := s.Load(ctx, "a")
	require.ErrorIs(t, err, transcript.ErrNotFound)
}

func TestStore_SaveRejectsEmptyAgentID(t *testing.T) {
	s := New()
	err := s.Save(context.Background(), "", nil, time.Unix(0, 0))
	require.Error(t, err)
}
