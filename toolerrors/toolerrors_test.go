package toolerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewDefaultsMessage(t *testing.T) {
	e := New(KindTool, "")
	require.Equal(t, "tool error", e.Error())
}

func TestNewWithCauseChains(t *testing.T) {
	inner := errors.New("boom")
	e := NewWithCause(KindProtocol, "rpc failed", inner)
	require.Equal(t, "rpc failed", e.Error())
	require.NotNil(t, e.Cause)
	require.Equal(t, "boom", e.Cause.Error())
	require.True(t, errors.Is(e, e.Cause))
}

func TestFromErrorPreservesExistingKind(t *testing.T) {
	original := New(KindPermission, "denied")
	wrapped := FromError(original)
	require.Same(t, original, wrapped)
	require.Equal(t, KindPermission, wrapped.Kind)
}

func TestFromErrorNil(t *testing.T) {
	require.Nil(t, FromError(nil))
}

func TestErrorfFormats(t *testing.T) {
	e := Errorf(KindEngine, "agent %q not found", "a1")
	require.Equal(t, `agent "a1" not found`, e.Error())
}

func TestIterationLimitExceededMessage(t *testing.T) {
	err := &IterationLimitExceeded{MaxIterations: 3}
	require.Contains(t, err.Error(), "3 iterations")
}
