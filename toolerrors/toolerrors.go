// Package toolerrors provides the structured error taxonomy shared across
// this module (spec §7): Tool, Permission, Protocol, and Engine kinds, all
// built on one chainable error type that preserves message and causal
// context while still implementing the standard error interface and
// supporting errors.Is/As through Unwrap. (The Llm kind lives in
// content.LlmError, since it is intrinsic to the model-client contract.)
package toolerrors

import (
	"errors"
	"fmt"
)

// Kind tags which branch of the spec §7 taxonomy an Error belongs to.
type Kind string

const (
	KindTool       Kind = "tool"
	KindPermission Kind = "permission"
	KindProtocol   Kind = "protocol"
	KindEngine     Kind = "engine"
)

// Error is a structured failure that preserves message and causal context
// while implementing the standard error interface. Errors may be nested
// via Cause to retain rich diagnostics across retries and tool/agent hops.
type Error struct {
	Kind    Kind
	Message string
	Cause   *Error
}

// New constructs an Error of the given kind with the provided message.
func New(kind Kind, message string) *Error {
	if message == "" {
		message = string(kind) + " error"
	}
	return &Error{Kind: kind, Message: message}
}

// NewWithCause constructs an Error that wraps an underlying error. The
// cause is converted into an Error chain so metadata survives
// serialization while still supporting errors.Is/As through Unwrap.
func NewWithCause(kind Kind, message string, cause error) *Error {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return &Error{Kind: kind, Message: message, Cause: FromError(cause)}
}

// FromError converts an arbitrary error into an Error chain, preserving an
// existing Error's Kind if err already is (or wraps) one, and defaulting
// to KindEngine otherwise.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindEngine, Message: err.Error(), Cause: FromError(errors.Unwrap(err))}
}

// Errorf formats according to a format specifier and returns the result as
// an Error of the given kind.
func Errorf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// Unwrap returns the underlying cause, supporting errors.Is/As.
func (e *Error) Unwrap() error {
	if e == nil || e.Cause == nil {
		return nil
	}
	return e.Cause
}

// IterationLimitExceeded is returned by agent.Runner when a run exhausts
// its iteration budget without the model reaching a final response (spec
// §4.1 step 4, §7). Partial usage and tool_use_count remain observable on
// the runner even after this error is returned.
type IterationLimitExceeded struct {
	MaxIterations int
}

func (e *IterationLimitExceeded) Error() string {
	return fmt.Sprintf("agent loop terminated after %d iterations without a final response", e.MaxIterations)
}
