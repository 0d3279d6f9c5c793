package core

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed taxonomy of failures the orchestrator surfaces to
// its caller. Failures with a defined in-pipeline recovery (an agent
// declining, vector memory degradation) never appear here; they are
// absorbed and reflected only in the trace.
type ErrorKind string

const (
	// KindInvalidRequest rejects malformed input (empty request text).
	KindInvalidRequest ErrorKind = "invalid_request"
	// KindRoutingFailure means the intent router was unusable for the request.
	KindRoutingFailure ErrorKind = "routing_failure"
	// KindNoCapableAgent means every ranked candidate declined within the
	// reroute bound.
	KindNoCapableAgent ErrorKind = "no_capable_agent"
	// KindAgentFailure is an agent invocation error other than a decline.
	KindAgentFailure ErrorKind = "agent_failure"
	// KindProviderUnavailable means an external provider (inference or
	// embedding) was down in a position with no local recovery.
	KindProviderUnavailable ErrorKind = "provider_unavailable"
	// KindCanceled is caller-driven cancellation (timeout or explicit abort).
	KindCanceled ErrorKind = "canceled"
)

// OrchestrationError is the typed failure returned by the orchestrator. It
// carries the partial invocation trace for diagnosis; nothing is silently
// dropped.
type OrchestrationError struct {
	Kind    ErrorKind
	Message string
	Trace   *InvocationTrace
	cause   error
}

// NewError creates an OrchestrationError without a wrapped cause.
func NewError(kind ErrorKind, message string, trace *InvocationTrace) *OrchestrationError {
	return &OrchestrationError{Kind: kind, Message: message, Trace: trace}
}

// WrapError creates an OrchestrationError wrapping an underlying cause.
func WrapError(kind ErrorKind, cause error, message string, trace *InvocationTrace) *OrchestrationError {
	return &OrchestrationError{Kind: kind, Message: message, Trace: trace, cause: cause}
}

// Error implements the error interface.
func (e *OrchestrationError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is / errors.As.
func (e *OrchestrationError) Unwrap() error { return e.cause }

// Is matches two OrchestrationErrors by kind, so callers can write
// errors.Is(err, &OrchestrationError{Kind: KindNoCapableAgent}).
func (e *OrchestrationError) Is(target error) bool {
	t, ok := target.(*OrchestrationError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf extracts the error kind from any error, or empty string if the
// error is not an OrchestrationError.
func KindOf(err error) ErrorKind {
	var oe *OrchestrationError
	if errors.As(err, &oe) {
		return oe.Kind
	}
	return ""
}
