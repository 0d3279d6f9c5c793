package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRequest(t *testing.T) {
	req := NewRequest("hello")
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, "hello", req.Text)
	assert.False(t, req.Timestamp.IsZero())

	other := NewRequest("hello")
	assert.NotEqual(t, req.ID, other.ID)
}

func TestTrace_AppendAndCount(t *testing.T) {
	trace := NewTrace("req-1")
	trace.Append("", ActionRetrieve, "retrieved 2 chunks")
	trace.Append("infra", ActionInfer, "handled")
	trace.Append("docs", ActionReroute, "declined: out_of_domain")
	trace.Append("infra", ActionReroute, "declined: out_of_domain")

	assert.Len(t, trace.Entries, 4)
	assert.Equal(t, 2, trace.Count(ActionReroute))
	assert.Equal(t, 1, trace.Count(ActionRetrieve))
	assert.Equal(t, 0, trace.Count(ActionToolCall))
	assert.Equal(t, "req-1", trace.RequestID)
}

func TestOutcomeConstructors(t *testing.T) {
	h := Handled("done")
	assert.Equal(t, OutcomeHandled, h.Kind)
	assert.Equal(t, "done", h.Text)

	c := CannotHandle(DeclineOutOfDomain)
	assert.Equal(t, OutcomeCannotHandle, c.Kind)
	assert.Equal(t, DeclineOutOfDomain, c.Reason)

	n := NeedsTool("restart_service", map[string]any{"service": "checkout"})
	assert.Equal(t, OutcomeNeedsTool, n.Kind)
	assert.Equal(t, "restart_service", n.Tool.Name)
	assert.Equal(t, "checkout", n.Tool.Arguments["service"])
}

func TestOrchestrationError_KindMatching(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapError(KindProviderUnavailable, cause, "embedding provider down", nil)

	assert.Equal(t, KindProviderUnavailable, KindOf(err))
	assert.ErrorIs(t, err, cause)
	assert.True(t, errors.Is(err, &OrchestrationError{Kind: KindProviderUnavailable}))
	assert.False(t, errors.Is(err, &OrchestrationError{Kind: KindCanceled}))
}

func TestOrchestrationError_KindOfWrapped(t *testing.T) {
	err := NewError(KindNoCapableAgent, "everyone declined", NewTrace("req-2"))
	wrapped := fmt.Errorf("request failed: %w", err)

	assert.Equal(t, KindNoCapableAgent, KindOf(wrapped))
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
}

func TestOrchestrationError_CarriesTrace(t *testing.T) {
	trace := NewTrace("req-3")
	trace.Append("docs", ActionReroute, "declined: insufficient_context")

	err := NewError(KindNoCapableAgent, "everyone declined", trace)
	var oe *OrchestrationError
	assert.True(t, errors.As(err, &oe))
	assert.Equal(t, 1, oe.Trace.Count(ActionReroute))
}
