package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/amandio-vaz/collab-mistral/core"
)

var (
	_ core.Agent = (*ModelAgent)(nil)
	_ core.Agent = (*FuncAgent)(nil)
)

func stubAgent(id string) *FuncAgent {
	return NewFuncAgent(core.Descriptor{Identifier: id, DisplayName: id},
		func(ctx context.Context, inv *core.Invocation) (core.Outcome, error) {
			return core.Handled("ok"), nil
		})
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	assert.NoError(t, reg.Register(stubAgent("infra")))

	a, ok := reg.Get("infra")
	assert.True(t, ok)
	assert.Equal(t, "infra", a.Descriptor().Identifier)

	_, ok = reg.Get("missing")
	assert.False(t, ok)
}

func TestRegistry_DuplicateIdentifierFails(t *testing.T) {
	reg := NewRegistry()
	assert.NoError(t, reg.Register(stubAgent("infra")))
	assert.Error(t, reg.Register(stubAgent("infra")))
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_EmptyIdentifierFails(t *testing.T) {
	reg := NewRegistry()
	assert.Error(t, reg.Register(stubAgent("")))
}

func TestRegistry_DescriptorsPreserveRegistrationOrder(t *testing.T) {
	reg := NewRegistry()
	for _, id := range []string{"docs", "infra", "security"} {
		assert.NoError(t, reg.Register(stubAgent(id)))
	}

	descs := reg.Descriptors()
	ids := make([]string, 0, len(descs))
	for _, d := range descs {
		ids = append(ids, d.Identifier)
	}
	assert.Equal(t, []string{"docs", "infra", "security"}, ids)
}

func TestFuncAgent_Run(t *testing.T) {
	a := NewFuncAgent(core.Descriptor{Identifier: "fn"},
		func(ctx context.Context, inv *core.Invocation) (core.Outcome, error) {
			return core.Handled("answer to " + inv.Request.Text), nil
		})

	out, err := a.Run(context.Background(), &core.Invocation{Request: core.NewRequest("q")})
	assert.NoError(t, err)
	assert.Equal(t, core.OutcomeHandled, out.Kind)
	assert.Equal(t, "answer to q", out.Text)
}
