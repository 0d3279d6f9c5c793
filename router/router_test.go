package router

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/amandio-vaz/collab-mistral/agent"
	"github.com/amandio-vaz/collab-mistral/core"
	"github.com/amandio-vaz/collab-mistral/model"
)

func registryWith(t *testing.T, descs ...core.Descriptor) *agent.Registry {
	t.Helper()
	reg := agent.NewRegistry()
	for _, d := range descs {
		a := agent.NewFuncAgent(d, func(ctx context.Context, inv *core.Invocation) (core.Outcome, error) {
			return core.Handled("ok"), nil
		})
		assert.NoError(t, reg.Register(a))
	}
	return reg
}

func TestRouter_RanksByIntentOverlap(t *testing.T) {
	reg := registryWith(t,
		core.Descriptor{Identifier: "docs", AcceptedIntents: []string{"documentation", "guide"}},
		core.Descriptor{Identifier: "infra", AcceptedIntents: []string{"deploy", "outage"}},
	)
	rt := New(reg)

	ranked, err := rt.Classify(context.Background(), core.NewRequest("the deploy caused an outage"))
	assert.NoError(t, err)
	assert.Equal(t, []string{"infra", "docs"}, ranked)
}

func TestRouter_EveryAgentAppearsOnce(t *testing.T) {
	reg := registryWith(t,
		core.Descriptor{Identifier: "a", AcceptedIntents: []string{"alpha"}},
		core.Descriptor{Identifier: "b", AcceptedIntents: []string{"beta"}},
		core.Descriptor{Identifier: "c", AcceptedIntents: []string{"gamma"}},
	)
	rt := New(reg, WithConfidenceThreshold(0))

	ranked, err := rt.Classify(context.Background(), core.NewRequest("beta things"))
	assert.NoError(t, err)
	assert.Len(t, ranked, 3)
	assert.Equal(t, "b", ranked[0])
	assert.ElementsMatch(t, []string{"a", "b", "c"}, ranked)
}

func TestRouter_Deterministic(t *testing.T) {
	reg := registryWith(t,
		core.Descriptor{Identifier: "docs", AcceptedIntents: []string{"guide"}},
		core.Descriptor{Identifier: "infra", AcceptedIntents: []string{"deploy"}},
		core.Descriptor{Identifier: "security", AcceptedIntents: []string{"audit"}},
	)
	rt := New(reg, WithConfidenceThreshold(0))
	req := core.NewRequest("unrelated request text")

	first, err := rt.Classify(context.Background(), req)
	assert.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := rt.Classify(context.Background(), req)
		assert.NoError(t, err)
		assert.Equal(t, first, again)
	}
	// All scores tie at zero, so registration order decides.
	assert.Equal(t, []string{"docs", "infra", "security"}, first)
}

func TestRouter_EmptyRegistryFails(t *testing.T) {
	rt := New(agent.NewRegistry())

	_, err := rt.Classify(context.Background(), core.NewRequest("anything"))
	assert.Error(t, err)
}

func TestRouter_DefaultAgentPromotedOnLowConfidence(t *testing.T) {
	reg := registryWith(t,
		core.Descriptor{Identifier: "docs", AcceptedIntents: []string{"guide"}},
		core.Descriptor{Identifier: "general", AcceptedIntents: []string{}},
	)
	rt := New(reg, WithDefaultAgent("general"))

	ranked, err := rt.Classify(context.Background(), core.NewRequest("no intent overlap here"))
	assert.NoError(t, err)
	assert.Equal(t, "general", ranked[0])
	assert.Len(t, ranked, 2)
}

func TestRouter_DefaultAgentNotPromotedOnConfidentMatch(t *testing.T) {
	reg := registryWith(t,
		core.Descriptor{Identifier: "infra", AcceptedIntents: []string{"deploy"}},
		core.Descriptor{Identifier: "general", AcceptedIntents: []string{}},
	)
	rt := New(reg, WithDefaultAgent("general"))

	ranked, err := rt.Classify(context.Background(), core.NewRequest("deploy the new build"))
	assert.NoError(t, err)
	assert.Equal(t, "infra", ranked[0])
}

func TestRouter_ClassifierRefinesLowConfidence(t *testing.T) {
	reg := registryWith(t,
		core.Descriptor{Identifier: "docs", AcceptedIntents: []string{"guide"}},
		core.Descriptor{Identifier: "infra", AcceptedIntents: []string{"deploy"}},
	)
	classifier := model.NewMockClient("classifier")
	classifier.Enqueue(model.Response{Text: "infra\ndocs"})
	rt := New(reg, WithClassifier(classifier))

	ranked, err := rt.Classify(context.Background(), core.NewRequest("nothing lexical matches"))
	assert.NoError(t, err)
	assert.Equal(t, []string{"infra", "docs"}, ranked)
}

func TestRouter_ClassifierUnknownIdentifiersReconciled(t *testing.T) {
	reg := registryWith(t,
		core.Descriptor{Identifier: "docs", AcceptedIntents: []string{"guide"}},
		core.Descriptor{Identifier: "infra", AcceptedIntents: []string{"deploy"}},
	)
	classifier := model.NewMockClient("classifier")
	classifier.Enqueue(model.Response{Text: "made_up\ninfra"})
	rt := New(reg, WithClassifier(classifier))

	ranked, err := rt.Classify(context.Background(), core.NewRequest("nothing lexical matches"))
	assert.NoError(t, err)
	assert.Equal(t, []string{"infra", "docs"}, ranked)
}

func TestRouter_ClassifierFailureDegradesToLexical(t *testing.T) {
	reg := registryWith(t,
		core.Descriptor{Identifier: "docs", AcceptedIntents: []string{"guide"}},
		core.Descriptor{Identifier: "infra", AcceptedIntents: []string{"deploy"}},
	)
	classifier := model.NewMockClient("classifier")
	classifier.Fail(errors.New("provider down"))
	rt := New(reg, WithClassifier(classifier), WithDefaultAgent("infra"))

	ranked, err := rt.Classify(context.Background(), core.NewRequest("nothing lexical matches"))
	assert.NoError(t, err)
	assert.Len(t, ranked, 2)
	assert.Equal(t, "infra", ranked[0])
}
