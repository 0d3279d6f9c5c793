package collabmistral

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/amandio-vaz/collab-mistral/agent"
	"github.com/amandio-vaz/collab-mistral/core"
	"github.com/amandio-vaz/collab-mistral/model"
	"github.com/amandio-vaz/collab-mistral/tool"
)

func TestEndToEnd_RouteAndHandle(t *testing.T) {
	infraModel := model.NewMockClient("infra-model")
	infraModel.AddResponse("the deploy caused an outage", "Roll back the deploy.")

	cm := New()
	infra := agent.NewModelAgent(core.Descriptor{
		Identifier:      "infra",
		DisplayName:     "Infrastructure",
		AcceptedIntents: []string{"deploy", "outage"},
	}, infraModel)
	docs := agent.NewModelAgent(core.Descriptor{
		Identifier:      "docs",
		DisplayName:     "Documentation",
		AcceptedIntents: []string{"documentation"},
	}, model.NewMockClient("docs-model"))
	assert.NoError(t, cm.RegisterAgent(infra))
	assert.NoError(t, cm.RegisterAgent(docs))

	resp, err := cm.HandleText(context.Background(), "the deploy caused an outage")
	assert.NoError(t, err)
	assert.Equal(t, "Roll back the deploy.", resp.FinalText)
	assert.Equal(t, []string{"infra"}, resp.ContributingAgents)
	assert.NotNil(t, resp.Trace)
}

func TestEndToEnd_RememberFeedsRetrieval(t *testing.T) {
	cm := New()
	var retrieved []core.ContextChunk
	a := agent.NewFuncAgent(core.Descriptor{Identifier: "docs", AcceptedIntents: []string{"rollback"}},
		func(ctx context.Context, inv *core.Invocation) (core.Outcome, error) {
			retrieved = inv.Context
			return core.Handled("see runbook"), nil
		})
	assert.NoError(t, cm.RegisterAgent(a))

	ctx := context.Background()
	assert.NoError(t, cm.Remember(ctx, "runbook-17", "rollback procedure for checkout"))

	resp, err := cm.HandleText(ctx, "how does the rollback work")
	assert.NoError(t, err)
	assert.Equal(t, "see runbook", resp.FinalText)
	assert.NotEmpty(t, retrieved)
	assert.Equal(t, "runbook-17", retrieved[0].SourceID)
}

func TestEndToEnd_ToolRoundTripWithGrant(t *testing.T) {
	opsModel := model.NewMockClient("ops-model")
	opsModel.Enqueue(model.Response{ToolCalls: []model.ToolCall{{
		ID:        "call-1",
		Name:      "restart_service",
		Arguments: json.RawMessage(`{"service":"checkout"}`),
	}}})
	opsModel.Enqueue(model.Response{Text: "Restarted checkout."})

	cm := New()
	restart := tool.NewFunctionTool(tool.Descriptor{
		Name: "restart_service",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"service": map[string]any{"type": "string"},
			},
			"required": []string{"service"},
		},
		SideEffect: tool.SideEffectMutating,
	}, func(ctx context.Context, args map[string]any) (any, error) {
		return "ok", nil
	})
	assert.NoError(t, cm.RegisterTool(restart))

	ops := agent.NewModelAgent(core.Descriptor{
		Identifier:      "ops",
		AcceptedIntents: []string{"restart"},
	}, opsModel)
	assert.NoError(t, cm.RegisterAgent(ops))
	cm.AllowTools("ops", "restart_service")

	resp, err := cm.HandleText(context.Background(), "restart checkout now")
	assert.NoError(t, err)
	assert.Equal(t, "Restarted checkout.", resp.FinalText)
	assert.Equal(t, 1, resp.Trace.Count(core.ActionToolCall))
}

func TestEndToEnd_DuplicateRegistrationFails(t *testing.T) {
	cm := New()
	a := agent.NewFuncAgent(core.Descriptor{Identifier: "dup"},
		func(ctx context.Context, inv *core.Invocation) (core.Outcome, error) {
			return core.Handled("ok"), nil
		})
	assert.NoError(t, cm.RegisterAgent(a))
	assert.Error(t, cm.RegisterAgent(a))
}
