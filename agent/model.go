package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/amandio-vaz/collab-mistral/core"
	"github.com/amandio-vaz/collab-mistral/model"
	"github.com/amandio-vaz/collab-mistral/tool"
)

const declinePrefix = "CANNOT_HANDLE:"

// ModelAgentOptions configure a ModelAgent.
type ModelAgentOptions struct {
	// Instructions is prepended to the generated system prompt. Use it to
	// describe the agent's specialty and ground rules.
	Instructions string
	// Tools are advertised to the model; the agent surfaces the first
	// requested call as a NeedsTool outcome.
	Tools []tool.Descriptor
}

// WithInstructions sets the agent's specialty instructions.
func WithInstructions(instructions string) func(o *ModelAgentOptions) {
	return func(o *ModelAgentOptions) {
		o.Instructions = instructions
	}
}

// WithTools advertises tools to the model.
func WithTools(descs ...tool.Descriptor) func(o *ModelAgentOptions) {
	return func(o *ModelAgentOptions) {
		o.Tools = append(o.Tools, descs...)
	}
}

// ModelAgent answers requests by driving an inference client. It renders
// the invocation (request text, retrieved context, prior tool results)
// into a model request and maps the reply back onto an Outcome:
//
//   - a reply starting with "CANNOT_HANDLE: <reason>" becomes a decline
//     carrying the stated reason, so the orchestrator can reroute
//   - a reply carrying a tool call becomes a NeedsTool outcome
//   - anything else is a final Handled answer
//
// Provider outages are reported as a decline with reason
// "provider_unavailable" rather than as an error: the request may still
// be answerable by a sibling agent on a different provider.
type ModelAgent struct {
	desc   core.Descriptor
	client model.Client
	opts   ModelAgentOptions
}

// NewModelAgent constructs a ModelAgent bound to an inference client.
func NewModelAgent(desc core.Descriptor, client model.Client, optFns ...func(o *ModelAgentOptions)) *ModelAgent {
	opts := ModelAgentOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &ModelAgent{desc: desc, client: client, opts: opts}
}

// Descriptor implements core.Agent.
func (a *ModelAgent) Descriptor() core.Descriptor { return a.desc }

// Run implements core.Agent.
func (a *ModelAgent) Run(ctx context.Context, inv *core.Invocation) (core.Outcome, error) {
	req := model.Request{
		Instructions: a.systemPrompt(),
		Messages:     a.buildMessages(inv),
		Tools:        a.toolSpecs(),
	}

	resp, err := a.client.Complete(ctx, req)
	if err != nil {
		if errors.Is(err, model.ErrProviderUnavailable) && ctx.Err() == nil {
			return core.CannotHandle(core.DeclineProviderUnavailable), nil
		}
		return core.Outcome{}, fmt.Errorf("agent %s: %w", a.desc.Identifier, err)
	}

	if len(resp.ToolCalls) > 0 {
		call := resp.ToolCalls[0]
		args := map[string]any{}
		if len(call.Arguments) > 0 {
			if err := json.Unmarshal(call.Arguments, &args); err != nil {
				return core.Outcome{}, fmt.Errorf("agent %s: malformed tool arguments for %s: %w", a.desc.Identifier, call.Name, err)
			}
		}
		return core.NeedsTool(call.Name, args), nil
	}

	text := strings.TrimSpace(resp.Text)
	if rest, ok := strings.CutPrefix(text, declinePrefix); ok {
		return core.CannotHandle(parseDeclineReason(rest)), nil
	}
	return core.Handled(text), nil
}

func (a *ModelAgent) systemPrompt() string {
	var b strings.Builder
	if a.opts.Instructions != "" {
		b.WriteString(a.opts.Instructions)
		b.WriteString("\n\n")
	}
	b.WriteString("You are the ")
	b.WriteString(a.desc.DisplayName)
	b.WriteString(" specialist. ")
	b.WriteString(a.desc.Capability)
	b.WriteString("\nIf the request is outside your specialty, reply with exactly ")
	b.WriteString("'CANNOT_HANDLE: out_of_domain'. If the supplied context is not ")
	b.WriteString("enough to answer responsibly, reply with exactly ")
	b.WriteString("'CANNOT_HANDLE: insufficient_context'. Otherwise answer the request directly.")
	return b.String()
}

func (a *ModelAgent) buildMessages(inv *core.Invocation) []model.Message {
	var messages []model.Message
	if len(inv.Context) > 0 {
		var b strings.Builder
		b.WriteString("Relevant context retrieved for this request:\n")
		for _, chunk := range inv.Context {
			fmt.Fprintf(&b, "- [%s] %s\n", chunk.SourceID, chunk.Text)
		}
		messages = append(messages, model.Message{Role: "system", Text: b.String()})
	}
	messages = append(messages, model.Message{Role: "user", Text: inv.Request.Text})
	for _, tr := range inv.ToolResults {
		text := fmt.Sprintf("Result of tool %s: %v", tr.Name, tr.Result)
		if tr.Err != "" {
			text = fmt.Sprintf("Tool %s failed: %s", tr.Name, tr.Err)
		}
		messages = append(messages, model.Message{Role: "system", Text: text})
	}
	return messages
}

func (a *ModelAgent) toolSpecs() []model.ToolSpec {
	if len(a.opts.Tools) == 0 {
		return nil
	}
	specs := make([]model.ToolSpec, 0, len(a.opts.Tools))
	for _, d := range a.opts.Tools {
		specs = append(specs, model.ToolSpec{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.Parameters,
		})
	}
	return specs
}

// parseDeclineReason normalizes the free-text reason after the decline
// prefix onto the closed reason vocabulary. Unrecognized reasons fall back
// to out-of-domain, the weakest claim an agent can make.
func parseDeclineReason(raw string) core.DeclineReason {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	switch core.DeclineReason(normalized) {
	case core.DeclineInsufficientContext:
		return core.DeclineInsufficientContext
	case core.DeclineProviderUnavailable:
		return core.DeclineProviderUnavailable
	case core.DeclineToolFailure:
		return core.DeclineToolFailure
	case core.DeclineToolBudgetExhausted:
		return core.DeclineToolBudgetExhausted
	default:
		return core.DeclineOutOfDomain
	}
}
