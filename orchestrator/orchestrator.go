// Package orchestrator runs the request pipeline: validate, retrieve
// context, rank agents, invoke candidates in order with bounded reroutes,
// and execute tool round-trips on their behalf.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/amandio-vaz/collab-mistral/agent"
	"github.com/amandio-vaz/collab-mistral/core"
	"github.com/amandio-vaz/collab-mistral/logging"
	"github.com/amandio-vaz/collab-mistral/router"
	"github.com/amandio-vaz/collab-mistral/tool"
)

// Options configure an Orchestrator.
type Options struct {
	// TopKContext is how many memory chunks are retrieved per request.
	TopKContext int
	// MaxReroutes bounds how many times the pipeline moves on after a
	// decline. At most MaxReroutes+1 agents are invoked per request.
	MaxReroutes int
	// MaxToolRoundtrips bounds tool executions within a single agent
	// engagement. An agent still requesting tools past the budget is
	// treated as declining.
	MaxToolRoundtrips int
	// Logger receives pipeline progress records.
	Logger logging.Logger
}

// WithTopKContext overrides the retrieval depth.
func WithTopKContext(k int) func(o *Options) {
	return func(o *Options) {
		o.TopKContext = k
	}
}

// WithMaxReroutes overrides the reroute bound.
func WithMaxReroutes(n int) func(o *Options) {
	return func(o *Options) {
		o.MaxReroutes = n
	}
}

// WithMaxToolRoundtrips overrides the per-engagement tool budget.
func WithMaxToolRoundtrips(n int) func(o *Options) {
	return func(o *Options) {
		o.MaxToolRoundtrips = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) func(o *Options) {
	return func(o *Options) {
		o.Logger = logger
	}
}

// Orchestrator coordinates one request across memory, router, agents and
// tools. It is stateless between requests and safe for concurrent use.
type Orchestrator struct {
	registry *agent.Registry
	router   *router.Router
	memory   core.VectorStore
	executor *tool.Executor
	opts     Options
}

// New creates an Orchestrator. Memory and executor may be nil; the
// pipeline then runs without retrieved context or tool support.
func New(registry *agent.Registry, rt *router.Router, memory core.VectorStore, executor *tool.Executor, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{
		TopKContext:       5,
		MaxReroutes:       3,
		MaxToolRoundtrips: 2,
		Logger:            logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Orchestrator{
		registry: registry,
		router:   rt,
		memory:   memory,
		executor: executor,
		opts:     opts,
	}
}

// Handle runs the full pipeline for one request. On failure the returned
// error is an *core.OrchestrationError carrying the partial trace.
func (o *Orchestrator) Handle(ctx context.Context, req core.Request) (*core.Response, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, core.NewError(core.KindInvalidRequest, "request text is empty", nil)
	}
	if req.ID == "" {
		req.ID = core.NewID()
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now().UTC()
	}

	trace := core.NewTrace(req.ID)
	start := time.Now()
	o.opts.Logger.Info("pipeline.start", "request_id", req.ID)

	// Retrieval and routing both depend only on the raw request text, so
	// they run concurrently. Trace entries are appended after the join to
	// keep the trace deterministic.
	var (
		wg       sync.WaitGroup
		chunks   []core.ContextChunk
		memErr   error
		ranked   []string
		routeErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		chunks, memErr = o.retrieve(ctx, req)
	}()
	go func() {
		defer wg.Done()
		ranked, routeErr = o.router.Classify(ctx, req)
	}()
	wg.Wait()

	if memErr != nil {
		// Memory degradation is absorbed: the pipeline continues with no
		// retrieved context.
		trace.Append("", core.ActionRetrieve, fmt.Sprintf("degraded: %v", memErr))
		o.opts.Logger.Warn("pipeline.memory.degraded", "request_id", req.ID, "error", memErr.Error())
		chunks = nil
	} else {
		trace.Append("", core.ActionRetrieve, fmt.Sprintf("retrieved %d chunks", len(chunks)))
	}

	if err := ctx.Err(); err != nil {
		return nil, core.WrapError(core.KindCanceled, err, "request canceled during preparation", trace)
	}
	if routeErr != nil {
		return nil, core.WrapError(core.KindRoutingFailure, routeErr, "intent routing failed", trace)
	}

	var contributing []string
	for i, id := range ranked {
		if i > o.opts.MaxReroutes {
			break
		}
		ag, ok := o.registry.Get(id)
		if !ok {
			return nil, core.NewError(core.KindRoutingFailure,
				fmt.Sprintf("router returned unregistered agent %q", id), trace)
		}
		contributing = append(contributing, id)

		outcome, err := o.engage(ctx, ag, req, chunks, trace)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, core.WrapError(core.KindCanceled, err, "request canceled", trace)
			}
			return nil, core.WrapError(core.KindAgentFailure, err,
				fmt.Sprintf("agent %s failed", id), trace)
		}

		switch outcome.Kind {
		case core.OutcomeHandled:
			o.opts.Logger.Info("pipeline.handled", "request_id", req.ID, "agent", id,
				"duration_ms", time.Since(start).Milliseconds())
			return &core.Response{
				RequestID:          req.ID,
				FinalText:          outcome.Text,
				ContributingAgents: contributing,
				Trace:              trace,
			}, nil
		case core.OutcomeCannotHandle:
			trace.Append(id, core.ActionReroute, fmt.Sprintf("declined: %s", outcome.Reason))
			o.opts.Logger.Info("pipeline.reroute", "request_id", req.ID, "agent", id, "reason", string(outcome.Reason))
		default:
			return nil, core.NewError(core.KindAgentFailure,
				fmt.Sprintf("agent %s returned unexpected outcome %q", id, outcome.Kind), trace)
		}
	}

	return nil, core.NewError(core.KindNoCapableAgent,
		fmt.Sprintf("all %d candidates declined within the reroute bound", len(contributing)), trace)
}

// engage runs one agent against the request, executing tool round-trips
// until the agent settles on a terminal outcome or exhausts its budget.
func (o *Orchestrator) engage(ctx context.Context, ag core.Agent, req core.Request, chunks []core.ContextChunk, trace *core.InvocationTrace) (core.Outcome, error) {
	id := ag.Descriptor().Identifier
	inv := &core.Invocation{
		Request: req,
		Context: chunks,
		Prompt:  req.Text,
	}

	for roundtrip := 0; ; roundtrip++ {
		outcome, err := ag.Run(ctx, inv)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				trace.Append(id, core.ActionInfer, "aborted")
			} else {
				trace.Append(id, core.ActionInfer, fmt.Sprintf("error: %v", err))
			}
			return core.Outcome{}, err
		}

		switch outcome.Kind {
		case core.OutcomeHandled:
			trace.Append(id, core.ActionInfer, "handled")
			return outcome, nil
		case core.OutcomeCannotHandle:
			trace.Append(id, core.ActionInfer, fmt.Sprintf("cannot_handle: %s", outcome.Reason))
			return outcome, nil
		case core.OutcomeNeedsTool:
			trace.Append(id, core.ActionInfer, fmt.Sprintf("needs_tool: %s", outcome.Tool.Name))
			if roundtrip >= o.opts.MaxToolRoundtrips {
				trace.Append(id, core.ActionToolCall, fmt.Sprintf("budget exhausted: %s not executed", outcome.Tool.Name))
				return core.CannotHandle(core.DeclineToolBudgetExhausted), nil
			}
			result := o.execute(ctx, id, outcome.Tool, trace)
			if err := ctx.Err(); err != nil {
				// A mutating tool runs to completion even after cancellation;
				// its result stays in the trace but never reaches a response.
				return core.Outcome{}, err
			}
			inv.ToolResults = append(inv.ToolResults, result)
		default:
			return core.Outcome{}, fmt.Errorf("agent %s returned unknown outcome kind %q", id, outcome.Kind)
		}
	}
}

// execute runs one tool call and folds the result, success or failure,
// into data the agent can react to.
func (o *Orchestrator) execute(ctx context.Context, agentID string, req *core.ToolRequest, trace *core.InvocationTrace) core.ToolResult {
	if o.executor == nil {
		trace.Append(agentID, core.ActionToolCall, fmt.Sprintf("failed: %s (no executor configured)", req.Name))
		return core.ToolResult{Name: req.Name, Err: "tool execution is not configured"}
	}
	result, err := o.executor.Execute(ctx, agentID, req.Name, req.Arguments)
	if err != nil {
		trace.Append(agentID, core.ActionToolCall, fmt.Sprintf("failed: %s (%v)", req.Name, err))
		return core.ToolResult{Name: req.Name, Err: err.Error()}
	}
	if ctx.Err() != nil {
		trace.Append(agentID, core.ActionToolCall, fmt.Sprintf("completed: %s (result discarded, request canceled)", req.Name))
		return core.ToolResult{Name: req.Name}
	}
	trace.Append(agentID, core.ActionToolCall, fmt.Sprintf("completed: %s", req.Name))
	return core.ToolResult{Name: req.Name, Result: result}
}

// retrieve queries vector memory for the request text.
func (o *Orchestrator) retrieve(ctx context.Context, req core.Request) ([]core.ContextChunk, error) {
	if o.memory == nil || o.opts.TopKContext <= 0 {
		return nil, nil
	}
	return o.memory.Query(ctx, req.Text, o.opts.TopKContext)
}
