// Package collabmistral provides a high-level façade over the
// orchestration pipeline (intent routing, vector memory, agents and
// tools) for building multi-agent assistants. Most applications interact
// with this package by:
//  1. Creating a CollabMistral via New() (optionally overriding the
//     default in-memory services)
//  2. Registering specialist agents and the tools they may call
//  3. Submitting requests with Handle or the HandleText shorthand
//
// The façade delegates request processing to orchestrator.Orchestrator
// while keeping setup ergonomics concise. All defaults are safe for
// local development and testing; production deployments typically supply
// a Redis-backed memory store and a structured logger.
package collabmistral

import (
	"context"
	"time"

	"github.com/amandio-vaz/collab-mistral/agent"
	"github.com/amandio-vaz/collab-mistral/core"
	"github.com/amandio-vaz/collab-mistral/logging"
	"github.com/amandio-vaz/collab-mistral/memory"
	"github.com/amandio-vaz/collab-mistral/model"
	"github.com/amandio-vaz/collab-mistral/orchestrator"
	"github.com/amandio-vaz/collab-mistral/router"
	"github.com/amandio-vaz/collab-mistral/tool"
)

// Options configures the CollabMistral instance.
type Options struct {
	// TopKContext is the retrieval depth per request.
	TopKContext int

	// MaxReroutes bounds reroutes after declines; at most MaxReroutes+1
	// agents are invoked per request.
	MaxReroutes int

	// MaxToolRoundtrips bounds tool executions per agent engagement.
	MaxToolRoundtrips int

	// ConfidenceThreshold is the router's low-confidence cutoff.
	ConfidenceThreshold float64

	// DefaultAgent receives low-confidence requests when set.
	DefaultAgent string

	// Classifier ranks low-confidence requests when set.
	Classifier model.Client

	// Memory defaults to an in-memory store over a deterministic local
	// embedder if not provided.
	Memory core.VectorStore

	// ToolTimeout bounds a single tool invocation. Zero keeps the
	// executor default.
	ToolTimeout time.Duration

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// CollabMistral is the high-level façade aggregating the registries, the
// router and the orchestrator.
type CollabMistral struct {
	opts     Options
	agents   *agent.Registry
	tools    *tool.Registry
	executor *tool.Executor
	orch     *orchestrator.Orchestrator
}

// New creates a CollabMistral instance with optional overrides. Any
// unset service is initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) *CollabMistral {
	opts := Options{
		TopKContext:         5,
		MaxReroutes:         3,
		MaxToolRoundtrips:   2,
		ConfidenceThreshold: 0.35,
		Memory:              memory.NewInMemoryStore(model.NewMockEmbedder()),
		Logger:              logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	agents := agent.NewRegistry()
	tools := tool.NewRegistry()
	executor := tool.NewExecutor(tools, func(o *tool.ExecutorOptions) {
		if opts.ToolTimeout > 0 {
			o.Timeout = opts.ToolTimeout
		}
		o.Logger = opts.Logger
	})

	rt := router.New(agents, func(o *router.Options) {
		o.ConfidenceThreshold = opts.ConfidenceThreshold
		o.DefaultAgent = opts.DefaultAgent
		o.Classifier = opts.Classifier
		o.Logger = opts.Logger
	})

	orch := orchestrator.New(agents, rt, opts.Memory, executor, func(o *orchestrator.Options) {
		o.TopKContext = opts.TopKContext
		o.MaxReroutes = opts.MaxReroutes
		o.MaxToolRoundtrips = opts.MaxToolRoundtrips
		o.Logger = opts.Logger
	})

	return &CollabMistral{
		opts:     opts,
		agents:   agents,
		tools:    tools,
		executor: executor,
		orch:     orch,
	}
}

// RegisterAgent adds a specialist to the agent registry.
func (c *CollabMistral) RegisterAgent(a core.Agent) error { return c.agents.Register(a) }

// RegisterTool adds a tool to the tool registry.
func (c *CollabMistral) RegisterTool(t tool.Tool) error { return c.tools.Register(t) }

// AllowTools grants an agent access to mutating or external-network
// tools. Read-only tools never need a grant.
func (c *CollabMistral) AllowTools(agentID string, toolNames ...string) {
	c.executor.Allow(agentID, toolNames...)
}

// Remember stores or replaces a document in vector memory under sourceID.
func (c *CollabMistral) Remember(ctx context.Context, sourceID, text string) error {
	return c.opts.Memory.Upsert(ctx, sourceID, text)
}

// Handle runs the full pipeline for one request.
func (c *CollabMistral) Handle(ctx context.Context, req core.Request) (*core.Response, error) {
	return c.orch.Handle(ctx, req)
}

// HandleText is a shorthand that wraps raw text in a fresh request.
func (c *CollabMistral) HandleText(ctx context.Context, text string) (*core.Response, error) {
	return c.orch.Handle(ctx, core.NewRequest(text))
}
