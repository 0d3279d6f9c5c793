// Command collabd runs the multi-agent orchestration service: an HTTP
// gateway in front of the routing pipeline, with specialists for
// infrastructure, security and documentation requests.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	goredis "github.com/redis/go-redis/v9"

	collabmistral "github.com/amandio-vaz/collab-mistral"
	"github.com/amandio-vaz/collab-mistral/agent"
	"github.com/amandio-vaz/collab-mistral/config"
	"github.com/amandio-vaz/collab-mistral/core"
	"github.com/amandio-vaz/collab-mistral/gateway"
	"github.com/amandio-vaz/collab-mistral/logging"
	"github.com/amandio-vaz/collab-mistral/memory"
	memredis "github.com/amandio-vaz/collab-mistral/memory/redis"
	"github.com/amandio-vaz/collab-mistral/model"
	"github.com/amandio-vaz/collab-mistral/model/anthropic"
	"github.com/amandio-vaz/collab-mistral/model/openai"
	"github.com/amandio-vaz/collab-mistral/tool"
)

func main() {
	cfg := config.MustNew[config.Config]("COLLAB")
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := logging.NewZerologLogger(cfg.LogDebug, cfg.LogPretty)

	if err := run(cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("collabd.exit", "error", err.Error())
		os.Exit(1)
	}
	logger.Info("collabd.stopped")
}

func run(cfg *config.Config, logger logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, embedder := buildProvider(cfg, logger)
	store := buildMemory(cfg, embedder, logger)

	cm := collabmistral.New(func(o *collabmistral.Options) {
		o.TopKContext = cfg.TopKContext
		o.MaxReroutes = cfg.MaxReroutes
		o.MaxToolRoundtrips = cfg.MaxToolRoundtrips
		o.ConfidenceThreshold = cfg.ConfidenceThreshold
		o.DefaultAgent = cfg.DefaultAgent
		o.Classifier = client
		o.Memory = store
		o.ToolTimeout = cfg.ToolTimeout
		o.Logger = logger
	})

	if err := registerTools(cm, store); err != nil {
		return err
	}
	if err := registerAgents(cm, client); err != nil {
		return err
	}
	for agentID, toolNames := range cfg.Allowlist() {
		cm.AllowTools(agentID, toolNames...)
	}

	server := gateway.NewServer(cfg.Addr, cm, func(o *gateway.Options) {
		o.RequestTimeout = cfg.RequestTimeout
		o.Logger = logger
	})
	return server.Start(ctx)
}

// buildProvider selects the inference client and embedder. A Mistral or
// other OpenAI-compatible endpoint is reached by pointing BaseURL at it.
func buildProvider(cfg *config.Config, logger logging.Logger) (model.Client, model.Embedder) {
	switch cfg.Provider {
	case "anthropic":
		client := anthropic.New(func(o *anthropic.Options) {
			if cfg.Model != "" {
				o.Model = anthropicsdk.Model(cfg.Model)
			}
			o.Temperature = cfg.Temperature
			o.APIKey = cfg.APIKey
		})
		// The Anthropic API has no embeddings endpoint; vector memory
		// falls back to the deterministic local embedder.
		logger.Warn("provider.anthropic.local_embedder")
		return client, model.NewMockEmbedder()
	default:
		client := openai.New(func(o *openai.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			if cfg.EmbeddingModel != "" {
				o.EmbeddingModel = cfg.EmbeddingModel
			}
			o.Temperature = cfg.Temperature
			o.BaseURL = cfg.BaseURL
			o.APIKey = cfg.APIKey
		})
		return client, client
	}
}

func buildMemory(cfg *config.Config, embedder model.Embedder, logger logging.Logger) core.VectorStore {
	if cfg.MemoryDriver == "redis" {
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		logger.Info("memory.redis", "addr", cfg.RedisAddr)
		return memredis.New(rdb, embedder)
	}
	logger.Info("memory.in_memory")
	return memory.NewInMemoryStore(embedder)
}

var clockDesc = tool.Descriptor{
	Name:        "current_time",
	Description: "Returns the current UTC time in RFC 3339 format.",
	Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
	SideEffect:  tool.SideEffectReadOnly,
}

var searchDesc = tool.Descriptor{
	Name:        "memory_search",
	Description: "Searches the shared knowledge base and returns the best matching fragments.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string", "description": "Free-text search query."},
		},
		"required": []string{"query"},
	},
	SideEffect: tool.SideEffectReadOnly,
}

// registerTools installs the built-in tools. Deployments extend the set
// by importing the library instead of running collabd directly.
func registerTools(cm *collabmistral.CollabMistral, store core.VectorStore) error {
	clock := tool.NewFunctionTool(clockDesc, func(ctx context.Context, args map[string]any) (any, error) {
		return time.Now().UTC().Format(time.RFC3339), nil
	})
	if err := cm.RegisterTool(clock); err != nil {
		return err
	}

	search := tool.NewFunctionTool(searchDesc, func(ctx context.Context, args map[string]any) (any, error) {
		query, _ := args["query"].(string)
		chunks, err := store.Query(ctx, query, 3)
		if err != nil {
			return nil, err
		}
		results := make([]map[string]any, 0, len(chunks))
		for _, c := range chunks {
			results = append(results, map[string]any{
				"source_id": c.SourceID,
				"text":      c.Text,
				"score":     c.Score,
			})
		}
		return results, nil
	})
	return cm.RegisterTool(search)
}

func registerAgents(cm *collabmistral.CollabMistral, client model.Client) error {
	specialists := []struct {
		desc         core.Descriptor
		instructions string
	}{
		{
			desc: core.Descriptor{
				Identifier:      "infra",
				DisplayName:     "Infrastructure",
				Capability:      "Diagnoses deployments, scaling, networking and service health issues.",
				AcceptedIntents: []string{"deploy", "scale", "outage", "latency", "kubernetes", "server"},
			},
			instructions: "Focus on actionable operational guidance. Prefer concrete commands and checks.",
		},
		{
			desc: core.Descriptor{
				Identifier:      "security",
				DisplayName:     "Security",
				Capability:      "Reviews vulnerabilities, access control and incident response questions.",
				AcceptedIntents: []string{"vulnerability", "cve", "credentials", "access", "incident", "audit"},
			},
			instructions: "Be conservative. Flag anything that needs human sign-off before action.",
		},
		{
			desc: core.Descriptor{
				Identifier:      "docs",
				DisplayName:     "Documentation",
				Capability:      "Answers questions from internal documentation and drafts new documentation.",
				AcceptedIntents: []string{"documentation", "howto", "guide", "explain", "onboarding"},
			},
			instructions: "Ground every answer in the retrieved context. Cite source identifiers.",
		},
	}

	for _, s := range specialists {
		a := agent.NewModelAgent(s.desc, client,
			agent.WithInstructions(s.instructions),
			agent.WithTools(clockDesc, searchDesc),
		)
		if err := cm.RegisterAgent(a); err != nil {
			return err
		}
	}
	return nil
}
