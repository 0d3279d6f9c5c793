package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the collabd service configuration, loaded from COLLAB_*
// environment variables.
type Config struct {
	Addr string `envconfig:"ADDR" split_words:"true" default:":8080"`

	// Pipeline bounds.
	TopKContext         int           `envconfig:"TOP_K_CONTEXT" split_words:"true" default:"5"`
	MaxReroutes         int           `envconfig:"MAX_REROUTES" split_words:"true" default:"3"`
	MaxToolRoundtrips   int           `envconfig:"MAX_TOOL_ROUNDTRIPS" split_words:"true" default:"2"`
	ConfidenceThreshold float64       `envconfig:"CONFIDENCE_THRESHOLD" split_words:"true" default:"0.35"`
	DefaultAgent        string        `envconfig:"DEFAULT_AGENT" split_words:"true"`
	RequestTimeout      time.Duration `envconfig:"REQUEST_TIMEOUT" split_words:"true" default:"60s"`
	ToolTimeout         time.Duration `envconfig:"TOOL_TIMEOUT" split_words:"true" default:"15s"`

	// Inference provider. Provider is "openai" (Mistral-compatible via
	// BaseURL) or "anthropic".
	Provider       string  `envconfig:"PROVIDER" split_words:"true" default:"openai"`
	Model          string  `envconfig:"MODEL" split_words:"true"`
	EmbeddingModel string  `envconfig:"EMBEDDING_MODEL" split_words:"true"`
	BaseURL        string  `envconfig:"BASE_URL" split_words:"true"`
	APIKey         string  `envconfig:"API_KEY" split_words:"true"`
	Temperature    float64 `envconfig:"TEMPERATURE" split_words:"true" default:"0.2"`

	// Memory driver is "memory" or "redis".
	MemoryDriver  string `envconfig:"MEMORY_DRIVER" split_words:"true" default:"memory"`
	RedisAddr     string `envconfig:"REDIS_ADDR" split_words:"true" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" split_words:"true"`
	RedisDB       int    `envconfig:"REDIS_DB" split_words:"true" default:"0"`

	// ToolAllowlist maps agent identifiers to semicolon-separated tool
	// names, e.g. COLLAB_TOOL_ALLOWLIST="infra:restart_service;scale_up,docs:publish".
	ToolAllowlist string `envconfig:"TOOL_ALLOWLIST" split_words:"true"`

	LogDebug  bool `envconfig:"LOG_DEBUG" split_words:"true" default:"false"`
	LogPretty bool `envconfig:"LOG_PRETTY" split_words:"true" default:"false"`
}

// Validate checks cross-field constraints the envconfig tags cannot express.
func (c Config) Validate() error {
	switch c.MemoryDriver {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: unknown memory driver %q", c.MemoryDriver)
	}
	switch c.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("config: unknown provider %q", c.Provider)
	}
	if c.MaxReroutes < 0 || c.MaxToolRoundtrips < 0 || c.TopKContext < 0 {
		return fmt.Errorf("config: pipeline bounds must be non-negative")
	}
	return nil
}

// Allowlist parses ToolAllowlist into agent to tool-name grants. Entries
// are comma-separated "agent:tool;tool" pairs; malformed entries are
// skipped.
func (c Config) Allowlist() map[string][]string {
	grants := make(map[string][]string)
	for _, entry := range strings.Split(c.ToolAllowlist, ",") {
		agentID, toolList, ok := strings.Cut(strings.TrimSpace(entry), ":")
		if !ok || agentID == "" {
			continue
		}
		for _, name := range strings.Split(toolList, ";") {
			if name = strings.TrimSpace(name); name != "" {
				grants[agentID] = append(grants[agentID], name)
			}
		}
	}
	return grants
}
