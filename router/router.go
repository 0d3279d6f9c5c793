// Package router ranks registered agents for an incoming request. The
// primary signal is lexical overlap between the request text and each
// agent's accepted intent tags; an optional model-backed classifier
// refines the ranking when the lexical signal is weak.
package router

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/amandio-vaz/collab-mistral/agent"
	"github.com/amandio-vaz/collab-mistral/core"
	"github.com/amandio-vaz/collab-mistral/logging"
	"github.com/amandio-vaz/collab-mistral/model"
)

// Options configure a Router.
type Options struct {
	// ConfidenceThreshold is the minimum lexical score of the top candidate
	// below which the router consults the classifier or falls back to the
	// default agent.
	ConfidenceThreshold float64
	// DefaultAgent is promoted to the front of the ranking when no candidate
	// clears the threshold. Empty disables the fallback.
	DefaultAgent string
	// Classifier, when set, is asked to rank candidates for low-confidence
	// requests. Classifier failures degrade to the lexical ranking.
	Classifier model.Client
	// Logger receives routing decisions.
	Logger logging.Logger
}

// WithConfidenceThreshold overrides the low-confidence cutoff.
func WithConfidenceThreshold(threshold float64) func(o *Options) {
	return func(o *Options) {
		o.ConfidenceThreshold = threshold
	}
}

// WithDefaultAgent sets the fallback agent for low-confidence requests.
func WithDefaultAgent(identifier string) func(o *Options) {
	return func(o *Options) {
		o.DefaultAgent = identifier
	}
}

// WithClassifier sets the model used to rank low-confidence requests.
func WithClassifier(client model.Client) func(o *Options) {
	return func(o *Options) {
		o.Classifier = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) func(o *Options) {
	return func(o *Options) {
		o.Logger = logger
	}
}

// Router produces a ranked candidate list over the agent registry.
//
// Ranking is deterministic: for a fixed registry and request text the same
// ordering always comes back, with registration order breaking score ties.
type Router struct {
	registry *agent.Registry
	opts     Options
}

// New creates a Router over the given registry.
func New(registry *agent.Registry, optFns ...func(o *Options)) *Router {
	opts := Options{
		ConfidenceThreshold: 0.35,
		Logger:              logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Router{registry: registry, opts: opts}
}

type candidate struct {
	identifier string
	score      float64
}

// Classify returns agent identifiers ordered from best to worst match for
// the request. Every registered agent appears exactly once; the caller
// walks the list applying its reroute budget.
func (r *Router) Classify(ctx context.Context, req core.Request) ([]string, error) {
	descs := r.registry.Descriptors()
	if len(descs) == 0 {
		return nil, fmt.Errorf("router: no agents registered")
	}

	tokens := tokenSet(req.Text)
	candidates := make([]candidate, 0, len(descs))
	for _, d := range descs {
		candidates = append(candidates, candidate{
			identifier: d.Identifier,
			score:      intentScore(tokens, d.AcceptedIntents),
		})
	}
	// Stable keeps registration order for equal scores.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	ranked := make([]string, 0, len(candidates))
	for _, c := range candidates {
		ranked = append(ranked, c.identifier)
	}

	top := candidates[0]
	if top.score >= r.opts.ConfidenceThreshold {
		r.opts.Logger.Debug("router.ranked", "request_id", req.ID, "top", top.identifier, "score", top.score)
		return ranked, nil
	}

	if r.opts.Classifier != nil {
		if refined, err := r.classify(ctx, req, descs); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.opts.Logger.Warn("router.classifier.failed", "request_id", req.ID, "error", err.Error())
		} else {
			r.opts.Logger.Debug("router.classified", "request_id", req.ID, "top", refined[0])
			return refined, nil
		}
	}

	if r.opts.DefaultAgent != "" {
		ranked = promote(ranked, r.opts.DefaultAgent)
		r.opts.Logger.Debug("router.default_fallback", "request_id", req.ID, "agent", r.opts.DefaultAgent)
	}
	return ranked, nil
}

// classify asks the model to order the candidates. The reply is one
// identifier per line; identifiers the model omits or invents are
// reconciled against the registry so the result is always a permutation
// of the registered agents.
func (r *Router) classify(ctx context.Context, req core.Request, descs []core.Descriptor) ([]string, error) {
	var b strings.Builder
	b.WriteString("Rank the following specialists from best to worst fit for the user request. ")
	b.WriteString("Reply with one identifier per line and nothing else.\n\nSpecialists:\n")
	for _, d := range descs {
		fmt.Fprintf(&b, "- %s: %s (intents: %s)\n", d.Identifier, d.Capability, strings.Join(d.AcceptedIntents, ", "))
	}

	resp, err := r.opts.Classifier.Complete(ctx, model.Request{
		Instructions: b.String(),
		Messages:     []model.Message{{Role: "user", Text: req.Text}},
	})
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(descs))
	for _, d := range descs {
		known[d.Identifier] = true
	}

	seen := make(map[string]bool, len(descs))
	ranked := make([]string, 0, len(descs))
	for _, line := range strings.Split(resp.Text, "\n") {
		id := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "-"))
		if known[id] && !seen[id] {
			seen[id] = true
			ranked = append(ranked, id)
		}
	}
	if len(ranked) == 0 {
		return nil, fmt.Errorf("router: classifier returned no known identifiers")
	}
	// Append whatever the model skipped, in registration order.
	for _, d := range descs {
		if !seen[d.Identifier] {
			ranked = append(ranked, d.Identifier)
		}
	}
	return ranked, nil
}

// intentScore is the fraction of an agent's intent tags present in the
// request. Multi-word tags match when all their words appear.
func intentScore(tokens map[string]bool, intents []string) float64 {
	if len(intents) == 0 {
		return 0
	}
	matched := 0
	for _, intent := range intents {
		words := model.Tokenize(intent)
		if len(words) == 0 {
			continue
		}
		all := true
		for _, w := range words {
			if !tokens[w] {
				all = false
				break
			}
		}
		if all {
			matched++
		}
	}
	return float64(matched) / float64(len(intents))
}

func tokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range model.Tokenize(text) {
		set[t] = true
	}
	return set
}

func promote(ranked []string, identifier string) []string {
	for i, id := range ranked {
		if id == identifier {
			out := make([]string, 0, len(ranked))
			out = append(out, identifier)
			out = append(out, ranked[:i]...)
			out = append(out, ranked[i+1:]...)
			return out
		}
	}
	return ranked
}
