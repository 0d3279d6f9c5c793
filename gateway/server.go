// Package gateway exposes the orchestration pipeline over REST. One
// endpoint submits requests; a health probe supports load balancers and
// container orchestrators.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/amandio-vaz/collab-mistral/core"
	"github.com/amandio-vaz/collab-mistral/history"
	"github.com/amandio-vaz/collab-mistral/logging"
)

// Handler is the subset of the orchestrator the gateway depends on.
type Handler interface {
	Handle(ctx context.Context, req core.Request) (*core.Response, error)
}

// Options configure the gateway server.
type Options struct {
	// RequestTimeout bounds end-to-end request processing. Zero disables
	// the per-request deadline.
	RequestTimeout time.Duration
	// History records handled requests for the /agents/requests listing.
	History *history.InMemoryStore
	// Logger receives request outcomes.
	Logger logging.Logger
}

// Server serves the REST API until its context is canceled.
type Server struct {
	addr    string
	handler Handler
	opts    Options
}

// NewServer constructs a gateway server.
func NewServer(addr string, handler Handler, optFns ...func(o *Options)) *Server {
	opts := Options{
		History: history.NewInMemoryStore(0),
		Logger:  logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Server{addr: addr, handler: handler, opts: opts}
}

// Start runs the HTTP server until ctx is canceled or the listener fails.
// Shutdown drains in-flight requests for up to five seconds.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/agents/run", s.handleRun)
	mux.HandleFunc("/agents/requests", s.handleRequests)
	mux.HandleFunc("/healthz", s.handleHealthz)

	server := &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.opts.Logger.Info("gateway.listening", "addr", s.addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

type runRequest struct {
	RequestText string         `json:"request_text"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type runResponse struct {
	RequestID          string                `json:"request_id"`
	ResponseText       string                `json:"response_text"`
	ContributingAgents []string              `json:"contributing_agents"`
	Trace              *core.InvocationTrace `json:"trace,omitempty"`
}

type errorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body runRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, string(core.KindInvalidRequest), "malformed request body")
		return
	}

	ctx := r.Context()
	if s.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RequestTimeout)
		defer cancel()
	}

	req := core.NewRequest(body.RequestText)
	req.Metadata = body.Metadata

	resp, err := s.handler.Handle(ctx, req)
	if err != nil {
		kind := core.KindOf(err)
		s.opts.Logger.Warn("gateway.request.failed", "request_id", req.ID, "kind", string(kind), "error", err.Error())
		writeError(w, statusFor(kind), string(kind), err.Error())
		return
	}

	s.opts.History.Record(body.RequestText, resp)
	s.opts.Logger.Info("gateway.request.handled", "request_id", req.ID)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(runResponse{
		RequestID:          resp.RequestID,
		ResponseText:       resp.FinalText,
		ContributingAgents: resp.ContributingAgents,
		Trace:              resp.Trace,
	})
}

func (s *Server) handleRequests(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.opts.History.Recent(limit))
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// statusFor maps the pipeline error taxonomy onto HTTP status codes.
func statusFor(kind core.ErrorKind) int {
	switch kind {
	case core.KindInvalidRequest:
		return http.StatusBadRequest
	case core.KindNoCapableAgent:
		return http.StatusUnprocessableEntity
	case core.KindRoutingFailure, core.KindProviderUnavailable:
		return http.StatusBadGateway
	case core.KindCanceled:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Kind: kind, Message: message})
}
