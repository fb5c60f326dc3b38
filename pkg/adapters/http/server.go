package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aretw0/conduit"
	"github.com/aretw0/conduit/internal/logging"
	"github.com/aretw0/conduit/pkg/domain"
	"github.com/aretw0/conduit/pkg/schema"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Host is the part of conduit.Host the HTTP surface needs.
type Host interface {
	Execute(ctx context.Context, req conduit.Request) (*domain.ExecutionResult, error)
	RunConnector(ctx context.Context, req conduit.ConnectorRequest) (*conduit.ConnectorSummary, error)
	Catalogue() []domain.Extension
	Session(ctx context.Context, id string) (*domain.Session, error)
	DeleteSession(ctx context.Context, id string) error
	Sessions(ctx context.Context) ([]string, error)
	Chunk(ctx context.Context, req conduit.ChunkRequest) ([]string, error)
	Match(req conduit.MatchRequest) (*conduit.MatchResult, error)
}

// Server serves the host over HTTP.
type Server struct {
	Host    Host
	Streams *StreamManager

	sanitizer    Sanitizer
	maxBodyBytes int64
	metrics      http.Handler
	logger       *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithMaxInputSize limits the user text of an execute request, in bytes.
func WithMaxInputSize(n int) Option {
	return func(s *Server) {
		s.sanitizer.MaxSize = n
	}
}

// WithMaxBodyBytes limits request bodies (default 1MB).
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		s.maxBodyBytes = n
	}
}

// WithMetrics mounts a metrics handler at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates the HTTP handler for host.
func NewHandler(host Host, opts ...Option) http.Handler {
	s := &Server{
		Host:         host,
		Streams:      NewStreamManager(),
		maxBodyBytes: 1 << 20,
		logger:       logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams.logger = s.logger

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/extensions", s.ListExtensions)

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.ListSessions)
		r.Get("/{id}", s.GetSession)
		r.Delete("/{id}", s.DeleteSession)
		r.Post("/{id}/execute", s.Execute)
		r.Get("/{id}/events", s.SubscribeEvents)
	})

	r.Post("/nlu/match", s.Match)
	r.Post("/knowledge/chunk", s.Chunk)
	r.Post("/knowledge/{extension}/{connector}/run", s.RunConnector)

	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ExecuteRequest is the body of POST /sessions/{id}/execute.
type ExecuteRequest struct {
	Extension string         `json:"extension"`
	Node      string         `json:"node"`
	Config    map[string]any `json:"config"`
	Text      string         `json:"text"`
	Data      any            `json:"data,omitempty"`
}

// ConnectorRunRequest is the body of POST /knowledge/{extension}/{connector}/run.
type ConnectorRunRequest struct {
	Config map[string]any `json:"config"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"app":        "conduit-http",
		"version":    conduit.Version,
		"extensions": len(s.Host.Catalogue()),
	})
}

// ListExtensions handles GET /extensions.
func (s *Server) ListExtensions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Host.Catalogue())
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Host.Sessions(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"sessions": ids})
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Host.Session(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sess)
}

// DeleteSession handles DELETE /sessions/{id}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Host.DeleteSession(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Execute handles POST /sessions/{id}/execute. A failing node answers 502 with the
// execution result as body.
func (s *Server) Execute(w http.ResponseWriter, r *http.Request) {
	var body ExecuteRequest
	if !s.decode(w, r, &body) {
		return
	}
	text, err := s.sanitizer.Clean(body.Text)
	if err != nil {
		s.logger.Warn("execute: input rejected", "err", err, "size", len(body.Text))
		s.writeError(w, r, err)
		return
	}

	sessionID := chi.URLParam(r, "id")
	res, err := s.Host.Execute(r.Context(), conduit.Request{
		SessionID: sessionID,
		Extension: body.Extension,
		Node:      body.Node,
		Config:    body.Config,
		Text:      text,
		Data:      body.Data,
	})
	var nodeErr *conduit.NodeError
	switch {
	case errors.As(err, &nodeErr) && res != nil && !errors.Is(err, domain.ErrInvalidConfig):
		s.Streams.Publish(sessionID, res)
		s.writeJSON(w, http.StatusBadGateway, res)
	case err != nil:
		s.writeError(w, r, err)
	default:
		s.Streams.Publish(sessionID, res)
		s.writeJSON(w, http.StatusOK, res)
	}
}

// Match handles POST /nlu/match.
func (s *Server) Match(w http.ResponseWriter, r *http.Request) {
	var body conduit.MatchRequest
	if !s.decode(w, r, &body) {
		return
	}
	res, err := s.Host.Match(body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

// Chunk handles POST /knowledge/chunk.
func (s *Server) Chunk(w http.ResponseWriter, r *http.Request) {
	var body conduit.ChunkRequest
	if !s.decode(w, r, &body) {
		return
	}
	chunks, err := s.Host.Chunk(r.Context(), body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"chunks": chunks})
}

// RunConnector handles POST /knowledge/{extension}/{connector}/run.
func (s *Server) RunConnector(w http.ResponseWriter, r *http.Request) {
	var body ConnectorRunRequest
	if !s.decode(w, r, &body) {
		return
	}
	sum, err := s.Host.RunConnector(r.Context(), conduit.ConnectorRequest{
		Extension: chi.URLParam(r, "extension"),
		Connector: chi.URLParam(r, "connector"),
		Config:    body.Config,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sum)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, out any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: "request body too large"})
			return false
		}
		s.logger.Warn("invalid request body", "path", r.URL.Path, "err", err)
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

// StatusFor maps host errors to HTTP status codes.
func StatusFor(err error) int {
	var agg *schema.AggregateError
	var nodeErr *conduit.NodeError
	switch {
	case errors.Is(err, domain.ErrExtensionNotFound),
		errors.Is(err, domain.ErrNodeNotFound),
		errors.Is(err, domain.ErrConnectorNotFound),
		errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInputTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrInvalidConfig),
		errors.Is(err, domain.ErrConnectionNotFound),
		errors.Is(err, ErrInvalidUTF8),
		errors.As(err, &agg):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &nodeErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	resp := ErrorResponse{Error: err.Error()}
	if fieldErrs := schema.ValidationErrors(err); len(fieldErrs) > 0 {
		resp.Error = "invalid node configuration"
		for _, e := range fieldErrs {
			resp.Details = append(resp.Details, e.Error())
		}
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "status", status, "err", err)
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}
