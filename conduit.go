package conduit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/conduit/internal/knowledge"
	"github.com/aretw0/conduit/internal/logging"
	"github.com/aretw0/conduit/internal/nlu"
	"github.com/aretw0/conduit/internal/runtime"
	"github.com/aretw0/conduit/pkg/adapters/memory"
	"github.com/aretw0/conduit/pkg/domain"
	"github.com/aretw0/conduit/pkg/ports"
	"github.com/aretw0/conduit/pkg/registry"
	"github.com/aretw0/conduit/pkg/session"
)

// Re-exported request types so hosts only import the root package.
type (
	Request          = runtime.Request
	ConnectorRequest = runtime.ConnectorRequest
	ConnectorSummary = runtime.ConnectorSummary
	NodeError        = runtime.NodeError
)

// Host is the high-level entry point: a registry of extensions, a session manager and
// an executor wired to the configured stores.
type Host struct {
	registry *registry.Registry
	sessions *session.Manager
	executor *runtime.Executor

	store    ports.SessionStore
	locker   ports.DistributedLocker
	sink     ports.KnowledgeSink
	resolver ports.ConnectionResolver
	hooks    domain.LifecycleHooks
	logger   *slog.Logger

	extensions   []domain.Extension
	chunkSize    int
	chunkOverlap int
	nodeTimeout  time.Duration
}

// Option defines a functional option for configuring the Host.
type Option func(*Host)

// WithStore sets the session store (default: in-memory).
func WithStore(store ports.SessionStore) Option {
	return func(h *Host) {
		h.store = store
	}
}

// WithLocker serialises session access across replicas.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(h *Host) {
		h.locker = locker
	}
}

// WithKnowledgeSink sets where connectors write chunks (default: in-memory).
func WithKnowledgeSink(sink ports.KnowledgeSink) Option {
	return func(h *Host) {
		h.sink = sink
	}
}

// WithConnectionResolver sets how connection ids are turned into credentials.
func WithConnectionResolver(r ports.ConnectionResolver) Option {
	return func(h *Host) {
		h.resolver = r
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(h *Host) {
		h.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the host.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Host) {
		h.logger = logger
	}
}

// WithExtensions registers extensions when the host is created.
func WithExtensions(exts ...domain.Extension) Option {
	return func(h *Host) {
		h.extensions = append(h.extensions, exts...)
	}
}

// WithChunking sets the chunk size and overlap, in tokens, used for knowledge ingestion.
func WithChunking(size, overlap int) Option {
	return func(h *Host) {
		h.chunkSize = size
		h.chunkOverlap = overlap
	}
}

// WithNodeTimeout bounds a single node function call.
func WithNodeTimeout(d time.Duration) Option {
	return func(h *Host) {
		h.nodeTimeout = d
	}
}

// New initializes a Host. Without options it keeps everything in memory.
func New(opts ...Option) (*Host, error) {
	h := &Host{
		chunkSize:    knowledge.DefaultChunkSize,
		chunkOverlap: knowledge.DefaultChunkOverlap,
		nodeTimeout:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logging.NewNop()
	}
	if h.store == nil {
		h.store = memory.NewStore()
	}
	if h.sink == nil {
		h.sink = memory.NewSink()
	}

	pipeline, err := knowledge.NewPipeline(h.chunkSize, h.chunkOverlap)
	if err != nil {
		return nil, err
	}

	h.registry = registry.New()
	for _, ext := range h.extensions {
		if err := h.registry.Register(ext); err != nil {
			return nil, fmt.Errorf("failed to register extension %q: %w", ext.Name, err)
		}
	}

	sessOpts := []session.Option{session.WithLogger(h.logger)}
	if h.locker != nil {
		sessOpts = append(sessOpts, session.WithLocker(h.locker))
	}
	h.sessions = session.NewManager(h.store, sessOpts...)

	execOpts := []runtime.ExecutorOption{
		runtime.WithLifecycleHooks(h.hooks),
		runtime.WithLogger(h.logger),
		runtime.WithNodeTimeout(h.nodeTimeout),
		runtime.WithIngestor(knowledge.NewIngestor(h.sink, pipeline, knowledge.WithLogger(h.logger))),
	}
	if h.resolver != nil {
		execOpts = append(execOpts, runtime.WithConnectionResolver(h.resolver))
	}
	h.executor = runtime.NewExecutor(h.registry, h.sessions, execOpts...)
	return h, nil
}

// Register adds an extension after creation.
func (h *Host) Register(ext domain.Extension) error {
	return h.registry.Register(ext)
}

// Execute runs one node in a session. A failing node returns both the result and a
// *NodeError.
func (h *Host) Execute(ctx context.Context, req Request) (*domain.ExecutionResult, error) {
	return h.executor.Execute(ctx, req)
}

// RunConnector runs a knowledge connector into the knowledge sink.
func (h *Host) RunConnector(ctx context.Context, req ConnectorRequest) (*ConnectorSummary, error) {
	return h.executor.RunConnector(ctx, req)
}

// Catalogue returns the registered extensions ordered by name.
func (h *Host) Catalogue() []domain.Extension {
	return h.registry.Catalogue()
}

// Registry returns the extension registry.
func (h *Host) Registry() *registry.Registry {
	return h.registry
}

// Session loads a session. Returns domain.ErrSessionNotFound when it does not exist.
func (h *Host) Session(ctx context.Context, id string) (*domain.Session, error) {
	return h.sessions.Load(ctx, id)
}

// DeleteSession removes a session.
func (h *Host) DeleteSession(ctx context.Context, id string) error {
	return h.sessions.Delete(ctx, id)
}

// Sessions lists active session ids.
func (h *Host) Sessions(ctx context.Context) ([]string, error) {
	return h.sessions.List(ctx)
}

// Sink returns the knowledge sink connectors write to.
func (h *Host) Sink() ports.KnowledgeSink {
	return h.sink
}

// ChunkRequest asks for text to be split outside of a flow.
// Zero sizes fall back to the host chunking settings.
type ChunkRequest struct {
	Text         string `json:"text"`
	ContentType  string `json:"contentType,omitempty"`
	ChunkSize    int    `json:"chunkSize,omitempty"`
	ChunkOverlap int    `json:"chunkOverlap,omitempty"`
}

// Chunk cleans and splits text with the knowledge pipeline.
func (h *Host) Chunk(ctx context.Context, req ChunkRequest) ([]string, error) {
	size, overlap := req.ChunkSize, req.ChunkOverlap
	if size == 0 {
		size, overlap = h.chunkSize, h.chunkOverlap
		if overlap >= size {
			overlap = 0
		}
	}
	pipeline, err := knowledge.NewPipeline(size, overlap)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
	}
	ct := req.ContentType
	if ct == "" {
		ct = knowledge.TypeText
	}
	chunks, err := pipeline.Process(ctx, domain.Document{Name: "input", ContentType: ct, Data: []byte(req.Text)})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
	}
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out, nil
}

// MatchRequest asks for patterns to be matched outside of a flow.
type MatchRequest struct {
	Text          string              `json:"text"`
	Patterns      []string            `json:"patterns"`
	Slots         map[string][]string `json:"slots,omitempty"`
	CaseSensitive bool                `json:"caseSensitive,omitempty"`
}

// MatchResult lists the matches and the patterns that could not match.
type MatchResult struct {
	Matches []nlu.Match `json:"matches"`
	Skipped []string    `json:"skipped,omitempty"`
}

// Match runs the pattern matcher.
func (h *Host) Match(req MatchRequest) (*MatchResult, error) {
	m, err := nlu.Compile(req.Patterns, req.Slots, nlu.Options{CaseSensitive: req.CaseSensitive})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
	}
	matches := m.Match(req.Text)
	if matches == nil {
		matches = []nlu.Match{}
	}
	return &MatchResult{Matches: matches, Skipped: m.Skipped}, nil
}
