package testutils

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/conduit/internal/knowledge"
	"github.com/aretw0/conduit/internal/runtime"
	"github.com/aretw0/conduit/pkg/adapters/memory"
	"github.com/aretw0/conduit/pkg/domain"
	"github.com/aretw0/conduit/pkg/registry"
	"github.com/aretw0/conduit/pkg/session"
	"github.com/stretchr/testify/require"
)

// StaticResolver resolves connections from a map keyed "type/id".
type StaticResolver map[string]map[string]string

// Resolve implements ports.ConnectionResolver.
func (r StaticResolver) Resolve(_ context.Context, connType, id string) (map[string]string, error) {
	fields, ok := r[connType+"/"+id]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", domain.ErrConnectionNotFound, connType, id)
	}
	return fields, nil
}

// Harness is an executor wired to in-memory adapters.
type Harness struct {
	Executor *runtime.Executor
	Registry *registry.Registry
	Store    *memory.Store
	Sink     *memory.Sink
}

// NewHarness registers exts on a fresh registry and fails the test on error.
// Knowledge connectors run against an in-memory sink with small chunks.
func NewHarness(t *testing.T, conns StaticResolver, exts ...domain.Extension) *Harness {
	t.Helper()

	reg := registry.New()
	for _, ext := range exts {
		require.NoError(t, reg.Register(ext), "failed to register %s", ext.Name)
	}

	pipeline, err := knowledge.NewPipeline(50, 5)
	require.NoError(t, err)

	h := &Harness{Registry: reg, Store: memory.NewStore(), Sink: memory.NewSink()}
	h.Executor = runtime.NewExecutor(reg, session.NewManager(h.Store),
		runtime.WithConnectionResolver(conns),
		runtime.WithIngestor(knowledge.NewIngestor(h.Sink, pipeline)),
	)
	return h
}

// Exec runs one node in a fresh session.
func (h *Harness) Exec(ctx context.Context, extension, node string, cfg map[string]any, text string) (*domain.ExecutionResult, error) {
	return h.Executor.Execute(ctx, runtime.Request{
		Extension: extension,
		Node:      node,
		Config:    cfg,
		Text:      text,
	})
}

// Chunks returns every stored chunk text of the source named name.
func (h *Harness) Chunks(t *testing.T, name string) []string {
	t.Helper()
	for _, src := range h.Sink.Sources() {
		if src.Name != name {
			continue
		}
		chunks, err := h.Sink.ListChunks(context.Background(), src.ID)
		require.NoError(t, err)
		out := make([]string, len(chunks))
		for i, c := range chunks {
			out[i] = c.Text
		}
		return out
	}
	return nil
}
