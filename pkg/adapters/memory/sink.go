package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/conduit/pkg/domain"
	"github.com/google/uuid"
)

// Sink implements ports.KnowledgeSink in memory.
type Sink struct {
	mu      sync.RWMutex
	sources map[string]*domain.KnowledgeSource
	chunks  map[string][]domain.KnowledgeChunk
}

// NewSink creates an empty in-memory knowledge sink.
func NewSink() *Sink {
	return &Sink{
		sources: make(map[string]*domain.KnowledgeSource),
		chunks:  make(map[string][]domain.KnowledgeChunk),
	}
}

// UpsertSource stores the source, replacing one with the same identity.
func (s *Sink) UpsertSource(ctx context.Context, source domain.KnowledgeSource) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, existing := range s.sources {
		if sameSource(existing, &source) {
			source.ID = id
			break
		}
	}
	if source.ID == "" {
		source.ID = uuid.NewString()
	}
	source.ChunkCount = 0
	source.UpdatedAt = time.Now()
	s.sources[source.ID] = &source
	s.chunks[source.ID] = nil
	return source.ID, nil
}

// CreateChunk appends a chunk to its source.
func (s *Sink) CreateChunk(ctx context.Context, chunk domain.KnowledgeChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.sources[chunk.SourceID]
	if !ok {
		return domain.ErrSourceNotFound
	}
	s.chunks[chunk.SourceID] = append(s.chunks[chunk.SourceID], chunk)
	src.ChunkCount++
	return nil
}

// ListChunks returns the chunks of a source ordered by index.
func (s *Sink) ListChunks(ctx context.Context, sourceID string) ([]domain.KnowledgeChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.sources[sourceID]; !ok {
		return nil, domain.ErrSourceNotFound
	}
	out := append([]domain.KnowledgeChunk(nil), s.chunks[sourceID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

// DeleteSource removes a source and its chunks.
func (s *Sink) DeleteSource(ctx context.Context, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sources, sourceID)
	delete(s.chunks, sourceID)
	return nil
}

// Sources returns a copy of all stored sources.
func (s *Sink) Sources() []domain.KnowledgeSource {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.KnowledgeSource, 0, len(s.sources))
	for _, src := range s.sources {
		out = append(out, *src)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func sameSource(a, b *domain.KnowledgeSource) bool {
	if a.ExternalID != "" || b.ExternalID != "" {
		return a.ExternalID == b.ExternalID
	}
	return a.Name == b.Name
}
