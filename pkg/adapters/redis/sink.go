package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aretw0/conduit/pkg/domain"
	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
)

// Sink implements ports.KnowledgeSink using Redis.
//
// Layout:
//
//	<prefix>source:<id>  JSON source record
//	<prefix>chunks:<id>  list of JSON chunk records
//	<prefix>identity     hash of source identity -> id
type Sink struct {
	client *backend.Client
	prefix string
}

// NewSink creates a knowledge sink on an existing client.
func NewSink(client *backend.Client, prefix string) *Sink {
	if prefix == "" {
		prefix = "conduit:knowledge:"
	}
	return &Sink{client: client, prefix: prefix}
}

func (s *Sink) sourceKey(id string) string { return s.prefix + "source:" + id }
func (s *Sink) chunksKey(id string) string { return s.prefix + "chunks:" + id }
func (s *Sink) identityKey() string        { return s.prefix + "identity" }

func identity(src domain.KnowledgeSource) string {
	if src.ExternalID != "" {
		return "ext:" + src.ExternalID
	}
	return "name:" + src.Name
}

// UpsertSource stores the source and clears previous chunks of the same identity.
func (s *Sink) UpsertSource(ctx context.Context, source domain.KnowledgeSource) (string, error) {
	ident := identity(source)
	id, err := s.client.HGet(ctx, s.identityKey(), ident).Result()
	if err != nil && !errors.Is(err, backend.Nil) {
		return "", fmt.Errorf("failed to look up source: %w", err)
	}
	if id == "" {
		id = uuid.NewString()
	}

	source.ID = id
	source.ChunkCount = 0
	source.UpdatedAt = time.Now()
	data, err := json.Marshal(source)
	if err != nil {
		return "", fmt.Errorf("failed to marshal source: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.sourceKey(id), data, 0)
	pipe.Del(ctx, s.chunksKey(id))
	pipe.HSet(ctx, s.identityKey(), ident, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to save source: %w", err)
	}
	return id, nil
}

// CreateChunk appends a chunk to the source's list.
func (s *Sink) CreateChunk(ctx context.Context, chunk domain.KnowledgeChunk) error {
	n, err := s.client.Exists(ctx, s.sourceKey(chunk.SourceID)).Result()
	if err != nil {
		return fmt.Errorf("failed to check source: %w", err)
	}
	if n == 0 {
		return domain.ErrSourceNotFound
	}

	data, err := json.Marshal(chunk)
	if err != nil {
		return fmt.Errorf("failed to marshal chunk: %w", err)
	}
	if err := s.client.RPush(ctx, s.chunksKey(chunk.SourceID), data).Err(); err != nil {
		return fmt.Errorf("failed to push chunk: %w", err)
	}
	return nil
}

// ListChunks returns the chunks of a source ordered by index.
func (s *Sink) ListChunks(ctx context.Context, sourceID string) ([]domain.KnowledgeChunk, error) {
	n, err := s.client.Exists(ctx, s.sourceKey(sourceID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to check source: %w", err)
	}
	if n == 0 {
		return nil, domain.ErrSourceNotFound
	}

	raw, err := s.client.LRange(ctx, s.chunksKey(sourceID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read chunks: %w", err)
	}
	chunks := make([]domain.KnowledgeChunk, 0, len(raw))
	for _, r := range raw {
		var c domain.KnowledgeChunk
		if err := json.Unmarshal([]byte(r), &c); err != nil {
			return nil, fmt.Errorf("failed to unmarshal chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].Index < chunks[j].Index })
	return chunks, nil
}

// DeleteSource removes a source, its chunks and its identity entry.
func (s *Sink) DeleteSource(ctx context.Context, sourceID string) error {
	val, err := s.client.Get(ctx, s.sourceKey(sourceID)).Result()
	if errors.Is(err, backend.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read source: %w", err)
	}

	var src domain.KnowledgeSource
	if err := json.Unmarshal([]byte(val), &src); err != nil {
		return fmt.Errorf("failed to unmarshal source: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.sourceKey(sourceID), s.chunksKey(sourceID))
	pipe.HDel(ctx, s.identityKey(), identity(src))
	_, err = pipe.Exec(ctx)
	return err
}

// Sources returns all stored sources ordered by name.
func (s *Sink) Sources(ctx context.Context) ([]domain.KnowledgeSource, error) {
	ids, err := s.client.HVals(ctx, s.identityKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	out := make([]domain.KnowledgeSource, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.sourceKey(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read sources: %w", err)
	}
	for _, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var src domain.KnowledgeSource
		if err := json.Unmarshal([]byte(raw), &src); err != nil {
			return nil, fmt.Errorf("failed to unmarshal source: %w", err)
		}
		out = append(out, src)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
