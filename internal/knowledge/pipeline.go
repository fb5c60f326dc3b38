package knowledge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/conduit/internal/logging"
	"github.com/aretw0/conduit/pkg/domain"
	"github.com/aretw0/conduit/pkg/ports"
	"github.com/google/uuid"
)

// Pipeline loads, cleans and splits documents.
type Pipeline struct {
	Splitter Splitter
}

// NewPipeline creates a pipeline with a validated splitter.
func NewPipeline(size, overlap int) (*Pipeline, error) {
	s, err := NewSplitter(size, overlap)
	if err != nil {
		return nil, err
	}
	return &Pipeline{Splitter: s}, nil
}

// Process turns one document into chunk records. Chunks are not yet bound to a source,
// so Index and the chunkIndex/chunkCount metadata count within the document.
func (p *Pipeline) Process(ctx context.Context, doc domain.Document) ([]domain.KnowledgeChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ct := doc.ContentType
	if ct == "" {
		ct = DetectContentType(doc.Name, doc.Data)
	}
	text, err := Load(ct, doc.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", doc.Name, err)
	}

	parts, err := p.Splitter.Split(Clean(text))
	if err != nil {
		return nil, err
	}

	chunks := make([]domain.KnowledgeChunk, len(parts))
	for i, part := range parts {
		data := make(map[string]any, len(doc.Metadata)+4)
		for k, v := range doc.Metadata {
			data[k] = v
		}
		data["source"] = doc.Name
		data["contentType"] = normalizeType(ct)
		data["chunkIndex"] = i
		data["chunkCount"] = len(parts)

		chunks[i] = domain.KnowledgeChunk{
			ID:    uuid.NewString(),
			Index: i,
			Text:  part,
			Data:  data,
		}
	}
	return chunks, nil
}

// Ingestor persists processed documents into a sink. It implements domain.Ingestor.
type Ingestor struct {
	sink     ports.KnowledgeSink
	pipeline *Pipeline
	logger   *slog.Logger
}

// IngestorOption configures an Ingestor.
type IngestorOption func(*Ingestor)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) IngestorOption {
	return func(i *Ingestor) {
		i.logger = logger
	}
}

// NewIngestor creates an ingestor writing to sink.
func NewIngestor(sink ports.KnowledgeSink, pipeline *Pipeline, opts ...IngestorOption) *Ingestor {
	i := &Ingestor{sink: sink, pipeline: pipeline, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Ingest processes docs and stores their chunks under source. Documents that fail to
// load are skipped and logged. The source is only written when at least one document
// produced chunks, and replaces any earlier source with the same identity.
func (i *Ingestor) Ingest(ctx context.Context, source domain.KnowledgeSource, docs []domain.Document) (domain.IngestReport, error) {
	var (
		report domain.IngestReport
		chunks []domain.KnowledgeChunk
	)
	for _, doc := range docs {
		out, err := i.pipeline.Process(ctx, doc)
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			i.logger.Warn("skipping document", "source", source.Name, "document", doc.Name, "err", err)
			report.Skipped = append(report.Skipped, doc.Name)
			continue
		}
		chunks = append(chunks, out...)
	}
	if len(chunks) == 0 {
		return report, nil
	}

	id, err := i.sink.UpsertSource(ctx, source)
	if err != nil {
		return report, fmt.Errorf("failed to upsert source %s: %w", source.Name, err)
	}
	report.Sources = 1

	// Index, chunkIndex and chunkCount count chunks across the whole source. The
	// position inside the originating document moves to documentChunk*.
	for idx, c := range chunks {
		c.SourceID = id
		c.Index = idx
		data := make(map[string]any, len(c.Data)+2)
		for k, v := range c.Data {
			data[k] = v
		}
		data["documentChunkIndex"] = c.Data["chunkIndex"]
		data["documentChunkCount"] = c.Data["chunkCount"]
		data["chunkIndex"] = idx
		data["chunkCount"] = len(chunks)
		c.Data = data
		if err := i.sink.CreateChunk(ctx, c); err != nil {
			return report, fmt.Errorf("failed to store chunk %d of %s: %w", idx, source.Name, err)
		}
		report.Chunks++
	}
	i.logger.Debug("ingested source", "source", source.Name, "id", id, "chunks", report.Chunks)
	return report, nil
}
