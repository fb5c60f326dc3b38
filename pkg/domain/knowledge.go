package domain

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// KnowledgeSource is a named collection of chunks produced from one origin.
type KnowledgeSource struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	ExternalID  string         `json:"external_id,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	ChunkCount  int            `json:"chunk_count"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// KnowledgeChunk is one piece of split document text.
type KnowledgeChunk struct {
	ID       string         `json:"id"`
	SourceID string         `json:"source_id"`
	Index    int            `json:"index"`
	Text     string         `json:"text"`
	Data     map[string]any `json:"data,omitempty"`
}

// Document is raw content handed to the chunking pipeline.
type Document struct {
	Name        string         `json:"name"`
	ContentType string         `json:"content_type,omitempty"`
	Data        []byte         `json:"-"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// IngestReport summarises a connector run.
type IngestReport struct {
	Sources int      `json:"sources"`
	Chunks  int      `json:"chunks"`
	Skipped []string `json:"skipped,omitempty"`
}

// Ingestor turns documents into chunks of a source and persists them.
type Ingestor interface {
	Ingest(ctx context.Context, source KnowledgeSource, docs []Document) (IngestReport, error)
}

// ConnectorRun is the handle a knowledge connector receives.
// Ingest and Skip may be called from several goroutines.
type ConnectorRun struct {
	Extension  string
	Connector  string
	Config     map[string]any
	Connection map[string]string
	Logger     *slog.Logger

	Ingestor Ingestor

	mu     sync.Mutex
	report IngestReport
}

// Ingest forwards docs to the ingestor and accumulates the report.
func (r *ConnectorRun) Ingest(ctx context.Context, source KnowledgeSource, docs []Document) error {
	rep, err := r.Ingestor.Ingest(ctx, source, docs)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.report.Sources += rep.Sources
	r.report.Chunks += rep.Chunks
	r.report.Skipped = append(r.report.Skipped, rep.Skipped...)
	return err
}

// Skip records an item that could not be fetched and keeps going.
func (r *ConnectorRun) Skip(name string, err error) {
	if r.Logger != nil {
		r.Logger.Warn("skipping knowledge item", "item", name, "err", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.report.Skipped = append(r.report.Skipped, name)
}

// Report returns the accumulated ingest report.
func (r *ConnectorRun) Report() IngestReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	rep := r.report
	rep.Skipped = append([]string(nil), r.report.Skipped...)
	return rep
}
