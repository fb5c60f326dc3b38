package ports

import (
	"context"

	"github.com/aretw0/conduit/pkg/domain"
)

// KnowledgeSink receives the output of knowledge connectors.
type KnowledgeSink interface {
	// UpsertSource creates the source or replaces it when one with the same
	// ExternalID (or Name when ExternalID is empty) exists. Replacing drops the old chunks.
	// It returns the stored source ID.
	UpsertSource(ctx context.Context, source domain.KnowledgeSource) (string, error)

	// CreateChunk appends a chunk to an existing source.
	// Returns domain.ErrSourceNotFound when the source does not exist.
	CreateChunk(ctx context.Context, chunk domain.KnowledgeChunk) error

	// ListChunks returns the chunks of a source ordered by index.
	ListChunks(ctx context.Context, sourceID string) ([]domain.KnowledgeChunk, error)

	// DeleteSource removes a source and its chunks.
	DeleteSource(ctx context.Context, sourceID string) error
}
