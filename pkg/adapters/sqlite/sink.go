// Package sqlite stores knowledge sources and chunks in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/conduit/pkg/domain"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sources (
	id TEXT PRIMARY KEY,
	identity TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	tags TEXT NOT NULL DEFAULT '[]',
	external_id TEXT NOT NULL DEFAULT '',
	metadata TEXT NOT NULL DEFAULT '{}',
	chunk_count INTEGER NOT NULL DEFAULT 0,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS chunks (
	id TEXT PRIMARY KEY,
	source_id TEXT NOT NULL,
	idx INTEGER NOT NULL,
	text TEXT NOT NULL,
	data TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks (source_id, idx);
`

// Sink implements ports.KnowledgeSink on a SQLite database.
type Sink struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
// ":memory:" gives a private in-memory database.
func Open(path string) (*Sink, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps writes serialised and in-memory databases shared.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Sink{db: db}, nil
}

// Close closes the database.
func (s *Sink) Close() error {
	return s.db.Close()
}

func identity(src domain.KnowledgeSource) string {
	if src.ExternalID != "" {
		return "ext:" + src.ExternalID
	}
	return "name:" + src.Name
}

// UpsertSource stores the source and drops the chunks of an earlier source with the
// same identity.
func (s *Sink) UpsertSource(ctx context.Context, source domain.KnowledgeSource) (string, error) {
	tags, err := json.Marshal(source.Tags)
	if err != nil {
		return "", fmt.Errorf("failed to marshal tags: %w", err)
	}
	meta, err := json.Marshal(source.Metadata)
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	ident := identity(source)
	var id string
	err = tx.QueryRowContext(ctx, `SELECT id FROM sources WHERE identity = ?`, ident).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		id = uuid.NewString()
	case err != nil:
		return "", fmt.Errorf("failed to look up source: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE source_id = ?`, id); err != nil {
		return "", fmt.Errorf("failed to clear chunks: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO sources (id, identity, name, description, tags, external_id, metadata, chunk_count, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			tags = excluded.tags,
			external_id = excluded.external_id,
			metadata = excluded.metadata,
			chunk_count = 0,
			updated_at = excluded.updated_at`,
		id, ident, source.Name, source.Description, string(tags), source.ExternalID, string(meta),
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", fmt.Errorf("failed to save source: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit source: %w", err)
	}
	return id, nil
}

// CreateChunk appends a chunk to an existing source.
func (s *Sink) CreateChunk(ctx context.Context, chunk domain.KnowledgeChunk) error {
	data, err := json.Marshal(chunk.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal chunk data: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `UPDATE sources SET chunk_count = chunk_count + 1 WHERE id = ?`, chunk.SourceID)
	if err != nil {
		return fmt.Errorf("failed to check source: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrSourceNotFound
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO chunks (id, source_id, idx, text, data) VALUES (?, ?, ?, ?, ?)`,
		chunk.ID, chunk.SourceID, chunk.Index, chunk.Text, string(data))
	if err != nil {
		return fmt.Errorf("failed to insert chunk: %w", err)
	}
	return tx.Commit()
}

// ListChunks returns the chunks of a source ordered by index.
func (s *Sink) ListChunks(ctx context.Context, sourceID string) ([]domain.KnowledgeChunk, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM sources WHERE id = ?`, sourceID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSourceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check source: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, idx, text, data FROM chunks WHERE source_id = ? ORDER BY idx`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to read chunks: %w", err)
	}
	defer rows.Close()

	chunks := []domain.KnowledgeChunk{}
	for rows.Next() {
		c := domain.KnowledgeChunk{SourceID: sourceID}
		var data string
		if err := rows.Scan(&c.ID, &c.Index, &c.Text, &data); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &c.Data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal chunk data: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// DeleteSource removes a source and its chunks.
func (s *Sink) DeleteSource(ctx context.Context, sourceID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE source_id = ?`, sourceID); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, sourceID); err != nil {
		return fmt.Errorf("failed to delete source: %w", err)
	}
	return tx.Commit()
}

// Sources returns the stored sources ordered by name.
func (s *Sink) Sources(ctx context.Context) ([]domain.KnowledgeSource, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, tags, external_id, metadata, chunk_count, updated_at
		FROM sources ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var out []domain.KnowledgeSource
	for rows.Next() {
		var (
			src             domain.KnowledgeSource
			tags, meta, upd string
		)
		if err := rows.Scan(&src.ID, &src.Name, &src.Description, &tags, &src.ExternalID, &meta, &src.ChunkCount, &upd); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		_ = json.Unmarshal([]byte(tags), &src.Tags)
		_ = json.Unmarshal([]byte(meta), &src.Metadata)
		src.UpdatedAt, _ = time.Parse(time.RFC3339Nano, upd)
		out = append(out, src)
	}
	return out, rows.Err()
}
