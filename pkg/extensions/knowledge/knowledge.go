// Package knowledge bundles the generic knowledge connectors (web pages, S3 buckets)
// and a node that chunks text inside a flow.
package knowledge

import (
	"context"
	"fmt"

	kb "github.com/aretw0/conduit/internal/knowledge"
	"github.com/aretw0/conduit/internal/runtime"
	"github.com/aretw0/conduit/pkg/domain"
	"github.com/aretw0/conduit/pkg/extensions/extkit"
)

const Name = "knowledge"

// Extension returns the knowledge extension.
func Extension(opts ...extkit.Option) domain.Extension {
	s := extkit.Apply("", opts)
	return domain.Extension{
		Name:        Name,
		Label:       "Knowledge",
		Version:     "1.0.0",
		Description: "Imports documents into the knowledge store and splits text into chunks",
		Connections: []domain.ConnectionSchema{awsConnection},
		Nodes:       []domain.NodeDescriptor{chunkText()},
		KnowledgeConnectors: []domain.KnowledgeConnector{
			webPage(s),
			s3Bucket(),
		},
	}
}

func chunkText() domain.NodeDescriptor {
	fields := []domain.Field{
		{Key: "text", Type: domain.FieldTextArea, Label: "Text", Description: "Falls back to the user text when empty"},
		{Key: "contentType", Type: domain.FieldSelect, Label: "Content type",
			Options: []string{kb.TypeText, kb.TypeMarkdown, kb.TypeHTML, kb.TypeJSON, kb.TypeCSV}, Default: kb.TypeText},
		{Key: "chunkSize", Type: domain.FieldNumber, Label: "Chunk size (tokens)", Default: kb.DefaultChunkSize},
		{Key: "chunkOverlap", Type: domain.FieldNumber, Label: "Chunk overlap (tokens)", Default: kb.DefaultChunkOverlap},
	}
	return domain.NodeDescriptor{
		Type:         "chunkText",
		DefaultLabel: "Chunk Text",
		Summary:      "Splits text into overlapping chunks",
		Fields:       append(fields, extkit.StorageFields("chunks")...),
		Sections:     []domain.Section{extkit.StorageSection()},
		Function: func(ctx context.Context, inv *domain.Invocation) error {
			var cfg struct {
				Text         string `json:"text"`
				ContentType  string `json:"contentType"`
				ChunkSize    int    `json:"chunkSize"`
				ChunkOverlap int    `json:"chunkOverlap"`
			}
			if err := runtime.Decode(inv.Config, &cfg); err != nil {
				return err
			}
			target := extkit.Target(inv.Config)
			if cfg.Text == "" {
				cfg.Text = inv.Text()
			}

			chunks, err := Chunk(cfg.ContentType, cfg.Text, cfg.ChunkSize, cfg.ChunkOverlap)
			if err != nil {
				inv.Fail(target, err)
				return err
			}
			inv.Store(target, chunks)
			return nil
		},
	}
}

// Chunk extracts the text of content, cleans it and splits it. It never returns nil
// on success so callers can encode an empty list.
func Chunk(contentType, content string, size, overlap int) ([]string, error) {
	splitter, err := kb.NewSplitter(size, overlap)
	if err != nil {
		return nil, err
	}
	if contentType == "" {
		contentType = kb.TypeText
	}
	text, err := kb.Load(contentType, []byte(content))
	if err != nil {
		return nil, fmt.Errorf("failed to load text: %w", err)
	}
	chunks, err := splitter.Split(kb.Clean(text))
	if err != nil {
		return nil, err
	}
	if chunks == nil {
		chunks = []string{}
	}
	return chunks, nil
}
