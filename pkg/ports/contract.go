package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/conduit/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore implementation
// adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		session := domain.NewSession(sessionID)
		session.Input["text"] = "hello"
		session.Context["count"] = 42
		session.History = []string{"marvel/getCharacter"}

		err := store.Save(ctx, session)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, sessionID, loaded.ID)
		assert.Equal(t, "hello", loaded.Input["text"])
		// JSON backed stores return float64, in-memory stores keep int.
		assert.NotNil(t, loaded.Context["count"])
		assert.Equal(t, []string{"marvel/getCharacter"}, loaded.History)
	})

	t.Run("Load returns a copy", func(t *testing.T) {
		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		loaded.Input["text"] = "mutated"

		again, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "hello", again.Input["text"])
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, domain.NewSession(sessionID))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, domain.NewSession(id1))
		_ = store.Save(ctx, domain.NewSession(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}

// RunKnowledgeSinkContract verifies the KnowledgeSink contract.
func RunKnowledgeSinkContract(t *testing.T, sink KnowledgeSink) {
	ctx := context.Background()

	t.Run("Upsert and list chunks in order", func(t *testing.T) {
		id, err := sink.UpsertSource(ctx, domain.KnowledgeSource{Name: "handbook", ExternalID: "ext-1"})
		require.NoError(t, err)
		require.NotEmpty(t, id)

		for _, idx := range []int{1, 0, 2} {
			err := sink.CreateChunk(ctx, domain.KnowledgeChunk{
				ID:       id + "-" + string(rune('a'+idx)),
				SourceID: id,
				Index:    idx,
				Text:     "chunk",
				Data:     map[string]any{"chunkIndex": idx},
			})
			require.NoError(t, err)
		}

		chunks, err := sink.ListChunks(ctx, id)
		require.NoError(t, err)
		require.Len(t, chunks, 3)
		for i, c := range chunks {
			assert.Equal(t, i, c.Index)
			assert.Equal(t, id, c.SourceID)
		}
	})

	t.Run("Upsert replaces chunks of the same external id", func(t *testing.T) {
		first, err := sink.UpsertSource(ctx, domain.KnowledgeSource{Name: "faq", ExternalID: "ext-2"})
		require.NoError(t, err)
		require.NoError(t, sink.CreateChunk(ctx, domain.KnowledgeChunk{ID: "old", SourceID: first, Text: "old"}))

		second, err := sink.UpsertSource(ctx, domain.KnowledgeSource{Name: "faq v2", ExternalID: "ext-2"})
		require.NoError(t, err)
		assert.Equal(t, first, second)

		chunks, err := sink.ListChunks(ctx, second)
		require.NoError(t, err)
		assert.Empty(t, chunks)
	})

	t.Run("Chunk for unknown source", func(t *testing.T) {
		err := sink.CreateChunk(ctx, domain.KnowledgeChunk{ID: "x", SourceID: "missing", Text: "x"})
		assert.ErrorIs(t, err, domain.ErrSourceNotFound)
	})

	t.Run("Delete source", func(t *testing.T) {
		id, err := sink.UpsertSource(ctx, domain.KnowledgeSource{Name: "temp"})
		require.NoError(t, err)
		require.NoError(t, sink.DeleteSource(ctx, id))

		_, err = sink.ListChunks(ctx, id)
		assert.ErrorIs(t, err, domain.ErrSourceNotFound)
	})
}
