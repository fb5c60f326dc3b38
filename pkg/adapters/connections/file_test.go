package connections_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/conduit/pkg/adapters/connections"
	"github.com/aretw0/conduit/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const doc = `
connections:
  - id: main
    type: marvel
    label: Production keys
    fields:
      publicKey: pub-${CONDUIT_TEST_MARVEL}
      privateKey: ${CONDUIT_TEST_UNSET}
  - id: main
    type: yext
    fields:
      apiKey: k
`

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoadAndResolve(t *testing.T) {
	t.Setenv("CONDUIT_TEST_MARVEL", "123")
	path := filepath.Join(t.TempDir(), "connections.yaml")
	write(t, path, doc)

	r, err := connections.Load(path)
	require.NoError(t, err)
	ctx := context.Background()

	fields, err := r.Resolve(ctx, "marvel", "main")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"publicKey": "pub-123", "privateKey": ""}, fields)

	_, err = r.Resolve(ctx, "hubspot", "main")
	assert.ErrorIs(t, err, domain.ErrConnectionNotFound)

	fields["apiKey"] = "mutated"
	again, _ := r.Resolve(ctx, "marvel", "main")
	assert.NotContains(t, again, "apiKey")

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "marvel", list[0].Type)
	assert.Nil(t, list[0].Fields)
}

func TestParse_JSONAndErrors(t *testing.T) {
	list, err := connections.Parse([]byte(`{"connections":[{"id":"a","type":"openai","fields":{"apiKey":"x"}}]}`))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "x", list[0].Fields["apiKey"])

	_, err = connections.Parse([]byte("connections:\n  - id: a\n"))
	assert.ErrorIs(t, err, connections.ErrInvalidFile)

	_, err = connections.Parse([]byte("connections:\n  - {id: a, type: t}\n  - {id: a, type: t}\n"))
	assert.ErrorIs(t, err, connections.ErrInvalidFile)

	_, err = connections.Parse([]byte("connections: [\n"))
	assert.ErrorIs(t, err, connections.ErrInvalidFile)
}

func TestWatch_Reloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "connections.yaml")
	write(t, path, doc)
	r, err := connections.Load(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, r.Watch(ctx))

	write(t, path, "connections:\n  - {id: backup, type: marvel, fields: {publicKey: p}}\n")
	assert.Eventually(t, func() bool {
		_, err := r.Resolve(context.Background(), "marvel", "backup")
		return err == nil
	}, 3*time.Second, 20*time.Millisecond)

	// A broken file keeps the last good set.
	write(t, path, "connections: [\n")
	time.Sleep(300 * time.Millisecond)
	_, err = r.Resolve(context.Background(), "marvel", "backup")
	assert.NoError(t, err)
}
