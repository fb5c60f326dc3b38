package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/conduit"
	"github.com/aretw0/conduit/pkg/domain"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "none.env")))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "conduit version "+conduit.Version+"\n", out)
}

func TestMatchCommand(t *testing.T) {
	out, err := run(t, "", "match", "I want to fly to Rome", "-p", "fly to @city", "--slots", `{"city": ["Rome", "Paris"]}`)
	require.NoError(t, err)

	var res conduit.MatchResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Matches, 1)
	assert.Equal(t, "Rome", res.Matches[0].Slots["city"])
}

func TestChunkCommand(t *testing.T) {
	t.Setenv("CONDUIT_CONNECTIONS_FILE", "")
	out, err := run(t, "one two three four five", "chunk", "--size", "2", "--overlap", "0")
	require.NoError(t, err)

	var chunks []string
	require.NoError(t, json.Unmarshal([]byte(out), &chunks))
	assert.Equal(t, []string{"one two", "three four", "five"}, chunks)
}

func TestSelectExtensions(t *testing.T) {
	all := []domain.Extension{{Name: "a"}, {Name: "b"}}

	got, err := selectExtensions(all, nil)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = selectExtensions(all, []string{"b"})
	require.NoError(t, err)
	assert.Equal(t, "b", got[0].Name)

	_, err = selectExtensions(all, []string{"c"})
	assert.ErrorIs(t, err, domain.ErrExtensionNotFound)
}

func TestJSONFlag(t *testing.T) {
	newCmd := func(value string) *cobra.Command {
		cmd := &cobra.Command{}
		cmd.Flags().String("config", "", "")
		require.NoError(t, cmd.Flags().Set("config", value))
		return cmd
	}

	var cfg map[string]any
	require.NoError(t, jsonFlag(newCmd(`{"limit": 3}`), "config", &cfg))
	assert.Equal(t, float64(3), cfg["limit"])

	path := filepath.Join(t.TempDir(), "cfg.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"email": "ada@example.com"}`), 0o600))
	cfg = nil
	require.NoError(t, jsonFlag(newCmd("@"+path), "config", &cfg))
	assert.Equal(t, "ada@example.com", cfg["email"])

	assert.ErrorContains(t, jsonFlag(newCmd("{nope"), "config", &cfg), "invalid JSON")
	assert.Error(t, jsonFlag(newCmd("@/does/not/exist.json"), "config", &cfg))
}
