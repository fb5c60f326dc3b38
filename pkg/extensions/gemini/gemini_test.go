package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aretw0/conduit/internal/testutils"
	"github.com/aretw0/conduit/pkg/extensions/extkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateText(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/"+defaultModel+":generateContent"), r.URL.Path)
		assert.Equal(t, "g-key", r.Header.Get("x-goog-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Bonjour "}]}}]}`))
	}))
	defer srv.Close()

	h := testutils.NewHarness(t, testutils.StaticResolver{"gemini/main": {"apiKey": "g-key"}},
		Extension(extkit.WithBaseURL(srv.URL)))

	res, err := h.Exec(context.Background(), Name, "generateText", map[string]any{
		"connection": "main",
		"prompt":     "Translate hello to French",
	}, "")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"text": "Bonjour"}, res.Input["gemini"])
	assert.Contains(t, body, "contents")
}

func TestGenerateText_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`))
	}))
	defer srv.Close()

	h := testutils.NewHarness(t, testutils.StaticResolver{"gemini/main": {"apiKey": "bad"}},
		Extension(extkit.WithBaseURL(srv.URL)))

	res, err := h.Exec(context.Background(), Name, "generateText", map[string]any{"connection": "main"}, "hi")
	require.Error(t, err)
	stored := res.Input["gemini"].(map[string]any)["text"].(map[string]any)
	assert.Contains(t, stored["error"], "gemini generate failed")
}
