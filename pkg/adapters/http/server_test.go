package http_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/conduit"
	"github.com/aretw0/conduit/internal/metrics"
	httpadapter "github.com/aretw0/conduit/pkg/adapters/http"
	"github.com/aretw0/conduit/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testExtension() domain.Extension {
	return domain.Extension{
		Name: "echo",
		Nodes: []domain.NodeDescriptor{
			{
				Type: "say",
				Fields: []domain.Field{
					{Key: "prefix", Type: domain.FieldText, Required: true},
					{Key: "times", Type: domain.FieldNumber, Required: true},
				},
				Function: func(ctx context.Context, inv *domain.Invocation) error {
					if inv.Text() == "fail" {
						return errors.New("upstream down")
					}
					inv.Say(inv.Config["prefix"].(string)+inv.Text(), nil)
					return nil
				},
			},
		},
		KnowledgeConnectors: []domain.KnowledgeConnector{
			{
				Type: "static",
				Function: func(ctx context.Context, run *domain.ConnectorRun) error {
					doc := domain.Document{Name: "a.txt", Data: []byte("some static text")}
					return run.Ingest(ctx, domain.KnowledgeSource{Name: "static"}, []domain.Document{doc})
				},
			},
		},
	}
}

func newServer(t *testing.T, opts ...httpadapter.Option) (http.Handler, *conduit.Host) {
	t.Helper()
	m := metrics.New()
	host, err := conduit.New(conduit.WithExtensions(testExtension()), conduit.WithLifecycleHooks(m.Hooks()))
	require.NoError(t, err)
	opts = append([]httpadapter.Option{httpadapter.WithMetrics(m.Handler())}, opts...)
	return httpadapter.NewHandler(host, opts...), host
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

var validConfig = map[string]any{"prefix": "re: ", "times": 1}

func TestHealthAndInfo(t *testing.T) {
	h, _ := newServer(t)

	w := do(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])

	w = do(t, h, http.MethodGet, "/info", nil)
	info := decode(t, w)
	assert.Equal(t, conduit.Version, info["version"])
	assert.EqualValues(t, 1, info["extensions"])

	w = do(t, h, http.MethodGet, "/extensions", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"echo"`)
	assert.NotContains(t, w.Body.String(), "Function")
}

func TestExecuteAndSessions(t *testing.T) {
	h, _ := newServer(t)

	w := do(t, h, http.MethodPost, "/sessions/s1/execute", httpadapter.ExecuteRequest{
		Extension: "echo", Node: "say", Config: validConfig, Text: "hi\x1b",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode(t, w)
	assert.Equal(t, "s1", res["session_id"])
	assert.Equal(t, "re: hi", res["outputs"].([]any)[0].(map[string]any)["text"])

	w = do(t, h, http.MethodGet, "/sessions", nil)
	assert.Equal(t, []any{"s1"}, decode(t, w)["sessions"])

	w = do(t, h, http.MethodGet, "/sessions/s1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodDelete, "/sessions/s1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, http.MethodGet, "/sessions/s1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExecute_ErrorMapping(t *testing.T) {
	h, _ := newServer(t, httpadapter.WithMaxInputSize(8))

	w := do(t, h, http.MethodPost, "/sessions/s1/execute", httpadapter.ExecuteRequest{Extension: "nope", Node: "say"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodPost, "/sessions/s1/execute", httpadapter.ExecuteRequest{Extension: "echo", Node: "missing"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodPost, "/sessions/s1/execute", httpadapter.ExecuteRequest{Extension: "echo", Node: "say"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Len(t, body["details"], 2)

	w = do(t, h, http.MethodPost, "/sessions/s1/execute", httpadapter.ExecuteRequest{
		Extension: "echo", Node: "say", Config: validConfig, Text: "fail",
	})
	require.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "upstream down", decode(t, w)["error"])

	w = do(t, h, http.MethodPost, "/sessions/s1/execute", httpadapter.ExecuteRequest{
		Extension: "echo", Node: "say", Config: validConfig, Text: "far too long",
	})
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = do(t, h, http.MethodPost, "/sessions/s1/execute", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMatchAndChunk(t *testing.T) {
	h, _ := newServer(t)

	w := do(t, h, http.MethodPost, "/nlu/match", conduit.MatchRequest{
		Text:     "Please cancel my order",
		Patterns: []string{"cancel my @thing"},
		Slots:    map[string][]string{"thing": {"order", "subscription"}},
	})
	require.Equal(t, http.StatusOK, w.Code)
	matches := decode(t, w)["matches"].([]any)
	require.Len(t, matches, 1)
	assert.Equal(t, map[string]any{"thing": "order"}, matches[0].(map[string]any)["slots"])

	w = do(t, h, http.MethodPost, "/knowledge/chunk", conduit.ChunkRequest{Text: "a b c d", ChunkSize: 2})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"a b", "c d"}, decode(t, w)["chunks"])

	w = do(t, h, http.MethodPost, "/knowledge/chunk", conduit.ChunkRequest{Text: "a", ChunkSize: 2, ChunkOverlap: 3})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRunConnector(t *testing.T) {
	h, host := newServer(t)

	w := do(t, h, http.MethodPost, "/knowledge/echo/static/run", httpadapter.ConnectorRunRequest{})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	sum := decode(t, w)
	assert.EqualValues(t, 1, sum["sources"])
	assert.EqualValues(t, 1, sum["chunks"])
	assert.NotNil(t, host.Sink())

	w = do(t, h, http.MethodPost, "/knowledge/echo/unknown/run", httpadapter.ConnectorRunRequest{})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "conduit_connector_runs_total")
}

func TestSubscribeEvents(t *testing.T) {
	h, _ := newServer(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/sessions/s2/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewReader(resp.Body)
	first, err := lines.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: ping\n", first)

	body, _ := json.Marshal(httpadapter.ExecuteRequest{Extension: "echo", Node: "say", Config: validConfig, Text: "yo"})
	post, err := http.Post(srv.URL+"/sessions/s2/execute", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	_ = post.Body.Close()

	for {
		line, err := lines.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: {") {
			assert.Contains(t, line, `"text":"re: yo"`)
			return
		}
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, httpadapter.StatusFor(domain.ErrSessionNotFound))
	assert.Equal(t, http.StatusBadRequest, httpadapter.StatusFor(domain.ErrConnectionNotFound))
	assert.Equal(t, http.StatusGatewayTimeout, httpadapter.StatusFor(context.DeadlineExceeded))
	assert.Equal(t, http.StatusInternalServerError, httpadapter.StatusFor(errors.New("boom")))
}
