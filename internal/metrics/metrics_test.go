package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretw0/conduit/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Hooks(t *testing.T) {
	m := New()
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnNodeLeave(ctx, &domain.NodeEvent{Extension: "marvel", NodeType: "getCharacter", Duration: 20 * time.Millisecond})
	hooks.OnNodeLeave(ctx, &domain.NodeEvent{Extension: "marvel", NodeType: "getCharacter", IsError: true})
	hooks.OnConnectorRun(ctx, &domain.ConnectorEvent{Extension: "knowledge", Connector: "webPage", Report: domain.IngestReport{Chunks: 7}})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	out := string(body)
	assert.Contains(t, out, `conduit_node_executions_total{error="false",extension="marvel",node="getCharacter"} 1`)
	assert.Contains(t, out, `conduit_node_executions_total{error="true",extension="marvel",node="getCharacter"} 1`)
	assert.Contains(t, out, `conduit_node_duration_seconds_count{extension="marvel",node="getCharacter"} 2`)
	assert.Contains(t, out, `conduit_connector_chunks_total{connector="webPage",extension="knowledge"} 7`)
}

func TestChainHooks(t *testing.T) {
	var calls []string
	a := domain.LifecycleHooks{OnNodeEnter: func(context.Context, *domain.NodeEvent) { calls = append(calls, "a") }}
	b := domain.LifecycleHooks{
		OnNodeEnter: func(context.Context, *domain.NodeEvent) { calls = append(calls, "b") },
		OnNodeLeave: func(context.Context, *domain.NodeEvent) { calls = append(calls, "leave") },
	}
	h := domain.ChainHooks(a, New().Hooks(), b)

	h.OnNodeEnter(context.Background(), &domain.NodeEvent{})
	h.OnNodeLeave(context.Background(), &domain.NodeEvent{})
	assert.Equal(t, []string{"a", "b", "leave"}, calls)
	assert.NotNil(t, h.OnConnectorRun)
}
