package marvel

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretw0/conduit/internal/runtime"
	"github.com/aretw0/conduit/internal/testutils"
	"github.com/aretw0/conduit/pkg/extensions/extkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var conns = testutils.StaticResolver{"marvel/main": {"publicKey": "pub", "privateKey": "priv"}}

func fakeMarvel(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		sum := md5.Sum([]byte(q.Get("ts") + "priv" + "pub"))
		assert.Equal(t, hex.EncodeToString(sum[:]), q.Get("hash"))
		assert.Equal(t, "pub", q.Get("apikey"))

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/public/characters":
			if q.Get("name") == "Hulk" {
				_, _ = w.Write([]byte(`{"data":{"total":1,"results":[{"id":1009351,"name":"Hulk"}]}}`))
				return
			}
			_, _ = w.Write([]byte(`{"data":{"total":0,"results":[]}}`))
		case "/v1/public/comics":
			assert.Equal(t, "2", q.Get("limit"))
			_, _ = w.Write([]byte(`{"data":{"results":[{"title":"Hulk (2008) #1"},{"title":"Hulk (2008) #2"}]}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestGetCharacter(t *testing.T) {
	srv := fakeMarvel(t)
	defer srv.Close()
	h := testutils.NewHarness(t, conns, Extension(extkit.WithBaseURL(srv.URL)))
	ctx := context.Background()

	res, err := h.Exec(ctx, Name, "getCharacter", map[string]any{"connection": "main", "name": "Hulk"}, "")
	require.NoError(t, err)
	assert.Equal(t, extkit.ChildFound, res.SelectedChild)
	assert.Equal(t, map[string]any{"character": map[string]any{"id": float64(1009351), "name": "Hulk"}}, res.Input["marvel"])

	res, err = h.Exec(ctx, Name, "getCharacter", map[string]any{"connection": "main", "name": "Nobody"}, "")
	require.NoError(t, err)
	assert.Equal(t, extkit.ChildNotFound, res.SelectedChild)
	assert.NotContains(t, res.Input, "marvel")
}

func TestSearchComics_StoresInContext(t *testing.T) {
	srv := fakeMarvel(t)
	defer srv.Close()
	h := testutils.NewHarness(t, conns, Extension(extkit.WithBaseURL(srv.URL)))

	res, err := h.Exec(context.Background(), Name, "searchComics", map[string]any{
		"connection":      "main",
		"titleStartsWith": "Hulk",
		"limit":           "2",
		"storeLocation":   "context",
		"contextKey":      "comics",
	}, "")
	require.NoError(t, err)
	comics, ok := res.Context["comics"].([]any)
	require.True(t, ok)
	assert.Len(t, comics, 2)
}

func TestUpstreamFailureIsStored(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":"InvalidCredentials"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()
	h := testutils.NewHarness(t, conns, Extension(extkit.WithBaseURL(srv.URL)))

	res, err := h.Exec(context.Background(), Name, "getCharacter", map[string]any{"connection": "main", "name": "Hulk"}, "")
	var nodeErr *runtime.NodeError
	require.ErrorAs(t, err, &nodeErr)

	stored := res.Input["marvel"].(map[string]any)["character"].(map[string]any)
	assert.Contains(t, stored["error"], "status 401")
	assert.NotContains(t, stored["error"], "priv")
}

func TestAuthHash(t *testing.T) {
	a := &api{now: func() time.Time { return time.UnixMilli(1) }}
	q := a.auth(map[string]string{"publicKey": "1234", "privateKey": "abcd"})
	assert.Equal(t, "1", q.Get("ts"))
	// md5("1abcd1234")
	assert.Equal(t, "ffd275c5130566a2916217b101f26150", q.Get("hash"))
}
