package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_JSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "v", r.URL.Query().Get("k"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer x", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	var out struct {
		OK bool `json:"ok"`
	}
	err := New().JSON(context.Background(), Request{
		Method: http.MethodPost,
		URL:    srv.URL + "/path",
		Query:  url.Values{"k": {"v"}},
		Header: http.Header{"Authorization": {"Bearer x"}},
		Body:   map[string]string{"a": "b"},
	}, &out)
	require.NoError(t, err)
	assert.True(t, out.OK)
}

func TestClient_StatusErrorRedactsQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	err := New().GetJSON(context.Background(), srv.URL, url.Values{"apikey": {"secret"}}, nil, nil)
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusNotFound))
	assert.NotContains(t, err.Error(), "secret")
}

func TestClient_RetriesRateLimited(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(WithRetry(3, time.Millisecond))
	require.NoError(t, c.JSON(context.Background(), Request{URL: srv.URL, Body: []byte(`{"a":1}`)}, nil))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := New(WithRetry(2, time.Millisecond)).JSON(context.Background(), Request{URL: srv.URL}, nil)
	assert.True(t, IsStatus(err, http.StatusTooManyRequests))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_NoRetryOnClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := New(WithRetry(5, time.Millisecond)).JSON(context.Background(), Request{URL: srv.URL}, nil)
	assert.True(t, IsStatus(err, http.StatusBadRequest))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 3*time.Second, parseRetryAfter("3"))
	assert.Zero(t, parseRetryAfter(""))
	assert.Zero(t, parseRetryAfter("soon"))
	d := parseRetryAfter(time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
	assert.Greater(t, d, 50*time.Minute)
}

func TestHonourRetryAfter(t *testing.T) {
	hint := 2 * time.Second
	b := honourRetryAfter(retry.NewConstant(10*time.Millisecond), &hint, time.Second)
	d, stop := b.Next()
	assert.False(t, stop)
	assert.Equal(t, time.Second, d, "hint is capped")
	d, _ = b.Next()
	assert.Equal(t, 10*time.Millisecond, d, "hint is consumed")
}

func TestTokenCache(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "id", r.PostForm.Get("client_id"))
		assert.Equal(t, "x/.default", r.PostForm.Get("scope"))
		n := atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok` + string(rune('0'+n)) + `","token_type":"Bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	cache := NewTokenCache(New())
	creds := ClientCredentials{TokenURL: srv.URL, ClientID: "id", ClientSecret: "s", Scope: "x/.default"}
	ctx := context.Background()

	tok, err := cache.Token(ctx, creds)
	require.NoError(t, err)
	assert.Equal(t, "tok1", tok)

	tok, _ = cache.Token(ctx, creds)
	assert.Equal(t, "tok1", tok)

	cache.tokens[creds].token.Expiry = time.Now().Add(-time.Minute)
	tok, _ = cache.Token(ctx, creds)
	assert.Equal(t, "tok2", tok)

	cache.Invalidate(creds)
	tok, _ = cache.Token(ctx, creds)
	assert.Equal(t, "tok3", tok)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestTokenCache_EndpointError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
	}))
	defer srv.Close()

	cache := NewTokenCache(New())
	_, err := cache.Token(context.Background(), ClientCredentials{TokenURL: srv.URL, ClientID: "id", ClientSecret: "bad"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch access token")
}

