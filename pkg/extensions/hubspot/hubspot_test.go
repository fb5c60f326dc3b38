package hubspot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aretw0/conduit/internal/testutils"
	"github.com/aretw0/conduit/pkg/extensions/extkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var conns = testutils.StaticResolver{"hubspot/main": {"accessToken": "pat"}}

func fakeHubSpot(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer pat", r.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		switch r.URL.Path {
		case "/crm/v3/objects/contacts/search":
			filter := body["filterGroups"].([]any)[0].(map[string]any)["filters"].([]any)[0].(map[string]any)
			if filter["value"] == "ada@example.com" {
				_, _ = w.Write([]byte(`{"total":1,"results":[{"id":"51","properties":{"email":"ada@example.com","firstname":"Ada"}}]}`))
				return
			}
			_, _ = w.Write([]byte(`{"total":0,"results":[]}`))
		case "/crm/v3/objects/contacts":
			props := body["properties"].(map[string]any)
			if props["email"] == "dup@example.com" {
				w.WriteHeader(http.StatusConflict)
				_, _ = w.Write([]byte(`{"status":"error","message":"Contact already exists"}`))
				return
			}
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "99", "properties": props})
		}
	}))
}

func TestSearchContact(t *testing.T) {
	srv := fakeHubSpot(t)
	defer srv.Close()
	h := testutils.NewHarness(t, conns, Extension(extkit.WithBaseURL(srv.URL)))
	ctx := context.Background()

	res, err := h.Exec(ctx, Name, "searchContact", map[string]any{"connection": "main", "email": "ada@example.com"}, "")
	require.NoError(t, err)
	assert.Equal(t, extkit.ChildFound, res.SelectedChild)
	c := res.Input["hubspot"].(map[string]any)["contact"].(map[string]any)
	assert.Equal(t, "51", c["id"])

	res, err = h.Exec(ctx, Name, "searchContact", map[string]any{"connection": "main", "email": "who@example.com"}, "")
	require.NoError(t, err)
	assert.Equal(t, extkit.ChildNotFound, res.SelectedChild)
}

func TestCreateContact(t *testing.T) {
	srv := fakeHubSpot(t)
	defer srv.Close()
	h := testutils.NewHarness(t, conns, Extension(extkit.WithBaseURL(srv.URL)))
	ctx := context.Background()

	res, err := h.Exec(ctx, Name, "createContact", map[string]any{
		"connection": "main",
		"properties": `{"email":"new@example.com","firstname":"Grace"}`,
	}, "")
	require.NoError(t, err)
	created := res.Input["hubspot"].(map[string]any)["created"].(map[string]any)
	assert.Equal(t, "99", created["id"])

	res, err = h.Exec(ctx, Name, "createContact", map[string]any{
		"connection": "main",
		"properties": map[string]any{"email": "dup@example.com"},
	}, "")
	require.Error(t, err)
	failed := res.Input["hubspot"].(map[string]any)["created"].(map[string]any)
	assert.Contains(t, failed["error"], "Contact already exists")

	_, err = h.Exec(ctx, Name, "createContact", map[string]any{"connection": "main", "properties": "[1,2]"}, "")
	assert.ErrorContains(t, err, "JSON object")
}
