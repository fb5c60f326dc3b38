package msgraph

import (
	"context"
	"net/http"
	"net/url"

	"github.com/aretw0/conduit/internal/httpx"
	"github.com/aretw0/conduit/pkg/domain"
	"github.com/aretw0/conduit/pkg/extensions/extkit"
)

const (
	// ConnectionType is the app registration credential schema.
	ConnectionType = "microsoft-graph"

	defaultBaseURL = "https://graph.microsoft.com"
	defaultAuthURL = "https://login.microsoftonline.com"
	scope          = "https://graph.microsoft.com/.default"
)

// Connection is the credential schema shared by every Graph backed extension.
var Connection = domain.ConnectionSchema{
	Type:  ConnectionType,
	Label: "Microsoft Entra app registration",
	Fields: []domain.ConnectionField{
		{Name: "tenantId", Required: true},
		{Name: "clientId", Required: true},
		{Name: "clientSecret", Required: true},
	},
}

// Client calls Microsoft Graph with app-only tokens.
type Client struct {
	settings extkit.Settings
	tokens   *httpx.TokenCache
}

// NewClient creates a Graph client from extension options.
func NewClient(opts ...extkit.Option) *Client {
	s := extkit.Apply(defaultBaseURL, opts)
	if s.AuthURL == "" {
		s.AuthURL = defaultAuthURL
	}
	return &Client{settings: s, tokens: httpx.NewTokenCache(s.Client)}
}

// BaseURL is the Graph endpoint in use.
func (c *Client) BaseURL() string {
	return c.settings.BaseURL
}

func (c *Client) credentials(conn map[string]string) httpx.ClientCredentials {
	return httpx.ClientCredentials{
		TokenURL:     c.settings.AuthURL + "/" + url.PathEscape(conn["tenantId"]) + "/oauth2/v2.0/token",
		ClientID:     conn["clientId"],
		ClientSecret: conn["clientSecret"],
		Scope:        scope,
	}
}

// Do sends req with a bearer token. A 401 drops the cached token and retries once.
// Relative URLs are resolved against the Graph endpoint.
func (c *Client) Do(ctx context.Context, conn map[string]string, req httpx.Request) (*httpx.Response, error) {
	if len(req.URL) > 0 && req.URL[0] == '/' {
		req.URL = c.settings.BaseURL + req.URL
	}
	creds := c.credentials(conn)

	for attempt := 0; ; attempt++ {
		token, err := c.tokens.Token(ctx, creds)
		if err != nil {
			return nil, err
		}
		r := req
		r.Header = req.Header.Clone()
		if r.Header == nil {
			r.Header = http.Header{}
		}
		r.Header.Set("Authorization", "Bearer "+token)

		resp, err := c.settings.Client.Do(ctx, r)
		if err != nil && attempt == 0 && httpx.IsStatus(err, http.StatusUnauthorized) {
			c.tokens.Invalidate(creds)
			continue
		}
		return resp, err
	}
}

// GetJSON fetches path and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, conn map[string]string, path string, query url.Values, out any) error {
	resp, err := c.Do(ctx, conn, httpx.Request{
		Method: http.MethodGet,
		URL:    path,
		Query:  query,
		Header: http.Header{"Accept": {"application/json"}},
	})
	if err != nil {
		return err
	}
	return decode(resp.Body, out)
}
