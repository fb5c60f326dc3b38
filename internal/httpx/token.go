package httpx

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ClientCredentials identifies an OAuth2 client-credentials grant.
type ClientCredentials struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scope        string
}

type cachedToken struct {
	config clientcredentials.Config
	token  *oauth2.Token
}

// TokenCache fetches client-credentials access tokens and keeps one per credential
// set until it is no longer valid.
type TokenCache struct {
	client *Client

	mu     sync.Mutex
	tokens map[ClientCredentials]*cachedToken
}

// NewTokenCache creates a cache whose token requests go through client's http.Client.
func NewTokenCache(client *Client) *TokenCache {
	return &TokenCache{
		client: client,
		tokens: make(map[ClientCredentials]*cachedToken),
	}
}

// Token returns a valid access token for creds.
func (c *TokenCache) Token(ctx context.Context, creds ClientCredentials) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.tokens[creds]
	if !ok {
		entry = &cachedToken{config: clientcredentials.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			TokenURL:     creds.TokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		}}
		if creds.Scope != "" {
			entry.config.Scopes = []string{creds.Scope}
		}
		c.tokens[creds] = entry
	}
	if entry.token.Valid() {
		return entry.token.AccessToken, nil
	}

	tok, err := entry.config.Token(context.WithValue(ctx, oauth2.HTTPClient, c.client.HTTPClient()))
	if err != nil {
		return "", fmt.Errorf("failed to fetch access token: %w", err)
	}
	entry.token = tok
	return tok.AccessToken, nil
}

// Invalidate drops the cached token for creds, e.g. after a 401.
func (c *TokenCache) Invalidate(creds ClientCredentials) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tokens, creds)
}
