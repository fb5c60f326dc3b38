// Package extkit holds the pieces shared by the bundled extensions: client settings,
// the storage location fields and their resolution into a StorageTarget.
package extkit

import (
	"strings"

	"github.com/aretw0/conduit/internal/httpx"
	"github.com/aretw0/conduit/pkg/domain"
)

// Settings configures how an extension reaches its upstream API.
type Settings struct {
	BaseURL string
	// AuthURL is the token endpoint base for extensions using OAuth2.
	AuthURL string
	Client  *httpx.Client
}

// Option configures Settings.
type Option func(*Settings)

// WithBaseURL points the extension at another endpoint, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(s *Settings) {
		s.BaseURL = strings.TrimRight(u, "/")
	}
}

// WithAuthURL points OAuth2 token requests at another endpoint.
func WithAuthURL(u string) Option {
	return func(s *Settings) {
		s.AuthURL = strings.TrimRight(u, "/")
	}
}

// WithClient sets the HTTP client used for upstream calls.
func WithClient(c *httpx.Client) Option {
	return func(s *Settings) {
		s.Client = c
	}
}

// Apply resolves options over the extension defaults.
func Apply(defaultBaseURL string, opts []Option) Settings {
	s := Settings{BaseURL: defaultBaseURL}
	for _, opt := range opts {
		opt(&s)
	}
	if s.Client == nil {
		s.Client = httpx.New()
	}
	return s
}

// Storage field keys.
const (
	FieldStoreLocation = "storeLocation"
	FieldInputKey      = "inputKey"
	FieldContextKey    = "contextKey"
)

// StorageFields declares where a node writes its result. Both keys default to key.
func StorageFields(key string) []domain.Field {
	return []domain.Field{
		{
			Key:     FieldStoreLocation,
			Type:    domain.FieldSelect,
			Label:   "Where to store the result",
			Options: []string{domain.StoreInput, domain.StoreContext},
			Default: domain.StoreInput,
		},
		{Key: FieldInputKey, Type: domain.FieldText, Label: "Input Key to store Result", Default: key},
		{Key: FieldContextKey, Type: domain.FieldText, Label: "Context Key to store Result", Default: key},
	}
}

// StorageSection groups the storage fields.
func StorageSection() domain.Section {
	return domain.Section{
		Key:    "storage",
		Label:  "Storage Option",
		Fields: []string{FieldStoreLocation, FieldInputKey, FieldContextKey},
	}
}

// Target reads the storage fields of a validated config.
func Target(cfg map[string]any) domain.StorageTarget {
	loc, _ := cfg[FieldStoreLocation].(string)
	if loc == domain.StoreContext {
		key, _ := cfg[FieldContextKey].(string)
		return domain.StorageTarget{Type: domain.StoreContext, Key: key}
	}
	key, _ := cfg[FieldInputKey].(string)
	return domain.StorageTarget{Type: domain.StoreInput, Key: key}
}

// ConnectionField declares the config key carrying the connection id.
func ConnectionField(label string) domain.Field {
	return domain.Field{Key: "connection", Type: domain.FieldConnection, Label: label, Required: true}
}

// Ref binds a node to a connection type through the "connection" field.
func Ref(connType string) *domain.ConnectionRef {
	return &domain.ConnectionRef{Type: connType, FieldKey: "connection"}
}

// Found reports a lookup result through the onFound/onNotFound children.
func Found(inv *domain.Invocation, found bool) error {
	if found {
		return inv.SelectChild(ChildFound)
	}
	return inv.SelectChild(ChildNotFound)
}

// Child names used by lookup nodes.
const (
	ChildFound    = "onFound"
	ChildNotFound = "onNotFound"
)

// Children is the child list of lookup nodes.
var Children = []string{ChildFound, ChildNotFound}
