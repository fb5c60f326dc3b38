// Package msgraph reads directory data from Microsoft Graph using the OAuth2
// client-credentials flow.
package msgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/aretw0/conduit/internal/httpx"
	"github.com/aretw0/conduit/internal/runtime"
	"github.com/aretw0/conduit/pkg/domain"
	"github.com/aretw0/conduit/pkg/extensions/extkit"
)

// Name is the extension name.
const Name = "microsoft-graph"

// Extension returns the Microsoft Graph extension.
func Extension(opts ...extkit.Option) domain.Extension {
	c := NewClient(opts...)
	return domain.Extension{
		Name:        Name,
		Label:       "Microsoft Graph",
		Version:     "1.0.0",
		Connections: []domain.ConnectionSchema{Connection},
		Nodes:       []domain.NodeDescriptor{getUser(c)},
	}
}

func decode(data []byte, out any) error {
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode graph response: %w", err)
	}
	return nil
}

func getUser(c *Client) domain.NodeDescriptor {
	fields := []domain.Field{
		extkit.ConnectionField("Microsoft Graph Connection"),
		{Key: "user", Type: domain.FieldText, Label: "User id or principal name", Required: true},
		{Key: "select", Type: domain.FieldTextArray, Label: "Properties",
			Default: []string{"id", "displayName", "mail", "userPrincipalName", "jobTitle", "mobilePhone"}},
	}
	return domain.NodeDescriptor{
		Type:         "getUser",
		DefaultLabel: "Get User",
		Summary:      "Reads a user profile from the directory",
		Fields:       append(fields, extkit.StorageFields("microsoft.user")...),
		Sections:     []domain.Section{extkit.StorageSection()},
		Children:     extkit.Children,
		Connection:   extkit.Ref(ConnectionType),
		Function: func(ctx context.Context, inv *domain.Invocation) error {
			var cfg struct {
				User   string   `json:"user"`
				Select []string `json:"select"`
			}
			if err := runtime.Decode(inv.Config, &cfg); err != nil {
				return err
			}
			target := extkit.Target(inv.Config)

			q := url.Values{}
			if len(cfg.Select) > 0 {
				q.Set("$select", strings.Join(cfg.Select, ","))
			}
			var user map[string]any
			err := c.GetJSON(ctx, inv.Connection, "/v1.0/users/"+url.PathEscape(cfg.User), q, &user)
			if httpx.IsStatus(err, http.StatusNotFound) {
				return extkit.Found(inv, false)
			}
			if err != nil {
				inv.Fail(target, err)
				return err
			}
			delete(user, "@odata.context")
			inv.Store(target, user)
			return extkit.Found(inv, true)
		},
	}
}
