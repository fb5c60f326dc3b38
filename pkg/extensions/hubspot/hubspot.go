// Package hubspot searches and creates contacts in the HubSpot CRM.
package hubspot

import (
	"context"
	"errors"
	"net/http"

	"github.com/aretw0/conduit/internal/httpx"
	"github.com/aretw0/conduit/internal/runtime"
	"github.com/aretw0/conduit/pkg/domain"
	"github.com/aretw0/conduit/pkg/extensions/extkit"
)

const (
	Name           = "hubspot"
	ConnectionType = "hubspot"

	defaultBaseURL = "https://api.hubapi.com"
)

var defaultProperties = []string{"email", "firstname", "lastname", "phone", "company"}

// Extension returns the HubSpot extension.
func Extension(opts ...extkit.Option) domain.Extension {
	s := extkit.Apply(defaultBaseURL, opts)
	return domain.Extension{
		Name:    Name,
		Label:   "HubSpot",
		Version: "1.0.0",
		Connections: []domain.ConnectionSchema{
			{Type: ConnectionType, Label: "HubSpot private app", Fields: []domain.ConnectionField{{Name: "accessToken", Required: true}}},
		},
		Nodes: []domain.NodeDescriptor{searchContact(s), createContact(s)},
	}
}

func authHeader(conn map[string]string) http.Header {
	return http.Header{"Authorization": {"Bearer " + conn["accessToken"]}}
}

type contact struct {
	ID         string         `json:"id"`
	Properties map[string]any `json:"properties"`
}

func searchContact(s extkit.Settings) domain.NodeDescriptor {
	fields := []domain.Field{
		extkit.ConnectionField("HubSpot Connection"),
		{Key: "email", Type: domain.FieldText, Label: "Email", Required: true},
		{Key: "properties", Type: domain.FieldTextArray, Label: "Properties to return", Default: defaultProperties},
	}
	return domain.NodeDescriptor{
		Type:         "searchContact",
		DefaultLabel: "Search Contact",
		Summary:      "Finds a contact by email address",
		Fields:       append(fields, extkit.StorageFields("hubspot.contact")...),
		Sections:     []domain.Section{extkit.StorageSection()},
		Children:     extkit.Children,
		Connection:   extkit.Ref(ConnectionType),
		Function: func(ctx context.Context, inv *domain.Invocation) error {
			var cfg struct {
				Email      string   `json:"email"`
				Properties []string `json:"properties"`
			}
			if err := runtime.Decode(inv.Config, &cfg); err != nil {
				return err
			}
			target := extkit.Target(inv.Config)

			body := map[string]any{
				"filterGroups": []any{
					map[string]any{"filters": []any{
						map[string]any{"propertyName": "email", "operator": "EQ", "value": cfg.Email},
					}},
				},
				"properties": cfg.Properties,
				"limit":      1,
			}
			var res struct {
				Total   int       `json:"total"`
				Results []contact `json:"results"`
			}
			err := s.Client.JSON(ctx, httpx.Request{
				Method: http.MethodPost,
				URL:    s.BaseURL + "/crm/v3/objects/contacts/search",
				Header: authHeader(inv.Connection),
				Body:   body,
			}, &res)
			if err != nil {
				inv.Fail(target, err)
				return err
			}
			if len(res.Results) == 0 {
				return extkit.Found(inv, false)
			}
			inv.Store(target, res.Results[0])
			return extkit.Found(inv, true)
		},
	}
}

func createContact(s extkit.Settings) domain.NodeDescriptor {
	fields := []domain.Field{
		extkit.ConnectionField("HubSpot Connection"),
		{Key: "properties", Type: domain.FieldJSON, Label: "Contact properties", Required: true,
			Description: `e.g. {"email": "ada@example.com", "firstname": "Ada"}`},
	}
	return domain.NodeDescriptor{
		Type:         "createContact",
		DefaultLabel: "Create Contact",
		Fields:       append(fields, extkit.StorageFields("hubspot.created")...),
		Sections:     []domain.Section{extkit.StorageSection()},
		Connection:   extkit.Ref(ConnectionType),
		Function: func(ctx context.Context, inv *domain.Invocation) error {
			target := extkit.Target(inv.Config)
			props, ok := inv.Config["properties"].(map[string]any)
			if !ok {
				err := errors.New("properties must be a JSON object")
				inv.Fail(target, err)
				return err
			}

			var created contact
			err := s.Client.JSON(ctx, httpx.Request{
				Method: http.MethodPost,
				URL:    s.BaseURL + "/crm/v3/objects/contacts",
				Header: authHeader(inv.Connection),
				Body:   map[string]any{"properties": props},
			}, &created)
			if err != nil {
				inv.Fail(target, err)
				return err
			}
			inv.Store(target, created)
			return nil
		},
	}
}
