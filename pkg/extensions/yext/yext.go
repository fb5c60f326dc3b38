// Package yext queries Yext Answers experiences.
package yext

import (
	"context"
	"net/url"
	"time"

	"github.com/aretw0/conduit/internal/httpx"
	"github.com/aretw0/conduit/internal/runtime"
	"github.com/aretw0/conduit/pkg/domain"
	"github.com/aretw0/conduit/pkg/extensions/extkit"
)

const (
	Name           = "yext"
	ConnectionType = "yext"

	defaultBaseURL = "https://liveapi.yext.com"
	apiVersion     = "20190101"
)

// retryBase is the first backoff delay for rate-limited queries.
var retryBase = time.Second

// Extension returns the Yext extension.
func Extension(opts ...extkit.Option) domain.Extension {
	s := extkit.Apply(defaultBaseURL, opts)
	return domain.Extension{
		Name:    Name,
		Label:   "Yext Answers",
		Version: "1.0.0",
		Connections: []domain.ConnectionSchema{
			{Type: ConnectionType, Label: "Yext API key", Fields: []domain.ConnectionField{{Name: "apiKey", Required: true}}},
		},
		Nodes: []domain.NodeDescriptor{answersSearch(s)},
	}
}

func answersSearch(s extkit.Settings) domain.NodeDescriptor {
	fields := []domain.Field{
		extkit.ConnectionField("Yext Connection"),
		{Key: "query", Type: domain.FieldText, Label: "Query", Description: "Falls back to the user text when empty"},
		{Key: "experienceKey", Type: domain.FieldText, Label: "Experience key", Required: true},
		{Key: "locale", Type: domain.FieldText, Label: "Locale", Default: "en"},
		{Key: "version", Type: domain.FieldSelect, Label: "Version", Options: []string{"PRODUCTION", "STAGING"}, Default: "PRODUCTION"},
		{Key: "maxRetries", Type: domain.FieldNumber, Label: "Retries when rate limited", Default: 3},
	}
	return domain.NodeDescriptor{
		Type:         "answersSearch",
		DefaultLabel: "Answers Search",
		Summary:      "Runs a universal search against an Answers experience",
		Fields:       append(fields, extkit.StorageFields("yext")...),
		Sections:     []domain.Section{extkit.StorageSection()},
		Children:     extkit.Children,
		Connection:   extkit.Ref(ConnectionType),
		Function: func(ctx context.Context, inv *domain.Invocation) error {
			var cfg struct {
				Query         string `json:"query"`
				ExperienceKey string `json:"experienceKey"`
				Locale        string `json:"locale"`
				Version       string `json:"version"`
				MaxRetries    uint64 `json:"maxRetries"`
			}
			if err := runtime.Decode(inv.Config, &cfg); err != nil {
				return err
			}
			target := extkit.Target(inv.Config)
			if cfg.Query == "" {
				cfg.Query = inv.Text()
			}

			q := url.Values{
				"input":         {cfg.Query},
				"experienceKey": {cfg.ExperienceKey},
				"api_key":       {inv.Connection["apiKey"]},
				"v":             {apiVersion},
				"version":       {cfg.Version},
				"locale":        {cfg.Locale},
			}

			client := s.Client.With(httpx.WithRetry(cfg.MaxRetries, retryBase))
			var res struct {
				Response struct {
					BusinessID   any              `json:"businessId"`
					Modules      []map[string]any `json:"modules"`
					DirectAnswer map[string]any   `json:"directAnswer"`
				} `json:"response"`
			}
			if err := client.GetJSON(ctx, s.BaseURL+"/v2/accounts/me/answers/query", q, nil, &res); err != nil {
				inv.Fail(target, err)
				return err
			}

			inv.Store(target, map[string]any{
				"directAnswer": res.Response.DirectAnswer,
				"modules":      res.Response.Modules,
			})
			return extkit.Found(inv, res.Response.DirectAnswer != nil || len(res.Response.Modules) > 0)
		},
	}
}
