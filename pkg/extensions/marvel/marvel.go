// Package marvel looks up characters and comics in the Marvel developer API.
package marvel

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"strconv"
	"time"

	"github.com/aretw0/conduit/internal/runtime"
	"github.com/aretw0/conduit/pkg/domain"
	"github.com/aretw0/conduit/pkg/extensions/extkit"
)

const (
	// Name is the extension name.
	Name = "marvel"
	// ConnectionType is the credential schema used by every node.
	ConnectionType = "marvel"

	defaultBaseURL = "https://gateway.marvel.com"
)

type api struct {
	extkit.Settings
	now func() time.Time
}

// Extension returns the marvel extension.
func Extension(opts ...extkit.Option) domain.Extension {
	a := &api{Settings: extkit.Apply(defaultBaseURL, opts), now: time.Now}
	return domain.Extension{
		Name:    Name,
		Label:   "Marvel",
		Version: "1.0.0",
		Connections: []domain.ConnectionSchema{
			{
				Type:  ConnectionType,
				Label: "Marvel API keys",
				Fields: []domain.ConnectionField{
					{Name: "publicKey", Required: true},
					{Name: "privateKey", Required: true},
				},
			},
		},
		Nodes: []domain.NodeDescriptor{a.getCharacter(), a.searchComics()},
	}
}

// auth returns the ts, apikey and hash query parameters.
func (a *api) auth(conn map[string]string) url.Values {
	ts := strconv.FormatInt(a.now().UnixMilli(), 10)
	sum := md5.Sum([]byte(ts + conn["privateKey"] + conn["publicKey"]))
	return url.Values{
		"ts":     {ts},
		"apikey": {conn["publicKey"]},
		"hash":   {hex.EncodeToString(sum[:])},
	}
}

type listResponse struct {
	Data struct {
		Total   int              `json:"total"`
		Results []map[string]any `json:"results"`
	} `json:"data"`
}

func (a *api) list(ctx context.Context, path string, conn map[string]string, query url.Values) (*listResponse, error) {
	q := a.auth(conn)
	for k, v := range query {
		q[k] = v
	}
	var out listResponse
	if err := a.Client.GetJSON(ctx, a.BaseURL+path, q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *api) getCharacter() domain.NodeDescriptor {
	fields := []domain.Field{
		extkit.ConnectionField("Marvel Connection"),
		{Key: "name", Type: domain.FieldText, Label: "Character Name", Required: true},
	}
	return domain.NodeDescriptor{
		Type:         "getCharacter",
		DefaultLabel: "Get Character",
		Summary:      "Looks up a Marvel character by name",
		Fields:       append(fields, extkit.StorageFields("marvel.character")...),
		Sections:     []domain.Section{extkit.StorageSection()},
		Children:     extkit.Children,
		Connection:   extkit.Ref(ConnectionType),
		Function: func(ctx context.Context, inv *domain.Invocation) error {
			var cfg struct {
				Name string `json:"name"`
			}
			if err := runtime.Decode(inv.Config, &cfg); err != nil {
				return err
			}
			target := extkit.Target(inv.Config)

			res, err := a.list(ctx, "/v1/public/characters", inv.Connection, url.Values{"name": {cfg.Name}})
			if err != nil {
				inv.Fail(target, err)
				return err
			}
			if len(res.Data.Results) == 0 {
				return extkit.Found(inv, false)
			}
			inv.Store(target, res.Data.Results[0])
			return extkit.Found(inv, true)
		},
	}
}

func (a *api) searchComics() domain.NodeDescriptor {
	fields := []domain.Field{
		extkit.ConnectionField("Marvel Connection"),
		{Key: "titleStartsWith", Type: domain.FieldText, Label: "Title starts with", Required: true},
		{Key: "limit", Type: domain.FieldNumber, Label: "Maximum results", Default: 5},
	}
	return domain.NodeDescriptor{
		Type:         "searchComics",
		DefaultLabel: "Search Comics",
		Fields:       append(fields, extkit.StorageFields("marvel.comics")...),
		Sections:     []domain.Section{extkit.StorageSection()},
		Connection:   extkit.Ref(ConnectionType),
		Function: func(ctx context.Context, inv *domain.Invocation) error {
			var cfg struct {
				Title string `json:"titleStartsWith"`
				Limit int    `json:"limit"`
			}
			if err := runtime.Decode(inv.Config, &cfg); err != nil {
				return err
			}
			target := extkit.Target(inv.Config)

			q := url.Values{"titleStartsWith": {cfg.Title}}
			if cfg.Limit > 0 {
				q.Set("limit", strconv.Itoa(cfg.Limit))
			}
			res, err := a.list(ctx, "/v1/public/comics", inv.Connection, q)
			if err != nil {
				inv.Fail(target, err)
				return err
			}
			inv.Store(target, res.Data.Results)
			return nil
		},
	}
}
