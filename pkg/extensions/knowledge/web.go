package knowledge

import (
	"context"
	"net/http"
	"strings"

	"github.com/aretw0/conduit/internal/httpx"
	kb "github.com/aretw0/conduit/internal/knowledge"
	"github.com/aretw0/conduit/internal/runtime"
	"github.com/aretw0/conduit/pkg/domain"
	"github.com/aretw0/conduit/pkg/extensions/extkit"
)

func webPage(s extkit.Settings) domain.KnowledgeConnector {
	return domain.KnowledgeConnector{
		Type:    "webPage",
		Label:   "Web Pages",
		Summary: "Fetches pages and imports their readable text, one source per URL",
		Fields: []domain.Field{
			{Key: "urls", Type: domain.FieldTextArray, Label: "URLs", Required: true},
			{Key: "tags", Type: domain.FieldTextArray, Label: "Tags"},
		},
		Function: func(ctx context.Context, run *domain.ConnectorRun) error {
			var cfg struct {
				URLs []string `json:"urls"`
				Tags []string `json:"tags"`
			}
			if err := runtime.Decode(run.Config, &cfg); err != nil {
				return err
			}

			for _, u := range cfg.URLs {
				u = strings.TrimSpace(u)
				if u == "" {
					continue
				}
				resp, err := s.Client.Do(ctx, httpx.Request{
					Method: http.MethodGet,
					URL:    u,
					Header: http.Header{"Accept": {"text/html,text/plain;q=0.9,*/*;q=0.5"}},
				})
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					run.Skip(u, err)
					continue
				}

				ct := resp.Header.Get("Content-Type")
				if ct == "" {
					ct = kb.DetectContentType(u, resp.Body)
				}
				name := u
				if strings.Contains(ct, "html") {
					if title := kb.HTMLTitle(resp.Body); title != "" {
						name = title
					}
				}

				src := domain.KnowledgeSource{
					Name:       name,
					ExternalID: u,
					Tags:       cfg.Tags,
					Metadata:   map[string]any{"url": u},
				}
				doc := domain.Document{Name: u, ContentType: ct, Data: resp.Body, Metadata: map[string]any{"url": u}}
				if err := run.Ingest(ctx, src, []domain.Document{doc}); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
