// Package sharepoint imports documents stored in SharePoint document libraries.
package sharepoint

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aretw0/conduit/internal/httpx"
	"github.com/aretw0/conduit/internal/knowledge"
	"github.com/aretw0/conduit/internal/runtime"
	"github.com/aretw0/conduit/pkg/domain"
	"github.com/aretw0/conduit/pkg/extensions/extkit"
	"github.com/aretw0/conduit/pkg/extensions/msgraph"
	"golang.org/x/sync/errgroup"
)

const Name = "sharepoint"

var (
	retryBase  = time.Second
	maxRetries = uint64(5)
)

var defaultExtensions = []string{".txt", ".md", ".html", ".aspx", ".json", ".csv"}

// Extension returns the SharePoint extension. It shares the Graph connection schema.
func Extension(opts ...extkit.Option) domain.Extension {
	s := extkit.Apply("", opts)
	retrying := s.Client.With(httpx.WithRetry(maxRetries, retryBase))
	graph := msgraph.NewClient(append(opts, extkit.WithClient(retrying))...)

	return domain.Extension{
		Name:        Name,
		Label:       "SharePoint",
		Version:     "1.0.0",
		Connections: []domain.ConnectionSchema{msgraph.Connection},
		KnowledgeConnectors: []domain.KnowledgeConnector{
			siteConnector(graph, retrying),
		},
	}
}

type driveItem struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	WebURL       string    `json:"webUrl"`
	LastModified string    `json:"lastModifiedDateTime"`
	DownloadURL  string    `json:"@microsoft.graph.downloadUrl"`
	File         *struct{} `json:"file"`
	Folder       *struct{} `json:"folder"`
}

type siteConfig struct {
	SiteID      string   `json:"siteId"`
	Folder      string   `json:"folder"`
	Recursive   bool     `json:"recursive"`
	Extensions  []string `json:"extensions"`
	Concurrency int      `json:"concurrency"`
}

func siteConnector(graph *msgraph.Client, download *httpx.Client) domain.KnowledgeConnector {
	return domain.KnowledgeConnector{
		Type:    "sharepointSite",
		Label:   "SharePoint Site",
		Summary: "Imports the files of a site document library, one knowledge source per file",
		Fields: []domain.Field{
			extkit.ConnectionField("Microsoft Graph Connection"),
			{Key: "siteId", Type: domain.FieldText, Label: "Site ID", Required: true},
			{Key: "folder", Type: domain.FieldText, Label: "Folder path", Description: "Empty for the library root"},
			{Key: "recursive", Type: domain.FieldToggle, Label: "Include sub folders", Default: true},
			{Key: "extensions", Type: domain.FieldTextArray, Label: "File extensions", Default: defaultExtensions},
			{Key: "concurrency", Type: domain.FieldNumber, Label: "Parallel downloads", Default: 4},
		},
		Connection: extkit.Ref(msgraph.ConnectionType),
		Function: func(ctx context.Context, run *domain.ConnectorRun) error {
			var cfg siteConfig
			if err := runtime.Decode(run.Config, &cfg); err != nil {
				return err
			}
			if cfg.Concurrency < 1 {
				cfg.Concurrency = 1
			}
			allowed := make(map[string]bool, len(cfg.Extensions))
			for _, ext := range cfg.Extensions {
				ext = strings.ToLower(strings.TrimSpace(ext))
				if ext != "" && !strings.HasPrefix(ext, ".") {
					ext = "." + ext
				}
				allowed[ext] = true
			}

			items, err := listFiles(ctx, graph, run.Connection, cfg)
			if err != nil {
				return err
			}

			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(cfg.Concurrency)
			for _, item := range items {
				ext := strings.ToLower(path.Ext(item.Name))
				if !allowed[ext] || !knowledge.Supported(item.Name) {
					continue
				}
				g.Go(func() error {
					data, err := fetch(gctx, graph, download, run.Connection, cfg.SiteID, item)
					if err != nil {
						if gctx.Err() != nil {
							return gctx.Err()
						}
						run.Skip(item.Name, err)
						return nil
					}
					src := domain.KnowledgeSource{
						Name:       item.Name,
						ExternalID: item.ID,
						Metadata: map[string]any{
							"webUrl":       item.WebURL,
							"lastModified": item.LastModified,
							"siteId":       cfg.SiteID,
						},
					}
					doc := domain.Document{
						Name:     item.Name,
						Data:     data,
						Metadata: map[string]any{"webUrl": item.WebURL},
					}
					return run.Ingest(gctx, src, []domain.Document{doc})
				})
			}
			return g.Wait()
		},
	}
}

func childrenPath(siteID, folder string) string {
	base := "/v1.0/sites/" + url.PathEscape(siteID) + "/drive"
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return base + "/root/children"
	}
	return base + "/root:/" + escapePath(folder) + ":/children"
}

func itemChildrenPath(siteID, itemID string) string {
	return "/v1.0/sites/" + url.PathEscape(siteID) + "/drive/items/" + url.PathEscape(itemID) + "/children"
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

// listFiles walks the folder, following @odata.nextLink pages.
func listFiles(ctx context.Context, graph *msgraph.Client, conn map[string]string, cfg siteConfig) ([]driveItem, error) {
	var files []driveItem
	queue := []string{childrenPath(cfg.SiteID, cfg.Folder)}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		for next != "" {
			var page struct {
				Value    []driveItem `json:"value"`
				NextLink string      `json:"@odata.nextLink"`
			}
			if err := graph.GetJSON(ctx, conn, next, nil, &page); err != nil {
				return nil, fmt.Errorf("failed to list %s: %w", next, err)
			}
			for _, item := range page.Value {
				switch {
				case item.Folder != nil && cfg.Recursive:
					queue = append(queue, itemChildrenPath(cfg.SiteID, item.ID))
				case item.File != nil:
					files = append(files, item)
				}
			}
			next = page.NextLink
		}
	}
	return files, nil
}

// fetch prefers the pre-authenticated download URL and falls back to the content endpoint.
func fetch(ctx context.Context, graph *msgraph.Client, download *httpx.Client, conn map[string]string, siteID string, item driveItem) ([]byte, error) {
	if item.DownloadURL != "" {
		resp, err := download.Do(ctx, httpx.Request{Method: http.MethodGet, URL: item.DownloadURL})
		if err != nil {
			return nil, err
		}
		return resp.Body, nil
	}
	resp, err := graph.Do(ctx, conn, httpx.Request{
		Method: http.MethodGet,
		URL:    "/v1.0/sites/" + url.PathEscape(siteID) + "/drive/items/" + url.PathEscape(item.ID) + "/content",
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
