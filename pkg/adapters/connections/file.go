// Package connections resolves connection credentials from a YAML or JSON file.
//
// The file lists connections by id and type:
//
//	connections:
//	  - id: main
//	    type: marvel
//	    fields:
//	      publicKey: ${MARVEL_PUBLIC_KEY}
//	      privateKey: ${MARVEL_PRIVATE_KEY}
//
// ${VAR} references in field values are expanded from the environment at load time.
// Unset variables expand to an empty string.
package connections

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/conduit/internal/logging"
	"github.com/aretw0/conduit/pkg/domain"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// ErrInvalidFile is returned when the connections file cannot be used.
var ErrInvalidFile = errors.New("invalid connections file")

// Connection is one configured credential set.
type Connection struct {
	ID     string            `yaml:"id" json:"id"`
	Type   string            `yaml:"type" json:"type"`
	Label  string            `yaml:"label,omitempty" json:"label,omitempty"`
	Fields map[string]string `yaml:"fields" json:"fields"`
}

type file struct {
	Connections []Connection `yaml:"connections"`
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Parse decodes a connections document and expands environment references.
// JSON documents are accepted since they are valid YAML.
func Parse(data []byte) ([]Connection, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}
	seen := make(map[string]bool, len(f.Connections))
	for i, c := range f.Connections {
		if c.ID == "" || c.Type == "" {
			return nil, fmt.Errorf("%w: connection %d needs an id and a type", ErrInvalidFile, i)
		}
		k := key(c.Type, c.ID)
		if seen[k] {
			return nil, fmt.Errorf("%w: duplicate connection %s", ErrInvalidFile, k)
		}
		seen[k] = true
		for name, v := range c.Fields {
			c.Fields[name] = expand(v)
		}
	}
	return f.Connections, nil
}

func expand(v string) string {
	return envRef.ReplaceAllStringFunc(v, func(ref string) string {
		return os.Getenv(envRef.FindStringSubmatch(ref)[1])
	})
}

func key(connType, id string) string {
	return connType + "/" + id
}

// FileResolver implements ports.ConnectionResolver from a file on disk.
type FileResolver struct {
	path   string
	logger *slog.Logger

	mu    sync.RWMutex
	conns map[string]Connection
}

// Option configures a FileResolver.
type Option func(*FileResolver)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *FileResolver) {
		r.logger = logger
	}
}

// Load reads path. A missing file is an error.
func Load(path string, opts ...Option) (*FileResolver, error) {
	r := &FileResolver{path: path, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-reads the file. On error the previous connections stay in place.
func (r *FileResolver) Reload() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("failed to read connections: %w", err)
	}
	list, err := Parse(data)
	if err != nil {
		return err
	}
	conns := make(map[string]Connection, len(list))
	for _, c := range list {
		conns[key(c.Type, c.ID)] = c
	}

	r.mu.Lock()
	r.conns = conns
	r.mu.Unlock()
	r.logger.Debug("connections loaded", "path", r.path, "count", len(conns))
	return nil
}

// Resolve implements ports.ConnectionResolver.
func (r *FileResolver) Resolve(_ context.Context, connType, id string) (map[string]string, error) {
	r.mu.RLock()
	c, ok := r.conns[key(connType, id)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", domain.ErrConnectionNotFound, connType, id)
	}
	out := make(map[string]string, len(c.Fields))
	for k, v := range c.Fields {
		out[k] = v
	}
	return out, nil
}

// List returns the configured connections without their fields, ordered by type and id.
func (r *FileResolver) List() []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Connection, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, Connection{ID: c.ID, Type: c.Type, Label: c.Label})
	}
	sort.Slice(out, func(i, j int) bool {
		return key(out[i].Type, out[i].ID) < key(out[j].Type, out[j].ID)
	})
	return out
}

// Watch reloads the file when it changes until ctx is done. The parent directory is
// watched so editors that replace the file by rename are seen too.
func (r *FileResolver) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(r.path)); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to watch %s: %w", r.path, err)
	}

	go func() {
		defer w.Close()
		target := filepath.Clean(r.path)
		var debounce <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					debounce = time.After(100 * time.Millisecond)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				r.logger.Warn("connections watcher error", "err", err)
			case <-debounce:
				debounce = nil
				if err := r.Reload(); err != nil {
					r.logger.Warn("connections reload failed, keeping previous set", "err", err)
					continue
				}
				r.logger.Info("connections reloaded", "path", r.path)
			}
		}
	}()
	return nil
}
