package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/aretw0/conduit/pkg/domain"
	"github.com/aretw0/conduit/pkg/ports"
)

// Mask replaces values whose key matches a PII pattern.
const Mask = "***"

type piiMiddleware struct {
	next     ports.SessionStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks values of keys matching the
// patterns before the session reaches the store. Input, Context and output data are
// masked at any depth, whatever Go types the nodes stored.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid PII pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, session *domain.Session) error {
	// The caller keeps using its session, so mask a copy. The JSON round trip turns
	// typed values such as []map[string]any or structs into maps and lists the masker
	// can walk.
	cloned, err := normalize(session)
	if err != nil {
		return err
	}
	cloned.Input = m.maskMap(cloned.Input)
	cloned.Context = m.maskMap(cloned.Context)
	for i := range cloned.Outputs {
		cloned.Outputs[i].Data = m.maskValue(cloned.Outputs[i].Data)
	}
	return m.next.Save(ctx, cloned)
}

func normalize(session *domain.Session) (*domain.Session, error) {
	data, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize session for masking: %w", err)
	}
	var out domain.Session
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to serialize session for masking: %w", err)
	}
	return &out, nil
}

func (m *piiMiddleware) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *piiMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *piiMiddleware) sensitive(key string) bool {
	for _, p := range m.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}

func (m *piiMiddleware) maskMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		if m.sensitive(k) {
			out[k] = Mask
			continue
		}
		out[k] = m.maskValue(v)
	}
	return out
}

func (m *piiMiddleware) maskValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return m.maskMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = m.maskValue(item)
		}
		return out
	default:
		return v
	}
}
