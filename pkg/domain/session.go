package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// Storage locations a node can write into.
const (
	StoreInput   = "input"
	StoreContext = "context"
)

// StorageTarget is where a node writes its result.
// Key is a dot path; intermediate maps are created on write.
type StorageTarget struct {
	Type string `json:"type" mapstructure:"type"`
	Key  string `json:"key" mapstructure:"key"`
}

// Output is a message a node emitted to the user.
type Output struct {
	Text string `json:"text,omitempty"`
	Data any    `json:"data,omitempty"`
}

// Session is the conversation-scoped state the host keeps between node executions.
type Session struct {
	ID string `json:"id"`

	// Input holds per-turn values (text, data, results written by nodes).
	Input map[string]any `json:"input"`

	// Context survives across turns.
	Context map[string]any `json:"context"`

	Outputs []Output `json:"outputs,omitempty"`

	// History tracks the qualified node types executed in this session.
	History []string `json:"history,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession creates an empty session.
func NewSession(id string) *Session {
	return &Session{
		ID:      id,
		Input:   make(map[string]any),
		Context: make(map[string]any),
	}
}

// Snapshot returns a deep copy of the session.
// Values are copied through JSON, so numbers come back as float64.
func (s *Session) Snapshot() *Session {
	if s == nil {
		return nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		// Non-serialisable values (funcs, channels) fall back to a shallow copy.
		cp := *s
		cp.Input = copyMap(s.Input)
		cp.Context = copyMap(s.Context)
		cp.Outputs = append([]Output(nil), s.Outputs...)
		cp.History = append([]string(nil), s.History...)
		return &cp
	}
	var cp Session
	_ = json.Unmarshal(data, &cp)
	if cp.Input == nil {
		cp.Input = make(map[string]any)
	}
	if cp.Context == nil {
		cp.Context = make(map[string]any)
	}
	return &cp
}

// Store writes value at target. Unknown target types fall back to input.
func (s *Session) Store(target StorageTarget, value any) {
	root := s.Input
	if target.Type == StoreContext {
		root = s.Context
	}
	SetPath(root, target.Key, value)
}

// Get reads a dot path such as "input.text" or "context.user.name".
func (s *Session) Get(path string) (any, bool) {
	head, rest, _ := strings.Cut(path, ".")
	switch head {
	case StoreInput:
		return GetPath(s.Input, rest)
	case StoreContext:
		return GetPath(s.Context, rest)
	}
	return nil, false
}

// SetPath sets a dot-separated key inside m, creating nested maps as needed.
// An existing non-map value on the path is replaced.
func SetPath(m map[string]any, path string, value any) {
	if path == "" {
		return
	}
	parts := strings.Split(path, ".")
	cur := m
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[p] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = value
}

// GetPath reads a dot-separated key from m. An empty path returns m itself.
func GetPath(m map[string]any, path string) (any, bool) {
	if path == "" {
		return m, true
	}
	var cur any = m
	for _, p := range strings.Split(path, ".") {
		mm, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = mm[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
