package domain

import (
	"fmt"
	"log/slog"
)

// Invocation is the handle a node function receives for one execution.
type Invocation struct {
	Extension string
	Node      NodeDescriptor

	Session *Session

	// Config holds the validated node configuration with defaults applied.
	Config map[string]any

	// Connection holds the resolved credential fields, nil when the node has none.
	Connection map[string]string

	Logger *slog.Logger

	selectedChild string
}

// Text returns the user text of the current turn.
func (inv *Invocation) Text() string {
	s, _ := inv.Session.Input["text"].(string)
	return s
}

// Store writes value into the session at target.
func (inv *Invocation) Store(target StorageTarget, value any) {
	inv.Session.Store(target, value)
}

// Fail writes the error message into the location the success path would have used.
func (inv *Invocation) Fail(target StorageTarget, err error) {
	if inv.Logger != nil {
		inv.Logger.Warn("node call failed", "err", err, "target", target.Type+"."+target.Key)
	}
	inv.Session.Store(target, map[string]any{"error": err.Error()})
}

// Say emits an output message.
func (inv *Invocation) Say(text string, data any) {
	inv.Session.Outputs = append(inv.Session.Outputs, Output{Text: text, Data: data})
}

// SelectChild chooses which declared child the flow continues with.
func (inv *Invocation) SelectChild(name string) error {
	if !inv.Node.HasChild(name) {
		return fmt.Errorf("%w: %s on %s", ErrUnknownChild, name, inv.Node.Type)
	}
	inv.selectedChild = name
	return nil
}

// SelectedChild returns the child chosen by the function, empty if none.
func (inv *Invocation) SelectedChild() string {
	return inv.selectedChild
}

// ExecutionResult is what the host reports back after running a node.
type ExecutionResult struct {
	SessionID     string         `json:"session_id"`
	Extension     string         `json:"extension"`
	Node          string         `json:"node"`
	SelectedChild string         `json:"selected_child,omitempty"`
	Outputs       []Output       `json:"outputs,omitempty"`
	Input         map[string]any `json:"input"`
	Context       map[string]any `json:"context"`
	Error         string         `json:"error,omitempty"`
}
