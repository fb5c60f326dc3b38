package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeEnter    EventType = "node_enter"
	EventNodeLeave    EventType = "node_leave"
	EventConnectorRun EventType = "connector_run"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
}

// NodeEvent represents entry into or exit from a node function.
type NodeEvent struct {
	EventBase
	Extension string        `json:"extension"`
	NodeType  string        `json:"node_type"`
	Child     string        `json:"child,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
	IsError   bool          `json:"is_error,omitempty"`
}

// ConnectorEvent reports the outcome of a knowledge connector run.
type ConnectorEvent struct {
	EventBase
	Extension string        `json:"extension"`
	Connector string        `json:"connector"`
	Report    IngestReport  `json:"report"`
	Duration  time.Duration `json:"duration"`
	IsError   bool          `json:"is_error,omitempty"`
}

// LifecycleHooks defines callbacks for host observability.
type LifecycleHooks struct {
	OnNodeEnter    func(context.Context, *NodeEvent)
	OnNodeLeave    func(context.Context, *NodeEvent)
	OnConnectorRun func(context.Context, *ConnectorEvent)
}

// ChainHooks combines hooks so each callback runs in order.
func ChainHooks(hooks ...LifecycleHooks) LifecycleHooks {
	var out LifecycleHooks
	for _, h := range hooks {
		if h.OnNodeEnter != nil {
			prev := out.OnNodeEnter
			out.OnNodeEnter = func(ctx context.Context, e *NodeEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				h.OnNodeEnter(ctx, e)
			}
		}
		if h.OnNodeLeave != nil {
			prev := out.OnNodeLeave
			out.OnNodeLeave = func(ctx context.Context, e *NodeEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				h.OnNodeLeave(ctx, e)
			}
		}
		if h.OnConnectorRun != nil {
			prev := out.OnConnectorRun
			out.OnConnectorRun = func(ctx context.Context, e *ConnectorEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				h.OnConnectorRun(ctx, e)
			}
		}
	}
	return out
}
