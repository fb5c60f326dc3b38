package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/conduit/internal/logging"
	"github.com/aretw0/conduit/pkg/domain"
	"github.com/aretw0/conduit/pkg/ports"
	"github.com/aretw0/conduit/pkg/registry"
	"github.com/aretw0/conduit/pkg/schema"
	"github.com/aretw0/conduit/pkg/session"
	"github.com/google/uuid"
)

// ErrorKey is the input key that receives the message of a failed node function.
const ErrorKey = "conduitError"

// Request asks the executor to run one node against a session.
type Request struct {
	SessionID string         `json:"session_id"`
	Extension string         `json:"extension"`
	Node      string         `json:"node"`
	Config    map[string]any `json:"config"`
	Text      string         `json:"text"`
	Data      any            `json:"data,omitempty"`
}

// Executor runs node functions and knowledge connectors registered in a Registry.
type Executor struct {
	registry    *registry.Registry
	sessions    *session.Manager
	resolver    ports.ConnectionResolver
	ingestor    domain.Ingestor
	hooks       domain.LifecycleHooks
	nodeTimeout time.Duration
	logger      *slog.Logger
}

// NewExecutor creates an executor with dependencies.
func NewExecutor(reg *registry.Registry, sessions *session.Manager, opts ...ExecutorOption) *Executor {
	e := &Executor{
		registry:    reg,
		sessions:    sessions,
		nodeTimeout: 30 * time.Second,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute validates the request, runs the node under the session lock and persists the
// session. When the node function fails the session is still saved, the message is
// written to input.conduitError and both the result and a *NodeError are returned.
func (e *Executor) Execute(ctx context.Context, req Request) (*domain.ExecutionResult, error) {
	node, err := e.registry.Node(req.Extension, req.Node)
	if err != nil {
		return nil, err
	}

	cfg, err := applySchema(node.Fields, req.Config)
	if err != nil {
		return nil, err
	}

	conn, err := e.resolveConnection(ctx, req.Extension, node.Connection, cfg)
	if err != nil {
		return nil, err
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	logger := e.logger.With("extension", req.Extension, "node", req.Node, "session_id", sessionID)

	var (
		nodeErr error
		child   string
	)
	sess, err := e.sessions.Update(ctx, sessionID, func(ctx context.Context, s *domain.Session) error {
		s.Outputs = nil
		s.Input["text"] = req.Text
		if req.Data != nil {
			s.Input["data"] = req.Data
		} else {
			delete(s.Input, "data")
		}
		delete(s.Input, ErrorKey)

		inv := &domain.Invocation{
			Extension:  req.Extension,
			Node:       node,
			Session:    s,
			Config:     cfg,
			Connection: conn,
			Logger:     logger,
		}

		start := time.Now()
		if e.hooks.OnNodeEnter != nil {
			e.hooks.OnNodeEnter(ctx, &domain.NodeEvent{
				EventBase: domain.EventBase{Timestamp: start, Type: domain.EventNodeEnter, SessionID: sessionID},
				Extension: req.Extension,
				NodeType:  req.Node,
			})
		}

		nodeErr = e.call(ctx, node.Function, inv)
		if nodeErr != nil {
			logger.Warn("node function failed", "err", nodeErr)
			s.Input[ErrorKey] = nodeErr.Error()
		}
		child = inv.SelectedChild()
		s.History = append(s.History, req.Extension+"."+req.Node)

		if e.hooks.OnNodeLeave != nil {
			e.hooks.OnNodeLeave(ctx, &domain.NodeEvent{
				EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventNodeLeave, SessionID: sessionID},
				Extension: req.Extension,
				NodeType:  req.Node,
				Child:     child,
				Duration:  time.Since(start),
				IsError:   nodeErr != nil,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	snap := sess.Snapshot()
	result := &domain.ExecutionResult{
		SessionID:     sessionID,
		Extension:     req.Extension,
		Node:          req.Node,
		SelectedChild: child,
		Outputs:       snap.Outputs,
		Input:         snap.Input,
		Context:       snap.Context,
	}
	if nodeErr != nil {
		result.Error = nodeErr.Error()
		return result, &NodeError{Extension: req.Extension, Node: req.Node, Err: nodeErr}
	}
	logger.Debug("node executed", "child", child)
	return result, nil
}

// call runs fn with the node timeout and turns a panic into an error.
func (e *Executor) call(ctx context.Context, fn domain.NodeFunc, inv *domain.Invocation) (err error) {
	if e.nodeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.nodeTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx, inv)
}

func applySchema(fields []domain.Field, raw map[string]any) (map[string]any, error) {
	s, err := schema.Compile(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
	}
	cfg, err := s.Apply(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
	}
	return cfg, nil
}

// resolveConnection fetches the credentials referenced by cfg and checks the required
// fields of the connection schema.
func (e *Executor) resolveConnection(ctx context.Context, extension string, ref *domain.ConnectionRef, cfg map[string]any) (map[string]string, error) {
	if ref == nil {
		return nil, nil
	}

	id, _ := cfg[ref.FieldKey].(string)
	if id == "" {
		return nil, fmt.Errorf("%w: field %q must name a %s connection", domain.ErrInvalidConfig, ref.FieldKey, ref.Type)
	}
	if e.resolver == nil {
		return nil, fmt.Errorf("%w: no resolver for %s/%s", domain.ErrConnectionNotFound, ref.Type, id)
	}

	schemaDef, err := e.registry.Connection(extension, ref.Type)
	if err != nil {
		return nil, err
	}

	fields, err := e.resolver.Resolve(ctx, ref.Type, id)
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, f := range schemaDef.Fields {
		if f.Required && fields[f.Name] == "" {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: connection %s/%s is missing %v", domain.ErrInvalidConfig, ref.Type, id, missing)
	}
	return fields, nil
}
