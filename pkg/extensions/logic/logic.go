// Package logic branches a flow on CEL expressions over the session state.
package logic

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/conduit/internal/runtime"
	"github.com/aretw0/conduit/pkg/domain"
	"github.com/google/cel-go/cel"
)

const Name = "logic"

// Child names of condition.
const (
	ChildTrue  = "onTrue"
	ChildFalse = "onFalse"
)

// Extension returns the logic extension.
func Extension() domain.Extension {
	ev := &evaluator{}
	return domain.Extension{
		Name:    Name,
		Label:   "Logic",
		Version: "1.0.0",
		Nodes:   []domain.NodeDescriptor{condition(ev)},
	}
}

func condition(ev *evaluator) domain.NodeDescriptor {
	return domain.NodeDescriptor{
		Type:         "condition",
		DefaultLabel: "Condition",
		Summary:      "Evaluates a CEL expression over input and context",
		Fields: []domain.Field{
			{Key: "expression", Type: domain.FieldTextArea, Label: "Expression", Required: true,
				Description: `e.g. has(context.user) && input.text.contains("refund")`},
		},
		Children: []string{ChildTrue, ChildFalse},
		Function: func(ctx context.Context, inv *domain.Invocation) error {
			var cfg struct {
				Expression string `json:"expression"`
			}
			if err := runtime.Decode(inv.Config, &cfg); err != nil {
				return err
			}
			ok, err := ev.Eval(cfg.Expression, inv.Session.Input, inv.Session.Context)
			if err != nil {
				inv.Store(domain.StorageTarget{Type: domain.StoreInput, Key: "condition"}, map[string]any{"error": err.Error()})
				return err
			}
			if ok {
				return inv.SelectChild(ChildTrue)
			}
			return inv.SelectChild(ChildFalse)
		},
	}
}

// evaluator caches compiled programs by expression.
type evaluator struct {
	once     sync.Once
	env      *cel.Env
	envErr   error
	programs sync.Map
}

func (e *evaluator) program(expr string) (cel.Program, error) {
	e.once.Do(func() {
		e.env, e.envErr = cel.NewEnv(
			cel.Variable("input", cel.MapType(cel.StringType, cel.DynType)),
			cel.Variable("context", cel.MapType(cel.StringType, cel.DynType)),
		)
	})
	if e.envErr != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", e.envErr)
	}
	if p, ok := e.programs.Load(expr); ok {
		return p.(cel.Program), nil
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: expression: %v", domain.ErrInvalidConfig, issues.Err())
	}
	p, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to build CEL program: %w", err)
	}
	e.programs.Store(expr, p)
	return p, nil
}

// Eval runs expr with the session maps bound to input and context.
func (e *evaluator) Eval(expr string, input, sessionContext map[string]any) (bool, error) {
	p, err := e.program(expr)
	if err != nil {
		return false, err
	}
	if input == nil {
		input = map[string]any{}
	}
	if sessionContext == nil {
		sessionContext = map[string]any{}
	}
	out, _, err := p.Eval(map[string]any{"input": input, "context": sessionContext})
	if err != nil {
		return false, fmt.Errorf("failed to evaluate condition: %w", err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("condition evaluated to %v, want bool", out.Value())
	}
	return b, nil
}
