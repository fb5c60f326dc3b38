package runtime_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/conduit/internal/runtime"
	"github.com/aretw0/conduit/pkg/adapters/memory"
	"github.com/aretw0/conduit/pkg/domain"
	"github.com/aretw0/conduit/pkg/registry"
	"github.com/aretw0/conduit/pkg/schema"
	"github.com/aretw0/conduit/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticResolver map[string]map[string]string

func (r staticResolver) Resolve(_ context.Context, connType, id string) (map[string]string, error) {
	fields, ok := r[connType+"/"+id]
	if !ok {
		return nil, domain.ErrConnectionNotFound
	}
	return fields, nil
}

var target = domain.StorageTarget{Type: domain.StoreContext, Key: "greeting.text"}

func testExtension() domain.Extension {
	return domain.Extension{
		Name: "demo",
		Connections: []domain.ConnectionSchema{
			{Type: "api", Fields: []domain.ConnectionField{{Name: "token", Required: true}}},
		},
		Nodes: []domain.NodeDescriptor{
			{
				Type: "greet",
				Fields: []domain.Field{
					{Key: "connection", Type: domain.FieldConnection, Required: true},
					{Key: "name", Type: domain.FieldText, Required: true},
					{Key: "times", Type: domain.FieldNumber, Default: 1},
				},
				Children:   []string{"onDone"},
				Connection: &domain.ConnectionRef{Type: "api", FieldKey: "connection"},
				Function: func(ctx context.Context, inv *domain.Invocation) error {
					var cfg struct {
						Name  string `json:"name"`
						Times int    `json:"times"`
					}
					if err := runtime.Decode(inv.Config, &cfg); err != nil {
						return err
					}
					inv.Store(target, cfg.Name+"/"+inv.Connection["token"])
					inv.Say("hi "+cfg.Name, cfg.Times)
					return inv.SelectChild("onDone")
				},
			},
			{
				Type: "broken",
				Function: func(ctx context.Context, inv *domain.Invocation) error {
					return errors.New("upstream said no")
				},
			},
			{
				Type: "panics",
				Function: func(ctx context.Context, inv *domain.Invocation) error {
					panic("boom")
				},
			},
			{
				Type: "slow",
				Function: func(ctx context.Context, inv *domain.Invocation) error {
					<-ctx.Done()
					return ctx.Err()
				},
			},
		},
	}
}

func newExecutor(t *testing.T, opts ...runtime.ExecutorOption) (*runtime.Executor, *memory.Store) {
	t.Helper()
	reg := registry.New()
	require.NoError(t, reg.Register(testExtension()))
	store := memory.NewStore()
	opts = append([]runtime.ExecutorOption{
		runtime.WithConnectionResolver(staticResolver{"api/main": {"token": "t0k"}, "api/empty": {}}),
	}, opts...)
	return runtime.NewExecutor(reg, session.NewManager(store), opts...), store
}

func TestExecute_StoresAndSelectsChild(t *testing.T) {
	exec, store := newExecutor(t)
	ctx := context.Background()

	res, err := exec.Execute(ctx, runtime.Request{
		SessionID: "s1",
		Extension: "demo",
		Node:      "greet",
		Config:    map[string]any{"connection": "main", "name": "Ada", "times": "3"},
		Text:      "hello",
	})
	require.NoError(t, err)

	assert.Equal(t, "onDone", res.SelectedChild)
	assert.Equal(t, "hello", res.Input["text"])
	assert.Equal(t, map[string]any{"text": "Ada/t0k"}, res.Context["greeting"])
	require.Len(t, res.Outputs, 1)
	assert.Equal(t, "hi Ada", res.Outputs[0].Text)
	assert.EqualValues(t, 3, res.Outputs[0].Data)

	saved, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"demo.greet"}, saved.History)
}

func TestExecute_GeneratesSessionID(t *testing.T) {
	exec, _ := newExecutor(t)
	res, err := exec.Execute(context.Background(), runtime.Request{
		Extension: "demo",
		Node:      "broken",
	})
	require.Error(t, err)
	assert.NotEmpty(t, res.SessionID)
}

func TestExecute_InvalidConfig(t *testing.T) {
	exec, store := newExecutor(t)

	_, err := exec.Execute(context.Background(), runtime.Request{
		SessionID: "s1",
		Extension: "demo",
		Node:      "greet",
		Config:    map[string]any{"connection": "main", "times": "many"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	var agg *schema.AggregateError
	require.ErrorAs(t, err, &agg)
	assert.Len(t, agg.Errors, 2)

	ids, _ := store.List(context.Background())
	assert.Empty(t, ids, "no session is created for rejected requests")
}

func TestExecute_ConnectionErrors(t *testing.T) {
	exec, _ := newExecutor(t)
	ctx := context.Background()

	_, err := exec.Execute(ctx, runtime.Request{Extension: "demo", Node: "greet",
		Config: map[string]any{"connection": "nope", "name": "x"}})
	assert.ErrorIs(t, err, domain.ErrConnectionNotFound)

	_, err = exec.Execute(ctx, runtime.Request{Extension: "demo", Node: "greet",
		Config: map[string]any{"connection": "empty", "name": "x"}})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "token")
}

func TestExecute_UnknownNode(t *testing.T) {
	exec, _ := newExecutor(t)
	_, err := exec.Execute(context.Background(), runtime.Request{Extension: "demo", Node: "nothing"})
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)

	_, err = exec.Execute(context.Background(), runtime.Request{Extension: "other", Node: "greet"})
	assert.ErrorIs(t, err, domain.ErrExtensionNotFound)
}

func TestExecute_NodeFailurePersistsError(t *testing.T) {
	exec, store := newExecutor(t)
	ctx := context.Background()

	res, err := exec.Execute(ctx, runtime.Request{SessionID: "s2", Extension: "demo", Node: "broken"})
	var nodeErr *runtime.NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "broken", nodeErr.Node)
	assert.Equal(t, "upstream said no", res.Error)

	saved, err := store.Load(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, "upstream said no", saved.Input[runtime.ErrorKey])

	// The next successful turn clears the error.
	_, err = exec.Execute(ctx, runtime.Request{SessionID: "s2", Extension: "demo", Node: "greet",
		Config: map[string]any{"connection": "main", "name": "x"}})
	require.NoError(t, err)
	saved, _ = store.Load(ctx, "s2")
	assert.NotContains(t, saved.Input, runtime.ErrorKey)
}

func TestExecute_RecoversPanic(t *testing.T) {
	exec, _ := newExecutor(t)
	res, err := exec.Execute(context.Background(), runtime.Request{Extension: "demo", Node: "panics"})
	require.Error(t, err)
	assert.Contains(t, res.Error, "panic: boom")
}

func TestExecute_NodeTimeout(t *testing.T) {
	exec, _ := newExecutor(t, runtime.WithNodeTimeout(20*time.Millisecond))
	_, err := exec.Execute(context.Background(), runtime.Request{Extension: "demo", Node: "slow"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExecute_LifecycleHooks(t *testing.T) {
	var entered, left []string
	var leaveErr []bool
	hooks := domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			entered = append(entered, e.NodeType)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			left = append(left, e.NodeType+":"+e.Child)
			leaveErr = append(leaveErr, e.IsError)
		},
	}
	exec, _ := newExecutor(t, runtime.WithLifecycleHooks(hooks))
	ctx := context.Background()

	_, err := exec.Execute(ctx, runtime.Request{Extension: "demo", Node: "greet",
		Config: map[string]any{"connection": "main", "name": "x"}})
	require.NoError(t, err)
	_, _ = exec.Execute(ctx, runtime.Request{Extension: "demo", Node: "broken"})

	assert.Equal(t, []string{"greet", "broken"}, entered)
	assert.Equal(t, []string{"greet:onDone", "broken:"}, left)
	assert.Equal(t, []bool{false, true}, leaveErr)
}

func TestDecode_WeaklyTyped(t *testing.T) {
	var out struct {
		Limit int      `json:"limit"`
		On    bool     `json:"on"`
		Tags  []string `json:"tags"`
	}
	require.NoError(t, runtime.Decode(map[string]any{"limit": "7", "on": 1, "tags": []string{"a"}}, &out))
	assert.Equal(t, 7, out.Limit)
	assert.True(t, out.On)
	assert.Equal(t, []string{"a"}, out.Tags)
}
