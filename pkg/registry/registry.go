package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/conduit/pkg/domain"
	"github.com/aretw0/conduit/pkg/schema"
)

// Registry holds the extensions known to the host.
type Registry struct {
	mu         sync.RWMutex
	extensions map[string]domain.Extension
}

// New creates a new empty registry.
func New() *Registry {
	return &Registry{
		extensions: make(map[string]domain.Extension),
	}
}

// Register validates an extension and adds it to the registry.
// Unlike tools, extensions are never overwritten: a second registration under the same
// name fails with domain.ErrDuplicate.
func (r *Registry) Register(ext domain.Extension) error {
	if err := validate(ext); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.extensions[ext.Name]; exists {
		return fmt.Errorf("%w: extension %q", domain.ErrDuplicate, ext.Name)
	}
	r.extensions[ext.Name] = ext
	return nil
}

// MustRegister registers every extension and panics on the first error.
func (r *Registry) MustRegister(exts ...domain.Extension) {
	for _, ext := range exts {
		if err := r.Register(ext); err != nil {
			panic(err)
		}
	}
}

func validate(ext domain.Extension) error {
	if ext.Name == "" {
		return fmt.Errorf("%w: extension without name", domain.ErrInvalidConfig)
	}

	conns := make(map[string]bool, len(ext.Connections))
	for _, c := range ext.Connections {
		if conns[c.Type] {
			return fmt.Errorf("%w: connection %q in %s", domain.ErrDuplicate, c.Type, ext.Name)
		}
		conns[c.Type] = true
	}

	checkRef := func(kind, name string, ref *domain.ConnectionRef) error {
		if ref == nil {
			return nil
		}
		if !conns[ref.Type] {
			return fmt.Errorf("%w: %s %s.%s uses undeclared connection %q", domain.ErrInvalidConfig, kind, ext.Name, name, ref.Type)
		}
		if ref.FieldKey == "" {
			return fmt.Errorf("%w: %s %s.%s has a connection without field key", domain.ErrInvalidConfig, kind, ext.Name, name)
		}
		return nil
	}

	nodes := make(map[string]bool, len(ext.Nodes))
	for _, n := range ext.Nodes {
		if n.Type == "" {
			return fmt.Errorf("%w: node without type in %s", domain.ErrInvalidConfig, ext.Name)
		}
		if nodes[n.Type] {
			return fmt.Errorf("%w: node %q in %s", domain.ErrDuplicate, n.Type, ext.Name)
		}
		nodes[n.Type] = true
		if n.Function == nil {
			return fmt.Errorf("%w: node %s.%s has no function", domain.ErrInvalidConfig, ext.Name, n.Type)
		}
		if err := checkRef("node", n.Type, n.Connection); err != nil {
			return err
		}
		if _, err := schema.Compile(n.Fields); err != nil {
			return fmt.Errorf("%w: node %s.%s: %v", domain.ErrInvalidConfig, ext.Name, n.Type, err)
		}
	}

	connectors := make(map[string]bool, len(ext.KnowledgeConnectors))
	for _, k := range ext.KnowledgeConnectors {
		if connectors[k.Type] {
			return fmt.Errorf("%w: knowledge connector %q in %s", domain.ErrDuplicate, k.Type, ext.Name)
		}
		connectors[k.Type] = true
		if k.Function == nil {
			return fmt.Errorf("%w: knowledge connector %s.%s has no function", domain.ErrInvalidConfig, ext.Name, k.Type)
		}
		if err := checkRef("knowledge connector", k.Type, k.Connection); err != nil {
			return err
		}
		if _, err := schema.Compile(k.Fields); err != nil {
			return fmt.Errorf("%w: knowledge connector %s.%s: %v", domain.ErrInvalidConfig, ext.Name, k.Type, err)
		}
	}
	return nil
}

// Extension returns a registered extension by name.
func (r *Registry) Extension(name string) (domain.Extension, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ext, ok := r.extensions[name]
	if !ok {
		return domain.Extension{}, fmt.Errorf("%w: %s", domain.ErrExtensionNotFound, name)
	}
	return ext, nil
}

// Node looks up a node descriptor.
func (r *Registry) Node(extension, nodeType string) (domain.NodeDescriptor, error) {
	ext, err := r.Extension(extension)
	if err != nil {
		return domain.NodeDescriptor{}, err
	}
	for _, n := range ext.Nodes {
		if n.Type == nodeType {
			return n, nil
		}
	}
	return domain.NodeDescriptor{}, fmt.Errorf("%w: %s.%s", domain.ErrNodeNotFound, extension, nodeType)
}

// Connector looks up a knowledge connector.
func (r *Registry) Connector(extension, connectorType string) (domain.KnowledgeConnector, error) {
	ext, err := r.Extension(extension)
	if err != nil {
		return domain.KnowledgeConnector{}, err
	}
	for _, k := range ext.KnowledgeConnectors {
		if k.Type == connectorType {
			return k, nil
		}
	}
	return domain.KnowledgeConnector{}, fmt.Errorf("%w: %s.%s", domain.ErrConnectorNotFound, extension, connectorType)
}

// Connection looks up a connection schema.
func (r *Registry) Connection(extension, connType string) (domain.ConnectionSchema, error) {
	ext, err := r.Extension(extension)
	if err != nil {
		return domain.ConnectionSchema{}, err
	}
	c, ok := ext.FindConnection(connType)
	if !ok {
		return domain.ConnectionSchema{}, fmt.Errorf("%w: %s.%s", domain.ErrConnectionNotFound, extension, connType)
	}
	return c, nil
}

// Extensions returns the registered extension names in sorted order.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.extensions))
	for name := range r.extensions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Catalogue returns every registered extension sorted by name.
// Functions are tagged json:"-", so the result is safe to serialise.
func (r *Registry) Catalogue() []domain.Extension {
	names := r.Extensions()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Extension, 0, len(names))
	for _, name := range names {
		out = append(out, r.extensions[name])
	}
	return out
}
