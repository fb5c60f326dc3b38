package domain

import "context"

// FieldType constants define how a node field is edited and validated.
const (
	// FieldText is a single line string.
	FieldText = "text"
	// FieldTextArea is a multi line string.
	FieldTextArea = "textArea"
	// FieldTextArray is a list of strings.
	FieldTextArray = "textArray"
	// FieldNumber accepts integers and floats (numeric strings are coerced).
	FieldNumber = "number"
	// FieldToggle is a boolean switch.
	FieldToggle = "toggle"
	// FieldSelect restricts the value to one of Field.Options.
	FieldSelect = "select"
	// FieldJSON accepts an object, an array or a string holding JSON.
	FieldJSON = "json"
	// FieldConnection holds the id of a connection of the node's ConnectionRef type.
	FieldConnection = "connection"
)

// Extension is a deployable bundle registered with the host in a single call.
type Extension struct {
	Name        string `json:"name" yaml:"name"`
	Label       string `json:"label,omitempty" yaml:"label,omitempty"`
	Version     string `json:"version,omitempty" yaml:"version,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	Nodes               []NodeDescriptor     `json:"nodes" yaml:"nodes"`
	Connections         []ConnectionSchema   `json:"connections,omitempty" yaml:"connections,omitempty"`
	KnowledgeConnectors []KnowledgeConnector `json:"knowledge_connectors,omitempty" yaml:"knowledge_connectors,omitempty"`
}

// ConnectionSchema declares the credential fields a connection of Type must carry.
type ConnectionSchema struct {
	Type   string            `json:"type" yaml:"type"`
	Label  string            `json:"label,omitempty" yaml:"label,omitempty"`
	Fields []ConnectionField `json:"fields" yaml:"fields"`
}

// ConnectionField is one credential entry of a connection.
type ConnectionField struct {
	Name     string `json:"name" yaml:"name"`
	Label    string `json:"label,omitempty" yaml:"label,omitempty"`
	Required bool   `json:"required" yaml:"required"`
}

// ConnectionRef binds a node (or connector) to a connection schema.
// FieldKey is the config key holding the connection id.
type ConnectionRef struct {
	Type     string `json:"type" yaml:"type"`
	FieldKey string `json:"field_key" yaml:"field_key"`
}

// Field describes one configurable input of a node or connector.
type Field struct {
	Key         string   `json:"key" yaml:"key"`
	Type        string   `json:"type" yaml:"type"`
	Label       string   `json:"label,omitempty" yaml:"label,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Default     any      `json:"default,omitempty" yaml:"default,omitempty"`
	Required    bool     `json:"required,omitempty" yaml:"required,omitempty"`
	Options     []string `json:"options,omitempty" yaml:"options,omitempty"`
}

// Section groups fields for presentation. It carries no behaviour.
type Section struct {
	Key    string   `json:"key" yaml:"key"`
	Label  string   `json:"label" yaml:"label"`
	Fields []string `json:"fields" yaml:"fields"`
}

// NodeFunc is the body of a node. It writes results through the Invocation.
type NodeFunc func(ctx context.Context, inv *Invocation) error

// NodeDescriptor is the static declaration of a flow step.
type NodeDescriptor struct {
	Type         string    `json:"type" yaml:"type"`
	DefaultLabel string    `json:"default_label" yaml:"default_label"`
	Summary      string    `json:"summary,omitempty" yaml:"summary,omitempty"`
	Fields       []Field   `json:"fields,omitempty" yaml:"fields,omitempty"`
	Sections     []Section `json:"sections,omitempty" yaml:"sections,omitempty"`

	// Children lists the child node names the function may select (e.g. "onFound").
	Children []string `json:"children,omitempty" yaml:"children,omitempty"`

	Connection *ConnectionRef `json:"connection,omitempty" yaml:"connection,omitempty"`

	Function NodeFunc `json:"-" yaml:"-"`
}

// HasChild reports whether name is a declared child of the node.
func (n NodeDescriptor) HasChild(name string) bool {
	for _, c := range n.Children {
		if c == name {
			return true
		}
	}
	return false
}

// ConnectorFunc is the body of a knowledge connector.
type ConnectorFunc func(ctx context.Context, run *ConnectorRun) error

// KnowledgeConnector imports documents from an external system into a knowledge sink.
type KnowledgeConnector struct {
	Type       string         `json:"type" yaml:"type"`
	Label      string         `json:"label" yaml:"label"`
	Summary    string         `json:"summary,omitempty" yaml:"summary,omitempty"`
	Fields     []Field        `json:"fields,omitempty" yaml:"fields,omitempty"`
	Connection *ConnectionRef `json:"connection,omitempty" yaml:"connection,omitempty"`

	Function ConnectorFunc `json:"-" yaml:"-"`
}

// FindConnection returns the schema of the given connection type.
func (e Extension) FindConnection(connType string) (ConnectionSchema, bool) {
	for _, c := range e.Connections {
		if c.Type == connType {
			return c, true
		}
	}
	return ConnectionSchema{}, false
}
