package runtime

import (
	"errors"
	"fmt"
)

// ErrNoIngestor is returned by RunConnector when no ingestor was configured.
var ErrNoIngestor = errors.New("no knowledge ingestor configured")

// NodeError reports a failure returned (or panicked) by a node function.
// The session is still persisted when a NodeError is returned.
type NodeError struct {
	Extension string
	Node      string
	Err       error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s.%s failed: %v", e.Extension, e.Node, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}
