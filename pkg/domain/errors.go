package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrExtensionNotFound is returned when no extension is registered under a name.
var ErrExtensionNotFound = errors.New("extension not found")

// ErrNodeNotFound is returned when an extension does not declare a node type.
var ErrNodeNotFound = errors.New("node not found")

// ErrConnectorNotFound is returned when an extension does not declare a knowledge connector.
var ErrConnectorNotFound = errors.New("knowledge connector not found")

// ErrConnectionNotFound is returned when a connection id cannot be resolved.
var ErrConnectionNotFound = errors.New("connection not found")

// ErrUnknownChild is returned when a node selects a child it did not declare.
var ErrUnknownChild = errors.New("unknown child node")

// ErrInvalidConfig is returned when a node configuration fails validation.
var ErrInvalidConfig = errors.New("invalid node configuration")

// ErrDuplicate is returned when registering something that already exists.
var ErrDuplicate = errors.New("already registered")

// ErrSourceNotFound is returned when a knowledge source does not exist in a sink.
var ErrSourceNotFound = errors.New("knowledge source not found")
