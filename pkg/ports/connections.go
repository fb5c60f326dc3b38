package ports

import "context"

// ConnectionResolver looks up the credential fields of a configured connection.
type ConnectionResolver interface {
	// Resolve returns the fields of connection id, which must be of connType.
	// Returns domain.ErrConnectionNotFound when the id is unknown or of another type.
	Resolve(ctx context.Context, connType, id string) (map[string]string, error)
}
