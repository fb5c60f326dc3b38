/*
Package ports defines the driven ports (interfaces) of the conduit host.

These interfaces decouple node execution from the backends that hold session state,
credentials and knowledge chunks.

# Key Interfaces

  - SessionStore: persists per-conversation Input/Context state.
  - DistributedLocker: serialises access to a session across replicas.
  - ConnectionResolver: turns a connection id into credential fields.
  - KnowledgeSink: receives knowledge sources and chunks from connectors.
*/
package ports
