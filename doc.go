/*
Package conduit is a host for conversational flow extensions.

An extension bundles node descriptors (the steps a flow designer drops into a
conversation), the connection schemas those nodes need and knowledge connectors that
import documents into a knowledge store. The Host validates node configuration against
the declared fields, resolves connections, runs the node function under a per-session
lock and persists the session between turns.

# Architecture

The core is framework agnostic and follows a ports and adapters layout:

  - pkg/domain: sessions, extensions, node descriptors and knowledge records.
  - pkg/ports: SessionStore, DistributedLocker, ConnectionResolver, KnowledgeSink.
  - pkg/adapters: memory, redis and sqlite stores, a connections file resolver, and
    the HTTP and MCP surfaces.
  - pkg/extensions: the bundled integrations (Marvel, Google Maps, OpenAI, Gemini,
    HubSpot, Microsoft Graph, SharePoint, Yext) and generic nodes (knowledge, nlu, logic).

# Usage

	host, err := conduit.New(
		conduit.WithExtensions(all.Extensions()...),
		conduit.WithConnectionResolver(resolver),
	)
	if err != nil {
		log.Fatal(err)
	}

	res, err := host.Execute(ctx, conduit.Request{
		SessionID: "session-123",
		Extension: "marvel",
		Node:      "getCharacter",
		Config:    map[string]any{"connection": "main", "name": "Hulk"},
	})

A node whose upstream call fails still returns a result: the session is saved with
input.conduitError set, and the error is a *NodeError.
*/
package conduit
