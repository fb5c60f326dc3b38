/*
Package domain contains the core models shared by the conduit host and every extension.

It defines what an extension declares (nodes, connection schemas, knowledge connectors),
what a node function receives when it runs (Invocation) and where it writes its results
(the per-session Input and Context stores). The package is free of I/O and persistence.

# Key Entities

  - Extension: a bundle of node descriptors, connection schemas and knowledge connectors.
  - NodeDescriptor: field metadata, declared children and the function to run.
  - Session: the conversation-scoped Input and Context maps plus emitted outputs.
  - Invocation: the handle passed to a node function for one execution.
  - KnowledgeSource / KnowledgeChunk: records emitted by knowledge connectors.
*/
package domain
