/*
Package session serialises access to conversation sessions.

A node execution is a read-modify-write of the session's Input and Context maps. The
Manager holds a per-session in-process mutex (reference counted, so idle sessions leave no
trace) and, when configured, a distributed lock so that replicas sharing a store never run
two nodes of the same session at once.
*/
package session
