// ABOUTME: Package documentation for the gateway orchestrator.
// ABOUTME: Describes component wiring and the HTTP surface.

// Package gateway wires the deskrelay server together and exposes its
// HTTP surface.
//
// A Gateway owns:
//
//   - the SQLite store (conversations, messages, tickets, knowledge base)
//   - the connection registry of live customer and agent sockets
//   - the ingestion pipeline (extract, analyze, persist, notify)
//   - the HTTP server carrying the REST API and WebSocket endpoints
//
// Customers and agents hold WebSocket connections at /ws/customer and
// /ws/agent purely for server push; all writes enter through the REST
// API under /api/. Ingested customer messages are analyzed, persisted,
// and then fanned out: the full analysis to every connected agent, a
// plain echo to the sending customer's other connections. Agent
// replies route to the owning customer of the conversation.
//
// Construction happens in New; nothing listens until Run, which blocks
// until the context is canceled and then shuts the server, registry,
// and store down in that order.
package gateway
