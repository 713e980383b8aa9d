// Package store provides persistent storage for deskrelay using SQLite.
//
// # Data Models
//
//   - Customer: A support customer identified by an external ID
//   - Conversation: One support exchange, optionally assigned to an agent
//   - Message: Customer or agent message, immutable once saved, with
//     the analysis enrichment captured at ingestion time
//   - Ticket: An escalation raised by an agent against a conversation
//   - Article: Knowledge-base entry used to ground analysis suggestions
//
// # SQLite Configuration
//
// The store uses SQLite with WAL mode for concurrent reads:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// Timestamps are stored as RFC 3339 strings in UTC. Insertion order
// breaks ties between messages saved within the same second.
//
// # Error Handling
//
// Sentinel errors carry the domain's state-machine rules:
//
//   - ErrNotFound: Requested entity does not exist
//   - ErrAssignmentConflict: Conversation already owned by another agent
//   - ErrNotAssigned: Unassign attempted on an unassigned conversation
//   - ErrTicketResolved: Resolve attempted on a resolved ticket
//
// All methods accept context.Context for cancellation support. Use
// NewSQLiteStore with a temp path for integration tests.
package store
