// Package store provides persistent storage for the gateway using SQLite.
//
// # Architecture
//
// A single Store interface covers the orchestrator's persistence: session
// state blobs, appointment slots, cases with their human-review tasks,
// operator accounts, and the audit trail. SQLiteStore implements it for
// production; MockStore is an in-memory implementation for unit tests.
//
// # Concurrency
//
// The store performs the conditional updates the orchestrator's guarantees
// rest on:
//
//   - ReserveSlot flips a slot free->reserved with a guarded UPDATE inside a
//     transaction, so exactly one concurrent reservation wins.
//   - ClaimTask applies the open->claimed transition only when the task is
//     unclaimed or already claimed by the same operator.
//   - CreateCase enforces at most one case per session with a unique index.
//
// # SQLite Configuration
//
// SQLite runs with WAL mode and foreign keys on:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// Use NewSQLiteStore(":memory:") in tests that need real SQL semantics.
//
// # Error Handling
//
// Methods return the package sentinels (ErrNotFound, ErrSlotUnavailable,
// ErrTaskConflict, ErrDuplicateCase), optionally wrapped, so services can
// translate them into domain errors with errors.Is.
package store
