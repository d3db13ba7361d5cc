// Package session holds conversation state for citizen sessions.
//
// # Overview
//
// Each citizen session carries a State: the flow phase, the answers the
// citizen declared, the facts the server verified, and a bounded history
// of turns. The two namespaces are deliberately separate. ClientDeclared
// values come straight from the browser and count only toward form
// completeness. ServerVerified values (recognized documents, a held slot,
// a created case) are established server-side and are the only inputs
// that advance the flow past document collection.
//
// # Phase Evaluation
//
// The flow is a straight line:
//
//	idle -> collecting_identity -> awaiting_documents ->
//	awaiting_slot -> ready_to_submit -> done
//
// Evaluate computes the earned phase from state plus a Guard of
// agent-supplied predicates. It is pure and idempotent; re-evaluating an
// unchanged session returns the same phase.
//
// # Concurrency
//
// All mutation goes through Manager.Update, which serializes writers per
// session id and persists only when the mutation function succeeds. A
// turn that fails halfway leaves no partial state behind.
package session
