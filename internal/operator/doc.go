// Package operator implements the human-in-the-loop back office.
//
// # Overview
//
// Operators review submitted cases through tasks. A task is claimed by
// exactly one operator at a time; claims are first-come-first-served,
// re-claiming a task you already hold is a no-op, and claiming someone
// else's task fails with store.ErrTaskConflict. Completion requires the
// task to be claimed by the caller.
//
// # Chat Commands
//
// The operator console accepts a small free-text grammar:
//
//	list tasks
//	claim task 5
//	done task 5 notes: acte in regula
//	list cases
//	advance case CASE-AB12CD34 to READY_FOR_PICKUP
//
// Unrecognized text never mutates state.
//
// # Authentication
//
// Operators log in with username and password (bcrypt-hashed at rest)
// and receive an HS256 JWT. Every console operation requires a valid
// token; there is no anonymous access.
package operator
