// ABOUTME: Package doc for scheduling
// ABOUTME: Describes slot inventory and appointment booking

// Package scheduling manages the bookable slot inventory: seeding,
// listing, and the reserve/cancel/reschedule operations. Reservation is
// exactly-once per slot; concurrent attempts on the same slot are
// serialized by a per-slot lock and settled by a conditional update in
// the store.
package scheduling
