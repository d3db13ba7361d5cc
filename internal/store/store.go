// ABOUTME: Store interface and data types for ghiseu-gateway persistence.
// ABOUTME: Defines Slot, Appointment, Case, Task, Operator structs and the Store interface.

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrSlotUnavailable is returned when a reservation loses the race for a slot.
var ErrSlotUnavailable = errors.New("slot unavailable")

// ErrTaskConflict is returned when a task is already claimed by a different operator.
var ErrTaskConflict = errors.New("task claimed by another operator")

// ErrDuplicateCase is returned when a case already exists for a session.
var ErrDuplicateCase = errors.New("case already exists for session")

// Slot status values.
const (
	SlotFree     = "free"
	SlotReserved = "reserved"
)

// Task status values. Transitions go open -> claimed -> done, never backward
// except via an explicit cancel.
const (
	TaskOpen      = "open"
	TaskClaimed   = "claimed"
	TaskDone      = "done"
	TaskCancelled = "cancelled"
)

// Slot is a bookable appointment time at a location. Rows are seeded at
// service start and mutated only through ReserveSlot/ReleaseSlot.
type Slot struct {
	ID         string
	LocationID string
	Program    string
	When       time.Time
	Status     string
}

// Appointment links a reserved slot to a person; created exactly once per
// successful reservation.
type Appointment struct {
	ID        string
	SlotID    string
	PersonID  string
	CaseID    string
	CreatedAt time.Time
}

// Case is a government-service request under review. At most one case exists
// per session; person and application payloads are stored as raw JSON for
// flexibility, matching what the citizen submitted.
type Case struct {
	ID              string
	SessionID       string
	Program         string
	Subtype         string
	Status          string
	PersonJSON      string
	ApplicationJSON string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Task is a human-in-the-loop review item attached to a case.
type Task struct {
	ID        int64
	CaseID    string
	Kind      string
	Status    string
	Assignee  string
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Operator is a console user. Only referenced by id from the workflow core.
type Operator struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// AuditEvent is an append-only trace record for operator-facing actions.
type AuditEvent struct {
	ID         int64
	Actor      string
	Action     string
	EntityType string
	EntityID   string
	Details    string
	CreatedAt  time.Time
}

// CaseFilter narrows ListCases results. Zero values match everything.
type CaseFilter struct {
	Program string
	Status  string
}

// TaskFilter narrows ListTasks results. Zero values match everything.
type TaskFilter struct {
	Status string
	Kind   string
	CaseID string
}

// Store defines persistence for the workflow orchestrator. SQLiteStore is the
// production implementation; MockStore backs unit tests.
type Store interface {
	// Session state blobs, keyed by session id. The session manager owns
	// serialization; the store only sees opaque bytes.
	SaveSessionState(ctx context.Context, sessionID string, state []byte) error
	GetSessionState(ctx context.Context, sessionID string) ([]byte, error)
	DeleteSessionState(ctx context.Context, sessionID string) error

	// Slots and appointments.
	CreateSlot(ctx context.Context, slot *Slot) error
	GetSlot(ctx context.Context, id string) (*Slot, error)
	ListFreeSlots(ctx context.Context, locationID, program string) ([]*Slot, error)
	CountSlots(ctx context.Context, program string) (int, error)
	// ReserveSlot flips the slot free->reserved and records the appointment in
	// one transaction. Returns ErrSlotUnavailable if the slot is not free.
	ReserveSlot(ctx context.Context, appt *Appointment) error
	// ReleaseSlot deletes the appointment and returns its slot to free.
	ReleaseSlot(ctx context.Context, appointmentID string) error
	GetAppointment(ctx context.Context, id string) (*Appointment, error)

	// Cases.
	CreateCase(ctx context.Context, c *Case) error
	GetCase(ctx context.Context, id string) (*Case, error)
	GetCaseBySession(ctx context.Context, sessionID string) (*Case, error)
	ListCases(ctx context.Context, filter CaseFilter) ([]*Case, error)
	UpdateCaseStatus(ctx context.Context, id, status string) error

	// Tasks.
	CreateTask(ctx context.Context, t *Task) (int64, error)
	GetTask(ctx context.Context, id int64) (*Task, error)
	ListTasks(ctx context.Context, filter TaskFilter) ([]*Task, error)
	// ClaimTask moves open->claimed. Re-claiming by the same assignee is a
	// no-op; a different assignee gets ErrTaskConflict.
	ClaimTask(ctx context.Context, id int64, assignee string) (*Task, error)
	// CompleteTask moves claimed->done, only for the claiming assignee.
	CompleteTask(ctx context.Context, id int64, assignee, notes string) (*Task, error)
	CancelTask(ctx context.Context, id int64) error

	// Operators.
	CreateOperator(ctx context.Context, op *Operator) error
	GetOperatorByUsername(ctx context.Context, username string) (*Operator, error)

	// Audit trail.
	AppendAudit(ctx context.Context, ev *AuditEvent) error
	ListAudit(ctx context.Context, limit int) ([]*AuditEvent, error)

	Close() error
}
