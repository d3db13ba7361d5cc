// ABOUTME: In-memory Store implementation for unit tests.
// ABOUTME: Mirrors SQLiteStore semantics including conditional slot and task updates.

package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MockStore is a map-backed Store for tests. It applies the same conditional
// update rules as SQLiteStore so race tests behave identically.
type MockStore struct {
	mu sync.Mutex

	sessions     map[string][]byte
	slots        map[string]*Slot
	appointments map[string]*Appointment
	cases        map[string]*Case
	caseBySess   map[string]string
	tasks        map[int64]*Task
	nextTaskID   int64
	operators    map[string]*Operator
	audit        []*AuditEvent
}

// NewMockStore creates an empty in-memory store.
func NewMockStore() *MockStore {
	return &MockStore{
		sessions:     make(map[string][]byte),
		slots:        make(map[string]*Slot),
		appointments: make(map[string]*Appointment),
		cases:        make(map[string]*Case),
		caseBySess:   make(map[string]string),
		tasks:        make(map[int64]*Task),
		nextTaskID:   1,
		operators:    make(map[string]*Operator),
	}
}

func (m *MockStore) SaveSessionState(_ context.Context, sessionID string, state []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(state))
	copy(cp, state)
	m.sessions[sessionID] = cp
	return nil
}

func (m *MockStore) GetSessionState(_ context.Context, sessionID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(state))
	copy(cp, state)
	return cp, nil
}

func (m *MockStore) DeleteSessionState(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

func (m *MockStore) CreateSlot(_ context.Context, slot *Slot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *slot
	if cp.Status == "" {
		cp.Status = SlotFree
	}
	m.slots[slot.ID] = &cp
	return nil
}

func (m *MockStore) GetSlot(_ context.Context, id string) (*Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.slots[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *slot
	return &cp, nil
}

func (m *MockStore) ListFreeSlots(_ context.Context, locationID, program string) ([]*Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Slot
	for _, slot := range m.slots {
		if slot.Status != SlotFree {
			continue
		}
		if locationID != "" && slot.LocationID != locationID {
			continue
		}
		if program != "" && slot.Program != program {
			continue
		}
		cp := *slot
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].When.Equal(out[j].When) {
			return out[i].ID < out[j].ID
		}
		return out[i].When.Before(out[j].When)
	})
	return out, nil
}

func (m *MockStore) CountSlots(_ context.Context, program string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, slot := range m.slots {
		if program == "" || slot.Program == program {
			n++
		}
	}
	return n, nil
}

func (m *MockStore) ReserveSlot(_ context.Context, appt *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.slots[appt.SlotID]
	if !ok {
		return ErrNotFound
	}
	if slot.Status != SlotFree {
		return ErrSlotUnavailable
	}
	slot.Status = SlotReserved
	cp := *appt
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	m.appointments[appt.ID] = &cp
	return nil
}

func (m *MockStore) ReleaseSlot(_ context.Context, appointmentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	appt, ok := m.appointments[appointmentID]
	if !ok {
		return ErrNotFound
	}
	delete(m.appointments, appointmentID)
	if slot, ok := m.slots[appt.SlotID]; ok {
		slot.Status = SlotFree
	}
	return nil
}

func (m *MockStore) GetAppointment(_ context.Context, id string) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	appt, ok := m.appointments[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *appt
	return &cp, nil
}

func (m *MockStore) CreateCase(_ context.Context, c *Case) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.caseBySess[c.SessionID]; exists {
		return ErrDuplicateCase
	}
	cp := *c
	now := time.Now().UTC()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = cp.CreatedAt
	m.cases[c.ID] = &cp
	m.caseBySess[c.SessionID] = c.ID
	return nil
}

func (m *MockStore) GetCase(_ context.Context, id string) (*Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cases[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MockStore) GetCaseBySession(_ context.Context, sessionID string) (*Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.caseBySess[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m.cases[id]
	return &cp, nil
}

func (m *MockStore) ListCases(_ context.Context, filter CaseFilter) ([]*Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Case
	for _, c := range m.cases {
		if filter.Program != "" && c.Program != filter.Program {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MockStore) UpdateCaseStatus(_ context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cases[id]
	if !ok {
		return ErrNotFound
	}
	c.Status = status
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MockStore) CreateTask(_ context.Context, t *Task) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	cp.ID = m.nextTaskID
	m.nextTaskID++
	if cp.Status == "" {
		cp.Status = TaskOpen
	}
	now := time.Now().UTC()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = cp.CreatedAt
	m.tasks[cp.ID] = &cp
	t.ID = cp.ID
	return cp.ID, nil
}

func (m *MockStore) GetTask(_ context.Context, id int64) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MockStore) ListTasks(_ context.Context, filter TaskFilter) ([]*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Task
	for _, t := range m.tasks {
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.Kind != "" && t.Kind != filter.Kind {
			continue
		}
		if filter.CaseID != "" && t.CaseID != filter.CaseID {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockStore) ClaimTask(_ context.Context, id int64, assignee string) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	switch {
	case t.Status == TaskOpen:
		t.Status = TaskClaimed
		t.Assignee = assignee
		t.UpdatedAt = time.Now().UTC()
	case t.Status == TaskClaimed && t.Assignee == assignee:
		// idempotent re-claim
	case t.Status == TaskClaimed:
		return nil, ErrTaskConflict
	default:
		return nil, ErrTaskConflict
	}
	cp := *t
	return &cp, nil
}

func (m *MockStore) CompleteTask(_ context.Context, id int64, assignee, notes string) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	if t.Status != TaskClaimed || t.Assignee != assignee {
		return nil, ErrTaskConflict
	}
	t.Status = TaskDone
	t.Notes = notes
	t.UpdatedAt = time.Now().UTC()
	cp := *t
	return &cp, nil
}

func (m *MockStore) CancelTask(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return ErrNotFound
	}
	if t.Status != TaskOpen && t.Status != TaskClaimed {
		return ErrTaskConflict
	}
	t.Status = TaskCancelled
	t.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MockStore) CreateOperator(_ context.Context, op *Operator) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *op
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	m.operators[op.Username] = &cp
	return nil
}

func (m *MockStore) GetOperatorByUsername(_ context.Context, username string) (*Operator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	op, ok := m.operators[username]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *op
	return &cp, nil
}

func (m *MockStore) AppendAudit(_ context.Context, ev *AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *ev
	cp.ID = int64(len(m.audit) + 1)
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	m.audit = append(m.audit, &cp)
	return nil
}

func (m *MockStore) ListAudit(_ context.Context, limit int) ([]*AuditEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.audit) {
		limit = len(m.audit)
	}
	out := make([]*AuditEvent, 0, limit)
	for i := len(m.audit) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *m.audit[i]
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MockStore) Close() error { return nil }
