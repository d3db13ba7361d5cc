// ABOUTME: Appointment slot listing, reservation, and cancellation
// ABOUTME: Per-slot locks plus store-level check-and-set keep reservations atomic

package scheduling

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/unibuc-cs/ghiseu-gateway/internal/store"
)

// Service coordinates appointment slots. Reservation correctness rests on
// two layers: a per-slot mutex serializes in-process contenders, and the
// store's conditional update is the final arbiter, so two processes
// sharing one database still cannot double-book.
type Service struct {
	store  store.Store
	logger *slog.Logger

	mu        sync.Mutex
	slotLocks map[string]*sync.Mutex
}

// NewService creates a Service. Pass nil logger for default.
func NewService(st store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     st,
		logger:    logger.With("component", "scheduling"),
		slotLocks: make(map[string]*sync.Mutex),
	}
}

func (s *Service) slotLock(slotID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.slotLocks[slotID]
	if !ok {
		l = &sync.Mutex{}
		s.slotLocks[slotID] = l
	}
	return l
}

// ListSlots returns the free slots for a location and program, ordered by
// time. Empty location or program matches all.
func (s *Service) ListSlots(ctx context.Context, locationID, program string) ([]*store.Slot, error) {
	return s.store.ListFreeSlots(ctx, locationID, program)
}

// Reserve books a slot for a person. Exactly one contender wins a free
// slot; everyone else gets store.ErrSlotUnavailable. Returns the created
// appointment.
func (s *Service) Reserve(ctx context.Context, slotID, personID string) (*store.Appointment, error) {
	l := s.slotLock(slotID)
	l.Lock()
	defer l.Unlock()

	appt := &store.Appointment{
		ID:       uuid.New().String(),
		SlotID:   slotID,
		PersonID: personID,
	}
	if err := s.store.ReserveSlot(ctx, appt); err != nil {
		return nil, err
	}

	s.logger.Info("slot reserved",
		"slot_id", slotID,
		"appointment_id", appt.ID,
		"person_id", personID)
	return appt, nil
}

// Cancel releases an appointment, freeing its slot for rebooking.
func (s *Service) Cancel(ctx context.Context, appointmentID string) error {
	appt, err := s.store.GetAppointment(ctx, appointmentID)
	if err != nil {
		return err
	}

	l := s.slotLock(appt.SlotID)
	l.Lock()
	defer l.Unlock()

	if err := s.store.ReleaseSlot(ctx, appointmentID); err != nil {
		return err
	}
	s.logger.Info("appointment cancelled",
		"appointment_id", appointmentID,
		"slot_id", appt.SlotID)
	return nil
}

// Reschedule moves an existing appointment to a new slot. The new slot is
// reserved first; only then is the old one released, so a failed
// reservation leaves the original booking intact. Slot locks are taken in
// slot-id order to keep concurrent reschedules deadlock-free.
func (s *Service) Reschedule(ctx context.Context, appointmentID, newSlotID string) (*store.Appointment, error) {
	old, err := s.store.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if old.SlotID == newSlotID {
		return old, nil
	}

	first, second := s.slotLock(old.SlotID), s.slotLock(newSlotID)
	if newSlotID < old.SlotID {
		first, second = second, first
	}
	first.Lock()
	defer first.Unlock()
	second.Lock()
	defer second.Unlock()

	appt := &store.Appointment{
		ID:       uuid.New().String(),
		SlotID:   newSlotID,
		PersonID: old.PersonID,
		CaseID:   old.CaseID,
	}
	if err := s.store.ReserveSlot(ctx, appt); err != nil {
		return nil, err
	}
	if err := s.store.ReleaseSlot(ctx, appointmentID); err != nil {
		// Roll the new booking back rather than hold two slots.
		if rbErr := s.store.ReleaseSlot(ctx, appt.ID); rbErr != nil {
			s.logger.Error("reschedule rollback failed",
				"appointment_id", appt.ID, "error", rbErr)
		}
		return nil, fmt.Errorf("releasing old appointment: %w", err)
	}

	s.logger.Info("appointment rescheduled",
		"old_appointment_id", appointmentID,
		"new_appointment_id", appt.ID,
		"slot_id", newSlotID)
	return appt, nil
}
