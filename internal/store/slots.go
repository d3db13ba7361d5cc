// ABOUTME: Slot and appointment persistence for SQLiteStore.
// ABOUTME: ReserveSlot implements the free->reserved check-and-set inside a transaction.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateSlot inserts a seeded slot.
func (s *SQLiteStore) CreateSlot(ctx context.Context, slot *Slot) error {
	status := slot.Status
	if status == "" {
		status = SlotFree
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO slots (id, location_id, program, at, status)
		VALUES (?, ?, ?, ?, ?)
	`, slot.ID, slot.LocationID, slot.Program, slot.When.UTC(), status)
	if err != nil {
		return fmt.Errorf("creating slot: %w", err)
	}
	return nil
}

// GetSlot returns a slot by id.
func (s *SQLiteStore) GetSlot(ctx context.Context, id string) (*Slot, error) {
	slot := &Slot{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, location_id, program, at, status FROM slots WHERE id = ?
	`, id).Scan(&slot.ID, &slot.LocationID, &slot.Program, &slot.When, &slot.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting slot: %w", err)
	}
	return slot, nil
}

// ListFreeSlots returns free slots ordered by timestamp. Empty locationID or
// program matches all.
func (s *SQLiteStore) ListFreeSlots(ctx context.Context, locationID, program string) ([]*Slot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, location_id, program, at, status FROM slots
		WHERE status = 'free'
		  AND (? = '' OR location_id = ?)
		  AND (? = '' OR program = ?)
		ORDER BY at ASC, id ASC
	`, locationID, locationID, program, program)
	if err != nil {
		return nil, fmt.Errorf("listing slots: %w", err)
	}
	defer rows.Close()

	var slots []*Slot
	for rows.Next() {
		slot := &Slot{}
		if err := rows.Scan(&slot.ID, &slot.LocationID, &slot.Program, &slot.When, &slot.Status); err != nil {
			return nil, fmt.Errorf("scanning slot: %w", err)
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

// CountSlots returns the number of slots for a program; used by the seeder to
// keep seeding idempotent across restarts.
func (s *SQLiteStore) CountSlots(ctx context.Context, program string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM slots WHERE (? = '' OR program = ?)
	`, program, program).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting slots: %w", err)
	}
	return n, nil
}

// ReserveSlot atomically reserves appt.SlotID and records the appointment.
// The guarded UPDATE is the check-and-set: a concurrent loser affects zero
// rows and gets ErrSlotUnavailable without touching the winner's appointment.
func (s *SQLiteStore) ReserveSlot(ctx context.Context, appt *Appointment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning reservation: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE slots SET status = 'reserved' WHERE id = ? AND status = 'free'
	`, appt.SlotID)
	if err != nil {
		return fmt.Errorf("reserving slot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading reservation result: %w", err)
	}
	if affected == 0 {
		// Distinguish a lost race from a slot that never existed.
		var exists int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM slots WHERE id = ?`, appt.SlotID).Scan(&exists); err != nil {
			return fmt.Errorf("checking slot existence: %w", err)
		}
		if exists == 0 {
			return ErrNotFound
		}
		return ErrSlotUnavailable
	}

	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = time.Now().UTC()
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO appointments (id, slot_id, person_id, case_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, appt.ID, appt.SlotID, appt.PersonID, appt.CaseID, appt.CreatedAt); err != nil {
		return fmt.Errorf("recording appointment: %w", err)
	}

	return tx.Commit()
}

// ReleaseSlot deletes the appointment and returns its slot to the free pool.
func (s *SQLiteStore) ReleaseSlot(ctx context.Context, appointmentID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning release: %w", err)
	}
	defer tx.Rollback()

	var slotID string
	err = tx.QueryRowContext(ctx,
		`SELECT slot_id FROM appointments WHERE id = ?`, appointmentID).Scan(&slotID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("looking up appointment: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM appointments WHERE id = ?`, appointmentID); err != nil {
		return fmt.Errorf("deleting appointment: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE slots SET status = 'free' WHERE id = ?`, slotID); err != nil {
		return fmt.Errorf("freeing slot: %w", err)
	}

	return tx.Commit()
}

// GetAppointment returns an appointment by id.
func (s *SQLiteStore) GetAppointment(ctx context.Context, id string) (*Appointment, error) {
	appt := &Appointment{}
	var caseID sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, slot_id, person_id, case_id, created_at FROM appointments WHERE id = ?
	`, id).Scan(&appt.ID, &appt.SlotID, &appt.PersonID, &caseID, &appt.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting appointment: %w", err)
	}
	appt.CaseID = caseID.String
	return appt, nil
}
