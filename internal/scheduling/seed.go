// ABOUTME: Startup slot seeding for the appointment calendar
// ABOUTME: Fills the next days with morning/afternoon identity slots and a social-aid block

package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/unibuc-cs/ghiseu-gateway/internal/store"
)

// Identity-card slots run at fixed desk hours.
var seedHours = []int{9, 14}

// SeedSlots populates the calendar if it is empty: one CI slot per
// location per desk hour for each of the next `days` days, plus a block
// of twelve AS slots at the first location. Seeding an already-populated
// calendar is a no-op, so restarts do not duplicate slots.
func (s *Service) SeedSlots(ctx context.Context, days int, locations []string) error {
	n, err := s.store.CountSlots(ctx, "")
	if err != nil {
		return fmt.Errorf("counting slots: %w", err)
	}
	if n > 0 {
		s.logger.Debug("slot calendar already seeded", "slots", n)
		return nil
	}

	now := time.Now().UTC()
	created := 0
	for day := 1; day <= days; day++ {
		date := now.AddDate(0, 0, day)
		for _, loc := range locations {
			for _, hour := range seedHours {
				when := time.Date(date.Year(), date.Month(), date.Day(), hour, 0, 0, 0, time.UTC)
				slot := &store.Slot{
					ID:         fmt.Sprintf("CI-%s-%s-%02d", loc, when.Format("20060102"), hour),
					LocationID: loc,
					Program:    "CI",
					When:       when,
				}
				if err := s.store.CreateSlot(ctx, slot); err != nil {
					return fmt.Errorf("seeding slot %s: %w", slot.ID, err)
				}
				created++
			}
		}
	}

	// Social-aid review slots, one block at the first location.
	if len(locations) > 0 {
		loc := locations[0]
		for i := 1; i <= 12; i++ {
			when := time.Date(now.Year(), now.Month(), now.Day(), 10, 0, 0, 0, time.UTC).AddDate(0, 0, i)
			slot := &store.Slot{
				ID:         fmt.Sprintf("AS-%d", i),
				LocationID: loc,
				Program:    "AS",
				When:       when,
			}
			if err := s.store.CreateSlot(ctx, slot); err != nil {
				return fmt.Errorf("seeding slot %s: %w", slot.ID, err)
			}
			created++
		}
	}

	s.logger.Info("slot calendar seeded", "slots", created, "days", days)
	return nil
}
