package service

import (
	"context"
	"fmt"
	"time"

	"github.com/escolaviva/agenda/internal/schedule"
	"github.com/escolaviva/agenda/internal/timeutil"
)

// SlotValidator answers whether one exact slot is currently bookable. The
// check is advisory: it removes almost all conflicts cheaply, but the unique
// index remains the authority when two writers race past it.
type SlotValidator struct {
	availability AvailabilityStore
	appointments AppointmentStore
}

func NewSlotValidator(availability AvailabilityStore, appointments AppointmentStore) *SlotValidator {
	return &SlotValidator{availability: availability, appointments: appointments}
}

// Validate checks that [startUTC, startUTC+slotMinutes) fits an availability
// window of the UTC weekday and overlaps no non-cancelled appointment.
// Returns (false, reason, nil) for a business refusal; err only for storage
// faults.
func (v *SlotValidator) Validate(ctx context.Context, professionalID int64, startUTC time.Time, slotMinutes int) (bool, string, error) {
	if slotMinutes <= 0 {
		return false, "", fmt.Errorf("invalid slot duration: %d", slotMinutes)
	}

	windows, err := v.availability.WindowsFor(ctx, professionalID, timeutil.WeekdayUTC(startUTC))
	if err != nil {
		return false, "", fmt.Errorf("load availability: %w", err)
	}
	if !schedule.FitsWindows(startUTC, slotMinutes, windows) {
		return false, ReasonOutsideHours, nil
	}

	endUTC := startUTC.Add(time.Duration(slotMinutes) * time.Minute)
	busy, err := v.appointments.BusyBetween(ctx, professionalID, startUTC, endUTC)
	if err != nil {
		return false, "", fmt.Errorf("load appointments: %w", err)
	}
	if len(busy) > 0 {
		return false, ReasonSlotTaken, nil
	}

	return true, "", nil
}
