package service

import (
	"context"
	"fmt"
	"time"

	"github.com/escolaviva/agenda/internal/schedule"
	"github.com/escolaviva/agenda/internal/timeutil"
	"go.uber.org/zap"
)

// SlotService enumerates the free slots of one civil day. Every call
// re-reads current state; the result is a snapshot, nothing is cached
// between requests.
type SlotService struct {
	availability AvailabilityStore
	appointments AppointmentStore
	logger       *zap.Logger
}

func NewSlotService(availability AvailabilityStore, appointments AppointmentStore, logger *zap.Logger) *SlotService {
	return &SlotService{availability: availability, appointments: appointments, logger: logger}
}

// DaySlots is one day's free slots with local-time projections
type DaySlots struct {
	ProfessionalID int64       `json:"professional_id"`
	Date           string      `json:"date"`
	SlotMinutes    int         `json:"slot_minutes"`
	Timezone       string      `json:"timezone"`
	StartsUTC      []time.Time `json:"starts_utc"`
	LocalHHMM      []string    `json:"slots"`
	LocalISO       []string    `json:"slots_iso"`
}

// ComputeDay returns the free UTC slot starts for the civil date (y, m, d)
// interpreted in loc. The iteration window is the local day converted to
// UTC, not the UTC calendar date: a local day can straddle two UTC dates.
func (s *SlotService) ComputeDay(ctx context.Context, professionalID int64, y int, m time.Month, d int, loc *time.Location, slotMinutes int) ([]time.Time, error) {
	dayStart, dayEnd := timeutil.DayRangeUTC(y, m, d, loc)

	windows, err := s.availability.AllWindows(ctx, professionalID)
	if err != nil {
		return nil, fmt.Errorf("load availability: %w", err)
	}

	appts, err := s.appointments.BusyBetween(ctx, professionalID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}

	busy := make([]schedule.Interval, 0, len(appts))
	for _, ap := range appts {
		busy = append(busy, schedule.Interval{Start: ap.StartsAt, End: ap.EndsAt})
	}

	slots := schedule.Candidates(dayStart, dayEnd, slotMinutes, schedule.ByWeekday(windows), busy)

	s.logger.Debug("Computed day slots",
		zap.Int64("professional_id", professionalID),
		zap.String("date", fmt.Sprintf("%04d-%02d-%02d", y, m, d)),
		zap.Int("slot_minutes", slotMinutes),
		zap.Int("free", len(slots)),
	)

	return slots, nil
}

// ComputeDayLocal is ComputeDay plus local HH:MM and local ISO projections
// for rendering in the caller's timezone.
func (s *SlotService) ComputeDayLocal(ctx context.Context, professionalID int64, y int, m time.Month, d int, loc *time.Location, slotMinutes int) (*DaySlots, error) {
	starts, err := s.ComputeDay(ctx, professionalID, y, m, d, loc, slotMinutes)
	if err != nil {
		return nil, err
	}

	out := &DaySlots{
		ProfessionalID: professionalID,
		Date:           fmt.Sprintf("%04d-%02d-%02d", y, int(m), d),
		SlotMinutes:    slotMinutes,
		Timezone:       loc.String(),
		StartsUTC:      starts,
	}
	for _, t := range starts {
		local := t.In(loc)
		out.LocalHHMM = append(out.LocalHHMM, local.Format("15:04"))
		out.LocalISO = append(out.LocalISO, local.Format("2006-01-02T15:04:05-07:00"))
	}

	return out, nil
}
