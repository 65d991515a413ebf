package model

import (
	"time"

	"github.com/escolaviva/agenda/internal/timeutil"
)

// AvailabilityWindow is a recurring weekly window in UTC wall-clock time.
// Identity is the composite (professional_id, weekday, start). Windows of the
// same professional and weekday never overlap; a window never spans midnight.
type AvailabilityWindow struct {
	ProfessionalID int64          `json:"professional_id"`
	Weekday        int            `json:"weekday"` // 0 = Monday .. 6 = Sunday, in UTC
	StartUTC       timeutil.Clock `json:"start_utc"`
	EndUTC         timeutil.Clock `json:"end_utc"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Contains reports whether the [start, end) time-of-day interval fits fully
// inside the window. The window end is inclusive for a slot ending exactly on
// it. endMinutes may exceed the start's day (past midnight), which never fits.
func (w AvailabilityWindow) Contains(startMinutes, endMinutes int) bool {
	return startMinutes >= w.StartUTC.Minutes() && endMinutes <= w.EndUTC.Minutes()
}
