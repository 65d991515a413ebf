// Package schedule holds the storage-agnostic slot arithmetic: half-open
// interval overlap, availability-window containment by UTC time of day, and
// candidate slot enumeration over a day range.
package schedule

import (
	"time"

	"github.com/escolaviva/agenda/internal/model"
	"github.com/escolaviva/agenda/internal/timeutil"
)

// Interval is a half-open [Start, End) span of UTC instants.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Touching endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// OverlapsAny reports whether [start, end) intersects any busy interval.
func OverlapsAny(start, end time.Time, busy []Interval) bool {
	for _, b := range busy {
		if Overlaps(start, end, b.Start, b.End) {
			return true
		}
	}
	return false
}

// FitsWindows reports whether a slot starting at the UTC instant start and
// running for minutes fits fully inside one of the windows, comparing only
// the time of day. A slot that runs past midnight never fits: windows are
// same-day by construction.
func FitsWindows(start time.Time, minutes int, windows []model.AvailabilityWindow) bool {
	startMin := timeutil.ClockOf(start.UTC()).Minutes()
	endMin := startMin + minutes
	for _, w := range windows {
		if w.Contains(startMin, endMin) {
			return true
		}
	}
	return false
}

// ByWeekday groups windows by their UTC weekday (0=Monday .. 6=Sunday).
func ByWeekday(windows []model.AvailabilityWindow) map[int][]model.AvailabilityWindow {
	out := make(map[int][]model.AvailabilityWindow)
	for _, w := range windows {
		out[w.Weekday] = append(out[w.Weekday], w)
	}
	return out
}

// Candidates steps through [dayStart, dayEnd) in slot-sized increments and
// returns the UTC start instants whose [start, start+slot) interval fits an
// availability window of the step's UTC weekday and overlaps no busy
// interval. The result is recomputed from scratch on every call; it is a
// snapshot of the booking state passed in, nothing more.
func Candidates(dayStart, dayEnd time.Time, slotMinutes int, byWeekday map[int][]model.AvailabilityWindow, busy []Interval) []time.Time {
	step := time.Duration(slotMinutes) * time.Minute
	if step <= 0 || !dayEnd.After(dayStart) {
		return nil
	}

	var out []time.Time
	for cur := dayStart; !cur.Add(step).After(dayEnd); cur = cur.Add(step) {
		windows := byWeekday[timeutil.WeekdayUTC(cur)]
		if !FitsWindows(cur, slotMinutes, windows) {
			continue
		}
		if OverlapsAny(cur, cur.Add(step), busy) {
			continue
		}
		out = append(out, cur)
	}
	return out
}
