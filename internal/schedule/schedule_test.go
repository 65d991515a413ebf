package schedule

import (
	"testing"
	"time"

	"github.com/escolaviva/agenda/internal/model"
	"github.com/escolaviva/agenda/internal/timeutil"
)

// 2025-01-06 is a Monday
var monday = time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC)

func window(weekday, fromH, fromM, toH, toM int) model.AvailabilityWindow {
	return model.AvailabilityWindow{
		ProfessionalID: 1,
		Weekday:        weekday,
		StartUTC:       timeutil.Clock{Hour: fromH, Minute: fromM},
		EndUTC:         timeutil.Clock{Hour: toH, Minute: toM},
	}
}

func TestOverlaps(t *testing.T) {
	at := func(h int) time.Time { return monday.Add(time.Duration(h) * time.Hour) }

	cases := []struct {
		name                   string
		aStart, aEnd           time.Time
		bStart, bEnd           time.Time
		want                   bool
	}{
		{"identical", at(9), at(10), at(9), at(10), true},
		{"partial", at(9), at(11), at(10), at(12), true},
		{"contained", at(9), at(12), at(10), at(11), true},
		{"touching endpoints", at(9), at(10), at(10), at(11), false},
		{"touching endpoints reversed", at(10), at(11), at(9), at(10), false},
		{"disjoint", at(9), at(10), at(14), at(15), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Overlaps(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd); got != tc.want {
				t.Errorf("Overlaps = %v, want %v", got, tc.want)
			}
			// overlap is symmetric
			if got := Overlaps(tc.bStart, tc.bEnd, tc.aStart, tc.aEnd); got != tc.want {
				t.Errorf("Overlaps reversed = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFitsWindows(t *testing.T) {
	windows := []model.AvailabilityWindow{window(0, 9, 0, 12, 0)}

	cases := []struct {
		name    string
		start   time.Time
		minutes int
		want    bool
	}{
		{"at window start", monday.Add(9 * time.Hour), 60, true},
		{"middle", monday.Add(10 * time.Hour), 60, true},
		{"ends exactly at window end", monday.Add(11 * time.Hour), 60, true},
		{"runs past window end", monday.Add(11*time.Hour + 30*time.Minute), 60, false},
		{"before window", monday.Add(8 * time.Hour), 60, false},
		{"starts at window end", monday.Add(12 * time.Hour), 60, false},
		{"runs past midnight", monday.Add(23*time.Hour + 30*time.Minute), 60, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FitsWindows(tc.start, tc.minutes, windows); got != tc.want {
				t.Errorf("FitsWindows(%v, %d) = %v, want %v", tc.start, tc.minutes, got, tc.want)
			}
		})
	}
}

func TestFitsWindowsPicksAnyWindow(t *testing.T) {
	windows := []model.AvailabilityWindow{
		window(0, 9, 0, 11, 0),
		window(0, 14, 0, 17, 0),
	}
	if !FitsWindows(monday.Add(15*time.Hour), 60, windows) {
		t.Error("15:00 should fit the afternoon window")
	}
	if FitsWindows(monday.Add(12*time.Hour), 60, windows) {
		t.Error("12:00 falls between the windows")
	}
}

func TestCandidatesFullDay(t *testing.T) {
	byWD := ByWeekday([]model.AvailabilityWindow{window(0, 9, 0, 12, 0)})
	got := Candidates(monday, monday.AddDate(0, 0, 1), 60, byWD, nil)

	want := []time.Time{
		monday.Add(9 * time.Hour),
		monday.Add(10 * time.Hour),
		monday.Add(11 * time.Hour),
	}
	assertTimes(t, got, want)
}

func TestCandidatesSkipsBusy(t *testing.T) {
	byWD := ByWeekday([]model.AvailabilityWindow{window(0, 9, 0, 12, 0)})
	busy := []Interval{{Start: monday.Add(10 * time.Hour), End: monday.Add(11 * time.Hour)}}

	got := Candidates(monday, monday.AddDate(0, 0, 1), 60, byWD, busy)
	want := []time.Time{monday.Add(9 * time.Hour), monday.Add(11 * time.Hour)}
	assertTimes(t, got, want)
}

func TestCandidatesPartialOverlapBlocks(t *testing.T) {
	byWD := ByWeekday([]model.AvailabilityWindow{window(0, 9, 0, 12, 0)})
	// a booking straddling two hourly slots blocks both
	busy := []Interval{{
		Start: monday.Add(9*time.Hour + 30*time.Minute),
		End:   monday.Add(10*time.Hour + 30*time.Minute),
	}}

	got := Candidates(monday, monday.AddDate(0, 0, 1), 60, byWD, busy)
	want := []time.Time{monday.Add(11 * time.Hour)}
	assertTimes(t, got, want)
}

func TestCandidatesUnevenSlotLength(t *testing.T) {
	byWD := ByWeekday([]model.AvailabilityWindow{window(0, 9, 0, 12, 0)})
	got := Candidates(monday, monday.AddDate(0, 0, 1), 45, byWD, nil)

	// stepping 45m from midnight: the last fitting slot ends exactly at 12:00
	want := []time.Time{
		monday.Add(9 * time.Hour),
		monday.Add(9*time.Hour + 45*time.Minute),
		monday.Add(10*time.Hour + 30*time.Minute),
		monday.Add(11*time.Hour + 15*time.Minute),
	}
	assertTimes(t, got, want)
}

func TestCandidatesLocalDayStraddlingUTC(t *testing.T) {
	// a local day in UTC-3 runs 03:00 UTC to 03:00 UTC next day; a window on
	// the next UTC weekday must still be picked up inside that range
	dayStart := monday.Add(3 * time.Hour)
	dayEnd := monday.AddDate(0, 0, 1).Add(3 * time.Hour)

	byWD := ByWeekday([]model.AvailabilityWindow{
		window(0, 23, 0, 24, 0), // Monday 23:00-24:00 UTC
		window(1, 1, 0, 3, 0),   // Tuesday small hours UTC, still the same local day
	})

	got := Candidates(dayStart, dayEnd, 60, byWD, nil)
	want := []time.Time{
		monday.Add(23 * time.Hour),
		monday.AddDate(0, 0, 1).Add(1 * time.Hour),
		monday.AddDate(0, 0, 1).Add(2 * time.Hour),
	}
	assertTimes(t, got, want)
}

func TestCandidatesEmptyInputs(t *testing.T) {
	if got := Candidates(monday, monday.AddDate(0, 0, 1), 0, nil, nil); got != nil {
		t.Errorf("zero slot length should yield nil, got %v", got)
	}
	if got := Candidates(monday, monday, 60, nil, nil); got != nil {
		t.Errorf("empty range should yield nil, got %v", got)
	}
	if got := Candidates(monday, monday.AddDate(0, 0, 1), 60, nil, nil); got != nil {
		t.Errorf("no windows should yield nil, got %v", got)
	}
}

func assertTimes(t *testing.T, got, want []time.Time) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d slots %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("slot %d = %v, want %v", i, got[i], want[i])
		}
	}
}
