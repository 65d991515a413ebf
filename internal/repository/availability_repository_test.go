package repository

import (
	"testing"

	"github.com/escolaviva/agenda/internal/timeutil"
)

func TestClockPgRoundTrip(t *testing.T) {
	for _, c := range []timeutil.Clock{{Hour: 0, Minute: 0}, {Hour: 9, Minute: 0}, {Hour: 12, Minute: 30}, {Hour: 23, Minute: 59}} {
		pg := clockToPg(c)
		if !pg.Valid {
			t.Fatalf("clockToPg(%v) not valid", c)
		}
		if got := pgToClock(pg); got != c {
			t.Errorf("round trip %v -> %d us -> %v", c, pg.Microseconds, got)
		}
	}
}

func TestClockToPgMicroseconds(t *testing.T) {
	pg := clockToPg(timeutil.Clock{Hour: 9, Minute: 30})
	// 9h30m in microseconds, the TIME column wire format
	if want := int64(570) * 60 * 1_000_000; pg.Microseconds != want {
		t.Errorf("Microseconds = %d, want %d", pg.Microseconds, want)
	}
}
