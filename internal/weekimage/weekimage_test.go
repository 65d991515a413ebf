package weekimage

import (
	"bytes"
	"testing"
	"time"

	"github.com/escolaviva/agenda/internal/model"
	"github.com/escolaviva/agenda/internal/timeutil"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func weekFixture() (time.Time, []model.AvailabilityWindow, []*model.Appointment) {
	weekStart := time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC) // Monday
	windows := []model.AvailabilityWindow{
		{ProfessionalID: 1, Weekday: 0, StartUTC: timeutil.Clock{Hour: 9}, EndUTC: timeutil.Clock{Hour: 12}},
		{ProfessionalID: 1, Weekday: 2, StartUTC: timeutil.Clock{Hour: 14}, EndUTC: timeutil.Clock{Hour: 18}},
	}
	appointments := []*model.Appointment{
		{
			ID: 1, ProfessionalID: 1, Status: model.AppointmentScheduled,
			StartsAt: weekStart.Add(9 * time.Hour),
			EndsAt:   weekStart.Add(10 * time.Hour),
			Student:  &model.Student{ID: 10, Name: "Ana"},
		},
		{
			ID: 2, ProfessionalID: 1, Status: model.AppointmentConfirmed,
			StartsAt: weekStart.AddDate(0, 0, 2).Add(15 * time.Hour),
			EndsAt:   weekStart.AddDate(0, 0, 2).Add(16 * time.Hour),
		},
	}
	return weekStart, windows, appointments
}

func TestRender(t *testing.T) {
	weekStart, windows, appointments := weekFixture()

	img, err := Render(weekStart, windows, appointments)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.HasPrefix(img, pngMagic) {
		t.Error("output is not a PNG")
	}
}

func TestRenderEmptyWeek(t *testing.T) {
	weekStart := time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC)
	img, err := Render(weekStart, nil, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.HasPrefix(img, pngMagic) {
		t.Error("output is not a PNG")
	}
}

func TestCalculateHourRange(t *testing.T) {
	_, windows, appointments := weekFixture()
	loc := time.UTC

	hours := calculateHourRange(projectWindows(windows, loc), appointments, loc)
	if hours.start != 8 { // 9 minus padding
		t.Errorf("start = %d, want 8", hours.start)
	}
	if hours.end != 19 { // 18 plus padding
		t.Errorf("end = %d, want 19", hours.end)
	}

	empty := calculateHourRange(nil, nil, loc)
	if empty.start != defaultMinHour-hourPaddingTop || empty.end != defaultMaxHour+hourPaddingBot {
		t.Errorf("empty range = %+v", empty)
	}
}
