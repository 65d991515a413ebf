package timeutil

import "time"

// refMonday is a fixed reference Monday used to pin a zone's offset when
// converting recurring weekday schedules between local time and UTC. The
// mapping is stable across the year, but a zone whose offset differs between
// the reference week and the booked week (daylight saving) shifts the
// effective UTC window by the offset delta.
var refMonday = time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC)

// WeekdayOf returns the weekday of t in its own location, Monday=0 ..
// Sunday=6.
func WeekdayOf(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// WeekdayUTC returns the UTC weekday of t with Monday=0 .. Sunday=6.
func WeekdayUTC(t time.Time) int {
	return WeekdayOf(t.UTC())
}

// LocalClockToUTC converts a recurring local (weekday, time-of-day) pair to
// the (weekday, time-of-day) pair the same moment has in UTC. The weekday can
// shift by one day when the zone offset crosses midnight.
func LocalClockToUTC(weekday int, c Clock, loc *time.Location) (int, Clock) {
	base := refMonday.AddDate(0, 0, weekday)
	local := time.Date(base.Year(), base.Month(), base.Day(), c.Hour, c.Minute, 0, 0, loc)
	utc := local.UTC()
	return WeekdayUTC(utc), ClockOf(utc)
}

// UTCClockToLocal is the inverse of LocalClockToUTC.
func UTCClockToLocal(weekday int, c Clock, loc *time.Location) (int, Clock) {
	base := refMonday.AddDate(0, 0, weekday)
	utc := time.Date(base.Year(), base.Month(), base.Day(), c.Hour, c.Minute, 0, 0, time.UTC)
	local := utc.In(loc)
	return WeekdayOf(local), ClockOf(local)
}

// CombineLocalToUTC interprets the civil date (y, m, d) plus clock c in loc
// and returns the corresponding UTC instant.
func CombineLocalToUTC(y int, m time.Month, d int, c Clock, loc *time.Location) time.Time {
	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, loc).UTC()
}

// SplitUTCToLocal breaks a UTC instant into the civil date and clock it has
// in loc.
func SplitUTCToLocal(t time.Time, loc *time.Location) (int, time.Month, int, Clock) {
	local := t.In(loc)
	y, m, d := local.Date()
	return y, m, d, ClockOf(local)
}

// DayRangeUTC returns the UTC instants covering the civil date (y, m, d) in
// loc: local midnight up to the next local midnight. The range can straddle
// two UTC dates and is not always 24 hours long on DST transition days.
func DayRangeUTC(y int, m time.Month, d int, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)
	return start.UTC(), end.UTC()
}

// ISOUTC serializes t as ISO-8601 in UTC with a Z suffix, without fractional
// seconds.
func ISOUTC(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format("2006-01-02T15:04:05Z")
}
