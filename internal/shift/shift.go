// Package shift derives the work date and shift name from a wall-clock
// instant. The rest of the system anchors time arithmetic on these two
// functions, so the rollover rule lives here and nowhere else.
package shift

import "time"

// RolloverHour is the hour at which a new work day begins.
// Exception logs typed before 08:00 belong to the previous work date.
const RolloverHour = 8

// WorkDate returns midnight of the work date that t belongs to, in t's
// location. A timestamp before the rollover hour maps to the previous
// calendar date.
func WorkDate(t time.Time) time.Time {
	if t.Hour() < RolloverHour {
		t = t.AddDate(0, 0, -1)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Name returns the shift name for an instant: "Day" between 08:00 and
// 19:59, "Night" otherwise.
func Name(t time.Time) string {
	h := t.Hour()
	if h >= 8 && h < 20 {
		return "Day"
	}
	return "Night"
}
