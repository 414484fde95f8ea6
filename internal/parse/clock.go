package parse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var clockRe = regexp.MustCompile(`^\d{1,2}:\d{2}$`)

// ResolveClock turns an H:mm or HH:mm token into an absolute instant on
// the reference date. A malformed or out-of-range token never aborts the
// parse: it deterministically falls back to midnight of the reference
// date. End times are computed by adding the solving duration to the
// resolved start, so a report near midnight simply runs into the next
// calendar day.
func ResolveClock(token string, ref time.Time) time.Time {
	midnight := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, ref.Location())

	token = strings.TrimSpace(token)
	if !clockRe.MatchString(token) {
		return midnight
	}

	parts := strings.SplitN(token, ":", 2)
	hour, _ := strconv.Atoi(parts[0])
	minute, _ := strconv.Atoi(parts[1])
	if hour > 23 || minute > 59 {
		return midnight
	}

	return midnight.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

// IsClockToken reports whether token has the H:mm / HH:mm shape.
func IsClockToken(token string) bool {
	return clockRe.MatchString(strings.TrimSpace(token))
}
