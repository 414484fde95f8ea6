package parse

import (
	"fmt"
	"strings"
)

// ValidateDottedLine checks a line against the strict first-site grammar:
// at least three dot-separated fields with the third being an H:mm time
// token. It returns nil for a valid line and an error whose message
// distinguishes a short line from a bad time token, so diagnostics tell
// the operator what to fix.
func ValidateDottedLine(line string) error {
	fields := strings.Split(line, ".")
	if len(fields) < 3 {
		return fmt.Errorf("expected at least 3 dot-separated fields, got %d", len(fields))
	}
	if !IsClockToken(fields[2]) {
		return fmt.Errorf("third field %q is not an H:mm time", strings.TrimSpace(fields[2]))
	}
	return nil
}
