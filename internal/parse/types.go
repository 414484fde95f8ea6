// Package parse converts free-text shift logs into structured exception
// records. Operators paste informal chat reports; the dispatcher walks the
// text line by line, tracks who is speaking, picks the line grammar from
// the speaker's warehouse, resolves each report against the error template
// catalog, and collects one issue or one diagnostic per data line.
package parse

import "time"

// Issue is one structured exception record built from a data line.
type Issue struct {
	Employee           string    `json:"employee"`
	Warehouse          string    `json:"warehouse"`
	Robot              string    `json:"errorRobot"`
	DeviceType         string    `json:"deviceType"`
	CategoryPrimary    string    `json:"issueCategoryPrimary"`
	CategorySecondary  string    `json:"issueCategorySecondary"`
	RecoveryTitle      string    `json:"recoveryTitle"`
	Description        string    `json:"issueDescription"`
	SolvingTimeMinutes int       `json:"solvingTimeMinutes"`
	StartTime          time.Time `json:"errorStartTime"`
	EndTime            time.Time `json:"errorEndTime"`
}

// Diagnostic reports a line that could not be turned into an issue.
// Diagnostics are informational: the caller surfaces them, nothing
// retries them.
type Diagnostic struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
	Raw     string `json:"raw"`
}

// Result is the output of one parse pass. Both lists preserve input line
// order.
type Result struct {
	Issues      []Issue      `json:"issues"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}
