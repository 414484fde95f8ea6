package session

import (
	"time"

	"github.com/Nookons/tk-assistant-sub000/internal/parse"
)

// Status represents the status of a parse session.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
)

// Session is one pasted shift log moving through the pipeline: queued,
// parsed, reconciled against the exception store, finished.
type Session struct {
	ID            string
	Text          string
	ReferenceDate time.Time

	Status     Status
	StartedAt  *time.Time
	FinishedAt *time.Time
	LastError  string

	// Parse phase output
	IssuesParsed int
	Diagnostics  []parse.Diagnostic

	// Reconciliation phase output
	IsPersisting bool
	Submitted    int
	Failed       int
	Skipped      int
}
