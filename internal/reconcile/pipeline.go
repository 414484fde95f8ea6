package reconcile

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/Nookons/tk-assistant-sub000/internal/catalog"
	"github.com/Nookons/tk-assistant-sub000/internal/parse"
	"github.com/Nookons/tk-assistant-sub000/internal/shift"
)

// ErrBusy is returned when a submission run is requested while a previous
// one is still in flight. Callers treat it as a no-op: nothing may be
// double-submitted.
var ErrBusy = errors.New("a submission run is already in flight")

// Report aggregates the outcome of one submission run.
type Report struct {
	Submitted int `json:"submitted"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"` // dedup hits, nothing sent
}

// Pipeline submits the issues of one parse session to the exception
// store. It keeps the set of already-sent keys for the session, sends
// strictly one record at a time with a fixed delay between requests, and
// stops promptly on cancellation. The sent-set and the in-flight flag are
// only ever touched by the pipeline itself.
type Pipeline struct {
	sub       *Submitter
	snap      *catalog.Snapshot
	delay     time.Duration
	sessionID string

	mu       sync.Mutex
	inFlight bool
	sent     map[string]struct{}
}

// NewPipeline creates a pipeline for one session. delay is the spacing
// inserted before every request after the first.
func NewPipeline(sub *Submitter, snap *catalog.Snapshot, delay time.Duration, sessionID string) *Pipeline {
	return &Pipeline{
		sub:       sub,
		snap:      snap,
		delay:     delay,
		sessionID: sessionID,
		sent:      make(map[string]struct{}),
	}
}

// Run submits the batch. Records whose key was already sent in this
// session are skipped before anything goes on the wire. An individual
// failure (transport error or an employee missing from the directory) is
// counted and the run continues; only cancellation stops it. On
// cancellation the sent-set is cleared so the next run starts clean;
// records already on the wire are not rolled back.
func (p *Pipeline) Run(ctx context.Context, issues []parse.Issue) (Report, error) {
	p.mu.Lock()
	if p.inFlight {
		p.mu.Unlock()
		return Report{}, ErrBusy
	}
	p.inFlight = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.inFlight = false
		p.mu.Unlock()
	}()

	var report Report

	// Filter against the session sent-set before anything goes on the
	// wire, preserving batch order.
	type pending struct {
		issue parse.Issue
		key   string
	}
	batch := make([]pending, 0, len(issues))
	inBatch := make(map[string]struct{}, len(issues))
	for _, is := range issues {
		key := parse.Key(is)
		if _, dup := inBatch[key]; dup || p.alreadySent(key) {
			report.Skipped++
			continue
		}
		inBatch[key] = struct{}{}
		batch = append(batch, pending{issue: is, key: key})
	}

	for i, item := range batch {
		// Fixed spacing before every request after the first.
		if i > 0 {
			select {
			case <-ctx.Done():
				p.resetSent()
				return report, ctx.Err()
			case <-time.After(p.delay):
			}
		}

		select {
		case <-ctx.Done():
			p.resetSent()
			return report, ctx.Err()
		default:
		}

		is := item.issue
		emp, ok := p.snap.LookupEmployee(is.Employee)
		if !ok {
			log.Printf("Session %s: employee %q not in directory, record not sent", p.sessionID, is.Employee)
			report.Failed++
			continue
		}

		rec := &Record{
			Issue:       is,
			SubmittedBy: emp.Name,
			Shift:       shift.Name(is.StartTime),
			DedupKey:    item.key,
		}

		if err := p.sub.Submit(ctx, rec); err != nil {
			if ctx.Err() != nil {
				p.resetSent()
				return report, ctx.Err()
			}
			log.Printf("Session %s: submit failed for robot %s at %s: %v",
				p.sessionID, is.Robot, is.StartTime.Format("15:04"), err)
			report.Failed++
			continue
		}

		p.markSent(item.key)
		report.Submitted++
	}

	return report, nil
}

func (p *Pipeline) alreadySent(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.sent[key]
	return ok
}

func (p *Pipeline) markSent(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent[key] = struct{}{}
}

func (p *Pipeline) resetSent() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = make(map[string]struct{})
}
