package reconcile

import (
	"fmt"
	"sync"
	"time"
)

// Timings tracks submit-side timing and attempt counters for one session.
type Timings struct {
	mu sync.Mutex

	SubmitHTTPTotal time.Duration
	SubmitHTTPCount int64
	Attempts        int64
	Retries         int64
}

// NewTimings creates a new Timings instance.
func NewTimings() *Timings {
	return &Timings{}
}

// ObserveSubmitHTTP records one submit request duration.
func (t *Timings) ObserveSubmitHTTP(duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.SubmitHTTPTotal += duration
	t.SubmitHTTPCount++
}

// IncAttempt increments the attempts counter.
func (t *Timings) IncAttempt() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Attempts++
}

// IncRetry increments the retries counter.
func (t *Timings) IncRetry() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Retries++
}

// String formats the counters for end-of-run logging.
func (t *Timings) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	avg := time.Duration(0)
	if t.SubmitHTTPCount > 0 {
		avg = t.SubmitHTTPTotal / time.Duration(t.SubmitHTTPCount)
	}
	return fmt.Sprintf("requests=%d attempts=%d retries=%d avgHTTP=%v",
		t.SubmitHTTPCount, t.Attempts, t.Retries, avg)
}
