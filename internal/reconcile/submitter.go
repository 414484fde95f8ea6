// Package reconcile submits parsed exception records to the external
// store: one record at a time, spaced out, deduplicated per session, and
// cancellable between sends.
package reconcile

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Nookons/tk-assistant-sub000/internal/parse"
)

// Record is the wire payload for one exception write: the issue plus the
// fields derived at send time.
type Record struct {
	parse.Issue
	SubmittedBy string `json:"submittedBy"`
	Shift       string `json:"shift"`
	DedupKey    string `json:"dedupKey"`
}

// Submitter posts records to the exception write endpoint. Retries are
// off by default: the pipeline counts a failed record and moves on. The
// retry knob exists for deployments that accept transport-level retries;
// it keeps the exponential backoff and Retry-After handling when enabled.
type Submitter struct {
	client       *http.Client
	endpoint     string
	maxRetries   int
	backoffMs    int
	backoffMaxMs int
	authHeader   string
	timings      *Timings
}

// NewSubmitter creates a submitter. Empty credentials disable auth; a nil
// timings disables metrics collection.
func NewSubmitter(endpoint string, timeoutSeconds, maxRetries, backoffMs, backoffMaxMs int, user, pass string, timings *Timings) *Submitter {
	authHeader := ""
	if user != "" && pass != "" {
		authHeader = "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
	}

	return &Submitter{
		client: &http.Client{
			Timeout: time.Duration(timeoutSeconds) * time.Second,
		},
		endpoint:     endpoint,
		maxRetries:   maxRetries,
		backoffMs:    backoffMs,
		backoffMaxMs: backoffMaxMs,
		authHeader:   authHeader,
		timings:      timings,
	}
}

// Submit sends one record, honoring the retry configuration.
func (s *Submitter) Submit(ctx context.Context, rec *Record) error {
	var lastErr error

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if s.timings != nil {
			s.timings.IncAttempt()
		}

		if attempt > 0 {
			if s.timings != nil {
				s.timings.IncRetry()
			}
			backoff := time.Duration(s.backoffMs) * time.Duration(1<<uint(attempt-1)) * time.Millisecond
			if backoff > time.Duration(s.backoffMaxMs)*time.Millisecond {
				backoff = time.Duration(s.backoffMaxMs) * time.Millisecond
			}
			if lastErr != nil {
				if httpErr, ok := lastErr.(*HTTPError); ok && httpErr.RetryAfter > 0 {
					backoff = httpErr.RetryAfter
				}
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		err := s.submitOnce(ctx, rec)
		if err == nil {
			return nil
		}

		lastErr = err

		if !s.isRetryable(err) {
			return err
		}
	}

	if s.maxRetries == 0 {
		return lastErr
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// submitOnce sends one record once.
func (s *Submitter) submitOnce(ctx context.Context, rec *Record) error {
	jsonData, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create request error: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if s.authHeader != "" {
		req.Header.Set("Authorization", s.authHeader)
	}
	// The store enforces idempotency on this header.
	req.Header.Set("X-TKA-DedupKey", rec.DedupKey)

	httpStart := time.Now()
	resp, err := s.client.Do(req)
	if s.timings != nil {
		s.timings.ObserveSubmitHTTP(time.Since(httpStart))
	}
	if err != nil {
		return fmt.Errorf("http error: %w", err)
	}
	defer resp.Body.Close()

	// 409 means the store already has this key: not a duplicate write,
	// treated as success.
	if resp.StatusCode == 200 || resp.StatusCode == 201 || resp.StatusCode == 409 {
		return nil
	}

	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &HTTPError{
		StatusCode: resp.StatusCode,
		Body:       string(bodyBytes),
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
	}
}

// isRetryable checks if error is retryable.
func (s *Submitter) isRetryable(err error) bool {
	httpErr, ok := err.(*HTTPError)
	if !ok {
		// Network errors are retryable
		return true
	}
	if httpErr.StatusCode == 429 || httpErr.StatusCode >= 500 {
		return true
	}
	return false
}

// parseRetryAfter parses a Retry-After header given in seconds.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return 0
}

// HTTPError represents an HTTP error from the write endpoint.
type HTTPError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// GetHTTPError extracts HTTPError from an error if possible.
func GetHTTPError(err error) (*HTTPError, bool) {
	httpErr, ok := err.(*HTTPError)
	return httpErr, ok
}
