package reconcile

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Nookons/tk-assistant-sub000/internal/parse"
)

func testRecord() *Record {
	start := time.Date(2024, 1, 1, 14, 20, 0, 0, time.UTC)
	is := parse.Issue{
		Employee:           "Dmytro Kolomiiets",
		Warehouse:          "A",
		Robot:              "124",
		DeviceType:         "A42T",
		CategoryPrimary:    "Drive",
		Description:        "Speed error",
		SolvingTimeMinutes: 10,
		StartTime:          start,
		EndTime:            start.Add(10 * time.Minute),
	}
	return &Record{
		Issue:       is,
		SubmittedBy: "Dmytro Kolomiiets",
		Shift:       "Day",
		DedupKey:    parse.Key(is),
	}
}

func TestSubmitSendsPayloadAndHeaders(t *testing.T) {
	var gotAuth, gotKey string
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotKey = r.Header.Get("X-TKA-DedupKey")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	sub := NewSubmitter(server.URL, 5, 0, 10, 100, "svc", "secret", nil)
	rec := testRecord()

	if err := sub.Submit(context.Background(), rec); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if gotAuth == "" {
		t.Error("Expected Authorization header")
	}
	if gotKey != rec.DedupKey {
		t.Errorf("X-TKA-DedupKey = %q, want %q", gotKey, rec.DedupKey)
	}
	if gotBody["submittedBy"] != "Dmytro Kolomiiets" {
		t.Errorf("submittedBy = %v", gotBody["submittedBy"])
	}
	if gotBody["shift"] != "Day" {
		t.Errorf("shift = %v", gotBody["shift"])
	}
	if gotBody["errorRobot"] != "124" {
		t.Errorf("errorRobot = %v", gotBody["errorRobot"])
	}
}

func TestSubmitNoRetryByDefault(t *testing.T) {
	var attempts int
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		mu.Unlock()
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	sub := NewSubmitter(server.URL, 5, 0, 10, 100, "", "", nil)

	err := sub.Submit(context.Background(), testRecord())
	if err == nil {
		t.Fatal("Submit() expected error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (retries are off by default)", attempts)
	}
	if httpErr, ok := GetHTTPError(err); !ok || httpErr.StatusCode != 503 {
		t.Errorf("error = %v, want *HTTPError with 503", err)
	}
}

func TestSubmitRetriesWhenConfigured(t *testing.T) {
	var attempts int
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()
		if n < 3 {
			http.Error(w, "down", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	timings := NewTimings()
	sub := NewSubmitter(server.URL, 5, 3, 10, 50, "", "", timings)

	if err := sub.Submit(context.Background(), testRecord()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if timings.Retries != 2 {
		t.Errorf("timings.Retries = %d, want 2", timings.Retries)
	}
}

func TestSubmitDoesNotRetryClientErrors(t *testing.T) {
	var attempts int
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		mu.Unlock()
		http.Error(w, "bad payload", http.StatusBadRequest)
	}))
	defer server.Close()

	sub := NewSubmitter(server.URL, 5, 3, 10, 50, "", "", nil)

	err := sub.Submit(context.Background(), testRecord())
	if err == nil {
		t.Fatal("Submit() expected error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (4xx is not retryable)", attempts)
	}
}
