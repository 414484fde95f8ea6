package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Nookons/tk-assistant-sub000/internal/parse"
	"github.com/Nookons/tk-assistant-sub000/internal/reconcile"
)

func TestStoreCreateAndGet(t *testing.T) {
	store := NewStore()

	id, err := store.Create(&Session{Text: "Dmytro Kolomiiets\nSpeed error.124.14:20"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	sess, err := store.Get(id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if sess.Status != StatusQueued {
		t.Errorf("Status = %s, want queued", sess.Status)
	}

	if _, err := store.Get("no-such-id"); err == nil {
		t.Error("Get() should fail for unknown ID")
	}
}

func TestStoreCancel(t *testing.T) {
	store := NewStore()

	id, err := store.Create(&Session{Text: "x"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	if err := store.SetCancel(id, cancel); err != nil {
		t.Fatalf("SetCancel() error = %v", err)
	}

	if err := store.Cancel(id); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}

	select {
	case <-ctx.Done():
		// Expected
	case <-time.After(time.Second):
		t.Error("Context should be canceled")
	}

	sess, err := store.Get(id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if sess.Status != StatusCanceled {
		t.Errorf("Expected status canceled, got %s", sess.Status)
	}

	store.ClearCancel(id)

	// Cancel again should fail - already finished
	if err := store.Cancel(id); err == nil {
		t.Error("Cancel() should fail for already finished session")
	}
}

func TestStoreStatusTimestamps(t *testing.T) {
	store := NewStore()

	id, _ := store.Create(&Session{Text: "x"})

	if err := store.UpdateStatus(id, StatusRunning); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	sess, _ := store.Get(id)
	if sess.StartedAt == nil {
		t.Error("StartedAt should be set when running")
	}
	if sess.FinishedAt != nil {
		t.Error("FinishedAt should not be set while running")
	}

	if err := store.UpdateStatus(id, StatusSucceeded); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	sess, _ = store.Get(id)
	if sess.FinishedAt == nil {
		t.Error("FinishedAt should be set when succeeded")
	}
}

func TestStoreParseAndReportOutput(t *testing.T) {
	store := NewStore()

	id, _ := store.Create(&Session{Text: "x"})

	store.SetParseOutput(id, parse.Result{
		Issues:      make([]parse.Issue, 3),
		Diagnostics: []parse.Diagnostic{{Line: 2, Message: "boom", Raw: "bad line"}},
	})
	store.SetReport(id, reconcile.Report{Submitted: 2, Failed: 1})

	sess, _ := store.Get(id)
	if sess.IssuesParsed != 3 {
		t.Errorf("IssuesParsed = %d, want 3", sess.IssuesParsed)
	}
	if len(sess.Diagnostics) != 1 || sess.Diagnostics[0].Line != 2 {
		t.Errorf("Diagnostics = %v", sess.Diagnostics)
	}
	if sess.Submitted != 2 || sess.Failed != 1 {
		t.Errorf("report counters = %d/%d, want 2/1", sess.Submitted, sess.Failed)
	}
}

func TestStoreQueueOrder(t *testing.T) {
	store := NewStore()

	first, _ := store.Create(&Session{Text: "first"})
	second, _ := store.Create(&Session{Text: "second"})

	ctx := context.Background()
	got, err := store.Next(ctx)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if got.ID != first {
		t.Errorf("Next() = %s, want %s", got.ID, first)
	}
	got, _ = store.Next(ctx)
	if got.ID != second {
		t.Errorf("Next() = %s, want %s", got.ID, second)
	}
}

func TestStoreGetReturnsSnapshot(t *testing.T) {
	store := NewStore()

	id, _ := store.Create(&Session{Text: "x"})
	store.SetParseOutput(id, parse.Result{
		Diagnostics: []parse.Diagnostic{{Line: 1, Message: "boom"}},
	})

	before, _ := store.Get(id)

	// Later store updates must not show through an earlier Get result.
	store.SetParseOutput(id, parse.Result{
		Issues:      make([]parse.Issue, 5),
		Diagnostics: []parse.Diagnostic{{Line: 1, Message: "boom"}, {Line: 2, Message: "bang"}},
	})
	store.UpdateStatus(id, StatusRunning)

	if before.IssuesParsed != 0 || len(before.Diagnostics) != 1 {
		t.Errorf("earlier Get mutated: parsed=%d diagnostics=%d", before.IssuesParsed, len(before.Diagnostics))
	}
	if before.Status != StatusQueued {
		t.Errorf("earlier Get Status = %s, want queued", before.Status)
	}

	// And writes through a Get result must not reach the store.
	after, _ := store.Get(id)
	after.Status = StatusFailed
	after.Diagnostics[0].Message = "scribbled"

	check, _ := store.Get(id)
	if check.Status != StatusRunning {
		t.Errorf("Status = %s, want running", check.Status)
	}
	if check.Diagnostics[0].Message != "boom" {
		t.Errorf("Diagnostics[0].Message = %q, want boom", check.Diagnostics[0].Message)
	}
}

func TestStoreGetWhileUpdatingNoDataRace(t *testing.T) {
	store := NewStore()

	id, _ := store.Create(&Session{Text: "x"})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			store.SetParseOutput(id, parse.Result{
				Diagnostics: []parse.Diagnostic{{Line: i, Message: "boom"}},
			})
			store.SetPersisting(id, i%2 == 0)
			store.UpdateStatus(id, StatusRunning)
		}
	}()

	for i := 0; i < 200; i++ {
		sess, err := store.Get(id)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		_ = len(sess.Diagnostics)
		_ = sess.IsPersisting
	}
	<-done
}

func TestStoreCancelNoDataRace(t *testing.T) {
	store := NewStore()

	ids := make([]string, 10)
	for i := 0; i < 10; i++ {
		id, err := store.Create(&Session{Text: "x"})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		ids[i] = id
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, cancel := context.WithCancel(context.Background())
			store.SetCancel(id, cancel)
			store.Cancel(id)
			store.ClearCancel(id)
		}(id)
	}
	wg.Wait()
}
