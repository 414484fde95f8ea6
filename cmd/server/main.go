package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Nookons/tk-assistant-sub000/internal/catalog"
	"github.com/Nookons/tk-assistant-sub000/internal/config"
	"github.com/Nookons/tk-assistant-sub000/internal/httpapi"
	"github.com/Nookons/tk-assistant-sub000/internal/parse"
	"github.com/Nookons/tk-assistant-sub000/internal/reconcile"
	"github.com/Nookons/tk-assistant-sub000/internal/session"
	"github.com/Nookons/tk-assistant-sub000/internal/shift"
	"github.com/Nookons/tk-assistant-sub000/internal/version"
)

func main() {
	configPath := os.Getenv("TKA_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	log.Printf("%s starting", version.String())

	// Create session store
	store := session.NewStore()

	// Start worker goroutine
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go worker(ctx, store, cfg)

	// Setup HTTP server
	handler := httpapi.NewHandler(store)
	router := httpapi.SetupRouter(handler, cfg.APIKey)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server listening on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-sigChan
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	cancel() // Cancel worker context

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}

// worker processes sessions from the queue (synchronously, one at a time)
func worker(ctx context.Context, store *session.Store, cfg *config.Config) {
	for {
		sess, err := store.Next(ctx)
		if err != nil {
			if err == context.Canceled {
				return
			}
			log.Printf("Error getting next session: %v", err)
			time.Sleep(time.Second)
			continue
		}

		runSession(ctx, sess, store, cfg)
	}
}

// runSession drives one session through its three phases: snapshot fetch,
// parse, reconcile.
func runSession(ctx context.Context, sess *session.Session, store *session.Store, cfg *config.Config) {
	sessCtx, sessCancel := context.WithCancel(ctx)
	defer sessCancel()

	if err := store.SetCancel(sess.ID, sessCancel); err != nil {
		log.Printf("Session %s: Failed to register cancel: %v", sess.ID, err)
	}
	defer store.ClearCancel(sess.ID)

	if err := store.UpdateStatus(sess.ID, session.StatusRunning); err != nil {
		log.Printf("Session %s: %v", sess.ID, err)
		return
	}

	// Phase 1: fetch the three read-only snapshots. A failure here is not
	// locally recoverable: every later step depends on a complete view,
	// so the session fails with no partial output.
	user, pass := catalog.ResolveAuth(cfg.Catalog.User, cfg.Catalog.Pass,
		os.Getenv("TKA_CATALOG_USER"), os.Getenv("TKA_CATALOG_PASS"))
	client := catalog.NewClient(
		cfg.Catalog.DirectoryURL,
		cfg.Catalog.TemplatesURL,
		cfg.Catalog.FleetURL,
		cfg.Catalog.TimeoutSeconds,
		user, pass,
	)

	snap, err := client.FetchSnapshot(sessCtx)
	if err != nil {
		log.Printf("Session %s: Snapshot fetch failed: %v", sess.ID, err)
		store.UpdateError(sess.ID, err)
		if sessCtx.Err() == context.Canceled {
			store.UpdateStatus(sess.ID, session.StatusCanceled)
		} else {
			store.UpdateStatus(sess.ID, session.StatusFailed)
		}
		return
	}

	// Phase 2: parse. Fully synchronous, never fails the session: every
	// bad line becomes a diagnostic.
	workDate := sess.ReferenceDate
	if workDate.IsZero() {
		workDate = shift.WorkDate(time.Now())
	}

	dispatcher := parse.NewDispatcher(snap, workDate, cfg.Parse.SecondSiteCode)
	result := dispatcher.Parse(sess.Text)
	store.SetParseOutput(sess.ID, result)

	log.Printf("Session %s: Parsed %d issues, %d diagnostics",
		sess.ID, len(result.Issues), len(result.Diagnostics))

	if sessCtx.Err() == context.Canceled {
		store.UpdateStatus(sess.ID, session.StatusCanceled)
		return
	}

	// Phase 3: reconcile against the exception store.
	timings := reconcile.NewTimings()
	submitter := reconcile.NewSubmitter(
		cfg.Submit.Endpoint,
		cfg.Submit.TimeoutSeconds,
		cfg.Submit.MaxRetries,
		cfg.Submit.BackoffMs,
		cfg.Submit.BackoffMaxMs,
		cfg.Submit.User,
		cfg.Submit.Pass,
		timings,
	)
	pipeline := reconcile.NewPipeline(submitter, snap,
		time.Duration(cfg.Submit.DelayMs)*time.Millisecond, sess.ID)

	store.SetPersisting(sess.ID, true)
	report, err := pipeline.Run(sessCtx, result.Issues)
	store.SetPersisting(sess.ID, false)
	store.SetReport(sess.ID, report)

	if err != nil {
		if err == context.Canceled || sessCtx.Err() == context.Canceled {
			log.Printf("Session %s: Canceled after %d submitted", sess.ID, report.Submitted)
			store.UpdateStatus(sess.ID, session.StatusCanceled)
			return
		}
		log.Printf("Session %s: Reconciliation error: %v", sess.ID, err)
		store.UpdateError(sess.ID, err)
		store.UpdateStatus(sess.ID, session.StatusFailed)
		return
	}

	log.Printf("Session %s: Completed, submitted=%d failed=%d skipped=%d (%s)",
		sess.ID, report.Submitted, report.Failed, report.Skipped, timings)
	store.UpdateStatus(sess.ID, session.StatusSucceeded)
}
