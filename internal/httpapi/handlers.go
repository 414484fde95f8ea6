package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/Nookons/tk-assistant-sub000/internal/parse"
	"github.com/Nookons/tk-assistant-sub000/internal/session"
	"github.com/Nookons/tk-assistant-sub000/internal/version"
)

// maxBodyBytes bounds a pasted shift log. Real pastes are a few KB.
const maxBodyBytes = 1 << 20

// Handler handles HTTP requests
type Handler struct {
	store *session.Store
}

// NewHandler creates a new handler
func NewHandler(store *session.Store) *Handler {
	return &Handler{store: store}
}

// CreateSession handles POST /sessions. The pasted log arrives either as
// JSON {"text", "encoding", "referenceDate"} or as a raw text/plain body
// with ?encoding= and ?referenceDate= query parameters. Windows-1251 bytes
// do not survive a JSON string, so for any encoding other than utf-8 the
// JSON "text" field carries the raw bytes base64-encoded.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var (
		text    string
		refDate string
	)

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "text/plain") {
		raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			http.Error(w, fmt.Sprintf("Read body: %v", err), http.StatusBadRequest)
			return
		}
		text, err = parse.DecodeText(raw, r.URL.Query().Get("encoding"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		refDate = r.URL.Query().Get("referenceDate")
	} else {
		var req struct {
			Text          string `json:"text"`
			Encoding      string `json:"encoding"`
			ReferenceDate string `json:"referenceDate"`
		}
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
			return
		}
		if req.Encoding != "" && req.Encoding != "utf-8" {
			raw, err := base64.StdEncoding.DecodeString(req.Text)
			if err != nil {
				http.Error(w, fmt.Sprintf("text must be base64 when encoding is %q: %v", req.Encoding, err), http.StatusBadRequest)
				return
			}
			text, err = parse.DecodeText(raw, req.Encoding)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		} else {
			text = req.Text
		}
		refDate = req.ReferenceDate
	}

	if strings.TrimSpace(text) == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}

	sess := &session.Session{Text: text}
	if refDate != "" {
		d, err := time.Parse("2006-01-02", refDate)
		if err != nil {
			http.Error(w, fmt.Sprintf("referenceDate must be YYYY-MM-DD: %v", err), http.StatusBadRequest)
			return
		}
		sess.ReferenceDate = d
	}

	id, err := h.store.Create(sess)
	if err != nil {
		if err == session.ErrQueueFull {
			http.Error(w, "Queue is full, please try again later", http.StatusTooManyRequests)
			return
		}
		http.Error(w, fmt.Sprintf("Failed to create session: %v", err), http.StatusInternalServerError)
		return
	}

	log.Printf("Session created: %s (%d bytes)", id, len(text))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"sessionId": id,
		"status":    "queued",
	})
}

// GetSession handles GET /sessions/{sessionId}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/sessions/")
	if id == "" {
		http.Error(w, "sessionId is required", http.StatusBadRequest)
		return
	}

	sess, err := h.store.Get(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	response := map[string]interface{}{
		"status":       sess.Status,
		"issuesParsed": sess.IssuesParsed,
		"diagnostics":  len(sess.Diagnostics),
		"submitted":    sess.Submitted,
		"failed":       sess.Failed,
		"skipped":      sess.Skipped,
		"isPersisting": sess.IsPersisting,
	}

	if len(sess.Diagnostics) > 0 {
		response["diagnosticLines"] = sess.Diagnostics
	}
	if sess.StartedAt != nil {
		response["startedAt"] = sess.StartedAt.Format(time.RFC3339)
	}
	if sess.FinishedAt != nil {
		response["finishedAt"] = sess.FinishedAt.Format(time.RFC3339)
	}
	if sess.LastError != "" {
		response["lastError"] = sess.LastError
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// CancelSession handles POST /sessions/{sessionId}/cancel
func (h *Handler) CancelSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/sessions/")
	id = strings.TrimSuffix(id, "/cancel")
	if id == "" {
		http.Error(w, "sessionId is required", http.StatusBadRequest)
		return
	}

	if err := h.store.Cancel(id); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	log.Printf("Session canceled: %s", id)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "canceled",
	})
}

// GetVersion handles GET /version
func (h *Handler) GetVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(version.Info())
}
