package httpapi

import (
	"net/http"
	"strings"
)

// SetupRouter sets up HTTP routes
func SetupRouter(handler *Handler, apiKey string) http.Handler {
	mux := http.NewServeMux()

	// GET /version
	mux.HandleFunc("/version", handler.GetVersion)

	// POST /sessions
	mux.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			handler.CreateSession(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// GET /sessions/{sessionId}
	// POST /sessions/{sessionId}/cancel
	mux.HandleFunc("/sessions/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/cancel") {
			if r.Method == http.MethodPost {
				handler.CancelSession(w, r)
			} else {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			}
		} else {
			if r.Method == http.MethodGet {
				handler.GetSession(w, r)
			} else {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			}
		}
	})

	// Apply auth middleware, but exclude /version endpoint
	wrapped := AuthMiddleware(mux, apiKey)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/version" {
			mux.ServeHTTP(w, r)
			return
		}
		wrapped.ServeHTTP(w, r)
	})
}
