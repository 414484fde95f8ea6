package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchSnapshot(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/employees":
			w.Write([]byte(`[{"name":"Dmytro Kolomiiets","warehouse":"A"}]`))
		case "/templates":
			w.Write([]byte(`[{"title":"Speed error","issueType":"Drive","solvingTimeMinutes":10}]`))
		case "/fleet":
			w.Write([]byte(`[{"robotNumber":"124","robotType":"A42T","warehouse":"A"}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	c := NewClient(server.URL+"/employees", server.URL+"/templates", server.URL+"/fleet", 5, "svc", "secret")

	snap, err := c.FetchSnapshot(context.Background())
	if err != nil {
		t.Fatalf("FetchSnapshot() error = %v", err)
	}

	if gotAuth == "" {
		t.Error("Expected Authorization header to be set")
	}
	if _, ok := snap.LookupEmployee("Dmytro Kolomiiets"); !ok {
		t.Error("Snapshot missing employee from directory")
	}
	if _, ok := snap.MatchTemplate("Speed error"); !ok {
		t.Error("Snapshot missing template from catalog")
	}
	if got := snap.DeviceType("124"); got != "A42T" {
		t.Errorf("DeviceType(124) = %q, want A42T", got)
	}
}

func TestFetchSnapshotFailsWhenOneEndpointFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/templates" {
			http.Error(w, "catalog down", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	c := NewClient(server.URL+"/employees", server.URL+"/templates", server.URL+"/fleet", 5, "", "")

	if _, err := c.FetchSnapshot(context.Background()); err == nil {
		t.Fatal("FetchSnapshot() should fail when the template catalog is unavailable")
	}
}

func TestResolveAuth(t *testing.T) {
	tests := []struct {
		name     string
		cfgUser  string
		cfgPass  string
		envUser  string
		envPass  string
		wantUser string
	}{
		{name: "config wins", cfgUser: "cfg", cfgPass: "p", envUser: "env", envPass: "p", wantUser: "cfg"},
		{name: "env fallback", envUser: "env", envPass: "p", wantUser: "env"},
		{name: "no credentials", wantUser: ""},
		{name: "incomplete config falls to env", cfgUser: "cfg", envUser: "env", envPass: "p", wantUser: "env"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, _ := ResolveAuth(tt.cfgUser, tt.cfgPass, tt.envUser, tt.envPass)
			if user != tt.wantUser {
				t.Errorf("ResolveAuth() user = %q, want %q", user, tt.wantUser)
			}
		})
	}
}
