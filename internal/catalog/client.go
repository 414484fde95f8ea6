package catalog

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// Client fetches the employee directory, the error template catalog, and
// the fleet snapshot from their read-only HTTP endpoints.
type Client struct {
	client       *http.Client
	directoryURL string
	templatesURL string
	fleetURL     string
	authHeader   string
}

// ResolveAuth resolves basic-auth credentials for the catalog endpoints.
// Explicit config wins over environment credentials.
func ResolveAuth(cfgUser, cfgPass, envUser, envPass string) (string, string) {
	if cfgUser != "" && cfgPass != "" {
		return cfgUser, cfgPass
	}
	if envUser != "" && envPass != "" {
		return envUser, envPass
	}
	return "", ""
}

// NewClient creates a catalog client. Empty credentials disable auth.
func NewClient(directoryURL, templatesURL, fleetURL string, timeoutSeconds int, user, pass string) *Client {
	authHeader := ""
	if user != "" && pass != "" {
		authHeader = "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
	}

	return &Client{
		client: &http.Client{
			Timeout: time.Duration(timeoutSeconds) * time.Second,
		},
		directoryURL: directoryURL,
		templatesURL: templatesURL,
		fleetURL:     fleetURL,
		authHeader:   authHeader,
	}
}

// FetchSnapshot fetches all three catalogs concurrently and builds the
// session snapshot. Any single failure fails the whole fetch: parsing
// without a complete snapshot would silently misclassify every line, so
// the session must not start.
func (c *Client) FetchSnapshot(ctx context.Context) (*Snapshot, error) {
	var (
		employees []Employee
		templates []ErrorTemplate
		robots    []Robot
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := c.getJSON(gctx, c.directoryURL, &employees); err != nil {
			return fmt.Errorf("employee directory: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := c.getJSON(gctx, c.templatesURL, &templates); err != nil {
			return fmt.Errorf("error template catalog: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := c.getJSON(gctx, c.fleetURL, &robots); err != nil {
			return fmt.Errorf("fleet snapshot: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return NewSnapshot(employees, templates, robots), nil
}

// getJSON performs an authenticated GET and decodes the JSON body into out.
func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request error: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.authHeader != "" {
		req.Header.Set("Authorization", c.authHeader)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
