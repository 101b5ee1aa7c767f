// Package inventory retrieves raw listing snapshots from the configured
// resale endpoint and validates them into normalized Listing records.
//
// The package is deliberately generic: it expects a JSON document at a
// configured URL and knows nothing about any particular resale platform
// beyond the snapshot shape documented on ParseSnapshot.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const userAgent = "ticket-waitlist/1.0"

// maxSnapshotBytes caps how much of a response body is read. Snapshots for
// a single event are well under this; anything larger is a broken feed.
const maxSnapshotBytes = 8 << 20

// TransportError wraps a failed fetch. The watch loop treats it identically
// to a ValidationError: one soft-failed tick.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "inventory: fetch failed: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// Fetcher retrieves the raw inventory document for the configured event.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// HTTPFetcher fetches snapshots over HTTP GET. The endpoint URL carries the
// event identity; the fetcher has no per-call parameters.
type HTTPFetcher struct {
	endpoint string
	client   *http.Client
}

// NewHTTPFetcher creates a fetcher for the given endpoint URL.
func NewHTTPFetcher(endpoint string, timeout time.Duration) (*HTTPFetcher, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("inventory: endpoint URL is required")
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("inventory: invalid endpoint URL: %w", err)
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &HTTPFetcher{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

// Fetch retrieves the raw snapshot document. Any transport or HTTP-level
// failure is returned as a *TransportError.
func (f *HTTPFetcher) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint, nil)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotBytes))
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	return body, nil
}
