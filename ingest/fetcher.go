package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	coderun "github.com/qiskit-studio/coderun"
)

const maxFetchBytes = 1 << 20 // 1MB

// Fetcher downloads source documents over HTTP.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a Fetcher with a 15-second timeout.
func NewFetcher() *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Fetch downloads rawURL and returns the body and the response
// Content-Type. Responses with status >= 400 yield a coderun.ErrHTTP.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; CoderunBot/1.0)")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, "", &coderun.ErrHTTP{Status: resp.StatusCode, URL: rawURL}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read error: %w", err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}
