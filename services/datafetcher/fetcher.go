// Package datafetcher fetches JSON payloads from the upstream NEPSE data
// feeds. Payload shapes are treated as opaque; consumers unpack the few
// fields they understand.
package datafetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// FetchError reports an unreachable upstream or a non-2xx response.
// StatusCode is zero when the request never completed.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fetcher is an HTTP JSON client with a per-request deadline
type Fetcher struct {
	httpClient *http.Client
	timeout    time.Duration
}

// NewFetcher creates a fetcher. Every request is bounded by timeout so a
// hanging upstream cannot stall a scheduled job indefinitely.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// FetchJSON performs a GET and returns the raw JSON body. Any transport
// failure, deadline, non-2xx status or malformed body is a *FetchError.
func (f *Fetcher) FetchJSON(ctx context.Context, url string) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}
	if !json.Valid(body) {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("invalid JSON body")}
	}
	return body, nil
}
