package urlimport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	defaultTimeout   = 20 * time.Second
	maxAttempts      = 3
	maxResponseBytes = 10 << 20

	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	acceptLanguage   = "en-US,en;q=0.9"
)

// HTTPStatusError is returned when a fetch ends with a non-2xx response
// after retries are exhausted. Batch error reporting surfaces these over
// parse errors because they point at the remote store, not at our parsing.
type HTTPStatusError struct {
	StatusCode int
	URL        string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d fetching %s", e.StatusCode, e.URL)
}

// Statuses worth retrying: rate limiting and transient upstream failures.
var retryStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// fetcher is the shared HTTP layer for every URL import client. Every
// request carries a browser-like User-Agent; several storefronts serve
// bot UAs a challenge page instead of product markup.
type fetcher struct {
	client *http.Client
}

func newFetcher(client *http.Client) *fetcher {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &fetcher{client: client}
}

func newRetryPolicy(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 600 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	return backoff.WithContext(backoff.WithMaxRetries(bo, maxAttempts-1), ctx)
}

func (f *fetcher) get(ctx context.Context, rawURL string, header http.Header) ([]byte, error) {
	var body []byte
	attempt := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", browserUserAgent)
		req.Header.Set("Accept-Language", acceptLanguage)
		for key, values := range header {
			for _, value := range values {
				req.Header.Set(key, value)
			}
		}

		resp, err := f.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			statusErr := &HTTPStatusError{StatusCode: resp.StatusCode, URL: rawURL}
			if retryStatus[resp.StatusCode] {
				return statusErr
			}
			return backoff.Permanent(statusErr)
		}
		body = data
		return nil
	}

	if err := backoff.Retry(attempt, newRetryPolicy(ctx)); err != nil {
		return nil, err
	}
	return body, nil
}

func (f *fetcher) getJSON(ctx context.Context, rawURL string, header http.Header, out any) error {
	body, err := f.get(ctx, rawURL, header)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response from %s: %w", rawURL, err)
	}
	return nil
}
