package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptrace"
	"time"
)

// ErrFetchFailure is returned when a page could not be fetched within the
// configured number of attempts.
var ErrFetchFailure = errors.New("fetch failed")

// HTTPClient fetches published pages with browser-like headers and retries
type HTTPClient struct {
	client        *http.Client
	userAgent     string
	customHeaders map[string]string
	maxRetries    int           // Total attempts per Fetch
	retryDelay    time.Duration // Delay before the first retry, doubled per retry
}

// HTTPMetrics contains timing for one HTTP request
type HTTPMetrics struct {
	TTFB         time.Duration // Time to First Byte
	DownloadTime time.Duration // Total download time
}

// HTTPResponse contains the response and metrics
type HTTPResponse struct {
	StatusCode  int
	Headers     http.Header
	Body        []byte
	ContentType string
	Metrics     HTTPMetrics
	Attempts    int    // Attempts used by Fetch
	FinalURL    string // After following redirects
}

// NewHTTPClient creates a new HTTP client that tries each page once.
// Use SetRetryPolicy to enable retries.
func NewHTTPClient(userAgent string, timeout time.Duration) *HTTPClient {
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}

	return &HTTPClient{
		client:        client,
		userAgent:     userAgent,
		customHeaders: make(map[string]string),
		maxRetries:    1,
	}
}

// SetRetryPolicy sets the number of attempts per Fetch and the initial
// backoff between them.
func (h *HTTPClient) SetRetryPolicy(maxRetries int, retryDelay time.Duration) {
	if maxRetries < 1 {
		maxRetries = 1
	}
	h.maxRetries = maxRetries
	h.retryDelay = retryDelay
}

// SetCustomHeaders sets custom HTTP headers
func (h *HTTPClient) SetCustomHeaders(headers map[string]string) {
	for k, v := range headers {
		h.customHeaders[k] = v
	}
}

// Get performs a single HTTP GET request and returns the response whatever
// its status code.
func (h *HTTPClient) Get(ctx context.Context, url string) (*HTTPResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", h.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	// Don't set Accept-Encoding manually - let Go handle compression automatically

	for name, value := range h.customHeaders {
		req.Header.Set(name, value)
	}

	var metrics HTTPMetrics
	var firstByteTime time.Time
	trace := &httptrace.ClientTrace{
		GotFirstResponseByte: func() {
			firstByteTime = time.Now()
		},
	}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace))

	startTime := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if !firstByteTime.IsZero() {
		metrics.TTFB = firstByteTime.Sub(startTime)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	metrics.DownloadTime = time.Since(startTime)

	return &HTTPResponse{
		StatusCode:  resp.StatusCode,
		Headers:     resp.Header,
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		Metrics:     metrics,
		Attempts:    1,
		FinalURL:    resp.Request.URL.String(),
	}, nil
}

// Fetch gets url, retrying transport errors and statuses of 400 or above
// with exponential backoff. Cancellation of ctx stops immediately and
// returns the context error.
func (h *HTTPClient) Fetch(ctx context.Context, url string) (*HTTPResponse, error) {
	delay := h.retryDelay
	var lastErr error

	for attempt := 1; attempt <= h.maxRetries; attempt++ {
		resp, err := h.Get(ctx, url)
		if err == nil && resp.StatusCode < http.StatusBadRequest {
			resp.Attempts = attempt
			return resp, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}

		if attempt == h.maxRetries {
			break
		}

		slog.Warn("Fetch failed, retrying", "url", url, "attempt", attempt, "max_retries", h.maxRetries, "retry_in", delay, "error", lastErr)
		if err := sleepContext(ctx, delay); err != nil {
			return nil, err
		}
		delay *= 2
	}

	return nil, fmt.Errorf("%w: %s after %d attempts: %w", ErrFetchFailure, url, h.maxRetries, lastErr)
}

// Close closes the HTTP client
func (h *HTTPClient) Close() {
	h.client.CloseIdleConnections()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
