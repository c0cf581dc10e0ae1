// Package fetch retrieves article text for a URL, either through a
// reader-API endpoint that returns markdown or by fetching the page
// directly and extracting readable text from the HTML.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"ContentAirlock/internal/domain"
	"ContentAirlock/internal/ports"
)

// Defaults for the retry policy. The backoff doubles before each retry
// (2, 4, 8 units) and the per-attempt timeout grows linearly so a
// slow-but-alive upstream gets more room instead of failing identically.
const (
	DefaultMaxAttempts = 3
	DefaultBackoffBase = 2 * time.Second
	DefaultTimeoutBase = 20 * time.Second
	DefaultTimeoutStep = 10 * time.Second
)

// Options tunes the client; zero values fall back to the defaults above.
type Options struct {
	// Endpoint is the reader-API base (e.g. https://r.jina.ai). Empty
	// switches the client to direct mode: the URL itself is fetched and
	// HTML responses go through readable-text extraction.
	Endpoint string
	// APIKey is sent as a bearer token when set.
	APIKey      string
	MaxAttempts int
	BackoffBase time.Duration
	TimeoutBase time.Duration
	TimeoutStep time.Duration
}

// Client implements ports.Fetcher with bounded retry on timeouts.
type Client struct {
	opts   Options
	http   *http.Client
	logger *slog.Logger

	// sleep is swapped out by tests to observe backoff without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

var _ ports.Fetcher = (*Client)(nil)

// NewClient builds a fetcher. A nil httpClient gets a default without a
// client-level timeout; per-attempt deadlines come from the retry loop.
func NewClient(opts Options, httpClient *http.Client, logger *slog.Logger) *Client {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = DefaultBackoffBase
	}
	if opts.TimeoutBase <= 0 {
		opts.TimeoutBase = DefaultTimeoutBase
	}
	if opts.TimeoutStep <= 0 {
		opts.TimeoutStep = DefaultTimeoutStep
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		opts:   opts,
		http:   httpClient,
		logger: logger,
		sleep:  sleepCtx,
	}
}

// Fetch returns the article text for url. Only timeout-classified failures
// are retried; any other transport or status failure fails the URL at once.
// Exhaustion yields a domain.FetchError wrapping the last cause. A success
// after retries is indistinguishable from a first-attempt success.
func (c *Client) Fetch(ctx context.Context, url string) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := c.opts.BackoffBase << (attempt - 2)
			c.debug("retrying after backoff", "url", url, "attempt", attempt, "delay", delay)
			if err := c.sleep(ctx, delay); err != nil {
				return "", &domain.FetchError{URL: url, Attempts: attempt - 1, Err: err}
			}
		}

		text, err := c.fetchOnce(ctx, url, attempt)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if !isTimeout(err) {
			return "", &domain.FetchError{URL: url, Attempts: attempt, Err: err}
		}
		c.debug("attempt timed out", "url", url, "attempt", attempt, "error", err)
	}

	return "", &domain.FetchError{URL: url, Attempts: c.opts.MaxAttempts, Err: lastErr}
}

func (c *Client) fetchOnce(ctx context.Context, url string, attempt int) (string, error) {
	timeout := c.opts.TimeoutBase + time.Duration(attempt)*c.opts.TimeoutStep
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	target := url
	if c.opts.Endpoint != "" {
		target = strings.TrimSuffix(c.opts.Endpoint, "/") + "/" + url
	}

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", "ContentAirlock/1.0")
	if c.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("upstream returned %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	if c.opts.Endpoint == "" && isHTML(resp.Header.Get("Content-Type")) {
		return extractReadable(body)
	}
	return string(body), nil
}

// isTimeout classifies a failure as retryable. Everything else (DNS, 4xx,
// connection refused) wastes retries and fails fast instead.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isHTML(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "text/html")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
