package powerswitch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/dlipower/internal/logging"
)

const statusPath = "index.htm"

// request GETs baseURL/path with the current session and returns the body.
//
// Connection-level failures are retried until Retries attempts have been made,
// with exponential backoff between them. A completed response with a non-200
// status is returned as an HTTP error straight away.
//
// The session read lock is held for the whole call so a concurrent Login
// cannot swap the session out from under an in-flight request.
func (c *Client) request(ctx context.Context, path string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	target := c.baseURL + "/" + strings.TrimLeft(path, "/")

	var lastErr error
	currentDelay := c.endpoint.RetryDelay

	for attempt := 1; attempt <= c.endpoint.Retries; attempt++ {
		if attempt > 1 {
			if err := sleepContext(ctx, currentDelay); err != nil {
				return nil, NewNetworkError("request cancelled", err)
			}
			currentDelay *= 2
			if currentDelay > c.endpoint.MaxRetryDelay {
				currentDelay = c.endpoint.MaxRetryDelay
			}
		}

		body, err := c.requestAttempt(ctx, target, attempt)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if !IsRetryable(err) || ctx.Err() != nil {
			return nil, err
		}

		if attempt < c.endpoint.Retries {
			logging.Warn("Request failed, retrying",
				zap.String("switch", c.name),
				zap.String("url", target),
				zap.Int("attempt", attempt),
				zap.Int("retries", c.endpoint.Retries),
				zap.Error(err),
			)
		}
	}

	return nil, lastErr
}

// requestAttempt performs a single GET. Callers hold c.mu for reading.
func (c *Client) requestAttempt(ctx context.Context, target string, attempt int) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("invalid request url %q: %v", target, err))
	}

	if c.session != CookieAuthMode {
		req.SetBasicAuth(c.endpoint.Username, c.endpoint.Password)
	}

	logging.LogRequest(req.Method, target, attempt)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, ClassifyNetworkError(err, c.endpoint.Hostname)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewNetworkError("failed to read response body", err)
	}
	logging.LogResponse(target, resp.StatusCode, len(body))

	if resp.StatusCode != http.StatusOK {
		return nil, NewHTTPError(resp.StatusCode, fmt.Sprintf("unexpected status code: %d", resp.StatusCode))
	}

	return body, nil
}

// sleepContext waits for d or until ctx is done
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
