package httpretry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nik45114/hhbot/internal/model"
)

// Doer is the subset of *http.Client the retry layer decorates.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client issues HTTP requests with a bounded number of attempts.
// Rate-limit responses (429) sleep for the server-provided Retry-After,
// falling back to exponential backoff; server faults (5xx) and transport
// errors back off exponentially. Any other response is returned
// immediately. On the final attempt a faulty response is returned as-is
// so the caller can classify it; an exhausted transport error is
// propagated instead.
type Client struct {
	inner       Doer
	maxAttempts int
	baseDelay   time.Duration
	logger      *slog.Logger
}

// New wraps inner with retry logic.
// maxAttempts is the total attempt bound (default 3 when <= 0).
// baseDelay is the first backoff delay, doubled on each later attempt.
func New(inner Doer, maxAttempts int, baseDelay time.Duration, logger *slog.Logger) *Client {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return &Client{
		inner:       inner,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		logger:      logger,
	}
}

// Do performs the request with retries. Callers must handle both return
// shapes after exhaustion: a non-nil failing response, or the last
// transport error.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		r, err := c.attemptRequest(req, attempt)
		if err != nil {
			return nil, err
		}

		resp, err := c.inner.Do(r)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			lastErr = err
			c.logger.Warn("request failed",
				"method", req.Method,
				"url", req.URL.String(),
				"attempt", attempt,
				"error", err,
			)
			if attempt == c.maxAttempts {
				return nil, lastErr
			}
			if err := c.sleep(req.Context(), c.backoffDelay(attempt, err)); err != nil {
				return nil, err
			}
			continue
		}

		c.logger.Debug("request attempt",
			"method", req.Method,
			"url", req.URL.String(),
			"status", resp.StatusCode,
			"attempt", attempt,
			"request_id", resp.Header.Get(model.RequestIDHeader),
		)

		if !retryableStatus(resp.StatusCode) {
			// 2xx, and 4xx other than 429, are terminal.
			return resp, nil
		}
		if attempt == c.maxAttempts {
			return resp, nil
		}

		httpErr := model.NewHTTPError(resp)
		c.logger.Warn("retrying after transient response",
			"url", req.URL.String(),
			"attempt", attempt,
			"error", httpErr,
		)
		resp.Body.Close()
		if err := c.sleep(req.Context(), c.backoffDelay(attempt, httpErr)); err != nil {
			return nil, err
		}
	}

	return nil, lastErr
}

// retryableStatus reports whether the status is a transient fault worth
// another attempt.
func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// attemptRequest returns the request to send for the given attempt,
// rewinding the body on retries via GetBody.
func (c *Client) attemptRequest(req *http.Request, attempt int) (*http.Request, error) {
	if attempt == 1 || req.Body == nil {
		return req, nil
	}
	if req.GetBody == nil {
		return nil, fmt.Errorf("cannot retry request with non-replayable body")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("rewinding request body: %w", err)
	}
	r := req.Clone(req.Context())
	r.Body = body
	return r, nil
}

// backoffDelay computes the delay after a failed attempt: baseDelay
// doubled per attempt, so delays are monotonically non-decreasing. A
// server-provided Retry-After on the error takes precedence.
func (c *Client) backoffDelay(attempt int, err error) time.Duration {
	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) && httpErr.RetryAfter > 0 {
		return httpErr.RetryAfter
	}

	delay := c.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	return delay
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("retry cancelled: %w", ctx.Err())
	case <-time.After(d):
		return nil
	}
}
