package openalex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// retryableStatus lists the response statuses that are retried.
var retryableStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// getJSON performs a GET with the retry policy and decodes the JSON body into out.
func (c *Client) getJSON(ctx context.Context, op, id, path string, query url.Values, out any) error {
	if c.mailto != "" {
		query.Set("mailto", c.mailto)
	}
	endpoint := c.baseURL + path
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	lastStatus := 0
	body, err := backoff.Retry(ctx, func() ([]byte, error) {
		b, status, err := c.attempt(ctx, endpoint)
		lastStatus = status
		return b, err
	},
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(c.maxAttempts),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Debug().Err(err).Str("op", op).Str("id", id).Dur("backoff", next).Msg("retrying OpenAlex request")
		}),
	)
	if err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Unwrap()
		}
		return &UpstreamError{Op: op, ID: id, StatusCode: lastStatus, Err: err}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &UpstreamError{Op: op, ID: id, StatusCode: lastStatus, Err: fmt.Errorf("%w: %v", ErrInvalidResponse, err)}
	}
	return nil
}

// attempt issues one request. Retryable failures are returned as plain errors,
// everything else as a permanent error so the retry loop stops.
func (c *Client) attempt(ctx context.Context, endpoint string) ([]byte, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, backoff.Permanent(fmt.Errorf("rate limiter: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, backoff.Permanent(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveUpstream(0)
		if ctx.Err() != nil {
			return nil, 0, backoff.Permanent(err)
		}
		return nil, 0, err
	}
	defer resp.Body.Close()
	c.metrics.ObserveUpstream(resp.StatusCode)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, resp.StatusCode, fmt.Errorf("reading response: %w", err)
		}
		return body, resp.StatusCode, nil
	}

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))

	statusErr := &statusError{StatusCode: resp.StatusCode}
	if !retryableStatus[resp.StatusCode] {
		return nil, resp.StatusCode, backoff.Permanent(statusErr)
	}
	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
		return nil, resp.StatusCode, backoff.RetryAfter(secs)
	}
	return nil, resp.StatusCode, statusErr
}

// newBackOff returns the exponential schedule: initialBackoff, then doubling, no jitter.
func (c *Client) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = c.maxBackoff
	return b
}
