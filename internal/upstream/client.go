// Package upstream wraps outbound calls to external services with the
// per-call budget: timeout, bounded retries and backoff.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"cardauth/internal/config"
	"cardauth/internal/telemetry"

	"go.uber.org/zap"
)

// ErrUnavailable marks a retriable upstream failure that exhausted its retry
// budget. Surfaced at the boundary as ISSUER_UNAVAILABLE.
var ErrUnavailable = errors.New("upstream unavailable")

// StatusError carries a non-2xx upstream response.
type StatusError struct {
	Service string
	Status  int
	Body    []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.Service, e.Status)
}

// Client issues JSON requests against one upstream service.
type Client struct {
	name    string
	baseURL string
	http    *http.Client
	retries int
	backoff time.Duration
	metrics telemetry.MetricsCollector
}

// NewClient builds a client from the service's configured call budget.
func NewClient(name string, cfg config.ExternalService, metrics telemetry.MetricsCollector) *Client {
	if metrics == nil {
		metrics = &telemetry.NoopMetricsCollector{}
	}
	retries := cfg.MaxAttempts
	if retries < 1 {
		retries = 1
	}
	return &Client{
		name:    name,
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
		retries: retries,
		backoff: cfg.Backoff,
		metrics: metrics,
	}
}

// DoJSON performs method path with the optional JSON body, decoding the
// response into out when out is non-nil. Retriable failures (transport
// errors, 5xx, 429) are retried with backoff up to the configured attempts.
func (c *Client) DoJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", c.name, err)
		}
	}

	var lastErr error
	backoff := c.backoff
	for attempt := 1; attempt <= c.retries; attempt++ {
		if attempt > 1 {
			c.metrics.RecordUpstreamRetry(c.name)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		lastErr = c.doOnce(ctx, method, path, payload, out)
		if lastErr == nil {
			return nil
		}
		if !retriable(lastErr) {
			return lastErr
		}
		if telemetry.Logger != nil {
			telemetry.Logger.Warn("upstream call failed",
				zap.String("service", c.name),
				zap.String("path", path),
				zap.Int("attempt", attempt),
				zap.Error(lastErr),
			)
		}
	}
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, c.name, lastErr)
}

func (c *Client) doOnce(ctx context.Context, method, path string, payload []byte, out interface{}) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Service: c.name, Status: resp.StatusCode, Body: data}
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", c.name, err)
		}
	}
	return nil
}

func retriable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status >= 500 || statusErr.Status == http.StatusTooManyRequests
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	// Transport-level failures are worth another attempt.
	return true
}
