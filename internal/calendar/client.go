// Package calendar wraps the external calendar provider's REST API. Session
// mutations push events here best-effort; the caller logs failures and moves
// on, and a nightly job re-syncs sessions that never got an event.
package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/strenly/coachpulse/internal/domain"
	"github.com/strenly/coachpulse/internal/metrics"
	"github.com/strenly/coachpulse/internal/retry"
)

const (
	requestTimeout = 10 * time.Second
	maxAttempts    = 3
	initialBackoff = 500 * time.Millisecond
)

// apiError carries the provider's HTTP status so the retry classifier can
// tell terminal 4xx from retryable 5xx.
type apiError struct {
	status int
	body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("calendar API returned status %d: %s", e.status, e.body)
}

// Client is the production domain.CalendarClient: bearer-token REST calls
// with retry on 5xx/network errors, wrapped in a circuit breaker so a dead
// provider cannot slow every session mutation down to its timeouts.
type Client struct {
	baseURL     string
	token       string
	httpClient  *http.Client
	breaker     *gobreaker.CircuitBreaker
	retryPolicy retry.Policy
}

var _ domain.CalendarClient = (*Client)(nil)

func NewClient(baseURL, token string) *Client {
	settings := gobreaker.Settings{
		Name: "calendar",
		// Open after 5 consecutive failures, probe again after 30s.
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		Timeout: 30 * time.Second,
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed", "component", name, "from", from.String(), "to", to.String())
			metrics.CircuitBreakerStateChanges.WithLabelValues(name, to.String()).Inc()
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
		},
	}

	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: requestTimeout},
		breaker:    gobreaker.NewCircuitBreaker(settings),
		retryPolicy: retry.Policy{
			MaxAttempts:      maxAttempts,
			InitialBackoff:   initialBackoff,
			RateLimitBackoff: 2 * time.Second,
		},
	}
}

func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

type eventPayload struct {
	Title    string    `json:"title"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

func (c *Client) CreateEvent(ctx context.Context, event domain.CalendarEvent) (string, error) {
	var created struct {
		ID string `json:"id"`
	}
	err := c.call(ctx, "create", http.MethodPost, "/events", &eventPayload{
		Title:    event.Title,
		StartsAt: event.StartsAt,
		EndsAt:   event.EndsAt,
	}, &created)
	if err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", errors.New("calendar API returned no event ID")
	}
	return created.ID, nil
}

func (c *Client) UpdateEvent(ctx context.Context, eventID string, event domain.CalendarEvent) error {
	return c.call(ctx, "update", http.MethodPut, "/events/"+eventID, &eventPayload{
		Title:    event.Title,
		StartsAt: event.StartsAt,
		EndsAt:   event.EndsAt,
	}, nil)
}

func (c *Client) DeleteEvent(ctx context.Context, eventID string) error {
	err := c.call(ctx, "delete", http.MethodDelete, "/events/"+eventID, nil, nil)

	// Deleting an already-gone event is fine.
	var apiErr *apiError
	if errors.As(err, &apiErr) && apiErr.status == http.StatusNotFound {
		return nil
	}
	return err
}

// call runs one API operation through the breaker and the retry policy.
func (c *Client) call(ctx context.Context, operation, method, path string, payload, result any) error {
	policy := c.retryPolicy
	policy.OnRetry = func(attempt int, err error, backoff time.Duration) {
		slog.Warn("retrying calendar API call", "operation", operation, "attempt", attempt, "backoff", backoff, "error", err)
	}

	_, err := c.breaker.Execute(func() (any, error) {
		return nil, retry.DoVoid(ctx, policy, classify, func() error {
			return c.doRequest(ctx, method, path, payload, result)
		})
	})
	if err != nil {
		metrics.CalendarSyncTotal.WithLabelValues(operation, "error").Inc()
		return err
	}

	metrics.CalendarSyncTotal.WithLabelValues(operation, "ok").Inc()
	return nil
}

// classify maps provider failures to retry actions: 4xx are terminal,
// 429 waits longer, everything else (5xx, network) retries.
func classify(err error) retry.Action {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.status == http.StatusTooManyRequests:
			return retry.After
		case apiErr.status >= 400 && apiErr.status < 500:
			return retry.Stop
		}
	}
	return retry.Retry
}

func (c *Client) doRequest(ctx context.Context, method, path string, payload, result any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode calendar payload: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create calendar request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calendar request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &apiError{status: resp.StatusCode, body: string(raw)}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode calendar response: %w", err)
		}
	}
	return nil
}
