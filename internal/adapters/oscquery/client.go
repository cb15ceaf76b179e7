package oscquery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bnema/gestation-osc/internal/metacache"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

const (
	DefaultTimeout  = 3 * time.Second
	maxResponseSize = 4 << 20
)

var ErrUnexpectedStatus = errors.New("unexpected metadata status")

// Client fetches metadata documents from the peer's OSCQuery endpoint. A
// circuit breaker stops hammering a peer that is not answering.
type Client struct {
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

var _ metacache.Fetcher = (*Client)(nil)

func NewClient(httpClient *http.Client, timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "oscquery",
		MaxRequests: 1,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info().Str("breaker", name).Stringer("from", from).Stringer("to", to).Msg("metadata breaker state change")
		},
	})

	return &Client{http: httpClient, breaker: breaker}
}

func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	body, err := c.breaker.Execute(func() (interface{}, error) {
		return c.get(ctx, url)
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	return body.([]byte), nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}
