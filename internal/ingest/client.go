package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/lox/tokyotemps/internal/httputil"
	"github.com/lox/tokyotemps/internal/metrics"
)

const (
	DefaultBaseURL = "https://weather.tsukumijima.net/api/forecast/city"
	DefaultCity    = "130010"

	// Source identifies the forecast provider in ingest audit rows.
	Source = "tsukumijima"
)

var (
	ErrNetwork        = errors.New("network failure")
	ErrPersistence    = errors.New("persistence failure")
	ErrInvalidPayload = errors.New("invalid forecast payload")

	errRetryable = errors.New("retryable status")
)

// FetchResult records what happened on the wire for the ingest audit.
type FetchResult struct {
	HTTPStatus   int
	ResponseSize int
	Body         []byte
	Error        error
}

type Client struct {
	baseURL      string
	city         string
	client       *http.Client
	circuit      *gobreaker.CircuitBreaker
	maxRetries   uint64
	initialDelay time.Duration
}

func NewClient(baseURL, city string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if city == "" {
		city = DefaultCity
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		city:    city,
		client:  httputil.NewClient(timeout),
		circuit: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "forecast-" + city,
			MaxRequests: 1,
			Interval:    5 * time.Minute,
			Timeout:     2 * time.Minute,
		}),
		maxRetries:   3,
		initialDelay: 500 * time.Millisecond,
	}
}

// SetRetry overrides the retry policy for transient failures.
func (c *Client) SetRetry(maxRetries uint64, initialDelay time.Duration) {
	c.maxRetries = maxRetries
	c.initialDelay = initialDelay
}

func (c *Client) City() string {
	return c.city
}

func (c *Client) Endpoint() string {
	return c.baseURL + "/" + c.city
}

// Fetch retrieves and validates the city forecast. Timeouts, transport errors,
// 429 and 5xx responses are retried. Failures wrap ErrNetwork or
// ErrInvalidPayload.
func (c *Client) Fetch(ctx context.Context) (*ForecastResponse, *FetchResult, error) {
	result := &FetchResult{}
	url := c.Endpoint()

	operation := func() error {
		start := time.Now()
		out, err := c.circuit.Execute(func() (interface{}, error) {
			return c.do(ctx, url)
		})
		metrics.ForecastAPILatency.WithLabelValues(c.city).Observe(time.Since(start).Seconds())

		if err != nil {
			var se *statusError
			if errors.As(err, &se) {
				result.HTTPStatus = se.status
				result.ResponseSize = len(se.body)
				metrics.ForecastAPICallsTotal.WithLabelValues(c.city, strconv.Itoa(se.status)).Inc()
				if !errors.Is(err, errRetryable) {
					return backoff.Permanent(err)
				}
				return err
			}
			metrics.ForecastAPICallsTotal.WithLabelValues(c.city, "error").Inc()
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(fmt.Errorf("circuit open: %w", err))
			}
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}

		body := out.([]byte)
		result.HTTPStatus = http.StatusOK
		result.ResponseSize = len(body)
		result.Body = body
		metrics.ForecastAPICallsTotal.WithLabelValues(c.city, "200").Inc()
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initialDelay
	bo.MaxElapsedTime = 2 * time.Minute
	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, c.maxRetries), ctx)); err != nil {
		result.Error = fmt.Errorf("%w: fetch forecast: %v", ErrNetwork, err)
		return nil, result, result.Error
	}

	data, err := ParseForecastResponse(result.Body)
	if err != nil {
		result.Error = err
		return nil, result, err
	}
	return data, result, nil
}

type statusError struct {
	status int
	body   []byte
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.status, truncate(string(e.body), 200))
}

func (e *statusError) Unwrap() error {
	if e.status == http.StatusTooManyRequests || e.status >= 500 {
		return errRetryable
	}
	return nil
}

func (c *Client) do(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{status: resp.StatusCode, body: body}
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
