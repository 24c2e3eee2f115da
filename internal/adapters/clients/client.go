package clients

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/jsamuelsen/quote-sync/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quote-sync/internal/platform/config"
	"github.com/jsamuelsen/quote-sync/internal/platform/logging"
	"github.com/jsamuelsen/quote-sync/internal/platform/metrics"
)

const (
	tracerName     = "github.com/jsamuelsen/quote-sync/internal/adapters/clients"
	defaultTimeout = 10 * time.Second
	idleConnTTL    = 90 * time.Second
)

// Config configures a Client for one remote.
type Config struct {
	// BaseURL is the scheme and host of the remote, e.g.
	// "https://jsonplaceholder.typicode.com". A trailing slash is ignored.
	BaseURL string

	// ServiceName names the remote in logs, spans, metrics and the breaker.
	ServiceName string

	// Timeout bounds a single attempt. Retries and backoff come on top.
	Timeout time.Duration

	Retry     config.RetryConfig
	Circuit   config.CircuitBreakerConfig
	Transport config.TransportConfig

	// RateLimit paces attempts; a zero rate disables pacing.
	RateLimit config.RateLimitConfig

	Logger *slog.Logger
}

// Client talks JSON to one remote. Every call goes through the breaker,
// then up to Retry.MaxAttempts paced attempts with jittered exponential
// backoff between them. 5xx and 429 responses and transient network
// errors are retried; anything else is returned to the caller as is.
// Request and correlation ids from the context travel as headers, and
// each call is traced and counted.
type Client struct {
	http    *http.Client
	baseURL string
	name    string
	retry   config.RetryConfig
	logger  *slog.Logger
	breaker *gobreaker.CircuitBreaker[*http.Response]
	limiter *rate.Limiter
	tracer  trace.Tracer
}

// New creates a Client. ServiceName is required.
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	if cfg.ServiceName == "" {
		return nil, errors.New("service name is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	retry := cfg.Retry
	retry.MaxAttempts = max(retry.MaxAttempts, 1)

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger = logger.With(slog.String("component", "clients.Client"), slog.String("remote", cfg.ServiceName))

	var limiter *rate.Limiter
	if cfg.RateLimit.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), max(cfg.RateLimit.Burst, 1))
	}

	return &Client{
		http:    &http.Client{Timeout: timeout, Transport: newTransport(cfg.Transport)},
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		name:    cfg.ServiceName,
		retry:   retry,
		logger:  logger,
		breaker: newBreaker(cfg.ServiceName, cfg.Circuit, logger),
		limiter: limiter,
		tracer:  otel.Tracer(tracerName),
	}, nil
}

func newTransport(cfg config.TransportConfig) *http.Transport {
	orDefault := func(v, def int) int {
		if v <= 0 {
			return def
		}

		return v
	}

	idle := cfg.IdleConnTimeout
	if idle <= 0 {
		idle = idleConnTTL
	}

	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        orDefault(cfg.MaxIdleConns, config.DefaultTransportMaxIdleConns),
		MaxIdleConnsPerHost: orDefault(cfg.MaxIdleConnsPerHost, config.DefaultTransportMaxIdleConnsPerHost),
		IdleConnTimeout:     idle,
	}
}

// ServiceName returns the configured remote name.
func (c *Client) ServiceName() string {
	return c.name
}

// CircuitState returns the current breaker state.
func (c *Client) CircuitState() gobreaker.State {
	return c.breaker.State()
}

// Get issues a GET for path, which may carry a query string.
func (c *Client) Get(ctx context.Context, path string) (*http.Response, error) {
	return c.Send(ctx, http.MethodGet, path, nil)
}

// Send issues method against path with an optional JSON payload. The
// caller owns the returned body. Errors are transport failures,
// ErrCircuitOpen or ErrMaxRetriesExceeded; a non-2xx status that was not
// retried comes back as a response.
func (c *Client) Send(ctx context.Context, method, path string, payload []byte) (*http.Response, error) {
	start := time.Now()
	target := c.url(path)

	logger := logging.FromContext(ctx).With(
		slog.String("remote", c.name),
		slog.String("method", method),
		slog.String("path", path),
	)

	ctx, span := c.tracer.Start(ctx, "HTTP "+method+" "+c.name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.url", target),
			attribute.String("peer.service", c.name),
		))
	defer span.End()

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		return c.attempt(ctx, method, target, payload, logger)
	})

	outcome := "error"

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		outcome = "circuit_open"
		err = fmt.Errorf("%w: %w", ErrCircuitOpen, err)
		logger.WarnContext(ctx, "request rejected by circuit breaker", slog.String("state", c.breaker.State().String()))
	case err != nil:
		logger.ErrorContext(ctx, "request failed", slog.Duration("duration", time.Since(start)), slog.Any("error", err))
	default:
		outcome = strconv.Itoa(resp.StatusCode/100) + "xx"
		span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
		logger.DebugContext(ctx, "request completed",
			slog.Int("status", resp.StatusCode),
			slog.Duration("duration", time.Since(start)))
	}

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	} else if resp.StatusCode >= http.StatusBadRequest {
		span.SetStatus(codes.Error, resp.Status)
	}

	metrics.RecordRemoteCall(c.name, method, outcome, time.Since(start))

	return resp, err
}

// attempt runs the retry loop. Each try builds a fresh request so the
// payload is re-sent in full.
func (c *Client) attempt(ctx context.Context, method, target string, payload []byte, logger *slog.Logger) (*http.Response, error) {
	var lastErr error

	for n := range c.retry.MaxAttempts {
		if n > 0 {
			wait := c.backoff(n)
			logger.DebugContext(ctx, "retrying request", slog.Int("attempt", n+1), slog.Duration("backoff", wait))

			if err := sleep(ctx, wait); err != nil {
				return nil, err
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limiter: %w", err)
			}
		}

		req, err := c.newRequest(ctx, method, target, payload)
		if err != nil {
			return nil, err
		}

		resp, err := c.http.Do(req)

		switch {
		case err != nil && !retryable(err):
			return nil, err
		case err != nil:
			lastErr = err
		case resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests:
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
		default:
			return resp, nil
		}

		logger.DebugContext(ctx, "attempt failed", slog.Int("attempt", n+1), slog.Any("error", lastErr))
	}

	return nil, fmt.Errorf("%w: %w", ErrMaxRetriesExceeded, lastErr)
}

func (c *Client) newRequest(ctx context.Context, method, target string, payload []byte) (*http.Request, error) {
	var body io.Reader = http.NoBody
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	if payload != nil {
		req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	}

	if id := middleware.RequestIDFromContext(ctx); id != "" {
		req.Header.Set(middleware.HeaderRequestID, id)
	}

	if id := middleware.CorrelationIDFromContext(ctx); id != "" {
		req.Header.Set(middleware.HeaderCorrelationID, id)
	}

	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	return req, nil
}

// url joins the base URL and path.
func (c *Client) url(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return c.baseURL + path
}

// backoff returns InitialInterval * Multiplier^(n-1), capped at MaxInterval,
// spread by ±JitterFactor.
func (c *Client) backoff(n int) time.Duration {
	d := float64(c.retry.InitialInterval) * math.Pow(c.retry.Multiplier, float64(n-1))
	d = math.Min(d, float64(c.retry.MaxInterval))

	if j := c.retry.JitterFactor; j > 0 {
		d += d * j * (2*rand.Float64() - 1) //nolint:gosec // jitter only
	}

	return time.Duration(d)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// retryable reports whether a transport error may succeed on another try.
// Context cancellation and deadlines never are.
func retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError

	return errors.As(err, &opErr)
}
