package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/termhost/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/termhost/internal/infrastructure/tracing"
)

// AllLines asks Buffer and BufferByName for the whole retained output.
const AllLines = -1

// Options configures a Client.
type Options struct {
	BaseURL string
	// Timeout bounds each call. Exec waits get their own wait on top.
	Timeout      time.Duration
	MaxRetries   int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// RateLimit caps requests per second; zero means unlimited.
	RateLimit float64
	Logger    *zap.Logger
}

// DefaultOptions returns options for a server at baseURL.
func DefaultOptions(baseURL string) Options {
	return Options{
		BaseURL:      baseURL,
		Timeout:      30 * time.Second,
		MaxRetries:   3,
		RetryWaitMin: 200 * time.Millisecond,
		RetryWaitMax: 5 * time.Second,
	}
}

// Client talks to a termhost server.
type Client struct {
	resty   *resty.Client
	breaker *resilience.Breaker
	limiter *rate.Limiter
	timeout time.Duration
	baseURL string
}

// New creates a client. GET requests are retried on transient failures and
// every call passes through a circuit breaker.
func New(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")

	r := resty.New().
		SetBaseURL(baseURL).
		SetTransport(newTransport(opts.MaxRetries, opts.RetryWaitMin, opts.RetryWaitMax, logger.Named("client"))).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "termhost-client/1.0")

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), max(1, int(opts.RateLimit)))
	}

	breaker := resilience.New("termhost-api", resilience.Settings{
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || clientSide(err) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Client{
		resty:   r,
		breaker: breaker,
		limiter: limiter,
		timeout: opts.Timeout,
		baseURL: baseURL,
	}
}

// BreakerState returns the circuit breaker state.
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}

// call describes one request.
type call struct {
	method string
	path   string
	query  map[string]string
	body   any
	out    any
	// wait is server-side waiting the call includes, added to the timeout.
	wait time.Duration
}

func (c *Client) do(ctx context.Context, req call) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout+req.wait)
		defer cancel()
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	return c.breaker.Call(ctx, func(ctx context.Context) error {
		r := c.resty.R().SetContext(ctx).SetError(&APIError{})
		tracing.Inject(ctx, r.Header)
		if len(req.query) > 0 {
			r.SetQueryParams(req.query)
		}
		if req.body != nil {
			r.SetBody(req.body)
		}
		if req.out != nil {
			r.SetResult(req.out)
		}

		resp, err := r.Execute(req.method, req.path)
		if err != nil {
			return fmt.Errorf("%s %s: %w", req.method, req.path, err)
		}
		if resp.IsError() {
			apiErr, _ := resp.Error().(*APIError)
			if apiErr == nil {
				apiErr = &APIError{}
			}
			apiErr.StatusCode = resp.StatusCode()
			if apiErr.Message == "" {
				apiErr.Message = strings.TrimSpace(resp.String())
			}
			return apiErr
		}
		return nil
	})
}

func sessionPath(sessionID string, rest ...string) string {
	return "/api/terminals/" + escape(sessionID) + joinRest(rest)
}

func namePath(name string, rest ...string) string {
	return "/api/names/" + escape(name) + joinRest(rest)
}

func joinRest(rest []string) string {
	if len(rest) == 0 {
		return ""
	}
	return "/" + strings.Join(rest, "/")
}

func linesQuery(lines int) map[string]string {
	if lines < 0 {
		return nil
	}
	return map[string]string{"lines": strconv.Itoa(lines)}
}

func escape(segment string) string {
	return url.PathEscape(segment)
}
