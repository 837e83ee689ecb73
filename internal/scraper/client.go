package scraper

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/GriffinCanCode/vitibrasil/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/vitibrasil/internal/infrastructure/resilience"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ClientConfig configures the upstream fetcher.
type ClientConfig struct {
	UserAgent         string
	Timeout           time.Duration
	InsecureTLS       bool
	RequestsPerSecond float64
	Burst             int
	MaxBodySize       int64
}

// Document is a fetched report page, still encoded as served.
type Document struct {
	URL         string
	ContentType string
	Body        []byte
}

// Client fetches report pages. One Client is shared by all workers of a
// sweep: connections are pooled by its transport and requests are paced by
// its limiter. It never retries; that is left to the caller.
type Client struct {
	resty   *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	maxBody int64
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewClient creates a fetcher with a pooled transport, pacing and a circuit
// breaker around the upstream host.
func NewClient(cfg ClientConfig, logger *zap.Logger, metrics *monitoring.Metrics) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = MaxHTMLSize
	}

	// retryablehttp's pooled transport, without its retry loop
	transport := retryablehttp.NewClient().HTTPClient.Transport.(*http.Transport)
	if cfg.InsecureTLS {
		// The upstream certificate chain is broken.
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	restyClient := resty.New().
		SetTransport(transport).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetResponseBodyLimit(int(cfg.MaxBodySize)).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml")

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	c := &Client{
		resty:   restyClient,
		limiter: limiter,
		maxBody: cfg.MaxBodySize,
		metrics: metrics,
		logger:  logger,
	}

	c.breaker = resilience.New("vitibrasil-upstream", resilience.Settings{
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsFailure: func(err error) bool {
			var fe *FetchError
			if errors.As(err, &fe) {
				if fe.aborted {
					return false
				}
				if fe.Status != 0 {
					return fe.Status >= 500
				}
			}
			return true
		},
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			metrics.SetBreakerState(int(to))
		},
	})

	return c
}

// Fetch issues a GET for url. Every failure is a *FetchError.
func (c *Client) Fetch(ctx context.Context, url string) (*Document, error) {
	if err := c.breaker.Allow(); err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("rate limit wait: %w", err)}
	}

	start := time.Now()
	doc, err := resilience.Run(c.breaker, func() (*Document, error) {
		return c.get(ctx, url)
	})
	if err != nil {
		var fe *FetchError
		if !errors.As(err, &fe) {
			fe = &FetchError{URL: url, Err: err}
		}
		c.metrics.RecordFetch(fe.Status, time.Since(start))
		c.logger.Debug("fetch failed", zap.String("url", url), zap.Error(fe))
		return nil, fe
	}

	c.metrics.RecordFetch(http.StatusOK, time.Since(start))
	c.logger.Debug("fetched report page",
		zap.String("url", url),
		zap.Int("bytes", len(doc.Body)),
		zap.Duration("took", time.Since(start)))
	return doc, nil
}

func (c *Client) get(ctx context.Context, url string) (*Document, error) {
	resp, err := c.resty.R().SetContext(ctx).Get(url)
	switch {
	case err == nil:
	case ctx.Err() != nil:
		// the caller gave up; says nothing about upstream health
		return nil, &FetchError{URL: url, Err: ctx.Err(), aborted: true}
	case errors.Is(err, resty.ErrResponseBodyTooLarge):
		return nil, &FetchError{URL: url, Err: fmt.Errorf("%w: over %d bytes", ErrBodyTooLarge, c.maxBody)}
	default:
		return nil, &FetchError{URL: url, Err: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &FetchError{URL: url, Status: resp.StatusCode()}
	}

	body := resp.Body()
	if int64(len(body)) > c.maxBody {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("%w: %d bytes", ErrBodyTooLarge, len(body))}
	}

	return &Document{
		URL:         url,
		ContentType: resp.Header().Get("Content-Type"),
		Body:        body,
	}, nil
}

// BreakerState returns the current circuit breaker state.
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}

func isBreakerError(err error) bool {
	return errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrTooManyRequests)
}
