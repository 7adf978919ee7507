package httputil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"

	"github.com/wonny/screener/pkg/config"
	"github.com/wonny/screener/pkg/logger"
	"github.com/wonny/screener/pkg/metrics"
	"github.com/wonny/screener/pkg/redis"
)

const (
	defaultUserAgent   = "Mozilla/5.0"
	defaultBackoffBase = 300 * time.Millisecond
	maxBodyBytes       = 8 << 20
)

// Client fetches pages with timeout, retry and backoff.
// One Client (and one transport) is created per process and shared by all sources.
// ⭐ SSOT: 모든 HTTP 요청은 이 클라이언트를 통해서만 수행
type Client struct {
	httpClient   *http.Client
	logger       *logger.Logger
	retryConfig  RetryConfig
	userAgent    string
	limiter      *rate.Limiter
	rateLimiter  *redis.RateLimiter
	rateLimitCfg *redis.RateLimitConfig
}

// RetryConfig holds retry configuration
type RetryConfig struct {
	MaxRetries int           // retries after the first attempt
	BaseDelay  time.Duration // backoff = BaseDelay * 2^(retry-1)
	Enabled    bool
}

// RawPage is an undecoded response
type RawPage struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// OK reports a 2xx status
func (p *RawPage) OK() bool {
	return p.StatusCode >= 200 && p.StatusCode < 300
}

// UTF8Reader returns the body transcoded to UTF-8.
// The encoding comes from Content-Type or the page's meta tag (Naver/KIND serve EUC-KR).
func (p *RawPage) UTF8Reader() (io.Reader, error) {
	r, err := charset.NewReader(bytes.NewReader(p.Body), p.ContentType)
	if err != nil {
		return nil, fmt.Errorf("decode charset: %w", err)
	}
	return r, nil
}

// FetchFailure is returned once the retry budget is spent.
// Callers treat it as "no data for this page".
type FetchFailure struct {
	URL        string
	Attempts   int
	StatusCode int   // last status, 0 if no response
	Err        error // last transport error, nil if the last attempt got a response
}

func (e *FetchFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s failed after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
	}
	return fmt.Sprintf("fetch %s failed after %d attempt(s): status %d", e.URL, e.Attempts, e.StatusCode)
}

func (e *FetchFailure) Unwrap() error {
	return e.Err
}

// New creates a new HTTP client from config
// ⭐ SSOT: http.Client 인스턴스는 여기서만 생성
func New(cfg *config.Config, log *logger.Logger) *Client {
	f := withDefaults(cfg.Fetch)

	c := &Client{
		httpClient: &http.Client{
			Timeout:   f.RequestTimeout,
			Transport: newTransport(f),
		},
		logger: log.WithField("module", "httputil"),
		retryConfig: RetryConfig{
			MaxRetries: f.MaxRetries,
			BaseDelay:  f.BackoffBase,
			Enabled:    f.MaxRetries > 0,
		},
		userAgent: f.UserAgent,
	}

	if f.RateLimit > 0 {
		burst := f.RateBurst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(f.RateLimit), burst)
	}

	return c
}

func withDefaults(f config.FetchConfig) config.FetchConfig {
	if f.ConnectTimeout <= 0 {
		f.ConnectTimeout = 12 * time.Second
	}
	if f.ReadTimeout <= 0 {
		f.ReadTimeout = 20 * time.Second
	}
	if f.RequestTimeout <= 0 {
		f.RequestTimeout = 25 * time.Second
	}
	if f.MaxConns <= 0 {
		f.MaxConns = 500
	}
	if f.MaxConnsPerHost <= 0 {
		f.MaxConnsPerHost = 300
	}
	if f.BackoffBase <= 0 {
		f.BackoffBase = defaultBackoffBase
	}
	if f.UserAgent == "" {
		f.UserAgent = defaultUserAgent
	}
	return f
}

// newTransport builds the shared connection pool.
// net/http has no global connection cap, so MaxConns bounds the idle pool.
func newTransport(f config.FetchConfig) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   f.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}

	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          f.MaxConns,
		MaxIdleConnsPerHost:   f.MaxConnsPerHost,
		MaxConnsPerHost:       f.MaxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   f.ConnectTimeout,
		ResponseHeaderTimeout: f.ReadTimeout,
		ExpectContinueTimeout: time.Second,
		ForceAttemptHTTP2:     true,
	}
}

// WithRetry configures retry behavior
func (c *Client) WithRetry(maxRetries int, baseDelay time.Duration) *Client {
	c.retryConfig.MaxRetries = maxRetries
	c.retryConfig.BaseDelay = baseDelay
	c.retryConfig.Enabled = maxRetries > 0
	return c
}

// DisableRetry disables automatic retry
func (c *Client) DisableRetry() *Client {
	c.retryConfig.Enabled = false
	return c
}

// WithRateLimiter returns a copy of c that also waits on the shared (Redis) rate limiter.
// The copy shares c's http.Client, so every source still draws from one connection pool.
func (c *Client) WithRateLimiter(limiter *redis.RateLimiter, cfg redis.RateLimitConfig) *Client {
	cp := *c
	cp.rateLimiter = limiter
	cp.rateLimitCfg = &cfg
	return &cp
}

// Backoff returns the delay before the given retry (1-based): base * 2^(retry-1)
func (c *Client) Backoff(retry int) time.Duration {
	if retry < 1 {
		retry = 1
	}
	return c.retryConfig.BaseDelay << (retry - 1)
}

// FetchPage performs a GET with retry and returns the raw page.
// Non-retryable statuses (e.g. 404) are returned as a page, not an error.
func (c *Client) FetchPage(ctx context.Context, url string) (*RawPage, error) {
	return c.FetchPageWithHeaders(ctx, url, nil)
}

// FetchPageWithHeaders is FetchPage with extra request headers (e.g. Referer)
func (c *Client) FetchPageWithHeaders(ctx context.Context, url string, header http.Header) (*RawPage, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.FetchDuration)

	maxAttempts := 1
	if c.retryConfig.Enabled {
		maxAttempts += c.retryConfig.MaxRetries
	}

	failure := &FetchFailure{URL: url}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		failure.Attempts = attempt

		if attempt > 1 {
			delay := c.Backoff(attempt - 1)
			c.logger.WithFields(map[string]interface{}{
				"attempt":     attempt,
				"delay":       delay,
				"url":         url,
				"last_status": failure.StatusCode,
			}).Warn("Retrying HTTP request")
			metrics.FetchRetries.Inc()

			if err := sleep(ctx, delay); err != nil {
				failure.Err = err
				break
			}
		}

		page, err := c.attempt(ctx, url, header)
		if err == nil {
			if !IsRetryableStatus(page.StatusCode) {
				metrics.RecordFetchAttempt("ok")
				return page, nil
			}
			metrics.RecordFetchAttempt("retryable_status")
			failure.StatusCode = page.StatusCode
			failure.Err = nil
			continue
		}

		failure.StatusCode = 0
		failure.Err = err
		if ctx.Err() != nil || !IsRetryableError(err) {
			metrics.RecordFetchAttempt("error")
			break
		}
		metrics.RecordFetchAttempt("retryable_error")
	}

	metrics.FetchFailures.Inc()
	c.logger.WithFields(map[string]interface{}{
		"url":      url,
		"attempts": failure.Attempts,
		"status":   failure.StatusCode,
	}).WithError(failure.Err).Debug("HTTP request failed")

	return nil, failure
}

// attempt executes exactly one request and reads the whole body
func (c *Client) attempt(ctx context.Context, url string, header http.Header) (*RawPage, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create GET request: %w", err)
	}
	for k, values := range header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	// 브라우저가 아니면 차단하는 소스가 있어 매 요청마다 지정
	req.Header.Set("User-Agent", c.userAgent)

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"url":         url,
		"status_code": resp.StatusCode,
		"duration":    time.Since(startTime),
	}).Debug("HTTP request completed")

	return &RawPage{
		URL:         url,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait failed: %w", err)
		}
	}
	if c.rateLimiter != nil && c.rateLimitCfg != nil {
		if err := c.rateLimiter.Wait(ctx, *c.rateLimitCfg); err != nil {
			return fmt.Errorf("rate limit wait failed: %w", err)
		}
	}
	return nil
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

// IsRetryableStatus reports statuses worth retrying: 429 and 5xx
func IsRetryableStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= 500 && statusCode <= 599)
}

// IsRetryableError reports transport errors worth retrying: timeouts and I/O failures.
// Caller cancellation is never retried.
func IsRetryableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.EPIPE):
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr)
}
