package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"alicheck/pkg/config"
	errs "alicheck/pkg/errors"
	"alicheck/pkg/logger"
	"alicheck/pkg/metrics"
	"alicheck/pkg/ratelimit"
	"alicheck/pkg/retry"
)

// maxImageBytes caps a single image download; product shots above this are
// almost certainly not images.
const maxImageBytes = 20 << 20

// cacheSize bounds the in-memory result cache. Inputs commonly repeat the
// same product URL across rows, and repeated rows must not spend budget.
const cacheSize = 1024

// Client talks to the marketplace item detail API. Every API attempt passes
// through the shared rate limiter before touching the network; image
// downloads do not draw from that budget.
type Client struct {
	httpClient *http.Client
	apiKey     string
	apiHost    string
	userAgent  string
	limiter    ratelimit.Limiter
	retryCfg   config.RateLimitConfig
	log        logger.Logger
	metrics    *metrics.Metrics
	cache      *lru.Cache[string, *AvailabilityResult]
}

// NewClient creates a marketplace API client
func NewClient(cfg *config.Config, limiter ratelimit.Limiter, log logger.Logger, m *metrics.Metrics) (*Client, error) {
	cache, err := lru.New[string, *AvailabilityResult](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create result cache: %w", err)
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Download.Timeout},
		apiKey:     cfg.Marketplace.APIKey,
		apiHost:    cfg.Marketplace.APIHost,
		userAgent:  cfg.Marketplace.UserAgent,
		limiter:    limiter,
		retryCfg:   cfg.RateLimit,
		log:        log,
		metrics:    m,
		cache:      cache,
	}, nil
}

// FetchProduct looks up availability, stock and image URLs for a product id.
// Transient and timeout failures are retried with exponential backoff; auth
// and quota failures surface immediately. Results are cached so a repeated
// product id costs no additional requests.
func (c *Client) FetchProduct(ctx context.Context, productID string) (*AvailabilityResult, error) {
	if cached, ok := c.cache.Get(productID); ok {
		c.log.WithField("product_id", productID).Debug("availability served from cache")
		return cached, nil
	}

	cfg := &retry.Config{
		MaxAttempts: c.retryCfg.MaxRetries,
		Backoff: &retry.ExponentialBackoff{
			BaseDelay:    c.retryCfg.RetryBaseDelay,
			MaxDelay:     60 * time.Second,
			Multiplier:   c.retryCfg.BackoffMultiplier,
			JitterFactor: 0.1,
		},
		Context: ctx,
		Logger:  c.log,
	}

	result, err := retry.DoWithResult(func() (*AvailabilityResult, error) {
		return c.fetchOnce(ctx, productID)
	}, cfg)
	if err != nil {
		return nil, err
	}

	c.cache.Add(productID, result)
	return result, nil
}

// fetchOnce performs a single rate-limited API attempt
func (c *Client) fetchOnce(ctx context.Context, productID string) (*AvailabilityResult, error) {
	waitStart := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	c.metrics.ObserveRateLimitWait(time.Since(waitStart))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, itemDetailURL(c.apiHost, productID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("X-RapidAPI-Key", c.apiKey)
	req.Header.Set("X-RapidAPI-Host", c.apiHost)
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)
	c.metrics.ObserveAPICall(latency)

	if err != nil {
		c.recordAttempt(productID, "network_error", latency)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errs.New(errs.ErrorTypeTransient, 0, "request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// A missing product is a normal outcome, not a failure
		if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
			c.recordAttempt(productID, "not_found", latency)
			return &AvailabilityResult{ProductID: productID, Availability: AvailabilityNotFound}, nil
		}

		errType := errs.FromStatusCode(resp.StatusCode)
		c.recordAttempt(productID, string(errType), latency)
		return nil, errs.New(errType, resp.StatusCode, "item detail request returned %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		c.recordAttempt(productID, "read_error", latency)
		return nil, errs.New(errs.ErrorTypeTransient, resp.StatusCode, "failed to read response body: %v", err)
	}

	var envelope itemResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		// Undecodable payloads map to UNKNOWN rather than an error so the
		// row still completes with a defined state
		c.recordAttempt(productID, "unparseable", latency)
		return &AvailabilityResult{ProductID: productID, Availability: AvailabilityUnknown}, nil
	}

	c.recordAttempt(productID, "success", latency)
	return envelope.toResult(productID), nil
}

func (c *Client) recordAttempt(productID, outcome string, latency time.Duration) {
	logger.LogAPICall(c.log, productID, outcome, latency)
	c.metrics.IncAPICall(outcome)
}

// DownloadImage fetches raw image bytes from a URL. Downloads are outside the
// API rate budget.
func (c *Client) DownloadImage(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build image request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("image request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image request returned %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image body: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("image exceeds %d byte limit", maxImageBytes)
	}

	return data, nil
}
