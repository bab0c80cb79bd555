package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"alicheck/pkg/config"
	errs "alicheck/pkg/errors"
	"alicheck/pkg/logger"
	"alicheck/pkg/metrics"
	"alicheck/pkg/ratelimit"
	"alicheck/pkg/retry"
)

// ebayTokenSafety is subtracted from a token's lifetime so a token is never
// used right at its expiry.
const ebayTokenSafety = 5 * time.Minute

// ebayVariationErrorID is the Browse API error id telling us a legacy id
// belongs to a listing with variations and must be looked up as a group.
const ebayVariationErrorID = 11006

// EbayClient talks to the eBay Browse API. Application tokens are obtained
// through the OAuth client credentials flow and cached until shortly before
// expiry. Item lookups share the same rate budget as the other marketplace
// client.
type EbayClient struct {
	httpClient    *http.Client
	appID         string
	certID        string
	baseURL       string
	marketplaceID string
	limiter       ratelimit.Limiter
	retryCfg      config.RateLimitConfig
	log           logger.Logger
	metrics       *metrics.Metrics
	cache         *lru.Cache[string, *AvailabilityResult]

	tokenMu     sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewEbayClient creates an eBay Browse API client
func NewEbayClient(cfg *config.Config, limiter ratelimit.Limiter, log logger.Logger, m *metrics.Metrics) (*EbayClient, error) {
	if !cfg.Ebay.Enabled() {
		return nil, fmt.Errorf("eBay credentials are not configured")
	}

	cache, err := lru.New[string, *AvailabilityResult](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create result cache: %w", err)
	}

	return &EbayClient{
		httpClient:    &http.Client{Timeout: cfg.Download.Timeout},
		appID:         cfg.Ebay.AppID,
		certID:        cfg.Ebay.CertID,
		baseURL:       ebayBaseURL(cfg.Ebay.Environment),
		marketplaceID: cfg.Ebay.MarketplaceID,
		limiter:       limiter,
		retryCfg:      cfg.RateLimit,
		log:           log,
		metrics:       m,
		cache:         cache,
	}, nil
}

// FetchProduct looks up availability, stock and image URLs for a legacy eBay
// item id. Retry and caching behave like the AliExpress client: transient and
// timeout failures retry with backoff, auth and quota failures surface
// immediately, repeated ids are served from cache.
func (c *EbayClient) FetchProduct(ctx context.Context, productID string) (*AvailabilityResult, error) {
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

// fetchOnce performs a single rate-limited lookup attempt
func (c *EbayClient) fetchOnce(ctx context.Context, productID string) (*AvailabilityResult, error) {
	waitStart := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	c.metrics.ObserveRateLimitWait(time.Since(waitStart))

	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	status, body, latency, err := c.get(ctx, ebayItemURL(c.baseURL, productID), token)
	if err != nil {
		c.recordAttempt(productID, "network_error", latency)
		return nil, err
	}

	switch {
	case status == http.StatusOK:
		var item ebayItem
		if err := json.Unmarshal(body, &item); err != nil {
			c.recordAttempt(productID, "unparseable", latency)
			return &AvailabilityResult{ProductID: productID, Availability: AvailabilityUnknown}, nil
		}
		c.recordAttempt(productID, "success", latency)
		return item.toResult(productID), nil

	case status == http.StatusNotFound || status == http.StatusGone:
		c.recordAttempt(productID, "not_found", latency)
		return &AvailabilityResult{ProductID: productID, Availability: AvailabilityNotFound}, nil

	case status == http.StatusBadRequest && hasEbayErrorID(body, ebayVariationErrorID):
		// The legacy id names a multi-variation listing; look it up as a group
		return c.fetchItemGroup(ctx, productID, token)

	default:
		errType := errs.FromStatusCode(status)
		c.recordAttempt(productID, string(errType), latency)
		return nil, errs.New(errType, status, "item lookup returned status %d", status)
	}
}

// fetchItemGroup resolves a listing with variations: quantities are summed
// across all variations and the images come from the first one.
func (c *EbayClient) fetchItemGroup(ctx context.Context, productID, token string) (*AvailabilityResult, error) {
	status, body, latency, err := c.get(ctx, ebayItemGroupURL(c.baseURL, productID), token)
	if err != nil {
		c.recordAttempt(productID, "network_error", latency)
		return nil, err
	}

	switch {
	case status == http.StatusOK:
		var group ebayItemGroup
		if err := json.Unmarshal(body, &group); err != nil || len(group.Items) == 0 {
			c.recordAttempt(productID, "unparseable", latency)
			return &AvailabilityResult{ProductID: productID, Availability: AvailabilityUnknown}, nil
		}
		c.recordAttempt(productID, "success", latency)
		return group.toResult(productID), nil

	case status == http.StatusNotFound || status == http.StatusGone:
		c.recordAttempt(productID, "not_found", latency)
		return &AvailabilityResult{ProductID: productID, Availability: AvailabilityNotFound}, nil

	default:
		errType := errs.FromStatusCode(status)
		c.recordAttempt(productID, string(errType), latency)
		return nil, errs.New(errType, status, "item group lookup returned status %d", status)
	}
}

// get issues one authorized Browse API request and reads its body
func (c *EbayClient) get(ctx context.Context, rawURL, token string) (int, []byte, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil, 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-EBAY-C-MARKETPLACE-ID", c.marketplaceID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)
	c.metrics.ObserveAPICall(latency)

	if err != nil {
		if ctx.Err() != nil {
			return 0, nil, latency, ctx.Err()
		}
		return 0, nil, latency, errs.New(errs.ErrorTypeTransient, 0, "request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return resp.StatusCode, nil, latency, errs.New(errs.ErrorTypeTransient, resp.StatusCode, "failed to read response body: %v", err)
	}

	return resp.StatusCode, body, latency, nil
}

// accessToken returns a cached application token or requests a new one
// through the client credentials grant.
func (c *EbayClient) accessToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("scope", ebayOAuthScope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ebayTokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.appID, c.certID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", errs.New(errs.ErrorTypeTransient, 0, "token request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errs.New(errs.ErrorTypeAuth, resp.StatusCode, "token request returned status %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", errs.New(errs.ErrorTypeTransient, resp.StatusCode, "undecodable token response: %v", err)
	}
	if payload.AccessToken == "" {
		return "", errs.New(errs.ErrorTypeAuth, resp.StatusCode, "token response carried no access token")
	}

	c.token = payload.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(payload.ExpiresIn)*time.Second - ebayTokenSafety)
	c.log.Debug("obtained eBay application token")

	return c.token, nil
}

func (c *EbayClient) recordAttempt(productID, outcome string, latency time.Duration) {
	logger.LogAPICall(c.log, productID, outcome, latency)
	c.metrics.IncAPICall(outcome)
}

// hasEbayErrorID reports whether a Browse API error body carries the given
// error id
func hasEbayErrorID(body []byte, id int) bool {
	var envelope struct {
		Errors []struct {
			ErrorID int `json:"errorId"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return false
	}
	for _, e := range envelope.Errors {
		if e.ErrorID == id {
			return true
		}
	}
	return false
}
