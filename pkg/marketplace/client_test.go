package marketplace

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alicheck/pkg/config"
	errs "alicheck/pkg/errors"
	"alicheck/pkg/logger"
)

const testHost = "aliexpress-datahub.p.rapidapi.com"

// nopLimiter satisfies ratelimit.Limiter without ever blocking
type nopLimiter struct{}

func (nopLimiter) Allow() bool                  { return true }
func (nopLimiter) Wait(_ context.Context) error { return nil }
func (nopLimiter) Reset()                       {}

func newTestClient(t *testing.T) *Client {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Marketplace.APIKey = "test-key"
	cfg.Marketplace.APIHost = testHost
	cfg.RateLimit.RetryBaseDelay = time.Millisecond

	c, err := NewClient(cfg, nopLimiter{}, logger.NewNopLogger(), nil)
	require.NoError(t, err)

	httpmock.ActivateNonDefault(c.httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)

	return c
}

func TestFetchProductAvailable(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder(http.MethodGet, itemDetailURL(testHost, "1005001234567890"),
		httpmock.NewStringResponder(200, `{
			"result": {
				"status": {"code": 200, "data": "success"},
				"item": {
					"itemStatus": "online",
					"totalAvailableStock": 42,
					"mainImageUrl": "//ae01.alicdn.com/kf/main.jpg",
					"imageUrls": "//ae01.alicdn.com/kf/a.jpg;//ae01.alicdn.com/kf/b.jpg"
				}
			}
		}`))

	result, err := c.FetchProduct(context.Background(), "1005001234567890")
	require.NoError(t, err)

	assert.Equal(t, AvailabilityAvailable, result.Availability)
	assert.Equal(t, 42, result.StockQuantity)
	assert.Equal(t, []string{
		"https://ae01.alicdn.com/kf/main.jpg",
		"https://ae01.alicdn.com/kf/a.jpg",
		"https://ae01.alicdn.com/kf/b.jpg",
	}, result.ImageURLs)
}

func TestFetchProductOffline(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder(http.MethodGet, itemDetailURL(testHost, "111"),
		httpmock.NewStringResponder(200, `{
			"result": {
				"status": {"code": "200", "data": "success"},
				"item": {"itemStatus": "offline", "stock": 5}
			}
		}`))

	result, err := c.FetchProduct(context.Background(), "111")
	require.NoError(t, err)
	assert.Equal(t, AvailabilityOffline, result.Availability)
}

func TestFetchProductZeroStockIsOffline(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder(http.MethodGet, itemDetailURL(testHost, "222"),
		httpmock.NewStringResponder(200, `{
			"result": {
				"status": {"code": 200, "data": "success"},
				"item": {"itemStatus": "online", "totalAvailableStock": 0}
			}
		}`))

	result, err := c.FetchProduct(context.Background(), "222")
	require.NoError(t, err)
	assert.Equal(t, AvailabilityOffline, result.Availability)
	assert.Equal(t, 0, result.StockQuantity)
}

func TestFetchProductHTTPNotFound(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder(http.MethodGet, itemDetailURL(testHost, "333"),
		httpmock.NewStringResponder(404, `{"message": "not found"}`))

	result, err := c.FetchProduct(context.Background(), "333")
	require.NoError(t, err)
	assert.Equal(t, AvailabilityNotFound, result.Availability)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestFetchProductEnvelopeWithoutItem(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder(http.MethodGet, itemDetailURL(testHost, "444"),
		httpmock.NewStringResponder(200, `{
			"result": {"status": {"code": 200, "data": "success"}}
		}`))

	result, err := c.FetchProduct(context.Background(), "444")
	require.NoError(t, err)
	assert.Equal(t, AvailabilityNotFound, result.Availability)
}

func TestFetchProductUnparseableBodyIsUnknown(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder(http.MethodGet, itemDetailURL(testHost, "555"),
		httpmock.NewStringResponder(200, `<html>maintenance</html>`))

	result, err := c.FetchProduct(context.Background(), "555")
	require.NoError(t, err)
	assert.Equal(t, AvailabilityUnknown, result.Availability)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestFetchProductAuthErrorNotRetried(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder(http.MethodGet, itemDetailURL(testHost, "666"),
		httpmock.NewStringResponder(401, `{"message": "invalid key"}`))

	_, err := c.FetchProduct(context.Background(), "666")
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeAuth, errs.TypeOf(err))
	assert.Equal(t, 1, httpmock.GetTotalCallCount(), "auth failures must not be retried")
}

func TestFetchProductTransientRetriedToSuccess(t *testing.T) {
	c := newTestClient(t)

	calls := 0
	httpmock.RegisterResponder(http.MethodGet, itemDetailURL(testHost, "777"),
		func(req *http.Request) (*http.Response, error) {
			calls++
			if calls == 1 {
				return httpmock.NewStringResponse(502, "bad gateway"), nil
			}
			return httpmock.NewStringResponse(200, `{
				"result": {
					"status": {"code": 200, "data": "success"},
					"item": {"itemStatus": "online", "stock": 3}
				}
			}`), nil
		})

	result, err := c.FetchProduct(context.Background(), "777")
	require.NoError(t, err)
	assert.Equal(t, AvailabilityAvailable, result.Availability)
	assert.Equal(t, 2, calls)
}

func TestFetchProductQuotaErrorNotRetried(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder(http.MethodGet, itemDetailURL(testHost, "888"),
		httpmock.NewStringResponder(429, `{"message": "quota exceeded"}`))

	_, err := c.FetchProduct(context.Background(), "888")
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeQuota, errs.TypeOf(err))
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestFetchProductCachesResults(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder(http.MethodGet, itemDetailURL(testHost, "999"),
		httpmock.NewStringResponder(200, `{
			"result": {
				"status": {"code": 200, "data": "success"},
				"item": {"itemStatus": "online", "stock": 1}
			}
		}`))

	first, err := c.FetchProduct(context.Background(), "999")
	require.NoError(t, err)
	second, err := c.FetchProduct(context.Background(), "999")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, httpmock.GetTotalCallCount(), "repeated lookups must hit the cache")
}

func TestDownloadImage(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder(http.MethodGet, "https://ae01.alicdn.com/kf/photo.jpg",
		httpmock.NewBytesResponder(200, []byte{0xff, 0xd8, 0xff, 0xe0}))
	httpmock.RegisterResponder(http.MethodGet, "https://ae01.alicdn.com/kf/missing.jpg",
		httpmock.NewStringResponder(404, "gone"))

	data, err := c.DownloadImage(context.Background(), "https://ae01.alicdn.com/kf/photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff, 0xe0}, data)

	_, err = c.DownloadImage(context.Background(), "https://ae01.alicdn.com/kf/missing.jpg")
	assert.Error(t, err)
}
