package marketplace

import (
	"context"

	errs "alicheck/pkg/errors"
	"alicheck/pkg/linkparse"
)

// Router dispatches product lookups to the client for the link's marketplace.
// The eBay client is optional; eBay rows fail with a clear error when no
// credentials were configured.
type Router struct {
	aliexpress *Client
	ebay       *EbayClient
}

// NewRouter creates a marketplace router. ebay may be nil.
func NewRouter(aliexpress *Client, ebay *EbayClient) *Router {
	return &Router{aliexpress: aliexpress, ebay: ebay}
}

// FetchProduct routes a lookup to the marketplace-specific client
func (r *Router) FetchProduct(ctx context.Context, market linkparse.Marketplace, productID string) (*AvailabilityResult, error) {
	switch market {
	case linkparse.MarketplaceAliExpress:
		return r.aliexpress.FetchProduct(ctx, productID)
	case linkparse.MarketplaceEbay:
		if r.ebay == nil {
			return nil, errs.New(errs.ErrorTypeAuth, 0, "eBay lookups need EBAY_APP_ID and EBAY_CERT_ID")
		}
		return r.ebay.FetchProduct(ctx, productID)
	default:
		return nil, linkparse.ErrUnsupportedMarketplace
	}
}

// DownloadImage fetches raw image bytes. Image CDNs need no marketplace
// routing; the shared HTTP client handles them all.
func (r *Router) DownloadImage(ctx context.Context, imageURL string) ([]byte, error) {
	return r.aliexpress.DownloadImage(ctx, imageURL)
}
