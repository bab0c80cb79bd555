package marketplace

import (
	"net/url"
	"strings"
)

// itemDetailPath is the DataHub endpoint for single product lookups
const itemDetailPath = "/item_detail_6"

// itemDetailURL builds the full lookup URL for a product id on a host
func itemDetailURL(host, productID string) string {
	query := url.Values{}
	query.Set("itemId", productID)

	u := url.URL{
		Scheme:   "https",
		Host:     host,
		Path:     itemDetailPath,
		RawQuery: query.Encode(),
	}
	return u.String()
}

// eBay Browse API endpoints
const (
	ebayProductionBase = "https://api.ebay.com"
	ebaySandboxBase    = "https://api.sandbox.ebay.com"

	ebayTokenPath     = "/identity/v1/oauth2/token"
	ebayOAuthScope    = "https://api.ebay.com/oauth/api_scope"
	ebayItemPath      = "/buy/browse/v1/item/get_item_by_legacy_id"
	ebayItemGroupPath = "/buy/browse/v1/item/get_items_by_item_group"
)

// ebayBaseURL picks the API host for an environment name
func ebayBaseURL(environment string) string {
	if strings.EqualFold(environment, "SANDBOX") {
		return ebaySandboxBase
	}
	return ebayProductionBase
}

// ebayItemURL builds the legacy-id lookup URL for a product id
func ebayItemURL(base, productID string) string {
	query := url.Values{}
	query.Set("legacy_item_id", productID)
	return base + ebayItemPath + "?" + query.Encode()
}

// ebayItemGroupURL builds the item group lookup URL, used when a legacy id
// turns out to identify a listing with variations
func ebayItemGroupURL(base, groupID string) string {
	query := url.Values{}
	query.Set("item_group_id", groupID)
	return base + ebayItemGroupPath + "?" + query.Encode()
}
