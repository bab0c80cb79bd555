package linkparse

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

// ErrMalformedURL is returned when no numeric product identifier can be
// recovered from a URL. It is a recoverable per-row error.
var ErrMalformedURL = errors.New("no recognizable product identifier in URL")

// ErrUnsupportedMarketplace is returned for URLs that do not belong to a
// supported marketplace, even when they carry a numeric id.
var ErrUnsupportedMarketplace = errors.New("URL is not an AliExpress or eBay product link")

// Marketplace identifies which marketplace a URL belongs to
type Marketplace string

const (
	MarketplaceAliExpress Marketplace = "aliexpress"
	MarketplaceEbay       Marketplace = "ebay"
	MarketplaceUnknown    Marketplace = "unknown"
)

var (
	itemPathPattern = regexp.MustCompile(`/item/(\d+)(?:\.html)?`)
	itmPathPattern  = regexp.MustCompile(`/itm/(\d+)`)
	// Short links sometimes embed the id as a bare numeric segment
	numericSegment = regexp.MustCompile(`/(\d{6,})(?:[./?]|$)`)
)

// ExtractProductID parses a marketplace URL into its canonical numeric
// product identifier.
//
//	https://www.aliexpress.com/item/1005001234567890.html -> 1005001234567890
//	https://aliexpress.com/item/1234567890.html?spm=x     -> 1234567890
//	https://www.ebay.com/itm/123456789012                 -> 123456789012
func ExtractProductID(rawURL string) (string, error) {
	if strings.TrimSpace(rawURL) == "" {
		return "", ErrMalformedURL
	}

	if m := itemPathPattern.FindStringSubmatch(rawURL); m != nil {
		return m[1], nil
	}
	if m := itmPathPattern.FindStringSubmatch(rawURL); m != nil {
		return m[1], nil
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", ErrMalformedURL
	}

	params := parsed.Query()
	for _, key := range []string{"productId", "product_id", "itemId", "item"} {
		if v := params.Get(key); v != "" && isDigits(v) {
			return v, nil
		}
	}

	// Shortened redirect-style links are best effort: accept an embedded
	// numeric segment, otherwise report the URL as malformed rather than
	// guessing redirect behaviour.
	if m := numericSegment.FindStringSubmatch(parsed.Path); m != nil {
		return m[1], nil
	}

	return "", ErrMalformedURL
}

// Detect reports which marketplace a URL belongs to
func Detect(rawURL string) Marketplace {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return MarketplaceUnknown
	}
	host := strings.ToLower(parsed.Hostname())

	for _, d := range []string{"aliexpress.com", "aliexpress.us", "aliexpress.ru"} {
		if host == d || strings.HasSuffix(host, "."+d) {
			return MarketplaceAliExpress
		}
	}
	if host == "ebay.com" || strings.HasSuffix(host, ".ebay.com") {
		return MarketplaceEbay
	}

	return MarketplaceUnknown
}

// Normalize rewrites a product URL to its canonical form, stripping
// query-string noise. URLs without an extractable id pass through unchanged.
func Normalize(rawURL string) string {
	id, err := ExtractProductID(rawURL)
	if err != nil {
		return rawURL
	}

	if Detect(rawURL) == MarketplaceEbay {
		return "https://www.ebay.com/itm/" + id
	}
	return "https://www.aliexpress.com/item/" + id + ".html"
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
