package marketplace

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Availability is the terminal availability state of a product
type Availability string

const (
	AvailabilityAvailable Availability = "AVAILABLE"
	AvailabilityOffline   Availability = "OFFLINE"
	AvailabilityNotFound  Availability = "NOT_FOUND"
	AvailabilityUnknown   Availability = "UNKNOWN"
)

// AvailabilityResult is the normalized outcome of a product lookup
type AvailabilityResult struct {
	ProductID     string
	Availability  Availability
	StockQuantity int
	ImageURLs     []string
}

// itemResponse mirrors the DataHub item detail envelope. The upstream API is
// loose with types: numeric fields arrive as numbers or quoted strings, and
// image lists as either arrays or separator-joined strings.
type itemResponse struct {
	Result struct {
		Status struct {
			Code flexInt `json:"code"`
			Data string  `json:"data"`
			Msg  string  `json:"msg"`
		} `json:"status"`
		Item *itemPayload `json:"item"`
	} `json:"result"`
}

type itemPayload struct {
	ItemStatus          string  `json:"itemStatus"`
	Offline             bool    `json:"offline"`
	TotalAvailableStock flexInt `json:"totalAvailableStock"`
	Stock               flexInt `json:"stock"`

	MainImageURL string `json:"mainImageUrl"`
	ImageURL     string `json:"imageUrl"`
	Image        string `json:"image"`

	ImageURLs     stringList `json:"imageUrls"`
	Images        stringList `json:"images"`
	ProductImages stringList `json:"productImages"`
	ImagePathList stringList `json:"imagePathList"`
}

// flexInt accepts a JSON number or a quoted numeric string. Anything else
// decodes to zero rather than failing the whole envelope.
type flexInt int64

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexInt(v)
	return nil
}

// stringList accepts either a JSON array of strings or a single string whose
// entries are joined with ';', ',' or '|'.
type stringList []string

func (s *stringList) UnmarshalJSON(data []byte) error {
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*s = arr
		return nil
	}

	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		// Unexpected shape; treat as no images rather than failing the row
		*s = nil
		return nil
	}

	parts := strings.FieldsFunc(joined, func(r rune) bool {
		return r == ';' || r == ',' || r == '|'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	*s = out
	return nil
}

// succeeded reports whether the envelope carries a usable item payload
func (r *itemResponse) succeeded() bool {
	return r.Result.Status.Code == 200 && strings.EqualFold(r.Result.Status.Data, "success")
}

// toResult maps a parsed envelope to the normalized availability outcome.
// Anything the envelope cannot prove stays UNKNOWN; a product is never
// reported AVAILABLE on a malformed or ambiguous response.
func (r *itemResponse) toResult(productID string) *AvailabilityResult {
	result := &AvailabilityResult{
		ProductID:    productID,
		Availability: AvailabilityUnknown,
	}

	if !r.succeeded() {
		return result
	}
	item := r.Result.Item
	if item == nil {
		result.Availability = AvailabilityNotFound
		return result
	}

	result.StockQuantity = item.stockQuantity()
	result.ImageURLs = item.imageURLs()

	switch {
	case strings.EqualFold(item.ItemStatus, "offline") || item.Offline:
		result.Availability = AvailabilityOffline
	case result.StockQuantity == 0:
		// Listed but nothing purchasable
		result.Availability = AvailabilityOffline
	default:
		result.Availability = AvailabilityAvailable
	}

	return result
}

func (p *itemPayload) stockQuantity() int {
	if p.TotalAvailableStock > 0 {
		return int(p.TotalAvailableStock)
	}
	if p.Stock > 0 {
		return int(p.Stock)
	}
	return 0
}

// imageURLs collects image URLs from all known payload fields, de-duplicated
// in order of appearance, with protocol-relative URLs upgraded to https.
func (p *itemPayload) imageURLs() []string {
	candidates := []string{p.MainImageURL, p.ImageURL, p.Image}
	for _, list := range []stringList{p.ImageURLs, p.Images, p.ProductImages, p.ImagePathList} {
		candidates = append(candidates, list...)
	}

	seen := make(map[string]bool)
	var urls []string
	for _, raw := range candidates {
		u := normalizeImageURL(raw)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		urls = append(urls, u)
	}
	return urls
}

func normalizeImageURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return ""
	}
	if strings.HasPrefix(u, "//") {
		return "https:" + u
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		return ""
	}
	return u
}
