package marketplace

import (
	"time"
)

// ebayItem mirrors the Browse API item payload, reduced to the fields the
// availability mapping needs.
type ebayItem struct {
	ItemID                  string             `json:"itemId"`
	ItemWebURL              string             `json:"itemWebUrl"`
	ItemEndDate             string             `json:"itemEndDate"`
	EstimatedAvailabilities []ebayAvailability `json:"estimatedAvailabilities"`
	Image                   ebayImage          `json:"image"`
	AdditionalImages        []ebayImage        `json:"additionalImages"`
}

type ebayAvailability struct {
	EstimatedAvailableQuantity flexInt `json:"estimatedAvailableQuantity"`
}

type ebayImage struct {
	ImageURL string `json:"imageUrl"`
}

// ebayItemGroup is the lookup response for a listing with variations
type ebayItemGroup struct {
	Items []ebayItem `json:"items"`
}

// ended reports whether the listing's end date lies in the past. A missing or
// unparseable date does not count as ended.
func (i *ebayItem) ended() bool {
	if i.ItemEndDate == "" {
		return false
	}
	end, err := time.Parse(time.RFC3339, i.ItemEndDate)
	if err != nil {
		return false
	}
	return end.Before(time.Now())
}

func (i *ebayItem) quantity() int {
	if len(i.EstimatedAvailabilities) == 0 {
		return 0
	}
	return int(i.EstimatedAvailabilities[0].EstimatedAvailableQuantity)
}

// imageURLs collects the primary and additional images, de-duplicated in
// order of appearance.
func (i *ebayItem) imageURLs() []string {
	candidates := []string{i.Image.ImageURL}
	for _, img := range i.AdditionalImages {
		candidates = append(candidates, img.ImageURL)
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

// toResult maps a Browse API item to the normalized availability outcome. An
// ended listing or one without a public web URL is OFFLINE whatever the
// reported quantity says.
func (i *ebayItem) toResult(productID string) *AvailabilityResult {
	result := &AvailabilityResult{
		ProductID: productID,
		ImageURLs: i.imageURLs(),
	}

	switch {
	case i.ended():
		result.Availability = AvailabilityOffline
	case i.ItemWebURL == "":
		result.Availability = AvailabilityOffline
	case i.quantity() > 0:
		result.Availability = AvailabilityAvailable
		result.StockQuantity = i.quantity()
	default:
		result.Availability = AvailabilityOffline
	}

	return result
}

// toResult maps a variation group: quantities sum across all variations and
// the images come from the first one.
func (g *ebayItemGroup) toResult(productID string) *AvailabilityResult {
	if len(g.Items) == 0 {
		return &AvailabilityResult{ProductID: productID, Availability: AvailabilityUnknown}
	}

	total := 0
	for _, item := range g.Items {
		total += item.quantity()
	}

	first := g.Items[0]
	result := first.toResult(productID)
	if total > 0 && !first.ended() && first.ItemWebURL != "" {
		result.Availability = AvailabilityAvailable
	}
	result.StockQuantity = total

	return result
}
