package linkparse

import (
	"errors"
	"testing"
)

func TestExtractProductID(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{
			name: "full product page",
			url:  "https://www.aliexpress.com/item/1005001234567890.html",
			want: "1005001234567890",
		},
		{
			name: "query string noise",
			url:  "https://aliexpress.com/item/1234567890.html?spm=a2g0o.productlist&gatewayAdapt=glo2rus",
			want: "1234567890",
		},
		{
			name: "item path without html suffix",
			url:  "https://www.aliexpress.us/item/3256805555555555",
			want: "3256805555555555",
		},
		{
			name: "productId query parameter",
			url:  "https://www.aliexpress.com/gcp/300000512/nnmixupdates?productId=1005007272727272",
			want: "1005007272727272",
		},
		{
			name: "product_id query parameter",
			url:  "https://m.aliexpress.com/s/detail?product_id=1005003333333333",
			want: "1005003333333333",
		},
		{
			name: "ebay item page",
			url:  "https://www.ebay.com/itm/123456789012?hash=item1cbd",
			want: "123456789012",
		},
		{
			name: "short link with embedded id",
			url:  "https://a.aliexpress.com/1005004444444444.html",
			want: "1005004444444444",
		},
		{
			name:    "short link without numeric segment",
			url:     "https://s.click.aliexpress.com/e/_DdEWXyz",
			wantErr: true,
		},
		{
			name:    "no numeric identifier",
			url:     "https://www.aliexpress.com/store/feedback",
			wantErr: true,
		},
		{
			name:    "empty string",
			url:     "",
			wantErr: true,
		},
		{
			name:    "whitespace only",
			url:     "   ",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractProductID(tt.url)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedURL) {
					t.Fatalf("expected ErrMalformedURL, got %v (id %q)", err, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ExtractProductID(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		url  string
		want Marketplace
	}{
		{"https://www.aliexpress.com/item/1.html", MarketplaceAliExpress},
		{"https://aliexpress.ru/item/2.html", MarketplaceAliExpress},
		{"https://m.aliexpress.us/item/3", MarketplaceAliExpress},
		{"https://www.ebay.com/itm/4", MarketplaceEbay},
		{"https://example.com/item/5.html", MarketplaceUnknown},
		{"notaurl::", MarketplaceUnknown},
	}

	for _, tt := range tests {
		if got := Detect(tt.url); got != tt.want {
			t.Errorf("Detect(%q) = %s, want %s", tt.url, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	got := Normalize("https://aliexpress.com/item/1234567890.html?spm=noise&src=google")
	if got != "https://www.aliexpress.com/item/1234567890.html" {
		t.Errorf("unexpected normalized URL: %q", got)
	}

	got = Normalize("https://www.ebay.com/itm/123456789012?var=0")
	if got != "https://www.ebay.com/itm/123456789012" {
		t.Errorf("unexpected normalized eBay URL: %q", got)
	}

	// Unextractable URLs pass through untouched
	raw := "https://example.com/nothing"
	if got := Normalize(raw); got != raw {
		t.Errorf("expected passthrough, got %q", got)
	}
}
