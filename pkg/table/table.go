// Package table reads and writes the tabular product listings that flow
// through the checker. Input is a delimited file with one product URL per
// row; output is the same rows with result columns appended.
package table

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Document is a parsed input file
type Document struct {
	Header []string
	Rows   []Row
}

// Row is one input record with its original position
type Row struct {
	Index  int
	Fields []string
}

// ResultFields are the columns appended to every output row
type ResultFields struct {
	ProductID        string
	Availability     string
	StockQuantity    int
	ImagesDownloaded int
	DownloadFolder   string
	Error            string
}

// ResultColumns lists the appended column names in output order
var ResultColumns = []string{
	"product_id",
	"availability",
	"stock_quantity",
	"images_downloaded",
	"download_folder",
	"error",
}

// linkHeaderKeywords match column names that typically hold product URLs
var linkHeaderKeywords = []string{"link", "url", "href"}

// linkContentMarkers identify marketplace URLs inside cell values
var linkContentMarkers = []string{"aliexpress.", "ebay."}

// FindLinkColumn locates the column holding product URLs. Header names are
// checked first; failing that, the first rows are sniffed for marketplace
// URLs in any column.
func FindLinkColumn(doc *Document) (int, error) {
	for i, name := range doc.Header {
		lower := strings.ToLower(strings.TrimSpace(name))
		for _, kw := range linkHeaderKeywords {
			if strings.Contains(lower, kw) {
				return i, nil
			}
		}
	}

	sniffLimit := len(doc.Rows)
	if sniffLimit > 20 {
		sniffLimit = 20
	}
	for _, row := range doc.Rows[:sniffLimit] {
		for i, cell := range row.Fields {
			lower := strings.ToLower(cell)
			for _, marker := range linkContentMarkers {
				if strings.Contains(lower, marker) {
					return i, nil
				}
			}
		}
	}

	return 0, fmt.Errorf("no product link column found (checked headers %v and first %d rows)",
		doc.Header, sniffLimit)
}

// LinkAt returns the trimmed link cell of a row, tolerating short rows
func (r Row) LinkAt(col int) string {
	if col < 0 || col >= len(r.Fields) {
		return ""
	}
	return strings.TrimSpace(r.Fields[col])
}

// ResultsPath derives the output path from the input path and a suffix:
// products.csv -> products_results.csv
func ResultsPath(inputPath, suffix string) string {
	ext := filepath.Ext(inputPath)
	base := strings.TrimSuffix(inputPath, ext)
	if ext == "" {
		ext = ".csv"
	}
	return base + suffix + ext
}
