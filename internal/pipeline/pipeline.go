package pipeline

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"alicheck/internal/downloader"
	"alicheck/pkg/linkparse"
	"alicheck/pkg/logger"
	"alicheck/pkg/marketplace"
	"alicheck/pkg/metrics"
	"alicheck/pkg/table"
)

// ProductFetcher looks up availability for a product id on a marketplace
type ProductFetcher interface {
	FetchProduct(ctx context.Context, market linkparse.Marketplace, productID string) (*marketplace.AvailabilityResult, error)
}

// ImageAcquirer persists a product's images
type ImageAcquirer interface {
	Acquire(ctx context.Context, productID string, imageURLs []string) (*downloader.Outcome, error)
}

// RowResult pairs an input row with its result fields. Every input row gets
// exactly one RowResult, in input order, whatever happened to it.
type RowResult struct {
	Row    table.Row
	Fields table.ResultFields
	// Err is set when the row terminated without a definite availability
	Err error
}

// Succeeded reports whether the row completed with a defined state
func (r RowResult) Succeeded() bool {
	return r.Err == nil
}

// Summary aggregates a run for reporting and exit status
type Summary struct {
	Total            int
	Succeeded        int
	Failed           int
	ImagesDownloaded int
}

// Exit codes for a completed run. Fatal startup problems use code 1 and
// never reach the pipeline.
const (
	ExitAllSucceeded  = 0
	ExitAllFailed     = 2
	ExitPartialFailed = 3
)

// ExitCode maps the summary onto the process exit status
func (s Summary) ExitCode() int {
	switch {
	case s.Failed == 0:
		return ExitAllSucceeded
	case s.Succeeded == 0:
		return ExitAllFailed
	default:
		return ExitPartialFailed
	}
}

// errRowCancelled marks rows that never ran because the run was cancelled
var errRowCancelled = errors.New("cancelled before completion")

// Pipeline runs rows through lookup and image acquisition with a bounded
// worker pool. Failures stay contained to their row; only cancellation stops
// the intake of new rows.
type Pipeline struct {
	fetcher  ProductFetcher
	acquirer ImageAcquirer
	workers  int
	log      logger.Logger
	metrics  *metrics.Metrics
}

// New creates a pipeline
func New(fetcher ProductFetcher, acquirer ImageAcquirer, workers int, log logger.Logger, m *metrics.Metrics) *Pipeline {
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{
		fetcher:  fetcher,
		acquirer: acquirer,
		workers:  workers,
		log:      log,
		metrics:  m,
	}
}

// Run processes every row of doc, reading product links from column linkCol.
// Results come back in input order, one per row.
func (p *Pipeline) Run(ctx context.Context, doc *table.Document, linkCol int) ([]RowResult, Summary) {
	results := make([]RowResult, len(doc.Rows))
	started := make([]bool, len(doc.Rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i := range doc.Rows {
		// Stop handing out rows once the run is cancelled
		if gctx.Err() != nil {
			break
		}

		i := i
		started[i] = true
		g.Go(func() error {
			results[i] = p.processRow(gctx, doc.Rows[i], linkCol)
			return nil
		})
	}

	_ = g.Wait()

	summary := Summary{Total: len(doc.Rows)}
	for i := range results {
		if !started[i] {
			results[i] = RowResult{
				Row: doc.Rows[i],
				Fields: table.ResultFields{
					Availability: string(marketplace.AvailabilityUnknown),
					Error:        errRowCancelled.Error(),
				},
				Err: errRowCancelled,
			}
		}
		if results[i].Succeeded() {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
		summary.ImagesDownloaded += results[i].Fields.ImagesDownloaded
	}

	return results, summary
}

// processRow takes one row to its terminal state. It never panics the run:
// whatever goes wrong becomes result fields on the row.
func (p *Pipeline) processRow(ctx context.Context, row table.Row, linkCol int) RowResult {
	result := RowResult{
		Row:    row,
		Fields: table.ResultFields{Availability: string(marketplace.AvailabilityUnknown)},
	}

	fail := func(err error) RowResult {
		result.Err = err
		result.Fields.Error = err.Error()
		p.metrics.IncRow("failed")
		logger.LogRowCompleted(p.log, row.Index, result.Fields.Availability, result.Fields.ImagesDownloaded)
		return result
	}

	link := row.LinkAt(linkCol)
	market := linkparse.Detect(link)
	if market == linkparse.MarketplaceUnknown {
		return fail(linkparse.ErrUnsupportedMarketplace)
	}

	productID, err := linkparse.ExtractProductID(link)
	if err != nil {
		return fail(err)
	}
	result.Fields.ProductID = productID
	p.log.WithFields(map[string]interface{}{
		"row":  row.Index,
		"link": linkparse.Normalize(link),
	}).Debug("product link parsed")

	product, err := p.fetcher.FetchProduct(ctx, market, productID)
	if err != nil {
		return fail(err)
	}

	result.Fields.Availability = string(product.Availability)
	result.Fields.StockQuantity = product.StockQuantity

	if len(product.ImageURLs) > 0 {
		outcome, err := p.acquirer.Acquire(ctx, productID, product.ImageURLs)
		if err != nil {
			return fail(err)
		}
		result.Fields.ImagesDownloaded = outcome.ImagesDownloaded
		result.Fields.DownloadFolder = outcome.Folder
	}

	p.metrics.IncRow("ok")
	logger.LogRowCompleted(p.log, row.Index, result.Fields.Availability, result.Fields.ImagesDownloaded)
	return result
}
