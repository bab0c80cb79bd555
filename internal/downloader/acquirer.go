package downloader

import (
	"context"
	"path/filepath"

	"alicheck/pkg/imaging"
	"alicheck/pkg/logger"
	"alicheck/pkg/metrics"
	"alicheck/pkg/storage"
)

// ImageFetcher retrieves raw image bytes from a URL
type ImageFetcher interface {
	DownloadImage(ctx context.Context, url string) ([]byte, error)
}

// Failure records one image URL that could not be persisted
type Failure struct {
	URL    string
	Reason string
}

// Outcome summarizes image acquisition for a single product
type Outcome struct {
	ProductID string
	// ImagesDownloaded counts images present on disk for this product after
	// the run, whether fetched now or found from an earlier run
	ImagesDownloaded int
	// Folder is the product's download directory, empty when no images exist
	Folder string
	// SkippedExisting counts slots satisfied without network traffic
	SkippedExisting int
	// SkippedDuplicates counts fetched images dropped because this product
	// already has identical content
	SkippedDuplicates int
	Failures          []Failure
}

// Skipped returns the total number of URL slots that needed no new file,
// whether the file was already on disk or the content was a duplicate.
func (o *Outcome) Skipped() int {
	return o.SkippedExisting + o.SkippedDuplicates
}

// Acquirer downloads, normalizes and stores product images. Image slots are
// numbered by URL position, which makes filenames deterministic: a re-run
// over the same product finds its files already in place and fetches nothing.
type Acquirer struct {
	fetcher    ImageFetcher
	store      *storage.Manager
	normalizer *imaging.Normalizer
	log        logger.Logger
	metrics    *metrics.Metrics
}

// New creates an image acquirer
func New(fetcher ImageFetcher, store *storage.Manager, normalizer *imaging.Normalizer, log logger.Logger, m *metrics.Metrics) *Acquirer {
	return &Acquirer{
		fetcher:    fetcher,
		store:      store,
		normalizer: normalizer,
		log:        log,
		metrics:    m,
	}
}

// Acquire processes a product's image URLs in order. Individual URL failures
// are collected in the outcome; only cancellation aborts the walk.
func (a *Acquirer) Acquire(ctx context.Context, productID string, imageURLs []string) (*Outcome, error) {
	outcome := &Outcome{ProductID: productID}

	for i, url := range imageURLs {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}

		slot := i + 1

		if a.store.HasFile(productID, slot) {
			outcome.ImagesDownloaded++
			outcome.SkippedExisting++
			continue
		}

		data, err := a.fetcher.DownloadImage(ctx, url)
		if err != nil {
			if ctx.Err() != nil {
				return outcome, ctx.Err()
			}
			a.recordFailure(outcome, productID, url, err)
			continue
		}

		normalized, err := a.normalizer.Normalize(data)
		if err != nil {
			a.recordFailure(outcome, productID, url, err)
			continue
		}

		if a.store.HasFingerprint(productID, storage.Fingerprint(normalized)) {
			outcome.SkippedDuplicates++
			a.metrics.IncDuplicates()
			a.log.WithFields(map[string]interface{}{
				"product_id": productID,
				"url":        url,
			}).Debug("skipping duplicate image content")
			continue
		}

		if _, err := a.store.SaveImage(productID, slot, normalized); err != nil {
			a.recordFailure(outcome, productID, url, err)
			continue
		}

		outcome.ImagesDownloaded++
		a.metrics.IncImages()
		logger.LogDownload(a.log, productID, url, true, nil)
	}

	if outcome.ImagesDownloaded > 0 {
		outcome.Folder = filepath.Join(a.store.RootDir(), productID)
	}

	a.log.WithFields(map[string]interface{}{
		"product_id": productID,
		"downloaded": outcome.ImagesDownloaded,
		"skipped":    outcome.Skipped(),
		"failures":   len(outcome.Failures),
	}).Debug("image acquisition finished")

	return outcome, nil
}

func (a *Acquirer) recordFailure(outcome *Outcome, productID, url string, err error) {
	outcome.Failures = append(outcome.Failures, Failure{URL: url, Reason: err.Error()})
	a.metrics.IncDownloadFailure()
	logger.LogDownload(a.log, productID, url, false, err)
}
