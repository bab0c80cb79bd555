package metrics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Metrics bundles Prometheus collectors for the batch pipeline.
type Metrics struct {
	Registry               *prometheus.Registry
	APICallsTotal          *prometheus.CounterVec
	APICallDuration        prometheus.Histogram
	ImagesDownloadedTotal  prometheus.Counter
	DuplicatesSkippedTotal prometheus.Counter
	DownloadFailuresTotal  prometheus.Counter
	RateLimitWaitSeconds   prometheus.Histogram
	RowsProcessedTotal     *prometheus.CounterVec
}

// New constructs and registers all metrics on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	apiCalls := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alicheck_api_calls_total",
			Help: "Total marketplace API call attempts by outcome.",
		},
		[]string{"outcome"},
	)
	apiDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "alicheck_api_call_duration_seconds",
			Help:    "Marketplace API call latency.",
			Buckets: prometheus.DefBuckets,
		},
	)
	imagesDownloaded := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "alicheck_images_downloaded_total",
			Help: "Total product images downloaded and persisted.",
		},
	)
	duplicatesSkipped := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "alicheck_duplicates_skipped_total",
			Help: "Total image downloads skipped by fingerprint deduplication.",
		},
	)
	downloadFailures := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "alicheck_download_failures_total",
			Help: "Total per-URL image download failures.",
		},
	)
	rateLimitWait := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "alicheck_ratelimit_wait_seconds",
			Help:    "Time spent waiting for a rate limit slot.",
			Buckets: prometheus.DefBuckets,
		},
	)
	rowsProcessed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alicheck_rows_processed_total",
			Help: "Total input rows processed by terminal status.",
		},
		[]string{"status"},
	)

	registry.MustRegister(apiCalls, apiDuration, imagesDownloaded,
		duplicatesSkipped, downloadFailures, rateLimitWait, rowsProcessed)

	return &Metrics{
		Registry:               registry,
		APICallsTotal:          apiCalls,
		APICallDuration:        apiDuration,
		ImagesDownloadedTotal:  imagesDownloaded,
		DuplicatesSkippedTotal: duplicatesSkipped,
		DownloadFailuresTotal:  downloadFailures,
		RateLimitWaitSeconds:   rateLimitWait,
		RowsProcessedTotal:     rowsProcessed,
	}
}

// IncAPICall increments the API call counter for an outcome label.
func (m *Metrics) IncAPICall(outcome string) {
	if m == nil {
		return
	}
	m.APICallsTotal.WithLabelValues(outcome).Inc()
}

// ObserveAPICall records an API call latency.
func (m *Metrics) ObserveAPICall(d time.Duration) {
	if m == nil {
		return
	}
	m.APICallDuration.Observe(d.Seconds())
}

// IncImages increments the downloaded images counter.
func (m *Metrics) IncImages() {
	if m == nil {
		return
	}
	m.ImagesDownloadedTotal.Inc()
}

// IncDuplicates increments the duplicates skipped counter.
func (m *Metrics) IncDuplicates() {
	if m == nil {
		return
	}
	m.DuplicatesSkippedTotal.Inc()
}

// IncDownloadFailure increments the per-URL download failure counter.
func (m *Metrics) IncDownloadFailure() {
	if m == nil {
		return
	}
	m.DownloadFailuresTotal.Inc()
}

// ObserveRateLimitWait records time spent waiting for a request slot.
func (m *Metrics) ObserveRateLimitWait(d time.Duration) {
	if m == nil {
		return
	}
	m.RateLimitWaitSeconds.Observe(d.Seconds())
}

// IncRow increments the processed rows counter for a status label.
func (m *Metrics) IncRow(status string) {
	if m == nil {
		return
	}
	m.RowsProcessedTotal.WithLabelValues(status).Inc()
}

// Snapshot gathers the registry into flat sample lines for end-of-run
// reporting, sorted by name. Counters report their value, histograms their
// observation count and sum.
func (m *Metrics) Snapshot() []string {
	if m == nil {
		return nil
	}

	families, err := m.Registry.Gather()
	if err != nil {
		return []string{fmt.Sprintf("gather failed: %v", err)}
	}

	var lines []string
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			name := family.GetName()
			if labels := metric.GetLabel(); len(labels) > 0 {
				pairs := make([]string, 0, len(labels))
				for _, l := range labels {
					pairs = append(pairs, l.GetName()+"="+l.GetValue())
				}
				name += "{" + strings.Join(pairs, ",") + "}"
			}

			switch family.GetType() {
			case dto.MetricType_COUNTER:
				lines = append(lines, fmt.Sprintf("%s %v", name, metric.GetCounter().GetValue()))
			case dto.MetricType_HISTOGRAM:
				h := metric.GetHistogram()
				lines = append(lines, fmt.Sprintf("%s count=%d sum=%.3fs", name, h.GetSampleCount(), h.GetSampleSum()))
			case dto.MetricType_GAUGE:
				lines = append(lines, fmt.Sprintf("%s %v", name, metric.GetGauge().GetValue()))
			}
		}
	}

	sort.Strings(lines)
	return lines
}
