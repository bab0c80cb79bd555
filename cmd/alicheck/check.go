package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"alicheck/internal/downloader"
	"alicheck/internal/pipeline"
	"alicheck/pkg/auth"
	"alicheck/pkg/config"
	"alicheck/pkg/imaging"
	"alicheck/pkg/logger"
	"alicheck/pkg/marketplace"
	"alicheck/pkg/metrics"
	"alicheck/pkg/ratelimit"
	"alicheck/pkg/storage"
	"alicheck/pkg/table"
)

var (
	// Check command flags
	outputPath   string
	downloadRoot string
	workers      int
	rateLimit    int
	apiKey       string
	profileName  string
	showMetrics  bool
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <input.csv>",
	Short: "Check availability and download images for a table of product links",
	Long: `Check processes a CSV file with one product link per row. For every row it
extracts the product id, queries the marketplace API for availability and
stock, downloads the product images, and appends the results as new columns.

The output file keeps every input row in its original order. Rows whose link
cannot be parsed or whose lookup fails are marked in the error column; they
never stop the rest of the batch.

Exit status: 0 when every row completed, 2 when no row completed, 3 for a
partial run. Configuration problems exit with 1 before any row is touched.`,
	Example: `  # Check all products listed in products.csv
  alicheck check products.csv

  # Custom output location and more workers
  alicheck check products.csv --output results.csv --workers 5

  # Slow down for a free API plan
  alicheck check products.csv --rate-limit 1`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runCheck(args[0]))
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file (default: <input>_results.csv)")
	checkCmd.Flags().StringVar(&downloadRoot, "download-root", "", "directory for downloaded images")
	checkCmd.Flags().IntVar(&workers, "workers", 0, "number of concurrent workers")
	checkCmd.Flags().IntVar(&rateLimit, "rate-limit", 0, "API requests per second")
	checkCmd.Flags().StringVar(&apiKey, "api-key", "", "RapidAPI key (overrides stored credentials)")
	checkCmd.Flags().StringVar(&profileName, "profile", "", "use a specific stored credential profile")
	checkCmd.Flags().BoolVar(&showMetrics, "show-metrics", false, "print collected metrics after the run")
}

// runCheck executes the batch and returns the process exit code
func runCheck(inputPath string) int {
	flags := config.Flags{
		APIKey:       apiKey,
		DownloadRoot: downloadRoot,
		Workers:      workers,
		LogLevel:     logLevel,
	}

	// Fall back to stored credentials when no key was given directly
	if flags.APIKey == "" && os.Getenv("RAPIDAPI_KEY") == "" {
		if cred := storedCredential(); cred != nil {
			flags.APIKey = cred.APIKey
			if cred.APIHost != "" {
				os.Setenv("RAPIDAPI_HOST", cred.APIHost)
			}
		}
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		fmt.Fprintln(os.Stderr, "\nStore an API key with 'alicheck auth login' or set RAPIDAPI_KEY.")
		return 1
	}
	if rateLimit > 0 {
		cfg.RateLimit.RequestsPerSecond = rateLimit
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logger:", err)
		return 1
	}
	log := logger.GetLogger()
	log.WithField("version", version).Info("alicheck starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	input, err := os.Open(inputPath)
	if err != nil {
		log.WithError(err).Error("cannot open input file")
		return 1
	}
	doc, err := table.ReadCSV(input)
	input.Close()
	if err != nil {
		log.WithError(err).Error("cannot parse input file")
		return 1
	}

	linkCol, err := table.FindLinkColumn(doc)
	if err != nil {
		log.WithError(err).Error("cannot locate product link column")
		return 1
	}
	log.WithFields(map[string]interface{}{
		"rows":        len(doc.Rows),
		"link_column": linkCol,
	}).Info("input parsed")

	store, err := storage.NewManager(cfg.Output.DownloadRoot)
	if err != nil {
		log.WithError(err).Error("cannot prepare download directory")
		return 1
	}

	m := metrics.New()
	limiter := ratelimit.NewSlidingWindow(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Window)
	client, err := marketplace.NewClient(cfg, limiter, log, m)
	if err != nil {
		log.WithError(err).Error("cannot create marketplace client")
		return 1
	}

	var ebay *marketplace.EbayClient
	if cfg.Ebay.Enabled() {
		ebay, err = marketplace.NewEbayClient(cfg, limiter, log, m)
		if err != nil {
			log.WithError(err).Error("cannot create eBay client")
			return 1
		}
	}
	router := marketplace.NewRouter(client, ebay)

	acquirer := downloader.New(router, store, imaging.NewNormalizer(cfg.Download.ImageQuality), log, m)
	pipe := pipeline.New(router, acquirer, cfg.Download.Workers, log, m)

	results, summary := pipe.Run(ctx, doc, linkCol)

	if outputPath == "" {
		outputPath = table.ResultsPath(inputPath, cfg.Output.ResultsSuffix)
	}
	if err := writeResults(outputPath, doc, results); err != nil {
		log.WithError(err).Error("cannot write results")
		return 1
	}

	log.WithFields(map[string]interface{}{
		"total":     summary.Total,
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
		"images":    summary.ImagesDownloaded,
		"output":    outputPath,
	}).Info("run completed")
	fmt.Fprintf(os.Stderr, "%d rows processed: %d ok, %d failed, %d images -> %s\n",
		summary.Total, summary.Succeeded, summary.Failed, summary.ImagesDownloaded, outputPath)

	reportMetrics(log, m)

	return summary.ExitCode()
}

// reportMetrics logs the gathered run metrics and, with --show-metrics,
// prints them to stderr
func reportMetrics(log logger.Logger, m *metrics.Metrics) {
	lines := m.Snapshot()
	for _, line := range lines {
		log.WithField("sample", line).Debug("metric")
	}
	if showMetrics {
		fmt.Fprintln(os.Stderr, "metrics:")
		for _, line := range lines {
			fmt.Fprintf(os.Stderr, "  %s\n", line)
		}
	}
}

// writeResults writes the enriched table atomically via a temp file
func writeResults(path string, doc *table.Document, results []pipeline.RowResult) error {
	tmpPath := path + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	w := table.NewWriter(out)
	if err := w.WriteHeader(doc.Header); err != nil {
		out.Close()
		os.Remove(tmpPath)
		return err
	}
	for _, res := range results {
		if err := w.WriteRow(res.Row.Fields, res.Fields); err != nil {
			out.Close()
			os.Remove(tmpPath)
			return err
		}
	}
	if err := w.Flush(); err != nil {
		out.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	return os.Rename(tmpPath, path)
}

// storedCredential loads the requested or default credential, or nil
func storedCredential() *auth.Credential {
	manager, err := auth.NewManager()
	if err != nil {
		return nil
	}

	if profileName != "" {
		cred, err := manager.Retrieve(profileName)
		if err != nil {
			return nil
		}
		return cred
	}

	cred, err := manager.RetrieveDefault()
	if err != nil {
		return nil
	}
	return cred
}
