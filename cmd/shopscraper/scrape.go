package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"shopscraper/pkg/browser"
	"shopscraper/pkg/config"
	"shopscraper/pkg/download"
	"shopscraper/pkg/logger"
	"shopscraper/pkg/report"
	"shopscraper/pkg/scraper"
	"shopscraper/pkg/storage"
	"shopscraper/pkg/ui"
)

var (
	// Scrape command flags
	workers     int
	saveImages  bool
	waitTimeout int
	outputDir   string
	debugMode   bool
	headless    bool
)

// scrapeCmd represents the scrape command
var scrapeCmd = &cobra.Command{
	Use:   "scrape [category-url...]",
	Short: "Scrape one or more category pages",
	Long: `Scrape every product listed on the given category pages.

When no URLs are given, the URLs from the configuration are used. Each URL
must carry the configured locale prefix (default /ca/en/); the rest of the
path becomes the category key in the report.

Output, relative to --output:
  prices.json   products grouped by category plus run metadata
  images/       one image per product when --save-images is on
  output.zip    the report and images
  debug/        failure screenshots when --debug is on`,
	Example: `  # Scrape the configured categories
  shopscraper scrape

  # Scrape two categories with five browsers and no images
  shopscraper scrape https://www.uniqlo.com/ca/en/men/tops https://www.uniqlo.com/ca/en/men/bottoms \
    --workers 5 --save-images=false

  # Watch the browser and keep failure screenshots
  shopscraper scrape --headless=false --debug`,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	addScrapeFlags(scrapeCmd)
	// Also accepted on the root command, which scrapes by default
	addScrapeFlags(rootCmd)
}

func addScrapeFlags(cmd *cobra.Command) {
	defaults := config.DefaultConfig()
	cmd.Flags().IntVarP(&workers, "workers", "w", defaults.Scrape.WorkerLimit, "number of categories scraped concurrently")
	cmd.Flags().BoolVar(&saveImages, "save-images", defaults.Scrape.SaveImages, "download one image per product")
	cmd.Flags().IntVar(&waitTimeout, "wait-timeout", defaults.Scrape.WaitTimeoutSeconds, "seconds to wait for page elements")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory (default: current directory)")
	cmd.Flags().BoolVar(&debugMode, "debug", false, "debug logging and failure screenshots")
	cmd.Flags().BoolVar(&headless, "headless", defaults.Browser.Headless, "run Chrome without a window")
}

// scrapeFlags collects the flags the user actually set, so unset flags
// never override file or environment values.
func scrapeFlags(cmd *cobra.Command, args []string) map[string]interface{} {
	flags := make(map[string]interface{})
	if len(args) > 0 {
		flags["urls"] = args
	}
	changed := cmd.Flags().Changed
	if changed("workers") {
		flags["workers"] = workers
	}
	if changed("save-images") {
		flags["save-images"] = saveImages
	}
	if changed("wait-timeout") {
		flags["wait-timeout"] = waitTimeout
	}
	if changed("output") {
		flags["output"] = outputDir
	}
	if changed("debug") {
		flags["debug"] = debugMode
	}
	if changed("headless") {
		flags["headless"] = headless
	}
	if changed("log-level") {
		flags["log-level"] = logLevel
	}
	return flags
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, scrapeFlags(cmd, args))
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		return exitWith(exitConfig, err)
	}
	if quiet && !cfg.Debug && !cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = "error"
	}

	logger.Version = cfg.Scrape.Version
	if err := logger.Initialize(&cfg.Logging); err != nil {
		ui.PrintError("Failed to initialize logging", err.Error())
		return exitWith(exitConfig, err)
	}
	log := logger.GetLogger()
	log.WithField("build", version).Info("shopscraper starting")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifier := ui.NewNotifier(cfg.Notifications)

	store, err := storage.NewManager(cfg.Output.Directory, cfg.Output.ImagesDir, cfg.Output.DebugDir)
	if err != nil {
		log.WithError(err).Error("Output directory is unusable")
		notifier.RunFailed(err)
		return exitWith(exitSetup, err)
	}
	builder := report.NewBuilder(cfg.Output, store, log)
	if err := builder.Prepare(); err != nil {
		log.WithError(err).Error("Failed to prepare output directory")
		notifier.RunFailed(err)
		return exitWith(exitSetup, err)
	}

	printRunInfo(cfg)

	rep, err := newOrchestrator(cfg, store, log).Run(ctx, cfg.Scrape.URLs)
	if err != nil {
		log.WithError(err).Error("Scrape failed")
		notifier.RunFailed(err)
		return exitWith(exitSetup, err)
	}
	if ctx.Err() != nil {
		ui.PrintWarning("Interrupted, writing partial report")
	}

	if err := builder.Write(rep); err != nil {
		log.WithError(err).Error("Failed to write output")
		notifier.RunFailed(err)
		return exitWith(exitOutput, err)
	}

	images := -1
	if cfg.Scrape.SaveImages {
		images = store.SavedCount()
	}
	ui.PrintBlock("")
	ui.PrintBlock(ui.RenderSummary(rep, images, cfg.Output.ReportPath(), cfg.Output.ArchivePath()))
	notifier.RunCompleted(rep.Metadata)
	return nil
}

// newOrchestrator wires the browser, downloader and storage into a
// category worker and wraps it in an orchestrator.
func newOrchestrator(cfg *config.Config, store *storage.Manager, log logger.Logger) *scraper.Orchestrator {
	provider := browser.NewChromeProvider(cfg.Browser, log)
	client := download.NewClient(cfg.Download.Timeout, cfg.Download.UserAgent, log)
	worker := scraper.NewCategoryWorker(provider, client, store, scraper.WorkerConfigFrom(cfg), log)

	return scraper.NewOrchestrator(worker, scraper.Options{
		WorkerLimit:  cfg.Scrape.WorkerLimit,
		LocalePrefix: cfg.Scrape.LocalePrefix,
		Version:      cfg.Scrape.Version,
		Observer:     ui.NewProgressDisplay(cfg.Debug),
	}, log)
}

func printRunInfo(cfg *config.Config) {
	ui.PrintInfo("Categories", strconv.Itoa(len(cfg.Scrape.URLs)))
	ui.PrintInfo("Workers", strconv.Itoa(cfg.Scrape.WorkerLimit))
	ui.PrintInfo("Save images", strconv.FormatBool(cfg.Scrape.SaveImages))
	ui.PrintInfo("Output", cfg.Output.Directory)
	if cfg.Debug {
		ui.PrintInfo("Debug captures", filepath.Join(cfg.Output.Directory, cfg.Output.DebugDir))
	}
}
