// Package commands implements the pulse-fetch CLI commands.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pulse-fetch/pulse-fetch/internal/config"
	"github.com/pulse-fetch/pulse-fetch/internal/logger"
	"github.com/pulse-fetch/pulse-fetch/pkg/clean"
	"github.com/pulse-fetch/pulse-fetch/pkg/crawl"
	"github.com/pulse-fetch/pulse-fetch/pkg/discover"
	"github.com/pulse-fetch/pulse-fetch/pkg/extract"
	"github.com/pulse-fetch/pulse-fetch/pkg/fetch"
	"github.com/pulse-fetch/pulse-fetch/pkg/scrape"
	"github.com/pulse-fetch/pulse-fetch/pkg/store"
	"github.com/pulse-fetch/pulse-fetch/pkg/strategy"
)

// App holds every wired component the commands operate on, built once
// from config.Config at startup.
type App struct {
	Scraper    *scrape.Orchestrator
	CrawlProxy *crawl.Proxy
	Discoverer *discover.Discoverer
	Store      store.Store
}

// Build wires the Resource Store, Native/Vendor fetchers, the Strategy
// Selector, the Cleaner, the optional Extractor, and the orchestrators
// on top of them. Vendor and Extractor are constructed only when their
// enabling env vars are present.
func Build(cfg config.Config) (*App, error) {
	var resourceStore store.Store
	switch cfg.ResourceStorage {
	case config.StorageFilesystem:
		fs, err := store.OpenFilesystem(cfg.ResourceFilesystemRoot)
		if err != nil {
			return nil, fmt.Errorf("open filesystem store: %w", err)
		}
		resourceStore = fs
	default:
		resourceStore = store.NewMemory()
	}

	native := fetch.NewNativeClient("")
	var vendor fetch.Client
	if cfg.VendorEnabled() {
		vendor = fetch.NewVendorClient("")
	}

	mode := strategy.ModeCost
	if cfg.OptimizeFor == config.OptimizeSpeed {
		mode = strategy.ModeSpeed
	}

	var learnedPath string
	if cfg.ResourceStorage == config.StorageFilesystem {
		learnedPath = cfg.ResourceFilesystemRoot + "/strategies/learned.json"
	}
	selector := &strategy.Selector{
		Native: native,
		Vendor: vendor,
		Table:  strategy.NewLearnedTable(learnedPath, 0),
		Mode:   mode,
	}

	cleaner := clean.NewMarkdownCleaner()

	var extractor extract.Provider
	if cfg.ExtractorEnabled() {
		p, err := extract.New(extract.Config{
			Provider:   extract.ProviderName(cfg.LLMProvider),
			APIKey:     cfg.LLMAPIKey,
			Model:      cfg.LLMModel,
			APIBaseURL: cfg.LLMAPIBaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("build extractor: %w", err)
		}
		extractor = p
	}

	crawlClient := crawl.NewLocalCrawlClient(native, cleaner)

	discoverer := &discover.Discoverer{Fetcher: native, Store: resourceStore, MaxResultsCapOverride: cfg.MapMaxResultsPerPage}

	return &App{
		Scraper: &scrape.Orchestrator{
			Store:     resourceStore,
			Selector:  selector,
			Cleaner:   cleaner,
			Extractor: extractor,
		},
		CrawlProxy: crawl.NewProxy(crawlClient),
		Discoverer: discoverer,
		Store:      resourceStore,
	}, nil
}

var rootCmd = &cobra.Command{
	Use:   "pulse-fetch",
	Short: "Fetch, clean, and extract web content",
	Long: `pulse-fetch scrapes, crawls, and maps web content through a
cost/speed-aware fetch strategy, optional Markdown cleaning, and
optional LLM-driven extraction.

Examples:
  # Scrape a single URL and print Markdown
  pulse-fetch scrape https://example.com/page

  # Ask a question about a page via the configured LLM provider
  pulse-fetch scrape https://example.com/page --extract "what is the price?"

  # Start a crawl job and poll it
  pulse-fetch crawl start https://example.com --limit 20
  pulse-fetch crawl status <job-id>

  # Enumerate URLs from a seed page
  pulse-fetch map https://example.com`,
}

func init() {
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "suppress non-error output")
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))

	cobra.OnInitialize(func() {
		logger.Init(logger.Options{Debug: viper.GetBool("debug"), Quiet: viper.GetBool("quiet")})
	})
}

// Execute wires app into every command's context and runs the CLI.
func Execute(app *App) error {
	rootCmd.SetContext(withApp(rootCmd.Context(), app))
	return rootCmd.Execute()
}
