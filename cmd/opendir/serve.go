package main

import (
	"fmt"

	"github.com/nao1215/opendir/internal/config"
	"github.com/nao1215/opendir/internal/crawler"
	"github.com/nao1215/opendir/internal/metrics"
	"github.com/nao1215/opendir/internal/server"
	"github.com/spf13/cobra"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the search and crawl JSON API",
		Long: `Serve starts an HTTP server exposing the link store.

Endpoints:
  POST   /api/crawl          crawl a listing: {"url": "..."}
  GET    /api/search         ?q=<query>&type=<type>&limit=<n>
  GET    /api/stats          link and queue statistics
  GET    /api/urls           ?status=<status>
  POST   /api/urls           queue a listing: {"url": "..."}
  DELETE /api/urls           ?url=<listing-url>
  GET    /api/health         store health
  GET    /metrics            Prometheus metrics

The API has no authentication. Bind it to a private address.`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("addr", "a", config.DefaultListenAddr, "HTTP listen address")
	cmd.Flags().Int("search-limit", config.DefaultSearchLimit,
		"Number of search results when the request has no limit")
	cmd.Flags().IntP("depth", "d", config.DefaultCrawlDepth,
		"Maximum subdirectory depth for API crawls")
	cmd.Flags().IntP("max-subdirs", "s", config.DefaultMaxSubdirs,
		"Subdirectories followed from each listing page")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of listing pages per API crawl")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Concurrent listing fetches within one crawl")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each listing request")
	cmd.Flags().Duration("crawl-timeout", config.DefaultServeCrawlTimeout,
		"Time limit for one API crawl (0 = no limit)")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .opendir in current or home directory)")

	return cmd
}

// buildServeConfig creates a Config from the serve command flags.
func buildServeConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.ListenAddr, err = flags.GetString("addr"); err != nil {
		return nil, err
	}
	if cfg.SearchLimit, err = flags.GetInt("search-limit"); err != nil {
		return nil, err
	}
	if cfg.CrawlDepth, err = flags.GetInt("depth"); err != nil {
		return nil, err
	}
	if cfg.MaxSubdirs, err = flags.GetInt("max-subdirs"); err != nil {
		return nil, err
	}
	if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
		return nil, err
	}
	if cfg.Workers, err = flags.GetInt("workers"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.CrawlTimeout, err = flags.GetDuration("crawl-timeout"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if cfg.SiteConfigs, err = loadSiteConfigs(cfg.ConfigFilePath); err != nil {
		return nil, err
	}

	cfg.DatabaseURI = databaseURI(cmd)
	cfg.Verbose = getVerboseFlag(cmd)
	return cfg, nil
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildServeConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd, cfg.Verbose)
	ctx, stop := signalContext()
	defer stop()

	store, err := openStore(ctx, cfg.DatabaseURI, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	m := metrics.New()
	fetcher := crawler.NewFetcher(
		crawler.WithUserAgent(cfg.UserAgent),
		crawler.WithTimeout(cfg.Timeout),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
		crawler.WithHeaderSource(cfg.SiteConfigs),
		crawler.WithFetcherLogger(logger),
	)
	engine := crawler.NewEngine(fetcher, store,
		crawler.WithMaxDepth(cfg.CrawlDepth),
		crawler.WithMaxSubdirs(cfg.MaxSubdirs),
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithWorkers(cfg.Workers),
		crawler.WithCrawlTimeout(cfg.CrawlTimeout),
		crawler.WithSiteLimits(cfg.SiteConfigs),
		crawler.WithMetrics(m),
		crawler.WithLogger(logger),
	)

	srv := server.New(store, engine,
		server.WithLogger(logger),
		server.WithMetrics(m),
		server.WithSearchLimit(cfg.SearchLimit),
	)

	fmt.Fprintf(cmd.ErrOrStderr(), "Serving opendir API on %s (store: %s)\n", cfg.ListenAddr, store.Backend())
	return srv.ListenAndServe(ctx, cfg.ListenAddr)
}
