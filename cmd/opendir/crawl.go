package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/nao1215/opendir/internal/batch"
	"github.com/nao1215/opendir/internal/config"
	"github.com/nao1215/opendir/internal/crawler"
	"github.com/nao1215/opendir/internal/database"
	"github.com/nao1215/opendir/internal/model"
	"github.com/nao1215/opendir/internal/report"
	"github.com/nao1215/opendir/internal/tor"
	"github.com/spf13/cobra"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [listing-url]...",
		Short: "Crawl open directory listings and store the files found",
		Long: `Crawl fetches each root listing, follows a bounded number of
subdirectories and stores every classified file link in the link store.

Files are classified by extension into video, audio, compressed, disk,
executable, image and text. Links of any other type are ignored.

Examples:
  # Crawl a single listing
  opendir crawl http://files.example.com/pub/

  # Crawl deeper and follow more subdirectories per page
  opendir crawl -d 8 -s 10 http://files.example.com/pub/

  # Crawl every URL waiting in the crawl queue
  opendir crawl --pending

  # Route .onion listings through a local Tor proxy
  opendir crawl --tor http://<address>.onion/files/

  # Write a Markdown summary to a file
  opendir crawl -m -o report.md http://files.example.com/pub/`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Crawl limits
	cmd.Flags().IntP("depth", "d", config.DefaultCrawlDepth,
		"Maximum subdirectory depth below the root listing (0 = root only)")
	cmd.Flags().IntP("max-subdirs", "s", config.DefaultMaxSubdirs,
		"Subdirectories followed from each listing page")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of listing pages fetched per root URL")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Concurrent listing fetches within one crawl")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each listing request")
	cmd.Flags().Duration("crawl-timeout", 0,
		"Time limit for crawling one root URL (0 = no limit)")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")

	// Targets
	cmd.Flags().Bool("pending", false,
		"Also crawl every pending URL in the crawl queue")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of root URLs crawled concurrently")

	// Tor
	cmd.Flags().Bool("tor", false,
		"Route .onion listings through Tor")
	cmd.Flags().String("tor-proxy", config.DefaultTorProxyAddress,
		"Tor SOCKS5 proxy address used with --tor")
	cmd.Flags().Bool("tor-embedded", false,
		"Start an embedded Tor daemon instead of using --tor-proxy")
	cmd.Flags().DurationP("tor-timeout", "T", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .opendir in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildCrawlConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if err := cfg.ValidateTargets(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if err := validateOnionTargets(cfg.Targets); err != nil {
		return err
	}

	logger := setupLogger(cmd, cfg.Verbose)

	ctx, stop := signalContext()
	defer stop()

	return runCrawl(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, logger)
}

// buildCrawlConfig creates a Config from cobra command flags.
func buildCrawlConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
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
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.CrawlPending, err = flags.GetBool("pending"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}

	if cfg.UseTor, err = flags.GetBool("tor"); err != nil {
		return nil, err
	}
	if cfg.TorProxyAddress, err = flags.GetString("tor-proxy"); err != nil {
		return nil, err
	}
	if cfg.EmbeddedTor, err = flags.GetBool("tor-embedded"); err != nil {
		return nil, err
	}
	if cfg.EmbeddedTor {
		cfg.UseTor = true
	}
	if cfg.TorStartupTimeout, err = flags.GetDuration("tor-timeout"); err != nil {
		return nil, err
	}

	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if cfg.SiteConfigs, err = loadSiteConfigs(cfg.ConfigFilePath); err != nil {
		return nil, err
	}

	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}

	cfg.DatabaseURI = databaseURI(cmd)
	cfg.Verbose = getVerboseFlag(cmd)
	cfg.Targets = args

	return cfg, nil
}

// validateOnionTargets rejects .onion roots that are not well-formed v3
// addresses. Subdomains of a v3 address are accepted.
func validateOnionTargets(targets []string) error {
	for _, target := range targets {
		u, err := url.Parse(target)
		if err != nil || !tor.IsOnionHost(u.Hostname()) {
			continue
		}
		labels := strings.Split(strings.TrimSuffix(strings.ToLower(u.Hostname()), "."), ".")
		if len(labels) < 2 || !tor.IsValidV3Address(labels[len(labels)-2]+tor.OnionSuffix) {
			return fmt.Errorf("invalid onion address %q: %w", target, tor.ErrInvalidOnionAddress)
		}
	}
	return nil
}

// runCrawl crawls every target and writes one report per root.
func runCrawl(ctx context.Context, stdout, stderr io.Writer, cfg *config.Config, logger *slog.Logger) error {
	store, err := openStore(ctx, cfg.DatabaseURI, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	targets, err := crawlTargets(ctx, store, cfg)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		fmt.Fprintln(stderr, "No pending URLs in the crawl queue.")
		return nil
	}

	fetcherOpts := []crawler.FetcherOption{
		crawler.WithUserAgent(cfg.UserAgent),
		crawler.WithTimeout(cfg.Timeout),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
		crawler.WithHeaderSource(cfg.SiteConfigs),
		crawler.WithFetcherLogger(logger),
	}
	if cfg.UseTor {
		onionClient, cleanup, err := setupTor(ctx, stderr, cfg, logger)
		if err != nil {
			return err
		}
		defer cleanup()
		fetcherOpts = append(fetcherOpts, crawler.WithOnionClient(onionClient))
	}

	engine := crawler.NewEngine(
		crawler.NewFetcher(fetcherOpts...),
		store,
		crawler.WithMaxDepth(cfg.CrawlDepth),
		crawler.WithMaxSubdirs(cfg.MaxSubdirs),
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithWorkers(cfg.Workers),
		crawler.WithCrawlTimeout(cfg.CrawlTimeout),
		crawler.WithSiteLimits(cfg.SiteConfigs),
		crawler.WithLogger(logger),
	)

	output, closeOutput, err := openOutput(cfg.ReportFile, stdout)
	if err != nil {
		return err
	}
	defer closeOutput() //nolint:errcheck // file is only written before close

	writer, err := report.New(reportFormat(cfg.JSONReport, cfg.MarkdownReport), output)
	if err != nil {
		return err
	}

	// Reports of concurrent crawls must not interleave.
	var (
		mu      sync.Mutex
		written int
	)
	processor := batch.NewProcessor(engine,
		batch.WithConcurrency(cfg.BatchSize),
		batch.WithLogger(logger),
		batch.WithCallback(func(o batch.Outcome) {
			mu.Lock()
			defer mu.Unlock()
			written++
			fmt.Fprintf(stderr, "[%d/%d] %s\n", written, len(targets), o.RootURL)
			if o.Result == nil {
				fmt.Fprintf(stderr, "Crawl error for %s: %v\n", o.RootURL, o.Err)
				return
			}
			if err := writer.Write(o.Result); err != nil {
				logger.Error("report failed", "url", o.RootURL, "error", err)
			}
		}),
	)

	start := time.Now()
	outcomes, err := processor.Process(ctx, targets)
	if len(targets) > 1 {
		s := batch.Summarize(outcomes)
		fmt.Fprintf(stderr, "\nCrawled %d root URLs in %s: %d links found, %d new, %d listing errors, %d failed roots\n",
			s.Roots, time.Since(start).Round(time.Millisecond), s.TotalLinks, s.Stored, s.URLErrors, s.Failed)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("crawl interrupted: %w", err)
	}
	return err
}

// crawlTargets returns the command line targets followed by the pending
// queue when --pending is set, in listing form. Duplicates are dropped.
func crawlTargets(ctx context.Context, store *database.Store, cfg *config.Config) ([]string, error) {
	targets := append([]string(nil), cfg.Targets...)
	if cfg.CrawlPending {
		pending, err := store.PendingURLs(ctx, 0)
		if err != nil {
			return nil, err
		}
		targets = append(targets, pending...)
	}

	seen := make(map[string]bool, len(targets))
	unique := targets[:0]
	for _, t := range targets {
		t = model.ListingURL(t)
		if seen[t] {
			continue
		}
		seen[t] = true
		unique = append(unique, t)
	}
	return unique, nil
}

// setupTor returns the HTTP client used for .onion listings and a cleanup
// function that stops the embedded daemon, if one was started.
func setupTor(ctx context.Context, stderr io.Writer, cfg *config.Config, logger *slog.Logger) (*http.Client, func(), error) {
	if !cfg.EmbeddedTor {
		client, err := tor.NewClient(cfg.TorProxyAddress, cfg.Timeout)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Tor client: %w", err)
		}
		if status := client.CheckConnection(ctx); status != tor.ProxyStatusOK {
			return nil, nil, fmt.Errorf("tor proxy check failed: %w (make sure Tor is running at %s)",
				status.Err(), cfg.TorProxyAddress)
		}
		logger.Info("Tor proxy connection verified", "address", cfg.TorProxyAddress)
		return client.NewHTTPClient(), func() {}, nil
	}

	fmt.Fprintln(stderr, "Starting embedded Tor daemon...")
	fmt.Fprintf(stderr, "This may take 1-3 minutes while Tor bootstraps and connects to the network.\n\n")

	daemon := tor.NewDaemon(cfg.TorStartupTimeout)
	if err := daemon.Start(ctx); err != nil {
		return nil, nil, err
	}
	stopDaemon := func() {
		logger.Info("stopping embedded Tor daemon")
		if err := daemon.Stop(); err != nil {
			logger.Error("failed to stop embedded Tor", "error", err)
		}
	}

	client, err := daemon.NewClient(cfg.Timeout)
	if err != nil {
		stopDaemon()
		return nil, nil, fmt.Errorf("failed to create Tor client: %w", err)
	}
	if status := client.CheckConnection(ctx); status != tor.ProxyStatusOK {
		stopDaemon()
		return nil, nil, fmt.Errorf("embedded Tor proxy check failed: %w", status.Err())
	}

	logger.Info("embedded Tor daemon started", "socksAddr", daemon.SocksAddr())
	fmt.Fprintf(stderr, "Embedded Tor daemon started, SOCKS proxy: %s\n\n", daemon.SocksAddr())
	return client.NewHTTPClient(), stopDaemon, nil
}
