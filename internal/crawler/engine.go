package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/opendir/internal/metrics"
	"github.com/nao1215/opendir/internal/model"
)

// Engine defaults.
const (
	DefaultMaxDepth     = 5
	DefaultMaxSubdirs   = 3
	DefaultMaxPages     = 100
	DefaultWorkers      = 4
	DefaultStoreTimeout = 10 * time.Second
)

// ErrInvalidURL is returned by Crawl when the root URL is not an absolute
// http or https URL.
var ErrInvalidURL = errors.New("invalid listing URL")

// LinkStore receives everything the engine discovers. Implementations must
// make UpsertLinks idempotent on the link URL, because concurrent workers
// write without coordination.
type LinkStore interface {
	UpsertLinks(ctx context.Context, links []model.DiscoveredLink) (int, error)
	RecordError(ctx context.Context, rawURL, message string) error
	UpdateCrawlStatus(ctx context.Context, rawURL string, status model.CrawlStatus, message string) error
}

// LimitSource supplies per-host overrides of depth and subdirectory fan-out.
// Zero values mean no override.
type LimitSource interface {
	Limits(host string) (maxDepth, maxSubdirs int)
}

// Engine crawls directory listings.
// It is safe for concurrent use; every Crawl call keeps its own state.
type Engine struct {
	fetcher      Fetcher
	store        LinkStore
	maxDepth     int
	maxSubdirs   int
	maxPages     int
	workers      int
	crawlTimeout time.Duration
	storeTimeout time.Duration
	limits       LimitSource
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithMaxDepth sets how many subdirectory levels below the root are crawled.
// 0 fetches only the root listing.
func WithMaxDepth(depth int) EngineOption {
	return func(e *Engine) {
		if depth >= 0 {
			e.maxDepth = depth
		}
	}
}

// WithMaxSubdirs sets how many subdirectories are followed from one listing.
func WithMaxSubdirs(n int) EngineOption {
	return func(e *Engine) {
		if n >= 0 {
			e.maxSubdirs = n
		}
	}
}

// WithMaxPages sets the maximum number of listings fetched per crawl.
func WithMaxPages(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxPages = n
		}
	}
}

// WithWorkers sets the number of concurrent fetches.
func WithWorkers(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithCrawlTimeout bounds the total duration of one crawl. When it expires
// the crawl stops and returns what it found so far.
func WithCrawlTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.crawlTimeout = d
	}
}

// WithStoreTimeout bounds every single store call.
func WithStoreTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.storeTimeout = d
		}
	}
}

// WithSiteLimits applies per-host depth and fan-out overrides.
func WithSiteLimits(l LimitSource) EngineOption {
	return func(e *Engine) {
		e.limits = l
	}
}

// WithMetrics records crawl activity on m.
func WithMetrics(m *metrics.Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// NewEngine creates an Engine that fetches with f and writes to store.
func NewEngine(f Fetcher, store LinkStore, opts ...EngineOption) *Engine {
	e := &Engine{
		fetcher:      f,
		store:        store,
		maxDepth:     DefaultMaxDepth,
		maxSubdirs:   DefaultMaxSubdirs,
		maxPages:     DefaultMaxPages,
		workers:      DefaultWorkers,
		storeTimeout: DefaultStoreTimeout,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// target is a listing waiting to be fetched.
type target struct {
	url   *url.URL
	depth int
}

// visitOutcome is what processing one listing produced.
type visitOutcome struct {
	files   []model.DiscoveredLink
	subdirs []string
	errs    []model.URLError
	stored  int
	// skipped is set when cancellation prevented the visit.
	skipped bool
}

// Crawl fetches the listing at rootURL and its subdirectories, writing the
// files of every listing to the store as soon as that listing is parsed.
//
// Listings are processed level by level: all listings at depth d are
// fetched by the worker pool before any listing at depth d+1. A failing
// listing produces a URLError and does not affect any other listing.
//
// When ctx is cancelled Crawl stops, returns the partial result and
// ctx.Err(). When the crawl timeout expires the partial result is returned
// with TimedOut set and a nil error.
func (e *Engine) Crawl(ctx context.Context, rootURL string) (*model.CrawlResult, error) {
	root, err := parseListingURL(rootURL)
	if err != nil {
		return nil, err
	}

	parent := ctx
	if e.crawlTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.crawlTimeout)
		defer cancel()
	}

	maxDepth, maxSubdirs := e.limitsFor(root.Hostname())
	result := &model.CrawlResult{
		ID:        uuid.NewString(),
		RootURL:   root.String(),
		StartedAt: time.Now(),
	}
	logger := e.logger.With("crawl_id", result.ID, "root", result.RootURL)
	logger.Info("crawl started", "max_depth", maxDepth, "max_subdirs", maxSubdirs, "max_pages", e.maxPages)

	visited := map[string]struct{}{normalizeURL(root): {}}
	seenSubdirs := make(map[string]struct{})
	pages := 1
	frontier := []target{{url: root, depth: 0}}

	for len(frontier) > 0 && ctx.Err() == nil {
		outcomes := e.visitLevel(ctx, frontier)

		var next []target
		for i, out := range outcomes {
			t := frontier[i]
			if out.skipped {
				continue
			}
			if t.depth == 0 {
				result.RootFiles = len(out.files)
			} else {
				result.SubdirsVisited++
			}
			result.Files = append(result.Files, out.files...)
			result.Errors = append(result.Errors, out.errs...)
			result.StoredLinks += out.stored
			for _, s := range out.subdirs {
				if _, ok := seenSubdirs[s]; !ok {
					seenSubdirs[s] = struct{}{}
					result.Subdirectories = append(result.Subdirectories, s)
				}
			}

			if t.depth >= maxDepth {
				continue
			}
			followed := 0
			for _, s := range out.subdirs {
				if followed >= maxSubdirs {
					break
				}
				u, err := url.Parse(s)
				if err != nil {
					continue
				}
				key := normalizeURL(u)
				if _, ok := visited[key]; ok {
					continue
				}
				if pages >= e.maxPages {
					result.LimitReached = true
					break
				}
				visited[key] = struct{}{}
				pages++
				followed++
				next = append(next, target{url: u, depth: t.depth + 1})
			}
		}
		frontier = next
	}

	result.FinishedAt = time.Now()
	if result.LimitReached {
		logger.Warn("page limit reached", "max_pages", e.maxPages)
	}

	var crawlErr error
	status := "completed"
	switch {
	case parent.Err() != nil:
		crawlErr = parent.Err()
		status = "cancelled"
	case ctx.Err() != nil:
		result.TimedOut = true
		status = "partial"
		logger.Warn("crawl timeout reached", "timeout", e.crawlTimeout)
	case result.HasErrors():
		status = "partial"
	}
	e.metrics.ObserveCrawl(status, pages, result.Duration())

	logger.Info("crawl finished",
		"files", len(result.Files),
		"subdirs_visited", result.SubdirsVisited,
		"errors", len(result.Errors),
		"elapsed", result.Duration())

	return result, crawlErr
}

// visitLevel processes every target of one depth with at most e.workers
// concurrent visits. Outcomes are returned in frontier order.
func (e *Engine) visitLevel(ctx context.Context, frontier []target) []visitOutcome {
	outcomes := make([]visitOutcome, len(frontier))

	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, t := range frontier {
		if ctx.Err() != nil {
			outcomes[i].skipped = true
			continue
		}
		g.Go(func() error {
			outcomes[i] = e.visit(ctx, t)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // visits never return errors

	return outcomes
}

// visit fetches, parses and stores a single listing.
func (e *Engine) visit(ctx context.Context, t target) visitOutcome {
	var out visitOutcome
	if ctx.Err() != nil {
		out.skipped = true
		return out
	}

	pageURL := t.url.String()
	logger := e.logger.With("url", pageURL, "depth", t.depth)
	e.setStatus(ctx, pageURL, model.CrawlStatusInProgress, "")

	page, err := e.fetcher.Fetch(ctx, pageURL)
	e.metrics.ObserveFetch(err)
	if err != nil {
		if ctx.Err() != nil {
			// The crawl was stopped while this listing was in flight.
			e.setStatus(ctx, pageURL, model.CrawlStatusPending, "crawl stopped before completion")
			out.skipped = true
			return out
		}
		logger.Warn("failed to fetch listing", "error", err)
		out.errs = append(out.errs, e.fail(ctx, t, model.ErrorKindFetch, err))
		return out
	}

	base := asDirectory(t.url)
	if final, err := url.Parse(page.URL); err == nil && strings.EqualFold(final.Host, t.url.Host) {
		base = asDirectory(final)
	}

	anchors, err := ParseListing(bytes.NewReader(page.Body))
	if err != nil {
		logger.Warn("failed to parse listing", "error", err)
		out.errs = append(out.errs, e.fail(ctx, t, model.ErrorKindParse, err))
		return out
	}

	listing := ExtractLinks(base, anchors)
	out.files = listing.Files
	out.subdirs = listing.Subdirs
	for ft, n := range countByType(listing.Files) {
		e.metrics.AddDiscovered(ft.String(), n)
	}
	logger.Debug("parsed listing",
		"anchors", len(anchors),
		"files", len(listing.Files),
		"subdirs", len(listing.Subdirs))

	if len(listing.Files) > 0 {
		sctx, cancel := e.storeContext(ctx)
		n, err := e.store.UpsertLinks(sctx, listing.Files)
		cancel()
		e.metrics.ObserveStore(n, err)
		if err != nil {
			logger.Error("failed to store links", "links", len(listing.Files), "error", err)
			out.errs = append(out.errs, e.fail(ctx, t, model.ErrorKindStore, err))
			return out
		}
		out.stored = n
	}

	e.setStatus(ctx, pageURL, model.CrawlStatusCompleted, "")
	return out
}

// fail records a listing failure in the store and returns it as a URLError.
func (e *Engine) fail(ctx context.Context, t target, kind model.ErrorKind, cause error) model.URLError {
	pageURL := t.url.String()
	msg := cause.Error()

	sctx, cancel := e.storeContext(ctx)
	defer cancel()
	if err := e.store.RecordError(sctx, pageURL, msg); err != nil {
		e.logger.Error("failed to record listing error", "url", pageURL, "error", err)
	}
	e.setStatus(ctx, pageURL, model.CrawlStatusError, msg)

	return model.URLError{URL: pageURL, Depth: t.depth, Kind: kind, Message: msg}
}

// setStatus updates a listing's crawl status. Failures are logged only.
func (e *Engine) setStatus(ctx context.Context, pageURL string, status model.CrawlStatus, msg string) {
	sctx, cancel := e.storeContext(ctx)
	defer cancel()
	if err := e.store.UpdateCrawlStatus(sctx, pageURL, status, msg); err != nil {
		e.logger.Error("failed to update crawl status", "url", pageURL, "status", status, "error", err)
	}
}

// storeContext detaches store calls from crawl cancellation so that work
// already done is recorded consistently, and bounds them by storeTimeout.
func (e *Engine) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), e.storeTimeout)
}

// limitsFor returns the depth and fan-out for host.
func (e *Engine) limitsFor(host string) (maxDepth, maxSubdirs int) {
	maxDepth, maxSubdirs = e.maxDepth, e.maxSubdirs
	if e.limits != nil {
		d, s := e.limits.Limits(host)
		if d > 0 {
			maxDepth = d
		}
		if s > 0 {
			maxSubdirs = s
		}
	}
	return maxDepth, maxSubdirs
}

// parseListingURL validates a root URL and returns it in the form used for
// its crawl status, see model.ListingURL.
func parseListingURL(raw string) (*url.URL, error) {
	u, err := url.Parse(model.ListingURL(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return u, nil
}

func countByType(links []model.DiscoveredLink) map[model.FileType]int {
	counts := make(map[model.FileType]int)
	for _, l := range links {
		counts[l.Category]++
	}
	return counts
}
