package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/nao1215/opendir/internal/model"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of roots crawled at the same time.
const DefaultConcurrency = 2

// Crawler crawls a single root listing. *crawler.Engine implements it.
type Crawler interface {
	Crawl(ctx context.Context, rootURL string) (*model.CrawlResult, error)
}

// Outcome is the result of crawling one root.
type Outcome struct {
	// Index is the position of the root in the input slice.
	Index   int
	RootURL string

	// Result may be non-nil even when Err is set: a cancelled crawl keeps
	// what it found before stopping.
	Result *model.CrawlResult
	Err    error
}

// Processor runs crawls for many roots with bounded concurrency.
type Processor struct {
	crawler     Crawler
	concurrency int
	logger      *slog.Logger
	onOutcome   func(Outcome)
}

// Option configures a Processor.
type Option func(*Processor)

// WithConcurrency sets how many roots are crawled simultaneously.
// Non-positive values keep the default.
func WithConcurrency(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithLogger sets the logger for batch progress.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithCallback registers fn to be called as soon as each root finishes.
// fn is called from worker goroutines and must be safe for concurrent use.
func WithCallback(fn func(Outcome)) Option {
	return func(p *Processor) {
		p.onOutcome = fn
	}
}

// NewProcessor returns a Processor crawling with c.
func NewProcessor(c Crawler, opts ...Option) *Processor {
	p := &Processor{
		crawler:     c,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Process crawls every root and returns one Outcome per root, in input
// order. The error aggregates the per-root failures; it is nil when every
// crawl succeeded. Roots not started before ctx is done fail with ctx.Err().
func (p *Processor) Process(ctx context.Context, roots []string) ([]Outcome, error) {
	p.logger.Info("starting batch crawl", "roots", len(roots), "concurrency", p.concurrency)
	start := time.Now()

	outcomes := make([]Outcome, len(roots))
	var (
		mu     sync.Mutex
		errs   *multierror.Error
		failed int
	)

	// A plain Group: one failing root must not cancel its siblings.
	var g errgroup.Group
	g.SetLimit(p.concurrency)

	for i, root := range roots {
		g.Go(func() error {
			out := Outcome{Index: i, RootURL: root}
			if err := ctx.Err(); err != nil {
				out.Err = err
			} else {
				p.logger.Info("crawling root", "url", root, "index", i+1, "total", len(roots))
				out.Result, out.Err = p.crawler.Crawl(ctx, root)
			}

			mu.Lock()
			outcomes[i] = out
			if out.Err != nil {
				errs = multierror.Append(errs, fmt.Errorf("%s: %w", root, out.Err))
				failed++
			}
			mu.Unlock()

			if out.Err != nil {
				p.logger.Warn("crawl failed", "url", root, "error", out.Err)
			} else {
				p.logger.Info("crawl finished",
					"url", root,
					"links", out.Result.TotalLinks(),
					"errors", len(out.Result.Errors),
				)
			}
			if p.onOutcome != nil {
				p.onOutcome(out)
			}
			return nil
		})
	}
	_ = g.Wait()

	p.logger.Info("batch crawl complete", "roots", len(roots), "failed", failed, "elapsed", time.Since(start))
	return outcomes, errs.ErrorOrNil()
}

// Summary totals the outcomes of a batch.
type Summary struct {
	Roots      int
	Failed     int
	TotalLinks int
	Stored     int
	URLErrors  int
}

// Summarize totals outcomes for display.
func Summarize(outcomes []Outcome) Summary {
	s := Summary{Roots: len(outcomes)}
	for _, o := range outcomes {
		if o.Err != nil {
			s.Failed++
		}
		if o.Result == nil {
			continue
		}
		s.TotalLinks += o.Result.TotalLinks()
		s.Stored += o.Result.StoredLinks
		s.URLErrors += len(o.Result.Errors)
	}
	return s
}
