package batch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/nao1215/opendir/internal/model"
)

// fakeCrawler returns canned results and tracks concurrency.
type fakeCrawler struct {
	fail    map[string]error
	delay   time.Duration
	running atomic.Int32
	peak    atomic.Int32
}

func (f *fakeCrawler) Crawl(ctx context.Context, rootURL string) (*model.CrawlResult, error) {
	n := f.running.Add(1)
	defer f.running.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return &model.CrawlResult{RootURL: rootURL}, ctx.Err()
		}
	}
	if err := f.fail[rootURL]; err != nil {
		return nil, err
	}
	return &model.CrawlResult{
		RootURL:     rootURL,
		Files:       []model.DiscoveredLink{{URL: rootURL + "a.mp4", Category: model.FileTypeVideo}},
		StoredLinks: 1,
	}, nil
}

func TestNewProcessor(t *testing.T) {
	t.Parallel()

	p := NewProcessor(&fakeCrawler{})
	if p.concurrency != DefaultConcurrency {
		t.Errorf("concurrency = %d, want %d", p.concurrency, DefaultConcurrency)
	}
	if p.logger == nil {
		t.Error("logger should default to slog.Default")
	}

	if got := NewProcessor(&fakeCrawler{}, WithConcurrency(0)).concurrency; got != DefaultConcurrency {
		t.Errorf("WithConcurrency(0) changed concurrency to %d", got)
	}
	if got := NewProcessor(&fakeCrawler{}, WithConcurrency(7)).concurrency; got != 7 {
		t.Errorf("WithConcurrency(7) = %d", got)
	}
}

func TestProcess(t *testing.T) {
	t.Parallel()

	t.Run("keeps input order and aggregates failures", func(t *testing.T) {
		t.Parallel()

		errDown := errors.New("connection refused")
		fc := &fakeCrawler{fail: map[string]error{"http://b.test/": errDown}}
		roots := []string{"http://a.test/", "http://b.test/", "http://c.test/"}

		outcomes, err := NewProcessor(fc, WithConcurrency(3)).Process(context.Background(), roots)
		if err == nil {
			t.Fatal("Process() should report the failed root")
		}
		if !errors.Is(err, errDown) {
			t.Errorf("error %v does not wrap the crawl error", err)
		}
		var merr *multierror.Error
		if !errors.As(err, &merr) || merr.Len() != 1 {
			t.Errorf("error = %#v, want a multierror with one entry", err)
		}
		if !strings.Contains(err.Error(), "http://b.test/") {
			t.Errorf("error %q should name the root", err)
		}

		if len(outcomes) != len(roots) {
			t.Fatalf("got %d outcomes, want %d", len(outcomes), len(roots))
		}
		for i, o := range outcomes {
			if o.Index != i || o.RootURL != roots[i] {
				t.Errorf("outcome %d = %+v", i, o)
			}
		}
		if outcomes[0].Err != nil || outcomes[2].Err != nil {
			t.Error("healthy roots should succeed")
		}

		sum := Summarize(outcomes)
		want := Summary{Roots: 3, Failed: 1, TotalLinks: 2, Stored: 2}
		if sum != want {
			t.Errorf("Summarize() = %+v, want %+v", sum, want)
		}
	})

	t.Run("all succeed", func(t *testing.T) {
		t.Parallel()

		outcomes, err := NewProcessor(&fakeCrawler{}).Process(context.Background(), []string{"http://a.test/"})
		if err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		if len(outcomes) != 1 || outcomes[0].Result == nil {
			t.Errorf("outcomes = %+v", outcomes)
		}
	})

	t.Run("respects concurrency limit", func(t *testing.T) {
		t.Parallel()

		fc := &fakeCrawler{delay: 20 * time.Millisecond}
		roots := []string{"http://1.test/", "http://2.test/", "http://3.test/", "http://4.test/", "http://5.test/"}
		if _, err := NewProcessor(fc, WithConcurrency(2)).Process(context.Background(), roots); err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		if peak := fc.peak.Load(); peak > 2 {
			t.Errorf("peak concurrency = %d, want <= 2", peak)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		outcomes, err := NewProcessor(&fakeCrawler{}).Process(ctx, []string{"http://a.test/", "http://b.test/"})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Process() error = %v, want context.Canceled", err)
		}
		for _, o := range outcomes {
			if !errors.Is(o.Err, context.Canceled) {
				t.Errorf("outcome %s error = %v", o.RootURL, o.Err)
			}
		}
	})

	t.Run("callback sees every root", func(t *testing.T) {
		t.Parallel()

		var (
			mu   sync.Mutex
			seen []string
		)
		cb := func(o Outcome) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, o.RootURL)
		}
		roots := []string{"http://a.test/", "http://b.test/", "http://c.test/"}
		if _, err := NewProcessor(&fakeCrawler{}, WithCallback(cb)).Process(context.Background(), roots); err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		mu.Lock()
		defer mu.Unlock()
		if len(seen) != len(roots) {
			t.Errorf("callback called %d times, want %d", len(seen), len(roots))
		}
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()

		outcomes, err := NewProcessor(&fakeCrawler{}).Process(context.Background(), nil)
		if err != nil || len(outcomes) != 0 {
			t.Errorf("Process(nil) = %v, %v", outcomes, err)
		}
	})
}
