package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/opendir/internal/config"
	"github.com/nao1215/opendir/internal/database"
	"github.com/nao1215/opendir/internal/model"
	"github.com/nao1215/opendir/internal/tor"
)

// listingPages is a small autoindex tree served by newListingServer.
var listingPages = map[string]string{
	"/pub/": `<html><body><h1>Index of /pub</h1><pre>
<a href="../">../</a>
<a href="movies/">movies/</a>
<a href="music/">music/</a>
<a href="readme.txt">readme.txt</a>
<a href="setup.exe">setup.exe</a>
</pre></body></html>`,
	"/pub/movies/": `<html><body><pre>
<a href="../">../</a>
<a href="Holiday.MP4">Holiday.MP4</a>
<a href="trailer.mkv">trailer.mkv</a>
</pre></body></html>`,
	"/pub/music/": `<html><body><pre>
<a href="../">../</a>
<a href="song.mp3">song.mp3</a>
<a href="cover.jpg">cover.jpg</a>
</pre></body></html>`,
}

func newListingServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := listingPages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testCrawlConfig returns a config crawling targets into a fresh SQLite
// directory.
func testCrawlConfig(t *testing.T, targets ...string) *config.Config {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Targets = targets
	cfg.Timeout = 5 * time.Second
	cfg.DatabaseURI = filepath.Join(t.TempDir(), "db")
	cfg.SiteConfigs = &config.File{Sites: map[string]config.SiteConfig{}}
	return cfg
}

// TestNewCrawlCmd tests the crawl command creation.
func TestNewCrawlCmd(t *testing.T) {
	t.Parallel()

	cmd := NewCrawlCmd()

	flags := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{"depth", "d", "5"},
		{"max-subdirs", "s", "3"},
		{"max-pages", "p", "100"},
		{"workers", "w", "4"},
		{"timeout", "t", "30s"},
		{"crawl-timeout", "", "0s"},
		{"pending", "", "false"},
		{"batch", "b", "2"},
		{"tor", "", "false"},
		{"tor-proxy", "", config.DefaultTorProxyAddress},
		{"tor-embedded", "", "false"},
		{"tor-timeout", "T", "3m0s"},
		{"config", "c", ""},
		{"json", "j", "false"},
		{"markdown", "m", "false"},
		{"output", "o", ""},
	}
	for _, tt := range flags {
		t.Run("has "+tt.name+" flag", func(t *testing.T) {
			t.Parallel()
			flag := cmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Fatalf("expected %s flag", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("expected shorthand %q, got %q", tt.shorthand, flag.Shorthand)
			}
			if flag.DefValue != tt.defValue {
				t.Errorf("expected default %q, got %q", tt.defValue, flag.DefValue)
			}
		})
	}
}

// TestBuildCrawlConfig tests building a Config from crawl flags.
func TestBuildCrawlConfig(t *testing.T) {
	t.Parallel()

	t.Run("reads flags", func(t *testing.T) {
		t.Parallel()
		configPath := filepath.Join(t.TempDir(), "opendir.yaml")
		if err := os.WriteFile(configPath, []byte("sites:\n  files.example.com:\n    depth: 2\n"), 0600); err != nil {
			t.Fatal(err)
		}

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{
			"-d", "1", "-s", "7", "-p", "20", "-w", "2", "-t", "10s",
			"--crawl-timeout", "1m", "--pending", "-b", "3",
			"--tor-embedded", "-c", configPath, "-j", "-o", "out.json",
		}); err != nil {
			t.Fatalf("ParseFlags() error = %v", err)
		}

		cfg, err := buildCrawlConfig(cmd, []string{"http://files.example.com/"})
		if err != nil {
			t.Fatalf("buildCrawlConfig() error = %v", err)
		}
		if cfg.CrawlDepth != 1 || cfg.MaxSubdirs != 7 || cfg.MaxPages != 20 || cfg.Workers != 2 {
			t.Errorf("unexpected limits: %+v", cfg)
		}
		if cfg.Timeout != 10*time.Second || cfg.CrawlTimeout != time.Minute {
			t.Errorf("unexpected timeouts: %v %v", cfg.Timeout, cfg.CrawlTimeout)
		}
		if !cfg.CrawlPending || cfg.BatchSize != 3 {
			t.Errorf("unexpected queue settings: pending=%v batch=%d", cfg.CrawlPending, cfg.BatchSize)
		}
		if !cfg.UseTor || !cfg.EmbeddedTor {
			t.Error("expected --tor-embedded to enable Tor")
		}
		if !cfg.JSONReport || cfg.ReportFile != "out.json" {
			t.Errorf("unexpected report settings: json=%v file=%q", cfg.JSONReport, cfg.ReportFile)
		}
		if depth, _ := cfg.SiteConfigs.Limits("files.example.com"); depth != 2 {
			t.Errorf("expected site depth 2 from config file, got %d", depth)
		}
		if len(cfg.Targets) != 1 {
			t.Errorf("expected 1 target, got %v", cfg.Targets)
		}
	})

	t.Run("explicit config file must exist", func(t *testing.T) {
		t.Parallel()
		cmd := NewCrawlCmd()
		missing := filepath.Join(t.TempDir(), "missing.yaml")
		if err := cmd.ParseFlags([]string{"-c", missing}); err != nil {
			t.Fatal(err)
		}
		_, err := buildCrawlConfig(cmd, nil)
		if !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})
}

// TestRunCrawlCmdValidation tests argument errors caught before crawling.
func TestRunCrawlCmdValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"no targets", []string{"crawl"}, config.ErrNoTarget},
		{"invalid scheme", []string{"crawl", "ftp://files.example.com/"}, config.ErrInvalidTargetURL},
		{"conflicting formats", []string{"crawl", "-j", "-m", "http://files.example.com/"}, config.ErrConflictingReportFormats},
		{"negative depth", []string{"crawl", "-d", "-1", "http://files.example.com/"}, config.ErrInvalidDepth},
		{"bad onion address", []string{"crawl", "--tor", "http://notvalid.onion/"}, tor.ErrInvalidOnionAddress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cmd := NewRootCmd()
			cmd.SetOut(io.Discard)
			cmd.SetErr(io.Discard)
			cmd.SetArgs(append([]string{"--db", filepath.Join(t.TempDir(), "db")}, tt.args...))

			err := cmd.Execute()
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestValidateOnionTargets(t *testing.T) {
	t.Parallel()

	pubkey := make([]byte, 32)
	for i := range pubkey {
		pubkey[i] = byte(i)
	}
	address, err := tor.AddressFromPublicKey(pubkey)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		target  string
		wantErr bool
	}{
		{"clearnet", "http://files.example.com/", false},
		{"valid v3", "http://" + address + "/files/", false},
		{"subdomain of v3", "http://files." + address + "/", false},
		{"uppercase v3 with port", "http://" + strings.ToUpper(address) + ":8080/", false},
		{"short name", "http://facebookcorewwwi.onion/", true},
		{"bare suffix", "http://.onion/", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := validateOnionTargets([]string{tt.target})
			if (err != nil) != tt.wantErr {
				t.Errorf("validateOnionTargets(%q) error = %v, wantErr %v", tt.target, err, tt.wantErr)
			}
		})
	}
}

// TestRunCrawl crawls a local listing tree end to end.
func TestRunCrawl(t *testing.T) {
	t.Parallel()

	server := newListingServer(t)
	root := server.URL + "/pub/"

	t.Run("stores classified files and prints a report", func(t *testing.T) {
		t.Parallel()
		cfg := testCrawlConfig(t, root)

		var stdout, stderr bytes.Buffer
		if err := runCrawl(context.Background(), &stdout, &stderr, cfg, discardLogger()); err != nil {
			t.Fatalf("runCrawl() error = %v", err)
		}
		if !strings.Contains(stdout.String(), root) {
			t.Errorf("expected report for %s, got:\n%s", root, stdout.String())
		}

		store, err := database.Open(context.Background(), cfg.DatabaseURI, database.Options{})
		if err != nil {
			t.Fatalf("failed to reopen store: %v", err)
		}
		defer store.Close()

		stats, err := store.Stats(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		// readme.txt, setup.exe, Holiday.MP4, trailer.mkv, song.mp3, cover.jpg
		if stats.TotalLinks != 6 {
			t.Errorf("expected 6 stored links, got %d (%v)", stats.TotalLinks, stats.LinksByType)
		}
		if stats.LinksByType[model.FileTypeVideo] != 2 {
			t.Errorf("expected 2 videos, got %d", stats.LinksByType[model.FileTypeVideo])
		}
	})

	t.Run("depth zero stays on the root listing", func(t *testing.T) {
		t.Parallel()
		cfg := testCrawlConfig(t, root)
		cfg.CrawlDepth = 0
		cfg.JSONReport = true

		var stdout bytes.Buffer
		if err := runCrawl(context.Background(), &stdout, io.Discard, cfg, discardLogger()); err != nil {
			t.Fatalf("runCrawl() error = %v", err)
		}

		var got struct {
			RootURL        string `json:"rootUrl"`
			RootFiles      int    `json:"rootFiles"`
			SubdirsVisited int    `json:"subdirsVisited"`
			TotalLinks     int    `json:"totalLinks"`
		}
		if err := json.Unmarshal(stdout.Bytes(), &got); err != nil {
			t.Fatalf("report is not JSON: %v\n%s", err, stdout.String())
		}
		if got.RootFiles != 2 || got.TotalLinks != 2 || got.SubdirsVisited != 0 {
			t.Errorf("unexpected counts: %+v", got)
		}
	})

	t.Run("writes markdown report to file", func(t *testing.T) {
		t.Parallel()
		cfg := testCrawlConfig(t, root)
		cfg.MarkdownReport = true
		cfg.ReportFile = filepath.Join(t.TempDir(), "reports", "crawl.md")

		var stdout bytes.Buffer
		if err := runCrawl(context.Background(), &stdout, io.Discard, cfg, discardLogger()); err != nil {
			t.Fatalf("runCrawl() error = %v", err)
		}
		if stdout.Len() != 0 {
			t.Errorf("expected nothing on stdout, got %q", stdout.String())
		}
		content, err := os.ReadFile(cfg.ReportFile)
		if err != nil {
			t.Fatalf("report file not written: %v", err)
		}
		if !strings.HasPrefix(string(content), "# ") {
			t.Errorf("expected markdown heading, got:\n%s", content)
		}
	})

	t.Run("crawls the pending queue", func(t *testing.T) {
		t.Parallel()
		cfg := testCrawlConfig(t)
		cfg.CrawlPending = true

		store, err := database.Open(context.Background(), cfg.DatabaseURI, database.DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		if _, err := store.AddURL(context.Background(), server.URL+"/pub/music/"); err != nil {
			t.Fatal(err)
		}
		if err := store.Close(); err != nil {
			t.Fatal(err)
		}

		var stderr bytes.Buffer
		if err := runCrawl(context.Background(), io.Discard, &stderr, cfg, discardLogger()); err != nil {
			t.Fatalf("runCrawl() error = %v", err)
		}

		store, err = database.Open(context.Background(), cfg.DatabaseURI, database.Options{})
		if err != nil {
			t.Fatal(err)
		}
		defer store.Close()
		pending, err := store.PendingURLs(context.Background(), 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(pending) != 0 {
			t.Errorf("expected empty queue after crawl, got %v", pending)
		}
		stats, err := store.Stats(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if stats.TotalLinks != 2 {
			t.Errorf("expected 2 links from the music listing, got %d", stats.TotalLinks)
		}
	})

	t.Run("queued URL without trailing slash is completed", func(t *testing.T) {
		t.Parallel()
		cfg := testCrawlConfig(t)
		cfg.CrawlPending = true
		ctx := context.Background()

		store, err := database.Open(ctx, cfg.DatabaseURI, database.DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		if _, err := store.AddURL(ctx, server.URL+"/pub/music"); err != nil {
			t.Fatal(err)
		}
		if err := store.Close(); err != nil {
			t.Fatal(err)
		}

		if err := runCrawl(ctx, io.Discard, io.Discard, cfg, discardLogger()); err != nil {
			t.Fatalf("first runCrawl() error = %v", err)
		}
		var stderr bytes.Buffer
		if err := runCrawl(ctx, io.Discard, &stderr, cfg, discardLogger()); err != nil {
			t.Fatalf("second runCrawl() error = %v", err)
		}
		if !strings.Contains(stderr.String(), "No pending URLs") {
			t.Errorf("expected the queue to be empty on the second run, got %q", stderr.String())
		}

		store, err = database.Open(ctx, cfg.DatabaseURI, database.Options{})
		if err != nil {
			t.Fatal(err)
		}
		defer store.Close()
		targets, err := store.CrawledURLs(ctx, "")
		if err != nil {
			t.Fatal(err)
		}
		if len(targets) != 1 || targets[0].URL != server.URL+"/pub/music/" || targets[0].Status != model.CrawlStatusCompleted {
			t.Errorf("expected one completed listing row, got %+v", targets)
		}
	})

	t.Run("empty pending queue is not an error", func(t *testing.T) {
		t.Parallel()
		cfg := testCrawlConfig(t)
		cfg.CrawlPending = true

		var stderr bytes.Buffer
		if err := runCrawl(context.Background(), io.Discard, &stderr, cfg, discardLogger()); err != nil {
			t.Fatalf("runCrawl() error = %v", err)
		}
		if !strings.Contains(stderr.String(), "No pending URLs") {
			t.Errorf("expected notice about empty queue, got %q", stderr.String())
		}
	})

	t.Run("unreachable root is reported, not fatal", func(t *testing.T) {
		t.Parallel()
		cfg := testCrawlConfig(t, server.URL+"/missing/", root)

		var stderr bytes.Buffer
		if err := runCrawl(context.Background(), io.Discard, &stderr, cfg, discardLogger()); err != nil {
			t.Fatalf("runCrawl() error = %v", err)
		}
		if !strings.Contains(stderr.String(), "Crawled 2 root URLs") {
			t.Errorf("expected batch summary, got %q", stderr.String())
		}
	})

	t.Run("cancelled context interrupts the crawl", func(t *testing.T) {
		t.Parallel()
		cfg := testCrawlConfig(t, root)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := runCrawl(ctx, io.Discard, io.Discard, cfg, discardLogger())
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestCrawlTargets(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, err := database.Open(ctx, database.MemoryURI, database.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	for _, u := range []string{"http://a.example.com/", "http://b.example.com/"} {
		if _, err := store.AddURL(ctx, u); err != nil {
			t.Fatal(err)
		}
	}

	cfg := config.NewConfig()
	cfg.Targets = []string{"http://b.example.com/", "http://c.example.com/"}

	got, err := crawlTargets(ctx, store, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if fmt.Sprint(got) != "[http://b.example.com/ http://c.example.com/]" {
		t.Errorf("without --pending got %v", got)
	}

	cfg.CrawlPending = true
	got, err = crawlTargets(ctx, store, cfg)
	if err != nil {
		t.Fatal(err)
	}
	want := "[http://b.example.com/ http://c.example.com/ http://a.example.com/]"
	if fmt.Sprint(got) != want {
		t.Errorf("crawlTargets() = %v, want %s", got, want)
	}
}
