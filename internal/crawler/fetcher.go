package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/nao1215/opendir/internal/tor"
)

// Fetcher defaults.
const (
	DefaultUserAgent   = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_9_3) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/35.0.1916.47 Safari/537.36"
	DefaultTimeout     = 30 * time.Second
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// maxRedirects bounds standard HTTP redirect following.
	maxRedirects = 10
)

// ErrOnionWithoutTor is the cause of a FetchError for .onion listings when
// no Tor client is configured.
var ErrOnionWithoutTor = errors.New("onion listing requires Tor routing")

// FetchError describes a listing that could not be retrieved: a network
// error, a timeout, or a non-2xx response.
type FetchError struct {
	URL   string
	Cause error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Cause)
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error {
	return e.Cause
}

// StatusError is the cause of a FetchError for non-2xx responses.
type StatusError struct {
	StatusCode int
	Status     string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return "unexpected HTTP status " + e.Status
}

// Page is a fetched listing.
type Page struct {
	// URL is the final URL after redirects.
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte

	// Truncated is set when the body exceeded the size limit and was cut.
	Truncated bool
}

// Fetcher retrieves listing pages.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Page, error)
}

// HeaderSource supplies extra request headers per host.
type HeaderSource interface {
	RequestHeaders(host string) http.Header
}

// HTTPFetcher is the Fetcher used for real crawls.
type HTTPFetcher struct {
	client      *http.Client
	onionClient *http.Client
	userAgent   string
	timeout     time.Duration
	maxBodySize int64
	headers     HeaderSource
	logger      *slog.Logger
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithHTTPClient replaces the client used for clearnet hosts.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *HTTPFetcher) {
		f.client = c
	}
}

// WithOnionClient sets the client used for .onion hosts, normally one
// created by tor.Client.NewHTTPClient.
func WithOnionClient(c *http.Client) FetcherOption {
	return func(f *HTTPFetcher) {
		f.onionClient = c
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *HTTPFetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithTimeout sets the per-listing timeout.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *HTTPFetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithMaxBodySize sets the maximum number of body bytes read per listing.
func WithMaxBodySize(n int64) FetcherOption {
	return func(f *HTTPFetcher) {
		if n > 0 {
			f.maxBodySize = n
		}
	}
}

// WithHeaderSource adds per-host headers such as cookies to every request.
func WithHeaderSource(h HeaderSource) FetcherOption {
	return func(f *HTTPFetcher) {
		f.headers = h
	}
}

// WithFetcherLogger sets the logger.
func WithFetcherLogger(l *slog.Logger) FetcherOption {
	return func(f *HTTPFetcher) {
		f.logger = l
	}
}

// NewFetcher creates an HTTPFetcher with a browser User-Agent and a 30
// second timeout.
func NewFetcher(opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client:      NewHTTPClient(),
		userAgent:   DefaultUserAgent,
		timeout:     DefaultTimeout,
		maxBodySize: DefaultMaxBodySize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewHTTPClient returns a clearnet client that follows up to ten redirects.
// Timeouts are applied per request by the fetcher.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        64,
			MaxIdleConnsPerHost: 8,
			IdleConnTimeout:     90 * time.Second,
		},
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}

// Fetch retrieves rawURL. Every failure is returned as a *FetchError.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Cause: err}
	}

	client := f.client
	if tor.IsOnionHost(u.Hostname()) {
		if f.onionClient == nil {
			return nil, &FetchError{URL: rawURL, Cause: ErrOnionWithoutTor}
		}
		client = f.onionClient
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Cause: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	if f.headers != nil {
		for k, vs := range f.headers.RequestHeaders(u.Hostname()) {
			req.Header.Del(k)
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck // draining only
		return nil, &FetchError{
			URL:   rawURL,
			Cause: &StatusError{StatusCode: resp.StatusCode, Status: resp.Status},
		}
	}

	// One byte past the limit tells a cut body from one that fits exactly.
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return nil, &FetchError{URL: rawURL, Cause: fmt.Errorf("failed to read body: %w", err)}
	}
	truncated := int64(len(body)) > f.maxBodySize
	if truncated {
		body = body[:f.maxBodySize]
		f.logger.Warn("listing body truncated, links past the limit are missed",
			"url", rawURL,
			"limit_bytes", f.maxBodySize)
	}

	f.logger.Debug("fetched listing",
		"url", rawURL,
		"status", resp.StatusCode,
		"bytes", len(body),
		"elapsed", time.Since(start))

	final := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	return &Page{
		URL:         final,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		Truncated:   truncated,
	}, nil
}
