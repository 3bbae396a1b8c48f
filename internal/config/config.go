package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "opendir"

	// DefaultTimeout bounds a single listing fetch, including redirects and
	// reading the body.
	DefaultTimeout = 30 * time.Second

	// DefaultCrawlDepth is the deepest subdirectory level followed below a root
	// listing. The root listing itself is depth 0.
	DefaultCrawlDepth = 5

	// DefaultMaxSubdirs is the number of subdirectory candidates followed from
	// each listing page. Further candidates on the same page are ignored.
	DefaultMaxSubdirs = 3

	// DefaultMaxPages is the maximum number of listing pages fetched for one
	// root URL.
	DefaultMaxPages = 100

	// DefaultWorkers is the number of listing pages fetched concurrently
	// within one crawl.
	DefaultWorkers = 4

	// DefaultBatchSize is the number of root URLs crawled concurrently.
	DefaultBatchSize = 2

	// DefaultUserAgent is sent with every listing request. Many directory
	// listings refuse or rewrite responses for unknown clients, so a desktop
	// browser identity is used.
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_9_3) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/35.0.1916.47 Safari/537.36"

	// DefaultMaxBodySize limits the listing body read into memory.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultListenAddr is the address used by the serve command.
	DefaultListenAddr = ":8080"

	// DefaultServeCrawlTimeout bounds crawls started through the HTTP API,
	// which run while the client waits for the response.
	DefaultServeCrawlTimeout = 2 * time.Minute

	// DefaultSearchLimit is the number of search results returned when the
	// caller does not ask for a specific amount.
	DefaultSearchLimit = 10

	// DefaultTorProxyAddress is the standard Tor SOCKS5 proxy address.
	DefaultTorProxyAddress = "127.0.0.1:9050"

	// DefaultTorStartupTimeout is the maximum time to wait for the embedded
	// Tor daemon to bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute
)

// Config holds all configuration options for opendir.
// It is populated from CLI flags and the optional config file, then passed
// down to the components that need it.
type Config struct {
	// Targets are the root listing URLs to crawl.
	Targets []string

	// CrawlPending also crawls every URL waiting in the crawl queue.
	CrawlPending bool

	// Timeout is the timeout of a single listing fetch.
	Timeout time.Duration

	// CrawlTimeout bounds a whole crawl of one root URL. Zero disables it.
	CrawlTimeout time.Duration

	// CrawlDepth is the maximum subdirectory depth below a root listing.
	// Depth 0 fetches only the root listing.
	CrawlDepth int

	// MaxSubdirs is the number of subdirectories followed per listing page.
	MaxSubdirs int

	// MaxPages is the maximum number of listing pages fetched per root URL.
	MaxPages int

	// Workers is the number of concurrent fetches within one crawl.
	Workers int

	// BatchSize is the number of root URLs crawled at the same time.
	BatchSize int

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// MaxBodySize is the maximum listing body size in bytes.
	// Larger bodies are truncated.
	MaxBodySize int64

	// DatabaseURI selects the link store. A "postgres://" or "postgresql://"
	// URI uses PostgreSQL, anything else is treated as a SQLite location.
	// Defaults to the XDG data directory (~/.local/share/opendir on Linux).
	DatabaseURI string

	// ListenAddr is the HTTP listen address of the serve command.
	ListenAddr string

	// SearchLimit is the default number of search results.
	SearchLimit int

	// UseTor routes requests to .onion hosts through a Tor SOCKS5 proxy.
	UseTor bool

	// EmbeddedTor starts a private Tor daemon instead of using TorProxyAddress.
	// Only used when UseTor is true.
	EmbeddedTor bool

	// TorProxyAddress is the external Tor SOCKS5 proxy in "host:port" format.
	TorProxyAddress string

	// TorStartupTimeout is the bootstrap timeout of the embedded Tor daemon.
	TorStartupTimeout time.Duration

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, .opendir is searched in the current directory and then in
	// the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds per-host settings loaded from the config file.
	SiteConfigs *File

	// JSONReport prints the crawl summary as JSON.
	JSONReport bool

	// MarkdownReport prints the crawl summary as GitHub Flavored Markdown.
	MarkdownReport bool

	// ReportFile writes the crawl summary to a file instead of stdout.
	ReportFile string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Timeout:           DefaultTimeout,
		CrawlDepth:        DefaultCrawlDepth,
		MaxSubdirs:        DefaultMaxSubdirs,
		MaxPages:          DefaultMaxPages,
		Workers:           DefaultWorkers,
		BatchSize:         DefaultBatchSize,
		UserAgent:         DefaultUserAgent,
		MaxBodySize:       DefaultMaxBodySize,
		DatabaseURI:       XDGDataDir(),
		ListenAddr:        DefaultListenAddr,
		SearchLimit:       DefaultSearchLimit,
		TorProxyAddress:   DefaultTorProxyAddress,
		TorStartupTimeout: DefaultTorStartupTimeout,
	}
}

// XDGDataDir returns the XDG data directory for opendir.
// On Linux: ~/.local/share/opendir
// On macOS: ~/Library/Application Support/opendir
// On Windows: %LOCALAPPDATA%\opendir
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for opendir.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the settings shared by every command.
// It returns the first problem found.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.CrawlTimeout < 0 {
		return ErrInvalidCrawlTimeout
	}
	if c.CrawlDepth < 0 {
		return ErrInvalidDepth
	}
	if c.MaxSubdirs < 0 {
		return ErrInvalidMaxSubdirs
	}
	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.SearchLimit < 0 {
		return ErrInvalidSearchLimit
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}

// ValidateTargets checks that there is something to crawl and that every
// target is an absolute http or https URL.
func (c *Config) ValidateTargets() error {
	if len(c.Targets) == 0 && !c.CrawlPending {
		return ErrNoTarget
	}
	for _, target := range c.Targets {
		if err := ValidateTargetURL(target); err != nil {
			return err
		}
	}
	return nil
}

// ValidateTargetURL reports whether raw can be crawled as a root listing.
func ValidateTargetURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidTargetURL, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %q: scheme must be http or https", ErrInvalidTargetURL, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: %q: missing host", ErrInvalidTargetURL, raw)
	}
	return nil
}
