package config

import (
	"net/http"
	"strings"
)

// SiteConfig holds settings for a single listing host.
type SiteConfig struct {
	// Cookie is an HTTP cookie sent to this host.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers sent to this host.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Depth overrides the global crawl depth for this host.
	// If zero, the global CrawlDepth is used.
	Depth int `yaml:"depth,omitempty"`

	// MaxSubdirs overrides the per-listing subdirectory fan-out for this host.
	// If zero, the global MaxSubdirs is used.
	MaxSubdirs int `yaml:"max_subdirs,omitempty"`
}

// File represents the structure of the .opendir configuration file.
type File struct {
	// Sites maps host names (e.g. "files.example.com") to their settings.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults applies to every host unless overridden in Sites.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the settings for host merged over the defaults.
// Host lookup is case-insensitive.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults
	if result.Headers != nil {
		headers := make(map[string]string, len(result.Headers))
		for k, v := range result.Headers {
			headers[k] = v
		}
		result.Headers = headers
	}

	site, ok := cf.Sites[host]
	if !ok {
		site, ok = cf.Sites[strings.ToLower(host)]
	}
	if !ok {
		return result
	}

	if site.Cookie != "" {
		result.Cookie = site.Cookie
	}
	if site.Depth != 0 {
		result.Depth = site.Depth
	}
	if site.MaxSubdirs != 0 {
		result.MaxSubdirs = site.MaxSubdirs
	}
	if len(site.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(site.Headers))
		}
		for k, v := range site.Headers {
			result.Headers[k] = v
		}
	}
	return result
}

// RequestHeaders returns the extra request headers for host, including the
// configured cookie. It returns nil when nothing is configured.
func (cf *File) RequestHeaders(host string) http.Header {
	if cf == nil {
		return nil
	}
	site := cf.GetSiteConfig(host)
	if site.Cookie == "" && len(site.Headers) == 0 {
		return nil
	}

	h := make(http.Header, len(site.Headers)+1)
	for k, v := range site.Headers {
		h.Set(k, v)
	}
	if site.Cookie != "" {
		h.Set("Cookie", site.Cookie)
	}
	return h
}

// Limits returns the depth and subdirectory overrides for host.
// A zero value means the global setting applies.
func (cf *File) Limits(host string) (depth, maxSubdirs int) {
	if cf == nil {
		return 0, 0
	}
	site := cf.GetSiteConfig(host)
	return site.Depth, site.MaxSubdirs
}
