package crawler

import (
	"net/url"
	"strings"

	"github.com/nao1215/opendir/internal/model"
)

// Listing is what one listing page contributes to a crawl.
type Listing struct {
	// Files are the classified files, in document order, without duplicates.
	// Files classified as other are not included.
	Files []model.DiscoveredLink

	// Subdirs are absolute subdirectory candidate URLs in document order.
	Subdirs []string
}

// ExtractLinks turns the anchors of the listing at base into files and
// subdirectory candidates. Hrefs that point upwards ("../"), are rooted
// ("/..."), are absolute ("http...") or only change the query or fragment
// are ignored.
func ExtractLinks(base *url.URL, anchors []Anchor) Listing {
	var listing Listing
	seenFiles := make(map[string]struct{})
	seenDirs := make(map[string]struct{})
	source := base.String()

	for _, a := range anchors {
		href := strings.TrimSpace(a.Href)
		if skipHref(href) {
			continue
		}

		ref, err := url.Parse(href)
		if err != nil {
			continue
		}
		abs := base.ResolveReference(ref)
		abs.Fragment = ""
		if !strings.EqualFold(abs.Host, base.Host) || (abs.Scheme != "http" && abs.Scheme != "https") {
			continue
		}
		link := abs.String()

		if strings.HasSuffix(href, "/") {
			if _, ok := seenDirs[link]; !ok {
				seenDirs[link] = struct{}{}
				listing.Subdirs = append(listing.Subdirs, link)
			}
			continue
		}

		category := Classify(link)
		if category == model.FileTypeOther {
			continue
		}
		if _, ok := seenFiles[link]; ok {
			continue
		}
		seenFiles[link] = struct{}{}

		name := a.Text
		if name == "" {
			name = a.Href
		}
		listing.Files = append(listing.Files, model.DiscoveredLink{
			Name:     name,
			URL:      link,
			Category: category,
			Source:   source,
		})
	}

	return listing
}

// skipHref reports whether a raw href can never yield a file or a
// subdirectory of the current listing.
func skipHref(href string) bool {
	if href == "" || href == "../" {
		return true
	}
	if strings.HasPrefix(href, "/") || strings.HasPrefix(href, "http") {
		return true
	}
	if strings.HasPrefix(href, "?") || strings.HasPrefix(href, "#") {
		return true
	}
	lower := strings.ToLower(href)
	return strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "javascript:")
}

// asDirectory returns a copy of u whose path ends with a slash, so that
// relative hrefs resolve below it.
func asDirectory(u *url.URL) *url.URL {
	d := *u
	d.Fragment = ""
	if !strings.HasSuffix(d.Path, "/") {
		d.Path += "/"
		if d.RawPath != "" {
			d.RawPath += "/"
		}
	}
	return &d
}

// normalizeURL returns the key used to detect already visited listings.
// Scheme and host are lowercased, default ports are dropped, and the query
// and fragment are removed.
func normalizeURL(u *url.URL) string {
	n := *u
	n.Scheme = strings.ToLower(n.Scheme)
	n.Host = strings.ToLower(n.Host)
	n.Fragment = ""
	n.RawFragment = ""
	n.RawQuery = ""
	n.ForceQuery = false
	n.User = nil

	switch {
	case n.Scheme == "http" && strings.HasSuffix(n.Host, ":80"):
		n.Host = strings.TrimSuffix(n.Host, ":80")
	case n.Scheme == "https" && strings.HasSuffix(n.Host, ":443"):
		n.Host = strings.TrimSuffix(n.Host, ":443")
	}
	if n.Path == "" {
		n.Path = "/"
	}
	return n.String()
}
