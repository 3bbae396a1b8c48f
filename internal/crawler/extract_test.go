package crawler

import (
	"net/url"
	"testing"

	"github.com/nao1215/opendir/internal/model"
)

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("failed to parse %q: %v", raw, err)
	}
	return u
}

// TestExtractLinks tests the split into files and subdirectories.
func TestExtractLinks(t *testing.T) {
	t.Parallel()

	t.Run("classifies one listing level", func(t *testing.T) {
		t.Parallel()

		base := mustParseURL(t, "http://host/dir/")
		anchors := []Anchor{
			{Href: "a.mp4", Text: "MovieA"},
			{Href: "sub/", Text: "(dir)"},
			{Href: "b.txt", Text: "DocB"},
			{Href: "c.xyz", Text: "Unknown"},
		}

		listing := ExtractLinks(base, anchors)

		expected := []model.DiscoveredLink{
			{Name: "MovieA", URL: "http://host/dir/a.mp4", Category: model.FileTypeVideo},
			{Name: "DocB", URL: "http://host/dir/b.txt", Category: model.FileTypeText},
		}
		if len(listing.Files) != len(expected) {
			t.Fatalf("expected %d files, got %d: %+v", len(expected), len(listing.Files), listing.Files)
		}
		for i, want := range expected {
			got := listing.Files[i]
			if got.Name != want.Name || got.URL != want.URL || got.Category != want.Category {
				t.Errorf("file %d: expected %+v, got %+v", i, want, got)
			}
			if got.Source != "http://host/dir/" {
				t.Errorf("file %d: expected source http://host/dir/, got %q", i, got.Source)
			}
		}
		if len(listing.Subdirs) != 1 || listing.Subdirs[0] != "http://host/dir/sub/" {
			t.Errorf("expected one subdir http://host/dir/sub/, got %v", listing.Subdirs)
		}
	})

	t.Run("never emits candidates for excluded hrefs", func(t *testing.T) {
		t.Parallel()

		base := mustParseURL(t, "http://host/dir/")
		anchors := []Anchor{
			{Href: "../", Text: "Parent"},
			{Href: "/", Text: "Root"},
			{Href: "/other/", Text: "Rooted dir"},
			{Href: "/file.mp4", Text: "Rooted file"},
			{Href: "http://host/dir/x.mp4", Text: "Absolute file"},
			{Href: "https://elsewhere/dir/", Text: "Absolute dir"},
			{Href: "httpdocs/", Text: "starts with http"},
			{Href: "?C=N;O=D", Text: "Name"},
			{Href: "#top", Text: "Top"},
			{Href: "mailto:a@b.zip", Text: "Mail"},
			{Href: "javascript:void(0)", Text: "JS"},
			{Href: "", Text: "Empty"},
		}

		listing := ExtractLinks(base, anchors)
		if len(listing.Files) != 0 {
			t.Errorf("expected no files, got %+v", listing.Files)
		}
		if len(listing.Subdirs) != 0 {
			t.Errorf("expected no subdirs, got %v", listing.Subdirs)
		}
	})

	t.Run("name falls back to raw href", func(t *testing.T) {
		t.Parallel()

		base := mustParseURL(t, "http://host/dir/")
		listing := ExtractLinks(base, []Anchor{{Href: "My%20Song.mp3"}})
		if len(listing.Files) != 1 {
			t.Fatalf("expected 1 file, got %d", len(listing.Files))
		}
		if listing.Files[0].Name != "My%20Song.mp3" {
			t.Errorf("expected raw href as name, got %q", listing.Files[0].Name)
		}
		if listing.Files[0].URL != "http://host/dir/My%20Song.mp3" {
			t.Errorf("unexpected url %q", listing.Files[0].URL)
		}
	})

	t.Run("deduplicates within a page", func(t *testing.T) {
		t.Parallel()

		base := mustParseURL(t, "http://host/dir/")
		listing := ExtractLinks(base, []Anchor{
			{Href: "a.iso", Text: "icon"},
			{Href: "a.iso", Text: "a.iso"},
			{Href: "sub/", Text: "sub"},
			{Href: "sub/#frag", Text: "sub"},
			{Href: "sub/", Text: "sub again"},
		})
		if len(listing.Files) != 1 || listing.Files[0].Name != "icon" {
			t.Errorf("expected the first a.iso only, got %+v", listing.Files)
		}
		if len(listing.Subdirs) != 1 {
			t.Errorf("expected one subdir, got %v", listing.Subdirs)
		}
	})

	t.Run("resolves nested relative paths", func(t *testing.T) {
		t.Parallel()

		base := mustParseURL(t, "http://host/dir/")
		listing := ExtractLinks(base, []Anchor{{Href: "deep/er/", Text: "x"}, {Href: "./b.pdf", Text: "b"}})
		if len(listing.Subdirs) != 1 || listing.Subdirs[0] != "http://host/dir/deep/er/" {
			t.Errorf("unexpected subdirs %v", listing.Subdirs)
		}
		if len(listing.Files) != 1 || listing.Files[0].URL != "http://host/dir/b.pdf" {
			t.Errorf("unexpected files %+v", listing.Files)
		}
	})
}

// TestNormalizeURL tests visited-set keys.
func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		input    string
		expected string
	}{
		{"http://HOST/dir/", "http://host/dir/"},
		{"HTTP://host/dir/", "http://host/dir/"},
		{"http://host/dir/?C=M;O=A", "http://host/dir/"},
		{"http://host/dir/#x", "http://host/dir/"},
		{"http://host:80/dir/", "http://host/dir/"},
		{"https://host:443/dir/", "https://host/dir/"},
		{"http://host:8080/dir/", "http://host:8080/dir/"},
		{"http://user:pw@host/dir/", "http://host/dir/"},
		{"http://host", "http://host/"},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			t.Parallel()
			if got := normalizeURL(mustParseURL(t, tc.input)); got != tc.expected {
				t.Errorf("normalizeURL(%q) = %q, expected %q", tc.input, got, tc.expected)
			}
		})
	}
}

// TestAsDirectory tests trailing slash handling.
func TestAsDirectory(t *testing.T) {
	t.Parallel()

	if got := asDirectory(mustParseURL(t, "http://host/dir")).String(); got != "http://host/dir/" {
		t.Errorf("expected http://host/dir/, got %q", got)
	}
	if got := asDirectory(mustParseURL(t, "http://host/dir/")).String(); got != "http://host/dir/" {
		t.Errorf("expected unchanged URL, got %q", got)
	}
	if got := asDirectory(mustParseURL(t, "http://host")).String(); got != "http://host/" {
		t.Errorf("expected http://host/, got %q", got)
	}
}
