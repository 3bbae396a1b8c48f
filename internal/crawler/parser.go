package crawler

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Anchor is a hyperlink found on a listing page.
type Anchor struct {
	// Href is the raw href attribute value.
	Href string

	// Text is the anchor's text content with whitespace collapsed, or Href
	// when the anchor has no text.
	Text string
}

// ParseError is returned when a listing body cannot be read as HTML.
// The crawler treats it as a listing with no links.
type ParseError struct {
	Cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse listing: %v", e.Cause)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// ParseListing extracts every anchor carrying an href attribute, in document
// order. The HTML5 parsing algorithm recovers from malformed markup, so only
// read failures produce an error.
func ParseListing(r io.Reader) ([]Anchor, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, &ParseError{Cause: err}
	}

	var anchors []Anchor
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			if href, ok := getAttr(n, "href"); ok {
				text := textContent(n)
				if text == "" {
					text = href
				}
				anchors = append(anchors, Anchor{Href: href, Text: text})
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return anchors, nil
}

// textContent returns the concatenated text below n with runs of whitespace
// collapsed to a single space.
func textContent(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

// getAttr retrieves an attribute value from an HTML node.
// The boolean is false when the attribute is absent.
func getAttr(n *html.Node, key string) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Namespace == "" && attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}
