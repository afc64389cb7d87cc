// Package htmldoc locates the documentation section to extract inside a
// parsed HTML page.
//
// A section is identified by an <h2> whose id ends with a fixed suffix (for
// example "userObjectValues" for suffix "ObjectValues"); its data is the first
// <table> that follows the heading in document order. The table is usually a
// later sibling of the heading, not a descendant, so the walk is over the whole
// document rather than the heading's subtree.
package htmldoc

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Parse parses an HTML page into a goquery document.
func Parse(content string) (*goquery.Document, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("parse html: empty document")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// FindHeadingsWithIDSuffix returns every <h2 id="..."> whose id ends with
// suffix, in document order. Matching is case-sensitive. An empty result is
// not an error here; the caller decides what a missing section means.
func FindHeadingsWithIDSuffix(doc *goquery.Document, suffix string) []*goquery.Selection {
	if doc == nil {
		panic("htmldoc: FindHeadingsWithIDSuffix called with nil document")
	}

	var out []*goquery.Selection
	doc.Find("h2[id]").Each(func(_ int, h *goquery.Selection) {
		id, _ := h.Attr("id")
		if strings.HasSuffix(id, suffix) {
			out = append(out, h)
		}
	})
	return out
}

// HeadingID returns the id attribute of a heading selection.
func HeadingID(h *goquery.Selection) string {
	if h == nil {
		return ""
	}
	id, _ := h.Attr("id")
	return id
}

// FindFirstTableAfter returns the first <table> element that starts strictly
// after node in document order, and false when no table follows.
//
// Panics if doc or node is nil or node is empty: that is a caller bug, not a
// property of the page.
func FindFirstTableAfter(doc *goquery.Document, node *goquery.Selection) (*goquery.Selection, bool) {
	if doc == nil {
		panic("htmldoc: FindFirstTableAfter called with nil document")
	}
	if node == nil || node.Length() == 0 {
		panic("htmldoc: FindFirstTableAfter called with nil node")
	}

	start := node.Get(0)
	seen := false
	var found *html.Node

	walk(doc.Get(0), func(n *html.Node) bool {
		if n == start {
			seen = true
			return true
		}
		if seen && n.Type == html.ElementNode && n.Data == "table" {
			found = n
			return false
		}
		return true
	})

	if found == nil {
		return nil, false
	}
	return doc.FindNodes(found), true
}

// walk visits n and its descendants in pre-order (document order) until visit
// returns false. It reports whether the walk ran to completion.
func walk(n *html.Node, visit func(*html.Node) bool) bool {
	if n == nil {
		return true
	}
	if !visit(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, visit) {
			return false
		}
	}
	return true
}
