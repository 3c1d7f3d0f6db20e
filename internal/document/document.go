// Package document abstracts a fetched page behind the few capabilities the
// extractors need, so the rendering backend can change without touching
// extraction logic.
package document

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Document is a fetched, possibly rendered, page.
type Document interface {
	// Select returns the nodes matching a CSS selector, in document order.
	Select(selector string) []Node
	// Headings returns heading nodes whose text equals text, ignoring case
	// and whitespace differences.
	Headings(text string) []Node
	// Markup returns the page's HTML.
	Markup() string
	// URL returns the final navigated URL.
	URL() string
	// Status returns the HTTP status of the main document, 0 when unknown.
	Status() int
}

// Node is one element of a Document.
type Node interface {
	// Text returns the node's text content with its original whitespace.
	Text() string
	// HTML returns the node's outer markup.
	HTML() string
	// Parent returns the parent element or nil at the root.
	Parent() Node
	// Select returns descendants matching a CSS selector.
	Select(selector string) []Node
}

// MirrorSelector matches the spans that carry the visible copy of a text
// when a layout duplicates it for assistive technology.
const MirrorSelector = `span[aria-hidden="true"]`

const headingSelector = "h1, h2, h3, h4, h5, h6, [role='heading']"

// HTMLDocument is a Document backed by a parsed HTML snapshot.
type HTMLDocument struct {
	doc    *goquery.Document
	markup string
	url    string
	status int
}

// FromHTML parses markup into a Document.
func FromHTML(markup, finalURL string, status int) (*HTMLDocument, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &HTMLDocument{
		doc:    doc,
		markup: markup,
		url:    finalURL,
		status: status,
	}, nil
}

func (d *HTMLDocument) Select(selector string) []Node {
	return wrap(d.doc.Find(selector))
}

func (d *HTMLDocument) Headings(text string) []Node {
	want := fold(text)
	if want == "" {
		return nil
	}
	var out []Node
	d.doc.Find(headingSelector).Each(func(_ int, s *goquery.Selection) {
		if fold(s.Text()) == want || fold(s.Find(MirrorSelector).First().Text()) == want {
			out = append(out, node{sel: s})
		}
	})
	return out
}

func (d *HTMLDocument) Markup() string { return d.markup }

func (d *HTMLDocument) URL() string { return d.url }

func (d *HTMLDocument) Status() int { return d.status }

type node struct {
	sel *goquery.Selection
}

func (n node) Text() string {
	return n.sel.Text()
}

func (n node) HTML() string {
	h, err := goquery.OuterHtml(n.sel)
	if err != nil {
		return ""
	}
	return h
}

func (n node) Parent() Node {
	p := n.sel.Parent()
	if p.Length() == 0 {
		return nil
	}
	return node{sel: p}
}

func (n node) Select(selector string) []Node {
	return wrap(n.sel.Find(selector))
}

func wrap(s *goquery.Selection) []Node {
	out := make([]Node, 0, s.Length())
	s.Each(func(_ int, item *goquery.Selection) {
		out = append(out, node{sel: item})
	})
	return out
}

func fold(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
