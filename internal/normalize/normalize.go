// Package normalize turns fetched markup into bounded, single-spaced plain
// text.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"

	"cvurl/internal/document"
)

// DefaultMaxChars is the size cap applied to every returned text.
const DefaultMaxChars = 12000

// hidden elements never contribute visible text.
var hidden = map[string]bool{
	"script":   true,
	"style":    true,
	"nav":      true,
	"footer":   true,
	"header":   true,
	"noscript": true,
	"template": true,
	"svg":      true,
	"head":     true,
}

var (
	commentRe = regexp.MustCompile(`(?s)<!--.*?(-->|$)`)
	tagRe     = regexp.MustCompile(`<[a-zA-Z!/?][^>]*(>|$)`)
	spaceRe   = regexp.MustCompile(`[ \t\f\v\r\n\p{Zs}]+`)
	blankRe   = regexp.MustCompile(`\n{3,}`)
)

// regions are deleted whole when markup has to be stripped by pattern.
var regions = func() []*regexp.Regexp {
	tags := []string{"script", "style", "nav", "footer", "header", "noscript", "template", "svg"}
	out := make([]*regexp.Regexp, 0, len(tags))
	for _, t := range tags {
		out = append(out, regexp.MustCompile(`(?is)<`+t+`\b[^>]*>.*?</`+t+`\s*>`))
	}
	return out
}()

var entities = strings.NewReplacer(
	"&nbsp;", " ",
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
)

// Document returns the visible text of doc.
func Document(doc document.Document) string {
	if doc == nil {
		return ""
	}
	return Markup(doc.Markup())
}

// Markup returns the visible text of raw HTML (or plain text) as one line.
// It walks the parsed tree first and falls back to region deletion and tag
// stripping when the walk yields nothing. Markup(Markup(x)) == Markup(x).
func Markup(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	if text := visibleText(raw); text != "" {
		return text
	}
	return stripMarkup(raw)
}

// Fragments cleans each fragment and joins the non-empty ones with single
// spaces.
func Fragments(parts []string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = Clean(p, false); p != "" {
			out = append(out, p)
		}
	}
	return Clean(strings.Join(out, " "), false)
}

func visibleText(raw string) string {
	root, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return ""
	}
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if hidden[strings.ToLower(n.Data)] {
				return
			}
		case html.TextNode:
			parts = append(parts, n.Data)
			return
		case html.CommentNode, html.DoctypeNode:
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return Fragments(parts)
}

func stripMarkup(raw string) string {
	s := commentRe.ReplaceAllString(raw, " ")
	for _, re := range regions {
		s = re.ReplaceAllString(s, " ")
	}
	s = tagRe.ReplaceAllString(s, " ")
	s = entities.Replace(s)
	return Clean(s, false)
}

// Clean removes tags and control characters, decodes entities and collapses
// whitespace until the text stops changing. With keepLines, line breaks
// survive, each line is single-spaced and at most one blank line separates
// blocks; otherwise the result is a single line.
func Clean(text string, keepLines bool) string {
	for {
		next := cleanOnce(text, keepLines)
		if next == text {
			return next
		}
		text = next
	}
}

func cleanOnce(text string, keepLines bool) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if !keepLines {
		return collapse(html.UnescapeString(tagRe.ReplaceAllString(stripControl(text, false), " ")))
	}
	lines := strings.Split(stripControl(text, true), "\n")
	for i, line := range lines {
		lines[i] = collapse(html.UnescapeString(tagRe.ReplaceAllString(line, " ")))
	}
	return strings.TrimSpace(blankRe.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
}

func stripControl(s string, keepNewlines bool) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' && keepNewlines:
			return r
		case r == '\t' || r == '\n' || r == '\r':
			return ' '
		case unicode.IsControl(r), r == '\ufffd', r == '\u200b', r == '\ufeff':
			return -1
		}
		return r
	}, s)
}

func collapse(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// Bound truncates text to at most limit runes. A non-positive limit means
// DefaultMaxChars.
func Bound(text string, limit int) string {
	if limit <= 0 {
		limit = DefaultMaxChars
	}
	r := []rune(text)
	if len(r) <= limit {
		return text
	}
	return strings.TrimRightFunc(string(r[:limit]), unicode.IsSpace)
}

// Len returns the length of text in runes.
func Len(text string) int {
	return len([]rune(text))
}
