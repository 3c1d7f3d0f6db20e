// Package extractor parses professional-profile pages into labeled sections.
package extractor

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"cvurl/internal/document"
	"cvurl/internal/normalize"
)

const (
	// DefaultFallbackChars is the report length below which the
	// unstructured fallback block is collected.
	DefaultFallbackChars = 300

	fallbackItems  = 200
	fallbackMinLen = 4
)

var (
	errNoAncestor = errors.New("heading has no enclosing block")
	columnRe      = regexp.MustCompile(`\s{3,}`)
)

// Extractor builds a Report from a rendered profile page.
type Extractor struct {
	log           *zap.Logger
	fallbackChars int
}

// New returns an Extractor. A non-positive fallbackChars means
// DefaultFallbackChars.
func New(log *zap.Logger, fallbackChars int) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	if fallbackChars <= 0 {
		fallbackChars = DefaultFallbackChars
	}
	return &Extractor{log: log, fallbackChars: fallbackChars}
}

// Extract never fails: selector misses and traversal errors only end the
// attempt they occur in.
func (e *Extractor) Extract(doc document.Document) Report {
	var r Report
	if doc == nil {
		return r
	}

	// used holds the cleaned text of every node a section consumed.
	used := make(map[string]bool)
	for _, f := range fields {
		if v := e.field(doc, f); v != "" {
			used[v] = true
			r.Add(Section{Label: f.label, Items: []string{v}, Hint: Paragraph})
		}
	}
	for _, s := range sections {
		r.Add(Section{Label: s.label, Items: e.section(doc, s, used), Hint: s.hint})
	}

	if normalize.Len(r.String()) < e.fallbackChars {
		r.fallback = e.mirrorText(doc, used)
	}
	return r
}

func (e *Extractor) field(doc document.Document, f field) string {
	for _, sel := range f.selectors {
		var value string
		err := attempt(func() error {
			for _, n := range doc.Select(sel) {
				if value = normalize.Clean(n.Text(), false); value != "" {
					return nil
				}
			}
			return nil
		})
		if err != nil {
			e.log.Debug("Field selector failed",
				zap.Stringer("label", f.label),
				zap.String("selector", sel),
				zap.Error(err),
			)
			continue
		}
		if value != "" {
			return value
		}
	}
	return ""
}

func (e *Extractor) section(doc document.Document, s section, used map[string]bool) []string {
	var items []string
	err := attempt(func() error {
		items = s.collect(doc.Select(fmt.Sprintf("section[data-section=%q] li", s.key)), false, used)
		return nil
	})
	if err != nil {
		e.log.Debug("Structural section match failed", zap.Stringer("label", s.label), zap.Error(err))
	}
	if len(items) > 0 {
		return items
	}

	for _, heading := range s.headings {
		err := attempt(func() error {
			var missed error
			for _, h := range doc.Headings(heading) {
				block := ancestor(h, 2)
				if block == nil {
					missed = errNoAncestor
					continue
				}
				if items = s.collect(block.Select(document.MirrorSelector), true, used); len(items) > 0 {
					return nil
				}
			}
			return missed
		})
		if err != nil {
			e.log.Debug("Heading attempt failed",
				zap.Stringer("label", s.label),
				zap.String("heading", heading),
				zap.Error(err),
			)
		}
		if len(items) > 0 {
			return items
		}
	}
	return nil
}

// collect turns nodes into section items, dropping duplicates. Nodes reached
// from a heading are loose page text, so copies of the heading and fragments
// shorter than minLen are dropped too. Consumed nodes are marked in used.
func (s section) collect(nodes []document.Node, fromHeading bool, used map[string]bool) []string {
	seen := make(map[string]bool)
	var out []string
	for _, n := range nodes {
		if len(out) >= s.limit {
			break
		}
		text := n.Text()
		item := s.item(text)
		if item == "" || seen[item] {
			continue
		}
		if fromHeading {
			if s.isHeading(item) {
				used[normalize.Clean(text, false)] = true
				continue
			}
			if normalize.Len(item) < s.minLen {
				continue
			}
		}
		seen[item] = true
		used[normalize.Clean(text, false)] = true
		out = append(out, item)
	}
	return out
}

func (s section) item(raw string) string {
	if s.hint == BulletList {
		raw = columnRe.ReplaceAllString(raw, " · ")
	}
	return strings.Trim(normalize.Clean(raw, false), " ·")
}

func (s section) isHeading(text string) bool {
	for _, h := range s.headings {
		if strings.EqualFold(text, h) {
			return true
		}
	}
	return false
}

// mirrorText collects the mirror spans no section consumed.
func (e *Extractor) mirrorText(doc document.Document, used map[string]bool) []string {
	var out []string
	err := attempt(func() error {
		for _, n := range doc.Select(document.MirrorSelector) {
			if len(out) >= fallbackItems {
				break
			}
			if t := normalize.Clean(n.Text(), false); normalize.Len(t) >= fallbackMinLen && !used[t] {
				out = append(out, t)
			}
		}
		return nil
	})
	if err != nil {
		e.log.Debug("Fallback text scan failed", zap.Error(err))
	}
	return out
}

func ancestor(n document.Node, levels int) document.Node {
	for i := 0; i < levels && n != nil; i++ {
		n = n.Parent()
	}
	return n
}

// attempt runs fn, turning a panic into an error.
func attempt(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recovered: %v", r)
		}
	}()
	return fn()
}
