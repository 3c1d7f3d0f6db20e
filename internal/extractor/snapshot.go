package extractor

import (
	"fmt"
	"strings"

	"cvurl/internal/document"
)

// Level selects how much of a page Snapshot returns.
type Level string

const (
	LevelFull    Level = "full"    // entire document markup
	LevelBody    Level = "body"    // <body> element
	LevelContent Level = "content" // main content block, falling back to body
	LevelCSS     Level = "css"     // elements matching a selector
)

// Snapshot returns markup from doc at the requested level. selector is only
// used with LevelCSS.
func Snapshot(doc document.Document, level Level, selector string) (string, error) {
	switch level {
	case LevelFull, "":
		return doc.Markup(), nil
	case LevelBody:
		return joinHTML(doc.Select("body")), nil
	case LevelContent:
		for _, sel := range contentSelectors {
			nodes := doc.Select(sel)
			if len(nodes) == 0 {
				continue
			}
			if h := nodes[0].HTML(); strings.TrimSpace(h) != "" {
				return h, nil
			}
		}
		return joinHTML(doc.Select("body")), nil
	case LevelCSS:
		if strings.TrimSpace(selector) == "" {
			return "", fmt.Errorf("level %q needs a selector", level)
		}
		return joinHTML(doc.Select(selector)), nil
	default:
		return "", fmt.Errorf("unsupported level: %s", level)
	}
}

func joinHTML(nodes []document.Node) string {
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		parts = append(parts, n.HTML())
	}
	return strings.Join(parts, "\n")
}
