package formatter

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"cvurl/internal/extractor"
	"cvurl/internal/fetcher"
	"cvurl/internal/normalize"
)

// Dump renders what one fetch tier returned, before any soft-failure check
// or extraction.
type Dump struct {
	result   *fetcher.Result
	level    extractor.Level
	selector string
	elapsed  time.Duration
}

// NewDump wraps res. level and selector pick the part of a parsed document
// to render; results without a document always render their raw body.
func NewDump(res *fetcher.Result, level extractor.Level, selector string, elapsed time.Duration) *Dump {
	return &Dump{result: res, level: level, selector: selector, elapsed: elapsed}
}

// HTML returns the selected markup.
func (d *Dump) HTML() (string, error) {
	if d.result == nil {
		return "", errors.New("result is nil")
	}
	if d.result.Document == nil {
		return d.result.Raw, nil
	}
	out, err := extractor.Snapshot(d.result.Document, d.level, d.selector)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}
	return out, nil
}

// Text returns the visible text of the selected markup.
func (d *Dump) Text() (string, error) {
	html, err := d.HTML()
	if err != nil {
		return "", err
	}
	return normalize.Markup(html), nil
}

// Markdown converts the selected markup, with tables rendered as pipe
// tables. Plain-text results are returned unchanged.
func (d *Dump) Markdown() (string, error) {
	html, err := d.HTML()
	if err != nil {
		return "", err
	}
	if d.result.Document == nil {
		return html, nil
	}

	converter := md.NewConverter("", true, nil)
	converter.AddRules(tableRule)
	markdown, err := converter.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML to Markdown: %w", err)
	}
	return markdown, nil
}

// DumpJSON is the json dump format.
type DumpJSON struct {
	URL      string `json:"url"`
	Tier     string `json:"tier"`
	Status   int    `json:"status"`
	HTML     string `json:"html"`
	Text     string `json:"text"`
	Markdown string `json:"markdown"`
	LoadTime int64  `json:"load_time"`
}

func (d *Dump) JSON() (string, error) {
	html, err := d.HTML()
	if err != nil {
		return "", err
	}
	text, err := d.Text()
	if err != nil {
		return "", err
	}
	markdown, err := d.Markdown()
	if err != nil {
		return "", err
	}

	b, err := json.MarshalIndent(DumpJSON{
		URL:      d.result.FinalURL,
		Tier:     d.result.Tier.String(),
		Status:   d.result.StatusCode,
		HTML:     html,
		Text:     text,
		Markdown: markdown,
		LoadTime: d.elapsed.Milliseconds(),
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(b), nil
}

// Format dispatches on html, text, markdown or json.
func (d *Dump) Format(format string) (string, error) {
	switch strings.ToLower(format) {
	case "html":
		return d.HTML()
	case "text":
		return d.Text()
	case "markdown":
		return d.Markdown()
	case "json":
		return d.JSON()
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

// tableRule renders tables as pipe tables.
var tableRule = md.Rule{
	Filter: []string{"table"},
	Replacement: func(_ string, table *goquery.Selection, _ *md.Options) *string {
		out := tableToMarkdown(table)
		if out == "" {
			return nil
		}
		return md.String("\n\n" + out + "\n\n")
	},
}

func tableToMarkdown(table *goquery.Selection) string {
	// Without a thead the parser puts every row in an implicit tbody.
	headerRow := table.Find("thead tr").First()
	rows := table.Find("tbody tr")
	if headerRow.Length() == 0 {
		headerRow = table.Find("tr").First()
		rows = headerRow.NextAllFiltered("tr")
	}
	headers := cells(headerRow)
	if len(headers) == 0 {
		return ""
	}

	var b strings.Builder
	writeRow(&b, headers)
	sep := make([]string, len(headers))
	for i := range sep {
		sep[i] = "---"
	}
	writeRow(&b, sep)

	rows.Each(func(_ int, row *goquery.Selection) {
		if c := cells(row); len(c) > 0 {
			writeRow(&b, c)
		}
	})
	return strings.TrimRight(b.String(), "\n")
}

func cells(row *goquery.Selection) []string {
	var out []string
	row.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
		out = append(out, normalize.Clean(cell.Text(), false))
	})
	return out
}

func writeRow(b *strings.Builder, cols []string) {
	b.WriteString("| ")
	b.WriteString(strings.Join(cols, " | "))
	b.WriteString(" |\n")
}
