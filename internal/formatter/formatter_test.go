package formatter_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvurl/internal/document"
	"cvurl/internal/extractor"
	"cvurl/internal/failure"
	"cvurl/internal/fetcher"
	"cvurl/internal/formatter"
	"cvurl/internal/pipeline"
)

func TestOutcome(t *testing.T) {
	t.Parallel()

	ok := pipeline.Outcome{OK: true, Text: "NAME:\nJane Doe", Kind: pipeline.StructuredProfile}
	failed := pipeline.Outcome{Reason: failure.Timeout, Message: failure.Message(failure.Timeout)}

	text, err := formatter.Outcome(ok, "text")
	require.NoError(t, err)
	assert.Equal(t, "NAME:\nJane Doe", text)

	text, err = formatter.Outcome(failed, "text")
	require.NoError(t, err)
	assert.Equal(t, failure.Message(failure.Timeout), text)

	raw, err := formatter.Outcome(ok, "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"NAME:\nJane Doe","profile_type":"linkedin","success":true}`, raw)

	raw, err = formatter.Outcome(failed, "JSON")
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &body))
	assert.Equal(t, "timeout", body["kind"])
	assert.Equal(t, false, body["success"])

	_, err = formatter.Outcome(ok, "csv")
	require.Error(t, err)
}

func TestInferFormat(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "markdown", formatter.InferFormat("cv.MD"))
	assert.Equal(t, "json", formatter.InferFormat("/tmp/out.json"))
	assert.Equal(t, "html", formatter.InferFormat("page.htm"))
	assert.Equal(t, "text", formatter.InferFormat("cv.txt"))
	assert.Empty(t, formatter.InferFormat("cv.pdf"))
}

const page = `<html><head><title>t</title></head><body>
<nav>Menu</nav>
<main><h1>Jane Doe</h1>
<table>
  <tr><th>Year</th><th>Role</th></tr>
  <tr><td>2021</td><td>Staff   Engineer</td></tr>
  <tr><td>2017</td><td>Engineer</td></tr>
</table></main>
</body></html>`

func dumpOf(t *testing.T, level extractor.Level, selector string) *formatter.Dump {
	t.Helper()
	doc, err := document.FromHTML(page, "https://example.com/cv", 200)
	require.NoError(t, err)
	res := &fetcher.Result{Document: doc, Raw: page, FinalURL: "https://example.com/cv", StatusCode: 200, Tier: fetcher.TierLight}
	return formatter.NewDump(res, level, selector, 1500*time.Millisecond)
}

func TestDump_Markdown(t *testing.T) {
	t.Parallel()

	out, err := dumpOf(t, extractor.LevelContent, "").Format("markdown")
	require.NoError(t, err)

	assert.Contains(t, out, "# Jane Doe")
	assert.Contains(t, out, "| Year | Role |\n| --- | --- |\n| 2021 | Staff Engineer |\n| 2017 | Engineer |")
	assert.NotContains(t, out, "| Year | Role |\n| --- | --- |\n| Year")
	assert.NotContains(t, out, "Menu")
}

func TestDump_TextAndHTML(t *testing.T) {
	t.Parallel()

	text, err := dumpOf(t, extractor.LevelCSS, "h1").Format("text")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", text)

	html, err := dumpOf(t, extractor.LevelCSS, "h1").Format("html")
	require.NoError(t, err)
	assert.Equal(t, "<h1>Jane Doe</h1>", html)

	_, err = dumpOf(t, extractor.LevelCSS, "").Format("html")
	require.Error(t, err)
}

func TestDump_JSON(t *testing.T) {
	t.Parallel()

	raw, err := dumpOf(t, extractor.LevelCSS, "h1").Format("json")
	require.NoError(t, err)

	var got formatter.DumpJSON
	require.NoError(t, json.Unmarshal([]byte(raw), &got))
	assert.Equal(t, "https://example.com/cv", got.URL)
	assert.Equal(t, "light", got.Tier)
	assert.Equal(t, 200, got.Status)
	assert.Equal(t, int64(1500), got.LoadTime)
	assert.Equal(t, "Jane Doe", got.Text)
	assert.Equal(t, "# Jane Doe", got.Markdown)
}

func TestDump_RawResult(t *testing.T) {
	t.Parallel()

	res := &fetcher.Result{Raw: "Plain reader text", Tier: fetcher.TierRemoteReader}
	d := formatter.NewDump(res, extractor.LevelContent, "", 0)

	md, err := d.Format("markdown")
	require.NoError(t, err)
	assert.Equal(t, "Plain reader text", md)

	text, err := d.Format("text")
	require.NoError(t, err)
	assert.Equal(t, "Plain reader text", text)
}
