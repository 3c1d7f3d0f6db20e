package extractor_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cvurl/internal/document"
	"cvurl/internal/extractor"
)

func parse(t *testing.T, markup string) document.Document {
	t.Helper()
	doc, err := document.FromHTML(markup, "https://www.linkedin.com/in/jane", 200)
	require.NoError(t, err)
	return doc
}

const headingOnlyProfile = `<html><body><main>
<section class="artdeco-card">
  <div class="pvs-header"><h2 class="pvs-header__title"><span aria-hidden="true">Experience</span><span class="visually-hidden">Experience</span></h2></div>
  <ul>
    <li><span aria-hidden="true">Staff Engineer     Acme Corp     2021 - Present</span></li>
    <li><span aria-hidden="true">Senior Engineer
          Globex      2017 - 2021</span></li>
    <li><span aria-hidden="true">Engineer     Initech     2014 - 2017</span></li>
  </ul>
</section>
</main></body></html>`

func TestExtract_HeadingFallback(t *testing.T) {
	t.Parallel()

	report := extractor.New(zap.NewNop(), 0).Extract(parse(t, headingOnlyProfile))

	sections := report.Sections()
	require.Len(t, sections, 1)
	assert.Equal(t, extractor.Experience, sections[0].Label)
	assert.Equal(t, []string{
		"Staff Engineer · Acme Corp · 2021 - Present",
		"Senior Engineer · Globex · 2017 - 2021",
		"Engineer · Initech · 2014 - 2017",
	}, sections[0].Items)

	text := report.String()
	assert.True(t, strings.HasPrefix(text, "EXPERIENCE:\n"))

	var bullets int
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "- ") {
			bullets++
		}
	}
	assert.Equal(t, 3, bullets)
	assert.Empty(t, report.Fallback())
}

func TestExtract_FallbackSkipsConsumedText(t *testing.T) {
	t.Parallel()

	markup := strings.Replace(headingOnlyProfile, "</main>",
		`<div><span aria-hidden="true">Open to platform roles</span></div></main>`, 1)
	report := extractor.New(zap.NewNop(), 0).Extract(parse(t, markup))

	require.Len(t, report.Sections(), 1)
	assert.Equal(t, []string{"Open to platform roles"}, report.Fallback())

	text := report.String()
	assert.Equal(t, 1, strings.Count(text, "Acme Corp"))
	assert.True(t, strings.HasSuffix(text, extractor.FallbackMarker+"\nOpen to platform roles"))
}

const structuredProfile = `<html><body><main>
<h1 class="top-card-layout__title"> Jane   Doe </h1>
<h2 class="top-card-layout__headline">Platform engineer at Acme</h2>
<div class="top-card__subline-item">Berlin, Germany</div>
<section data-section="summary"><div class="core-section-container__content"><p>I build   reliable systems.</p></div></section>
<section data-section="experience"><ul>
  <li>Staff Engineer    Acme    2021</li>
  <li>Engineer    Globex    2018</li>
</ul></section>
<section data-section="skills"><ul><li>Python</li><li>Go</li><li>SQL</li><li>Python</li><li>Kubernetes</li></ul></section>
<section data-section="languages"><ul><li>English</li><li>German</li><li> </li></ul></section>
</main></body></html>`

func TestExtract_StructuredProfile(t *testing.T) {
	t.Parallel()

	report := extractor.New(zap.NewNop(), 0).Extract(parse(t, structuredProfile))

	want := strings.Join([]string{
		"NAME:\nJane Doe",
		"HEADLINE:\nPlatform engineer at Acme",
		"LOCATION:\nBerlin, Germany",
		"ABOUT:\nI build reliable systems.",
		"EXPERIENCE:\n- Staff Engineer · Acme · 2021\n- Engineer · Globex · 2018",
		"SKILLS:\nPython, Go, SQL, Kubernetes",
		"LANGUAGES:\nEnglish, German",
	}, "\n\n")
	assert.Equal(t, want, report.String())
	assert.Empty(t, report.Fallback())
}

func TestExtract_UnstructuredFallback(t *testing.T) {
	t.Parallel()

	doc := parse(t, `<div><span aria-hidden="true">Hi</span><span aria-hidden="true">Some visible text</span>`+
		`<span aria-hidden="true">More text here</span></div>`)
	report := extractor.New(zap.NewNop(), 0).Extract(doc)

	assert.Empty(t, report.Sections())
	assert.Equal(t, extractor.FallbackMarker+"\nSome visible text\nMore text here", report.String())
}

func TestExtract_FallbackIsCapped(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	for i := 0; i < 250; i++ {
		fmt.Fprintf(&b, `<span aria-hidden="true">fragment %d</span>`, i)
	}
	report := extractor.New(zap.NewNop(), 0).Extract(parse(t, "<div>"+b.String()+"</div>"))

	assert.Len(t, report.Fallback(), 200)
	assert.Equal(t, "fragment 0", report.Fallback()[0])
}

func TestExtract_NothingToFind(t *testing.T) {
	t.Parallel()

	report := extractor.New(nil, 0).Extract(parse(t, "<p>nothing useful</p>"))
	assert.True(t, report.Empty())
	assert.Empty(t, report.String())

	assert.True(t, extractor.New(nil, 0).Extract(nil).Empty())
	assert.Empty(t, extractor.New(nil, 0).Extract(nil).Sections())
}

// brokenDoc panics on every query, like a document whose backing page went
// away mid-extraction.
type brokenDoc struct{}

func (brokenDoc) Select(string) []document.Node   { panic("page detached") }
func (brokenDoc) Headings(string) []document.Node { panic("page detached") }
func (brokenDoc) Markup() string                  { return "" }
func (brokenDoc) URL() string                     { return "" }
func (brokenDoc) Status() int                     { return 0 }

func TestExtract_FailuresStayLocal(t *testing.T) {
	t.Parallel()

	var report extractor.Report
	assert.NotPanics(t, func() {
		report = extractor.New(zap.NewNop(), 0).Extract(brokenDoc{})
	})
	assert.True(t, report.Empty())
}

func TestReport_Add(t *testing.T) {
	t.Parallel()

	var r extractor.Report
	assert.True(t, r.Add(extractor.Section{Label: extractor.Skills, Items: []string{"Go"}, Hint: extractor.InlineJoined}))
	assert.True(t, r.Add(extractor.Section{Label: extractor.Name, Items: []string{"Jane"}}))
	assert.False(t, r.Add(extractor.Section{Label: extractor.Name, Items: []string{"Other"}}))
	assert.False(t, r.Add(extractor.Section{Label: extractor.About}))
	assert.True(t, r.Add(extractor.Section{Label: extractor.Experience, Items: []string{"a", "b"}, Hint: extractor.BulletList}))

	assert.Equal(t, "NAME:\nJane\n\nEXPERIENCE:\n- a\n- b\n\nSKILLS:\nGo", r.String())
}
