package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cvurl/internal/capability"
	"cvurl/internal/document"
	"cvurl/internal/domain"
	"cvurl/internal/failure"
	"cvurl/internal/fetcher"
	"cvurl/internal/metrics"
	"cvurl/internal/pipeline"
)

// stubTier serves canned results for one tier.
type stubTier struct {
	tier  fetcher.Tier
	calls atomic.Int32
	fetch func(req fetcher.Request) (*fetcher.Result, error)
}

func (s *stubTier) Tier() fetcher.Tier { return s.tier }

func (s *stubTier) Timeout() time.Duration { return time.Second }

func (s *stubTier) Fetch(_ context.Context, req fetcher.Request) (*fetcher.Result, error) {
	s.calls.Add(1)
	return s.fetch(req)
}

func htmlTier(t *testing.T, tier fetcher.Tier, status int, markup string) *stubTier {
	t.Helper()
	return &stubTier{tier: tier, fetch: func(req fetcher.Request) (*fetcher.Result, error) {
		doc, err := document.FromHTML(markup, req.URL, status)
		if err != nil {
			return nil, err
		}
		return &fetcher.Result{Document: doc, Raw: markup, FinalURL: req.URL, StatusCode: status}, nil
	}}
}

func rawTier(tier fetcher.Tier, body string) *stubTier {
	return &stubTier{tier: tier, fetch: func(req fetcher.Request) (*fetcher.Result, error) {
		return &fetcher.Result{Raw: body, FinalURL: req.URL, StatusCode: 200}, nil
	}}
}

func failingTier(tier fetcher.Tier, err error) *stubTier {
	return &stubTier{tier: tier, fetch: func(fetcher.Request) (*fetcher.Result, error) {
		return nil, err
	}}
}

type setup struct {
	caps        capability.Set
	classifier  *domain.Classifier
	rawFallback bool
	recorder    pipeline.Recorder
	maxChars    int
}

func newOrchestrator(s setup, strategies ...fetcher.Strategy) *pipeline.Orchestrator {
	exec := fetcher.NewExecutor(s.caps, zap.NewNop(), nil, strategies...)
	return pipeline.New(pipeline.Options{
		Classifier:  s.classifier,
		Fetcher:     exec,
		Recorder:    s.recorder,
		Logger:      zap.NewNop(),
		MaxChars:    s.maxChars,
		RawFallback: s.rawFallback,
	})
}

var article = `<html><head><title>Jane</title><script>var x = 1;</script></head><body>
<nav>Home About Contact</nav>
<main><h1>Jane Doe</h1><p>` + strings.Repeat("Backend engineer with ten years of distributed systems experience. ", 6) + `</p></main>
<footer>Copyright</footer></body></html>`

const profile = `<html><body><main>
<h1 class="top-card-layout__title"> Jane   Doe </h1>
<h2 class="top-card-layout__headline">Platform engineer at Acme</h2>
<div class="top-card__subline-item">Berlin, Germany</div>
<section data-section="summary"><div class="core-section-container__content"><p>I build   reliable systems.</p></div></section>
<section data-section="experience"><ul>
  <li>Staff Engineer    Acme    2021</li>
  <li>Engineer    Globex    2018</li>
</ul></section>
<section data-section="skills"><ul><li>Python</li><li>SQL</li><li>Kubernetes</li></ul></section>
</main></body></html>`

func TestExtract_GenericPage(t *testing.T) {
	t.Parallel()

	light := htmlTier(t, fetcher.TierLight, 200, article)
	o := newOrchestrator(setup{caps: capability.Set{LightInstalled: true}}, light)

	out := o.Extract(context.Background(), pipeline.Request{URL: "example.com/cv"})

	require.True(t, out.OK, out.Message)
	assert.Equal(t, pipeline.GenericText, out.Kind)
	assert.Equal(t, "generic", out.ProfileType())
	assert.Equal(t, "light", out.Tier)
	assert.True(t, strings.HasPrefix(out.Text, "Jane Doe Backend engineer"))
	assert.NotContains(t, out.Text, "\n")
	assert.NotContains(t, out.Text, "Copyright")
	assert.NotContains(t, out.Text, "var x")
}

func TestExtract_StructuredProfile(t *testing.T) {
	t.Parallel()

	stealth := htmlTier(t, fetcher.TierStealth, 200, profile)
	o := newOrchestrator(setup{caps: capability.Set{StealthReady: true, LightInstalled: true}}, stealth)

	out := o.Extract(context.Background(), pipeline.Request{URL: "https://www.linkedin.com/in/jane"})

	require.True(t, out.OK, out.Message)
	assert.Equal(t, pipeline.StructuredProfile, out.Kind)
	assert.Equal(t, "linkedin", out.ProfileType())
	assert.Equal(t, "stealth", out.Tier)
	assert.True(t, strings.HasPrefix(out.Text, "NAME:\nJane Doe\n\nHEADLINE:"))
	assert.Contains(t, out.Text, "EXPERIENCE:\n- Staff Engineer · Acme · 2021\n- Engineer · Globex · 2018")
	assert.Contains(t, out.Text, "SKILLS:\nPython, SQL, Kubernetes")
}

func TestExtract_ProfileWithoutRenderer(t *testing.T) {
	t.Parallel()

	light := htmlTier(t, fetcher.TierLight, 200, article)
	o := newOrchestrator(setup{caps: capability.Set{LightInstalled: true, RawEnabled: true}}, light)

	out := o.Extract(context.Background(), pipeline.Request{URL: "https://linkedin.com/in/jane"})

	require.False(t, out.OK)
	assert.Equal(t, failure.CapabilityUnavailable, out.Reason)
	assert.Contains(t, out.Message, "Save to PDF")
	assert.Zero(t, light.calls.Load())
}

func TestExtract_SoftFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		url   string
		tier  *stubTier
		caps  capability.Set
		wants failure.Kind
	}{
		{
			name:  "block status",
			url:   "https://www.linkedin.com/in/jane",
			tier:  htmlTier(t, fetcher.TierStealth, 999, profile),
			caps:  capability.Set{StealthReady: true},
			wants: failure.AccessDenied,
		},
		{
			name: "sign-in redirect",
			url:  "https://www.linkedin.com/in/jane",
			tier: &stubTier{tier: fetcher.TierStealth, fetch: func(fetcher.Request) (*fetcher.Result, error) {
				doc, err := document.FromHTML(profile, "https://www.linkedin.com/authwall?trk=x", 200)
				return &fetcher.Result{Document: doc, FinalURL: "https://www.linkedin.com/authwall?trk=x", StatusCode: 200}, err
			}},
			caps:  capability.Set{StealthReady: true},
			wants: failure.LoginWallRedirect,
		},
		{
			name:  "sign-in prompt from the reader",
			url:   "https://www.linkedin.com/in/jane",
			tier:  rawTier(fetcher.TierRemoteReader, "Sign in to view Jane's full profile. Join now."),
			caps:  capability.Set{ReaderConfigured: true},
			wants: failure.LoginWallContent,
		},
		{
			name:  "profile without sections",
			url:   "https://www.linkedin.com/in/jane",
			tier:  htmlTier(t, fetcher.TierStealth, 200, "<html><body><p>Loading</p></body></html>"),
			caps:  capability.Set{StealthReady: true},
			wants: failure.InsufficientContent,
		},
		{
			name:  "short generic page",
			url:   "https://example.com/about",
			tier:  htmlTier(t, fetcher.TierLight, 200, "<html><body><p>Nothing much here.</p></body></html>"),
			caps:  capability.Set{LightInstalled: true},
			wants: failure.InsufficientContent,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			o := newOrchestrator(setup{caps: tc.caps}, tc.tier)
			out := o.Extract(context.Background(), pipeline.Request{URL: tc.url})

			require.False(t, out.OK)
			assert.Equal(t, tc.wants, out.Reason)
			assert.True(t, strings.HasPrefix(out.Message, failure.Message(tc.wants)))
			assert.Empty(t, out.Text)
		})
	}
}

func TestExtract_RawRetryAfterLightFailure(t *testing.T) {
	t.Parallel()

	light := failingTier(fetcher.TierLight, errors.New("dial tcp: connection refused"))
	raw := rawTier(fetcher.TierRawSocket, article)
	o := newOrchestrator(setup{
		caps:        capability.Set{LightInstalled: true, RawEnabled: true},
		rawFallback: true,
	}, light, raw)

	out := o.Extract(context.Background(), pipeline.Request{URL: "https://example.com/cv"})

	require.True(t, out.OK, out.Message)
	assert.Equal(t, "raw_socket", out.Tier)
	assert.Equal(t, int32(1), light.calls.Load())
	assert.Equal(t, int32(1), raw.calls.Load())
	assert.Contains(t, out.Text, "Backend engineer")
}

func TestExtract_RawRetryHappensOnce(t *testing.T) {
	t.Parallel()

	light := htmlTier(t, fetcher.TierLight, 200, "<p>short</p>")
	raw := rawTier(fetcher.TierRawSocket, "<p>also short</p>")
	o := newOrchestrator(setup{
		caps:        capability.Set{LightInstalled: true, RawEnabled: true},
		rawFallback: true,
	}, light, raw)

	out := o.Extract(context.Background(), pipeline.Request{URL: "https://example.com/cv"})

	require.False(t, out.OK)
	assert.Equal(t, failure.InsufficientContent, out.Reason)
	assert.Equal(t, "raw_socket", out.Tier)
	assert.Equal(t, int32(1), light.calls.Load())
	assert.Equal(t, int32(1), raw.calls.Load())
}

func TestExtract_NoRawRetry(t *testing.T) {
	t.Parallel()

	t.Run("profile site", func(t *testing.T) {
		t.Parallel()

		light := htmlTier(t, fetcher.TierLight, 200, "<p>short</p>")
		raw := rawTier(fetcher.TierRawSocket, article)
		o := newOrchestrator(setup{
			caps:        capability.Set{LightInstalled: true, RawEnabled: true},
			classifier:  domain.NewClassifier([]string{}, []string{"profiles.example"}),
			rawFallback: true,
		}, light, raw)

		out := o.Extract(context.Background(), pipeline.Request{URL: "https://profiles.example/jane"})

		require.False(t, out.OK)
		assert.Zero(t, raw.calls.Load())
	})

	t.Run("access denied", func(t *testing.T) {
		t.Parallel()

		light := htmlTier(t, fetcher.TierLight, 403, article)
		raw := rawTier(fetcher.TierRawSocket, article)
		o := newOrchestrator(setup{
			caps:        capability.Set{LightInstalled: true, RawEnabled: true},
			rawFallback: true,
		}, light, raw)

		out := o.Extract(context.Background(), pipeline.Request{URL: "https://example.com/cv"})

		require.False(t, out.OK)
		assert.Equal(t, failure.AccessDenied, out.Reason)
		assert.Zero(t, raw.calls.Load())
	})

	t.Run("disabled", func(t *testing.T) {
		t.Parallel()

		light := failingTier(fetcher.TierLight, errors.New("connection reset by peer"))
		raw := rawTier(fetcher.TierRawSocket, article)
		o := newOrchestrator(setup{caps: capability.Set{LightInstalled: true, RawEnabled: true}}, light, raw)

		out := o.Extract(context.Background(), pipeline.Request{URL: "https://example.com/cv"})

		require.False(t, out.OK)
		assert.Equal(t, failure.NetworkError, out.Reason)
		assert.Zero(t, raw.calls.Load())
	})
}

func TestExtract_BoundsText(t *testing.T) {
	t.Parallel()

	long := "<p>" + strings.Repeat("word ", 5000) + "</p>"
	light := htmlTier(t, fetcher.TierLight, 200, long)
	o := newOrchestrator(setup{caps: capability.Set{LightInstalled: true}, maxChars: 1000}, light)

	out := o.Extract(context.Background(), pipeline.Request{URL: "https://example.com/cv"})

	require.True(t, out.OK)
	assert.LessOrEqual(t, len([]rune(out.Text)), 1000)
	assert.GreaterOrEqual(t, len([]rune(out.Text)), 995)
}

func TestExtract_ModeStealthForcesRenderer(t *testing.T) {
	t.Parallel()

	light := htmlTier(t, fetcher.TierLight, 200, article)
	o := newOrchestrator(setup{caps: capability.Set{LightInstalled: true}}, light)

	out := o.Extract(context.Background(), pipeline.Request{URL: "https://example.com/cv", Mode: fetcher.ModeStealth})

	require.False(t, out.OK)
	assert.Equal(t, failure.CapabilityUnavailable, out.Reason)
	assert.Zero(t, light.calls.Load())
}

func TestExtract_InvalidInput(t *testing.T) {
	t.Parallel()

	light := htmlTier(t, fetcher.TierLight, 200, article)
	o := newOrchestrator(setup{caps: capability.Set{LightInstalled: true}}, light)

	for _, raw := range []string{"", "   ", "ftp://example.com/cv", "https://"} {
		out := o.Extract(context.Background(), pipeline.Request{URL: raw})
		assert.False(t, out.OK, raw)
		assert.Equal(t, failure.InvalidInput, out.Reason, raw)
		assert.Equal(t, failure.Message(failure.InvalidInput), out.Message, raw)
	}
	assert.Zero(t, light.calls.Load())
}

type panickingRecorder struct{}

func (panickingRecorder) RecordSuccess(string)     { panic("recorder broke") }
func (panickingRecorder) RecordFailure(string)     {}
func (panickingRecorder) RecordSoftFailure(string) {}

func TestExtract_RecoversPanics(t *testing.T) {
	t.Parallel()

	light := htmlTier(t, fetcher.TierLight, 200, article)
	o := newOrchestrator(setup{caps: capability.Set{LightInstalled: true}, recorder: panickingRecorder{}}, light)

	var out pipeline.Outcome
	require.NotPanics(t, func() {
		out = o.Extract(context.Background(), pipeline.Request{URL: "https://example.com/cv"})
	})
	assert.False(t, out.OK)
	assert.Equal(t, failure.InternalError, out.Reason)
}

func TestExtract_RecordsMetrics(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	light := htmlTier(t, fetcher.TierLight, 200, article)
	o := newOrchestrator(setup{caps: capability.Set{LightInstalled: true}, recorder: m}, light)

	o.Extract(context.Background(), pipeline.Request{URL: "https://example.com/cv"})
	o.Extract(context.Background(), pipeline.Request{URL: "https://linkedin.com/in/jane"})

	assert.InDelta(t, 1, testutil.ToFloat64(m.Extractions.WithLabelValues("success", "generic")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Extractions.WithLabelValues("failure", "capability_unavailable")), 0)
}

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	got, err := pipeline.NormalizeURL("  linkedin.com/in/jane ")
	require.NoError(t, err)
	assert.Equal(t, "https://linkedin.com/in/jane", got)

	got, err = pipeline.NormalizeURL("HTTP://Example.com/a?b=c")
	require.NoError(t, err)
	assert.Equal(t, "http://Example.com/a?b=c", got)

	_, err = pipeline.NormalizeURL("mailto://x")
	assert.True(t, failure.Is(err, failure.InvalidInput))
}
