// Package pipeline runs one URL through classification, fetching,
// soft-failure checks, extraction and bounding, and reduces the result to an
// Outcome.
package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"cvurl/internal/domain"
	"cvurl/internal/extractor"
	"cvurl/internal/failure"
	"cvurl/internal/fetcher"
	"cvurl/internal/normalize"
	"cvurl/internal/softfail"
)

// Fetcher selects and runs fetch tiers. *fetcher.Executor implements it.
type Fetcher interface {
	Select(hint domain.Hint, mode fetcher.Mode) (fetcher.Tier, error)
	FetchTier(ctx context.Context, tier fetcher.Tier, req fetcher.Request) (*fetcher.Result, error)
	Ready(tier fetcher.Tier) bool
}

// Recorder counts outcomes. *metrics.Metrics implements it.
type Recorder interface {
	RecordSuccess(kind string)
	RecordFailure(kind string)
	RecordSoftFailure(kind string)
}

type nopRecorder struct{}

func (nopRecorder) RecordSuccess(string)     {}
func (nopRecorder) RecordFailure(string)     {}
func (nopRecorder) RecordSoftFailure(string) {}

// Request is one extraction.
type Request struct {
	URL  string
	Mode fetcher.Mode
}

// Options wires an Orchestrator. Classifier, Fetcher, Detector and
// Extractor are required.
type Options struct {
	Classifier *domain.Classifier
	Fetcher    Fetcher
	Detector   *softfail.Detector
	Extractor  *extractor.Extractor
	Recorder   Recorder
	Logger     *zap.Logger
	// MaxChars bounds successful text, in runes.
	MaxChars int
	// RawFallback enables the single raw socket retry after a light tier
	// failure on a non-profile site.
	RawFallback bool
}

// Orchestrator is safe for concurrent use; requests share no state.
type Orchestrator struct {
	classifier  *domain.Classifier
	fetcher     Fetcher
	detector    *softfail.Detector
	extractor   *extractor.Extractor
	rec         Recorder
	log         *zap.Logger
	maxChars    int
	rawFallback bool
}

func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		classifier:  opts.Classifier,
		fetcher:     opts.Fetcher,
		detector:    opts.Detector,
		extractor:   opts.Extractor,
		rec:         opts.Recorder,
		log:         opts.Logger,
		maxChars:    opts.MaxChars,
		rawFallback: opts.RawFallback,
	}
	if o.classifier == nil {
		o.classifier = domain.NewClassifier(nil, nil)
	}
	if o.detector == nil {
		o.detector = softfail.New(softfail.Thresholds{})
	}
	if o.rec == nil {
		o.rec = nopRecorder{}
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	if o.extractor == nil {
		o.extractor = extractor.New(o.log, 0)
	}
	if o.maxChars <= 0 {
		o.maxChars = normalize.DefaultMaxChars
	}
	return o
}

// Extract never returns an error: every failure, including panics, is
// reduced to a failed Outcome.
func (o *Orchestrator) Extract(ctx context.Context, req Request) (out Outcome) {
	log := o.log.With(zap.String("url", req.URL))
	tier := ""

	defer func() {
		if r := recover(); r != nil {
			log.Error("Extraction panicked", zap.Any("panic", r), zap.Stack("stack"))
			out = o.fail(log, req.URL, tier, failure.Newf(failure.InternalError, "panic: %v", r))
		}
	}()

	log.Debug("State", zap.String("state", "start"))
	target, err := NormalizeURL(req.URL)
	if err != nil {
		return o.fail(log, req.URL, tier, err)
	}
	mode := req.Mode
	if mode == "" {
		mode = fetcher.ModeAuto
	}

	log.Debug("State", zap.String("state", "classify"))
	hint := o.classifier.Classify(target)
	if mode == fetcher.ModeStealth {
		hint.StealthRequired = true
	}
	log = log.With(
		zap.Bool("stealth_required", hint.StealthRequired),
		zap.Bool("profile_site", hint.IsProfileSite),
		zap.String("mode", string(mode)),
	)

	selected, err := o.fetcher.Select(hint, mode)
	if err != nil {
		return o.fail(log, target, tier, err)
	}
	tier = selected.String()

	freq := fetcher.Request{URL: target, Hint: hint}
	text, kind, err := o.attempt(ctx, log, selected, freq)
	if err != nil && o.retryRaw(selected, hint, err) {
		log.Info("Retrying with raw socket", zap.String("kind", string(failure.KindOf(err))))
		tier = fetcher.TierRawSocket.String()
		text, kind, err = o.attempt(ctx, log, fetcher.TierRawSocket, freq)
	}
	if err != nil {
		return o.fail(log, target, tier, err)
	}

	log.Debug("State", zap.String("state", "done"),
		zap.String("tier", tier),
		zap.String("kind", string(kind)),
		zap.Int("chars", normalize.Len(text)),
	)
	o.rec.RecordSuccess(string(kind))
	return Outcome{OK: true, Text: text, Kind: kind, Tier: tier}
}

// attempt runs one tier and everything after it: FETCH, SOFT_CHECK, EXTRACT
// and BOUND.
func (o *Orchestrator) attempt(ctx context.Context, log *zap.Logger, tier fetcher.Tier, req fetcher.Request) (string, Kind, error) {
	log = log.With(zap.Stringer("tier", tier))

	log.Debug("State", zap.String("state", "fetch"))
	res, err := o.fetcher.FetchTier(ctx, tier, req)
	if err != nil {
		return "", "", err
	}

	log.Debug("State", zap.String("state", "soft_check"), zap.Int("status", res.StatusCode))
	if err := o.detector.Check(res, req.Hint); err != nil {
		o.rec.RecordSoftFailure(string(failure.KindOf(err)))
		return "", "", err
	}

	log.Debug("State", zap.String("state", "extract"))
	text, kind := o.text(res, req.Hint)
	if err := o.detector.CheckLength(text, res.Tier); err != nil {
		o.rec.RecordSoftFailure(string(failure.KindOf(err)))
		return "", "", err
	}

	log.Debug("State", zap.String("state", "bound"), zap.Int("chars", normalize.Len(text)))
	return normalize.Bound(text, o.maxChars), kind, nil
}

// text picks the extraction path: structured sections for rendered profile
// pages, visible text otherwise.
func (o *Orchestrator) text(res *fetcher.Result, hint domain.Hint) (string, Kind) {
	switch {
	case hint.IsProfileSite && res.Document != nil:
		report := o.extractor.Extract(res.Document)
		return normalize.Clean(report.String(), true), StructuredProfile
	case res.Document != nil:
		return normalize.Document(res.Document), GenericText
	default:
		return normalize.Markup(res.Raw), GenericText
	}
}

func (o *Orchestrator) retryRaw(tier fetcher.Tier, hint domain.Hint, err error) bool {
	if !o.rawFallback || tier != fetcher.TierLight || hint.IsProfileSite || hint.StealthRequired {
		return false
	}
	if !o.fetcher.Ready(fetcher.TierRawSocket) {
		return false
	}
	switch failure.KindOf(err) {
	case failure.NetworkError, failure.Timeout, failure.InsufficientContent:
		return true
	}
	return false
}

func (o *Orchestrator) fail(log *zap.Logger, target, tier string, err error) Outcome {
	kind := failure.KindOf(err)
	log.Info("Extraction failed",
		zap.String("kind", string(kind)),
		zap.String("tier", tier),
		zap.Error(err),
	)
	o.rec.RecordFailure(string(kind))
	return Outcome{
		Reason:  kind,
		Message: message(kind, target),
		Tier:    tier,
		Err:     err,
	}
}

// NormalizeURL trims raw, adds https:// when no scheme is given and accepts
// only http(s) URLs with a host.
func NormalizeURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", failure.Newf(failure.InvalidInput, "empty url")
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", failure.New(failure.InvalidInput, fmt.Errorf("parse url: %w", err))
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", failure.Newf(failure.InvalidInput, "unsupported scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return "", failure.Newf(failure.InvalidInput, "url %q has no host", raw)
	}
	return u.String(), nil
}
