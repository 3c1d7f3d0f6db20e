package fetcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"cvurl/internal/browser"
	"cvurl/internal/document"
	"cvurl/internal/failure"
)

const (
	// DefaultUserAgent is a current desktop Chrome.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	acceptLanguage   = "en-US,en;q=0.9"

	pollInterval = 500 * time.Millisecond
	idleWindow   = 500 * time.Millisecond
	// defaultSettle bounds the post-load waits when no settle is configured.
	defaultSettle = 8 * time.Second
)

// idleExcluded are resource types that never count against network idle.
// Streaming types stay open for the page's lifetime.
var idleExcluded = []proto.NetworkResourceType{
	proto.NetworkResourceTypeImage,
	proto.NetworkResourceTypeMedia,
	proto.NetworkResourceTypeFont,
	proto.NetworkResourceTypeWebSocket,
	proto.NetworkResourceTypeEventSource,
}

// challengeMarkers appear in anti-bot interstitials that resolve by
// themselves after a few seconds.
var challengeMarkers = []string{
	"just a moment",
	"checking your browser",
	"challenge-platform",
	"cf-chl-",
	"please wait...",
}

// StealthConfig configures the stealth tier.
type StealthConfig struct {
	Browser   browser.Config
	Timeout   time.Duration
	UserAgent string
	// Settle bounds each wait after load: network idle, profile content and
	// anti-bot interstitials. Zero skips the last two; network idle then
	// gets defaultSettle.
	Settle time.Duration
	// WaitSelector marks profile content; it is awaited on profile sites.
	WaitSelector string
}

// Stealth renders pages in a masked headless browser.
type Stealth struct {
	cfg StealthConfig
	log *zap.Logger
}

// NewStealth creates the stealth tier.
func NewStealth(cfg StealthConfig, log *zap.Logger) *Stealth {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Stealth{cfg: cfg, log: log}
}

func (s *Stealth) Tier() Tier { return TierStealth }

func (s *Stealth) Timeout() time.Duration { return s.cfg.Timeout }

// Fetch renders req.URL and snapshots the resulting document. Everything is
// read while the browser is open; the returned Result holds no live page.
func (s *Stealth) Fetch(ctx context.Context, req Request) (*Result, error) {
	b, err := browser.New(ctx, s.cfg.Browser)
	if err != nil {
		if errors.Is(err, browser.ErrNoBrowser) {
			return nil, failure.New(failure.CapabilityUnavailable, err)
		}
		return nil, fmt.Errorf("failed to create browser: %w", err)
	}
	defer func() {
		if cerr := b.Close(); cerr != nil {
			s.log.Debug("Browser close failed", zap.Error(cerr))
		}
	}()

	page, err := b.NewStealthPage(browser.PageOptions{
		UserAgent:      s.cfg.UserAgent,
		AcceptLanguage: acceptLanguage,
		Width:          1920,
		Height:         1080,
	})
	if err != nil {
		return nil, err
	}
	defer page.Close()
	page = page.Context(ctx)

	status := watchDocumentStatus(ctx, page)

	if err := page.Navigate(req.URL); err != nil {
		var nav *rod.NavigationError
		if errors.As(err, &nav) {
			return nil, failure.New(failure.NetworkError, err)
		}
		return nil, fmt.Errorf("failed to navigate: %w", err)
	}

	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("failed to wait for page load: %w", err)
	}

	idle := page.Timeout(s.settle())
	idle.WaitRequestIdle(idleWindow, nil, nil, idleExcluded)()
	idle.CancelTimeout()

	if req.Hint.IsProfileSite && s.cfg.WaitSelector != "" && s.cfg.Settle > 0 {
		if _, err := page.Timeout(s.cfg.Settle).Element(s.cfg.WaitSelector); err != nil {
			s.log.Debug("Profile content selector did not appear",
				zap.String("selector", s.cfg.WaitSelector),
				zap.Error(err),
			)
		}
	}

	s.waitChallenge(ctx, page)

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("failed to read page HTML: %w", err)
	}
	info, err := page.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to read page info: %w", err)
	}

	code := status()
	doc, err := document.FromHTML(html, info.URL, code)
	if err != nil {
		return nil, err
	}
	return &Result{
		Document:   doc,
		Raw:        html,
		FinalURL:   info.URL,
		StatusCode: code,
	}, nil
}

func (s *Stealth) settle() time.Duration {
	if s.cfg.Settle > 0 {
		return s.cfg.Settle
	}
	return defaultSettle
}

// waitChallenge polls until no interstitial marker is left or the settle
// budget is spent.
func (s *Stealth) waitChallenge(ctx context.Context, page *rod.Page) {
	deadline := time.Now().Add(s.cfg.Settle)
	for {
		html, err := page.HTML()
		if err != nil || !underChallenge(html) {
			return
		}
		if time.Now().After(deadline) {
			s.log.Debug("Interstitial still present after settle budget")
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(pollInterval):
		}
	}
}

func underChallenge(html string) bool {
	lower := strings.ToLower(html)
	for _, m := range challengeMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// watchDocumentStatus records the status of the last main-frame document
// response. It must be called before navigation.
func watchDocumentStatus(ctx context.Context, page *rod.Page) func() int {
	var (
		mu     sync.Mutex
		status int
	)
	listen, stop := context.WithCancel(ctx)
	wait := page.Context(listen).EachEvent(func(e *proto.NetworkResponseReceived) {
		if e.Type != proto.NetworkResourceTypeDocument || e.Response == nil {
			return
		}
		if e.FrameID != "" && e.FrameID != page.FrameID {
			return
		}
		mu.Lock()
		status = e.Response.Status
		mu.Unlock()
	})
	go wait()

	return func() int {
		stop()
		mu.Lock()
		defer mu.Unlock()
		return status
	}
}
