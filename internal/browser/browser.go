// Package browser wraps a rod-controlled Chrome, either launched locally or
// reached through a remote DevTools endpoint.
package browser

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// ErrNoBrowser means neither a remote endpoint nor a local Chrome binary is
// available. The launcher is never allowed to download one.
var ErrNoBrowser = errors.New("no browser binary or control URL available")

// Config selects how the browser is obtained.
type Config struct {
	// ControlURL is a DevTools websocket of an already running browser.
	// When set, Bin and launch options are ignored.
	ControlURL string
	// Bin is the Chrome executable. Empty means look it up on the host.
	Bin       string
	ProxyURL  string
	Headless  bool
	NoSandbox bool
}

// PageOptions configures a stealth page.
type PageOptions struct {
	UserAgent      string
	AcceptLanguage string
	Width          int
	Height         int
}

// Browser is one browser session. Close releases it.
type Browser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
}

// Locate reports where a browser would come from under cfg: the control URL,
// the configured binary if it exists, or one found on the host.
func Locate(cfg Config) (string, bool) {
	if cfg.ControlURL != "" {
		return cfg.ControlURL, true
	}
	if cfg.Bin != "" {
		if _, err := os.Stat(cfg.Bin); err != nil {
			return "", false
		}
		return cfg.Bin, true
	}
	return launcher.LookPath()
}

// New launches or connects to a browser. ctx bounds the browser's lifetime.
func New(ctx context.Context, cfg Config) (*Browser, error) {
	if cfg.ControlURL != "" {
		return connect(ctx, cfg)
	}

	bin, ok := Locate(cfg)
	if !ok {
		return nil, ErrNoBrowser
	}

	l := launcher.New().
		Context(ctx).
		Bin(bin).
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox).
		Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	if cfg.ProxyURL != "" {
		l = l.Proxy(cfg.ProxyURL)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().ControlURL(u).Context(ctx)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	return &Browser{browser: b, launcher: l}, nil
}

// connect attaches to a shared remote browser through an isolated context so
// that Close only disposes what this session created.
func connect(ctx context.Context, cfg Config) (*Browser, error) {
	b := rod.New().ControlURL(cfg.ControlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	incognito, err := b.Incognito()
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}
	return &Browser{browser: incognito}, nil
}

// NewStealthPage opens a page with automation fingerprints masked and the
// user agent, language and viewport of a desktop browser.
func (b *Browser) NewStealthPage(opts PageOptions) (*rod.Page, error) {
	page, err := stealth.Page(b.browser)
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	if opts.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      opts.UserAgent,
			AcceptLanguage: opts.AcceptLanguage,
		}); err != nil {
			_ = page.Close()
			return nil, fmt.Errorf("failed to set user agent: %w", err)
		}
	}
	_, _ = page.EvalOnNewDocument(`Object.defineProperty(navigator, 'webdriver', {get: () => undefined});`)

	if opts.Width > 0 && opts.Height > 0 {
		if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             opts.Width,
			Height:            opts.Height,
			DeviceScaleFactor: 1,
		}); err != nil {
			_ = page.Close()
			return nil, fmt.Errorf("failed to set viewport: %w", err)
		}
	}
	return page, nil
}

// Close shuts the session down. A launched browser is killed, a remote one
// only loses the context this session created.
func (b *Browser) Close() error {
	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			if b.launcher != nil {
				b.launcher.Kill()
			}
			return err
		}
	}
	if b.launcher != nil {
		b.launcher.Kill()
		b.launcher.Cleanup()
	}
	return nil
}
