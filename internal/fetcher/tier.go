package fetcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cvurl/internal/document"
	"cvurl/internal/domain"
)

// Tier identifies a fetch strategy.
type Tier int

const (
	TierLight Tier = iota
	TierStealth
	TierRemoteReader
	TierRawSocket
)

func (t Tier) String() string {
	switch t {
	case TierLight:
		return "light"
	case TierStealth:
		return "stealth"
	case TierRemoteReader:
		return "remote_reader"
	case TierRawSocket:
		return "raw_socket"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// Rendering reports whether the tier executes page scripts before returning
// content.
func (t Tier) Rendering() bool {
	return t == TierStealth || t == TierRemoteReader
}

// Mode biases tier selection for one request.
type Mode string

const (
	// ModeAuto applies the default policy.
	ModeAuto Mode = "auto"
	// ModeFast skips the remote reader for URLs that do not need stealth.
	ModeFast Mode = "fast"
	// ModeStealth treats the URL as bot-protected.
	ModeStealth Mode = "stealth"
)

// ParseMode accepts auto, fast or stealth, case-insensitively. Empty means
// ModeAuto.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeAuto, nil
	case ModeAuto, ModeFast, ModeStealth:
		return m, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want auto, fast or stealth)", s)
	}
}

// Request is one URL to fetch.
type Request struct {
	URL  string
	Hint domain.Hint
}

// Result is what a tier returned. Document is nil when the tier only
// produced raw content.
type Result struct {
	Document   document.Document
	Raw        string
	FinalURL   string
	StatusCode int
	Tier       Tier
}

// Rendering reports whether the result came from a rendering tier.
func (r *Result) Rendering() bool {
	return r.Tier.Rendering()
}

// Strategy fetches a URL one particular way.
type Strategy interface {
	Tier() Tier
	Timeout() time.Duration
	Fetch(ctx context.Context, req Request) (*Result, error)
}
