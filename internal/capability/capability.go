// Package capability records which fetch tiers this process can use. The set
// is detected once at start-up and never changes afterwards.
package capability

import (
	"strings"

	"cvurl/internal/browser"
)

// Set is the immutable readiness of each fetch tier.
type Set struct {
	StealthReady     bool
	ReaderConfigured bool
	LightInstalled   bool
	RawEnabled       bool
	// BrowserSource is where the stealth tier gets its browser, for
	// diagnostics only.
	BrowserSource string
}

// Options are the inputs to Detect.
type Options struct {
	StealthEnabled bool
	Browser        browser.Config
	ReaderEndpoint string
	LightEnabled   bool
	RawEnabled     bool
}

// Detect probes the host once.
func Detect(opts Options) Set {
	s := Set{
		ReaderConfigured: strings.TrimSpace(opts.ReaderEndpoint) != "",
		LightInstalled:   opts.LightEnabled,
		RawEnabled:       opts.RawEnabled,
	}
	if opts.StealthEnabled {
		s.BrowserSource, s.StealthReady = browser.Locate(opts.Browser)
	}
	return s
}

// Tiers lists the names of the ready tiers in selection order.
func (s Set) Tiers() []string {
	var out []string
	if s.StealthReady {
		out = append(out, "stealth")
	}
	if s.ReaderConfigured {
		out = append(out, "remote_reader")
	}
	if s.LightInstalled {
		out = append(out, "light")
	}
	if s.RawEnabled {
		out = append(out, "raw_socket")
	}
	return out
}

// AnyFetcher reports whether at least one tier can serve requests.
func (s Set) AnyFetcher() bool {
	return s.StealthReady || s.ReaderConfigured || s.LightInstalled || s.RawEnabled
}
