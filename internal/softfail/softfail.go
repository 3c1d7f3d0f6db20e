// Package softfail detects fetches that succeeded at the transport level but
// did not return the content that was asked for.
package softfail

import (
	"strings"

	"cvurl/internal/domain"
	"cvurl/internal/failure"
	"cvurl/internal/fetcher"
	"cvurl/internal/normalize"
)

// Defaults for Thresholds.
const (
	DefaultMinRendered = 150
	DefaultMinPlain    = 200
	DefaultShortBody   = 1000
)

// authWallMarkers are path fragments of sign-in redirects.
var authWallMarkers = []string{"/login", "/signup", "/checkpoint", "/authwall", "/uas/login"}

// signInPrompts mark a body that is only an authentication prompt.
var signInPrompts = []string{
	"sign in",
	"sign-in",
	"signin",
	"log in",
	"login",
	"sign up",
	"sign-up",
	"join now",
	"join to view",
	"create an account",
}

// Thresholds are the minimum text lengths, in runes, for a success.
type Thresholds struct {
	// MinRendered applies to tiers that execute page scripts.
	MinRendered int
	// MinPlain applies to tiers that do not.
	MinPlain int
	// ShortBody is the reader body length below which sign-in prompts
	// count as a login wall.
	ShortBody int
}

// Detector runs the soft-failure checks.
type Detector struct {
	th Thresholds
}

// New returns a Detector. Zero fields take their defaults.
func New(th Thresholds) *Detector {
	if th.MinRendered <= 0 {
		th.MinRendered = DefaultMinRendered
	}
	if th.MinPlain <= 0 {
		th.MinPlain = DefaultMinPlain
	}
	if th.ShortBody <= 0 {
		th.ShortBody = DefaultShortBody
	}
	return &Detector{th: th}
}

// Check runs the pre-extraction checks in order: block status, sign-in
// redirect, sign-in-only reader body.
func (d *Detector) Check(res *fetcher.Result, hint domain.Hint) error {
	switch res.StatusCode {
	case 401, 403, 999:
		return failure.Newf(failure.AccessDenied, "status %d from %s", res.StatusCode, res.Tier)
	}

	if (hint.IsProfileSite || hint.StealthRequired) && authWall(res.FinalURL) {
		return failure.Newf(failure.LoginWallRedirect, "redirected to %s", res.FinalURL)
	}

	if res.Tier == fetcher.TierRemoteReader && normalize.Len(res.Raw) < d.th.ShortBody && signInOnly(res.Raw) {
		return failure.Newf(failure.LoginWallContent, "reader returned a %d-char sign-in prompt", normalize.Len(res.Raw))
	}
	return nil
}

// CheckLength fails with InsufficientContent when text is shorter than the
// threshold for tier.
func (d *Detector) CheckLength(text string, tier fetcher.Tier) error {
	need := d.MinLength(tier)
	if n := normalize.Len(text); n < need {
		return failure.Newf(failure.InsufficientContent, "%d chars from %s, need %d", n, tier, need)
	}
	return nil
}

// MinLength returns the success threshold for tier.
func (d *Detector) MinLength(tier fetcher.Tier) int {
	if tier.Rendering() {
		return d.th.MinRendered
	}
	return d.th.MinPlain
}

func authWall(finalURL string) bool {
	u := strings.ToLower(finalURL)
	for _, m := range authWallMarkers {
		if strings.Contains(u, m) {
			return true
		}
	}
	return false
}

func signInOnly(body string) bool {
	lower := strings.ToLower(body)
	for _, p := range signInPrompts {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
