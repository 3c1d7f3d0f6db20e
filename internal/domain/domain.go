// Package domain decides, from the URL alone, how hard a page is to fetch
// and whether it should be parsed as a structured profile.
package domain

import "strings"

// Hint is the fetch-strategy hint for one URL.
type Hint struct {
	StealthRequired bool
	IsProfileSite   bool
}

// DefaultStealthDomains need a rendering, bot-evading fetch.
var DefaultStealthDomains = []string{
	"linkedin.com",
	"glassdoor.com",
	"indeed.com",
	"ziprecruiter.com",
	"monster.com",
}

// DefaultProfileDomains get structured section extraction.
var DefaultProfileDomains = []string{
	"linkedin.com",
}

// Platform describes a known site and how a user can export their data
// from it when automatic extraction fails.
type Platform struct {
	Match     string
	Name      string
	ExportTip string
}

var platforms = []Platform{
	{
		Match:     "linkedin.com",
		Name:      "LinkedIn",
		ExportTip: `On LinkedIn, open your profile, click "More" then "Save to PDF", and upload that PDF.`,
	},
	{
		Match:     "indeed.com/resume",
		Name:      "Indeed",
		ExportTip: "Export your résumé as PDF from Indeed settings and upload it directly.",
	},
	{
		Match:     "glassdoor.com",
		Name:      "Glassdoor",
		ExportTip: "Download your résumé as PDF from Glassdoor and upload it directly.",
	},
}

// Classifier matches URLs against configurable domain lists.
type Classifier struct {
	stealth []string
	profile []string
}

// NewClassifier builds a Classifier. Nil lists fall back to the defaults.
func NewClassifier(stealth, profile []string) *Classifier {
	if stealth == nil {
		stealth = DefaultStealthDomains
	}
	if profile == nil {
		profile = DefaultProfileDomains
	}
	return &Classifier{
		stealth: lowerAll(stealth),
		profile: lowerAll(profile),
	}
}

// Classify returns the hint for rawURL. It performs no I/O and never fails.
func (c *Classifier) Classify(rawURL string) Hint {
	u := strings.ToLower(rawURL)
	return Hint{
		StealthRequired: containsAny(u, c.stealth),
		IsProfileSite:   containsAny(u, c.profile),
	}
}

// PlatformFor returns the known platform rawURL belongs to, if any.
func PlatformFor(rawURL string) (Platform, bool) {
	u := strings.ToLower(rawURL)
	for _, p := range platforms {
		if strings.Contains(u, p.Match) {
			return p, true
		}
	}
	return Platform{}, false
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
