package pipeline

import (
	"cvurl/internal/domain"
	"cvurl/internal/failure"
)

// Kind tells how successful text was produced.
type Kind string

const (
	StructuredProfile Kind = "structured"
	GenericText       Kind = "generic"
)

// Outcome is the result of one extraction. When OK is set, Text and Kind
// are valid; otherwise Reason and Message are.
type Outcome struct {
	OK   bool
	Text string
	Kind Kind

	Reason  failure.Kind
	Message string

	// Tier served the request, or was the last one tried. For logs only.
	Tier string
	// Err is the classified cause. It is never shown to callers.
	Err error
}

// ProfileType is the profile_type value reported to clients.
func (o Outcome) ProfileType() string {
	if o.Kind == StructuredProfile {
		return "linkedin"
	}
	return "generic"
}

// tipKinds are the failures a manual export can work around.
var tipKinds = map[failure.Kind]bool{
	failure.CapabilityUnavailable: true,
	failure.AccessDenied:          true,
	failure.LoginWallRedirect:     true,
	failure.LoginWallContent:      true,
	failure.InsufficientContent:   true,
}

// message returns the template for kind, followed by the export tip of the
// platform target belongs to, when one helps.
func message(kind failure.Kind, target string) string {
	msg := failure.Message(kind)
	if !tipKinds[kind] {
		return msg
	}
	if p, ok := domain.PlatformFor(target); ok {
		msg += " " + p.ExportTip
	}
	return msg
}
