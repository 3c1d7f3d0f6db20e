// Package failure defines the error taxonomy every extraction failure is
// reduced to before it reaches a caller.
package failure

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind is the stable, user-actionable classification of a failed extraction.
type Kind string

const (
	InvalidInput          Kind = "invalid_input"
	CapabilityUnavailable Kind = "capability_unavailable"
	AccessDenied          Kind = "access_denied"
	LoginWallRedirect     Kind = "login_wall_redirect"
	LoginWallContent      Kind = "login_wall_content"
	Timeout               Kind = "timeout"
	NetworkError          Kind = "network_error"
	InsufficientContent   Kind = "insufficient_content"
	InternalError         Kind = "internal_error"
)

var messages = map[Kind]string{
	InvalidInput: "A valid URL is required. Please provide a full URL starting with https://.",
	CapabilityUnavailable: "This site blocks automated access and the browser renderer needed to read it is not available on this server. " +
		"Please download your CV or profile as a file and upload it directly.",
	AccessDenied: "The website blocked access to this page, even with stealth mode. " +
		"Please download your CV and upload it directly.",
	LoginWallRedirect: "This page redirected to a sign-in wall, so its content cannot be read without logging in. " +
		"Please export the page (for example as PDF) and upload the file instead.",
	LoginWallContent: "This page only shows a sign-in prompt instead of profile content. " +
		"Please export the page (for example as PDF) and upload the file instead.",
	Timeout: "The page took too long to load. Please check the URL and try again, or upload the file directly.",
	NetworkError: "The page could not be loaded (network error). " +
		"Please check the URL and try again, or upload the file directly.",
	InsufficientContent: "Not enough text could be extracted from this page. " +
		"The content may require a login or be JavaScript-only. Please upload the file directly.",
	InternalError: "Something went wrong while reading this page. Please try again or upload the file directly.",
}

// Message returns the static user-facing template for k.
func Message(k Kind) string {
	if m, ok := messages[k]; ok {
		return m
	}
	return messages[InternalError]
}

// HTTPStatus maps k to the status code the HTTP adapter responds with.
// Only InternalError is a server fault.
func HTTPStatus(k Kind) int {
	if k == InternalError {
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}

// Error is a classified failure. Err keeps the underlying engine error for
// diagnostics; it is never shown to callers.
type Error struct {
	Kind Kind
	Err  error
}

// New creates a classified error wrapping err.
func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Newf creates a classified error from a formatted diagnostic.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the classification of err. Deadline errors count as
// Timeout, anything else unclassified is an InternalError.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}
	return InternalError
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
