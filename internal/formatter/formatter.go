// Package formatter renders extraction outcomes and fetch dumps for the
// command line.
package formatter

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"cvurl/internal/pipeline"
)

// Response mirrors the HTTP response body.
type Response struct {
	Text        string `json:"text,omitempty"`
	ProfileType string `json:"profile_type,omitempty"`
	Error       string `json:"error,omitempty"`
	Kind        string `json:"kind,omitempty"`
	Success     bool   `json:"success"`
}

// NewResponse converts out to the response shape.
func NewResponse(out pipeline.Outcome) Response {
	if !out.OK {
		return Response{Error: out.Message, Kind: string(out.Reason)}
	}
	return Response{Text: out.Text, ProfileType: out.ProfileType(), Success: true}
}

// Outcome renders out as text or json. A failed outcome renders as its
// message in text format.
func Outcome(out pipeline.Outcome, format string) (string, error) {
	switch strings.ToLower(format) {
	case "text", "":
		if !out.OK {
			return out.Message, nil
		}
		return out.Text, nil
	case "json":
		b, err := json.MarshalIndent(NewResponse(out), "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return string(b), nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

// InferFormat guesses the output format from a file extension. It returns
// "" for unknown extensions.
func InferFormat(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".md", ".markdown":
		return "markdown"
	case ".json":
		return "json"
	case ".html", ".htm":
		return "html"
	case ".txt":
		return "text"
	default:
		return ""
	}
}
