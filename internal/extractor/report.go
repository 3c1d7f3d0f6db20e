package extractor

import "strings"

// Label names a profile section. Labels are declared in report order.
type Label int

const (
	Name Label = iota
	Headline
	Location
	About
	Experience
	Education
	Skills
	Certifications
	Languages
	Projects
	Volunteer
)

var labelNames = [...]string{
	Name:           "NAME",
	Headline:       "HEADLINE",
	Location:       "LOCATION",
	About:          "ABOUT",
	Experience:     "EXPERIENCE",
	Education:      "EDUCATION",
	Skills:         "SKILLS",
	Certifications: "CERTIFICATIONS",
	Languages:      "LANGUAGES",
	Projects:       "PROJECTS",
	Volunteer:      "VOLUNTEER",
}

func (l Label) String() string {
	if l < 0 || int(l) >= len(labelNames) {
		return "UNKNOWN"
	}
	return labelNames[l]
}

// RenderHint says how a section's items are laid out in text form.
type RenderHint int

const (
	Paragraph RenderHint = iota
	BulletList
	InlineJoined
)

// FallbackMarker introduces the unstructured block emitted when no section
// heuristic produced enough text.
const FallbackMarker = "PROFILE TEXT (unstructured):"

// Section is one labeled block of a profile.
type Section struct {
	Label Label
	Items []string
	Hint  RenderHint
}

func (s Section) String() string {
	var b strings.Builder
	b.WriteString(s.Label.String())
	b.WriteString(":\n")
	switch s.Hint {
	case BulletList:
		for i, item := range s.Items {
			if i > 0 {
				b.WriteByte('\n')
			}
			b.WriteString("- ")
			b.WriteString(item)
		}
	case InlineJoined:
		b.WriteString(strings.Join(s.Items, ", "))
	default:
		b.WriteString(strings.Join(s.Items, "\n"))
	}
	return b.String()
}

// Report is a profile's sections in fixed label order plus an optional
// unstructured fallback block.
type Report struct {
	sections []Section
	fallback []string
}

// Add inserts s at its label's position. Empty sections and labels already
// present are ignored. It reports whether s was added.
func (r *Report) Add(s Section) bool {
	if len(s.Items) == 0 || r.Has(s.Label) {
		return false
	}
	at := len(r.sections)
	for i, existing := range r.sections {
		if existing.Label > s.Label {
			at = i
			break
		}
	}
	r.sections = append(r.sections, Section{})
	copy(r.sections[at+1:], r.sections[at:])
	r.sections[at] = s
	return true
}

// Has reports whether a section with label l is present.
func (r Report) Has(l Label) bool {
	for _, s := range r.sections {
		if s.Label == l {
			return true
		}
	}
	return false
}

// Sections returns the sections in report order.
func (r Report) Sections() []Section {
	return append([]Section(nil), r.sections...)
}

// Fallback returns the unstructured fragments, if any were collected.
func (r Report) Fallback() []string {
	return append([]string(nil), r.fallback...)
}

// Empty reports whether the report would serialize to nothing.
func (r Report) Empty() bool {
	return len(r.sections) == 0 && len(r.fallback) == 0
}

// String serializes the report. Sections are separated by a blank line and
// the fallback block, when present, comes last.
func (r Report) String() string {
	blocks := make([]string, 0, len(r.sections)+1)
	for _, s := range r.sections {
		blocks = append(blocks, s.String())
	}
	if len(r.fallback) > 0 {
		blocks = append(blocks, FallbackMarker+"\n"+strings.Join(r.fallback, "\n"))
	}
	return strings.Join(blocks, "\n\n")
}
