package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cvurl/internal/domain"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	c := domain.NewClassifier(nil, nil)

	tests := []struct {
		url  string
		want domain.Hint
	}{
		{"https://www.linkedin.com/in/jane-doe", domain.Hint{StealthRequired: true, IsProfileSite: true}},
		{"HTTPS://WWW.LINKEDIN.COM/IN/JANE", domain.Hint{StealthRequired: true, IsProfileSite: true}},
		{"https://www.glassdoor.com/profile", domain.Hint{StealthRequired: true}},
		{"https://uk.indeed.com/r/jane", domain.Hint{StealthRequired: true}},
		{"https://jane.dev/cv", domain.Hint{}},
		{"", domain.Hint{}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, c.Classify(tt.url), tt.url)
	}
}

func TestClassify_CustomLists(t *testing.T) {
	t.Parallel()

	c := domain.NewClassifier([]string{" Xing.com "}, []string{"xing.com", ""})

	assert.Equal(t, domain.Hint{StealthRequired: true, IsProfileSite: true}, c.Classify("https://www.xing.com/profile/x"))
	assert.Equal(t, domain.Hint{}, c.Classify("https://www.linkedin.com/in/x"))
}

func TestPlatformFor(t *testing.T) {
	t.Parallel()

	p, ok := domain.PlatformFor("https://www.linkedin.com/in/jane")
	assert.True(t, ok)
	assert.Equal(t, "LinkedIn", p.Name)
	assert.Contains(t, p.ExportTip, "Save to PDF")

	_, ok = domain.PlatformFor("https://indeed.com/jobs")
	assert.False(t, ok)
}
