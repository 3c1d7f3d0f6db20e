package extractor

// field is a single-value profile field located by CSS candidates, most
// specific layout first.
type field struct {
	label     Label
	selectors []string
}

var fields = []field{
	{
		label: Name,
		selectors: []string{
			"h1.text-heading-xlarge",
			"h1.top-card-layout__title",
			".pv-text-details__left-panel h1",
			".top-card-layout__entity-info h1",
			"main section h1",
			"h1",
		},
	},
	{
		label: Headline,
		selectors: []string{
			"div.text-body-medium.break-words",
			"h2.top-card-layout__headline",
			".pv-text-details__left-panel .text-body-medium",
			".top-card-layout__entity-info h2",
			".top-card__subline-item--headline",
		},
	},
	{
		label: Location,
		selectors: []string{
			"span.text-body-small.inline.t-black--light.break-words",
			".pv-text-details__left-panel span.text-body-small",
			"div.top-card__subline-item",
			".top-card-layout__first-subline span",
			".profile-info-subheader .not-first-middot span",
		},
	},
	{
		label: About,
		selectors: []string{
			"#about ~ div.display-flex span[aria-hidden='true']",
			"section.pv-about-section div.inline-show-more-text",
			"section[data-section='summary'] .core-section-container__content p",
			"section.summary p",
			".pv-about__summary-text",
		},
	},
}

// section is a multi-item profile block located by a structural container
// or by one of its heading texts.
type section struct {
	label    Label
	key      string
	headings []string
	limit    int
	// minLen drops short fragments found under a heading.
	minLen int
	hint   RenderHint
}

var sections = []section{
	{
		label:    Experience,
		key:      "experience",
		headings: []string{"Experience"},
		limit:    20,
		minLen:   5,
		hint:     BulletList,
	},
	{
		label:    Education,
		key:      "educationsDetails",
		headings: []string{"Education"},
		limit:    10,
		minLen:   5,
		hint:     BulletList,
	},
	{
		label:    Skills,
		key:      "skills",
		headings: []string{"Top skills", "Skills"},
		limit:    25,
		minLen:   3,
		hint:     InlineJoined,
	},
	{
		label:    Certifications,
		key:      "certifications",
		headings: []string{"Licenses & certifications", "Licenses and certifications", "Certifications"},
		limit:    15,
		minLen:   5,
		hint:     BulletList,
	},
	{
		label:    Languages,
		key:      "languages",
		headings: []string{"Languages"},
		limit:    10,
		minLen:   3,
		hint:     InlineJoined,
	},
	{
		label:    Projects,
		key:      "projects",
		headings: []string{"Projects"},
		limit:    10,
		minLen:   5,
		hint:     BulletList,
	},
	{
		label:    Volunteer,
		key:      "volunteering",
		headings: []string{"Volunteer experience", "Volunteering", "Volunteer"},
		limit:    10,
		minLen:   5,
		hint:     BulletList,
	},
}

// contentSelectors locate the main content block of an arbitrary page.
var contentSelectors = []string{"article", "main", ".content", ".article", ".post", ".entry-content"}
