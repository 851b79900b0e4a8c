package classify

// Rules is the immutable rule configuration handed to the classifier at
// construction. Weights decrease with specificity: a structural section
// header is stronger evidence than a generic keyword.
type Rules struct {
	// HeaderWeight applies per structural section header match.
	HeaderWeight int
	// IntentWeight applies per hiring-intent phrase match.
	IntentWeight int
	// CTAWeight applies per call-to-action pattern match.
	CTAWeight int
	// KeywordWeight applies per generic job keyword match.
	KeywordWeight int
	// NegativePenalty is subtracted per candidate-seeking phrase match.
	NegativePenalty int
	// Threshold is the minimum score for a job-post verdict.
	Threshold int

	Headers         []string
	IntentPhrases   []string
	CTAPatterns     []string
	Keywords        []string
	NegativePhrases []string
	TitleLabels     []string
}

// DefaultRules returns the production rule set.
func DefaultRules() Rules {
	return Rules{
		HeaderWeight:    20,
		IntentWeight:    15,
		CTAWeight:       12,
		KeywordWeight:   5,
		NegativePenalty: 100,
		Threshold:       40,

		Headers: []string{
			"responsibilit", "requirement", "qualification", "skills",
			"what we are looking for", "nice to have", "must have", "experience",
			"ideal candidate", "job description", "essential", "positions",
			"openings available", "roles:",
		},
		IntentPhrases: []string{
			"hiring", "looking for", "join our team", "we are expanding",
			"open role", "job opening", "new role", "we are looking for",
			"positions available", "seeking talent", "immediate start",
			"interviewing", "hiring for", "we have an opening",
		},
		CTAPatterns: []string{
			`send\s+(?:your\s+)?(?:resume|cv)`, `apply\s+at`, `link\s+in\s+bio`,
			`dm\s+me`, `apply\s+here`, `email\s+me`, `share\s+profile`,
			`share\s+resume`, `contact\s+at`,
		},
		Keywords: []string{
			"hiring", "job", "position", "opportunity", "opening",
			"w2", "c2c", "corp-to-corp", "corp to corp", "1099", "bench",
			"full time", "full-time", "contract", "immediate", "looking for",
			"seeking", "recruiting", "join our team", "apply", "careers",
			"employment", "remote", "hybrid", "on-site", "hourly rate",
			"salary", "stipend", "freelance", "temporary", "consultant",
			"staffing", "agency", "vendor", "implementation partner",
			"direct client", "visa sponsorship", "h1b", "opt", "green card",
			"ead", "send resume", "share profile", "email me", "reaching out",
			"dm me", "urgent role", "immediate requirement", "looking to hire",
			"multiple positions", "worked on a role", "open for", "resumes to",
			"drop your email",
			"interested candidates", "comment below", "hiring for",
		},
		NegativePhrases: []string{
			"open to work", "looking for a new role",
			"looking for my next adventure", "looking for a job",
			"i am looking for", "seeking new opportunities", "i am seeking",
			"unemployed",
		},
		TitleLabels: []string{
			`role[:\s]+`, `position[:\s]+`, `title[:\s]+`,
			`hiring\s+for\s+`, `looking\s+for\s+(?:a\s+)?`,
		},
	}
}
