// Package classify scores post text against weighted rule sets to decide
// whether it describes a job opening, and extracts job attributes from it.
// Every decision carries the list of rules that fired, so verdicts stay
// auditable. The classifier is stateless and deterministic: same text, same
// result, nothing cached.
package classify

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/talentwire/leadharvest/internal/harvest"
)

// Classifier applies the rule configuration it was built with.
type Classifier struct {
	rules    Rules
	ctaRes   []*regexp.Regexp
	titleRes []*regexp.Regexp
	zipRe    *regexp.Regexp
}

// FallbackTitle labels job posts whose title could not be derived.
const FallbackTitle = "Hiring Post"

// NoContractType is returned when no contract-type token matched.
const NoContractType = "N/A"

// New compiles the rule patterns once. Pattern lists come from the
// configuration; a malformed pattern is a programming error and panics via
// MustCompile, matching how rule tables are treated elsewhere.
func New(rules Rules) *Classifier {
	c := &Classifier{rules: rules}
	for _, p := range rules.CTAPatterns {
		c.ctaRes = append(c.ctaRes, regexp.MustCompile(p))
	}
	for _, p := range rules.TitleLabels {
		c.titleRes = append(c.titleRes, regexp.MustCompile(`(?i)`+p+`([^\n,.]+)`))
	}
	c.zipRe = regexp.MustCompile(`\b\d{5}(?:-\d{4})?\b`)
	return c
}

// Classify scores text and returns the verdict with every matched rule
// label. Empty text scores zero and never qualifies.
func (c *Classifier) Classify(text string) harvest.ClassificationResult {
	if text == "" {
		return harvest.ClassificationResult{}
	}
	lower := strings.ToLower(text)

	score := 0
	var matched []string
	record := func(label string) {
		matched = append(matched, label)
	}

	for _, h := range c.rules.Headers {
		if strings.Contains(lower, h) {
			score += c.rules.HeaderWeight
			record("Header: " + h)
		}
	}
	for _, phrase := range c.rules.IntentPhrases {
		if strings.Contains(lower, phrase) {
			score += c.rules.IntentWeight
			record("Intent: " + phrase)
		}
	}
	for i, re := range c.ctaRes {
		if re.MatchString(lower) {
			score += c.rules.CTAWeight
			record("CTA: " + c.rules.CTAPatterns[i])
		}
	}
	for _, kw := range c.rules.Keywords {
		if strings.Contains(lower, kw) {
			score += c.rules.KeywordWeight
			record("Keyword: " + kw)
		}
	}
	for _, phrase := range c.rules.NegativePhrases {
		if strings.Contains(lower, phrase) {
			score -= c.rules.NegativePenalty
			record("NEGATIVE: " + phrase)
		}
	}

	return harvest.ClassificationResult{
		Score:        score,
		IsJobPost:    score >= c.rules.Threshold,
		MatchedRules: dedupe(matched),
	}
}

// ExtractTitle derives a job title from labeled fields ("Role: …",
// "Position: …", "Hiring for …"), falling back to a generic label.
func (c *Classifier) ExtractTitle(text string) string {
	if text == "" {
		return FallbackTitle
	}
	for _, re := range c.titleRes {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		title := strings.TrimSpace(m[1])
		if len(title) > 3 && len(title) < 100 {
			return titleCase(title)
		}
	}
	return FallbackTitle
}

// ExtractContractType returns the matched engagement tokens joined with
// commas, or NoContractType. A bare "contract" mention only counts when no
// more specific corp-to-corp or W2 arrangement was named.
func (c *Classifier) ExtractContractType(text string) string {
	if text == "" {
		return NoContractType
	}
	lower := strings.ToLower(text)
	var results []string
	hasW2 := strings.Contains(lower, "w2")
	hasC2C := strings.Contains(lower, "c2c") ||
		strings.Contains(lower, "corp-to-corp") ||
		strings.Contains(lower, "corp to corp")

	if hasW2 {
		results = append(results, "W2")
	}
	if hasC2C {
		results = append(results, "C2C")
	}
	if strings.Contains(lower, "1099") {
		results = append(results, "1099")
	}
	if strings.Contains(lower, "full-time") || strings.Contains(lower, "full time") {
		results = append(results, "Full-Time")
	}
	if strings.Contains(lower, "contract") && !hasC2C && !hasW2 {
		results = append(results, "Contract")
	}
	if len(results) == 0 {
		return NoContractType
	}
	return strings.Join(results, ", ")
}

// ExtractZip returns the first 5-digit US postal code (optionally with a
// -4 extension), or "".
func (c *Classifier) ExtractZip(text string) string {
	if text == "" {
		return ""
	}
	return c.zipRe.FindString(text)
}

func dedupe(labels []string) []string {
	if len(labels) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(labels))
	out := labels[:0]
	for _, l := range labels {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
