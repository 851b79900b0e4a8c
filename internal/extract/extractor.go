// Package extract mines email and phone contact data from post text and
// derives candidate names and company names from email shapes. Filtering is
// deliberately aggressive: a missed noisy candidate costs a junk row in the
// backend, a bad filter costs a real lead.
package extract

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// Config is the immutable filter configuration. Zero values use the
// production defaults.
type Config struct {
	// OperatorEmail is excluded from results (self-match exclusion).
	OperatorEmail string
	// PersonalDomains are free-provider domains whose addresses are not
	// business contacts. Merged with the built-in set.
	PersonalDomains []string
	// MinLength/MaxLength bound plausible email lengths.
	MinLength int
	MaxLength int
}

var defaultPersonalDomains = []string{
	"gmail.com", "yahoo.com", "hotmail.com", "outlook.com",
	"icloud.com", "aol.com", "protonmail.com",
}

var imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp"}

// Extractor applies the configured filters. Safe for concurrent use; all
// state is immutable after construction.
type Extractor struct {
	operatorEmail   string
	personalDomains map[string]struct{}
	minLen, maxLen  int

	emailRe   *regexp.Regexp
	phoneRes  []*regexp.Regexp
	localPart *regexp.Regexp
}

// New builds an Extractor.
func New(cfg Config) *Extractor {
	if cfg.MinLength <= 0 {
		cfg.MinLength = 5
	}
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = 100
	}
	domains := make(map[string]struct{}, len(defaultPersonalDomains)+len(cfg.PersonalDomains))
	for _, d := range defaultPersonalDomains {
		domains[strings.ToLower(d)] = struct{}{}
	}
	for _, d := range cfg.PersonalDomains {
		domains[strings.ToLower(d)] = struct{}{}
	}
	return &Extractor{
		operatorEmail:   strings.ToLower(strings.TrimSpace(cfg.OperatorEmail)),
		personalDomains: domains,
		minLen:          cfg.MinLength,
		maxLen:          cfg.MaxLength,
		emailRe:         regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`),
		phoneRes: []*regexp.Regexp{
			regexp.MustCompile(`\+?\b\d{1,3}[-.\s]\(?\d{3}\)?[-.\s]\d{3}[-.\s]\d{4}\b`),
			regexp.MustCompile(`\(\d{3}\)\s?\d{3}[-.\s]?\d{4}`),
			regexp.MustCompile(`\b\d{10}\b`),
		},
		localPart: regexp.MustCompile(`[._0-9]+`),
	}
}

// Emails returns the unique (case-insensitive) business-looking email
// addresses in text, sorted for determinism. Candidates that look like
// image filenames, belong to personal providers, match the operator's own
// address or fall outside the length bounds are rejected.
func (e *Extractor) Emails(text string) []string {
	if text == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, candidate := range e.emailRe.FindAllString(text, -1) {
		lower := strings.ToLower(candidate)
		if len(candidate) < e.minLen || len(candidate) > e.maxLen {
			continue
		}
		if hasImageSuffix(lower) {
			continue
		}
		if e.isPersonal(lower) {
			continue
		}
		if e.operatorEmail != "" && lower == e.operatorEmail {
			continue
		}
		if _, dup := seen[lower]; dup {
			continue
		}
		seen[lower] = struct{}{}
		out = append(out, candidate)
	}
	sort.Strings(out)
	return out
}

// Phones returns the deduplicated union of phone-number matches across the
// supported digit groupings, sorted for determinism.
func (e *Extractor) Phones(text string) []string {
	if text == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, re := range e.phoneRes {
		for _, m := range re.FindAllString(text, -1) {
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out
}

// NameFromEmail derives a display name from the local part: separators and
// digits become spaces and each word is title-cased, so "jane.doe@acme.com"
// yields "Jane Doe". Returns "" when nothing name-like survives.
func (e *Extractor) NameFromEmail(email string) string {
	local, _, ok := splitEmail(email)
	if !ok {
		return ""
	}
	clean := strings.TrimSpace(e.localPart.ReplaceAllString(local, " "))
	if clean == "" {
		return ""
	}
	return titleCase(clean)
}

// CompanyFromEmail derives a company name from the domain part by stripping
// the top-level suffix: "jane@acme.com" yields "Acme". Personal providers
// yield "".
func (e *Extractor) CompanyFromEmail(email string) string {
	_, domain, ok := splitEmail(email)
	if !ok {
		return ""
	}
	if e.isPersonal(strings.ToLower(email)) {
		return ""
	}
	idx := strings.LastIndex(domain, ".")
	if idx <= 0 {
		return ""
	}
	company := domain[:idx]
	if _, personal := e.personalDomains[strings.ToLower(company)+".com"]; personal {
		return ""
	}
	return titleCase(company)
}

func (e *Extractor) isPersonal(lowerEmail string) bool {
	for d := range e.personalDomains {
		if strings.HasSuffix(lowerEmail, "@"+d) || strings.HasSuffix(lowerEmail, "."+d) {
			return true
		}
	}
	return false
}

func splitEmail(email string) (local, domain string, ok bool) {
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "", "", false
	}
	return email[:at], email[at+1:], true
}

func hasImageSuffix(lowerEmail string) bool {
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lowerEmail, ext) {
			return true
		}
	}
	return false
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
