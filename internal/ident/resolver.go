// Package ident derives a stable string identifier from a raw item.
//
// Resolution is an ordered fold over pure steps: the first step that yields
// an identifier wins, and a step that finds nothing (or whose input is
// malformed) simply passes control to the next one. No step performs I/O.
package ident

import (
	"regexp"
	"sort"
	"strings"

	"github.com/talentwire/leadharvest/internal/harvest"
)

// Step attempts one resolution strategy. It returns the identifier and true
// on success, or ("", false) to hand over to the next step.
type Step func(item harvest.RawItem) (string, bool)

// Config holds the resolution knobs. Zero values fall back to defaults
// matching the upstream feed's markup.
type Config struct {
	// AttributeNames are scanned in order on the item and its nested nodes.
	AttributeNames []string
	// ActivityMarker is the token preceding the numeric activity ID in
	// permalink URLs.
	ActivityMarker string
	// CanonicalPrefix normalizes extracted numeric IDs.
	CanonicalPrefix string
	// CopyLinkText identifies the "copy link" affordance anchor.
	CopyLinkText string
	// HashPrefixBytes bounds how much serialized content feeds the hash
	// fallback. Hashing only a prefix can collide for items that share
	// leading boilerplate; that is a known, accepted weakness.
	HashPrefixBytes int
	// UpdatePathMarker is the URL path segment whose successor may carry
	// a bare numeric or long opaque identifier.
	UpdatePathMarker string
}

func (c Config) withDefaults() Config {
	if len(c.AttributeNames) == 0 {
		c.AttributeNames = []string{"data-urn", "data-activity-urn", "data-id", "componentkey"}
	}
	if c.ActivityMarker == "" {
		c.ActivityMarker = "activity:"
	}
	if c.CanonicalPrefix == "" {
		c.CanonicalPrefix = "urn:li:activity:"
	}
	if c.CopyLinkText == "" {
		c.CopyLinkText = "copy link"
	}
	if c.HashPrefixBytes <= 0 {
		c.HashPrefixBytes = 500
	}
	if c.UpdatePathMarker == "" {
		c.UpdatePathMarker = "update"
	}
	return c
}

// Resolver folds a raw item through the fallback chain.
type Resolver struct {
	steps []Step
}

// New builds a Resolver with the standard chain: direct attributes, nested
// node attributes, activity permalinks, copy-link ancestor walk, and finally
// a content-hash of the serialized item prefix.
func New(cfg Config, hasher harvest.Hasher) *Resolver {
	cfg = cfg.withDefaults()
	activityRe := regexp.MustCompile(regexp.QuoteMeta(cfg.ActivityMarker) + `(\d+)`)
	return &Resolver{
		steps: []Step{
			directAttributeStep(cfg.AttributeNames),
			nestedAttributeStep(cfg.AttributeNames),
			activityLinkStep(activityRe, cfg),
			copyLinkAncestorStep(cfg),
			contentHashStep(hasher, cfg.HashPrefixBytes),
		},
	}
}

// NewWithSteps builds a Resolver from an explicit chain (used in tests).
func NewWithSteps(steps ...Step) *Resolver {
	return &Resolver{steps: steps}
}

// Resolve returns the first identifier the chain produces, or "" when the
// item carries no attributes and no content. Repeated calls on the same
// snapshot return the same identifier.
func (r *Resolver) Resolve(item harvest.RawItem) string {
	for _, step := range r.steps {
		if id, ok := step(item); ok && id != "" {
			return id
		}
	}
	return ""
}

func directAttributeStep(names []string) Step {
	return func(item harvest.RawItem) (string, bool) {
		return scanAttributes(item.Attributes, names)
	}
}

func nestedAttributeStep(names []string) Step {
	return func(item harvest.RawItem) (string, bool) {
		for _, node := range item.Nodes {
			if id, ok := scanAttributes(node.Attributes, names); ok {
				return id, true
			}
		}
		return "", false
	}
}

func scanAttributes(attrs map[string]string, names []string) (string, bool) {
	for _, name := range names {
		if val := strings.TrimSpace(attrs[name]); val != "" {
			return val, true
		}
	}
	return "", false
}

// activityLinkStep mines embedded anchors for an activity permalink and
// normalizes the numeric ID to the canonical prefixed form. Update-path
// URLs without the marker may still carry a bare numeric segment or a long
// opaque token right after "/update/".
func activityLinkStep(activityRe *regexp.Regexp, cfg Config) Step {
	updateSegment := "/" + cfg.UpdatePathMarker + "/"
	return func(item harvest.RawItem) (string, bool) {
		for _, link := range item.Links {
			if link.Href == "" {
				continue
			}
			if m := activityRe.FindStringSubmatch(link.Href); m != nil {
				return cfg.CanonicalPrefix + m[1], true
			}
			if !strings.Contains(link.Href, updateSegment) {
				continue
			}
			if id, ok := updatePathToken(link.Href, cfg.UpdatePathMarker); ok {
				if isDigits(id) {
					return cfg.CanonicalPrefix + id, true
				}
				return id, true
			}
		}
		return "", false
	}
}

func updatePathToken(href, marker string) (string, bool) {
	parts := strings.Split(href, "/")
	for i, p := range parts {
		if p != marker || i+1 >= len(parts) {
			continue
		}
		token := parts[i+1]
		if idx := strings.IndexAny(token, "?#"); idx >= 0 {
			token = token[:idx]
		}
		if isDigits(token) || len(token) > 15 {
			return token, true
		}
	}
	return "", false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// copyLinkAncestorStep finds a "copy link" affordance and walks its
// ancestors for any identifying attribute that looks like an activity URN
// or a long opaque token.
func copyLinkAncestorStep(cfg Config) Step {
	names := append([]string{}, cfg.AttributeNames...)
	names = append(names, "data-control-name", "id")
	return func(item harvest.RawItem) (string, bool) {
		for _, link := range item.Links {
			if !strings.Contains(strings.ToLower(link.Text), cfg.CopyLinkText) {
				continue
			}
			for _, ancestor := range link.Ancestors {
				for _, name := range names {
					val := strings.TrimSpace(ancestor.Attributes[name])
					if val == "" {
						continue
					}
					if strings.Contains(val, "activity") || strings.Contains(val, "urn") || len(val) > 15 {
						return val, true
					}
				}
			}
		}
		return "", false
	}
}

// contentHashStep digests a fixed-length prefix of the serialized item. It
// declines entirely when the item has neither attributes nor text, which
// makes the resolver return empty and the pipeline skip the item.
func contentHashStep(hasher harvest.Hasher, prefixBytes int) Step {
	return func(item harvest.RawItem) (string, bool) {
		content := item.Serialized
		if content == "" {
			content = item.Text()
		}
		if content == "" && len(item.Attributes) == 0 {
			return "", false
		}
		if content == "" {
			// Attributes exist but held no scanned name; hash what we have.
			content = flattenAttributes(item.Attributes)
		}
		if len(content) > prefixBytes {
			content = content[:prefixBytes]
		}
		sum, err := hasher.Hash([]byte(content))
		if err != nil {
			return "", false
		}
		return sum, true
	}
}

func flattenAttributes(attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	// Deterministic order regardless of map iteration.
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(attrs[k])
		b.WriteByte('\n')
	}
	return b.String()
}
