package harvest

import (
	"strings"
	"time"
)

// RawItem is one harvested post as handed over by a Source. The core never
// mutates it; it lives only for the duration of one extraction pass.
type RawItem struct {
	// TextLines is the post body, one visible line per entry.
	TextLines []string
	// AuthorName is the display name of the post author, if known.
	AuthorName string
	// ProfileRef is an opaque reference to the author profile (URL or slug).
	ProfileRef string
	// SearchKeyword records which query surfaced this item.
	SearchKeyword string
	// Attributes is the identifying attribute bag of the item element.
	Attributes map[string]string
	// Nodes are nested elements carrying their own attribute bags.
	Nodes []ItemNode
	// Links are embedded anchors, used only for identifier resolution.
	Links []ItemLink
	// Serialized is the raw serialized form of the item, used as the
	// content-hash fallback when no structural identifier exists.
	Serialized string
}

// Text joins the item body into a single newline-separated string.
func (i RawItem) Text() string {
	return strings.Join(i.TextLines, "\n")
}

// ItemNode is a nested element inside a RawItem.
type ItemNode struct {
	Attributes map[string]string
}

// ItemLink is an anchor found inside a RawItem.
type ItemLink struct {
	Href string
	Text string
	// Ancestors are the enclosing elements of the anchor, nearest first.
	Ancestors []ItemNode
}

// ClassificationResult is the outcome of scoring one post body.
// It is derived purely from the input text and never cached.
type ClassificationResult struct {
	Score     int
	IsJobPost bool
	// MatchedRules lists every rule label that fired, deduplicated.
	MatchedRules []string
}

// ContactRecord is one extracted hiring contact. Uniqueness key for in-batch
// deduplication is the lower-cased email; records without an email are never
// emitted as contacts.
type ContactRecord struct {
	FullName      string
	Email         string
	Phone         string
	Company       string
	ProfileRef    string
	Location      string
	SourceID      string
	SourceURL     string
	SearchKeyword string
	ExtractedAt   time.Time
}

// JobRecord is one classified job posting. Uniqueness key is PostID.
type JobRecord struct {
	PostID        string
	Title         string
	ContractType  string
	Location      string
	Zip           string
	Score         int
	MatchedRules  []string
	ContactEmail  string
	ContactPhone  string
	AuthorName    string
	SourceURL     string
	SearchKeyword string
	ExtractedAt   time.Time
}
