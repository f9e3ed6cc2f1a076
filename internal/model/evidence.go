package model

import (
	"fmt"
	"strings"
)

// Stance is a page's evidential relationship to a claim
type Stance string

const (
	StanceSupports Stance = "supports"
	StanceRefutes  Stance = "refutes"
	StanceNeutral  Stance = "neutral"
)

// ParseStance normalizes a free-form stance. Anything unrecognized is neutral.
func ParseStance(s string) Stance {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "supports", "support", "supporting":
		return StanceSupports
	case "refutes", "refute", "refuting", "contradicts":
		return StanceRefutes
	default:
		return StanceNeutral
	}
}

// IsDecisive reports whether the stance should end a research run
func (s Stance) IsDecisive() bool {
	return s == StanceSupports || s == StanceRefutes
}

// AuthorityTier represents the classification of source authority
type AuthorityTier int

const (
	TierUnknown   AuthorityTier = 0 // Not yet classified
	TierPrimary   AuthorityTier = 1 // Laws, statutes, academic papers, official documents
	TierSecondary AuthorityTier = 2 // Encyclopedias, major publishers, reputable media
	TierTertiary  AuthorityTier = 3 // Blogs, personal websites, tourism sites
)

func (t AuthorityTier) String() string {
	switch t {
	case TierPrimary:
		return "primary"
	case TierSecondary:
		return "secondary"
	case TierTertiary:
		return "tertiary"
	default:
		return "unknown"
	}
}

// SearchResult is one ranked hit from a search provider
type SearchResult struct {
	Title     string        `json:"title"`
	Link      string        `json:"link"`
	Snippet   string        `json:"snippet"`
	Rank      int           `json:"rank"`                // 1-based position
	Authority AuthorityTier `json:"authority,omitempty"` // Filled by the authority classifier
}

// ScrapedPage is the outcome of fetching one URL
type ScrapedPage struct {
	URL     string `json:"url"`
	Text    string `json:"text"`
	Title   string `json:"title,omitempty"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// PageEvidence is the claim-relevant extract of one visited page
type PageEvidence struct {
	SourceURL string `json:"source_url"`
	Text      string `json:"text"`
	Stance    Stance `json:"stance"`
}

// Block renders the evidence entry as it appears in an evidence log
func (e PageEvidence) Block() string {
	return fmt.Sprintf("Source: %s\nStance: %s\nEvidence: %s", e.SourceURL, e.Stance, e.Text)
}

// EvidenceEntry is one research result tagged with the query that produced it
type EvidenceEntry struct {
	Query string `json:"query"`
	Block string `json:"block"`
}

// EvidenceLog is the append-only evidence accumulated for one claim
type EvidenceLog struct {
	entries []EvidenceEntry
	text    strings.Builder
}

// Append adds a research block tagged with its query
func (l *EvidenceLog) Append(query, block string) {
	l.entries = append(l.entries, EvidenceEntry{Query: query, Block: block})
	fmt.Fprintf(&l.text, "\n\n--- Search: %s ---\n%s", query, block)
}

// String returns the rendered log; empty before the first append
func (l *EvidenceLog) String() string {
	return l.text.String()
}

// Entries returns a copy of the tagged blocks in order
func (l *EvidenceLog) Entries() []EvidenceEntry {
	out := make([]EvidenceEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of appended blocks
func (l *EvidenceLog) Len() int {
	return len(l.entries)
}
