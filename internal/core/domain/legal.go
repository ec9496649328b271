package domain

import (
	"strings"
	"time"
)

// Work is an abstract regulatory instrument, independent of any version.
type Work struct {
	// ID uniquely identifies the work (e.g. "eu-2023-1114").
	ID string

	// Title is the official title of the instrument.
	Title string

	// Jurisdiction is the jurisdiction code (e.g. "EU").
	Jurisdiction string

	// AuthorityLevel orders instruments by legal authority.
	AuthorityLevel int
}

// Expression is one time-bounded version of a Work.
// For a fixed work the intervals of its expressions never overlap.
type Expression struct {
	// ID uniquely identifies the expression.
	ID string

	// WorkID is the owning work.
	WorkID string

	// ValidFrom is the first day this version is in force (inclusive).
	ValidFrom time.Time

	// ValidTo is the last day this version is in force (inclusive).
	// Nil means the version is currently in force.
	ValidTo *time.Time
}

// Covers reports whether date falls inside [ValidFrom, ValidTo].
func (e Expression) Covers(date time.Time) bool {
	d := TruncateDate(date)
	if d.Before(TruncateDate(e.ValidFrom)) {
		return false
	}
	if e.ValidTo == nil {
		return true
	}
	return !d.After(TruncateDate(*e.ValidTo))
}

// Overlaps reports whether the intervals of e and other share at least one day.
func (e Expression) Overlaps(other Expression) bool {
	if e.ValidTo != nil && TruncateDate(*e.ValidTo).Before(TruncateDate(other.ValidFrom)) {
		return false
	}
	if other.ValidTo != nil && TruncateDate(*other.ValidTo).Before(TruncateDate(e.ValidFrom)) {
		return false
	}
	return true
}

// Manifestation is a concrete fetched or rendered artifact backing an Expression.
type Manifestation struct {
	ID            string
	ExpressionID  string
	SourceURL     string
	ContentType   string
	FileHash      string
	PublishedDate *time.Time
}

// Article is a numbered structural subdivision of an Expression.
type Article struct {
	ID           string
	ExpressionID string

	// Number may include letters (e.g. "3a").
	Number string
	Title  string
}

// Paragraph is the smallest addressable text unit within an Article.
type Paragraph struct {
	// ID is globally stable and derived from the article id and local number.
	ID        string
	ArticleID string
	Number    string
	Text      string
	Embedding []float32
}

// ArticleID derives the stable article identifier within an expression.
func ArticleID(expressionID, number string) string {
	return expressionID + "-A" + strings.TrimSpace(number)
}

// ParagraphID derives the stable paragraph identifier within an article.
func ParagraphID(articleID, number string) string {
	return articleID + "-P" + strings.TrimSpace(number)
}

// LatestManifestation returns the manifestation with the most recent
// published date, or nil if there are none. Undated manifestations sort last.
func LatestManifestation(ms []Manifestation) *Manifestation {
	var latest *Manifestation
	for i := range ms {
		m := &ms[i]
		switch {
		case latest == nil:
			latest = m
		case latest.PublishedDate == nil && m.PublishedDate != nil:
			latest = m
		case latest.PublishedDate != nil && m.PublishedDate != nil && m.PublishedDate.After(*latest.PublishedDate):
			latest = m
		}
	}
	return latest
}
