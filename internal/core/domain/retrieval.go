package domain

import (
	"encoding/json"
	"math"
	"strings"
	"time"
)

// CandidateFilter narrows candidate search. Zero-valued fields are ignored
// and set fields are AND-combined.
type CandidateFilter struct {
	Jurisdiction   string
	AuthorityLevel *int
	WorkID         string
}

// Match tiers used to score candidate items.
const (
	MatchExact     = 3
	MatchPrefix    = 2
	MatchSubstring = 1
)

// MatchScore scores title against an already lowercased query.
// It returns 0 when title does not contain query.
func MatchScore(title, query string) int {
	t := strings.ToLower(title)
	switch {
	case t == query:
		return MatchExact
	case strings.HasPrefix(t, query):
		return MatchPrefix
	case strings.Contains(t, query):
		return MatchSubstring
	default:
		return 0
	}
}

// CandidateItem is a Work or Article matched by title or number.
type CandidateItem struct {
	Reference Reference
	Title     string
	Score     int
}

// MarshalJSON renders the item with its reference split into kind and id.
func (c CandidateItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Reference   string `json:"reference"`
		Kind        string `json:"kind"`
		ComponentID string `json:"component_id"`
		Title       string `json:"title"`
		Score       int    `json:"score"`
	}{
		Reference:   c.Reference.String(),
		Kind:        c.Reference.Kind.String(),
		ComponentID: c.Reference.ID,
		Title:       c.Title,
		Score:       c.Score,
	})
}

// ResolvedVersion is the Expression in force for a reference at a date.
type ResolvedVersion struct {
	ExpressionID string
	WorkID       string
	ValidFrom    time.Time
	ValidTo      *time.Time
}

// RetrievalMode tags how a paragraph was retrieved.
type RetrievalMode string

// Retrieval modes.
const (
	RetrievalVector  RetrievalMode = "vector"
	RetrievalKeyword RetrievalMode = "keyword"
)

// RetrievedParagraph is a paragraph of the resolved expression together with
// the provenance needed to cite it.
type RetrievedParagraph struct {
	ExpressionID    string        `json:"expression_id"`
	ParagraphID     string        `json:"paragraph_id"`
	ParagraphNumber string        `json:"paragraph_number"`
	Text            string        `json:"text"`
	ArticleID       string        `json:"article_id"`
	ArticleNumber   string        `json:"article_number"`
	ArticleTitle    string        `json:"article_title,omitempty"`
	Score           float64       `json:"score"`
	SourceURL       string        `json:"source_url,omitempty"`
	PublishedDate   string        `json:"published_date,omitempty"`
	ContentType     string        `json:"content_type,omitempty"`
	FileHash        string        `json:"file_hash,omitempty"`
	RetrievalMode   RetrievalMode `json:"retrieval_mode"`
}

// ParagraphIDs returns the ids of ps in order.
func ParagraphIDs(ps []RetrievedParagraph) []string {
	ids := make([]string, 0, len(ps))
	for i := range ps {
		ids = append(ids, ps[i].ParagraphID)
	}
	return ids
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0
// when the lengths differ or either vector is zero.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
