// Package domaintest provides a small legal graph for tests.
//
// The graph holds two works. MiCA has two consecutive expressions
// (mica-2023 until 2024-12-29, mica-2024 from 2024-12-30) and DORA a single
// open-ended one. Paragraph embeddings live in a 4-dimensional space so
// similarity results are easy to reason about.
package domaintest

import (
	"time"

	"github.com/custodia-labs/lexgraph/internal/core/domain"
)

// Dimensions is the embedding size used by Graph.
const Dimensions = 4

// Date parses a YYYY-MM-DD literal and panics on malformed input.
func Date(s string) time.Time {
	d, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

// DatePtr is Date returning a pointer.
func DatePtr(s string) *time.Time {
	d := Date(s)
	return &d
}

// Graph returns a fresh copy of the fixture graph.
func Graph() *domain.Graph {
	return &domain.Graph{
		Works: []domain.Work{
			{ID: "mica", Title: "Markets in Crypto-Assets Regulation", Jurisdiction: "EU", AuthorityLevel: 1},
			{ID: "dora", Title: "Digital Operational Resilience Act", Jurisdiction: "EU", AuthorityLevel: 1},
		},
		Expressions: []domain.Expression{
			{ID: "mica-2023", WorkID: "mica", ValidFrom: Date("2023-06-09"), ValidTo: DatePtr("2024-12-29")},
			{ID: "mica-2024", WorkID: "mica", ValidFrom: Date("2024-12-30")},
			{ID: "dora-2023", WorkID: "dora", ValidFrom: Date("2023-01-16")},
		},
		Manifestations: []domain.Manifestation{
			{
				ID: "mica-2024-html", ExpressionID: "mica-2024",
				SourceURL: "https://eur-lex.europa.eu/eli/reg/2023/1114/2024-12-30", ContentType: "text/html",
				FileHash: "sha256:old", PublishedDate: DatePtr("2024-12-30"),
			},
			{
				ID: "mica-2024-pdf", ExpressionID: "mica-2024",
				SourceURL: "https://eur-lex.europa.eu/eli/reg/2023/1114/2024-12-30/pdf", ContentType: "application/pdf",
				FileHash: "sha256:new", PublishedDate: DatePtr("2025-01-15"),
			},
		},
		Articles: []domain.Article{
			{ID: "mica-2023-A16", ExpressionID: "mica-2023", Number: "16", Title: "Authorisation of issuers"},
			{ID: "mica-2024-A16", ExpressionID: "mica-2024", Number: "16", Title: "Authorisation of issuers"},
			{ID: "mica-2024-A59", ExpressionID: "mica-2024", Number: "59", Title: "Authorisation of crypto-asset service providers"},
			{ID: "dora-2023-A5", ExpressionID: "dora-2023", Number: "5", Title: "ICT risk management"},
		},
		Paragraphs: []domain.Paragraph{
			{
				ID: "mica-2023-A16-P1", ArticleID: "mica-2023-A16", Number: "1",
				Text:      "An issuer of asset-referenced tokens shall be authorised.",
				Embedding: []float32{1, 0, 0, 0},
			},
			{
				ID: "mica-2023-A16-P2", ArticleID: "mica-2023-A16", Number: "2",
				Text:      "The application shall include a white paper.",
				Embedding: []float32{0, 1, 0, 0},
			},
			{
				ID: "mica-2024-A16-P1", ArticleID: "mica-2024-A16", Number: "1",
				Text:      "An issuer of asset-referenced tokens shall be authorised by the competent authority.",
				Embedding: []float32{1, 0, 0, 0},
			},
			{
				ID: "mica-2024-A16-P2", ArticleID: "mica-2024-A16", Number: "2",
				Text:      "The application for authorisation shall include a crypto-asset white paper.",
				Embedding: []float32{0.9, 0.1, 0, 0},
			},
			{
				ID: "mica-2024-A59-P1", ArticleID: "mica-2024-A59", Number: "1",
				Text:      "Crypto-asset service providers shall be authorised.",
				Embedding: []float32{0, 0, 1, 0},
			},
			{
				ID: "dora-2023-A5-P1", ArticleID: "dora-2023-A5", Number: "1",
				Text:      "Financial entities shall have an ICT risk management framework.",
				Embedding: []float32{0, 0, 0, 1},
			},
		},
	}
}

// Overlapping returns the fixture graph with a third MiCA expression whose
// interval overlaps mica-2024. It fails Graph.Validate and exists to
// exercise ambiguity handling.
func Overlapping() *domain.Graph {
	g := Graph()
	g.Expressions = append(g.Expressions, domain.Expression{
		ID: "mica-2025", WorkID: "mica", ValidFrom: Date("2025-01-01"),
	})
	return g
}
