// Package seed decodes TOML seed documents into a domain graph and loads
// them into a store.
//
// A seed document nests the graph the way it is published:
//
//	[[works]]
//	id = "mica"
//	title = "Markets in Crypto-Assets Regulation"
//
//	  [[works.expressions]]
//	  id = "mica-2024"
//	  valid_from = "2024-12-30"
//
//	    [[works.expressions.articles]]
//	    number = "16"
//
//	      [[works.expressions.articles.paragraphs]]
//	      number = "1"
//	      text = "..."
//
// Article and paragraph ids default to the deterministic id scheme.
// Paragraphs without an embedding are embedded at load time.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/lexgraph/internal/core/domain"
	"github.com/custodia-labs/lexgraph/internal/core/ports/driven"
	"github.com/custodia-labs/lexgraph/internal/logger"
)

// embedBatchSize bounds a single EmbedBatch call.
const embedBatchSize = 64

//go:embed default.toml
var defaultSeed string

type document struct {
	Works []work `toml:"works"`
}

type work struct {
	ID             string       `toml:"id"`
	Title          string       `toml:"title"`
	Jurisdiction   string       `toml:"jurisdiction"`
	AuthorityLevel int          `toml:"authority_level"`
	Expressions    []expression `toml:"expressions"`
}

type expression struct {
	ID             string          `toml:"id"`
	ValidFrom      string          `toml:"valid_from"`
	ValidTo        string          `toml:"valid_to"`
	Manifestations []manifestation `toml:"manifestations"`
	Articles       []article       `toml:"articles"`
}

type manifestation struct {
	ID            string `toml:"id"`
	SourceURL     string `toml:"source_url"`
	ContentType   string `toml:"content_type"`
	FileHash      string `toml:"file_hash"`
	PublishedDate string `toml:"published_date"`
}

type article struct {
	ID         string      `toml:"id"`
	Number     string      `toml:"number"`
	Title      string      `toml:"title"`
	Paragraphs []paragraph `toml:"paragraphs"`
}

type paragraph struct {
	ID        string    `toml:"id"`
	Number    string    `toml:"number"`
	Text      string    `toml:"text"`
	Embedding []float32 `toml:"embedding"`
}

// Decode reads a seed document. The result is not validated; stores
// validate on load.
func Decode(r io.Reader) (*domain.Graph, error) {
	var doc document
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decoding seed: %w", domain.ErrInvalidInput, err)
	}

	g := &domain.Graph{}
	for _, w := range doc.Works {
		g.Works = append(g.Works, domain.Work{
			ID:             w.ID,
			Title:          w.Title,
			Jurisdiction:   w.Jurisdiction,
			AuthorityLevel: w.AuthorityLevel,
		})
		for _, e := range w.Expressions {
			if err := appendExpression(g, w.ID, e); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

func appendExpression(g *domain.Graph, workID string, e expression) error {
	from, err := domain.ParseDate(e.ValidFrom)
	if err != nil {
		return fmt.Errorf("expression %s valid_from: %w", e.ID, err)
	}
	to, err := optionalDate(e.ValidTo)
	if err != nil {
		return fmt.Errorf("expression %s valid_to: %w", e.ID, err)
	}
	g.Expressions = append(g.Expressions, domain.Expression{ID: e.ID, WorkID: workID, ValidFrom: from, ValidTo: to})

	for i, m := range e.Manifestations {
		published, err := optionalDate(m.PublishedDate)
		if err != nil {
			return fmt.Errorf("manifestation %s published_date: %w", m.ID, err)
		}
		id := m.ID
		if id == "" {
			id = fmt.Sprintf("%s-M%d", e.ID, i+1)
		}
		g.Manifestations = append(g.Manifestations, domain.Manifestation{
			ID:            id,
			ExpressionID:  e.ID,
			SourceURL:     m.SourceURL,
			ContentType:   m.ContentType,
			FileHash:      m.FileHash,
			PublishedDate: published,
		})
	}

	for _, a := range e.Articles {
		articleID := a.ID
		if articleID == "" {
			articleID = domain.ArticleID(e.ID, a.Number)
		}
		g.Articles = append(g.Articles, domain.Article{
			ID: articleID, ExpressionID: e.ID, Number: a.Number, Title: a.Title,
		})
		for _, p := range a.Paragraphs {
			paragraphID := p.ID
			if paragraphID == "" {
				paragraphID = domain.ParagraphID(articleID, p.Number)
			}
			g.Paragraphs = append(g.Paragraphs, domain.Paragraph{
				ID:        paragraphID,
				ArticleID: articleID,
				Number:    p.Number,
				Text:      strings.TrimSpace(p.Text),
				Embedding: p.Embedding,
			})
		}
	}
	return nil
}

func optionalDate(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := domain.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// DecodeFile reads a seed document from path.
func DecodeFile(path string) (*domain.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening seed: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Default returns the seed graph compiled into the binary.
func Default() (*domain.Graph, error) {
	return Decode(strings.NewReader(defaultSeed))
}

// EmbedMissing fills paragraphs that have no embedding. A nil embedder
// leaves them empty; those paragraphs are then reachable by keyword only.
func EmbedMissing(ctx context.Context, g *domain.Graph, embedder driven.EmbeddingService) error {
	if embedder == nil {
		return nil
	}

	var pending []int
	for i, p := range g.Paragraphs {
		if len(p.Embedding) == 0 {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	logger.Debug("embedding %d paragraphs with %s", len(pending), embedder.ModelName())

	for start := 0; start < len(pending); start += embedBatchSize {
		end := min(start+embedBatchSize, len(pending))
		texts := make([]string, 0, end-start)
		for _, idx := range pending[start:end] {
			texts = append(texts, g.Paragraphs[idx].Text)
		}
		vecs, err := embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embedding paragraphs: %w", err)
		}
		if len(vecs) != len(texts) {
			return fmt.Errorf("embedding paragraphs: got %d vectors for %d texts", len(vecs), len(texts))
		}
		for i, idx := range pending[start:end] {
			g.Paragraphs[idx].Embedding = vecs[i]
		}
	}
	return nil
}

// Load embeds missing vectors and writes g into loader.
func Load(ctx context.Context, g *domain.Graph, embedder driven.EmbeddingService, loader driven.GraphLoader) error {
	if err := EmbedMissing(ctx, g, embedder); err != nil {
		return err
	}
	return loader.LoadGraph(ctx, g)
}
