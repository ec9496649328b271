package neo4j

import (
	"time"

	"github.com/custodia-labs/lexgraph/internal/core/domain"
)

// Row builders turn domain entities into UNWIND parameters. The driver
// only accepts primitive values, so dates travel as ISO strings.

func workRows(ws []domain.Work) []map[string]any {
	rows := make([]map[string]any, len(ws))
	for i, w := range ws {
		rows[i] = map[string]any{
			"id":              w.ID,
			"title":           w.Title,
			"jurisdiction":    w.Jurisdiction,
			"authority_level": int64(w.AuthorityLevel),
		}
	}
	return rows
}

func expressionRows(es []domain.Expression) []map[string]any {
	rows := make([]map[string]any, len(es))
	for i, e := range es {
		rows[i] = map[string]any{
			"id":         e.ID,
			"work_id":    e.WorkID,
			"valid_from": e.ValidFrom.Format(domain.DateLayout),
			"valid_to":   datePtr(e.ValidTo),
		}
	}
	return rows
}

func manifestationRows(ms []domain.Manifestation) []map[string]any {
	rows := make([]map[string]any, len(ms))
	for i, m := range ms {
		rows[i] = map[string]any{
			"id":             m.ID,
			"expression_id":  m.ExpressionID,
			"source_url":     m.SourceURL,
			"content_type":   m.ContentType,
			"file_hash":      m.FileHash,
			"published_date": datePtr(m.PublishedDate),
		}
	}
	return rows
}

func articleRows(as []domain.Article) []map[string]any {
	rows := make([]map[string]any, len(as))
	for i, a := range as {
		rows[i] = map[string]any{
			"id":            a.ID,
			"expression_id": a.ExpressionID,
			"number":        a.Number,
			"title":         a.Title,
		}
	}
	return rows
}

func paragraphRows(ps []domain.Paragraph) []map[string]any {
	rows := make([]map[string]any, len(ps))
	for i, p := range ps {
		var embedding any
		if len(p.Embedding) > 0 {
			vec := make([]float64, len(p.Embedding))
			for j, v := range p.Embedding {
				vec[j] = float64(v)
			}
			embedding = vec
		}
		rows[i] = map[string]any{
			"id":         p.ID,
			"article_id": p.ArticleID,
			"number":     p.Number,
			"text":       p.Text,
			"embedding":  embedding,
		}
	}
	return rows
}

func datePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(domain.DateLayout)
}
