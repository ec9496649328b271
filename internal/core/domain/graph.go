package domain

import (
	"fmt"
	"sort"
)

// Graph is a complete set of entities as produced by ingestion.
type Graph struct {
	Works          []Work
	Expressions    []Expression
	Manifestations []Manifestation
	Articles       []Article
	Paragraphs     []Paragraph
}

// Validate checks referential integrity and that the expressions of each
// work never overlap in time.
func (g *Graph) Validate() error {
	works := make(map[string]bool, len(g.Works))
	for _, w := range g.Works {
		if w.ID == "" {
			return fmt.Errorf("%w: work without id", ErrInvalidInput)
		}
		works[w.ID] = true
	}

	exprs := make(map[string]bool, len(g.Expressions))
	byWork := make(map[string][]Expression)
	for _, e := range g.Expressions {
		if !works[e.WorkID] {
			return fmt.Errorf("%w: expression %s references unknown work %s", ErrInvalidInput, e.ID, e.WorkID)
		}
		if e.ValidTo != nil && e.ValidTo.Before(e.ValidFrom) {
			return fmt.Errorf("%w: expression %s ends before it starts", ErrInvalidInput, e.ID)
		}
		exprs[e.ID] = true
		byWork[e.WorkID] = append(byWork[e.WorkID], e)
	}

	for workID, es := range byWork {
		sort.Slice(es, func(i, j int) bool { return es[i].ValidFrom.Before(es[j].ValidFrom) })
		for i := 1; i < len(es); i++ {
			if es[i-1].Overlaps(es[i]) {
				return fmt.Errorf("%w: expressions %s and %s of work %s overlap",
					ErrAmbiguous, es[i-1].ID, es[i].ID, workID)
			}
		}
	}

	for _, m := range g.Manifestations {
		if !exprs[m.ExpressionID] {
			return fmt.Errorf("%w: manifestation %s references unknown expression %s", ErrInvalidInput, m.ID, m.ExpressionID)
		}
	}

	articles := make(map[string]bool, len(g.Articles))
	for _, a := range g.Articles {
		if !exprs[a.ExpressionID] {
			return fmt.Errorf("%w: article %s references unknown expression %s", ErrInvalidInput, a.ID, a.ExpressionID)
		}
		articles[a.ID] = true
	}

	for _, p := range g.Paragraphs {
		if !articles[p.ArticleID] {
			return fmt.Errorf("%w: paragraph %s references unknown article %s", ErrInvalidInput, p.ID, p.ArticleID)
		}
	}
	return nil
}
