package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/lexgraph/internal/core/domain"
	"github.com/custodia-labs/lexgraph/internal/core/ports/driven"
)

// containment is the expression interval predicate over an aliased
// expressions table "e". Both arguments are the ISO date.
const containment = "e.valid_from <= ? AND (e.valid_to IS NULL OR e.valid_to >= ?)"

// ownerQueries walk from each component kind to its owning expression.
var ownerQueries = map[domain.ComponentKind]string{
	domain.KindWork: `SELECT e.id, e.work_id, e.valid_from, e.valid_to
		FROM expressions e WHERE e.work_id = ?`,
	domain.KindExpression: `SELECT e.id, e.work_id, e.valid_from, e.valid_to
		FROM expressions e WHERE e.id = ?`,
	domain.KindArticle: `SELECT e.id, e.work_id, e.valid_from, e.valid_to
		FROM articles a JOIN expressions e ON e.id = a.expression_id WHERE a.id = ?`,
	domain.KindParagraph: `SELECT e.id, e.work_id, e.valid_from, e.valid_to
		FROM paragraphs p
		JOIN articles a ON a.id = p.article_id
		JOIN expressions e ON e.id = a.expression_id
		WHERE p.id = ?`,
}

// SearchCandidates pre-filters works and articles in SQL against the
// lowercased columns and ranks them with domain.MatchScore.
func (s *Store) SearchCandidates(
	ctx context.Context, query string, filter domain.CandidateFilter, limit int,
) ([]domain.CandidateItem, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || limit < 1 {
		return []domain.CandidateItem{}, nil
	}

	where, args := filterClause(filter)

	items := []domain.CandidateItem{}

	rows, err := s.db.QueryContext(ctx,
		"SELECT w.id, w.title FROM works w WHERE instr(w.title_lc, ?) > 0"+where,
		append([]any{query}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("searching works: %w", err)
	}
	for rows.Next() {
		var id, title string
		if err := rows.Scan(&id, &title); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning work: %w", err)
		}
		if score := domain.MatchScore(title, query); score > 0 {
			items = append(items, domain.CandidateItem{
				Reference: domain.Reference{Kind: domain.KindWork, ID: id},
				Title:     title,
				Score:     score,
			})
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating works: %w", err)
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT a.id, a.number, a.title
		 FROM articles a
		 JOIN expressions e ON e.id = a.expression_id
		 JOIN works w ON w.id = e.work_id
		 WHERE (instr(a.title_lc, ?) > 0 OR instr(a.number_lc, ?) > 0)`+where,
		append([]any{query, query}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("searching articles: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, number, title string
		if err := rows.Scan(&id, &number, &title); err != nil {
			return nil, fmt.Errorf("scanning article: %w", err)
		}
		if title == "" {
			title = number
		}
		score := domain.MatchScore(title, query)
		if score == 0 {
			score = domain.MatchSubstring
		}
		items = append(items, domain.CandidateItem{
			Reference: domain.Reference{Kind: domain.KindArticle, ID: id},
			Title:     title,
			Score:     score,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating articles: %w", err)
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		if items[i].Title != items[j].Title {
			return items[i].Title < items[j].Title
		}
		return items[i].Reference.ID < items[j].Reference.ID
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// filterClause renders the candidate filter against the works alias "w".
func filterClause(f domain.CandidateFilter) (string, []any) {
	var (
		sb   strings.Builder
		args []any
	)
	if f.Jurisdiction != "" {
		sb.WriteString(" AND w.jurisdiction = ?")
		args = append(args, f.Jurisdiction)
	}
	if f.AuthorityLevel != nil {
		sb.WriteString(" AND w.authority_level = ?")
		args = append(args, *f.AuthorityLevel)
	}
	if f.WorkID != "" {
		sb.WriteString(" AND w.id = ?")
		args = append(args, f.WorkID)
	}
	return sb.String(), args
}

// ExpressionsValidAt resolves owners of ref whose interval contains date.
func (s *Store) ExpressionsValidAt(
	ctx context.Context, ref domain.Reference, date time.Time,
) ([]domain.Expression, error) {
	base, ok := ownerQueries[ref.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: component kind %q", domain.ErrInvalidInput, ref.Kind)
	}

	d := formatDate(date)
	rows, err := s.db.QueryContext(ctx, base+" AND "+containment+" ORDER BY e.id", ref.ID, d, d)
	if err != nil {
		return nil, fmt.Errorf("querying expressions for %s: %w", ref, err)
	}
	defer rows.Close()

	valid := []domain.Expression{}
	for rows.Next() {
		var (
			e        domain.Expression
			from     string
			to       sql.NullString
			parseErr error
		)
		if err := rows.Scan(&e.ID, &e.WorkID, &from, &to); err != nil {
			return nil, fmt.Errorf("scanning expression: %w", err)
		}
		if e.ValidFrom, parseErr = time.Parse(domain.DateLayout, from); parseErr != nil {
			return nil, fmt.Errorf("parsing valid_from of %s: %w", e.ID, parseErr)
		}
		if e.ValidTo, parseErr = parseDatePtr(to); parseErr != nil {
			return nil, parseErr
		}
		valid = append(valid, e)
	}
	return valid, rows.Err()
}

// NearestParagraphs loads every embedding and ranks by cosine similarity.
func (s *Store) NearestParagraphs(ctx context.Context, embedding []float32, k int) ([]driven.ParagraphHit, error) {
	if k < 1 {
		return []driven.ParagraphHit{}, nil
	}
	if s.dims > 0 && len(embedding) != s.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrDimensionMismatch, len(embedding), s.dims)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id, a.expression_id, p.embedding
		 FROM paragraphs p JOIN articles a ON a.id = p.article_id
		 WHERE p.embedding IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("querying embeddings: %w", err)
	}
	defer rows.Close()

	hits := []driven.ParagraphHit{}
	for rows.Next() {
		var (
			hit  driven.ParagraphHit
			blob []byte
		)
		if err := rows.Scan(&hit.ParagraphID, &hit.ExpressionID, &blob); err != nil {
			return nil, fmt.Errorf("scanning embedding: %w", err)
		}
		hit.Score = domain.CosineSimilarity(embedding, bytesToFloat32Slice(blob))
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating embeddings: %w", err)
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ParagraphID < hits[j].ParagraphID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// KeywordParagraphs returns ids of the expression's paragraphs containing query.
func (s *Store) KeywordParagraphs(
	ctx context.Context, expressionID, query string, limit int,
) ([]string, error) {
	query = strings.ToLower(query)
	if query == "" || limit < 1 {
		return []string{}, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id FROM paragraphs p JOIN articles a ON a.id = p.article_id
		 WHERE a.expression_id = ? AND instr(p.text_lc, ?) > 0
		 ORDER BY p.id LIMIT ?`,
		expressionID, query, limit)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning paragraph id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// HydrateParagraphs loads paragraphs of the expression in ids order with
// provenance from the latest manifestation.
func (s *Store) HydrateParagraphs(
	ctx context.Context, expressionID string, ids []string,
) ([]domain.RetrievedParagraph, error) {
	out := make([]domain.RetrievedParagraph, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	latest, err := s.latestManifestation(ctx, expressionID)
	if err != nil {
		return nil, err
	}

	args := make([]any, 0, len(ids)+1)
	args = append(args, expressionID)
	for _, id := range ids {
		args = append(args, id)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id, p.number, p.text, a.id, a.number, a.title
		 FROM paragraphs p JOIN articles a ON a.id = p.article_id
		 WHERE a.expression_id = ? AND p.id IN (`+placeholders(len(ids))+`)`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("hydrating paragraphs: %w", err)
	}
	defer rows.Close()

	found := make(map[string]domain.RetrievedParagraph, len(ids))
	for rows.Next() {
		rp := domain.RetrievedParagraph{ExpressionID: expressionID}
		if err := rows.Scan(&rp.ParagraphID, &rp.ParagraphNumber, &rp.Text,
			&rp.ArticleID, &rp.ArticleNumber, &rp.ArticleTitle); err != nil {
			return nil, fmt.Errorf("scanning paragraph: %w", err)
		}
		if latest != nil {
			rp.SourceURL = latest.SourceURL
			rp.ContentType = latest.ContentType
			rp.FileHash = latest.FileHash
			if latest.PublishedDate != nil {
				rp.PublishedDate = formatDate(*latest.PublishedDate)
			}
		}
		found[rp.ParagraphID] = rp
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating paragraphs: %w", err)
	}

	for _, id := range ids {
		if rp, ok := found[id]; ok {
			out = append(out, rp)
		}
	}
	return out, nil
}

func (s *Store) latestManifestation(ctx context.Context, expressionID string) (*domain.Manifestation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_url, content_type, file_hash, published_date
		 FROM manifestations WHERE expression_id = ? ORDER BY id`,
		expressionID)
	if err != nil {
		return nil, fmt.Errorf("querying manifestations: %w", err)
	}
	defer rows.Close()

	var ms []domain.Manifestation
	for rows.Next() {
		m := domain.Manifestation{ExpressionID: expressionID}
		var published sql.NullString
		if err := rows.Scan(&m.ID, &m.SourceURL, &m.ContentType, &m.FileHash, &published); err != nil {
			return nil, fmt.Errorf("scanning manifestation: %w", err)
		}
		if m.PublishedDate, err = parseDatePtr(published); err != nil {
			return nil, err
		}
		ms = append(ms, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating manifestations: %w", err)
	}
	return domain.LatestManifestation(ms), nil
}
