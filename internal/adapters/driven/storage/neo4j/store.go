// Package neo4j provides a driven.GraphStore backed by a Neo4j property graph.
//
// Nodes carry the labels Work, Expression, Manifestation, Article and
// Paragraph, linked by HAS_EXPRESSION, HAS_MANIFESTATION, HAS_ARTICLE and
// HAS_PARAGRAPH. Dates are stored as Cypher dates and compared with one
// containment predicate. Paragraph similarity uses the native vector index.
package neo4j

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	neo4jdrv "github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/custodia-labs/lexgraph/internal/core/domain"
	"github.com/custodia-labs/lexgraph/internal/core/ports/driven"
	"github.com/custodia-labs/lexgraph/internal/logger"
)

// Ensure Store implements the interfaces.
var (
	_ driven.GraphStore  = (*Store)(nil)
	_ driven.GraphLoader = (*Store)(nil)
)

// Config holds Neo4j connection details.
type Config struct {
	URI      string
	User     string
	Password string
	Database string

	// Dimensions is the expected vector index size. EnsureSchema creates the
	// index with it, recreating an existing index of a different size.
	Dimensions int

	// QueryTimeout is sent as the server-side transaction timeout. Zero
	// leaves the server default.
	QueryTimeout time.Duration
}

// Store queries the legal graph in Neo4j.
type Store struct {
	driver   neo4jdrv.DriverWithContext
	database string
	timeout  time.Duration

	mu   sync.Mutex
	dims int
}

// NewStore creates a driver for cfg. It does not contact the server; call
// Ping or EnsureSchema for that.
func NewStore(cfg Config) (*Store, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("neo4j: %w: uri is required", domain.ErrConfiguration)
	}
	driver, err := neo4jdrv.NewDriverWithContext(cfg.URI, neo4jdrv.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j: %w: %w", domain.ErrConfiguration, err)
	}
	return &Store{driver: driver, database: cfg.Database, dims: cfg.Dimensions, timeout: cfg.QueryTimeout}, nil
}

func (s *Store) run(ctx context.Context, query string, params map[string]any, write bool) (*neo4jdrv.EagerResult, error) {
	opts := []neo4jdrv.ExecuteQueryConfigurationOption{neo4jdrv.ExecuteQueryWithDatabase(s.database)}
	if !write {
		opts = append(opts, neo4jdrv.ExecuteQueryWithReadersRouting())
	}
	if s.timeout > 0 {
		opts = append(opts, neo4jdrv.ExecuteQueryWithTransactionConfig(neo4jdrv.WithTxTimeout(s.timeout)))
	}
	res, err := neo4jdrv.ExecuteQuery(ctx, s.driver, query, params, neo4jdrv.EagerResultTransformer, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return res, nil
}

// EnsureSchema creates id constraints and the paragraph vector index. An
// index with a different size is dropped and recreated, since stored
// embeddings must be reloaded anyway.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaConstraints {
		if _, err := s.run(ctx, stmt, nil, true); err != nil {
			return fmt.Errorf("neo4j schema: %w", err)
		}
	}

	want := s.configuredDimensions()
	if want == 0 {
		return nil
	}

	current, err := s.indexDimensions(ctx)
	if err != nil {
		return err
	}
	if current == want {
		return nil
	}
	if current != 0 {
		logger.Warn("neo4j vector index has %d dimensions, recreating with %d", current, want)
		if _, err := s.run(ctx, dropVectorIndex, nil, true); err != nil {
			return fmt.Errorf("neo4j drop vector index: %w", err)
		}
	}
	if _, err := s.run(ctx, fmt.Sprintf(createVectorIndex, want), nil, true); err != nil {
		return fmt.Errorf("neo4j create vector index: %w", err)
	}
	logger.Info("neo4j vector index %s ready (%d dimensions)", VectorIndexName, want)
	return nil
}

func (s *Store) configuredDimensions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dims
}

// indexDimensions reads the size of the live vector index, 0 if absent.
func (s *Store) indexDimensions(ctx context.Context) (int, error) {
	res, err := s.run(ctx, showVectorIndex, map[string]any{"name": VectorIndexName}, true)
	if err != nil {
		return 0, fmt.Errorf("neo4j show indexes: %w", err)
	}
	if len(res.Records) == 0 {
		return 0, nil
	}
	options, _ := res.Records[0].Get("options")
	return optionDimensions(options), nil
}

// optionDimensions extracts indexConfig."vector.dimensions" from SHOW INDEXES options.
func optionDimensions(options any) int {
	m, ok := options.(map[string]any)
	if !ok {
		return 0
	}
	cfg, ok := m["indexConfig"].(map[string]any)
	if !ok {
		return 0
	}
	switch v := cfg["vector.dimensions"].(type) {
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// SearchCandidates matches works by title and articles by title or number.
func (s *Store) SearchCandidates(
	ctx context.Context, query string, filter domain.CandidateFilter, limit int,
) ([]domain.CandidateItem, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || limit < 1 {
		return []domain.CandidateItem{}, nil
	}

	cypher, params := candidateQuery(filter)
	params["query"] = query
	res, err := s.run(ctx, cypher, params, false)
	if err != nil {
		return nil, fmt.Errorf("neo4j search candidates: %w", err)
	}

	items := make([]domain.CandidateItem, 0, len(res.Records))
	for _, rec := range res.Records {
		kind := domain.ComponentKind(stringValue(rec, "kind"))
		title := stringValue(rec, "title")
		score := domain.MatchScore(title, query)
		if score == 0 {
			if kind == domain.KindWork {
				continue
			}
			score = domain.MatchSubstring
		}
		items = append(items, domain.CandidateItem{
			Reference: domain.Reference{Kind: kind, ID: stringValue(rec, "id")},
			Title:     title,
			Score:     score,
		})
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

// ExpressionsValidAt runs the kind-dispatched containment query.
func (s *Store) ExpressionsValidAt(
	ctx context.Context, ref domain.Reference, date time.Time,
) ([]domain.Expression, error) {
	cypher, ok := validVersionQuery(ref.Kind)
	if !ok {
		return nil, fmt.Errorf("%w: component kind %q", domain.ErrInvalidInput, ref.Kind)
	}

	res, err := s.run(ctx, cypher, map[string]any{
		"id":   ref.ID,
		"date": date.Format(domain.DateLayout),
	}, false)
	if err != nil {
		return nil, fmt.Errorf("neo4j valid version: %w", err)
	}

	out := make([]domain.Expression, 0, len(res.Records))
	for _, rec := range res.Records {
		e := domain.Expression{
			ID:     stringValue(rec, "expression_id"),
			WorkID: stringValue(rec, "work_id"),
		}
		if e.ValidFrom, err = time.Parse(domain.DateLayout, stringValue(rec, "valid_from")); err != nil {
			return nil, fmt.Errorf("neo4j: expression %s valid_from: %w", e.ID, err)
		}
		if to := stringValue(rec, "valid_to"); to != "" {
			t, err := time.Parse(domain.DateLayout, to)
			if err != nil {
				return nil, fmt.Errorf("neo4j: expression %s valid_to: %w", e.ID, err)
			}
			e.ValidTo = &t
		}
		out = append(out, e)
	}
	return out, nil
}

// NearestParagraphs queries the vector index. Neo4j reports cosine
// similarity rescaled to [0, 1], which preserves ordering.
func (s *Store) NearestParagraphs(ctx context.Context, embedding []float32, k int) ([]driven.ParagraphHit, error) {
	if k < 1 {
		return []driven.ParagraphHit{}, nil
	}
	if dims := s.configuredDimensions(); dims > 0 && len(embedding) != dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrDimensionMismatch, len(embedding), dims)
	}

	vector := make([]float64, len(embedding))
	for i, v := range embedding {
		vector[i] = float64(v)
	}
	res, err := s.run(ctx, nearestQuery, map[string]any{"k": int64(k), "embedding": vector}, false)
	if err != nil {
		return nil, fmt.Errorf("neo4j vector search: %w", err)
	}

	hits := make([]driven.ParagraphHit, 0, len(res.Records))
	for _, rec := range res.Records {
		score, _ := rec.Get("score")
		f, _ := score.(float64)
		hits = append(hits, driven.ParagraphHit{
			ParagraphID:  stringValue(rec, "paragraph_id"),
			ExpressionID: stringValue(rec, "expression_id"),
			Score:        f,
		})
	}
	return hits, nil
}

// KeywordParagraphs matches paragraph text of one expression.
func (s *Store) KeywordParagraphs(
	ctx context.Context, expressionID, query string, limit int,
) ([]string, error) {
	query = strings.ToLower(query)
	if query == "" || limit < 1 {
		return []string{}, nil
	}

	res, err := s.run(ctx, keywordQuery, map[string]any{
		"expression_id": expressionID,
		"query":         query,
		"limit":         int64(limit),
	}, false)
	if err != nil {
		return nil, fmt.Errorf("neo4j keyword search: %w", err)
	}

	ids := make([]string, 0, len(res.Records))
	for _, rec := range res.Records {
		ids = append(ids, stringValue(rec, "paragraph_id"))
	}
	return ids, nil
}

// HydrateParagraphs loads paragraphs of the expression in ids order.
func (s *Store) HydrateParagraphs(
	ctx context.Context, expressionID string, ids []string,
) ([]domain.RetrievedParagraph, error) {
	out := make([]domain.RetrievedParagraph, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	params := map[string]any{"expression_id": expressionID, "ids": ids}
	res, err := s.run(ctx, hydrateQuery, params, false)
	if err != nil {
		return nil, fmt.Errorf("neo4j hydrate: %w", err)
	}
	mres, err := s.run(ctx, manifestationsQuery, params, false)
	if err != nil {
		return nil, fmt.Errorf("neo4j manifestations: %w", err)
	}

	ms := make([]domain.Manifestation, 0, len(mres.Records))
	for _, rec := range mres.Records {
		m := domain.Manifestation{
			ID:           stringValue(rec, "id"),
			ExpressionID: expressionID,
			SourceURL:    stringValue(rec, "source_url"),
			ContentType:  stringValue(rec, "content_type"),
			FileHash:     stringValue(rec, "file_hash"),
		}
		if p := stringValue(rec, "published_date"); p != "" {
			if t, err := time.Parse(domain.DateLayout, p); err == nil {
				m.PublishedDate = &t
			}
		}
		ms = append(ms, m)
	}
	latest := domain.LatestManifestation(ms)

	found := make(map[string]domain.RetrievedParagraph, len(res.Records))
	for _, rec := range res.Records {
		rp := domain.RetrievedParagraph{
			ExpressionID:    expressionID,
			ParagraphID:     stringValue(rec, "paragraph_id"),
			ParagraphNumber: stringValue(rec, "paragraph_number"),
			Text:            stringValue(rec, "text"),
			ArticleID:       stringValue(rec, "article_id"),
			ArticleNumber:   stringValue(rec, "article_number"),
			ArticleTitle:    stringValue(rec, "article_title"),
		}
		if latest != nil {
			rp.SourceURL = latest.SourceURL
			rp.ContentType = latest.ContentType
			rp.FileHash = latest.FileHash
			if latest.PublishedDate != nil {
				rp.PublishedDate = latest.PublishedDate.Format(domain.DateLayout)
			}
		}
		found[rp.ParagraphID] = rp
	}
	for _, id := range ids {
		if rp, ok := found[id]; ok {
			out = append(out, rp)
		}
	}
	return out, nil
}

// VectorDimensions returns the live index size, falling back to the
// configured size when the index does not exist yet.
func (s *Store) VectorDimensions(ctx context.Context) (int, error) {
	dims, err := s.indexDimensions(ctx)
	if err != nil {
		return 0, err
	}
	if dims == 0 {
		return s.configuredDimensions(), nil
	}
	return dims, nil
}

// LoadGraph validates g and replaces the legal graph with it in one write
// transaction.
func (s *Store) LoadGraph(ctx context.Context, g *domain.Graph) error {
	if err := g.Validate(); err != nil {
		return err
	}

	dims := s.configuredDimensions()
	for _, p := range g.Paragraphs {
		if len(p.Embedding) > 0 && dims > 0 && len(p.Embedding) != dims {
			return fmt.Errorf("%w: paragraph %s has %d dimensions, index has %d",
				domain.ErrDimensionMismatch, p.ID, len(p.Embedding), dims)
		}
	}

	session := s.driver.NewSession(ctx, neo4jdrv.SessionConfig{DatabaseName: s.database})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4jdrv.ManagedTransaction) (any, error) {
		steps := []struct {
			query string
			rows  []map[string]any
		}{
			{clearGraph, nil},
			{mergeWorks, workRows(g.Works)},
			{mergeExpressions, expressionRows(g.Expressions)},
			{mergeManifestations, manifestationRows(g.Manifestations)},
			{mergeArticles, articleRows(g.Articles)},
			{mergeParagraphs, paragraphRows(g.Paragraphs)},
		}
		for _, step := range steps {
			res, err := tx.Run(ctx, step.query, map[string]any{"rows": step.rows})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("neo4j load graph: %w: %w", domain.ErrStoreUnavailable, err)
	}

	logger.Info("loaded graph into neo4j: %d works, %d paragraphs", len(g.Works), len(g.Paragraphs))
	return nil
}

// Ping verifies connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Close releases the driver.
func (s *Store) Close() error {
	return s.driver.Close(context.Background())
}

// stringValue returns a string column, or "" when it is null or missing.
func stringValue(rec *neo4jdrv.Record, key string) string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
