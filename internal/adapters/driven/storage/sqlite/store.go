package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/lexgraph/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/lexgraph/internal/core/domain"
	"github.com/custodia-labs/lexgraph/internal/core/ports/driven"
	"github.com/custodia-labs/lexgraph/internal/logger"
)

// Ensure Store implements the interfaces.
var (
	_ driven.GraphStore  = (*Store)(nil)
	_ driven.GraphLoader = (*Store)(nil)
)

// metaVectorDimensions is the store_meta key holding the index size.
const metaVectorDimensions = "vector_dimensions"

// Store is a SQLite-based graph store.
type Store struct {
	db   *sql.DB
	path string
	dims int
}

// NewStore opens (creating if needed) the graph database in dataDir.
// If dataDir is empty, defaults to ~/.lexgraph/data/graph.db.
//
// dims fixes the vector index size. Zero adopts the size recorded by the
// last load. A recorded size that differs from a non-zero dims is
// ErrDimensionMismatch.
func NewStore(dataDir string, dims int) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".lexgraph", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "graph.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: dbPath}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	if err := s.backfillFolded(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	recorded, err := s.recordedDimensions(context.Background())
	if err != nil {
		db.Close()
		return nil, err
	}
	switch {
	case dims == 0:
		s.dims = recorded
	case recorded != 0 && recorded != dims:
		db.Close()
		return nil, fmt.Errorf("%w: database index has %d dimensions, configured %d",
			domain.ErrDimensionMismatch, recorded, dims)
	default:
		s.dims = dims
	}

	logger.Debug("sqlite graph store opened at %s (dims=%d)", dbPath, s.dims)
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate runs all pending migrations, recording each applied version.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_graph.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// foldedColumns pairs each lowercased column with its source column.
var foldedColumns = []struct{ table, source, folded string }{
	{"works", "title", "title_lc"},
	{"articles", "title", "title_lc"},
	{"articles", "number", "number_lc"},
	{"paragraphs", "text", "text_lc"},
}

// backfillFolded fills lowercased columns left NULL by rows that predate
// them. Folding happens in Go because SQLite's lower() is ASCII-only.
func (s *Store) backfillFolded(ctx context.Context) error {
	for _, c := range foldedColumns {
		rows, err := s.db.QueryContext(ctx,
			fmt.Sprintf("SELECT id, %s FROM %s WHERE %s IS NULL", c.source, c.table, c.folded))
		if err != nil {
			return fmt.Errorf("reading %s.%s: %w", c.table, c.source, err)
		}
		pending := map[string]string{}
		for rows.Next() {
			var id, value string
			if err := rows.Scan(&id, &value); err != nil {
				rows.Close()
				return fmt.Errorf("scanning %s: %w", c.table, err)
			}
			pending[id] = strings.ToLower(value)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterating %s: %w", c.table, err)
		}

		for id, folded := range pending {
			if _, err := s.db.ExecContext(ctx,
				fmt.Sprintf("UPDATE %s SET %s = ? WHERE id = ?", c.table, c.folded), folded, id); err != nil {
				return fmt.Errorf("folding %s %s: %w", c.table, id, err)
			}
		}
		if len(pending) > 0 {
			logger.Debug("backfilled %d %s.%s values", len(pending), c.table, c.folded)
		}
	}
	return nil
}

func (s *Store) recordedDimensions(ctx context.Context) (int, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM store_meta WHERE key = ?", metaVectorDimensions).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading vector dimensions: %w", err)
	}
	dims, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("parsing vector dimensions %q: %w", value, err)
	}
	return dims, nil
}

// VectorDimensions returns the index size.
func (s *Store) VectorDimensions(_ context.Context) (int, error) {
	return s.dims, nil
}

// LoadGraph validates g and replaces the database contents with it in a
// single transaction.
func (s *Store) LoadGraph(ctx context.Context, g *domain.Graph) error {
	if err := g.Validate(); err != nil {
		return err
	}

	dims := s.dims
	for _, p := range g.Paragraphs {
		if len(p.Embedding) == 0 {
			continue
		}
		if dims == 0 {
			dims = len(p.Embedding)
		}
		if len(p.Embedding) != dims {
			return fmt.Errorf("%w: paragraph %s has %d dimensions, index has %d",
				domain.ErrDimensionMismatch, p.ID, len(p.Embedding), dims)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, table := range []string{"paragraphs", "articles", "manifestations", "expressions", "works", "store_meta"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	for _, w := range g.Works {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO works (id, title, title_lc, jurisdiction, authority_level) VALUES (?, ?, ?, ?, ?)",
			w.ID, w.Title, strings.ToLower(w.Title), w.Jurisdiction, w.AuthorityLevel); err != nil {
			return fmt.Errorf("inserting work %s: %w", w.ID, err)
		}
	}
	for _, e := range g.Expressions {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO expressions (id, work_id, valid_from, valid_to) VALUES (?, ?, ?, ?)",
			e.ID, e.WorkID, formatDate(e.ValidFrom), formatDatePtr(e.ValidTo)); err != nil {
			return fmt.Errorf("inserting expression %s: %w", e.ID, err)
		}
	}
	for _, m := range g.Manifestations {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO manifestations (id, expression_id, source_url, content_type, file_hash, published_date)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			m.ID, m.ExpressionID, m.SourceURL, m.ContentType, m.FileHash, formatDatePtr(m.PublishedDate)); err != nil {
			return fmt.Errorf("inserting manifestation %s: %w", m.ID, err)
		}
	}
	for _, a := range g.Articles {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO articles (id, expression_id, number, number_lc, title, title_lc)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			a.ID, a.ExpressionID, a.Number, strings.ToLower(a.Number), a.Title, strings.ToLower(a.Title)); err != nil {
			return fmt.Errorf("inserting article %s: %w", a.ID, err)
		}
	}
	for _, p := range g.Paragraphs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO paragraphs (id, article_id, number, text, text_lc, embedding) VALUES (?, ?, ?, ?, ?, ?)",
			p.ID, p.ArticleID, p.Number, p.Text, strings.ToLower(p.Text), float32SliceToBytes(p.Embedding)); err != nil {
			return fmt.Errorf("inserting paragraph %s: %w", p.ID, err)
		}
	}
	if dims > 0 {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO store_meta (key, value) VALUES (?, ?)",
			metaVectorDimensions, strconv.Itoa(dims)); err != nil {
			return fmt.Errorf("recording vector dimensions: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing graph: %w", err)
	}
	s.dims = dims

	logger.Info("loaded graph: %d works, %d expressions, %d articles, %d paragraphs",
		len(g.Works), len(g.Expressions), len(g.Articles), len(g.Paragraphs))
	return nil
}

// ==================== Helper Functions ====================

func formatDate(t time.Time) string {
	return t.Format(domain.DateLayout)
}

func formatDatePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatDate(*t)
}

func parseDatePtr(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := time.Parse(domain.DateLayout, ns.String)
	if err != nil {
		return nil, fmt.Errorf("parsing stored date %q: %w", ns.String, err)
	}
	return &t, nil
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
