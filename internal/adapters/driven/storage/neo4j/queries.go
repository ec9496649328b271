package neo4j

import (
	"strings"

	"github.com/custodia-labs/lexgraph/internal/core/domain"
)

// VectorIndexName is the paragraph embedding index queried for similarity.
const VectorIndexName = "paragraph_embedding_index"

// schemaConstraints make every node id unique.
var schemaConstraints = []string{
	"CREATE CONSTRAINT work_id_unique IF NOT EXISTS FOR (w:Work) REQUIRE w.work_id IS UNIQUE",
	"CREATE CONSTRAINT expression_id_unique IF NOT EXISTS FOR (e:Expression) REQUIRE e.expression_id IS UNIQUE",
	"CREATE CONSTRAINT manifestation_id_unique IF NOT EXISTS FOR (m:Manifestation) REQUIRE m.manifestation_id IS UNIQUE",
	"CREATE CONSTRAINT article_id_unique IF NOT EXISTS FOR (a:Article) REQUIRE a.article_id IS UNIQUE",
	"CREATE CONSTRAINT paragraph_id_unique IF NOT EXISTS FOR (p:Paragraph) REQUIRE p.paragraph_id IS UNIQUE",
}

const showVectorIndex = "SHOW INDEXES YIELD name, options WHERE name = $name RETURN options"

// createVectorIndex has the dimension inlined; index options cannot be parameters.
const createVectorIndex = "CREATE VECTOR INDEX " + VectorIndexName + " IF NOT EXISTS " +
	"FOR (p:Paragraph) ON (p.embedding) " +
	"OPTIONS {indexConfig: {`vector.dimensions`: %d, `vector.similarity_function`: 'cosine'}}"

const dropVectorIndex = "DROP INDEX " + VectorIndexName + " IF EXISTS"

// validVersionMatch roots the containment query at each component kind.
var validVersionMatch = map[domain.ComponentKind]string{
	domain.KindWork:       "MATCH (:Work {work_id: $id})-[:HAS_EXPRESSION]->(e:Expression)",
	domain.KindExpression: "MATCH (e:Expression {expression_id: $id})",
	domain.KindArticle:    "MATCH (:Article {article_id: $id})<-[:HAS_ARTICLE]-(e:Expression)",
	domain.KindParagraph:  "MATCH (:Paragraph {paragraph_id: $id})<-[:HAS_PARAGRAPH]-(:Article)<-[:HAS_ARTICLE]-(e:Expression)",
}

// validVersionQuery returns the kind-dispatched containment query. All four
// roots share one WHERE clause.
func validVersionQuery(kind domain.ComponentKind) (string, bool) {
	match, ok := validVersionMatch[kind]
	if !ok {
		return "", false
	}
	return match + " " +
		"WHERE e.valid_from <= date($date) AND (e.valid_to IS NULL OR e.valid_to >= date($date)) " +
		"RETURN DISTINCT e.expression_id AS expression_id, e.work_id AS work_id, " +
		"toString(e.valid_from) AS valid_from, " +
		"CASE WHEN e.valid_to IS NULL THEN null ELSE toString(e.valid_to) END AS valid_to " +
		"ORDER BY expression_id", true
}

// candidateQuery unions work and article matches. Ranking happens in Go so
// every store scores identically.
func candidateQuery(filter domain.CandidateFilter) (string, map[string]any) {
	params := map[string]any{}
	var conds []string
	if filter.Jurisdiction != "" {
		conds = append(conds, "w.jurisdiction = $jurisdiction")
		params["jurisdiction"] = filter.Jurisdiction
	}
	if filter.AuthorityLevel != nil {
		conds = append(conds, "w.authority_level = $authority_level")
		params["authority_level"] = int64(*filter.AuthorityLevel)
	}
	if filter.WorkID != "" {
		conds = append(conds, "w.work_id = $work_id")
		params["work_id"] = filter.WorkID
	}

	where := func(match string) string {
		return strings.Join(append([]string{match}, conds...), " AND ")
	}

	query := "MATCH (w:Work) " +
		"WHERE " + where("toLower(coalesce(w.title, '')) CONTAINS $query") + " " +
		"RETURN 'work' AS kind, w.work_id AS id, w.title AS title " +
		"UNION ALL " +
		"MATCH (w:Work)-[:HAS_EXPRESSION]->(:Expression)-[:HAS_ARTICLE]->(a:Article) " +
		"WHERE " + where("(toLower(coalesce(a.title, '')) CONTAINS $query OR toLower(toString(a.number)) CONTAINS $query)") + " " +
		"RETURN 'article' AS kind, a.article_id AS id, " +
		"CASE WHEN coalesce(a.title, '') = '' THEN toString(a.number) ELSE a.title END AS title"
	return query, params
}

const nearestQuery = "CALL db.index.vector.queryNodes('" + VectorIndexName + "', $k, $embedding) " +
	"YIELD node, score " +
	"MATCH (e:Expression)-[:HAS_ARTICLE]->(:Article)-[:HAS_PARAGRAPH]->(node) " +
	"RETURN node.paragraph_id AS paragraph_id, e.expression_id AS expression_id, score " +
	"ORDER BY score DESC, paragraph_id ASC"

const keywordQuery = "MATCH (:Expression {expression_id: $expression_id})-[:HAS_ARTICLE]->(:Article)-[:HAS_PARAGRAPH]->(p:Paragraph) " +
	"WHERE toLower(p.text) CONTAINS $query " +
	"RETURN p.paragraph_id AS paragraph_id " +
	"ORDER BY paragraph_id ASC LIMIT $limit"

const hydrateQuery = "MATCH (e:Expression {expression_id: $expression_id})-[:HAS_ARTICLE]->(a:Article)-[:HAS_PARAGRAPH]->(p:Paragraph) " +
	"WHERE p.paragraph_id IN $ids " +
	"RETURN p.paragraph_id AS paragraph_id, toString(p.number) AS paragraph_number, p.text AS text, " +
	"a.article_id AS article_id, toString(a.number) AS article_number, coalesce(a.title, '') AS article_title"

const manifestationsQuery = "MATCH (:Expression {expression_id: $expression_id})-[:HAS_MANIFESTATION]->(m:Manifestation) " +
	"RETURN m.manifestation_id AS id, coalesce(m.source_url, '') AS source_url, " +
	"coalesce(m.content_type, '') AS content_type, coalesce(m.file_hash, '') AS file_hash, " +
	"CASE WHEN m.published_date IS NULL THEN null ELSE toString(m.published_date) END AS published_date"

// Write path used by seeding.
const (
	clearGraph = "MATCH (n) WHERE n:Work OR n:Expression OR n:Manifestation OR n:Article OR n:Paragraph DETACH DELETE n"

	mergeWorks = "UNWIND $rows AS row " +
		"MERGE (w:Work {work_id: row.id}) " +
		"SET w.title = row.title, w.jurisdiction = row.jurisdiction, w.authority_level = row.authority_level"

	mergeExpressions = "UNWIND $rows AS row " +
		"MATCH (w:Work {work_id: row.work_id}) " +
		"MERGE (e:Expression {expression_id: row.id}) " +
		"SET e.work_id = row.work_id, e.valid_from = date(row.valid_from), " +
		"e.valid_to = CASE WHEN row.valid_to IS NULL THEN null ELSE date(row.valid_to) END " +
		"MERGE (w)-[:HAS_EXPRESSION]->(e)"

	mergeManifestations = "UNWIND $rows AS row " +
		"MATCH (e:Expression {expression_id: row.expression_id}) " +
		"MERGE (m:Manifestation {manifestation_id: row.id}) " +
		"SET m.expression_id = row.expression_id, m.source_url = row.source_url, " +
		"m.content_type = row.content_type, m.file_hash = row.file_hash, " +
		"m.published_date = CASE WHEN row.published_date IS NULL THEN null ELSE date(row.published_date) END " +
		"MERGE (e)-[:HAS_MANIFESTATION]->(m)"

	mergeArticles = "UNWIND $rows AS row " +
		"MATCH (e:Expression {expression_id: row.expression_id}) " +
		"MERGE (a:Article {article_id: row.id}) " +
		"SET a.number = row.number, a.title = row.title " +
		"MERGE (e)-[:HAS_ARTICLE]->(a)"

	mergeParagraphs = "UNWIND $rows AS row " +
		"MATCH (a:Article {article_id: row.article_id}) " +
		"MERGE (p:Paragraph {paragraph_id: row.id}) " +
		"SET p.number = row.number, p.text = row.text, p.embedding = row.embedding " +
		"MERGE (a)-[:HAS_PARAGRAPH]->(p)"
)
