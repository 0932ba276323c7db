// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package graphstore loads the assembled dataset into Neo4j: schema
// setup, batched UNWIND upserts for every node and edge table, article
// sub-type labels, derived analytics properties, and cluster snapshots.
package graphstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/meshintel/citegraph/internal/assemble"
	"github.com/meshintel/citegraph/pkg/types"
)

// ErrStore tags graph database failures so callers can tell them apart
// from local dataset problems with errors.Is.
var ErrStore = errors.New("graph store failure")

// dateLayout is the property format for dates stored on nodes and edges.
const dateLayout = "2006-01-02"

const defaultBatchSize = 500

// Store writes the citation graph into a Neo4j database.
type Store struct {
	driver    neo4j.DriverWithContext
	database  string
	batchSize int
	log       *zap.Logger
}

// Connect opens a driver against cfg and verifies connectivity before
// returning. Callers own the Close.
func Connect(ctx context.Context, cfg types.GraphConfig, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("graphstore: creating driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("graphstore: verifying connectivity to %s: %w: %w", cfg.URI, ErrStore, err)
	}

	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	return &Store{driver: driver, database: cfg.Database, batchSize: batch, log: log}, nil
}

// Close releases the underlying driver.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Store) session(ctx context.Context) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
}

// schemaStatements create the uniqueness constraints and lookup indexes
// the loader relies on. All statements are idempotent.
var schemaStatements = []string{
	"CREATE CONSTRAINT article_uid IF NOT EXISTS FOR (a:Article) REQUIRE a.uid IS UNIQUE",
	"CREATE CONSTRAINT author_uid IF NOT EXISTS FOR (a:Author) REQUIRE a.uid IS UNIQUE",
	"CREATE CONSTRAINT institution_uid IF NOT EXISTS FOR (i:Institution) REQUIRE i.uid IS UNIQUE",
	"CREATE INDEX article_title IF NOT EXISTS FOR (a:Article) ON (a.title)",
	"CREATE INDEX article_is_bbp IF NOT EXISTS FOR (a:Article) ON (a.is_bbp)",
	"CREATE INDEX article_publication_date IF NOT EXISTS FOR (a:Article) ON (a.publication_date)",
	"CREATE INDEX article_scholar_id IF NOT EXISTS FOR (a:Article) ON (a.google_scholar_id)",
	"CREATE INDEX author_name IF NOT EXISTS FOR (a:Author) ON (a.name)",
	"CREATE INDEX author_scholar_id IF NOT EXISTS FOR (a:Author) ON (a.google_scholar_id)",
	"CREATE INDEX institution_name IF NOT EXISTS FOR (i:Institution) ON (i.name)",
	"CREATE INDEX cluster_algorithm IF NOT EXISTS FOR (c:Cluster) ON (c.algorithm)",
}

// EnsureSchema creates constraints and indexes if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	sess := s.session(ctx)
	defer sess.Close(ctx)

	for _, stmt := range schemaStatements {
		if _, err := sess.Run(ctx, stmt, nil); err != nil {
			return fmt.Errorf("graphstore: applying schema: %w: %w", ErrStore, err)
		}
	}
	return nil
}

// Wipe deletes every node and relationship. Used before a full reload.
func (s *Store) Wipe(ctx context.Context) error {
	sess := s.session(ctx)
	defer sess.Close(ctx)

	_, err := sess.Run(ctx, "MATCH (n) DETACH DELETE n", nil)
	if err != nil {
		return fmt.Errorf("graphstore: wiping database: %w: %w", ErrStore, err)
	}
	s.log.Info("graph database wiped", zap.String("stage", "graphstore"))
	return nil
}

// LoadSummary reports how many records of each table were written.
type LoadSummary struct {
	Articles     int
	Authors      int
	Institutions int
	Citations    int
	Authorships  int
	Affiliations int
}

const upsertArticlesCypher = `
UNWIND $rows AS article
MERGE (a:Article {uid: article.uid})
SET a.title = article.title,
    a.source = article.source,
    a.is_bbp = article.is_bbp,
    a.is_published = article.is_published,
    a.publication_date = article.publication_date,
    a.abstract = article.abstract,
    a.doi = article.doi,
    a.pmid = article.pmid,
    a.europmc_id = article.europmc_id,
    a.google_scholar_id = article.google_scholar_id,
    a.url = article.url,
    a.isbns = article.isbns,
    a.citations = article.citations`

const upsertAuthorsCypher = `
UNWIND $rows AS author
MERGE (a:Author {uid: author.uid})
SET a.orcid_id = author.orcid_id,
    a.google_scholar_id = author.google_scholar_id,
    a.name = author.name`

const upsertInstitutionsCypher = `
UNWIND $rows AS institution
MERGE (i:Institution {uid: institution.uid})
SET i.name = institution.name,
    i.organization_id = institution.organization_id,
    i.organization_id_source = institution.organization_id_source`

const upsertCitationsCypher = `
UNWIND $rows AS edge
MATCH (source:Article {uid: edge.source}), (target:Article {uid: edge.target})
MERGE (source)-[:ARTICLE_CITES_ARTICLE]->(target)`

const upsertAuthorshipsCypher = `
UNWIND $rows AS edge
MATCH (author:Author {uid: edge.author}), (article:Article {uid: edge.article})
MERGE (author)-[:WROTE]->(article)`

const upsertAffiliationsCypher = `
UNWIND $rows AS edge
MATCH (author:Author {uid: edge.author}), (institution:Institution {uid: edge.institution})
MERGE (author)-[rel:AFFILIATED_WITH]->(institution)
SET rel.start_date = edge.start_date,
    rel.end_date = edge.end_date,
    rel.is_current = edge.is_current`

// labelCypher adds an article sub-type label to the listed uids.
var labelCypher = map[types.ArticleLabel]string{
	types.LabelThesis:      "MATCH (a:Article) WHERE a.uid IN $uids SET a:Thesis",
	types.LabelBook:        "MATCH (a:Article) WHERE a.uid IN $uids SET a:Book",
	types.LabelUnpublished: "MATCH (a:Article) WHERE a.uid IN $uids SET a:Unpublished",
}

// derivedStatements compute the analytics properties downstream dashboards
// read: citation in-degrees, per-author output counts, and per-institution
// affiliation counts. They run after all nodes and edges are in place.
var derivedStatements = []string{
	`MATCH (source:Article)-[:ARTICLE_CITES_ARTICLE]->(target:Article)
WITH target, count(source) AS n SET target.num_articles_cite = n`,
	`MATCH (author:Author)-[:WROTE]->(:Article)
WITH author, count(*) AS n SET author.num_articles_written = n`,
	`MATCH (author:Author) SET author.wrote_bbp = false`,
	`MATCH (author:Author)-[:WROTE]->(article:Article)
WHERE article.is_bbp WITH DISTINCT author SET author.wrote_bbp = true`,
	`MATCH (:Author)-[:AFFILIATED_WITH]->(institution:Institution)
WITH institution, count(*) AS n SET institution.num_ex_aff_authors = n`,
	`MATCH (:Author)-[aff:AFFILIATED_WITH]->(institution:Institution)
WHERE aff.is_current WITH institution, count(*) AS n
SET institution.num_currently_aff_authors = n`,
}

// Load upserts the whole dataset. Nodes go first so the edge MATCH
// clauses always find their endpoints, then labels and derived
// properties. Batches keep transaction sizes bounded.
func (s *Store) Load(ctx context.Context, ds assemble.Dataset) (LoadSummary, error) {
	sum := LoadSummary{
		Articles:     len(ds.Articles),
		Authors:      len(ds.Authors),
		Institutions: len(ds.Institutions),
		Citations:    len(ds.Citations),
		Authorships:  len(ds.Authorships),
		Affiliations: len(ds.Affiliations),
	}

	sess := s.session(ctx)
	defer sess.Close(ctx)

	steps := []struct {
		name   string
		cypher string
		rows   []map[string]any
	}{
		{"articles", upsertArticlesCypher, articleRows(ds.Articles)},
		{"authors", upsertAuthorsCypher, authorRows(ds.Authors)},
		{"institutions", upsertInstitutionsCypher, institutionRows(ds.Institutions)},
		{"citations", upsertCitationsCypher, citationRows(ds.Citations)},
		{"authorships", upsertAuthorshipsCypher, authorshipRows(ds.Authorships)},
		{"affiliations", upsertAffiliationsCypher, affiliationRows(ds.Affiliations)},
	}

	for _, step := range steps {
		for _, chunk := range chunkRows(step.rows, s.batchSize) {
			if err := s.write(ctx, sess, step.cypher, map[string]any{"rows": chunk}); err != nil {
				return sum, fmt.Errorf("graphstore: loading %s: %w", step.name, err)
			}
		}
		s.log.Info("table loaded",
			zap.String("stage", "graphstore"),
			zap.String("table", step.name),
			zap.Int("rows", len(step.rows)))
	}

	for label, uids := range labelUIDs(ds.Articles) {
		if err := s.write(ctx, sess, labelCypher[label], map[string]any{"uids": uids}); err != nil {
			return sum, fmt.Errorf("graphstore: labeling %s articles: %w", label, err)
		}
	}

	for _, stmt := range derivedStatements {
		if err := s.write(ctx, sess, stmt, nil); err != nil {
			return sum, fmt.Errorf("graphstore: computing derived properties: %w", err)
		}
	}
	return sum, nil
}

// LoadClusters creates one Cluster node per cluster of the analysis and
// links member articles with IN_CLUSTER edges.
func (s *Store) LoadClusters(ctx context.Context, ca types.ClusterAnalysis) error {
	if err := ca.Validate(); err != nil {
		return fmt.Errorf("graphstore: %w", err)
	}

	sess := s.session(ctx)
	defer sess.Close(ctx)

	for clusterID, memberUIDs := range ca.Clusters {
		params := map[string]any{
			"algorithm":  ca.Algorithm,
			"cluster_id": clusterID,
			"parameters": flattenParameters(ca.Parameters),
			"uids":       memberUIDs,
		}
		err := s.write(ctx, sess, `
MERGE (c:Cluster {algorithm: $algorithm, cluster_id: $cluster_id, parameters: $parameters})
WITH c
MATCH (a:Article) WHERE a.uid IN $uids
MERGE (a)-[:IN_CLUSTER]->(c)`, params)
		if err != nil {
			return fmt.Errorf("graphstore: loading cluster %d: %w", clusterID, err)
		}
	}
	return nil
}

func (s *Store) write(ctx context.Context, sess neo4j.SessionWithContext, cypher string, params map[string]any) error {
	_, err := sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	return nil
}

func articleRows(articles []types.Article) []map[string]any {
	rows := make([]map[string]any, 0, len(articles))
	for _, a := range articles {
		rows = append(rows, map[string]any{
			"uid":               a.UID,
			"title":             a.Title,
			"source":            a.Source,
			"is_bbp":            a.IsBBP,
			"is_published":      a.IsPublished,
			"publication_date":  formatDate(a.PublicationDate),
			"abstract":          a.Abstract,
			"doi":               a.DOI,
			"pmid":              a.PMID,
			"europmc_id":        a.EuroPMCID,
			"google_scholar_id": a.GoogleScholarID,
			"url":               a.URL,
			"isbns":             a.ISBNs,
			"citations":         a.Citations,
		})
	}
	return rows
}

func authorRows(authors []types.Author) []map[string]any {
	rows := make([]map[string]any, 0, len(authors))
	for _, a := range authors {
		rows = append(rows, map[string]any{
			"uid":               a.UID,
			"orcid_id":          a.ORCIDID,
			"google_scholar_id": a.GoogleScholarID,
			"name":              a.Name,
		})
	}
	return rows
}

func institutionRows(institutions []types.Institution) []map[string]any {
	rows := make([]map[string]any, 0, len(institutions))
	for _, i := range institutions {
		rows = append(rows, map[string]any{
			"uid":                    i.UID,
			"name":                   i.Name,
			"organization_id":        i.OrganizationID,
			"organization_id_source": string(i.OrganizationIDSource),
		})
	}
	return rows
}

func citationRows(edges []types.ArticleCitesArticle) []map[string]any {
	rows := make([]map[string]any, 0, len(edges))
	for _, e := range edges {
		rows = append(rows, map[string]any{"source": e.SourceUID, "target": e.TargetUID})
	}
	return rows
}

func authorshipRows(edges []types.AuthorWroteArticle) []map[string]any {
	rows := make([]map[string]any, 0, len(edges))
	for _, e := range edges {
		rows = append(rows, map[string]any{"author": e.AuthorUID, "article": e.ArticleUID})
	}
	return rows
}

func affiliationRows(edges []types.AuthorAffiliatedWithInstitution) []map[string]any {
	rows := make([]map[string]any, 0, len(edges))
	for _, e := range edges {
		rows = append(rows, map[string]any{
			"author":      e.AuthorUID,
			"institution": e.InstitutionUID,
			"start_date":  formatDate(e.StartDate),
			"end_date":    formatDate(e.EndDate),
			"is_current":  e.Current,
		})
	}
	return rows
}

// labelUIDs groups article uids by their derived sub-type label.
func labelUIDs(articles []types.Article) map[types.ArticleLabel][]string {
	out := make(map[types.ArticleLabel][]string)
	for _, a := range articles {
		if label := a.Label(); label != types.LabelNone {
			out[label] = append(out[label], a.UID)
		}
	}
	return out
}

// chunkRows splits rows into batches of at most size.
func chunkRows(rows []map[string]any, size int) [][]map[string]any {
	if len(rows) == 0 {
		return nil
	}
	var chunks [][]map[string]any
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		chunks = append(chunks, rows[start:end])
	}
	return chunks
}

// flattenParameters renders the cluster parameter map as a stable string
// property, since Neo4j properties cannot hold maps.
func flattenParameters(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+params[k])
	}
	return strings.Join(parts, ",")
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}
