// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog maintains a local SQLite mirror of the assembled
// dataset with a full-text index over article titles and abstracts.
// Operators use it to answer "do we already know this article" without a
// graph database round-trip, and the gather stage uses it to seed
// incremental runs.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/meshintel/citegraph/internal/assemble"
	"github.com/meshintel/citegraph/pkg/types"
)

const dbFile = "citegraph.db"

const dateLayout = "2006-01-02"

// Catalog wraps the SQLite database holding the dataset mirror.
type Catalog struct {
	db         *sql.DB
	maxResults int
}

// Open opens or creates the catalog database under dataDir, creating the
// schema when missing.
func Open(cfg types.CatalogConfig) (*Catalog, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating catalog directory: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening catalog database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	c := &Catalog{db: db, maxResults: maxResults}
	if err := c.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating catalog schema: %w", err)
	}
	return c, nil
}

// Close releases the database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}

func (c *Catalog) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS articles (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			uid TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			source TEXT NOT NULL,
			is_bbp INTEGER NOT NULL,
			is_published INTEGER NOT NULL,
			publication_date TEXT,
			abstract TEXT,
			doi TEXT,
			pmid TEXT,
			europmc_id TEXT,
			google_scholar_id TEXT,
			url TEXT,
			isbns TEXT,
			citations INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS authors (
			uid TEXT PRIMARY KEY,
			orcid_id TEXT,
			google_scholar_id TEXT,
			name TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS institutions (
			uid TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			organization_id TEXT NOT NULL,
			organization_id_source TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS article_cites_article (
			source_uid TEXT NOT NULL,
			target_uid TEXT NOT NULL,
			PRIMARY KEY (source_uid, target_uid)
		)`,
		`CREATE TABLE IF NOT EXISTS author_wrote_article (
			author_uid TEXT NOT NULL,
			article_uid TEXT NOT NULL,
			PRIMARY KEY (author_uid, article_uid)
		)`,
		`CREATE TABLE IF NOT EXISTS author_affiliated_with_institution (
			author_uid TEXT NOT NULL,
			institution_uid TEXT NOT NULL,
			start_date TEXT,
			end_date TEXT,
			is_current INTEGER NOT NULL,
			PRIMARY KEY (author_uid, institution_uid)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_doi ON articles(doi)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_scholar ON articles(google_scholar_id)`,
		`CREATE INDEX IF NOT EXISTS idx_wrote_article ON author_wrote_article(article_uid)`,
	}
	for _, stmt := range statements {
		if _, err := c.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := c.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='articles_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}
	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE articles_fts USING fts5(title, abstract, content=articles, content_rowid=rowid)`,
			`CREATE TRIGGER articles_ai AFTER INSERT ON articles BEGIN
				INSERT INTO articles_fts(rowid, title, abstract) VALUES (new.rowid, new.title, new.abstract);
			END`,
			`CREATE TRIGGER articles_ad AFTER DELETE ON articles BEGIN
				INSERT INTO articles_fts(articles_fts, rowid, title, abstract) VALUES('delete', old.rowid, old.title, old.abstract);
			END`,
			`CREATE TRIGGER articles_au AFTER UPDATE ON articles BEGIN
				INSERT INTO articles_fts(articles_fts, rowid, title, abstract) VALUES('delete', old.rowid, old.title, old.abstract);
				INSERT INTO articles_fts(rowid, title, abstract) VALUES (new.rowid, new.title, new.abstract);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := c.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}
	return nil
}

// Replace mirrors the dataset into the catalog, replacing any previous
// contents in one transaction so readers never see a half-replaced
// catalog.
func (c *Catalog) Replace(ctx context.Context, ds assemble.Dataset) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{
		"article_cites_article", "author_wrote_article",
		"author_affiliated_with_institution",
		"articles", "authors", "institutions",
	} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO articles (uid, title, source, is_bbp, is_published, publication_date,
			abstract, doi, pmid, europmc_id, google_scholar_id, url, isbns, citations)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing article insert: %w", err)
	}
	defer stmt.Close()
	for _, a := range ds.Articles {
		_, err := stmt.ExecContext(ctx,
			a.UID, a.Title, a.Source, a.IsBBP, a.IsPublished, formatDate(a.PublicationDate),
			a.Abstract, a.DOI, a.PMID, a.EuroPMCID, a.GoogleScholarID, a.URL, a.ISBNs, a.Citations)
		if err != nil {
			return fmt.Errorf("inserting article %s: %w", a.UID, err)
		}
	}

	for _, a := range ds.Authors {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO authors (uid, orcid_id, google_scholar_id, name) VALUES (?, ?, ?, ?)`,
			a.UID, a.ORCIDID, a.GoogleScholarID, a.Name)
		if err != nil {
			return fmt.Errorf("inserting author %s: %w", a.UID, err)
		}
	}
	for _, i := range ds.Institutions {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO institutions (uid, name, organization_id, organization_id_source) VALUES (?, ?, ?, ?)`,
			i.UID, i.Name, i.OrganizationID, string(i.OrganizationIDSource))
		if err != nil {
			return fmt.Errorf("inserting institution %s: %w", i.UID, err)
		}
	}
	for _, e := range ds.Citations {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO article_cites_article (source_uid, target_uid) VALUES (?, ?)`,
			e.SourceUID, e.TargetUID)
		if err != nil {
			return fmt.Errorf("inserting citation edge: %w", err)
		}
	}
	for _, e := range ds.Authorships {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO author_wrote_article (author_uid, article_uid) VALUES (?, ?)`,
			e.AuthorUID, e.ArticleUID)
		if err != nil {
			return fmt.Errorf("inserting authorship edge: %w", err)
		}
	}
	for _, e := range ds.Affiliations {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO author_affiliated_with_institution
				(author_uid, institution_uid, start_date, end_date, is_current)
			 VALUES (?, ?, ?, ?, ?)`,
			e.AuthorUID, e.InstitutionUID, formatDate(e.StartDate), formatDate(e.EndDate), e.Current)
		if err != nil {
			return fmt.Errorf("inserting affiliation edge: %w", err)
		}
	}

	return tx.Commit()
}

// SearchResult is one full-text hit.
type SearchResult struct {
	Article types.Article
	Rank    float64
}

// Search runs an FTS5 query over titles and abstracts and returns up to
// maxResults articles, best match first.
func (c *Catalog) Search(ctx context.Context, query string) ([]SearchResult, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT a.uid, a.title, a.source, a.is_bbp, a.is_published, a.publication_date,
			a.abstract, a.doi, a.pmid, a.europmc_id, a.google_scholar_id, a.url, a.isbns,
			a.citations, articles_fts.rank
		 FROM articles_fts
		 JOIN articles a ON a.rowid = articles_fts.rowid
		 WHERE articles_fts MATCH ?
		 ORDER BY articles_fts.rank
		 LIMIT ?`, query, c.maxResults)
	if err != nil {
		return nil, fmt.Errorf("searching catalog: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var pubDate string
		if err := rows.Scan(
			&r.Article.UID, &r.Article.Title, &r.Article.Source,
			&r.Article.IsBBP, &r.Article.IsPublished, &pubDate,
			&r.Article.Abstract, &r.Article.DOI, &r.Article.PMID,
			&r.Article.EuroPMCID, &r.Article.GoogleScholarID,
			&r.Article.URL, &r.Article.ISBNs, &r.Article.Citations, &r.Rank,
		); err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		r.Article.PublicationDate = parseDate(pubDate)
		out = append(out, r)
	}
	return out, rows.Err()
}

// ArticlesByAuthor returns the articles written by the given author uid,
// newest first.
func (c *Catalog) ArticlesByAuthor(ctx context.Context, authorUID string) ([]types.Article, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT a.uid, a.title, a.source, a.citations, a.publication_date
		 FROM author_wrote_article w
		 JOIN articles a ON a.uid = w.article_uid
		 WHERE w.author_uid = ?
		 ORDER BY a.publication_date DESC, a.uid`, authorUID)
	if err != nil {
		return nil, fmt.Errorf("querying author articles: %w", err)
	}
	defer rows.Close()

	var out []types.Article
	for rows.Next() {
		var a types.Article
		var pubDate string
		if err := rows.Scan(&a.UID, &a.Title, &a.Source, &a.Citations, &pubDate); err != nil {
			return nil, fmt.Errorf("scanning article: %w", err)
		}
		a.PublicationDate = parseDate(pubDate)
		out = append(out, a)
	}
	return out, rows.Err()
}

// Stats holds per-table row counts.
type Stats struct {
	Articles     int
	Authors      int
	Institutions int
	Citations    int
	Authorships  int
	Affiliations int
}

// Stats reports the catalog's table sizes.
func (c *Catalog) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	counts := []struct {
		table string
		dest  *int
	}{
		{"articles", &s.Articles},
		{"authors", &s.Authors},
		{"institutions", &s.Institutions},
		{"article_cites_article", &s.Citations},
		{"author_wrote_article", &s.Authorships},
		{"author_affiliated_with_institution", &s.Affiliations},
	}
	for _, cnt := range counts {
		if err := c.db.QueryRowContext(ctx, "SELECT count(*) FROM "+cnt.table).Scan(cnt.dest); err != nil {
			return s, fmt.Errorf("counting %s: %w", cnt.table, err)
		}
	}
	return s, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
