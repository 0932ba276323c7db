// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package checkpoint persists the canonical tables as CSV files between
// pipeline stages. Every table carries a header row; identifiers are
// written as strings so spreadsheet tools cannot mangle them; files are
// replaced atomically so a crash mid-write never leaves a half-written
// checkpoint behind. Rows go to disk in the canonical order regardless of
// the order a stage produced them, so checkpoints of the same data are
// byte-for-byte identical.
package checkpoint

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/meshintel/citegraph/internal/assemble"
	"github.com/meshintel/citegraph/pkg/types"
)

// Canonical table file names under the checkpoint directory.
const (
	ArticlesFile     = "articles_processed.csv"
	AuthorsFile      = "authors.csv"
	InstitutionsFile = "institutions.csv"
	CitationsFile    = "article_cites_article.csv"
	AuthorshipsFile  = "author_wrote_article.csv"
	AffiliationsFile = "author_affiliated_with_institution.csv"
)

// dateLayout is the on-disk date format. Zero times serialize as "".
const dateLayout = "2006-01-02"

var articleHeader = []string{
	"uid", "title", "source", "is_bbp", "is_published", "publication_date",
	"abstract", "doi", "pmid", "europmc_id", "google_scholar_id", "url",
	"isbns", "citations",
}

var authorHeader = []string{"uid", "orcid_id", "google_scholar_id", "name"}

var institutionHeader = []string{"uid", "name", "organization_id", "organization_id_source"}

var citationHeader = []string{"article_uid_source", "article_uid_target"}

var authorshipHeader = []string{"author_uid", "article_uid"}

var affiliationHeader = []string{"author_uid", "institution_uid", "start_date", "end_date", "is_current"}

// Save writes every canonical table of ds under dir, creating dir if
// needed. Tables are sorted into the canonical order and duplicate edges
// dropped before writing. Each table is written to a temporary file and
// renamed into place, so concurrent readers always see either the old or
// the new checkpoint, never a torn one.
func Save(dir string, ds assemble.Dataset) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating checkpoint dir: %w", err)
	}
	ds = assemble.Canonical(ds)

	tables := []struct {
		name   string
		header []string
		rows   [][]string
	}{
		{ArticlesFile, articleHeader, articleRows(ds.Articles)},
		{AuthorsFile, authorHeader, authorRows(ds.Authors)},
		{InstitutionsFile, institutionHeader, institutionRows(ds.Institutions)},
		{CitationsFile, citationHeader, citationRows(ds.Citations)},
		{AuthorshipsFile, authorshipHeader, authorshipRows(ds.Authorships)},
		{AffiliationsFile, affiliationHeader, affiliationRows(ds.Affiliations)},
	}
	for _, t := range tables {
		if err := writeTable(filepath.Join(dir, t.name), t.header, t.rows); err != nil {
			return err
		}
	}
	return nil
}

// Load reads every canonical table under dir. A missing table file is not
// an error; the corresponding slice is left empty so stages can resume
// from partial checkpoints.
func Load(dir string) (assemble.Dataset, error) {
	var ds assemble.Dataset
	var err error

	if ds.Articles, err = LoadArticles(dir); err != nil {
		return ds, err
	}
	if ds.Authors, err = LoadAuthors(dir); err != nil {
		return ds, err
	}
	if ds.Institutions, err = LoadInstitutions(dir); err != nil {
		return ds, err
	}
	if ds.Citations, err = LoadCitations(dir); err != nil {
		return ds, err
	}
	if ds.Authorships, err = LoadAuthorships(dir); err != nil {
		return ds, err
	}
	ds.Affiliations, err = LoadAffiliations(dir)
	return ds, err
}

// SaveArticles writes just the article table, for stages that refresh one
// table without touching the rest of the checkpoint.
func SaveArticles(dir string, articles []types.Article) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating checkpoint dir: %w", err)
	}
	sorted := append([]types.Article(nil), articles...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].UID < sorted[j].UID })
	return writeTable(filepath.Join(dir, ArticlesFile), articleHeader, articleRows(sorted))
}

// SaveAuthors writes just the author table.
func SaveAuthors(dir string, authors []types.Author) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating checkpoint dir: %w", err)
	}
	sorted := append([]types.Author(nil), authors...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].UID < sorted[j].UID })
	return writeTable(filepath.Join(dir, AuthorsFile), authorHeader, authorRows(sorted))
}

// LoadArticles reads the article table. Missing file yields an empty slice.
func LoadArticles(dir string) ([]types.Article, error) {
	rows, err := readTable(filepath.Join(dir, ArticlesFile), len(articleHeader))
	if err != nil || rows == nil {
		return nil, err
	}
	out := make([]types.Article, 0, len(rows))
	for i, r := range rows {
		pub, err := parseDate(r[5])
		if err != nil {
			return nil, rowErr(ArticlesFile, i, err)
		}
		cites, err := parseCount(r[13])
		if err != nil {
			return nil, rowErr(ArticlesFile, i, err)
		}
		out = append(out, types.Article{
			UID: r[0], Title: r[1], Source: r[2],
			IsBBP: r[3] == "true", IsPublished: r[4] == "true",
			PublicationDate: pub, Abstract: r[6], DOI: r[7], PMID: r[8],
			EuroPMCID: r[9], GoogleScholarID: r[10], URL: r[11],
			ISBNs: r[12], Citations: cites,
		})
	}
	return out, nil
}

// LoadAuthors reads the author table. Missing file yields an empty slice.
func LoadAuthors(dir string) ([]types.Author, error) {
	rows, err := readTable(filepath.Join(dir, AuthorsFile), len(authorHeader))
	if err != nil || rows == nil {
		return nil, err
	}
	out := make([]types.Author, 0, len(rows))
	for _, r := range rows {
		out = append(out, types.Author{UID: r[0], ORCIDID: r[1], GoogleScholarID: r[2], Name: r[3]})
	}
	return out, nil
}

// LoadInstitutions reads the institution table. Missing file yields an
// empty slice.
func LoadInstitutions(dir string) ([]types.Institution, error) {
	rows, err := readTable(filepath.Join(dir, InstitutionsFile), len(institutionHeader))
	if err != nil || rows == nil {
		return nil, err
	}
	out := make([]types.Institution, 0, len(rows))
	for _, r := range rows {
		out = append(out, types.Institution{
			UID: r[0], Name: r[1], OrganizationID: r[2],
			OrganizationIDSource: types.OrganizationIDSource(r[3]),
		})
	}
	return out, nil
}

// LoadCitations reads the citation edge table.
func LoadCitations(dir string) ([]types.ArticleCitesArticle, error) {
	rows, err := readTable(filepath.Join(dir, CitationsFile), len(citationHeader))
	if err != nil || rows == nil {
		return nil, err
	}
	out := make([]types.ArticleCitesArticle, 0, len(rows))
	for _, r := range rows {
		out = append(out, types.ArticleCitesArticle{SourceUID: r[0], TargetUID: r[1]})
	}
	return out, nil
}

// LoadAuthorships reads the authorship edge table.
func LoadAuthorships(dir string) ([]types.AuthorWroteArticle, error) {
	rows, err := readTable(filepath.Join(dir, AuthorshipsFile), len(authorshipHeader))
	if err != nil || rows == nil {
		return nil, err
	}
	out := make([]types.AuthorWroteArticle, 0, len(rows))
	for _, r := range rows {
		out = append(out, types.AuthorWroteArticle{AuthorUID: r[0], ArticleUID: r[1]})
	}
	return out, nil
}

// LoadAffiliations reads the affiliation edge table.
func LoadAffiliations(dir string) ([]types.AuthorAffiliatedWithInstitution, error) {
	rows, err := readTable(filepath.Join(dir, AffiliationsFile), len(affiliationHeader))
	if err != nil || rows == nil {
		return nil, err
	}
	out := make([]types.AuthorAffiliatedWithInstitution, 0, len(rows))
	for i, r := range rows {
		start, err := parseDate(r[2])
		if err != nil {
			return nil, rowErr(AffiliationsFile, i, err)
		}
		end, err := parseDate(r[3])
		if err != nil {
			return nil, rowErr(AffiliationsFile, i, err)
		}
		out = append(out, types.AuthorAffiliatedWithInstitution{
			AuthorUID: r[0], InstitutionUID: r[1],
			StartDate: start, EndDate: end, Current: r[4] == "true",
		})
	}
	return out, nil
}

func articleRows(articles []types.Article) [][]string {
	rows := make([][]string, 0, len(articles))
	for _, a := range articles {
		rows = append(rows, []string{
			a.UID, a.Title, a.Source,
			strconv.FormatBool(a.IsBBP), strconv.FormatBool(a.IsPublished),
			formatDate(a.PublicationDate), a.Abstract, a.DOI, a.PMID,
			a.EuroPMCID, a.GoogleScholarID, a.URL, a.ISBNs,
			strconv.Itoa(a.Citations),
		})
	}
	return rows
}

func authorRows(authors []types.Author) [][]string {
	rows := make([][]string, 0, len(authors))
	for _, a := range authors {
		rows = append(rows, []string{a.UID, a.ORCIDID, a.GoogleScholarID, a.Name})
	}
	return rows
}

func institutionRows(institutions []types.Institution) [][]string {
	rows := make([][]string, 0, len(institutions))
	for _, i := range institutions {
		rows = append(rows, []string{i.UID, i.Name, i.OrganizationID, string(i.OrganizationIDSource)})
	}
	return rows
}

func citationRows(edges []types.ArticleCitesArticle) [][]string {
	rows := make([][]string, 0, len(edges))
	for _, e := range edges {
		rows = append(rows, []string{e.SourceUID, e.TargetUID})
	}
	return rows
}

func authorshipRows(edges []types.AuthorWroteArticle) [][]string {
	rows := make([][]string, 0, len(edges))
	for _, e := range edges {
		rows = append(rows, []string{e.AuthorUID, e.ArticleUID})
	}
	return rows
}

func affiliationRows(edges []types.AuthorAffiliatedWithInstitution) [][]string {
	rows := make([][]string, 0, len(edges))
	for _, e := range edges {
		rows = append(rows, []string{
			e.AuthorUID, e.InstitutionUID,
			formatDate(e.StartDate), formatDate(e.EndDate),
			strconv.FormatBool(e.Current),
		})
	}
	return rows
}

// writeTable writes header+rows to a temp file in the target directory and
// renames it over path.
func writeTable(path string, header []string, rows [][]string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := w.WriteAll(rows); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// readTable reads a CSV table, validating the column count and skipping
// the header. A missing file returns (nil, nil).
func readTable(path string, columns int) ([][]string, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = columns
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("reading %s: missing header row", path)
	}
	return records[1:], nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, s)
}

func parseCount(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func rowErr(file string, row int, err error) error {
	return fmt.Errorf("%s row %d: %w", file, row+1, err)
}
