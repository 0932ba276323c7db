// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package assemble produces the final load-ready dataset from canonical
// entity and edge tables: referential closure, edge deduplication, the
// no-self-citation rule, current-affiliation flagging, and a fully
// deterministic output ordering so repeated runs over unchanged inputs
// are byte-for-byte reproducible.
package assemble

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meshintel/citegraph/pkg/types"
)

// Dataset is the assembled, consistent graph dataset handed to the
// checkpoint writer, the catalog, and the graph store.
type Dataset struct {
	Articles     []types.Article
	Authors      []types.Author
	Institutions []types.Institution
	Citations    []types.ArticleCitesArticle
	Authorships  []types.AuthorWroteArticle
	Affiliations []types.AuthorAffiliatedWithInstitution
}

// TableCounts reports in/out sizes and drop reasons for one edge table.
type TableCounts struct {
	In         int `yaml:"in"`
	Out        int `yaml:"out"`
	Dangling   int `yaml:"dangling"`
	Duplicates int `yaml:"duplicates"`
	Invalid    int `yaml:"invalid"`
}

// Counts is the per-stage audit report for one assembly run.
type Counts struct {
	Articles      int         `yaml:"articles"`
	Authors       int         `yaml:"authors"`
	Institutions  int         `yaml:"institutions"`
	Citations     TableCounts `yaml:"citations"`
	Authorships   TableCounts `yaml:"authorships"`
	Affiliations  TableCounts `yaml:"affiliations"`
	SelfCitations int         `yaml:"self_citations"`
	Theses        int         `yaml:"theses"`
	Books         int         `yaml:"books"`
	Unpublished   int         `yaml:"unpublished"`
}

// RunReport is the operator-facing audit artifact for one pipeline run.
type RunReport struct {
	RunID      string    `yaml:"run_id"`
	FinishedAt time.Time `yaml:"finished_at"`
	Counts     Counts    `yaml:"counts"`
}

// NewRunReport stamps counts with a fresh run id.
func NewRunReport(c Counts) RunReport {
	return RunReport{RunID: uuid.NewString(), FinishedAt: time.Now().UTC(), Counts: c}
}

// Assemble enforces the dataset invariants and returns the consistent,
// deterministically ordered result plus its audit counts. The input is
// not mutated. Dangling and duplicate edges are dropped and counted,
// never silently retained and never fatal.
func Assemble(in Dataset, log *zap.Logger) (Dataset, Counts) {
	if log == nil {
		log = zap.NewNop()
	}
	var counts Counts

	out := Dataset{
		Articles:     dedupeArticles(in.Articles),
		Authors:      dedupeAuthors(in.Authors),
		Institutions: dedupeInstitutions(in.Institutions),
	}

	articleUIDs := make(map[string]bool, len(out.Articles))
	for _, a := range out.Articles {
		articleUIDs[a.UID] = true
		switch a.Label() {
		case types.LabelThesis:
			counts.Theses++
		case types.LabelBook:
			counts.Books++
		case types.LabelUnpublished:
			counts.Unpublished++
		}
	}
	authorUIDs := make(map[string]bool, len(out.Authors))
	for _, a := range out.Authors {
		authorUIDs[a.UID] = true
	}
	institutionUIDs := make(map[string]bool, len(out.Institutions))
	for _, i := range out.Institutions {
		institutionUIDs[i.UID] = true
	}

	out.Citations, counts.Citations = filterCitations(in.Citations, articleUIDs, &counts.SelfCitations, log)
	out.Authorships, counts.Authorships = filterAuthorships(in.Authorships, authorUIDs, articleUIDs, log)
	out.Affiliations, counts.Affiliations = filterAffiliations(in.Affiliations, authorUIDs, institutionUIDs, log)
	out.Affiliations = flagCurrentAffiliations(out.Affiliations)

	sortDataset(&out)

	counts.Articles = len(out.Articles)
	counts.Authors = len(out.Authors)
	counts.Institutions = len(out.Institutions)

	log.Info("dataset assembled",
		zap.String("stage", "assemble"),
		zap.Int("articles", counts.Articles),
		zap.Int("authors", counts.Authors),
		zap.Int("institutions", counts.Institutions),
		zap.Int("citations", counts.Citations.Out),
		zap.Int("dangling_citations", counts.Citations.Dangling),
		zap.Int("self_citations", counts.SelfCitations))

	return out, counts
}

func dedupeArticles(in []types.Article) []types.Article {
	seen := make(map[string]bool, len(in))
	out := make([]types.Article, 0, len(in))
	for _, a := range in {
		if a.UID == "" || seen[a.UID] {
			continue
		}
		seen[a.UID] = true
		out = append(out, a)
	}
	return out
}

func dedupeAuthors(in []types.Author) []types.Author {
	seen := make(map[string]bool, len(in))
	out := make([]types.Author, 0, len(in))
	for _, a := range in {
		if a.UID == "" || seen[a.UID] {
			continue
		}
		seen[a.UID] = true
		out = append(out, a)
	}
	return out
}

func dedupeInstitutions(in []types.Institution) []types.Institution {
	seen := make(map[string]bool, len(in))
	out := make([]types.Institution, 0, len(in))
	for _, i := range in {
		if i.UID == "" || seen[i.UID] {
			continue
		}
		seen[i.UID] = true
		out = append(out, i)
	}
	return out
}

func filterCitations(in []types.ArticleCitesArticle, articles map[string]bool, selfCites *int, log *zap.Logger) ([]types.ArticleCitesArticle, TableCounts) {
	c := TableCounts{In: len(in)}
	seen := make(map[types.ArticleCitesArticle]bool, len(in))
	out := make([]types.ArticleCitesArticle, 0, len(in))
	for _, e := range in {
		if e.SourceUID == e.TargetUID {
			*selfCites++
			continue
		}
		if err := e.Validate(); err != nil {
			c.Invalid++
			continue
		}
		if !articles[e.SourceUID] || !articles[e.TargetUID] {
			c.Dangling++
			continue
		}
		if seen[e] {
			c.Duplicates++
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	c.Out = len(out)
	if c.Dangling > 0 {
		log.Warn("dropped dangling citation edges",
			zap.String("stage", "assemble"), zap.Int("count", c.Dangling))
	}
	return out, c
}

func filterAuthorships(in []types.AuthorWroteArticle, authors, articles map[string]bool, log *zap.Logger) ([]types.AuthorWroteArticle, TableCounts) {
	c := TableCounts{In: len(in)}
	seen := make(map[types.AuthorWroteArticle]bool, len(in))
	out := make([]types.AuthorWroteArticle, 0, len(in))
	for _, e := range in {
		if err := e.Validate(); err != nil {
			c.Invalid++
			continue
		}
		if !authors[e.AuthorUID] || !articles[e.ArticleUID] {
			c.Dangling++
			continue
		}
		if seen[e] {
			c.Duplicates++
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	c.Out = len(out)
	if c.Dangling > 0 {
		log.Warn("dropped dangling authorship edges",
			zap.String("stage", "assemble"), zap.Int("count", c.Dangling))
	}
	return out, c
}

func filterAffiliations(in []types.AuthorAffiliatedWithInstitution, authors, institutions map[string]bool, log *zap.Logger) ([]types.AuthorAffiliatedWithInstitution, TableCounts) {
	c := TableCounts{In: len(in)}
	type pair struct{ author, institution string }
	seen := make(map[pair]bool, len(in))
	out := make([]types.AuthorAffiliatedWithInstitution, 0, len(in))
	for _, e := range in {
		if err := e.Validate(); err != nil {
			c.Invalid++
			continue
		}
		if !authors[e.AuthorUID] || !institutions[e.InstitutionUID] {
			c.Dangling++
			continue
		}
		k := pair{e.AuthorUID, e.InstitutionUID}
		if seen[k] {
			c.Duplicates++
			continue
		}
		seen[k] = true
		out = append(out, e)
	}
	c.Out = len(out)
	if c.Dangling > 0 {
		log.Warn("dropped dangling affiliation edges",
			zap.String("stage", "assemble"), zap.Int("count", c.Dangling))
	}
	return out, c
}

// flagCurrentAffiliations marks at most one affiliation per author as
// current: the ongoing one (no end date) with the latest start date. Ties
// resolve to the lexicographically smallest institution uid so the result
// does not depend on input order.
func flagCurrentAffiliations(in []types.AuthorAffiliatedWithInstitution) []types.AuthorAffiliatedWithInstitution {
	best := make(map[string]int)
	for i, e := range in {
		if !e.EndDate.IsZero() || e.StartDate.IsZero() {
			continue
		}
		j, ok := best[e.AuthorUID]
		if !ok {
			best[e.AuthorUID] = i
			continue
		}
		switch {
		case e.StartDate.After(in[j].StartDate):
			best[e.AuthorUID] = i
		case e.StartDate.Equal(in[j].StartDate) && e.InstitutionUID < in[j].InstitutionUID:
			best[e.AuthorUID] = i
		}
	}

	out := make([]types.AuthorAffiliatedWithInstitution, len(in))
	copy(out, in)
	for i := range out {
		out[i].Current = false
	}
	for _, i := range best {
		out[i].Current = true
	}
	return out
}

// Canonical returns a copy of d with duplicate edges removed (first
// occurrence wins) and every table in the canonical output order. The
// checkpoint writer runs every dataset through this, so on-disk tables
// never depend on fetch-arrival order; Assemble applies the same ordering
// after its stricter validation passes.
func Canonical(d Dataset) Dataset {
	out := Dataset{
		Articles:     append([]types.Article(nil), d.Articles...),
		Authors:      append([]types.Author(nil), d.Authors...),
		Institutions: append([]types.Institution(nil), d.Institutions...),
		Citations:    dedupeCitations(d.Citations),
		Authorships:  dedupeAuthorships(d.Authorships),
		Affiliations: dedupeAffiliations(d.Affiliations),
	}
	sortDataset(&out)
	return out
}

func dedupeCitations(in []types.ArticleCitesArticle) []types.ArticleCitesArticle {
	seen := make(map[types.ArticleCitesArticle]bool, len(in))
	out := make([]types.ArticleCitesArticle, 0, len(in))
	for _, e := range in {
		if seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

func dedupeAuthorships(in []types.AuthorWroteArticle) []types.AuthorWroteArticle {
	seen := make(map[types.AuthorWroteArticle]bool, len(in))
	out := make([]types.AuthorWroteArticle, 0, len(in))
	for _, e := range in {
		if seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

func dedupeAffiliations(in []types.AuthorAffiliatedWithInstitution) []types.AuthorAffiliatedWithInstitution {
	type pair struct{ author, institution string }
	seen := make(map[pair]bool, len(in))
	out := make([]types.AuthorAffiliatedWithInstitution, 0, len(in))
	for _, e := range in {
		k := pair{e.AuthorUID, e.InstitutionUID}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, e)
	}
	return out
}

// sortDataset applies the canonical output ordering: entities by uid,
// citation edges by (source, target), authorships by (author, article),
// affiliations by (author, institution).
func sortDataset(d *Dataset) {
	sort.Slice(d.Articles, func(i, j int) bool { return d.Articles[i].UID < d.Articles[j].UID })
	sort.Slice(d.Authors, func(i, j int) bool { return d.Authors[i].UID < d.Authors[j].UID })
	sort.Slice(d.Institutions, func(i, j int) bool { return d.Institutions[i].UID < d.Institutions[j].UID })
	sort.Slice(d.Citations, func(i, j int) bool {
		a, b := d.Citations[i], d.Citations[j]
		if a.SourceUID != b.SourceUID {
			return a.SourceUID < b.SourceUID
		}
		return a.TargetUID < b.TargetUID
	})
	sort.Slice(d.Authorships, func(i, j int) bool {
		a, b := d.Authorships[i], d.Authorships[j]
		if a.AuthorUID != b.AuthorUID {
			return a.AuthorUID < b.AuthorUID
		}
		return a.ArticleUID < b.ArticleUID
	})
	sort.Slice(d.Affiliations, func(i, j int) bool {
		a, b := d.Affiliations[i], d.Affiliations[j]
		if a.AuthorUID != b.AuthorUID {
			return a.AuthorUID < b.AuthorUID
		}
		return a.InstitutionUID < b.InstitutionUID
	})
}
