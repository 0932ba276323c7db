// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package assemble

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshintel/citegraph/pkg/types"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

// Referential closure: every surviving edge endpoint resolves to a node in
// the dataset. Dangling edges are dropped and counted, never kept.
func TestReferentialClosure(t *testing.T) {
	in := Dataset{
		Articles: []types.Article{
			{UID: "a1", Title: "One", Source: types.SourceEuroPMC},
			{UID: "a2", Title: "Two", Source: types.SourceEuroPMC},
		},
		Authors: []types.Author{
			{UID: "0000-0002-1825-0097", ORCIDID: "0000-0002-1825-0097", Name: "John Smith"},
		},
		Citations: []types.ArticleCitesArticle{
			{SourceUID: "a1", TargetUID: "a2"},
			{SourceUID: "a1", TargetUID: "ghost"}, // dangling target
		},
		Authorships: []types.AuthorWroteArticle{
			{AuthorUID: "0000-0002-1825-0097", ArticleUID: "a1"},
			{AuthorUID: "nobody", ArticleUID: "a1"}, // dangling author
		},
	}

	out, counts := Assemble(in, nil)

	require.Len(t, out.Citations, 1)
	assert.Equal(t, "a2", out.Citations[0].TargetUID)
	assert.Equal(t, 1, counts.Citations.Dangling)

	require.Len(t, out.Authorships, 1)
	assert.Equal(t, 1, counts.Authorships.Dangling)

	nodes := map[string]bool{"a1": true, "a2": true}
	for _, c := range out.Citations {
		assert.True(t, nodes[c.SourceUID] && nodes[c.TargetUID])
	}
}

func TestSelfCitationsDropped(t *testing.T) {
	in := Dataset{
		Articles: []types.Article{{UID: "a1", Title: "One", Source: types.SourceEuroPMC}},
		Citations: []types.ArticleCitesArticle{
			{SourceUID: "a1", TargetUID: "a1"},
		},
	}
	out, counts := Assemble(in, nil)
	assert.Empty(t, out.Citations)
	assert.Equal(t, 1, counts.SelfCitations)
}

func TestEdgeDeduplication(t *testing.T) {
	in := Dataset{
		Articles: []types.Article{
			{UID: "a1", Title: "One", Source: types.SourceEuroPMC},
			{UID: "a2", Title: "Two", Source: types.SourceEuroPMC},
		},
		Citations: []types.ArticleCitesArticle{
			{SourceUID: "a1", TargetUID: "a2"},
			{SourceUID: "a1", TargetUID: "a2"},
		},
	}
	out, counts := Assemble(in, nil)
	require.Len(t, out.Citations, 1)
	assert.Equal(t, 1, counts.Citations.Duplicates)
}

// Output ordering is canonical regardless of input order, so repeated
// runs over unchanged inputs produce identical datasets.
func TestDeterministicOrdering(t *testing.T) {
	forward := Dataset{
		Articles: []types.Article{
			{UID: "a1", Title: "One", Source: types.SourceEuroPMC},
			{UID: "a2", Title: "Two", Source: types.SourceEuroPMC},
			{UID: "a3", Title: "Three", Source: types.SourceEuroPMC},
		},
		Citations: []types.ArticleCitesArticle{
			{SourceUID: "a3", TargetUID: "a1"},
			{SourceUID: "a1", TargetUID: "a2"},
			{SourceUID: "a1", TargetUID: "a3"},
		},
	}
	reversed := Dataset{
		Articles:  []types.Article{forward.Articles[2], forward.Articles[1], forward.Articles[0]},
		Citations: []types.ArticleCitesArticle{forward.Citations[2], forward.Citations[1], forward.Citations[0]},
	}

	a, _ := Assemble(forward, nil)
	b, _ := Assemble(reversed, nil)
	assert.Equal(t, a, b)

	assert.Equal(t, "a1", a.Articles[0].UID)
	assert.Equal(t, types.ArticleCitesArticle{SourceUID: "a1", TargetUID: "a2"}, a.Citations[0])
}

// At most one affiliation per author is current: the ongoing one with the
// latest start date.
func TestCurrentAffiliationFlag(t *testing.T) {
	in := Dataset{
		Authors: []types.Author{
			{UID: "0000-0002-1825-0097", ORCIDID: "0000-0002-1825-0097", Name: "John Smith"},
		},
		Institutions: []types.Institution{
			{UID: "02s376052", Name: "EPFL", OrganizationID: "02s376052", OrganizationIDSource: types.OrgIDROR},
			{UID: "01ggx4157", Name: "CERN", OrganizationID: "01ggx4157", OrganizationIDSource: types.OrgIDROR},
		},
		Affiliations: []types.AuthorAffiliatedWithInstitution{
			// Ongoing but older.
			{AuthorUID: "0000-0002-1825-0097", InstitutionUID: "01ggx4157", StartDate: date(2015, 1, 1), Current: true},
			// Ongoing and latest: this one wins.
			{AuthorUID: "0000-0002-1825-0097", InstitutionUID: "02s376052", StartDate: date(2020, 9, 1)},
		},
	}

	out, _ := Assemble(in, nil)
	require.Len(t, out.Affiliations, 2)

	var current []string
	for _, a := range out.Affiliations {
		if a.Current {
			current = append(current, a.InstitutionUID)
		}
	}
	assert.Equal(t, []string{"02s376052"}, current)
}

func TestEndedAffiliationNeverCurrent(t *testing.T) {
	in := Dataset{
		Authors: []types.Author{
			{UID: "0000-0002-1825-0097", ORCIDID: "0000-0002-1825-0097", Name: "John Smith"},
		},
		Institutions: []types.Institution{
			{UID: "02s376052", Name: "EPFL", OrganizationID: "02s376052", OrganizationIDSource: types.OrgIDROR},
		},
		Affiliations: []types.AuthorAffiliatedWithInstitution{
			{AuthorUID: "0000-0002-1825-0097", InstitutionUID: "02s376052",
				StartDate: date(2010, 1, 1), EndDate: date(2014, 6, 30), Current: true},
		},
	}
	out, _ := Assemble(in, nil)
	require.Len(t, out.Affiliations, 1)
	assert.False(t, out.Affiliations[0].Current)
}

func TestLabelCounts(t *testing.T) {
	in := Dataset{
		Articles: []types.Article{
			{UID: "t1", Title: "Thesis", Source: types.SourceRegistry, IsBBP: true,
				URL: "https://infoscience.epfl.ch/record/1", PublicationDate: date(2019, 5, 1)},
			{UID: "b1", Title: "Book", Source: types.SourceEuroPMC,
				URL: "https://link.example.org/chapter/10.1000/1"},
			{UID: "w1", Title: "In Progress", Source: types.SourceRegistry},
			{UID: "p1", Title: "Plain", Source: types.SourceEuroPMC, PublicationDate: date(2021, 2, 3)},
		},
	}
	_, counts := Assemble(in, nil)
	assert.Equal(t, 1, counts.Theses)
	assert.Equal(t, 1, counts.Books)
	assert.Equal(t, 1, counts.Unpublished)
}

// Canonical sorts every table and drops duplicate edges without the
// validation passes of a full assembly, leaving the input untouched.
func TestCanonical(t *testing.T) {
	in := Dataset{
		Articles: []types.Article{
			{UID: "zzz", Title: "Last", Source: types.SourceEuroPMC},
			{UID: "aaa", Title: "First", Source: types.SourceEuroPMC},
		},
		Citations: []types.ArticleCitesArticle{
			{SourceUID: "zzz", TargetUID: "aaa"},
			{SourceUID: "zzz", TargetUID: "aaa"},
		},
		Affiliations: []types.AuthorAffiliatedWithInstitution{
			{AuthorUID: "p1", InstitutionUID: "i1", StartDate: date(2020, 1, 1)},
			// Same pair, different dates: first occurrence wins.
			{AuthorUID: "p1", InstitutionUID: "i1", StartDate: date(2015, 1, 1)},
		},
	}

	out := Canonical(in)

	require.Len(t, out.Articles, 2)
	assert.Equal(t, "aaa", out.Articles[0].UID)
	assert.Len(t, out.Citations, 1)
	require.Len(t, out.Affiliations, 1)
	assert.Equal(t, date(2020, 1, 1), out.Affiliations[0].StartDate)

	// Unlike the edges, dangling references survive: closure is the
	// assembler's job.
	assert.Equal(t, "zzz", out.Citations[0].SourceUID)

	// Input order is preserved on the caller's slices.
	assert.Equal(t, "zzz", in.Articles[0].UID)
	assert.Len(t, in.Citations, 2)
}

func TestRunReport(t *testing.T) {
	r := NewRunReport(Counts{Articles: 4})
	assert.NotEmpty(t, r.RunID)
	assert.False(t, r.FinishedAt.IsZero())
	assert.Equal(t, 4, r.Counts.Articles)
}
