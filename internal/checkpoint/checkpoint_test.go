// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package checkpoint

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshintel/citegraph/internal/assemble"
	"github.com/meshintel/citegraph/pkg/types"
)

func sampleDataset() assemble.Dataset {
	return assemble.Dataset{
		Articles: []types.Article{
			{
				UID: "a1", Title: "Brain Simulation, Part 1", Source: "serp_europmc",
				IsBBP: true, IsPublished: true,
				PublicationDate: time.Date(2020, 3, 14, 0, 0, 0, 0, time.UTC),
				DOI:             "10.1000/d1", Citations: 12,
			},
			{UID: "a2", Title: "Cortical Plasticity", Source: types.SourceRegistry},
		},
		Authors: []types.Author{
			{UID: "0000-0002-1825-0097", ORCIDID: "0000-0002-1825-0097", GoogleScholarID: "gs1", Name: "John Smith"},
		},
		Institutions: []types.Institution{
			{UID: "02s376052", Name: "EPFL", OrganizationID: "02s376052", OrganizationIDSource: types.OrgIDROR},
		},
		Citations:   []types.ArticleCitesArticle{{SourceUID: "a1", TargetUID: "a2"}},
		Authorships: []types.AuthorWroteArticle{{AuthorUID: "0000-0002-1825-0097", ArticleUID: "a1"}},
		Affiliations: []types.AuthorAffiliatedWithInstitution{
			{
				AuthorUID: "0000-0002-1825-0097", InstitutionUID: "02s376052",
				StartDate: time.Date(2018, 9, 1, 0, 0, 0, 0, time.UTC), Current: true,
			},
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	want := sampleDataset()

	require.NoError(t, Save(dir, want))
	got, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, want.Articles, got.Articles)
	assert.Equal(t, want.Authors, got.Authors)
	assert.Equal(t, want.Institutions, got.Institutions)
	assert.Equal(t, want.Citations, got.Citations)
	assert.Equal(t, want.Authorships, got.Authorships)
	assert.Equal(t, want.Affiliations, got.Affiliations)
}

// Every table carries a header row, and values with commas survive intact.
func TestTableFormat(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Save(dir, sampleDataset()))

	raw, err := os.ReadFile(filepath.Join(dir, ArticlesFile))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")

	assert.Equal(t, strings.Join(articleHeader, ","), lines[0])
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], `"Brain Simulation, Part 1"`)
}

// Tables land on disk in the canonical order no matter what order a stage
// produced them, and duplicate edges are written once. Two checkpoints of
// the same data are byte-for-byte identical.
func TestSaveCanonicalizesTables(t *testing.T) {
	ds := assemble.Dataset{
		Articles: []types.Article{
			{UID: "zzz", Title: "Last", Source: types.SourceEuroPMC},
			{UID: "aaa", Title: "First", Source: types.SourceEuroPMC},
		},
		Citations: []types.ArticleCitesArticle{
			{SourceUID: "zzz", TargetUID: "aaa"},
			{SourceUID: "aaa", TargetUID: "zzz"},
			{SourceUID: "zzz", TargetUID: "aaa"},
		},
		Authorships: []types.AuthorWroteArticle{
			{AuthorUID: "p2", ArticleUID: "aaa"},
			{AuthorUID: "p1", ArticleUID: "aaa"},
			{AuthorUID: "p1", ArticleUID: "aaa"},
		},
	}

	dir := t.TempDir()
	require.NoError(t, Save(dir, ds))

	got, err := Load(dir)
	require.NoError(t, err)

	require.Len(t, got.Articles, 2)
	assert.Equal(t, "aaa", got.Articles[0].UID)
	assert.Equal(t, "zzz", got.Articles[1].UID)
	assert.Equal(t, []types.ArticleCitesArticle{
		{SourceUID: "aaa", TargetUID: "zzz"},
		{SourceUID: "zzz", TargetUID: "aaa"},
	}, got.Citations)
	assert.Equal(t, []types.AuthorWroteArticle{
		{AuthorUID: "p1", ArticleUID: "aaa"},
		{AuthorUID: "p2", ArticleUID: "aaa"},
	}, got.Authorships)

	// Saving the reversed input produces the same bytes.
	reversed := assemble.Dataset{
		Articles:    []types.Article{ds.Articles[1], ds.Articles[0]},
		Citations:   []types.ArticleCitesArticle{ds.Citations[2], ds.Citations[1], ds.Citations[0]},
		Authorships: []types.AuthorWroteArticle{ds.Authorships[2], ds.Authorships[1], ds.Authorships[0]},
	}
	other := t.TempDir()
	require.NoError(t, Save(other, reversed))
	for _, name := range []string{ArticlesFile, CitationsFile, AuthorshipsFile} {
		a, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		b, err := os.ReadFile(filepath.Join(other, name))
		require.NoError(t, err)
		assert.Equal(t, a, b, name)
	}
}

func TestSaveArticlesSortsByUID(t *testing.T) {
	dir := t.TempDir()
	articles := []types.Article{
		{UID: "b", Title: "B", Source: types.SourceEuroPMC},
		{UID: "a", Title: "A", Source: types.SourceEuroPMC},
	}
	require.NoError(t, SaveArticles(dir, articles))

	got, err := LoadArticles(dir)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].UID)
	// The caller's slice is left untouched.
	assert.Equal(t, "b", articles[0].UID)
}

// A missing table file is not an error; the stage just sees no records.
func TestLoadMissingTables(t *testing.T) {
	ds, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, ds.Articles)
	assert.Empty(t, ds.Affiliations)
}

// Re-saving replaces the old checkpoint and leaves no temp debris behind.
func TestSaveReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Save(dir, sampleDataset()))

	smaller := sampleDataset()
	smaller.Articles = smaller.Articles[:1]
	require.NoError(t, Save(dir, smaller))

	got, err := LoadArticles(dir)
	require.NoError(t, err)
	require.Len(t, got, 1)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-")
	}
}

func TestSaveArticlesOnly(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, SaveArticles(dir, sampleDataset().Articles))

	got, err := LoadArticles(dir)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	// Other tables remain absent.
	_, err = os.Stat(filepath.Join(dir, AuthorsFile))
	assert.True(t, os.IsNotExist(err))
}

func TestLoadRejectsMalformedRows(t *testing.T) {
	dir := t.TempDir()
	content := strings.Join(articleHeader, ",") + "\n" +
		"a1,T,europmc,false,false,not-a-date,,,,,,,,0\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ArticlesFile), []byte(content), 0o644))

	_, err := LoadArticles(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ArticlesFile)
}
