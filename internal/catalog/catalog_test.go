// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshintel/citegraph/internal/assemble"
	"github.com/meshintel/citegraph/pkg/types"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(types.CatalogConfig{DataDir: t.TempDir(), MaxResults: 10})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func testDataset() assemble.Dataset {
	return assemble.Dataset{
		Articles: []types.Article{
			{
				UID: "a1", Title: "Brain Simulation at Scale", Source: types.SourceEuroPMC,
				Abstract:        "Large-scale cortical simulation.",
				PublicationDate: time.Date(2020, 3, 14, 0, 0, 0, 0, time.UTC),
				Citations:       12,
			},
			{UID: "a2", Title: "Cortical Plasticity", Source: types.SourceRegistry, Citations: 3,
				PublicationDate: time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)},
		},
		Authors: []types.Author{
			{UID: "0000-0002-1825-0097", ORCIDID: "0000-0002-1825-0097", Name: "John Smith"},
		},
		Institutions: []types.Institution{
			{UID: "02s376052", Name: "EPFL", OrganizationID: "02s376052", OrganizationIDSource: types.OrgIDROR},
		},
		Citations: []types.ArticleCitesArticle{{SourceUID: "a1", TargetUID: "a2"}},
		Authorships: []types.AuthorWroteArticle{
			{AuthorUID: "0000-0002-1825-0097", ArticleUID: "a1"},
			{AuthorUID: "0000-0002-1825-0097", ArticleUID: "a2"},
		},
		Affiliations: []types.AuthorAffiliatedWithInstitution{
			{AuthorUID: "0000-0002-1825-0097", InstitutionUID: "02s376052", Current: true},
		},
	}
}

func TestReplaceAndStats(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()

	require.NoError(t, c.Replace(ctx, testDataset()))

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{
		Articles: 2, Authors: 1, Institutions: 1,
		Citations: 1, Authorships: 2, Affiliations: 1,
	}, stats)

	// Replacing again does not accumulate rows.
	require.NoError(t, c.Replace(ctx, testDataset()))
	stats, err = c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Articles)
}

func TestSearch(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()
	require.NoError(t, c.Replace(ctx, testDataset()))

	results, err := c.Search(ctx, "simulation")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a1", results[0].Article.UID)
	assert.Equal(t, "Brain Simulation at Scale", results[0].Article.Title)
	assert.Equal(t, 12, results[0].Article.Citations)
	assert.Equal(t, time.Date(2020, 3, 14, 0, 0, 0, 0, time.UTC), results[0].Article.PublicationDate)

	// Abstract text is indexed too.
	results, err = c.Search(ctx, "cortical")
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = c.Search(ctx, "nonexistent")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestArticlesByAuthor(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()
	require.NoError(t, c.Replace(ctx, testDataset()))

	articles, err := c.ArticlesByAuthor(ctx, "0000-0002-1825-0097")
	require.NoError(t, err)
	require.Len(t, articles, 2)
	// Newest first.
	assert.Equal(t, "a1", articles[0].UID)
	assert.Equal(t, "a2", articles[1].UID)

	none, err := c.ArticlesByAuthor(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, none)
}
