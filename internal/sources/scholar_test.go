// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshintel/citegraph/pkg/types"
)

const serpJSONL = `
{"article_id":"seed1","title":"Brain Simulation","total_citations":2,"citations":[{"result_id":"gsA","title":"\"Cortical Models\"","link":"https://scholar.example.org/gsA","snippet":"A 'snippet'.","cited_by":7,"authors":[{"author_id":"auth1","name":"Jane Doe"},{"author_id":"auth2","name":"John Smith"}]},{"result_id":"gsB","title":"Spiking Networks","cited_by":3,"authors":[{"author_id":"auth1","name":"Jane Doe"}]}]}
{"article_id":"seed2","title":"Cortical Plasticity","total_citations":1,"citations":[{"result_id":"gsA","title":"Cortical Models","cited_by":7,"authors":[{"author_id":"auth1","name":"Jane Doe"}]}]}
not json
`

func TestParseScholar(t *testing.T) {
	h, err := ParseScholar(strings.NewReader(serpJSONL), nil)
	require.NoError(t, err)

	// gsA appears under both seeds but becomes one article.
	require.Len(t, h.Articles, 2)
	gsA := h.Articles[0]
	assert.Equal(t, "gsA", gsA.UID)
	assert.Equal(t, "gsA", gsA.GoogleScholarID)
	assert.Equal(t, "Cortical Models", gsA.Title, "quotes are stripped")
	assert.Equal(t, "A snippet.", gsA.Abstract)
	assert.Equal(t, types.SourceScholar, gsA.Source)
	assert.Equal(t, 7, gsA.Citations)
	assert.Equal(t, "https://scholar.example.org/gsA", gsA.URL)

	// One author record per scholar id, however many works they appear on.
	require.Len(t, h.Authors, 2)
	assert.Equal(t, "auth1", h.Authors[0].UID)
	assert.Equal(t, "auth1", h.Authors[0].GoogleScholarID)
	assert.Equal(t, "Jane Doe", h.Authors[0].Name)

	// Citing article -> seed, for each seed separately.
	assert.ElementsMatch(t, []types.ArticleCitesArticle{
		{SourceUID: "gsA", TargetUID: "seed1"},
		{SourceUID: "gsB", TargetUID: "seed1"},
		{SourceUID: "gsA", TargetUID: "seed2"},
	}, h.Citations)

	// Authorship pairs are deduplicated.
	assert.ElementsMatch(t, []types.AuthorWroteArticle{
		{AuthorUID: "auth1", ArticleUID: "gsA"},
		{AuthorUID: "auth2", ArticleUID: "gsA"},
		{AuthorUID: "auth1", ArticleUID: "gsB"},
	}, h.Authorships)
}

func TestParseScholarSkipsMalformedLines(t *testing.T) {
	// The "not json" line above must not abort the parse; verify a stream
	// of only bad lines still succeeds with an empty harvest.
	h, err := ParseScholar(strings.NewReader("garbage\n{broken\n"), nil)
	require.NoError(t, err)
	assert.Empty(t, h.Articles)
}

func TestCleanScholarTitle(t *testing.T) {
	tests := []struct{ in, want string }{
		{`"Quoted Title"`, "Quoted Title"},
		{`  padded  `, "padded"},
		{`it's got an apostrophe`, "its got an apostrophe"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanScholarTitle(tt.in))
	}
}
