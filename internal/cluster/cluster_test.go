// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cluster

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshintel/citegraph/pkg/types"
)

func articleTable() []types.Article {
	return []types.Article{
		{UID: "a1", Title: "One", Source: types.SourceEuroPMC},
		{UID: "a2", Title: "Two", Source: types.SourceEuroPMC},
		{UID: "a3", Title: "Three", Source: types.SourceEuroPMC},
	}
}

func TestCheckDropsUnknownMembers(t *testing.T) {
	ca := types.ClusterAnalysis{
		Algorithm: "kmeans",
		Clusters: map[int][]string{
			0: {"a1", "ghost"},
			1: {"a2", "a3"},
		},
	}

	out, rep, err := Check(ca, articleTable(), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"a1"}, out.Clusters[0])
	assert.Equal(t, []string{"a2", "a3"}, out.Clusters[1])
	assert.Equal(t, 1, rep.UnknownMembers)
	assert.Equal(t, 3, rep.Members)
	assert.Equal(t, 2, rep.Clusters)
}

// An article in two clusters keeps its first assignment, lowest cluster
// id first, so validation is order-independent.
func TestCheckResolvesDuplicateAssignment(t *testing.T) {
	ca := types.ClusterAnalysis{
		Algorithm: "agglomerative",
		Clusters: map[int][]string{
			2: {"a1"},
			1: {"a1", "a2"},
		},
	}

	out, rep, err := Check(ca, articleTable(), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"a1", "a2"}, out.Clusters[1])
	assert.NotContains(t, out.Clusters, 2)
	assert.Equal(t, 1, rep.Duplicates)
}

func TestCheckAllMembersUnknown(t *testing.T) {
	ca := types.ClusterAnalysis{
		Algorithm: "kmeans",
		Clusters:  map[int][]string{0: {"x", "y"}},
	}
	_, _, err := Check(ca, articleTable(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no members resolve")
}

func TestLoadSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kmeans.yaml")
	content := `algorithm: kmeans
parameters:
  n_clusters: "2"
clusters:
  0: [a1, a2]
  1: [a3]
silhouette_score: 0.41
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	ca, err := LoadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, "kmeans", ca.Algorithm)
	assert.Equal(t, []string{"a1", "a2"}, ca.Clusters[0])
	require.NotNil(t, ca.SilhouetteScore)
	assert.InDelta(t, 0.41, *ca.SilhouetteScore, 1e-9)
}

func TestLoadSnapshotRejectsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("algorithm: kmeans\nclusters: {}\n"), 0o644))

	_, err := LoadSnapshot(path)
	require.Error(t, err)
}
