// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"

	"github.com/meshintel/citegraph/internal/match"
	"github.com/meshintel/citegraph/pkg/types"
)

func TestPipelineConfig(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("fetch.timeout", "45s")
	viper.Set("fetch.requests_per_second", 2.5)
	viper.Set("fetch.europmc_email", "pipeline@example.org")
	viper.Set("combine.match_threshold", 85)
	viper.Set("catalog.max_results", 50)
	viper.Set("graph.uri", "bolt://graph.example.org:7687")
	viper.Set("graph.username", "reader")
	viper.Set("graph.batch_size", 250)

	cfg := pipelineConfig("data")

	assert.Equal(t, 45*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 2.5, cfg.Fetch.RequestsPerSecond)
	assert.Equal(t, "citegraph/dev", cfg.Fetch.UserAgent)
	assert.Equal(t, "data", cfg.Fetch.DataDir)
	assert.Equal(t, "pipeline@example.org", cfg.Fetch.EuroPMCEmail)

	assert.Equal(t, 85, cfg.Combine.MatchThreshold)
	assert.Equal(t, "data", cfg.Combine.DataDir)

	assert.Equal(t, filepath.Join("data", "catalog"), cfg.Catalog.DataDir)
	assert.Equal(t, 50, cfg.Catalog.MaxResults)

	assert.Equal(t, "bolt://graph.example.org:7687", cfg.Graph.URI)
	assert.Equal(t, "reader", cfg.Graph.Username)
	assert.Equal(t, 250, cfg.Graph.BatchSize)
}

// An author previously known only by Google Scholar id gains an ORCID iD
// from the scholar dump: edges on both the checkpointed and the harvest
// side must remap to the iD the merged record carries.
func TestRemapAuthorsFollowsMergedUID(t *testing.T) {
	orcid := "0000-0002-1825-0097"
	matches := []match.AuthorMatch{
		{
			Kind:     match.Matched,
			Existing: types.Author{UID: "gs1", GoogleScholarID: "gs1", Name: "John Smith"},
			New:      types.Author{UID: orcid, ORCIDID: orcid, Name: "John Smith"},
			Score:    100,
		},
		{
			Kind: match.Inserted,
			New:  types.Author{UID: "gs9", GoogleScholarID: "gs9", Name: "Jane Doe"},
		},
	}

	m := remapAuthors(matches)
	assert.Equal(t, orcid, m["gs1"], "checkpointed uid follows the merge")
	_, remapped := m[orcid]
	assert.False(t, remapped, "the surviving uid maps to itself")
	_, inserted := m["gs9"]
	assert.False(t, inserted, "inserted records keep their uid")

	assert.Equal(t, orcid, remap(m, "gs1"))
	assert.Equal(t, "gs9", remap(m, "gs9"))
}

func TestSecretDefault(t *testing.T) {
	loadedSecrets = map[string]string{"orcid-token": "tok-123"}
	t.Cleanup(func() { loadedSecrets = nil })

	assert.Equal(t, "explicit", secretDefault("orcid-token", "explicit"))
	assert.Equal(t, "tok-123", secretDefault("orcid-token", ""))
	assert.Equal(t, "", secretDefault("neo4j-password", ""))
}
