// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// ClusterAnalysis is one clustering run produced by the clustering oracle.
// Analyses are derived data: produced fresh by each invocation, never
// mutated, only superseded. Quality scores are nil when fewer than two
// clusters exist.
type ClusterAnalysis struct {
	// Algorithm names the clustering algorithm (e.g. "kmeans", "hdbscan").
	Algorithm string `json:"algorithm" yaml:"algorithm"`

	// Parameters is a snapshot of the algorithm configuration.
	Parameters map[string]string `json:"parameters" yaml:"parameters"`

	// Clusters maps cluster id to the ordered list of member article uids.
	Clusters map[int][]string `json:"clusters" yaml:"clusters"`

	SilhouetteScore       *float64 `json:"silhouette_score,omitempty" yaml:"silhouette_score,omitempty"`
	DaviesBouldinScore    *float64 `json:"davies_bouldin_score,omitempty" yaml:"davies_bouldin_score,omitempty"`
	CalinskiHarabaszScore *float64 `json:"calinski_harabasz_score,omitempty" yaml:"calinski_harabasz_score,omitempty"`
}

// Validate checks structural constraints; membership against the article
// table is the cluster stage's job.
func (c ClusterAnalysis) Validate() error {
	if c.Algorithm == "" {
		return fmt.Errorf("cluster analysis: missing algorithm")
	}
	if len(c.Clusters) == 0 {
		return fmt.Errorf("cluster analysis %s: no clusters", c.Algorithm)
	}
	for id, uids := range c.Clusters {
		if len(uids) == 0 {
			return fmt.Errorf("cluster analysis %s: cluster %d is empty", c.Algorithm, id)
		}
	}
	return nil
}
