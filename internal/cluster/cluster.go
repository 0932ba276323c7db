// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cluster loads clustering snapshots produced by the analysis
// notebooks and checks them against the canonical article table before
// they reach the graph. A snapshot referencing articles the pipeline does
// not know about would create orphan cluster members, so membership is
// validated here rather than trusted.
package cluster

import (
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"
	"go.yaml.in/yaml/v3"

	"github.com/meshintel/citegraph/pkg/types"
)

// Report summarizes one snapshot validation.
type Report struct {
	Algorithm      string
	Clusters       int
	Members        int
	UnknownMembers int
	Duplicates     int
}

// LoadSnapshot reads a cluster analysis from a YAML file.
func LoadSnapshot(path string) (types.ClusterAnalysis, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return types.ClusterAnalysis{}, fmt.Errorf("reading cluster snapshot: %w", err)
	}
	var ca types.ClusterAnalysis
	if err := yaml.Unmarshal(raw, &ca); err != nil {
		return types.ClusterAnalysis{}, fmt.Errorf("parsing cluster snapshot %s: %w", path, err)
	}
	if err := ca.Validate(); err != nil {
		return types.ClusterAnalysis{}, err
	}
	return ca, nil
}

// Check validates a snapshot against the article table. Members that do
// not resolve to a known article are removed and counted; an article
// listed in two clusters keeps its first assignment (clusters are visited
// in ascending id order so the outcome is deterministic). The returned
// analysis is safe to hand to the graph store.
func Check(ca types.ClusterAnalysis, articles []types.Article, log *zap.Logger) (types.ClusterAnalysis, Report, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := ca.Validate(); err != nil {
		return types.ClusterAnalysis{}, Report{}, err
	}

	known := make(map[string]bool, len(articles))
	for _, a := range articles {
		known[a.UID] = true
	}

	ids := make([]int, 0, len(ca.Clusters))
	for id := range ca.Clusters {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := types.ClusterAnalysis{
		Algorithm:             ca.Algorithm,
		Parameters:            ca.Parameters,
		Clusters:              make(map[int][]string, len(ca.Clusters)),
		SilhouetteScore:       ca.SilhouetteScore,
		DaviesBouldinScore:    ca.DaviesBouldinScore,
		CalinskiHarabaszScore: ca.CalinskiHarabaszScore,
	}
	rep := Report{Algorithm: ca.Algorithm}

	assigned := make(map[string]bool)
	for _, id := range ids {
		var members []string
		for _, uid := range ca.Clusters[id] {
			if !known[uid] {
				rep.UnknownMembers++
				continue
			}
			if assigned[uid] {
				rep.Duplicates++
				continue
			}
			assigned[uid] = true
			members = append(members, uid)
		}
		if len(members) > 0 {
			out.Clusters[id] = members
			rep.Members += len(members)
		}
	}
	rep.Clusters = len(out.Clusters)

	if rep.UnknownMembers > 0 {
		log.Warn("cluster snapshot references unknown articles",
			zap.String("stage", "cluster"),
			zap.String("algorithm", ca.Algorithm),
			zap.Int("count", rep.UnknownMembers))
	}
	if rep.Clusters == 0 {
		return out, rep, fmt.Errorf("cluster analysis %s: no members resolve to known articles", ca.Algorithm)
	}
	return out, rep, nil
}
