// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/meshintel/citegraph/internal/checkpoint"
	"github.com/meshintel/citegraph/internal/cluster"
)

var clusterCmd = &cobra.Command{
	Use:   "cluster <snapshot.yaml>",
	Short: "Validate a clustering snapshot against the article table",
	Long: `Cluster checks an analysis snapshot against the checkpointed article
table: members that do not resolve to a known article are dropped, and
an article assigned to several clusters keeps its lowest-id assignment.
The validated snapshot can be written out for the load stage.`,
	Args: cobra.ExactArgs(1),
	RunE: runCluster,
}

func init() {
	clusterCmd.Flags().String("out", "", "write the validated snapshot to this path")
	rootCmd.AddCommand(clusterCmd)
}

func runCluster(cmd *cobra.Command, args []string) error {
	dir := dataDir(cmd)
	outPath, _ := cmd.Flags().GetString("out")

	ca, err := cluster.LoadSnapshot(args[0])
	if err != nil {
		return err
	}

	articles, err := checkpoint.LoadArticles(filepath.Join(dir, "checkpoint"))
	if err != nil {
		return err
	}
	if len(articles) == 0 {
		return fmt.Errorf("no articles checkpointed under %s; run assemble first", dir)
	}

	checked, rep, err := cluster.Check(ca, articles, log)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(),
		"%s: %d clusters, %d members (%d unknown dropped, %d duplicates resolved)\n",
		rep.Algorithm, rep.Clusters, rep.Members, rep.UnknownMembers, rep.Duplicates)

	if outPath != "" {
		raw, err := yaml.Marshal(checked)
		if err != nil {
			return fmt.Errorf("encoding validated snapshot: %w", err)
		}
		if err := os.WriteFile(outPath, raw, 0o644); err != nil {
			return fmt.Errorf("writing validated snapshot: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Validated snapshot written to %s\n", outPath)
	}
	return nil
}
