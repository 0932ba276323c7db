// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/meshintel/citegraph/internal/checkpoint"
	"github.com/meshintel/citegraph/internal/cluster"
	"github.com/meshintel/citegraph/internal/graphstore"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load the assembled dataset into Neo4j",
	Long: `Load upserts the checkpointed dataset into a Neo4j instance: schema,
nodes, edges, article sub-type labels, and the derived analytics
properties. With --wipe the database is emptied first. Validated
clustering snapshots can be loaded in the same run with --clusters.`,
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().String("uri", "bolt://localhost:7687", "Neo4j connection URI")
	loadCmd.Flags().String("username", "neo4j", "Neo4j username")
	loadCmd.Flags().String("password", "", "Neo4j password (default: .secrets/neo4j-password)")
	loadCmd.Flags().String("database", "neo4j", "target database name")
	loadCmd.Flags().Int("batch-size", 0, "records per upsert batch (default 500)")
	loadCmd.Flags().Bool("wipe", false, "delete all nodes and relationships before loading")
	loadCmd.Flags().StringSlice("clusters", nil, "clustering snapshot YAML files to load")
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	dir := dataDir(cmd)
	uri, _ := cmd.Flags().GetString("uri")
	username, _ := cmd.Flags().GetString("username")
	password, _ := cmd.Flags().GetString("password")
	database, _ := cmd.Flags().GetString("database")
	batchSize, _ := cmd.Flags().GetInt("batch-size")
	wipe, _ := cmd.Flags().GetBool("wipe")
	snapshots, _ := cmd.Flags().GetStringSlice("clusters")

	cfg := pipelineConfig(dir).Graph
	if cmd.Flags().Changed("uri") || cfg.URI == "" {
		cfg.URI = uri
	}
	if cmd.Flags().Changed("username") || cfg.Username == "" {
		cfg.Username = username
	}
	if cmd.Flags().Changed("database") || cfg.Database == "" {
		cfg.Database = database
	}
	if cmd.Flags().Changed("batch-size") {
		cfg.BatchSize = batchSize
	}
	cfg.Password = secretDefault("neo4j-password", password)

	ds, err := checkpoint.Load(filepath.Join(dir, "checkpoint"))
	if err != nil {
		return err
	}
	if len(ds.Articles) == 0 {
		return fmt.Errorf("no articles checkpointed under %s; run assemble first", dir)
	}

	ctx := cmd.Context()
	store, err := graphstore.Connect(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close(ctx)

	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}
	if wipe {
		if err := store.Wipe(ctx); err != nil {
			return err
		}
	}

	sum, err := store.Load(ctx, ds)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(),
		"Loaded %d articles, %d authors, %d institutions, %d citations, %d authorships, %d affiliations into %s\n",
		sum.Articles, sum.Authors, sum.Institutions,
		sum.Citations, sum.Authorships, sum.Affiliations, cfg.URI)

	for _, path := range snapshots {
		ca, err := cluster.LoadSnapshot(path)
		if err != nil {
			return err
		}
		checked, rep, err := cluster.Check(ca, ds.Articles, log)
		if err != nil {
			return err
		}
		if err := store.LoadClusters(ctx, checked); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Loaded %s clustering: %d clusters, %d members\n",
			rep.Algorithm, rep.Clusters, rep.Members)
	}
	return nil
}
