// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/meshintel/citegraph/internal/catalog"
	"github.com/meshintel/citegraph/internal/checkpoint"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Mirror the assembled dataset into the local search catalog",
	Long: `Store replaces the local SQLite catalog with the checkpointed dataset.
The catalog backs full-text search over article titles and abstracts
without a running graph database. With --query or --author the catalog
is queried instead of replaced.`,
	RunE: runStore,
}

func init() {
	storeCmd.Flags().String("query", "", "full-text search instead of mirroring")
	storeCmd.Flags().String("author", "", "list an author's articles instead of mirroring")
	storeCmd.Flags().Int("max-results", 0, "maximum query results (default 20)")
	rootCmd.AddCommand(storeCmd)
}

func runStore(cmd *cobra.Command, args []string) error {
	dir := dataDir(cmd)
	query, _ := cmd.Flags().GetString("query")
	author, _ := cmd.Flags().GetString("author")
	maxResults, _ := cmd.Flags().GetInt("max-results")

	cfg := pipelineConfig(dir).Catalog
	if cmd.Flags().Changed("max-results") {
		cfg.MaxResults = maxResults
	}
	c, err := catalog.Open(cfg)
	if err != nil {
		return err
	}
	defer c.Close()
	ctx := cmd.Context()

	if query != "" {
		results, err := c.Search(ctx, query)
		if err != nil {
			return err
		}
		for _, r := range results {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t(%d citations)\n",
				r.Article.UID, r.Article.Title, r.Article.Citations)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d results\n", len(results))
		return nil
	}

	if author != "" {
		articles, err := c.ArticlesByAuthor(ctx, author)
		if err != nil {
			return err
		}
		for _, a := range articles {
			date := ""
			if !a.PublicationDate.IsZero() {
				date = a.PublicationDate.Format("2006-01-02")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", a.UID, date, a.Title)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d articles\n", len(articles))
		return nil
	}

	ds, err := checkpoint.Load(filepath.Join(dir, "checkpoint"))
	if err != nil {
		return err
	}
	if len(ds.Articles) == 0 {
		return fmt.Errorf("no articles checkpointed under %s; run assemble first", dir)
	}
	if err := c.Replace(ctx, ds); err != nil {
		return err
	}

	stats, err := c.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(),
		"Catalog replaced: %d articles, %d authors, %d institutions, %d citations, %d authorships, %d affiliations\n",
		stats.Articles, stats.Authors, stats.Institutions,
		stats.Citations, stats.Authorships, stats.Affiliations)
	return nil
}
