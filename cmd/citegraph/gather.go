// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meshintel/citegraph/internal/checkpoint"
	"github.com/meshintel/citegraph/internal/httputil"
	"github.com/meshintel/citegraph/internal/match"
	"github.com/meshintel/citegraph/internal/merge"
	"github.com/meshintel/citegraph/internal/sources"
	"github.com/meshintel/citegraph/pkg/types"
)

var gatherCmd = &cobra.Command{
	Use:   "gather",
	Short: "Gather seed articles and their citations from the registry and Europe PMC",
	Long: `Gather reads the internal publication registry, locates each entry on
Europe PMC, and fetches every article citing it. The resulting article
and citation tables are written to the checkpoint directory; author,
institution, and affiliation tables already checkpointed are preserved.`,
	RunE: runGather,
}

func init() {
	gatherCmd.Flags().String("published", "", "published registry CSV (default: <data-dir>/registry/articles.csv)")
	gatherCmd.Flags().String("wip-articles", "", "work-in-progress articles CSV (default: <data-dir>/registry/wip_articles.csv)")
	gatherCmd.Flags().String("wip-theses", "", "work-in-progress theses CSV (default: <data-dir>/registry/wip_theses.csv)")
	gatherCmd.Flags().Float64("rps", 5, "request rate limit toward Europe PMC, in requests per second")
	gatherCmd.Flags().Duration("timeout", 30*time.Second, "HTTP request timeout")
	gatherCmd.Flags().Bool("skip-citations", false, "only resolve registry entries, do not fetch citing articles")
	rootCmd.AddCommand(gatherCmd)
}

func runGather(cmd *cobra.Command, args []string) error {
	dir := dataDir(cmd)
	published, _ := cmd.Flags().GetString("published")
	wipArticles, _ := cmd.Flags().GetString("wip-articles")
	wipTheses, _ := cmd.Flags().GetString("wip-theses")
	rps, _ := cmd.Flags().GetFloat64("rps")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	skipCitations, _ := cmd.Flags().GetBool("skip-citations")

	if published == "" {
		published = filepath.Join(dir, "registry", "articles.csv")
	}
	if wipArticles == "" {
		wipArticles = filepath.Join(dir, "registry", "wip_articles.csv")
	}
	if wipTheses == "" {
		wipTheses = filepath.Join(dir, "registry", "wip_theses.csv")
	}

	cfg := pipelineConfig(dir).Fetch
	if cmd.Flags().Changed("rps") || cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = rps
	}
	if cmd.Flags().Changed("timeout") || cfg.Timeout == 0 {
		cfg.Timeout = timeout
	}
	cfg.EuroPMCEmail = secretDefault("europmc-email", cfg.EuroPMCEmail)

	entries, err := sources.NewRegistry(log).LoadAll(published, wipArticles, wipTheses)
	if err != nil {
		return err
	}
	log.Info("registry loaded",
		zap.String("stage", "gather"),
		zap.Int("entries", len(entries)))

	client := httputil.NewClient(cfg.Timeout, cfg.RequestsPerSecond, cfg.UserAgent)
	epmc := sources.NewEuroPMC(client, cfg.EuroPMCEmail, log)
	ctx := cmd.Context()

	// Resolve each registry entry on Europe PMC. Entries not found keep
	// their registry record; found ones are merged field by field so
	// registry identifiers survive alongside the fetched metadata.
	seedArticles := make([]types.Article, 0, len(entries))
	var fetched []types.Article
	var found []sources.EuroPMCResult
	var authorships []types.AuthorWroteArticle
	for _, e := range entries {
		seedArticles = append(seedArticles, e.Article())

		res, ok, err := epmc.FindArticle(ctx, e.DOI, e.ISBNs, e.Title)
		if err != nil {
			return err
		}
		if !ok {
			log.Warn("registry entry not found on Europe PMC",
				zap.String("stage", "gather"),
				zap.String("title", e.Title))
			continue
		}
		found = append(found, res)
		fetched = append(fetched, res.Article(true))
	}

	merger := merge.New(log)
	seeds, summary := merger.Articles(match.Articles(fetched, seedArticles))
	printSummary(cmd, "articles", summary)

	// Registry uids change when Europe PMC supplies the canonical id, so
	// resolve each fetched record back to its merged uid by title key.
	uidByEPMC := make(map[string]string, len(seeds))
	for _, a := range seeds {
		if a.EuroPMCID != "" {
			uidByEPMC[a.EuroPMCID] = a.UID
		}
	}
	for _, res := range found {
		uid, ok := uidByEPMC[res.ID]
		if !ok {
			continue
		}
		for _, orcid := range res.ORCIDs() {
			authorships = append(authorships, types.AuthorWroteArticle{
				AuthorUID:  orcid,
				ArticleUID: uid,
			})
		}
	}

	articles := seeds
	var citations []types.ArticleCitesArticle
	if !skipCitations {
		for _, res := range found {
			edges, citing, err := epmc.Citations(ctx, res.Source, res.ID)
			if err != nil {
				return err
			}
			// Citation targets carry the Europe PMC id; remap to the
			// merged seed uid.
			for i := range edges {
				if uid, ok := uidByEPMC[edges[i].TargetUID]; ok {
					edges[i].TargetUID = uid
				}
			}
			citations = append(citations, edges...)
			articles = append(articles, citing...)

			log.Info("citations gathered",
				zap.String("stage", "gather"),
				zap.String("europmc_id", res.ID),
				zap.Int("citing", len(citing)))
		}
	}

	cpDir := filepath.Join(dir, "checkpoint")
	ds, err := checkpoint.Load(cpDir)
	if err != nil {
		return err
	}
	ds.Articles = articles
	ds.Citations = citations
	ds.Authorships = append(ds.Authorships, authorships...)
	if err := checkpoint.Save(cpDir, ds); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Gathered %d articles and %d citation links into %s\n",
		len(articles), len(citations), cpDir)
	return nil
}

// printSummary reports one merge stage's counts on stdout.
func printSummary(cmd *cobra.Command, table string, s merge.Summary) {
	fmt.Fprintf(cmd.OutOrStdout(),
		"%s: in=%d matched=%d inserted=%d passthrough=%d dropped=%d out=%d\n",
		table, s.In, s.Matched, s.Inserted, s.Passthrough, s.Dropped, s.Out)
}
