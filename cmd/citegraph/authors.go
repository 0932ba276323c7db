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
	"github.com/meshintel/citegraph/internal/sources"
	"github.com/meshintel/citegraph/pkg/types"
)

var authorsCmd = &cobra.Command{
	Use:   "authors",
	Short: "Fetch author records and affiliation histories from ORCID",
	Long: `Authors resolves the authors of the gathered seed articles against the
ORCID public API. ORCID iDs already recorded in the authorship table are
fetched directly; articles with a DOI but no known authors are resolved
through an ORCID works search, keeping only iDs whose record actually
lists the article. Author, institution, and affiliation tables are
written to the checkpoint directory.`,
	RunE: runAuthors,
}

func init() {
	authorsCmd.Flags().Float64("rps", 5, "request rate limit toward ORCID, in requests per second")
	authorsCmd.Flags().Duration("timeout", 30*time.Second, "HTTP request timeout")
	authorsCmd.Flags().StringSlice("orcid", nil, "additional ORCID iDs to fetch")
	rootCmd.AddCommand(authorsCmd)
}

func runAuthors(cmd *cobra.Command, args []string) error {
	dir := dataDir(cmd)
	rps, _ := cmd.Flags().GetFloat64("rps")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	extra, _ := cmd.Flags().GetStringSlice("orcid")

	cpDir := filepath.Join(dir, "checkpoint")
	ds, err := checkpoint.Load(cpDir)
	if err != nil {
		return err
	}
	if len(ds.Articles) == 0 {
		return fmt.Errorf("no articles checkpointed under %s; run gather first", cpDir)
	}

	cfg := pipelineConfig(dir).Fetch
	if cmd.Flags().Changed("rps") || cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = rps
	}
	if cmd.Flags().Changed("timeout") || cfg.Timeout == 0 {
		cfg.Timeout = timeout
	}
	cfg.ORCIDToken = secretDefault("orcid-token", cfg.ORCIDToken)

	client := httputil.NewClient(cfg.Timeout, cfg.RequestsPerSecond, cfg.UserAgent)
	orcid := sources.NewORCID(client, cfg.ORCIDToken)
	ctx := cmd.Context()

	// Seed set: every ORCID iD already named by an authorship edge, plus
	// any passed on the command line.
	seen := make(map[string]bool)
	var ids []string
	for _, w := range ds.Authorships {
		if types.ValidORCID(w.AuthorUID) && !seen[w.AuthorUID] {
			seen[w.AuthorUID] = true
			ids = append(ids, w.AuthorUID)
		}
	}
	for _, id := range extra {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	// Seed articles without any known author get a works search by DOI.
	// A search hit only counts when the record lists the article, so a
	// namesake claiming nothing never becomes an author.
	authored := make(map[string]bool, len(ds.Authorships))
	for _, w := range ds.Authorships {
		authored[w.ArticleUID] = true
	}
	var authorships []types.AuthorWroteArticle
	for _, a := range ds.Articles {
		if !a.IsBBP || a.DOI == "" || authored[a.UID] {
			continue
		}
		hits, err := orcid.SearchByDOI(ctx, a.DOI)
		if err != nil {
			return err
		}
		for _, id := range hits {
			wrote, err := orcid.WroteTitle(ctx, id, a.Title)
			if err != nil {
				log.Warn("skipping unverifiable search hit",
					zap.String("stage", "authors"),
					zap.String("orcid", id),
					zap.Error(err))
				continue
			}
			if !wrote {
				continue
			}
			authorships = append(authorships, types.AuthorWroteArticle{AuthorUID: id, ArticleUID: a.UID})
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	var authors []types.Author
	var institutions []types.Institution
	var affiliations []types.AuthorAffiliatedWithInstitution
	for _, id := range ids {
		rec, err := orcid.FetchAuthor(ctx, id)
		if err != nil {
			log.Warn("skipping unfetchable author",
				zap.String("stage", "authors"),
				zap.String("orcid", id),
				zap.Error(err))
			continue
		}
		authors = append(authors, rec.Author)
		institutions = append(institutions, rec.Institutions...)
		affiliations = append(affiliations, rec.Affiliations...)
	}

	ds.Authors = authors
	ds.Institutions = institutions
	ds.Authorships = append(ds.Authorships, authorships...)
	ds.Affiliations = affiliations
	if err := checkpoint.Save(cpDir, ds); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Fetched %d authors, %d institutions, %d affiliations into %s\n",
		len(authors), len(institutions), len(affiliations), cpDir)
	return nil
}
