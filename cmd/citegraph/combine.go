// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meshintel/citegraph/internal/checkpoint"
	"github.com/meshintel/citegraph/internal/match"
	"github.com/meshintel/citegraph/internal/merge"
	"github.com/meshintel/citegraph/internal/sources"
	"github.com/meshintel/citegraph/pkg/types"
)

var combineCmd = &cobra.Command{
	Use:   "combine",
	Short: "Merge a Google Scholar citation dump into the canonical tables",
	Long: `Combine reads a SERP API JSONL dump of Google Scholar citations and
resolves its articles and authors against the checkpointed canonical
tables. Articles match on normalized title; authors match on blocked
fuzzy name similarity. Matched pairs merge field by field, unmatched
scholar records are inserted, and edges pointing at merged records are
remapped to the surviving uid.`,
	RunE: runCombine,
}

func init() {
	combineCmd.Flags().String("serp", "", "SERP JSONL dump (default: <data-dir>/serp/citations.jsonl)")
	combineCmd.Flags().Int("threshold", 0, "minimum author name similarity in [0,100] (default 90)")
	rootCmd.AddCommand(combineCmd)
}

func runCombine(cmd *cobra.Command, args []string) error {
	dir := dataDir(cmd)
	serpPath, _ := cmd.Flags().GetString("serp")
	threshold, _ := cmd.Flags().GetInt("threshold")

	if serpPath == "" {
		serpPath = filepath.Join(dir, "serp", "citations.jsonl")
	}

	cfg := pipelineConfig(dir).Combine
	if cmd.Flags().Changed("threshold") || cfg.MatchThreshold == 0 {
		cfg.MatchThreshold = threshold
	}

	cpDir := filepath.Join(dir, "checkpoint")
	ds, err := checkpoint.Load(cpDir)
	if err != nil {
		return err
	}
	if len(ds.Articles) == 0 {
		return fmt.Errorf("no articles checkpointed under %s; run gather first", cpDir)
	}

	harvest, err := sources.ParseScholarFile(serpPath, log)
	if err != nil {
		return err
	}
	log.Info("serp dump parsed",
		zap.String("stage", "combine"),
		zap.String("path", serpPath),
		zap.Int("articles", len(harvest.Articles)),
		zap.Int("authors", len(harvest.Authors)),
		zap.Int("citations", len(harvest.Citations)))

	merger := merge.New(log)

	articleMatches := match.Articles(harvest.Articles, ds.Articles)
	articles, articleSummary := merger.Articles(articleMatches)
	printSummary(cmd, "articles", articleSummary)

	authorMatches := match.Authors(harvest.Authors, ds.Authors, cfg.MatchThreshold, log)
	authors, authorSummary := merger.Authors(authorMatches)
	printSummary(cmd, "authors", authorSummary)

	// A record absorbed by a merge loses its uid; edges on both sides must
	// follow it to the surviving record. Checkpointed authorship edges can
	// dangle too, when the scholar side supplies an ORCID iD for an author
	// previously known only by Google Scholar id.
	articleUID := remapArticles(articleMatches)
	authorUID := remapAuthors(authorMatches)

	for i := range ds.Authorships {
		ds.Authorships[i].AuthorUID = remap(authorUID, ds.Authorships[i].AuthorUID)
	}
	for i := range ds.Affiliations {
		ds.Affiliations[i].AuthorUID = remap(authorUID, ds.Affiliations[i].AuthorUID)
	}
	for _, c := range harvest.Citations {
		ds.Citations = append(ds.Citations, types.ArticleCitesArticle{
			SourceUID: remap(articleUID, c.SourceUID),
			TargetUID: remap(articleUID, c.TargetUID),
		})
	}
	for _, w := range harvest.Authorships {
		ds.Authorships = append(ds.Authorships, types.AuthorWroteArticle{
			AuthorUID:  remap(authorUID, w.AuthorUID),
			ArticleUID: remap(articleUID, w.ArticleUID),
		})
	}

	ds.Articles = articles
	ds.Authors = authors
	if err := checkpoint.Save(cpDir, ds); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Combined %s into %s\n", serpPath, cpDir)
	return nil
}

// remapArticles maps each matched scholar article uid to the canonical uid
// it merged into.
func remapArticles(matches []match.ArticleMatch) map[string]string {
	m := make(map[string]string)
	for _, r := range matches {
		if r.Kind == match.Matched && r.New.UID != r.Existing.UID {
			m[r.New.UID] = r.Existing.UID
		}
	}
	return m
}

// remapAuthors maps both sides of each matched author pair to the uid the
// merged record carries. Either side's old uid can differ from the merged
// one: the match may establish an ORCID iD from the existing record or
// from the scholar record, and the stable identifier wins in both cases.
func remapAuthors(matches []match.AuthorMatch) map[string]string {
	m := make(map[string]string)
	for _, r := range matches {
		if r.Kind != match.Matched {
			continue
		}
		canonical := merge.ResolveUID(r.Existing, r.New)
		if r.Existing.UID != canonical {
			m[r.Existing.UID] = canonical
		}
		if r.New.UID != canonical {
			m[r.New.UID] = canonical
		}
	}
	return m
}

func remap(m map[string]string, uid string) string {
	if canonical, ok := m[uid]; ok {
		return canonical
	}
	return uid
}
