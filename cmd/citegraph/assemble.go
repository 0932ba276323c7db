// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/meshintel/citegraph/internal/assemble"
	"github.com/meshintel/citegraph/internal/checkpoint"
)

var assembleCmd = &cobra.Command{
	Use:   "assemble",
	Short: "Assemble the load-ready dataset and write the run report",
	Long: `Assemble enforces the dataset invariants over the checkpointed tables:
edges must reference known endpoints, self-citations and duplicates are
dropped, each author gets at most one current affiliation, and every
table is sorted into its canonical order. The consistent dataset
replaces the checkpoint and an audit report is written alongside it.`,
	RunE: runAssemble,
}

func init() {
	assembleCmd.Flags().String("report", "", "run report path (default: <data-dir>/run_report.yaml)")
	rootCmd.AddCommand(assembleCmd)
}

func runAssemble(cmd *cobra.Command, args []string) error {
	dir := dataDir(cmd)
	reportPath, _ := cmd.Flags().GetString("report")
	if reportPath == "" {
		reportPath = filepath.Join(dir, "run_report.yaml")
	}

	cpDir := filepath.Join(dir, "checkpoint")
	ds, err := checkpoint.Load(cpDir)
	if err != nil {
		return err
	}
	if len(ds.Articles) == 0 {
		return fmt.Errorf("no articles checkpointed under %s; run gather first", cpDir)
	}

	out, counts := assemble.Assemble(ds, log)
	if err := checkpoint.Save(cpDir, out); err != nil {
		return err
	}

	report := assemble.NewRunReport(counts)
	raw, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("encoding run report: %w", err)
	}
	if err := os.WriteFile(reportPath, raw, 0o644); err != nil {
		return fmt.Errorf("writing run report: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Run %s assembled: %d articles, %d authors, %d institutions, %d citations\n",
		report.RunID, counts.Articles, counts.Authors, counts.Institutions, counts.Citations.Out)
	fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", reportPath)
	return nil
}
