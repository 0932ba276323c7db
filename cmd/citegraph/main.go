// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the citegraph CLI. Each pipeline
// stage is a subcommand: gather, authors, combine, assemble, cluster,
// store, and load. Stages communicate through CSV checkpoint tables under
// the data directory, so any stage can be re-run in isolation.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/meshintel/citegraph/internal/secrets"
	"github.com/meshintel/citegraph/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// log is the process-wide logger, configured in PersistentPreRunE.
var log *zap.Logger

// secretDefault returns the secret value for key if it exists, or fallback otherwise.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the citegraph CLI.
var rootCmd = &cobra.Command{
	Use:   "citegraph",
	Short: "Build a citation knowledge graph from scholarly sources",
	Long: `citegraph assembles a citation knowledge graph for an organization's
publication set. It gathers articles and citation links from Europe PMC,
author and affiliation records from ORCID, and Google Scholar results via
the SERP API, resolves the three populations into one canonical dataset,
and loads the result into Neo4j.

Each pipeline stage is a subcommand: gather, authors, combine, assemble,
cluster, store, and load. Stages checkpoint to CSV tables under the data
directory so a crashed or interrupted run resumes from the last stage.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			log, err = zap.NewDevelopment()
		} else {
			log, err = zap.NewProduction()
		}
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}

		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./citegraph.yaml or ~/.config/citegraph/config.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "data", "base directory for checkpoint tables and source dumps")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("citegraph")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "citegraph"))
		}
	}

	viper.SetEnvPrefix("CITEGRAPH")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// pipelineConfig assembles the per-stage configurations from the config
// file values. Subcommands overlay individual fields from their flags and
// pass the stage struct down; stages hold no viper or flag state.
func pipelineConfig(dir string) types.PipelineConfig {
	return types.PipelineConfig{
		Fetch: types.FetchConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:           viper.GetDuration("fetch.timeout"),
				UserAgent:         "citegraph/" + version,
				RequestsPerSecond: viper.GetFloat64("fetch.requests_per_second"),
			},
			DataDir:      dir,
			EuroPMCEmail: viper.GetString("fetch.europmc_email"),
			ORCIDToken:   viper.GetString("fetch.orcid_token"),
		},
		Combine: types.CombineConfig{
			DataDir:        dir,
			MatchThreshold: viper.GetInt("combine.match_threshold"),
		},
		Catalog: types.CatalogConfig{
			DataDir:    filepath.Join(dir, "catalog"),
			MaxResults: viper.GetInt("catalog.max_results"),
		},
		Graph: types.GraphConfig{
			URI:       viper.GetString("graph.uri"),
			Username:  viper.GetString("graph.username"),
			Database:  viper.GetString("graph.database"),
			BatchSize: viper.GetInt("graph.batch_size"),
		},
	}
}

// dataDir resolves the checkpoint directory from the flag, falling back to
// the config file value.
func dataDir(cmd *cobra.Command) string {
	dir, _ := cmd.Flags().GetString("data-dir")
	if !cmd.Flags().Changed("data-dir") {
		if v := viper.GetString("data_dir"); v != "" {
			dir = v
		}
	}
	return dir
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
