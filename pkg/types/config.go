// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that call the
// external metadata services.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "citegraph/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// RequestsPerSecond caps the request rate per external service.
	// Zero disables rate limiting.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
}

// FetchConfig holds settings for the metadata-fetch stages (gather,
// authors).
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// DataDir is the base directory for pipeline data (contains
	// registry/ and checkpoint/).
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// EuroPMCEmail is sent with Europe PMC requests for polite access.
	EuroPMCEmail string `json:"europmc_email,omitempty" yaml:"europmc_email,omitempty"`

	// ORCIDToken is the optional ORCID public API token.
	ORCIDToken string `json:"orcid_token,omitempty" yaml:"orcid_token,omitempty"`
}

// CombineConfig holds settings for the record matching and merging stage.
type CombineConfig struct {
	// DataDir is the base directory for pipeline data.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// MatchThreshold is the minimum similarity ratio in [0,100] for an
	// author name match (default 90).
	MatchThreshold int `json:"match_threshold" yaml:"match_threshold"`
}

// CatalogConfig holds settings for the local SQLite catalog.
type CatalogConfig struct {
	// DataDir is the directory holding the catalog database file.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// MaxResults is the default maximum number of query results
	// (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// GraphConfig holds settings for the Neo4j graph store.
type GraphConfig struct {
	// URI is the bolt/neo4j connection URI.
	URI string `json:"uri" yaml:"uri"`

	// Username and Password authenticate against the instance.
	Username string `json:"username" yaml:"username"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`

	// Database is the target database name (default "neo4j").
	Database string `json:"database" yaml:"database"`

	// BatchSize is the number of records per upsert batch (default 500).
	BatchSize int `json:"batch_size" yaml:"batch_size"`
}

// PipelineConfig groups all stage configurations. It is constructed once
// at CLI startup and passed down explicitly; stages hold no process-wide
// state.
type PipelineConfig struct {
	Fetch   FetchConfig   `json:"fetch" yaml:"fetch"`
	Combine CombineConfig `json:"combine" yaml:"combine"`
	Catalog CatalogConfig `json:"catalog" yaml:"catalog"`
	Graph   GraphConfig   `json:"graph" yaml:"graph"`
}
