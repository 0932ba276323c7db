// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets reads pipeline credentials from a directory of
// single-value files, one secret per file. The filename is the lookup
// key and the trimmed file body is the value, so credentials stay out
// of the config file and the environment. The pipeline looks for
// serpapi-api-key, orcid-token, neo4j-password, and europmc-email.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Load reads every regular file in dir into a key/value map. A missing
// directory yields an empty map so a checkout without credentials still
// runs the offline stages. Dotfiles and subdirectories are ignored, and
// a file that cannot be read is skipped with a warning rather than
// failing the whole run.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("listing credentials in %s: %w", dir, err)
	}

	out := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: skipping credential %s: %v\n", name, err)
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			out[name] = value
		}
	}

	return out, nil
}
