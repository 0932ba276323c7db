// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/meshintel/citegraph/internal/normalize"
	"github.com/meshintel/citegraph/pkg/types"
)

// RegistryEntry is one row of the internal publication registry: the
// organization's own publications, maintained by hand in CSV files.
type RegistryEntry struct {
	Title           string
	Authors         []string
	DOI             string
	URL             string
	ISBNs           string
	PublicationDate time.Time
	IsPublished     bool
}

// Article converts a registry entry into a canonical article record. The
// uid is the DOI when present, otherwise a deterministic content hash of
// the normalized title so re-runs reproduce the same uid.
func (e RegistryEntry) Article() types.Article {
	uid := e.DOI
	if uid == "" {
		uid = normalize.ContentID(normalize.Title(e.Title))
	}
	return types.Article{
		UID:             uid,
		Title:           e.Title,
		Source:          types.SourceRegistry,
		IsBBP:           true,
		IsPublished:     e.IsPublished,
		PublicationDate: e.PublicationDate,
		DOI:             e.DOI,
		URL:             e.URL,
		ISBNs:           e.ISBNs,
	}
}

// Registry reads the internal publication registry. The registry is split
// across three files: published articles, work-in-progress articles, and
// work-in-progress theses; the latter two are marked unpublished.
type Registry struct {
	log *zap.Logger
}

// NewRegistry builds a registry reader logging through log.
func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{log: log}
}

// LoadAll reads the three registry files and returns the combined entries,
// deduplicated by normalized title (first file listed wins). Missing
// work-in-progress files are tolerated; the published file is required.
func (r *Registry) LoadAll(publishedPath, wipArticlesPath, wipThesesPath string) ([]RegistryEntry, error) {
	entries, err := r.loadFile(publishedPath, true)
	if err != nil {
		return nil, err
	}

	for _, path := range []string{wipArticlesPath, wipThesesPath} {
		if path == "" {
			continue
		}
		wip, err := r.loadFile(path, false)
		if os.IsNotExist(err) {
			r.log.Warn("registry file missing",
				zap.String("stage", "sources/registry"),
				zap.String("path", path))
			continue
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, wip...)
	}

	seen := make(map[string]bool, len(entries))
	out := make([]RegistryEntry, 0, len(entries))
	for _, e := range entries {
		key := normalize.Title(e.Title)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	return out, nil
}

func (r *Registry) loadFile(path string, published bool) ([]RegistryEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	entries, err := r.Parse(f, published)
	if err != nil {
		return nil, fmt.Errorf("parsing registry %s: %w", path, err)
	}
	return entries, nil
}

// Parse reads one registry CSV. The header row names the columns; "title"
// is required, "author", "doi", "url", "isbns", and "publication_date" are
// optional. Column matching is case-insensitive. Rows without a title are
// skipped with a warning.
func (r *Registry) Parse(src io.Reader, published bool) ([]RegistryEntry, error) {
	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := col["title"]; !ok {
		return nil, fmt.Errorf("registry is missing a title column")
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var entries []RegistryEntry
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		line++

		e := RegistryEntry{
			Title:       field(row, "title"),
			DOI:         field(row, "doi"),
			URL:         field(row, "url"),
			ISBNs:       field(row, "isbns"),
			IsPublished: published,
		}
		if e.Title == "" {
			r.log.Warn("skipping registry row without title",
				zap.String("stage", "sources/registry"),
				zap.Int("row", line))
			continue
		}

		// Registry author lists are semicolon-separated "Family, Given".
		if authors := field(row, "author"); authors != "" {
			for _, name := range strings.Split(authors, ";") {
				if name = strings.TrimSpace(name); name != "" {
					e.Authors = append(e.Authors, name)
				}
			}
		}
		if ds := field(row, "publication_date"); ds != "" {
			d, err := time.Parse("2006-01-02", ds)
			if err != nil {
				r.log.Warn("skipping unparseable registry date",
					zap.String("stage", "sources/registry"),
					zap.Int("row", line),
					zap.String("date", ds))
			} else {
				e.PublicationDate = d
			}
		}
		entries = append(entries, e)
	}
}
