// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/meshintel/citegraph/pkg/types"
)

// ScholarHarvest is the population extracted from one SERP dump: the
// citing articles, their authors, and the edges tying them together.
type ScholarHarvest struct {
	Articles    []types.Article
	Authors     []types.Author
	Authorships []types.AuthorWroteArticle
	Citations   []types.ArticleCitesArticle
}

// serpRecord is one JSONL line of a SERP citation dump: a seed article and
// the Google Scholar results citing it.
type serpRecord struct {
	ArticleID      string         `json:"article_id"`
	Title          string         `json:"title"`
	TotalCitations int            `json:"total_citations"`
	Citations      []serpCitation `json:"citations"`
}

type serpCitation struct {
	ResultID string       `json:"result_id"`
	Title    string       `json:"title"`
	Link     string       `json:"link"`
	Snippet  string       `json:"snippet"`
	CitedBy  int          `json:"cited_by"`
	Authors  []serpAuthor `json:"authors"`
}

type serpAuthor struct {
	AuthorID string `json:"author_id"`
	Name     string `json:"name"`
}

// ParseScholarFile reads a SERP JSONL dump from disk.
func ParseScholarFile(path string, log *zap.Logger) (ScholarHarvest, error) {
	f, err := os.Open(path)
	if err != nil {
		return ScholarHarvest{}, fmt.Errorf("opening serp dump: %w", err)
	}
	defer f.Close()
	return ParseScholar(f, log)
}

// ParseScholar parses a SERP JSONL stream into the scholar population.
// Seed articles are assumed to already exist in the canonical table, so
// only citing articles and their authors become records; each citing
// article contributes a citation edge pointing at its seed. Malformed
// lines are logged and skipped.
func ParseScholar(r io.Reader, log *zap.Logger) (ScholarHarvest, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var h ScholarHarvest
	seenArticle := make(map[string]bool)
	seenAuthor := make(map[string]bool)
	seenWrote := make(map[types.AuthorWroteArticle]bool)
	seenCite := make(map[types.ArticleCitesArticle]bool)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}

		var rec serpRecord
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			log.Warn("skipping malformed serp line",
				zap.String("stage", "sources/scholar"),
				zap.Int("line", line),
				zap.Error(err))
			continue
		}
		if rec.ArticleID == "" {
			continue
		}

		for _, c := range rec.Citations {
			if c.ResultID == "" || c.ResultID == rec.ArticleID {
				continue
			}

			if !seenArticle[c.ResultID] {
				seenArticle[c.ResultID] = true
				h.Articles = append(h.Articles, types.Article{
					UID:             c.ResultID,
					Title:           CleanScholarTitle(c.Title),
					Source:          types.SourceScholar,
					IsPublished:     true,
					Abstract:        CleanScholarTitle(c.Snippet),
					GoogleScholarID: c.ResultID,
					URL:             c.Link,
					Citations:       c.CitedBy,
				})
			}

			cite := types.ArticleCitesArticle{SourceUID: c.ResultID, TargetUID: rec.ArticleID}
			if !seenCite[cite] {
				seenCite[cite] = true
				h.Citations = append(h.Citations, cite)
			}

			for _, a := range c.Authors {
				if a.AuthorID == "" {
					continue
				}
				if !seenAuthor[a.AuthorID] {
					seenAuthor[a.AuthorID] = true
					h.Authors = append(h.Authors, types.Author{
						UID:             a.AuthorID,
						GoogleScholarID: a.AuthorID,
						Name:            a.Name,
					})
				}
				wrote := types.AuthorWroteArticle{AuthorUID: a.AuthorID, ArticleUID: c.ResultID}
				if !seenWrote[wrote] {
					seenWrote[wrote] = true
					h.Authorships = append(h.Authorships, wrote)
				}
			}
		}
	}
	if err := sc.Err(); err != nil {
		return ScholarHarvest{}, fmt.Errorf("reading serp dump: %w", err)
	}
	return h, nil
}

// CleanScholarTitle strips the stray quote characters Google Scholar
// results carry around titles and snippets.
func CleanScholarTitle(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, `"`, "")
	s = strings.ReplaceAll(s, "'", "")
	return strings.TrimSpace(s)
}
