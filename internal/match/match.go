// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package match pairs new candidate records with existing canonical
// records that denote the same real-world entity. Author matching uses
// blocking plus approximate string similarity; article matching uses
// full-outer-join semantics on the normalized title key. The matcher never
// merges fields and never deduplicates within a single population — both
// are the merge stage's job.
package match

import (
	"github.com/agnivade/levenshtein"
	"go.uber.org/zap"

	"github.com/meshintel/citegraph/internal/normalize"
	"github.com/meshintel/citegraph/pkg/types"
)

// DefaultThreshold is the minimum similarity ratio for an author match.
const DefaultThreshold = 90

// Kind tags one match outcome.
type Kind int

const (
	// Matched pairs a new record with an existing canonical record.
	Matched Kind = iota
	// Inserted is a new record with no acceptable existing candidate.
	Inserted
	// Passthrough is an existing record no new record claimed; it flows
	// into the output unchanged.
	Passthrough
)

func (k Kind) String() string {
	switch k {
	case Matched:
		return "matched"
	case Inserted:
		return "inserted"
	default:
		return "passthrough"
	}
}

// Ratio returns a symmetric edit-distance similarity in [0,100].
// The Levenshtein distance is normalized by the shorter string, so a
// one-letter difference between short names ("jon smith" vs "john smith")
// stays under the match threshold and distinct people are kept apart.
func Ratio(a, b string) int {
	if a == b {
		return 100
	}
	la, lb := len([]rune(a)), len([]rune(b))
	shorter := la
	if lb < la {
		shorter = lb
	}
	if shorter == 0 {
		return 0
	}
	d := levenshtein.ComputeDistance(a, b)
	if d >= shorter {
		return 0
	}
	return 100 * (shorter - d) / shorter
}

// AuthorMatch is one author matching outcome. New is set for Matched and
// Inserted, Existing for Matched and Passthrough, Score for Matched.
type AuthorMatch struct {
	Kind     Kind
	New      types.Author
	Existing types.Author
	Score    int
}

// authorKeys holds the precomputed blocking keys for one record.
type authorKeys struct {
	normalized string
	initials   string
	lastName   string
}

func keysFor(name string) authorKeys {
	n := normalize.AuthorName(name)
	return authorKeys{normalized: n, initials: normalize.Initials(n), lastName: normalize.LastName(n)}
}

// Authors matches newAuthors against existing canonical authors.
//
// For each new record, candidate existing records are restricted to those
// sharing initials OR last name (blocking widens recall without full
// pairwise comparison across the roster). Within the block the candidate
// with the highest Ratio wins if it reaches threshold; at equal scores the
// first candidate in existing-input order wins, which keeps the output
// deterministic for stable input ordering. Each existing record can be
// consumed by at most one new record per run. Existing records never
// claimed are emitted as Passthrough in input order, after all new-record
// outcomes.
//
// Empty populations are valid and degenerate into all-insert or
// all-passthrough results.
func Authors(newAuthors, existing []types.Author, threshold int, log *zap.Logger) []AuthorMatch {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if log == nil {
		log = zap.NewNop()
	}

	existingKeys := make([]authorKeys, len(existing))
	byInitials := make(map[string][]int)
	byLastName := make(map[string][]int)
	for i, a := range existing {
		k := keysFor(a.Name)
		existingKeys[i] = k
		if k.initials != "" {
			byInitials[k.initials] = append(byInitials[k.initials], i)
		}
		if k.lastName != "" {
			byLastName[k.lastName] = append(byLastName[k.lastName], i)
		}
	}

	consumed := make([]bool, len(existing))
	results := make([]AuthorMatch, 0, len(newAuthors)+len(existing))

	for _, na := range newAuthors {
		nk := keysFor(na.Name)

		// Candidate block: union of the two key indexes, deduplicated.
		// Iteration order is fixed (initials block, then last-name
		// block, each in existing-input order) so tie-breaks are stable.
		inBlock := make(map[int]bool)
		var block []int
		for _, idxs := range [][]int{byInitials[nk.initials], byLastName[nk.lastName]} {
			for _, idx := range idxs {
				if !inBlock[idx] {
					inBlock[idx] = true
					block = append(block, idx)
				}
			}
		}

		bestIdx, bestScore, ties := -1, -1, 0
		for _, idx := range block {
			if consumed[idx] {
				continue
			}
			score := Ratio(nk.normalized, existingKeys[idx].normalized)
			if score > bestScore {
				bestIdx, bestScore, ties = idx, score, 1
			} else if score == bestScore {
				ties++
			}
		}

		if bestIdx >= 0 && bestScore >= threshold {
			if ties > 1 {
				log.Warn("ambiguous author match, keeping first candidate",
					zap.String("stage", "match"),
					zap.String("new_name", na.Name),
					zap.String("existing_uid", existing[bestIdx].UID),
					zap.Int("score", bestScore),
					zap.Int("candidates", ties))
			}
			consumed[bestIdx] = true
			results = append(results, AuthorMatch{Kind: Matched, New: na, Existing: existing[bestIdx], Score: bestScore})
			continue
		}
		results = append(results, AuthorMatch{Kind: Inserted, New: na})
	}

	for i, ea := range existing {
		if !consumed[i] {
			results = append(results, AuthorMatch{Kind: Passthrough, Existing: ea})
		}
	}
	return results
}

// ArticleMatch is one article matching outcome. New is set for Matched and
// Inserted, Existing for Matched and Passthrough.
type ArticleMatch struct {
	Kind     Kind
	New      types.Article
	Existing types.Article
}

// Articles matches newArticles against existing canonical articles with
// full-outer-join semantics on the normalized title key: a key present on
// both sides is a Matched pair for field-level merging, a new-only key is
// an Inserted record, and an existing-only key passes through unchanged.
// Each existing record is consumed at most once per run.
func Articles(newArticles, existing []types.Article) []ArticleMatch {
	byTitle := make(map[string][]int)
	for i, a := range existing {
		key := normalize.Title(a.Title)
		byTitle[key] = append(byTitle[key], i)
	}

	consumed := make([]bool, len(existing))
	results := make([]ArticleMatch, 0, len(newArticles)+len(existing))

	for _, na := range newArticles {
		key := normalize.Title(na.Title)
		matched := false
		for _, idx := range byTitle[key] {
			if consumed[idx] {
				continue
			}
			consumed[idx] = true
			results = append(results, ArticleMatch{Kind: Matched, New: na, Existing: existing[idx]})
			matched = true
			break
		}
		if !matched {
			results = append(results, ArticleMatch{Kind: Inserted, New: na})
		}
	}

	for i, ea := range existing {
		if !consumed[i] {
			results = append(results, ArticleMatch{Kind: Passthrough, Existing: ea})
		}
	}
	return results
}
