// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package merge

import (
	"go.uber.org/zap"

	"github.com/meshintel/citegraph/internal/match"
	"github.com/meshintel/citegraph/pkg/types"
)

// Summary holds per-stage counts for one merge run, so an operator can
// audit data quality without inspecting raw files.
type Summary struct {
	In          int
	Matched     int
	Inserted    int
	Passthrough int
	Dropped     int

	// Out is the surviving record count after validation and
	// uid deduplication.
	Out int
}

// Merger collapses match outcomes into canonical records. Records failing
// validation are logged and dropped; one bad record never aborts a batch.
type Merger struct {
	log *zap.Logger
}

// New returns a Merger logging through log (zap.NewNop when nil).
func New(log *zap.Logger) *Merger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Merger{log: log}
}

// Articles produces the canonical article population from match outcomes.
// Matched pairs merge field-by-field under the article policy table;
// Inserted and Passthrough records flow through. The unioned population is
// then deduplicated by uid (first occurrence wins) and validated.
func (m *Merger) Articles(results []match.ArticleMatch) ([]types.Article, Summary) {
	s := Summary{In: len(results)}
	merged := make([]types.Article, 0, len(results))

	for _, r := range results {
		switch r.Kind {
		case match.Matched:
			s.Matched++
			merged = append(merged, applyPolicies(r.Existing, r.New, articlePolicy))
		case match.Inserted:
			s.Inserted++
			merged = append(merged, r.New)
		case match.Passthrough:
			s.Passthrough++
			merged = append(merged, r.Existing)
		}
	}

	out := make([]types.Article, 0, len(merged))
	seen := make(map[string]bool)
	for _, a := range merged {
		if err := a.Validate(); err != nil {
			s.Dropped++
			m.log.Warn("dropping invalid article",
				zap.String("stage", "merge/articles"),
				zap.String("uid", a.UID),
				zap.String("title", a.Title),
				zap.Error(err))
			continue
		}
		if seen[a.UID] {
			continue
		}
		seen[a.UID] = true
		out = append(out, a)
	}
	s.Out = len(out)
	return out, s
}

// Authors produces the canonical author population from match outcomes.
// Beyond the field policy table, author identity must resolve across
// identifier schemes: once a record carries an ORCID iD its uid is that
// iD, whichever side discovered it; scholar-only records keep the Google
// Scholar id as uid until the ORCID link is established.
func (m *Merger) Authors(results []match.AuthorMatch) ([]types.Author, Summary) {
	s := Summary{In: len(results)}
	merged := make([]types.Author, 0, len(results))

	for _, r := range results {
		switch r.Kind {
		case match.Matched:
			s.Matched++
			merged = append(merged, stabilizeUID(applyPolicies(r.Existing, r.New, authorPolicy)))
		case match.Inserted:
			s.Inserted++
			merged = append(merged, stabilizeUID(r.New))
		case match.Passthrough:
			s.Passthrough++
			merged = append(merged, r.Existing)
		}
	}

	out := make([]types.Author, 0, len(merged))
	seen := make(map[string]bool)
	for _, a := range merged {
		if err := a.Validate(); err != nil {
			s.Dropped++
			m.log.Warn("dropping invalid author",
				zap.String("stage", "merge/authors"),
				zap.String("uid", a.UID),
				zap.String("name", a.Name),
				zap.Error(err))
			continue
		}
		if seen[a.UID] {
			continue
		}
		seen[a.UID] = true
		out = append(out, a)
	}
	s.Out = len(out)
	return out, s
}

// ResolveUID reports the uid a matched author pair merges into. It runs
// the same policy and uid stabilization as Authors, so edge remapping
// always lands on the uid the merged record actually carries, including
// when the ORCID iD arrives on the new side.
func ResolveUID(existing, incoming types.Author) string {
	return stabilizeUID(applyPolicies(existing, incoming, authorPolicy)).UID
}

// stabilizeUID pins the author uid to the ORCID iD when one is known,
// falling back to the Google Scholar id.
func stabilizeUID(a types.Author) types.Author {
	switch {
	case a.ORCIDID != "":
		a.UID = a.ORCIDID
	case a.UID == "" && a.GoogleScholarID != "":
		a.UID = a.GoogleScholarID
	}
	return a
}

// Institutions deduplicates and validates an institution population.
// Institutions carry registry identifiers (or deterministic fallback
// hashes) as uids, so there is no fuzzy matching step: same uid, same
// institution, first occurrence wins.
func (m *Merger) Institutions(institutions []types.Institution) ([]types.Institution, Summary) {
	s := Summary{In: len(institutions)}
	out := make([]types.Institution, 0, len(institutions))
	seen := make(map[string]bool)
	for _, in := range institutions {
		if err := in.Validate(); err != nil {
			s.Dropped++
			m.log.Warn("dropping invalid institution",
				zap.String("stage", "merge/institutions"),
				zap.String("uid", in.UID),
				zap.String("name", in.Name),
				zap.Error(err))
			continue
		}
		if seen[in.UID] {
			continue
		}
		seen[in.UID] = true
		out = append(out, in)
		s.Passthrough++
	}
	s.Out = len(out)
	return out, s
}
