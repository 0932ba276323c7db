// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the canonical value types shared across pipeline
// stages: entity records (Article, Author, Institution), edge records, and
// per-stage configuration. Records are immutable once constructed; field
// filling happens only through the merge stage.
package types

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Provenance tags. A record merged from two sources carries a composite
// tag (new-source "_" existing-source, e.g. "serp_europmc") so provenance
// is never silently lost.
const (
	SourceEuroPMC  = "europmc"
	SourceRegistry = "csv"
	SourceScholar  = "serp"
)

// baseSources lists the single-source provenance tags.
var baseSources = map[string]bool{
	SourceEuroPMC:  true,
	SourceRegistry: true,
	SourceScholar:  true,
}

// ValidSource reports whether tag is a known provenance tag or a composite
// of known tags joined with underscores.
func ValidSource(tag string) bool {
	if tag == "" {
		return false
	}
	for _, part := range strings.Split(tag, "_") {
		if !baseSources[part] {
			return false
		}
	}
	return true
}

// CombineSources builds the composite provenance tag for a record that was
// confirmed by both a new and an existing source.
func CombineSources(newTag, existingTag string) string {
	if newTag == "" {
		return existingTag
	}
	if existingTag == "" || existingTag == newTag {
		return newTag
	}
	return newTag + "_" + existingTag
}

// doiPattern matches DOIs: "10.1145/1234567.1234568".
var doiPattern = regexp.MustCompile(`(?i)^10\.\d{4,9}/[-._;()/:A-Z0-9]+$`)

// ValidDOI reports whether s is a well-formed DOI.
func ValidDOI(s string) bool {
	return doiPattern.MatchString(s)
}

// orcidPattern matches ORCID iDs: "0000-0002-1825-0097".
var orcidPattern = regexp.MustCompile(`^\d{4}-\d{4}-\d{4}-\d{3}[0-9X]$`)

// ValidORCID reports whether s is a well-formed ORCID iD.
func ValidORCID(s string) bool {
	return orcidPattern.MatchString(s)
}

// Article is one canonical article record. Optional string fields use the
// empty string for "absent"; PublicationDate uses the zero time; Citations
// uses zero, which is also the merge default.
type Article struct {
	// UID uniquely identifies one real-world article and is stable
	// across pipeline runs.
	UID string `json:"uid" yaml:"uid"`

	// Title is the article title as reported by the preferred source.
	Title string `json:"title" yaml:"title"`

	// Source is the provenance tag, possibly composite.
	Source string `json:"source" yaml:"source"`

	// IsBBP marks articles belonging to the organization's own
	// publication set.
	IsBBP bool `json:"is_bbp" yaml:"is_bbp"`

	// IsPublished distinguishes published articles from work in progress.
	IsPublished bool `json:"is_published" yaml:"is_published"`

	PublicationDate time.Time `json:"publication_date,omitempty" yaml:"publication_date,omitempty"`
	Abstract        string    `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	DOI             string    `json:"doi,omitempty" yaml:"doi,omitempty"`
	PMID            string    `json:"pmid,omitempty" yaml:"pmid,omitempty"`
	EuroPMCID       string    `json:"europmc_id,omitempty" yaml:"europmc_id,omitempty"`
	GoogleScholarID string    `json:"google_scholar_id,omitempty" yaml:"google_scholar_id,omitempty"`
	URL             string    `json:"url,omitempty" yaml:"url,omitempty"`
	ISBNs           string    `json:"isbns,omitempty" yaml:"isbns,omitempty"`

	// Citations is a lower bound on the citation count; merges take the
	// maximum of the two sides, so it never decreases.
	Citations int `json:"citations" yaml:"citations"`
}

// Validate checks the constraints that every canonical article must hold.
func (a Article) Validate() error {
	if a.UID == "" {
		return fmt.Errorf("article: missing uid")
	}
	if a.Title == "" {
		return fmt.Errorf("article %s: missing title", a.UID)
	}
	if !ValidSource(a.Source) {
		return fmt.Errorf("article %s: unknown source tag %q", a.UID, a.Source)
	}
	if a.DOI != "" && !ValidDOI(a.DOI) {
		return fmt.Errorf("article %s: malformed doi %q", a.UID, a.DOI)
	}
	if a.Citations < 0 {
		return fmt.Errorf("article %s: negative citation count %d", a.UID, a.Citations)
	}
	return nil
}

// ArticleLabel is a distinguished article sub-type assigned by the
// assembler. Labels are mutually exclusive; at most one applies.
type ArticleLabel string

const (
	LabelNone        ArticleLabel = ""
	LabelThesis      ArticleLabel = "thesis"
	LabelBook        ArticleLabel = "book"
	LabelUnpublished ArticleLabel = "unpublished"
)

// Label assigns the distinguished sub-type for the article. Predicates are
// evaluated in fixed precedence so the result is deterministic: thesis,
// then book, then unpublished.
func (a Article) Label() ArticleLabel {
	switch {
	case a.IsBBP && strings.Contains(a.URL, "epfl"):
		return LabelThesis
	case strings.Contains(a.URL, "book") || strings.Contains(a.URL, "chapter"):
		return LabelBook
	case a.Source == SourceRegistry && a.PublicationDate.IsZero():
		return LabelUnpublished
	}
	return LabelNone
}
