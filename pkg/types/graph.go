// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"time"
)

// Author is one canonical author record. An author may be known through
// ORCID, through Google Scholar, or both; the uid stabilizes to the ORCID
// iD when known and falls back to the Google Scholar id otherwise.
type Author struct {
	UID             string `json:"uid" yaml:"uid"`
	ORCIDID         string `json:"orcid_id,omitempty" yaml:"orcid_id,omitempty"`
	GoogleScholarID string `json:"google_scholar_id,omitempty" yaml:"google_scholar_id,omitempty"`
	Name            string `json:"name,omitempty" yaml:"name,omitempty"`
}

// Validate checks the constraints that every canonical author must hold.
func (a Author) Validate() error {
	if a.UID == "" {
		return fmt.Errorf("author: missing uid")
	}
	if a.ORCIDID == "" && a.GoogleScholarID == "" {
		return fmt.Errorf("author %s: no external identifier", a.UID)
	}
	if a.ORCIDID != "" && !ValidORCID(a.ORCIDID) {
		return fmt.Errorf("author %s: malformed orcid id %q", a.UID, a.ORCIDID)
	}
	return nil
}

// OrganizationIDSource identifies the registry an institution's
// organization id comes from. SourceHash marks the content-derived
// fallback used when no registry id is available.
type OrganizationIDSource string

const (
	OrgIDROR      OrganizationIDSource = "ROR"
	OrgIDGRID     OrganizationIDSource = "GRID"
	OrgIDRINGGOLD OrganizationIDSource = "RINGGOLD"
	OrgIDLEI      OrganizationIDSource = "LEI"
	OrgIDFUNDREF  OrganizationIDSource = "FUNDREF"
	OrgIDHash     OrganizationIDSource = "sha256"
)

// ValidOrgIDSource reports whether s names a known registry or the
// fallback hash scheme.
func ValidOrgIDSource(s OrganizationIDSource) bool {
	switch s {
	case OrgIDROR, OrgIDGRID, OrgIDRINGGOLD, OrgIDLEI, OrgIDFUNDREF, OrgIDHash:
		return true
	}
	return false
}

// Institution is one canonical institution record. When no registry id is
// available the uid is a deterministic 8-character hash of the name, so
// re-runs over unchanged inputs reproduce identical uids.
type Institution struct {
	UID                  string               `json:"uid" yaml:"uid"`
	Name                 string               `json:"name" yaml:"name"`
	OrganizationID       string               `json:"organization_id" yaml:"organization_id"`
	OrganizationIDSource OrganizationIDSource `json:"organization_id_source" yaml:"organization_id_source"`
}

// Validate checks the constraints that every canonical institution must hold.
func (i Institution) Validate() error {
	if i.UID == "" {
		return fmt.Errorf("institution: missing uid")
	}
	if i.Name == "" {
		return fmt.Errorf("institution %s: missing name", i.UID)
	}
	if i.OrganizationID == "" {
		return fmt.Errorf("institution %s: missing organization id", i.UID)
	}
	if !ValidOrgIDSource(i.OrganizationIDSource) {
		return fmt.Errorf("institution %s: unknown organization id source %q", i.UID, i.OrganizationIDSource)
	}
	return nil
}

// ArticleCitesArticle is one directed citation edge between articles.
type ArticleCitesArticle struct {
	SourceUID string `json:"article_uid_source" yaml:"article_uid_source"`
	TargetUID string `json:"article_uid_target" yaml:"article_uid_target"`
}

// Validate rejects incomplete edges and self-citations.
func (e ArticleCitesArticle) Validate() error {
	if e.SourceUID == "" || e.TargetUID == "" {
		return fmt.Errorf("citation edge: missing endpoint (%q -> %q)", e.SourceUID, e.TargetUID)
	}
	if e.SourceUID == e.TargetUID {
		return fmt.Errorf("citation edge: self-citation on %s", e.SourceUID)
	}
	return nil
}

// AuthorWroteArticle is one authorship edge.
type AuthorWroteArticle struct {
	AuthorUID  string `json:"author_uid" yaml:"author_uid"`
	ArticleUID string `json:"article_uid" yaml:"article_uid"`
}

// Validate rejects incomplete edges.
func (e AuthorWroteArticle) Validate() error {
	if e.AuthorUID == "" || e.ArticleUID == "" {
		return fmt.Errorf("authorship edge: missing endpoint (%q -> %q)", e.AuthorUID, e.ArticleUID)
	}
	return nil
}

// AuthorAffiliatedWithInstitution is one affiliation edge. An author may
// hold several affiliations over time; the assembler flags at most one of
// them as current, chosen by latest start date.
type AuthorAffiliatedWithInstitution struct {
	AuthorUID      string    `json:"author_uid" yaml:"author_uid"`
	InstitutionUID string    `json:"institution_uid" yaml:"institution_uid"`
	StartDate      time.Time `json:"start_date,omitempty" yaml:"start_date,omitempty"`
	EndDate        time.Time `json:"end_date,omitempty" yaml:"end_date,omitempty"`
	Current        bool      `json:"is_current" yaml:"is_current"`
}

// Validate rejects incomplete edges.
func (e AuthorAffiliatedWithInstitution) Validate() error {
	if e.AuthorUID == "" || e.InstitutionUID == "" {
		return fmt.Errorf("affiliation edge: missing endpoint (%q -> %q)", e.AuthorUID, e.InstitutionUID)
	}
	if !e.StartDate.IsZero() && !e.EndDate.IsZero() && e.EndDate.Before(e.StartDate) {
		return fmt.Errorf("affiliation edge %s -> %s: end date before start date", e.AuthorUID, e.InstitutionUID)
	}
	return nil
}
