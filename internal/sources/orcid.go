// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/beevik/etree"

	"github.com/meshintel/citegraph/internal/httputil"
	"github.com/meshintel/citegraph/internal/normalize"
	"github.com/meshintel/citegraph/pkg/types"
)

// ORCIDBase is the ORCID public API endpoint. Declared as a var so tests
// can substitute an httptest server.
var ORCIDBase = "https://pub.orcid.org/v3.0"

// affiliationTypes lists the ORCID activity sections that carry
// organization affiliations.
var affiliationTypes = []string{
	"distinction", "education", "employment", "funding", "invited-position",
	"membership", "peer-review", "qualification", "research-resource", "service",
}

// ORCID fetches author records and affiliations from the ORCID public API.
type ORCID struct {
	client *httputil.Client
	token  string
}

// NewORCID builds an ORCID fetcher. The token is optional; the public API
// answers unauthenticated requests at a lower rate limit.
func NewORCID(client *httputil.Client, token string) *ORCID {
	return &ORCID{client: client, token: token}
}

// AuthorRecord is everything extracted from one ORCID record: the author,
// the organizations they were affiliated with, and the affiliation edges.
type AuthorRecord struct {
	Author       types.Author
	Institutions []types.Institution
	Affiliations []types.AuthorAffiliatedWithInstitution
}

// FetchAuthor retrieves an ORCID record and extracts the author's name and
// affiliation history. The author uid is the ORCID iD itself.
func (o *ORCID) FetchAuthor(ctx context.Context, orcidID string) (AuthorRecord, error) {
	doc, err := o.fetchRecord(ctx, orcidID)
	if err != nil {
		return AuthorRecord{}, err
	}

	rec := AuthorRecord{
		Author: types.Author{
			UID:     orcidID,
			ORCIDID: orcidID,
			Name:    authorName(doc),
		},
	}
	rec.Institutions, rec.Affiliations = affiliations(doc, orcidID)
	return rec, nil
}

// SearchByName searches ORCID for authors by family and given names and
// returns the matching ORCID iDs, in the API's relevance order.
func (o *ORCID) SearchByName(ctx context.Context, familyName, givenNames string) ([]string, error) {
	q := fmt.Sprintf("family-name:%s+AND+given-names:%s",
		url.QueryEscape(familyName), url.QueryEscape(givenNames))
	return o.search(ctx, q)
}

// SearchByDOI returns the ORCID iDs claiming the DOI as their own work.
func (o *ORCID) SearchByDOI(ctx context.Context, doi string) ([]string, error) {
	return o.search(ctx, "doi-self:"+url.QueryEscape(doi))
}

// SearchByPMID returns the ORCID iDs claiming the PubMed id.
func (o *ORCID) SearchByPMID(ctx context.Context, pmid string) ([]string, error) {
	return o.search(ctx, "pmid:"+url.QueryEscape(pmid))
}

// WroteTitle reports whether the ORCID record lists a work whose
// normalized title matches. Used to confirm that a search hit is actually
// an author of the article rather than a namesake.
func (o *ORCID) WroteTitle(ctx context.Context, orcidID, title string) (bool, error) {
	doc, err := o.fetchRecord(ctx, orcidID)
	if err != nil {
		return false, err
	}
	want := normalize.Title(title)
	for _, el := range doc.FindElements("//activities-summary//group//title/title") {
		if normalize.Title(el.Text()) == want {
			return true, nil
		}
	}
	return false, nil
}

func (o *ORCID) search(ctx context.Context, query string) ([]string, error) {
	u := fmt.Sprintf("%s/search/?q=%s", ORCIDBase, query)
	doc, err := o.get(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("orcid search: %w: %w", ErrFetch, err)
	}
	var ids []string
	for _, el := range doc.FindElements("//result/orcid-identifier/path") {
		if el.Text() != "" {
			ids = append(ids, el.Text())
		}
	}
	return ids, nil
}

func (o *ORCID) fetchRecord(ctx context.Context, orcidID string) (*etree.Document, error) {
	doc, err := o.get(ctx, fmt.Sprintf("%s/%s/record", ORCIDBase, url.PathEscape(orcidID)))
	if err != nil {
		return nil, fmt.Errorf("orcid record %s: %w: %w", orcidID, ErrFetch, err)
	}
	return doc, nil
}

func (o *ORCID) get(ctx context.Context, u string) (*etree.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/xml")
	if o.token != "" {
		req.Header.Set("Authorization", "Bearer "+o.token)
	}

	resp, err := o.client.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	return doc, nil
}

// authorName extracts "given-names family-name" from a record, or "".
func authorName(doc *etree.Document) string {
	name := doc.FindElement("//person/name")
	if name == nil {
		return ""
	}
	given := name.FindElement(".//given-names")
	family := name.FindElement(".//family-name")
	if given == nil || family == nil || given.Text() == "" || family.Text() == "" {
		return ""
	}
	return given.Text() + " " + family.Text()
}

// affiliations walks every activity section of the record and extracts one
// institution and one affiliation edge per position. Organizations without
// a disambiguated identifier get a deterministic content hash id.
func affiliations(doc *etree.Document, orcidID string) ([]types.Institution, []types.AuthorAffiliatedWithInstitution) {
	var institutions []types.Institution
	var edges []types.AuthorAffiliatedWithInstitution

	for _, typ := range affiliationTypes {
		for _, pos := range doc.FindElements("//" + typ + "-summary") {
			orgName := findText(pos, ".//organization/name")
			if orgName == "" {
				continue
			}

			orgID := findText(pos, ".//disambiguated-organization-identifier")
			orgSource := types.OrganizationIDSource(findText(pos, ".//disambiguation-source"))
			if orgID == "" {
				orgID = normalize.ContentID(orgName)
				orgSource = types.OrgIDHash
			}

			institutions = append(institutions, types.Institution{
				UID:                  orgID,
				Name:                 orgName,
				OrganizationID:       orgID,
				OrganizationIDSource: orgSource,
			})
			edges = append(edges, types.AuthorAffiliatedWithInstitution{
				AuthorUID:      orcidID,
				InstitutionUID: orgID,
				StartDate:      affiliationDate(pos, "start-date"),
				EndDate:        affiliationDate(pos, "end-date"),
			})
		}
	}
	return institutions, edges
}

// affiliationDate reads a fuzzy ORCID date. Year-only dates resolve to
// January 1st; out-of-range days are clamped to the end of the month, a
// known quirk of member-supplied data.
func affiliationDate(pos *etree.Element, kind string) time.Time {
	year := findInt(pos, "./"+kind+"/year")
	if year == 0 {
		return time.Time{}
	}
	month := findInt(pos, "./"+kind+"/month")
	day := findInt(pos, "./"+kind+"/day")
	if month == 0 || day == 0 {
		return time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if last := daysIn(year, time.Month(month)); day > last {
		day = last
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

func daysIn(year int, m time.Month) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func findText(el *etree.Element, path string) string {
	if found := el.FindElement(path); found != nil {
		return found.Text()
	}
	return ""
}

func findInt(el *etree.Element, path string) int {
	n, err := strconv.Atoi(findText(el, path))
	if err != nil {
		return 0
	}
	return n
}
