// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sources implements the fetchers and parsers for the three
// external populations: Europe PMC (XML REST API), ORCID (XML records),
// and Google Scholar via the SERP API (JSONL dumps), plus the internal
// publication registry CSVs. Each fetcher emits the shared record types;
// identity resolution across sources happens downstream.
package sources

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/meshintel/citegraph/internal/httputil"
	"github.com/meshintel/citegraph/internal/normalize"
	"github.com/meshintel/citegraph/pkg/types"
)

// ErrFetch tags failures of the external metadata services so callers can
// distinguish them from local parse or file errors with errors.Is.
var ErrFetch = errors.New("metadata fetch failed")

// EuroPMCBase is the Europe PMC REST endpoint. Declared as a var so tests
// can substitute an httptest server.
var EuroPMCBase = "https://www.ebi.ac.uk/europepmc/webservices/rest"

// citationPageSize is the Europe PMC maximum page size.
const citationPageSize = 1000

// EuroPMC fetches article metadata and citation links from Europe PMC.
type EuroPMC struct {
	client *httputil.Client
	email  string
	log    *zap.Logger
}

// NewEuroPMC builds a Europe PMC fetcher. The email is passed along per
// the API's fair-use policy; empty is allowed.
func NewEuroPMC(client *httputil.Client, email string, log *zap.Logger) *EuroPMC {
	if log == nil {
		log = zap.NewNop()
	}
	return &EuroPMC{client: client, email: email, log: log}
}

// europmcSearch mirrors the Europe PMC search response envelope.
type europmcSearch struct {
	HitCount int              `xml:"hitCount"`
	Results  []EuroPMCResult `xml:"resultList>result"`
}

// europmcCitations mirrors the citations response envelope.
type europmcCitations struct {
	HitCount int      `xml:"hitCount"`
	IDs      []string `xml:"citationList>citation>id"`
}

type europmcAuthorID struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

// EuroPMCResult is one raw search result, kept around so callers can pull
// the author id list in addition to the article fields.
type EuroPMCResult struct {
	ID                   string            `xml:"id"`
	Source               string            `xml:"source"`
	Title                string            `xml:"title"`
	Abstract             string            `xml:"abstractText"`
	DOI                  string            `xml:"doi"`
	PMID                 string            `xml:"pmid"`
	FirstPublicationDate string            `xml:"firstPublicationDate"`
	CitedByCount         int               `xml:"citedByCount"`
	FullTextURLs         []string          `xml:"fullTextUrlList>fullTextUrl>url"`
	AuthorIDs            []europmcAuthorID `xml:"authorIdList>authorId"`
}

// Article converts a Europe PMC result into a canonical article record.
func (r EuroPMCResult) Article(isBBP bool) types.Article {
	a := types.Article{
		UID:         r.ID,
		Title:       r.Title,
		Source:      types.SourceEuroPMC,
		IsBBP:       isBBP,
		IsPublished: true,
		Abstract:    r.Abstract,
		DOI:         r.DOI,
		PMID:        normalizePMID(r.PMID),
		EuroPMCID:   r.ID,
		Citations:   r.CitedByCount,
	}
	if len(r.FullTextURLs) > 0 {
		a.URL = r.FullTextURLs[0]
	}
	if r.FirstPublicationDate != "" {
		if d, err := time.Parse("2006-01-02", r.FirstPublicationDate); err == nil {
			a.PublicationDate = d
		}
	}
	return a
}

// ORCIDs returns the ORCID iDs attached to the result's author id list.
func (r EuroPMCResult) ORCIDs() []string {
	var out []string
	for _, id := range r.AuthorIDs {
		if id.Type == "ORCID" && id.Value != "" {
			out = append(out, id.Value)
		}
	}
	return out
}

// FetchArticle retrieves one article's metadata by Europe PMC id.
func (e *EuroPMC) FetchArticle(ctx context.Context, europmcID string) (types.Article, error) {
	u := fmt.Sprintf("%s/search?query=EXT_ID:%s&resultType=core&format=xml",
		EuroPMCBase, url.QueryEscape(europmcID))
	resp, err := e.search(ctx, u)
	if err != nil {
		return types.Article{}, err
	}
	if len(resp.Results) == 0 {
		return types.Article{}, fmt.Errorf("europmc: no article for id %s", europmcID)
	}
	return resp.Results[0].Article(false), nil
}

// FindArticle locates a registry article on Europe PMC by DOI, then by
// each ISBN, then by title search, accepting a result only when its
// normalized title matches. Returns found=false when nothing matches.
func (e *EuroPMC) FindArticle(ctx context.Context, doi, isbns, title string) (EuroPMCResult, bool, error) {
	want := normalize.Title(title)

	queries := make([]string, 0, 4)
	if doi != "" {
		queries = append(queries, "DOI:"+doi)
	}
	for _, isbn := range strings.Fields(isbns) {
		queries = append(queries, "ISBN:"+isbn)
	}
	queries = append(queries, title)

	for _, q := range queries {
		u := fmt.Sprintf("%s/search?query=%s&resultType=core&format=xml",
			EuroPMCBase, url.QueryEscape(q))
		resp, err := e.search(ctx, u)
		if err != nil {
			return EuroPMCResult{}, false, err
		}
		for _, r := range resp.Results {
			if normalize.Title(r.Title) == want {
				return r, true, nil
			}
		}
	}
	return EuroPMCResult{}, false, nil
}

// FetchCitationIDs pages through the citations endpoint and returns the
// Europe PMC ids of every article citing (source, europmcID). The seed id
// itself is filtered out.
func (e *EuroPMC) FetchCitationIDs(ctx context.Context, source, europmcID string) ([]string, error) {
	page := 1
	var ids []string
	for {
		u := fmt.Sprintf("%s/%s/%s/citations?page=%d&pageSize=%d&format=xml",
			EuroPMCBase, url.PathEscape(source), url.PathEscape(europmcID), page, citationPageSize)

		var resp europmcCitations
		err := e.client.Get(ctx, u, func(body io.Reader) error {
			return xml.NewDecoder(body).Decode(&resp)
		})
		if err != nil {
			return nil, fmt.Errorf("europmc citations for %s: %w: %w", europmcID, ErrFetch, err)
		}

		for _, id := range resp.IDs {
			if id != "" && id != europmcID {
				ids = append(ids, id)
			}
		}
		if page*citationPageSize >= resp.HitCount || len(resp.IDs) == 0 {
			return ids, nil
		}
		page++
	}
}

// Citations fetches every article citing the seed and returns the citation
// edges (citing article -> seed) together with the citing articles'
// metadata. Articles that cannot be fetched are skipped with a warning so
// one bad record never aborts a gather run.
func (e *EuroPMC) Citations(ctx context.Context, source, europmcID string) ([]types.ArticleCitesArticle, []types.Article, error) {
	ids, err := e.FetchCitationIDs(ctx, source, europmcID)
	if err != nil {
		return nil, nil, err
	}

	var edges []types.ArticleCitesArticle
	var citing []types.Article
	for _, id := range ids {
		a, err := e.FetchArticle(ctx, id)
		if err != nil {
			e.log.Warn("skipping citing article",
				zap.String("stage", "sources/europmc"),
				zap.String("europmc_id", id),
				zap.Error(err))
			continue
		}
		citing = append(citing, a)
		edges = append(edges, types.ArticleCitesArticle{SourceUID: id, TargetUID: europmcID})
	}
	return edges, citing, nil
}

func (e *EuroPMC) search(ctx context.Context, u string) (europmcSearch, error) {
	if e.email != "" {
		u += "&email=" + url.QueryEscape(e.email)
	}
	var resp europmcSearch
	err := e.client.Get(ctx, u, func(body io.Reader) error {
		return xml.NewDecoder(body).Decode(&resp)
	})
	if err != nil {
		return europmcSearch{}, fmt.Errorf("europmc search: %w: %w", ErrFetch, err)
	}
	return resp, nil
}

// normalizePMID strips leading zeros the way Europe PMC sometimes pads
// them, so the same article always carries the same pmid.
func normalizePMID(pmid string) string {
	if pmid == "" {
		return ""
	}
	n, err := strconv.Atoi(pmid)
	if err != nil {
		return pmid
	}
	return strconv.Itoa(n)
}
