// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package arxiv

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/arxiv-harvester/pkg/types"
)

// The API serves the same feed in two shapes: Atom XML from the
// standard endpoint, and a JSON rendering of the feed object. The first
// non-space byte resolves the shape once per response; each shape has
// exactly one normalizer, and both produce identical Paper records.

// decodeResponse probes the payload shape and dispatches.
func decodeResponse(data []byte) ([]types.Paper, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrUnrecognizedPayload)
	}
	switch trimmed[0] {
	case '<':
		return decodeAtom(trimmed)
	case '{':
		return decodeJSON(trimmed)
	}
	return nil, fmt.Errorf("%w: body starts with %q", ErrUnrecognizedPayload, trimmed[0])
}

// --- Atom shape ---

// arXiv Atom feed XML structures.
type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID         string         `xml:"id"`
	Title      string         `xml:"title"`
	Summary    string         `xml:"summary"`
	Published  string         `xml:"published"`
	Authors    []atomAuthor   `xml:"author"`
	Links      []atomLink     `xml:"link"`
	Primary    atomCategory   `xml:"primary_category"`
	Categories []atomCategory `xml:"category"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type atomCategory struct {
	Term string `xml:"term,attr"`
}

func decodeAtom(data []byte) ([]types.Paper, error) {
	var feed atomFeed
	if err := xml.Unmarshal(data, &feed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrecognizedPayload, err)
	}

	papers := make([]types.Paper, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		category := e.Primary.Term
		if category == "" && len(e.Categories) > 0 {
			category = e.Categories[0].Term
		}

		var authors []string
		for _, a := range e.Authors {
			if name := strings.TrimSpace(a.Name); name != "" {
				authors = append(authors, name)
			}
		}

		var pdfURL string
		for _, l := range e.Links {
			if strings.Contains(l.Href, "pdf") {
				pdfURL = l.Href
				break
			}
		}

		papers = append(papers, newPaper(e.ID, e.Title, e.Summary, e.Published, pdfURL, category, authors))
	}
	return papers, nil
}

// --- JSON shape ---

// JSON feed structures. The feed's entry value may be a single object
// or an array; jsonEntries absorbs both, as does jsonAuthors for the
// author field.
type jsonFeed struct {
	Feed struct {
		Entry jsonEntries `json:"entry"`
	} `json:"feed"`
}

type jsonEntries []jsonEntry

func (e *jsonEntries) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*e = nil
		return nil
	}
	if trimmed[0] == '[' {
		var list []jsonEntry
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return err
		}
		*e = list
		return nil
	}
	var one jsonEntry
	if err := json.Unmarshal(trimmed, &one); err != nil {
		return err
	}
	*e = jsonEntries{one}
	return nil
}

type jsonEntry struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Summary   string         `json:"summary"`
	Published string         `json:"published"`
	Authors   jsonAuthors    `json:"author"`
	Links     []jsonLink     `json:"link"`
	Primary   jsonCategory   `json:"primary_category"`
	Category  []jsonCategory `json:"category"`
}

type jsonAuthor struct {
	Name string `json:"name"`
}

type jsonAuthors []jsonAuthor

func (a *jsonAuthors) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*a = nil
		return nil
	}
	if trimmed[0] == '[' {
		var list []jsonAuthor
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return err
		}
		*a = list
		return nil
	}
	var one jsonAuthor
	if err := json.Unmarshal(trimmed, &one); err != nil {
		return err
	}
	*a = jsonAuthors{one}
	return nil
}

type jsonLink struct {
	Href string `json:"href"`
}

type jsonCategory struct {
	Term string `json:"term"`
}

func decodeJSON(data []byte) ([]types.Paper, error) {
	var feed jsonFeed
	if err := json.Unmarshal(data, &feed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrecognizedPayload, err)
	}

	papers := make([]types.Paper, 0, len(feed.Feed.Entry))
	for _, e := range feed.Feed.Entry {
		category := e.Primary.Term
		if category == "" && len(e.Category) > 0 {
			category = e.Category[0].Term
		}

		var authors []string
		for _, a := range e.Authors {
			if name := strings.TrimSpace(a.Name); name != "" {
				authors = append(authors, name)
			}
		}

		var pdfURL string
		for _, l := range e.Links {
			if strings.Contains(l.Href, "pdf") {
				pdfURL = l.Href
				break
			}
		}

		papers = append(papers, newPaper(e.ID, e.Title, e.Summary, e.Published, pdfURL, category, authors))
	}
	return papers, nil
}

// --- shared normalization ---

// newPaper builds the canonical record shared by both decoders. Missing
// optional fields stay empty, never a fault.
func newPaper(id, title, summary, published, pdfURL, category string, authors []string) types.Paper {
	p := types.Paper{
		ID:            strings.TrimSpace(id),
		Title:         strings.TrimSpace(title),
		Summary:       strings.TrimSpace(summary),
		Authors:       authors,
		PublishedDate: normalizeDate(strings.TrimSpace(published)),
		PDFURL:        pdfURL,
		Category:      category,
	}
	p.ArxivID = types.ShortID(p.ID)
	return p
}

// normalizeDate rewrites parseable timestamps as RFC3339 UTC so that
// lexical ordering on the stored column matches chronology. Values in
// other shapes pass through untouched for downstream consumers to
// handle.
func normalizeDate(s string) string {
	if s == "" {
		return ""
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
	}
	return s
}
