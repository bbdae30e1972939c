// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package arxiv

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

const emptyFeedXML = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom"></feed>`

const sampleFeedXML = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:arxiv="http://arxiv.org/schemas/atom">
  <entry>
    <id>http://arxiv.org/abs/2104.12345v1</id>
    <title>Prompt Engineering Strategies for Large Language Models</title>
    <summary>
      We survey prompting techniques and their failure modes.
    </summary>
    <published>2021-04-15T10:30:00Z</published>
    <author><name>Jane Smith</name></author>
    <author><name>Wei Chen</name></author>
    <link href="http://arxiv.org/abs/2104.12345v1" rel="alternate" type="text/html"/>
    <link href="http://arxiv.org/pdf/2104.12345v1" rel="related" type="application/pdf"/>
    <arxiv:primary_category term="cs.CL"/>
    <category term="cs.CL"/>
    <category term="cs.AI"/>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/1706.03762v5</id>
    <title>Attention Is All You Need</title>
    <summary>We propose the Transformer.</summary>
    <published>2017-06-12T17:57:34Z</published>
    <author><name>Ashish Vaswani</name></author>
    <link href="http://arxiv.org/pdf/1706.03762v5" rel="related" type="application/pdf"/>
    <category term="cs.CL"/>
  </entry>
</feed>`

// testClient returns a throttle-free client pointed at ts.
func testClient(ts *httptest.Server) *Client {
	return NewClient(WithBaseURL(ts.URL), WithHTTPClient(ts.Client()), WithDelay(0))
}

// --- Search ---

func TestSearchParsesAtomFeed(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/atom+xml")
		fmt.Fprint(w, sampleFeedXML)
	}))
	defer ts.Close()

	papers, err := testClient(ts).Search(context.Background(), Params{Query: "prompt engineering"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(papers) != 2 {
		t.Fatalf("len(papers) = %d, want 2", len(papers))
	}

	p := papers[0]
	if p.ID != "http://arxiv.org/abs/2104.12345v1" {
		t.Errorf("ID = %q", p.ID)
	}
	if p.ArxivID != "2104.12345v1" {
		t.Errorf("ArxivID = %q, want %q", p.ArxivID, "2104.12345v1")
	}
	if p.Title != "Prompt Engineering Strategies for Large Language Models" {
		t.Errorf("Title = %q", p.Title)
	}
	if !strings.HasPrefix(p.Summary, "We survey") {
		t.Errorf("Summary = %q, should be trimmed", p.Summary)
	}
	if len(p.Authors) != 2 || p.Authors[0] != "Jane Smith" {
		t.Errorf("Authors = %v", p.Authors)
	}
	if p.PublishedDate != "2021-04-15T10:30:00Z" {
		t.Errorf("PublishedDate = %q", p.PublishedDate)
	}
	if p.PDFURL != "http://arxiv.org/pdf/2104.12345v1" {
		t.Errorf("PDFURL = %q", p.PDFURL)
	}
	if p.Category != "cs.CL" {
		t.Errorf("Category = %q, want %q", p.Category, "cs.CL")
	}

	// Second entry has no primary_category; first category term wins.
	if papers[1].Category != "cs.CL" {
		t.Errorf("papers[1].Category = %q, want %q", papers[1].Category, "cs.CL")
	}
}

func TestSearchParsesJSONFeed(t *testing.T) {
	const body = `{
	  "feed": {
	    "entry": [
	      {
	        "id": "http://arxiv.org/abs/2104.12345v1",
	        "title": "Prompt Engineering Strategies",
	        "summary": "We survey prompting.",
	        "published": "2021-04-15T10:30:00Z",
	        "author": [{"name": "Jane Smith"}, {"name": "Wei Chen"}],
	        "link": [
	          {"href": "http://arxiv.org/abs/2104.12345v1"},
	          {"href": "http://arxiv.org/pdf/2104.12345v1"}
	        ],
	        "primary_category": {"term": "cs.CL"}
	      }
	    ]
	  }
	}`
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
	defer ts.Close()

	papers, err := testClient(ts).Search(context.Background(), Params{Query: "prompt"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(papers) != 1 {
		t.Fatalf("len(papers) = %d, want 1", len(papers))
	}

	p := papers[0]
	if p.ArxivID != "2104.12345v1" {
		t.Errorf("ArxivID = %q", p.ArxivID)
	}
	if len(p.Authors) != 2 {
		t.Errorf("Authors = %v, want 2 entries", p.Authors)
	}
	if p.PDFURL != "http://arxiv.org/pdf/2104.12345v1" {
		t.Errorf("PDFURL = %q", p.PDFURL)
	}
	if p.Category != "cs.CL" {
		t.Errorf("Category = %q", p.Category)
	}
}

func TestSearchQueryComposition(t *testing.T) {
	var got url.Values
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		fmt.Fprint(w, emptyFeedXML)
	}))
	defer ts.Close()

	from := time.Date(2021, 4, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2021, 4, 30, 23, 59, 59, 0, time.UTC)

	_, err := testClient(ts).Search(context.Background(), Params{
		Query:      "prompt engineering",
		Category:   "cs.AI",
		From:       from,
		To:         to,
		MaxResults: 25,
		Start:      50,
		SortBy:     SortSubmitted,
		SortOrder:  SortAscending,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	wantQuery := "prompt engineering AND cat:cs.AI AND submittedDate:[20210401000000 TO 20210430235959]"
	if got.Get("search_query") != wantQuery {
		t.Errorf("search_query = %q\nwant %q", got.Get("search_query"), wantQuery)
	}
	if got.Get("start") != "50" {
		t.Errorf("start = %q, want %q", got.Get("start"), "50")
	}
	if got.Get("max_results") != "25" {
		t.Errorf("max_results = %q, want %q", got.Get("max_results"), "25")
	}
	if got.Get("sortBy") != "submittedDate" {
		t.Errorf("sortBy = %q", got.Get("sortBy"))
	}
	if got.Get("sortOrder") != "ascending" {
		t.Errorf("sortOrder = %q", got.Get("sortOrder"))
	}
}

func TestSearchDefaults(t *testing.T) {
	var got url.Values
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		fmt.Fprint(w, emptyFeedXML)
	}))
	defer ts.Close()

	if _, err := testClient(ts).Search(context.Background(), Params{Query: "test"}); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got.Get("max_results") != "10" {
		t.Errorf("max_results = %q, want default 10", got.Get("max_results"))
	}
	if got.Get("sortBy") != "relevance" {
		t.Errorf("sortBy = %q, want default relevance", got.Get("sortBy"))
	}
	if got.Get("sortOrder") != "descending" {
		t.Errorf("sortOrder = %q, want default descending", got.Get("sortOrder"))
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	c := NewClient(WithDelay(0))
	_, err := c.Search(context.Background(), Params{})
	if err == nil || !strings.Contains(err.Error(), "empty") {
		t.Errorf("expected empty query error, got: %v", err)
	}
}

func TestSearchRemoteError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	_, err := testClient(ts).Search(context.Background(), Params{Query: "test"})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got: %v", err)
	}
	if statusErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d, want 503", statusErr.StatusCode)
	}
}

func TestSearchUnrecognizedPayload(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "definitely not a feed")
	}))
	defer ts.Close()

	_, err := testClient(ts).Search(context.Background(), Params{Query: "test"})
	if !errors.Is(err, ErrUnrecognizedPayload) {
		t.Errorf("expected ErrUnrecognizedPayload, got: %v", err)
	}
}

func TestSearchTransportError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	c := testClient(ts)
	ts.Close()

	_, err := c.Search(context.Background(), Params{Query: "test"})
	if err == nil {
		t.Fatal("expected transport error")
	}
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		t.Errorf("transport fault should keep the underlying *url.Error: %v", err)
	}
}

// --- GetByID ---

func TestGetByID(t *testing.T) {
	var got url.Values
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		fmt.Fprint(w, sampleFeedXML)
	}))
	defer ts.Close()

	p, err := testClient(ts).GetByID(context.Background(), "2104.12345v1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Get("id_list") != "2104.12345v1" {
		t.Errorf("id_list = %q", got.Get("id_list"))
	}
	if p.ArxivID != "2104.12345v1" {
		t.Errorf("ArxivID = %q", p.ArxivID)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, emptyFeedXML)
	}))
	defer ts.Close()

	_, err := testClient(ts).GetByID(context.Background(), "9999.99999")
	if !IsNotFound(err) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

// --- throttle ---

func TestThrottleSpacing(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, emptyFeedXML)
	}))
	defer ts.Close()

	var slept []time.Duration
	current := time.Unix(1_700_000_000, 0)

	c := NewClient(WithBaseURL(ts.URL), WithHTTPClient(ts.Client()), WithDelay(3*time.Second))
	c.now = func() time.Time { return current }
	c.sleep = func(d time.Duration) {
		slept = append(slept, d)
		current = current.Add(d)
	}

	// First call from a fresh client never waits.
	if _, err := c.Search(context.Background(), Params{Query: "a"}); err != nil {
		t.Fatal(err)
	}
	if len(slept) != 0 {
		t.Fatalf("first call slept %v, want no sleep", slept)
	}

	// Second call lands inside the window and sleeps the full delay,
	// not the residual.
	current = current.Add(1 * time.Second)
	if _, err := c.Search(context.Background(), Params{Query: "b"}); err != nil {
		t.Fatal(err)
	}
	if len(slept) != 1 || slept[0] != 3*time.Second {
		t.Fatalf("slept = %v, want exactly [3s]", slept)
	}

	// A call after the window has passed proceeds immediately.
	current = current.Add(10 * time.Second)
	if _, err := c.Search(context.Background(), Params{Query: "c"}); err != nil {
		t.Fatal(err)
	}
	if len(slept) != 1 {
		t.Fatalf("slept = %v, want no additional sleep", slept)
	}
}

func TestThrottleClockIsPerInstance(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, emptyFeedXML)
	}))
	defer ts.Close()

	mk := func(slept *[]time.Duration) *Client {
		current := time.Unix(1_700_000_000, 0)
		c := NewClient(WithBaseURL(ts.URL), WithHTTPClient(ts.Client()), WithDelay(3*time.Second))
		c.now = func() time.Time { return current }
		c.sleep = func(d time.Duration) { *slept = append(*slept, d) }
		return c
	}

	var sleptA, sleptB []time.Duration
	a := mk(&sleptA)
	b := mk(&sleptB)

	if _, err := a.Search(context.Background(), Params{Query: "a"}); err != nil {
		t.Fatal(err)
	}
	// A fresh second client is unaffected by the first one's request.
	if _, err := b.Search(context.Background(), Params{Query: "b"}); err != nil {
		t.Fatal(err)
	}
	if len(sleptB) != 0 {
		t.Errorf("second client slept %v, want none", sleptB)
	}
}

// --- query building ---

func TestBuildSearchQuery(t *testing.T) {
	from := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2021, 12, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		p    Params
		want string
	}{
		{"query only", Params{Query: "attention"}, "attention"},
		{"query and category", Params{Query: "attention", Category: "cs.LG"}, "attention AND cat:cs.LG"},
		{"category only", Params{Category: "cs.LG"}, "cat:cs.LG"},
		{"full window", Params{Query: "attention", From: from, To: to},
			"attention AND submittedDate:[20210101000000 TO 20211231000000]"},
		{"half window ignored", Params{Query: "attention", From: from}, "attention"},
		{"empty", Params{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildSearchQuery(tt.p); got != tt.want {
				t.Errorf("buildSearchQuery() = %q, want %q", got, tt.want)
			}
		})
	}
}