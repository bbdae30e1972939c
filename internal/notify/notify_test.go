// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package notify

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/arxiv-harvester/pkg/types"
)

func samplePaper() types.Paper {
	return types.Paper{
		ID:            "http://arxiv.org/abs/2301.00001v1",
		ArxivID:       "2301.00001v1",
		Title:         "Retrieval-Augmented Prompting at Scale",
		Summary:       "We study how retrieval changes prompting outcomes.",
		Authors:       []string{"Ada Lovelace", "Alan Turing"},
		PublishedDate: "2023-01-05T12:30:00Z",
		Category:      "cs.CL",
		PDFURL:        "https://arxiv.org/pdf/2301.00001v1.pdf",
	}
}

func TestTruncateShortMessagePassesThrough(t *testing.T) {
	n := New("", WithMaxMessageLength(100))
	msg := "short enough"
	assert.Equal(t, msg, n.Truncate(msg))
}

func TestTruncateLongMessage(t *testing.T) {
	n := New("", WithMaxMessageLength(100))
	long := strings.Repeat("x", 500)

	got := n.Truncate(long)

	assert.LessOrEqual(t, utf8.RuneCountInString(got), 100)
	assert.True(t, strings.HasSuffix(got, "... (message truncated)"))
	assert.True(t, strings.HasPrefix(got, "xxx"))
}

func TestFormatPaperFullRecord(t *testing.T) {
	n := New("")
	got := n.FormatPaper(samplePaper())

	assert.Contains(t, got, "Title: Retrieval-Augmented Prompting at Scale\n")
	assert.Contains(t, got, "Authors: Ada Lovelace, Alan Turing\n")
	assert.Contains(t, got, "Published: 2023-01-05\n")
	assert.Contains(t, got, "Category: cs.CL\n")
	assert.Contains(t, got, "Abstract: We study how retrieval changes prompting outcomes.\n")
	assert.Contains(t, got, "Link: https://arxiv.org/pdf/2301.00001v1.pdf\n")
	assert.NotContains(t, got, "IMPORTANT")
}

func TestFormatPaperMissingFields(t *testing.T) {
	n := New("")
	got := n.FormatPaper(types.Paper{Title: "Bare"})

	assert.Contains(t, got, "Authors: Unknown\n")
	assert.Contains(t, got, "Abstract: No abstract available\n")
	assert.Contains(t, got, "Link: No PDF available\n")
	assert.NotContains(t, got, "Published:")
	assert.NotContains(t, got, "Category:")
}

func TestFormatPaperUnparseableDatePassesThrough(t *testing.T) {
	n := New("")
	p := samplePaper()
	p.PublishedDate = "circa 2023"

	assert.Contains(t, n.FormatPaper(p), "Published: circa 2023\n")
}

func TestFormatPaperMarkdown(t *testing.T) {
	n := New("", WithMarkdown(true))
	got := n.FormatPaper(samplePaper())

	assert.Contains(t, got, "**Title:** Retrieval-Augmented Prompting at Scale\n")
	assert.Contains(t, got, "**Authors:** Ada Lovelace, Alan Turing\n")
	assert.Contains(t, got, "**Abstract:** We study")
	assert.Contains(t, got, "Link: [PDF](https://arxiv.org/pdf/2301.00001v1.pdf)\n")
}

func TestFormatPaperImportantCategory(t *testing.T) {
	n := New("", WithImportantCategories("cs.CL", "cs.AI"))
	got := n.FormatPaper(samplePaper())

	assert.True(t, strings.HasPrefix(got, "*IMPORTANT* Title:"), "got %q", got)

	other := samplePaper()
	other.Category = "stat.ML"
	assert.NotContains(t, n.FormatPaper(other), "IMPORTANT")
}

func TestFormatPapersEmpty(t *testing.T) {
	n := New("")
	assert.Equal(t, "No papers to display.", n.FormatPapers(nil, "", "", 0))
}

func TestFormatPapersCapBanner(t *testing.T) {
	n := New("")
	papers := make([]types.Paper, 5)
	for i := range papers {
		papers[i] = samplePaper()
	}

	got := n.FormatPapers(papers, "", "", 2)

	assert.Contains(t, got, "Showing 2 of 5 papers\n\n")
	assert.Equal(t, 2, strings.Count(got, "Title:"))

	uncapped := n.FormatPapers(papers, "", "", 0)
	assert.NotContains(t, uncapped, "Showing")
	assert.Equal(t, 5, strings.Count(uncapped, "Title:"))
}

func TestFormatPapersPrePostMessages(t *testing.T) {
	n := New("")
	got := n.FormatPapers([]types.Paper{samplePaper()}, "Fresh papers:", "That is all.", 0)

	require.True(t, strings.HasPrefix(got, "Fresh papers:\n\n"), "got %q", got)
	assert.True(t, strings.HasSuffix(got, "\nThat is all."))
}

func TestFormatPapersTruncatesResult(t *testing.T) {
	n := New("", WithMaxMessageLength(200))
	p := samplePaper()
	p.Summary = strings.Repeat("long abstract ", 100)

	got := n.FormatPapers([]types.Paper{p}, "", "", 0)

	assert.LessOrEqual(t, utf8.RuneCountInString(got), 200)
	assert.True(t, strings.HasSuffix(got, "... (message truncated)"))
}