// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package notify renders paper digests and delivers them to a
// Slack-compatible webhook. Formatting is pure; the only side effects
// live in the Post functions, which never return errors. Delivery
// collapses to a boolean so a flaky webhook cannot abort a harvest.
package notify

import (
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pdiddy/arxiv-harvester/pkg/types"
)

const (
	// DefaultMaxMessageLength is deliberately conservative. Slack accepts
	// around 40k characters but long webhook messages render poorly.
	DefaultMaxMessageLength = 3000

	truncationMarker = "... (message truncated)"
)

// Notifier formats paper batches and posts them to one webhook.
type Notifier struct {
	webhookURL string
	httpClient *http.Client
	maxLength  int
	important  map[string]bool
	markdown   bool
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithHTTPClient substitutes the HTTP client used for delivery.
func WithHTTPClient(hc *http.Client) Option {
	return func(n *Notifier) { n.httpClient = hc }
}

// WithMaxMessageLength overrides the flat-text message cap.
func WithMaxMessageLength(limit int) Option {
	return func(n *Notifier) { n.maxLength = limit }
}

// WithImportantCategories marks categories whose papers are flagged as
// important in both digest forms.
func WithImportantCategories(categories ...string) Option {
	return func(n *Notifier) {
		n.important = make(map[string]bool, len(categories))
		for _, c := range categories {
			n.important[c] = true
		}
	}
}

// WithMarkdown switches the flat-text template to markdown field labels
// and links.
func WithMarkdown(enabled bool) Option {
	return func(n *Notifier) { n.markdown = enabled }
}

// New returns a Notifier posting to webhookURL. An empty URL is
// permitted; delivery then fails locally without a network call.
func New(webhookURL string, opts ...Option) *Notifier {
	n := &Notifier{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxLength:  DefaultMaxMessageLength,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Truncate caps message at the configured maximum length. A message
// within the limit passes through unchanged; a longer one is cut and
// suffixed with the truncation marker, keeping the result under the
// limit.
func (n *Notifier) Truncate(message string) string {
	if utf8.RuneCountInString(message) <= n.maxLength {
		return message
	}
	runes := []rune(message)
	return string(runes[:n.maxLength-25]) + truncationMarker
}

// FormatPaper renders one paper through the fixed digest template:
// title, authors, published date, category, abstract, link. Papers in
// an important category get an *IMPORTANT* prefix.
func (n *Notifier) FormatPaper(p types.Paper) string {
	titlePrefix, authorsPrefix, summaryPrefix := "Title:", "Authors:", "Abstract:"
	if n.markdown {
		titlePrefix, authorsPrefix, summaryPrefix = "**Title:**", "**Authors:**", "**Abstract:**"
	}

	var b strings.Builder
	if n.isImportant(p) {
		b.WriteString("*IMPORTANT* ")
	}
	fmt.Fprintf(&b, "%s %s\n", titlePrefix, p.Title)
	fmt.Fprintf(&b, "%s %s\n", authorsPrefix, authorList(p.Authors))
	if p.PublishedDate != "" {
		fmt.Fprintf(&b, "Published: %s\n", displayDate(p.PublishedDate))
	}
	if p.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", p.Category)
	}
	fmt.Fprintf(&b, "%s %s\n", summaryPrefix, abstractOrDefault(p.Summary))
	fmt.Fprintf(&b, "Link: %s\n\n", n.pdfLink(p))

	return b.String()
}

// FormatPapers renders a batch as one digest message, wrapped in
// optional pre/post messages. maxPapers > 0 caps the rendered list and
// prepends a count banner. The result is truncated to the message cap.
func (n *Notifier) FormatPapers(papers []types.Paper, preMessage, postMessage string, maxPapers int) string {
	if len(papers) == 0 {
		return "No papers to display."
	}

	displayed := papers
	capped := maxPapers > 0 && maxPapers < len(papers)
	if capped {
		displayed = papers[:maxPapers]
	}

	var b strings.Builder
	if preMessage != "" {
		b.WriteString(preMessage)
		b.WriteString("\n\n")
	}
	if capped {
		fmt.Fprintf(&b, "Showing %d of %d papers\n\n", len(displayed), len(papers))
	}
	for _, p := range displayed {
		b.WriteString(n.FormatPaper(p))
	}
	if postMessage != "" {
		b.WriteString("\n")
		b.WriteString(postMessage)
	}

	return n.Truncate(b.String())
}

func (n *Notifier) isImportant(p types.Paper) bool {
	return p.Category != "" && n.important[p.Category]
}

func (n *Notifier) pdfLink(p types.Paper) string {
	if p.PDFURL == "" {
		return "No PDF available"
	}
	if n.markdown {
		return fmt.Sprintf("[PDF](%s)", p.PDFURL)
	}
	return p.PDFURL
}

func authorList(authors []string) string {
	if len(authors) == 0 {
		return "Unknown"
	}
	return strings.Join(authors, ", ")
}

func abstractOrDefault(summary string) string {
	if summary == "" {
		return "No abstract available"
	}
	return summary
}

// displayDate renders a parseable timestamp as YYYY-MM-DD and passes
// anything else through unchanged.
func displayDate(s string) string {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return s
}
