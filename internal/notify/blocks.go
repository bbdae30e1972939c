// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package notify

import (
	"fmt"
	"unicode/utf8"

	"github.com/pdiddy/arxiv-harvester/pkg/types"
)

// Slack enforces per-block character caps; these stay safely under them.
const (
	headerTitleLimit   = 150
	abstractBlockLimit = 2900
)

// Block is a Block Kit layout block. Only the shapes the digest emits
// are modeled: header, section, actions, divider.
type Block struct {
	Type     string    `json:"type"`
	Text     *Text     `json:"text,omitempty"`
	Elements []Element `json:"elements,omitempty"`
}

// Text is a plain_text or mrkdwn text object.
type Text struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Element is a block element. The digest only emits link buttons.
type Element struct {
	Type string `json:"type"`
	Text *Text  `json:"text,omitempty"`
	URL  string `json:"url,omitempty"`
}

// FormatPaperBlocks renders one paper as a self-contained block group:
// header, metadata section, abstract section, an optional PDF button,
// and a trailing divider.
func (n *Notifier) FormatPaperBlocks(p types.Paper) []Block {
	title := p.Title
	if n.isImportant(p) {
		title = "🔔 *IMPORTANT* - " + title
	}
	blocks := []Block{headerBlock(capRunes(title, headerTitleLimit))}

	meta := fmt.Sprintf("*Authors:* %s", authorList(p.Authors))
	if p.PublishedDate != "" {
		meta += fmt.Sprintf("\n*Published:* %s", displayDate(p.PublishedDate))
	}
	if p.Category != "" {
		meta += fmt.Sprintf("\n*Category:* %s", p.Category)
	}
	blocks = append(blocks, sectionBlock(meta))

	abstract := abstractOrDefault(p.Summary)
	if utf8.RuneCountInString(abstract) > abstractBlockLimit {
		abstract = capRunes(abstract, abstractBlockLimit) + "... (truncated)"
	}
	blocks = append(blocks, sectionBlock("*Abstract:*\n"+abstract))

	if p.PDFURL != "" {
		blocks = append(blocks, buttonBlock("View PDF", p.PDFURL))
	}

	return append(blocks, dividerBlock())
}

// FormatBlocks renders a batch of papers as one block sequence, led by
// a count banner when maxPapers hides part of the batch.
func (n *Notifier) FormatBlocks(papers []types.Paper, maxPapers int) []Block {
	if len(papers) == 0 {
		return []Block{sectionBlock("No papers to display.")}
	}

	displayed := papers
	var blocks []Block
	if maxPapers > 0 && maxPapers < len(papers) {
		displayed = papers[:maxPapers]
		blocks = append(blocks, sectionBlock(fmt.Sprintf("Showing %d of %d papers", len(displayed), len(papers))))
	}
	for _, p := range displayed {
		blocks = append(blocks, n.FormatPaperBlocks(p)...)
	}
	return blocks
}

func headerBlock(title string) Block {
	return Block{Type: "header", Text: &Text{Type: "plain_text", Text: title}}
}

func sectionBlock(text string) Block {
	return Block{Type: "section", Text: &Text{Type: "mrkdwn", Text: text}}
}

func buttonBlock(label, url string) Block {
	return Block{
		Type: "actions",
		Elements: []Element{{
			Type: "button",
			Text: &Text{Type: "plain_text", Text: label},
			URL:  url,
		}},
	}
}

func dividerBlock() Block {
	return Block{Type: "divider"}
}

func capRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
