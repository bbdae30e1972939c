// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pdiddy/arxiv-harvester/pkg/types"
)

// payload is the webhook request body: a flat text message, or a block
// sequence with fallback text for clients that cannot render blocks.
type payload struct {
	Text   string  `json:"text,omitempty"`
	Blocks []Block `json:"blocks,omitempty"`
}

// PostOptions tunes how NotifyPapers formats and delivers a batch.
type PostOptions struct {
	// Blocks selects rich block formatting over flat text.
	Blocks bool

	// MaxPapers caps how many papers the digest renders. Zero renders
	// the whole batch.
	MaxPapers int

	// PreMessage and PostMessage wrap the flat-text digest. Both are
	// ignored in block form.
	PreMessage  string
	PostMessage string
}

// Post delivers a flat-text message, truncated to the message cap. An
// empty message or missing webhook URL fails locally without a network
// call; transport faults and non-2xx responses also collapse to false.
func (n *Notifier) Post(message string) bool {
	if message == "" || n.webhookURL == "" {
		return false
	}
	return n.send(payload{Text: n.Truncate(message)})
}

// PostBlocks delivers a block sequence with the given fallback text.
func (n *Notifier) PostBlocks(blocks []Block, fallback string) bool {
	if len(blocks) == 0 || n.webhookURL == "" {
		return false
	}
	return n.send(payload{Text: fallback, Blocks: blocks})
}

// NotifyPapers formats the batch per opts and delivers it. An empty
// batch is rejected locally without a network call.
func (n *Notifier) NotifyPapers(papers []types.Paper, opts PostOptions) bool {
	if len(papers) == 0 || n.webhookURL == "" {
		return false
	}
	if opts.Blocks {
		fallback := fmt.Sprintf("%d new arXiv papers", len(papers))
		return n.PostBlocks(n.FormatBlocks(papers, opts.MaxPapers), fallback)
	}
	return n.Post(n.FormatPapers(papers, opts.PreMessage, opts.PostMessage, opts.MaxPapers))
}

func (n *Notifier) send(p payload) bool {
	body, err := json.Marshal(p)
	if err != nil {
		return false
	}
	resp, err := n.httpClient.Post(n.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
