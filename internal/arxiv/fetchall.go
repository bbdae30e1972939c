// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package arxiv

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pdiddy/arxiv-harvester/pkg/types"
)

const (
	// DefaultBatchSize is the page size recommended for bulk collection.
	DefaultBatchSize = 100

	// DefaultRetryDelay is the fixed backoff between failed page fetches.
	DefaultRetryDelay = 10 * time.Second
)

// BulkOptions tunes FetchAll.
type BulkOptions struct {
	// BatchSize is the page size (default 100).
	BatchSize int

	// RetryDelay is the fixed wait before retrying a failed page
	// (default 10 s).
	RetryDelay time.Duration

	// MaxPapers stops paging once this many records are collected.
	// Zero collects the full result set.
	MaxPapers int
}

// FetchAll pages through the complete result set for p, accumulating
// records until the API returns a page smaller than the batch size.
// A failed page fetch is reported to w and retried after a fixed delay,
// indefinitely; cancelling ctx is the only way to give up on a broken
// upstream. Spacing between successive pages comes from the client's
// own throttle.
func FetchAll(ctx context.Context, c *Client, p Params, opts BulkOptions, w io.Writer) ([]types.Paper, error) {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	retryDelay := opts.RetryDelay
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}

	var all []types.Paper
	start := p.Start

	for {
		page := p
		page.Start = start
		page.MaxResults = batchSize

		fmt.Fprintf(w, "fetching papers: start=%d batch=%d\n", start, batchSize)

		papers, err := c.Search(ctx, page)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			fmt.Fprintf(w, "fetch failed: %v (retrying in %v)\n", err, retryDelay)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay):
			}
			continue
		}

		if len(papers) == 0 {
			break
		}
		all = append(all, papers...)
		fmt.Fprintf(w, "retrieved %d papers (total %d)\n", len(papers), len(all))

		if opts.MaxPapers > 0 && len(all) >= opts.MaxPapers {
			all = all[:opts.MaxPapers]
			break
		}
		if len(papers) < batchSize {
			break
		}
		start += batchSize
	}

	return all, nil
}
