// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/arxiv-harvester/internal/arxiv"
	"github.com/pdiddy/arxiv-harvester/internal/download"
	"github.com/pdiddy/arxiv-harvester/internal/store"
	"github.com/pdiddy/arxiv-harvester/pkg/types"
)

// arxivCategories maps the category tags the tool knows about to their
// display names. Other tags still work with --category; this map only
// feeds --list-categories and the parameter banner.
var arxivCategories = map[string]string{
	"cs.AI":   "Artificial Intelligence",
	"cs.CL":   "Computation and Language",
	"cs.LG":   "Machine Learning",
	"cs.NE":   "Neural and Evolutionary Computing",
	"cs.IR":   "Information Retrieval",
	"cs.HC":   "Human-Computer Interaction",
	"cs.CY":   "Computers and Society",
	"cs.SE":   "Software Engineering",
	"cs.PL":   "Programming Languages",
	"stat.ML": "Machine Learning (Statistics)",
}

const defaultQuery = "prompt engineering"

var searchCmd = &cobra.Command{
	Use:   "search [query words...]",
	Short: "Search arXiv and store matching papers",
	Long: `Search pages through the complete arXiv result set for a query, stores
the papers in the local database, and optionally downloads their PDFs.

The time window accepts several forms: a relative period (3d, 2w, 6m, 1y),
an explicit range (2024-01-01~2024-06-30), bare from/to dates, or one of
the --last-* presets. Without any of these the window is 2023-01-01 to now.`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringSliceP("category", "c", nil, "restrict to arXiv categories (repeatable)")

	searchCmd.Flags().StringP("period", "P", "", "relative period (e.g. 3d, 2w, 6m, 1y)")
	searchCmd.Flags().String("date-range", "", "explicit range YYYY-MM-DD~YYYY-MM-DD")
	searchCmd.Flags().StringP("from-date", "f", "", "start date YYYY-MM-DD")
	searchCmd.Flags().StringP("to-date", "t", "", "end date YYYY-MM-DD (default: today)")
	searchCmd.Flags().Bool("last-week", false, "shortcut for --period 1w")
	searchCmd.Flags().Bool("last-month", false, "shortcut for --period 1m")
	searchCmd.Flags().Bool("last-3-months", false, "shortcut for --period 3m")
	searchCmd.Flags().Bool("last-6-months", false, "shortcut for --period 6m")
	searchCmd.Flags().Bool("last-year", false, "shortcut for --period 1y")

	searchCmd.Flags().StringP("sort-by", "s", "submittedDate", "sort results by: relevance, lastUpdatedDate, submittedDate")
	searchCmd.Flags().StringP("sort-order", "o", "descending", "sort direction: ascending, descending")

	searchCmd.Flags().IntP("max-results", "n", 0, "stop after this many papers (0 = fetch all)")
	searchCmd.Flags().Int("batch-size", arxiv.DefaultBatchSize, "page size for the paged fetch")

	searchCmd.Flags().BoolP("download-pdf", "d", false, "download PDFs for the papers found")
	searchCmd.Flags().IntP("max-downloads", "m", 10, "maximum number of PDFs to download (0 = all)")
	searchCmd.Flags().IntP("parallel", "p", 4, "number of concurrent downloads")
	searchCmd.Flags().String("pdf-dir", "data/pdfs", "destination directory for PDFs")

	searchCmd.Flags().Bool("skip-db", false, "do not store results in the database")
	searchCmd.Flags().String("db-path", defaultDBPath, "path to the SQLite database")

	searchCmd.Flags().BoolP("list-categories", "l", false, "list known arXiv categories and exit")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if list, _ := cmd.Flags().GetBool("list-categories"); list {
		listCategories(os.Stdout)
		return nil
	}

	query := strings.Join(args, " ")
	if query == "" {
		query = defaultQuery
	}

	from, to := parsePeriod(periodFlagsFrom(cmd).expression(), timeNow())
	sortBy, sortOrder := sortFlags(cmd)
	categories, _ := cmd.Flags().GetStringSlice("category")

	printSearchBanner(os.Stdout, query, categories, from.Format("2006-01-02"), to.Format("2006-01-02"), sortBy, sortOrder)

	batchSize, _ := cmd.Flags().GetInt("batch-size")
	maxResults, _ := cmd.Flags().GetInt("max-results")

	client := arxiv.NewClient()
	params := arxiv.Params{
		Query:     query,
		From:      from,
		To:        to,
		SortBy:    sortBy,
		SortOrder: sortOrder,
	}
	opts := arxiv.BulkOptions{BatchSize: batchSize, MaxPapers: maxResults}

	papers, err := searchAll(cmd.Context(), client, params, categories, opts)
	if err != nil {
		return err
	}

	fmt.Printf("Found a total of %d papers matching the criteria\n", len(papers))
	if len(papers) == 0 {
		return nil
	}

	if skip, _ := cmd.Flags().GetBool("skip-db"); !skip {
		dbPath := configString(cmd, "db-path")
		if err := storePapers(cmd.Context(), dbPath, papers); err != nil {
			return err
		}
	}

	if dl, _ := cmd.Flags().GetBool("download-pdf"); dl {
		if err := downloadPapers(cmd, papers); err != nil {
			return err
		}
	}

	fmt.Println("\nLatest papers:")
	printPaperTable(os.Stdout, papers, 5)
	return nil
}

// searchAll runs one paged fetch per category, or a single
// uncategorized fetch, concatenating results in category order.
func searchAll(ctx context.Context, client *arxiv.Client, params arxiv.Params, categories []string, opts arxiv.BulkOptions) ([]types.Paper, error) {
	if len(categories) == 0 {
		return arxiv.FetchAll(ctx, client, params, opts, os.Stdout)
	}

	var all []types.Paper
	for _, category := range categories {
		p := params
		p.Category = category
		papers, err := arxiv.FetchAll(ctx, client, p, opts, os.Stdout)
		if err != nil {
			return nil, err
		}
		all = append(all, papers...)
	}
	return all, nil
}

func storePapers(ctx context.Context, dbPath string, papers []types.Paper) error {
	fmt.Println("\nStoring papers in database...")
	st, err := store.New(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Upsert(ctx, papers); err != nil {
		return fmt.Errorf("storing papers: %w", err)
	}
	fmt.Printf("Successfully stored %d papers in the database at %s\n", len(papers), dbPath)
	return nil
}

func downloadPapers(cmd *cobra.Command, papers []types.Paper) error {
	maxDownloads, _ := cmd.Flags().GetInt("max-downloads")
	parallel, _ := cmd.Flags().GetInt("parallel")
	pdfDir := configString(cmd, "pdf-dir")

	cfg := types.DownloadConfig{
		Dir:          pdfDir,
		Workers:      parallel,
		MaxDownloads: maxDownloads,
	}

	fmt.Printf("\nDownloading PDFs to %s...\n", pdfDir)
	result, err := download.FetchPDFs(cmd.Context(), cfg, papers, os.Stdout)
	if err != nil {
		return err
	}
	if result.HasFailures() {
		fmt.Fprintf(os.Stderr, "Warning: %d downloads failed\n", result.Failed)
	}
	return nil
}

// sortFlags validates the sort flags, falling back to the defaults
// with a warning rather than refusing to run.
func sortFlags(cmd *cobra.Command) (arxiv.SortField, arxiv.SortOrder) {
	sortBy, _ := cmd.Flags().GetString("sort-by")
	sortOrder, _ := cmd.Flags().GetString("sort-order")

	field := arxiv.SortField(sortBy)
	switch field {
	case arxiv.SortRelevance, arxiv.SortLastUpdated, arxiv.SortSubmitted:
	default:
		fmt.Fprintf(os.Stderr, "Warning: invalid sort-by %q, using submittedDate\n", sortBy)
		field = arxiv.SortSubmitted
	}

	order := arxiv.SortOrder(sortOrder)
	switch order {
	case arxiv.SortAscending, arxiv.SortDescending:
	default:
		fmt.Fprintf(os.Stderr, "Warning: invalid sort-order %q, using descending\n", sortOrder)
		order = arxiv.SortDescending
	}
	return field, order
}

func printSearchBanner(w io.Writer, query string, categories []string, from, to string, sortBy arxiv.SortField, sortOrder arxiv.SortOrder) {
	fmt.Fprintf(w, "Search parameters:\n  - Query: %s\n", query)
	for _, c := range categories {
		name := arxivCategories[c]
		if name == "" {
			name = "Unknown"
		}
		fmt.Fprintf(w, "  - Category: %s (%s)\n", c, name)
	}
	fmt.Fprintf(w, "  - Date range: %s to %s\n", from, to)
	fmt.Fprintf(w, "  - Sort by: %s (%s)\n\n", sortBy, sortOrder)
}

func listCategories(w io.Writer) {
	fmt.Fprintln(w, "Available arXiv categories:")
	fmt.Fprintln(w)

	tags := make([]string, 0, len(arxivCategories))
	for tag := range arxivCategories {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	for _, tag := range tags {
		fmt.Fprintf(w, "  %s: %s\n", tag, arxivCategories[tag])
	}
}

// printPaperTable renders papers in fixed-width columns, capped at
// limit rows (0 = all).
func printPaperTable(w io.Writer, papers []types.Paper, limit int) {
	shown := papers
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}

	fmt.Fprintf(w, "%-4s  %-52s  %-30s  %-10s  %s\n", "#", "Title", "Authors", "Published", "ID")
	fmt.Fprintln(w, strings.Repeat("-", 118))

	for i, p := range shown {
		published := p.PublishedDate
		if len(published) > 10 {
			published = published[:10]
		}
		fmt.Fprintf(w, "%-4d  %-52s  %-30s  %-10s  %s\n",
			i+1, clip(p.Title, 52), clip(strings.Join(p.Authors, ", "), 30), published, p.ShortID())
	}

	fmt.Fprintf(w, "\n%d of %d papers shown\n", len(shown), len(papers))
}

func clip(s string, max int) string {
	if len(s) > max {
		return s[:max-3] + "..."
	}
	return s
}
