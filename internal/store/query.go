// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pdiddy/arxiv-harvester/pkg/types"
)

// QueryOptions holds filters for paper queries. Zero values mean
// "no filter"; an empty options struct returns every stored paper.
type QueryOptions struct {
	// DateFrom and DateTo bound published_date (inclusive). Stored
	// dates are RFC3339 UTC, so lexical comparison follows chronology.
	DateFrom string
	DateTo   string

	// Author matches author names by substring.
	Author string

	// TitleKeyword and AbstractKeyword match by substring.
	TitleKeyword    string
	AbstractKeyword string

	// Limit caps the result count; zero returns all. Offset skips rows.
	Limit  int
	Offset int

	// OrderBy names a column from the whitelist below. OrderDir is
	// "asc" or "desc". Defaults: published_date, descending.
	OrderBy  string
	OrderDir string
}

// orderColumns whitelists ORDER BY targets; the query never
// interpolates caller input.
var orderColumns = map[string]string{
	"published_date": "published_date",
	"title":          "title",
	"arxiv_id":       "arxiv_id",
	"created_at":     "created_at",
	"updated_at":     "updated_at",
}

// Get retrieves one paper by short or full identifier, with its author
// list. The second return reports whether the paper was found.
func (s *Store) Get(ctx context.Context, id string) (*types.Paper, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, arxiv_id, title, summary, published_date, pdf_url, category,
			created_at, updated_at
		 FROM papers WHERE arxiv_id = ? OR id = ?`, id, id)

	p, err := scanPaper(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("querying paper %s: %w", id, err)
	}

	if p.Authors, err = s.paperAuthors(ctx, p.ID); err != nil {
		return nil, false, err
	}
	return p, true, nil
}

// Query returns papers matching opts, each hydrated with its authors.
func (s *Store) Query(ctx context.Context, opts QueryOptions) ([]types.Paper, error) {
	var (
		qb   strings.Builder
		args []any
	)

	qb.WriteString(
		`SELECT id, arxiv_id, title, summary, published_date, pdf_url, category,
			created_at, updated_at
		 FROM papers WHERE 1=1`)

	if opts.DateFrom != "" {
		qb.WriteString(` AND published_date >= ?`)
		args = append(args, opts.DateFrom)
	}
	if opts.DateTo != "" {
		qb.WriteString(` AND published_date <= ?`)
		args = append(args, opts.DateTo)
	}
	if opts.Author != "" {
		qb.WriteString(` AND id IN (
			SELECT pa.paper_id FROM paper_authors pa
			JOIN authors a ON a.id = pa.author_id
			WHERE a.name LIKE ?)`)
		args = append(args, "%"+opts.Author+"%")
	}
	if opts.TitleKeyword != "" {
		qb.WriteString(` AND title LIKE ?`)
		args = append(args, "%"+opts.TitleKeyword+"%")
	}
	if opts.AbstractKeyword != "" {
		qb.WriteString(` AND summary LIKE ?`)
		args = append(args, "%"+opts.AbstractKeyword+"%")
	}

	orderBy := "published_date"
	if opts.OrderBy != "" {
		col, ok := orderColumns[opts.OrderBy]
		if !ok {
			return nil, fmt.Errorf("invalid order column %q", opts.OrderBy)
		}
		orderBy = col
	}
	dir := "DESC"
	switch strings.ToLower(opts.OrderDir) {
	case "", "desc":
	case "asc":
		dir = "ASC"
	default:
		return nil, fmt.Errorf("invalid order direction %q", opts.OrderDir)
	}
	fmt.Fprintf(&qb, ` ORDER BY %s %s`, orderBy, dir)

	if opts.Limit > 0 {
		qb.WriteString(` LIMIT ?`)
		args = append(args, opts.Limit)
	} else if opts.Offset > 0 {
		qb.WriteString(` LIMIT -1`)
	}
	if opts.Offset > 0 {
		qb.WriteString(` OFFSET ?`)
		args = append(args, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying papers: %w", err)
	}
	defer rows.Close()

	var papers []types.Paper
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning paper row: %w", err)
		}
		papers = append(papers, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range papers {
		if papers[i].Authors, err = s.paperAuthors(ctx, papers[i].ID); err != nil {
			return nil, err
		}
	}
	return papers, nil
}

// Recent returns the most recently stored papers.
func (s *Store) Recent(ctx context.Context, limit int) ([]types.Paper, error) {
	return s.Query(ctx, QueryOptions{OrderBy: "created_at", OrderDir: "desc", Limit: limit})
}

// Delete removes a paper by short or full identifier, then prunes
// authors left without any paper. Reports whether a row was removed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM papers WHERE arxiv_id = ? OR id = ?`, id, id)
	if err != nil {
		return false, fmt.Errorf("deleting paper %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting paper %s: %w", id, err)
	}
	if n == 0 {
		return false, nil
	}

	// Join rows went with the paper via cascade; orphaned authors go here.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM authors WHERE id NOT IN (SELECT author_id FROM paper_authors)`); err != nil {
		return false, fmt.Errorf("pruning authors: %w", err)
	}

	return true, tx.Commit()
}

// Count returns the number of stored papers.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM papers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting papers: %w", err)
	}
	return n, nil
}

// CountByCategory returns paper counts keyed by category. Papers
// without a category land under the empty key.
func (s *Store) CountByCategory(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT category, COUNT(*) FROM papers GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("counting papers by category: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var category sql.NullString
		var n int
		if err := rows.Scan(&category, &n); err != nil {
			return nil, fmt.Errorf("scanning category count: %w", err)
		}
		counts[category.String] = n
	}
	return counts, rows.Err()
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanPaper(row scanner) (*types.Paper, error) {
	var (
		p         types.Paper
		arxivID   sql.NullString
		summary   sql.NullString
		published sql.NullString
		pdfURL    sql.NullString
		category  sql.NullString
		createdAt sql.NullString
		updatedAt sql.NullString
	)

	err := row.Scan(&p.ID, &arxivID, &p.Title, &summary, &published,
		&pdfURL, &category, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	p.ArxivID = arxivID.String
	p.Summary = summary.String
	p.PublishedDate = published.String
	p.PDFURL = pdfURL.String
	p.Category = category.String
	p.CreatedAt = createdAt.String
	p.UpdatedAt = updatedAt.String
	return &p, nil
}

// paperAuthors returns the author names linked to a paper, in the
// order the links were written.
func (s *Store) paperAuthors(ctx context.Context, paperID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.name FROM authors a
		 JOIN paper_authors pa ON pa.author_id = a.id
		 WHERE pa.paper_id = ?
		 ORDER BY pa.rowid`, paperID)
	if err != nil {
		return nil, fmt.Errorf("querying authors for %s: %w", paperID, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning author name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
