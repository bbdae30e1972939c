// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists harvested paper metadata in SQLite: papers,
// authors, and the associations between them.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/arxiv-harvester/pkg/types"
)

// ErrInvalidPaper indicates a record that cannot be stored. Wrapped
// errors name the missing field.
var ErrInvalidPaper = errors.New("invalid paper record")

// Store manages the paper metadata SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// New opens or creates the paper database at path, creating parent
// directories and the schema as needed.
func New(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			id TEXT PRIMARY KEY,
			arxiv_id TEXT UNIQUE,
			title TEXT NOT NULL,
			summary TEXT,
			published_date TEXT,
			pdf_url TEXT,
			category TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS authors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS paper_authors (
			paper_id TEXT NOT NULL,
			author_id INTEGER NOT NULL,
			PRIMARY KEY (paper_id, author_id),
			FOREIGN KEY (paper_id) REFERENCES papers(id) ON DELETE CASCADE,
			FOREIGN KEY (author_id) REFERENCES authors(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_published_date ON papers(published_date)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_category ON papers(category)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Upsert stores the batch inside a single transaction: a fault on any
// record, validation included, rolls back the whole batch. Existing
// rows are replaced, their author associations cleared and rebuilt
// from the incoming record.
func (s *Store) Upsert(ctx context.Context, papers []types.Paper) error {
	if len(papers) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range papers {
		if err := upsertPaper(ctx, tx, &papers[i]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func upsertPaper(ctx context.Context, tx *sql.Tx, p *types.Paper) error {
	id := strings.TrimSpace(p.ID)
	if id == "" {
		return fmt.Errorf("%w: missing identifier", ErrInvalidPaper)
	}
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("%w: paper %s missing title", ErrInvalidPaper, id)
	}

	arxivID := p.ArxivID
	if arxivID == "" {
		arxivID = types.ShortID(id)
	}

	_, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO papers
			(id, arxiv_id, title, summary, published_date, pdf_url, category, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		id, arxivID, p.Title, p.Summary, p.PublishedDate, p.PDFURL, p.Category,
	)
	if err != nil {
		return fmt.Errorf("upserting paper %s: %w", id, err)
	}

	// Associations always reflect the incoming record, including the
	// empty list.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM paper_authors WHERE paper_id = ?`, id); err != nil {
		return fmt.Errorf("clearing author links for %s: %w", id, err)
	}

	for _, name := range p.Authors {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if err := linkAuthor(ctx, tx, id, name); err != nil {
			return err
		}
	}
	return nil
}

// linkAuthor ensures the author row exists and associates it with the
// paper.
func linkAuthor(ctx context.Context, tx *sql.Tx, paperID, name string) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO authors (name) VALUES (?)`, name); err != nil {
		return fmt.Errorf("inserting author %s: %w", name, err)
	}

	var authorID int64
	if err := tx.QueryRowContext(ctx,
		`SELECT id FROM authors WHERE name = ?`, name).Scan(&authorID); err != nil {
		return fmt.Errorf("looking up author %s: %w", name, err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO paper_authors (paper_id, author_id) VALUES (?, ?)`,
		paperID, authorID); err != nil {
		return fmt.Errorf("linking author %s: %w", name, err)
	}
	return nil
}
