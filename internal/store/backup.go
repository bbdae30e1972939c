// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Backup writes a point-in-time copy of the database to dest,
// replacing any previous copy there. Returns (false, nil) when the
// source database file does not exist. VACUUM INTO produces a compact
// snapshot that is consistent even under WAL.
func (s *Store) Backup(ctx context.Context, dest string) (bool, error) {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("checking database file: %w", err)
	}

	if dir := filepath.Dir(dest); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("creating backup directory: %w", err)
		}
	}
	if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("removing previous backup: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, dest); err != nil {
		return false, fmt.Errorf("backing up database: %w", err)
	}
	return true, nil
}
