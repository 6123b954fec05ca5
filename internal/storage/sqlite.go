package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS annotations (
			file TEXT,
			class TEXT,
			method TEXT,
			descriptor TEXT,
			bci INTEGER,
			mnemonic TEXT,
			kind TEXT,
			text TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_annotations_class ON annotations(class, method, bci);`,
		`CREATE INDEX IF NOT EXISTS idx_annotations_file ON annotations(file);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// SaveReport replaces the rows of every file that appears in the batch, in
// one transaction.
func (s *SQLiteStore) SaveReport(ctx context.Context, rows []AnnotationRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	files := make(map[string]bool)
	for _, r := range rows {
		files[r.File] = true
	}
	del, err := tx.PrepareContext(ctx, `DELETE FROM annotations WHERE file = ?`)
	if err != nil {
		return err
	}
	defer del.Close()
	for file := range files {
		if _, err := del.ExecContext(ctx, file); err != nil {
			return fmt.Errorf("failed to clear rows for %s: %w", file, err)
		}
	}

	ins, err := tx.PrepareContext(ctx, `
		INSERT INTO annotations (file, class, method, descriptor, bci, mnemonic, kind, text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer ins.Close()
	for _, r := range rows {
		if _, err := ins.ExecContext(ctx, r.File, r.Class, r.Method, r.Descriptor, r.BCI, r.Mnemonic, r.Kind, r.Text); err != nil {
			return fmt.Errorf("failed to insert row: %w", err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) QueryByClass(ctx context.Context, class string) ([]AnnotationRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT file, class, method, descriptor, bci, mnemonic, kind, text
		FROM annotations WHERE class = ?
		ORDER BY method, descriptor, bci
	`, class)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AnnotationRow
	for rows.Next() {
		var r AnnotationRow
		if err := rows.Scan(&r.File, &r.Class, &r.Method, &r.Descriptor, &r.BCI, &r.Mnemonic, &r.Kind, &r.Text); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
