// Package storage keeps the bibliography in SQLite for the proxy server.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/matsen/bibproxy/internal/author"
	"github.com/matsen/bibproxy/internal/reference"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no reference matches a lookup.
var ErrNotFound = errors.New("reference not found")

// DB wraps a SQLite database connection.
type DB struct {
	db *sql.DB
}

// selectRefFields contains the standard field list for SELECT queries.
const selectRefFields = `cite_key, type, title, venue, year, month,
	doi, url, abstract, note,
	authors_json, keywords_json, fields_json`

// OpenDB opens or creates a SQLite database at the given path.
// Use ":memory:" for a throwaway database.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS refs (
			cite_key TEXT PRIMARY KEY,
			slug TEXT NOT NULL,
			type TEXT NOT NULL,
			title TEXT NOT NULL,
			venue TEXT,
			year INTEGER NOT NULL,
			month TEXT,
			doi TEXT,
			url TEXT,
			abstract TEXT,
			note TEXT,
			authors_json TEXT NOT NULL,
			keywords_json TEXT NOT NULL,
			fields_json TEXT NOT NULL
		);

		-- Publication pages look entries up by slug
		CREATE INDEX IF NOT EXISTS idx_refs_slug ON refs(slug);
	`
	_, err := db.Exec(schema)
	return err
}

// ReplaceAll clears the database and stores refs in a single transaction.
// Duplicate keys are an error; the previous contents are kept in that case.
func (d *DB) ReplaceAll(ctx context.Context, refs []reference.Reference) (int, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM refs"); err != nil {
		return 0, fmt.Errorf("clearing refs table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO refs (
			cite_key, slug, type, title, venue, year, month,
			doi, url, abstract, note,
			authors_json, keywords_json, fields_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing refs insert: %w", err)
	}
	defer stmt.Close()

	for _, ref := range refs {
		authorsJSON, err := json.Marshal(nonNilAuthors(ref.Authors))
		if err != nil {
			return 0, fmt.Errorf("marshaling authors for %s: %w", ref.Key, err)
		}
		keywordsJSON, err := json.Marshal(nonNilStrings(ref.Keywords))
		if err != nil {
			return 0, fmt.Errorf("marshaling keywords for %s: %w", ref.Key, err)
		}
		fieldsJSON, err := json.Marshal(ref.Fields)
		if err != nil {
			return 0, fmt.Errorf("marshaling fields for %s: %w", ref.Key, err)
		}

		_, err = stmt.ExecContext(ctx,
			ref.Key, ref.Slug(), ref.Type, ref.Title, ref.Venue, ref.Year, ref.Month,
			ref.DOI, ref.URL, ref.Abstract, ref.Note,
			string(authorsJSON), string(keywordsJSON), string(fieldsJSON),
		)
		if err != nil {
			return 0, fmt.Errorf("inserting ref %s: %w", ref.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing refs: %w", err)
	}
	return len(refs), nil
}

// GetByKey retrieves a reference by its citation key.
func (d *DB) GetByKey(ctx context.Context, key string) (*reference.Reference, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+selectRefFields+` FROM refs WHERE cite_key = ?`, key)
	return scanReference(row)
}

// GetBySlug retrieves the reference a publication page URL points at.
// The slug is tried first, then the value as an exact key.
func (d *DB) GetBySlug(ctx context.Context, slug string) (*reference.Reference, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+selectRefFields+` FROM refs WHERE slug = ? ORDER BY cite_key LIMIT 1`, slug)
	ref, err := scanReference(row)
	if errors.Is(err, ErrNotFound) {
		return d.GetByKey(ctx, slug)
	}
	return ref, err
}

// All returns every reference, newest first.
func (d *DB) All(ctx context.Context) ([]reference.Reference, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT `+selectRefFields+` FROM refs ORDER BY year DESC, cite_key ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing refs: %w", err)
	}
	defer rows.Close()
	return scanReferences(rows)
}

// Select returns the references an author identifier selects, newest first.
// Matching follows author.Selects, which needs parsed author names, so the
// filter runs over the full listing rather than in SQL.
func (d *DB) Select(ctx context.Context, identifier string) ([]reference.Reference, error) {
	all, err := d.All(ctx)
	if err != nil {
		return nil, err
	}
	var selected []reference.Reference
	for _, ref := range all {
		if author.Selects(identifier, ref) {
			selected = append(selected, ref)
		}
	}
	return selected, nil
}

// Count returns the number of stored references.
func (d *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM refs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting refs: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReference(row rowScanner) (*reference.Reference, error) {
	var ref reference.Reference
	var venue, month, doi, url, abstract, note sql.NullString
	var authorsJSON, keywordsJSON, fieldsJSON string

	err := row.Scan(
		&ref.Key, &ref.Type, &ref.Title, &venue, &ref.Year, &month,
		&doi, &url, &abstract, &note,
		&authorsJSON, &keywordsJSON, &fieldsJSON,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning ref: %w", err)
	}

	ref.Venue = venue.String
	ref.Month = month.String
	ref.DOI = doi.String
	ref.URL = url.String
	ref.Abstract = abstract.String
	ref.Note = note.String

	if err := json.Unmarshal([]byte(authorsJSON), &ref.Authors); err != nil {
		return nil, fmt.Errorf("parsing authors for %s: %w", ref.Key, err)
	}
	if err := json.Unmarshal([]byte(keywordsJSON), &ref.Keywords); err != nil {
		return nil, fmt.Errorf("parsing keywords for %s: %w", ref.Key, err)
	}
	if err := json.Unmarshal([]byte(fieldsJSON), &ref.Fields); err != nil {
		return nil, fmt.Errorf("parsing fields for %s: %w", ref.Key, err)
	}
	if len(ref.Authors) == 0 {
		ref.Authors = nil
	}
	if len(ref.Keywords) == 0 {
		ref.Keywords = nil
	}

	return &ref, nil
}

func scanReferences(rows *sql.Rows) ([]reference.Reference, error) {
	var refs []reference.Reference
	for rows.Next() {
		ref, err := scanReference(rows)
		if err != nil {
			return nil, err
		}
		refs = append(refs, *ref)
	}
	return refs, rows.Err()
}

func nonNilAuthors(a []reference.Author) []reference.Author {
	if a == nil {
		return []reference.Author{}
	}
	return a
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
