// Package bookdb persists enriched book records in a local SQLite catalog.
package bookdb

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/lepinkainen/alexandria/internal/enrichment/book"
)

// ErrNotFound is returned when a lookup matches no catalog row.
var ErrNotFound = errors.New("book not found")

const schema = `
CREATE TABLE IF NOT EXISTS books (
	isbn TEXT PRIMARY KEY,
	title TEXT,
	author TEXT,
	year INTEGER,
	edition TEXT,
	publisher TEXT,
	description TEXT
);
CREATE INDEX IF NOT EXISTS idx_books_isbn ON books(isbn);
`

// DB wraps the SQLite catalog.
type DB struct {
	conn *sql.DB
}

// Open opens (creating if needed) the catalog database at path.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	return d.conn.Close()
}

// nullStr maps empty strings to NULL so unset fields never overwrite
// existing values during merges.
func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}

// ReplaceAll swaps the whole catalog for the given records in one
// transaction. It refuses an empty input so a broken pipeline run cannot
// wipe an existing catalog.
func (d *DB) ReplaceAll(records []book.Record) (int, error) {
	if len(records) == 0 {
		return 0, errors.New("refusing to replace catalog with zero records")
	}

	tx, err := d.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM books"); err != nil {
		return 0, fmt.Errorf("clearing catalog: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO books (isbn, title, author, year, edition, publisher, description)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		_, err := stmt.Exec(nullStr(rec.ISBN), nullStr(rec.Title), nullStr(rec.Author),
			nullInt(rec.Year), nullStr(rec.Edition), nullStr(rec.Publisher), nullStr(rec.Description))
		if err != nil {
			return 0, fmt.Errorf("inserting %q: %w", rec.ISBN, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing replace: %w", err)
	}
	return len(records), nil
}

// MergeResult reports what a merge did to the catalog.
type MergeResult struct {
	RowsAffected int64
	Created      bool
}

// Merge upserts a single record by ISBN. Existing fields are only
// overwritten by set values; unset fields leave the stored row untouched.
func (d *DB) Merge(rec book.Record) (*MergeResult, error) {
	if rec.ISBN == "" {
		return nil, errors.New("cannot merge a record without an ISBN")
	}

	tx, err := d.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRow("SELECT EXISTS(SELECT 1 FROM books WHERE isbn = ?)", rec.ISBN).Scan(&exists); err != nil {
		return nil, fmt.Errorf("checking for %q: %w", rec.ISBN, err)
	}

	var res sql.Result
	if exists {
		res, err = tx.Exec(`UPDATE books SET
			title = COALESCE(?, title),
			author = COALESCE(?, author),
			year = COALESCE(?, year),
			edition = COALESCE(?, edition),
			publisher = COALESCE(?, publisher),
			description = COALESCE(?, description)
			WHERE isbn = ?`,
			nullStr(rec.Title), nullStr(rec.Author), nullInt(rec.Year),
			nullStr(rec.Edition), nullStr(rec.Publisher), nullStr(rec.Description), rec.ISBN)
	} else {
		res, err = tx.Exec(`INSERT INTO books (isbn, title, author, year, edition, publisher, description)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rec.ISBN, nullStr(rec.Title), nullStr(rec.Author), nullInt(rec.Year),
			nullStr(rec.Edition), nullStr(rec.Publisher), nullStr(rec.Description))
	}
	if err != nil {
		return nil, fmt.Errorf("merging %q: %w", rec.ISBN, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("reading rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing merge: %w", err)
	}
	return &MergeResult{RowsAffected: affected, Created: !exists}, nil
}

func scanRecord(row interface{ Scan(...any) error }) (book.Record, error) {
	var rec book.Record
	var isbn, title, author, edition, publisher, description sql.NullString
	var year sql.NullInt64
	if err := row.Scan(&isbn, &title, &author, &year, &edition, &publisher, &description); err != nil {
		return rec, err
	}
	rec.ISBN = isbn.String
	rec.Title = title.String
	rec.Author = author.String
	rec.Year = int(year.Int64)
	rec.Edition = edition.String
	rec.Publisher = publisher.String
	rec.Description = description.String
	return rec, nil
}

const selectCols = "isbn, title, author, year, edition, publisher, description"

// Get fetches a single record by ISBN.
func (d *DB) Get(isbn string) (book.Record, error) {
	row := d.conn.QueryRow("SELECT "+selectCols+" FROM books WHERE isbn = ?", isbn)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, ErrNotFound
	}
	if err != nil {
		return rec, fmt.Errorf("fetching %q: %w", isbn, err)
	}
	return rec, nil
}

// Search matches every whitespace-separated term against title and author,
// case-insensitively. All terms must match.
func (d *DB) Search(query string, limit int) ([]book.Record, error) {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	var where []string
	var args []any
	for _, term := range terms {
		where = append(where, "(LOWER(title) LIKE ? OR LOWER(author) LIKE ?)")
		pattern := "%" + strings.ToLower(term) + "%"
		args = append(args, pattern, pattern)
	}
	args = append(args, limit)

	rows, err := d.conn.Query("SELECT "+selectCols+" FROM books WHERE "+
		strings.Join(where, " AND ")+" ORDER BY title LIMIT ?", args...)
	if err != nil {
		return nil, fmt.Errorf("searching for %q: %w", query, err)
	}
	defer rows.Close()

	var results []book.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

// Stats summarizes the catalog.
type Stats struct {
	Books             int
	WithDescription   int
	Publishers        int
	YearMin           int
	YearMax           int
	AvgDescriptionLen int
	TopAuthors        []AuthorCount
}

// AuthorCount pairs an author with how many of their books are cataloged.
type AuthorCount struct {
	Author string
	Count  int
}

// Stats computes catalog-wide aggregates.
func (d *DB) Stats() (*Stats, error) {
	var s Stats
	err := d.conn.QueryRow(`SELECT COUNT(*),
		COUNT(description),
		COUNT(DISTINCT publisher),
		COALESCE(MIN(year), 0),
		COALESCE(MAX(year), 0),
		COALESCE(CAST(AVG(LENGTH(description)) AS INTEGER), 0)
		FROM books`).Scan(&s.Books, &s.WithDescription, &s.Publishers, &s.YearMin, &s.YearMax, &s.AvgDescriptionLen)
	if err != nil {
		return nil, fmt.Errorf("computing totals: %w", err)
	}

	rows, err := d.conn.Query(`SELECT author, COUNT(*) AS n FROM books
		WHERE author IS NOT NULL
		GROUP BY author ORDER BY n DESC, author LIMIT 5`)
	if err != nil {
		return nil, fmt.Errorf("computing top authors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ac AuthorCount
		if err := rows.Scan(&ac.Author, &ac.Count); err != nil {
			return nil, fmt.Errorf("scanning author count: %w", err)
		}
		s.TopAuthors = append(s.TopAuthors, ac)
	}
	return &s, rows.Err()
}
