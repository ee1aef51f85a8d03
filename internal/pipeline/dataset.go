// Package pipeline implements the bulk enrichment pipeline: ingest the raw
// dataset and fan out description lookups, transform and deduplicate the
// result, and bulk-load it into the book database. Each stage writes a CSV
// artifact so stages can be re-run independently without re-fetching.
package pipeline

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/lepinkainen/alexandria/internal/enrichment/book"
)

// Column names the pipeline knows about. Anything else in the dataset
// passes through untouched.
const (
	ColISBN      = "ISBN"
	ColTitle     = "Title"
	ColAuthor    = "Author/Editor"
	ColYear      = "Year"
	ColEdition   = "Ed./Vol."
	ColPublisher = "Place & Publisher"

	ColCleanISBN        = "clean_isbn"
	ColDescription      = "description"
	ColCleanDescription = "clean_description"
	ColCleanYear        = "clean_year"
)

// Dataset is a loaded CSV: a header plus raw rows. Rows are always padded
// to the header width.
type Dataset struct {
	Header []string
	Rows   [][]string
}

// ReadCSV loads a dataset artifact. A missing file is a stage precondition
// failure for the caller.
func ReadCSV(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("dataset %s has no header row", path)
	}

	ds := &Dataset{Header: records[0], Rows: records[1:]}
	for i, row := range ds.Rows {
		ds.Rows[i] = padRow(row, len(ds.Header))
	}
	return ds, nil
}

// WriteCSV persists the dataset as the stage's output artifact.
func (d *Dataset) WriteCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create dataset %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	writer := csv.NewWriter(f)
	if err := writer.Write(d.Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range d.Rows {
		if err := writer.Write(padRow(row, len(d.Header))); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush dataset %s: %w", path, err)
	}
	return nil
}

// Column returns the index of a named column, or -1 when absent.
func (d *Dataset) Column(name string) int {
	for i, h := range d.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// EnsureColumn returns the index of a named column, appending it (and
// widening every row) if it does not exist yet.
func (d *Dataset) EnsureColumn(name string) int {
	if idx := d.Column(name); idx >= 0 {
		return idx
	}
	d.Header = append(d.Header, name)
	for i, row := range d.Rows {
		d.Rows[i] = padRow(row, len(d.Header))
	}
	return len(d.Header) - 1
}

// Len returns the number of data rows.
func (d *Dataset) Len() int {
	return len(d.Rows)
}

// cell reads a column from a row, tolerating short rows and missing
// columns.
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// ToRecords maps the cleaned dataset's columns onto canonical records.
// Missing columns simply leave the corresponding field unset.
func (d *Dataset) ToRecords() []book.Record {
	isbnCol := d.Column(ColCleanISBN)
	titleCol := d.Column(ColTitle)
	authorCol := d.Column(ColAuthor)
	yearCol := d.Column(ColCleanYear)
	editionCol := d.Column(ColEdition)
	publisherCol := d.Column(ColPublisher)
	descCol := d.Column(ColCleanDescription)

	records := make([]book.Record, 0, len(d.Rows))
	for _, row := range d.Rows {
		records = append(records, book.Record{
			ISBN:        cell(row, isbnCol),
			Title:       cell(row, titleCol),
			Author:      cell(row, authorCol),
			Year:        book.ParseYear(cell(row, yearCol)),
			Edition:     cell(row, editionCol),
			Publisher:   cell(row, publisherCol),
			Description: cell(row, descCol),
		})
	}
	return records
}

func padRow(row []string, width int) []string {
	for len(row) < width {
		row = append(row, "")
	}
	return row
}
