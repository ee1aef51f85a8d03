package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lepinkainen/alexandria/internal/bookdb"
)

// Paths names the artifacts the pipeline reads and writes between stages.
type Paths struct {
	Raw      string
	Enriched string
	Cleaned  string
}

// Store loads the cleaned dataset and replaces the catalog table with it.
func Store(db *bookdb.DB, cleanedPath string) (int, error) {
	ds, err := ReadCSV(cleanedPath)
	if err != nil {
		return 0, fmt.Errorf("store needs the cleaned dataset: %w", err)
	}

	records := ds.ToRecords()
	n, err := db.ReplaceAll(records)
	if err != nil {
		return 0, err
	}
	slog.Info("Catalog stored", "books", n)
	return n, nil
}

// RunAll runs ingest, transform and store back to back over the same
// artifact paths. A limit above zero caps the number of raw rows processed.
func RunAll(ctx context.Context, resolver Resolver, db *bookdb.DB, paths Paths, limit int) error {
	if _, err := Ingest(ctx, resolver, paths.Raw, paths.Enriched, limit); err != nil {
		return fmt.Errorf("ingest stage failed: %w", err)
	}
	if _, err := Transform(paths.Enriched, paths.Cleaned); err != nil {
		return fmt.Errorf("transform stage failed: %w", err)
	}
	if _, err := Store(db, paths.Cleaned); err != nil {
		return fmt.Errorf("store stage failed: %w", err)
	}
	return nil
}
