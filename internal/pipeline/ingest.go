package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/lepinkainen/alexandria/internal/enrichment/book"
	"github.com/lepinkainen/alexandria/internal/isbn"
)

const (
	// maxWorkers bounds concurrent outbound lookups during a batch run.
	maxWorkers = 30

	// progressInterval controls how often batch progress is logged.
	progressInterval = 500
)

// Resolver is the single-record resolution entry point the batch fans out
// over. Satisfied by *book.Resolver.
type Resolver interface {
	Resolve(ctx context.Context, q book.Query) book.Record
}

// Ingest loads the raw dataset, normalizes identifiers, resolves a
// description per row across a bounded worker pool and writes the enriched
// dataset artifact. Only the description column is enriched; every other
// column keeps its original value. A row whose every source misses keeps an
// empty description and never fails the batch. Output row order matches
// input row order regardless of completion order.
func Ingest(ctx context.Context, resolver Resolver, rawPath, enrichedPath string, limit int) (*Dataset, error) {
	ds, err := ReadCSV(rawPath)
	if err != nil {
		return nil, err
	}
	if limit > 0 && limit < len(ds.Rows) {
		ds.Rows = ds.Rows[:limit]
	}

	isbnCol := ds.Column(ColISBN)
	titleCol := ds.Column(ColTitle)
	authorCol := ds.Column(ColAuthor)
	cleanCol := ds.EnsureColumn(ColCleanISBN)
	descCol := ds.EnsureColumn(ColDescription)

	// Normalize identifiers up front so every worker sees a stable key.
	for _, row := range ds.Rows {
		row[cleanCol] = isbn.Normalize(cell(row, isbnCol))
	}

	slog.Info("Starting enrichment", "rows", len(ds.Rows), "workers", maxWorkers)

	// One result slot per row; each worker writes only its own index, so
	// no locking is needed and input order is preserved.
	descriptions := make([]string, len(ds.Rows))
	var completed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)
	for i, row := range ds.Rows {
		g.Go(func() error {
			q := book.Query{
				ISBN:   row[cleanCol],
				Title:  cell(row, titleCol),
				Author: cell(row, authorCol),
			}
			descriptions[i] = resolver.Resolve(gctx, q).Description

			if n := completed.Add(1); n%progressInterval == 0 {
				slog.Info("Enrichment progress", "completed", n, "total", len(ds.Rows))
			}
			return nil
		})
	}
	// Workers never return errors; the resolver absorbs all fetch failures.
	_ = g.Wait()

	for i, row := range ds.Rows {
		row[descCol] = descriptions[i]
	}

	if err := ds.WriteCSV(enrichedPath); err != nil {
		return nil, fmt.Errorf("writing enriched dataset: %w", err)
	}
	slog.Info("Enriched dataset written", "path", enrichedPath, "rows", len(ds.Rows))
	return ds, nil
}
