package pipeline

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/lepinkainen/alexandria/internal/enrichment/book"
	"github.com/lepinkainen/alexandria/internal/sanitize"
)

// Transform sanitizes every description, drops rows left without one,
// deduplicates by normalized identifier (first occurrence wins) and parses
// publication years from the free-form year column. The cleaned dataset is
// written as the stage artifact and returned.
func Transform(enrichedPath, cleanedPath string) (*Dataset, error) {
	ds, err := ReadCSV(enrichedPath)
	if err != nil {
		return nil, fmt.Errorf("transform needs the enriched dataset: %w", err)
	}

	descCol := ds.Column(ColDescription)
	if descCol < 0 {
		return nil, fmt.Errorf("enriched dataset %s has no %q column; run ingestion first", enrichedPath, ColDescription)
	}
	isbnCol := ds.Column(ColCleanISBN)
	yearCol := ds.Column(ColYear)
	cleanDescCol := ds.EnsureColumn(ColCleanDescription)
	cleanYearCol := ds.EnsureColumn(ColCleanYear)

	seen := make(map[string]bool)
	kept := make([][]string, 0, len(ds.Rows))
	for _, row := range ds.Rows {
		clean := sanitize.CleanDescription(cell(row, descCol))
		if clean == "" {
			continue
		}

		// Rows without an identifier cannot collide; they are kept as-is.
		if key := cell(row, isbnCol); key != "" {
			if seen[key] {
				continue
			}
			seen[key] = true
		}

		row[cleanDescCol] = clean
		if y := book.ParseYear(cell(row, yearCol)); y != 0 {
			row[cleanYearCol] = strconv.Itoa(y)
		}
		kept = append(kept, row)
	}

	slog.Info("Transform complete", "rows_in", len(ds.Rows), "rows_out", len(kept))
	ds.Rows = kept

	if err := ds.WriteCSV(cleanedPath); err != nil {
		return nil, fmt.Errorf("writing cleaned dataset: %w", err)
	}
	return ds, nil
}
