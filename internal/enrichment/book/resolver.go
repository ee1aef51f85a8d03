package book

import (
	"context"
	"log/slog"

	"github.com/lepinkainen/alexandria/internal/sanitize"
)

// Resolver runs a waterfall over an ordered list of sources. The first
// source to return a structured result fixes title/author/year/publisher;
// sources after it are consulted only for a still-missing description, and
// resolution stops as soon as a description is found. This bounds the
// outbound calls per record at len(sources) while keeping provenance
// deterministic.
type Resolver struct {
	sources []Source
}

// NewResolver creates a resolver trying the given sources in order.
func NewResolver(sources []Source) *Resolver {
	return &Resolver{sources: sources}
}

// Resolve produces a best-effort record for the query. The caller-supplied
// identifier is authoritative and passes through unchanged. Source failures
// fall through to the next source and never surface as errors; a record
// with an empty description is a valid outcome.
func (r *Resolver) Resolve(ctx context.Context, q Query) Record {
	rec := Record{ISBN: q.ISBN}
	structured := false
	var description string

	for _, src := range r.sources {
		res, err := src.Lookup(ctx, q)
		if err != nil {
			slog.Debug("Source lookup failed", "source", src.Name(), "isbn", q.ISBN, "error", err)
			continue
		}
		if res == nil {
			continue
		}

		if !structured && res.Structured() {
			structured = true
			if res.Title != nil {
				rec.Title = *res.Title
			}
			if res.Author != nil {
				rec.Author = *res.Author
			}
			if res.Year != nil {
				rec.Year = *res.Year
			}
			if res.Publisher != nil {
				rec.Publisher = *res.Publisher
			}
		}

		if description == "" && res.Description != nil {
			description = *res.Description
		}
		if description != "" {
			slog.Debug("Description resolved", "source", src.Name(), "isbn", q.ISBN)
			break
		}
	}

	rec.Description = sanitize.CleanDescription(description)
	return rec
}
