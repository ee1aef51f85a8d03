package book

import "context"

// Query is the input to a resolution: a normalized identifier plus optional
// title and author hints used by the free-text search fallback.
type Query struct {
	ISBN   string
	Title  string
	Author string
}

// Result is a partial record returned by one source. Pointer fields
// distinguish "not set" from "empty string". Results are never persisted;
// the resolver merges them into a Record.
type Result struct {
	Title       *string
	Author      *string
	Year        *int
	Publisher   *string
	Description *string
}

// Structured reports whether the result carries any field beyond the
// description. The first structured result in the waterfall fixes
// title/author/year/publisher for the record.
func (r *Result) Structured() bool {
	return r != nil && (r.Title != nil || r.Author != nil || r.Year != nil || r.Publisher != nil)
}

// Source fetches book metadata from one external service.
//
// Lookup returns (nil, nil) when the source has nothing for the query, and
// an error for transport or payload problems. The resolver treats both the
// same way: log and move to the next source. A source that cannot serve the
// query shape at all (no identifier, no title) returns (nil, nil) without
// going to the network.
type Source interface {
	Name() string
	Lookup(ctx context.Context, q Query) (*Result, error)
}
