// Package server exposes the catalog and the enrichment waterfall over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/lepinkainen/alexandria/internal/bookdb"
	"github.com/lepinkainen/alexandria/internal/covers"
	"github.com/lepinkainen/alexandria/internal/enrichment/book"
	"github.com/lepinkainen/alexandria/internal/isbn"
)

// Resolver resolves a single book query against the source waterfall.
type Resolver interface {
	Resolve(ctx context.Context, q book.Query) book.Record
}

// Server serves catalog lookups and single-record sync requests.
type Server struct {
	db       *bookdb.DB
	resolver Resolver
	covers   *covers.Fetcher
}

// New returns a Server over the given catalog and resolver.
func New(db *bookdb.DB, resolver Resolver, coverFetcher *covers.Fetcher) *Server {
	return &Server{db: db, resolver: resolver, covers: coverFetcher}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /books", s.handleList)
	mux.HandleFunc("GET /books/{isbn}", s.handleGet)
	mux.HandleFunc("GET /books/{isbn}/cover", s.handleCover)
	mux.HandleFunc("POST /sync", s.handleSync)
	mux.HandleFunc("GET /stats", s.handleStats)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Encoding response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type bookResponse struct {
	ISBN        string `json:"isbn"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Year        int    `json:"year,omitempty"`
	Edition     string `json:"edition,omitempty"`
	Publisher   string `json:"publisher,omitempty"`
	Description string `json:"description,omitempty"`
}

func toResponse(rec book.Record) bookResponse {
	return bookResponse{
		ISBN:        rec.ISBN,
		Title:       rec.Title,
		Author:      rec.Author,
		Year:        rec.Year,
		Edition:     rec.Edition,
		Publisher:   rec.Publisher,
		Description: rec.Description,
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	records, err := s.db.Search(query, limit)
	if err != nil {
		slog.Error("Search failed", "query", query, "error", err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	results := make([]bookResponse, 0, len(records))
	for _, rec := range records {
		results = append(results, toResponse(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results, "count": len(results)})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := isbn.Normalize(r.PathValue("isbn"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid ISBN")
		return
	}

	rec, err := s.db.Get(id)
	if errors.Is(err, bookdb.ErrNotFound) {
		writeError(w, http.StatusNotFound, "book not found")
		return
	}
	if err != nil {
		slog.Error("Lookup failed", "isbn", id, "error", err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, toResponse(rec))
}

func (s *Server) handleCover(w http.ResponseWriter, r *http.Request) {
	url := s.covers.URL(r.PathValue("isbn"))
	if url == "" {
		writeError(w, http.StatusBadRequest, "invalid ISBN")
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// SyncInput carries the identifier and optional caller hints for a single
// book sync. Hints win over resolved metadata.
type SyncInput struct {
	ISBN      string `json:"isbn"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Year      string `json:"year"`
	Edition   string `json:"edition"`
	Publisher string `json:"publisher"`
}

type syncResponse struct {
	Status           string `json:"status"`
	ISBN             string `json:"isbn"`
	DescriptionFound bool   `json:"description_found"`
	RowsAffected     int64  `json:"rows_affected"`
}

var errInvalidISBN = errors.New("a valid ISBN is required")

// sync resolves one book through the waterfall, applies the caller's hints
// and merges the result into the catalog.
func (s *Server) sync(ctx context.Context, in SyncInput) (book.Record, *bookdb.MergeResult, error) {
	id := isbn.Normalize(in.ISBN)
	if id == "" {
		return book.Record{}, nil, errInvalidISBN
	}

	rec := s.resolver.Resolve(ctx, book.Query{
		ISBN:   id,
		Title:  in.Title,
		Author: in.Author,
	})
	rec = book.Overlay(rec, book.Record{
		Title:     in.Title,
		Author:    in.Author,
		Year:      book.ParseYear(in.Year),
		Edition:   in.Edition,
		Publisher: in.Publisher,
	})
	rec.ISBN = id

	res, err := s.db.Merge(rec)
	if err != nil {
		return book.Record{}, nil, err
	}
	return rec, res, nil
}

// SyncOne resolves and merges a single book, logging the outcome. Used by
// the command line sync path.
func (s *Server) SyncOne(ctx context.Context, in SyncInput) error {
	rec, res, err := s.sync(ctx, in)
	if err != nil {
		return err
	}

	status := "updated"
	if res.Created {
		status = "created"
	}
	slog.Info("Book synced",
		"isbn", rec.ISBN,
		"status", status,
		"title", rec.Title,
		"description_found", rec.Description != "")
	return nil
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var req SyncInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	rec, res, err := s.sync(r.Context(), req)
	if errors.Is(err, errInvalidISBN) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		slog.Error("Merge failed", "isbn", req.ISBN, "error", err)
		writeError(w, http.StatusInternalServerError, "storing the record failed")
		return
	}

	status := "updated"
	if res.Created {
		status = "created"
	}
	slog.Info("Book synced", "isbn", rec.ISBN, "status", status, "description_found", rec.Description != "")
	writeJSON(w, http.StatusOK, syncResponse{
		Status:           status,
		ISBN:             rec.ISBN,
		DescriptionFound: rec.Description != "",
		RowsAffected:     res.RowsAffected,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.Stats()
	if err != nil {
		slog.Error("Stats failed", "error", err)
		writeError(w, http.StatusInternalServerError, "stats failed")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
