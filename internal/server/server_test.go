package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/alexandria/internal/bookdb"
	"github.com/lepinkainen/alexandria/internal/covers"
	"github.com/lepinkainen/alexandria/internal/enrichment/book"
)

type stubResolver struct {
	record  book.Record
	queries []book.Query
}

func (s *stubResolver) Resolve(_ context.Context, q book.Query) book.Record {
	s.queries = append(s.queries, q)
	return s.record
}

func newTestServer(t *testing.T, resolver Resolver) (*Server, *bookdb.DB) {
	t.Helper()
	db, err := bookdb.Open(filepath.Join(t.TempDir(), "books.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, resolver, covers.NewFetcher(nil, t.TempDir())), db
}

func TestGetBook(t *testing.T) {
	srv, db := newTestServer(t, &stubResolver{})
	_, err := db.Merge(book.Record{ISBN: "9780261103344", Title: "The Hobbit", Year: 1937})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/books/978-0261103344", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got bookResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.Equal(t, "The Hobbit", got.Title)
	require.Equal(t, 1937, got.Year)
}

func TestGetBookNotFound(t *testing.T) {
	srv, _ := newTestServer(t, &stubResolver{})

	req := httptest.NewRequest(http.MethodGet, "/books/9780261103344", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListRequiresQuery(t *testing.T) {
	srv, _ := newTestServer(t, &stubResolver{})

	req := httptest.NewRequest(http.MethodGet, "/books", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchBooks(t *testing.T) {
	srv, db := newTestServer(t, &stubResolver{})
	_, err := db.Merge(book.Record{ISBN: "1", Title: "The Hobbit", Author: "Tolkien"})
	require.NoError(t, err)
	_, err = db.Merge(book.Record{ISBN: "2", Title: "Dune", Author: "Herbert"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/books?q=hobbit", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Results []bookResponse `json:"results"`
		Count   int            `json:"count"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.Equal(t, 1, got.Count)
	require.Equal(t, "The Hobbit", got.Results[0].Title)
}

func TestSyncCreatesRecord(t *testing.T) {
	resolver := &stubResolver{record: book.Record{
		Title:       "The Hobbit",
		Author:      "Tolkien, J.R.R.",
		Year:        1937,
		Description: "There and back again.",
	}}
	srv, db := newTestServer(t, resolver)

	body := `{"isbn": "978-0261103344", "title": "The Hobbit"}`
	req := httptest.NewRequest(http.MethodPost, "/sync", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got syncResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.Equal(t, "created", got.Status)
	require.Equal(t, "9780261103344", got.ISBN)
	require.True(t, got.DescriptionFound)

	// The resolver saw the normalized ISBN alongside the caller's hints.
	require.Len(t, resolver.queries, 1)
	require.Equal(t, "9780261103344", resolver.queries[0].ISBN)

	stored, err := db.Get("9780261103344")
	require.NoError(t, err)
	require.Equal(t, "There and back again.", stored.Description)
	require.Equal(t, 1937, stored.Year)
}

func TestSyncOverridesWin(t *testing.T) {
	resolver := &stubResolver{record: book.Record{
		Title:     "Resolved Title",
		Publisher: "Resolved Publisher",
	}}
	srv, db := newTestServer(t, resolver)

	body := `{"isbn": "9780261103344", "title": "Caller Title", "year": "published 1951", "publisher": ""}`
	req := httptest.NewRequest(http.MethodPost, "/sync", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := db.Get("9780261103344")
	require.NoError(t, err)
	require.Equal(t, "Caller Title", stored.Title)
	require.Equal(t, 1951, stored.Year)
	// Empty overrides fall back to resolved values.
	require.Equal(t, "Resolved Publisher", stored.Publisher)
}

func TestSyncOne(t *testing.T) {
	resolver := &stubResolver{record: book.Record{Title: "The Hobbit"}}
	srv, db := newTestServer(t, resolver)

	err := srv.SyncOne(context.Background(), SyncInput{ISBN: "978-0261103344"})
	require.NoError(t, err)

	stored, err := db.Get("9780261103344")
	require.NoError(t, err)
	require.Equal(t, "The Hobbit", stored.Title)

	require.Error(t, srv.SyncOne(context.Background(), SyncInput{ISBN: "---"}))
}

func TestSyncRejectsBadISBN(t *testing.T) {
	srv, _ := newTestServer(t, &stubResolver{})

	req := httptest.NewRequest(http.MethodPost, "/sync", strings.NewReader(`{"isbn": "---"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSyncRejectsBadJSON(t *testing.T) {
	srv, _ := newTestServer(t, &stubResolver{})

	req := httptest.NewRequest(http.MethodPost, "/sync", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCoverRedirect(t *testing.T) {
	srv, _ := newTestServer(t, &stubResolver{})

	req := httptest.NewRequest(http.MethodGet, "/books/9780261103344/cover", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "https://covers.openlibrary.org/b/isbn/9780261103344-L.jpg", rec.Header().Get("Location"))
}

func TestCoverInvalidISBN(t *testing.T) {
	srv, _ := newTestServer(t, &stubResolver{})

	req := httptest.NewRequest(http.MethodGet, "/books/abc/cover", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStats(t *testing.T) {
	srv, db := newTestServer(t, &stubResolver{})
	_, err := db.Merge(book.Record{ISBN: "1", Title: "The Hobbit", Author: "Tolkien", Year: 1937})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got bookdb.Stats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.Equal(t, 1, got.Books)
}
