package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lepinkainen/alexandria/internal/enrichment/book"
	"github.com/stretchr/testify/require"
)

func TestGoogleBooksLookupSuccess(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/volumes", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "isbn:9780316769488", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{
			"totalItems": 1,
			"items": [{
				"volumeInfo": {
					"title": "The Catcher in the Rye",
					"authors": ["J.D. Salinger"],
					"publisher": "Little, Brown",
					"publishedDate": "1991-05-01",
					"description": "The hero-narrator of The Catcher in the Rye is an ancient child of sixteen."
				}
			}]
		}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	src := NewGoogleBooks(server.Client())
	src.baseURL = server.URL

	res, err := src.Lookup(context.Background(), book.Query{ISBN: "9780316769488"})
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Equal(t, "The Catcher in the Rye", *res.Title)
	require.Equal(t, "J.D. Salinger", *res.Author)
	require.Equal(t, 1991, *res.Year)
	require.Equal(t, "Little, Brown", *res.Publisher)
	require.Contains(t, *res.Description, "hero-narrator")
	require.True(t, res.Structured())
}

func TestGoogleBooksLookupNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"totalItems": 0}`))
	}))
	defer server.Close()

	src := NewGoogleBooks(server.Client())
	src.baseURL = server.URL

	res, err := src.Lookup(context.Background(), book.Query{ISBN: "0000000000"})
	require.NoError(t, err)
	require.Nil(t, res)
}

func TestGoogleBooksLookupServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	src := NewGoogleBooks(server.Client())
	src.baseURL = server.URL

	res, err := src.Lookup(context.Background(), book.Query{ISBN: "123"})
	require.Error(t, err)
	require.Nil(t, res)
}

func TestGoogleBooksLookupWithoutISBNSkipsNetwork(t *testing.T) {
	src := NewGoogleBooks(http.DefaultClient)
	src.baseURL = "http://127.0.0.1:1" // would fail if contacted

	res, err := src.Lookup(context.Background(), book.Query{Title: "Some Title"})
	require.NoError(t, err)
	require.Nil(t, res)
}

func TestSearchFallbackQuery(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		_, _ = w.Write([]byte(`{
			"totalItems": 1,
			"items": [{"volumeInfo": {"title": "The Hobbit", "description": "A hole in the ground."}}]
		}`))
	}))
	defer server.Close()

	gb := NewGoogleBooks(server.Client())
	gb.baseURL = server.URL
	src := NewSearchFallback(gb)

	res, err := src.Lookup(context.Background(), book.Query{
		Title:  "The Hobbit",
		Author: "Tolkien, J.R.R.",
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Equal(t, "The Hobbit Tolkien", gotQuery)
	require.Equal(t, "A hole in the ground.", *res.Description)
}

func TestSearchFallbackWithoutTitleSkipsNetwork(t *testing.T) {
	gb := NewGoogleBooks(http.DefaultClient)
	gb.baseURL = "http://127.0.0.1:1"
	src := NewSearchFallback(gb)

	res, err := src.Lookup(context.Background(), book.Query{ISBN: "123"})
	require.NoError(t, err)
	require.Nil(t, res)
}

func TestFirstAuthorToken(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Tolkien, J.R.R.", "Tolkien"},
		{"Smith; Jones", "Smith"},
		{"  Plain Author  ", "Plain Author"},
		{"", ""},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, firstAuthorToken(tt.input))
	}
}
