package sources

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lepinkainen/alexandria/internal/config"
	"github.com/lepinkainen/alexandria/internal/enrichment/book"
	"github.com/lepinkainen/alexandria/internal/ratelimit"
)

const (
	googleBooksDefaultBaseURL = "https://www.googleapis.com/books/v1"
	googleBooksTimeout        = 5 * time.Second
)

// GoogleBooks looks up volumes by identifier. It is the primary catalog
// source and the only one that contributes every structured field.
type GoogleBooks struct {
	client  *http.Client
	limiter *ratelimit.Limiter
	baseURL string
}

var _ book.Source = (*GoogleBooks)(nil)

// NewGoogleBooks creates the Google Books source around an injected client.
func NewGoogleBooks(client *http.Client) *GoogleBooks {
	return &GoogleBooks{
		client:  client,
		limiter: ratelimit.New("GoogleBooks", 5),
		baseURL: googleBooksDefaultBaseURL,
	}
}

func (s *GoogleBooks) Name() string { return "Google Books" }

// Lookup queries volumes by the normalized identifier. Returns nothing when
// the query carries no identifier.
func (s *GoogleBooks) Lookup(ctx context.Context, q book.Query) (*book.Result, error) {
	if q.ISBN == "" {
		return nil, nil
	}
	return s.fetchVolume(ctx, "isbn:"+q.ISBN)
}

// googleBooksResponse matches the volumes API response structure.
type googleBooksResponse struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		VolumeInfo struct {
			Title         string   `json:"title"`
			Authors       []string `json:"authors"`
			Publisher     string   `json:"publisher"`
			PublishedDate string   `json:"publishedDate"`
			Description   string   `json:"description"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

func (s *GoogleBooks) fetchVolume(ctx context.Context, query string) (*book.Result, error) {
	u := s.baseURL + "/volumes?maxResults=1&q=" + url.QueryEscape(query)
	if config.GoogleBooksAPIKey != "" {
		u += "&key=" + config.GoogleBooksAPIKey
	}

	var payload googleBooksResponse
	if err := fetchJSON(ctx, s.client, s.limiter, googleBooksTimeout, u, &payload); err != nil {
		return nil, err
	}

	if payload.TotalItems == 0 || len(payload.Items) == 0 {
		return nil, nil
	}

	vol := payload.Items[0].VolumeInfo
	res := &book.Result{}
	if vol.Title != "" {
		res.Title = &vol.Title
	}
	if len(vol.Authors) > 0 {
		author := strings.Join(vol.Authors, ", ")
		res.Author = &author
	}
	if y := book.ParseYear(vol.PublishedDate); y != 0 {
		res.Year = &y
	}
	if vol.Publisher != "" {
		res.Publisher = &vol.Publisher
	}
	if vol.Description != "" {
		res.Description = &vol.Description
	}
	return res, nil
}

// SearchFallback is the last waterfall step: a free-text volume search by
// title plus the first author token, first hit wins. It shares the Google
// Books client and rate limiter.
type SearchFallback struct {
	gb *GoogleBooks
}

var _ book.Source = (*SearchFallback)(nil)

// NewSearchFallback creates the search fallback on top of an existing
// Google Books source.
func NewSearchFallback(gb *GoogleBooks) *SearchFallback {
	return &SearchFallback{gb: gb}
}

func (s *SearchFallback) Name() string { return "Google Books search" }

// Lookup searches by title and author hint. Returns nothing when the query
// carries no title.
func (s *SearchFallback) Lookup(ctx context.Context, q book.Query) (*book.Result, error) {
	if q.Title == "" {
		return nil, nil
	}

	query := q.Title
	if tok := firstAuthorToken(q.Author); tok != "" {
		query += " " + tok
	}
	return s.gb.fetchVolume(ctx, query)
}

// firstAuthorToken returns the author name up to the first comma or
// semicolon, trimmed. "Tolkien, J.R.R." searches better as "Tolkien".
func firstAuthorToken(author string) string {
	if i := strings.IndexAny(author, ",;"); i >= 0 {
		author = author[:i]
	}
	return strings.TrimSpace(author)
}
