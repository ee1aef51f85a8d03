package sources

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/lepinkainen/alexandria/internal/enrichment/book"
	"github.com/lepinkainen/alexandria/internal/ratelimit"
)

const (
	openLibraryDefaultBaseURL = "https://openlibrary.org"
	openLibraryTimeout        = 5 * time.Second
)

// OpenLibrary looks up books through the bibkeys API. Its description field
// comes back in two shapes, a plain string or a {"value": ...} wrapper, and
// both are unwrapped here.
type OpenLibrary struct {
	client  *http.Client
	limiter *ratelimit.Limiter
	baseURL string
}

var _ book.Source = (*OpenLibrary)(nil)

// NewOpenLibrary creates the OpenLibrary source around an injected client.
func NewOpenLibrary(client *http.Client) *OpenLibrary {
	return &OpenLibrary{
		client:  client,
		limiter: ratelimit.New("OpenLibrary", 1),
		baseURL: openLibraryDefaultBaseURL,
	}
}

func (s *OpenLibrary) Name() string { return "OpenLibrary" }

// openLibraryBook matches the jscmd=data response for one bibkey.
type openLibraryBook struct {
	Title       string `json:"title"`
	Description any    `json:"description"`
	PublishDate string `json:"publish_date"`
	Publishers  []struct {
		Name string `json:"name"`
	} `json:"publishers"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
}

func (s *OpenLibrary) Lookup(ctx context.Context, q book.Query) (*book.Result, error) {
	if q.ISBN == "" {
		return nil, nil
	}

	u := fmt.Sprintf("%s/api/books?bibkeys=ISBN:%s&format=json&jscmd=data", s.baseURL, q.ISBN)

	var payload map[string]openLibraryBook
	if err := fetchJSON(ctx, s.client, s.limiter, openLibraryTimeout, u, &payload); err != nil {
		return nil, err
	}

	ol, ok := payload["ISBN:"+q.ISBN]
	if !ok {
		return nil, nil
	}

	res := &book.Result{}
	if ol.Title != "" {
		res.Title = &ol.Title
	}
	if len(ol.Authors) > 0 && ol.Authors[0].Name != "" {
		res.Author = &ol.Authors[0].Name
	}
	if y := book.ParseYear(ol.PublishDate); y != 0 {
		res.Year = &y
	}
	if len(ol.Publishers) > 0 && ol.Publishers[0].Name != "" {
		res.Publisher = &ol.Publishers[0].Name
	}
	if desc := unwrapDescription(ol.Description); desc != "" {
		res.Description = &desc
	}

	if !res.Structured() && res.Description == nil {
		return nil, nil
	}
	return res, nil
}

// unwrapDescription handles the two shapes OpenLibrary uses for
// descriptions.
func unwrapDescription(v any) string {
	switch d := v.(type) {
	case string:
		return d
	case map[string]any:
		if s, ok := d["value"].(string); ok {
			return s
		}
	}
	return ""
}
