package sources

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/lepinkainen/alexandria/internal/enrichment/book"
	"github.com/lepinkainen/alexandria/internal/ratelimit"
)

const (
	openAlexDefaultBaseURL = "https://api.openalex.org"
	openAlexTimeout        = 3 * time.Second
	openAlexMaxConcepts    = 10
)

// OpenAlex resolves scholarly works. It contributes a description only:
// preferably an abstract reconstructed from the inverted index, otherwise a
// keyword list built from the top-scored concepts. It never contributes
// title, author or publisher.
type OpenAlex struct {
	client  *http.Client
	limiter *ratelimit.Limiter
	baseURL string
}

var _ book.Source = (*OpenAlex)(nil)

// NewOpenAlex creates the OpenAlex source around an injected client.
func NewOpenAlex(client *http.Client) *OpenAlex {
	return &OpenAlex{
		client:  client,
		limiter: ratelimit.New("OpenAlex", 5),
		baseURL: openAlexDefaultBaseURL,
	}
}

func (s *OpenAlex) Name() string { return "OpenAlex" }

type openAlexConcept struct {
	DisplayName string  `json:"display_name"`
	Score       float64 `json:"score"`
}

type openAlexResponse struct {
	Results []struct {
		AbstractInvertedIndex map[string][]int  `json:"abstract_inverted_index"`
		Concepts              []openAlexConcept `json:"concepts"`
	} `json:"results"`
}

func (s *OpenAlex) Lookup(ctx context.Context, q book.Query) (*book.Result, error) {
	if q.ISBN == "" {
		return nil, nil
	}

	u := fmt.Sprintf("%s/works?filter=ids.isbn:%s", s.baseURL, q.ISBN)

	var payload openAlexResponse
	if err := fetchJSON(ctx, s.client, s.limiter, openAlexTimeout, u, &payload); err != nil {
		return nil, err
	}

	if len(payload.Results) == 0 {
		return nil, nil
	}
	work := payload.Results[0]

	if abstract := reconstructAbstract(work.AbstractInvertedIndex); abstract != "" {
		desc := "Abstract: " + abstract
		return &book.Result{Description: &desc}, nil
	}

	if keywords := topConcepts(work.Concepts, openAlexMaxConcepts); len(keywords) > 0 {
		desc := "Keywords: " + strings.Join(keywords, ", ")
		return &book.Result{Description: &desc}, nil
	}

	return nil, nil
}

// reconstructAbstract flattens the word-to-positions index into
// (position, word) pairs, sorts by position and joins with spaces. Word
// order in the output depends only on the positions, never on map
// iteration order.
func reconstructAbstract(index map[string][]int) string {
	if len(index) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	pairs := make([]posWord, 0, len(index))
	for word, positions := range index {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].pos < pairs[j].pos })

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

// topConcepts returns up to n concept names sorted descending by score.
func topConcepts(concepts []openAlexConcept, n int) []string {
	sorted := make([]openAlexConcept, len(concepts))
	copy(sorted, concepts)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	if len(sorted) > n {
		sorted = sorted[:n]
	}
	names := make([]string, 0, len(sorted))
	for _, c := range sorted {
		if c.DisplayName != "" {
			names = append(names, c.DisplayName)
		}
	}
	return names
}
