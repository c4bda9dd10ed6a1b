package search

import (
	"context"
	"strconv"
	"strings"

	"github.com/briangreenhill/moviefinder/internal/omdb"
)

// NoPoster stands in for a missing poster so callers never see an empty URL.
const NoPoster = "/placeholder-movie.png"

// MovieSummary is one search result.
type MovieSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Year      string `json:"year"`
	PosterURL string `json:"posterUrl"`
	MediaType string `json:"mediaType"`
}

// PageResult is what a Source returns for a title search.
type PageResult struct {
	Movies       []MovieSummary
	TotalResults int
}

// Source is the external movie database. A domain level "nothing found"
// must come back as *omdb.NotFoundError so it stays distinct from
// transport failures.
type Source interface {
	Search(ctx context.Context, term string, page int) (PageResult, error)
	Lookup(ctx context.Context, id string) (MovieSummary, error)
}

// OMDbSource adapts the OMDb client to Source.
type OMDbSource struct {
	Client *omdb.Client
}

func (s OMDbSource) Search(ctx context.Context, term string, page int) (PageResult, error) {
	res, err := s.Client.Search(ctx, term, page)
	if err != nil {
		return PageResult{}, err
	}
	total, _ := strconv.Atoi(res.TotalResults)
	movies := make([]MovieSummary, 0, len(res.Search))
	for _, it := range res.Search {
		movies = append(movies, newSummary(it.IMDbID, it.Title, it.Year, it.Poster, it.Type))
	}
	return PageResult{Movies: movies, TotalResults: total}, nil
}

func (s OMDbSource) Lookup(ctx context.Context, id string) (MovieSummary, error) {
	m, err := s.Client.Lookup(ctx, id)
	if err != nil {
		return MovieSummary{}, err
	}
	return newSummary(m.IMDbID, m.Title, m.Year, m.Poster, m.Type), nil
}

func newSummary(id, title, year, poster, mediaType string) MovieSummary {
	return MovieSummary{
		ID:        id,
		Title:     title,
		Year:      year,
		PosterURL: PosterOrDefault(poster),
		MediaType: mediaType,
	}
}

// PosterOrDefault maps OMDb's "N/A" and empty posters onto NoPoster.
func PosterOrDefault(poster string) string {
	p := strings.TrimSpace(poster)
	if p == "" || strings.EqualFold(p, "N/A") {
		return NoPoster
	}
	return p
}
