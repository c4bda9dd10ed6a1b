package routes

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/briangreenhill/moviefinder/internal/omdb"
	"github.com/briangreenhill/moviefinder/internal/search"
	"github.com/briangreenhill/moviefinder/internal/youtube"
	"github.com/briangreenhill/moviefinder/internal/yts"
)

const (
	msgMissingParam  = "Search term (s) or Movie ID (id) is required"
	msgUpstreamError = "Failed to fetch data from OMDb"
)

func pageParam(r *http.Request) int {
	p, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || p < 1 {
		return 1
	}
	return p
}

// handleMovies proxies OMDb: ?id= (or ?i=) fetches one title, ?s= searches.
func (s *Server) handleMovies(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id := strings.TrimSpace(q.Get("id"))
	if id == "" {
		id = strings.TrimSpace(q.Get("i"))
	}
	term := strings.TrimSpace(q.Get("s"))

	switch {
	case id != "":
		s.writeMovie(w, r, id)
	case term != "":
		if (search.Query{Term: term}).IsIDLookup() {
			m, err := s.Movies.Lookup(r.Context(), term)
			if err != nil {
				s.writeUpstreamError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, omdb.SearchResponse{
				Search: []omdb.SearchItem{{
					Title:  m.Title,
					Year:   m.Year,
					IMDbID: m.IMDbID,
					Type:   m.Type,
					Poster: m.Poster,
				}},
				TotalResults: "1",
				Response:     "True",
			})
			return
		}
		res, err := s.Movies.Search(r.Context(), term, pageParam(r))
		if err != nil {
			s.writeUpstreamError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	default:
		writeError(w, http.StatusBadRequest, msgMissingParam)
	}
}

func (s *Server) handleMovieDetail(w http.ResponseWriter, r *http.Request) {
	s.writeMovie(w, r, chi.URLParam(r, "id"))
}

func (s *Server) writeMovie(w http.ResponseWriter, r *http.Request, id string) {
	m, err := s.Movies.Lookup(r.Context(), id)
	if err != nil {
		s.writeUpstreamError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) writeUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	var nf *omdb.NotFoundError
	if errors.As(err, &nf) {
		writeError(w, http.StatusNotFound, nf.Message)
		return
	}
	hlog.FromRequest(r).Error().Err(err).Msg("omdb request failed")
	writeError(w, http.StatusInternalServerError, msgUpstreamError)
}

func (s *Server) handleTrailer(w http.ResponseWriter, r *http.Request) {
	if s.Trailers == nil {
		writeError(w, http.StatusServiceUnavailable, "Trailers are not available")
		return
	}
	m, err := s.Movies.Lookup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeUpstreamError(w, r, err)
		return
	}
	videoID, err := s.Trailers.FindTrailer(r.Context(), m.Title, m.Year)
	if errors.Is(err, youtube.ErrNoTrailer) {
		writeError(w, http.StatusNotFound, "No trailer found")
		return
	}
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Str("id", m.IMDbID).Msg("trailer lookup failed")
		writeError(w, http.StatusBadGateway, "Trailer fetch failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"videoId": videoID})
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	page, err := s.Latest.ListMovies(r.Context(), pageParam(r), yts.DefaultLimit)
	if errors.Is(err, yts.ErrNoMovies) {
		writeError(w, http.StatusNotFound, "No movies found")
		return
	}
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("latest listing failed")
		writeError(w, http.StatusBadGateway, "Error fetching data")
		return
	}
	writeJSON(w, http.StatusOK, page)
}
