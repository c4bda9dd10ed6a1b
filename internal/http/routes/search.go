package routes

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/briangreenhill/moviefinder/internal/search"
)

type searchRequest struct {
	Query string `json:"query"`
	Page  int    `json:"page"`
}

type searchResponse struct {
	Result *search.Result `json:"result,omitempty"`
	State  search.State   `json:"state"`
}

// searchSession returns the caller's search session, minting an id in the
// cookie session on first use.
func (s *Server) searchSession(r *http.Request) *search.Session {
	id := s.Sess.GetString(r.Context(), sessSearchID)
	if id == "" {
		id = uuid.NewString()
		s.Sess.Put(r.Context(), sessSearchID, id)
	}
	return s.Searches.Get(id)
}

func outcomeStatus(o search.Outcome) int {
	switch o {
	case search.OutcomeInvalid:
		return http.StatusBadRequest
	case search.OutcomeNotFound:
		return http.StatusNotFound
	case search.OutcomeTransportFailure:
		return http.StatusBadGateway
	case search.OutcomeCancelled:
		return http.StatusConflict
	default:
		return http.StatusOK
	}
}

func (s *Server) writeSearch(w http.ResponseWriter, sess *search.Session, res search.Result) {
	writeJSON(w, outcomeStatus(res.Outcome), searchResponse{Result: &res, State: sess.State()})
}

func (s *Server) handleSearchState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, searchResponse{State: s.searchSession(r).State()})
}

// handleSearchSubmit is the explicit search action; it skips the debounce.
func (s *Server) handleSearchSubmit(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	sess := s.searchSession(r)
	s.writeSearch(w, sess, sess.Submit(r.Context(), req.Query, req.Page))
}

// handleSearchInput feeds live typing through the debounce gate. The search
// runs in the background; clients poll GET /api/search for the outcome.
func (s *Server) handleSearchInput(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	sess := s.searchSession(r)
	sess.Type(req.Query)
	writeJSON(w, http.StatusAccepted, searchResponse{State: sess.State()})
}

func (s *Server) handleSearchPage(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	sess := s.searchSession(r)
	s.writeSearch(w, sess, sess.GoToPage(r.Context(), req.Page))
}

func (s *Server) handleSearchRetry(w http.ResponseWriter, r *http.Request) {
	sess := s.searchSession(r)
	s.writeSearch(w, sess, sess.Retry(r.Context()))
}

func (s *Server) handleSearchClear(w http.ResponseWriter, r *http.Request) {
	s.searchSession(r).Clear()
	w.WriteHeader(http.StatusNoContent)
}
