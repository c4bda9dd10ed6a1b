package routes

import (
	"net/http"

	"github.com/rs/zerolog/hlog"
)

func (s *Server) handleGoogleStart(w http.ResponseWriter, r *http.Request) {
	if s.Google == nil {
		http.NotFound(w, r)
		return
	}
	state, nonce, err := s.State.New()
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("oauth state failed")
		http.Error(w, "could not start sign-in", http.StatusInternalServerError)
		return
	}
	s.Sess.Put(r.Context(), sessNonce, nonce)
	http.Redirect(w, r, s.Google.AuthCodeURL(state), http.StatusFound)
}

func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if s.Google == nil {
		http.NotFound(w, r)
		return
	}
	log := hlog.FromRequest(r)

	nonce, err := s.State.Verify(r.URL.Query().Get("state"))
	if err != nil || nonce != s.Sess.PopString(r.Context(), sessNonce) {
		http.Error(w, "invalid state", http.StatusBadRequest)
		return
	}
	if e := r.URL.Query().Get("error"); e != "" {
		log.Info().Str("error", e).Msg("google sign-in declined")
		http.Redirect(w, r, s.BaseURL+"/login", http.StatusFound)
		return
	}

	p, err := s.Google.Profile(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		log.Error().Err(err).Msg("google profile failed")
		http.Error(w, "could not complete sign-in", http.StatusBadGateway)
		return
	}
	u, err := s.Accounts.FindOrCreateOAuthUser(r.Context(), p.Email, p.Name)
	if err != nil {
		log.Error().Err(err).Msg("oauth user lookup failed")
		http.Error(w, "could not complete sign-in", http.StatusInternalServerError)
		return
	}
	if err := s.signIn(r, u); err != nil {
		log.Error().Err(err).Msg("renew session failed")
		http.Error(w, "could not complete sign-in", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, s.BaseURL+"/", http.StatusFound)
}
