package routes

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	scs "github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/briangreenhill/moviefinder/internal/auth"
	"github.com/briangreenhill/moviefinder/internal/db"
	appmw "github.com/briangreenhill/moviefinder/internal/http/middleware"
	"github.com/briangreenhill/moviefinder/internal/jobs"
	"github.com/briangreenhill/moviefinder/internal/omdb"
	"github.com/briangreenhill/moviefinder/internal/search"
	"github.com/briangreenhill/moviefinder/internal/yts"
)

// session keys
const (
	sessUserID    = "user_id"
	sessUserEmail = "user_email"
	sessUserName  = "user_name"
	sessSearchID  = "search_session"
	sessNonce     = "oauth_nonce"
)

const maxBodyBytes = 1 << 20

// Movies is the movie-data collaborator (*omdb.Client).
type Movies interface {
	Search(ctx context.Context, term string, page int) (*omdb.SearchResponse, error)
	Lookup(ctx context.Context, id string) (*omdb.Movie, error)
}

type Trailers interface {
	FindTrailer(ctx context.Context, title, year string) (string, error)
}

type Latest interface {
	ListMovies(ctx context.Context, page, limit int) (*yts.Page, error)
}

type ContactStore interface {
	CreateContactMessage(ctx context.Context, arg db.CreateContactMessageParams) (db.ContactMessage, error)
}

type Server struct {
	Router   *chi.Mux
	Sess     *scs.SessionManager
	Log      zerolog.Logger
	Movies   Movies
	Trailers Trailers // optional
	Latest   Latest
	Searches *search.Manager
	Accounts *auth.Accounts
	Contacts ContactStore
	Jobs     jobs.Enqueuer // optional; mail is skipped without it
	Reset    auth.ResetLink
	State    auth.OAuthState
	Google   *auth.Google // optional
	BaseURL  string

	validate *validator.Validate
}

type ServerOptions struct {
	Sess        *scs.SessionManager
	Log         zerolog.Logger
	Movies      Movies
	Trailers    Trailers
	Latest      Latest
	Searches    *search.Manager
	Accounts    *auth.Accounts
	Contacts    ContactStore
	Jobs        jobs.Enqueuer
	Secret      []byte
	BaseURL     string
	Google      *auth.Google
	Gatherer    prometheus.Gatherer
	CORSOrigins []string
	RateLimit   *appmw.IPRateLimiter
	// TrustProxy honours forwarding headers; only set it behind a proxy that overwrites them.
	TrustProxy  bool
}

func New(opts ServerOptions) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	if opts.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(hlog.NewHandler(opts.Log))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
		ev := hlog.FromRequest(r).Info()
		if status >= 500 {
			ev = hlog.FromRequest(r).Error()
		}
		ev.Str("req_id", chimw.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("took", d).
			Msg("request")
	}))
	r.Use(chimw.Recoverer)
	r.Use(appmw.Metrics)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	}).Handler)
	r.Use(opts.Sess.LoadAndSave)

	s := &Server{
		Router:   r,
		Sess:     opts.Sess,
		Log:      opts.Log,
		Movies:   opts.Movies,
		Trailers: opts.Trailers,
		Latest:   opts.Latest,
		Searches: opts.Searches,
		Accounts: opts.Accounts,
		Contacts: opts.Contacts,
		Jobs:     opts.Jobs,
		Reset:    auth.ResetLink{Secret: opts.Secret, BaseURL: opts.BaseURL},
		State:    auth.OAuthState{Secret: opts.Secret},
		Google:   opts.Google,
		BaseURL:  opts.BaseURL,
		validate: auth.NewValidator(),
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	if opts.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	limited := func(h http.Handler) http.Handler { return h }
	if opts.RateLimit != nil {
		limited = opts.RateLimit.Handler
	}

	r.Route("/api/movies", func(mr chi.Router) {
		mr.Use(limited)
		mr.Get("/", s.handleMovies)
		mr.Get("/latest", s.handleLatest)
		mr.Get("/{id}", s.handleMovieDetail)
		mr.Get("/{id}/trailer", s.handleTrailer)
	})

	r.Route("/api/search", func(sr chi.Router) {
		sr.Use(limited)
		sr.Get("/", s.handleSearchState)
		sr.Post("/", s.handleSearchSubmit)
		sr.Delete("/", s.handleSearchClear)
		sr.Post("/input", s.handleSearchInput)
		sr.Post("/page", s.handleSearchPage)
		sr.Post("/retry", s.handleSearchRetry)
	})

	r.Route("/api/users", func(ur chi.Router) {
		ur.Use(s.sessionToContext)
		ur.Post("/register", s.handleRegister)
		ur.Post("/login", s.handleLogin)
		ur.Post("/logout", s.handleLogout)
		ur.Post("/password/forgot", s.handleForgotPassword)
		ur.Post("/password/reset", s.handleResetPassword)

		ur.Group(func(pr chi.Router) {
			pr.Use(appmw.RequireAuth)
			pr.Get("/me", s.handleMe)
			pr.Post("/contact", s.handleContact)
		})
	})

	r.Get("/oauth/google/start", s.handleGoogleStart)
	r.Get("/oauth/google/callback", s.handleGoogleCallback)

	return s
}

func (s *Server) sessionToContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := s.Sess.GetString(r.Context(), sessUserID); id != "" {
			r = r.WithContext(context.WithValue(r.Context(), appmw.UserIDKey, id))
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"message": msg, "success": status < 400})
}

var errEmptyBody = errors.New("request body is empty")

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return errEmptyBody
	}
	return err
}
