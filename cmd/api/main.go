// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	scs "github.com/alexedwards/scs/v2"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/moviefinder/cache"
	"github.com/briangreenhill/moviefinder/internal/auth"
	"github.com/briangreenhill/moviefinder/internal/config"
	"github.com/briangreenhill/moviefinder/internal/db"
	appmw "github.com/briangreenhill/moviefinder/internal/http/middleware"
	"github.com/briangreenhill/moviefinder/internal/http/routes"
	"github.com/briangreenhill/moviefinder/internal/metrics"
	"github.com/briangreenhill/moviefinder/internal/omdb"
	"github.com/briangreenhill/moviefinder/internal/search"
	"github.com/briangreenhill/moviefinder/internal/youtube"
	"github.com/briangreenhill/moviefinder/internal/yts"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// DB
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("db connect")
	}
	defer pool.Close()
	if cfg.MigrateOnStart {
		if err := db.Migrate(ctx, pool, "up"); err != nil {
			logger.Fatal().Err(err).Msg("migrate")
		}
	}
	queries := db.New(pool)

	// Sessions
	sess := scs.New()
	sess.Lifetime = 24 * time.Hour
	sess.Cookie.Name = "moviefinder_session"
	sess.Cookie.HttpOnly = true
	sess.Cookie.SameSite = http.SameSiteLaxMode
	sess.Cookie.Secure = cfg.SecureCookies

	// Upstream clients
	rc := openCache(ctx, cfg, logger)
	movies, err := omdb.New(cfg.OMDb.APIKey,
		omdb.WithBaseURL(cfg.OMDb.BaseURL),
		omdb.WithHTTPClient(&http.Client{Timeout: cfg.OMDb.Timeout}),
		omdb.WithCache(rc, cfg.Cache.DetailTTL),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("omdb client")
	}
	var trailers routes.Trailers
	if cfg.HasYouTube() {
		yt, err := youtube.New(cfg.YouTube.APIKey, youtube.WithCache(rc, cfg.Cache.TrailerTTL))
		if err != nil {
			logger.Fatal().Err(err).Msg("youtube client")
		}
		trailers = yt
	} else {
		logger.Info().Msg("YOUTUBE_API_KEY not set; trailers disabled")
	}
	latest := yts.New(yts.WithCache(rc, cfg.Cache.LatestTTL))

	// Search sessions
	searchLog := logger.With().Str("component", "search").Logger()
	searches := search.NewManager(search.OMDbSource{Client: movies}, search.Options{
		CacheTTL: cfg.Search.CacheTTL,
		Debounce: cfg.Search.Debounce,
		PageSize: cfg.Search.PageSize,
		Logger:   &searchLog,
	}, cfg.Search.IdleTimeout)
	go searches.Run(ctx, time.Minute)

	// Jobs
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() { _ = asynqClient.Close() }()

	// OAuth
	var google *auth.Google
	if cfg.HasGoogle() {
		google = auth.NewGoogle(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.BaseURL+"/oauth/google/callback")
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics.Register(reg)

	s := routes.New(routes.ServerOptions{
		Sess:        sess,
		Log:         logger,
		Movies:      movies,
		Trailers:    trailers,
		Latest:      latest,
		Searches:    searches,
		Accounts:    auth.NewAccounts(queries),
		Contacts:    queries,
		Jobs:        asynqClient,
		Secret:      []byte(cfg.SessionSecret),
		BaseURL:     cfg.BaseURL,
		Google:      google,
		Gatherer:    reg,
		CORSOrigins: cfg.CORSOrigins,
		TrustProxy:  cfg.TrustProxy,
		RateLimit:   appmw.NewIPRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Msg("starting api")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("listen")
	}
	logger.Info().Msg("api stopped")
}

// openCache picks the upstream response cache. A redis backend that cannot be
// reached falls back to the file cache.
func openCache(ctx context.Context, cfg *config.Config, logger zerolog.Logger) cache.Cache {
	switch cfg.Cache.Backend {
	case "none":
		return nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		rc := cache.NewRedisCache(rdb, cfg.Cache.TrailerTTL)
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		err := rc.Ping(pingCtx)
		if err == nil {
			logger.Info().Str("addr", cfg.RedisAddr).Msg("using redis cache")
			return rc
		}
		logger.Warn().Err(err).Msg("redis cache unreachable; falling back to file cache")
	}
	fc, err := cache.NewFileCache(cfg.Cache.Dir)
	if err != nil {
		logger.Warn().Err(fmt.Errorf("file cache: %w", err)).Msg("upstream cache disabled")
		return nil
	}
	return fc
}
