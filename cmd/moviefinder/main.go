package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/briangreenhill/moviefinder/cache"
	"github.com/briangreenhill/moviefinder/internal/config"
	"github.com/briangreenhill/moviefinder/internal/omdb"
	"github.com/briangreenhill/moviefinder/internal/search"
	"github.com/briangreenhill/moviefinder/internal/youtube"
	"github.com/briangreenhill/moviefinder/internal/yts"
)

const version = "0.1.0"

func main() {
	if err := runCLI(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: moviefinder <command> [args]")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  search <term> [page]   Search titles (an IMDb id like tt0372784 looks up one title)")
	fmt.Fprintln(w, "  show <imdb-id>         Show full details for a title")
	fmt.Fprintln(w, "  trailer <imdb-id>      Print a YouTube link for the title's trailer")
	fmt.Fprintln(w, "  latest [page]          List recently added movies")
	fmt.Fprintln(w, "  version                Print the version")
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  OMDB_API_KEY           OMDb API key (required)")
	fmt.Fprintln(w, "  YOUTUBE_API_KEY        YouTube Data API key (required for trailer)")
	fmt.Fprintln(w, "  CACHE_DIR              Response cache directory (default ~/.moviefinder_cache)")
}

type app struct {
	cfg   *config.Config
	cache cache.Cache
	omdb  *omdb.Client
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	var rc cache.Cache
	if cfg.Cache.Backend != "none" {
		fc, err := cache.NewFileCache(cfg.Cache.Dir)
		if err != nil {
			return nil, fmt.Errorf("file cache: %w", err)
		}
		rc = fc
	}
	c, err := omdb.New(cfg.OMDb.APIKey,
		omdb.WithBaseURL(cfg.OMDb.BaseURL),
		omdb.WithHTTPClient(&http.Client{Timeout: cfg.OMDb.Timeout}),
		omdb.WithCache(rc, cfg.Cache.DetailTTL),
	)
	if err != nil {
		return nil, errors.New("OMDB_API_KEY is not set")
	}
	return &app{cfg: cfg, cache: rc, omdb: c}, nil
}

func runCLI(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		usage(out)
		return nil
	}
	switch args[0] {
	case "help", "--help", "-h":
		usage(out)
		return nil
	case "version", "--version", "-v":
		fmt.Fprintf(out, "moviefinder v%s\n", version)
		return nil
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	switch args[0] {
	case "search", "-s":
		if len(args) < 2 {
			return errors.New("search needs a term")
		}
		page := 1
		if len(args) > 2 {
			if page, err = strconv.Atoi(args[2]); err != nil {
				return fmt.Errorf("bad page %q", args[2])
			}
		}
		return a.search(ctx, out, args[1], page)
	case "show":
		if len(args) < 2 {
			return errors.New("show needs an IMDb id")
		}
		return a.show(ctx, out, args[1])
	case "trailer":
		if len(args) < 2 {
			return errors.New("trailer needs an IMDb id")
		}
		return a.trailer(ctx, out, args[1])
	case "latest":
		page := 1
		if len(args) > 1 {
			if page, err = strconv.Atoi(args[1]); err != nil {
				return fmt.Errorf("bad page %q", args[1])
			}
		}
		return a.latest(ctx, out, page)
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func (a *app) search(ctx context.Context, out io.Writer, term string, page int) error {
	log := zerolog.Nop()
	sess := search.NewSession(search.OMDbSource{Client: a.omdb}, search.Options{
		CacheTTL: a.cfg.Search.CacheTTL,
		PageSize: a.cfg.Search.PageSize,
		Logger:   &log,
	})
	defer sess.Close()

	res := sess.Search(ctx, term, page)
	switch res.Outcome {
	case search.OutcomeSuccess:
	case search.OutcomeInvalid, search.OutcomeNotFound, search.OutcomeTransportFailure:
		return errors.New(res.Message)
	default:
		return fmt.Errorf("search %s", res.Outcome)
	}

	for _, m := range res.Movies {
		fmt.Fprintf(out, "%-10s  %-4s  %-7s  %s\n", m.ID, m.Year, m.MediaType, m.Title)
	}
	if res.TotalPages > 1 {
		fmt.Fprintf(out, "\npage %d of %d (%d results)\n", res.Page, res.TotalPages, res.TotalResults)
	}
	return nil
}

func (a *app) show(ctx context.Context, out io.Writer, id string) error {
	m, err := a.omdb.Lookup(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s (%s)\n", m.Title, m.Year)
	for _, row := range [][2]string{
		{"Rated", m.Rated},
		{"Runtime", m.Runtime},
		{"Genre", m.Genre},
		{"Director", m.Director},
		{"Actors", m.Actors},
		{"IMDb", m.IMDbRating},
	} {
		if row[1] != "" && row[1] != "N/A" {
			fmt.Fprintf(out, "%-9s %s\n", row[0]+":", row[1])
		}
	}
	if m.Plot != "" && m.Plot != "N/A" {
		fmt.Fprintf(out, "\n%s\n", m.Plot)
	}
	return nil
}

func (a *app) trailer(ctx context.Context, out io.Writer, id string) error {
	if !a.cfg.HasYouTube() {
		return errors.New("YOUTUBE_API_KEY is not set")
	}
	yt, err := youtube.New(a.cfg.YouTube.APIKey, youtube.WithCache(a.cache, a.cfg.Cache.TrailerTTL))
	if err != nil {
		return err
	}
	m, err := a.omdb.Lookup(ctx, id)
	if err != nil {
		return err
	}
	videoID, err := yt.FindTrailer(ctx, m.Title, m.Year)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "https://www.youtube.com/watch?v=%s\n", videoID)
	return nil
}

func (a *app) latest(ctx context.Context, out io.Writer, page int) error {
	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	p, err := yts.New(yts.WithCache(a.cache, a.cfg.Cache.LatestTTL)).ListMovies(ctx, page, 20)
	if err != nil {
		return err
	}
	for _, m := range p.Movies {
		fmt.Fprintf(out, "%d  %-4.1f  %s\n", m.Year, m.Rating, strings.TrimSpace(m.Title))
	}
	return nil
}
