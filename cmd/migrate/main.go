// cmd/migrate/main.go
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/briangreenhill/moviefinder/internal/config"
	"github.com/briangreenhill/moviefinder/internal/db"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("cmd", "migrate").Logger()

	flag.Usage = func() {
		_, _ = os.Stderr.WriteString("usage: migrate [up|down|status|redo|version|reset] [args]\n")
	}
	flag.Parse()
	command := "up"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	if cfg.DatabaseURL == "" {
		logger.Fatal().Msg("DATABASE_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("db connect")
	}
	defer pool.Close()

	var args []string
	if flag.NArg() > 1 {
		args = flag.Args()[1:]
	}
	if err := db.Migrate(ctx, pool, command, args...); err != nil {
		logger.Fatal().Err(err).Str("command", command).Msg("migration failed")
	}
	logger.Info().Str("command", command).Msg("migrations done")
}
