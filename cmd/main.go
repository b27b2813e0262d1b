package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"

	"github.com/desertthunder/jsi/internal/shared"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("failed to load .env file", "error", err)
	}

	runner := NewRunner(RunnerOpts{Logger: logger})

	app := &cli.Command{
		Name:     "jsi",
		Usage:    "Import Spotify and CSV playlists into Jellyfin",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		switch {
		case errors.Is(err, shared.ErrMissingColumns), errors.Is(err, shared.ErrInvalidInput):
			logger.Fatal("invalid import file", "error", err)
		case errors.Is(err, shared.ErrMissingCredentials), errors.Is(err, shared.ErrMissingConfig):
			logger.Fatal("missing jellyfin settings, pass --url, --token and --user or run 'jsi setup'", "error", err)
		case errors.Is(err, shared.ErrAuthFailed):
			logger.Fatal("jellyfin rejected the API token", "error", err)
		case errors.Is(err, shared.ErrUserNotFound):
			logger.Fatal("jellyfin user does not exist", "error", err)
		default:
			logger.Fatalf("application error: %v", err)
		}
	}
}
