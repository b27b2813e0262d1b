package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/desertthunder/jsi/internal/formatter"
	"github.com/desertthunder/jsi/internal/importer"
	"github.com/desertthunder/jsi/internal/repositories"
	"github.com/desertthunder/jsi/internal/shared"
	"github.com/desertthunder/jsi/internal/tasks"
	"github.com/urfave/cli/v3"
)

// resolveConfig loads the config file (when present) and applies command line overrides.
//
// An explicitly passed --config that does not exist is an error; the default path is optional.
func (r *Runner) resolveConfig(cmd *cli.Command) (*shared.Config, error) {
	base := r.config
	if path := cmd.String("config"); path != "" {
		if _, err := os.Stat(path); err == nil {
			loaded, err := shared.LoadConfig(path)
			if err != nil {
				return nil, err
			}
			base = loaded
		} else if cmd.IsSet("config") {
			return nil, fmt.Errorf("%w: %s", shared.ErrMissingConfig, path)
		}
	}

	cfg := *base
	if cmd.IsSet("history") {
		cfg.Database.Path = cmd.String("history")
	}
	if cmd.Name != "import" {
		return &cfg, nil
	}

	for flag, dst := range map[string]*string{
		"url":   &cfg.Jellyfin.URL,
		"token": &cfg.Jellyfin.Token,
		"user":  &cfg.Jellyfin.User,
	} {
		if v := cmd.String(flag); v != "" {
			*dst = v
		}
	}
	for flag, dst := range map[string]*bool{
		"skip-tls":  &cfg.Jellyfin.SkipTLS,
		"any-album": &cfg.Matching.AnyAlbum,
		"private":   &cfg.Playlist.Private,
	} {
		if cmd.IsSet(flag) {
			*dst = cmd.Bool(flag)
		}
	}

	if cmd.IsSet("fuzz") {
		fuzz := int(cmd.Int("fuzz"))
		if fuzz < 0 || fuzz > 100 {
			return nil, fmt.Errorf("%w: --fuzz must be between 0 and 100, got %d", shared.ErrInvalidFlag, fuzz)
		}
		cfg.Matching.Threshold = fuzz
	}
	if cmd.IsSet("log-level") {
		if _, err := shared.ParseLogLevel(cmd.String("log-level")); err != nil {
			return nil, err
		}
		cfg.Log.Level = cmd.String("log-level")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func requireJellyfin(cfg *shared.Config) error {
	var missing []string
	if cfg.Jellyfin.URL == "" {
		missing = append(missing, "url")
	}
	if cfg.Jellyfin.Token == "" {
		missing = append(missing, "token")
	}
	if cfg.Jellyfin.User == "" {
		missing = append(missing, "user")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %v", shared.ErrMissingCredentials, missing)
	}
	return nil
}

// Import reconciles the playlists of an export file against Jellyfin.
//
// The file is parsed before any request is sent, so malformed input never reaches the server.
func (r *Runner) Import(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("%w: import file", shared.ErrMissingArgument)
	}

	cfg, err := r.resolveConfig(cmd)
	if err != nil {
		return err
	}
	level, _ := shared.ParseLogLevel(cfg.Log.Level)
	shared.SetLogLevel(r.logger, level)

	format, err := importer.ResolveFormat(path, cmd.Bool("spotify"), cmd.Bool("csv"))
	if err != nil {
		return err
	}
	playlists, err := importer.ParseFile(path, format)
	if err != nil {
		return err
	}

	tracks := 0
	for _, pl := range playlists {
		tracks += len(pl.Tracks)
	}
	r.logger.Info("parsed import file", "path", path, "format", format, "playlists", len(playlists), "tracks", tracks)

	if err := requireJellyfin(cfg); err != nil {
		return err
	}

	library, err := r.newLibrary(cfg, r.logger)
	if err != nil {
		return err
	}
	if err := library.Authenticate(ctx, map[string]string{"user": cfg.Jellyfin.User}); err != nil {
		return err
	}

	opts := tasks.Options{
		Threshold: float64(cfg.Matching.Threshold),
		AnyAlbum:  cfg.Matching.AnyAlbum,
		DryRun:    cmd.Bool("dry-run"),
		Private:   cfg.Playlist.Private,
	}
	reconciler := tasks.NewReconciler(library, opts, r.logger)

	if cfg.Database.Path != "" {
		db, err := shared.OpenHistory(cfg.Database.Path, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
		if err != nil {
			r.logger.Warn("history disabled", "path", cfg.Database.Path, "error", err)
		} else {
			defer db.Close()
			reconciler.WithRecorder(repositories.NewHistoryRepository(db))
		}
	}

	if opts.DryRun {
		r.writePlain("%s\n", palette.Warn("Dry run: no playlists will be created or changed"))
	}
	r.writePlain("Importing %d playlists from %s...\n\n", len(playlists), path)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.ResolveTracks:
				if update.Step == 0 {
					r.writePlain("🔍 %s\n", update.Message)
				} else {
					r.logger.Debug(update.Message)
				}
			case tasks.CreatePlaylist, tasks.UpdatePlaylist:
				r.writePlain("📝 %s\n", update.Message)
			case tasks.SkipPlaylist:
				r.writePlain("⏭  %s\n", update.Message)
			}
		}
	}()

	result, runErr := reconciler.Run(ctx, progressCh, path, string(format), playlists)
	close(progressCh)
	<-done

	if result != nil {
		r.printSummary(result, opts.DryRun)
		if report := cmd.String("report"); report != "" {
			written, err := formatter.WriteReport(report, result.UnresolvedRecords())
			if err != nil {
				return errors.Join(runErr, err)
			}
			r.writePlain("Unresolved tracks written to: %s\n", written)
		}
	}
	return runErr
}

func (r *Runner) printSummary(result *tasks.RunResult, dryRun bool) {
	title := "Import Complete!"
	if dryRun {
		title = "Dry Run Complete!"
	}

	counts := map[tasks.Action]int{}
	for _, pl := range result.Playlists {
		counts[pl.Action]++
	}

	r.writePlain("\n")
	r.writePlainHeader(title)
	r.writePlain("Playlists: %d (created %d, updated %d, unchanged %d, skipped %d)\n",
		len(result.Playlists),
		counts[tasks.ActionCreated], counts[tasks.ActionUpdated],
		counts[tasks.ActionUnchanged], counts[tasks.ActionSkipped])

	pct := 0.0
	if result.TotalTracks > 0 {
		pct = float64(result.ResolvedTracks) / float64(result.TotalTracks) * 100
	}
	r.writePlain("Tracks resolved: %d/%d (%.1f%%)\n", result.ResolvedTracks, result.TotalTracks, pct)
	if result.RunID != "" {
		r.writePlain("History run: %s\n", result.RunID)
	}

	r.writePlain("\n")
	for _, pl := range result.Playlists {
		switch pl.Action {
		case tasks.ActionCreated, tasks.ActionUpdated:
			r.writePlain("  %s %s: %s (+%d tracks)\n", palette.OK("✓"), pl.Playlist, pl.Action, len(pl.Added))
		case tasks.ActionUnchanged:
			r.writePlain("  %s %s: %s\n", palette.OK("="), pl.Playlist, pl.Action)
		case tasks.ActionFailed:
			r.writePlain("  %s %s: %s\n", palette.Err("✗"), pl.Playlist, pl.Action)
		default:
			r.writePlain("  %s %s: %s\n", palette.Warn("-"), pl.Playlist, pl.Action)
		}
	}

	if result.UnresolvedTracks > 0 {
		r.writePlainln("%s", palette.Err(fmt.Sprintf("Failed to match %d tracks:", result.UnresolvedTracks)))
		for _, rec := range result.UnresolvedRecords() {
			r.writePlain("  - [%s] %s\n", rec.Playlist, rec.Track.String())
		}
	}
	r.writePlain("\n")
}
