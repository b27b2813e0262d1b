package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/desertthunder/jsi/internal/models"
	"github.com/desertthunder/jsi/internal/repositories"
	"github.com/desertthunder/jsi/internal/shared"
	"github.com/urfave/cli/v3"
)

type runView struct {
	ID               string                    `json:"id"`
	Sequence         int                       `json:"sequence"`
	Source           string                    `json:"source"`
	Format           string                    `json:"format"`
	Threshold        float64                   `json:"threshold"`
	AnyAlbum         bool                      `json:"any_album"`
	DryRun           bool                      `json:"dry_run"`
	Status           string                    `json:"status"`
	Error            string                    `json:"error,omitempty"`
	TracksTotal      int                       `json:"tracks_total"`
	TracksResolved   int                       `json:"tracks_resolved"`
	TracksUnresolved int                       `json:"tracks_unresolved"`
	CreatedAt        time.Time                 `json:"created_at"`
	FinishedAt       *time.Time                `json:"finished_at,omitempty"`
	Playlists        []models.PlaylistRecord   `json:"playlists,omitempty"`
	Unresolved       []models.UnresolvedRecord `json:"unresolved,omitempty"`
}

func newRunView(run *models.RunRecord) runView {
	return runView{
		ID:               run.ID(),
		Sequence:         run.Sequence(),
		Source:           run.Source(),
		Format:           run.Format(),
		Threshold:        run.Threshold(),
		AnyAlbum:         run.AnyAlbum(),
		DryRun:           run.DryRun(),
		Status:           string(run.Status()),
		Error:            run.ErrorMessage(),
		TracksTotal:      run.TracksTotal(),
		TracksResolved:   run.TracksResolved(),
		TracksUnresolved: run.TracksUnresolved(),
		CreatedAt:        run.CreatedAt(),
		FinishedAt:       run.FinishedAt(),
	}
}

// History lists recorded runs, or shows one run in detail with --run.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	cfg, err := r.resolveConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Database.Path == "" {
		return fmt.Errorf("%w: set database.path or --history to record runs", shared.ErrMissingConfig)
	}

	db, err := shared.OpenHistory(cfg.Database.Path, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repositories.NewHistoryRepository(db)
	if ref := cmd.String("run"); ref != "" {
		return r.showRun(repo, ref, cmd.Bool("json"))
	}

	criteria := map[string]any{"limit": int(cmd.Int("limit"))}
	if status := cmd.String("status"); status != "" {
		criteria["status"] = status
	}
	runs, err := repo.List(criteria)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		views := make([]runView, 0, len(runs))
		for _, run := range runs {
			views = append(views, newRunView(run))
		}
		return r.writeJSON(views, true)
	}

	if len(runs) == 0 {
		r.writePlain("No runs recorded in %s\n", cfg.Database.Path)
		return nil
	}

	r.writePlainHeader("Import History")
	for _, run := range runs {
		r.writePlain("#%-4d %s  %-9s %4d/%-4d %s\n",
			run.Sequence(),
			run.CreatedAt().Local().Format("2006-01-02 15:04"),
			statusLabel(run.Status()),
			run.TracksResolved(), run.TracksTotal(),
			run.Source())
	}
	return nil
}

func (r *Runner) showRun(repo *repositories.HistoryRepository, ref string, asJSON bool) error {
	var (
		run *models.RunRecord
		err error
	)
	if seq, convErr := strconv.Atoi(ref); convErr == nil {
		run, err = repo.GetBySequence(seq)
	} else {
		run, err = repo.Get(ref)
	}
	if err != nil {
		return err
	}

	view := newRunView(run)
	if view.Playlists, err = repo.Playlists(run.ID()); err != nil {
		return err
	}
	if view.Unresolved, err = repo.Unresolved(run.ID()); err != nil {
		return err
	}

	if asJSON {
		return r.writeJSON(view, true)
	}

	r.writePlainHeader(fmt.Sprintf("Run #%d", view.Sequence))
	r.writePlain("ID:        %s\n", view.ID)
	r.writePlain("Source:    %s (%s)\n", view.Source, view.Format)
	r.writePlain("Status:    %s\n", statusLabel(run.Status()))
	if view.Error != "" {
		r.writePlain("Error:     %s\n", palette.Err(view.Error))
	}
	r.writePlain("Threshold: %.0f, any album: %t, dry run: %t\n", view.Threshold, view.AnyAlbum, view.DryRun)
	r.writePlain("Tracks:    %d/%d resolved\n", view.TracksResolved, view.TracksTotal)

	if len(view.Playlists) > 0 {
		r.writePlainln("Playlists:")
		for _, pl := range view.Playlists {
			r.writePlain("  %s: %s (%d resolved, %d added, %d unresolved)\n",
				pl.Name, pl.Action, pl.Resolved, pl.Added, pl.Unresolved)
		}
	}
	if len(view.Unresolved) > 0 {
		r.writePlainln("Unresolved:")
		for _, rec := range view.Unresolved {
			r.writePlain("  - [%s] %s: %s\n", rec.Playlist, rec.Track.String(), rec.Reason)
		}
	}
	return nil
}

func statusLabel(status models.RunStatus) string {
	switch status {
	case models.RunStatusCompleted:
		return palette.OK(string(status))
	case models.RunStatusFailed:
		return palette.Err(string(status))
	default:
		return palette.Warn(string(status))
	}
}
