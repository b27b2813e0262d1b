package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/jsi/internal/models"
	"github.com/desertthunder/jsi/internal/shared"
)

const runColumns = `id, sequence, source, format, threshold, any_album, dry_run, status, error_message,
	tracks_total, tracks_resolved, tracks_unresolved, created_at, updated_at, finished_at, deleted_at`

// HistoryRepository implements models.Repository[*models.RunRecord] for import runs.
//
// It also records the playlists and unresolved tracks belonging to a run.
type HistoryRepository struct {
	db *sql.DB
}

// NewHistoryRepository creates a new HistoryRepository with the given database connection
func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Create inserts a new run into the database with generated ID and sequence
func (r *HistoryRepository) Create(run *models.RunRecord) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()

	query := `INSERT INTO runs (` + runColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.Exec(query,
		id,
		sequence,
		run.Source(),
		run.Format(),
		run.Threshold(),
		run.AnyAlbum(),
		run.DryRun(),
		string(run.Status()),
		run.ErrorMessage(),
		run.TracksTotal(),
		run.TracksResolved(),
		run.TracksUnresolved(),
		run.CreatedAt(),
		run.UpdatedAt(),
		run.FinishedAt(),
		run.DeletedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	run.SetID(id)
	run.SetSequence(sequence)
	return nil
}

// Get retrieves a run by ID, excluding soft-deleted runs
func (r *HistoryRepository) Get(id string) (*models.RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, id))
}

// GetBySequence retrieves a run by its sequence number
func (r *HistoryRepository) GetBySequence(sequence int) (*models.RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE sequence = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, sequence))
}

// Update persists the status, counts and timestamps of an existing run
func (r *HistoryRepository) Update(run *models.RunRecord) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	run.SetUpdatedAt(now)

	query := `
		UPDATE runs
		SET status = ?, error_message = ?, tracks_total = ?, tracks_resolved = ?, tracks_unresolved = ?,
			updated_at = ?, finished_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		string(run.Status()),
		run.ErrorMessage(),
		run.TracksTotal(),
		run.TracksResolved(),
		run.TracksUnresolved(),
		now,
		run.FinishedAt(),
		run.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	return expectRow(result, run.ID())
}

// Delete soft-deletes a run by ID
func (r *HistoryRepository) Delete(id string) error {
	query := `UPDATE runs SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	return expectRow(result, id)
}

func expectRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: run %s not found or already deleted", shared.ErrNotFound, id)
	}
	return nil
}

// List retrieves runs matching the given criteria, most recent first, excluding soft-deleted runs.
//
// Supported criteria: "status" (string) and "limit" (int).
func (r *HistoryRepository) List(criteria map[string]any) ([]*models.RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE deleted_at IS NULL`
	args := []any{}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.RunRecord
	for rows.Next() {
		run, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scan reads a single runs row from either [sql.Row] or [sql.Rows]
func (r *HistoryRepository) scan(row scanner) (*models.RunRecord, error) {
	var (
		id               string
		sequence         int
		source           string
		format           string
		threshold        float64
		anyAlbum         bool
		dryRun           bool
		status           string
		errorMessage     sql.NullString
		tracksTotal      int
		tracksResolved   int
		tracksUnresolved int
		createdAt        time.Time
		updatedAt        time.Time
		finishedAt       sql.NullTime
		deletedAt        sql.NullTime
	)

	err := row.Scan(&id, &sequence, &source, &format, &threshold, &anyAlbum, &dryRun, &status, &errorMessage,
		&tracksTotal, &tracksResolved, &tracksUnresolved, &createdAt, &updatedAt, &finishedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: run", shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run := models.NewRunRecord(sequence, source, format, threshold, anyAlbum, dryRun)
	run.SetID(id)
	run.SetStatus(models.RunStatus(status))
	run.SetErrorMessage(errorMessage.String)
	run.SetCounts(tracksTotal, tracksResolved, tracksUnresolved)
	run.SetCreatedAt(createdAt)
	run.SetUpdatedAt(updatedAt)
	if finishedAt.Valid {
		run.SetFinishedAt(&finishedAt.Time)
	}
	if deletedAt.Valid {
		run.SetDeletedAt(&deletedAt.Time)
	}

	return run, nil
}

// AddPlaylist records the outcome of one playlist of a run
func (r *HistoryRepository) AddPlaylist(runID string, pl models.PlaylistRecord) error {
	return r.addPlaylist(r.db, runID, pl)
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func (r *HistoryRepository) addPlaylist(db execer, runID string, pl models.PlaylistRecord) error {
	if pl.CreatedAt.IsZero() {
		pl.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO run_playlists (run_id, name, playlist_id, action, resolved, added, unresolved, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := db.Exec(query, runID, pl.Name, pl.PlaylistID, pl.Action, pl.Resolved, pl.Added, pl.Unresolved, pl.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert run playlist: %w", err)
	}
	return nil
}

// AddUnresolved records tracks of a run that could not be matched
func (r *HistoryRepository) AddUnresolved(runID string, records []models.UnresolvedRecord) error {
	return r.addUnresolved(r.db, runID, records)
}

func (r *HistoryRepository) addUnresolved(db execer, runID string, records []models.UnresolvedRecord) error {
	now := time.Now()
	query := `
		INSERT INTO unresolved_tracks (run_id, playlist, track_name, artist_name, album_name, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	for _, rec := range records {
		if _, err := db.Exec(query, runID, rec.Playlist, rec.Track.TrackName, rec.Track.ArtistName, rec.Track.AlbumName, rec.Reason, now); err != nil {
			return fmt.Errorf("failed to insert unresolved track: %w", err)
		}
	}
	return nil
}

// Playlists lists the playlist outcomes of a run in insertion order
func (r *HistoryRepository) Playlists(runID string) ([]models.PlaylistRecord, error) {
	query := `
		SELECT name, playlist_id, action, resolved, added, unresolved, created_at
		FROM run_playlists
		WHERE run_id = ?
		ORDER BY id ASC
	`

	rows, err := r.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run playlists: %w", err)
	}
	defer rows.Close()

	var out []models.PlaylistRecord
	for rows.Next() {
		var (
			pl         models.PlaylistRecord
			playlistID sql.NullString
		)
		if err := rows.Scan(&pl.Name, &playlistID, &pl.Action, &pl.Resolved, &pl.Added, &pl.Unresolved, &pl.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run playlist: %w", err)
		}
		pl.PlaylistID = playlistID.String
		out = append(out, pl)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

// Unresolved lists the unresolved tracks of a run in insertion order
func (r *HistoryRepository) Unresolved(runID string) ([]models.UnresolvedRecord, error) {
	query := `
		SELECT playlist, track_name, artist_name, album_name, reason
		FROM unresolved_tracks
		WHERE run_id = ?
		ORDER BY id ASC
	`

	rows, err := r.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query unresolved tracks: %w", err)
	}
	defer rows.Close()

	var out []models.UnresolvedRecord
	for rows.Next() {
		var rec models.UnresolvedRecord
		if err := rows.Scan(&rec.Playlist, &rec.Track.TrackName, &rec.Track.ArtistName, &rec.Track.AlbumName, &rec.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan unresolved track: %w", err)
		}
		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

// Begin starts recording a run. Part of tasks.Recorder.
func (r *HistoryRepository) Begin(run *models.RunRecord) error {
	return r.Create(run)
}

// RecordPlaylist stores a playlist outcome and its unresolved tracks atomically. Part of tasks.Recorder.
func (r *HistoryRepository) RecordPlaylist(runID string, pl models.PlaylistRecord, unresolved []models.UnresolvedRecord) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := r.addPlaylist(tx, runID, pl); err != nil {
		return err
	}
	if err := r.addUnresolved(tx, runID, unresolved); err != nil {
		return err
	}
	return tx.Commit()
}

// Finish persists the final state of a run. Part of tasks.Recorder.
func (r *HistoryRepository) Finish(run *models.RunRecord) error {
	return r.Update(run)
}

var _ models.Repository[*models.RunRecord] = (*HistoryRepository)(nil)
