// package tasks implements playlist reconciliation against a media library.
//
// The core type is Reconciler, which resolves imported tracks, diffs them against existing playlists and issues
// the minimal create/append calls. Operations emit progress updates via channels for non-blocking status reporting.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jsi/internal/matcher"
	"github.com/desertthunder/jsi/internal/models"
	"github.com/desertthunder/jsi/internal/services"
	"github.com/desertthunder/jsi/internal/shared"
)

// Action is what happened to a playlist during a sync.
type Action string

const (
	ActionCreated   Action = "created"   // playlist did not exist and was created
	ActionUpdated   Action = "updated"   // new tracks were appended
	ActionUnchanged Action = "unchanged" // playlist already held every resolved track
	ActionSkipped   Action = "skipped"   // nothing resolved, no playlist touched
	ActionFailed    Action = "failed"    // a request failed before the playlist was synced
)

// Options configure a [Reconciler].
type Options struct {
	Threshold float64 // minimum similarity (0-100) for albums and tracks
	AnyAlbum  bool    // search every album of the artist when the named album yields nothing
	DryRun    bool    // perform reads only
	Private   bool    // create playlists as private
}

// TrackMatchResult represents the result of attempting to match a single track.
type TrackMatchResult struct {
	Original models.TrackDescriptor // Descriptor from the import file
	Matched  *models.LibraryTrack   // Matched library track (nil if not found)
	Album    *models.LibraryAlbum   // Album the match was found in
	Score    float64                // Track name similarity of the match
	Error    error                  // Reason the track is unresolved
}

// Resolved reports whether a library track was found.
func (m TrackMatchResult) Resolved() bool {
	return m.Matched != nil
}

// SyncResult contains the outcome of reconciling one playlist.
type SyncResult struct {
	Playlist   string             // Playlist name
	PlaylistID string             // Remote id (empty when skipped, or created during a dry run)
	Action     Action             // What was done
	Matches    []TrackMatchResult // One entry per imported descriptor
	Resolved   []string           // De-duplicated resolved ids in first-seen order
	Added      []string           // Ids sent to the server (or that would be, in a dry run)
	DryRun     bool
}

// Unresolved returns the matches that did not resolve to a library track.
func (r *SyncResult) Unresolved() []TrackMatchResult {
	var out []TrackMatchResult
	for _, m := range r.Matches {
		if !m.Resolved() {
			out = append(out, m)
		}
	}
	return out
}

// Record converts the result to its persisted form.
func (r *SyncResult) Record() models.PlaylistRecord {
	return models.PlaylistRecord{
		Name:       r.Playlist,
		PlaylistID: r.PlaylistID,
		Action:     string(r.Action),
		Resolved:   len(r.Resolved),
		Added:      len(r.Added),
		Unresolved: len(r.Unresolved()),
	}
}

// UnresolvedRecords lists the unresolved tracks of this playlist.
func (r *SyncResult) UnresolvedRecords() []models.UnresolvedRecord {
	var out []models.UnresolvedRecord
	for _, m := range r.Unresolved() {
		reason := ""
		if m.Error != nil {
			reason = m.Error.Error()
		}
		out = append(out, models.UnresolvedRecord{Playlist: r.Playlist, Track: m.Original, Reason: reason})
	}
	return out
}

// RunResult contains all data from a full import.
type RunResult struct {
	RunID            string       // History id, empty without a [Recorder]
	Playlists        []SyncResult // Per-playlist outcomes in import order
	TotalTracks      int
	ResolvedTracks   int
	UnresolvedTracks int
}

// UnresolvedRecords lists every unresolved track of the run in import order.
func (r *RunResult) UnresolvedRecords() []models.UnresolvedRecord {
	var out []models.UnresolvedRecord
	for i := range r.Playlists {
		out = append(out, r.Playlists[i].UnresolvedRecords()...)
	}
	return out
}

// Recorder persists runs. Implemented by repositories.HistoryRepository.
type Recorder interface {
	Begin(run *models.RunRecord) error
	RecordPlaylist(runID string, playlist models.PlaylistRecord, unresolved []models.UnresolvedRecord) error
	Finish(run *models.RunRecord) error
}

type artistLookup struct {
	artist *models.LibraryArtist
	err    error
}

// Reconciler resolves imported playlists against a [services.Library].
//
// Lookups are memoized per instance; create one Reconciler per run.
type Reconciler struct {
	library  services.Library
	opts     Options
	logger   *log.Logger
	recorder Recorder

	artists map[string]artistLookup
	albums  map[string][]models.LibraryAlbum
	tracks  map[string][]models.LibraryTrack
}

// NewReconciler creates a Reconciler for library. A nil logger discards output.
func NewReconciler(library services.Library, opts Options, logger *log.Logger) *Reconciler {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &Reconciler{
		library: library,
		opts:    opts,
		logger:  logger,
		artists: make(map[string]artistLookup),
		albums:  make(map[string][]models.LibraryAlbum),
		tracks:  make(map[string][]models.LibraryTrack),
	}
}

// WithRecorder enables run history.
func (r *Reconciler) WithRecorder(rec Recorder) *Reconciler {
	r.recorder = rec
	return r
}

// sendProgress sends a progress update through the channel without blocking.
func (r *Reconciler) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func (r *Reconciler) artist(ctx context.Context, name string) (*models.LibraryArtist, error) {
	if cached, ok := r.artists[name]; ok {
		return cached.artist, cached.err
	}

	artist, err := r.library.Artist(ctx, name)
	if err != nil && !errors.Is(err, shared.ErrArtistNotFound) {
		return nil, err
	}
	r.artists[name] = artistLookup{artist: artist, err: err}
	return artist, err
}

func (r *Reconciler) artistAlbums(ctx context.Context, artistID string) ([]models.LibraryAlbum, error) {
	if albums, ok := r.albums[artistID]; ok {
		return albums, nil
	}

	albums, err := r.library.ArtistAlbums(ctx, artistID)
	if err != nil {
		return nil, err
	}
	r.albums[artistID] = albums
	return albums, nil
}

func (r *Reconciler) albumTracks(ctx context.Context, albumID string) ([]models.LibraryTrack, error) {
	if tracks, ok := r.tracks[albumID]; ok {
		return tracks, nil
	}

	tracks, err := r.library.AlbumTracks(ctx, albumID)
	if err != nil {
		return nil, err
	}
	r.tracks[albumID] = tracks
	return tracks, nil
}

func albumName(a models.LibraryAlbum) string { return a.Name }
func trackName(t models.LibraryTrack) string { return t.Name }

// bestTrack searches albums in order and returns the first album holding a track above the threshold.
func (r *Reconciler) bestTrack(ctx context.Context, albums []models.LibraryAlbum, name string, skip map[string]bool) (*TrackMatchResult, error) {
	for _, album := range albums {
		if skip[album.ID] {
			continue
		}

		tracks, err := r.albumTracks(ctx, album.ID)
		if err != nil {
			return nil, err
		}
		if best, ok := matcher.Best(tracks, trackName, name, r.opts.Threshold); ok {
			return &TrackMatchResult{Matched: &best.Item, Album: &album, Score: best.Score}, nil
		}
	}
	return nil, nil
}

// Resolve finds the library track for a single descriptor.
//
// A descriptor that cannot be matched is not an error: the returned result carries the reason.
// Errors are reserved for failed requests.
func (r *Reconciler) Resolve(ctx context.Context, d models.TrackDescriptor) (TrackMatchResult, error) {
	result := TrackMatchResult{Original: d}

	artist, err := r.artist(ctx, d.ArtistName)
	if errors.Is(err, shared.ErrArtistNotFound) {
		result.Error = err
		return result, nil
	} else if err != nil {
		return result, err
	}

	albums, err := r.artistAlbums(ctx, artist.ID)
	if err != nil {
		return result, err
	}

	candidates := matcher.Rank(albums, albumName, d.AlbumName, r.opts.Threshold)
	ranked := make([]models.LibraryAlbum, len(candidates))
	searched := make(map[string]bool, len(candidates))
	for i, c := range candidates {
		ranked[i] = c.Item
		searched[c.Item.ID] = true
	}

	match, err := r.bestTrack(ctx, ranked, d.TrackName, nil)
	if err != nil {
		return result, err
	}
	if match == nil && r.opts.AnyAlbum {
		if match, err = r.bestTrack(ctx, albums, d.TrackName, searched); err != nil {
			return result, err
		}
	}

	if match != nil {
		match.Original = d
		return *match, nil
	}

	switch {
	case len(candidates) == 0 && !r.opts.AnyAlbum:
		result.Error = fmt.Errorf("%w: no album matching %q for %s", shared.ErrTrackNotFound, d.AlbumName, d.ArtistName)
	default:
		result.Error = fmt.Errorf("%w: %q by %s", shared.ErrTrackNotFound, d.TrackName, d.ArtistName)
	}
	return result, nil
}

// Sync resolves one playlist and creates or appends to its remote counterpart.
func (r *Reconciler) Sync(ctx context.Context, progress chan<- ProgressUpdate, pl models.PlaylistImport) (*SyncResult, error) {
	logger := shared.WithLogger(r.logger, "playlist", pl.Name)
	result := &SyncResult{Playlist: pl.Name, DryRun: r.opts.DryRun}

	total := len(pl.Tracks)
	r.sendProgress(progress, resolveTracksUpdate(0, total, pl.Name, nil))

	seen := make(map[string]bool, total)
	for i, d := range pl.Tracks {
		r.sendProgress(progress, resolveTracksUpdate(i+1, total, pl.Name, &d))

		match, err := r.Resolve(ctx, d)
		if err != nil {
			return result, err
		}
		result.Matches = append(result.Matches, match)

		if !match.Resolved() {
			logger.Warn("unresolved track", "track", d.String(), "reason", match.Error)
			continue
		}
		logger.Debug("resolved track", "track", d.String(), "id", match.Matched.ID, "album", match.Album.Name, "score", match.Score)
		if !seen[match.Matched.ID] {
			seen[match.Matched.ID] = true
			result.Resolved = append(result.Resolved, match.Matched.ID)
		}
	}

	if len(result.Resolved) == 0 {
		result.Action = ActionSkipped
		logger.Info("playlist skip creation: no tracks found in library")
		r.sendProgress(progress, skipPlaylistUpdate(result))
		return result, nil
	}

	r.sendProgress(progress, fetchPlaylistUpdate(pl.Name))
	existing, err := r.library.FindPlaylist(ctx, pl.Name)
	switch {
	case errors.Is(err, shared.ErrPlaylistNotFound):
		return result, r.create(ctx, progress, logger, result)
	case err != nil:
		return result, err
	}

	result.PlaylistID = existing.ID
	current, err := r.library.PlaylistItems(ctx, existing.ID)
	if err != nil {
		return result, err
	}

	result.Added = difference(result.Resolved, current)
	if len(result.Added) == 0 {
		result.Action = ActionUnchanged
		logger.Info("playlist skip update: no new tracks")
		r.sendProgress(progress, skipPlaylistUpdate(result))
		return result, nil
	}

	result.Action = ActionUpdated
	if r.opts.DryRun {
		logger.Info("dry run: append", "id", existing.ID, "ids", len(result.Added))
	} else {
		if err := r.library.AddToPlaylist(ctx, existing.ID, result.Added); err != nil {
			return result, err
		}
		logger.Info("playlist updated", "id", existing.ID, "added", len(result.Added))
	}
	r.sendProgress(progress, updatePlaylistUpdate(result))
	return result, nil
}

func (r *Reconciler) create(ctx context.Context, progress chan<- ProgressUpdate, logger *log.Logger, result *SyncResult) error {
	result.Action = ActionCreated
	result.Added = result.Resolved

	target := models.PlaylistTarget{Name: result.Playlist, TrackIDs: result.Resolved, Public: !r.opts.Private}
	if r.opts.DryRun {
		logger.Info("dry run: create", "ids", len(target.TrackIDs), "public", target.Public)
		r.sendProgress(progress, createPlaylistUpdate(result))
		return nil
	}

	created, err := r.library.CreatePlaylist(ctx, target)
	if err != nil {
		return err
	}
	result.PlaylistID = created.ID
	logger.Info("playlist created", "id", created.ID, "tracks", len(target.TrackIDs))
	r.sendProgress(progress, createPlaylistUpdate(result))
	return nil
}

// difference returns the ids of want missing from have, preserving want's order.
func difference(want, have []string) []string {
	present := make(map[string]bool, len(have))
	for _, id := range have {
		present[id] = true
	}

	var out []string
	for _, id := range want {
		if !present[id] {
			out = append(out, id)
		}
	}
	return out
}

// Run reconciles every playlist of an import and records the run when a [Recorder] is set.
//
// source and format describe the import file for history. A failed request aborts the run;
// the partial result is returned with the error.
func (r *Reconciler) Run(ctx context.Context, progress chan<- ProgressUpdate, source, format string, playlists []models.PlaylistImport) (*RunResult, error) {
	result := &RunResult{}
	run := models.NewRunRecord(0, source, format, r.opts.Threshold, r.opts.AnyAlbum, r.opts.DryRun)

	recorder := r.recorder
	if recorder != nil {
		if err := recorder.Begin(run); err != nil {
			r.logger.Warn("history disabled for this run", "err", err)
			recorder = nil
		} else {
			result.RunID = run.ID()
		}
	}

	var runErr error
	for _, pl := range playlists {
		synced, err := r.Sync(ctx, progress, pl)
		if synced != nil && err != nil {
			synced.Action = ActionFailed
		}
		if synced != nil {
			result.Playlists = append(result.Playlists, *synced)
			for _, m := range synced.Matches {
				if m.Resolved() {
					result.ResolvedTracks++
				} else {
					result.UnresolvedTracks++
				}
			}
			result.TotalTracks += len(synced.Matches)

			if recorder != nil {
				if err := recorder.RecordPlaylist(run.ID(), synced.Record(), synced.UnresolvedRecords()); err != nil {
					r.logger.Warn("failed to record playlist", "playlist", pl.Name, "err", err)
				}
			}
		}
		if err != nil {
			runErr = fmt.Errorf("playlist %s: %w", pl.Name, err)
			break
		}
	}

	if recorder != nil {
		run.SetCounts(result.TotalTracks, result.ResolvedTracks, result.UnresolvedTracks)
		run.Finish(runErr)
		if err := recorder.Finish(run); err != nil {
			r.logger.Warn("failed to record run", "err", err)
		}
	}
	return result, runErr
}
