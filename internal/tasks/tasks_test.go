package tasks

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/desertthunder/jsi/internal/models"
	"github.com/desertthunder/jsi/internal/shared"
	tu "github.com/desertthunder/jsi/internal/testing"
)

func newLibrary() *tu.MockLibrary {
	lib := tu.NewMockLibrary()
	lib.AddAlbum("Fleetwood Mac", models.LibraryAlbum{ID: "fm", Name: "Fleetwood Mac", ProductionYear: 1975},
		"Monday Morning", "Rhiannon", "Landslide")
	lib.AddAlbum("Fleetwood Mac", models.LibraryAlbum{ID: "rumours", Name: "Rumours", ProductionYear: 1977},
		"Second Hand News", "Dreams", "Don't Stop", "Go Your Own Way")
	lib.AddAlbum("Fleetwood Mac", models.LibraryAlbum{ID: "deluxe", Name: "Rumours (Deluxe Edition)", ProductionYear: 2013},
		"Dreams (Demo)", "Songbird")
	lib.AddAlbum("AC/DC", models.LibraryAlbum{ID: "bib", Name: "Back in Black", ProductionYear: 1980},
		"Hells Bells", "Back in Black")
	return lib
}

func track(name, artist, album string) models.TrackDescriptor {
	return models.TrackDescriptor{TrackName: name, ArtistName: artist, AlbumName: album}
}

func TestReconciler_Resolve(t *testing.T) {
	tests := []struct {
		name    string
		track   models.TrackDescriptor
		opts    Options
		wantID  string
		wantErr error
	}{
		{
			name:   "exact match",
			track:  track("Dreams", "Fleetwood Mac", "Rumours"),
			opts:   Options{Threshold: 100},
			wantID: "rumours-2",
		},
		{
			name:   "punctuation and case differences",
			track:  track("Dont Stop", "Fleetwood Mac", "rumours"),
			opts:   Options{Threshold: 100},
			wantID: "rumours-3",
		},
		{
			name:    "unknown artist",
			track:   track("Anything", "Nobody", "Nothing"),
			opts:    Options{Threshold: 100},
			wantErr: shared.ErrArtistNotFound,
		},
		{
			name:    "album not in library",
			track:   track("Landslide", "Fleetwood Mac", "Greatest Hits"),
			opts:    Options{Threshold: 100},
			wantErr: shared.ErrTrackNotFound,
		},
		{
			name:   "any album fallback",
			track:  track("Landslide", "Fleetwood Mac", "Greatest Hits"),
			opts:   Options{Threshold: 100, AnyAlbum: true},
			wantID: "fm-3",
		},
		{
			name:    "track not on album",
			track:   track("Landslide", "Fleetwood Mac", "Rumours"),
			opts:    Options{Threshold: 100},
			wantErr: shared.ErrTrackNotFound,
		},
		{
			name:   "falls through to next candidate album",
			track:  track("Songbird", "Fleetwood Mac", "Rumours"),
			opts:   Options{Threshold: 45},
			wantID: "deluxe-2",
		},
		{
			name:   "best scoring album searched first",
			track:  track("Dreams", "Fleetwood Mac", "Rumours (Deluxe Edition)"),
			opts:   Options{Threshold: 45},
			wantID: "deluxe-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReconciler(newLibrary(), tt.opts, nil)

			got, err := r.Resolve(context.Background(), tt.track)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if tt.wantErr != nil {
				if got.Resolved() {
					t.Fatalf("expected unresolved, got %s", got.Matched.ID)
				}
				if !errors.Is(got.Error, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, got.Error)
				}
				return
			}

			if !got.Resolved() {
				t.Fatalf("expected match, got %v", got.Error)
			}
			if got.Matched.ID != tt.wantID {
				t.Errorf("expected %s, got %s", tt.wantID, got.Matched.ID)
			}
			if got.Original != tt.track {
				t.Errorf("expected original descriptor to be kept, got %+v", got.Original)
			}
		})
	}
}

func TestReconciler_Memoization(t *testing.T) {
	lib := newLibrary()
	r := NewReconciler(lib, Options{Threshold: 100}, nil)
	ctx := context.Background()

	for _, d := range []models.TrackDescriptor{
		track("Dreams", "Fleetwood Mac", "Rumours"),
		track("Don't Stop", "Fleetwood Mac", "Rumours"),
		track("Go Your Own Way", "Fleetwood Mac", "Rumours"),
		track("A", "Nobody", "B"),
		track("C", "Nobody", "D"),
	} {
		if _, err := r.Resolve(ctx, d); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := lib.Calls("Artist"); got != 2 {
		t.Errorf("expected 2 artist lookups, got %d", got)
	}
	if got := lib.Calls("ArtistAlbums"); got != 1 {
		t.Errorf("expected 1 album listing, got %d", got)
	}
	if got := lib.Calls("AlbumTracks"); got != 1 {
		t.Errorf("expected 1 track listing, got %d", got)
	}
}

func TestReconciler_Sync(t *testing.T) {
	ctx := context.Background()
	mix := models.PlaylistImport{
		Name: "Mix",
		Tracks: []models.TrackDescriptor{
			track("Dreams", "Fleetwood Mac", "Rumours"),
			track("Dreams", "Fleetwood Mac", "Rumours"),
			track("Hells Bells", "AC/DC", "Back in Black"),
			track("Unknown", "Nobody", "Nowhere"),
		},
	}

	t.Run("creates missing playlist with de-duplicated ids", func(t *testing.T) {
		lib := newLibrary()
		result, err := NewReconciler(lib, Options{Threshold: 100}, nil).Sync(ctx, nil, mix)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.Action != ActionCreated {
			t.Errorf("expected action created, got %s", result.Action)
		}
		if got := strings.Join(result.Resolved, ","); got != "rumours-2,bib-1" {
			t.Errorf("unexpected resolved ids %s", got)
		}
		if len(result.Matches) != 4 || len(result.Unresolved()) != 1 {
			t.Errorf("expected 4 matches with 1 unresolved, got %d/%d", len(result.Matches), len(result.Unresolved()))
		}
		if lib.Calls("CreatePlaylist") != 1 {
			t.Fatalf("expected 1 create call, got %d", lib.Calls("CreatePlaylist"))
		}
		if !lib.Created[0].Public {
			t.Error("expected playlist to be public by default")
		}
		if result.PlaylistID == "" {
			t.Error("expected playlist id to be set")
		}
	})

	t.Run("private playlists", func(t *testing.T) {
		lib := newLibrary()
		if _, err := NewReconciler(lib, Options{Threshold: 100, Private: true}, nil).Sync(ctx, nil, mix); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if lib.Created[0].Public {
			t.Error("expected playlist to be private")
		}
	})

	t.Run("second run is a no-op", func(t *testing.T) {
		lib := newLibrary()
		if _, err := NewReconciler(lib, Options{Threshold: 100}, nil).Sync(ctx, nil, mix); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		result, err := NewReconciler(lib, Options{Threshold: 100}, nil).Sync(ctx, nil, mix)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Action != ActionUnchanged {
			t.Errorf("expected action unchanged, got %s", result.Action)
		}
		if len(result.Added) != 0 {
			t.Errorf("expected empty update, got %v", result.Added)
		}
		if lib.Calls("CreatePlaylist") != 1 || lib.Calls("AddToPlaylist") != 0 {
			t.Errorf("expected a single write overall, got create=%d add=%d",
				lib.Calls("CreatePlaylist"), lib.Calls("AddToPlaylist"))
		}
	})

	t.Run("appends only missing ids", func(t *testing.T) {
		lib := newLibrary()
		lib.Playlists = []models.Playlist{{ID: "p-1", Name: "Mix"}}
		lib.Items["p-1"] = []string{"other", "rumours-2"}

		result, err := NewReconciler(lib, Options{Threshold: 100}, nil).Sync(ctx, nil, mix)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Action != ActionUpdated {
			t.Errorf("expected action updated, got %s", result.Action)
		}
		if got := strings.Join(result.Added, ","); got != "bib-1" {
			t.Errorf("expected only bib-1 to be added, got %s", got)
		}
		if got := strings.Join(lib.Items["p-1"], ","); got != "other,rumours-2,bib-1" {
			t.Errorf("expected existing items untouched, got %s", got)
		}
	})

	t.Run("nothing resolved skips creation", func(t *testing.T) {
		lib := newLibrary()
		empty := models.PlaylistImport{Name: "Ghosts", Tracks: []models.TrackDescriptor{
			track("Unknown", "Nobody", "Nowhere"),
			track("Landslide", "Fleetwood Mac", "Greatest Hits"),
		}}

		result, err := NewReconciler(lib, Options{Threshold: 100}, nil).Sync(ctx, nil, empty)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Action != ActionSkipped {
			t.Errorf("expected action skipped, got %s", result.Action)
		}
		if lib.Calls("FindPlaylist") != 0 || lib.Calls("CreatePlaylist") != 0 {
			t.Errorf("expected no playlist calls, got find=%d create=%d",
				lib.Calls("FindPlaylist"), lib.Calls("CreatePlaylist"))
		}
	})

	t.Run("dry run reads but never writes", func(t *testing.T) {
		lib := newLibrary()
		lib.Playlists = []models.Playlist{{ID: "p-1", Name: "Existing"}}
		r := NewReconciler(lib, Options{Threshold: 100, DryRun: true}, nil)

		created, err := r.Sync(ctx, nil, mix)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		existing := mix
		existing.Name = "Existing"
		updated, err := r.Sync(ctx, nil, existing)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if created.Action != ActionCreated || len(created.Added) != 2 || !created.DryRun {
			t.Errorf("unexpected dry run create result %+v", created)
		}
		if updated.Action != ActionUpdated || len(updated.Added) != 2 {
			t.Errorf("unexpected dry run update result %+v", updated)
		}
		if lib.Writes() != 0 {
			t.Errorf("expected no writes, got %d", lib.Writes())
		}
		if lib.Calls("FindPlaylist") != 2 || lib.Calls("PlaylistItems") != 1 {
			t.Errorf("expected reads to happen, got find=%d items=%d",
				lib.Calls("FindPlaylist"), lib.Calls("PlaylistItems"))
		}
	})

	t.Run("request failures abort", func(t *testing.T) {
		lib := newLibrary()
		lib.Errs["AlbumTracks"] = shared.ErrAPIRequest

		_, err := NewReconciler(lib, Options{Threshold: 100}, nil).Sync(ctx, nil, mix)
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
		if lib.Writes() != 0 {
			t.Errorf("expected no writes, got %d", lib.Writes())
		}
	})

	t.Run("progress never blocks", func(t *testing.T) {
		progress := make(chan ProgressUpdate)
		if _, err := NewReconciler(newLibrary(), Options{Threshold: 100}, nil).Sync(ctx, progress, mix); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("progress updates", func(t *testing.T) {
		progress := make(chan ProgressUpdate, 32)
		if _, err := NewReconciler(newLibrary(), Options{Threshold: 100}, nil).Sync(ctx, progress, mix); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		close(progress)

		var phases []Phase
		for u := range progress {
			phases = append(phases, u.Phase)
		}
		if len(phases) == 0 || phases[0] != ResolveTracks || phases[len(phases)-1] != CreatePlaylist {
			t.Errorf("unexpected phases %v", phases)
		}
	})
}

type mockRecorder struct {
	beginErr   error
	begun      bool
	playlists  []models.PlaylistRecord
	unresolved []models.UnresolvedRecord
	finished   *models.RunRecord
}

func (m *mockRecorder) Begin(run *models.RunRecord) error {
	if m.beginErr != nil {
		return m.beginErr
	}
	m.begun = true
	run.SetID("run-1")
	run.SetSequence(1)
	return nil
}

func (m *mockRecorder) RecordPlaylist(runID string, pl models.PlaylistRecord, unresolved []models.UnresolvedRecord) error {
	m.playlists = append(m.playlists, pl)
	m.unresolved = append(m.unresolved, unresolved...)
	return nil
}

func (m *mockRecorder) Finish(run *models.RunRecord) error {
	m.finished = run
	return nil
}

func TestReconciler_Run(t *testing.T) {
	ctx := context.Background()
	playlists := []models.PlaylistImport{
		{Name: "Rock", Tracks: []models.TrackDescriptor{
			track("Hells Bells", "AC/DC", "Back in Black"),
			track("Thunderstruck", "AC/DC", "The Razors Edge"),
		}},
		{Name: "Soft", Tracks: []models.TrackDescriptor{
			track("Dreams", "Fleetwood Mac", "Rumours"),
		}},
	}

	t.Run("records run", func(t *testing.T) {
		rec := &mockRecorder{}
		result, err := NewReconciler(newLibrary(), Options{Threshold: 100}, nil).
			WithRecorder(rec).
			Run(ctx, nil, "export.json", "spotify", playlists)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.RunID != "run-1" {
			t.Errorf("expected run id run-1, got %q", result.RunID)
		}
		if result.TotalTracks != 3 || result.ResolvedTracks != 2 || result.UnresolvedTracks != 1 {
			t.Errorf("unexpected counts %+v", result)
		}
		if len(rec.playlists) != 2 || rec.playlists[0].Action != string(ActionCreated) {
			t.Errorf("unexpected playlist records %+v", rec.playlists)
		}
		if len(rec.unresolved) != 1 || rec.unresolved[0].Track.TrackName != "Thunderstruck" {
			t.Errorf("unexpected unresolved records %+v", rec.unresolved)
		}
		if rec.finished == nil || rec.finished.Status() != models.RunStatusCompleted {
			t.Fatalf("expected completed run, got %+v", rec.finished)
		}
		if rec.finished.TracksResolved() != 2 {
			t.Errorf("expected 2 resolved tracks recorded, got %d", rec.finished.TracksResolved())
		}

		records := result.UnresolvedRecords()
		if len(records) != 1 || records[0].Playlist != "Rock" || records[0].Reason == "" {
			t.Errorf("unexpected unresolved records %+v", records)
		}
	})

	t.Run("marks failed run", func(t *testing.T) {
		lib := newLibrary()
		lib.Errs["CreatePlaylist"] = shared.ErrAPIRequest
		rec := &mockRecorder{}

		result, err := NewReconciler(lib, Options{Threshold: 100}, nil).
			WithRecorder(rec).
			Run(ctx, nil, "export.json", "spotify", playlists)
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrAPIRequest, got %v", err)
		}
		if len(result.Playlists) != 1 {
			t.Fatalf("expected partial result with 1 playlist, got %d", len(result.Playlists))
		}
		if result.Playlists[0].Action != ActionFailed {
			t.Errorf("expected failed action, got %q", result.Playlists[0].Action)
		}
		if len(rec.playlists) != 1 || rec.playlists[0].Action != string(ActionFailed) {
			t.Errorf("expected failed playlist record, got %+v", rec.playlists)
		}
		if rec.finished == nil || rec.finished.Status() != models.RunStatusFailed || rec.finished.ErrorMessage() == "" {
			t.Errorf("expected failed run with message, got %+v", rec.finished)
		}
	})

	t.Run("history failure does not abort", func(t *testing.T) {
		rec := &mockRecorder{beginErr: errors.New("disk full")}
		result, err := NewReconciler(newLibrary(), Options{Threshold: 100}, nil).
			WithRecorder(rec).
			Run(ctx, nil, "export.json", "spotify", playlists)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.RunID != "" || len(rec.playlists) != 0 || rec.finished != nil {
			t.Errorf("expected recording to be disabled, got %+v", rec)
		}
	})
}
