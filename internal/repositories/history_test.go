package repositories

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/desertthunder/jsi/internal/models"
	"github.com/desertthunder/jsi/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func newRun() *models.RunRecord {
	return models.NewRunRecord(0, "Playlist1.json", "spotify", 90, false, false)
}

func TestHistoryRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		repo := NewHistoryRepository(setupTestDB(t))

		first, second := newRun(), newRun()
		if err := repo.Create(first); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}
		if err := repo.Create(second); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		if first.ID() == "" {
			t.Error("run ID should be set after creation")
		}
		if first.Sequence() != 1 || second.Sequence() != 2 {
			t.Errorf("expected sequences 1 and 2, got %d and %d", first.Sequence(), second.Sequence())
		}
	})

	t.Run("Create validates", func(t *testing.T) {
		repo := NewHistoryRepository(setupTestDB(t))
		run := models.NewRunRecord(0, "", "csv", 100, false, false)

		if err := repo.Create(run); err == nil {
			t.Fatal("expected validation error for empty source")
		}
	})

	t.Run("Get", func(t *testing.T) {
		repo := NewHistoryRepository(setupTestDB(t))
		run := newRun()
		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		got, err := repo.Get(run.ID())
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if got.Source() != "Playlist1.json" || got.Format() != "spotify" || got.Threshold() != 90 {
			t.Errorf("unexpected run %+v", got)
		}
		if got.Status() != models.RunStatusRunning {
			t.Errorf("expected running status, got %s", got.Status())
		}
		if got.FinishedAt() != nil {
			t.Error("expected no finish time")
		}

		bySeq, err := repo.GetBySequence(run.Sequence())
		if err != nil {
			t.Fatalf("failed to get run by sequence: %v", err)
		}
		if bySeq.ID() != run.ID() {
			t.Errorf("expected %s, got %s", run.ID(), bySeq.ID())
		}

		if _, err := repo.Get("nonexistent-id"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Update", func(t *testing.T) {
		repo := NewHistoryRepository(setupTestDB(t))
		run := newRun()
		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		run.SetCounts(10, 7, 3)
		run.Finish(errors.New("connection refused"))
		if err := repo.Update(run); err != nil {
			t.Fatalf("failed to update run: %v", err)
		}

		got, err := repo.Get(run.ID())
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if got.Status() != models.RunStatusFailed || got.ErrorMessage() != "connection refused" {
			t.Errorf("unexpected status %s (%s)", got.Status(), got.ErrorMessage())
		}
		if got.TracksTotal() != 10 || got.TracksResolved() != 7 || got.TracksUnresolved() != 3 {
			t.Errorf("unexpected counts %d/%d/%d", got.TracksTotal(), got.TracksResolved(), got.TracksUnresolved())
		}
		if got.FinishedAt() == nil {
			t.Error("expected finish time to be stored")
		}

		missing := newRun()
		missing.SetID("nonexistent-id")
		if err := repo.Update(missing); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewHistoryRepository(setupTestDB(t))
		run := newRun()
		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		if err := repo.Delete(run.ID()); err != nil {
			t.Fatalf("failed to delete run: %v", err)
		}
		if _, err := repo.Get(run.ID()); err == nil {
			t.Error("expected deleted run to be hidden")
		}
		if err := repo.Delete(run.ID()); err == nil {
			t.Error("expected error deleting twice")
		}
	})

	t.Run("List", func(t *testing.T) {
		repo := NewHistoryRepository(setupTestDB(t))
		for i := 0; i < 3; i++ {
			run := newRun()
			if err := repo.Create(run); err != nil {
				t.Fatalf("failed to create run: %v", err)
			}
			if i == 0 {
				run.Finish(nil)
				if err := repo.Update(run); err != nil {
					t.Fatalf("failed to update run: %v", err)
				}
			}
		}

		all, err := repo.List(nil)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(all) != 3 || all[0].Sequence() != 3 {
			t.Errorf("expected 3 runs, most recent first, got %d", len(all))
		}

		completed, err := repo.List(map[string]any{"status": string(models.RunStatusCompleted)})
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(completed) != 1 || completed[0].Sequence() != 1 {
			t.Errorf("expected run #1 only, got %d runs", len(completed))
		}

		limited, err := repo.List(map[string]any{"limit": 2})
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(limited) != 2 {
			t.Errorf("expected 2 runs, got %d", len(limited))
		}
	})

	t.Run("RecordPlaylist", func(t *testing.T) {
		repo := NewHistoryRepository(setupTestDB(t))
		run := newRun()
		if err := repo.Begin(run); err != nil {
			t.Fatalf("failed to begin run: %v", err)
		}

		unresolved := []models.UnresolvedRecord{
			{Playlist: "Mix", Track: models.TrackDescriptor{TrackName: "A", ArtistName: "B", AlbumName: "C"}, Reason: "artist not found"},
			{Playlist: "Mix", Track: models.TrackDescriptor{TrackName: "D", ArtistName: "E", AlbumName: "F"}, Reason: "track not found"},
		}
		pl := models.PlaylistRecord{Name: "Mix", PlaylistID: "p-1", Action: "created", Resolved: 5, Added: 5, Unresolved: 2}
		if err := repo.RecordPlaylist(run.ID(), pl, unresolved); err != nil {
			t.Fatalf("failed to record playlist: %v", err)
		}

		playlists, err := repo.Playlists(run.ID())
		if err != nil {
			t.Fatalf("failed to list playlists: %v", err)
		}
		if len(playlists) != 1 || playlists[0].PlaylistID != "p-1" || playlists[0].Added != 5 {
			t.Errorf("unexpected playlists %+v", playlists)
		}

		got, err := repo.Unresolved(run.ID())
		if err != nil {
			t.Fatalf("failed to list unresolved: %v", err)
		}
		if len(got) != 2 || got[1].Track.TrackName != "D" || got[0].Reason != "artist not found" {
			t.Errorf("unexpected unresolved %+v", got)
		}

		run.Finish(nil)
		if err := repo.Finish(run); err != nil {
			t.Fatalf("failed to finish run: %v", err)
		}
	})

	t.Run("RecordPlaylist requires run", func(t *testing.T) {
		repo := NewHistoryRepository(setupTestDB(t))
		err := repo.RecordPlaylist("nonexistent-id", models.PlaylistRecord{Name: "Mix", Action: "skipped"}, nil)
		if err == nil {
			t.Fatal("expected foreign key error")
		}
	})
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(db, "runs")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != want {
			t.Errorf("expected %d, got %d", want, got)
		}
	}

	if _, err := NextSequence(db, "missing"); err == nil {
		t.Error("expected error for unknown sequence table")
	}
}
