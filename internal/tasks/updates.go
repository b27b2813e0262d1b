package tasks

import (
	"fmt"

	"github.com/desertthunder/jsi/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	ResolveTracks Phase = iota
	FetchPlaylist
	CreatePlaylist
	UpdatePlaylist
	SkipPlaylist
)

func (p Phase) String() string {
	switch p {
	case ResolveTracks:
		return "resolve_tracks"
	case FetchPlaylist:
		return "fetch_playlist"
	case CreatePlaylist:
		return "create_playlist"
	case UpdatePlaylist:
		return "update_playlist"
	case SkipPlaylist:
		return "skip_playlist"
	default:
		return ""
	}
}

func resolveTracksUpdate(step, total int, playlist string, d *models.TrackDescriptor) ProgressUpdate {
	if d == nil {
		return ProgressUpdate{
			Phase:   ResolveTracks,
			Step:    step,
			Total:   total,
			Message: fmt.Sprintf("Resolving %d tracks for %s...", total, playlist),
		}
	}
	return ProgressUpdate{
		Phase:   ResolveTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s - %s", step, total, d.ArtistName, d.TrackName),
	}
}

func fetchPlaylistUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Looking up playlist %s...", name),
	}
}

func createPlaylistUpdate(result *SyncResult) ProgressUpdate {
	msg := fmt.Sprintf("Playlist created: %s (ID: %s, %d tracks)", result.Playlist, result.PlaylistID, len(result.Added))
	if result.DryRun {
		msg = fmt.Sprintf("Dry run: would create %s with %d tracks", result.Playlist, len(result.Added))
	}
	return ProgressUpdate{Phase: CreatePlaylist, Step: 1, Total: 1, Message: msg, Data: result}
}

func updatePlaylistUpdate(result *SyncResult) ProgressUpdate {
	msg := fmt.Sprintf("Playlist updated: %s (+%d tracks)", result.Playlist, len(result.Added))
	if result.DryRun {
		msg = fmt.Sprintf("Dry run: would add %d tracks to %s", len(result.Added), result.Playlist)
	}
	return ProgressUpdate{Phase: UpdatePlaylist, Step: 1, Total: 1, Message: msg, Data: result}
}

func skipPlaylistUpdate(result *SyncResult) ProgressUpdate {
	msg := fmt.Sprintf("Playlist skip update: %s has no new tracks", result.Playlist)
	if result.Action == ActionSkipped {
		msg = fmt.Sprintf("Playlist skip creation: %s has no tracks found in library", result.Playlist)
	}
	return ProgressUpdate{Phase: SkipPlaylist, Step: 1, Total: 1, Message: msg, Data: result}
}
