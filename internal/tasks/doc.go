// Package tasks reconciles imported playlists against a media library with real-time progress reporting.
//
// # Core Operations
//
// [Reconciler] exposes three levels of work:
//
//  1. [Reconciler.Resolve] : one descriptor to one library track
//     - Looks up the artist by name (a missing artist leaves the track unresolved)
//     - Ranks the artist's albums against the descriptor album, best first
//     - Picks the best track above the threshold in each candidate album
//     - Falls back to every album in year order when AnyAlbum is set
//
//  2. [Reconciler.Sync] : one playlist
//     - Resolves every descriptor and de-duplicates ids in first-seen order
//     - Creates the playlist when absent, else appends only ids it does not hold yet
//     - Never removes items; an empty resolved set skips the playlist
//
//  3. [Reconciler.Run] : every playlist of an import, recorded as one run
//
// Artist, album and track listings are memoized for the lifetime of a Reconciler, so one
// Reconciler should serve exactly one run.
//
// # Dry Run
//
// With [Options.DryRun] all reads happen but create and append calls are only logged.
//
// # Progress Reporting
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data.
// Updates use select with default to prevent blocking.
//
// # History
//
// The optional [Recorder] interface persists runs (repositories.HistoryRepository).
// Recording failures are logged and never abort a run.
package tasks
