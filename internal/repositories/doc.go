// Package repositories implements SQLite persistence for import history.
//
// [HistoryRepository] stores one row per import run plus the per-playlist outcomes and unresolved tracks
// recorded while the run progressed. Runs support soft deletes via deleted_at timestamps and are excluded
// from queries once deleted; detail rows are removed with their run by foreign key cascade.
//
// Sequence numbers provide stable, human-readable ordering (e.g., run #42) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
//
// HistoryRepository satisfies tasks.Recorder, so the reconciler writes history without knowing about SQL.
package repositories
