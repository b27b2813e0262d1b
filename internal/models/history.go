package models

import (
	"fmt"
	"time"
)

// RunStatus is the lifecycle state of a [RunRecord].
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunRecord is a persisted import run.
type RunRecord struct {
	id               string
	sequence         int
	source           string
	format           string
	threshold        float64
	anyAlbum         bool
	dryRun           bool
	status           RunStatus
	errorMessage     string
	tracksTotal      int
	tracksResolved   int
	tracksUnresolved int
	createdAt        time.Time
	updatedAt        time.Time
	finishedAt       *time.Time
	deletedAt        *time.Time
}

// NewRunRecord creates a running [RunRecord] for the given import source.
func NewRunRecord(sequence int, source, format string, threshold float64, anyAlbum, dryRun bool) *RunRecord {
	now := time.Now()
	return &RunRecord{
		sequence:  sequence,
		source:    source,
		format:    format,
		threshold: threshold,
		anyAlbum:  anyAlbum,
		dryRun:    dryRun,
		status:    RunStatusRunning,
		createdAt: now,
		updatedAt: now,
	}
}

func (r *RunRecord) ID() string             { return r.id }
func (r *RunRecord) Sequence() int          { return r.sequence }
func (r *RunRecord) Source() string         { return r.source }
func (r *RunRecord) Format() string         { return r.format }
func (r *RunRecord) Threshold() float64     { return r.threshold }
func (r *RunRecord) AnyAlbum() bool         { return r.anyAlbum }
func (r *RunRecord) DryRun() bool           { return r.dryRun }
func (r *RunRecord) Status() RunStatus      { return r.status }
func (r *RunRecord) ErrorMessage() string   { return r.errorMessage }
func (r *RunRecord) TracksTotal() int       { return r.tracksTotal }
func (r *RunRecord) TracksResolved() int    { return r.tracksResolved }
func (r *RunRecord) TracksUnresolved() int  { return r.tracksUnresolved }
func (r *RunRecord) CreatedAt() time.Time   { return r.createdAt }
func (r *RunRecord) UpdatedAt() time.Time   { return r.updatedAt }
func (r *RunRecord) FinishedAt() *time.Time { return r.finishedAt }
func (r *RunRecord) DeletedAt() *time.Time  { return r.deletedAt }

func (r *RunRecord) SetID(id string)            { r.id = id }
func (r *RunRecord) SetSequence(sequence int)   { r.sequence = sequence }
func (r *RunRecord) SetCreatedAt(t time.Time)   { r.createdAt = t }
func (r *RunRecord) SetUpdatedAt(t time.Time)   { r.updatedAt = t }
func (r *RunRecord) SetFinishedAt(t *time.Time) { r.finishedAt = t }
func (r *RunRecord) SetDeletedAt(t *time.Time)  { r.deletedAt = t }
func (r *RunRecord) SetStatus(status RunStatus) { r.status = status }
func (r *RunRecord) SetErrorMessage(msg string) { r.errorMessage = msg }
func (r *RunRecord) SetCounts(total, resolved, unresolved int) {
	r.tracksTotal = total
	r.tracksResolved = resolved
	r.tracksUnresolved = unresolved
}

// Finish marks the run as completed, or failed when err is non-nil.
func (r *RunRecord) Finish(err error) {
	now := time.Now()
	r.finishedAt = &now
	r.updatedAt = now
	if err != nil {
		r.status = RunStatusFailed
		r.errorMessage = err.Error()
		return
	}
	r.status = RunStatusCompleted
}

func (r *RunRecord) Validate() error {
	if r.source == "" {
		return fmt.Errorf("run source is required")
	}
	if r.threshold < 0 || r.threshold > 100 {
		return fmt.Errorf("run threshold must be between 0 and 100")
	}
	switch r.status {
	case RunStatusRunning, RunStatusCompleted, RunStatusFailed:
	default:
		return fmt.Errorf("invalid run status %q", r.status)
	}
	return nil
}

// PlaylistRecord is the persisted outcome for one playlist of a run.
type PlaylistRecord struct {
	Name       string    `json:"name"`
	PlaylistID string    `json:"playlist_id,omitempty"`
	Action     string    `json:"action"`
	Resolved   int       `json:"resolved"`
	Added      int       `json:"added"`
	Unresolved int       `json:"unresolved"`
	CreatedAt  time.Time `json:"created_at"`
}

// UnresolvedRecord is a descriptor that could not be matched during a run.
type UnresolvedRecord struct {
	Playlist string          `json:"playlist"`
	Track    TrackDescriptor `json:"track"`
	Reason   string          `json:"reason"`
}
