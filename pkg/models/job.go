package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusInProgress = "in_progress"
	JobStatusCompleted  = "completed"
)

// Job tracks one commissioned artwork. The marketplace returns a job_id and
// an access key on request-art; the client polls the status endpoint with the
// key until the job completes. A job that never receives payment is deleted
// outright, so the only observable states are pending, completed, or absent.
type Job struct {
	ID          uuid.UUID  `db:"id"           json:"id"`
	KeyHash     string     `db:"key_hash"     json:"-"`
	AddrIndex   uint64     `db:"addr_index"   json:"addr_index"`
	Address     string     `db:"address"      json:"address"`
	ArtistID    uuid.UUID  `db:"artist_id"    json:"artist_id"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	Filename    *string    `db:"filename"     json:"filename,omitempty"`
	CreatedAt   time.Time  `db:"created_at"   json:"created_at"`
}

// Completed reports whether the job has been finalized.
func (j *Job) Completed() bool {
	return j.CompletedAt != nil
}

// Status returns the wire status string for the job.
func (j *Job) Status() string {
	if j.Completed() {
		return JobStatusCompleted
	}
	return JobStatusInProgress
}
