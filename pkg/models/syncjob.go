package models

import "time"

// SyncJobState represents where a sync run is in its lifecycle.
type SyncJobState string

const (
	SyncStateRunning   SyncJobState = "running"
	SyncStateSucceeded SyncJobState = "succeeded"
	SyncStateFailed    SyncJobState = "failed"
)

// Terminal reports whether the state is final.
func (s SyncJobState) Terminal() bool {
	return s == SyncStateSucceeded || s == SyncStateFailed
}

// SyncJobStatus is an immutable view of an in-flight or recently
// finished sync, as returned by PollSync. Jobs are ephemeral: they live
// in memory for the duration of the run plus a short display-grace
// window and never survive a restart.
type SyncJobStatus struct {
	JobID      string       `json:"job_id"`
	SourceID   int64        `json:"source_id"`
	State      SyncJobState `json:"state"`
	Progress   int          `json:"progress"` // 0..100
	Message    string       `json:"message,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
}
