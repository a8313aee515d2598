package models

import "time"

type BackfillStatus string

const (
	BackfillStatusComputed        BackfillStatus = "computed"
	BackfillStatusSkipped         BackfillStatus = "skipped_already_present"
	BackfillStatusVerified        BackfillStatus = "verified"
	BackfillStatusRehashed        BackfillStatus = "rehashed"
	BackfillStatusFailedRetrieval BackfillStatus = "failed_retrieval"
	BackfillStatusFailedStore     BackfillStatus = "failed_store"
)

func (s BackfillStatus) String() string {
	return string(s)
}

func (s BackfillStatus) Failed() bool {
	return s == BackfillStatusFailedRetrieval || s == BackfillStatusFailedStore
}

type BackfillItemResult struct {
	SubmissionID string         `json:"submission_id"`
	Status       BackfillStatus `json:"status"`
	Fingerprint  *Fingerprint   `json:"fingerprint,omitempty"`
	Error        string         `json:"error,omitempty"`
	DurationMs   int64          `json:"duration_ms"`
}

// CoverageCounts is the with/without fingerprint split for a scope.
type CoverageCounts struct {
	Total       int `json:"total"`
	WithHash    int `json:"with_hash"`
	WithoutHash int `json:"without_hash"`
	Stale       int `json:"stale"`
}

type BackfillReport struct {
	Scope       Scope                  `json:"scope"`
	ForceRehash bool                   `json:"force_rehash"`
	Algorithm   string                 `json:"algorithm"`
	Before      CoverageCounts         `json:"before"`
	After       CoverageCounts         `json:"after"`
	Counts      map[BackfillStatus]int `json:"counts"`
	Items       []BackfillItemResult   `json:"items"`
	NotStarted  int                    `json:"not_started"`
	Cancelled   bool                   `json:"cancelled"`
	Complete    bool                   `json:"complete"`
	StartedAt   time.Time              `json:"started_at"`
	CompletedAt time.Time              `json:"completed_at"`
}

func (r *BackfillReport) Failed() int {
	return r.Counts[BackfillStatusFailedRetrieval] + r.Counts[BackfillStatusFailedStore]
}
