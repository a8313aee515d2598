package models

import "time"

const (
	EventSubmissionDeleted   = "submission.deleted"
	EventBackfillCompleted   = "fingerprint.backfill.completed"
	DefaultEventSourceSystem = "duplicate-service"
)

type SubmissionDeletedEvent struct {
	SubmissionID string    `json:"submission_id"`
	AssignmentID string    `json:"assignment_id,omitempty"`
	FileURL      string    `json:"file_url,omitempty"`
	Actor        string    `json:"actor"`
	DeletedAt    time.Time `json:"deleted_at"`
	Source       string    `json:"source"`
}

type BackfillCompletedEvent struct {
	Scope       Scope          `json:"scope"`
	Algorithm   string         `json:"algorithm"`
	Before      CoverageCounts `json:"before"`
	After       CoverageCounts `json:"after"`
	Failed      int            `json:"failed"`
	Cancelled   bool           `json:"cancelled"`
	CompletedAt time.Time      `json:"completed_at"`
	Source      string         `json:"source"`
}
