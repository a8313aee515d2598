package models

import "time"

const (
	AuditActionSubmissionDelete    = "submission.delete"
	AuditActionFingerprintBackfill = "fingerprint.backfill"

	AuditResourceSubmission = "submission"
	AuditResourceScope      = "scope"
)

type AuditEntry struct {
	ID           string    `json:"id" db:"id"`
	Actor        string    `json:"actor" db:"actor"`
	Action       string    `json:"action" db:"action"`
	ResourceKind string    `json:"resource_kind" db:"resource_kind"`
	ResourceID   string    `json:"resource_id" db:"resource_id"`
	Outcome      string    `json:"outcome" db:"outcome"`
	Detail       string    `json:"detail,omitempty" db:"detail"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
