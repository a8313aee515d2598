package models

type RemediationStatus string

const (
	RemediationStatusDeleted        RemediationStatus = "deleted"
	RemediationStatusAlreadyDeleted RemediationStatus = "already_deleted"
	RemediationStatusFailed         RemediationStatus = "failed"
)

func (s RemediationStatus) String() string {
	return string(s)
}

type RemediationOutcome struct {
	SubmissionID string            `json:"submission_id"`
	Status       RemediationStatus `json:"status"`
	Success      bool              `json:"success"`
	Error        string            `json:"error,omitempty"`
}

type FailedItem struct {
	SubmissionID string `json:"submission_id"`
	Reason       string `json:"reason"`
}

// BatchRemediationResult keeps outcomes in request order. A batch with
// failures is still a result, never an error.
type BatchRemediationResult struct {
	Total          int                  `json:"total"`
	Succeeded      int                  `json:"succeeded"`
	Deleted        int                  `json:"deleted"`
	AlreadyDeleted int                  `json:"already_deleted"`
	Failed         int                  `json:"failed"`
	FailedItems    []FailedItem         `json:"failed_items,omitempty"`
	Outcomes       []RemediationOutcome `json:"outcomes"`
	NotStarted     []string             `json:"not_started,omitempty"`
	Cancelled      bool                 `json:"cancelled"`
}

func (r *BatchRemediationResult) Partial() bool {
	return r.Failed > 0 && r.Succeeded > 0
}
