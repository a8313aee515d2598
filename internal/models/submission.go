package models

import (
	"fmt"
	"strings"
	"time"
)

type SubmissionStatus string

const (
	SubmissionStatusSubmitted SubmissionStatus = "submitted"
	SubmissionStatusGraded    SubmissionStatus = "graded"
)

func (s SubmissionStatus) String() string {
	return string(s)
}

type Submission struct {
	ID             string           `json:"id" db:"id"`
	AssignmentID   string           `json:"assignment_id" db:"assignment_id"`
	StudentID      string           `json:"student_id" db:"student_id"`
	StudentName    string           `json:"student_name" db:"student_name"`
	RegisterNumber string           `json:"register_number" db:"register_number"`
	ClassYear      string           `json:"class_year" db:"class_year"`
	FileURL        string           `json:"file_url" db:"file_url"`
	FileName       string           `json:"file_name" db:"file_name"`
	SubmittedAt    time.Time        `json:"submitted_at" db:"submitted_at"`
	Status         SubmissionStatus `json:"status" db:"status"`
	Grade          *float64         `json:"grade,omitempty" db:"grade"`
	Fingerprint    *Fingerprint     `json:"fingerprint,omitempty"`
}

// Fingerprint is the content identity of a submission's bytes. Two fingerprints
// are equal only when algorithm, digest and size all match.
type Fingerprint struct {
	Algorithm string    `json:"algorithm" db:"hash_algorithm"`
	Hash      string    `json:"hash" db:"content_hash"`
	Size      int64     `json:"size" db:"file_size"`
	HashedAt  time.Time `json:"hashed_at,omitempty" db:"hashed_at"`
}

func (f Fingerprint) Equal(other Fingerprint) bool {
	return f.Algorithm == other.Algorithm && f.Hash == other.Hash && f.Size == other.Size
}

// Key identifies the fingerprint independent of when it was computed.
func (f Fingerprint) Key() string {
	return fmt.Sprintf("%s:%s:%d", f.Algorithm, f.Hash, f.Size)
}

func (f Fingerprint) String() string {
	return f.Key()
}

// Scope narrows a query over the submission catalog. Zero fields are unrestricted.
type Scope struct {
	AssignmentID string     `json:"assignment_id,omitempty"`
	ClassYear    string     `json:"class_year,omitempty"`
	From         *time.Time `json:"date_from,omitempty"`
	To           *time.Time `json:"date_to,omitempty"`
}

// Matches reports whether the submission falls inside the scope.
// Date bounds are inclusive.
func (s Scope) Matches(sub *Submission) bool {
	if s.AssignmentID != "" && sub.AssignmentID != s.AssignmentID {
		return false
	}
	if s.ClassYear != "" && !strings.EqualFold(sub.ClassYear, s.ClassYear) {
		return false
	}
	if s.From != nil && sub.SubmittedAt.Before(*s.From) {
		return false
	}
	if s.To != nil && sub.SubmittedAt.After(*s.To) {
		return false
	}
	return true
}

// Key is a canonical rendering of the scope, stable across calls.
func (s Scope) Key() string {
	var parts []string
	if s.AssignmentID != "" {
		parts = append(parts, "assignment="+s.AssignmentID)
	}
	if s.ClassYear != "" {
		parts = append(parts, "class_year="+strings.ToUpper(s.ClassYear))
	}
	if s.From != nil {
		parts = append(parts, "from="+s.From.UTC().Format(time.RFC3339))
	}
	if s.To != nil {
		parts = append(parts, "to="+s.To.UTC().Format(time.RFC3339))
	}
	if len(parts) == 0 {
		return "all"
	}
	return strings.Join(parts, ";")
}

func (s Scope) Validate() error {
	if s.From != nil && s.To != nil && s.From.After(*s.To) {
		return NewValidationError("date_from", "must not be after date_to")
	}
	return nil
}
