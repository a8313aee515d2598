package models

import (
	"strings"
	"time"
)

const (
	DetectionMethodExactHash = "exact_hash"
	ExactMatchConfidence     = 1.0
)

// ExactMatchReason names the digest a group was formed on, for example
// "identical SHA-512 content hash" for sha512.
func ExactMatchReason(algorithm string) string {
	name := strings.ToUpper(algorithm)
	if rest, ok := strings.CutPrefix(name, "SHA"); ok && rest != "" && !strings.HasPrefix(rest, "-") {
		name = "SHA-" + rest
	}
	return "identical " + name + " content hash"
}

type GroupMember struct {
	SubmissionID   string    `json:"submission_id"`
	AssignmentID   string    `json:"assignment_id"`
	StudentID      string    `json:"student_id"`
	StudentName    string    `json:"student_name"`
	RegisterNumber string    `json:"register_number"`
	ClassYear      string    `json:"class_year"`
	FileName       string    `json:"file_name"`
	SubmittedAt    time.Time `json:"submitted_at"`
	Status         string    `json:"status"`
}

// SuspiciousGroup is a set of two or more submissions sharing one fingerprint.
type SuspiciousGroup struct {
	ID          string        `json:"id"`
	Fingerprint Fingerprint   `json:"fingerprint"`
	Members     []GroupMember `json:"members"`
	Size        int           `json:"size"`
	Confidence  float64       `json:"confidence"`
	Reason      string        `json:"reason"`
}

type CoverageSummary struct {
	Total       int      `json:"total"`
	Analyzed    int      `json:"analyzed"`
	Excluded    int      `json:"excluded"`
	Stale       int      `json:"stale"`
	ExcludedIDs []string `json:"excluded_ids,omitempty"`
	Complete    bool     `json:"complete"`
}

type DetectionReport struct {
	Scope         Scope             `json:"scope"`
	Method        string            `json:"method"`
	Algorithm     string            `json:"algorithm"`
	MinSimilarity float64           `json:"min_similarity"`
	Groups        []SuspiciousGroup `json:"groups"`
	Coverage      CoverageSummary   `json:"coverage"`
	GeneratedAt   time.Time         `json:"generated_at"`
}

// FlaggedCount is the number of submissions that appear in some group.
func (r *DetectionReport) FlaggedCount() int {
	n := 0
	for _, g := range r.Groups {
		n += len(g.Members)
	}
	return n
}

// ExportRow is one group member flattened for tabular output.
type ExportRow struct {
	GroupID        string    `json:"group_id"`
	GroupSize      int       `json:"group_size"`
	Algorithm      string    `json:"algorithm"`
	ContentHash    string    `json:"content_hash"`
	FileSize       int64     `json:"file_size"`
	Confidence     float64   `json:"confidence"`
	Reason         string    `json:"reason"`
	SubmissionID   string    `json:"submission_id"`
	StudentName    string    `json:"student_name"`
	RegisterNumber string    `json:"register_number"`
	ClassYear      string    `json:"class_year"`
	AssignmentID   string    `json:"assignment_id"`
	FileName       string    `json:"file_name"`
	SubmittedAt    time.Time `json:"submitted_at"`
}
