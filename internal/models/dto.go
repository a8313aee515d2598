package models

import (
	"encoding/json"
	"errors"
	"time"
)

type ScopeRequest struct {
	AssignmentID string     `json:"assignment_id" validate:"omitempty,max=64"`
	ClassYear    string     `json:"class_year" validate:"omitempty,max=32"`
	DateFrom     *ScopeDate `json:"date_from"`
	DateTo       *ScopeDate `json:"date_to"`
}

// Scope resolves the request bounds. A bare date in DateTo covers the whole day.
func (r ScopeRequest) Scope() Scope {
	return Scope{
		AssignmentID: r.AssignmentID,
		ClassYear:    r.ClassYear,
		From:         r.DateFrom.Start(),
		To:           r.DateTo.End(),
	}
}

type DetectRequest struct {
	ScopeRequest
	MinSimilarity *float64 `json:"min_similarity" validate:"omitempty,gte=0,lte=100"`
}

type BackfillRequest struct {
	ScopeRequest
	ForceRehash bool `json:"force_rehash"`
}

type BulkDeleteRequest struct {
	SubmissionIDs []string `json:"submission_ids" validate:"required,min=1,dive,required,max=64"`
}

var errScopeDate = errors.New("expected RFC3339 timestamp or YYYY-MM-DD")

// ScopeDate is a scope bound written either as an RFC3339 timestamp or as a
// bare YYYY-MM-DD date.
type ScopeDate struct {
	time.Time
	DateOnly bool
}

// NewScopeDate parses value. Empty input yields nil.
func NewScopeDate(value string) (*ScopeDate, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &ScopeDate{Time: t}, nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return nil, errScopeDate
	}
	return &ScopeDate{Time: t, DateOnly: true}, nil
}

// Start is the first instant the bound admits. An empty bound is unrestricted.
func (d *ScopeDate) Start() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

// End is the last instant the bound admits: the end of the day for a bare date.
func (d *ScopeDate) End() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	if d.DateOnly {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t
}

func (d *ScopeDate) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return errScopeDate
	}
	parsed, err := NewScopeDate(raw)
	if err != nil {
		return err
	}
	if parsed == nil {
		*d = ScopeDate{}
		return nil
	}
	*d = *parsed
	return nil
}

func (d ScopeDate) MarshalJSON() ([]byte, error) {
	if d.DateOnly {
		return json.Marshal(d.Format(time.DateOnly))
	}
	return json.Marshal(d.Format(time.RFC3339))
}

// ParseScopeDate accepts an RFC3339 timestamp or a bare YYYY-MM-DD date.
// With endOfDay set, a bare date covers the whole day. Empty input yields nil.
func ParseScopeDate(value string, endOfDay bool) (*time.Time, error) {
	d, err := NewScopeDate(value)
	if err != nil || d == nil {
		return nil, err
	}
	if endOfDay {
		return d.End(), nil
	}
	return d.Start(), nil
}
