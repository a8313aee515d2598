package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeRequest_DecodesBareDates(t *testing.T) {
	var req DetectRequest
	body := `{"assignment_id":"a1","date_from":"2025-09-01","date_to":"2025-09-01","min_similarity":100}`
	require.NoError(t, json.Unmarshal([]byte(body), &req))

	scope := req.Scope()
	require.NotNil(t, scope.From)
	require.NotNil(t, scope.To)
	assert.Equal(t, time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), *scope.From)
	assert.Equal(t, time.Date(2025, 9, 1, 23, 59, 59, 999999999, time.UTC), *scope.To)
	assert.True(t, scope.Matches(&Submission{AssignmentID: "a1", SubmittedAt: time.Date(2025, 9, 1, 18, 30, 0, 0, time.UTC)}))
}

func TestScopeRequest_DecodesTimestamps(t *testing.T) {
	var req ScopeRequest
	require.NoError(t, json.Unmarshal([]byte(`{"date_to":"2025-09-01T12:00:00Z"}`), &req))

	scope := req.Scope()
	assert.Nil(t, scope.From)
	require.NotNil(t, scope.To)
	assert.Equal(t, time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC), *scope.To)
}

func TestScopeRequest_RejectsBadDates(t *testing.T) {
	var req ScopeRequest
	assert.Error(t, json.Unmarshal([]byte(`{"date_from":"next week"}`), &req))
	assert.Error(t, json.Unmarshal([]byte(`{"date_from":20250901}`), &req))
}

func TestScopeRequest_EmptyDateIsUnrestricted(t *testing.T) {
	var req ScopeRequest
	require.NoError(t, json.Unmarshal([]byte(`{"date_from":"","date_to":""}`), &req))

	scope := req.Scope()
	assert.Nil(t, scope.From)
	assert.Nil(t, scope.To)
}

func TestScopeDate_RoundTripsForm(t *testing.T) {
	d, err := NewScopeDate("2025-09-01")
	require.NoError(t, err)
	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `"2025-09-01"`, string(out))

	empty, err := NewScopeDate("")
	require.NoError(t, err)
	assert.Nil(t, empty)
	assert.Nil(t, empty.End())
}
