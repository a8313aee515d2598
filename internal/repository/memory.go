package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/models"
)

// MemoryStore is an in-process catalog and fingerprint store. It backs the
// memory storage driver and the service tests.
type MemoryStore struct {
	mu          sync.RWMutex
	submissions map[string]*models.Submission
	assignments map[string]struct{}
	writes      int
}

var (
	_ SubmissionRepository  = (*MemoryStore)(nil)
	_ FingerprintRepository = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		submissions: make(map[string]*models.Submission),
		assignments: make(map[string]struct{}),
	}
}

// Put inserts or replaces a submission and registers its assignment.
func (s *MemoryStore) Put(subs ...*models.Submission) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sub := range subs {
		s.submissions[sub.ID] = cloneSubmission(sub)
		if sub.AssignmentID != "" {
			s.assignments[sub.AssignmentID] = struct{}{}
		}
	}
}

func (s *MemoryStore) AddAssignment(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments[id] = struct{}{}
}

// Writes counts fingerprint writes that changed stored state.
func (s *MemoryStore) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.submissions)
}

func (s *MemoryStore) query(scope models.Scope, keep func(*models.Submission) bool) []*models.Submission {
	result := make([]*models.Submission, 0, len(s.submissions))
	for _, sub := range s.submissions {
		if scope.Matches(sub) && (keep == nil || keep(sub)) {
			result = append(result, cloneSubmission(sub))
		}
	}
	sortSubmissions(result)
	return result
}

func (s *MemoryStore) Query(_ context.Context, scope models.Scope) ([]*models.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query(scope, nil), nil
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (*models.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sub, ok := s.submissions[id]; ok {
		return cloneSubmission(sub), nil
	}
	return nil, nil
}

func (s *MemoryStore) AssignmentExists(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.assignments[id]
	return ok, nil
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

func (s *MemoryStore) GetFingerprint(_ context.Context, id string) (*models.Fingerprint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.submissions[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if sub.Fingerprint == nil {
		return nil, nil
	}
	fp := *sub.Fingerprint
	return &fp, nil
}

func (s *MemoryStore) SetFingerprint(_ context.Context, id string, fp models.Fingerprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.submissions[id]
	if !ok {
		return models.ErrNotFound
	}
	if sub.Fingerprint != nil {
		if sub.Fingerprint.Equal(fp) {
			return nil
		}
		return &models.ConflictError{SubmissionID: id, Existing: *sub.Fingerprint, Proposed: fp}
	}

	sub.Fingerprint = &fp
	s.writes++
	return nil
}

func (s *MemoryStore) InvalidateFingerprint(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.submissions[id]
	if !ok {
		return models.ErrNotFound
	}
	sub.Fingerprint = nil
	return nil
}

func (s *MemoryStore) ListMissing(_ context.Context, scope models.Scope) ([]*models.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query(scope, func(sub *models.Submission) bool { return sub.Fingerprint == nil }), nil
}

func (s *MemoryStore) Coverage(_ context.Context, scope models.Scope, algorithm string) (models.CoverageCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var counts models.CoverageCounts
	for _, sub := range s.submissions {
		if !scope.Matches(sub) {
			continue
		}
		counts.Total++
		switch {
		case sub.Fingerprint == nil:
		case sub.Fingerprint.Algorithm == algorithm:
			counts.WithHash++
		default:
			counts.Stale++
		}
	}
	counts.WithoutHash = counts.Total - counts.WithHash
	return counts, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) (*models.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.submissions[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	delete(s.submissions, id)
	return sub, nil
}

type memorySeed struct {
	Assignments []string             `json:"assignments"`
	Submissions []*models.Submission `json:"submissions"`
}

// LoadSeedFile fills the store from a JSON document of the form
// {"assignments": [...], "submissions": [...]}.
func (s *MemoryStore) LoadSeedFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed memorySeed
	if err := json.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("failed to parse seed file: %w", err)
	}

	for _, id := range seed.Assignments {
		s.AddAssignment(id)
	}
	s.Put(seed.Submissions...)
	return nil
}

func sortSubmissions(subs []*models.Submission) {
	sort.Slice(subs, func(i, j int) bool {
		if !subs[i].SubmittedAt.Equal(subs[j].SubmittedAt) {
			return subs[i].SubmittedAt.Before(subs[j].SubmittedAt)
		}
		return subs[i].ID < subs[j].ID
	})
}

func cloneSubmission(sub *models.Submission) *models.Submission {
	c := *sub
	if sub.Fingerprint != nil {
		fp := *sub.Fingerprint
		c.Fingerprint = &fp
	}
	if sub.Grade != nil {
		g := *sub.Grade
		c.Grade = &g
	}
	return &c
}

// MemoryBlobRepository holds blobs keyed by location.
type MemoryBlobRepository struct {
	mu    sync.RWMutex
	blobs map[string][]byte
	reads map[string]int
}

func NewMemoryBlobRepository() *MemoryBlobRepository {
	return &MemoryBlobRepository{
		blobs: make(map[string][]byte),
		reads: make(map[string]int),
	}
}

func (r *MemoryBlobRepository) Put(location string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blobs[location] = append([]byte(nil), data...)
}

func (r *MemoryBlobRepository) Remove(location string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.blobs, location)
}

// Reads reports how many times a location was fetched successfully.
func (r *MemoryBlobRepository) Reads(location string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.reads[location]
}

func (r *MemoryBlobRepository) Fetch(ctx context.Context, location string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	data, ok := r.blobs[location]
	if !ok {
		return nil, fmt.Errorf("blob %s: %w", location, models.ErrNotFound)
	}
	r.reads[location]++
	return io.NopCloser(bytes.NewReader(data)), nil
}

type MemoryAuditRepository struct {
	mu      sync.RWMutex
	entries []*models.AuditEntry
}

func NewMemoryAuditRepository() *MemoryAuditRepository {
	return &MemoryAuditRepository{}
}

func (r *MemoryAuditRepository) Create(_ context.Context, entry *models.AuditEntry) error {
	prepareAuditEntry(entry)

	r.mu.Lock()
	defer r.mu.Unlock()
	e := *entry
	r.entries = append(r.entries, &e)
	return nil
}

func (r *MemoryAuditRepository) ListByResource(_ context.Context, kind, id string) ([]*models.AuditEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*models.AuditEntry
	for _, e := range r.entries {
		if e.ResourceKind == kind && e.ResourceID == id {
			c := *e
			result = append(result, &c)
		}
	}
	return result, nil
}

func (r *MemoryAuditRepository) All() []*models.AuditEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*models.AuditEntry, 0, len(r.entries))
	for _, e := range r.entries {
		c := *e
		result = append(result, &c)
	}
	return result
}
