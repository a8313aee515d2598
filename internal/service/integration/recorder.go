package integration

import (
	"context"
	"sync"

	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/models"
)

// RecordingPublisher keeps published events in memory. Err, when set, is
// returned from every publish call after the event is recorded.
type RecordingPublisher struct {
	mu       sync.Mutex
	Deleted  []models.SubmissionDeletedEvent
	Backfill []models.BackfillCompletedEvent
	Err      error
}

func (r *RecordingPublisher) PublishSubmissionDeleted(_ context.Context, event models.SubmissionDeletedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Deleted = append(r.Deleted, event)
	return r.Err
}

func (r *RecordingPublisher) PublishBackfillCompleted(_ context.Context, event models.BackfillCompletedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Backfill = append(r.Backfill, event)
	return r.Err
}

func (r *RecordingPublisher) DeletedIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.Deleted))
	for _, e := range r.Deleted {
		ids = append(ids, e.SubmissionID)
	}
	return ids
}

func (r *RecordingPublisher) Close() error {
	return nil
}
