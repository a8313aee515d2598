package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/models"
)

func TestBackfill_ComputesMissingFingerprints(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOptions{})
	f.add("s1", "a1", []byte("hello"), 0)
	f.add("s2", "a1", []byte("world"), time.Minute)

	report, err := f.backfill.Backfill(ctx, BackfillOptions{Scope: models.Scope{AssignmentID: "a1"}, Actor: "admin"})
	require.NoError(t, err)

	assert.Equal(t, models.CoverageCounts{Total: 2, WithHash: 0, WithoutHash: 2}, report.Before)
	assert.Equal(t, models.CoverageCounts{Total: 2, WithHash: 2, WithoutHash: 0}, report.After)
	assert.Equal(t, 2, report.Counts[models.BackfillStatusComputed])
	assert.True(t, report.Complete)
	assert.False(t, report.Cancelled)
	require.Len(t, report.Items, 2)
	assert.Equal(t, "s1", report.Items[0].SubmissionID)

	fp, err := f.backfill.GetFingerprint(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, fp)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", fp.Hash)
	assert.Equal(t, int64(5), fp.Size)
	assert.Equal(t, "sha256", fp.Algorithm)

	require.Len(t, f.events.Backfill, 1)
	assert.Equal(t, 0, f.events.Backfill[0].After.WithoutHash)

	entries, err := f.audit.ListByResource(ctx, models.AuditResourceScope, "assignment=a1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "completed", entries[0].Outcome)
}

func TestBackfill_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOptions{})
	f.add("s1", "a1", []byte("one"), 0)
	f.add("s2", "a1", []byte("two"), time.Second)
	f.add("s3", "a1", []byte("one"), 2*time.Second)

	_, err := f.backfill.Backfill(ctx, BackfillOptions{})
	require.NoError(t, err)
	writes := f.store.Writes()
	reads := f.blobs.Reads("submissions/s1.pdf")
	assert.Equal(t, 3, writes)

	second, err := f.backfill.Backfill(ctx, BackfillOptions{})
	require.NoError(t, err)

	assert.Equal(t, writes, f.store.Writes())
	assert.Equal(t, reads, f.blobs.Reads("submissions/s1.pdf"))
	assert.Empty(t, second.Items)
	assert.Equal(t, 0, second.Before.WithoutHash)
	assert.True(t, second.Complete)
}

func TestBackfill_RetrievalFailureDoesNotAbortBatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOptions{})
	f.add("s1", "a1", []byte("one"), 0)
	f.add("s2", "a1", nil, time.Second)
	f.add("s3", "a1", []byte("three"), 2*time.Second)

	report, err := f.backfill.Backfill(ctx, BackfillOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Counts[models.BackfillStatusComputed])
	assert.Equal(t, 1, report.Counts[models.BackfillStatusFailedRetrieval])
	assert.Equal(t, 1, report.After.WithoutHash)
	assert.False(t, report.Complete)
	assert.Equal(t, models.BackfillStatusFailedRetrieval, report.Items[1].Status)
	assert.Contains(t, report.Items[1].Error, "submissions/s2.pdf")

	// The blob shows up later; a re-run picks up only the remaining item.
	f.blobs.Put("submissions/s2.pdf", []byte("two"))
	rerun, err := f.backfill.Backfill(ctx, BackfillOptions{})
	require.NoError(t, err)
	require.Len(t, rerun.Items, 1)
	assert.Equal(t, "s2", rerun.Items[0].SubmissionID)
	assert.Equal(t, models.BackfillStatusComputed, rerun.Items[0].Status)
	assert.True(t, rerun.Complete)
}

func TestBackfill_ConflictKeepsStoredValue(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOptions{})
	f.add("s1", "a1", []byte("actual content"), 0)
	stored := models.Fingerprint{Algorithm: "sha256", Hash: "deadbeef", Size: 14}
	require.NoError(t, f.store.SetFingerprint(ctx, "s1", stored))

	// A writer that does not see the stored value tries to write a different one.
	racing := newFixture(t, fixtureOptions{store: &staleReadStore{FingerprintRepository: f.store}, blobs: f.blobs})

	item := racing.backfill.(*backfillService).processItem(ctx, &models.Submission{ID: "s1", FileURL: "submissions/s1.pdf"}, false)
	assert.Equal(t, models.BackfillStatusFailedStore, item.Status)
	assert.Contains(t, item.Error, "refusing")

	fp, err := f.store.GetFingerprint(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", fp.Hash)
}

func TestBackfill_ForceRehash(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOptions{})
	f.add("same", "a1", []byte("alpha"), 0)
	f.add("stale", "a1", []byte("beta"), time.Second)
	f.add("fresh", "a1", []byte("gamma"), 2*time.Second)

	_, err := f.backfill.Backfill(ctx, BackfillOptions{Scope: models.Scope{AssignmentID: "a1"}})
	require.NoError(t, err)
	require.NoError(t, f.store.InvalidateFingerprint(ctx, "stale"))
	require.NoError(t, f.store.SetFingerprint(ctx, "stale", models.Fingerprint{Algorithm: "md5", Hash: "abcd", Size: 4}))
	require.NoError(t, f.store.InvalidateFingerprint(ctx, "fresh"))

	plain, err := f.backfill.Coverage(ctx, models.Scope{})
	require.NoError(t, err)
	assert.Equal(t, 1, plain.Stale)
	assert.Equal(t, 2, plain.WithoutHash)

	report, err := f.backfill.Backfill(ctx, BackfillOptions{ForceRehash: true})
	require.NoError(t, err)

	statuses := map[string]models.BackfillStatus{}
	for _, item := range report.Items {
		statuses[item.SubmissionID] = item.Status
	}
	assert.Equal(t, models.BackfillStatusVerified, statuses["same"])
	assert.Equal(t, models.BackfillStatusRehashed, statuses["stale"])
	assert.Equal(t, models.BackfillStatusComputed, statuses["fresh"])
	assert.True(t, report.Complete)

	fp, err := f.store.GetFingerprint(ctx, "stale")
	require.NoError(t, err)
	assert.Equal(t, "sha256", fp.Algorithm)
}

func TestBackfill_PlainRunLeavesStaleFingerprints(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOptions{})
	f.add("stale", "a1", []byte("beta"), 0)
	f.add("fresh", "a1", []byte("gamma"), time.Second)
	require.NoError(t, f.store.SetFingerprint(ctx, "stale", models.Fingerprint{Algorithm: "md5", Hash: "abcd", Size: 4}))

	report, err := f.backfill.Backfill(ctx, BackfillOptions{})
	require.NoError(t, err)

	require.Len(t, report.Items, 1)
	assert.Equal(t, "fresh", report.Items[0].SubmissionID)
	assert.Equal(t, models.BackfillStatusComputed, report.Items[0].Status)
	assert.Equal(t, 1, report.After.Stale)
	assert.Equal(t, 1, report.After.WithoutHash)
	assert.False(t, report.Complete)

	fp, err := f.store.GetFingerprint(ctx, "stale")
	require.NoError(t, err)
	assert.Equal(t, "md5", fp.Algorithm)
}

func TestBackfill_ItemTimeout(t *testing.T) {
	f := newFixture(t, fixtureOptions{blobs: blockingBlobs{}, itemTimeout: 20 * time.Millisecond})
	f.add("s1", "a1", []byte("x"), 0)
	f.add("s2", "a1", []byte("y"), time.Second)

	start := time.Now()
	report, err := f.backfill.Backfill(context.Background(), BackfillOptions{})
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, 2, report.Counts[models.BackfillStatusFailedRetrieval])
	assert.Contains(t, report.Items[0].Error, "deadline exceeded")
}

func TestBackfill_CancellationKeepsCompletedWork(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	base := newFixture(t, fixtureOptions{})
	blobs := &cancellingBlobs{BlobRepository: base.blobs, after: 2, cancel: cancel}
	f := newFixture(t, fixtureOptions{blobs: blobs, workers: 1})
	// add() must write into the store the cancelling wrapper reads from.
	f.blobs = base.blobs
	for i, id := range []string{"s1", "s2", "s3", "s4", "s5"} {
		f.add(id, "a1", []byte(id), time.Duration(i)*time.Second)
	}

	report, err := f.backfill.Backfill(ctx, BackfillOptions{})
	require.NoError(t, err)

	assert.True(t, report.Cancelled)
	assert.Equal(t, 3, report.NotStarted)
	require.Len(t, report.Items, 2)
	assert.Equal(t, models.BackfillStatusComputed, report.Items[0].Status)

	fp, err := f.store.GetFingerprint(context.Background(), "s1")
	require.NoError(t, err)
	assert.NotNil(t, fp)
	assert.Equal(t, 1, report.After.WithHash)
}

func TestBackfill_UnknownAssignmentIsValidationError(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.add("s1", "a1", []byte("x"), 0)

	_, err := f.backfill.Backfill(context.Background(), BackfillOptions{Scope: models.Scope{AssignmentID: "missing"}})
	assert.ErrorIs(t, err, models.ErrValidation)

	from := t0.Add(time.Hour)
	_, err = f.backfill.Backfill(context.Background(), BackfillOptions{Scope: models.Scope{From: &from, To: &t0}})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestBackfill_WithRateLimiter(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.add("s1", "a1", []byte("x"), 0)
	f.add("s2", "a1", []byte("y"), time.Second)

	svc := f.backfill.(*backfillService)
	svc.limiter = NewRateLimiter(1000, 1)

	report, err := f.backfill.Backfill(context.Background(), BackfillOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Counts[models.BackfillStatusComputed])

	assert.Nil(t, NewRateLimiter(0, 5))
}

func TestBackfill_ThrottleWaitIsNotARetrievalFailure(t *testing.T) {
	f := newFixture(t, fixtureOptions{workers: 4, itemTimeout: 20 * time.Millisecond})
	for i := 1; i <= 4; i++ {
		f.add(fmt.Sprintf("s%d", i), "a1", []byte(fmt.Sprintf("content-%d", i)), time.Duration(i)*time.Second)
	}

	// One token every 50ms: the last item queues well past its own timeout.
	f.backfill.(*backfillService).limiter = NewRateLimiter(20, 1)

	report, err := f.backfill.Backfill(context.Background(), BackfillOptions{})
	require.NoError(t, err)

	assert.Equal(t, 4, report.Counts[models.BackfillStatusComputed])
	assert.Zero(t, report.Counts[models.BackfillStatusFailedRetrieval])
	assert.True(t, report.Complete)
	assert.False(t, report.Cancelled)
}
