package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/models"
	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/repository"
	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/service/analyzer"
	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/service/integration"
	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/worker"
	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/pkg/hash"
)

var t0 = time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)

type fixtureOptions struct {
	store       repository.FingerprintRepository
	blobs       repository.BlobRepository
	audit       repository.AuditRepository
	workers     int
	itemTimeout time.Duration
}

type fixture struct {
	store  *repository.MemoryStore
	blobs  *repository.MemoryBlobRepository
	audit  *repository.MemoryAuditRepository
	events *integration.RecordingPublisher

	backfill    BackfillService
	detection   DetectionService
	remediation RemediationService
	export      ExportService
}

func newFixture(t *testing.T, opts fixtureOptions) *fixture {
	t.Helper()

	logger := zerolog.New(io.Discard)
	f := &fixture{
		store:  repository.NewMemoryStore(),
		blobs:  repository.NewMemoryBlobRepository(),
		audit:  repository.NewMemoryAuditRepository(),
		events: &integration.RecordingPublisher{},
	}

	var fpStore repository.FingerprintRepository = f.store
	if opts.store != nil {
		fpStore = opts.store
	}
	var blobs repository.BlobRepository = f.blobs
	if opts.blobs != nil {
		blobs = opts.blobs
	}
	var auditRepo repository.AuditRepository = f.audit
	if opts.audit != nil {
		auditRepo = opts.audit
	}
	if opts.workers == 0 {
		opts.workers = 2
	}
	if opts.itemTimeout == 0 {
		opts.itemTimeout = time.Second
	}

	hasher, err := hash.NewStreamHasher(hash.SHA256)
	require.NoError(t, err)

	sink := NewAuditSink(auditRepo, time.Second, logger)

	f.backfill = NewBackfillService(
		f.store, fpStore, blobs, hasher,
		worker.NewPool("backfill", opts.workers, opts.itemTimeout, logger),
		nil, sink, f.events, logger,
	)
	f.detection = NewDetectionService(f.store, analyzer.NewExactGrouper("sha256", true), 100, logger)
	f.remediation = NewRemediationService(
		fpStore,
		worker.NewPool("remediation", 1, opts.itemTimeout, logger),
		sink, f.events, 100, logger,
	)
	f.export = NewExportService(f.detection, logger)

	return f
}

// add registers a submission whose blob holds content. nil content leaves the
// blob missing.
func (f *fixture) add(id, assignment string, content []byte, offset time.Duration) {
	location := "submissions/" + id + ".pdf"
	f.store.Put(&models.Submission{
		ID:             id,
		AssignmentID:   assignment,
		StudentID:      "student-" + id,
		StudentName:    "Student " + id,
		RegisterNumber: "REG-" + id,
		ClassYear:      "II-CSE",
		FileURL:        location,
		FileName:       id + ".pdf",
		SubmittedAt:    t0.Add(offset),
		Status:         models.SubmissionStatusSubmitted,
	})
	if content != nil {
		f.blobs.Put(location, content)
	}
}

type failingDeleteStore struct {
	repository.FingerprintRepository
	fail map[string]error
}

func (s *failingDeleteStore) Delete(ctx context.Context, id string) (*models.Submission, error) {
	if err, ok := s.fail[id]; ok {
		return nil, err
	}
	return s.FingerprintRepository.Delete(ctx, id)
}

// staleReadStore hides stored fingerprints from reads, as a concurrent writer
// would between the read and the write.
type staleReadStore struct {
	repository.FingerprintRepository
}

func (s *staleReadStore) GetFingerprint(context.Context, string) (*models.Fingerprint, error) {
	return nil, nil
}

type failingAudit struct{}

func (failingAudit) Create(context.Context, *models.AuditEntry) error {
	return errors.New("audit store down")
}

func (failingAudit) ListByResource(context.Context, string, string) ([]*models.AuditEntry, error) {
	return nil, errors.New("audit store down")
}

type blockingBlobs struct{}

func (blockingBlobs) Fetch(ctx context.Context, _ string) (io.ReadCloser, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type cancellingBlobs struct {
	repository.BlobRepository
	after  int
	calls  int
	cancel context.CancelFunc
}

func (b *cancellingBlobs) Fetch(ctx context.Context, location string) (io.ReadCloser, error) {
	b.calls++
	if b.calls == b.after {
		b.cancel()
	}
	return b.BlobRepository.Fetch(ctx, location)
}

func ptr(v float64) *float64 {
	return &v
}

func groupMemberIDs(g models.SuspiciousGroup) []string {
	ids := make([]string, 0, len(g.Members))
	for _, m := range g.Members {
		ids = append(ids, m.SubmissionID)
	}
	return ids
}
