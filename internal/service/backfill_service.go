package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/models"
	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/repository"
	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/service/integration"
	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/worker"
	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/pkg/hash"
)

type BackfillOptions struct {
	Scope       models.Scope
	ForceRehash bool
	Actor       string
}

type BackfillService interface {
	Backfill(ctx context.Context, opts BackfillOptions) (*models.BackfillReport, error)
	Coverage(ctx context.Context, scope models.Scope) (models.CoverageCounts, error)
	GetFingerprint(ctx context.Context, submissionID string) (*models.Fingerprint, error)
}

type backfillService struct {
	catalog   repository.SubmissionRepository
	store     repository.FingerprintRepository
	blobs     repository.BlobRepository
	hasher    hash.Hasher
	pool      *worker.Pool
	limiter   *rate.Limiter
	audit     AuditSink
	publisher integration.EventPublisher
	logger    zerolog.Logger
}

// NewBackfillService wires the backfill job. limiter may be nil for an
// unthrottled blob store.
func NewBackfillService(
	catalog repository.SubmissionRepository,
	store repository.FingerprintRepository,
	blobs repository.BlobRepository,
	hasher hash.Hasher,
	pool *worker.Pool,
	limiter *rate.Limiter,
	audit AuditSink,
	publisher integration.EventPublisher,
	logger zerolog.Logger,
) BackfillService {
	return &backfillService{
		catalog:   catalog,
		store:     store,
		blobs:     blobs,
		hasher:    hasher,
		pool:      pool,
		limiter:   limiter,
		audit:     audit,
		publisher: publisher,
		logger:    logger,
	}
}

// NewRateLimiter returns nil when perSecond is zero, meaning no throttling.
func NewRateLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

func (s *backfillService) algorithm() string {
	return s.hasher.Algorithm().String()
}

func (s *backfillService) Coverage(ctx context.Context, scope models.Scope) (models.CoverageCounts, error) {
	if err := validateScope(ctx, s.catalog, scope); err != nil {
		return models.CoverageCounts{}, err
	}

	counts, err := s.store.Coverage(ctx, scope, s.algorithm())
	if err != nil {
		return counts, fmt.Errorf("failed to get coverage: %w", err)
	}
	return counts, nil
}

func (s *backfillService) GetFingerprint(ctx context.Context, submissionID string) (*models.Fingerprint, error) {
	if submissionID == "" {
		return nil, models.NewValidationError("submission_id", "is required")
	}
	return s.store.GetFingerprint(ctx, submissionID)
}

func (s *backfillService) Backfill(ctx context.Context, opts BackfillOptions) (*models.BackfillReport, error) {
	if err := validateScope(ctx, s.catalog, opts.Scope); err != nil {
		return nil, err
	}

	report := &models.BackfillReport{
		Scope:       opts.Scope,
		ForceRehash: opts.ForceRehash,
		Algorithm:   s.algorithm(),
		Counts:      make(map[models.BackfillStatus]int),
		Items:       make([]models.BackfillItemResult, 0),
		StartedAt:   time.Now().UTC(),
	}

	before, err := s.store.Coverage(ctx, opts.Scope, s.algorithm())
	if err != nil {
		return nil, fmt.Errorf("failed to get coverage: %w", err)
	}
	report.Before = before

	var candidates []*models.Submission
	if opts.ForceRehash {
		candidates, err = s.catalog.Query(ctx, opts.Scope)
	} else {
		candidates, err = s.store.ListMissing(ctx, opts.Scope)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list backfill candidates: %w", err)
	}

	s.logger.Info().
		Str("scope", opts.Scope.Key()).
		Bool("force_rehash", opts.ForceRehash).
		Int("candidates", len(candidates)).
		Int("without_hash", before.WithoutHash).
		Msg("Backfill started")

	var admit func(context.Context) error
	if s.limiter != nil {
		admit = func(ctx context.Context) error { return s.limiter.Wait(ctx) }
	}

	results, started := worker.MapThrottled(ctx, s.pool, len(candidates), admit,
		func(itemCtx context.Context, i int) models.BackfillItemResult {
			return s.processItem(itemCtx, candidates[i], opts.ForceRehash)
		},
		func(i int, err error) models.BackfillItemResult {
			return models.BackfillItemResult{
				SubmissionID: candidates[i].ID,
				Status:       models.BackfillStatusFailedStore,
				Error:        err.Error(),
			}
		},
	)

	for i, result := range results {
		if !started[i] {
			report.NotStarted++
			continue
		}
		report.Items = append(report.Items, result)
		report.Counts[result.Status]++
	}
	report.Cancelled = ctx.Err() != nil || report.NotStarted > 0

	// Coverage after the run is still reported when the caller gave up.
	afterCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	after, err := s.store.Coverage(afterCtx, opts.Scope, s.algorithm())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to get coverage after backfill")
		after = before
	}
	report.After = after
	report.Complete = after.WithoutHash == 0
	report.CompletedAt = time.Now().UTC()

	s.finish(ctx, opts, report)

	return report, nil
}

func (s *backfillService) processItem(ctx context.Context, sub *models.Submission, force bool) models.BackfillItemResult {
	start := time.Now()
	result := models.BackfillItemResult{SubmissionID: sub.ID}
	defer func() {
		result.DurationMs = time.Since(start).Milliseconds()
	}()

	logger := s.logger.With().Str("submission_id", sub.ID).Logger()

	existing := sub.Fingerprint
	if !force {
		current, err := s.store.GetFingerprint(ctx, sub.ID)
		if err != nil {
			return s.storeFailure(logger, result, err)
		}
		if current != nil {
			result.Status = models.BackfillStatusSkipped
			result.Fingerprint = current
			return result
		}
	}

	fp, err := s.compute(ctx, sub)
	if err != nil {
		logger.Warn().Err(err).Str("file_url", sub.FileURL).Msg("Failed to retrieve submission content")
		result.Status = models.BackfillStatusFailedRetrieval
		result.Error = err.Error()
		return result
	}
	result.Fingerprint = fp

	switch {
	case existing != nil && existing.Equal(*fp):
		result.Status = models.BackfillStatusVerified
		return result

	case existing != nil:
		logger.Warn().
			Str("stored", existing.Key()).
			Str("computed", fp.Key()).
			Msg("Stored fingerprint differs from content, replacing")

		if err := s.store.InvalidateFingerprint(ctx, sub.ID); err != nil {
			return s.storeFailure(logger, result, err)
		}
		if err := s.store.SetFingerprint(ctx, sub.ID, *fp); err != nil {
			return s.storeFailure(logger, result, err)
		}
		result.Status = models.BackfillStatusRehashed
		return result
	}

	if err := s.store.SetFingerprint(ctx, sub.ID, *fp); err != nil {
		return s.storeFailure(logger, result, err)
	}

	logger.Debug().Str("content_hash", fp.Hash).Int64("size", fp.Size).Msg("Fingerprint computed")
	result.Status = models.BackfillStatusComputed
	return result
}

func (s *backfillService) compute(ctx context.Context, sub *models.Submission) (*models.Fingerprint, error) {
	rc, err := s.blobs.Fetch(ctx, sub.FileURL)
	if err != nil {
		return nil, &models.RetrievalError{Location: sub.FileURL, Err: err}
	}
	defer rc.Close()

	sum, err := s.hasher.SumReader(&contextReader{ctx: ctx, r: rc})
	if err != nil {
		return nil, &models.RetrievalError{Location: sub.FileURL, Err: err}
	}

	return &models.Fingerprint{
		Algorithm: sum.Algorithm.String(),
		Hash:      sum.Hash,
		Size:      sum.Size,
		HashedAt:  time.Now().UTC(),
	}, nil
}

func (s *backfillService) storeFailure(logger zerolog.Logger, result models.BackfillItemResult, err error) models.BackfillItemResult {
	var conflict *models.ConflictError
	switch {
	case errors.As(err, &conflict):
		logger.Error().
			Str("stored", conflict.Existing.Key()).
			Str("computed", conflict.Proposed.Key()).
			Msg("Fingerprint conflict, stored value kept")
	case errors.Is(err, models.ErrNotFound):
		logger.Warn().Msg("Submission disappeared during backfill")
	default:
		logger.Error().Err(err).Msg("Failed to store fingerprint")
	}

	result.Status = models.BackfillStatusFailedStore
	result.Error = err.Error()
	return result
}

func (s *backfillService) finish(ctx context.Context, opts BackfillOptions, report *models.BackfillReport) {
	failed := report.Failed()

	s.logger.Info().
		Str("scope", opts.Scope.Key()).
		Int("computed", report.Counts[models.BackfillStatusComputed]).
		Int("rehashed", report.Counts[models.BackfillStatusRehashed]).
		Int("skipped", report.Counts[models.BackfillStatusSkipped]).
		Int("failed", failed).
		Int("not_started", report.NotStarted).
		Int("with_hash_before", report.Before.WithHash).
		Int("with_hash_after", report.After.WithHash).
		Int("without_hash_after", report.After.WithoutHash).
		Bool("cancelled", report.Cancelled).
		Msg("Backfill completed")

	if opts.Actor != "" {
		outcome := "completed"
		switch {
		case report.Cancelled:
			outcome = "cancelled"
		case failed > 0:
			outcome = "partial"
		}
		s.audit.Record(ctx, models.AuditEntry{
			Actor:        opts.Actor,
			Action:       models.AuditActionFingerprintBackfill,
			ResourceKind: models.AuditResourceScope,
			ResourceID:   opts.Scope.Key(),
			Outcome:      outcome,
			Detail: fmt.Sprintf("processed=%d failed=%d without_hash %d->%d",
				len(report.Items), failed, report.Before.WithoutHash, report.After.WithoutHash),
		})
	}

	event := models.BackfillCompletedEvent{
		Scope:       opts.Scope,
		Algorithm:   report.Algorithm,
		Before:      report.Before,
		After:       report.After,
		Failed:      failed,
		Cancelled:   report.Cancelled,
		CompletedAt: report.CompletedAt,
		Source:      models.DefaultEventSourceSystem,
	}
	if err := s.publisher.PublishBackfillCompleted(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Error().Err(err).Msg("Failed to publish backfill event")
	}
}

// contextReader stops a streaming read once the item deadline passes.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func validateScope(ctx context.Context, catalog repository.SubmissionRepository, scope models.Scope) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	if scope.AssignmentID == "" {
		return nil
	}

	exists, err := catalog.AssignmentExists(ctx, scope.AssignmentID)
	if err != nil {
		return fmt.Errorf("failed to resolve assignment: %w", err)
	}
	if !exists {
		return models.NewValidationError("assignment_id", fmt.Sprintf("assignment %s not found", scope.AssignmentID))
	}
	return nil
}
