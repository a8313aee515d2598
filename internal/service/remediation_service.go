package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/models"
	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/repository"
	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/service/integration"
	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/worker"
)

// RemediationService deletes submissions one at a time. Deleting the last
// member of a group is allowed; the caller decides what to keep.
type RemediationService interface {
	DeleteOne(ctx context.Context, submissionID, actor string) (models.RemediationOutcome, error)
	DeleteMany(ctx context.Context, submissionIDs []string, actor string) (*models.BatchRemediationResult, error)
}

type remediationService struct {
	store        repository.FingerprintRepository
	pool         *worker.Pool
	audit        AuditSink
	publisher    integration.EventPublisher
	maxBatchSize int
	logger       zerolog.Logger
}

func NewRemediationService(
	store repository.FingerprintRepository,
	pool *worker.Pool,
	audit AuditSink,
	publisher integration.EventPublisher,
	maxBatchSize int,
	logger zerolog.Logger,
) RemediationService {
	return &remediationService{
		store:        store,
		pool:         pool,
		audit:        audit,
		publisher:    publisher,
		maxBatchSize: maxBatchSize,
		logger:       logger,
	}
}

func (s *remediationService) DeleteOne(ctx context.Context, submissionID, actor string) (models.RemediationOutcome, error) {
	if err := validateActor(actor); err != nil {
		return models.RemediationOutcome{}, err
	}
	submissionID = strings.TrimSpace(submissionID)
	if submissionID == "" {
		return models.RemediationOutcome{}, models.NewValidationError("submission_id", "is required")
	}

	if s.pool.ItemTimeout() > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.pool.ItemTimeout())
		defer cancel()
	}

	return s.deleteOne(ctx, submissionID, actor), nil
}

func (s *remediationService) DeleteMany(ctx context.Context, submissionIDs []string, actor string) (*models.BatchRemediationResult, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}

	ids, err := s.normalizeIDs(submissionIDs)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("actor", actor).
		Int("requested", len(ids)).
		Msg("Bulk delete started")

	outcomes, started := worker.Map(ctx, s.pool, len(ids),
		func(itemCtx context.Context, i int) models.RemediationOutcome {
			return s.deleteOne(itemCtx, ids[i], actor)
		},
		func(i int, err error) models.RemediationOutcome {
			return models.RemediationOutcome{
				SubmissionID: ids[i],
				Status:       models.RemediationStatusFailed,
				Error:        err.Error(),
			}
		},
	)

	result := &models.BatchRemediationResult{
		Total:    len(ids),
		Outcomes: make([]models.RemediationOutcome, 0, len(ids)),
	}

	for i, outcome := range outcomes {
		if !started[i] {
			result.NotStarted = append(result.NotStarted, ids[i])
			continue
		}

		result.Outcomes = append(result.Outcomes, outcome)
		switch outcome.Status {
		case models.RemediationStatusDeleted:
			result.Deleted++
			result.Succeeded++
		case models.RemediationStatusAlreadyDeleted:
			result.AlreadyDeleted++
			result.Succeeded++
		default:
			result.Failed++
			result.FailedItems = append(result.FailedItems, models.FailedItem{
				SubmissionID: outcome.SubmissionID,
				Reason:       outcome.Error,
			})
		}
	}
	result.Cancelled = len(result.NotStarted) > 0

	s.logger.Info().
		Str("actor", actor).
		Int("total", result.Total).
		Int("deleted", result.Deleted).
		Int("already_deleted", result.AlreadyDeleted).
		Int("failed", result.Failed).
		Int("not_started", len(result.NotStarted)).
		Msg("Bulk delete completed")

	return result, nil
}

// deleteOne is the single path both entry points use. It never returns an
// error; failures are part of the outcome.
func (s *remediationService) deleteOne(ctx context.Context, id, actor string) models.RemediationOutcome {
	outcome := models.RemediationOutcome{SubmissionID: id}
	logger := s.logger.With().Str("submission_id", id).Str("actor", actor).Logger()

	deleted, err := s.store.Delete(ctx, id)
	switch {
	case err == nil:
		outcome.Status = models.RemediationStatusDeleted
		outcome.Success = true
		logger.Info().Msg("Submission deleted")

	case errors.Is(err, models.ErrNotFound):
		outcome.Status = models.RemediationStatusAlreadyDeleted
		outcome.Success = true
		logger.Info().Msg("Submission already deleted")

	default:
		outcome.Status = models.RemediationStatusFailed
		outcome.Error = err.Error()
		logger.Error().Err(err).Msg("Failed to delete submission")
	}

	entry := models.AuditEntry{
		Actor:        actor,
		Action:       models.AuditActionSubmissionDelete,
		ResourceKind: models.AuditResourceSubmission,
		ResourceID:   id,
		Outcome:      outcome.Status.String(),
		Detail:       outcome.Error,
	}
	s.audit.Record(ctx, entry)

	if deleted != nil {
		event := models.SubmissionDeletedEvent{
			SubmissionID: id,
			AssignmentID: deleted.AssignmentID,
			FileURL:      deleted.FileURL,
			Actor:        actor,
			DeletedAt:    time.Now().UTC(),
			Source:       models.DefaultEventSourceSystem,
		}
		if err := s.publisher.PublishSubmissionDeleted(context.WithoutCancel(ctx), event); err != nil {
			logger.Error().Err(err).Msg("Failed to publish deletion event")
		}
	}

	return outcome
}

// normalizeIDs trims ids and drops repeats, keeping first-occurrence order.
func (s *remediationService) normalizeIDs(submissionIDs []string) ([]string, error) {
	if len(submissionIDs) == 0 {
		return nil, models.NewValidationError("submission_ids", "at least one submission id is required")
	}

	seen := make(map[string]struct{}, len(submissionIDs))
	ids := make([]string, 0, len(submissionIDs))
	for _, raw := range submissionIDs {
		id := strings.TrimSpace(raw)
		if id == "" {
			return nil, models.NewValidationError("submission_ids", "must not contain empty ids")
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	if s.maxBatchSize > 0 && len(ids) > s.maxBatchSize {
		return nil, models.NewValidationError("submission_ids", "batch size exceeds limit")
	}

	return ids, nil
}

func validateActor(actor string) error {
	if strings.TrimSpace(actor) == "" {
		return models.NewValidationError("actor", "is required")
	}
	return nil
}
