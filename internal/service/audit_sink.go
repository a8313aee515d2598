package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/models"
	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/repository"
)

// AuditSink records audit entries. Failures are logged and swallowed so the
// caller's result never depends on the audit log being writable.
type AuditSink interface {
	Record(ctx context.Context, entry models.AuditEntry)
}

type auditSink struct {
	repo    repository.AuditRepository
	timeout time.Duration
	logger  zerolog.Logger
}

func NewAuditSink(repo repository.AuditRepository, timeout time.Duration, logger zerolog.Logger) AuditSink {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &auditSink{
		repo:    repo,
		timeout: timeout,
		logger:  logger,
	}
}

func (s *auditSink) Record(ctx context.Context, entry models.AuditEntry) {
	// Cancelling the caller must not drop the entry for work already done.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	if err := s.repo.Create(writeCtx, &entry); err != nil {
		s.logger.Error().
			Err(err).
			Str("actor", entry.Actor).
			Str("action", entry.Action).
			Str("resource_id", entry.ResourceID).
			Str("outcome", entry.Outcome).
			Msg("Failed to write audit entry")
	}
}
