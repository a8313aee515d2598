package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/models"
)

// SubmissionRepository is the read side of the submission catalog.
type SubmissionRepository interface {
	Query(ctx context.Context, scope models.Scope) ([]*models.Submission, error)
	GetByID(ctx context.Context, id string) (*models.Submission, error)
	AssignmentExists(ctx context.Context, id string) (bool, error)
	Ping(ctx context.Context) error
}

type submissionRepository struct {
	*PostgresRepository
}

func NewSubmissionRepository(db *sql.DB, logger zerolog.Logger) SubmissionRepository {
	return &submissionRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

// Query returns submissions in scope ordered by submission time, then id.
func (r *submissionRepository) Query(ctx context.Context, scope models.Scope) ([]*models.Submission, error) {
	where, args := scopeWhere(scope, 1)
	query := fmt.Sprintf(`SELECT %s %s %s ORDER BY s.submitted_at ASC, s.id ASC`,
		submissionColumns, submissionFrom, where)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}

	return scanSubmissions(rows)
}

func (r *submissionRepository) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	if !validID(id) {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT %s %s WHERE s.id = $1`, submissionColumns, submissionFrom)

	sub, err := scanSubmission(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	return sub, nil
}

func (r *submissionRepository) AssignmentExists(ctx context.Context, id string) (bool, error) {
	if !validID(id) {
		return false, nil
	}

	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM assignments WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check assignment: %w", err)
	}

	return exists, nil
}
