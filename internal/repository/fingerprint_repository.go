package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/models"
)

// FingerprintRepository owns the fingerprint columns of the catalog and the
// lifecycle of submission rows. A fingerprint is written once; replacing it
// requires an explicit InvalidateFingerprint first.
type FingerprintRepository interface {
	GetFingerprint(ctx context.Context, id string) (*models.Fingerprint, error)
	SetFingerprint(ctx context.Context, id string, fp models.Fingerprint) error
	InvalidateFingerprint(ctx context.Context, id string) error
	ListMissing(ctx context.Context, scope models.Scope) ([]*models.Submission, error)
	Coverage(ctx context.Context, scope models.Scope, algorithm string) (models.CoverageCounts, error)
	Delete(ctx context.Context, id string) (*models.Submission, error)
}

type fingerprintRepository struct {
	*PostgresRepository
}

func NewFingerprintRepository(db *sql.DB, logger zerolog.Logger) FingerprintRepository {
	return &fingerprintRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

// GetFingerprint returns nil without error when the submission exists but has
// not been hashed yet.
func (r *fingerprintRepository) GetFingerprint(ctx context.Context, id string) (*models.Fingerprint, error) {
	if !validID(id) {
		return nil, models.ErrNotFound
	}

	query := `
		SELECT content_hash, file_size, hash_algorithm, hashed_at
		FROM submissions
		WHERE id = $1
	`

	var (
		hashValue sql.NullString
		size      sql.NullInt64
		algorithm sql.NullString
		hashedAt  sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, query, id).Scan(&hashValue, &size, &algorithm, &hashedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fingerprint: %w", err)
	}

	if !hashValue.Valid {
		return nil, nil
	}

	return &models.Fingerprint{
		Algorithm: algorithm.String,
		Hash:      hashValue.String,
		Size:      size.Int64,
		HashedAt:  hashedAt.Time,
	}, nil
}

func (r *fingerprintRepository) SetFingerprint(ctx context.Context, id string, fp models.Fingerprint) error {
	if !validID(id) {
		return models.ErrNotFound
	}

	hashedAt := fp.HashedAt
	if hashedAt.IsZero() {
		hashedAt = time.Now().UTC()
	}

	query := `
		UPDATE submissions
		SET content_hash = $2, file_size = $3, hash_algorithm = $4, hashed_at = $5
		WHERE id = $1 AND content_hash IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, id, fp.Hash, fp.Size, fp.Algorithm, hashedAt)
	if err != nil {
		return fmt.Errorf("failed to set fingerprint: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 1 {
		return nil
	}

	// Either the row is gone or it already carries a fingerprint.
	existing, err := r.GetFingerprint(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("fingerprint for %s changed concurrently", id)
	}
	if existing.Equal(fp) {
		return nil
	}

	return &models.ConflictError{SubmissionID: id, Existing: *existing, Proposed: fp}
}

func (r *fingerprintRepository) InvalidateFingerprint(ctx context.Context, id string) error {
	if !validID(id) {
		return models.ErrNotFound
	}

	query := `
		UPDATE submissions
		SET content_hash = NULL, file_size = NULL, hash_algorithm = NULL, hashed_at = NULL
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to invalidate fingerprint: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return models.ErrNotFound
	}

	return nil
}

func (r *fingerprintRepository) ListMissing(ctx context.Context, scope models.Scope) ([]*models.Submission, error) {
	where, args := scopeWhere(scope, 1, "s.content_hash IS NULL")
	query := fmt.Sprintf(`SELECT %s %s %s ORDER BY s.submitted_at ASC, s.id ASC`,
		submissionColumns, submissionFrom, where)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions without fingerprint: %w", err)
	}

	return scanSubmissions(rows)
}

// Coverage counts fingerprints of the given algorithm as present; other
// algorithms are reported as stale and count towards WithoutHash.
func (r *fingerprintRepository) Coverage(ctx context.Context, scope models.Scope, algorithm string) (models.CoverageCounts, error) {
	where, args := scopeWhere(scope, 2)
	query := fmt.Sprintf(`
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE s.content_hash IS NOT NULL AND s.hash_algorithm = $1),
			COUNT(*) FILTER (WHERE s.content_hash IS NOT NULL AND s.hash_algorithm <> $1)
		%s %s`, submissionFrom, where)

	var counts models.CoverageCounts
	err := r.db.QueryRowContext(ctx, query, append([]interface{}{algorithm}, args...)...).
		Scan(&counts.Total, &counts.WithHash, &counts.Stale)
	if err != nil {
		return counts, fmt.Errorf("failed to count coverage: %w", err)
	}

	counts.WithoutHash = counts.Total - counts.WithHash
	return counts, nil
}

// Delete removes the submission together with its fingerprint and returns the
// removed row. A second call for the same id yields ErrNotFound.
func (r *fingerprintRepository) Delete(ctx context.Context, id string) (*models.Submission, error) {
	if !validID(id) {
		return nil, models.ErrNotFound
	}

	query := `
		DELETE FROM submissions
		WHERE id = $1
		RETURNING id, assignment_id, student_id, file_url, file_name, submitted_at
	`

	var sub models.Submission
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&sub.ID,
		&sub.AssignmentID,
		&sub.StudentID,
		&sub.FileURL,
		&sub.FileName,
		&sub.SubmittedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete submission: %w", err)
	}

	r.logger.Debug().Str("submission_id", id).Msg("Submission row deleted")

	return &sub, nil
}
