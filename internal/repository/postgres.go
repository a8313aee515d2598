package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/models"
)

type PostgresRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewPostgresRepository(db *sql.DB, logger zerolog.Logger) *PostgresRepository {
	return &PostgresRepository{
		db:     db,
		logger: logger,
	}
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return r.db.PingContext(ctx)
}

const submissionColumns = `
	s.id, s.assignment_id, s.student_id, st.name, st.register_number, st.class_year,
	s.file_url, s.file_name, s.submitted_at, s.status, s.grade,
	s.content_hash, s.file_size, s.hash_algorithm, s.hashed_at`

const submissionFrom = `
	FROM submissions s
	JOIN students st ON st.id = s.student_id`

// scopeWhere renders scope filters starting at placeholder $start.
func scopeWhere(scope models.Scope, start int, extra ...string) (string, []interface{}) {
	clauses := append([]string{}, extra...)
	args := []interface{}{}
	argCount := start

	if scope.AssignmentID != "" {
		clauses = append(clauses, fmt.Sprintf("s.assignment_id = $%d", argCount))
		args = append(args, scope.AssignmentID)
		argCount++
	}
	if scope.ClassYear != "" {
		clauses = append(clauses, fmt.Sprintf("UPPER(st.class_year) = UPPER($%d)", argCount))
		args = append(args, scope.ClassYear)
		argCount++
	}
	if scope.From != nil {
		clauses = append(clauses, fmt.Sprintf("s.submitted_at >= $%d", argCount))
		args = append(args, *scope.From)
		argCount++
	}
	if scope.To != nil {
		clauses = append(clauses, fmt.Sprintf("s.submitted_at <= $%d", argCount))
		args = append(args, *scope.To)
	}

	if len(clauses) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSubmission(row rowScanner) (*models.Submission, error) {
	var (
		sub       models.Submission
		status    string
		grade     sql.NullFloat64
		hashValue sql.NullString
		size      sql.NullInt64
		algorithm sql.NullString
		hashedAt  sql.NullTime
	)

	err := row.Scan(
		&sub.ID,
		&sub.AssignmentID,
		&sub.StudentID,
		&sub.StudentName,
		&sub.RegisterNumber,
		&sub.ClassYear,
		&sub.FileURL,
		&sub.FileName,
		&sub.SubmittedAt,
		&status,
		&grade,
		&hashValue,
		&size,
		&algorithm,
		&hashedAt,
	)
	if err != nil {
		return nil, err
	}

	sub.Status = models.SubmissionStatus(status)
	if grade.Valid {
		g := grade.Float64
		sub.Grade = &g
	}
	if hashValue.Valid && size.Valid && algorithm.Valid {
		sub.Fingerprint = &models.Fingerprint{
			Algorithm: algorithm.String,
			Hash:      hashValue.String,
			Size:      size.Int64,
			HashedAt:  hashedAt.Time,
		}
	}

	return &sub, nil
}

func scanSubmissions(rows *sql.Rows) ([]*models.Submission, error) {
	defer rows.Close()

	var submissions []*models.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		submissions = append(submissions, sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate submissions: %w", err)
	}

	return submissions, nil
}

// validID reports whether id can name a row at all. Submission and
// assignment keys are UUID columns.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
