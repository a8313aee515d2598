package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/models"
)

type AuditRepository interface {
	Create(ctx context.Context, entry *models.AuditEntry) error
	ListByResource(ctx context.Context, kind, id string) ([]*models.AuditEntry, error)
}

type auditRepository struct {
	*PostgresRepository
}

func NewAuditRepository(db *sql.DB, logger zerolog.Logger) AuditRepository {
	return &auditRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

func (r *auditRepository) Create(ctx context.Context, entry *models.AuditEntry) error {
	prepareAuditEntry(entry)

	query := `
		INSERT INTO audit_logs (id, actor, action, resource_kind, resource_id, outcome, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.Actor,
		entry.Action,
		entry.ResourceKind,
		entry.ResourceID,
		entry.Outcome,
		entry.Detail,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit entry: %w", err)
	}

	return nil
}

func (r *auditRepository) ListByResource(ctx context.Context, kind, id string) ([]*models.AuditEntry, error) {
	query := `
		SELECT id, actor, action, resource_kind, resource_id, outcome, COALESCE(detail, ''), created_at
		FROM audit_logs
		WHERE resource_kind = $1 AND resource_id = $2
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, kind, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.ID, &e.Actor, &e.Action, &e.ResourceKind, &e.ResourceID, &e.Outcome, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, &e)
	}

	return entries, rows.Err()
}

func prepareAuditEntry(entry *models.AuditEntry) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
}
