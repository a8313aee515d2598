package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/models"
)

const (
	ExportFormatCSV  = "csv"
	ExportFormatJSON = "json"
)

var exportHeader = []string{
	"group_id", "group_size", "algorithm", "content_hash", "file_size",
	"confidence", "reason", "submission_id", "student_name", "register_number",
	"class_year", "assignment_id", "file_name", "submitted_at",
}

type ExportService interface {
	Export(ctx context.Context, w io.Writer, format string, scope models.Scope, minSimilarity *float64) (int, error)
}

type exportService struct {
	detection DetectionService
	logger    zerolog.Logger
}

func NewExportService(detection DetectionService, logger zerolog.Logger) ExportService {
	return &exportService{
		detection: detection,
		logger:    logger,
	}
}

// Export runs detection and writes one row per group member. It returns the
// number of rows written.
func (s *exportService) Export(ctx context.Context, w io.Writer, format string, scope models.Scope, minSimilarity *float64) (int, error) {
	if format != ExportFormatCSV && format != ExportFormatJSON {
		return 0, models.NewValidationError("format", fmt.Sprintf("unsupported export format %q", format))
	}

	report, err := s.detection.Detect(ctx, scope, minSimilarity)
	if err != nil {
		return 0, err
	}

	rows := FlattenGroups(report.Groups)

	switch format {
	case ExportFormatJSON:
		err = WriteJSON(w, rows)
	default:
		err = WriteCSV(w, rows)
	}
	if err != nil {
		return 0, err
	}

	s.logger.Info().
		Str("scope", scope.Key()).
		Str("format", format).
		Int("rows", len(rows)).
		Msg("Duplicate groups exported")

	return len(rows), nil
}

// FlattenGroups keeps group order and member order.
func FlattenGroups(groups []models.SuspiciousGroup) []models.ExportRow {
	rows := make([]models.ExportRow, 0)
	for _, g := range groups {
		for _, m := range g.Members {
			rows = append(rows, models.ExportRow{
				GroupID:        g.ID,
				GroupSize:      g.Size,
				Algorithm:      g.Fingerprint.Algorithm,
				ContentHash:    g.Fingerprint.Hash,
				FileSize:       g.Fingerprint.Size,
				Confidence:     g.Confidence,
				Reason:         g.Reason,
				SubmissionID:   m.SubmissionID,
				StudentName:    m.StudentName,
				RegisterNumber: m.RegisterNumber,
				ClassYear:      m.ClassYear,
				AssignmentID:   m.AssignmentID,
				FileName:       m.FileName,
				SubmittedAt:    m.SubmittedAt,
			})
		}
	}
	return rows
}

func WriteCSV(w io.Writer, rows []models.ExportRow) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, r := range rows {
		record := []string{
			r.GroupID,
			strconv.Itoa(r.GroupSize),
			r.Algorithm,
			r.ContentHash,
			strconv.FormatInt(r.FileSize, 10),
			strconv.FormatFloat(r.Confidence, 'f', 2, 64),
			r.Reason,
			r.SubmissionID,
			r.StudentName,
			r.RegisterNumber,
			r.ClassYear,
			r.AssignmentID,
			r.FileName,
			r.SubmittedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func WriteJSON(w io.Writer, rows []models.ExportRow) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("failed to encode rows: %w", err)
	}
	return nil
}
