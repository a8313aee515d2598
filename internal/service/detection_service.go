package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/models"
	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/repository"
	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/service/analyzer"
)

type DetectionService interface {
	// Detect groups submissions in scope by identical fingerprint. A nil
	// minSimilarity uses the configured default.
	Detect(ctx context.Context, scope models.Scope, minSimilarity *float64) (*models.DetectionReport, error)
}

type detectionService struct {
	catalog              repository.SubmissionRepository
	grouper              analyzer.Grouper
	defaultMinSimilarity float64
	logger               zerolog.Logger
}

func NewDetectionService(
	catalog repository.SubmissionRepository,
	grouper analyzer.Grouper,
	defaultMinSimilarity float64,
	logger zerolog.Logger,
) DetectionService {
	return &detectionService{
		catalog:              catalog,
		grouper:              grouper,
		defaultMinSimilarity: defaultMinSimilarity,
		logger:               logger,
	}
}

func (s *detectionService) Detect(ctx context.Context, scope models.Scope, minSimilarity *float64) (*models.DetectionReport, error) {
	threshold := s.defaultMinSimilarity
	if minSimilarity != nil {
		threshold = *minSimilarity
	}
	if err := analyzer.ValidateThreshold(threshold); err != nil {
		return nil, err
	}
	if err := validateScope(ctx, s.catalog, scope); err != nil {
		return nil, err
	}

	start := time.Now()

	submissions, err := s.catalog.Query(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}

	result := s.grouper.Group(scope, submissions, threshold)

	report := &models.DetectionReport{
		Scope:         scope,
		Method:        models.DetectionMethodExactHash,
		Algorithm:     s.grouper.Algorithm(),
		MinSimilarity: threshold,
		Groups:        result.Groups,
		Coverage:      result.Coverage,
		GeneratedAt:   time.Now().UTC(),
	}

	event := s.logger.Info()
	if !report.Coverage.Complete {
		event = s.logger.Warn()
	}
	event.
		Str("scope", scope.Key()).
		Int("submissions", report.Coverage.Total).
		Int("groups", len(report.Groups)).
		Int("flagged", report.FlaggedCount()).
		Int("excluded", report.Coverage.Excluded).
		Dur("duration", time.Since(start)).
		Msg("Duplicate detection completed")

	return report, nil
}
