package httpd

import (
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/repository"
	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/service"
	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/worker"
)

const ActorHeader = "X-Actor-ID"

type Handler struct {
	backfillService    service.BackfillService
	detectionService   service.DetectionService
	remediationService service.RemediationService
	exportService      service.ExportService
	catalog            repository.SubmissionRepository
	pools              []*worker.Pool
	validate           *requestValidator
	logger             zerolog.Logger
}

func NewHandler(
	backfillService service.BackfillService,
	detectionService service.DetectionService,
	remediationService service.RemediationService,
	exportService service.ExportService,
	catalog repository.SubmissionRepository,
	pools []*worker.Pool,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		backfillService:    backfillService,
		detectionService:   detectionService,
		remediationService: remediationService,
		exportService:      exportService,
		catalog:            catalog,
		pools:              pools,
		validate:           newRequestValidator(),
		logger:             logger,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/health", h.HealthCheck)
	router.Get("/ready", h.ReadinessCheck)

	router.Route("/api/v1", func(api chi.Router) {
		api.Route("/fingerprints", func(r chi.Router) {
			r.Post("/backfill", h.Backfill)
			r.Get("/coverage", h.Coverage)
			r.Get("/{submission_id}", h.GetFingerprint)
		})

		api.Route("/duplicates", func(r chi.Router) {
			r.Post("/detect", h.Detect)
			r.Get("/export", h.Export)
		})

		api.Route("/submissions", func(r chi.Router) {
			r.Delete("/{submission_id}", h.DeleteSubmission)
			r.Post("/bulk-delete", h.BulkDelete)
		})
	})
}
