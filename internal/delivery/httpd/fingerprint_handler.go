package httpd

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/models"
	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/service"
)

func (h *Handler) Backfill(w http.ResponseWriter, r *http.Request) {
	var req models.BackfillRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if fields := h.validate.Struct(req); fields != nil {
		writeErrorWithFields(w, http.StatusBadRequest, "Invalid backfill request", fields)
		return
	}

	report, err := h.backfillService.Backfill(r.Context(), service.BackfillOptions{
		Scope:       req.Scope(),
		ForceRehash: req.ForceRehash,
		Actor:       actorFrom(r),
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, report)
}

func (h *Handler) Coverage(w http.ResponseWriter, r *http.Request) {
	req, err := scopeFromQuery(r)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	if fields := h.validate.Struct(req); fields != nil {
		writeErrorWithFields(w, http.StatusBadRequest, "Invalid scope", fields)
		return
	}

	counts, err := h.backfillService.Coverage(r.Context(), req.Scope())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, map[string]interface{}{
		"scope":    req.Scope(),
		"coverage": counts,
		"complete": counts.WithoutHash == 0,
	})
}

func (h *Handler) GetFingerprint(w http.ResponseWriter, r *http.Request) {
	submissionID := chi.URLParam(r, "submission_id")

	fp, err := h.backfillService.GetFingerprint(r.Context(), submissionID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, map[string]interface{}{
		"submission_id": submissionID,
		"fingerprint":   fp,
		"hashed":        fp != nil,
	})
}
