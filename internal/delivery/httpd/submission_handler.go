package httpd

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/models"
)

func (h *Handler) DeleteSubmission(w http.ResponseWriter, r *http.Request) {
	submissionID := chi.URLParam(r, "submission_id")

	outcome, err := h.remediationService.DeleteOne(r.Context(), submissionID, actorFrom(r))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	if !outcome.Success {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"data":    outcome,
		})
		return
	}

	writeSuccess(w, outcome)
}

func (h *Handler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req models.BulkDeleteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if fields := h.validate.Struct(req); fields != nil {
		writeErrorWithFields(w, http.StatusBadRequest, "Invalid bulk delete request", fields)
		return
	}

	result, err := h.remediationService.DeleteMany(r.Context(), req.SubmissionIDs, actorFrom(r))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, result)
}
