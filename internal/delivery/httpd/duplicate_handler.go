package httpd

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/models"
	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/service"
)

func (h *Handler) Detect(w http.ResponseWriter, r *http.Request) {
	var req models.DetectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if fields := h.validate.Struct(req); fields != nil {
		writeErrorWithFields(w, http.StatusBadRequest, "Invalid detection request", fields)
		return
	}

	report, err := h.detectionService.Detect(r.Context(), req.Scope(), req.MinSimilarity)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, report)
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	req, err := scopeFromQuery(r)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	if fields := h.validate.Struct(req); fields != nil {
		writeErrorWithFields(w, http.StatusBadRequest, "Invalid scope", fields)
		return
	}

	minSimilarity, err := floatQueryParam(r, "min_similarity")
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = service.ExportFormatCSV
	}

	// Buffered so a failed detection still yields a JSON error response.
	var buf bytes.Buffer
	if _, err := h.exportService.Export(r.Context(), &buf, format, req.Scope(), minSimilarity); err != nil {
		h.handleServiceError(w, err)
		return
	}

	contentType := "text/csv; charset=utf-8"
	if format == service.ExportFormatJSON {
		contentType = "application/json"
	}
	filename := fmt.Sprintf("duplicates_%s.%s", time.Now().UTC().Format("20060102_150405"), format)

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
