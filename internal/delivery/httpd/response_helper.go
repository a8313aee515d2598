package httpd

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeErrorWithFields(w, status, message, nil)
}

func writeErrorWithFields(w http.ResponseWriter, status int, message string, fields map[string]string) {
	body := map[string]interface{}{
		"code":    status,
		"message": message,
		"type":    http.StatusText(status),
	}
	if len(fields) > 0 {
		body["fields"] = fields
	}

	response := map[string]interface{}{
		"error":     body,
		"success":   false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	writeJSON(w, status, response)
}

func writeSuccess(w http.ResponseWriter, data interface{}) {
	response := map[string]interface{}{
		"success":   true,
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	var validationErr *models.ValidationError

	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Error())
	case errors.Is(err, models.ErrNotFound):
		writeError(w, http.StatusNotFound, "Submission not found")
	case errors.Is(err, models.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		h.logger.Error().Err(err).Msg("Request timed out")
		writeError(w, http.StatusGatewayTimeout, "Request timed out")
	default:
		h.logger.Error().Err(err).Msg("Request failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func actorFrom(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(ActorHeader))
}

// scopeFromQuery reads assignment_id, class_year, date_from and date_to.
// A bare date in date_to covers the whole day.
func scopeFromQuery(r *http.Request) (models.ScopeRequest, error) {
	q := r.URL.Query()
	req := models.ScopeRequest{
		AssignmentID: strings.TrimSpace(q.Get("assignment_id")),
		ClassYear:    strings.TrimSpace(q.Get("class_year")),
	}

	from, err := models.NewScopeDate(q.Get("date_from"))
	if err != nil {
		return req, models.NewValidationError("date_from", err.Error())
	}
	to, err := models.NewScopeDate(q.Get("date_to"))
	if err != nil {
		return req, models.NewValidationError("date_to", err.Error())
	}
	req.DateFrom, req.DateTo = from, to

	return req, nil
}

func floatQueryParam(r *http.Request, key string) (*float64, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, models.NewValidationError(key, "must be a number")
	}
	return &f, nil
}
