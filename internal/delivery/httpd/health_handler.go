package httpd

import (
	"context"
	"net/http"
	"time"
)

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	pools := make([]map[string]interface{}, 0, len(h.pools))
	for _, p := range h.pools {
		pools = append(pools, p.Stats())
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"service":   "duplicate-service",
		"pools":     pools,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.catalog.Ping(ctx); err != nil {
		h.logger.Error().Err(err).Msg("Readiness check failed")
		writeError(w, http.StatusServiceUnavailable, "Catalog store unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ready",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
