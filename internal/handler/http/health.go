package http

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"SiteStats-Backend/internal/analytics"
	"SiteStats-Backend/internal/repository"
)

// HealthHandler serves liveness, readiness and runtime counters.
type HealthHandler struct {
	storage   repository.Storage
	ingestor  *analytics.Ingestor
	log       *zap.Logger
	startedAt time.Time
}

func NewHealthHandler(storage repository.Storage, ingestor *analytics.Ingestor, log *zap.Logger) *HealthHandler {
	return &HealthHandler{
		storage:   storage,
		ingestor:  ingestor,
		log:       log,
		startedAt: time.Now(),
	}
}

// Health probes storage with a lookup that is expected to miss. Any
// error other than a clean not-found means the backend is unhealthy.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	_, err := h.storage.GetAdminByEmail(r.Context(), "health-check-non-existent")
	if err != nil && !errors.Is(err, repository.ErrAdminNotFound) {
		h.log.Error("health check failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "unhealthy", "Storage is not reachable")
		return
	}

	writeData(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(h.startedAt).Round(time.Second).String(),
	})
}

// Ready reports whether the process is accepting traffic.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]interface{}{"status": "ready"})
}

// Metrics exposes ingestion counters for operators.
func (h *HealthHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	stats := h.ingestor.Stats()
	stats["uptime"] = time.Since(h.startedAt).Round(time.Second).String()
	writeData(w, http.StatusOK, stats)
}
