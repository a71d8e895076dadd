package http

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"SiteStats-Backend/internal/analytics"
	"SiteStats-Backend/internal/repository"
)

// APIHandler serves the public read-only analytics API. Every request
// names one action and gets back a single dataset for the filtered
// window.
type APIHandler struct {
	reports *analytics.Reports
	log     *zap.Logger
	loc     *time.Location
}

func NewAPIHandler(reports *analytics.Reports, log *zap.Logger, loc *time.Location) *APIHandler {
	if loc == nil {
		loc = time.Local
	}
	return &APIHandler{
		reports: reports,
		log:     log,
		loc:     loc,
	}
}

// Query dispatches on the action query parameter.
func (h *APIHandler) Query(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only GET method is allowed")
		return
	}

	f, rerr := parseEventFilter(r, h.loc)
	if rerr != nil {
		writeError(w, rerr.status, rerr.code, rerr.message)
		return
	}

	q := r.URL.Query()
	action := q.Get("action")
	limit := parseLimit(q)
	agg := h.reports.Aggregator()

	var (
		data interface{}
		err  error
	)

	switch action {
	case "stats", "summary":
		data, err = h.reports.Summary(r.Context(), f)
	case "visits":
		data, err = agg.DailyTrend(r.Context(), f)
	case "hourly":
		data, err = agg.HourlyDistribution(r.Context(), f)
	case "devices":
		data, err = agg.TopBy(r.Context(), repository.DimensionDeviceType, f, limit)
	case "top_pages":
		data, err = agg.TopBy(r.Context(), repository.DimensionPageURL, f, limit)
	case "referrers":
		data, err = agg.TopBy(r.Context(), repository.DimensionReferrer, f, limit)
	case "browsers":
		data, err = agg.TopBy(r.Context(), repository.DimensionBrowser, f, limit)
	case "os":
		data, err = agg.TopBy(r.Context(), repository.DimensionOS, f, limit)
	default:
		writeError(w, http.StatusBadRequest, "unknown_action", fmt.Sprintf("Unknown action: %s", action))
		return
	}

	if err != nil {
		h.log.Error("analytics query failed", zap.String("action", action), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to load analytics data")
		return
	}

	writeData(w, http.StatusOK, data)
}
