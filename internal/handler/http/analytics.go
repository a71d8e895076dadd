package http

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"SiteStats-Backend/internal/analytics"
	"SiteStats-Backend/internal/repository"
)

// AnalyticsHandler serves the authenticated dashboard endpoints.
type AnalyticsHandler struct {
	reports  *analytics.Reports
	log      *zap.Logger
	pageSize int
	loc      *time.Location
}

func NewAnalyticsHandler(reports *analytics.Reports, log *zap.Logger, pageSize int, loc *time.Location) *AnalyticsHandler {
	if pageSize <= 0 {
		pageSize = analytics.DefaultPageSize
	}
	if loc == nil {
		loc = time.Local
	}
	return &AnalyticsHandler{
		reports:  reports,
		log:      log,
		pageSize: pageSize,
		loc:      loc,
	}
}

// Summary returns the headline counters for the filtered window.
func (h *AnalyticsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only GET method is allowed")
		return
	}

	f, rerr := parseEventFilter(r, h.loc)
	if rerr != nil {
		writeError(w, rerr.status, rerr.code, rerr.message)
		return
	}

	summary, err := h.reports.Summary(r.Context(), f)
	if err != nil {
		h.log.Error("failed to build summary", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to load summary")
		return
	}

	writeData(w, http.StatusOK, summary)
}

// Trends returns the daily series, hourly distribution and device split.
func (h *AnalyticsHandler) Trends(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only GET method is allowed")
		return
	}

	f, rerr := parseEventFilter(r, h.loc)
	if rerr != nil {
		writeError(w, rerr.status, rerr.code, rerr.message)
		return
	}

	trends, err := h.reports.Trends(r.Context(), f)
	if err != nil {
		h.log.Error("failed to build trends", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to load trends")
		return
	}

	writeData(w, http.StatusOK, trends)
}

// Visitors returns one page of the raw visitor log.
func (h *AnalyticsHandler) Visitors(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only GET method is allowed")
		return
	}

	f, rerr := parseEventFilter(r, h.loc)
	if rerr != nil {
		writeError(w, rerr.status, rerr.code, rerr.message)
		return
	}

	page := parsePage(r.URL.Query())

	result, err := h.reports.VisitorLog(r.Context(), f, page, h.pageSize)
	if err != nil {
		h.log.Error("failed to load visitor log", zap.Error(err), zap.Int("page", page))
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to load visitor log")
		return
	}

	writeData(w, http.StatusOK, result)
}

var reportDimensions = map[string]repository.Dimension{
	"browser":  repository.DimensionBrowser,
	"os":       repository.DimensionOS,
	"referrer": repository.DimensionReferrer,
	"page_url": repository.DimensionPageURL,
	"device":   repository.DimensionDeviceType,
}

// Reports returns either the full breakdown set or, when a dimension
// parameter is present, a single top-N ranking.
func (h *AnalyticsHandler) Reports(w http.ResponseWriter, r *http.Request) {
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

	if name := q.Get("dimension"); name != "" {
		dim, ok := reportDimensions[name]
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_dimension", fmt.Sprintf("Unknown dimension: %s", name))
			return
		}

		rows, err := h.reports.Aggregator().TopBy(r.Context(), dim, f, parseLimit(q))
		if err != nil {
			h.log.Error("failed to build dimension report", zap.Error(err), zap.String("dimension", name))
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to load report")
			return
		}

		writeData(w, http.StatusOK, rows)
		return
	}

	breakdowns, err := h.reports.Breakdowns(r.Context(), f, parseLimit(q))
	if err != nil {
		h.log.Error("failed to build breakdowns", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to load reports")
		return
	}

	writeData(w, http.StatusOK, breakdowns)
}

// Export streams the filtered visitor log as a CSV attachment.
func (h *AnalyticsHandler) Export(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only GET method is allowed")
		return
	}

	f, rerr := parseEventFilter(r, h.loc)
	if rerr != nil {
		writeError(w, rerr.status, rerr.code, rerr.message)
		return
	}

	fileName := analytics.ExportFileName(time.Now().In(h.loc))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))

	if err := h.reports.ExportCSV(r.Context(), f, w); err != nil {
		// The header is already on the wire, so the best we can do
		// is cut the stream short and log the reason.
		h.log.Error("visitor log export aborted", zap.Error(err))
	}
}
