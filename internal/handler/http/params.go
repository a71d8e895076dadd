package http

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"SiteStats-Backend/internal/domain"
)

const dateLayout = "2006-01-02"

// requestError is a parse failure that maps straight to an HTTP response.
type requestError struct {
	status  int
	code    string
	message string
}

// parseEventFilter builds the single filter shared by every query an
// endpoint issues. Explicit start/end dates win; otherwise a rolling
// range of N days ending today is used (default 7).
func parseEventFilter(r *http.Request, loc *time.Location) (domain.EventFilter, *requestError) {
	q := r.URL.Query()

	f := domain.EventFilter{
		Device:  strings.TrimSpace(q.Get("device")),
		Search:  strings.TrimSpace(q.Get("search")),
		PageURL: strings.TrimSpace(q.Get("page_url")),
	}

	startStr := strings.TrimSpace(q.Get("start"))
	endStr := strings.TrimSpace(q.Get("end"))

	if startStr != "" || endStr != "" {
		if startStr != "" {
			t, err := time.ParseInLocation(dateLayout, startStr, loc)
			if err != nil {
				return f, &requestError{http.StatusBadRequest, "invalid_date", "start must be formatted as YYYY-MM-DD"}
			}
			f.From = &t
		}
		if endStr != "" {
			t, err := time.ParseInLocation(dateLayout, endStr, loc)
			if err != nil {
				return f, &requestError{http.StatusBadRequest, "invalid_date", "end must be formatted as YYYY-MM-DD"}
			}
			f.To = &t
		}
	} else {
		days := 7
		if v := strings.TrimSpace(q.Get("range")); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				return f, &requestError{http.StatusBadRequest, "invalid_range", "range must be a positive number of days"}
			}
			days = n
		}
		now := time.Now().In(loc)
		from := now.AddDate(0, 0, -(days - 1))
		f.From = &from
		f.To = &now
	}

	f = f.Normalize()

	if err := f.Validate(); err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidDateRange):
			return f, &requestError{http.StatusBadRequest, "invalid_range", "start date is after end date"}
		case errors.Is(err, domain.ErrInvalidDevice):
			return f, &requestError{http.StatusBadRequest, "invalid_device", "device must be one of desktop, mobile, tablet"}
		default:
			return f, &requestError{http.StatusBadRequest, "invalid_filter", err.Error()}
		}
	}

	return f, nil
}

// parsePage reads the page number, accepting both "p" and "page".
// Anything non-numeric or below 1 falls back to the first page.
func parsePage(q url.Values) int {
	raw := q.Get("p")
	if raw == "" {
		raw = q.Get("page")
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// parseLimit reads an optional result cap; zero lets the caller pick its default.
func parseLimit(q url.Values) int {
	n, err := strconv.Atoi(q.Get("limit"))
	if err != nil || n < 1 {
		return 0
	}
	return n
}
