package http

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"SiteStats-Backend/internal/analytics"
	"SiteStats-Backend/pkg/realip"
)

const sessionCookieName = "visitor_session"

// TrackHandler accepts page view beacons and hands them to the ingestor.
// Recording never blocks the response; a full queue silently drops.
type TrackHandler struct {
	ingestor *analytics.Ingestor
	log      *zap.Logger
}

func NewTrackHandler(ingestor *analytics.Ingestor, log *zap.Logger) *TrackHandler {
	return &TrackHandler{
		ingestor: ingestor,
		log:      log,
	}
}

// Track records one page view and returns no content. The page URL comes
// from the page_url parameter, falling back to the path of the Referer
// header so a plain image beacon works too.
func (h *TrackHandler) Track(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only GET and POST methods are allowed")
		return
	}

	pageURL := strings.TrimSpace(r.URL.Query().Get("page_url"))
	referrer := strings.TrimSpace(r.URL.Query().Get("referrer"))

	if pageURL == "" {
		if ref := r.Referer(); ref != "" {
			if u, err := url.Parse(ref); err == nil && u.Path != "" {
				pageURL = u.Path
			}
		}
	}
	if pageURL == "" {
		pageURL = "/"
	}

	h.ingestor.Track(&analytics.PageView{
		IPAddress: realip.FromRequest(r),
		UserAgent: r.UserAgent(),
		PageURL:   pageURL,
		Referrer:  referrer,
		SessionID: h.sessionID(w, r),
	})

	w.WriteHeader(http.StatusNoContent)
}

// Middleware records every successful GET page request served by next.
// System paths, assets and the API itself are skipped.
func (h *TrackHandler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && !isSystemPath(r.URL.Path) {
			h.ingestor.Track(&analytics.PageView{
				IPAddress: realip.FromRequest(r),
				UserAgent: r.UserAgent(),
				PageURL:   r.URL.Path,
				Referrer:  r.Referer(),
				SessionID: h.sessionID(w, r),
			})
		}
		next.ServeHTTP(w, r)
	})
}

// sessionID returns the visitor session cookie, minting one when absent.
func (h *TrackHandler) sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// isSystemPath reports whether a path belongs to infrastructure rather
// than visitor-facing content.
func isSystemPath(path string) bool {
	prefixes := []string{
		"/api/",
		"/admin/",
		"/health",
		"/ready",
		"/metrics",
		"/favicon",
		"/robots.txt",
		"/static/",
		"/assets/",
	}
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
