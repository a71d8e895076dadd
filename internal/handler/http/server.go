package http

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"SiteStats-Backend/internal/analytics"
	"SiteStats-Backend/internal/auth"
	"SiteStats-Backend/internal/repository"
)

// Server wires every HTTP handler onto one mux.
type Server struct {
	authHandlers     *auth.AuthHandlers
	analyticsHandler *AnalyticsHandler
	apiHandler       *APIHandler
	trackHandler     *TrackHandler
	healthHandler    *HealthHandler
	authMiddleware   *auth.Middleware
	log              *zap.Logger
}

// NewServer builds the handlers and middleware on top of the shared
// services.
func NewServer(
	storage repository.Storage,
	reports *analytics.Reports,
	ingestor *analytics.Ingestor,
	jwtService *auth.JWTService,
	passwordService *auth.PasswordService,
	log *zap.Logger,
	pageSize int,
	loc *time.Location,
) *Server {
	authHandlers := auth.NewAuthHandlers(storage, jwtService, passwordService, log)
	analyticsHandler := NewAnalyticsHandler(reports, log, pageSize, loc)
	apiHandler := NewAPIHandler(reports, log, loc)
	trackHandler := NewTrackHandler(ingestor, log)
	healthHandler := NewHealthHandler(storage, ingestor, log)

	authMiddleware := auth.NewMiddleware(jwtService, log)

	return &Server{
		authHandlers:     authHandlers,
		analyticsHandler: analyticsHandler,
		apiHandler:       apiHandler,
		trackHandler:     trackHandler,
		healthHandler:    healthHandler,
		authMiddleware:   authMiddleware,
		log:              log,
	}
}

// SetupRoutes registers all endpoints and returns the root handler.
func (s *Server) SetupRoutes() http.Handler {
	mux := http.NewServeMux()

	// Health checks, no authentication
	mux.HandleFunc("/health", s.healthHandler.Health)
	mux.HandleFunc("/ready", s.healthHandler.Ready)
	mux.HandleFunc("/metrics", s.healthHandler.Metrics)

	// Auth endpoints, no authentication
	mux.HandleFunc("/api/auth/login", s.withCORS(s.authHandlers.Login))

	// Public tracking and query API
	mux.HandleFunc("/api/track", s.withCORS(s.trackHandler.Track))
	mux.HandleFunc("/api/analytics", s.withCORS(s.apiHandler.Query))

	// Dashboard endpoints, authenticated
	mux.HandleFunc("/admin/analytics/summary", s.withCORS(s.authMiddleware.RequireAuth(s.analyticsHandler.Summary)))
	mux.HandleFunc("/admin/analytics/trends", s.withCORS(s.authMiddleware.RequireAuth(s.analyticsHandler.Trends)))
	mux.HandleFunc("/admin/analytics/visitors", s.withCORS(s.authMiddleware.RequireAuth(s.analyticsHandler.Visitors)))
	mux.HandleFunc("/admin/analytics/reports", s.withCORS(s.authMiddleware.RequireAuth(s.analyticsHandler.Reports)))
	mux.HandleFunc("/admin/analytics/export", s.withCORS(s.authMiddleware.RequireAuth(s.analyticsHandler.Export)))

	return mux
}

// TrackingMiddleware wraps an arbitrary handler so every visitor-facing
// GET it serves is recorded as a page view.
func (s *Server) TrackingMiddleware(next http.Handler) http.Handler {
	return s.trackHandler.Middleware(next)
}

// withCORS adds CORS headers to a handler.
func (s *Server) withCORS(handler http.HandlerFunc) http.HandlerFunc {
	return s.authMiddleware.CORS(handler)
}
