package auth

import (
	"SiteStats-Backend/internal/repository"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// AuthHandlers serves the admin login endpoint. There is no registration:
// admin accounts are seeded from configuration.
type AuthHandlers struct {
	storage         repository.Storage
	jwtService      *JWTService
	passwordService *PasswordService
	log             *zap.Logger
}

// NewAuthHandlers creates the authentication handlers.
func NewAuthHandlers(storage repository.Storage, jwtService *JWTService, passwordService *PasswordService, log *zap.Logger) *AuthHandlers {
	return &AuthHandlers{
		storage:         storage,
		jwtService:      jwtService,
		passwordService: passwordService,
		log:             log,
	}
}

// LoginRequest is the login request body.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the successful login response body.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	Admin       AdminInfo `json:"admin"`
}

// AdminInfo identifies the authenticated admin.
type AdminInfo struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// Login authenticates an admin and issues a JWT.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only POST is allowed")
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug("invalid login request", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request format")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	admin, err := h.storage.GetAdminByEmail(r.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, repository.ErrAdminNotFound) {
			h.log.Error("failed to look up admin", zap.String("email", req.Email), zap.Error(err))
		}
		h.writeError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
		return
	}

	if err := h.passwordService.VerifyPassword(admin.PasswordHash, req.Password); err != nil {
		h.log.Debug("invalid password for admin", zap.String("email", req.Email))
		h.writeError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
		return
	}

	now := time.Now()
	admin.LastLoginAt = &now
	if err := h.storage.UpdateAdmin(r.Context(), admin); err != nil {
		h.log.Warn("failed to update last login time", zap.Int64("admin_id", admin.ID), zap.Error(err))
	}

	token, err := h.jwtService.GenerateToken(admin.ID, admin.Email)
	if err != nil {
		h.log.Error("failed to generate access token", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
		return
	}

	h.log.Info("admin logged in", zap.Int64("admin_id", admin.ID), zap.String("email", admin.Email))
	h.writeJSON(w, LoginResponse{
		AccessToken: token,
		Admin:       AdminInfo{ID: admin.ID, Email: admin.Email},
	}, http.StatusOK)
}

// Helper methods

func (h *AuthHandlers) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "data": data}); err != nil {
		h.log.Error("failed to encode response", zap.Error(err))
	}
}

func (h *AuthHandlers) writeError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   map[string]string{"code": code, "message": message},
	})
}
