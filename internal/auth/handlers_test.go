package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"SiteStats-Backend/internal/domain"
	"SiteStats-Backend/internal/repository/memory"
)

func setupLogin(t *testing.T) (*AuthHandlers, *JWTService) {
	t.Helper()

	storage := memory.New(time.UTC)
	passwordService := NewPasswordServiceWithCost(4)
	jwtService := NewJWTService(&JWTConfig{
		SecretKey: []byte("test-secret"),
		TokenTTL:  time.Hour,
		Issuer:    "test",
	})

	hash, err := passwordService.HashPassword("correct-password")
	require.NoError(t, err)
	require.NoError(t, storage.CreateAdmin(context.Background(), &domain.AdminUser{
		Email:        "admin@example.org",
		PasswordHash: hash,
		IsActive:     true,
	}))

	return NewAuthHandlers(storage, jwtService, passwordService, zap.NewNop()), jwtService
}

func postLogin(t *testing.T, h *AuthHandlers, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(raw))
	w := httptest.NewRecorder()
	h.Login(w, r)
	return w
}

func TestAuthHandlers_Login_Success(t *testing.T) {
	h, jwtService := setupLogin(t)

	w := postLogin(t, h, LoginRequest{Email: "admin@example.org", Password: "correct-password"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			AccessToken string    `json:"access_token"`
			Admin       AdminInfo `json:"admin"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "admin@example.org", resp.Data.Admin.Email)

	claims, err := jwtService.ValidateToken(resp.Data.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.org", claims.Email)
}

func TestAuthHandlers_Login_EmailIsCaseInsensitive(t *testing.T) {
	h, _ := setupLogin(t)

	w := postLogin(t, h, LoginRequest{Email: "  Admin@Example.ORG ", Password: "correct-password"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthHandlers_Login_WrongPassword(t *testing.T) {
	h, _ := setupLogin(t)

	w := postLogin(t, h, LoginRequest{Email: "admin@example.org", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_credentials")
}

func TestAuthHandlers_Login_UnknownEmail(t *testing.T) {
	h, _ := setupLogin(t)

	w := postLogin(t, h, LoginRequest{Email: "ghost@example.org", Password: "correct-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	// same response as a wrong password, no account enumeration
	assert.Contains(t, w.Body.String(), "invalid_credentials")
}

func TestAuthHandlers_Login_MalformedBody(t *testing.T) {
	h, _ := setupLogin(t)

	r := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	h.Login(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandlers_Login_MethodNotAllowed(t *testing.T) {
	h, _ := setupLogin(t)

	r := httptest.NewRequest(http.MethodGet, "/api/auth/login", nil)
	w := httptest.NewRecorder()
	h.Login(w, r)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestMiddleware_RequireAuth(t *testing.T) {
	_, jwtService := setupLogin(t)
	mw := NewMiddleware(jwtService, zap.NewNop())

	protected := mw.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		id, ok := GetAdminIDFromContext(r.Context())
		require.True(t, ok)
		email, ok := GetAdminEmailFromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, int64(42), id)
		assert.Equal(t, "a@b.c", email)
		w.WriteHeader(http.StatusOK)
	})

	t.Run("valid token passes through", func(t *testing.T) {
		token, err := jwtService.GenerateToken(42, "a@b.c")
		require.NoError(t, err)

		r := httptest.NewRequest(http.MethodGet, "/admin/analytics/summary", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		protected(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing header rejected", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/admin/analytics/summary", nil)
		w := httptest.NewRecorder()
		protected(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed header rejected", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/admin/analytics/summary", nil)
		r.Header.Set("Authorization", "Token abc")
		w := httptest.NewRecorder()
		protected(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("garbage token rejected", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/admin/analytics/summary", nil)
		r.Header.Set("Authorization", "Bearer nope")
		w := httptest.NewRecorder()
		protected(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
