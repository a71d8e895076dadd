package http

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"SiteStats-Backend/internal/analytics"
	"SiteStats-Backend/internal/auth"
	"SiteStats-Backend/internal/domain"
	"SiteStats-Backend/internal/repository/memory"
	"SiteStats-Backend/pkg/useragent"
)

type testEnv struct {
	storage  *memory.MemStorage
	ingestor *analytics.Ingestor
	jwt      *auth.JWTService
	handler  http.Handler
}

func strp(s string) *string { return &s }

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	storage := memory.New(time.UTC)
	log := zap.NewNop()

	ingestor := analytics.NewIngestor(storage, useragent.New("", log), log, analytics.IngestorConfig{
		WorkerCount:     1,
		BufferSize:      16,
		ShutdownTimeout: 5 * time.Second,
	})
	require.NoError(t, ingestor.Start())
	t.Cleanup(func() { _ = ingestor.Stop() })

	jwtService := auth.NewJWTService(&auth.JWTConfig{
		SecretKey: []byte("test-secret"),
		TokenTTL:  time.Hour,
		Issuer:    "test",
	})

	server := NewServer(
		storage,
		analytics.NewReports(storage, log, 0),
		ingestor,
		jwtService,
		auth.NewPasswordServiceWithCost(4),
		log,
		25,
		time.UTC,
	)

	return &testEnv{
		storage:  storage,
		ingestor: ingestor,
		jwt:      jwtService,
		handler:  server.SetupRoutes(),
	}
}

func (env *testEnv) seed(t *testing.T, events ...*domain.VisitorEvent) {
	t.Helper()
	for _, e := range events {
		require.NoError(t, env.storage.AppendEvent(context.Background(), e))
	}
}

func (env *testEnv) get(path string, header map[string]string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		r.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, r)
	return w
}

func (env *testEnv) adminHeader(t *testing.T) map[string]string {
	t.Helper()
	token, err := env.jwt.GenerateToken(1, "admin@example.org")
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + token}
}

func sampleEvents() []*domain.VisitorEvent {
	day1 := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	return []*domain.VisitorEvent{
		{IPAddress: "10.0.0.1", PageURL: "/home", Referrer: "https://search.example", DeviceType: domain.DeviceDesktop, SessionID: "s1", Browser: strp("Chrome"), OS: strp("Windows"), VisitedAt: day1},
		{IPAddress: "10.0.0.1", PageURL: "/news", DeviceType: domain.DeviceDesktop, SessionID: "s1", Browser: strp("Chrome"), OS: strp("Windows"), VisitedAt: day1.Add(5 * time.Minute)},
		{IPAddress: "10.0.0.2", PageURL: "/home", Referrer: "https://search.example", DeviceType: domain.DeviceDesktop, SessionID: "s2", VisitedAt: day1.Add(5 * time.Hour)},
		{IPAddress: "10.0.0.1", PageURL: "/contact", DeviceType: domain.DeviceMobile, SessionID: "s3", Browser: strp("Mobile Safari"), OS: strp("iOS"), VisitedAt: day2},
	}
}

// window is the explicit date range covering the sample dataset.
const window = "start=2024-01-01&end=2024-01-02"

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var resp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.NoError(t, json.Unmarshal(resp.Data, out))
}

func TestAPI_Query(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, sampleEvents()...)

	t.Run("stats", func(t *testing.T) {
		w := env.get("/api/analytics?action=stats&"+window, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var data struct {
			TotalViews      int64   `json:"total_views"`
			UniqueVisitors  int64   `json:"unique_visitors"`
			UniqueSessions  int64   `json:"unique_sessions"`
			PagesPerVisitor float64 `json:"pages_per_visitor"`
		}
		decodeData(t, w, &data)
		assert.Equal(t, int64(4), data.TotalViews)
		assert.Equal(t, int64(2), data.UniqueVisitors)
		assert.Equal(t, int64(3), data.UniqueSessions)
		assert.Equal(t, float64(2), data.PagesPerVisitor)
	})

	t.Run("visits", func(t *testing.T) {
		w := env.get("/api/analytics?action=visits&"+window, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var days []struct {
			Date      string `json:"date"`
			Events    int64  `json:"events"`
			UniqueIPs int64  `json:"unique_ips"`
		}
		decodeData(t, w, &days)
		require.Len(t, days, 2)
		assert.Equal(t, "2024-01-01", days[0].Date)
		assert.Equal(t, int64(3), days[0].Events)
		assert.Equal(t, int64(2), days[0].UniqueIPs)
	})

	t.Run("devices", func(t *testing.T) {
		w := env.get("/api/analytics?action=devices&"+window, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var rows []struct {
			Value string `json:"value"`
			Count int64  `json:"count"`
		}
		decodeData(t, w, &rows)
		require.Len(t, rows, 2)
		assert.Equal(t, "desktop", rows[0].Value)
		assert.Equal(t, int64(3), rows[0].Count)
	})

	t.Run("hourly has exactly 24 buckets", func(t *testing.T) {
		w := env.get("/api/analytics?action=hourly&"+window, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var rows []struct {
			Hour  int   `json:"hour"`
			Count int64 `json:"count"`
		}
		decodeData(t, w, &rows)
		require.Len(t, rows, 24)
		var sum int64
		for _, r := range rows {
			sum += r.Count
		}
		assert.Equal(t, int64(4), sum)
	})

	t.Run("filtered by device", func(t *testing.T) {
		w := env.get("/api/analytics?action=stats&device=mobile&"+window, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var data struct {
			TotalViews int64 `json:"total_views"`
		}
		decodeData(t, w, &data)
		assert.Equal(t, int64(1), data.TotalViews)
	})

	t.Run("unknown action", func(t *testing.T) {
		w := env.get("/api/analytics?action=drop_tables&"+window, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "unknown_action")
	})

	t.Run("post rejected", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/api/analytics?action=stats", nil)
		w := httptest.NewRecorder()
		env.handler.ServeHTTP(w, r)
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestAPI_FilterValidation(t *testing.T) {
	env := newTestEnv(t)

	t.Run("start after end is rejected, not clamped", func(t *testing.T) {
		w := env.get("/api/analytics?action=stats&start=2024-01-10&end=2024-01-01", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid_range")
	})

	t.Run("malformed date", func(t *testing.T) {
		w := env.get("/api/analytics?action=stats&start=Jan-1-2024", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid_date")
	})

	t.Run("non-numeric range", func(t *testing.T) {
		w := env.get("/api/analytics?action=stats&range=week", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid_range")
	})

	t.Run("bad device", func(t *testing.T) {
		w := env.get("/api/analytics?action=stats&device=toaster&"+window, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid_device")
	})
}

func TestTrack(t *testing.T) {
	env := newTestEnv(t)

	r := httptest.NewRequest(http.MethodGet, "/api/track?page_url=/news/42&referrer=https://ref.example", nil)
	r.Header.Set("User-Agent", "Mozilla/5.0 (Linux; Android 13) Mobile Safari/537.36")
	r.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, r)

	require.Equal(t, http.StatusNoContent, w.Code)

	// a fresh visitor gets a session cookie
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "visitor_session", cookies[0].Name)
	assert.NotEmpty(t, cookies[0].Value)

	// ingestion is asynchronous
	deadline := time.Now().Add(2 * time.Second)
	for {
		n, err := env.storage.CountEvents(context.Background(), domain.EventFilter{})
		require.NoError(t, err)
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("tracked event never reached the store")
		}
		time.Sleep(5 * time.Millisecond)
	}

	rows, err := env.storage.ListEvents(context.Background(), domain.EventFilter{}, 0, 1)
	require.NoError(t, err)
	e := rows[0]
	assert.Equal(t, "203.0.113.5", e.IPAddress)
	assert.Equal(t, "/news/42", e.PageURL)
	assert.Equal(t, "https://ref.example", e.Referrer)
	assert.Equal(t, domain.DeviceMobile, e.DeviceType)
	assert.Equal(t, cookies[0].Value, e.SessionID)
}

func TestTrack_ExistingSessionCookieReused(t *testing.T) {
	env := newTestEnv(t)

	r := httptest.NewRequest(http.MethodGet, "/api/track?page_url=/home", nil)
	r.AddCookie(&http.Cookie{Name: "visitor_session", Value: "existing-session"})
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, r)

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Result().Cookies(), "no new cookie for a returning visitor")
}

func TestTrack_RefererFallback(t *testing.T) {
	env := newTestEnv(t)

	r := httptest.NewRequest(http.MethodGet, "/api/track", nil)
	r.Header.Set("Referer", "https://site.example/news/slug")
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, r)
	require.Equal(t, http.StatusNoContent, w.Code)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		rows, err := env.storage.ListEvents(context.Background(), domain.EventFilter{}, 0, 1)
		require.NoError(t, err)
		if len(rows) == 1 {
			assert.Equal(t, "/news/slug", rows[0].PageURL)
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("tracked event never reached the store")
}

func TestAdminRoutes_RequireAuth(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{
		"/admin/analytics/summary",
		"/admin/analytics/trends",
		"/admin/analytics/visitors",
		"/admin/analytics/reports",
		"/admin/analytics/export",
	} {
		w := env.get(path, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestAdmin_Visitors(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, sampleEvents()...)
	header := env.adminHeader(t)

	w := env.get("/admin/analytics/visitors?p=1&"+window, header)
	require.Equal(t, http.StatusOK, w.Code)

	var page struct {
		Rows         []json.RawMessage `json:"rows"`
		TotalMatched int64             `json:"total_matched"`
		Page         int               `json:"page"`
		TotalPages   int               `json:"total_pages"`
	}
	decodeData(t, w, &page)
	assert.Equal(t, int64(4), page.TotalMatched)
	assert.Equal(t, 1, page.Page)
	assert.Len(t, page.Rows, 4)
}

func TestAdmin_Reports(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, sampleEvents()...)
	header := env.adminHeader(t)

	t.Run("full breakdown set", func(t *testing.T) {
		w := env.get("/admin/analytics/reports?"+window, header)
		require.Equal(t, http.StatusOK, w.Code)

		var b struct {
			Browsers  []json.RawMessage `json:"browsers"`
			Referrers []struct {
				Value string `json:"value"`
				Count int64  `json:"count"`
			} `json:"referrers"`
		}
		decodeData(t, w, &b)
		assert.NotEmpty(t, b.Browsers)
		// direct visits carry no referrer row
		require.Len(t, b.Referrers, 1)
		assert.Equal(t, "https://search.example", b.Referrers[0].Value)
	})

	t.Run("single dimension", func(t *testing.T) {
		w := env.get("/admin/analytics/reports?dimension=browser&"+window, header)
		require.Equal(t, http.StatusOK, w.Code)

		var rows []struct {
			Value string `json:"value"`
			Count int64  `json:"count"`
		}
		decodeData(t, w, &rows)
		require.NotEmpty(t, rows)
		assert.Equal(t, "Chrome", rows[0].Value)
	})

	t.Run("unknown dimension", func(t *testing.T) {
		w := env.get("/admin/analytics/reports?dimension=shoe_size&"+window, header)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid_dimension")
	})
}

func TestAdmin_Export(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, sampleEvents()...)

	w := env.get("/admin/analytics/export?"+window, env.adminHeader(t))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	disposition := w.Header().Get("Content-Disposition")
	assert.True(t, strings.HasPrefix(disposition, `attachment; filename="visitor-log-`), disposition)

	records, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5) // header + 4 rows
	assert.Equal(t, "IP Address", records[0][0])
	assert.Equal(t, "Visit Time", records[0][7])
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusOK, env.get("/health", nil).Code)
	assert.Equal(t, http.StatusOK, env.get("/ready", nil).Code)

	w := env.get("/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats map[string]interface{}
	decodeData(t, w, &stats)
	assert.Equal(t, true, stats["started"])
}

func TestIsSystemPath(t *testing.T) {
	assert.True(t, isSystemPath("/api/analytics"))
	assert.True(t, isSystemPath("/admin/analytics/summary"))
	assert.True(t, isSystemPath("/health"))
	assert.True(t, isSystemPath("/favicon.ico"))
	assert.False(t, isSystemPath("/news/article-1"))
	assert.False(t, isSystemPath("/"))
}

func TestTrackingMiddleware(t *testing.T) {
	env := newTestEnv(t)

	site := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	wrapped := NewTrackHandler(env.ingestor, zap.NewNop()).Middleware(site)

	t.Run("page request is recorded", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/news/article-1", nil)
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, r)
		require.Equal(t, http.StatusOK, w.Code)

		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			n, err := env.storage.CountEvents(context.Background(), domain.EventFilter{})
			require.NoError(t, err)
			if n == 1 {
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
		t.Fatal("page view never recorded")
	})

	t.Run("system path is not recorded", func(t *testing.T) {
		before, err := env.storage.CountEvents(context.Background(), domain.EventFilter{})
		require.NoError(t, err)

		r := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, r)

		time.Sleep(50 * time.Millisecond)
		after, err := env.storage.CountEvents(context.Background(), domain.EventFilter{})
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})
}
