package memory

import (
	"SiteStats-Backend/internal/domain"
	"SiteStats-Backend/internal/repository"
	"context"
	"sort"
	"sync"
	"time"
)

// MemStorage is an in-memory implementation of repository.Storage. It is the
// reference implementation the postgres store must agree with, and what the
// unit tests run against.
type MemStorage struct {
	mu            sync.RWMutex
	events        []*domain.VisitorEvent
	adminsByEmail map[string]*domain.AdminUser
	eventCounter  int64
	adminCounter  int64
	loc           *time.Location
}

// New creates an in-memory storage. loc is the timezone used for day and
// hour bucketing; nil means time.Local.
func New(loc *time.Location) *MemStorage {
	if loc == nil {
		loc = time.Local
	}
	return &MemStorage{
		adminsByEmail: make(map[string]*domain.AdminUser),
		loc:           loc,
	}
}

// --- Admin Methods ---

func (s *MemStorage) GetAdminByEmail(_ context.Context, email string) (*domain.AdminUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	admin, ok := s.adminsByEmail[email]
	if !ok || !admin.IsActive {
		return nil, repository.ErrAdminNotFound
	}
	return admin, nil
}

func (s *MemStorage) CreateAdmin(_ context.Context, admin *domain.AdminUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.adminsByEmail[admin.Email]; exists {
		return repository.ErrAdminExists
	}
	s.adminCounter++
	admin.ID = s.adminCounter
	admin.CreatedAt = time.Now()
	s.adminsByEmail[admin.Email] = admin
	return nil
}

func (s *MemStorage) UpdateAdmin(_ context.Context, admin *domain.AdminUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.adminsByEmail[admin.Email]; !exists {
		return repository.ErrAdminNotFound
	}
	admin.UpdatedAt = time.Now()
	s.adminsByEmail[admin.Email] = admin
	return nil
}

// --- Event Methods ---

func (s *MemStorage) AppendEvent(_ context.Context, event *domain.VisitorEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eventCounter++
	event.ID = s.eventCounter
	s.events = append(s.events, event)
	return nil
}

func (s *MemStorage) CountEvents(_ context.Context, f domain.EventFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.filtered(f))), nil
}

func (s *MemStorage) CountUniqueVisitors(_ context.Context, f domain.EventFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, e := range s.filtered(f) {
		seen[e.IPAddress] = struct{}{}
	}
	return int64(len(seen)), nil
}

func (s *MemStorage) CountUniqueSessions(_ context.Context, f domain.EventFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, e := range s.filtered(f) {
		seen[e.SessionID] = struct{}{}
	}
	return int64(len(seen)), nil
}

func (s *MemStorage) DailyCounts(_ context.Context, f domain.EventFilter) ([]repository.DailyCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type bucket struct {
		events int64
		ips    map[string]struct{}
	}
	buckets := make(map[string]*bucket)
	for _, e := range s.filtered(f) {
		day := e.VisitedAt.In(s.loc).Format("2006-01-02")
		b, ok := buckets[day]
		if !ok {
			b = &bucket{ips: make(map[string]struct{})}
			buckets[day] = b
		}
		b.events++
		b.ips[e.IPAddress] = struct{}{}
	}

	days := make([]repository.DailyCount, 0, len(buckets))
	for day, b := range buckets {
		days = append(days, repository.DailyCount{
			Date:      day,
			Events:    b.events,
			UniqueIPs: int64(len(b.ips)),
		})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days, nil
}

func (s *MemStorage) HourlyCounts(_ context.Context, f domain.EventFilter) ([]repository.HourlyCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[int]int64)
	for _, e := range s.filtered(f) {
		counts[e.VisitedAt.In(s.loc).Hour()]++
	}

	hours := make([]repository.HourlyCount, 0, len(counts))
	for h, c := range counts {
		hours = append(hours, repository.HourlyCount{Hour: h, Count: c})
	}
	sort.Slice(hours, func(i, j int) bool { return hours[i].Hour < hours[j].Hour })
	return hours, nil
}

func (s *MemStorage) CountByDimension(_ context.Context, f domain.EventFilter, dim repository.Dimension, limit int) ([]repository.DimensionCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int64)
	for _, e := range s.filtered(f) {
		value, ok, err := dimensionValue(e, dim)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		counts[value]++
	}

	rows := make([]repository.DimensionCount, 0, len(counts))
	for value, count := range counts {
		rows = append(rows, repository.DimensionCount{Value: value, Count: count})
	}
	// Deterministic ordering: count descending, value ascending on ties.
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Value < rows[j].Value
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (s *MemStorage) ListEvents(_ context.Context, f domain.EventFilter, offset, limit int) ([]*domain.VisitorEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.sortedDesc(s.filtered(f))
	if offset >= len(matched) {
		return []*domain.VisitorEvent{}, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (s *MemStorage) IterateEvents(_ context.Context, f domain.EventFilter, _ int, fn func(*domain.VisitorEvent) error) error {
	s.mu.RLock()
	matched := s.sortedDesc(s.filtered(f))
	s.mu.RUnlock()

	for _, e := range matched {
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

// --- Helpers ---

// filtered returns the events matching f. Callers must hold the lock.
func (s *MemStorage) filtered(f domain.EventFilter) []*domain.VisitorEvent {
	var matched []*domain.VisitorEvent
	for _, e := range s.events {
		if f.Matches(e) {
			matched = append(matched, e)
		}
	}
	return matched
}

// sortedDesc orders events by visited_at descending, newest insertion first
// on equal timestamps.
func (s *MemStorage) sortedDesc(events []*domain.VisitorEvent) []*domain.VisitorEvent {
	sorted := make([]*domain.VisitorEvent, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].VisitedAt.Equal(sorted[j].VisitedAt) {
			return sorted[i].VisitedAt.After(sorted[j].VisitedAt)
		}
		return sorted[i].ID > sorted[j].ID
	})
	return sorted
}

// dimensionValue applies the breakdown policy for a single event: empty
// referrers are skipped, empty browser/os values become "Unknown".
func dimensionValue(e *domain.VisitorEvent, dim repository.Dimension) (string, bool, error) {
	switch dim {
	case repository.DimensionPageURL:
		return e.PageURL, true, nil
	case repository.DimensionReferrer:
		if e.Referrer == "" {
			return "", false, nil
		}
		return e.Referrer, true, nil
	case repository.DimensionBrowser:
		if e.BrowserName() == "" {
			return repository.UnknownLabel, true, nil
		}
		return e.BrowserName(), true, nil
	case repository.DimensionOS:
		if e.OSName() == "" {
			return repository.UnknownLabel, true, nil
		}
		return e.OSName(), true, nil
	case repository.DimensionDeviceType:
		return e.DeviceType, true, nil
	default:
		return "", false, repository.ErrUnknownDimension
	}
}
