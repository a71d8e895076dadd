package analytics

import (
	"context"

	"github.com/stretchr/testify/mock"

	"SiteStats-Backend/internal/domain"
	"SiteStats-Backend/internal/repository"
)

// mockStorage is a testify mock of repository.Storage for failure-path
// tests; happy paths run against the in-memory store instead.
type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) GetAdminByEmail(ctx context.Context, email string) (*domain.AdminUser, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AdminUser), args.Error(1)
}

func (m *mockStorage) CreateAdmin(ctx context.Context, admin *domain.AdminUser) error {
	args := m.Called(ctx, admin)
	return args.Error(0)
}

func (m *mockStorage) UpdateAdmin(ctx context.Context, admin *domain.AdminUser) error {
	args := m.Called(ctx, admin)
	return args.Error(0)
}

func (m *mockStorage) AppendEvent(ctx context.Context, event *domain.VisitorEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *mockStorage) CountEvents(ctx context.Context, f domain.EventFilter) (int64, error) {
	args := m.Called(ctx, f)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStorage) CountUniqueVisitors(ctx context.Context, f domain.EventFilter) (int64, error) {
	args := m.Called(ctx, f)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStorage) CountUniqueSessions(ctx context.Context, f domain.EventFilter) (int64, error) {
	args := m.Called(ctx, f)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStorage) DailyCounts(ctx context.Context, f domain.EventFilter) ([]repository.DailyCount, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.DailyCount), args.Error(1)
}

func (m *mockStorage) HourlyCounts(ctx context.Context, f domain.EventFilter) ([]repository.HourlyCount, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.HourlyCount), args.Error(1)
}

func (m *mockStorage) CountByDimension(ctx context.Context, f domain.EventFilter, dim repository.Dimension, limit int) ([]repository.DimensionCount, error) {
	args := m.Called(ctx, f, dim, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.DimensionCount), args.Error(1)
}

func (m *mockStorage) ListEvents(ctx context.Context, f domain.EventFilter, offset, limit int) ([]*domain.VisitorEvent, error) {
	args := m.Called(ctx, f, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.VisitorEvent), args.Error(1)
}

func (m *mockStorage) IterateEvents(ctx context.Context, f domain.EventFilter, batchSize int, fn func(*domain.VisitorEvent) error) error {
	args := m.Called(ctx, f, batchSize, fn)
	return args.Error(0)
}
