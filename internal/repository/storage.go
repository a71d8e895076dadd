package repository

import (
	"SiteStats-Backend/internal/domain"
	"context"
	"errors"
)

var (
	ErrAdminNotFound    = errors.New("admin user not found")
	ErrAdminExists      = errors.New("admin user already exists")
	ErrUnknownDimension = errors.New("unknown breakdown dimension")
)

// Dimension identifies a categorical event column that breakdown reports can
// group by.
type Dimension string

const (
	DimensionPageURL    Dimension = "page_url"
	DimensionReferrer   Dimension = "referrer"
	DimensionBrowser    Dimension = "browser"
	DimensionOS         Dimension = "os"
	DimensionDeviceType Dimension = "device_type"
)

// DailyCount is one calendar day of the daily trend. Only days with at least
// one matching event are present.
type DailyCount struct {
	Date      string `json:"date"` // YYYY-MM-DD
	Events    int64  `json:"events"`
	UniqueIPs int64  `json:"unique_ips"`
}

// HourlyCount is one hour-of-day bucket (0-23).
type HourlyCount struct {
	Hour  int   `json:"hour"`
	Count int64 `json:"count"`
}

// DimensionCount is one row of a breakdown report.
type DimensionCount struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// Storage is the persistence boundary of the analytics engine. The event
// methods operate on an append-only table: there is no update or delete.
//
// Every reporting method takes the same domain.EventFilter value and must
// apply it identically, so counts, slices and exports computed from one
// filter never diverge.
type Storage interface {
	// Admin account methods
	GetAdminByEmail(ctx context.Context, email string) (*domain.AdminUser, error)
	CreateAdmin(ctx context.Context, admin *domain.AdminUser) error
	UpdateAdmin(ctx context.Context, admin *domain.AdminUser) error

	// Ingestion: a single independent insert, no read-modify-write.
	AppendEvent(ctx context.Context, event *domain.VisitorEvent) error

	// Reporting. CountByDimension enforces the breakdown policy: rows with an
	// empty referrer are excluded for DimensionReferrer, empty browser/os
	// values are reported as "Unknown", and ordering is count descending with
	// ties broken by value ascending.
	CountEvents(ctx context.Context, f domain.EventFilter) (int64, error)
	CountUniqueVisitors(ctx context.Context, f domain.EventFilter) (int64, error)
	CountUniqueSessions(ctx context.Context, f domain.EventFilter) (int64, error)
	DailyCounts(ctx context.Context, f domain.EventFilter) ([]DailyCount, error)
	HourlyCounts(ctx context.Context, f domain.EventFilter) ([]HourlyCount, error)
	CountByDimension(ctx context.Context, f domain.EventFilter, dim Dimension, limit int) ([]DimensionCount, error)

	// ListEvents returns matching events ordered by visited_at descending,
	// sliced by offset/limit. An offset past the end yields an empty slice.
	ListEvents(ctx context.Context, f domain.EventFilter, offset, limit int) ([]*domain.VisitorEvent, error)

	// IterateEvents streams every matching event to fn in visited_at
	// descending order, reading in batches of batchSize so the full result
	// set is never materialized. A non-nil error from fn stops the iteration.
	IterateEvents(ctx context.Context, f domain.EventFilter, batchSize int, fn func(*domain.VisitorEvent) error) error
}

// UnknownLabel replaces empty browser/os values in breakdown reports. An
// empty referrer means a direct visit and is excluded instead.
const UnknownLabel = "Unknown"
