package analytics

import (
	"SiteStats-Backend/internal/domain"
	"SiteStats-Backend/internal/repository"
	"context"
	"fmt"

	"go.uber.org/zap"
)

// DefaultTopLimit is the row limit for breakdown reports when the caller
// does not specify one.
const DefaultTopLimit = 10

// Aggregator answers reporting queries against the event store. Every query
// is parameterized by the same EventFilter value, which is what keeps
// summary cards, charts and tables mutually consistent within one report
// request. Counts are exact; nothing is sampled or estimated.
type Aggregator struct {
	storage repository.Storage
	log     *zap.Logger
}

// NewAggregator creates a new aggregator on top of the given storage.
func NewAggregator(storage repository.Storage, log *zap.Logger) *Aggregator {
	return &Aggregator{
		storage: storage,
		log:     log,
	}
}

// TotalCount returns the number of matching events.
func (a *Aggregator) TotalCount(ctx context.Context, f domain.EventFilter) (int64, error) {
	if err := f.Validate(); err != nil {
		return 0, err
	}
	return a.storage.CountEvents(ctx, f)
}

// UniqueVisitors returns the number of distinct IP addresses among matching
// events.
func (a *Aggregator) UniqueVisitors(ctx context.Context, f domain.EventFilter) (int64, error) {
	if err := f.Validate(); err != nil {
		return 0, err
	}
	return a.storage.CountUniqueVisitors(ctx, f)
}

// UniqueSessions returns the number of distinct session identifiers among
// matching events.
func (a *Aggregator) UniqueSessions(ctx context.Context, f domain.EventFilter) (int64, error) {
	if err := f.Validate(); err != nil {
		return 0, err
	}
	return a.storage.CountUniqueSessions(ctx, f)
}

// DailyTrend returns one row per calendar day with at least one matching
// event, ascending by date. Days with zero events are not synthesized; the
// caller fills gaps when it needs a dense series.
func (a *Aggregator) DailyTrend(ctx context.Context, f domain.EventFilter) ([]repository.DailyCount, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return a.storage.DailyCounts(ctx, f)
}

// HourlyDistribution returns exactly 24 buckets for hours 0-23, zero-filled,
// so charts always render a complete series.
func (a *Aggregator) HourlyDistribution(ctx context.Context, f domain.EventFilter) ([]repository.HourlyCount, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	sparse, err := a.storage.HourlyCounts(ctx, f)
	if err != nil {
		return nil, err
	}

	dense := make([]repository.HourlyCount, 24)
	for h := range dense {
		dense[h].Hour = h
	}
	for _, bucket := range sparse {
		if bucket.Hour < 0 || bucket.Hour > 23 {
			return nil, fmt.Errorf("hour bucket out of range: %d", bucket.Hour)
		}
		dense[bucket.Hour].Count = bucket.Count
	}
	return dense, nil
}

// TopBy returns the grouped count for a dimension, descending by count with
// ties broken by value ascending. A non-positive limit means DefaultTopLimit.
func (a *Aggregator) TopBy(ctx context.Context, dim repository.Dimension, f domain.EventFilter, limit int) ([]repository.DimensionCount, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	switch dim {
	case repository.DimensionPageURL, repository.DimensionReferrer,
		repository.DimensionBrowser, repository.DimensionOS, repository.DimensionDeviceType:
	default:
		return nil, repository.ErrUnknownDimension
	}
	if limit <= 0 {
		limit = DefaultTopLimit
	}
	return a.storage.CountByDimension(ctx, f, dim, limit)
}

// PagesPerVisitor computes the derived total/unique ratio with the
// convention that a zero denominator yields 0.
func PagesPerVisitor(totalCount, uniqueVisitors int64) float64 {
	if uniqueVisitors == 0 {
		return 0
	}
	return float64(totalCount) / float64(uniqueVisitors)
}
