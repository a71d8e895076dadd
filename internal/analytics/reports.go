package analytics

import (
	"SiteStats-Backend/internal/domain"
	"SiteStats-Backend/internal/repository"
	"context"
	"io"

	"go.uber.org/zap"
)

// Reports composes the aggregator, paginator and exporter into the view
// shapes the dashboard serves. It carries no logic of its own; a single
// incoming report request builds exactly one EventFilter and hands it to
// whichever view it needs.
type Reports struct {
	aggregator *Aggregator
	paginator  *Paginator
	exporter   *Exporter
	log        *zap.Logger
}

// NewReports wires the reporting services on top of one storage.
func NewReports(storage repository.Storage, log *zap.Logger, exportBatchSize int) *Reports {
	return &Reports{
		aggregator: NewAggregator(storage, log),
		paginator:  NewPaginator(storage, log),
		exporter:   NewExporter(storage, log, exportBatchSize),
		log:        log,
	}
}

// Aggregator exposes the underlying aggregator for callers that map
// endpoints directly onto single queries.
func (r *Reports) Aggregator() *Aggregator {
	return r.aggregator
}

// Summary is the card row at the top of the dashboard.
type Summary struct {
	TotalViews      int64   `json:"total_views"`
	UniqueVisitors  int64   `json:"unique_visitors"`
	UniqueSessions  int64   `json:"unique_sessions"`
	PagesPerVisitor float64 `json:"pages_per_visitor"`
}

// Summary computes the dashboard summary cards.
func (r *Reports) Summary(ctx context.Context, f domain.EventFilter) (*Summary, error) {
	total, err := r.aggregator.TotalCount(ctx, f)
	if err != nil {
		return nil, err
	}
	visitors, err := r.aggregator.UniqueVisitors(ctx, f)
	if err != nil {
		return nil, err
	}
	sessions, err := r.aggregator.UniqueSessions(ctx, f)
	if err != nil {
		return nil, err
	}

	return &Summary{
		TotalViews:      total,
		UniqueVisitors:  visitors,
		UniqueSessions:  sessions,
		PagesPerVisitor: PagesPerVisitor(total, visitors),
	}, nil
}

// Trends is the chart data of the dashboard trend view.
type Trends struct {
	Daily   []repository.DailyCount     `json:"daily"`
	Hourly  []repository.HourlyCount    `json:"hourly"`
	Devices []repository.DimensionCount `json:"devices"`
}

// Trends computes the daily series, the 24-hour histogram and the device
// breakdown for one filter.
func (r *Reports) Trends(ctx context.Context, f domain.EventFilter) (*Trends, error) {
	daily, err := r.aggregator.DailyTrend(ctx, f)
	if err != nil {
		return nil, err
	}
	hourly, err := r.aggregator.HourlyDistribution(ctx, f)
	if err != nil {
		return nil, err
	}
	devices, err := r.aggregator.TopBy(ctx, repository.DimensionDeviceType, f, DefaultTopLimit)
	if err != nil {
		return nil, err
	}

	return &Trends{
		Daily:   daily,
		Hourly:  hourly,
		Devices: devices,
	}, nil
}

// VisitorLog returns one page of the filtered raw event log.
func (r *Reports) VisitorLog(ctx context.Context, f domain.EventFilter, page, pageSize int) (*VisitorPage, error) {
	return r.paginator.Page(ctx, f, page, pageSize)
}

// Breakdowns is the reports view: ranked groupings by the categorical
// dimensions.
type Breakdowns struct {
	Browsers         []repository.DimensionCount `json:"browsers"`
	OperatingSystems []repository.DimensionCount `json:"operating_systems"`
	Referrers        []repository.DimensionCount `json:"referrers"`
	Pages            []repository.DimensionCount `json:"pages"`
}

// Breakdowns computes every breakdown report for one filter.
func (r *Reports) Breakdowns(ctx context.Context, f domain.EventFilter, limit int) (*Breakdowns, error) {
	browsers, err := r.aggregator.TopBy(ctx, repository.DimensionBrowser, f, limit)
	if err != nil {
		return nil, err
	}
	systems, err := r.aggregator.TopBy(ctx, repository.DimensionOS, f, limit)
	if err != nil {
		return nil, err
	}
	referrers, err := r.aggregator.TopBy(ctx, repository.DimensionReferrer, f, limit)
	if err != nil {
		return nil, err
	}
	pages, err := r.aggregator.TopBy(ctx, repository.DimensionPageURL, f, limit)
	if err != nil {
		return nil, err
	}

	return &Breakdowns{
		Browsers:         browsers,
		OperatingSystems: systems,
		Referrers:        referrers,
		Pages:            pages,
	}, nil
}

// ExportCSV streams the filtered log as CSV to w.
func (r *Reports) ExportCSV(ctx context.Context, f domain.EventFilter, w io.Writer) error {
	return r.exporter.ExportCSV(ctx, f, w)
}
