package analytics

import (
	"SiteStats-Backend/internal/domain"
	"SiteStats-Backend/internal/repository"
	"context"

	"go.uber.org/zap"
)

// DefaultPageSize is the visitor log page size when the caller does not
// specify one.
const DefaultPageSize = 25

// VisitorPage is one slice of the filtered raw event log.
type VisitorPage struct {
	Rows         []*domain.VisitorEvent `json:"rows"`
	TotalMatched int64                  `json:"total_matched"`
	Page         int                    `json:"page"`
	PageSize     int                    `json:"page_size"`
	TotalPages   int                    `json:"total_pages"`
}

// Paginator slices the filtered event log for the on-screen visitor table.
type Paginator struct {
	storage repository.Storage
	log     *zap.Logger
}

// NewPaginator creates a new paginator on top of the given storage.
func NewPaginator(storage repository.Storage, log *zap.Logger) *Paginator {
	return &Paginator{
		storage: storage,
		log:     log,
	}
}

// Page returns page number page (1-based) of the filtered log ordered by
// visited_at descending, together with the total matched row count. The
// count and the slice share one filter translation, so they cannot diverge.
// A page past the end returns empty rows with the correct total, never an
// error.
func (p *Paginator) Page(ctx context.Context, f domain.EventFilter, page, pageSize int) (*VisitorPage, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	total, err := p.storage.CountEvents(ctx, f)
	if err != nil {
		return nil, err
	}

	rows, err := p.storage.ListEvents(ctx, f, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))

	return &VisitorPage{
		Rows:         rows,
		TotalMatched: total,
		Page:         page,
		PageSize:     pageSize,
		TotalPages:   totalPages,
	}, nil
}
