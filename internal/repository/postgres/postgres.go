package postgres

import (
	"SiteStats-Backend/internal/domain"
	"SiteStats-Backend/internal/repository"
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PostgresStorage implements the Storage interface for PostgreSQL.
//
// Day and hour bucketing use the database session timezone, which is set via
// the TimeZone DSN parameter from the site configuration.
type PostgresStorage struct {
	db  *gorm.DB
	log *zap.Logger
}

// New creates a new PostgreSQL storage instance.
func New(db *gorm.DB, log *zap.Logger) *PostgresStorage {
	return &PostgresStorage{
		db:  db,
		log: log,
	}
}

// --- Admin Methods ---

func (s *PostgresStorage) GetAdminByEmail(ctx context.Context, email string) (*domain.AdminUser, error) {
	var admin domain.AdminUser

	err := s.db.WithContext(ctx).Where("email = ? AND is_active = ?", email, true).First(&admin).Error
	if err == gorm.ErrRecordNotFound {
		return nil, repository.ErrAdminNotFound
	}
	if err != nil {
		s.log.Error("failed to get admin by email", zap.String("email", email), zap.Error(err))
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}

	return &admin, nil
}

func (s *PostgresStorage) CreateAdmin(ctx context.Context, admin *domain.AdminUser) error {
	var existing domain.AdminUser
	err := s.db.WithContext(ctx).Where("email = ?", admin.Email).First(&existing).Error
	if err == nil {
		return repository.ErrAdminExists
	}
	if err != gorm.ErrRecordNotFound {
		s.log.Error("failed to check admin existence", zap.String("email", admin.Email), zap.Error(err))
		return fmt.Errorf("failed to check admin: %w", err)
	}

	if err := s.db.WithContext(ctx).Create(admin).Error; err != nil {
		s.log.Error("failed to create admin", zap.String("email", admin.Email), zap.Error(err))
		return fmt.Errorf("failed to create admin: %w", err)
	}

	s.log.Info("created admin user", zap.String("email", admin.Email))
	return nil
}

func (s *PostgresStorage) UpdateAdmin(ctx context.Context, admin *domain.AdminUser) error {
	if err := s.db.WithContext(ctx).Save(admin).Error; err != nil {
		s.log.Error("failed to update admin", zap.Int64("admin_id", admin.ID), zap.Error(err))
		return fmt.Errorf("failed to update admin: %w", err)
	}
	return nil
}

// --- Event Methods ---

// AppendEvent writes one visitor event. A single independent insert, so
// ingestion never serializes against reporting reads.
func (s *PostgresStorage) AppendEvent(ctx context.Context, event *domain.VisitorEvent) error {
	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		s.log.Error("failed to append visitor event", zap.String("page_url", event.PageURL), zap.Error(err))
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func (s *PostgresStorage) CountEvents(ctx context.Context, f domain.EventFilter) (int64, error) {
	var count int64
	if err := s.scope(ctx, f).Count(&count).Error; err != nil {
		s.log.Error("failed to count events", zap.Error(err))
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

func (s *PostgresStorage) CountUniqueVisitors(ctx context.Context, f domain.EventFilter) (int64, error) {
	var count int64
	if err := s.scope(ctx, f).Distinct("ip_address").Count(&count).Error; err != nil {
		s.log.Error("failed to count unique visitors", zap.Error(err))
		return 0, fmt.Errorf("failed to count unique visitors: %w", err)
	}
	return count, nil
}

func (s *PostgresStorage) CountUniqueSessions(ctx context.Context, f domain.EventFilter) (int64, error) {
	var count int64
	if err := s.scope(ctx, f).Distinct("session_id").Count(&count).Error; err != nil {
		s.log.Error("failed to count unique sessions", zap.Error(err))
		return 0, fmt.Errorf("failed to count unique sessions: %w", err)
	}
	return count, nil
}

func (s *PostgresStorage) DailyCounts(ctx context.Context, f domain.EventFilter) ([]repository.DailyCount, error) {
	var rows []repository.DailyCount

	err := s.scope(ctx, f).
		Select("TO_CHAR(DATE(visited_at), 'YYYY-MM-DD') AS date, COUNT(*) AS events, COUNT(DISTINCT ip_address) AS unique_ips").
		Group("DATE(visited_at)").
		Order("DATE(visited_at) ASC").
		Find(&rows).Error
	if err != nil {
		s.log.Error("failed to compute daily counts", zap.Error(err))
		return nil, fmt.Errorf("failed to compute daily counts: %w", err)
	}

	return rows, nil
}

func (s *PostgresStorage) HourlyCounts(ctx context.Context, f domain.EventFilter) ([]repository.HourlyCount, error) {
	var rows []repository.HourlyCount

	err := s.scope(ctx, f).
		Select("EXTRACT(HOUR FROM visited_at)::int AS hour, COUNT(*) AS count").
		Group("EXTRACT(HOUR FROM visited_at)").
		Order("EXTRACT(HOUR FROM visited_at) ASC").
		Find(&rows).Error
	if err != nil {
		s.log.Error("failed to compute hourly counts", zap.Error(err))
		return nil, fmt.Errorf("failed to compute hourly counts: %w", err)
	}

	return rows, nil
}

func (s *PostgresStorage) CountByDimension(ctx context.Context, f domain.EventFilter, dim repository.Dimension, limit int) ([]repository.DimensionCount, error) {
	q := s.scope(ctx, f)

	// The grouping expression is chosen from a fixed table, never from user
	// input. Empty referrers are direct visits and not reportable; empty
	// browser/os values are reported under a single "Unknown" row.
	var expr string
	switch dim {
	case repository.DimensionPageURL:
		expr = "page_url"
	case repository.DimensionReferrer:
		expr = "referrer"
		q = q.Where("referrer <> ''")
	case repository.DimensionBrowser:
		expr = "COALESCE(NULLIF(browser, ''), 'Unknown')"
	case repository.DimensionOS:
		expr = "COALESCE(NULLIF(os, ''), 'Unknown')"
	case repository.DimensionDeviceType:
		expr = "device_type"
	default:
		return nil, repository.ErrUnknownDimension
	}

	var rows []repository.DimensionCount
	err := q.
		Select(expr + " AS value, COUNT(*) AS count").
		Group(expr).
		Order("count DESC, value ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		s.log.Error("failed to compute breakdown", zap.String("dimension", string(dim)), zap.Error(err))
		return nil, fmt.Errorf("failed to compute breakdown by %s: %w", dim, err)
	}

	return rows, nil
}

func (s *PostgresStorage) ListEvents(ctx context.Context, f domain.EventFilter, offset, limit int) ([]*domain.VisitorEvent, error) {
	events := []*domain.VisitorEvent{}

	err := s.scope(ctx, f).
		Order("visited_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&events).Error
	if err != nil {
		s.log.Error("failed to list events", zap.Error(err))
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	return events, nil
}

// IterateEvents walks the filtered set newest first using keyset pagination
// on the primary key, which is insertion-ordered and tracks visited_at.
func (s *PostgresStorage) IterateEvents(ctx context.Context, f domain.EventFilter, batchSize int, fn func(*domain.VisitorEvent) error) error {
	if batchSize <= 0 {
		batchSize = 500
	}

	lastID := int64(math.MaxInt64)
	for {
		var batch []*domain.VisitorEvent
		err := s.scope(ctx, f).
			Where("id < ?", lastID).
			Order("id DESC").
			Limit(batchSize).
			Find(&batch).Error
		if err != nil {
			s.log.Error("failed to read event batch", zap.Int64("last_id", lastID), zap.Error(err))
			return fmt.Errorf("failed to read event batch: %w", err)
		}
		if len(batch) == 0 {
			return nil
		}

		for _, event := range batch {
			if err := fn(event); err != nil {
				return err
			}
		}

		lastID = batch[len(batch)-1].ID
		if len(batch) < batchSize {
			return nil
		}
	}
}

// --- Helpers ---

// scope translates an EventFilter into a query exactly once; every reporting
// method builds on the same translation so counts and row slices cannot
// diverge.
func (s *PostgresStorage) scope(ctx context.Context, f domain.EventFilter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&domain.VisitorEvent{})

	if f.From != nil {
		q = q.Where("visited_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("visited_at <= ?", *f.To)
	}
	if f.Device != "" {
		q = q.Where("device_type = ?", f.Device)
	}
	if f.Search != "" {
		pattern := "%" + escapeLike(f.Search) + "%"
		q = q.Where("(ip_address ILIKE ? OR page_url ILIKE ? OR referrer ILIKE ?)", pattern, pattern, pattern)
	}
	if f.PageURL != "" {
		q = q.Where("page_url ILIKE ?", "%"+escapeLike(f.PageURL)+"%")
	}

	return q
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike neutralizes LIKE wildcards in user-supplied search text.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
