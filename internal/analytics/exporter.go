package analytics

import (
	"SiteStats-Backend/internal/domain"
	"SiteStats-Backend/internal/repository"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
)

// csvColumns is the fixed export column order. External consumers depend on
// it; never derive it reflectively.
var csvColumns = []string{
	"IP Address",
	"Page URL",
	"Referrer",
	"Device Type",
	"Browser",
	"OS",
	"Session ID",
	"Visit Time",
}

const visitTimeLayout = "2006-01-02 15:04:05"

// Exporter streams the full filtered event log as CSV. It applies the same
// filter as the on-screen table, without pagination and without a row cap.
type Exporter struct {
	storage   repository.Storage
	log       *zap.Logger
	batchSize int
}

// NewExporter creates a new CSV exporter. batchSize controls how many rows
// are read from the store per round trip; non-positive means 500.
func NewExporter(storage repository.Storage, log *zap.Logger, batchSize int) *Exporter {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Exporter{
		storage:   storage,
		log:       log,
		batchSize: batchSize,
	}
}

// ExportCSV writes the header row and one row per matching event to w. A
// store error mid-stream terminates the export; rows already written stay
// written, which is an accepted limitation of streaming onto an open
// response.
func (e *Exporter) ExportCSV(ctx context.Context, f domain.EventFilter, w io.Writer) error {
	if err := f.Validate(); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvColumns); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	var written int64
	err := e.storage.IterateEvents(ctx, f, e.batchSize, func(event *domain.VisitorEvent) error {
		record := []string{
			event.IPAddress,
			event.PageURL,
			event.Referrer,
			event.DeviceType,
			event.BrowserName(),
			event.OSName(),
			event.SessionID,
			event.VisitedAt.Format(visitTimeLayout),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
		written++
		return nil
	})
	if err != nil {
		e.log.Error("csv export terminated", zap.Int64("rows_written", written), zap.Error(err))
		return err
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}

	e.log.Info("csv export completed", zap.Int64("rows", written))
	return nil
}

// ExportFileName returns the attachment filename for an export started at
// the given time.
func ExportFileName(now time.Time) string {
	return "visitor-log-" + now.Format("2006-01-02") + ".csv"
}
