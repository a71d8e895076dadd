package analytics

import (
	"SiteStats-Backend/internal/domain"
	"SiteStats-Backend/internal/repository"
	"SiteStats-Backend/pkg/useragent"
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// PageView carries the request metadata of one tracked page render.
type PageView struct {
	IPAddress string
	UserAgent string
	PageURL   string
	Referrer  string
	SessionID string
}

// IngestorConfig holds configuration for the ingestion worker pool.
type IngestorConfig struct {
	WorkerCount     int           // Number of worker goroutines
	BufferSize      int           // Size of the job queue buffer
	ShutdownTimeout time.Duration // Time to wait for graceful shutdown
}

// DefaultIngestorConfig returns sensible default configuration.
func DefaultIngestorConfig() IngestorConfig {
	return IngestorConfig{
		WorkerCount:     3,
		BufferSize:      1000,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Ingestor appends one visitor event per tracked page view, asynchronously.
// Tracking is fire and forget: a failed or dropped event is logged and lost,
// never retried, and never surfaces to the page render it accompanies.
type Ingestor struct {
	config   IngestorConfig
	storage  repository.Storage
	ua       *useragent.Parser
	log      *zap.Logger
	jobQueue chan *PageView
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	mu       sync.RWMutex
}

// NewIngestor creates a new visitor event ingestor.
func NewIngestor(storage repository.Storage, uaParser *useragent.Parser, log *zap.Logger, config IngestorConfig) *Ingestor {
	defaults := DefaultIngestorConfig()
	if config.WorkerCount <= 0 {
		config.WorkerCount = defaults.WorkerCount
	}
	if config.BufferSize <= 0 {
		config.BufferSize = defaults.BufferSize
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = defaults.ShutdownTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Ingestor{
		config:   config,
		storage:  storage,
		ua:       uaParser,
		log:      log,
		jobQueue: make(chan *PageView, config.BufferSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins processing tracked page views.
func (i *Ingestor) Start() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.started {
		return fmt.Errorf("ingestor already started")
	}

	i.log.Info("starting visitor ingestor",
		zap.Int("workers", i.config.WorkerCount),
		zap.Int("buffer_size", i.config.BufferSize),
	)

	for w := 0; w < i.config.WorkerCount; w++ {
		i.wg.Add(1)
		go i.worker(w)
	}

	i.started = true
	return nil
}

// Stop gracefully shuts down the ingestor, draining queued page views.
func (i *Ingestor) Stop() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.started {
		return fmt.Errorf("ingestor not started")
	}

	i.log.Info("stopping visitor ingestor")

	close(i.jobQueue)

	done := make(chan struct{})
	go func() {
		i.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		i.log.Info("visitor ingestor stopped gracefully")
	case <-time.After(i.config.ShutdownTimeout):
		i.cancel()
		i.log.Warn("visitor ingestor shutdown timeout reached")
		i.started = false
		return fmt.Errorf("shutdown timeout reached")
	}

	i.cancel()
	i.started = false
	return nil
}

// Track submits a page view for asynchronous recording. It never blocks and
// never fails the caller: when the ingestor is stopped or the queue is full
// the view is dropped with a log line. A missed analytics event is an
// acceptable loss; a retry would risk duplicate counting.
func (i *Ingestor) Track(view *PageView) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if !i.started {
		i.log.Debug("ingestor not started, dropping page view", zap.String("page_url", view.PageURL))
		return
	}

	select {
	case i.jobQueue <- view:
	default:
		i.log.Error("ingestion queue is full, dropping page view",
			zap.String("page_url", view.PageURL),
			zap.Int("queue_size", len(i.jobQueue)),
		)
	}
}

// worker records queued page views until the queue is closed.
func (i *Ingestor) worker(workerID int) {
	defer i.wg.Done()

	log := i.log.With(zap.Int("worker_id", workerID))
	log.Debug("ingestion worker started")

	for view := range i.jobQueue {
		i.process(log, view)
	}

	log.Debug("ingestion worker stopped")
}

// process classifies the user agent and appends exactly one event. Store
// errors are logged and swallowed.
func (i *Ingestor) process(log *zap.Logger, view *PageView) {
	ctx, cancel := context.WithTimeout(i.ctx, 30*time.Second)
	defer cancel()

	info := i.ua.Parse(view.UserAgent)

	event := &domain.VisitorEvent{
		IPAddress:  view.IPAddress,
		UserAgent:  view.UserAgent,
		PageURL:    view.PageURL,
		Referrer:   view.Referrer,
		DeviceType: info.DeviceType,
		SessionID:  view.SessionID,
		VisitedAt:  time.Now(),
	}
	if info.Browser != "" {
		event.Browser = &info.Browser
	}
	if info.OS != "" {
		event.OS = &info.OS
	}

	if err := i.storage.AppendEvent(ctx, event); err != nil {
		log.Warn("failed to record page view, event discarded",
			zap.String("page_url", view.PageURL),
			zap.Error(err),
		)
		return
	}

	log.Debug("recorded page view",
		zap.String("page_url", view.PageURL),
		zap.String("device_type", event.DeviceType),
	)
}

// Stats returns ingestor statistics for diagnostics endpoints.
func (i *Ingestor) Stats() map[string]interface{} {
	i.mu.RLock()
	defer i.mu.RUnlock()

	return map[string]interface{}{
		"started":        i.started,
		"queue_length":   len(i.jobQueue),
		"queue_capacity": cap(i.jobQueue),
		"worker_count":   i.config.WorkerCount,
	}
}
