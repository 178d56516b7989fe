package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ryyparr-art/swingthoughts-sub007/internal/cache"
	"github.com/ryyparr-art/swingthoughts-sub007/internal/config"
	"github.com/ryyparr-art/swingthoughts-sub007/internal/store"
)

// RecordWorker periodically recomputes each course's true lowest-net
// holder from the score collection and repairs the record documents.
// This bounds the drift from racing record claims and from cached
// entries outliving a write.
type RecordWorker struct {
	store   store.Store
	records *cache.Records
	config  *config.RebuildConfig
	logger  *slog.Logger
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	running bool
}

// NewRecordWorker creates a new record rebuild worker
func NewRecordWorker(
	st store.Store,
	records *cache.Records,
	cfg *config.RebuildConfig,
	logger *slog.Logger,
) *RecordWorker {
	return &RecordWorker{
		store:   st,
		records: records,
		config:  cfg,
		logger:  logger,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start begins the background rebuild process
func (w *RecordWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("record rebuild worker started", "interval", w.config.Interval)

	go w.run(ctx)
	return nil
}

// Stop stops the background rebuild process
func (w *RecordWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("record rebuild worker stopped")
	return nil
}

// run is the main worker loop
func (w *RecordWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.rebuild(ctx)
		}
	}
}

// rebuild recomputes and replaces every course record
func (w *RecordWorker) rebuild(ctx context.Context) {
	w.logger.Info("starting record rebuild cycle")
	startTime := time.Now()

	best, err := w.store.BestScores(ctx)
	if err != nil {
		w.logger.Error("failed to compute best scores", "error", err)
		return
	}

	if err := w.store.ReplaceCourseRecords(ctx, best); err != nil {
		w.logger.Error("failed to replace course records", "error", err)
		return
	}

	// Refresh cached entries so readers converge without waiting out
	// the TTL
	for _, record := range best {
		w.records.Put(ctx, record)
	}

	w.logger.Info("record rebuild cycle completed",
		"duration", time.Since(startTime),
		"courses", len(best),
	)
}

// IsRunning returns whether the worker is currently running
func (w *RecordWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// RunOnce runs a single rebuild cycle (useful for manual triggers)
func (w *RecordWorker) RunOnce(ctx context.Context) {
	w.rebuild(ctx)
}
