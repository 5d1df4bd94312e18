package server

import (
	"context"
	"log/slog"
	"time"

	"deaddrop/internal/models"
)

// SweepResult counts what one retention sweep did.
type SweepResult struct {
	Expired int
	Deleted int
	Failed  int
}

// Sweep deletes every drop past its expiry and every burned drop whose
// grace timer was lost to a restart. One failing drop never stops the
// sweep.
func (s *DropService) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	now := s.now().UTC()
	drops, err := s.store.ListSweepable(ctx, now)
	if err != nil {
		return result, storeFailure(err)
	}

	for _, drop := range drops {
		// Same per-drop lock as retrieval, so a sweep never races an
		// in-flight retrieve of the same drop.
		s.locks.Lock(drop.ID)
		s.sweepDrop(ctx, drop, &result)
		s.locks.Unlock(drop.ID)
	}

	if result.Deleted > 0 || result.Failed > 0 {
		s.logger.Info("retention sweep",
			"expired", result.Expired, "deleted", result.Deleted, "failed", result.Failed)
	}
	return result, nil
}

func (s *DropService) sweepDrop(ctx context.Context, drop *models.DeadDrop, result *SweepResult) {
	if drop.Status != models.StatusBurned && drop.Status != models.StatusExpired {
		if err := s.store.SetStatus(ctx, drop.ID, models.StatusExpired); err != nil {
			s.logger.Warn("sweep: mark expired", "drop_id", drop.ID, "error", err)
			result.Failed++
			return
		}
		s.appendEvent(ctx, drop.ID, models.EventExpired, RequestMeta{})
		result.Expired++
	}

	s.scheduler.Cancel(drop.ID)
	if err := s.deleteResources(ctx, drop.ID); err != nil {
		s.logger.Warn("sweep: delete drop", "drop_id", drop.ID, "codename", drop.Codename, "error", err)
		result.Failed++
		return
	}
	result.Deleted++
}

// Sweeper runs periodic retention sweeps until its context is
// cancelled.
type Sweeper struct {
	service  *DropService
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeper constructs a Sweeper. A non-positive interval falls back
// to one minute.
func NewSweeper(service *DropService, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{service: service, interval: interval, logger: logger}
}

// Run sweeps once immediately, then on every tick until ctx is done.
func (w *Sweeper) Run(ctx context.Context) {
	w.sweepOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweepOnce(ctx)
		}
	}
}

func (w *Sweeper) sweepOnce(ctx context.Context) {
	if _, err := w.service.Sweep(ctx); err != nil {
		w.logger.Error("retention sweep failed", "error", err)
	}
}
