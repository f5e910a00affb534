// Package scheduler runs periodic stock checks.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/erazemk/zaloga/internal/metrics"
	"github.com/erazemk/zaloga/internal/model"
)

// ReorderLister returns items at or below their minimum stock level.
type ReorderLister interface {
	ReorderItems(ctx context.Context) ([]model.Item, error)
}

// Scheduler runs the reorder check on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	items   ReorderLister
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a scheduler. Call Start to register the check and begin
// running it.
func New(items ReorderLister, m *metrics.Metrics, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:    cron.New(),
		items:   items,
		metrics: m,
		logger:  logger.With("component", "scheduler"),
	}
}

// Start schedules the reorder check using a standard five-field cron
// expression and starts the cron loop.
func (s *Scheduler) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.runReorderCheck); err != nil {
		return fmt.Errorf("scheduling reorder check %q: %w", schedule, err)
	}
	s.logger.Info("starting scheduler", "reorder_schedule", schedule)
	s.cron.Start()
	return nil
}

// Stop stops the cron loop and waits for a running check to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runReorderCheck() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, err := s.CheckReorder(ctx); err != nil {
		s.logger.Error("reorder check failed", "error", err)
	}
}

// CheckReorder logs every item that needs restocking, updates the reorder
// gauge and returns the items.
func (s *Scheduler) CheckReorder(ctx context.Context) ([]model.Item, error) {
	items, err := s.items.ReorderItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing reorder items: %w", err)
	}

	for _, item := range items {
		s.logger.Warn("item below reorder level",
			"item_id", item.ID,
			"name", item.Name,
			"quantity", item.Quantity,
			"min_stock_level", item.MinStockLevel,
			"reorder_quantity", item.ReorderQuantity,
		)
	}
	s.metrics.SetItemsBelowReorder(len(items))
	s.logger.Info("reorder check complete", "items_below_level", len(items))

	return items, nil
}
