package worker

import (
	"context"
	"fmt"
	"time"

	"nft-ticket-marketplace/internal/repository"
	"nft-ticket-marketplace/pkg/logger"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// CatalogRefresher 定期預熱 recent tickets 快取，讓列表請求不需要等待 RPC
type CatalogRefresher interface {
	Start(ctx context.Context) error
	Stop() error
}

type CatalogRefresherImpl struct {
	repo      repository.TicketRepository
	interval  time.Duration
	scheduler gocron.Scheduler
	log       *zap.Logger
}

func NewCatalogRefresher(repo repository.TicketRepository, interval time.Duration) (CatalogRefresher, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("refresh interval must be positive, got %s", interval)
	}
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &CatalogRefresherImpl{
		repo:      repo,
		interval:  interval,
		scheduler: scheduler,
		log:       logger.WithComponent("refresher"),
	}, nil
}

func (r *CatalogRefresherImpl) Start(ctx context.Context) error {
	job, err := r.scheduler.NewJob(
		gocron.DurationJob(r.interval),
		gocron.NewTask(func() { r.refresh(ctx) }),
		gocron.WithName("catalog-refresh"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("schedule catalog refresh: %w", err)
	}
	r.log.Info("catalog refresh scheduled", zap.String("job_id", job.ID().String()), zap.Duration("interval", r.interval))
	r.scheduler.Start()
	return nil
}

func (r *CatalogRefresherImpl) refresh(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	tickets, err := r.repo.Refresh(ctx)
	if err != nil {
		r.log.Warn("catalog refresh failed", zap.Error(err))
		return
	}
	r.log.Debug("catalog refreshed", zap.Int("tickets", len(tickets)), zap.Duration("took", time.Since(start)))
}

func (r *CatalogRefresherImpl) Stop() error {
	return r.scheduler.Shutdown()
}
