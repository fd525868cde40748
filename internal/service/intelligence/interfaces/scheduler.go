package interfaces

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"promo-intelligence/internal/pkg/logger"
	"promo-intelligence/internal/service/intelligence/application"
)

// AutomationRunner 是定时任务和触发消费者共同依赖的用例子集
type AutomationRunner interface {
	ActiveVenueIDs(ctx context.Context) ([]string, error)
	RunAutomation(ctx context.Context, venueID string, threshold float64) (*application.AutoPostResult, error)
}

// SweepStats 一轮扫描的汇总
type SweepStats struct {
	Venues  int
	Posted  int
	Pending int
	Failed  int // 整个场馆失败的数量
}

// AutomationScheduler 按固定间隔遍历所有场馆，逐个执行自动化
type AutomationScheduler struct {
	runner    AutomationRunner
	interval  time.Duration
	threshold float64
}

func NewAutomationScheduler(runner AutomationRunner, interval time.Duration, threshold float64) *AutomationScheduler {
	return &AutomationScheduler{runner: runner, interval: interval, threshold: threshold}
}

// Start 启动时先跑一轮，然后每个 interval 跑一轮，直到 ctx 取消
func (s *AutomationScheduler) Start(ctx context.Context) {
	logger.Ctx(ctx).Info().Dur("interval", s.interval).Msg("Automation scheduler started")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.RunOnce(ctx)
	for {
		select {
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-ctx.Done():
			logger.Ctx(ctx).Info().Msg("Automation scheduler stopped")
			return
		}
	}
}

// RunOnce 顺序处理每个场馆，单个场馆失败不影响其余场馆
func (s *AutomationScheduler) RunOnce(parentCtx context.Context) SweepStats {
	tracer := otel.Tracer(schedulerTracerName)
	ctx, span := tracer.Start(parentCtx, "scheduler.Sweep")
	defer span.End()

	var stats SweepStats
	venueIDs, err := s.runner.ActiveVenueIDs(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list venues")
		logger.Ctx(ctx).Error().Err(err).Msg("Failed to list venues for automation")
		return stats
	}

	for _, venueID := range venueIDs {
		if ctx.Err() != nil {
			break
		}
		stats.Venues++
		result, err := s.runner.RunAutomation(ctx, venueID, s.threshold)
		if err != nil {
			stats.Failed++
			logger.Ctx(ctx).Error().Err(err).Str("venue_id", venueID).Msg("Automation run failed")
			continue
		}
		stats.Posted += len(result.Posted)
		stats.Pending += len(result.Pending)
	}

	span.SetAttributes(
		attribute.Int("sweep.venues", stats.Venues),
		attribute.Int("sweep.posted", stats.Posted),
		attribute.Int("sweep.failed", stats.Failed),
	)
	logger.Ctx(ctx).Info().Int("venues", stats.Venues).Int("posted", stats.Posted).
		Int("pending", stats.Pending).Int("failed", stats.Failed).Msg("Automation sweep finished")
	return stats
}
