// internal/service/intelligence/application/gate.go
package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"promo-intelligence/internal/pkg/logger"
	"promo-intelligence/internal/pkg/metrics"
	"promo-intelligence/internal/service/intelligence/domain"
	"promo-intelligence/internal/service/intelligence/engine"
	"promo-intelligence/internal/service/intelligence/port"
)

const (
	stagePersist = "persist"
	stageNotify  = "notify"
)

// AutomationGate 决定哪些建议直接发布、哪些留给人工审核。
// 整个批次持有场馆锁，写入再由仓储的事务行锁兜底。
type AutomationGate struct {
	store    domain.PromotionStore
	reader   domain.HistoryReader
	notifier port.NotificationPublisher
	locker   port.VenueLocker
	cache    domain.AnalysisCache
	tracer   trace.Tracer

	location      *time.Location
	checkInWindow time.Duration
	notifyTimeout time.Duration
	now           func() time.Time
}

func NewAutomationGate(store domain.PromotionStore, reader domain.HistoryReader, notifier port.NotificationPublisher,
	locker port.VenueLocker, cache domain.AnalysisCache, tracer trace.Tracer, cfg Config) *AutomationGate {
	cfg = cfg.withDefaults()
	if cache == nil {
		cache = noopCache{}
	}
	return &AutomationGate{
		store:         store,
		reader:        reader,
		notifier:      notifier,
		locker:        locker,
		cache:         cache,
		tracer:        tracer,
		location:      cfg.Location,
		checkInWindow: days(cfg.CheckInWindowDays),
		notifyTimeout: cfg.NotifyTimeout,
		now:           cfg.Now,
	}
}

// Process 逐条处理建议。单条失败只记录，不会中断批次；拿不到场馆锁则整体失败。
func (g *AutomationGate) Process(ctx context.Context, venueID string, suggestions []domain.Suggestion, threshold float64) (*AutoPostResult, error) {
	ctx, span := g.tracer.Start(ctx, "gate.Process")
	defer span.End()

	if threshold <= 0 {
		threshold = engine.DefaultAutoPostThreshold
	}
	span.SetAttributes(
		attribute.String("venue.id", venueID),
		attribute.Int("suggestion.count", len(suggestions)),
		attribute.Float64("autopost.threshold", threshold),
	)

	release, err := g.locker.LockVenue(ctx, venueID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to lock venue")
		return nil, err
	}
	defer func() {
		if err := release(context.Background()); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("venue_id", venueID).Msg("Failed to release venue lock")
		}
	}()

	result := &AutoPostResult{
		VenueID:   venueID,
		Threshold: threshold,
		Posted:    []PostedPromotion{},
		Pending:   []domain.Suggestion{},
		Failed:    []FailedSuggestion{},
	}
	log := logger.Ctx(ctx)

	for _, s := range suggestions {
		if !s.AutoPost || s.Confidence < threshold {
			result.Pending = append(result.Pending, s)
			metrics.AutoPostResults.WithLabelValues("pending").Inc()
			continue
		}

		promotion := g.materialize(venueID, s)
		if err := g.store.AppendPromotion(ctx, venueID, &promotion); err != nil {
			err = errors.Wrapf(domain.ErrPersistence, "%s: %v", s.Type, err)
			log.Error().Err(err).Str("venue_id", venueID).Str("suggestion", string(s.Type)).Msg("Auto-post failed, suggestion kept for review")
			span.RecordError(err)
			result.Failed = append(result.Failed, FailedSuggestion{Suggestion: s, Stage: stagePersist, Error: err.Error()})
			result.Pending = append(result.Pending, s)
			metrics.AutoPostResults.WithLabelValues("failed").Inc()
			continue
		}

		posted := PostedPromotion{SuggestionType: s.Type, Promotion: promotion}
		metrics.AutoPostResults.WithLabelValues("posted").Inc()
		log.Info().Str("venue_id", venueID).Str("promotion_id", promotion.ID).
			Float64("confidence", s.Confidence).Msg("Auto-posted promotion")

		if s.AutoNotify {
			id, err := g.notify(ctx, venueID, &promotion)
			if err != nil {
				log.Error().Err(err).Str("venue_id", venueID).Str("promotion_id", promotion.ID).Msg("Failed to request notification")
				span.RecordError(err)
				result.Failed = append(result.Failed, FailedSuggestion{Suggestion: s, Stage: stageNotify, Error: err.Error()})
			}
			posted.NotificationID = id
		}
		result.Posted = append(result.Posted, posted)
	}

	if len(result.Posted) > 0 {
		if err := g.cache.Invalidate(ctx, venueID); err != nil {
			log.Warn().Err(err).Str("venue_id", venueID).Msg("Failed to invalidate analysis cache")
		}
	}

	span.SetAttributes(
		attribute.Int("autopost.posted", len(result.Posted)),
		attribute.Int("autopost.pending", len(result.Pending)),
		attribute.Int("autopost.failed", len(result.Failed)),
	)
	return result, nil
}

// materialize 补齐模板缺省值：开始时间 now，结束时间 now+7 天，排期每天 17:00-22:00。
func (g *AutomationGate) materialize(venueID string, s domain.Suggestion) domain.Promotion {
	now := g.now().In(g.location)
	tpl := s.Template
	if tpl.StartDate == nil {
		start := now
		tpl.StartDate = &start
	}
	if tpl.EndDate == nil {
		end := now.Add(engine.DefaultPromotionDuration)
		tpl.EndDate = &end
	}
	if len(tpl.Schedule) == 0 {
		tpl.Schedule = []domain.ScheduleSlot{{
			Days:      append([]string(nil), domain.Weekdays[:]...),
			StartTime: engine.DefaultEveningStartTime,
			EndTime:   engine.DefaultEveningEndTime,
		}}
	}
	if tpl.Title == "" {
		tpl.Title = s.Title
	}
	if tpl.Description == "" {
		tpl.Description = s.Description
	}
	return domain.Promotion{
		ID:                uuid.New().String(),
		VenueID:           venueID,
		PromotionTemplate: tpl,
		IsActive:          true,
		AutoGenerated:     true,
		AIConfidence:      s.Confidence,
		CreatedAt:         now,
	}
}

// notify 在持锁期间执行，必须有超时，否则慢速的推送通道会让锁在批次中途过期
func (g *AutomationGate) notify(ctx context.Context, venueID string, promotion *domain.Promotion) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.notifyTimeout)
	defer cancel()

	now := g.now().In(g.location)
	checkIns, err := g.reader.CheckInsForVenue(ctx, venueID, now.Add(-g.checkInWindow))
	if err != nil {
		return "", errors.Wrap(err, "load recent check-ins")
	}
	recipients := RecentVisitors(checkIns, engine.NotificationRecipientLimit)
	if len(recipients) == 0 {
		logger.Ctx(ctx).Info().Str("venue_id", venueID).Msg("No recent visitors, notification skipped")
		return "", nil
	}

	req := &domain.NotificationRequest{
		ID:           uuid.New().String(),
		VenueID:      venueID,
		PromotionID:  promotion.ID,
		RecipientIDs: recipients,
		Title:        promotion.Title,
		Message:      notificationMessage(promotion),
		SendAt:       NotificationSendTime(now),
	}
	if err := g.notifier.PublishNotification(ctx, req); err != nil {
		return "", errors.Wrapf(err, "publish notification %s", req.ID)
	}
	metrics.NotificationsRequested.Inc()
	return req.ID, nil
}

// NotificationSendTime 返回最佳推送时间：当天 17:00 前两小时，已经过了就顺延到明天。
func NotificationSendTime(now time.Time) time.Time {
	send := time.Date(now.Year(), now.Month(), now.Day(), engine.OptimalNotificationHour, 0, 0, 0, now.Location()).
		Add(-engine.NotificationLeadTime)
	if !send.After(now) {
		send = send.AddDate(0, 0, 1)
	}
	return send
}

// RecentVisitors 取最近 limit 条签到（输入按时间倒序）中的去重用户。
func RecentVisitors(checkIns []domain.CheckIn, limit int) []string {
	if len(checkIns) > limit {
		checkIns = checkIns[:limit]
	}
	seen := make(map[string]struct{}, len(checkIns))
	out := make([]string, 0, len(checkIns))
	for _, c := range checkIns {
		if c.UserID == "" {
			continue
		}
		if _, ok := seen[c.UserID]; ok {
			continue
		}
		seen[c.UserID] = struct{}{}
		out = append(out, c.UserID)
	}
	return out
}

func notificationMessage(p *domain.Promotion) string {
	if p.DiscountPercent > 0 {
		return fmt.Sprintf("%s Enjoy %.0f%% off.", p.Description, p.DiscountPercent)
	}
	return p.Description
}
