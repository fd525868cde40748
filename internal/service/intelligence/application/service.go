// internal/service/intelligence/application/service.go
package application

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"promo-intelligence/internal/pkg/logger"
	"promo-intelligence/internal/pkg/metrics"
	"promo-intelligence/internal/service/intelligence/domain"
	"promo-intelligence/internal/service/intelligence/engine"
)

const (
	cacheKindSuggestions = "suggestions"
	cacheKindPerformance = "performance"
	cacheKindForecast    = "forecast"
)

// IntelligenceService 编排读取、分析和自动发布，分析本身都在 engine 中完成。
type IntelligenceService struct {
	reader      domain.HistoryReader
	cache       domain.AnalysisCache
	synthesizer *engine.Synthesizer
	gate        *AutomationGate
	tracer      trace.Tracer
	cfg         Config
}

func NewIntelligenceService(reader domain.HistoryReader, cache domain.AnalysisCache, synthesizer *engine.Synthesizer,
	gate *AutomationGate, tracer trace.Tracer, cfg Config) *IntelligenceService {
	if cache == nil {
		cache = noopCache{}
	}
	return &IntelligenceService{
		reader:      reader,
		cache:       cache,
		synthesizer: synthesizer,
		gate:        gate,
		tracer:      tracer,
		cfg:         cfg.withDefaults(),
	}
}

func (s *IntelligenceService) now() time.Time {
	return s.cfg.Now().In(s.cfg.Location)
}

func (s *IntelligenceService) since(windowDays int) time.Time {
	return s.now().Add(-days(windowDays))
}

// fail 统一记录 span 错误
func fail(span trace.Span, err error, msg string) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	return err
}

// venueHistory 是一次看板分析需要的全部数据
type venueHistory struct {
	venue       *domain.Venue
	recent      []domain.Redemption // 表现窗口
	revenue     []domain.Redemption // 收入窗口
	demographic []domain.UserProfile
}

// loadHistory 并发读取场馆、两个窗口的核销记录，再读取核销用户的资料。
func (s *IntelligenceService) loadHistory(ctx context.Context, venueID string) (*venueHistory, error) {
	h := &venueHistory{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := s.reader.FindVenue(gctx, venueID)
		h.venue = v
		return err
	})
	g.Go(func() error {
		r, err := s.reader.RedemptionsForVenue(gctx, venueID, s.since(s.cfg.PerformanceWindowDays))
		h.recent = r
		return err
	})
	g.Go(func() error {
		r, err := s.reader.RedemptionsForVenue(gctx, venueID, s.since(s.cfg.RevenueWindowDays))
		h.revenue = r
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	users, err := s.reader.UsersByIDs(ctx, distinctRecipients(h.recent))
	if err != nil {
		return nil, err
	}
	h.demographic = users
	return h, nil
}

// GetSuggestions 生成看板建议，结果按场馆缓存，自动发布后失效。
func (s *IntelligenceService) GetSuggestions(ctx context.Context, venueID string) (*SuggestionsResponse, error) {
	ctx, span := s.tracer.Start(ctx, "service.GetSuggestions")
	defer span.End()
	defer metrics.ObserveSince("get_suggestions", time.Now())
	span.SetAttributes(attribute.String("venue.id", venueID))

	var cached SuggestionsResponse
	if s.cacheGet(ctx, venueID, cacheKindSuggestions, &cached) {
		span.AddEvent("Suggestions served from cache")
		return &cached, nil
	}

	h, err := s.loadHistory(ctx, venueID)
	if err != nil {
		return nil, fail(span, err, "Failed to load venue history")
	}

	now := s.now()
	suggestions, err := s.synthesizer.Synthesize(engine.SynthesisInput{
		DayProfile:       engine.AnalyzeDayOfWeek(h.venue.Promotions, h.recent),
		TimeframeProfile: engine.AnalyzeTimeframes(h.recent),
		Demographics:     engine.AnalyzeDemographics(h.demographic, now),
		Forecast:         engine.ForecastRevenue(h.revenue, engine.DefaultForecastDays, now),
		Now:              now,
	})
	if err != nil {
		return nil, fail(span, err, "Failed to synthesize suggestions")
	}

	metrics.SuggestionsGenerated.WithLabelValues("dashboard").Add(float64(len(suggestions)))
	span.SetAttributes(attribute.Int("suggestion.count", len(suggestions)))
	logger.Ctx(ctx).Info().Str("venue_id", venueID).Int("count", len(suggestions)).Msg("Generated promotion suggestions")

	resp := &SuggestionsResponse{VenueID: venueID, GeneratedAt: now, Suggestions: suggestions}
	s.cacheSet(ctx, venueID, cacheKindSuggestions, resp)
	return resp, nil
}

// GetPerformance 返回表现窗口内的星期和时段分析
func (s *IntelligenceService) GetPerformance(ctx context.Context, venueID string) (*PerformanceResponse, error) {
	ctx, span := s.tracer.Start(ctx, "service.GetPerformance")
	defer span.End()
	defer metrics.ObserveSince("get_performance", time.Now())
	span.SetAttributes(attribute.String("venue.id", venueID))

	var cached PerformanceResponse
	if s.cacheGet(ctx, venueID, cacheKindPerformance, &cached) {
		return &cached, nil
	}

	venue, err := s.reader.FindVenue(ctx, venueID)
	if err != nil {
		return nil, fail(span, err, "Failed to find venue")
	}
	redemptions, err := s.reader.RedemptionsForVenue(ctx, venueID, s.since(s.cfg.PerformanceWindowDays))
	if err != nil {
		return nil, fail(span, err, "Failed to load redemptions")
	}

	resp := &PerformanceResponse{
		VenueID:    venueID,
		WindowDays: s.cfg.PerformanceWindowDays,
		DayOfWeek:  engine.AnalyzeDayOfWeek(venue.Promotions, redemptions),
		Timeframes: engine.AnalyzeTimeframes(redemptions),
	}
	s.cacheSet(ctx, venueID, cacheKindPerformance, resp)
	return resp, nil
}

// GetDemographics 统计表现窗口内核销用户的人口属性
func (s *IntelligenceService) GetDemographics(ctx context.Context, venueID string) (*engine.DemographicProfile, error) {
	ctx, span := s.tracer.Start(ctx, "service.GetDemographics")
	defer span.End()
	defer metrics.ObserveSince("get_demographics", time.Now())
	span.SetAttributes(attribute.String("venue.id", venueID))

	if _, err := s.reader.FindVenue(ctx, venueID); err != nil {
		return nil, fail(span, err, "Failed to find venue")
	}
	redemptions, err := s.reader.RedemptionsForVenue(ctx, venueID, s.since(s.cfg.PerformanceWindowDays))
	if err != nil {
		return nil, fail(span, err, "Failed to load redemptions")
	}
	users, err := s.reader.UsersByIDs(ctx, distinctRecipients(redemptions))
	if err != nil {
		return nil, fail(span, err, "Failed to load users")
	}

	profile := engine.AnalyzeDemographics(users, s.now())
	return &profile, nil
}

// ForecastRevenue 没有历史数据时返回 insufficient_data 结果而不是错误
func (s *IntelligenceService) ForecastRevenue(ctx context.Context, venueID string, daysAhead int) (*engine.RevenueForecast, error) {
	ctx, span := s.tracer.Start(ctx, "service.ForecastRevenue")
	defer span.End()
	defer metrics.ObserveSince("forecast_revenue", time.Now())
	span.SetAttributes(attribute.String("venue.id", venueID), attribute.Int("forecast.days_ahead", daysAhead))

	if daysAhead <= 0 {
		daysAhead = engine.DefaultForecastDays
	}
	kind := cacheKindForecast + ":" + strconv.Itoa(daysAhead)
	var cached engine.RevenueForecast
	if s.cacheGet(ctx, venueID, kind, &cached) {
		return &cached, nil
	}

	if _, err := s.reader.FindVenue(ctx, venueID); err != nil {
		return nil, fail(span, err, "Failed to find venue")
	}
	redemptions, err := s.reader.RedemptionsForVenue(ctx, venueID, s.since(s.cfg.RevenueWindowDays))
	if err != nil {
		return nil, fail(span, err, "Failed to load redemptions")
	}

	forecast := engine.ForecastRevenue(redemptions, daysAhead, s.now())
	metrics.ForecastResults.WithLabelValues(string(forecast.Status)).Inc()
	span.SetAttributes(attribute.String("forecast.status", string(forecast.Status)), attribute.Int("forecast.confidence", forecast.Confidence))
	if forecast.Status == engine.ForecastInsufficientData {
		logger.Ctx(ctx).Info().Str("venue_id", venueID).Msg("Revenue forecast has no qualifying history")
	}

	s.cacheSet(ctx, venueID, kind, forecast)
	return &forecast, nil
}

// PredictOptimalTiming 在收入窗口的核销记录上统计给定类型/时段促销的最佳星期和时段
func (s *IntelligenceService) PredictOptimalTiming(ctx context.Context, venueID string, promotionType domain.PromotionType, timeframe domain.Timeframe) (*engine.TimingPrediction, error) {
	ctx, span := s.tracer.Start(ctx, "service.PredictOptimalTiming")
	defer span.End()
	defer metrics.ObserveSince("predict_timing", time.Now())
	span.SetAttributes(
		attribute.String("venue.id", venueID),
		attribute.String("promotion.type", string(promotionType)),
		attribute.String("timeframe", string(timeframe)),
	)

	venue, err := s.reader.FindVenue(ctx, venueID)
	if err != nil {
		return nil, fail(span, err, "Failed to find venue")
	}
	redemptions, err := s.reader.RedemptionsForVenue(ctx, venueID, s.since(s.cfg.RevenueWindowDays))
	if err != nil {
		return nil, fail(span, err, "Failed to load redemptions")
	}

	prediction := engine.PredictOptimalTiming(venue.Promotions, redemptions, promotionType, timeframe)
	return &prediction, nil
}

// GenerateAutomationSuggestions 基于签到和已有促销生成自动化建议
func (s *IntelligenceService) GenerateAutomationSuggestions(ctx context.Context, venueID string) ([]domain.Suggestion, error) {
	ctx, span := s.tracer.Start(ctx, "service.GenerateAutomationSuggestions")
	defer span.End()
	defer metrics.ObserveSince("generate_automation", time.Now())
	span.SetAttributes(attribute.String("venue.id", venueID))

	venue, err := s.reader.FindVenue(ctx, venueID)
	if err != nil {
		return nil, fail(span, err, "Failed to find venue")
	}
	checkIns, err := s.reader.CheckInsForVenue(ctx, venueID, s.since(s.cfg.CheckInWindowDays))
	if err != nil {
		return nil, fail(span, err, "Failed to load check-ins")
	}
	// 窗口内没有签到时，留存规则仍需要知道场馆沉寂了多久
	lastCheckIn, err := s.reader.LatestCheckIn(ctx, venueID)
	if err != nil {
		return nil, fail(span, err, "Failed to load latest check-in")
	}

	suggestions := engine.AutomationSuggestions(engine.AutomationInput{
		CheckIns:    checkIns,
		LastCheckIn: lastCheckIn,
		Promotions:  venue.Promotions,
		Now:         s.now(),
	})
	metrics.SuggestionsGenerated.WithLabelValues("automation").Add(float64(len(suggestions)))
	span.SetAttributes(attribute.Int("suggestion.count", len(suggestions)))
	return suggestions, nil
}

// RunAutomation 生成自动化建议并交给闸门。threshold <= 0 时使用配置的阈值。
func (s *IntelligenceService) RunAutomation(ctx context.Context, venueID string, threshold float64) (*AutoPostResult, error) {
	ctx, span := s.tracer.Start(ctx, "service.RunAutomation")
	defer span.End()
	defer metrics.ObserveSince("run_automation", time.Now())

	suggestions, err := s.GenerateAutomationSuggestions(ctx, venueID)
	if err != nil {
		return nil, fail(span, err, "Failed to generate automation suggestions")
	}
	return s.AutoPost(ctx, venueID, suggestions, threshold)
}

// AutoPost 把一批建议交给自动发布闸门
func (s *IntelligenceService) AutoPost(ctx context.Context, venueID string, suggestions []domain.Suggestion, threshold float64) (*AutoPostResult, error) {
	if threshold <= 0 {
		threshold = s.cfg.AutoPostThreshold
	}
	result, err := s.gate.Process(ctx, venueID, suggestions, threshold)
	if err != nil {
		return nil, err
	}
	logger.Ctx(ctx).Info().Str("venue_id", venueID).
		Int("posted", len(result.Posted)).Int("pending", len(result.Pending)).Int("failed", len(result.Failed)).
		Msg("Automation gate finished")
	return result, nil
}

// FindTargetUsers 在场馆关注者中匹配受众
func (s *IntelligenceService) FindTargetUsers(ctx context.Context, venueID string, criteria engine.TargetCriteria) (*TargetUsersResponse, error) {
	ctx, span := s.tracer.Start(ctx, "service.FindTargetUsers")
	defer span.End()
	defer metrics.ObserveSince("find_target_users", time.Now())
	span.SetAttributes(attribute.String("venue.id", venueID))

	criteria, err := normalizeCriteria(criteria)
	if err != nil {
		return nil, fail(span, err, "Invalid criteria")
	}
	venue, err := s.reader.FindVenue(ctx, venueID)
	if err != nil {
		return nil, fail(span, err, "Failed to find venue")
	}
	followers, err := s.reader.UsersByIDs(ctx, venue.Followers)
	if err != nil {
		return nil, fail(span, err, "Failed to load followers")
	}

	users := engine.MatchAudience(followers, venueID, criteria, s.now())
	span.SetAttributes(attribute.Int("audience.size", len(users)))
	return &TargetUsersResponse{VenueID: venueID, Criteria: criteria, Users: users}, nil
}

// ForecastCLV 计算某个用户在某个场馆的生命周期价值
func (s *IntelligenceService) ForecastCLV(ctx context.Context, venueID, userID string) (*engine.CLVForecast, error) {
	ctx, span := s.tracer.Start(ctx, "service.ForecastCLV")
	defer span.End()
	defer metrics.ObserveSince("forecast_clv", time.Now())
	span.SetAttributes(attribute.String("venue.id", venueID), attribute.String("user.id", userID))

	if _, err := s.reader.FindVenue(ctx, venueID); err != nil {
		return nil, fail(span, err, "Failed to find venue")
	}
	if _, err := s.reader.FindUser(ctx, userID); err != nil {
		return nil, fail(span, err, "Failed to find user")
	}
	redemptions, err := s.reader.RedemptionsForUser(ctx, venueID, userID)
	if err != nil {
		return nil, fail(span, err, "Failed to load redemptions")
	}

	forecast := engine.ForecastCLV(redemptions)
	return &forecast, nil
}

// ActiveVenueIDs 列出需要定时跑自动化的场馆
func (s *IntelligenceService) ActiveVenueIDs(ctx context.Context) ([]string, error) {
	ids, err := s.reader.ActiveVenueIDs(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list active venues")
	}
	return ids, nil
}

func (s *IntelligenceService) cacheGet(ctx context.Context, venueID, kind string, dest interface{}) bool {
	hit, err := s.cache.Get(ctx, venueID, kind, dest)
	switch {
	case err != nil:
		metrics.CacheRequests.WithLabelValues("error").Inc()
		logger.Ctx(ctx).Warn().Err(err).Str("venue_id", venueID).Str("kind", kind).Msg("Analysis cache read failed")
		return false
	case hit:
		metrics.CacheRequests.WithLabelValues("hit").Inc()
		return true
	default:
		metrics.CacheRequests.WithLabelValues("miss").Inc()
		return false
	}
}

func (s *IntelligenceService) cacheSet(ctx context.Context, venueID, kind string, value interface{}) {
	if err := s.cache.Set(ctx, venueID, kind, value); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("venue_id", venueID).Str("kind", kind).Msg("Analysis cache write failed")
	}
}

// normalizeCriteria 校验并规范化大小写
func normalizeCriteria(c engine.TargetCriteria) (engine.TargetCriteria, error) {
	if c.MinVisits < 0 {
		return c, errors.Wrap(domain.ErrInvalidCriteria, "minVisits must not be negative")
	}
	if c.Timeframe != "" {
		tf, ok := domain.ParseTimeframe(string(c.Timeframe))
		if !ok {
			return c, errors.Wrapf(domain.ErrInvalidCriteria, "unknown timeframe %q", c.Timeframe)
		}
		c.Timeframe = tf
	}
	if c.PromotionType != "" {
		t, ok := domain.ParsePromotionType(string(c.PromotionType))
		if !ok {
			return c, errors.Wrapf(domain.ErrInvalidCriteria, "unknown promotion type %q", c.PromotionType)
		}
		c.PromotionType = t
	}
	return c, nil
}

func distinctRecipients(redemptions []domain.Redemption) []string {
	seen := make(map[string]struct{}, len(redemptions))
	ids := make([]string, 0, len(redemptions))
	for _, r := range redemptions {
		if r.RecipientID == "" {
			continue
		}
		if _, ok := seen[r.RecipientID]; ok {
			continue
		}
		seen[r.RecipientID] = struct{}{}
		ids = append(ids, r.RecipientID)
	}
	return ids
}
