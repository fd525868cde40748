// internal/service/intelligence/engine/synthesizer.go
package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"

	"promo-intelligence/internal/service/intelligence/domain"
)

// happyHourWindows 是 timeframe_optimization 建议使用的固定时间窗。
var happyHourWindows = map[domain.Timeframe][2]string{
	domain.TimeframeMorning:   {"09:00", "11:00"},
	domain.TimeframeAfternoon: {"14:00", "16:00"},
	domain.TimeframeEvening:   {"17:00", "20:00"},
	domain.TimeframeNight:     {"22:00", "23:59"},
}

// SynthesisInput 汇总了各分析器的输出。
type SynthesisInput struct {
	DayProfile       DayOfWeekProfile
	TimeframeProfile TimeframeProfile
	Demographics     DemographicProfile
	Forecast         RevenueForecast
	Now              time.Time
}

// Synthesizer 把分析结果合成为按优先级排序的建议列表。
type Synthesizer struct {
	rules    domain.RuleEngine
	seasonal []SeasonalRule
}

// NewSynthesizer seasonal 为空时使用 DefaultSeasonalRules。
func NewSynthesizer(rules domain.RuleEngine, seasonal []SeasonalRule) *Synthesizer {
	if len(seasonal) == 0 {
		seasonal = DefaultSeasonalRules
	}
	return &Synthesizer{rules: rules, seasonal: seasonal}
}

// Synthesize 按固定顺序生成建议，再按优先级稳定排序。
func (s *Synthesizer) Synthesize(in SynthesisInput) ([]domain.Suggestion, error) {
	suggestions := make([]domain.Suggestion, 0, 6)

	if len(in.DayProfile.BestDays) > 0 {
		suggestions = append(suggestions, dayOptimization(in.DayProfile.BestDays[0]))
	}
	if in.TimeframeProfile.BestTimeframe != "" {
		suggestions = append(suggestions, timeframeOptimization(in.TimeframeProfile.BestTimeframe))
	}
	if in.Demographics.DominantAgeGroup != "" && in.Demographics.DominantAgeGroup != AgeUnknown {
		suggestions = append(suggestions, demographicTargeting(in.Demographics.DominantAgeGroup))
	}
	if in.Forecast.Trend == TrendDecreasing {
		suggestions = append(suggestions, revenueBoost(in.Now))
	}
	if len(in.DayProfile.WorstDays) > 0 {
		suggestions = append(suggestions, trafficBoost(in.DayProfile.WorstDays[0]))
	}

	seasonal, err := s.seasonalSuggestion(in.Now)
	if err != nil {
		return nil, err
	}
	if seasonal != nil {
		suggestions = append(suggestions, *seasonal)
	}

	SortByPriority(suggestions)
	return suggestions, nil
}

func (s *Synthesizer) seasonalSuggestion(now time.Time) (*domain.Suggestion, error) {
	fact := CalendarFact(now)
	for _, rule := range s.seasonal {
		ok, err := s.rules.Evaluate(rule.Expression, fact)
		if err != nil {
			return nil, errors.Wrapf(err, "evaluate seasonal rule %q", rule.Name)
		}
		if ok {
			sg := rule.suggestion(now)
			return &sg, nil
		}
	}
	return nil, nil
}

// SortByPriority high > medium > low，同优先级保持生成顺序。
func SortByPriority(suggestions []domain.Suggestion) {
	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Priority.Rank() > suggestions[j].Priority.Rank()
	})
}

func dayOptimization(day string) domain.Suggestion {
	title := fmt.Sprintf("%s Night Special", titleCase(day))
	desc := fmt.Sprintf("%s is your strongest day. Capitalize on it with a dedicated evening special.", titleCase(day))
	return domain.Suggestion{
		Type:        domain.SuggestionDayOptimization,
		Priority:    domain.PriorityHigh,
		Title:       title,
		Description: desc,
		Template: domain.PromotionTemplate{
			Title:           title,
			Description:     desc,
			Type:            domain.PromotionSpecial,
			DiscountPercent: DayOptimizationDiscount,
			Schedule: []domain.ScheduleSlot{{
				Days:      []string{day},
				StartTime: DefaultEveningStartTime,
				EndTime:   DefaultEveningEndTime,
			}},
		},
		Confidence: DayOptimizationConfidence,
		AutoPost:   true,
	}
}

func timeframeOptimization(tf domain.Timeframe) domain.Suggestion {
	window := happyHourWindows[tf]
	title := fmt.Sprintf("%s Happy Hour", titleCase(string(tf)))
	desc := fmt.Sprintf("Most of your redemptions happen in the %s. Run a weekday happy hour in that window.", tf)
	return domain.Suggestion{
		Type:        domain.SuggestionTimeframeOptimization,
		Priority:    domain.PriorityHigh,
		Title:       title,
		Description: desc,
		Template: domain.PromotionTemplate{
			Title:           title,
			Description:     desc,
			Type:            domain.PromotionHappyHour,
			DiscountPercent: TimeframeOptimizationDiscount,
			Schedule: []domain.ScheduleSlot{{
				Days:      append([]string(nil), domain.WorkDays...),
				StartTime: window[0],
				EndTime:   window[1],
			}},
		},
		Confidence: TimeframeOptimizationConfidence,
		AutoPost:   true,
	}
}

func demographicTargeting(group AgeGroup) domain.Suggestion {
	promoType, discount := domain.PromotionSpecial, float64(DefaultDemographicDiscount)
	switch group {
	case Age18To25:
		promoType, discount = domain.PromotionFlashDeal, YoungAdultDiscount
	case Age26To35:
		promoType, discount = domain.PromotionExclusive, AdultDiscount
	}
	title := fmt.Sprintf("%s Crowd Favorite", group)
	desc := fmt.Sprintf("Your audience skews %s. Offer a %s tailored to this group.", group, promoType)
	return domain.Suggestion{
		Type:        domain.SuggestionDemographicTargeting,
		Priority:    domain.PriorityMedium,
		Title:       title,
		Description: desc,
		Template: domain.PromotionTemplate{
			Title:           title,
			Description:     desc,
			Type:            promoType,
			DiscountPercent: discount,
		},
		Confidence: DemographicTargetingConfidence,
		AutoPost:   true,
	}
}

func revenueBoost(now time.Time) domain.Suggestion {
	start := now
	end := now.AddDate(0, 0, RevenueBoostValidDays)
	title := "Revenue Recovery Flash Deal"
	desc := "Revenue is trending down. A short flash deal can bring customers back quickly."
	return domain.Suggestion{
		Type:        domain.SuggestionRevenueBoost,
		Priority:    domain.PriorityHigh,
		Title:       title,
		Description: desc,
		Template: domain.PromotionTemplate{
			Title:           title,
			Description:     desc,
			Type:            domain.PromotionFlashDeal,
			DiscountPercent: RevenueBoostDiscount,
			StartDate:       &start,
			EndDate:         &end,
		},
		Confidence: RevenueBoostConfidence,
		AutoPost:   true,
	}
}

func trafficBoost(day string) domain.Suggestion {
	title := fmt.Sprintf("%s Traffic Booster", titleCase(day))
	desc := fmt.Sprintf("%s is your slowest day. A strong discount can fill the room.", titleCase(day))
	return domain.Suggestion{
		Type:        domain.SuggestionTrafficBoost,
		Priority:    domain.PriorityMedium,
		Title:       title,
		Description: desc,
		Template: domain.PromotionTemplate{
			Title:           title,
			Description:     desc,
			Type:            domain.PromotionSpecial,
			DiscountPercent: TrafficBoostDiscount,
			Schedule: []domain.ScheduleSlot{{
				Days:      []string{day},
				StartTime: DefaultEveningStartTime,
				EndTime:   DefaultEveningEndTime,
			}},
		},
		Confidence: TrafficBoostConfidence,
		AutoPost:   true,
	}
}
