// internal/service/intelligence/engine/seasonal.go
package engine

import (
	"time"

	"promo-intelligence/internal/service/intelligence/domain"
)

// SeasonalRule 是一条按日历触发的季节性建议。Expression 由 domain.RuleEngine 评估，
// 可用变量：month (1-12), day (1-31), weekday (0=sunday)。
type SeasonalRule struct {
	Name            string
	Expression      string
	Priority        domain.Priority
	Confidence      float64
	Title           string
	Description     string
	PromotionType   domain.PromotionType
	DiscountPercent float64
	ValidDays       int
}

// DefaultSeasonalRules 按顺序评估，只取第一条命中的规则。
var DefaultSeasonalRules = []SeasonalRule{
	{
		Name:            "holiday",
		Expression:      "month == 12 && day >= 15 && day <= 25",
		Priority:        domain.PriorityHigh,
		Confidence:      HolidayConfidence,
		Title:           "Holiday Celebration Special",
		Description:     "Holiday season is here. Launch a festive promotion to capture celebration traffic.",
		PromotionType:   domain.PromotionEvent,
		DiscountPercent: HolidayDiscount,
		ValidDays:       10,
	},
	{
		Name:            "summer",
		Expression:      "month >= 6 && month <= 8",
		Priority:        domain.PriorityMedium,
		Confidence:      SummerConfidence,
		Title:           "Summer Vibes Special",
		Description:     "Warm evenings bring people out. Run a summer promotion to ride the seasonal demand.",
		PromotionType:   domain.PromotionSpecial,
		DiscountPercent: SummerDiscount,
		ValidDays:       14,
	},
}

// CalendarFact 把时间转换成规则变量。
func CalendarFact(now time.Time) domain.Fact {
	return domain.Fact{
		"month":   int64(now.Month()),
		"day":     int64(now.Day()),
		"weekday": int64(now.Weekday()),
	}
}

func (r SeasonalRule) suggestion(now time.Time) domain.Suggestion {
	start := now
	end := now.AddDate(0, 0, r.ValidDays)
	return domain.Suggestion{
		Type:        domain.SuggestionSeasonal,
		Priority:    r.Priority,
		Title:       r.Title,
		Description: r.Description,
		Template: domain.PromotionTemplate{
			Title:           r.Title,
			Description:     r.Description,
			Type:            r.PromotionType,
			DiscountPercent: r.DiscountPercent,
			StartDate:       &start,
			EndDate:         &end,
		},
		Confidence: r.Confidence,
		AutoPost:   true,
	}
}
