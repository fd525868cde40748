// internal/service/intelligence/engine/timing.go
package engine

import (
	"promo-intelligence/internal/service/intelligence/domain"
)

// TimingPrediction 给定促销类型和时段后，历史上核销最多的星期和时段。
type TimingPrediction struct {
	PromotionType      domain.PromotionType `json:"promotionType,omitempty"`
	Timeframe          domain.Timeframe     `json:"timeframe,omitempty"`
	BestDay            string               `json:"bestDay,omitempty"`
	BestTimeframe      domain.Timeframe     `json:"bestTimeframe,omitempty"`
	MatchingPromotions int                  `json:"matchingPromotions"`
	QualifyingRecords  int                  `json:"qualifyingRecords"`
	Confidence         int                  `json:"confidence"`
}

type clockRange struct {
	start, end int // 分钟
}

// contains 支持跨越午夜的区间，例如 22:00-02:00。
func (r clockRange) contains(minute int) bool {
	if r.end > r.start {
		return minute >= r.start && minute < r.end
	}
	return minute >= r.start || minute < r.end
}

type scheduledWindow struct {
	days []string
	rng  clockRange
}

// PredictOptimalTiming 先按类型和时段筛选促销，再统计落在这些促销排期内的核销记录。
// promotionType / timeframe 为空表示不过滤。
func PredictOptimalTiming(promotions []domain.Promotion, redemptions []domain.Redemption,
	promotionType domain.PromotionType, timeframe domain.Timeframe) TimingPrediction {

	result := TimingPrediction{PromotionType: promotionType, Timeframe: timeframe}

	var windows []scheduledWindow
	for _, p := range promotions {
		if promotionType != "" && p.Type != promotionType {
			continue
		}
		matched := false
		for _, slot := range p.Schedule {
			start, ok1 := parseClock(slot.StartTime)
			end, ok2 := parseClock(slot.EndTime)
			if !ok1 || !ok2 {
				continue
			}
			if timeframe != "" && domain.TimeframeOfHour(start/60) != timeframe {
				continue
			}
			matched = true
			windows = append(windows, scheduledWindow{days: slot.Days, rng: clockRange{start: start, end: end}})
		}
		if matched {
			result.MatchingPromotions++
		}
	}

	var dayCounts [7]int
	tfCounts := make(map[domain.Timeframe]int, len(domain.Timeframes))
	for _, r := range redemptions {
		if !r.Counts() {
			continue
		}
		day := domain.WeekdayName(r.RedeemedAt.Weekday())
		minute := r.RedeemedAt.Hour()*60 + r.RedeemedAt.Minute()
		for _, w := range windows {
			slot := domain.ScheduleSlot{Days: w.days}
			if slot.CoversDay(day) && w.rng.contains(minute) {
				result.QualifyingRecords++
				dayCounts[r.RedeemedAt.Weekday()]++
				tfCounts[domain.TimeframeOfHour(r.RedeemedAt.Hour())]++
				break
			}
		}
	}

	best := 0
	for i, c := range dayCounts {
		if c > best {
			best = c
			result.BestDay = domain.Weekdays[i]
		}
	}
	best = 0
	for _, tf := range domain.Timeframes {
		if tfCounts[tf] > best {
			best = tfCounts[tf]
			result.BestTimeframe = tf
		}
	}

	result.Confidence = TimingLowConfidence
	if result.QualifyingRecords > TimingMinRecords {
		result.Confidence = TimingHighConfidence
	}
	return result
}
