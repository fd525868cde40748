// internal/service/intelligence/engine/performance.go
package engine

import (
	"sort"

	"promo-intelligence/internal/service/intelligence/domain"
)

// DayRecommendation 是对某一天的定性建议。
type DayRecommendation string

const (
	DayIncrease DayRecommendation = "increase"
	DayImprove  DayRecommendation = "improve"
	DayMaintain DayRecommendation = "maintain"
)

// DayPerformance 是一周中某一天的汇总表现。
type DayPerformance struct {
	Day            string            `json:"day"`
	Redemptions    int               `json:"redemptions"`
	Revenue        float64           `json:"revenue"`
	Promotions     int               `json:"promotions"`
	Score          float64           `json:"score"`
	Recommendation DayRecommendation `json:"recommendation"`
	Advice         string            `json:"advice"`
}

// DayOfWeekProfile 按分数从高到低排列的 7 天表现。
type DayOfWeekProfile struct {
	Days      []DayPerformance `json:"days"`
	BestDays  []string         `json:"bestDays"`
	WorstDays []string         `json:"worstDays"` // 最差的排在最前
}

// AnalyzeDayOfWeek 计算星期维度的表现画像。
//
// 分数 = redemptions*0.5 + revenue/100 + promotions*0.3，保留两位小数。
// promotions 统计的是 schedule 中 days 文本包含该星期名的促销数量。
// 所有分数都为 0 时不给出 best/worst。
func AnalyzeDayOfWeek(promotions []domain.Promotion, redemptions []domain.Redemption) DayOfWeekProfile {
	var days [7]DayPerformance
	for i, name := range domain.Weekdays {
		days[i].Day = name
	}

	for _, r := range redemptions {
		if !r.Counts() {
			continue
		}
		d := &days[r.RedeemedAt.Weekday()]
		d.Redemptions++
		d.Revenue += r.Amount
	}

	for _, p := range promotions {
		for i, name := range domain.Weekdays {
			for _, slot := range p.Schedule {
				if slot.CoversDay(name) {
					days[i].Promotions++
					break
				}
			}
		}
	}

	anyScore := false
	for i := range days {
		d := &days[i]
		d.Revenue = round2(d.Revenue)
		d.Score = round2(float64(d.Redemptions)*DayScoreRedemptionWeight +
			d.Revenue/DayScoreRevenueDivisor +
			float64(d.Promotions)*DayScorePromotionWeight)
		d.Recommendation, d.Advice = recommendDay(d.Score)
		if d.Score > 0 {
			anyScore = true
		}
	}

	sorted := days[:]
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	profile := DayOfWeekProfile{Days: append([]DayPerformance(nil), sorted...)}
	if !anyScore {
		return profile
	}
	for i := 0; i < BestDaysCount && i < len(sorted); i++ {
		profile.BestDays = append(profile.BestDays, sorted[i].Day)
	}
	for i := len(sorted) - 1; i >= len(sorted)-WorstDaysCount && i >= 0; i-- {
		profile.WorstDays = append(profile.WorstDays, sorted[i].Day)
	}
	return profile
}

func recommendDay(score float64) (DayRecommendation, string) {
	switch {
	case score > DayIncreaseThreshold:
		return DayIncrease, "Strong day: add more promotions or extend hours"
	case score < DayImproveThreshold:
		return DayImprove, "Weak day: run a targeted promotion to drive traffic"
	default:
		return DayMaintain, "Steady day: keep the current promotion mix"
	}
}

// TimeframeTag 时段的定性标签。
type TimeframeTag string

const (
	TimeframeOptimal  TimeframeTag = "optimal"
	TimeframeImprove  TimeframeTag = "improve"
	TimeframeMaintain TimeframeTag = "maintain"
)

type TimeframePerformance struct {
	Timeframe   domain.Timeframe `json:"timeframe"`
	Redemptions int              `json:"redemptions"`
	Revenue     float64          `json:"revenue"`
	Score       float64          `json:"score"`
	Tag         TimeframeTag     `json:"tag"`
}

// TimeframeProfile 以固定顺序（morning, afternoon, evening, night）输出各时段。
type TimeframeProfile struct {
	Timeframes    []TimeframePerformance `json:"timeframes"`
	BestTimeframe domain.Timeframe       `json:"bestTimeframe,omitempty"`
}

// AnalyzeTimeframes 按小时把核销记录分到四个时段，分数 = redemptions*2 + revenue/50。
func AnalyzeTimeframes(redemptions []domain.Redemption) TimeframeProfile {
	index := make(map[domain.Timeframe]int, len(domain.Timeframes))
	slots := make([]TimeframePerformance, len(domain.Timeframes))
	for i, tf := range domain.Timeframes {
		index[tf] = i
		slots[i].Timeframe = tf
	}

	for _, r := range redemptions {
		if !r.Counts() {
			continue
		}
		s := &slots[index[domain.TimeframeOfHour(r.RedeemedAt.Hour())]]
		s.Redemptions++
		s.Revenue += r.Amount
	}

	profile := TimeframeProfile{}
	best := -1.0
	for i := range slots {
		s := &slots[i]
		s.Revenue = round2(s.Revenue)
		s.Score = round2(float64(s.Redemptions)*TimeframeRedemptionWeight + s.Revenue/TimeframeRevenueDivisor)
		switch {
		case s.Score > TimeframeOptimalThreshold:
			s.Tag = TimeframeOptimal
		case s.Score < TimeframeImproveThreshold:
			s.Tag = TimeframeImprove
		default:
			s.Tag = TimeframeMaintain
		}
		if s.Score > 0 && s.Score > best {
			best = s.Score
			profile.BestTimeframe = s.Timeframe
		}
	}
	profile.Timeframes = slots
	return profile
}
