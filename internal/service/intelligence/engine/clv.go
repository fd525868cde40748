// internal/service/intelligence/engine/clv.go
package engine

import (
	"math"
	"time"

	"promo-intelligence/internal/service/intelligence/domain"
)

// CLVForecast 单个用户在单个场馆的生命周期价值。
type CLVForecast struct {
	CLV                  float64    `json:"clv"`
	VisitCount           int        `json:"visitCount"`
	VisitFrequency       float64    `json:"visitFrequency"` // 每 30 天的到访次数
	AverageSpend         float64    `json:"averageSpend"`
	PredictedFutureValue float64    `json:"predictedFutureValue"`
	ActiveDays           int        `json:"activeDays"`
	MonthsActive         float64    `json:"monthsActive"`
	FirstVisit           *time.Time `json:"firstVisit,omitempty"`
	LastVisit            *time.Time `json:"lastVisit,omitempty"`
}

// ForecastCLV 未来 12 个月价值 = 月均消费 * 12 * 0.7（固定 70% 留存假设）。
func ForecastCLV(redemptions []domain.Redemption) CLVForecast {
	var (
		total       float64
		count       int
		first, last time.Time
	)
	for _, r := range redemptions {
		if !r.Counts() {
			continue
		}
		total += r.Amount
		count++
		if first.IsZero() || r.RedeemedAt.Before(first) {
			first = r.RedeemedAt
		}
		if last.IsZero() || r.RedeemedAt.After(last) {
			last = r.RedeemedAt
		}
	}
	if count == 0 {
		return CLVForecast{}
	}

	activeDays := int(math.Ceil(last.Sub(first).Hours() / 24))
	if activeDays < 1 {
		activeDays = 1
	}
	months := math.Max(1, float64(activeDays)/DaysPerActiveMonth)

	return CLVForecast{
		CLV:                  round2(total),
		VisitCount:           count,
		VisitFrequency:       round2(float64(count) / (float64(activeDays) / DaysPerActiveMonth)),
		AverageSpend:         round2(total / float64(count)),
		PredictedFutureValue: round2(total / months * CLVForecastMonths * CLVRetentionRate),
		ActiveDays:           activeDays,
		MonthsActive:         round2(months),
		FirstVisit:           &first,
		LastVisit:            &last,
	}
}
