// internal/service/intelligence/engine/revenue.go
package engine

import (
	"sort"
	"time"

	"promo-intelligence/internal/service/intelligence/domain"
)

type ForecastStatus string

const (
	ForecastOK               ForecastStatus = "ok"
	ForecastInsufficientData ForecastStatus = "insufficient_data"
)

type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

type ForecastRecommendation struct {
	Priority domain.Priority `json:"priority"`
	Action   string          `json:"action"`
	Message  string          `json:"message"`
}

// RevenueForecast 收入预测结果。Confidence 取值 0~100。
type RevenueForecast struct {
	Status           ForecastStatus           `json:"status"`
	DaysAhead        int                      `json:"daysAhead"`
	PredictedRevenue float64                  `json:"predictedRevenue"`
	AvgDailyRevenue  float64                  `json:"avgDailyRevenue"`
	Trend            Trend                    `json:"trend"`
	DayMultipliers   map[string]float64       `json:"dayMultipliers"`
	Confidence       int                      `json:"confidence"`
	DataPoints       int                      `json:"dataPoints"`
	Recommendations  []ForecastRecommendation `json:"recommendations"`
}

// ForecastRevenue 基于尾部窗口内的核销记录预测未来 daysAhead 天的收入。
// 没有任何可用记录时返回 insufficient_data 结果（不是错误）。
func ForecastRevenue(redemptions []domain.Redemption, daysAhead int, now time.Time) RevenueForecast {
	if daysAhead <= 0 {
		daysAhead = DefaultForecastDays
	}

	type agg struct {
		sum   float64
		count int
	}
	byDate := make(map[string]*agg)
	var byWeekday [7]agg

	for _, r := range redemptions {
		if !r.Counts() {
			continue
		}
		key := r.RedeemedAt.Format(time.DateOnly)
		a, ok := byDate[key]
		if !ok {
			a = &agg{}
			byDate[key] = a
		}
		a.sum += r.Amount
		a.count++

		w := &byWeekday[r.RedeemedAt.Weekday()]
		w.sum += r.Amount
		w.count++
	}

	if len(byDate) == 0 {
		return RevenueForecast{
			Status:         ForecastInsufficientData,
			DaysAhead:      daysAhead,
			Trend:          TrendStable,
			DayMultipliers: defaultMultipliers(),
		}
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	daily := make([]float64, len(dates))
	for i, d := range dates {
		daily[i] = byDate[d].sum / float64(byDate[d].count)
	}
	avgDaily := mean(daily)

	// 星期系数 = 该星期的平均金额 / 有数据的星期平均金额的均值
	var weekdayMeans []float64
	var perWeekday [7]float64
	for i, w := range byWeekday {
		if w.count > 0 {
			perWeekday[i] = w.sum / float64(w.count)
			weekdayMeans = append(weekdayMeans, perWeekday[i])
		}
	}
	overall := mean(weekdayMeans)
	var raw [7]float64
	multipliers := defaultMultipliers()
	for i, w := range byWeekday {
		raw[i] = 1.0
		if w.count > 0 && overall > 0 {
			raw[i] = perWeekday[i] / overall
			multipliers[domain.Weekdays[i]] = round2(raw[i])
		}
	}

	// 把 avgDaily*daysAhead 按每天的星期系数重新分配后求和
	predicted := 0.0
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for i := 1; i <= daysAhead; i++ {
		day := start.AddDate(0, 0, i)
		predicted += avgDaily * raw[day.Weekday()]
	}

	forecast := RevenueForecast{
		Status:           ForecastOK,
		DaysAhead:        daysAhead,
		PredictedRevenue: round2(predicted),
		AvgDailyRevenue:  round2(avgDaily),
		Trend:            classifyTrend(daily),
		DayMultipliers:   multipliers,
		Confidence:       clampInt(len(dates)*ForecastConfidencePerDate, ForecastConfidenceFloor, ForecastConfidenceCeiling),
		DataPoints:       len(dates),
	}
	forecast.Recommendations = forecastRecommendations(forecast.Trend, avgDaily)
	return forecast
}

// classifyTrend 比较最近 7 个日均值与更早日均值的均值。少于 7 个日期时视为 stable。
func classifyTrend(daily []float64) Trend {
	if len(daily) < TrendMinDates {
		return TrendStable
	}
	recent := daily[len(daily)-TrendRecentDates:]
	earlier := daily[:len(daily)-TrendRecentDates]
	if len(earlier) == 0 {
		earlier = recent
	}
	base := mean(earlier)
	if base <= 0 {
		return TrendStable
	}
	ratio := mean(recent) / base
	switch {
	case ratio > TrendIncreaseRatio:
		return TrendIncreasing
	case ratio < TrendDecreaseRatio:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

func forecastRecommendations(trend Trend, avgDaily float64) []ForecastRecommendation {
	var recs []ForecastRecommendation
	switch trend {
	case TrendDecreasing:
		recs = append(recs, ForecastRecommendation{
			Priority: domain.PriorityHigh,
			Action:   "launch_promotion",
			Message:  "Revenue is declining. Launch a promotion to reverse the trend.",
		})
	case TrendIncreasing:
		recs = append(recs, ForecastRecommendation{
			Priority: domain.PriorityMedium,
			Action:   "expand",
			Message:  "Revenue is growing. Consider expanding your most successful promotions.",
		})
	}
	if avgDaily < LowDailyRevenueThreshold {
		recs = append(recs, ForecastRecommendation{
			Priority: domain.PriorityHigh,
			Action:   "boost_traffic",
			Message:  "Average daily revenue is low. Boost traffic with aggressive offers.",
		})
	}
	return recs
}

func defaultMultipliers() map[string]float64 {
	m := make(map[string]float64, 7)
	for _, d := range domain.Weekdays {
		m[d] = 1.0
	}
	return m
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
