package engine

import (
	"time"

	"promo-intelligence/internal/service/intelligence/domain"
)

// 2024-10-18 是星期五
var fixedNow = time.Date(2024, 10, 18, 12, 0, 0, 0, time.UTC)

func redemption(at time.Time, amount float64) domain.Redemption {
	return domain.Redemption{
		ID:          at.Format(time.RFC3339Nano),
		VenueID:     "venue-1",
		RecipientID: "user-1",
		Amount:      amount,
		RedeemedAt:  at,
		Status:      domain.RedemptionStatusRedeemed,
	}
}

// fridayEveningRedemptions 生成过去 4 个周五 18:00~21:00 每小时一笔 $20 的核销。
func fridayEveningRedemptions() []domain.Redemption {
	var out []domain.Redemption
	for week := 1; week <= 4; week++ {
		day := fixedNow.AddDate(0, 0, -7*week)
		for hour := 18; hour <= 21; hour++ {
			at := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, time.UTC)
			out = append(out, redemption(at, 20))
		}
	}
	return out
}

func dailyRedemptions(days int, amount func(i int) float64) []domain.Redemption {
	out := make([]domain.Redemption, 0, days)
	for i := 0; i < days; i++ {
		at := fixedNow.AddDate(0, 0, -days+i).Add(-2 * time.Hour)
		out = append(out, redemption(at, amount(i)))
	}
	return out
}

func timePtr(t time.Time) *time.Time { return &t }
