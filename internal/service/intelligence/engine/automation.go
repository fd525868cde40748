// internal/service/intelligence/engine/automation.go
package engine

import (
	"fmt"
	"sort"
	"time"

	"promo-intelligence/internal/service/intelligence/domain"
)

// AutomationInput 是自动化建议生成器的输入：签到窗口内的记录和场馆已有促销。
// LastCheckIn 是不受窗口限制的最近一次签到，为空时退回到窗口内的最新记录。
type AutomationInput struct {
	CheckIns    []domain.CheckIn
	LastCheckIn *time.Time
	Promotions  []domain.Promotion
	Now         time.Time
}

// automationRule 是一条数据驱动的生成规则，每条规则独立产出 0~N 条建议。
type automationRule struct {
	kind     domain.SuggestionType
	generate func(in AutomationInput) []domain.Suggestion
}

var automationRules = []automationRule{
	{kind: domain.SuggestionSlowDayBoost, generate: slowDayBoost},
	{kind: domain.SuggestionPeakOptimization, generate: peakOptimization},
	{kind: domain.SuggestionReplicateSuccess, generate: replicateSuccess},
	{kind: domain.SuggestionRetention, generate: retention},
}

// AutomationSuggestions 依次执行所有自动化规则，结果按优先级稳定排序。
func AutomationSuggestions(in AutomationInput) []domain.Suggestion {
	var out []domain.Suggestion
	for _, rule := range automationRules {
		out = append(out, rule.generate(in)...)
	}
	SortByPriority(out)
	return out
}

func slowDayBoost(in AutomationInput) []domain.Suggestion {
	if len(in.CheckIns) == 0 {
		return nil
	}
	var counts [7]int
	for _, c := range in.CheckIns {
		counts[c.CreatedAt.Weekday()]++
	}
	avg := float64(len(in.CheckIns)) / 7

	var out []domain.Suggestion
	for i, n := range counts {
		if float64(n) >= avg*SlowDayRatio {
			continue
		}
		day := domain.Weekdays[i]
		title := fmt.Sprintf("%s Slow Day Boost", titleCase(day))
		desc := fmt.Sprintf("%s sees %d check-ins against a daily average of %.1f. Draw visitors in with an evening special.", titleCase(day), n, avg)
		out = append(out, domain.Suggestion{
			Type:        domain.SuggestionSlowDayBoost,
			Priority:    domain.PriorityMedium,
			Title:       title,
			Description: desc,
			Template: domain.PromotionTemplate{
				Title:           title,
				Description:     desc,
				Type:            domain.PromotionSpecial,
				DiscountPercent: SlowDayDiscount,
				Schedule: []domain.ScheduleSlot{{
					Days:      []string{day},
					StartTime: DefaultEveningStartTime,
					EndTime:   DefaultEveningEndTime,
				}},
			},
			Confidence: SlowDayConfidence,
			AutoPost:   true,
		})
	}
	return out
}

func peakOptimization(in AutomationInput) []domain.Suggestion {
	if len(in.CheckIns) == 0 {
		return nil
	}
	var hours [24]int
	for _, c := range in.CheckIns {
		hours[c.CreatedAt.Hour()]++
	}
	peak := 0
	for h := 1; h < 24; h++ {
		if hours[h] > hours[peak] {
			peak = h
		}
	}
	start := clampInt(peak-PeakWindowHours, 0, 23)
	end := clampInt(peak+PeakWindowHours, 0, 23)

	title := fmt.Sprintf("Peak Hour Happy Hour (%s)", clock(peak))
	desc := fmt.Sprintf("Check-ins peak around %s. Extend the rush with a happy hour from %s to %s.", clock(peak), clock(start), clock(end))
	return []domain.Suggestion{{
		Type:        domain.SuggestionPeakOptimization,
		Priority:    domain.PriorityHigh,
		Title:       title,
		Description: desc,
		Template: domain.PromotionTemplate{
			Title:           title,
			Description:     desc,
			Type:            domain.PromotionHappyHour,
			DiscountPercent: PeakOptimizationDiscount,
			Schedule: []domain.ScheduleSlot{{
				Days:      append([]string(nil), domain.Weekdays[:]...),
				StartTime: clock(start),
				EndTime:   clock(end),
			}},
		},
		Confidence: PeakOptimizationConfidence,
		AutoPost:   true,
	}}
}

func replicateSuccess(in AutomationInput) []domain.Suggestion {
	type candidate struct {
		promotion domain.Promotion
		rate      float64
	}
	var candidates []candidate
	for _, p := range in.Promotions {
		if rate := p.Analytics.RedemptionRate(); rate > ReplicateSuccessRate {
			candidates = append(candidates, candidate{promotion: p, rate: rate})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].rate > candidates[j].rate })
	if len(candidates) > ReplicateSuccessTopN {
		candidates = candidates[:ReplicateSuccessTopN]
	}

	out := make([]domain.Suggestion, 0, len(candidates))
	for _, c := range candidates {
		src := c.promotion
		tpl := domain.PromotionTemplate{
			Title:           src.Title,
			Description:     src.Description,
			Type:            src.Type,
			DiscountPercent: src.DiscountPercent,
			Schedule:        append([]domain.ScheduleSlot(nil), src.Schedule...),
		}
		out = append(out, domain.Suggestion{
			Type:              domain.SuggestionReplicateSuccess,
			Priority:          domain.PriorityHigh,
			Title:             fmt.Sprintf("Run \"%s\" Again", src.Title),
			Description:       fmt.Sprintf("\"%s\" converted %.0f%% of views into redemptions. Bring it back.", src.Title, c.rate*100),
			Template:          tpl,
			Confidence:        ReplicateSuccessConfidence,
			AutoPost:          true,
			SourcePromotionID: src.ID,
		})
	}
	return out
}

// latestCheckIn 从未签到过的场馆返回 false，没有可以挽回的客人
func latestCheckIn(in AutomationInput) (time.Time, bool) {
	var latest time.Time
	found := false
	if in.LastCheckIn != nil {
		latest, found = *in.LastCheckIn, true
	}
	for _, c := range in.CheckIns {
		if !found || c.CreatedAt.After(latest) {
			latest, found = c.CreatedAt, true
		}
	}
	return latest, found
}

func retention(in AutomationInput) []domain.Suggestion {
	latest, ok := latestCheckIn(in)
	if !ok {
		return nil
	}
	daysSince := in.Now.Sub(latest).Hours() / 24
	if daysSince <= RetentionInactiveDays {
		return nil
	}

	title := "We Miss You Offer"
	desc := fmt.Sprintf("No check-ins for %.0f days. Win back regulars with a comeback offer.", daysSince)
	return []domain.Suggestion{{
		Type:        domain.SuggestionRetention,
		Priority:    domain.PriorityMedium,
		Title:       title,
		Description: desc,
		Template: domain.PromotionTemplate{
			Title:           title,
			Description:     desc,
			Type:            domain.PromotionLoyaltyReward,
			DiscountPercent: RetentionDiscount,
		},
		Confidence: RetentionConfidence,
		AutoPost:   true,
		AutoNotify: true,
	}}
}
