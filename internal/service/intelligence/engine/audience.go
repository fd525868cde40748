// internal/service/intelligence/engine/audience.go
package engine

import (
	"sort"
	"time"

	"promo-intelligence/internal/service/intelligence/domain"
)

// TargetCriteria 定向条件，零值字段表示未指定。
type TargetCriteria struct {
	PromotionType domain.PromotionType `json:"promotionType,omitempty"`
	Timeframe     domain.Timeframe     `json:"timeframe,omitempty"`
	MinVisits     int                  `json:"minVisits,omitempty"`
	ActiveOnly    bool                 `json:"activeOnly,omitempty"`
}

// MatchAudience 对场馆关注者逐一打分，只返回满足全部已指定条件的用户，按 MatchScore 降序。
func MatchAudience(followers []domain.UserProfile, venueID string, criteria TargetCriteria, now time.Time) []domain.TargetUser {
	targets := make([]domain.TargetUser, 0, len(followers))

	for _, u := range followers {
		interaction := u.Interactions[venueID]
		prefs := derivePreferences(interaction)

		var last *time.Time
		if interaction != nil && !interaction.LastInteraction.IsZero() {
			t := interaction.LastInteraction
			last = &t
		}

		score, ok := scoreTarget(prefs, last, criteria, now)
		if !ok {
			continue
		}
		targets = append(targets, domain.TargetUser{
			UserID:          u.ID,
			Name:            u.Name,
			Email:           u.Email,
			Phone:           u.Phone,
			Preferences:     prefs,
			LastInteraction: last,
			MatchScore:      score,
		})
	}

	sort.SliceStable(targets, func(i, j int) bool { return targets[i].MatchScore > targets[j].MatchScore })
	return targets
}

func scoreTarget(prefs domain.TargetPreferences, last *time.Time, c TargetCriteria, now time.Time) (int, bool) {
	score := 0

	if c.PromotionType != "" {
		if !containsType(prefs.FavoriteTypes, c.PromotionType) {
			return 0, false
		}
		score += TypeMatchScore
	}
	if c.Timeframe != "" {
		if !containsTimeframe(prefs.Timeframes, c.Timeframe) {
			return 0, false
		}
		score += TimeframeMatchScore
	}
	if c.MinVisits > 0 {
		if prefs.VisitFrequency < c.MinVisits {
			return 0, false
		}
		score += VisitFloorScore
	}

	var sinceDays float64 = -1
	if last != nil {
		sinceDays = now.Sub(*last).Hours() / 24
	}
	if c.ActiveOnly && (last == nil || sinceDays > ActiveWindowDays) {
		return 0, false
	}
	switch {
	case last == nil:
	case sinceDays <= RecentWeekDays:
		score += RecentWeekScore
	case sinceDays <= ActiveWindowDays:
		score += RecentMonthScore
	}

	if score > MaxMatchScore {
		score = MaxMatchScore
	}
	return score, true
}

// derivePreferences 取计数最多的前 3 个促销类型、前 2 个时段，计数相同按名称排序。
func derivePreferences(in *domain.VenueInteraction) domain.TargetPreferences {
	prefs := domain.TargetPreferences{
		FavoriteTypes: []domain.PromotionType{},
		Timeframes:    []domain.Timeframe{},
	}
	if in == nil {
		return prefs
	}

	types := make([]domain.PromotionType, 0, len(in.Preferences.FavoritePromotionTypes))
	for t := range in.Preferences.FavoritePromotionTypes {
		types = append(types, t)
	}
	counts := in.Preferences.FavoritePromotionTypes
	sort.Slice(types, func(i, j int) bool {
		if counts[types[i]] != counts[types[j]] {
			return counts[types[i]] > counts[types[j]]
		}
		return types[i] < types[j]
	})
	if len(types) > TopFavoriteTypes {
		types = types[:TopFavoriteTypes]
	}
	prefs.FavoriteTypes = types

	tfs := make([]domain.Timeframe, 0, len(in.Preferences.PreferredTimeframes))
	for tf := range in.Preferences.PreferredTimeframes {
		tfs = append(tfs, tf)
	}
	tfCounts := in.Preferences.PreferredTimeframes
	sort.Slice(tfs, func(i, j int) bool {
		if tfCounts[tfs[i]] != tfCounts[tfs[j]] {
			return tfCounts[tfs[i]] > tfCounts[tfs[j]]
		}
		return tfs[i] < tfs[j]
	})
	if len(tfs) > TopPreferredTimeframe {
		tfs = tfs[:TopPreferredTimeframe]
	}
	prefs.Timeframes = tfs
	prefs.VisitFrequency = in.Preferences.VisitFrequency
	return prefs
}

func containsType(list []domain.PromotionType, t domain.PromotionType) bool {
	for _, v := range list {
		if v == t {
			return true
		}
	}
	return false
}

func containsTimeframe(list []domain.Timeframe, tf domain.Timeframe) bool {
	for _, v := range list {
		if v == tf {
			return true
		}
	}
	return false
}
