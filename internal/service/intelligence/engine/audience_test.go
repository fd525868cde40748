package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promo-intelligence/internal/service/intelligence/domain"
)

func follower(id string, lastSeen time.Duration, visits int, types map[domain.PromotionType]int, frames map[domain.Timeframe]int) domain.UserProfile {
	return domain.UserProfile{
		ID:   id,
		Name: "user " + id,
		Interactions: map[string]*domain.VenueInteraction{
			"venue-1": {
				FirstInteraction: fixedNow.AddDate(0, -6, 0),
				LastInteraction:  fixedNow.Add(-lastSeen),
				Preferences: domain.InteractionPreferences{
					FavoritePromotionTypes: types,
					PreferredTimeframes:    frames,
					VisitFrequency:         visits,
				},
			},
		},
	}
}

func TestMatchAudience_ScoresAndFilters(t *testing.T) {
	day := 24 * time.Hour
	followers := []domain.UserProfile{
		follower("regular", 2*day, 12,
			map[domain.PromotionType]int{domain.PromotionHappyHour: 5, domain.PromotionSpecial: 2},
			map[domain.Timeframe]int{domain.TimeframeEvening: 9}),
		follower("lapsed", 20*day, 8,
			map[domain.PromotionType]int{domain.PromotionHappyHour: 1},
			map[domain.Timeframe]int{domain.TimeframeEvening: 1, domain.TimeframeNight: 3}),
		follower("gone", 90*day, 30,
			map[domain.PromotionType]int{domain.PromotionHappyHour: 3},
			map[domain.Timeframe]int{domain.TimeframeEvening: 3}),
		follower("other-taste", day, 40,
			map[domain.PromotionType]int{domain.PromotionEvent: 7},
			map[domain.Timeframe]int{domain.TimeframeEvening: 3}),
		{ID: "stranger"},
	}

	got := MatchAudience(followers, "venue-1", TargetCriteria{
		PromotionType: domain.PromotionHappyHour,
		Timeframe:     domain.TimeframeEvening,
		MinVisits:     5,
		ActiveOnly:    true,
	}, fixedNow)

	require.Len(t, got, 2)
	assert.Equal(t, "regular", got[0].UserID)
	assert.Equal(t, MaxMatchScore, got[0].MatchScore)
	assert.Equal(t, "lapsed", got[1].UserID)
	assert.Equal(t, 90, got[1].MatchScore)
	assert.Equal(t, []domain.Timeframe{domain.TimeframeNight, domain.TimeframeEvening}, got[1].Preferences.Timeframes)
}

func TestMatchAudience_NoCriteria(t *testing.T) {
	followers := []domain.UserProfile{
		{ID: "stranger"},
		follower("recent", time.Hour, 1, nil, nil),
	}

	got := MatchAudience(followers, "venue-1", TargetCriteria{}, fixedNow)

	require.Len(t, got, 2)
	assert.Equal(t, "recent", got[0].UserID)
	assert.Equal(t, RecentWeekScore, got[0].MatchScore)
	assert.Equal(t, "stranger", got[1].UserID)
	assert.Zero(t, got[1].MatchScore)
	assert.Nil(t, got[1].LastInteraction)
}

func TestMatchAudience_ActiveOnlyRejectsMissingInteraction(t *testing.T) {
	got := MatchAudience([]domain.UserProfile{{ID: "stranger"}}, "venue-1", TargetCriteria{ActiveOnly: true}, fixedNow)
	assert.Empty(t, got)
}

func TestMatchAudience_TopPreferencesOnly(t *testing.T) {
	u := follower("picky", time.Hour, 3, map[domain.PromotionType]int{
		domain.PromotionHappyHour: 9,
		domain.PromotionSpecial:   8,
		domain.PromotionEvent:     7,
		domain.PromotionFlashDeal: 1,
	}, nil)

	got := MatchAudience([]domain.UserProfile{u}, "venue-1", TargetCriteria{PromotionType: domain.PromotionFlashDeal}, fixedNow)
	assert.Empty(t, got, "fourth favourite type is not a match")

	got = MatchAudience([]domain.UserProfile{u}, "venue-1", TargetCriteria{PromotionType: domain.PromotionEvent}, fixedNow)
	require.Len(t, got, 1)
	assert.Len(t, got[0].Preferences.FavoriteTypes, TopFavoriteTypes)
}

func TestMatchAudience_ScoreMonotonic(t *testing.T) {
	u := follower("fan", 3*24*time.Hour, 10,
		map[domain.PromotionType]int{domain.PromotionSpecial: 4},
		map[domain.Timeframe]int{domain.TimeframeAfternoon: 4})

	full := TargetCriteria{
		PromotionType: domain.PromotionSpecial,
		Timeframe:     domain.TimeframeAfternoon,
		MinVisits:     10,
		ActiveOnly:    true,
	}
	score := func(c TargetCriteria) int {
		got := MatchAudience([]domain.UserProfile{u}, "venue-1", c, fixedNow)
		require.Len(t, got, 1)
		return got[0].MatchScore
	}

	// 逐个去掉已满足的条件，分数只会下降或不变
	for mask := 0; mask < 16; mask++ {
		c := TargetCriteria{}
		if mask&1 != 0 {
			c.PromotionType = full.PromotionType
		}
		if mask&2 != 0 {
			c.Timeframe = full.Timeframe
		}
		if mask&4 != 0 {
			c.MinVisits = full.MinVisits
		}
		if mask&8 != 0 {
			c.ActiveOnly = true
		}
		s := score(c)
		assert.LessOrEqual(t, s, score(full))
		assert.LessOrEqual(t, s, MaxMatchScore)
		for bit := 0; bit < 4; bit++ {
			if mask&(1<<bit) != 0 {
				continue
			}
			superset := c
			switch bit {
			case 0:
				superset.PromotionType = full.PromotionType
			case 1:
				superset.Timeframe = full.Timeframe
			case 2:
				superset.MinVisits = full.MinVisits
			case 3:
				superset.ActiveOnly = true
			}
			assert.GreaterOrEqual(t, score(superset), s)
		}
	}
	assert.Equal(t, MaxMatchScore, score(full))
}
