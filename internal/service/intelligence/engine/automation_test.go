package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promo-intelligence/internal/service/intelligence/domain"
)

// checkInsExceptMonday 过去 28 天每天 20:00 三次签到，周一没有签到。
func checkInsExceptMonday() []domain.CheckIn {
	var out []domain.CheckIn
	for i := 1; i <= 28; i++ {
		day := fixedNow.AddDate(0, 0, -i)
		if day.Weekday() == time.Monday {
			continue
		}
		for n := 0; n < 3; n++ {
			out = append(out, domain.CheckIn{
				ID:        day.Format(time.DateOnly) + "-" + string(rune('a'+n)),
				UserID:    "user-" + string(rune('a'+n)),
				VenueID:   "venue-1",
				CreatedAt: time.Date(day.Year(), day.Month(), day.Day(), 20, 0, 0, 0, time.UTC),
			})
		}
	}
	return out
}

func analyticsPromotion(id string, views, redemptions int) domain.Promotion {
	return domain.Promotion{
		ID: id,
		PromotionTemplate: domain.PromotionTemplate{
			Title:           "Promo " + id,
			Type:            domain.PromotionSpecial,
			DiscountPercent: 10,
			Schedule:        []domain.ScheduleSlot{{Days: []string{"friday"}, StartTime: "18:00", EndTime: "21:00"}},
		},
		Analytics: domain.PromotionAnalytics{Views: views, Redemptions: redemptions},
	}
}

func TestAutomationSuggestions(t *testing.T) {
	promotions := []domain.Promotion{
		analyticsPromotion("a", 100, 35),
		analyticsPromotion("b", 100, 50),
		analyticsPromotion("c", 100, 40),
		analyticsPromotion("d", 10, 2),
		analyticsPromotion("e", 0, 5),
	}

	got := AutomationSuggestions(AutomationInput{
		CheckIns:   checkInsExceptMonday(),
		Promotions: promotions,
		Now:        fixedNow,
	})

	assert.Equal(t, []domain.SuggestionType{
		domain.SuggestionPeakOptimization,
		domain.SuggestionReplicateSuccess,
		domain.SuggestionReplicateSuccess,
		domain.SuggestionSlowDayBoost,
	}, suggestionTypes(got))

	peak := got[0]
	assert.Equal(t, PeakOptimizationConfidence, peak.Confidence)
	assert.Equal(t, "18:00", peak.Template.Schedule[0].StartTime)
	assert.Equal(t, "22:00", peak.Template.Schedule[0].EndTime)
	assert.Len(t, peak.Template.Schedule[0].Days, 7)

	assert.Equal(t, "b", got[1].SourcePromotionID)
	assert.Equal(t, "c", got[2].SourcePromotionID)
	assert.Equal(t, ReplicateSuccessConfidence, got[1].Confidence)
	assert.Nil(t, got[1].Template.StartDate)

	slow := got[3]
	assert.Equal(t, []string{"monday"}, slow.Template.Schedule[0].Days)
	assert.Equal(t, SlowDayConfidence, slow.Confidence)

	for _, s := range got {
		assert.True(t, s.AutoPost)
		assert.False(t, s.AutoNotify)
	}
}

func TestAutomationSuggestions_Retention(t *testing.T) {
	checkIns := []domain.CheckIn{
		{ID: "1", UserID: "u1", CreatedAt: fixedNow.AddDate(0, 0, -10)},
		{ID: "2", UserID: "u2", CreatedAt: fixedNow.AddDate(0, 0, -4)},
	}

	got := AutomationSuggestions(AutomationInput{CheckIns: checkIns, Now: fixedNow})

	retention := findSuggestion(t, got, domain.SuggestionRetention)
	assert.True(t, retention.AutoNotify)
	assert.Equal(t, RetentionConfidence, retention.Confidence)
}

func TestAutomationSuggestions_RetentionForDormantVenue(t *testing.T) {
	last := fixedNow.AddDate(0, 0, -40)

	got := AutomationSuggestions(AutomationInput{LastCheckIn: &last, Now: fixedNow})

	require.Len(t, got, 1)
	assert.Equal(t, domain.SuggestionRetention, got[0].Type)
	assert.Contains(t, got[0].Description, "40 days")
}

func TestAutomationSuggestions_RetentionUsesNewestCheckIn(t *testing.T) {
	last := fixedNow.AddDate(0, 0, -40)
	checkIns := []domain.CheckIn{{ID: "1", UserID: "u1", CreatedAt: fixedNow.AddDate(0, 0, -2)}}

	got := AutomationSuggestions(AutomationInput{CheckIns: checkIns, LastCheckIn: &last, Now: fixedNow})

	assert.NotContains(t, suggestionTypes(got), domain.SuggestionRetention)
}

func TestAutomationSuggestions_PeakWindowClamped(t *testing.T) {
	checkIns := []domain.CheckIn{
		{ID: "1", CreatedAt: time.Date(2024, 10, 17, 1, 0, 0, 0, time.UTC)},
	}

	got := AutomationSuggestions(AutomationInput{CheckIns: checkIns, Now: fixedNow})

	peak := findSuggestion(t, got, domain.SuggestionPeakOptimization)
	require.Len(t, peak.Template.Schedule, 1)
	assert.Equal(t, "00:00", peak.Template.Schedule[0].StartTime)
	assert.Equal(t, "03:00", peak.Template.Schedule[0].EndTime)
}

func TestAutomationSuggestions_NoData(t *testing.T) {
	assert.Empty(t, AutomationSuggestions(AutomationInput{Now: fixedNow}))
}
