package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promo-intelligence/internal/service/intelligence/domain"
	"promo-intelligence/internal/service/intelligence/infrastructure/rule"
)

func newSynthesizer(t *testing.T) *Synthesizer {
	t.Helper()
	rules, err := rule.NewCELRuleEngine()
	require.NoError(t, err)
	return NewSynthesizer(rules, nil)
}

func suggestionTypes(suggestions []domain.Suggestion) []domain.SuggestionType {
	out := make([]domain.SuggestionType, len(suggestions))
	for i, s := range suggestions {
		out[i] = s.Type
	}
	return out
}

func findSuggestion(t *testing.T, suggestions []domain.Suggestion, kind domain.SuggestionType) domain.Suggestion {
	t.Helper()
	for _, s := range suggestions {
		if s.Type == kind {
			return s
		}
	}
	t.Fatalf("suggestion %s not found in %v", kind, suggestionTypes(suggestions))
	return domain.Suggestion{}
}

func TestSynthesize_FridayEveningScenario(t *testing.T) {
	redemptions := fridayEveningRedemptions()

	in := SynthesisInput{
		DayProfile:       AnalyzeDayOfWeek(nil, redemptions),
		TimeframeProfile: AnalyzeTimeframes(redemptions),
		Demographics:     AnalyzeDemographics(nil, fixedNow),
		Forecast:         ForecastRevenue(redemptions, 7, fixedNow),
		Now:              fixedNow,
	}
	require.Contains(t, in.DayProfile.BestDays, "friday")
	require.Equal(t, domain.TimeframeEvening, in.TimeframeProfile.BestTimeframe)

	got, err := newSynthesizer(t).Synthesize(in)
	require.NoError(t, err)

	assert.Equal(t, []domain.SuggestionType{
		domain.SuggestionDayOptimization,
		domain.SuggestionTimeframeOptimization,
		domain.SuggestionTrafficBoost,
	}, suggestionTypes(got))

	tf := findSuggestion(t, got, domain.SuggestionTimeframeOptimization)
	assert.Equal(t, domain.PromotionHappyHour, tf.Template.Type)
	assert.Equal(t, 25.0, tf.Template.DiscountPercent)
	assert.Equal(t, 0.80, tf.Confidence)
	require.Len(t, tf.Template.Schedule, 1)
	assert.Equal(t, "17:00", tf.Template.Schedule[0].StartTime)
	assert.Equal(t, "20:00", tf.Template.Schedule[0].EndTime)
	assert.Equal(t, domain.WorkDays, tf.Template.Schedule[0].Days)

	day := findSuggestion(t, got, domain.SuggestionDayOptimization)
	assert.Equal(t, domain.PriorityHigh, day.Priority)
	assert.Equal(t, 0.85, day.Confidence)
	assert.Equal(t, domain.PromotionSpecial, day.Template.Type)
	assert.Equal(t, []string{"friday"}, day.Template.Schedule[0].Days)
	assert.Equal(t, "17:00", day.Template.Schedule[0].StartTime)
	assert.Equal(t, "22:00", day.Template.Schedule[0].EndTime)

	traffic := findSuggestion(t, got, domain.SuggestionTrafficBoost)
	assert.Equal(t, domain.PriorityMedium, traffic.Priority)
	assert.Equal(t, 30.0, traffic.Template.DiscountPercent)
	assert.Equal(t, []string{"saturday"}, traffic.Template.Schedule[0].Days)
}

func TestSynthesize_PriorityOrderIsStable(t *testing.T) {
	in := SynthesisInput{
		DayProfile:       DayOfWeekProfile{BestDays: []string{"friday"}, WorstDays: []string{"monday"}},
		TimeframeProfile: TimeframeProfile{BestTimeframe: domain.TimeframeNight},
		Demographics:     DemographicProfile{DominantAgeGroup: Age18To25},
		Forecast:         RevenueForecast{Trend: TrendDecreasing},
		Now:              time.Date(2024, 12, 20, 10, 0, 0, 0, time.UTC),
	}

	got, err := newSynthesizer(t).Synthesize(in)
	require.NoError(t, err)

	assert.Equal(t, []domain.SuggestionType{
		domain.SuggestionDayOptimization,
		domain.SuggestionTimeframeOptimization,
		domain.SuggestionRevenueBoost,
		domain.SuggestionSeasonal,
		domain.SuggestionDemographicTargeting,
		domain.SuggestionTrafficBoost,
	}, suggestionTypes(got))

	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Priority.Rank(), got[i].Priority.Rank())
	}

	seasonal := findSuggestion(t, got, domain.SuggestionSeasonal)
	assert.Equal(t, domain.PriorityHigh, seasonal.Priority)
	assert.Equal(t, 0.90, seasonal.Confidence)

	boost := findSuggestion(t, got, domain.SuggestionRevenueBoost)
	assert.Equal(t, domain.PromotionFlashDeal, boost.Template.Type)
	assert.Equal(t, 35.0, boost.Template.DiscountPercent)
	require.NotNil(t, boost.Template.EndDate)
	assert.Equal(t, in.Now.AddDate(0, 0, 7), *boost.Template.EndDate)

	night := findSuggestion(t, got, domain.SuggestionTimeframeOptimization)
	assert.Equal(t, "22:00", night.Template.Schedule[0].StartTime)
	assert.Equal(t, "23:59", night.Template.Schedule[0].EndTime)
}

func TestSynthesize_Seasonal(t *testing.T) {
	cases := []struct {
		name     string
		now      time.Time
		priority domain.Priority
		conf     float64
	}{
		{"holiday", time.Date(2024, 12, 15, 9, 0, 0, 0, time.UTC), domain.PriorityHigh, HolidayConfidence},
		{"summer", time.Date(2024, 8, 31, 9, 0, 0, 0, time.UTC), domain.PriorityMedium, SummerConfidence},
		{"none", time.Date(2024, 12, 26, 9, 0, 0, 0, time.UTC), "", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := newSynthesizer(t).Synthesize(SynthesisInput{Now: tc.now})
			require.NoError(t, err)
			if tc.priority == "" {
				assert.Empty(t, got)
				return
			}
			require.Len(t, got, 1)
			assert.Equal(t, domain.SuggestionSeasonal, got[0].Type)
			assert.Equal(t, tc.priority, got[0].Priority)
			assert.Equal(t, tc.conf, got[0].Confidence)
		})
	}
}

func TestSynthesize_DemographicMapping(t *testing.T) {
	cases := []struct {
		group    AgeGroup
		promo    domain.PromotionType
		discount float64
	}{
		{Age18To25, domain.PromotionFlashDeal, 30},
		{Age26To35, domain.PromotionExclusive, 20},
		{Age36To45, domain.PromotionSpecial, 15},
		{Age46Plus, domain.PromotionSpecial, 15},
	}
	for _, tc := range cases {
		t.Run(string(tc.group), func(t *testing.T) {
			got, err := newSynthesizer(t).Synthesize(SynthesisInput{
				Demographics: DemographicProfile{DominantAgeGroup: tc.group},
				Now:          fixedNow,
			})
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, tc.promo, got[0].Template.Type)
			assert.Equal(t, tc.discount, got[0].Template.DiscountPercent)
			assert.Equal(t, DemographicTargetingConfidence, got[0].Confidence)
		})
	}
}

type failingRules struct{}

func (failingRules) Evaluate(string, domain.Fact) (bool, error) {
	return false, errors.New("boom")
}

func TestSynthesize_RuleErrorPropagates(t *testing.T) {
	_, err := NewSynthesizer(failingRules{}, nil).Synthesize(SynthesisInput{Now: fixedNow})
	assert.Error(t, err)
}
