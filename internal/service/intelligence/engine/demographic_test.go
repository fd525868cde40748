package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"promo-intelligence/internal/service/intelligence/domain"
)

func birth(year int, month time.Month, day int) *time.Time {
	return timePtr(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

func TestAgeGroupOf(t *testing.T) {
	cases := []struct {
		name  string
		birth *time.Time
		want  AgeGroup
	}{
		{"missing", nil, AgeUnknown},
		{"minor", birth(2010, 1, 1), AgeUnknown},
		{"eighteen by year only", birth(2006, 12, 31), Age18To25},
		{"twenty five", birth(1999, 1, 1), Age18To25},
		{"twenty six", birth(1998, 6, 1), Age26To35},
		{"forty", birth(1984, 6, 1), Age36To45},
		{"sixty", birth(1964, 6, 1), Age46Plus},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, AgeGroupOf(tc.birth, fixedNow))
		})
	}
}

func TestAnalyzeDemographics_UnknownBucket(t *testing.T) {
	users := []domain.UserProfile{
		{ID: "a", Gender: "Male", BirthDate: birth(2002, 3, 1)},
		{ID: "b", Gender: "FEMALE", BirthDate: birth(2003, 3, 1)},
		{ID: "c", Gender: "robot", BirthDate: birth(1990, 3, 1)},
		{ID: "d", Gender: ""},
	}

	profile := AnalyzeDemographics(users, fixedNow)

	assert.Equal(t, 4, profile.SampleSize)
	assert.Equal(t, 2, profile.Genders[domain.GenderUnknown])
	assert.Equal(t, 1, profile.Genders[domain.GenderMale])
	assert.Equal(t, 1, profile.Genders[domain.GenderFemale])
	assert.Equal(t, 2, profile.AgeGroups[Age18To25])
	assert.Equal(t, 1, profile.AgeGroups[Age26To35])
	assert.Equal(t, 1, profile.AgeGroups[AgeUnknown])

	// unknown 不参与主导判定，male/female 平局取 male
	assert.Equal(t, domain.GenderMale, profile.DominantGender)
	assert.Equal(t, Age18To25, profile.DominantAgeGroup)

	total := 0
	for _, n := range profile.Genders {
		total += n
	}
	assert.Equal(t, len(users), total)
}

func TestAnalyzeDemographics_Recommendations(t *testing.T) {
	users := []domain.UserProfile{
		{ID: "a", Gender: "female", BirthDate: birth(1994, 1, 1)},
		{ID: "b", Gender: "female", BirthDate: birth(1992, 1, 1)},
	}

	profile := AnalyzeDemographics(users, fixedNow)

	assert.Equal(t, Age26To35, profile.DominantAgeGroup)
	if assert.Len(t, profile.Recommendations, 2) {
		assert.Equal(t, "age", profile.Recommendations[0].Kind)
		assert.Equal(t, []domain.PromotionType{
			domain.PromotionSpecial, domain.PromotionExclusive, domain.PromotionLoyaltyReward,
		}, profile.Recommendations[0].PromotionTypes)
		assert.Equal(t, "gender", profile.Recommendations[1].Kind)
		assert.Empty(t, profile.Recommendations[1].PromotionTypes)
	}
}

func TestAnalyzeDemographics_NoData(t *testing.T) {
	profile := AnalyzeDemographics([]domain.UserProfile{{ID: "x", Gender: "n/a"}}, fixedNow)

	assert.Empty(t, profile.DominantAgeGroup)
	assert.Empty(t, profile.DominantGender)
	assert.Empty(t, profile.Recommendations)
}
