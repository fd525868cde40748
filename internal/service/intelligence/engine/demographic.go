// internal/service/intelligence/engine/demographic.go
package engine

import (
	"time"

	"promo-intelligence/internal/service/intelligence/domain"
)

// AgeGroup 年龄段。仅按出生年份相减计算，不考虑月日。
type AgeGroup string

const (
	Age18To25  AgeGroup = "18-25"
	Age26To35  AgeGroup = "26-35"
	Age36To45  AgeGroup = "36-45"
	Age46Plus  AgeGroup = "46+"
	AgeUnknown AgeGroup = "unknown"
)

// AgeGroups 固定顺序，用于平局判定。
var AgeGroups = []AgeGroup{Age18To25, Age26To35, Age36To45, Age46Plus}

// AgeGroupOf 返回出生日期对应的年龄段；没有生日或未满 18 岁归为 unknown。
func AgeGroupOf(birth *time.Time, now time.Time) AgeGroup {
	if birth == nil || birth.IsZero() {
		return AgeUnknown
	}
	age := now.Year() - birth.Year()
	switch {
	case age >= 18 && age <= 25:
		return Age18To25
	case age >= 26 && age <= 35:
		return Age26To35
	case age >= 36 && age <= 45:
		return Age36To45
	case age >= 46:
		return Age46Plus
	default:
		return AgeUnknown
	}
}

type DemographicRecommendation struct {
	Kind           string                 `json:"kind"` // age, gender
	Segment        string                 `json:"segment"`
	Message        string                 `json:"message"`
	PromotionTypes []domain.PromotionType `json:"promotionTypes,omitempty"`
}

type DemographicProfile struct {
	SampleSize       int                         `json:"sampleSize"`
	AgeGroups        map[AgeGroup]int            `json:"ageGroups"`
	Genders          map[domain.Gender]int       `json:"genders"`
	DominantAgeGroup AgeGroup                    `json:"dominantAgeGroup,omitempty"`
	DominantGender   domain.Gender               `json:"dominantGender,omitempty"`
	Recommendations  []DemographicRecommendation `json:"recommendations"`
}

// 主导年龄段 -> 推荐的促销类型
var ageGroupPromotionTypes = map[AgeGroup][]domain.PromotionType{
	Age18To25: {domain.PromotionHappyHour, domain.PromotionFlashDeal, domain.PromotionGroupSpecial},
	Age26To35: {domain.PromotionSpecial, domain.PromotionExclusive, domain.PromotionLoyaltyReward},
}

// AnalyzeDemographics 统计核销用户的年龄与性别分布。
func AnalyzeDemographics(users []domain.UserProfile, now time.Time) DemographicProfile {
	profile := DemographicProfile{
		SampleSize: len(users),
		AgeGroups:  map[AgeGroup]int{Age18To25: 0, Age26To35: 0, Age36To45: 0, Age46Plus: 0, AgeUnknown: 0},
		Genders: map[domain.Gender]int{
			domain.GenderMale: 0, domain.GenderFemale: 0, domain.GenderOther: 0, domain.GenderUnknown: 0,
		},
	}

	for _, u := range users {
		profile.AgeGroups[AgeGroupOf(u.BirthDate, now)]++
		profile.Genders[domain.ParseGender(u.Gender)]++
	}

	best := 0
	for _, g := range AgeGroups {
		if profile.AgeGroups[g] > best {
			best = profile.AgeGroups[g]
			profile.DominantAgeGroup = g
		}
	}
	best = 0
	for _, g := range domain.Genders {
		if profile.Genders[g] > best {
			best = profile.Genders[g]
			profile.DominantGender = g
		}
	}

	if types, ok := ageGroupPromotionTypes[profile.DominantAgeGroup]; ok {
		profile.Recommendations = append(profile.Recommendations, DemographicRecommendation{
			Kind:           "age",
			Segment:        string(profile.DominantAgeGroup),
			Message:        "Most redeemers are " + string(profile.DominantAgeGroup) + "; favour these promotion types",
			PromotionTypes: types,
		})
	}
	if profile.DominantGender != "" {
		profile.Recommendations = append(profile.Recommendations, DemographicRecommendation{
			Kind:    "gender",
			Segment: string(profile.DominantGender),
			Message: "Consider a gender-specific event for your " + string(profile.DominantGender) + " audience",
		})
	}
	return profile
}
