// internal/service/intelligence/domain/user.go
package domain

import (
	"strings"
	"time"
)

// Gender 是封闭枚举，无法识别的值统一归入 GenderUnknown，而不是被丢弃。
type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderOther   Gender = "other"
	GenderUnknown Gender = "unknown"
)

// Genders 是用于平局判定的固定顺序（不含 unknown）。
var Genders = []Gender{GenderMale, GenderFemale, GenderOther}

// ParseGender 不区分大小写地匹配已知取值。
func ParseGender(raw string) Gender {
	switch Gender(strings.ToLower(strings.TrimSpace(raw))) {
	case GenderMale:
		return GenderMale
	case GenderFemale:
		return GenderFemale
	case GenderOther:
		return GenderOther
	default:
		return GenderUnknown
	}
}

// Timeframe 是一天中的四个时段。
type Timeframe string

const (
	TimeframeMorning   Timeframe = "morning"   // [6,12)
	TimeframeAfternoon Timeframe = "afternoon" // [12,17)
	TimeframeEvening   Timeframe = "evening"   // [17,22)
	TimeframeNight     Timeframe = "night"     // [22,6)
)

// Timeframes 固定顺序，用于平局判定和输出。
var Timeframes = []Timeframe{TimeframeMorning, TimeframeAfternoon, TimeframeEvening, TimeframeNight}

// TimeframeOfHour 返回小时所属时段，night 跨越午夜。
func TimeframeOfHour(hour int) Timeframe {
	switch {
	case hour >= 6 && hour < 12:
		return TimeframeMorning
	case hour >= 12 && hour < 17:
		return TimeframeAfternoon
	case hour >= 17 && hour < 22:
		return TimeframeEvening
	default:
		return TimeframeNight
	}
}

// ParseTimeframe 解析时段名称，未知名称返回 false。
func ParseTimeframe(raw string) (Timeframe, bool) {
	tf := Timeframe(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Timeframes {
		if tf == known {
			return tf, true
		}
	}
	return "", false
}

// InteractionEvent 是用户与场馆的一次互动（签到、核销、浏览等）。
type InteractionEvent struct {
	Kind          string        `json:"kind"`
	PromotionType PromotionType `json:"promotionType,omitempty"`
	At            time.Time     `json:"at"`
}

// InteractionPreferences 从互动日志中派生出的偏好。
type InteractionPreferences struct {
	FavoritePromotionTypes map[PromotionType]int `json:"favoritePromotionTypes"`
	PreferredTimeframes    map[Timeframe]int     `json:"preferredTimeframes"`
	VisitFrequency         int                   `json:"visitFrequency"`
}

// VenueInteraction 用户在某个场馆下的互动记录。
type VenueInteraction struct {
	FirstInteraction time.Time              `json:"firstInteraction"`
	LastInteraction  time.Time              `json:"lastInteraction"`
	Log              []InteractionEvent     `json:"log,omitempty"`
	Preferences      InteractionPreferences `json:"preferences"`
}

// UserProfile 用户资料。Interactions 以 venueID 为 key。
type UserProfile struct {
	ID           string                       `json:"id"`
	Name         string                       `json:"name"`
	Email        string                       `json:"email"`
	Phone        string                       `json:"phone"`
	BirthDate    *time.Time                   `json:"birthDate,omitempty"`
	Gender       string                       `json:"gender"`
	Friends      []string                     `json:"friends,omitempty"`
	Interactions map[string]*VenueInteraction `json:"interactions,omitempty"`
}
