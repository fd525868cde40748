// internal/service/intelligence/domain/suggestion.go
package domain

import "time"

// Priority 建议优先级。
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank 用于排序：high=3, medium=2, low=1。
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// SuggestionType 建议类型标签。
type SuggestionType string

const (
	SuggestionDayOptimization       SuggestionType = "day_optimization"
	SuggestionTimeframeOptimization SuggestionType = "timeframe_optimization"
	SuggestionDemographicTargeting  SuggestionType = "demographic_targeting"
	SuggestionRevenueBoost          SuggestionType = "revenue_boost"
	SuggestionTrafficBoost          SuggestionType = "traffic_boost"
	SuggestionSeasonal              SuggestionType = "seasonal"

	SuggestionSlowDayBoost     SuggestionType = "slow-day-boost"
	SuggestionPeakOptimization SuggestionType = "peak-optimization"
	SuggestionReplicateSuccess SuggestionType = "replicate-success"
	SuggestionRetention        SuggestionType = "retention"
)

// Suggestion 引擎产出的促销建议。Confidence 取值 0~1。
type Suggestion struct {
	Type              SuggestionType    `json:"type"`
	Priority          Priority          `json:"priority"`
	Title             string            `json:"title"`
	Description       string            `json:"description"`
	Template          PromotionTemplate `json:"promotionTemplate"`
	Confidence        float64           `json:"confidence"`
	AutoPost          bool              `json:"autoPost"`
	AutoNotify        bool              `json:"autoNotify,omitempty"`
	SourcePromotionID string            `json:"sourcePromotionId,omitempty"`
}

// TargetUser 是受众匹配的结果，MatchScore 取值 0~100。
type TargetUser struct {
	UserID          string            `json:"userId"`
	Name            string            `json:"name"`
	Email           string            `json:"email"`
	Phone           string            `json:"phone"`
	Preferences     TargetPreferences `json:"preferences"`
	LastInteraction *time.Time        `json:"lastInteraction,omitempty"`
	MatchScore      int               `json:"matchScore"`
}

// TargetPreferences 是用于匹配的精简偏好：前 3 个促销类型、前 2 个时段。
type TargetPreferences struct {
	FavoriteTypes  []PromotionType `json:"favoriteTypes"`
	Timeframes     []Timeframe     `json:"timeframes"`
	VisitFrequency int             `json:"visitFrequency"`
}

// NotificationRequest 自动发布后交给通知服务投递的请求。
type NotificationRequest struct {
	ID           string    `json:"id"`
	VenueID      string    `json:"venueId"`
	PromotionID  string    `json:"promotionId"`
	RecipientIDs []string  `json:"recipientIds"`
	Title        string    `json:"title"`
	Message      string    `json:"message"`
	SendAt       time.Time `json:"sendAt"`
}
