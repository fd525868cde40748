package application

import (
	"time"

	"promo-intelligence/internal/service/intelligence/domain"
	"promo-intelligence/internal/service/intelligence/engine"
)

// SuggestionsResponse 是看板建议列表
type SuggestionsResponse struct {
	VenueID     string              `json:"venueId"`
	GeneratedAt time.Time           `json:"generatedAt"`
	Suggestions []domain.Suggestion `json:"suggestions"`
}

// PerformanceResponse 汇总星期和时段两个维度的表现
type PerformanceResponse struct {
	VenueID    string                  `json:"venueId"`
	WindowDays int                     `json:"windowDays"`
	DayOfWeek  engine.DayOfWeekProfile `json:"dayOfWeek"`
	Timeframes engine.TimeframeProfile `json:"timeframes"`
}

// AutoPostRequest 手动提交一批建议给自动发布闸门
type AutoPostRequest struct {
	Suggestions []domain.Suggestion `json:"suggestions"`
	Threshold   float64             `json:"threshold"`
}

// PostedPromotion 一条被自动发布的建议及其物化结果
type PostedPromotion struct {
	SuggestionType domain.SuggestionType `json:"suggestionType"`
	Promotion      domain.Promotion      `json:"promotion"`
	NotificationID string                `json:"notificationId,omitempty"`
}

// FailedSuggestion 处理失败的建议。Stage 为 persist 时促销没有落库，为 notify 时促销已发布但通知失败。
type FailedSuggestion struct {
	Suggestion domain.Suggestion `json:"suggestion"`
	Stage      string            `json:"stage"`
	Error      string            `json:"error"`
}

// AutoPostResult 自动发布闸门的处理结果
type AutoPostResult struct {
	VenueID   string              `json:"venueId"`
	Threshold float64             `json:"threshold"`
	Posted    []PostedPromotion   `json:"posted"`
	Pending   []domain.Suggestion `json:"pending"`
	Failed    []FailedSuggestion  `json:"failed"`
}

// TargetUsersResponse 受众匹配结果
type TargetUsersResponse struct {
	VenueID  string                `json:"venueId"`
	Criteria engine.TargetCriteria `json:"criteria"`
	Users    []domain.TargetUser   `json:"users"`
}
