// internal/service/intelligence/domain/promotion.go
package domain

import (
	"strings"
	"time"
)

// PromotionType 定义了促销活动的类型。
type PromotionType string

const (
	PromotionHappyHour     PromotionType = "happy-hour"
	PromotionSpecial       PromotionType = "special"
	PromotionEvent         PromotionType = "event"
	PromotionFlashDeal     PromotionType = "flash-deal"
	PromotionExclusive     PromotionType = "exclusive"
	PromotionLoyaltyReward PromotionType = "loyalty-reward"
	PromotionGroupSpecial  PromotionType = "group-special"
	PromotionOther         PromotionType = "other"
)

// PromotionTypes 全部已知类型
var PromotionTypes = []PromotionType{
	PromotionHappyHour, PromotionSpecial, PromotionEvent, PromotionFlashDeal,
	PromotionExclusive, PromotionLoyaltyReward, PromotionGroupSpecial, PromotionOther,
}

// ParsePromotionType 不区分大小写，未知类型返回 false。
func ParsePromotionType(raw string) (PromotionType, bool) {
	t := PromotionType(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range PromotionTypes {
		if t == known {
			return t, true
		}
	}
	return "", false
}

// Weekdays 是按 time.Weekday 顺序排列的星期名称（小写），schedule 中的 days 使用这些名称。
var Weekdays = [7]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// WorkDays 周一到周五
var WorkDays = []string{"monday", "tuesday", "wednesday", "thursday", "friday"}

// WeekdayName 返回 time.Weekday 对应的小写名称。
func WeekdayName(d time.Weekday) string {
	return Weekdays[d]
}

// ScheduleSlot 是促销的一个时间段：在 Days 中的每一天的 StartTime~EndTime 生效。
type ScheduleSlot struct {
	Days      []string `json:"days"`
	StartTime string   `json:"startTime"` // "HH:MM"
	EndTime   string   `json:"endTime"`
}

// CoversDay 判断 slot 的 days 文本是否包含给定的星期名称（不区分大小写）。
func (s ScheduleSlot) CoversDay(day string) bool {
	day = strings.ToLower(day)
	for _, d := range s.Days {
		if strings.Contains(strings.ToLower(d), day) {
			return true
		}
	}
	return false
}

// PromotionAnalytics 由外部的浏览/核销事件累加，引擎只读。
type PromotionAnalytics struct {
	Views       int     `json:"views"`
	Clicks      int     `json:"clicks"`
	Redemptions int     `json:"redemptions"`
	Revenue     float64 `json:"revenue"`
}

// RedemptionRate 核销数 / 浏览数，没有浏览时为 0。
func (a PromotionAnalytics) RedemptionRate() float64 {
	if a.Views <= 0 {
		return 0
	}
	return float64(a.Redemptions) / float64(a.Views)
}

// PromotionTemplate 是建议中携带的促销草稿，物化后成为 Promotion。
type PromotionTemplate struct {
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	Type            PromotionType  `json:"type"`
	DiscountPercent float64        `json:"discountPercent"`
	StartDate       *time.Time     `json:"startDate,omitempty"`
	EndDate         *time.Time     `json:"endDate,omitempty"`
	Schedule        []ScheduleSlot `json:"schedule,omitempty"`
}

// Promotion 是场馆下的一条促销记录。引擎只会追加，从不删除。
type Promotion struct {
	ID      string `json:"id"`
	VenueID string `json:"venueId"`
	PromotionTemplate
	IsActive      bool               `json:"isActive"`
	Analytics     PromotionAnalytics `json:"analytics"`
	AutoGenerated bool               `json:"autoGenerated"`
	AIConfidence  float64            `json:"aiConfidence"`
	CreatedAt     time.Time          `json:"createdAt"`
}
