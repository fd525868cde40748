// internal/service/intelligence/infrastructure/gorm_model.go
package infrastructure

import (
	"time"
)

// VenueModel 对应 venues 表
type VenueModel struct {
	ID        string `gorm:"primaryKey;size:64"`
	Name      string
	OwnerID   string `gorm:"size:64;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (VenueModel) TableName() string {
	return "venues"
}

// PromotionModel 对应 promotions 表，schedule 以 JSON 存储
type PromotionModel struct {
	ID              string `gorm:"primaryKey;size:64"`
	VenueID         string `gorm:"size:64;index"`
	Title           string
	Description     string  `gorm:"type:text"`
	Type            string  `gorm:"size:32"`
	DiscountPercent float64 `gorm:"type:decimal(5,2)"`
	StartDate       *time.Time
	EndDate         *time.Time
	Schedule        string `gorm:"type:json"`
	IsActive        bool
	Views           int
	Clicks          int
	Redemptions     int
	Revenue         float64 `gorm:"type:decimal(12,2)"`
	AutoGenerated   bool
	AIConfidence    float64 `gorm:"column:ai_confidence;type:decimal(4,2)"`
	CreatedAt       time.Time
}

func (PromotionModel) TableName() string {
	return "promotions"
}

// VenueFollowerModel 对应 venue_followers 表
type VenueFollowerModel struct {
	VenueID   string `gorm:"primaryKey;size:64"`
	UserID    string `gorm:"primaryKey;size:64"`
	CreatedAt time.Time
}

func (VenueFollowerModel) TableName() string {
	return "venue_followers"
}

// RedemptionModel 对应 redemptions 表（支付服务写入，这里只读）
type RedemptionModel struct {
	ID          string    `gorm:"primaryKey;size:64"`
	VenueID     string    `gorm:"size:64;index:idx_venue_redeemed"`
	RecipientID string    `gorm:"size:64;index"`
	Amount      float64   `gorm:"type:decimal(12,2)"`
	Status      string    `gorm:"size:16"`
	RedeemedAt  time.Time `gorm:"index:idx_venue_redeemed"`
}

func (RedemptionModel) TableName() string {
	return "redemptions"
}

// CheckInModel 对应 check_ins 表
type CheckInModel struct {
	ID        string    `gorm:"primaryKey;size:64"`
	UserID    string    `gorm:"size:64;index"`
	VenueID   string    `gorm:"size:64;index:idx_venue_created"`
	CreatedAt time.Time `gorm:"index:idx_venue_created"`
}

func (CheckInModel) TableName() string {
	return "check_ins"
}

// UserProfileModel 对应 user_profiles 表
type UserProfileModel struct {
	ID        string `gorm:"primaryKey;size:64"`
	Name      string
	Email     string
	Phone     string
	BirthDate *time.Time
	Gender    string `gorm:"size:16"`
	Friends   string `gorm:"type:json"`
}

func (UserProfileModel) TableName() string {
	return "user_profiles"
}

// UserVenueInteractionModel 对应 user_venue_interactions 表，每个用户每个场馆一行
type UserVenueInteractionModel struct {
	UserID           string `gorm:"primaryKey;size:64"`
	VenueID          string `gorm:"primaryKey;size:64"`
	FirstInteraction time.Time
	LastInteraction  time.Time
	Log              string `gorm:"type:json"`
	Preferences      string `gorm:"type:json"`
}

func (UserVenueInteractionModel) TableName() string {
	return "user_venue_interactions"
}

// AllModels 供 AutoMigrate 使用
func AllModels() []interface{} {
	return []interface{}{
		&VenueModel{}, &PromotionModel{}, &VenueFollowerModel{}, &RedemptionModel{},
		&CheckInModel{}, &UserProfileModel{}, &UserVenueInteractionModel{},
	}
}
