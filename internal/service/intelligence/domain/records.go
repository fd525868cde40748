// internal/service/intelligence/domain/records.go
package domain

import "time"

// RedemptionStatusRedeemed 只有该状态的核销记录才计入分析。
const RedemptionStatusRedeemed = "redeemed"

// Redemption 是一条已结算的核销（支付）记录，对引擎只读。
type Redemption struct {
	ID          string    `json:"id"`
	VenueID     string    `json:"venueId"`
	RecipientID string    `json:"recipientId"`
	Amount      float64   `json:"amount"`
	RedeemedAt  time.Time `json:"redeemedAt"`
	Status      string    `json:"status"`
}

// Counts 判断该记录是否计入统计。
func (r Redemption) Counts() bool {
	return r.Status == RedemptionStatusRedeemed
}

// CheckIn 用户在场馆的签到记录。
type CheckIn struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	VenueID   string    `json:"venueId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Venue 场馆聚合：促销列表和关注者列表。
type Venue struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	OwnerID    string      `json:"ownerId"`
	Promotions []Promotion `json:"promotions"`
	Followers  []string    `json:"followers"`
}
