// internal/service/intelligence/domain/repository.go
package domain

import (
	"context"
	"time"
)

// HistoryReader 定义了引擎需要的所有只读查询，由存储层实现。
type HistoryReader interface {
	// FindVenue 返回场馆及其促销、关注者列表；不存在时返回 ErrVenueNotFound。
	FindVenue(ctx context.Context, venueID string) (*Venue, error)

	// RedemptionsForVenue 返回 since 之后状态为 redeemed 的核销记录。
	RedemptionsForVenue(ctx context.Context, venueID string, since time.Time) ([]Redemption, error)

	// RedemptionsForUser 返回某个用户在某个场馆的全部已核销记录。
	RedemptionsForUser(ctx context.Context, venueID, userID string) ([]Redemption, error)

	// CheckInsForVenue 返回 since 之后的签到记录，按时间倒序。
	CheckInsForVenue(ctx context.Context, venueID string, since time.Time) ([]CheckIn, error)

	// LatestCheckIn 返回场馆最近一次签到的时间，不受分析窗口限制；从未有签到时返回 nil。
	LatestCheckIn(ctx context.Context, venueID string) (*time.Time, error)

	// UsersByIDs 批量读取用户资料，缺失的用户直接跳过。
	UsersByIDs(ctx context.Context, ids []string) ([]UserProfile, error)

	// FindUser 不存在时返回 ErrUserNotFound。
	FindUser(ctx context.Context, userID string) (*UserProfile, error)

	// ActiveVenueIDs 供定时任务遍历场馆。
	ActiveVenueIDs(ctx context.Context) ([]string, error)
}

// PromotionStore 是唯一的写路径：原子地向场馆追加一条促销。
type PromotionStore interface {
	AppendPromotion(ctx context.Context, venueID string, promotion *Promotion) error
}

// AnalysisCache 缓存按场馆计算的分析结果。
type AnalysisCache interface {
	Get(ctx context.Context, venueID, kind string, dest interface{}) (bool, error)
	Set(ctx context.Context, venueID, kind string, value interface{}) error
	Invalidate(ctx context.Context, venueID string) error
}

// RuleEngine 评估一条规则表达式是否对给定事实成立。
type RuleEngine interface {
	Evaluate(expression string, fact Fact) (bool, error)
}

// Fact 是规则评估的输入，键为变量名。
type Fact map[string]interface{}
