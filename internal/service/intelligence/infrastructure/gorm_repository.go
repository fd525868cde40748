// internal/service/intelligence/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"promo-intelligence/internal/service/intelligence/domain"
)

// GormIntelligenceRepository 同时实现 domain.HistoryReader 和 domain.PromotionStore
type GormIntelligenceRepository struct {
	db *gorm.DB
}

// NewGormIntelligenceRepository 创建一个新的 GORM 仓储实例
func NewGormIntelligenceRepository(db *gorm.DB) *GormIntelligenceRepository {
	return &GormIntelligenceRepository{db: db}
}

// FindVenue 读取场馆、促销列表和关注者
func (r *GormIntelligenceRepository) FindVenue(ctx context.Context, venueID string) (*domain.Venue, error) {
	db := r.db.WithContext(ctx)

	var venue VenueModel
	if err := db.Where("id = ?", venueID).First(&venue).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrVenueNotFound
		}
		return nil, errors.Wrapf(err, "find venue %s", venueID)
	}

	var promotions []PromotionModel
	if err := db.Where("venue_id = ?", venueID).Order("created_at").Find(&promotions).Error; err != nil {
		return nil, errors.Wrapf(err, "list promotions of venue %s", venueID)
	}

	var followers []string
	if err := db.Model(&VenueFollowerModel{}).Where("venue_id = ?", venueID).
		Order("created_at").Pluck("user_id", &followers).Error; err != nil {
		return nil, errors.Wrapf(err, "list followers of venue %s", venueID)
	}

	result := &domain.Venue{
		ID:         venue.ID,
		Name:       venue.Name,
		OwnerID:    venue.OwnerID,
		Promotions: make([]domain.Promotion, 0, len(promotions)),
		Followers:  followers,
	}
	for i := range promotions {
		p, err := ToDomainPromotion(&promotions[i])
		if err != nil {
			return nil, err
		}
		result.Promotions = append(result.Promotions, p)
	}
	return result, nil
}

// RedemptionsForVenue 只返回已核销的记录
func (r *GormIntelligenceRepository) RedemptionsForVenue(ctx context.Context, venueID string, since time.Time) ([]domain.Redemption, error) {
	var models []RedemptionModel
	err := r.db.WithContext(ctx).
		Where("venue_id = ? AND status = ? AND redeemed_at >= ?", venueID, domain.RedemptionStatusRedeemed, since).
		Order("redeemed_at").
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrapf(err, "list redemptions of venue %s", venueID)
	}
	return toDomainRedemptions(models), nil
}

func (r *GormIntelligenceRepository) RedemptionsForUser(ctx context.Context, venueID, userID string) ([]domain.Redemption, error) {
	var models []RedemptionModel
	err := r.db.WithContext(ctx).
		Where("venue_id = ? AND recipient_id = ? AND status = ?", venueID, userID, domain.RedemptionStatusRedeemed).
		Order("redeemed_at").
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrapf(err, "list redemptions of user %s at venue %s", userID, venueID)
	}
	return toDomainRedemptions(models), nil
}

// CheckInsForVenue 按时间倒序返回
func (r *GormIntelligenceRepository) CheckInsForVenue(ctx context.Context, venueID string, since time.Time) ([]domain.CheckIn, error) {
	var models []CheckInModel
	err := r.db.WithContext(ctx).
		Where("venue_id = ? AND created_at >= ?", venueID, since).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrapf(err, "list check-ins of venue %s", venueID)
	}
	out := make([]domain.CheckIn, len(models))
	for i := range models {
		out[i] = ToDomainCheckIn(&models[i])
	}
	return out, nil
}

func (r *GormIntelligenceRepository) LatestCheckIn(ctx context.Context, venueID string) (*time.Time, error) {
	var model CheckInModel
	err := r.db.WithContext(ctx).
		Where("venue_id = ?", venueID).
		Order("created_at DESC").
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "find latest check-in of venue %s", venueID)
	}
	latest := model.CreatedAt
	return &latest, nil
}

// UsersByIDs 按传入顺序返回，不存在的用户被跳过
func (r *GormIntelligenceRepository) UsersByIDs(ctx context.Context, ids []string) ([]domain.UserProfile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	db := r.db.WithContext(ctx)

	var profiles []UserProfileModel
	if err := db.Where("id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, errors.Wrap(err, "list user profiles")
	}
	var interactions []UserVenueInteractionModel
	if err := db.Where("user_id IN ?", ids).Find(&interactions).Error; err != nil {
		return nil, errors.Wrap(err, "list user interactions")
	}

	byUser := make(map[string][]UserVenueInteractionModel, len(profiles))
	for _, in := range interactions {
		byUser[in.UserID] = append(byUser[in.UserID], in)
	}
	byID := make(map[string]*UserProfileModel, len(profiles))
	for i := range profiles {
		byID[profiles[i].ID] = &profiles[i]
	}

	out := make([]domain.UserProfile, 0, len(profiles))
	for _, id := range ids {
		m, ok := byID[id]
		if !ok {
			continue
		}
		u, err := ToDomainUser(m, byUser[id])
		if err != nil {
			return nil, err
		}
		out = append(out, u)
		delete(byID, id)
	}
	return out, nil
}

func (r *GormIntelligenceRepository) FindUser(ctx context.Context, userID string) (*domain.UserProfile, error) {
	db := r.db.WithContext(ctx)

	var profile UserProfileModel
	if err := db.Where("id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, errors.Wrapf(err, "find user %s", userID)
	}
	var interactions []UserVenueInteractionModel
	if err := db.Where("user_id = ?", userID).Find(&interactions).Error; err != nil {
		return nil, errors.Wrapf(err, "list interactions of user %s", userID)
	}
	u, err := ToDomainUser(&profile, interactions)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *GormIntelligenceRepository) ActiveVenueIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&VenueModel{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, errors.Wrap(err, "list venue ids")
	}
	return ids, nil
}

// AppendPromotion 在一个事务中先对场馆行加 SELECT ... FOR UPDATE，再插入促销。
// 并发追加同一场馆时第二个事务会等待行锁，不会丢失任何一条。
func (r *GormIntelligenceRepository) AppendPromotion(ctx context.Context, venueID string, promotion *domain.Promotion) error {
	promotion.VenueID = venueID
	model, err := FromDomainPromotion(promotion)
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var venues []VenueModel
		res := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").Where("id = ?", venueID).Find(&venues)
		if res.Error != nil {
			return errors.Wrapf(res.Error, "lock venue %s", venueID)
		}
		if len(venues) == 0 {
			return domain.ErrVenueNotFound
		}
		if err := tx.Create(model).Error; err != nil {
			return errors.Wrapf(err, "insert promotion %s", model.ID)
		}
		return nil
	})
}

func toDomainRedemptions(models []RedemptionModel) []domain.Redemption {
	out := make([]domain.Redemption, len(models))
	for i := range models {
		out[i] = ToDomainRedemption(&models[i])
	}
	return out
}
