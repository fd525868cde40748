// internal/service/intelligence/infrastructure/mapper.go
package infrastructure

import (
	"encoding/json"

	"github.com/pkg/errors"

	"promo-intelligence/internal/service/intelligence/domain"
)

// ToDomainPromotion 将数据库模型转换为领域模型
func ToDomainPromotion(model *PromotionModel) (domain.Promotion, error) {
	p := domain.Promotion{
		ID:      model.ID,
		VenueID: model.VenueID,
		PromotionTemplate: domain.PromotionTemplate{
			Title:           model.Title,
			Description:     model.Description,
			Type:            domain.PromotionType(model.Type),
			DiscountPercent: model.DiscountPercent,
			StartDate:       model.StartDate,
			EndDate:         model.EndDate,
		},
		IsActive: model.IsActive,
		Analytics: domain.PromotionAnalytics{
			Views:       model.Views,
			Clicks:      model.Clicks,
			Redemptions: model.Redemptions,
			Revenue:     model.Revenue,
		},
		AutoGenerated: model.AutoGenerated,
		AIConfidence:  model.AIConfidence,
		CreatedAt:     model.CreatedAt,
	}
	if err := unmarshalColumn(model.Schedule, &p.Schedule); err != nil {
		return p, errors.Wrapf(err, "promotion %s schedule", model.ID)
	}
	return p, nil
}

// FromDomainPromotion 将领域模型转换为数据库模型（用于插入）
func FromDomainPromotion(p *domain.Promotion) (*PromotionModel, error) {
	schedule, err := json.Marshal(p.Schedule)
	if err != nil {
		return nil, errors.Wrap(err, "marshal schedule")
	}
	return &PromotionModel{
		ID:              p.ID,
		VenueID:         p.VenueID,
		Title:           p.Title,
		Description:     p.Description,
		Type:            string(p.Type),
		DiscountPercent: p.DiscountPercent,
		StartDate:       p.StartDate,
		EndDate:         p.EndDate,
		Schedule:        string(schedule),
		IsActive:        p.IsActive,
		Views:           p.Analytics.Views,
		Clicks:          p.Analytics.Clicks,
		Redemptions:     p.Analytics.Redemptions,
		Revenue:         p.Analytics.Revenue,
		AutoGenerated:   p.AutoGenerated,
		AIConfidence:    p.AIConfidence,
		CreatedAt:       p.CreatedAt,
	}, nil
}

func ToDomainRedemption(model *RedemptionModel) domain.Redemption {
	return domain.Redemption{
		ID:          model.ID,
		VenueID:     model.VenueID,
		RecipientID: model.RecipientID,
		Amount:      model.Amount,
		RedeemedAt:  model.RedeemedAt,
		Status:      model.Status,
	}
}

func ToDomainCheckIn(model *CheckInModel) domain.CheckIn {
	return domain.CheckIn{
		ID:        model.ID,
		UserID:    model.UserID,
		VenueID:   model.VenueID,
		CreatedAt: model.CreatedAt,
	}
}

// ToDomainUser 组装用户资料和按场馆分组的互动记录
func ToDomainUser(model *UserProfileModel, interactions []UserVenueInteractionModel) (domain.UserProfile, error) {
	u := domain.UserProfile{
		ID:        model.ID,
		Name:      model.Name,
		Email:     model.Email,
		Phone:     model.Phone,
		BirthDate: model.BirthDate,
		Gender:    model.Gender,
	}
	if err := unmarshalColumn(model.Friends, &u.Friends); err != nil {
		return u, errors.Wrapf(err, "user %s friends", model.ID)
	}
	if len(interactions) == 0 {
		return u, nil
	}

	u.Interactions = make(map[string]*domain.VenueInteraction, len(interactions))
	for i := range interactions {
		m := &interactions[i]
		vi := &domain.VenueInteraction{
			FirstInteraction: m.FirstInteraction,
			LastInteraction:  m.LastInteraction,
		}
		if err := unmarshalColumn(m.Log, &vi.Log); err != nil {
			return u, errors.Wrapf(err, "user %s venue %s log", m.UserID, m.VenueID)
		}
		if err := unmarshalColumn(m.Preferences, &vi.Preferences); err != nil {
			return u, errors.Wrapf(err, "user %s venue %s preferences", m.UserID, m.VenueID)
		}
		u.Interactions[m.VenueID] = vi
	}
	return u, nil
}

// unmarshalColumn 空字符串和 JSON null 都视为没有值
func unmarshalColumn(raw string, dest interface{}) error {
	if raw == "" || raw == "null" {
		return nil
	}
	return json.Unmarshal([]byte(raw), dest)
}
