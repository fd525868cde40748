// internal/service/intelligence/infrastructure/notification_adapter.go
package infrastructure

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"promo-intelligence/internal/pkg/logger"
	"promo-intelligence/internal/pkg/mq"
	"promo-intelligence/internal/service/intelligence/domain"
)

// NotificationKafkaAdapter 把通知请求投递到 kafka，由通知服务负责真正的推送。
// 消息以 venueID 为 key，同一场馆的通知保持有序。
type NotificationKafkaAdapter struct {
	writer mq.MessageWriter
}

func NewNotificationKafkaAdapter(writer mq.MessageWriter) *NotificationKafkaAdapter {
	return &NotificationKafkaAdapter{writer: writer}
}

func (a *NotificationKafkaAdapter) PublishNotification(ctx context.Context, req *domain.NotificationRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return errors.Wrap(err, "marshal notification request")
	}
	if err := mq.ProduceMessage(ctx, a.writer, []byte(req.VenueID), payload); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("venue_id", req.VenueID).Msg("Failed to produce notification request")
		return errors.Wrapf(err, "produce notification %s", req.ID)
	}
	return nil
}
