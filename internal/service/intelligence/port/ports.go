// internal/service/intelligence/port/ports.go
package port

import (
	"context"

	"promo-intelligence/internal/service/intelligence/domain"
)

// NotificationPublisher 是通知投递的出站端口，引擎只负责产生请求。
type NotificationPublisher interface {
	PublishNotification(ctx context.Context, req *domain.NotificationRequest) error
}

// VenueLocker 串行化同一场馆的写操作。release 必须被调用。
type VenueLocker interface {
	LockVenue(ctx context.Context, venueID string) (release func(context.Context) error, err error)
}
