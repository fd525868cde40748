// internal/service/intelligence/infrastructure/notification_http_adapter.go
package infrastructure

import (
	"context"

	"github.com/pkg/errors"

	"promo-intelligence/internal/service/intelligence/domain"
)

// JSONPoster 是 httpclient.Client 的发送子集
type JSONPoster interface {
	PostJSON(ctx context.Context, target string, body interface{}) error
}

// NotificationHTTPAdapter 直接调用推送网关的 webhook，适合没有部署 kafka 的环境
type NotificationHTTPAdapter struct {
	client   JSONPoster
	endpoint string
}

func NewNotificationHTTPAdapter(client JSONPoster, endpoint string) *NotificationHTTPAdapter {
	return &NotificationHTTPAdapter{client: client, endpoint: endpoint}
}

func (a *NotificationHTTPAdapter) PublishNotification(ctx context.Context, req *domain.NotificationRequest) error {
	if err := a.client.PostJSON(ctx, a.endpoint, req); err != nil {
		return errors.Wrapf(err, "deliver notification %s", req.ID)
	}
	return nil
}
