// internal/pkg/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SuggestionsGenerated 按生成器统计产出的建议数量（dashboard / automation）
	SuggestionsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intelligence_suggestions_generated_total",
			Help: "Total number of promotion suggestions generated",
		},
		[]string{"generator"},
	)

	// AutoPostResults 自动发布闸门对每条建议的处理结果
	AutoPostResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intelligence_autopost_total",
			Help: "Automation gate outcomes per suggestion",
		},
		[]string{"result"}, // posted, pending, failed
	)

	ForecastResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intelligence_forecast_total",
			Help: "Revenue forecasts by status",
		},
		[]string{"status"},
	)

	NotificationsRequested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "intelligence_notification_requests_total",
			Help: "Notification requests emitted for auto-posted promotions",
		},
	)

	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intelligence_cache_requests_total",
			Help: "Analysis cache lookups",
		},
		[]string{"result"}, // hit, miss, error
	)

	UseCaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intelligence_usecase_duration_seconds",
			Help:    "Duration of intelligence use-cases in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"usecase"},
	)
)

// ObserveSince 记录一个用例从 start 开始的耗时，一般配合 defer 使用。
func ObserveSince(usecase string, start time.Time) {
	UseCaseDuration.WithLabelValues(usecase).Observe(time.Since(start).Seconds())
}
