package application

import (
	"context"
	"time"

	"promo-intelligence/internal/service/intelligence/engine"
)

// Config 应用层可调参数，零值字段取 engine 中的默认值。
type Config struct {
	PerformanceWindowDays int
	RevenueWindowDays     int
	CheckInWindowDays     int
	AutoPostThreshold     float64
	NotifyTimeout         time.Duration
	Location              *time.Location
	Now                   func() time.Time
}

func (c Config) withDefaults() Config {
	if c.PerformanceWindowDays <= 0 {
		c.PerformanceWindowDays = engine.PerformanceWindowDays
	}
	if c.RevenueWindowDays <= 0 {
		c.RevenueWindowDays = engine.RevenueWindowDays
	}
	if c.CheckInWindowDays <= 0 {
		c.CheckInWindowDays = engine.CheckInWindowDays
	}
	if c.AutoPostThreshold <= 0 {
		c.AutoPostThreshold = engine.DefaultAutoPostThreshold
	}
	if c.NotifyTimeout <= 0 {
		c.NotifyTimeout = engine.NotificationTimeout
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

// noopCache 没有配置缓存时使用
type noopCache struct{}

func (noopCache) Get(context.Context, string, string, interface{}) (bool, error) { return false, nil }
func (noopCache) Set(context.Context, string, string, interface{}) error         { return nil }
func (noopCache) Invalidate(context.Context, string) error                       { return nil }
