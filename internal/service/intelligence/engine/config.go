// internal/service/intelligence/engine/config.go
package engine

import "time"

// 以下均为人工调优的常量。保持字面值不变，输出才能与线上结果逐一对照。

// 时间窗口
const (
	PerformanceWindowDays = 30
	RevenueWindowDays     = 60
	CheckInWindowDays     = 30
)

// 星期表现
const (
	DayScoreRedemptionWeight = 0.5
	DayScoreRevenueDivisor   = 100.0
	DayScorePromotionWeight  = 0.3
	DayIncreaseThreshold     = 50.0
	DayImproveThreshold      = 20.0
	BestDaysCount            = 3
	WorstDaysCount           = 2
)

// 时段表现
const (
	TimeframeRedemptionWeight = 2.0
	TimeframeRevenueDivisor   = 50.0
	TimeframeOptimalThreshold = 30.0
	TimeframeImproveThreshold = 10.0
)

// 收入预测
const (
	TrendMinDates             = 7
	TrendRecentDates          = 7
	TrendIncreaseRatio        = 1.1
	TrendDecreaseRatio        = 0.9
	ForecastConfidencePerDate = 2
	ForecastConfidenceFloor   = 50
	ForecastConfidenceCeiling = 95
	LowDailyRevenueThreshold  = 50.0
	DefaultForecastDays       = 7
)

// 最佳时机预测
const (
	TimingMinRecords     = 10
	TimingHighConfidence = 85
	TimingLowConfidence  = 60
)

// 建议置信度（0~1）
const (
	DayOptimizationConfidence       = 0.85
	TimeframeOptimizationConfidence = 0.80
	DemographicTargetingConfidence  = 0.75
	RevenueBoostConfidence          = 0.70
	TrafficBoostConfidence          = 0.65
	HolidayConfidence               = 0.90
	SummerConfidence                = 0.75

	SlowDayConfidence          = 0.80
	PeakOptimizationConfidence = 0.85
	ReplicateSuccessConfidence = 0.90
	RetentionConfidence        = 0.75
)

// 建议折扣（百分比）
const (
	DayOptimizationDiscount       = 20
	TimeframeOptimizationDiscount = 25
	YoungAdultDiscount            = 30
	AdultDiscount                 = 20
	DefaultDemographicDiscount    = 15
	RevenueBoostDiscount          = 35
	TrafficBoostDiscount          = 30
	HolidayDiscount               = 25
	SummerDiscount                = 20
	SlowDayDiscount               = 20
	PeakOptimizationDiscount      = 15
	RetentionDiscount             = 15
)

// 自动化规则
const (
	SlowDayRatio            = 0.7
	PeakWindowHours         = 2
	ReplicateSuccessRate    = 0.3
	ReplicateSuccessTopN    = 2
	RetentionInactiveDays   = 3
	RevenueBoostValidDays   = 7
	DefaultEveningStartTime = "17:00"
	DefaultEveningEndTime   = "22:00"
)

// 自动发布闸门
const (
	DefaultAutoPostThreshold   = 0.85
	DefaultPromotionDuration   = 7 * 24 * time.Hour
	OptimalNotificationHour    = 17
	NotificationLeadTime       = 2 * time.Hour
	NotificationRecipientLimit = 100
	// NotificationTimeout 单次推送请求的上限，需小于场馆锁的 TTL
	NotificationTimeout = 5 * time.Second
)

// 受众匹配
const (
	TypeMatchScore        = 30
	TimeframeMatchScore   = 30
	VisitFloorScore       = 20
	RecentWeekScore       = 20
	RecentMonthScore      = 10
	MaxMatchScore         = 100
	ActiveWindowDays      = 30
	RecentWeekDays        = 7
	TopFavoriteTypes      = 3
	TopPreferredTimeframe = 2
)

// 客户生命周期价值
const (
	CLVRetentionRate   = 0.7
	CLVForecastMonths  = 12
	DaysPerActiveMonth = 30.0
)
