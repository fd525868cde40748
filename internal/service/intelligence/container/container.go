// Package container 把配置装配成可运行的 intelligence 服务，供各个 cmd 共用。
package container

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"promo-intelligence/internal/pkg/bootstrap"
	"promo-intelligence/internal/pkg/httpclient"
	"promo-intelligence/internal/pkg/logger"
	"promo-intelligence/internal/pkg/mq"
	"promo-intelligence/internal/pkg/redis"
	"promo-intelligence/internal/service/intelligence/application"
	"promo-intelligence/internal/service/intelligence/engine"
	"promo-intelligence/internal/service/intelligence/infrastructure"
	"promo-intelligence/internal/service/intelligence/infrastructure/rule"
	"promo-intelligence/internal/service/intelligence/port"
	"promo-intelligence/internal/zookeeper"
)

const (
	LockBackendRedis     = "redis"
	LockBackendZookeeper = "zookeeper"
	LockBackendLocal     = "local"

	NotificationTransportKafka = "kafka"
	NotificationTransportHTTP  = "http"
)

// Container 持有服务及其底层连接，Close 按创建的逆序释放
type Container struct {
	Service *application.IntelligenceService

	db          *gorm.DB
	redis       *redis.Client
	notifyTopic *kafka.Writer
	zk          *zookeeper.Conn
}

// New 依次建立 MySQL、Redis、Kafka writer 和锁后端的连接，然后组装应用服务
func New(cfg *bootstrap.Config) (_ *Container, err error) {
	c := &Container{}
	defer func() {
		if err != nil {
			c.Close(context.Background())
		}
	}()

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	// 1. 存储
	c.db, err = gorm.Open(mysql.Open(cfg.Infra.MySQL.DSN(loc)), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Warn),
		NowFunc: func() time.Time { return time.Now().In(loc) },
	})
	if err != nil {
		return nil, errors.Wrap(err, "connect mysql")
	}
	if cfg.App.AutoMigrate {
		if err := c.db.AutoMigrate(infrastructure.AllModels()...); err != nil {
			return nil, errors.Wrap(err, "auto migrate")
		}
	}
	repo := infrastructure.NewGormIntelligenceRepository(c.db)

	// 2. 缓存
	c.redis, err = redis.NewClient(cfg.Infra.Redis.Addrs)
	if err != nil {
		return nil, err
	}
	cache := infrastructure.NewRedisAnalysisCache(c.redis, cfg.App.CacheTTL)

	// 3. 通知出站
	tracer := otel.Tracer(cfg.App.ServiceName)
	notifier, err := c.newNotifier(cfg, tracer)
	if err != nil {
		return nil, err
	}

	// 4. 场馆锁
	locker, err := c.newLocker(cfg)
	if err != nil {
		return nil, err
	}

	// 5. 规则和应用服务
	rules, err := rule.NewCELRuleEngine()
	if err != nil {
		return nil, err
	}
	appCfg := application.Config{
		PerformanceWindowDays: cfg.App.PerformanceWindowDays,
		RevenueWindowDays:     cfg.App.RevenueWindowDays,
		CheckInWindowDays:     cfg.App.CheckInWindowDays,
		AutoPostThreshold:     cfg.App.AutoPostThreshold,
		NotifyTimeout:         cfg.App.NotifyTimeout,
		Location:              loc,
	}
	gate := application.NewAutomationGate(repo, repo, notifier, locker, cache, tracer, appCfg)
	c.Service = application.NewIntelligenceService(repo, cache, engine.NewSynthesizer(rules, nil), gate, tracer, appCfg)

	logger.L().Info().Str("lock_backend", cfg.App.LockBackend).Str("timezone", loc.String()).Msg("Intelligence service assembled")
	return c, nil
}

func (c *Container) newNotifier(cfg *bootstrap.Config, tracer trace.Tracer) (port.NotificationPublisher, error) {
	switch cfg.Infra.Notification.Transport {
	case NotificationTransportKafka, "":
		c.notifyTopic = mq.NewKafkaWriter(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.NotificationTopic)
		return infrastructure.NewNotificationKafkaAdapter(c.notifyTopic), nil
	case NotificationTransportHTTP:
		return infrastructure.NewNotificationHTTPAdapter(httpclient.NewClient(tracer), cfg.Infra.Notification.WebhookURL), nil
	default:
		return nil, errors.Errorf("unknown notification transport %q", cfg.Infra.Notification.Transport)
	}
}

func (c *Container) newLocker(cfg *bootstrap.Config) (port.VenueLocker, error) {
	switch cfg.App.LockBackend {
	case LockBackendRedis:
		return infrastructure.NewRedisVenueLocker(c.redis, cfg.App.LockTTL, cfg.App.LockWait), nil
	case LockBackendZookeeper:
		conn, err := zookeeper.Connect(cfg.Infra.Zookeeper.Servers, cfg.Infra.Zookeeper.SessionTimeout)
		if err != nil {
			return nil, err
		}
		c.zk = conn
		return infrastructure.NewZookeeperVenueLocker(conn, cfg.App.LockWait), nil
	case LockBackendLocal:
		// 只适用于单实例部署
		return infrastructure.NewLocalVenueLocker(cfg.App.LockWait), nil
	default:
		return nil, errors.Errorf("unknown lock backend %q", cfg.App.LockBackend)
	}
}

// Close 释放所有连接，可以重复调用
func (c *Container) Close(ctx context.Context) {
	log := logger.Ctx(ctx)
	if c.zk != nil {
		c.zk.Close()
		c.zk = nil
	}
	if c.notifyTopic != nil {
		if err := c.notifyTopic.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close kafka writer")
		}
		c.notifyTopic = nil
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close redis client")
		}
		c.redis = nil
	}
	if c.db != nil {
		if sqlDB, err := c.db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close mysql connection")
			}
		}
		c.db = nil
	}
}
