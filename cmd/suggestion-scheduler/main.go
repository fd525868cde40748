// cmd/suggestion-scheduler/main.go
package main

import (
	"context"
	"time"

	"promo-intelligence/internal/pkg/bootstrap"
	"promo-intelligence/internal/pkg/logger"
	"promo-intelligence/internal/pkg/mq"
	"promo-intelligence/internal/pkg/tracing"
	"promo-intelligence/internal/service/intelligence/container"
	"promo-intelligence/internal/service/intelligence/interfaces"
)

const serviceName = "suggestion-scheduler"

// 定时为所有场馆跑自动化建议；配置了 trigger_topic 时还会消费场馆活动事件即时触发。
func main() {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.L().Fatal().Err(err).Msg("Failed to load config")
	}
	cfg.App.ServiceName = serviceName
	logger.Init(cfg.App.LogLevel, cfg.App.LogFormat)

	tp, err := tracing.InitTracerProvider(serviceName, cfg.Infra.Jaeger.Endpoint, cfg.Infra.Jaeger.SampleRatio)
	if err != nil {
		logger.L().Fatal().Err(err).Msg("Failed to initialize tracer provider")
	}

	c, err := container.New(cfg)
	if err != nil {
		logger.L().Fatal().Err(err).Msg("Failed to assemble intelligence service")
	}

	ctx, stop := bootstrap.WaitForSignal(context.Background())
	defer stop()

	var consumer *interfaces.AutomationTriggerConsumer
	if cfg.Infra.Kafka.TriggerTopic != "" {
		reader := mq.NewKafkaReader(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.TriggerTopic, cfg.Infra.Kafka.GroupID)
		consumer = interfaces.NewAutomationTriggerConsumer(reader, c.Service)
		consumer.Start(ctx)
	}

	// 阻塞直到收到退出信号
	interfaces.NewAutomationScheduler(c.Service, cfg.App.SchedulerInterval, cfg.App.AutoPostThreshold).Start(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if consumer != nil {
		consumer.Stop()
	}
	c.Close(shutdownCtx)
	if err := tp.Shutdown(shutdownCtx); err != nil {
		logger.L().Warn().Err(err).Msg("Error shutting down tracer provider")
	}
	logger.L().Info().Msg("Suggestion scheduler gracefully shut down")
}
