// cmd/intelligence-service/main.go
package main

import (
	"context"
	"os"

	"promo-intelligence/internal/pkg/bootstrap"
	"promo-intelligence/internal/pkg/logger"
	"promo-intelligence/internal/service/intelligence/container"
	"promo-intelligence/internal/service/intelligence/interfaces"
)

// main 函数是应用的"组装根" (Composition Root)
// 它的核心职责是：创建并组装所有依赖项，然后启动应用。
func main() {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.L().Fatal().Err(err).Msg("Failed to load config")
	}
	logger.Init(cfg.App.LogLevel, cfg.App.LogFormat)

	c, err := container.New(cfg)
	if err != nil {
		logger.L().Fatal().Err(err).Msg("Failed to assemble intelligence service")
	}

	err = bootstrap.StartService(bootstrap.AppInfo{
		Config: cfg,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			interfaces.NewIntelligenceHandler(c.Service).RegisterRoutes(appCtx.Mux)
		},
		OnShutdown: func(ctx context.Context) { c.Close(ctx) },
	})
	if err != nil {
		logger.L().Error().Err(err).Msg("Intelligence service exited with error")
		os.Exit(1)
	}
}
