// internal/pkg/bootstrap/app.go
package bootstrap

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"promo-intelligence/internal/pkg/logger"
	"promo-intelligence/internal/pkg/nacos"
	"promo-intelligence/internal/pkg/tracing"
)

const shutdownTimeout = 10 * time.Second

type AppCtx struct {
	Mux    *http.ServeMux
	Config *Config
}

// AppInfo 包含了启动一个微服务所需的所有特定信息。
type AppInfo struct {
	Config           *Config
	RegisterHandlers func(appCtx AppCtx) // 一个函数，允许每个服务注册自己独特的 HTTP 路由
	// OnShutdown 在 HTTP 服务器关闭之后调用，用于关闭数据库、kafka writer 等资源
	OnShutdown func(ctx context.Context)
}

// StartService 封装了所有微服务的通用启动和优雅关停逻辑，阻塞直到收到 SIGINT/SIGTERM。
func StartService(info AppInfo) error {
	cfg := info.Config
	name := cfg.App.ServiceName
	log := logger.L()

	// 1. Tracer
	tp, err := tracing.InitTracerProvider(name, cfg.Infra.Jaeger.Endpoint, cfg.Infra.Jaeger.SampleRatio)
	if err != nil {
		return errors.Wrap(err, "initialize tracer provider")
	}

	// 2. 服务注册（可选）
	var registry *nacos.Client
	var ip string
	if cfg.Infra.Nacos.Enabled {
		registry, err = nacos.NewClient(cfg.Infra.Nacos.Addrs, cfg.Infra.Nacos.Namespace, cfg.Infra.Nacos.Group)
		if err != nil {
			return errors.Wrap(err, "initialize nacos client")
		}
		if ip, err = outboundIP(); err != nil {
			return errors.Wrap(err, "resolve outbound ip")
		}
		if err := registry.RegisterServiceInstance(name, ip, cfg.App.Port); err != nil {
			return err
		}
	}

	// 3. 创建并启动 HTTP Server
	mux := http.NewServeMux()
	if info.RegisterHandlers != nil {
		info.RegisterHandlers(AppCtx{Mux: mux, Config: cfg})
	}
	server := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.App.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("service", name).Int("port", cfg.App.Port).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// 4. 阻塞主 goroutine，直到接收到退出信号或服务器异常退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	var runErr error
	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Str("service", name).Msg("Shutting down service")
	case runErr = <-serveErr:
		log.Error().Err(runErr).Str("service", name).Msg("HTTP server stopped unexpectedly")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// 5. 按启动的逆序清理：先注销，再停止接收请求，最后冲刷 trace
	if registry != nil {
		if err := registry.DeregisterServiceInstance(name, ip, cfg.App.Port); err != nil {
			log.Warn().Err(err).Msg("Error deregistering from Nacos")
		}
	}
	if err := server.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("Error shutting down http server")
	}
	if info.OnShutdown != nil {
		info.OnShutdown(ctx)
	}
	if err := tp.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("Error shutting down tracer provider")
	}

	log.Info().Str("service", name).Msg("Service gracefully shut down")
	return runErr
}

// WaitForSignal 返回一个在 SIGINT/SIGTERM 时取消的 context，供没有 HTTP 入口的进程使用
func WaitForSignal(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// outboundIP 通过一次 UDP "连接" 找出本机对外的网卡地址，不会真正发包
func outboundIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String(), nil
}
