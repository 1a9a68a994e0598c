// internal/pkg/bootstrap/app.go
package bootstrap

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"storefront/internal/pkg/httpx"
	"storefront/internal/pkg/logger"
	"storefront/internal/pkg/metrics"
	"storefront/internal/pkg/nacos"
	"storefront/internal/pkg/tracing"
)

type shutdownHook struct {
	name string
	fn   func(context.Context) error
}

type readinessCheck struct {
	name string
	fn   func(context.Context) error
}

// AppCtx 是注册路由时可用的公共组件。
type AppCtx struct {
	Router chi.Router
	Config *Config

	mu     sync.Mutex
	hooks  []shutdownHook
	checks []readinessCheck
}

// OnShutdown 注册一个关停时执行的清理函数，按注册的逆序执行。
func (a *AppCtx) OnShutdown(name string, fn func(context.Context) error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hooks = append(a.hooks, shutdownHook{name: name, fn: fn})
}

// AddReadinessCheck 注册一个 /readyz 依赖检查。
func (a *AppCtx) AddReadinessCheck(name string, fn func(context.Context) error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.checks = append(a.checks, readinessCheck{name: name, fn: fn})
}

// AppInfo 包含了启动一个服务所需的所有特定信息。
type AppInfo struct {
	ServiceName      string
	RegisterHandlers func(appCtx *AppCtx) error // 每个服务注册自己的路由和后台任务
}

// NewRouter 创建带公共中间件和运维端点的路由。
func NewRouter(appCtx *AppCtx, m *metrics.HTTPMetrics, gatherer prometheus.Gatherer) chi.Router {
	r := chi.NewRouter()
	r.Use(httpx.RequestContext, httpx.AccessLog, httpx.CORS, m.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Get("/readyz", appCtx.readyHandler)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	appCtx.Router = r
	return r
}

func (a *AppCtx) readyHandler(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	checks := append([]readinessCheck(nil), a.checks...)
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	failed := map[string]string{}
	for _, c := range checks {
		if err := c.fn(ctx); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("check", c.name).Msg("readiness check failed")
			failed[c.name] = "unavailable"
		}
	}
	if len(failed) > 0 {
		httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "checks": failed})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// StartService 封装了通用的启动和优雅关停逻辑。
func StartService(info AppInfo, cfg *Config) {
	logger.Init(info.ServiceName, cfg.App.LogLevel, cfg.App.Env == "dev")

	// 1. Tracer
	tp, err := tracing.InitTracerProvider(info.ServiceName, cfg.Infra.Jaeger.Endpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracer provider")
	}

	// 2. 路由与业务组件
	appCtx := &AppCtx{Config: cfg}
	router := NewRouter(appCtx, metrics.New(prometheus.DefaultRegisterer), prometheus.DefaultGatherer)
	if info.RegisterHandlers != nil {
		if err := info.RegisterHandlers(appCtx); err != nil {
			log.Fatal().Err(err).Msg("failed to register handlers")
		}
	}

	server := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Msgf("%s listening on :%d", info.ServiceName, cfg.App.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msgf("could not listen on %s", server.Addr)
		}
	}()

	// 3. 可选的服务注册
	var (
		namingClient *nacos.Client
		ip           string
	)
	if cfg.Infra.Nacos.Enabled {
		namingClient, err = nacos.NewNacosClient(cfg.Infra.Nacos.ServerAddrs, cfg.Infra.Nacos.Namespace, cfg.Infra.Nacos.Group)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize nacos client")
		}
		if ip, err = GetOutboundIP(); err != nil {
			log.Fatal().Err(err).Msg("failed to get outbound IP address")
		}
		if err := namingClient.RegisterServiceInstance(info.ServiceName, ip, cfg.App.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to register service with nacos")
		}
	}

	// 4. 优雅关停
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msgf("Shutting down service %s...", info.ServiceName)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// a. 先从注册中心摘除，不再接新流量
	if namingClient != nil {
		if err := namingClient.DeregisterServiceInstance(info.ServiceName, ip, cfg.App.Port); err != nil {
			log.Error().Err(err).Msg("Error deregistering from Nacos")
		}
		namingClient.Close()
	}

	// b. 关闭 HTTP 服务器，等待进行中的请求
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Error shutting down http server")
	} else {
		log.Info().Msg("HTTP server shut down.")
	}

	// c. 业务组件的清理，后进先出
	appCtx.runShutdownHooks(ctx)

	// d. 关闭 Tracer Provider，确保所有缓冲的 trace 都被发送出去
	if err := tp.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Error shutting down tracer provider")
	}

	log.Info().Msgf("Service %s gracefully shut down.", info.ServiceName)
}

func (a *AppCtx) runShutdownHooks(ctx context.Context) {
	a.mu.Lock()
	hooks := append([]shutdownHook(nil), a.hooks...)
	a.mu.Unlock()

	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		if err := h.fn(ctx); err != nil {
			log.Error().Err(err).Str("component", h.name).Msg("shutdown hook failed")
			continue
		}
		log.Info().Str("component", h.name).Msg("component shut down")
	}
}

// GetOutboundIP 返回本机对外通信使用的 IP，用于服务注册。
func GetOutboundIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String(), nil
}
