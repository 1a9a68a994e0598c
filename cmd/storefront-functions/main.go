// cmd/storefront-functions/main.go
package main

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"storefront/internal/pkg/bootstrap"
	"storefront/internal/pkg/datastore"
	"storefront/internal/pkg/datastore/rest"
	"storefront/internal/pkg/datastore/sqlstore"
	"storefront/internal/pkg/httpclient"
	"storefront/internal/pkg/idempotency"
	"storefront/internal/pkg/mq"
	"storefront/internal/pkg/ratelimit"
	"storefront/internal/pkg/redis"
	accountApp "storefront/internal/service/account/application"
	accountInfra "storefront/internal/service/account/infrastructure"
	accountHTTP "storefront/internal/service/account/interfaces"
	couponApp "storefront/internal/service/coupon/application"
	couponInfra "storefront/internal/service/coupon/infrastructure"
	couponHTTP "storefront/internal/service/coupon/interfaces"
	deliveryApp "storefront/internal/service/delivery/application"
	deliveryInfra "storefront/internal/service/delivery/infrastructure"
	deliveryHTTP "storefront/internal/service/delivery/interfaces"
	trackingApp "storefront/internal/service/tracking/application"
	trackingInfra "storefront/internal/service/tracking/infrastructure"
	trackingHTTP "storefront/internal/service/tracking/interfaces"
)

const msgTooManyRequests = "عدد كبير من المحاولات، يرجى المحاولة بعد قليل"

type middleware = func(http.Handler) http.Handler

// main 是组装根：读取配置，创建所有依赖，然后交给 bootstrap 启动。
func main() {
	cfg, err := bootstrap.LoadConfig("")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName:      cfg.App.Name,
		RegisterHandlers: registerFunctions,
	}, cfg)
}

func registerFunctions(app *bootstrap.AppCtx) error {
	cfg := app.Config
	tracer := otel.Tracer(cfg.App.Name)
	httpClient := httpclient.NewClient(tracer, cfg.Platform.Timeout)

	// 1. 两种凭证各自一个客户端
	scoped, err := rest.NewScopedClient(cfg.Platform.URL, cfg.Platform.AnonKey, httpClient)
	if err != nil {
		return errors.Wrap(err, "scoped store")
	}
	privileged, err := newPrivilegedStore(app, httpClient)
	if err != nil {
		return err
	}

	// 2. 可选的 redis：限流和核销幂等
	var (
		trackMws, validateMws, redeemMws []middleware
		couponOpts                       = []couponApp.Option{couponApp.WithMaxAttempts(cfg.Functions.Redeem.MaxAttempts)}
	)
	if cfg.Infra.Redis.Addrs != "" {
		redisClient, err := redis.NewClient(cfg.Infra.Redis.Addrs, cfg.Infra.Redis.Password, cfg.Infra.Redis.DB)
		if err != nil {
			return errors.Wrap(err, "redis client")
		}
		app.AddReadinessCheck("redis", redisClient.Ping)
		app.OnShutdown("redis", func(context.Context) error { return redisClient.Close() })

		limiter, err := ratelimit.NewFixedWindowLimiter(redisClient, cfg.Functions.RateLimit.Limit, cfg.Functions.RateLimit.Window)
		if err != nil {
			return err
		}
		proxies := cfg.Functions.RateLimit.TrustedProxies
		trackMws = append(trackMws, ratelimit.Middleware(limiter, proxies, "track-order", msgTooManyRequests))
		validateMws = append(validateMws, ratelimit.Middleware(limiter, proxies, "validate-coupon", msgTooManyRequests))
		redeemMws = append(redeemMws, ratelimit.Middleware(limiter, proxies, "redeem-coupon", msgTooManyRequests))
		couponOpts = append(couponOpts, couponApp.WithClaims(idempotency.NewStore(redisClient.GetClient(), cfg.Functions.Redeem.IdempotencyTTL)))
	} else {
		log.Warn().Msg("redis is not configured, rate limiting and redemption idempotency are disabled")
	}

	// 3. 可选的 kafka：领域事件
	var publisher mq.Publisher = mq.NoopPublisher{}
	if len(cfg.Infra.Kafka.Brokers) > 0 {
		writer := mq.NewKafkaWriter(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.EventsTopic)
		app.OnShutdown("kafka-writer", func(context.Context) error { return writer.Close() })
		publisher = mq.NewKafkaPublisher(writer)
	}
	couponOpts = append(couponOpts, couponApp.WithPublisher(publisher))

	// 4. 业务服务与路由
	registerServices(app, tracer, scoped, privileged, publisher, couponOpts, trackMws, validateMws, redeemMws)
	return nil
}

func registerServices(
	app *bootstrap.AppCtx,
	tracer trace.Tracer,
	scoped datastore.ScopedStore,
	privileged datastore.PrivilegedStore,
	publisher mq.Publisher,
	couponOpts []couponApp.Option,
	trackMws, validateMws, redeemMws []middleware,
) {
	cfg := app.Config

	trackingSvc := trackingApp.NewTrackingService(trackingInfra.NewOrderRepository(privileged), tracer)
	trackingHTTP.NewTrackingHandler(trackingSvc).RegisterRoutes(app.Router, trackMws...)

	couponSvc := couponApp.NewCouponService(couponInfra.NewCouponRepository(privileged),
		couponInfra.NewOrderOwners(privileged), scoped, tracer, couponOpts...)
	couponHTTP.NewCouponHandler(couponSvc).RegisterRoutes(app.Router, validateMws, redeemMws)

	accountSvc := accountApp.NewAccountService(scoped, accountInfra.NewRecordEraser(privileged), publisher, tracer)
	accountHTTP.NewAccountHandler(accountSvc).RegisterRoutes(app.Router)

	deliverySvc := deliveryApp.NewDeliveryService(deliveryInfra.NewZoneRepository(privileged),
		cfg.Functions.Delivery.CacheTTL, cfg.Functions.Delivery.DefaultFee, tracer)
	deliveryHTTP.NewDeliveryHandler(deliverySvc).RegisterRoutes(app.Router)
}

func newPrivilegedStore(app *bootstrap.AppCtx, httpClient *httpclient.Client) (datastore.PrivilegedStore, error) {
	cfg := app.Config
	switch cfg.Store.Driver {
	case bootstrap.StoreDriverMySQL:
		db, err := sqlstore.Open(cfg.Store.MySQLDSN)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, errors.Wrap(err, "mysql pool")
		}
		app.AddReadinessCheck("mysql", sqlDB.PingContext)
		app.OnShutdown("mysql", func(context.Context) error { return sqlDB.Close() })
		return sqlstore.New(db, cfg.Store.IdentityTable), nil
	default:
		store, err := rest.NewPrivilegedClient(cfg.Platform.URL, cfg.Platform.ServiceRoleKey, httpClient)
		if err != nil {
			return nil, errors.Wrap(err, "privileged store")
		}
		return store, nil
	}
}
