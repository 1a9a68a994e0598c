// cmd/erasure-audit/main.go
package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"

	"storefront/internal/pkg/bootstrap"
	"storefront/internal/pkg/mq"
	"storefront/internal/service/audit/application"
	"storefront/internal/service/audit/interfaces"
)

const serviceName = "erasure-audit"

func main() {
	cfg, err := bootstrap.LoadConfig("")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	// 审计消费者只依赖 kafka，不校验平台配置
	cfg.App.Name = serviceName

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		RegisterHandlers: func(app *bootstrap.AppCtx) error {
			kafkaCfg := app.Config.Infra.Kafka
			if len(kafkaCfg.Brokers) == 0 {
				return errors.New("kafka brokers are required for the audit consumer")
			}

			// 1. 审计日志与运行日志分开，便于单独采集
			audit := log.Logger.With().Str("stream", "audit").Logger()
			appSvc := application.NewAuditService(audit, otel.Tracer(serviceName))

			// 2. 启动消费者，关闭时先停消费再关 reader
			reader := mq.NewKafkaReader(kafkaCfg.Brokers, kafkaCfg.EventsTopic, kafkaCfg.AuditGroup)
			adapter := interfaces.NewAuditConsumerAdapter(reader, appSvc)
			adapter.Start(context.Background())
			app.OnShutdown("audit-consumer", adapter.Stop)
			return nil
		},
	}, cfg)
}
