package application

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"storefront/internal/pkg/datastore"
	"storefront/internal/pkg/logger"
	"storefront/internal/pkg/mq"
	"storefront/internal/service/account/domain"
)

// 同时进行的集合删除数
const cascadeParallelism = 3

// AccountService 删除调用方自己的账号。
// 身份用用户凭证证明，删除用服务端凭证执行。
type AccountService struct {
	identity  datastore.ScopedStore
	eraser    domain.RecordEraser
	publisher mq.Publisher
	tracer    trace.Tracer
	now       func() time.Time
}

func NewAccountService(identity datastore.ScopedStore, eraser domain.RecordEraser, publisher mq.Publisher, tracer trace.Tracer) *AccountService {
	if publisher == nil {
		publisher = mq.NoopPublisher{}
	}
	return &AccountService{
		identity:  identity,
		eraser:    eraser,
		publisher: publisher,
		tracer:    tracer,
		now:       time.Now,
	}
}

// EraseAccount 先清理所有关联集合，再删除身份本身。
// 集合删除失败只记录不中断；身份删除失败返回 ErrIdentityDeletion。
func (s *AccountService) EraseAccount(ctx context.Context, accessToken string) (*domain.ErasureReport, error) {
	ctx, span := s.tracer.Start(ctx, "service.EraseAccount")
	defer span.End()

	// 1. 用用户凭证解析身份
	identity, err := s.identity.ResolveIdentity(ctx, accessToken)
	if err != nil {
		if errors.Is(err, datastore.ErrUnauthorized) {
			return nil, domain.ErrUnauthorized
		}
		span.RecordError(err)
		// 平台不可用时同样无法证明身份
		logger.Ctx(ctx).Error().Err(err).Msg("failed to resolve caller identity")
		return nil, domain.ErrUnauthorized
	}
	span.SetAttributes(attribute.String("user.id", identity.ID))
	log := logger.Ctx(ctx).With().Str("user_id", identity.ID).Logger()

	// 2. 尽力清理关联集合
	report := s.cascade(ctx, identity.ID)
	if len(report.Failed) > 0 {
		span.AddEvent("cascade partially failed", trace.WithAttributes(attribute.StringSlice("failed", report.Failed)))
		log.Warn().Strs("failed_collections", report.Failed).Msg("account cascade delete partially failed")
	}

	// 3. 删除身份，这一步失败则整体失败
	if err := s.eraser.DeleteIdentity(ctx, identity.ID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "identity deletion failed")
		log.Error().Err(err).Msg("failed to delete identity")
		return nil, fmt.Errorf("%w: %w", domain.ErrIdentityDeletion, err)
	}
	report.ErasedAt = s.now().UTC()
	log.Info().Interface("deleted", report.Deleted).Msg("account erased")

	evt := domain.AccountErasedEvent{UserID: identity.ID, ErasedAt: report.ErasedAt, FailedCollections: report.Failed}
	if evt.FailedCollections == nil {
		evt.FailedCollections = []string{}
	}
	if err := s.publisher.Publish(ctx, domain.EventAccountErased, identity.ID, evt); err != nil {
		log.Error().Err(err).Msg("failed to publish account erased event")
	}
	return report, nil
}

func (s *AccountService) cascade(ctx context.Context, userID string) *domain.ErasureReport {
	report := &domain.ErasureReport{UserID: userID, Deleted: make(map[string]int64)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cascadeParallelism)
	for _, collection := range domain.DependentCollections {
		g.Go(func() error {
			n, err := s.eraser.DeleteOwned(gctx, collection, userID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Ctx(ctx).Error().Err(err).Str("collection", collection).Msg("cascade delete failed")
				report.Failed = append(report.Failed, collection)
				return nil
			}
			report.Deleted[collection] = n
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(report.Failed)
	return report
}
