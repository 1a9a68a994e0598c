package infrastructure

import (
	"context"

	"github.com/pkg/errors"

	"storefront/internal/pkg/datastore"
	"storefront/internal/service/delivery/domain"
)

const zonesTable = "delivery_zones"

// ZoneModel 对应 delivery_zones 表的一行。
type ZoneModel struct {
	Region   string  `json:"region"`
	Fee      float64 `json:"fee"`
	IsActive bool    `json:"is_active"`
}

// ZoneRepository 通过服务端凭证实现 domain.ZoneRepository。
type ZoneRepository struct {
	store datastore.PrivilegedStore
}

var _ domain.ZoneRepository = (*ZoneRepository)(nil)

func NewZoneRepository(store datastore.PrivilegedStore) *ZoneRepository {
	return &ZoneRepository{store: store}
}

func (r *ZoneRepository) ListActive(ctx context.Context) ([]domain.Zone, error) {
	var models []ZoneModel
	if err := r.store.FindAll(ctx, zonesTable, datastore.Filter{"is_active": true}, "region", &models); err != nil {
		return nil, errors.Wrap(err, "list delivery zones")
	}
	zones := make([]domain.Zone, 0, len(models))
	for _, m := range models {
		zones = append(zones, domain.Zone{Region: m.Region, Fee: m.Fee, IsActive: m.IsActive})
	}
	return zones, nil
}
