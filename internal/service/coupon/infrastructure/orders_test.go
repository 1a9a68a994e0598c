package infrastructure

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/pkg/datastore/datastoretest"
	"storefront/internal/service/coupon/domain"
)

func TestOrderOwners_OwnerOf(t *testing.T) {
	store := datastoretest.NewStore()
	store.Insert(ordersTable,
		datastoretest.Row{"order_number": "ORD-1", "user_id": "user-1"},
		datastoretest.Row{"order_number": "ORD-GUEST", "user_id": nil},
	)
	repo := NewOrderOwners(store)
	ctx := context.Background()

	owner, err := repo.OwnerOf(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", owner)

	_, err = repo.OwnerOf(ctx, "FAKE-0")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	_, err = repo.OwnerOf(ctx, "ORD-GUEST")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestOrderOwners_StoreFailure(t *testing.T) {
	store := datastoretest.NewStore()
	store.FailOn(ordersTable, errors.New("connection reset"))

	_, err := NewOrderOwners(store).OwnerOf(context.Background(), "ORD-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrOrderNotFound)
}
