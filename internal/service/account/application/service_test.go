package application

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"storefront/internal/pkg/datastore"
	"storefront/internal/pkg/datastore/datastoretest"
	"storefront/internal/service/account/domain"
	"storefront/internal/service/account/infrastructure"
)

type memPublisher struct {
	types    []string
	payloads []json.RawMessage
}

func (p *memPublisher) Publish(_ context.Context, eventType, _ string, payload any) error {
	buf, _ := json.Marshal(payload)
	p.types = append(p.types, eventType)
	p.payloads = append(p.payloads, buf)
	return nil
}

func seed(store *datastoretest.Store, userID string) {
	for _, c := range domain.DependentCollections {
		store.Insert(c,
			datastoretest.Row{"id": c + "-1", "user_id": userID},
			datastoretest.Row{"id": c + "-2", "user_id": userID},
			datastoretest.Row{"id": c + "-other", "user_id": "someone-else"},
		)
	}
	store.AddIdentity(userID)
	store.AddIdentity("someone-else")
}

func newService(store *datastoretest.Store, pub *memPublisher) *AccountService {
	scoped := &datastoretest.Scoped{Tokens: map[string]datastore.Identity{"token-1": {ID: "user-1"}}}
	return NewAccountService(scoped, infrastructure.NewRecordEraser(store), pub, noop.NewTracerProvider().Tracer("test"))
}

func TestEraseAccount_RemovesEverythingOwned(t *testing.T) {
	store := datastoretest.NewStore()
	seed(store, "user-1")
	pub := &memPublisher{}

	report, err := newService(store, pub).EraseAccount(context.Background(), "token-1")
	require.NoError(t, err)
	assert.Empty(t, report.Failed)
	assert.False(t, report.ErasedAt.IsZero())

	for _, c := range domain.DependentCollections {
		assert.Empty(t, store.Rows(c, datastore.Filter{"user_id": "user-1"}), c)
		assert.Len(t, store.Rows(c, datastore.Filter{"user_id": "someone-else"}), 1, c)
		assert.EqualValues(t, 2, report.Deleted[c], c)
	}
	assert.False(t, store.HasIdentity("user-1"))
	assert.True(t, store.HasIdentity("someone-else"))

	require.Equal(t, []string{domain.EventAccountErased}, pub.types)
	var evt map[string]any
	require.NoError(t, json.Unmarshal(pub.payloads[0], &evt))
	assert.Equal(t, "user-1", evt["user_id"])
	assert.Equal(t, []any{}, evt["failed_collections"])
}

func TestEraseAccount_Unauthorized(t *testing.T) {
	store := datastoretest.NewStore()
	seed(store, "user-1")

	_, err := newService(store, &memPublisher{}).EraseAccount(context.Background(), "stolen")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.True(t, store.HasIdentity("user-1"))
	assert.Len(t, store.Rows("cart_items", datastore.Filter{"user_id": "user-1"}), 2)
}

func TestEraseAccount_PartialCascadeFailureStillDeletesIdentity(t *testing.T) {
	store := datastoretest.NewStore()
	seed(store, "user-1")
	store.FailOn("reviews", errors.New("permission denied"))
	store.FailOn("favorites", errors.New("timeout"))
	pub := &memPublisher{}

	report, err := newService(store, pub).EraseAccount(context.Background(), "token-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"favorites", "reviews"}, report.Failed)
	assert.Empty(t, store.Rows("cart_items", datastore.Filter{"user_id": "user-1"}))
	assert.False(t, store.HasIdentity("user-1"))

	var evt map[string]any
	require.NoError(t, json.Unmarshal(pub.payloads[0], &evt))
	assert.Equal(t, []any{"favorites", "reviews"}, evt["failed_collections"])
}

func TestEraseAccount_IdentityDeletionFailure(t *testing.T) {
	store := datastoretest.NewStore()
	seed(store, "user-1")
	store.FailOn("auth", errors.New("admin api unavailable"))
	pub := &memPublisher{}

	_, err := newService(store, pub).EraseAccount(context.Background(), "token-1")
	assert.ErrorIs(t, err, domain.ErrIdentityDeletion)
	assert.True(t, store.HasIdentity("user-1"))
	assert.Empty(t, pub.types)
}
