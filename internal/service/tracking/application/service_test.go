package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"storefront/internal/service/tracking/domain"
)

type fakeOrderRepo struct {
	orders    map[string]*domain.Order
	items     map[string][]domain.OrderItem
	findErr   error
	itemsErr  error
	findCalls int
}

func (f *fakeOrderRepo) FindByOrderNumber(_ context.Context, orderNumber string) (*domain.Order, error) {
	f.findCalls++
	if f.findErr != nil {
		return nil, f.findErr
	}
	o, ok := f.orders[orderNumber]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrderRepo) ListItems(_ context.Context, orderID string) ([]domain.OrderItem, error) {
	if f.itemsErr != nil {
		return nil, f.itemsErr
	}
	return f.items[orderID], nil
}

func newRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders: map[string]*domain.Order{
			"ABCDE12345": {ID: "o-1", OrderNumber: "ABCDE12345", Status: "processing", Total: 120, CustomerPhone: "0551231234", CustomerName: "سارة"},
		},
		items: map[string][]domain.OrderItem{
			"o-1": {{ID: "i-1", OrderID: "o-1", ProductName: "عسل", Price: 60, Quantity: 2}},
		},
	}
}

func newService(repo domain.OrderRepository) *TrackingService {
	return NewTrackingService(repo, noop.NewTracerProvider().Tracer("test"))
}

func TestTrackOrder_Success(t *testing.T) {
	svc := newService(newRepo())

	resp, err := svc.TrackOrder(context.Background(), &TrackOrderRequest{OrderNumber: " abcde12345", PhoneLast4: "1234"})
	require.NoError(t, err)
	assert.Equal(t, "o-1", resp.Order.ID)
	assert.Equal(t, "ABCDE12345", resp.Order.OrderNumber)
	require.Len(t, resp.Order.Items, 1)
	assert.Equal(t, "عسل", resp.Order.Items[0].ProductName)
}

func TestTrackOrder_InvalidInputSkipsLookup(t *testing.T) {
	repo := newRepo()
	svc := newService(repo)

	_, err := svc.TrackOrder(context.Background(), &TrackOrderRequest{OrderNumber: "ABCDE12345", PhoneLast4: "12a4"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Zero(t, repo.findCalls)
}

func TestTrackOrder_MissingAndMismatchAreIndistinguishable(t *testing.T) {
	svc := newService(newRepo())

	_, errMissing := svc.TrackOrder(context.Background(), &TrackOrderRequest{OrderNumber: "ZZZZZ99999", PhoneLast4: "1234"})
	_, errMismatch := svc.TrackOrder(context.Background(), &TrackOrderRequest{OrderNumber: "ABCDE12345", PhoneLast4: "9999"})

	assert.ErrorIs(t, errMissing, domain.ErrOrderNotFound)
	assert.ErrorIs(t, errMismatch, domain.ErrOrderNotFound)
	assert.Equal(t, errMissing.Error(), errMismatch.Error())
}

func TestTrackOrder_StoreErrors(t *testing.T) {
	boom := errors.New("timeout")

	repo := newRepo()
	repo.findErr = boom
	_, err := newService(repo).TrackOrder(context.Background(), &TrackOrderRequest{OrderNumber: "ABCDE12345", PhoneLast4: "1234"})
	assert.ErrorIs(t, err, boom)

	repo = newRepo()
	repo.itemsErr = boom
	_, err = newService(repo).TrackOrder(context.Background(), &TrackOrderRequest{OrderNumber: "ABCDE12345", PhoneLast4: "1234"})
	assert.ErrorIs(t, err, boom)
}
