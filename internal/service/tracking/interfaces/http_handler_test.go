package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"storefront/internal/pkg/datastore/datastoretest"
	"storefront/internal/service/tracking/application"
	"storefront/internal/service/tracking/infrastructure"
)

func newTestServer(t *testing.T) (*datastoretest.Store, http.Handler) {
	t.Helper()
	store := datastoretest.NewStore()
	store.Insert("orders", datastoretest.Row{
		"id": "o-1", "order_number": "ABCDE12345", "status": "delivered",
		"subtotal": 200, "delivery_fee": 20, "discount_amount": 20, "total": 200,
		"customer_name": "نورة", "customer_phone": "+966555551234",
	})
	store.Insert("order_items", datastoretest.Row{"id": "i-1", "order_id": "o-1", "product_name": "تمر", "price": 100, "quantity": 2})

	svc := application.NewTrackingService(infrastructure.NewOrderRepository(store), noop.NewTracerProvider().Tracer("test"))
	r := chi.NewRouter()
	NewTrackingHandler(svc).RegisterRoutes(r)
	return store, r
}

func post(h http.Handler, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/track-order", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rec, req)
	return rec
}

func TestTrackOrder_Success(t *testing.T) {
	_, h := newTestServer(t)

	rec := post(h, `{"orderNumber":"ABCDE12345","phoneLast4":"1234"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotContains(t, rec.Body.String(), "customer_phone")
	assert.NotContains(t, rec.Body.String(), "555551234")

	var body struct {
		Order map[string]any `json:"order"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ABCDE12345", body.Order["order_number"])
	assert.Equal(t, "delivered", body.Order["status"])
	items, ok := body.Order["items"].([]any)
	require.True(t, ok)
	assert.Len(t, items, 1)
}

func TestTrackOrder_Validation(t *testing.T) {
	_, h := newTestServer(t)

	tests := []struct {
		name string
		body string
		msg  string
	}{
		{"malformed json", `{"orderNumber":`, msgInvalidBody},
		{"missing order number", `{"phoneLast4":"1234"}`, msgOrderNumberRequired},
		{"non-digit phone", `{"orderNumber":"ABCDE12345","phoneLast4":"abcd"}`, msgInvalidPhoneLast4},
		{"short order number", `{"orderNumber":"AB1","phoneLast4":"1234"}`, msgInvalidOrderNumber},
		{"wrong types", `{"orderNumber":12345,"phoneLast4":"1234"}`, msgInvalidBody},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(h, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, `{"error":"`+tt.msg+`"}`, rec.Body.String())
		})
	}
}

func TestTrackOrder_NotFoundIsIndistinguishable(t *testing.T) {
	_, h := newTestServer(t)

	missing := post(h, `{"orderNumber":"ZZZZZ00000","phoneLast4":"1234"}`)
	mismatch := post(h, `{"orderNumber":"ABCDE12345","phoneLast4":"4321"}`)

	assert.Equal(t, http.StatusNotFound, missing.Code)
	assert.Equal(t, http.StatusNotFound, mismatch.Code)
	assert.Equal(t, missing.Body.String(), mismatch.Body.String())
}

func TestTrackOrder_StoreFailureIsGeneric(t *testing.T) {
	store, h := newTestServer(t)
	store.FailOn("orders", errors.New("pq: relation \"orders\" does not exist"))

	rec := post(h, `{"orderNumber":"ABCDE12345","phoneLast4":"1234"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"`+msgInternal+`"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "relation")
}
