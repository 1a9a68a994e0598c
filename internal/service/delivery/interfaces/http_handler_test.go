package interfaces

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace/noop"

	"storefront/internal/pkg/datastore/datastoretest"
	"storefront/internal/service/delivery/application"
	"storefront/internal/service/delivery/infrastructure"
)

func newTestServer(t *testing.T) (*datastoretest.Store, http.Handler) {
	t.Helper()
	store := datastoretest.NewStore()
	store.Insert("delivery_zones", datastoretest.Row{"region": "الرياض", "fee": 15, "is_active": true})

	svc := application.NewDeliveryService(infrastructure.NewZoneRepository(store), time.Minute, 30, noop.NewTracerProvider().Tracer("test"))
	r := chi.NewRouter()
	NewDeliveryHandler(svc).RegisterRoutes(r)
	return store, r
}

func get(h http.Handler, region string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/delivery-fee?region="+url.QueryEscape(region), nil))
	return rec
}

func TestDeliveryFee(t *testing.T) {
	_, h := newTestServer(t)

	rec := get(h, "الرياض")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"region":"الرياض","fee":15}`, rec.Body.String())

	rec = get(h, "نجران")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"region":"نجران","fee":30,"default":true}`, rec.Body.String())

	rec = get(h, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"`+msgRegionRequired+`"}`, rec.Body.String())
}

func TestDeliveryFee_StoreFailure(t *testing.T) {
	store, h := newTestServer(t)
	store.FailOn("delivery_zones", errors.New("boom"))

	rec := get(h, "الرياض")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"`+msgInternal+`"}`, rec.Body.String())
}
