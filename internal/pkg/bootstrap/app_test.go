package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/pkg/metrics"
)

func newTestRouter(t *testing.T) (*AppCtx, http.Handler) {
	t.Helper()
	reg := prometheus.NewRegistry()
	appCtx := &AppCtx{Config: &Config{}}
	r := NewRouter(appCtx, metrics.New(reg), reg)
	r.Post("/echo", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	return appCtx, r
}

func TestRouter_Healthz(t *testing.T) {
	_, h := newTestRouter(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRouter_PreflightOnAnyPath(t *testing.T) {
	_, h := newTestRouter(t)
	for _, path := range []string{"/echo", "/does-not-exist"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, path, nil))

		assert.Equal(t, http.StatusNoContent, rec.Code, path)
		assert.Empty(t, rec.Body.String())
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "authorization, x-client-info, apikey, content-type", rec.Header().Get("Access-Control-Allow-Headers"))
	}
}

func TestRouter_Readyz(t *testing.T) {
	appCtx, h := newTestRouter(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	appCtx.AddReadinessCheck("redis", func(context.Context) error { return errors.New("down") })
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis":"unavailable"`)
}

func TestRouter_MetricsExposeFunctionCounters(t *testing.T) {
	_, h := newTestRouter(t)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/echo", nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `storefront_function_requests_total{code="201",function="/echo"} 1`), body)
}

func TestAppCtx_ShutdownHooksRunInReverse(t *testing.T) {
	appCtx := &AppCtx{}
	var order []string
	appCtx.OnShutdown("first", func(context.Context) error { order = append(order, "first"); return nil })
	appCtx.OnShutdown("second", func(context.Context) error { order = append(order, "second"); return errors.New("x") })
	appCtx.OnShutdown("third", func(context.Context) error { order = append(order, "third"); return nil })

	appCtx.runShutdownHooks(context.Background())
	assert.Equal(t, []string{"third", "second", "first"}, order)
}
