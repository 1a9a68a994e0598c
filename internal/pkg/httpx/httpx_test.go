package httpx

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"storefront/internal/pkg/logger"
)

func TestCORS(t *testing.T) {
	reached := false
	h := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/track-order", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.False(t, reached)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, corsAllowHeaders, rr.Header().Get("Access-Control-Allow-Headers"))

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/track-order", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, reached)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestContext_BindsLoggerFields(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator()) })

	var buf bytes.Buffer
	base := zerolog.New(&buf)

	h := RequestContext(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Ctx(r.Context()).Info().Msg("inside")
	}))

	req := httptest.NewRequest(http.MethodPost, "/validate-coupon", nil)
	req.Header.Set(HeaderRequestID, "req-123")
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	req = req.WithContext(logger.WithContext(req.Context(), base))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "req-123", rr.Header().Get(HeaderRequestID))
	out := buf.String()
	assert.Contains(t, out, `"request_id":"req-123"`)
	assert.Contains(t, out, `"path":"/validate-coupon"`)
	assert.Contains(t, out, `"trace_id":"4bf92f3577b34da6a3ce929d0e0e4736"`)
}

func TestRequestContext_GeneratesRequestID(t *testing.T) {
	h := RequestContext(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/delivery-fee", nil)
	req.Header.Set(HeaderRequestID, strings.Repeat("x", 100))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	id := rr.Header().Get(HeaderRequestID)
	assert.Len(t, id, 36)
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, http.StatusBadRequest, "رقم الطلب مطلوب")

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"رقم الطلب مطلوب"}`, rr.Body.String())
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Code string `json:"code"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"code":"SAVE10"}`))
	require.NoError(t, DecodeJSON(req, &dst))
	assert.Equal(t, "SAVE10", dst.Code)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	assert.NoError(t, DecodeJSON(req, &dst))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"code":`))
	assert.Error(t, DecodeJSON(req, &dst))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{\"code\":\"X\"}  \n"))
	assert.NoError(t, DecodeJSON(req, &dst))

	for _, body := range []string{`{"code":"X"}garbage`, `{"code":"X"}{"code":"Y"}`, `{"code":"X"}}`} {
		req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		assert.Error(t, DecodeJSON(req, &dst), body)
	}

	big := `{"code":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
	assert.Error(t, DecodeJSON(req, &dst))
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{header: "Bearer abc.def", want: "abc.def"},
		{header: "bearer   abc ", want: "abc"},
		{header: "Basic abc", want: ""},
		{header: "abc", want: ""},
		{header: "", want: ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Authorization", tt.header)
		assert.Equal(t, tt.want, BearerToken(req), tt.header)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		xff     []string
		trusted int
		want    string
	}{
		{name: "direct ignores forwarded headers", xff: []string{"203.0.113.7"}, trusted: 0, want: "10.0.0.9"},
		{name: "one proxy takes right-most hop", xff: []string{"1.2.3.4, 203.0.113.7"}, trusted: 1, want: "203.0.113.7"},
		{name: "two proxies", xff: []string{"1.2.3.4, 203.0.113.7, 172.16.0.2"}, trusted: 2, want: "203.0.113.7"},
		{name: "repeated headers are one chain", xff: []string{"1.2.3.4", "203.0.113.7"}, trusted: 1, want: "203.0.113.7"},
		{name: "chain shorter than proxies", xff: []string{"203.0.113.7"}, trusted: 2, want: "10.0.0.9"},
		{name: "no header behind proxy", trusted: 1, want: "10.0.0.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req.RemoteAddr = "10.0.0.9:5555"
			req.Header.Set("X-Real-IP", "198.51.100.4")
			for _, v := range tt.xff {
				req.Header.Add("X-Forwarded-For", v)
			}
			assert.Equal(t, tt.want, ClientIP(req, tt.trusted))
		})
	}
}

func TestClientIP_SpoofedLeftHopsShareOneKey(t *testing.T) {
	seen := map[string]bool{}
	for _, spoofed := range []string{"1.1.1.1", "2.2.2.2", "3.3.3.3, 4.4.4.4"} {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "10.0.0.9:5555"
		req.Header.Set("X-Forwarded-For", spoofed+", 203.0.113.7")
		seen[ClientIP(req, 1)] = true
	}
	assert.Equal(t, map[string]bool{"203.0.113.7": true}, seen)
}

func TestAccessLog_RecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	h := AccessLog(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))

	req := httptest.NewRequest(http.MethodPost, "/redeem-coupon", nil)
	req = req.WithContext(logger.WithContext(req.Context(), zerolog.New(&buf)))
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `"status":409`)
}
