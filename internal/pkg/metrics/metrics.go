// internal/pkg/metrics/metrics.go
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics 记录每个函数端点的请求量与耗时。
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New 在 reg 上注册指标。生产环境传 prometheus.DefaultRegisterer，测试里传独立的 Registry。
func New(reg prometheus.Registerer) *HTTPMetrics {
	m := &HTTPMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "function_requests_total",
			Help:      "Number of handled function requests, by route and status code.",
		}, []string{"function", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "storefront",
			Name:      "function_request_duration_seconds",
			Help:      "Latency of function requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"function"}),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

// Middleware 以 chi 的路由模板作为 function 标签，未匹配路由的请求记为 "unmatched"。
func (m *HTTPMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		function := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			function = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(function, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(function).Observe(time.Since(start).Seconds())
	})
}
