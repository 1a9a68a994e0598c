// internal/pkg/httpx/httpx.go
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"storefront/internal/pkg/logger"
	"storefront/internal/pkg/tracing"
)

const (
	HeaderRequestID = "X-Request-ID"

	corsAllowHeaders = "authorization, x-client-info, apikey, content-type"
	corsAllowMethods = "POST, GET, OPTIONS"

	// 请求体上限，所有函数的入参都只有几个字段
	maxBodyBytes = 64 << 10
)

// CORS 给每个响应加上跨域头，预检请求直接 204 返回，不进入路由。
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
		h.Set("Access-Control-Allow-Methods", corsAllowMethods)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequestContext 提取上游的追踪上下文，并把带 request_id / trace_id 的 logger 绑定到请求 context。
func RequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, requestID)

		l := logger.Ctx(ctx).With().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path)
		if traceID := tracing.GetTraceIDFromContext(ctx); traceID != "" {
			l = l.Str("trace_id", traceID)
		}
		ctx = logger.WithContext(ctx, l.Logger())

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WriteJSON 以 application/json 写出响应体。
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// ErrorBody 是所有函数共用的错误响应体。
type ErrorBody struct {
	Error string `json:"error"`
}

// WriteError 写出 {"error": message}。
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorBody{Error: message})
}

// DecodeJSON 读取并解析请求体。空请求体视为 {}，第一个 JSON 值之后只允许空白。
func DecodeJSON(r *http.Request, dst any) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	if err := dec.Decode(&json.RawMessage{}); err != io.EOF {
		return errors.New("request body must contain a single JSON value")
	}
	return nil
}

// BearerToken 从 Authorization 头里取出 token，没有或格式不对时返回空串。
func BearerToken(r *http.Request) string {
	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(authz, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// ClientIP 返回请求方地址。trustedProxies 是服务前面的可信代理层数：
// 为 0 时只用 RemoteAddr；否则取 X-Forwarded-For 从右数第 trustedProxies 跳，
// 那一跳由最外层的可信代理写入，它左边的内容都可能是客户端伪造的。
func ClientIP(r *http.Request, trustedProxies int) string {
	remote := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		remote = host
	}
	if trustedProxies <= 0 {
		return remote
	}

	var hops []string
	for _, v := range r.Header.Values("X-Forwarded-For") {
		for _, hop := range strings.Split(v, ",") {
			if hop = strings.TrimSpace(hop); hop != "" {
				hops = append(hops, hop)
			}
		}
	}
	// 跳数不足说明请求没有经过全部可信代理
	if len(hops) < trustedProxies {
		return remote
	}
	return hops[len(hops)-trustedProxies]
}

// AccessLog 在请求结束时记录一条访问日志。
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		var ev *zerolog.Event
		switch {
		case status >= 500:
			ev = logger.Ctx(r.Context()).Error()
		case status >= 400:
			ev = logger.Ctx(r.Context()).Warn()
		default:
			ev = logger.Ctx(r.Context()).Info()
		}
		ev.Int("status", status).Msg("request handled")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}
