// internal/pkg/httpclient/client.go

package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Client 是一个可追踪的、可注入的HTTP客户端
type Client struct {
	Tracer     trace.Tracer
	HTTPClient *http.Client
}

// NewClient 创建一个新的客户端实例。
// 不设置 http.Client.Timeout，超时完全由每次请求传入的 context 控制；
// timeout > 0 时作为单次请求的兜底上限。
func NewClient(tracer trace.Tracer, timeout time.Duration) *Client {
	httpClient := &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
		Timeout: timeout,
	}
	return &Client{
		Tracer:     tracer,
		HTTPClient: httpClient,
	}
}

// Do 发送请求并为其创建一个 client span，同时把追踪上下文注入请求头。
// 调用方负责关闭响应体并判断状态码。
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	spanName := fmt.Sprintf("call-%s", req.URL.Hostname())

	ctx, span := c.Tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	req = req.WithContext(ctx)
	span.SetAttributes(
		attribute.String("http.method", req.Method),
		attribute.String("http.path", req.URL.Path),
	)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, resp.Status)
	}
	return resp, nil
}
