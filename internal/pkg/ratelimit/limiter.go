// internal/pkg/ratelimit/limiter.go
package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"storefront/internal/pkg/httpx"
	"storefront/internal/pkg/logger"
	"storefront/internal/pkg/redis"
)

const fixedWindowScriptName = "ratelimit_fixed_window"

// KEYS[1]: 计数 key，例如 ratelimit:track-order:{203.0.113.7}
// ARGV[1]: 窗口长度（毫秒）
// 返回窗口内的第几次请求。
var fixedWindowScript = `
local current = redis.call('INCR', KEYS[1])
if current == 1 then
    redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return current
`

// Allower 判断一次请求是否放行。
type Allower interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// FixedWindowLimiter 是基于 Redis 的固定窗口限流器，计数和过期在同一个脚本里原子完成。
type FixedWindowLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

// NewFixedWindowLimiter 创建限流器，limit 为每个窗口允许的请求数。
func NewFixedWindowLimiter(client *redis.Client, limit int, window time.Duration) (*FixedWindowLimiter, error) {
	if limit <= 0 || window <= 0 {
		return nil, fmt.Errorf("invalid rate limit %d per %v", limit, window)
	}
	if err := client.LoadScriptFromContent(fixedWindowScriptName, fixedWindowScript); err != nil {
		return nil, fmt.Errorf("failed to load rate limit script: %w", err)
	}
	return &FixedWindowLimiter{client: client, limit: int64(limit), window: window}, nil
}

func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	result, err := l.client.RunScript(ctx, fixedWindowScriptName, []string{key}, l.window.Milliseconds())
	if err != nil {
		return false, fmt.Errorf("rate limit script failed: %w", err)
	}
	count, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected result type from rate limit script: %T", result)
	}
	return count <= l.limit, nil
}

// Middleware 按 function + 客户端 IP 限流，IP 的取法见 httpx.ClientIP。限流器出错时放行并记录日志。
func Middleware(limiter Allower, trustedProxies int, function, message string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := fmt.Sprintf("ratelimit:%s:{%s}", function, httpx.ClientIP(r, trustedProxies))
			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.Ctx(r.Context()).Warn().Err(err).Str("function", function).Msg("rate limiter unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				httpx.WriteError(w, http.StatusTooManyRequests, message)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
