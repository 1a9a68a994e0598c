package idempotency

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Store 用 SET NX 记录一次性的操作 key。
type Store struct {
	rdb goredis.UniversalClient
	ttl time.Duration
}

func NewStore(rdb goredis.UniversalClient, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

// Claim 抢占 key，第一次抢占返回 true，key 已存在时返回 false。
func (s *Store) Claim(ctx context.Context, key string) (bool, error) {
	return s.rdb.SetNX(ctx, key, "1", s.ttl).Result()
}

// Release 释放 key，用于操作失败后允许调用方重试。
func (s *Store) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}
