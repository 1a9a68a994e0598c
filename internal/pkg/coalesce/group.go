// Package coalesce 合并对同一个 key 的并发读取，并在 TTL 内缓存成功的结果。
package coalesce

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Group 对每个 key 至多保留一个进行中的加载。加载失败的结果不缓存。
// ttl 为 0 时结果一直保留，直到 Forget 或 Reset。
type Group[K comparable, V any] struct {
	ttl time.Duration
	now func() time.Time

	sf singleflight.Group

	mu    sync.RWMutex
	cache map[K]entry[V]
	// gen 在 Reset 时递增，避免 Reset 之前发起的加载把旧结果写回缓存。
	gen uint64
}

func New[K comparable, V any](ttl time.Duration) *Group[K, V] {
	return &Group[K, V]{ttl: ttl, now: time.Now, cache: make(map[K]entry[V])}
}

// Do 返回 key 的缓存值；没有时调用 load，同一时刻同一个 key 只会有一次 load。
func (g *Group[K, V]) Do(ctx context.Context, key K, load func(context.Context) (V, error)) (V, error) {
	if v, ok := g.lookup(key); ok {
		return v, nil
	}

	g.mu.RLock()
	gen := g.gen
	g.mu.RUnlock()

	ch := g.sf.DoChan(g.flightKey(gen, key), func() (interface{}, error) {
		v, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return v, err
		}
		g.store(gen, key, v)
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			var zero V
			return zero, res.Err
		}
		return res.Val.(V), nil
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// Forget 丢弃一个 key 的缓存值。
func (g *Group[K, V]) Forget(key K) {
	g.mu.Lock()
	delete(g.cache, key)
	g.mu.Unlock()
}

// Reset 清空所有缓存值，进行中的加载完成后也不会写回。
func (g *Group[K, V]) Reset() {
	g.mu.Lock()
	g.cache = make(map[K]entry[V])
	g.gen++
	g.mu.Unlock()
}

func (g *Group[K, V]) lookup(key K) (V, bool) {
	g.mu.RLock()
	e, ok := g.cache[key]
	g.mu.RUnlock()
	if !ok || (g.ttl > 0 && !g.now().Before(e.expiresAt)) {
		var zero V
		return zero, false
	}
	return e.value, true
}

func (g *Group[K, V]) store(gen uint64, key K, v V) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if gen != g.gen {
		return
	}
	g.cache[key] = entry[V]{value: v, expiresAt: g.now().Add(g.ttl)}
}

func (g *Group[K, V]) flightKey(gen uint64, key K) string {
	return fmt.Sprintf("%d/%v", gen, key)
}
