// Package datastore 定义访问托管数据平台的两种能力。
//
// ScopedStore 使用公开(anon)凭证加调用方自己的 token，只受行级权限约束下的能力，
// 这里只用它来证明调用方身份。PrivilegedStore 使用服务端凭证，绕过行级权限，
// 用于跨用户的查询与删除。两者刻意保持为不同类型，不要合并成一个对象。
package datastore

import (
	"context"
	"errors"
)

var (
	// ErrNotFound 表示按过滤条件没有命中任何行（或身份不存在）。
	ErrNotFound = errors.New("datastore: not found")
	// ErrUnauthorized 表示调用方的凭证无效、过期或不属于任何身份。
	ErrUnauthorized = errors.New("datastore: credential rejected")
)

// Filter 是按列等值匹配的过滤条件，多个列之间是 AND 关系。
type Filter map[string]any

// Identity 是认证平台里的一个用户身份。
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// ScopedStore 代表受行级权限约束的用户凭证。
type ScopedStore interface {
	// ResolveIdentity 校验 accessToken 并返回它所属的身份。
	ResolveIdentity(ctx context.Context, accessToken string) (*Identity, error)
}

// PrivilegedStore 代表服务端凭证，提供以表为粒度的读、删与条件更新。
type PrivilegedStore interface {
	// FindOne 把第一条匹配行解码进 dest（结构体指针），没有匹配时返回 ErrNotFound。
	FindOne(ctx context.Context, table string, filter Filter, dest any) error
	// FindAll 把所有匹配行解码进 dest（切片指针），orderBy 为空时不排序，按该列升序。
	FindAll(ctx context.Context, table string, filter Filter, orderBy string, dest any) error
	// DeleteWhere 删除所有匹配行并返回删除的行数。
	DeleteWhere(ctx context.Context, table string, filter Filter) (int64, error)
	// CompareAndSwap 仅当 column 当前值等于 old 时把它改为 new，返回是否成功替换。
	CompareAndSwap(ctx context.Context, table string, filter Filter, column string, old, new any) (bool, error)
	// DeleteIdentity 删除认证身份本身。身份不存在时返回 ErrNotFound。
	DeleteIdentity(ctx context.Context, userID string) error
}
