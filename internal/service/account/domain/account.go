// internal/service/account/domain/account.go
package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrUnauthorized = errors.New("caller identity rejected")
	// ErrIdentityDeletion 表示身份本身删除失败，账号保持不变，用户可以重试。
	ErrIdentityDeletion = errors.New("identity deletion failed")
)

// DependentCollections 是以 user_id 关联到身份的所有集合，删除身份之前要逐个清理。
var DependentCollections = []string{
	"cart_items",
	"favorites",
	"reviews",
	"stock_notifications",
	"profiles",
	"user_roles",
}

// RecordEraser 以服务端权限删除用户数据。
type RecordEraser interface {
	// DeleteOwned 删除 collection 中属于 userID 的所有记录，返回删除的条数。
	DeleteOwned(ctx context.Context, collection, userID string) (int64, error)
	// DeleteIdentity 删除认证身份本身。
	DeleteIdentity(ctx context.Context, userID string) error
}

// ErasureReport 记录一次账号删除的结果。级联删除是尽力而为的，失败的集合记录在 Failed 中。
type ErasureReport struct {
	UserID   string
	Deleted  map[string]int64
	Failed   []string
	ErasedAt time.Time
}

// AccountErasedEvent 在身份删除成功后发布。
type AccountErasedEvent struct {
	UserID            string    `json:"user_id"`
	ErasedAt          time.Time `json:"erased_at"`
	FailedCollections []string  `json:"failed_collections"`
}

const EventAccountErased = "account.erased"
