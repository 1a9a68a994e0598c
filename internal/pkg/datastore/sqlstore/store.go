// Package sqlstore 用 GORM 直连数据库实现 datastore.PrivilegedStore。
// 直连账号本身就是服务端凭证，不受平台行级权限约束。
package sqlstore

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"storefront/internal/pkg/datastore"
)

// DefaultIdentityTable 是身份表的默认表名。
const DefaultIdentityTable = "users"

// Store 是 datastore.PrivilegedStore 的 GORM 实现
type Store struct {
	db            *gorm.DB
	identityTable string
}

var _ datastore.PrivilegedStore = (*Store)(nil)

// Open 使用 MySQL DSN 打开连接。
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open mysql")
	}
	return db, nil
}

// New 创建仓储实例。identityTable 为空时使用 DefaultIdentityTable。
func New(db *gorm.DB, identityTable string) *Store {
	if identityTable == "" {
		identityTable = DefaultIdentityTable
	}
	return &Store{db: db, identityTable: identityTable}
}

func (s *Store) FindOne(ctx context.Context, table string, filter datastore.Filter, dest any) error {
	err := s.db.WithContext(ctx).Table(table).Where(map[string]any(filter)).Take(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return datastore.ErrNotFound
	}
	return errors.Wrapf(err, "find %s", table)
}

func (s *Store) FindAll(ctx context.Context, table string, filter datastore.Filter, orderBy string, dest any) error {
	tx := s.db.WithContext(ctx).Table(table).Where(map[string]any(filter))
	if orderBy != "" {
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: orderBy}})
	}
	return errors.Wrapf(tx.Find(dest).Error, "list %s", table)
}

func (s *Store) DeleteWhere(ctx context.Context, table string, filter datastore.Filter) (int64, error) {
	if len(filter) == 0 {
		return 0, errors.Errorf("refusing unfiltered delete on %s", table)
	}
	res := s.db.WithContext(ctx).Table(table).Where(map[string]any(filter)).Delete(map[string]any{})
	if res.Error != nil {
		return 0, errors.Wrapf(res.Error, "delete from %s", table)
	}
	return res.RowsAffected, nil
}

func (s *Store) CompareAndSwap(ctx context.Context, table string, filter datastore.Filter, column string, old, new any) (bool, error) {
	res := s.db.WithContext(ctx).Table(table).
		Where(map[string]any(filter)).
		Where(clause.Eq{Column: clause.Column{Name: column}, Value: old}).
		Update(column, new)
	if res.Error != nil {
		return false, errors.Wrapf(res.Error, "compare-and-swap %s.%s", table, column)
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) DeleteIdentity(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.New("empty user id")
	}
	res := s.db.WithContext(ctx).Table(s.identityTable).Where(clause.Eq{Column: clause.Column{Name: "id"}, Value: userID}).Delete(map[string]any{})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "delete identity %s", userID)
	}
	if res.RowsAffected == 0 {
		return datastore.ErrNotFound
	}
	return nil
}
