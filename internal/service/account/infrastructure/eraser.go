package infrastructure

import (
	"context"

	"github.com/pkg/errors"

	"storefront/internal/pkg/datastore"
	"storefront/internal/service/account/domain"
)

const ownerColumn = "user_id"

// RecordEraser 通过服务端凭证实现 domain.RecordEraser。
type RecordEraser struct {
	store datastore.PrivilegedStore
}

var _ domain.RecordEraser = (*RecordEraser)(nil)

func NewRecordEraser(store datastore.PrivilegedStore) *RecordEraser {
	return &RecordEraser{store: store}
}

func (e *RecordEraser) DeleteOwned(ctx context.Context, collection, userID string) (int64, error) {
	if userID == "" {
		return 0, errors.New("empty user id")
	}
	n, err := e.store.DeleteWhere(ctx, collection, datastore.Filter{ownerColumn: userID})
	return n, errors.Wrapf(err, "delete %s", collection)
}

func (e *RecordEraser) DeleteIdentity(ctx context.Context, userID string) error {
	return errors.Wrap(e.store.DeleteIdentity(ctx, userID), "delete identity")
}
