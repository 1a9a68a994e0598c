package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"storefront/internal/pkg/datastore"
	"storefront/internal/pkg/httpclient"
)

// PrivilegedClient 使用服务端 key，绕过行级权限。这个 key 绝不能下发给客户端。
type PrivilegedClient struct {
	ep endpoint
}

var _ datastore.PrivilegedStore = (*PrivilegedClient)(nil)

// NewPrivilegedClient 创建服务端客户端。
func NewPrivilegedClient(baseURL, serviceKey string, client *httpclient.Client) (*PrivilegedClient, error) {
	ep, err := newEndpoint(baseURL, serviceKey, client)
	if err != nil {
		return nil, err
	}
	return &PrivilegedClient{ep: ep}, nil
}

func (c *PrivilegedClient) FindOne(ctx context.Context, table string, filter datastore.Filter, dest any) error {
	q := filterQuery(filter)
	q.Set("select", "*")
	q.Set("limit", "1")

	req, err := c.ep.newRequest(ctx, http.MethodGet, restPrefix+table, q, nil, "")
	if err != nil {
		return err
	}
	var rows []json.RawMessage
	if err := c.ep.do(req, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return datastore.ErrNotFound
	}
	return errors.Wrapf(json.Unmarshal(rows[0], dest), "decode %s row", table)
}

func (c *PrivilegedClient) FindAll(ctx context.Context, table string, filter datastore.Filter, orderBy string, dest any) error {
	q := filterQuery(filter)
	q.Set("select", "*")
	if orderBy != "" {
		q.Set("order", orderBy+".asc")
	}

	req, err := c.ep.newRequest(ctx, http.MethodGet, restPrefix+table, q, nil, "")
	if err != nil {
		return err
	}
	return c.ep.do(req, dest)
}

func (c *PrivilegedClient) DeleteWhere(ctx context.Context, table string, filter datastore.Filter) (int64, error) {
	if len(filter) == 0 {
		return 0, errors.Errorf("refusing unfiltered delete on %s", table)
	}
	req, err := c.ep.newRequest(ctx, http.MethodDelete, restPrefix+table, filterQuery(filter), nil, "")
	if err != nil {
		return 0, err
	}
	req.Header.Set("Prefer", "return=representation")

	var deleted []json.RawMessage
	if err := c.ep.do(req, &deleted); err != nil {
		return 0, err
	}
	return int64(len(deleted)), nil
}

func (c *PrivilegedClient) CompareAndSwap(ctx context.Context, table string, filter datastore.Filter, column string, old, new any) (bool, error) {
	guarded := make(datastore.Filter, len(filter)+1)
	for k, v := range filter {
		guarded[k] = v
	}
	guarded[column] = old

	req, err := c.ep.newRequest(ctx, http.MethodPatch, restPrefix+table, filterQuery(guarded), map[string]any{column: new}, "")
	if err != nil {
		return false, err
	}
	req.Header.Set("Prefer", "return=representation")

	var updated []json.RawMessage
	if err := c.ep.do(req, &updated); err != nil {
		return false, err
	}
	return len(updated) > 0, nil
}

func (c *PrivilegedClient) DeleteIdentity(ctx context.Context, userID string) error {
	if userID == "" || strings.ContainsAny(userID, "/?#") {
		return errors.Errorf("invalid user id %q", userID)
	}
	req, err := c.ep.newRequest(ctx, http.MethodDelete, authPrefix+"admin/users/"+userID, nil, nil, "")
	if err != nil {
		return err
	}
	if err := c.ep.do(req, nil); err != nil {
		if isStatus(err, http.StatusNotFound) {
			return datastore.ErrNotFound
		}
		return err
	}
	return nil
}
