package rest

import (
	"context"
	"net/http"

	"github.com/pkg/errors"

	"storefront/internal/pkg/datastore"
	"storefront/internal/pkg/httpclient"
)

// ScopedClient 使用公开 key，只能代表出示 token 的那个用户。
type ScopedClient struct {
	ep endpoint
}

var _ datastore.ScopedStore = (*ScopedClient)(nil)

// NewScopedClient 创建用户级客户端。anonKey 是可以下发给浏览器的公开 key。
func NewScopedClient(baseURL, anonKey string, client *httpclient.Client) (*ScopedClient, error) {
	ep, err := newEndpoint(baseURL, anonKey, client)
	if err != nil {
		return nil, err
	}
	return &ScopedClient{ep: ep}, nil
}

// ResolveIdentity 调用 /auth/v1/user，平台拒绝 token 时返回 datastore.ErrUnauthorized。
func (c *ScopedClient) ResolveIdentity(ctx context.Context, accessToken string) (*datastore.Identity, error) {
	if accessToken == "" {
		return nil, datastore.ErrUnauthorized
	}
	req, err := c.ep.newRequest(ctx, http.MethodGet, authPrefix+"user", nil, nil, accessToken)
	if err != nil {
		return nil, err
	}

	var identity datastore.Identity
	if err := c.ep.do(req, &identity); err != nil {
		if isStatus(err, http.StatusUnauthorized) || isStatus(err, http.StatusForbidden) || isStatus(err, http.StatusNotFound) {
			return nil, datastore.ErrUnauthorized
		}
		return nil, err
	}
	if identity.ID == "" {
		return nil, errors.Wrap(datastore.ErrUnauthorized, "platform returned identity without id")
	}
	return &identity, nil
}
