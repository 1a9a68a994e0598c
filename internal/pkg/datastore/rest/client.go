// Package rest 通过托管平台的 HTTP 接口实现 datastore 的两种能力：
// 行数据走 /rest/v1/<table>（PostgREST 风格过滤），身份走 /auth/v1。
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"storefront/internal/pkg/datastore"
	"storefront/internal/pkg/httpclient"
)

const (
	restPrefix = "/rest/v1/"
	authPrefix = "/auth/v1/"

	// 错误响应体只截取前面一段用于日志
	maxErrorBody = 512
)

// StatusError 描述平台返回的非 2xx 响应。
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("platform %s %s returned %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// endpoint 是两种客户端共用的请求构造逻辑，key 决定了请求的权限级别。
type endpoint struct {
	baseURL *url.URL
	apiKey  string
	client  *httpclient.Client
}

func newEndpoint(baseURL, apiKey string, client *httpclient.Client) (endpoint, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return endpoint{}, errors.Wrap(err, "parse platform url")
	}
	if u.Scheme == "" || u.Host == "" {
		return endpoint{}, errors.Errorf("platform url %q must be absolute", baseURL)
	}
	if apiKey == "" {
		return endpoint{}, errors.New("platform api key is empty")
	}
	return endpoint{baseURL: u, apiKey: apiKey, client: client}, nil
}

// newRequest 构造请求。bearer 为空时使用 apiKey 本身作为 bearer。
func (e endpoint) newRequest(ctx context.Context, method, path string, query url.Values, body any, bearer string) (*http.Request, error) {
	u := *e.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "encode request body")
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, errors.Wrap(err, "build platform request")
	}
	if bearer == "" {
		bearer = e.apiKey
	}
	req.Header.Set("apikey", e.apiKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// do 执行请求，2xx 时把响应体解码进 out（out 为 nil 时丢弃），否则返回 *StatusError。
func (e endpoint) do(req *http.Request, out any) error {
	resp, err := e.client.Do(req.Context(), req)
	if err != nil {
		return errors.Wrapf(err, "platform %s %s", req.Method, req.URL.Path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Method: req.Method,
			Path:   req.URL.Path,
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(snippet)),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decode platform response for %s", req.URL.Path)
	}
	return nil
}

// filterQuery 把 Filter 编码成 PostgREST 的 col=eq.value 形式，列名排序保证 URL 稳定。
func filterQuery(filter datastore.Filter) url.Values {
	q := url.Values{}
	cols := make([]string, 0, len(filter))
	for col := range filter {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	for _, col := range cols {
		v := filter[col]
		if v == nil {
			q.Set(col, "is.null")
			continue
		}
		q.Set(col, "eq."+formatValue(v))
	}
	return q
}

func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func isStatus(err error, status int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == status
}
