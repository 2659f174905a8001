package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Fetcher HTTP JSON 数据源
type Fetcher interface {
	// GetJSON 请求 url；状态码为 200 时把响应体解码到 out，其它状态码只返回状态码
	GetJSON(ctx context.Context, url string, out any) (int, error)
}

// HTTPFetcher 基于 net/http 的 Fetcher
type HTTPFetcher struct {
	name   string
	client *http.Client
}

// NewHTTPFetcher 创建 HTTP 数据源
func NewHTTPFetcher(name string, timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{name: name, client: &http.Client{Timeout: timeout}}
}

func (f *HTTPFetcher) GetJSON(ctx context.Context, url string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, upstream(f.name, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, upstream(f.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, upstream(f.name, fmt.Errorf("decode %s: %w", url, err))
	}
	return resp.StatusCode, nil
}
