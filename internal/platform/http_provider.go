package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/starkclip/crs/internal/config"
	"github.com/starkclip/crs/internal/errs"
)

// HTTPProvider 通过会话服务的 HTTP 接口解析视频指标
type HTTPProvider struct {
	baseURL string
	client  *http.Client
}

// NewHTTPProvider 创建 HTTP 视频平台客户端
func NewHTTPProvider(cfg config.PlatformConfig) *HTTPProvider {
	return &HTTPProvider{
		baseURL: strings.TrimRight(cfg.BaseUrl, "/"),
		client: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
	}
}

// ResolveVideo 用会话拉取用户视频列表，按 URL 匹配出目标视频。
// 会话服务分页返回，游标翻页直到命中或列表结束
func (p *HTTPProvider) ResolveVideo(ctx context.Context, sessionId, videoURL string) (*Video, error) {
	if sessionId == "" {
		return nil, errs.Validation("sessionId is required")
	}

	cursor := ""
	for {
		page, err := p.fetchVideos(ctx, sessionId, cursor)
		if err != nil {
			return nil, err
		}

		for i := range page.Videos {
			if matchVideoURL(page.Videos[i].ShareURL, videoURL) {
				v := page.Videos[i]
				v.Username = page.Username
				return &v, nil
			}
		}

		if !page.HasMore || page.Cursor == "" {
			return nil, fmt.Errorf("%w: video not found in creator's account", errs.ErrNotFound)
		}
		cursor = page.Cursor
	}
}

type videoPage struct {
	Videos   []Video `json:"videos"`
	Username string  `json:"username"`
	Cursor   string  `json:"cursor"`
	HasMore  bool    `json:"hasMore"`
}

func (p *HTTPProvider) fetchVideos(ctx context.Context, sessionId, cursor string) (*videoPage, error) {
	endpoint := fmt.Sprintf("%s/auth/videos/%s", p.baseURL, url.PathEscape(sessionId))
	if cursor != "" {
		endpoint += "?cursor=" + url.QueryEscape(cursor)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build platform request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("platform request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusNotFound:
		return nil, fmt.Errorf("%w: session is invalid or expired", errs.ErrValidation)
	default:
		return nil, fmt.Errorf("platform returned status %d", resp.StatusCode)
	}

	var page videoPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode platform response: %w", err)
	}

	return &page, nil
}

// matchVideoURL 比较分享链接是否指向同一视频，忽略查询参数与末尾斜杠
func matchVideoURL(a, b string) bool {
	norm := func(s string) string {
		if u, err := url.Parse(strings.TrimSpace(s)); err == nil {
			u.RawQuery = ""
			u.Fragment = ""
			return strings.TrimRight(u.Host+u.Path, "/")
		}
		return strings.TrimRight(strings.TrimSpace(s), "/")
	}
	return norm(a) != "" && norm(a) == norm(b)
}
