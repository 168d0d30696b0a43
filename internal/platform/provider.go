package platform

import "context"

// Video 平台侧返回的视频信息与指标
type Video struct {
	Id       string `json:"id"`
	Title    string `json:"title"`
	ShareURL string `json:"shareUrl"`
	Username string `json:"username"`
	Stats    Stats  `json:"stats"`
}

// Stats 视频指标
type Stats struct {
	Views    int64 `json:"views"`
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
	Shares   int64 `json:"shares"`
}

// VideoProvider 视频平台协作方。登录、会话、视频列表都由外部服务负责，
// 本服务只凭 sessionId 换取指定视频在此刻的指标快照，返回的数据视为已验证事实
type VideoProvider interface {
	ResolveVideo(ctx context.Context, sessionId, videoURL string) (*Video, error)
}
