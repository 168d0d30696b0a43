package logic

import (
	"github.com/starkclip/crs/internal/errs"
	"github.com/starkclip/crs/internal/model"
)

// Metrics 提交时观测到的视频指标快照
type Metrics struct {
	Views    int64
	Likes    int64
	Comments int64
	Shares   int64
}

// Evaluate 达标判定，纯函数，无副作用。
// 四项指标需同时满足各自阈值（>=），阈值为 0 时该项恒通过。
// 结构非法的输入（负数指标、缺失活动）返回校验错误，与"未达标"区分。
func Evaluate(m Metrics, campaign *model.CampaignModel) (bool, error) {
	if campaign == nil {
		return false, errs.Validation("campaign is required")
	}
	if m.Views < 0 || m.Likes < 0 || m.Comments < 0 || m.Shares < 0 {
		return false, errs.Validation("metric counts must be non-negative")
	}

	eligible := m.Views >= campaign.MinViews &&
		m.Likes >= campaign.MinLikes &&
		m.Comments >= campaign.MinComments &&
		m.Shares >= campaign.MinShares

	return eligible, nil
}
