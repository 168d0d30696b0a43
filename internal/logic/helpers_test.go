package logic

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/starkclip/crs/internal/model"
	"github.com/starkclip/crs/internal/platform"
	"github.com/starkclip/crs/internal/repository"
	"github.com/starkclip/crs/internal/treasury"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// newTestDB 内存数据库，表结构与生产迁移一致
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
		NamingStrategy: &schema.NamingStrategy{
			SingularTable: true,
		},
	})
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(db))

	return db
}

// fakeProvider 固定返回预设视频的平台客户端
type fakeProvider struct {
	videos map[string]*platform.Video
	err    error
}

func (p *fakeProvider) ResolveVideo(_ context.Context, _, videoURL string) (*platform.Video, error) {
	if p.err != nil {
		return nil, p.err
	}
	v, ok := p.videos[videoURL]
	if !ok {
		return nil, fmt.Errorf("video not found")
	}
	return v, nil
}

// fakeTreasury 测试用金库：余额可配，转账按钱包地址注入失败或超时
type fakeTreasury struct {
	mu        sync.Mutex
	balance   decimal.Decimal
	transfers []fakeTransfer
	failWith  map[string]error // 地址 -> 返回的错误
	nextTx    int
}

type fakeTransfer struct {
	To     string
	Amount decimal.Decimal
}

func newFakeTreasury(balance string) *fakeTreasury {
	return &fakeTreasury{
		balance:  decimal.RequireFromString(balance),
		failWith: make(map[string]error),
	}
}

func (f *fakeTreasury) Balance(_ context.Context) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balance, nil
}

func (f *fakeTreasury) Transfer(_ context.Context, to string, amount decimal.Decimal) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.failWith[to]; ok {
		return "", err
	}

	f.transfers = append(f.transfers, fakeTransfer{To: to, Amount: amount})
	f.balance = f.balance.Sub(amount)
	f.nextTx++
	return fmt.Sprintf("0xfaketx%04d", f.nextTx), nil
}

func (f *fakeTreasury) ConfirmTransfer(_ context.Context, _ string) (treasury.TxOutcome, error) {
	return treasury.TxOutcomeConfirmed, nil
}

func (f *fakeTreasury) transferCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.transfers)
}

// seedSubmission 直接写入一条指定状态的提交
func seedSubmission(t *testing.T, db *gorm.DB, videoId string, campaignId int64, status model.SubmissionStatus, reward string) *model.SubmissionModel {
	t.Helper()

	submission := &model.SubmissionModel{
		VideoId:       videoId,
		VideoURL:      "https://www.tiktok.com/@creator/video/" + videoId,
		Username:      "creator",
		WalletAddress: "0x" + videoId,
		ViewCount:     5000,
		LikeCount:     300,
		Status:        status,
		CampaignId:    campaignId,
		CampaignName:  "test",
		RewardAmount:  decimal.RequireFromString(reward),
	}
	require.NoError(t, db.Create(submission).Error)
	return submission
}

// seedCampaign 直接写入一条活动
func seedCampaign(t *testing.T, db *gorm.DB, name string, active bool) *model.CampaignModel {
	t.Helper()

	logic := NewCampaignLogic(db)
	campaign, err := logic.CreateCampaign(CampaignSpec{
		Name:         name,
		MinViews:     1000,
		MinLikes:     50,
		RewardAmount: "10",
		MaxWinners:   50,
		IsActive:     active,
	})
	require.NoError(t, err)
	return campaign
}
