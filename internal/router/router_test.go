package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/starkclip/crs/internal/config"
	"github.com/starkclip/crs/internal/logic"
	"github.com/starkclip/crs/internal/model"
	"github.com/starkclip/crs/internal/platform"
	"github.com/starkclip/crs/internal/repository"
	"github.com/starkclip/crs/internal/treasury"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

const testAdminPassword = "letmein"

type stubProvider struct {
	video *platform.Video
}

func (p *stubProvider) ResolveVideo(_ context.Context, _, _ string) (*platform.Video, error) {
	return p.video, nil
}

type stubTreasury struct {
	balance decimal.Decimal
	nextTx  int
}

func (s *stubTreasury) Balance(_ context.Context) (decimal.Decimal, error) {
	return s.balance, nil
}

func (s *stubTreasury) Transfer(_ context.Context, _ string, amount decimal.Decimal) (string, error) {
	s.balance = s.balance.Sub(amount)
	s.nextTx++
	return fmt.Sprintf("0xstub%04d", s.nextTx), nil
}

func (s *stubTreasury) ConfirmTransfer(_ context.Context, _ string) (treasury.TxOutcome, error) {
	return treasury.TxOutcomeConfirmed, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
		NamingStrategy: &schema.NamingStrategy{SingularTable: true},
	})
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(db))

	provider := &stubProvider{video: &platform.Video{
		Id:       "v1",
		Username: "creator",
		Stats:    platform.Stats{Views: 5000, Likes: 300},
	}}

	submissionLogic := logic.NewSubmissionLogic(db, provider)
	payoutLogic := logic.NewPayoutLogic(db, submissionLogic, &stubTreasury{
		balance: decimal.RequireFromString("100"),
	}, 5*time.Second)

	cfg := &config.Config{}
	cfg.Admin.Password = testAdminPassword

	return Setup(db, provider, payoutLogic, cfg), db
}

func doJSON(r *gin.Engine, method, path string, body interface{}, admin bool) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.Header.Set("x-admin-password", testAdminPassword)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func seedActiveCampaign(t *testing.T, db *gorm.DB) *model.CampaignModel {
	t.Helper()
	campaign, err := logic.NewCampaignLogic(db).CreateCampaign(logic.CampaignSpec{
		Name:         "launch",
		MinViews:     1000,
		MinLikes:     50,
		RewardAmount: "10",
		MaxWinners:   50,
		IsActive:     true,
	})
	require.NoError(t, err)
	return campaign
}

func TestAdminRoutesRequirePassword(t *testing.T) {
	r, _ := newTestRouter(t)

	for _, route := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/campaigns"},
		{http.MethodGet, "/submissions"},
		{http.MethodGet, "/submissions/stats"},
		{http.MethodGet, "/admin/payout/balance"},
	} {
		w := doJSON(r, route.method, route.path, nil, false)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", route.method, route.path)
	}
}

func TestActiveCampaignEndpoint(t *testing.T) {
	r, db := newTestRouter(t)

	// 没有激活活动时 404
	w := doJSON(r, http.MethodGet, "/campaigns/active", nil, false)
	assert.Equal(t, http.StatusNotFound, w.Code)

	seedActiveCampaign(t, db)
	w = doJSON(r, http.MethodGet, "/campaigns/active", nil, false)
	require.Equal(t, http.StatusOK, w.Code)

	var campaign model.CampaignModel
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &campaign))
	assert.Equal(t, "launch", campaign.Name)
}

func TestSubmissionIntakeOverHTTP(t *testing.T) {
	r, db := newTestRouter(t)
	seedActiveCampaign(t, db)

	body := map[string]interface{}{
		"sessionId":     "sess",
		"videoUrl":      "https://www.tiktok.com/@creator/video/v1",
		"walletAddress": "0xabc",
	}

	w := doJSON(r, http.MethodPost, "/submissions", body, false)
	require.Equal(t, http.StatusCreated, w.Code)

	var result logic.IntakeResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.Eligible)
	require.NotNil(t, result.Submission)
	assert.Equal(t, model.SubmissionStatusEligible, result.Submission.Status)

	// 重复提交同一视频返回 409
	w = doJSON(r, http.MethodPost, "/submissions", body, false)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPayoutFlowOverHTTP(t *testing.T) {
	r, db := newTestRouter(t)
	seedActiveCampaign(t, db)

	// 走完整的提交 -> 选中 -> 模拟 -> 发放链路
	submit := map[string]interface{}{
		"sessionId":     "sess",
		"videoUrl":      "https://www.tiktok.com/@creator/video/v1",
		"walletAddress": "0xabc",
	}
	w := doJSON(r, http.MethodPost, "/submissions", submit, false)
	require.Equal(t, http.StatusCreated, w.Code)

	var intake logic.IntakeResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &intake))
	id := intake.Submission.Id

	w = doJSON(r, http.MethodPost, "/submissions/batch-status", map[string]interface{}{
		"ids": []int64{id}, "status": "winner",
	}, true)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, "/admin/payout/balance", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "100")

	w = doJSON(r, http.MethodPost, "/admin/payout/simulate", map[string]interface{}{
		"submissionIds": []int64{id},
	}, true)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodPost, "/admin/payout", map[string]interface{}{
		"submissionIds": []int64{id},
	}, true)
	require.Equal(t, http.StatusOK, w.Code)

	var payout logic.PayoutResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payout))
	require.Len(t, payout.Results, 1)
	assert.Equal(t, logic.PayoutItemPaid, payout.Results[0].Status)
	assert.NotEmpty(t, payout.Results[0].TxHash)

	// 状态统计反映支付完成
	w = doJSON(r, http.MethodGet, "/submissions/stats", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	var stats logic.SubmissionStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.Paid)
}
