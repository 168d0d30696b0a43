package logic

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/starkclip/crs/internal/errs"
	"github.com/starkclip/crs/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPayoutFixture(t *testing.T, balance string) (*PayoutLogic, *SubmissionLogic, *fakeTreasury, int64) {
	t.Helper()

	db := newTestDB(t)
	campaign := seedCampaign(t, db, "launch", true)
	submissionLogic := NewSubmissionLogic(db, &fakeProvider{})
	treasury := newFakeTreasury(balance)
	payoutLogic := NewPayoutLogic(db, submissionLogic, treasury, 5*time.Second)

	return payoutLogic, submissionLogic, treasury, campaign.Id
}

func itemById(t *testing.T, results []PayoutItemResult, id int64) PayoutItemResult {
	t.Helper()
	for _, r := range results {
		if r.Id == id {
			return r
		}
	}
	t.Fatalf("no result for submission %d", id)
	return PayoutItemResult{}
}

func TestExecutePayoutHappyPath(t *testing.T) {
	payoutLogic, submissionLogic, treasury, campaignId := newPayoutFixture(t, "100")
	db := payoutLogic.db

	eligible := seedSubmission(t, db, "v1", campaignId, model.SubmissionStatusEligible, "10")
	winner := seedSubmission(t, db, "v2", campaignId, model.SubmissionStatusWinner, "15")

	result, err := payoutLogic.Execute(context.Background(), []int64{eligible.Id, winner.Id})
	require.NoError(t, err)
	require.NotEmpty(t, result.RunId)
	assert.Equal(t, "25", result.Total)
	assert.Equal(t, 2, treasury.transferCount())

	for _, id := range []int64{eligible.Id, winner.Id} {
		item := itemById(t, result.Results, id)
		assert.Equal(t, PayoutItemPaid, item.Status)
		assert.NotEmpty(t, item.TxHash)

		sub, err := submissionLogic.GetSubmission(id)
		require.NoError(t, err)
		assert.Equal(t, model.SubmissionStatusPaid, sub.Status)
		require.NotNil(t, sub.TxHash)
		assert.Equal(t, item.TxHash, *sub.TxHash)
		// 已广播但未确认，确认交给对账任务
		assert.Equal(t, model.TxStateUnresolved, sub.TxState)
	}
}

func TestExecutePayoutInsufficientBalance(t *testing.T) {
	payoutLogic, submissionLogic, treasury, campaignId := newPayoutFixture(t, "5")
	db := payoutLogic.db

	s1 := seedSubmission(t, db, "v1", campaignId, model.SubmissionStatusEligible, "10")
	s2 := seedSubmission(t, db, "v2", campaignId, model.SubmissionStatusWinner, "15")

	// 总额 25 > 余额 5，整批中止，零转账
	_, err := payoutLogic.Execute(context.Background(), []int64{s1.Id, s2.Id})
	require.ErrorIs(t, err, errs.ErrInsufficientBalance)
	assert.Equal(t, 0, treasury.transferCount())

	for _, id := range []int64{s1.Id, s2.Id} {
		sub, err := submissionLogic.GetSubmission(id)
		require.NoError(t, err)
		assert.NotEqual(t, model.SubmissionStatusPaid, sub.Status)
	}
}

func TestExecutePayoutIdempotent(t *testing.T) {
	payoutLogic, _, treasury, campaignId := newPayoutFixture(t, "100")
	db := payoutLogic.db

	sub := seedSubmission(t, db, "v1", campaignId, model.SubmissionStatusEligible, "10")

	first, err := payoutLogic.Execute(context.Background(), []int64{sub.Id})
	require.NoError(t, err)
	assert.Equal(t, PayoutItemPaid, itemById(t, first.Results, sub.Id).Status)
	assert.Equal(t, 1, treasury.transferCount())

	// 第二次执行同一批次：跳过，零新增转账
	second, err := payoutLogic.Execute(context.Background(), []int64{sub.Id})
	require.NoError(t, err)
	item := itemById(t, second.Results, sub.Id)
	assert.Equal(t, PayoutItemSkipped, item.Status)
	assert.Equal(t, "already paid", item.Reason)
	assert.Equal(t, 1, treasury.transferCount())
}

func TestExecutePayoutSkipsUnpayableStatuses(t *testing.T) {
	payoutLogic, _, treasury, campaignId := newPayoutFixture(t, "100")
	db := payoutLogic.db

	rejected := seedSubmission(t, db, "v1", campaignId, model.SubmissionStatusRejected, "10")
	pending := seedSubmission(t, db, "v2", campaignId, model.SubmissionStatusPending, "10")
	eligible := seedSubmission(t, db, "v3", campaignId, model.SubmissionStatusEligible, "10")

	result, err := payoutLogic.Execute(context.Background(), []int64{rejected.Id, pending.Id, eligible.Id, 99999})
	require.NoError(t, err)

	assert.Equal(t, PayoutItemSkipped, itemById(t, result.Results, rejected.Id).Status)
	assert.Equal(t, PayoutItemSkipped, itemById(t, result.Results, pending.Id).Status)
	assert.Equal(t, PayoutItemSkipped, itemById(t, result.Results, 99999).Status)
	assert.Equal(t, PayoutItemPaid, itemById(t, result.Results, eligible.Id).Status)
	assert.Equal(t, 1, treasury.transferCount())
}

func TestExecutePayoutPartialFailure(t *testing.T) {
	payoutLogic, submissionLogic, treasury, campaignId := newPayoutFixture(t, "100")
	db := payoutLogic.db

	ok := seedSubmission(t, db, "v1", campaignId, model.SubmissionStatusWinner, "10")
	bad := seedSubmission(t, db, "v2", campaignId, model.SubmissionStatusWinner, "10")
	treasury.failWith[bad.WalletAddress] = errors.New("rpc: rejected")

	result, err := payoutLogic.Execute(context.Background(), []int64{ok.Id, bad.Id})
	require.NoError(t, err)

	// 成功的一笔不受失败影响
	assert.Equal(t, PayoutItemPaid, itemById(t, result.Results, ok.Id).Status)
	okSub, err := submissionLogic.GetSubmission(ok.Id)
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionStatusPaid, okSub.Status)

	// 失败的一笔保持原状态，可重试
	badItem := itemById(t, result.Results, bad.Id)
	assert.Equal(t, PayoutItemFailed, badItem.Status)
	assert.Contains(t, badItem.Reason, errs.ErrPayoutTransfer.Error())
	badSub, err := submissionLogic.GetSubmission(bad.Id)
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionStatusWinner, badSub.Status)
	assert.Nil(t, badSub.TxHash)
}

func TestExecutePayoutTimeoutThenRetry(t *testing.T) {
	payoutLogic, submissionLogic, treasury, campaignId := newPayoutFixture(t, "100")
	db := payoutLogic.db

	a := seedSubmission(t, db, "v1", campaignId, model.SubmissionStatusWinner, "10")
	b := seedSubmission(t, db, "v2", campaignId, model.SubmissionStatusWinner, "10")
	treasury.failWith[b.WalletAddress] = context.DeadlineExceeded

	result, err := payoutLogic.Execute(context.Background(), []int64{a.Id, b.Id})
	require.NoError(t, err)

	aItem := itemById(t, result.Results, a.Id)
	assert.Equal(t, PayoutItemPaid, aItem.Status)
	assert.NotEmpty(t, aItem.TxHash)

	// 超时是结果未知：B 保持未付并带超时原因
	bItem := itemById(t, result.Results, b.Id)
	assert.Equal(t, PayoutItemFailed, bItem.Status)
	assert.Equal(t, errs.ErrTimeout.Error(), bItem.Reason)
	bSub, err := submissionLogic.GetSubmission(b.Id)
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionStatusWinner, bSub.Status)

	// 再次执行只会尝试 B
	delete(treasury.failWith, b.WalletAddress)
	retry, err := payoutLogic.Execute(context.Background(), []int64{a.Id, b.Id})
	require.NoError(t, err)
	assert.Equal(t, PayoutItemSkipped, itemById(t, retry.Results, a.Id).Status)
	assert.Equal(t, PayoutItemPaid, itemById(t, retry.Results, b.Id).Status)
	assert.Equal(t, 2, treasury.transferCount())
}

func TestSimulateIsSideEffectFree(t *testing.T) {
	payoutLogic, submissionLogic, treasury, campaignId := newPayoutFixture(t, "100")
	db := payoutLogic.db

	sub := seedSubmission(t, db, "v1", campaignId, model.SubmissionStatusEligible, "10")

	result, err := payoutLogic.Simulate(context.Background(), []int64{sub.Id})
	require.NoError(t, err)
	assert.True(t, result.Simulated)
	assert.Equal(t, "10", result.Total)
	assert.Equal(t, 0, treasury.transferCount())

	current, err := submissionLogic.GetSubmission(sub.Id)
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionStatusEligible, current.Status)

	// 模拟可重复执行，结果一致
	again, err := payoutLogic.Simulate(context.Background(), []int64{sub.Id})
	require.NoError(t, err)
	assert.Equal(t, result.Total, again.Total)
	assert.Equal(t, 0, treasury.transferCount())
}

func TestSimulateInsufficientBalance(t *testing.T) {
	payoutLogic, _, treasury, campaignId := newPayoutFixture(t, "5")
	db := payoutLogic.db

	sub := seedSubmission(t, db, "v1", campaignId, model.SubmissionStatusEligible, "10")

	result, err := payoutLogic.Simulate(context.Background(), []int64{sub.Id})
	require.ErrorIs(t, err, errs.ErrInsufficientBalance)
	require.NotNil(t, result)
	assert.Equal(t, "5", result.Balance)
	assert.Equal(t, "10", result.Total)
	assert.Equal(t, 0, treasury.transferCount())
}

func TestPayoutReconciliation(t *testing.T) {
	payoutLogic, submissionLogic, _, campaignId := newPayoutFixture(t, "100")
	db := payoutLogic.db

	sub := seedSubmission(t, db, "v1", campaignId, model.SubmissionStatusWinner, "10")

	result, err := payoutLogic.Execute(context.Background(), []int64{sub.Id})
	require.NoError(t, err)
	txHash := itemById(t, result.Results, sub.Id).TxHash

	unresolved, err := submissionLogic.GetUnresolvedPaid()
	require.NoError(t, err)
	require.Len(t, unresolved, 1)

	// 链上确认后标记 confirmed
	require.NoError(t, submissionLogic.ConfirmPaid(sub.Id, txHash))
	confirmed, err := submissionLogic.GetSubmission(sub.Id)
	require.NoError(t, err)
	assert.Equal(t, model.TxStateConfirmed, confirmed.TxState)

	// 已确认的记录不再出现在对账列表，重复确认报冲突
	unresolved, err = submissionLogic.GetUnresolvedPaid()
	require.NoError(t, err)
	assert.Empty(t, unresolved)
	require.ErrorIs(t, submissionLogic.ConfirmPaid(sub.Id, txHash), errs.ErrConflict)
}

func TestPayoutRevertOnChainFailure(t *testing.T) {
	payoutLogic, submissionLogic, treasury, campaignId := newPayoutFixture(t, "100")
	db := payoutLogic.db

	sub := seedSubmission(t, db, "v1", campaignId, model.SubmissionStatusWinner, "10")

	result, err := payoutLogic.Execute(context.Background(), []int64{sub.Id})
	require.NoError(t, err)
	txHash := itemById(t, result.Results, sub.Id).TxHash

	// 交易在链上 revert：支付标记撤销，记录退回 winner 可重新发放
	require.NoError(t, submissionLogic.RevertPaid(sub.Id, txHash))
	reverted, err := submissionLogic.GetSubmission(sub.Id)
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionStatusWinner, reverted.Status)
	assert.Nil(t, reverted.TxHash)

	retry, err := payoutLogic.Execute(context.Background(), []int64{sub.Id})
	require.NoError(t, err)
	assert.Equal(t, PayoutItemPaid, itemById(t, retry.Results, sub.Id).Status)
	assert.Equal(t, 2, treasury.transferCount())
}
