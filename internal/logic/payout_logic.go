package logic

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/starkclip/crs/internal/errs"
	"github.com/starkclip/crs/internal/logger"
	"github.com/starkclip/crs/internal/model"
	"github.com/starkclip/crs/internal/treasury"
	"gorm.io/gorm"
)

// PayoutLogic 奖励发放编排。奖励转账不可逆，这里是全服务唯一动钱的路径：
// 余额预检 -> 模拟或执行 -> 逐笔转账并 CAS 置为 paid。
// 单金库签名账户，mu 串行化整个执行过程，余额检查因此始终基于一致快照
type PayoutLogic struct {
	db              *gorm.DB
	submissionLogic *SubmissionLogic
	treasury        treasury.Treasury
	transferTimeout time.Duration
	mu              sync.Mutex
}

// NewPayoutLogic 创建发放业务逻辑
func NewPayoutLogic(db *gorm.DB, submissionLogic *SubmissionLogic, t treasury.Treasury, transferTimeout time.Duration) *PayoutLogic {
	if transferTimeout <= 0 {
		transferTimeout = 30 * time.Second
	}
	return &PayoutLogic{
		db:              db,
		submissionLogic: submissionLogic,
		treasury:        t,
		transferTimeout: transferTimeout,
	}
}

// 单条发放结果状态
const (
	PayoutItemPaid    = "paid"
	PayoutItemSkipped = "skipped"
	PayoutItemFailed  = "failed"
)

// PayoutItemResult 单条提交的发放结果
type PayoutItemResult struct {
	Id     int64  `json:"id"`
	Status string `json:"status"`
	TxHash string `json:"tx_hash,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// PayoutResult 一次发放批次的结果，批次本身不落库，
// 结果落回各条提交记录后即丢弃
type PayoutResult struct {
	RunId     string             `json:"run_id"`
	Simulated bool               `json:"simulated"`
	Balance   string             `json:"balance"`
	Total     string             `json:"total"`
	Message   string             `json:"message"`
	Results   []PayoutItemResult `json:"results"`
}

// Balance 查询金库余额
func (l *PayoutLogic) Balance(ctx context.Context) (decimal.Decimal, error) {
	return l.treasury.Balance(ctx)
}

// Simulate 模拟发放：只做过滤与余额预检，返回将会发生的结果，零转账、无副作用
func (l *PayoutLogic) Simulate(ctx context.Context, ids []int64) (*PayoutResult, error) {
	return l.run(ctx, ids, true)
}

// Execute 执行发放
func (l *PayoutLogic) Execute(ctx context.Context, ids []int64) (*PayoutResult, error) {
	return l.run(ctx, ids, false)
}

func (l *PayoutLogic) run(ctx context.Context, ids []int64, simulate bool) (*PayoutResult, error) {
	if len(ids) == 0 {
		return nil, errs.Validation("submissionIds must not be empty")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	runId := uuid.NewString()
	result := &PayoutResult{
		RunId:     runId,
		Simulated: simulate,
		Results:   make([]PayoutItemResult, 0, len(ids)),
	}

	// 1. 过滤：只有 eligible/winner 可发放，已 paid 的跳过保证幂等，其余状态一律跳过
	payable := make([]model.SubmissionModel, 0, len(ids))
	for _, id := range ids {
		submission, err := l.submissionLogic.GetSubmission(id)
		if err != nil {
			result.Results = append(result.Results, PayoutItemResult{
				Id: id, Status: PayoutItemSkipped, Reason: err.Error(),
			})
			continue
		}

		switch submission.Status {
		case model.SubmissionStatusEligible, model.SubmissionStatusWinner:
			payable = append(payable, *submission)
		case model.SubmissionStatusPaid:
			txHash := ""
			if submission.TxHash != nil {
				txHash = *submission.TxHash
			}
			result.Results = append(result.Results, PayoutItemResult{
				Id: id, Status: PayoutItemSkipped, TxHash: txHash, Reason: "already paid",
			})
		default:
			result.Results = append(result.Results, PayoutItemResult{
				Id: id, Status: PayoutItemSkipped,
				Reason: fmt.Sprintf("status %s is not payable", submission.Status),
			})
		}
	}

	// 2. 余额预检：总额不足则整批拒绝，避免打空金库后留下一半未付
	total := decimal.Zero
	for i := range payable {
		total = total.Add(payable[i].RewardAmount)
	}
	result.Total = total.String()

	balance, err := l.treasury.Balance(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch treasury balance: %w", err)
	}
	result.Balance = balance.String()

	if len(payable) > 0 && balance.LessThan(total) {
		logger.Warn("Payout run %s aborted: balance %s < required %s", runId, balance, total)
		return result, fmt.Errorf("%w: balance %s, required %s",
			errs.ErrInsufficientBalance, balance.String(), total.String())
	}

	if simulate {
		for i := range payable {
			result.Results = append(result.Results, PayoutItemResult{
				Id: payable[i].Id, Status: PayoutItemPaid, Reason: "would pay (dry run)",
			})
		}
		result.Message = fmt.Sprintf("Dry run: %d submission(s) would be paid, total %s",
			len(payable), total.String())
		return result, nil
	}

	// 3. 逐笔执行。单笔失败不影响其余，已完成的转账不受后续失败影响
	paid := 0
	for i := range payable {
		submission := &payable[i]

		// 批次取消只跳过未开始的转账，已广播的交易无法撤回
		if ctx.Err() != nil {
			result.Results = append(result.Results, PayoutItemResult{
				Id: submission.Id, Status: PayoutItemSkipped, Reason: "batch cancelled",
			})
			continue
		}

		item := l.payOne(ctx, submission)
		if item.Status == PayoutItemPaid {
			paid++
		}
		result.Results = append(result.Results, item)
	}

	result.Message = fmt.Sprintf("Paid %d of %d submission(s)", paid, len(payable))
	logger.Info("Payout run %s finished: %s", runId, result.Message)

	return result, nil
}

// payOne 发放单条提交：转账成功后以转账前状态为 CAS 预期置为 paid，
// 并发的管理操作无法覆盖一条刚完成支付的记录
func (l *PayoutLogic) payOne(ctx context.Context, submission *model.SubmissionModel) PayoutItemResult {
	transferCtx, cancel := context.WithTimeout(ctx, l.transferTimeout)
	defer cancel()

	txHash, err := l.treasury.Transfer(transferCtx, submission.WalletAddress, submission.RewardAmount)
	if err != nil {
		// 超时是"结果未知"而不是失败，记录保持未付，留待人工对账
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(transferCtx.Err(), context.DeadlineExceeded) {
			logger.Error("Transfer for submission %d timed out, outcome unknown", submission.Id)
			return PayoutItemResult{
				Id: submission.Id, Status: PayoutItemFailed,
				Reason: errs.ErrTimeout.Error(),
			}
		}
		logger.Error("Transfer for submission %d failed: %v", submission.Id, err)
		return PayoutItemResult{
			Id: submission.Id, Status: PayoutItemFailed,
			Reason: fmt.Sprintf("%s: %v", errs.ErrPayoutTransfer.Error(), err),
		}
	}

	// 已广播但未确认，确认状态交给后台对账任务跟进
	if _, err := l.submissionLogic.TransitionPaid(submission.Id, submission.Status, txHash, model.TxStateUnresolved); err != nil {
		// 钱已经出去了，状态却写不进去，这必须大声留痕
		logger.Error("Transfer for submission %d succeeded (tx %s) but status update failed: %v",
			submission.Id, txHash, err)
		return PayoutItemResult{
			Id: submission.Id, Status: PayoutItemFailed, TxHash: txHash,
			Reason: fmt.Sprintf("transferred but status update failed: %v", err),
		}
	}

	return PayoutItemResult{Id: submission.Id, Status: PayoutItemPaid, TxHash: txHash}
}
