package treasury

import (
	"context"

	"github.com/shopspring/decimal"
)

// TxOutcome 链上回执的查询结果
type TxOutcome int

const (
	TxOutcomeUnknown TxOutcome = iota // 回执尚不可见
	TxOutcomeConfirmed
	TxOutcomeFailed // 链上回执为失败（revert）
)

// Treasury 金库签名账户。余额查询与代币转账是本服务唯一会动钱的出口，
// 测试中以假实现替换
type Treasury interface {
	// Balance 查询金库当前可用的奖励代币余额
	Balance(ctx context.Context) (decimal.Decimal, error)

	// Transfer 向指定地址发起一笔代币转账，返回交易哈希。
	// 超时导致的"结果未知"由调用方根据 ctx 错误区分处理
	Transfer(ctx context.Context, to string, amount decimal.Decimal) (string, error)

	// ConfirmTransfer 查询转账是否已达到确认区块数
	ConfirmTransfer(ctx context.Context, txHash string) (TxOutcome, error)
}
