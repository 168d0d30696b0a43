package treasury

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"github.com/starkclip/crs/internal/config"
	"github.com/starkclip/crs/internal/logger"
)

// 奖励代币ABI（ERC-20 转账与余额查询部分）
const erc20ABI = `[
	{
		"constant": true,
		"inputs": [{"name": "owner", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "to", "type": "address"},
			{"name": "value", "type": "uint256"}
		],
		"name": "transfer",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	}
]`

// ERC20Treasury 基于单个签名私钥的 ERC-20 代币金库
type ERC20Treasury struct {
	client        *ethclient.Client
	privateKey    *ecdsa.PrivateKey
	chainId       *big.Int
	tokenAddr     common.Address
	tokenABI      abi.ABI
	decimals      int32
	confirmations int
}

// Init 初始化金库客户端
func Init(cfg config.TreasuryConfig) (*ERC20Treasury, error) {
	client, err := ethclient.Dial(cfg.RpcUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rpc node: %w", err)
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse treasury private key: %w", err)
	}

	if !common.IsHexAddress(cfg.TokenAddress) {
		return nil, fmt.Errorf("invalid token address: %s", cfg.TokenAddress)
	}

	parsedABI, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token ABI: %w", err)
	}

	t := &ERC20Treasury{
		client:        client,
		privateKey:    privateKey,
		chainId:       big.NewInt(cfg.ChainId),
		tokenAddr:     common.HexToAddress(cfg.TokenAddress),
		tokenABI:      parsedABI,
		decimals:      cfg.TokenDecimals,
		confirmations: cfg.Confirmations,
	}

	logger.Info("Treasury initialized, signer: %s, token: %s",
		t.SignerAddress().Hex(), t.tokenAddr.Hex())

	return t, nil
}

// SignerAddress 金库签名账户地址
func (t *ERC20Treasury) SignerAddress() common.Address {
	return crypto.PubkeyToAddress(t.privateKey.PublicKey)
}

// Balance 查询金库的代币余额
func (t *ERC20Treasury) Balance(ctx context.Context) (decimal.Decimal, error) {
	data, err := t.tokenABI.Pack("balanceOf", t.SignerAddress())
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to pack balanceOf call: %w", err)
	}

	result, err := t.client.CallContract(ctx, ethereum.CallMsg{
		To:   &t.tokenAddr,
		Data: data,
	}, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("balanceOf call failed: %w", err)
	}

	values, err := t.tokenABI.Unpack("balanceOf", result)
	if err != nil || len(values) == 0 {
		return decimal.Zero, fmt.Errorf("failed to decode balanceOf result: %w", err)
	}

	raw, ok := values[0].(*big.Int)
	if !ok {
		return decimal.Zero, fmt.Errorf("unexpected balanceOf result type")
	}

	return decimal.NewFromBigInt(raw, -t.decimals), nil
}

// Transfer 签名并广播一笔代币转账，等待交易被打包
func (t *ERC20Treasury) Transfer(ctx context.Context, to string, amount decimal.Decimal) (string, error) {
	if !common.IsHexAddress(to) {
		return "", fmt.Errorf("invalid recipient address: %s", to)
	}

	// 金额从十进制转为代币最小单位
	rawAmount := amount.Shift(t.decimals).BigInt()

	data, err := t.tokenABI.Pack("transfer", common.HexToAddress(to), rawAmount)
	if err != nil {
		return "", fmt.Errorf("failed to pack transfer call: %w", err)
	}

	from := t.SignerAddress()
	nonce, err := t.client.PendingNonceAt(ctx, from)
	if err != nil {
		return "", fmt.Errorf("failed to fetch nonce: %w", err)
	}

	gasPrice, err := t.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to fetch gas price: %w", err)
	}

	gasLimit, err := t.client.EstimateGas(ctx, ethereum.CallMsg{
		From: from,
		To:   &t.tokenAddr,
		Data: data,
	})
	if err != nil {
		return "", fmt.Errorf("failed to estimate gas: %w", err)
	}

	tx := types.NewTransaction(nonce, t.tokenAddr, big.NewInt(0), gasLimit, gasPrice, data)
	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(t.chainId), t.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := t.client.SendTransaction(ctx, signedTx); err != nil {
		return "", fmt.Errorf("failed to broadcast transaction: %w", err)
	}

	txHash := signedTx.Hash().Hex()
	logger.Info("Broadcast transfer of %s to %s, tx: %s", amount.String(), to, txHash)

	return txHash, nil
}

// ConfirmTransfer 检查交易回执与确认区块数
func (t *ERC20Treasury) ConfirmTransfer(ctx context.Context, txHash string) (TxOutcome, error) {
	receipt, err := t.client.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		// 回执尚不存在视为未知，不是错误
		if err == ethereum.NotFound {
			return TxOutcomeUnknown, nil
		}
		return TxOutcomeUnknown, fmt.Errorf("failed to fetch receipt for %s: %w", txHash, err)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return TxOutcomeFailed, nil
	}

	header, err := t.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return TxOutcomeUnknown, fmt.Errorf("failed to fetch latest block: %w", err)
	}

	if header.Number.Uint64() >= receipt.BlockNumber.Uint64()+uint64(t.confirmations) {
		return TxOutcomeConfirmed, nil
	}
	return TxOutcomeUnknown, nil
}
