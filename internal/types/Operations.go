package types

import "time"

// TradeInstruction describes one delegated swap against a pool's vault. The
// counter-asset vaults and AMM pool reference are supplied per call; the
// ledger validates sizing and authorization, then hands the instruction to
// the swap executor unchanged.
type TradeInstruction struct {
	AmountIn     uint64  `json:"amount_in"`
	MinAmountOut uint64  `json:"min_amount_out"`
	SideAVault   Address `json:"side_a_vault"`
	SideBVault   Address `json:"side_b_vault"`
	AmmPool      Address `json:"amm_pool"`
}

// StakeReceipt summarizes a committed stake operation.
type StakeReceipt struct {
	Agent       Address   `json:"agent"`
	Owner       Address   `json:"owner"`
	GrossAmount uint64    `json:"gross_amount"`
	Fee         uint64    `json:"fee"`
	StakeAmount uint64    `json:"stake_amount"`
	ShareBps    uint64    `json:"share_bps"`
	Timestamp   time.Time `json:"timestamp"`
}

// WithdrawReceipt summarizes a committed withdrawal. ShareAmount is the
// staker's slice of the vault's live balance; Fee is charged on profit only,
// so WithdrawalAmount equals ShareAmount whenever the position closed flat
// or at a loss.
type WithdrawReceipt struct {
	Agent            Address   `json:"agent"`
	Owner            Address   `json:"owner"`
	ShareBps         uint64    `json:"share_bps"`
	ShareAmount      uint64    `json:"share_amount"`
	Profit           uint64    `json:"profit"`
	Fee              uint64    `json:"fee"`
	WithdrawalAmount uint64    `json:"withdrawal_amount"`
	Timestamp        time.Time `json:"timestamp"`
}

// TradeReceipt summarizes a committed delegated trade.
type TradeReceipt struct {
	Agent        Address   `json:"agent"`
	AmountIn     uint64    `json:"amount_in"`
	MinAmountOut uint64    `json:"min_amount_out"`
	TradeSizeBps uint64    `json:"trade_size_bps"`
	Timestamp    time.Time `json:"timestamp"`
}

// Operation kinds recorded in the audit log.
const (
	OpKindInitialize = "initialize"
	OpKindStake      = "stake"
	OpKindTrade      = "trade"
	OpKindWithdraw   = "withdraw"
)

// OperationRecord is one committed pool operation in the audit log. Amount
// carries the operation's headline figure: the gross deposit for stakes, the
// amount in for trades, the settled payout for withdrawals, zero for pool
// initialization. Seq orders operations globally across all pools.
type OperationRecord struct {
	Seq        int64     `json:"seq"`
	OpID       string    `json:"op_id"`
	Kind       string    `json:"kind"`
	Agent      Address   `json:"agent"`
	Actor      Address   `json:"actor"`
	Amount     uint64    `json:"amount"`
	RecordedAt time.Time `json:"recorded_at"`
}

// OperationStats aggregates one pool's audit log.
type OperationStats struct {
	Agent          Address `json:"agent"`
	TotalOps       int64   `json:"total_ops"`
	Stakes         int64   `json:"stakes"`
	Trades         int64   `json:"trades"`
	Withdrawals    int64   `json:"withdrawals"`
	GrossStaked    uint64  `json:"gross_staked"`
	GrossTraded    uint64  `json:"gross_traded"`
	GrossWithdrawn uint64  `json:"gross_withdrawn"`
}
