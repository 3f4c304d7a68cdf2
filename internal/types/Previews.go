package types

// StakePreview reports how a stake of GrossAmount would land on a pool right
// now. When Accepted is false, Reason names the first rule the stake would
// break; the fee and share fields still carry whatever was derivable before
// that rule fired. Funding and duplicate-position rules need the owner's
// identity and are checked only by the live operation.
type StakePreview struct {
	Accepted    bool   `json:"accepted"`
	Reason      string `json:"reason,omitempty"`
	GrossAmount uint64 `json:"gross_amount"`
	Fee         uint64 `json:"fee"`
	StakeAmount uint64 `json:"stake_amount"`
	ShareBps    uint64 `json:"share_bps"`
}

// TradePreview reports whether a delegated trade of AmountIn would pass the
// sizing rules. TradeSizeBps is decimal-formatted because a trade sized
// against tiny principal can exceed the u64 range; MaxAmountIn is the
// largest single trade the cap admits right now.
type TradePreview struct {
	Accepted     bool   `json:"accepted"`
	Reason       string `json:"reason,omitempty"`
	AmountIn     uint64 `json:"amount_in"`
	TradeSizeBps string `json:"trade_size_bps,omitempty"`
	MaxAmountIn  uint64 `json:"max_amount_in"`
}

// WithdrawPreview reports what closing a position would settle right now.
// UnlocksAt is the Unix time the position's lock expires, filled regardless
// of verdict. When Settleable is false, Reason names the first rule the
// withdrawal would break; the entitlement fields still carry whatever was
// derivable before that rule fired.
type WithdrawPreview struct {
	Settleable       bool   `json:"settleable"`
	Reason           string `json:"reason,omitempty"`
	UnlocksAt        int64  `json:"unlocks_at"`
	ShareBps         uint64 `json:"share_bps"`
	ShareAmount      uint64 `json:"share_amount"`
	Profit           uint64 `json:"profit"`
	Fee              uint64 `json:"fee"`
	WithdrawalAmount uint64 `json:"withdrawal_amount"`
}
