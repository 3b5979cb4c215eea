package domain

import "time"

// CreatorEarnings is the off-chain ledger balance for one creator. It is
// increased only by settlement credits and decreased only by committed
// withdrawals, and never goes negative.
type CreatorEarnings struct {
	WalletAddress string
	Balance       int64
	UpdatedAt     time.Time
}

// Payout is the settlement audit record: one row per non-zero credit,
// capturing the metrics snapshot that unlocked it.
type Payout struct {
	ID             int64
	CampaignID     string
	CreatorAddress string
	Amount         int64
	Views          int64
	Likes          int64
	CreatedAt      time.Time
}

// WithdrawalState tracks a withdrawal request through its two-phase
// protocol: requested -> transferring -> committed|failed. The tx id is
// persisted in the transferring state before the ledger debit, so a
// recovery pass can reconcile a crash between transfer and debit.
type WithdrawalState string

const (
	WithdrawalRequested    WithdrawalState = "requested"
	WithdrawalTransferring WithdrawalState = "transferring"
	WithdrawalCommitted    WithdrawalState = "committed"
	WithdrawalFailed       WithdrawalState = "failed"
)

// Withdrawal is the durable journal entry for one withdrawal request.
// Its ID doubles as the idempotency key passed to the settlement service.
type Withdrawal struct {
	ID             string
	CreatorAddress string
	Amount         int64
	State          WithdrawalState
	TxID           string
	Simulated      bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
