package configs

import "time"

// Chain configures the external settlement service: the custody layer
// that holds on-chain funds and is the only component authorized to move
// real value.
type Chain struct {
	// SettlementURL is the base URL of the settlement service. When empty
	// the withdrawal protocol runs in simulation mode: no real transfer
	// happens and receipts carry no transaction id.
	SettlementURL string `env:"SETTLEMENT_URL"`
	// FundingAddress is the platform escrow address withdrawals are paid
	// from. Required for real transfers.
	FundingAddress string `env:"FUNDING_ADDRESS"`
	// MinWithdrawal is the dust floor for withdrawals in base units. It
	// must cover the network fee with margin.
	MinWithdrawal int64 `env:"MIN_WITHDRAWAL" envDefault:"1000000"`
	// RequestTimeout bounds a single settlement service call. A call that
	// exceeds it is treated as failed, never as succeeded.
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	// MaxRetries and RetryDelay control the retry schedule for transient
	// balance-query failures. Transfers are never retried internally;
	// retry is the caller's decision, keyed by the withdrawal id.
	MaxRetries int           `env:"MAX_RETRIES" envDefault:"3"`
	RetryDelay time.Duration `env:"RETRY_DELAY" envDefault:"1s"`
}

// Simulated reports whether the withdrawal protocol should skip real
// transfers.
func (c Chain) Simulated() bool {
	return c.SettlementURL == "" || c.FundingAddress == ""
}
