package port

import "context"

// SettlementService is the external custody layer: the only component
// authorized to move real value. Calls may be slow (seconds) and fail
// transiently; a timed-out transfer must be treated as failed, never as
// succeeded.
type SettlementService interface {
	// GetBalance returns the on-chain balance of an address in base units.
	GetBalance(ctx context.Context, address string) (int64, error)
	// Transfer moves amount from one custodial address to another and
	// returns the transaction id once confirmed. The idempotency key lets
	// the service collapse client retries after a timeout into a single
	// transfer. Underfunding surfaces as domain.ErrEscrowUnderfunded,
	// anything else as domain.ErrTransferFailed.
	Transfer(ctx context.Context, from, to string, amount int64, idempotencyKey string) (string, error)
}

// MetricsProvider fetches engagement metrics for a tracked post. The
// provider is untrusted: reported values may regress or duplicate, and
// the monotonic check in metrics ingestion is the safety net.
type MetricsProvider interface {
	FetchMetrics(ctx context.Context, tweetID string) (views, likes int64, err error)
}
