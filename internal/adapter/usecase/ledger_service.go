// Package usecase implements the settlement engine's business operations
// on top of the ledger repository and the external settlement service.
package usecase

import (
	"log/slog"
	"sync"

	"reachpay/internal/config/configs"
	"reachpay/internal/core/port"
)

// LedgerService implements port.LedgerUseCase. It orchestrates the
// repository, the settlement service and the wallet generator; all
// invariant math lives in the domain package.
type LedgerService struct {
	repo   port.LedgerRepository
	chain  port.SettlementService
	logger *slog.Logger

	fundingAddress string
	minWithdrawal  int64
	simulated      bool

	withdrawLocks keyedMutex
}

// NewLedgerService creates a service. When cfg has no settlement URL or
// funding address the withdrawal protocol runs in simulation mode.
func NewLedgerService(repo port.LedgerRepository, chain port.SettlementService, cfg configs.Chain, logger *slog.Logger) *LedgerService {
	return &LedgerService{
		repo:           repo,
		chain:          chain,
		logger:         logger,
		fundingAddress: cfg.FundingAddress,
		minWithdrawal:  cfg.MinWithdrawal,
		simulated:      cfg.Simulated(),
	}
}

// keyedMutex hands out one mutex per key. The withdrawal protocol holds
// the per-creator lock across the external transfer call, so a second
// concurrent withdrawal cannot pass the balance check against the same
// unspent balance. The map is never pruned; one mutex per active creator
// is cheap.
type keyedMutex struct {
	mus sync.Map
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	v, _ := k.mus.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
