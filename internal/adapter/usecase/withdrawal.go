package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"reachpay/internal/core/domain"
	"reachpay/internal/core/port"
	"reachpay/internal/metrics"
)

// Earnings returns the creator's current earnings balance.
func (s *LedgerService) Earnings(ctx context.Context, creator string) (*domain.CreatorEarnings, error) {
	u, err := s.repo.GetUser(ctx, creator)
	if err != nil {
		return nil, err
	}
	if u.Role != domain.RoleCreator {
		return nil, domain.ErrForbidden
	}
	return s.repo.GetEarnings(ctx, creator)
}

// Withdraw moves earnings to the creator's own wallet. The ordering is
// the protocol's core correctness property: the external transfer happens
// first, and the ledger is debited only after the transfer confirms. Any
// transfer failure or timeout leaves the ledger untouched, so the caller
// may retry safely.
//
// A caller retrying after a timeout must resend its idempotency key: the
// retry then reuses the journaled withdrawal row and puts the same key on
// the wire, so the settlement service collapses both attempts into one
// transfer. An empty key starts a fresh withdrawal.
//
// The per-creator lock is held across the transfer call. Without it, two
// concurrent withdrawals could both pass the balance check against the
// same unspent balance.
func (s *LedgerService) Withdraw(ctx context.Context, creator string, amount int64, idempotencyKey string) (*port.WithdrawalReceipt, error) {
	if amount <= 0 || amount < s.minWithdrawal {
		return nil, fmt.Errorf("%w: minimum withdrawal is %d base units", domain.ErrInvalidAmount, s.minWithdrawal)
	}

	unlock := s.withdrawLocks.lock(creator)
	defer unlock()

	var w *domain.Withdrawal
	if idempotencyKey != "" {
		existing, err := s.repo.GetWithdrawal(ctx, idempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			if existing.CreatorAddress != creator || existing.Amount != amount {
				return nil, domain.ErrIdempotencyConflict
			}
			switch existing.State {
			case domain.WithdrawalCommitted:
				// The earlier attempt already finished; replay the receipt.
				e, err := s.repo.GetEarnings(ctx, creator)
				if err != nil {
					return nil, err
				}
				return &port.WithdrawalReceipt{
					Withdrawn:        amount,
					RemainingBalance: e.Balance,
					TxID:             existing.TxID,
					Simulated:        existing.Simulated,
				}, nil
			case domain.WithdrawalTransferring:
				// Transfer confirmed but the debit was lost; finish it.
				remaining, err := s.repo.CommitWithdrawal(ctx, existing.ID)
				if err != nil {
					return nil, err
				}
				metrics.WithdrawalsTotal.WithLabelValues("committed").Inc()
				metrics.WithdrawnUnitsTotal.Add(float64(amount))
				return &port.WithdrawalReceipt{
					Withdrawn:        amount,
					RemainingBalance: remaining.Balance,
					TxID:             existing.TxID,
					Simulated:        existing.Simulated,
				}, nil
			default:
				// Requested or failed: retry the same journal row so the
				// same key goes on the wire again.
				w = existing
				w.Simulated = s.simulated
			}
		}
	}

	e, err := s.repo.GetEarnings(ctx, creator)
	if err != nil {
		return nil, err
	}
	if amount > e.Balance {
		metrics.WithdrawalsTotal.WithLabelValues("insufficient_balance").Inc()
		return nil, &domain.InsufficientBalanceError{Available: e.Balance, Requested: amount}
	}

	if w == nil {
		now := time.Now().UTC()
		w = &domain.Withdrawal{
			ID:             idempotencyKey,
			CreatorAddress: creator,
			Amount:         amount,
			State:          domain.WithdrawalRequested,
			Simulated:      s.simulated,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if w.ID == "" {
			w.ID = uuid.NewString()
		}
		if err = s.repo.CreateWithdrawal(ctx, w); err != nil {
			return nil, err
		}
	}

	txID := ""
	if s.simulated {
		s.logger.Warn("simulation mode: skipping real transfer",
			slog.String("withdrawal", w.ID), slog.String("creator", creator))
	} else {
		// The withdrawal id is the idempotency key on the wire, so a
		// retried request cannot double-transfer once the service
		// eventually commits the first attempt.
		txID, err = s.chain.Transfer(ctx, s.fundingAddress, creator, amount, w.ID)
		if err != nil {
			if failErr := s.repo.FailWithdrawal(ctx, w.ID); failErr != nil {
				s.logger.Error("marking withdrawal failed",
					slog.String("withdrawal", w.ID), slog.Any("error", failErr))
			}
			outcome := "transfer_failed"
			if errors.Is(err, domain.ErrEscrowUnderfunded) {
				outcome = "escrow_underfunded"
			}
			metrics.WithdrawalsTotal.WithLabelValues(outcome).Inc()
			return nil, err
		}
		// Persist the tx id before touching the balance: if we crash
		// here, the reconcile pass finds the row and applies the debit
		// exactly once.
		if err = s.repo.MarkWithdrawalTransferring(ctx, w.ID, txID); err != nil {
			s.logger.Error("recording transfer id",
				slog.String("withdrawal", w.ID), slog.String("tx", txID), slog.Any("error", err))
		}
	}

	remaining, err := s.repo.CommitWithdrawal(ctx, w.ID)
	if err != nil {
		// Transfer confirmed but debit failed. The withdrawal row holds
		// the tx id; reconciliation will finish the job.
		s.logger.Error("withdrawal debit failed after confirmed transfer",
			slog.String("withdrawal", w.ID), slog.String("tx", txID), slog.Any("error", err))
		return nil, err
	}

	outcome := "committed"
	if s.simulated {
		outcome = "simulated"
	}
	metrics.WithdrawalsTotal.WithLabelValues(outcome).Inc()
	metrics.WithdrawnUnitsTotal.Add(float64(amount))
	s.logger.Info("withdrawal committed",
		slog.String("withdrawal", w.ID),
		slog.String("creator", creator),
		slog.Int64("amount", amount),
		slog.String("tx", txID),
		slog.Bool("simulated", s.simulated))

	return &port.WithdrawalReceipt{
		Withdrawn:        amount,
		RemainingBalance: remaining.Balance,
		TxID:             txID,
		Simulated:        s.simulated,
	}, nil
}

// ReconcileWithdrawals closes the crash window between a confirmed
// transfer and its ledger debit: every withdrawal stuck in the
// transferring state with a recorded tx id gets its debit applied
// exactly once. Run at startup before serving traffic.
func (s *LedgerService) ReconcileWithdrawals(ctx context.Context) (int, error) {
	stuck, err := s.repo.ListTransferringWithdrawals(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, w := range stuck {
		if _, err := s.repo.CommitWithdrawal(ctx, w.ID); err != nil {
			s.logger.Error("reconcile: debit failed",
				slog.String("withdrawal", w.ID), slog.String("tx", w.TxID), slog.Any("error", err))
			continue
		}
		s.logger.Warn("reconcile: applied missing debit",
			slog.String("withdrawal", w.ID),
			slog.String("creator", w.CreatorAddress),
			slog.Int64("amount", w.Amount),
			slog.String("tx", w.TxID))
		n++
	}
	return n, nil
}

// FundBalance credits the legacy dev balance. Only mounted outside prod.
func (s *LedgerService) FundBalance(ctx context.Context, address string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}
	return s.repo.AddFunds(ctx, address, amount)
}

// Balance reads the legacy dev balance; an unknown address reads as zero.
func (s *LedgerService) Balance(ctx context.Context, address string) (int64, error) {
	return s.repo.GetFunds(ctx, address)
}
