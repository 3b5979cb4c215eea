package domain

import (
	"errors"
	"fmt"
)

// Stable error kinds returned by ledger operations. The HTTP layer maps
// these to status codes; callers can rely on errors.Is/errors.As.
var (
	ErrUserNotFound         = errors.New("user not found")
	ErrCampaignNotFound     = errors.New("campaign not found")
	ErrApplicationNotFound  = errors.New("application not found")
	ErrCampaignInactive     = errors.New("campaign is not active")
	ErrAlreadyInactive      = errors.New("campaign already inactive")
	ErrForbidden            = errors.New("forbidden")
	ErrInvalidRole          = errors.New("role must be creator or brand")
	ErrRoleConflict         = errors.New("address already registered with a different role")
	ErrNotLinked            = errors.New("no social account linked")
	ErrDuplicateApplication = errors.New("an application for this campaign already exists")
	ErrAlreadyDecided       = errors.New("application already decided")
	ErrInvalidStatus        = errors.New("status must be approved or rejected")
	ErrNotApproved          = errors.New("application is not approved")
	ErrMissingTweet         = errors.New("tweet id or url required")
	ErrMissingUsername      = errors.New("username required")
	ErrMissingAddress       = errors.New("wallet address required")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrIdempotencyConflict  = errors.New("idempotency key already used with different parameters")
	ErrEscrowUnderfunded    = errors.New("platform escrow underfunded")
	ErrTransferFailed       = errors.New("transfer failed")
)

// MonotonicityError rejects a metrics report that would decrease a stored
// metric. The campaign is left unchanged.
type MonotonicityError struct {
	Metric   string
	Current  int64
	Reported int64
}

func (e *MonotonicityError) Error() string {
	return fmt.Sprintf("%s cannot decrease: reported %d, stored %d", e.Metric, e.Reported, e.Current)
}

// InsufficientFundsError reports that the brand escrow wallet cannot
// cover the requested campaign budget.
type InsufficientFundsError struct {
	Required      int64
	Available     int64
	EscrowAddress string
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds in escrow %s: required %d, available %d",
		e.EscrowAddress, e.Required, e.Available)
}

// InsufficientBalanceError reports a withdrawal exceeding the creator's
// earnings balance.
type InsufficientBalanceError struct {
	Available int64
	Requested int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient earnings balance: requested %d, available %d",
		e.Requested, e.Available)
}
