package domain

import "time"

// Campaign is a performance-promotion campaign owned by one brand.
// Budgets and rates are stored in integer base units (10^9). Escrow
// residency is the brand's own custodial wallet: no funds move at
// creation time, and the balance check performed then is an advisory
// snapshot, not a reservation.
type Campaign struct {
	ID            string
	Brand         string
	EscrowAddress string
	Title         string
	Description   string
	// CPM is the payout rate per 1000 effective views.
	CPM int64
	// LikeWeight converts one like into this many views.
	LikeWeight  int64
	MaxBudget   int64
	Views       int64
	Likes       int64
	TotalPaid   int64
	IsActive    bool
	StartTime   time.Time
	EndTime     time.Time
	CancelledAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EffectiveViews returns the billable view count for the stored metrics.
func (c *Campaign) EffectiveViews() int64 {
	return EffectiveViews(c.Views, c.Likes, c.LikeWeight)
}

// EscrowBalance is the unspent remainder of the budget.
func (c *Campaign) EscrowBalance() int64 {
	return c.MaxBudget - c.TotalPaid
}

// RemainingPayout is the amount currently owed but not yet paid, clamped
// to the escrow balance.
func (c *Campaign) RemainingPayout() int64 {
	due := GrossDue(c.Views, c.Likes, c.LikeWeight, c.CPM) - c.TotalPaid
	if due < 0 {
		due = 0
	}
	if rem := c.EscrowBalance(); due > rem {
		due = rem
	}
	return due
}

// Ended reports whether the campaign's time window has passed.
func (c *Campaign) Ended(now time.Time) bool {
	return !now.Before(c.EndTime)
}

// ApplyMetrics ingests a monotonic metrics update and returns the
// incremental payout it unlocks. The increment is gross due minus what
// was already paid, clamped to zero and to the remaining escrow, so
// TotalPaid can never exceed MaxBudget and an identical re-report
// credits nothing. The campaign is left unchanged on error.
func (c *Campaign) ApplyMetrics(views, likes int64, now time.Time) (int64, error) {
	if !c.IsActive {
		return 0, ErrCampaignInactive
	}
	if views < c.Views {
		return 0, &MonotonicityError{Metric: "views", Current: c.Views, Reported: views}
	}
	if likes < c.Likes {
		return 0, &MonotonicityError{Metric: "likes", Current: c.Likes, Reported: likes}
	}

	incr := GrossDue(views, likes, c.LikeWeight, c.CPM) - c.TotalPaid
	if incr < 0 {
		incr = 0
	}
	if rem := c.EscrowBalance(); incr > rem {
		incr = rem
	}

	c.Views = views
	c.Likes = likes
	c.TotalPaid += incr
	c.UpdatedAt = now
	return incr, nil
}

// Cancel deactivates the campaign and returns the refund amount: the
// unspent escrow remainder. No transfer is performed; the brand retains
// custody of the escrow wallet, funds simply stop accruing obligations.
func (c *Campaign) Cancel(now time.Time) (int64, error) {
	if !c.IsActive {
		return 0, ErrAlreadyInactive
	}
	refund := c.EscrowBalance()
	c.IsActive = false
	c.EndTime = now
	c.CancelledAt = &now
	c.UpdatedAt = now
	return refund, nil
}
