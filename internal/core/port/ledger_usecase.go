package port

import (
	"context"

	"reachpay/internal/core/domain"
)

// LedgerUseCase is the inbound port of the settlement engine: the
// operation contracts the HTTP layer and the oracle poller invoke. Every
// rejected operation returns a stable domain error kind with enough
// context for the caller to self-correct.
type LedgerUseCase interface {
	// RegisterUser creates a user. Brands get a generated custodial
	// escrow wallet in the same transaction. Re-registering with the
	// same role is idempotent; a different role fails with RoleConflict.
	RegisterUser(ctx context.Context, address string, role domain.Role) (*domain.User, error)
	// GetUser returns the user's public profile.
	GetUser(ctx context.Context, address string) (*UserProfile, error)

	// ConnectSocial links a social account to the address.
	ConnectSocial(ctx context.Context, address, username string) (*domain.SocialAccount, error)
	// DisconnectSocial removes the link.
	DisconnectSocial(ctx context.Context, address string) error
	// SocialStatus returns the current link, or nil when not linked.
	SocialStatus(ctx context.Context, address string) (*domain.SocialAccount, error)

	// CreateCampaign checks the brand role and the escrow wallet's
	// on-chain balance (advisory snapshot), then stores the campaign
	// funded and active.
	CreateCampaign(ctx context.Context, p CreateCampaignParams) (*domain.Campaign, error)
	// GetCampaign returns one campaign with derived status fields.
	GetCampaign(ctx context.Context, id string) (*domain.Campaign, error)
	// ActiveCampaigns lists campaigns open for applications.
	ActiveCampaigns(ctx context.Context) ([]domain.Campaign, error)
	// BrandCampaigns lists all campaigns owned by the brand.
	BrandCampaigns(ctx context.Context, brand string) ([]domain.Campaign, error)
	// CancelCampaign deactivates a campaign; only the owning brand may
	// cancel, and only once.
	CancelCampaign(ctx context.Context, campaignID, requester string) (refund int64, err error)

	// Apply files a creator's application to an active campaign. The
	// creator must have a linked social account.
	Apply(ctx context.Context, campaignID, creator, proposedContent string) (*domain.Application, error)
	// CampaignApplications lists a campaign's applications to its brand.
	CampaignApplications(ctx context.Context, campaignID, requester string) ([]domain.Application, error)
	// CreatorApplications lists the creator's own applications.
	CreatorApplications(ctx context.Context, creator string) ([]domain.Application, error)
	// Decide approves or rejects a pending application; brand-only,
	// one-shot.
	Decide(ctx context.Context, applicationID, requester string, status domain.ApplicationStatus) (*domain.Application, error)
	// SubmitTweet records the tracked post on an approved application.
	SubmitTweet(ctx context.Context, applicationID, requester, tweetID, tweetURL string) (*domain.Application, error)

	// ReportMetrics ingests a monotonic (views, likes) update, settles
	// the incremental payout and credits the approved creator.
	ReportMetrics(ctx context.Context, campaignID string, views, likes int64) (*domain.Campaign, error)

	// Earnings returns the creator's current earnings balance.
	Earnings(ctx context.Context, creator string) (*domain.CreatorEarnings, error)
	// Withdraw moves earnings to the creator's own wallet through the
	// external settlement service. The ledger is debited only after a
	// confirmed transfer. A retry after a timeout must resend its
	// idempotency key so both attempts collapse into one transfer; an
	// empty key starts a fresh withdrawal.
	Withdraw(ctx context.Context, creator string, amount int64, idempotencyKey string) (*WithdrawalReceipt, error)
	// ReconcileWithdrawals commits the debit for withdrawals whose
	// transfer confirmed but whose debit was lost to a crash. Run once
	// at startup.
	ReconcileWithdrawals(ctx context.Context) (int, error)

	// FundBalance credits the legacy dev balance (dev faucet).
	FundBalance(ctx context.Context, address string, amount int64) (int64, error)
	// Balance reads the legacy dev balance for an address.
	Balance(ctx context.Context, address string) (int64, error)
}

// CreateCampaignParams carries campaign creation input.
type CreateCampaignParams struct {
	Brand        string
	Title        string
	Description  string
	CPM          int64
	LikeWeight   int64
	MaxBudget    int64
	DurationDays int
}

// UserProfile is the outward view of a user: the user record plus the
// linked-social flag, escrow address and earnings, never key material.
type UserProfile struct {
	User          domain.User
	XConnected    bool
	XUsername     string
	Earnings      int64
	EscrowBalance int64
}

// WithdrawalReceipt is returned by Withdraw. Simulated is set when no
// funding source is configured and no real transfer happened; callers
// must never treat a simulated receipt as a real payment.
type WithdrawalReceipt struct {
	Withdrawn        int64
	RemainingBalance int64
	TxID             string
	Simulated        bool
}
