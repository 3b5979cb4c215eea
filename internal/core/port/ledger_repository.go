package port

import (
	"context"

	"reachpay/internal/core/domain"
)

// LedgerRepository is the outbound port for the ledger store. It owns all
// reads and writes of durable state. Implementations must be
// concurrency-safe: every mutating method on a campaign or earnings
// record runs as a single transaction under a per-row lock, so no partial
// write is ever visible to other readers.
type LedgerRepository interface {
	// CreateUser stores a user and, for brands, its escrow wallet in the
	// same transaction. Returns domain.ErrRoleConflict when the address
	// exists with a different role; an idempotent re-register with the
	// same role returns the stored user via err == nil semantics upstream.
	CreateUser(ctx context.Context, user *domain.User, wallet *domain.EscrowWallet) error
	// GetUser returns the user or domain.ErrUserNotFound.
	GetUser(ctx context.Context, address string) (*domain.User, error)
	// GetEscrowWallet returns the brand's custodial wallet record.
	GetEscrowWallet(ctx context.Context, userAddress string) (*domain.EscrowWallet, error)

	// LinkSocial upserts a social account link for the address.
	LinkSocial(ctx context.Context, acct *domain.SocialAccount) error
	// UnlinkSocial removes the link; it is a no-op if none exists.
	UnlinkSocial(ctx context.Context, address string) error
	// GetSocialAccount returns the link or nil when not linked.
	GetSocialAccount(ctx context.Context, address string) (*domain.SocialAccount, error)

	// CreateCampaign stores a new campaign.
	CreateCampaign(ctx context.Context, c *domain.Campaign) error
	// GetCampaign returns the campaign or domain.ErrCampaignNotFound.
	GetCampaign(ctx context.Context, id string) (*domain.Campaign, error)
	// ListActiveCampaigns returns campaigns with isActive and endTime in
	// the future.
	ListActiveCampaigns(ctx context.Context) ([]domain.Campaign, error)
	// ListBrandCampaigns returns all campaigns owned by the brand.
	ListBrandCampaigns(ctx context.Context, brand string) ([]domain.Campaign, error)
	// SettleMetrics applies a monotonic metrics update and credits the
	// approved creator's earnings atomically: lock campaign row, validate,
	// update metrics and total paid, credit earnings, append the payout
	// record, all in one transaction. Returns the updated campaign and the
	// incremental payout.
	SettleMetrics(ctx context.Context, campaignID string, views, likes int64) (*domain.Campaign, int64, error)
	// CancelCampaign deactivates the campaign under its row lock and
	// returns the updated campaign and the informational refund amount.
	CancelCampaign(ctx context.Context, campaignID string) (*domain.Campaign, int64, error)

	// CreateApplication stores a new application. Returns
	// domain.ErrDuplicateApplication when a non-rejected application for
	// the same campaign/creator pair already exists.
	CreateApplication(ctx context.Context, app *domain.Application) error
	// GetApplication returns the application or domain.ErrApplicationNotFound.
	GetApplication(ctx context.Context, id string) (*domain.Application, error)
	// ListCampaignApplications returns all applications for a campaign.
	ListCampaignApplications(ctx context.Context, campaignID string) ([]domain.Application, error)
	// ListCreatorApplications returns all applications filed by a creator.
	ListCreatorApplications(ctx context.Context, creator string) ([]domain.Application, error)
	// UpdateApplication persists status/tweet mutations.
	UpdateApplication(ctx context.Context, app *domain.Application) error
	// ListTrackedPosts returns the tracked posts of approved applications
	// on active campaigns, for the oracle poller.
	ListTrackedPosts(ctx context.Context) ([]TrackedPost, error)

	// GetEarnings returns the creator's earnings balance; a creator with
	// no credits yet has a zero balance, not an error.
	GetEarnings(ctx context.Context, creator string) (*domain.CreatorEarnings, error)
	// CreateWithdrawal journals a new withdrawal request.
	CreateWithdrawal(ctx context.Context, w *domain.Withdrawal) error
	// GetWithdrawal returns the withdrawal, or nil when the id is unknown.
	GetWithdrawal(ctx context.Context, id string) (*domain.Withdrawal, error)
	// MarkWithdrawalTransferring durably records the transfer tx id
	// before any ledger debit happens.
	MarkWithdrawalTransferring(ctx context.Context, id, txID string) error
	// CommitWithdrawal debits the creator's earnings and marks the
	// withdrawal committed in one transaction. The debit fails rather
	// than drive the balance negative.
	CommitWithdrawal(ctx context.Context, id string) (*domain.CreatorEarnings, error)
	// FailWithdrawal marks the withdrawal failed; the ledger is untouched.
	FailWithdrawal(ctx context.Context, id string) error
	// ListTransferringWithdrawals returns withdrawals whose transfer was
	// confirmed but whose debit may not have committed (crash window).
	ListTransferringWithdrawals(ctx context.Context) ([]domain.Withdrawal, error)

	// AddFunds credits the legacy dev balance and returns the new value.
	AddFunds(ctx context.Context, address string, amount int64) (int64, error)
	// GetFunds reads the legacy dev balance; missing rows read as zero.
	GetFunds(ctx context.Context, address string) (int64, error)
}

// TrackedPost is an approved application's submitted post joined with its
// campaign's stored metrics, consumed by the oracle poller.
type TrackedPost struct {
	CampaignID     string
	CreatorAddress string
	TweetID        string
	TweetURL       string
	Views          int64
	Likes          int64
}
