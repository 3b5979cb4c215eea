package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"reachpay/internal/core/domain"
	"reachpay/internal/core/port"
)

// LedgerRepository implements port.LedgerRepository using pgxpool for
// PostgreSQL. Mutations on a campaign or earnings record run inside a
// single transaction with a SELECT ... FOR UPDATE row lock, so concurrent
// updates to the same record are linearized by the database.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository returns a new repository instance.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

const campaignColumns = `id, brand_address, escrow_address, title, description,
	cpm, like_weight, max_budget, views, likes, total_paid, is_active,
	start_time, end_time, cancelled_at, created_at, updated_at`

func scanCampaign(row pgx.Row) (*domain.Campaign, error) {
	var c domain.Campaign
	err := row.Scan(
		&c.ID, &c.Brand, &c.EscrowAddress, &c.Title, &c.Description,
		&c.CPM, &c.LikeWeight, &c.MaxBudget, &c.Views, &c.Likes, &c.TotalPaid,
		&c.IsActive, &c.StartTime, &c.EndTime, &c.CancelledAt,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateUser stores the user and, for brands, the custodial wallet in one
// transaction so a brand can never exist without its escrow wallet.
func (r *LedgerRepository) CreateUser(ctx context.Context, user *domain.User, wallet *domain.EscrowWallet) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()

	_, err = tx.Exec(ctx,
		`INSERT INTO users (wallet_address, role, created_at, updated_at) VALUES ($1,$2,$3,$4)`,
		user.WalletAddress, user.Role, user.CreatedAt, user.UpdatedAt)
	if isUniqueViolation(err) {
		err = domain.ErrRoleConflict
		return err
	}
	if err != nil {
		return err
	}
	if wallet != nil {
		_, err = tx.Exec(ctx,
			`INSERT INTO brand_wallets (user_address, public_key, secret_key, created_at) VALUES ($1,$2,$3,$4)`,
			wallet.UserAddress, wallet.PublicKey, wallet.SecretKey, wallet.CreatedAt)
		if err != nil {
			return err
		}
	}
	return nil
}

// GetUser returns the user or domain.ErrUserNotFound. The escrow address
// for brands is joined from brand_wallets.
func (r *LedgerRepository) GetUser(ctx context.Context, address string) (*domain.User, error) {
	var u domain.User
	err := r.pool.QueryRow(ctx, `
		SELECT u.wallet_address, u.role, COALESCE(w.public_key, ''), u.created_at, u.updated_at
		FROM users u
		LEFT JOIN brand_wallets w ON w.user_address = u.wallet_address
		WHERE u.wallet_address = $1`, address).
		Scan(&u.WalletAddress, &u.Role, &u.EscrowAddress, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetEscrowWallet returns the brand's custodial wallet record, including
// key material. Never expose the result outside the engine.
func (r *LedgerRepository) GetEscrowWallet(ctx context.Context, userAddress string) (*domain.EscrowWallet, error) {
	var w domain.EscrowWallet
	err := r.pool.QueryRow(ctx,
		`SELECT user_address, public_key, secret_key, created_at FROM brand_wallets WHERE user_address = $1`,
		userAddress).
		Scan(&w.UserAddress, &w.PublicKey, &w.SecretKey, &w.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// LinkSocial upserts the social account link.
func (r *LedgerRepository) LinkSocial(ctx context.Context, acct *domain.SocialAccount) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO social_accounts (wallet_address, username, account_id, connected_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (wallet_address) DO UPDATE
		SET username = EXCLUDED.username, account_id = EXCLUDED.account_id, connected_at = EXCLUDED.connected_at`,
		acct.WalletAddress, acct.Username, acct.AccountID, acct.ConnectedAt)
	return err
}

// UnlinkSocial removes the link if present.
func (r *LedgerRepository) UnlinkSocial(ctx context.Context, address string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM social_accounts WHERE wallet_address = $1`, address)
	return err
}

// GetSocialAccount returns the link or nil when not linked.
func (r *LedgerRepository) GetSocialAccount(ctx context.Context, address string) (*domain.SocialAccount, error) {
	var a domain.SocialAccount
	err := r.pool.QueryRow(ctx,
		`SELECT wallet_address, username, account_id, connected_at FROM social_accounts WHERE wallet_address = $1`,
		address).
		Scan(&a.WalletAddress, &a.Username, &a.AccountID, &a.ConnectedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateCampaign stores a new campaign.
func (r *LedgerRepository) CreateCampaign(ctx context.Context, c *domain.Campaign) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO campaigns (id, brand_address, escrow_address, title, description,
			cpm, like_weight, max_budget, views, likes, total_paid, is_active,
			start_time, end_time, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		c.ID, c.Brand, c.EscrowAddress, c.Title, c.Description,
		c.CPM, c.LikeWeight, c.MaxBudget, c.Views, c.Likes, c.TotalPaid, c.IsActive,
		c.StartTime, c.EndTime, c.CreatedAt, c.UpdatedAt)
	return err
}

// GetCampaign returns the campaign or domain.ErrCampaignNotFound.
func (r *LedgerRepository) GetCampaign(ctx context.Context, id string) (*domain.Campaign, error) {
	c, err := scanCampaign(r.pool.QueryRow(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCampaignNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListActiveCampaigns returns campaigns still open: active and not past
// their end time.
func (r *LedgerRepository) ListActiveCampaigns(ctx context.Context) ([]domain.Campaign, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE is_active AND end_time > now() ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	return collectCampaigns(rows)
}

// ListBrandCampaigns returns every campaign owned by the brand.
func (r *LedgerRepository) ListBrandCampaigns(ctx context.Context, brand string) ([]domain.Campaign, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE brand_address = $1 ORDER BY created_at DESC`, brand)
	if err != nil {
		return nil, err
	}
	return collectCampaigns(rows)
}

func collectCampaigns(rows pgx.Rows) ([]domain.Campaign, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Campaign, error) {
		c, err := scanCampaign(row)
		if err != nil {
			return domain.Campaign{}, err
		}
		return *c, nil
	})
}

// SettleMetrics applies a metrics update and the resulting payout in one
// transaction: lock the campaign row, validate monotonicity, advance
// metrics, credit the approved creator and append the payout record.
// Concurrent reports for the same campaign serialize on the row lock, so
// two reports can never both read the same total_paid.
func (r *LedgerRepository) SettleMetrics(ctx context.Context, campaignID string, views, likes int64) (*domain.Campaign, int64, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()

	c, err := scanCampaign(tx.QueryRow(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE id = $1 FOR UPDATE`, campaignID))
	if errors.Is(err, pgx.ErrNoRows) {
		err = domain.ErrCampaignNotFound
		return nil, 0, err
	}
	if err != nil {
		return nil, 0, err
	}

	// The earliest approved application names the payee. Metrics may
	// advance before anyone is approved; nothing is owed until then.
	var creator string
	err = tx.QueryRow(ctx, `
		SELECT creator_address FROM applications
		WHERE campaign_id = $1 AND status = 'approved'
		ORDER BY created_at LIMIT 1`, campaignID).Scan(&creator)
	if errors.Is(err, pgx.ErrNoRows) {
		creator, err = "", nil
	}
	if err != nil {
		return nil, 0, err
	}

	now := time.Now().UTC()
	incr, err := c.ApplyMetrics(views, likes, now)
	if err != nil {
		return nil, 0, err
	}
	if creator == "" && incr > 0 {
		c.TotalPaid -= incr
		incr = 0
	}

	_, err = tx.Exec(ctx,
		`UPDATE campaigns SET views = $1, likes = $2, total_paid = $3, updated_at = $4 WHERE id = $5`,
		c.Views, c.Likes, c.TotalPaid, now, c.ID)
	if err != nil {
		return nil, 0, err
	}

	if incr > 0 {
		_, err = tx.Exec(ctx, `
			INSERT INTO creator_earnings (wallet_address, balance, updated_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (wallet_address) DO UPDATE
			SET balance = creator_earnings.balance + EXCLUDED.balance, updated_at = EXCLUDED.updated_at`,
			creator, incr, now)
		if err != nil {
			return nil, 0, err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO payouts (campaign_id, creator_address, amount, views, likes, created_at)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			c.ID, creator, incr, c.Views, c.Likes, now)
		if err != nil {
			return nil, 0, err
		}
	}
	return c, incr, nil
}

// CancelCampaign deactivates the campaign under its row lock.
func (r *LedgerRepository) CancelCampaign(ctx context.Context, campaignID string) (*domain.Campaign, int64, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()

	c, err := scanCampaign(tx.QueryRow(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE id = $1 FOR UPDATE`, campaignID))
	if errors.Is(err, pgx.ErrNoRows) {
		err = domain.ErrCampaignNotFound
		return nil, 0, err
	}
	if err != nil {
		return nil, 0, err
	}

	refund, err := c.Cancel(time.Now().UTC())
	if err != nil {
		return nil, 0, err
	}
	_, err = tx.Exec(ctx,
		`UPDATE campaigns SET is_active = FALSE, end_time = $1, cancelled_at = $2, updated_at = $3 WHERE id = $4`,
		c.EndTime, c.CancelledAt, c.UpdatedAt, c.ID)
	if err != nil {
		return nil, 0, err
	}
	return c, refund, nil
}

// CreateApplication stores a new application. The partial unique index on
// (campaign_id, creator_address) WHERE status <> 'rejected' enforces
// at-most-one live application per pair.
func (r *LedgerRepository) CreateApplication(ctx context.Context, app *domain.Application) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO applications (id, campaign_id, creator_address, proposed_content, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		app.ID, app.CampaignID, app.CreatorAddress, app.ProposedContent, app.Status, app.CreatedAt, app.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateApplication
	}
	return err
}

// GetApplication returns the application or domain.ErrApplicationNotFound.
func (r *LedgerRepository) GetApplication(ctx context.Context, id string) (*domain.Application, error) {
	a, err := scanApplication(r.pool.QueryRow(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrApplicationNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

const applicationColumns = `id, campaign_id, creator_address, proposed_content,
	status, tweet_id, tweet_url, tweet_submitted_at, created_at, updated_at`

func scanApplication(row pgx.Row) (*domain.Application, error) {
	var a domain.Application
	err := row.Scan(
		&a.ID, &a.CampaignID, &a.CreatorAddress, &a.ProposedContent,
		&a.Status, &a.TweetID, &a.TweetURL, &a.TweetSubmittedAt,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListCampaignApplications returns a campaign's applications, newest last.
func (r *LedgerRepository) ListCampaignApplications(ctx context.Context, campaignID string) ([]domain.Application, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE campaign_id = $1 ORDER BY created_at`, campaignID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Application, error) {
		a, err := scanApplication(row)
		if err != nil {
			return domain.Application{}, err
		}
		return *a, nil
	})
}

// ListCreatorApplications returns every application the creator filed,
// oldest first.
func (r *LedgerRepository) ListCreatorApplications(ctx context.Context, creator string) ([]domain.Application, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE creator_address = $1 ORDER BY created_at`, creator)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Application, error) {
		a, err := scanApplication(row)
		if err != nil {
			return domain.Application{}, err
		}
		return *a, nil
	})
}

// UpdateApplication persists status and tweet mutations.
func (r *LedgerRepository) UpdateApplication(ctx context.Context, app *domain.Application) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE applications
		SET status = $1, tweet_id = $2, tweet_url = $3, tweet_submitted_at = $4, updated_at = $5
		WHERE id = $6`,
		app.Status, app.TweetID, app.TweetURL, app.TweetSubmittedAt, app.UpdatedAt, app.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrApplicationNotFound
	}
	return nil
}

// ListTrackedPosts returns submitted posts of approved applications on
// campaigns that are still active, joined with the stored metrics so the
// poller can skip no-op reports.
func (r *LedgerRepository) ListTrackedPosts(ctx context.Context) ([]port.TrackedPost, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.campaign_id, a.creator_address, a.tweet_id, a.tweet_url, c.views, c.likes
		FROM applications a
		JOIN campaigns c ON c.id = a.campaign_id
		WHERE a.status = 'approved' AND a.tweet_submitted_at IS NOT NULL
		  AND c.is_active AND c.end_time > now()`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (port.TrackedPost, error) {
		var p port.TrackedPost
		err := row.Scan(&p.CampaignID, &p.CreatorAddress, &p.TweetID, &p.TweetURL, &p.Views, &p.Likes)
		return p, err
	})
}

// GetEarnings returns the creator's balance; missing rows read as zero.
func (r *LedgerRepository) GetEarnings(ctx context.Context, creator string) (*domain.CreatorEarnings, error) {
	e := domain.CreatorEarnings{WalletAddress: creator}
	err := r.pool.QueryRow(ctx,
		`SELECT balance, updated_at FROM creator_earnings WHERE wallet_address = $1`, creator).
		Scan(&e.Balance, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return &e, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateWithdrawal journals a new withdrawal request.
func (r *LedgerRepository) CreateWithdrawal(ctx context.Context, w *domain.Withdrawal) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO withdrawals (id, creator_address, amount, state, tx_id, simulated, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		w.ID, w.CreatorAddress, w.Amount, w.State, w.TxID, w.Simulated, w.CreatedAt, w.UpdatedAt)
	return err
}

// GetWithdrawal returns the withdrawal row, or nil when the id is
// unknown. Withdrawal ids are idempotency keys, so an unknown id is a
// normal first-attempt case, not an error.
func (r *LedgerRepository) GetWithdrawal(ctx context.Context, id string) (*domain.Withdrawal, error) {
	var w domain.Withdrawal
	err := r.pool.QueryRow(ctx, `
		SELECT id, creator_address, amount, state, tx_id, simulated, created_at, updated_at
		FROM withdrawals WHERE id = $1`, id).
		Scan(&w.ID, &w.CreatorAddress, &w.Amount, &w.State, &w.TxID, &w.Simulated, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// MarkWithdrawalTransferring durably records the confirmed transfer id.
// This write commits before the debit, so a crash between the two leaves
// a reconcilable row instead of a silent paid-but-not-debited state.
func (r *LedgerRepository) MarkWithdrawalTransferring(ctx context.Context, id, txID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE withdrawals SET state = $1, tx_id = $2, updated_at = now() WHERE id = $3`,
		domain.WithdrawalTransferring, txID, id)
	return err
}

// CommitWithdrawal debits the earnings and finalizes the withdrawal in
// one transaction. Re-committing an already committed withdrawal is a
// no-op, which makes the reconcile pass exactly-once.
func (r *LedgerRepository) CommitWithdrawal(ctx context.Context, id string) (*domain.CreatorEarnings, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()

	var w domain.Withdrawal
	err = tx.QueryRow(ctx,
		`SELECT id, creator_address, amount, state FROM withdrawals WHERE id = $1 FOR UPDATE`, id).
		Scan(&w.ID, &w.CreatorAddress, &w.Amount, &w.State)
	if err != nil {
		return nil, err
	}

	e := domain.CreatorEarnings{WalletAddress: w.CreatorAddress}
	err = tx.QueryRow(ctx,
		`SELECT balance, updated_at FROM creator_earnings WHERE wallet_address = $1 FOR UPDATE`,
		w.CreatorAddress).
		Scan(&e.Balance, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if w.State == domain.WithdrawalCommitted {
		return &e, nil
	}
	if e.Balance < w.Amount {
		err = &domain.InsufficientBalanceError{Available: e.Balance, Requested: w.Amount}
		return nil, err
	}

	now := time.Now().UTC()
	e.Balance -= w.Amount
	e.UpdatedAt = now
	_, err = tx.Exec(ctx,
		`UPDATE creator_earnings SET balance = $1, updated_at = $2 WHERE wallet_address = $3`,
		e.Balance, now, w.CreatorAddress)
	if err != nil {
		return nil, err
	}
	_, err = tx.Exec(ctx,
		`UPDATE withdrawals SET state = $1, updated_at = $2 WHERE id = $3`,
		domain.WithdrawalCommitted, now, id)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// FailWithdrawal marks the request failed. The earnings row is untouched.
func (r *LedgerRepository) FailWithdrawal(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE withdrawals SET state = $1, updated_at = now() WHERE id = $2`,
		domain.WithdrawalFailed, id)
	return err
}

// ListTransferringWithdrawals returns rows caught in the crash window
// between a confirmed transfer and the ledger debit.
func (r *LedgerRepository) ListTransferringWithdrawals(ctx context.Context) ([]domain.Withdrawal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, creator_address, amount, state, tx_id, simulated, created_at, updated_at
		FROM withdrawals WHERE state = $1 AND tx_id <> ''`,
		domain.WithdrawalTransferring)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Withdrawal, error) {
		var w domain.Withdrawal
		err := row.Scan(&w.ID, &w.CreatorAddress, &w.Amount, &w.State, &w.TxID, &w.Simulated, &w.CreatedAt, &w.UpdatedAt)
		return w, err
	})
}

// AddFunds credits the legacy dev balance and returns the new value.
func (r *LedgerRepository) AddFunds(ctx context.Context, address string, amount int64) (int64, error) {
	var balance int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO balances (wallet_address, balance, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (wallet_address) DO UPDATE
		SET balance = balances.balance + EXCLUDED.balance, updated_at = now()
		RETURNING balance`, address, amount).Scan(&balance)
	return balance, err
}

// GetFunds reads the legacy dev balance; missing rows read as zero.
func (r *LedgerRepository) GetFunds(ctx context.Context, address string) (int64, error) {
	var balance int64
	err := r.pool.QueryRow(ctx,
		`SELECT balance FROM balances WHERE wallet_address = $1`, address).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return balance, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
