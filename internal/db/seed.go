package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"reachpay/internal/adapter/wallet"
)

// Seed inserts demo data: one brand with a generated escrow wallet, one
// linked creator with an approved application, and an active campaign.
func Seed(ctx context.Context, pool *pgxpool.Pool) error {
	now := time.Now().UTC()
	brand := "demo-brand-wallet"
	creator := "demo-creator-wallet"

	_, err := pool.Exec(ctx, `INSERT INTO users (wallet_address, role, created_at, updated_at)
		VALUES ($1,'brand',$2,$2), ($3,'creator',$2,$2) ON CONFLICT DO NOTHING`,
		brand, now, creator)
	if err != nil {
		return err
	}

	w, err := wallet.Generate(brand)
	if err != nil {
		return err
	}
	_, err = pool.Exec(ctx, `INSERT INTO brand_wallets (user_address, public_key, secret_key, created_at)
		VALUES ($1,$2,$3,$4) ON CONFLICT DO NOTHING`,
		brand, w.PublicKey, w.SecretKey, now)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `INSERT INTO social_accounts (wallet_address, username, connected_at)
		VALUES ($1,'demo_creator',$2) ON CONFLICT DO NOTHING`, creator, now)
	if err != nil {
		return err
	}

	campaignID := uuid.NewString()
	_, err = pool.Exec(ctx, `INSERT INTO campaigns
		(id, brand_address, escrow_address, title, description, cpm, like_weight, max_budget,
		 is_active, start_time, end_time, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,TRUE,$9,$10,$9,$9) ON CONFLICT DO NOTHING`,
		campaignID, brand, w.PublicKey,
		"Demo campaign", "Pay per verified reach",
		int64(10_000_000_000), // 10 units per 1000 effective views
		int64(20),
		int64(1_000_000_000_000), // 1000 units
		now, now.AddDate(0, 0, 30))
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `INSERT INTO applications
		(id, campaign_id, creator_address, proposed_content, status, tweet_id, tweet_submitted_at, created_at, updated_at)
		VALUES ($1,$2,$3,'demo post','approved','1000000000000000001',$4,$4,$4) ON CONFLICT DO NOTHING`,
		uuid.NewString(), campaignID, creator, now)
	if err != nil {
		return err
	}

	fmt.Printf("seeded campaign %s (brand %s, creator %s)\n", campaignID, brand, creator)
	return nil
}
