package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"reachpay/internal/core/domain"
	"reachpay/internal/core/port"
	"reachpay/internal/metrics"
)

// CreateCampaign validates the brand, checks its escrow wallet balance
// against the requested budget and stores the campaign active. The
// balance check is an advisory snapshot: no funds move at creation time
// and the escrow stays in the brand's own custodial wallet.
func (s *LedgerService) CreateCampaign(ctx context.Context, p port.CreateCampaignParams) (*domain.Campaign, error) {
	if p.CPM <= 0 || p.LikeWeight < 0 || p.MaxBudget <= 0 || p.DurationDays <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	u, err := s.repo.GetUser(ctx, p.Brand)
	if err != nil {
		return nil, err
	}
	if u.Role != domain.RoleBrand {
		return nil, domain.ErrForbidden
	}

	w, err := s.repo.GetEscrowWallet(ctx, p.Brand)
	if err != nil {
		return nil, err
	}

	if !s.simulated {
		available, err := s.chain.GetBalance(ctx, w.PublicKey)
		if err != nil {
			return nil, err
		}
		if available < p.MaxBudget {
			return nil, &domain.InsufficientFundsError{
				Required:      p.MaxBudget,
				Available:     available,
				EscrowAddress: w.PublicKey,
			}
		}
	}

	now := time.Now().UTC()
	c := &domain.Campaign{
		ID:            uuid.NewString(),
		Brand:         p.Brand,
		EscrowAddress: w.PublicKey,
		Title:         p.Title,
		Description:   p.Description,
		CPM:           p.CPM,
		LikeWeight:    p.LikeWeight,
		MaxBudget:     p.MaxBudget,
		IsActive:      true,
		StartTime:     now,
		EndTime:       now.Add(time.Duration(p.DurationDays) * 24 * time.Hour),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err = s.repo.CreateCampaign(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info("campaign created",
		slog.String("campaign", c.ID),
		slog.String("brand", c.Brand),
		slog.Int64("max_budget", c.MaxBudget))
	return c, nil
}

// GetCampaign returns one campaign.
func (s *LedgerService) GetCampaign(ctx context.Context, id string) (*domain.Campaign, error) {
	return s.repo.GetCampaign(ctx, id)
}

// ActiveCampaigns lists campaigns open for applications.
func (s *LedgerService) ActiveCampaigns(ctx context.Context) ([]domain.Campaign, error) {
	return s.repo.ListActiveCampaigns(ctx)
}

// BrandCampaigns lists all campaigns owned by the brand.
func (s *LedgerService) BrandCampaigns(ctx context.Context, brand string) ([]domain.Campaign, error) {
	return s.repo.ListBrandCampaigns(ctx, brand)
}

// CancelCampaign deactivates a campaign. Only the owning brand may
// cancel, and only while the campaign is active. The returned refund is
// informational: the unspent escrow never left the brand's wallet.
func (s *LedgerService) CancelCampaign(ctx context.Context, campaignID, requester string) (int64, error) {
	c, err := s.repo.GetCampaign(ctx, campaignID)
	if err != nil {
		return 0, err
	}
	if c.Brand != requester {
		return 0, domain.ErrForbidden
	}
	c, refund, err := s.repo.CancelCampaign(ctx, campaignID)
	if err != nil {
		return 0, err
	}
	s.logger.Info("campaign cancelled",
		slog.String("campaign", c.ID), slog.Int64("refund", refund))
	return refund, nil
}

// ReportMetrics ingests a monotonic (views, likes) update. The
// repository settles the incremental payout and credits the approved
// creator atomically; identical re-reports credit nothing.
func (s *LedgerService) ReportMetrics(ctx context.Context, campaignID string, views, likes int64) (*domain.Campaign, error) {
	if views < 0 || likes < 0 {
		return nil, domain.ErrInvalidAmount
	}
	c, paid, err := s.repo.SettleMetrics(ctx, campaignID, views, likes)
	if err != nil {
		return nil, err
	}
	metrics.SettlementsTotal.Inc()
	if paid > 0 {
		metrics.PayoutUnitsTotal.Add(float64(paid))
		s.logger.Info("settlement credited",
			slog.String("campaign", campaignID),
			slog.Int64("amount", paid),
			slog.Int64("total_paid", c.TotalPaid))
	}
	return c, nil
}
