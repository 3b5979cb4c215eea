package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"reachpay/internal/core/domain"
)

// Apply files a creator's application to an active campaign. The creator
// must be registered with the creator role and have a linked social
// account. At most one non-rejected application per campaign/creator
// pair is allowed.
func (s *LedgerService) Apply(ctx context.Context, campaignID, creator, proposedContent string) (*domain.Application, error) {
	u, err := s.repo.GetUser(ctx, creator)
	if err != nil {
		return nil, err
	}
	if u.Role != domain.RoleCreator {
		return nil, domain.ErrForbidden
	}
	acct, err := s.repo.GetSocialAccount(ctx, creator)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, domain.ErrNotLinked
	}
	c, err := s.repo.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if !c.IsActive || c.Ended(time.Now().UTC()) {
		return nil, domain.ErrCampaignInactive
	}

	now := time.Now().UTC()
	app := &domain.Application{
		ID:              uuid.NewString(),
		CampaignID:      campaignID,
		CreatorAddress:  creator,
		ProposedContent: proposedContent,
		Status:          domain.ApplicationPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err = s.repo.CreateApplication(ctx, app); err != nil {
		return nil, err
	}
	return app, nil
}

// CampaignApplications lists a campaign's applications to its owning
// brand.
func (s *LedgerService) CampaignApplications(ctx context.Context, campaignID, requester string) ([]domain.Application, error) {
	c, err := s.repo.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if c.Brand != requester {
		return nil, domain.ErrForbidden
	}
	return s.repo.ListCampaignApplications(ctx, campaignID)
}

// CreatorApplications lists the creator's own applications across all
// campaigns.
func (s *LedgerService) CreatorApplications(ctx context.Context, creator string) ([]domain.Application, error) {
	u, err := s.repo.GetUser(ctx, creator)
	if err != nil {
		return nil, err
	}
	if u.Role != domain.RoleCreator {
		return nil, domain.ErrForbidden
	}
	return s.repo.ListCreatorApplications(ctx, creator)
}

// Decide approves or rejects a pending application. Only the campaign's
// brand may decide, and the decision is terminal.
func (s *LedgerService) Decide(ctx context.Context, applicationID, requester string, status domain.ApplicationStatus) (*domain.Application, error) {
	app, err := s.repo.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	c, err := s.repo.GetCampaign(ctx, app.CampaignID)
	if err != nil {
		return nil, err
	}
	if c.Brand != requester {
		return nil, domain.ErrForbidden
	}
	if err = app.Decide(status, time.Now().UTC()); err != nil {
		return nil, err
	}
	if err = s.repo.UpdateApplication(ctx, app); err != nil {
		return nil, err
	}
	return app, nil
}

// SubmitTweet records the tracked post reference on the creator's own
// approved application; metrics ingestion follows this post from then on.
func (s *LedgerService) SubmitTweet(ctx context.Context, applicationID, requester, tweetID, tweetURL string) (*domain.Application, error) {
	app, err := s.repo.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.CreatorAddress != requester {
		return nil, domain.ErrForbidden
	}
	if err = app.SubmitTweet(tweetID, tweetURL, time.Now().UTC()); err != nil {
		return nil, err
	}
	if err = s.repo.UpdateApplication(ctx, app); err != nil {
		return nil, err
	}
	return app, nil
}
