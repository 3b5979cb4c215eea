package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"reachpay/internal/adapter/wallet"
	"reachpay/internal/core/domain"
	"reachpay/internal/core/port"
)

// RegisterUser creates a user keyed by wallet address. Brands get a
// custodial escrow wallet generated and stored in the same transaction.
// Re-registering with the stored role returns the existing user;
// a different role fails with RoleConflict rather than silently
// switching.
func (s *LedgerService) RegisterUser(ctx context.Context, address string, role domain.Role) (*domain.User, error) {
	if address == "" {
		return nil, domain.ErrMissingAddress
	}
	if !role.Valid() {
		return nil, domain.ErrInvalidRole
	}

	existing, err := s.repo.GetUser(ctx, address)
	if err == nil {
		if existing.Role == role {
			return existing, nil
		}
		return nil, domain.ErrRoleConflict
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	u := &domain.User{
		WalletAddress: address,
		Role:          role,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var w *domain.EscrowWallet
	if role == domain.RoleBrand {
		if w, err = wallet.Generate(address); err != nil {
			return nil, err
		}
		u.EscrowAddress = w.PublicKey
	}

	if err = s.repo.CreateUser(ctx, u, w); err != nil {
		return nil, err
	}
	if w != nil {
		s.logger.Info("brand escrow wallet generated",
			slog.String("user", address), slog.String("escrow", w.PublicKey))
	}
	return u, nil
}

// GetUser returns the user's public profile: user record, social link
// state, earnings and, for brands, the escrow address. Key material is
// never included.
func (s *LedgerService) GetUser(ctx context.Context, address string) (*port.UserProfile, error) {
	u, err := s.repo.GetUser(ctx, address)
	if err != nil {
		return nil, err
	}
	profile := port.UserProfile{User: *u}

	acct, err := s.repo.GetSocialAccount(ctx, address)
	if err != nil {
		return nil, err
	}
	if acct != nil {
		profile.XConnected = true
		profile.XUsername = acct.Username
	}

	switch u.Role {
	case domain.RoleCreator:
		e, err := s.repo.GetEarnings(ctx, address)
		if err != nil {
			return nil, err
		}
		profile.Earnings = e.Balance
	case domain.RoleBrand:
		if !s.simulated {
			balance, err := s.chain.GetBalance(ctx, u.EscrowAddress)
			if err != nil {
				// The profile is still useful without the live balance.
				s.logger.Warn("escrow balance query failed",
					slog.String("user", address), slog.Any("error", err))
			} else {
				profile.EscrowBalance = balance
			}
		}
	}
	return &profile, nil
}

// ConnectSocial links a social account to the address.
func (s *LedgerService) ConnectSocial(ctx context.Context, address, username string) (*domain.SocialAccount, error) {
	if _, err := s.repo.GetUser(ctx, address); err != nil {
		return nil, err
	}
	if username == "" {
		return nil, domain.ErrMissingUsername
	}
	acct := &domain.SocialAccount{
		WalletAddress: address,
		Username:      username,
		ConnectedAt:   time.Now().UTC(),
	}
	if err := s.repo.LinkSocial(ctx, acct); err != nil {
		return nil, err
	}
	return acct, nil
}

// DisconnectSocial removes the link.
func (s *LedgerService) DisconnectSocial(ctx context.Context, address string) error {
	return s.repo.UnlinkSocial(ctx, address)
}

// SocialStatus returns the current link, or nil when not linked.
func (s *LedgerService) SocialStatus(ctx context.Context, address string) (*domain.SocialAccount, error) {
	return s.repo.GetSocialAccount(ctx, address)
}
