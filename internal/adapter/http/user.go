package httpadapter

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"reachpay/internal/core/domain"
	"reachpay/internal/core/port"
)

type userResponse struct {
	WalletAddress string `json:"walletAddress"`
	Role          string `json:"role"`
	XConnected    bool   `json:"xConnected"`
	XUsername     string `json:"xUsername,omitempty"`
	// BrandWalletAddress is the brand's escrow public key; the secret
	// key never appears in any response.
	BrandWalletAddress string    `json:"brandWalletAddress,omitempty"`
	BrandBalance       int64     `json:"brandBalance,omitempty"`
	CreatorEarnings    int64     `json:"creatorEarnings"`
	CreatedAt          time.Time `json:"createdAt"`
}

func toUserResponse(p *port.UserProfile) userResponse {
	return userResponse{
		WalletAddress:      p.User.WalletAddress,
		Role:               string(p.User.Role),
		XConnected:         p.XConnected,
		XUsername:          p.XUsername,
		BrandWalletAddress: p.User.EscrowAddress,
		BrandBalance:       p.EscrowBalance,
		CreatorEarnings:    p.Earnings,
		CreatedAt:          p.User.CreatedAt,
	}
}

// handleRegisterUser registers a wallet address with a role. Registering
// the same address and role again is idempotent; a different role is a
// conflict.
func (h *Handler) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WalletAddress string `json:"walletAddress"`
		Role          string `json:"role"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	u, err := h.svc.RegisterUser(r.Context(), req.WalletAddress, domain.Role(req.Role))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusCreated, userResponse{
		WalletAddress:      u.WalletAddress,
		Role:               string(u.Role),
		BrandWalletAddress: u.EscrowAddress,
		CreatedAt:          u.CreatedAt,
	})
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetUser(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, toUserResponse(p))
}

func (h *Handler) handleConnectSocial(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WalletAddress string `json:"walletAddress"`
		Username      string `json:"username"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	acct, err := h.svc.ConnectSocial(r.Context(), req.WalletAddress, req.Username)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]any{
		"walletAddress": acct.WalletAddress,
		"username":      acct.Username,
		"connectedAt":   acct.ConnectedAt,
	})
}

func (h *Handler) handleDisconnectSocial(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WalletAddress string `json:"walletAddress"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.DisconnectSocial(r.Context(), req.WalletAddress); err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]bool{"disconnected": true})
}

func (h *Handler) handleSocialStatus(w http.ResponseWriter, r *http.Request) {
	acct, err := h.svc.SocialStatus(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	if acct == nil {
		h.respond(w, http.StatusOK, map[string]any{"connected": false})
		return
	}
	h.respond(w, http.StatusOK, map[string]any{
		"connected":   true,
		"username":    acct.Username,
		"connectedAt": acct.ConnectedAt,
	})
}
