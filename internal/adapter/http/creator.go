package httpadapter

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) handleEarnings(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.Earnings(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]int64{"earnings": e.Balance})
}

// handleCreatorApplications lists the creator's own applications.
func (h *Handler) handleCreatorApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := h.svc.CreatorApplications(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]applicationResponse, 0, len(apps))
	for i := range apps {
		out = append(out, toApplicationResponse(&apps[i]))
	}
	h.respond(w, http.StatusOK, out)
}

// handleWithdraw runs the two-phase withdrawal protocol. The response
// carries the transaction id of the confirmed transfer; a simulated
// receipt has no tx id and is flagged so callers never mistake it for a
// real payment. Clients retrying after a timeout resend the same
// idempotency key so at most one transfer happens.
func (h *Handler) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WalletAddress  string `json:"walletAddress"`
		Amount         int64  `json:"amount"`
		IdempotencyKey string `json:"idempotencyKey"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	receipt, err := h.svc.Withdraw(r.Context(), req.WalletAddress, req.Amount, req.IdempotencyKey)
	if err != nil {
		h.respondError(w, err)
		return
	}
	resp := map[string]any{
		"withdrawn":        receipt.Withdrawn,
		"remainingBalance": receipt.RemainingBalance,
		"simulated":        receipt.Simulated,
	}
	if receipt.TxID != "" {
		resp["txId"] = receipt.TxID
	}
	h.respond(w, http.StatusOK, resp)
}

// handleBalance reads the legacy dev balance.
func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.svc.Balance(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]int64{"balance": balance})
}

// handleFundBalance is the dev faucet; mounted outside prod only.
func (h *Handler) handleFundBalance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WalletAddress string `json:"walletAddress"`
		Amount        int64  `json:"amount"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	balance, err := h.svc.FundBalance(r.Context(), req.WalletAddress, req.Amount)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]int64{"balance": balance})
}
