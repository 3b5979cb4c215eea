package httpadapter

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"reachpay/internal/core/domain"
	"reachpay/internal/core/port"
)

// Handler contains dependencies and routes. It is an inbound adapter for
// HTTP. It holds the ledger usecase to execute business logic and a
// logger for structured logging. Routes are registered on a chi.Router.
type Handler struct {
	svc    port.LedgerUseCase
	logger *slog.Logger
	router chi.Router
}

// NewHandler creates a handler with all routes configured. devMode
// additionally mounts the faucet endpoint.
func NewHandler(svc port.LedgerUseCase, logger *slog.Logger, devMode bool) *Handler {
	h := &Handler{svc: svc, logger: logger}
	r := chi.NewRouter()

	r.Get("/health", h.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/user/register", h.handleRegisterUser)
		r.Get("/user/{address}", h.handleGetUser)

		r.Post("/x/connect", h.handleConnectSocial)
		r.Post("/x/disconnect", h.handleDisconnectSocial)
		r.Get("/x/status/{address}", h.handleSocialStatus)

		r.Post("/campaign/create", h.handleCreateCampaign)
		r.Get("/campaign/{id}/status", h.handleCampaignStatus)
		r.Get("/campaigns/active", h.handleActiveCampaigns)
		r.Get("/campaigns/brand/{address}", h.handleBrandCampaigns)
		r.Post("/campaign/{id}/cancel", h.handleCancelCampaign)
		r.Post("/campaign/{id}/apply", h.handleApply)
		r.Get("/campaign/{id}/applications", h.handleCampaignApplications)

		r.Put("/application/{id}/status", h.handleDecideApplication)
		r.Post("/application/{id}/submit-tweet", h.handleSubmitTweet)

		r.Post("/metrics/update", h.handleReportMetrics)

		r.Get("/creator/earnings/{address}", h.handleEarnings)
		r.Get("/creator/applications/{address}", h.handleCreatorApplications)
		r.Post("/creator/withdraw", h.handleWithdraw)

		r.Get("/balance/{address}", h.handleBalance)

		if devMode {
			r.Post("/dev/fund", h.handleFundBalance)
		}
	})
	h.router = r
	return h
}

// Router returns the underlying http.Handler.
func (h *Handler) Router() http.Handler {
	return h.router
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h.respond(w, http.StatusOK, map[string]string{"status": "ok", "service": "reachpay ledger"})
}

// respond writes the {success, data} envelope the original API used.
func (h *Handler) respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data}); err != nil {
		h.logger.Error("encode response error", slog.Any("error", err))
	}
}

// respondError maps a domain error kind to an HTTP status and writes the
// {success: false, error} envelope. Unknown errors are logged and
// reported as a generic internal error so stack traces never leak.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	payload := map[string]any{"success": false, "error": err.Error()}

	var insufficientFunds *domain.InsufficientFundsError
	var insufficientBalance *domain.InsufficientBalanceError
	var monotonicity *domain.MonotonicityError

	switch {
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrCampaignNotFound),
		errors.Is(err, domain.ErrApplicationNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrRoleConflict),
		errors.Is(err, domain.ErrDuplicateApplication),
		errors.Is(err, domain.ErrAlreadyDecided),
		errors.Is(err, domain.ErrAlreadyInactive),
		errors.Is(err, domain.ErrIdempotencyConflict):
		status = http.StatusConflict
	case errors.As(err, &insufficientFunds):
		status = http.StatusBadRequest
		payload["required"] = insufficientFunds.Required
		payload["available"] = insufficientFunds.Available
		payload["escrowAddress"] = insufficientFunds.EscrowAddress
	case errors.As(err, &insufficientBalance):
		status = http.StatusBadRequest
		payload["requested"] = insufficientBalance.Requested
		payload["available"] = insufficientBalance.Available
	case errors.As(err, &monotonicity),
		errors.Is(err, domain.ErrCampaignInactive),
		errors.Is(err, domain.ErrInvalidRole),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrNotLinked),
		errors.Is(err, domain.ErrNotApproved),
		errors.Is(err, domain.ErrMissingTweet),
		errors.Is(err, domain.ErrMissingUsername),
		errors.Is(err, domain.ErrMissingAddress):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrEscrowUnderfunded),
		errors.Is(err, domain.ErrTransferFailed):
		status = http.StatusBadGateway
	default:
		h.logger.Error("internal error", slog.Any("error", err))
		payload["error"] = "internal error"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("encode response error", slog.Any("error", err))
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return false
	}
	return true
}
