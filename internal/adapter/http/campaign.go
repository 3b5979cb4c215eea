package httpadapter

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"reachpay/internal/core/domain"
	"reachpay/internal/core/port"
)

type campaignResponse struct {
	CampaignID      string     `json:"campaignId"`
	Brand           string     `json:"brand"`
	EscrowAddress   string     `json:"escrowAddress"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	CPM             int64      `json:"cpm"`
	LikeWeight      int64      `json:"likeWeight"`
	MaxBudget       int64      `json:"maxBudget"`
	EscrowBalance   int64      `json:"escrowBalance"`
	Views           int64      `json:"views"`
	Likes           int64      `json:"likes"`
	EffectiveViews  int64      `json:"effectiveViews"`
	TotalPaid       int64      `json:"totalPaid"`
	RemainingPayout int64      `json:"remainingPayout"`
	IsActive        bool       `json:"isActive"`
	StartTime       time.Time  `json:"startTime"`
	EndTime         time.Time  `json:"endTime"`
	CancelledAt     *time.Time `json:"cancelledAt,omitempty"`
}

func toCampaignResponse(c *domain.Campaign) campaignResponse {
	return campaignResponse{
		CampaignID:      c.ID,
		Brand:           c.Brand,
		EscrowAddress:   c.EscrowAddress,
		Title:           c.Title,
		Description:     c.Description,
		CPM:             c.CPM,
		LikeWeight:      c.LikeWeight,
		MaxBudget:       c.MaxBudget,
		EscrowBalance:   c.EscrowBalance(),
		Views:           c.Views,
		Likes:           c.Likes,
		EffectiveViews:  c.EffectiveViews(),
		TotalPaid:       c.TotalPaid,
		RemainingPayout: c.RemainingPayout(),
		IsActive:        c.IsActive,
		StartTime:       c.StartTime,
		EndTime:         c.EndTime,
		CancelledAt:     c.CancelledAt,
	}
}

func toCampaignResponses(cs []domain.Campaign) []campaignResponse {
	out := make([]campaignResponse, 0, len(cs))
	for i := range cs {
		out = append(out, toCampaignResponse(&cs[i]))
	}
	return out
}

func (h *Handler) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WalletAddress string `json:"walletAddress"`
		Title         string `json:"title"`
		Description   string `json:"description"`
		CPM           int64  `json:"cpm"`
		LikeWeight    int64  `json:"likeWeight"`
		MaxBudget     int64  `json:"maxBudget"`
		DurationDays  int    `json:"durationDays"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.svc.CreateCampaign(r.Context(), port.CreateCampaignParams{
		Brand:        req.WalletAddress,
		Title:        req.Title,
		Description:  req.Description,
		CPM:          req.CPM,
		LikeWeight:   req.LikeWeight,
		MaxBudget:    req.MaxBudget,
		DurationDays: req.DurationDays,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusCreated, toCampaignResponse(c))
}

func (h *Handler) handleCampaignStatus(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.GetCampaign(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, toCampaignResponse(c))
}

func (h *Handler) handleActiveCampaigns(w http.ResponseWriter, r *http.Request) {
	cs, err := h.svc.ActiveCampaigns(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, toCampaignResponses(cs))
}

func (h *Handler) handleBrandCampaigns(w http.ResponseWriter, r *http.Request) {
	cs, err := h.svc.BrandCampaigns(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, toCampaignResponses(cs))
}

func (h *Handler) handleCancelCampaign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WalletAddress string `json:"walletAddress"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	refund, err := h.svc.CancelCampaign(r.Context(), chi.URLParam(r, "id"), req.WalletAddress)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]int64{"refundAmount": refund})
}

// handleReportMetrics is the manual metrics-update entry point; the
// oracle poller converges through the same usecase path.
func (h *Handler) handleReportMetrics(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CampaignID string `json:"campaignId"`
		Views      *int64 `json:"views"`
		Likes      *int64 `json:"likes"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	if req.CampaignID == "" || req.Views == nil || req.Likes == nil {
		http.Error(w, "missing required fields: campaignId, views, likes", http.StatusBadRequest)
		return
	}
	c, err := h.svc.ReportMetrics(r.Context(), req.CampaignID, *req.Views, *req.Likes)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, toCampaignResponse(c))
}
