package httpadapter

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"reachpay/internal/core/domain"
)

type applicationResponse struct {
	ApplicationID    string     `json:"applicationId"`
	CampaignID       string     `json:"campaignId"`
	CreatorAddress   string     `json:"creatorAddress"`
	ProposedContent  string     `json:"proposedContent"`
	Status           string     `json:"status"`
	TweetID          string     `json:"tweetId,omitempty"`
	TweetURL         string     `json:"tweetUrl,omitempty"`
	TweetSubmittedAt *time.Time `json:"tweetSubmittedAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

func toApplicationResponse(a *domain.Application) applicationResponse {
	return applicationResponse{
		ApplicationID:    a.ID,
		CampaignID:       a.CampaignID,
		CreatorAddress:   a.CreatorAddress,
		ProposedContent:  a.ProposedContent,
		Status:           string(a.Status),
		TweetID:          a.TweetID,
		TweetURL:         a.TweetURL,
		TweetSubmittedAt: a.TweetSubmittedAt,
		CreatedAt:        a.CreatedAt,
	}
}

func (h *Handler) handleApply(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WalletAddress   string `json:"walletAddress"`
		ProposedContent string `json:"proposedContent"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	app, err := h.svc.Apply(r.Context(), chi.URLParam(r, "id"), req.WalletAddress, req.ProposedContent)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusCreated, toApplicationResponse(app))
}

// handleCampaignApplications lists a campaign's applications. The
// requesting brand identifies itself via the walletAddress query
// parameter.
func (h *Handler) handleCampaignApplications(w http.ResponseWriter, r *http.Request) {
	requester := r.URL.Query().Get("walletAddress")
	apps, err := h.svc.CampaignApplications(r.Context(), chi.URLParam(r, "id"), requester)
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

func (h *Handler) handleDecideApplication(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WalletAddress string `json:"walletAddress"`
		Status        string `json:"status"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	app, err := h.svc.Decide(r.Context(), chi.URLParam(r, "id"), req.WalletAddress, domain.ApplicationStatus(req.Status))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, toApplicationResponse(app))
}

func (h *Handler) handleSubmitTweet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WalletAddress string `json:"walletAddress"`
		TweetID       string `json:"tweetId"`
		TweetURL      string `json:"tweetUrl"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	app, err := h.svc.SubmitTweet(r.Context(), chi.URLParam(r, "id"), req.WalletAddress, req.TweetID, req.TweetURL)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, toApplicationResponse(app))
}
