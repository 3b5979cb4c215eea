// Package oracle polls the external metrics provider for every tracked
// post on an active campaign and feeds the numbers into metrics
// ingestion. Reports are applied in submission order per campaign; the
// monotonic check inside ingestion is the safety net against regressive
// or duplicate provider output.
package oracle

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"reachpay/internal/core/domain"
	"reachpay/internal/core/port"
)

// Poller drives periodic metrics ingestion.
type Poller struct {
	ledger   port.LedgerUseCase
	repo     port.LedgerRepository
	provider port.MetricsProvider
	interval time.Duration
	logger   *slog.Logger
}

// NewPoller returns a poller ticking at the given interval.
func NewPoller(ledger port.LedgerUseCase, repo port.LedgerRepository, provider port.MetricsProvider, interval time.Duration, logger *slog.Logger) *Poller {
	return &Poller{ledger: ledger, repo: repo, provider: provider, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled, polling once per interval.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("oracle poller started", slog.Duration("interval", p.interval))
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("oracle poller stopped")
			return
		case <-ticker.C:
			p.pollOnce(ctx)
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context) {
	posts, err := p.repo.ListTrackedPosts(ctx)
	if err != nil {
		p.logger.Error("listing tracked posts", slog.Any("error", err))
		return
	}
	for _, post := range posts {
		views, likes, err := p.provider.FetchMetrics(ctx, post.TweetID)
		if err != nil {
			p.logger.Warn("metrics fetch failed",
				slog.String("campaign", post.CampaignID), slog.Any("error", err))
			continue
		}
		// Skip reports that cannot move anything.
		if views <= post.Views && likes <= post.Likes {
			continue
		}
		if _, err = p.ledger.ReportMetrics(ctx, post.CampaignID, views, likes); err != nil {
			// A regressive provider value is expected noise, not a fault.
			var mono *domain.MonotonicityError
			if errors.As(err, &mono) || errors.Is(err, domain.ErrCampaignInactive) {
				p.logger.Warn("metrics report rejected",
					slog.String("campaign", post.CampaignID), slog.Any("error", err))
				continue
			}
			p.logger.Error("metrics report failed",
				slog.String("campaign", post.CampaignID), slog.Any("error", err))
		}
	}
}
