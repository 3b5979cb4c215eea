package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httpadapter "reachpay/internal/adapter/http"
	"reachpay/internal/adapter/oracle"
	"reachpay/internal/adapter/postgres"
	"reachpay/internal/adapter/settlement"
	"reachpay/internal/adapter/usecase"
	"reachpay/internal/config"
	"reachpay/internal/db"
)

func main() {
	root := &cobra.Command{
		Use:           "reachpay",
		Short:         "Campaign ledger and settlement engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), migrateCmd(), seedCmd(), reportCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.Log.JSON() {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

// buildService wires the repository, settlement client and ledger service
// from configuration. The caller owns the returned pool.
func buildService(ctx context.Context, cfg config.Config, logger *slog.Logger) (*usecase.LedgerService, *postgres.LedgerRepository, func(), error) {
	pool, err := db.NewPostgresPool(ctx, cfg.Psql)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("database connection: %w", err)
	}
	repo := postgres.NewLedgerRepository(pool)
	chain := settlement.NewClient(cfg.Chain.SettlementURL, cfg.Chain.RequestTimeout,
		cfg.Chain.MaxRetries, cfg.Chain.RetryDelay)
	svc := usecase.NewLedgerService(repo, chain, cfg.Chain, logger)
	return svc, repo, pool.Close, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and, if enabled, the oracle poller",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			logger := newLogger(cfg)

			if cfg.Psql.RunMigrations {
				if err = db.Migrate(cfg.Psql.Addr.String()); err != nil {
					logger.Error("migration error", slog.Any("error", err))
					return err
				}
				logger.Info("migrations applied successfully")
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			svc, repo, closePool, err := buildService(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closePool()

			// Close the crash window before taking traffic.
			if n, err := svc.ReconcileWithdrawals(ctx); err != nil {
				logger.Error("withdrawal reconciliation failed", slog.Any("error", err))
				return err
			} else if n > 0 {
				logger.Warn("reconciled withdrawals with missing debits", slog.Int("count", n))
			}

			if cfg.Oracle.Enabled && cfg.Oracle.MetricsURL != "" {
				provider := oracle.NewHTTPMetricsProvider(cfg.Oracle.MetricsURL, cfg.Chain.RequestTimeout)
				poller := oracle.NewPoller(svc, repo, provider, cfg.Oracle.Interval, logger)
				go poller.Run(ctx)
			}

			handler := httpadapter.NewHandler(svc, logger, cfg.Env != "prod")
			srv := &http.Server{
				Addr:    fmt.Sprintf(":%d", cfg.HTTP.Port),
				Handler: handler.Router(),
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("server listening", slog.Int("port", int(cfg.HTTP.Port)),
					slog.Bool("simulation_mode", cfg.Chain.Simulated()))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("server shutdown error", slog.Any("error", err))
				return err
			}
			logger.Info("server gracefully stopped")
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(*cobra.Command, []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return db.Migrate(cfg.Psql.Addr.String())
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert demo users, a campaign and an approved application",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			pool, err := db.NewPostgresPool(cmd.Context(), cfg.Psql)
			if err != nil {
				return err
			}
			defer pool.Close()
			return db.Seed(cmd.Context(), pool)
		},
	}
}

func reportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report <campaign-id> <views> <likes>",
		Short: "Manually report campaign metrics (the oracle's update verb)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			views, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid views: %w", err)
			}
			likes, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid likes: %w", err)
			}

			svc, _, closePool, err := buildService(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closePool()

			c, err := svc.ReportMetrics(cmd.Context(), args[0], views, likes)
			if err != nil {
				return err
			}
			fmt.Printf("campaign %s: views=%d likes=%d effective=%d totalPaid=%d escrow=%d\n",
				c.ID, c.Views, c.Likes, c.EffectiveViews(), c.TotalPaid, c.EscrowBalance())
			return nil
		},
	}
}
