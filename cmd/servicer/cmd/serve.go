package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/servicer/api"
	"github.com/rustyeddy/servicer/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve balances, ledgers and aging buckets over HTTP",
	Long: `Load the snapshot, reload it on the configured cron spec and answer
queries over HTTP until interrupted.

Routes:
  GET /healthz
  GET /parity?date=YYYY-MM-DD
  GET /report?date=YYYY-MM-DD
  GET /loans/{id}/balance?date=YYYY-MM-DD
  GET /loans/{id}/periods?date=YYYY-MM-DD
  GET /loans/{id}/schedule
  GET /metrics`,
	RunE: runServe,
}

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loader, err := store.Open(cfg.Source.Type, cfg.Source.DSN, logger)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer loader.Close()
	if err := loader.Ping(ctx); err != nil {
		return fmt.Errorf("ping source: %w", err)
	}

	balances, ledger, err := newEngines()
	if err != nil {
		return err
	}

	srv := api.NewServer(loader, balances, ledger, logger)
	srv.SetSource(cfg.Source.Type)
	if err := srv.Refresh(ctx); err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	if cfg.Server.Refresh != "" {
		c, err := srv.StartRefresh(ctx, cfg.Server.Refresh)
		if err != nil {
			return fmt.Errorf("schedule refresh: %w", err)
		}
		defer c.Stop()
		logger.WithField("spec", cfg.Server.Refresh).Info("snapshot refresh scheduled")
	}

	addr := orDefault(serveAddr, cfg.Server.Addr)
	return srv.ListenAndServe(ctx, addr)
}
