package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dyluth/koorda/internal/printer"
	"github.com/dyluth/koorda/internal/telemetry"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the skill API and poll the Koordinator event feed",
	Long: `Start the skill service.

The service exposes:
  POST /v1/utterances             handle one voice turn
  POST /v1/sessions/{id}/end      end a conversation (queue released, snapshots purged)
  GET  /healthz                   snapshot store connectivity
  GET  /metrics                   Prometheus metrics

and polls the Koordinator bot event feed, routing each reply to the
conversation waiting for it. SIGINT or SIGTERM triggers a graceful shutdown.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := telemetry.NewLogger(cfg.LogConfig())
	if err != nil {
		return printer.Error("invalid logging output", err.Error(), []string{"Check logging.output in koorda.yml"})
	}

	a, err := newApp(cfg, logger, nil)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.pinger != nil {
		if err := a.pinger.Ping(ctx); err != nil {
			return printer.ErrorWithContext(
				"Redis connection failed",
				fmt.Sprintf("Could not connect to the snapshot store: %v", err),
				map[string]string{"Redis URL": cfg.Store.RedisURL},
				[]string{"Check store.redis_url", "Use the file backend:\n  store:\n    backend: file"},
			)
		}
	}

	logger.Info().
		Str("event", "koorda_starting").
		Str("version", version).
		Str("addr", cfg.Server.Addr).
		Str("store", cfg.Store.Backend).
		Str("namespace", cfg.Koordinator.Namespace).
		Msg("koorda starting")

	if err := a.run(ctx); err != nil {
		logger.Error().Err(err).Str("event", "koorda_failed").Msg("koorda stopped with an error")
		return err
	}

	logger.Info().Str("event", "koorda_stopped").Msg("koorda stopped")
	return nil
}
