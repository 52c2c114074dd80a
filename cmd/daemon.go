package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adhocore/gronx"
	"github.com/spf13/cobra"

	"github.com/hrvisionhq/visionagent/internal/telegram"
)

func daemonCmd() *cobra.Command {
	var cronExpr string
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run agent cycles on a cron schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cronExpr)
		},
	}
	cmd.Flags().StringVar(&cronExpr, "cron", "", "cron expression (overrides config daemon.cron)")
	return cmd
}

// runDaemon ticks once a minute and starts a full agent cycle whenever the
// cron expression is due. Cycles run to completion; a tick that fires while
// a cycle is still in flight is skipped.
func runDaemon(cronExpr string) error {
	setupLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cronExpr == "" {
		cronExpr = daemonCronFromConfig()
	}
	gron := gronx.New()
	if !gron.IsValid(cronExpr) {
		return errors.New("invalid cron expression: " + cronExpr)
	}
	slog.Info("daemon started", "cron", cronExpr)

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("daemon stopped")
			return nil
		case <-ticker.C:
			due, err := gron.IsDue(cronExpr, time.Now())
			if err != nil {
				slog.Error("cron evaluation failed", "error", err)
				continue
			}
			if !due {
				continue
			}
			if err := executeRun(ctx); err != nil {
				if errors.Is(err, telegram.ErrNotAuthorized) {
					// No point ticking without a session; exit so the
					// operator notices.
					return err
				}
				slog.Error("scheduled run failed", "error", err)
			}
		}
	}
}

func daemonCronFromConfig() string {
	cfg, err := loadConfig()
	if err == nil && cfg.Daemon.Cron != "" {
		return cfg.Daemon.Cron
	}
	return "*/10 * * * *"
}
