package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hrvisionhq/visionagent/internal/agent"
	"github.com/hrvisionhq/visionagent/internal/approval"
	"github.com/hrvisionhq/visionagent/internal/config"
	"github.com/hrvisionhq/visionagent/internal/outbox"
	"github.com/hrvisionhq/visionagent/internal/providers"
	"github.com/hrvisionhq/visionagent/internal/store"
	"github.com/hrvisionhq/visionagent/internal/store/pg"
	"github.com/hrvisionhq/visionagent/internal/store/sqlite"
	"github.com/hrvisionhq/visionagent/internal/telegram"
	"github.com/hrvisionhq/visionagent/internal/tracing"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Execute one agent cycle and exit",
		Run: func(cmd *cobra.Command, args []string) {
			runOnce()
		},
	}
}

func runOnce() {
	setupLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := executeRun(ctx); err != nil {
		if errors.Is(err, telegram.ErrNotAuthorized) {
			slog.Error("stored session is missing or expired; create one with an interactive login and store it in the sessions table")
		} else {
			slog.Error("run failed", "error", err)
		}
		os.Exit(1)
	}
}

// executeRun wires the full stack and runs one agent cycle inside a live
// Telegram connection.
func executeRun(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	shutdownTracing, err := tracing.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			slog.Warn("tracing shutdown", "error", err)
		}
	}()

	stores, err := openStores(cfg)
	if err != nil {
		return err
	}

	client := telegram.NewMTProto(telegram.Options{
		APIID:   cfg.Telegram.APIID,
		APIHash: cfg.Telegram.APIHash,
		Session: &telegram.StoreSession{
			AgentName: cfg.Agent.Name,
			Sessions:  stores.Sessions,
		},
		DeviceModel:   cfg.Telegram.DeviceModel,
		SystemVersion: cfg.Telegram.SystemVersion,
		AppVersion:    cfg.Telegram.AppVersion,
	})

	llm := providers.NewGeminiClient(cfg.Models.APIKey, cfg.Models.APIBase)
	sink := approval.NewClient(cfg.Approval.URL)
	dispatcher := outbox.NewDispatcher(*stores, client, slog.Default())

	runner := agent.NewRunner(*stores, client, llm, sink, dispatcher, agent.Config{
		RouterModel:    cfg.Models.Router,
		GeneratorModel: cfg.Models.Generator,
		ContextWindow:  cfg.Agent.ContextWindow,
		ExampleLimit:   cfg.Agent.ExampleLimit,
		ReplyCooldown:  time.Duration(cfg.Agent.ReplyCooldown),
	}, slog.Default())

	return client.Run(ctx, runner.Run)
}

// openStores builds the storage backend selected by config. Postgres is the
// production backend; SQLite serves standalone and development setups.
func openStores(cfg *config.Config) (*store.Stores, error) {
	storeCfg := store.Config{
		Driver:      cfg.Database.Driver,
		PostgresDSN: cfg.Database.PostgresDSN,
		SQLitePath:  cfg.Database.SQLitePath,
	}
	switch storeCfg.Driver {
	case "postgres":
		stores, err := pg.NewStores(storeCfg)
		if err != nil {
			return nil, fmt.Errorf("open postgres stores: %w", err)
		}
		return stores, nil
	case "sqlite", "":
		stores, err := sqlite.NewStores(storeCfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite stores: %w", err)
		}
		return stores, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", storeCfg.Driver)
	}
}
