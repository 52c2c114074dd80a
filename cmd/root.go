package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hrvisionhq/visionagent/internal/config"
)

// Version is set at build time via -ldflags "-X github.com/hrvisionhq/visionagent/cmd.Version=v1.0.0"
var Version = "dev"

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "visionagent",
	Short: "Vision Agent — automated Telegram engagement agent",
	Long:  "Vision Agent watches configured Telegram chats, proposes AI-generated replies and lead outreach for human approval, and delivers approved actions.",
	Run: func(cmd *cobra.Command, args []string) {
		runOnce()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: config.json or $VISION_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(daemonCmd())
	rootCmd.AddCommand(chatsCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(versionCmd())
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("visionagent %s\n", Version)
		},
	}
}

func resolveConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if v := os.Getenv("VISION_CONFIG"); v != "" {
		return v
	}
	return "config.json"
}

// loadConfig reads .env (developer convenience; production sets real env
// vars), then the config file plus env overrides.
func loadConfig() (*config.Config, error) {
	_ = godotenv.Load()
	return config.Load(resolveConfigPath())
}

func setupLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// Execute runs the root cobra command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
