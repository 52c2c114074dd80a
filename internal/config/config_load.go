package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/titanous/json5"
)

// Default returns a Config with sensible defaults. Model names mirror the
// production deployment; everything is overridable via file or env.
func Default() *Config {
	return &Config{
		Agent: AgentConfig{
			Name:          "vision_agent_session",
			ContextWindow: 7,
			ExampleLimit:  10,
			ReplyCooldown: Duration(time.Hour),
		},
		Telegram: TelegramConfig{
			DeviceModel:   "HR Vision Agent",
			SystemVersion: "Windows 11",
			AppVersion:    "1.0.0",
		},
		Models: ModelsConfig{
			Router:    "gemini-2.5-flash",
			Generator: "gemini-2.5-pro",
		},
		Database: DatabaseConfig{
			SQLitePath: defaultSQLitePath(),
		},
		Daemon: DaemonConfig{
			Cron: "*/10 * * * *",
		},
		Telemetry: TelemetryConfig{
			Protocol:    "http",
			ServiceName: "visionagent",
		},
	}
}

func defaultSQLitePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "visionagent.db"
	}
	return filepath.Join(home, ".visionagent", "agent.db")
}

// Load reads config from a JSON5 file, then overlays env vars.
// A missing file is not an error; env-only deployments are supported.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides overlays env vars onto the config.
// Env vars take precedence over file values; secrets live in env only.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	envStr("VISION_TELEGRAM_API_HASH", &c.Telegram.APIHash)
	if v := os.Getenv("VISION_TELEGRAM_API_ID"); v != "" {
		if id, err := strconv.Atoi(v); err == nil && id > 0 {
			c.Telegram.APIID = id
		}
	}

	envStr("VISION_GEMINI_API_KEY", &c.Models.APIKey)
	envStr("VISION_GEMINI_API_BASE", &c.Models.APIBase)
	envStr("VISION_ROUTER_MODEL", &c.Models.Router)
	envStr("VISION_GENERATOR_MODEL", &c.Models.Generator)

	envStr("VISION_APPROVAL_URL", &c.Approval.URL)

	envStr("VISION_POSTGRES_DSN", &c.Database.PostgresDSN)
	envStr("VISION_DB_DRIVER", &c.Database.Driver)
	envStr("VISION_SQLITE_PATH", &c.Database.SQLitePath)
	if c.Database.Driver == "" {
		if c.Database.PostgresDSN != "" {
			c.Database.Driver = "postgres"
		} else {
			c.Database.Driver = "sqlite"
		}
	}

	envStr("VISION_SESSION_NAME", &c.Agent.Name)
	envStr("VISION_CRON", &c.Daemon.Cron)

	envStr("VISION_TELEMETRY_ENDPOINT", &c.Telemetry.Endpoint)
	envStr("VISION_TELEMETRY_PROTOCOL", &c.Telemetry.Protocol)
	if v := os.Getenv("VISION_TELEMETRY_ENABLED"); v != "" {
		c.Telemetry.Enabled = v == "true" || v == "1"
	}
}
