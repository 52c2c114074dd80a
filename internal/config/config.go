package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Duration accepts Go duration strings ("1h", "30m") in JSON config.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*d = Duration(time.Duration(n) * time.Second)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Config is the root configuration for the agent.
type Config struct {
	Agent     AgentConfig     `json:"agent"`
	Telegram  TelegramConfig  `json:"telegram"`
	Models    ModelsConfig    `json:"models"`
	Database  DatabaseConfig  `json:"database"`
	Approval  ApprovalConfig  `json:"approval"`
	Daemon    DaemonConfig    `json:"daemon,omitempty"`
	Telemetry TelemetryConfig `json:"telemetry,omitempty"`
}

// AgentConfig tunes the decision pipeline.
type AgentConfig struct {
	Name          string   `json:"name"`           // session row key, also the agent's stored identity
	ContextWindow int      `json:"context_window"` // max prior messages fed to the generator
	ExampleLimit  int      `json:"example_limit"`  // approved/declined examples per persona prompt
	ReplyCooldown Duration `json:"reply_cooldown"` // minimum gap between public replies per chat
}

// TelegramConfig holds MTProto client settings. APIHash comes from env only.
type TelegramConfig struct {
	APIID         int    `json:"api_id"`
	APIHash       string `json:"-"` // from env VISION_TELEGRAM_API_HASH only
	DeviceModel   string `json:"device_model,omitempty"`
	SystemVersion string `json:"system_version,omitempty"`
	AppVersion    string `json:"app_version,omitempty"`
}

// ModelsConfig names the two-stage model pair. APIKey comes from env only.
type ModelsConfig struct {
	Router    string `json:"router"`    // fast classification model
	Generator string `json:"generator"` // quality generation model
	APIBase   string `json:"api_base,omitempty"`
	APIKey    string `json:"-"` // from env VISION_GEMINI_API_KEY only
}

// DatabaseConfig selects the storage backend.
// PostgresDSN is NEVER read from the config file — only from env VISION_POSTGRES_DSN.
type DatabaseConfig struct {
	Driver      string `json:"driver,omitempty"` // "postgres" (default when DSN set) or "sqlite"
	PostgresDSN string `json:"-"`
	SQLitePath  string `json:"sqlite_path,omitempty"`
}

// ApprovalConfig points at the external approval workflow.
type ApprovalConfig struct {
	URL string `json:"url,omitempty"` // overridable via env VISION_APPROVAL_URL
}

// DaemonConfig schedules repeated runs in daemon mode.
type DaemonConfig struct {
	Cron string `json:"cron,omitempty"` // standard 5-field cron expression
}

// TelemetryConfig enables OTLP trace export.
type TelemetryConfig struct {
	Enabled     bool   `json:"enabled,omitempty"`
	Endpoint    string `json:"endpoint,omitempty"`
	Protocol    string `json:"protocol,omitempty"` // "http" (default) or "grpc"
	ServiceName string `json:"service_name,omitempty"`
	Insecure    bool   `json:"insecure,omitempty"`
}

// Validate reports all missing required values at once, so a broken
// deployment fails with a single actionable message.
func (c *Config) Validate() error {
	var missing []string
	if c.Telegram.APIID == 0 {
		missing = append(missing, "VISION_TELEGRAM_API_ID")
	}
	if c.Telegram.APIHash == "" {
		missing = append(missing, "VISION_TELEGRAM_API_HASH")
	}
	if c.Models.APIKey == "" {
		missing = append(missing, "VISION_GEMINI_API_KEY")
	}
	if c.Approval.URL == "" {
		missing = append(missing, "VISION_APPROVAL_URL")
	}
	if c.Database.Driver == "postgres" && c.Database.PostgresDSN == "" {
		missing = append(missing, "VISION_POSTGRES_DSN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}
