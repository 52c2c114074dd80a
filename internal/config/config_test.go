package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "no-such.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Agent.ContextWindow != 7 || cfg.Agent.ExampleLimit != 10 {
		t.Errorf("pipeline defaults = %d/%d", cfg.Agent.ContextWindow, cfg.Agent.ExampleLimit)
	}
	if time.Duration(cfg.Agent.ReplyCooldown) != time.Hour {
		t.Errorf("reply cooldown = %v", time.Duration(cfg.Agent.ReplyCooldown))
	}
	if cfg.Models.Router != "gemini-2.5-flash" || cfg.Models.Generator != "gemini-2.5-pro" {
		t.Errorf("model defaults = %q/%q", cfg.Models.Router, cfg.Models.Generator)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("driver = %q, want sqlite when no DSN set", cfg.Database.Driver)
	}
}

func TestLoadFileAndEnvOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{
		// JSON5: comments and trailing commas are fine.
		agent: {
			context_window: 5,
			reply_cooldown: "30m",
		},
		models: { router: "from-file" },
	}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("VISION_ROUTER_MODEL", "from-env")
	t.Setenv("VISION_TELEGRAM_API_ID", "12345")
	t.Setenv("VISION_POSTGRES_DSN", "postgres://localhost/vision")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Agent.ContextWindow != 5 {
		t.Errorf("context window = %d, want file value 5", cfg.Agent.ContextWindow)
	}
	if time.Duration(cfg.Agent.ReplyCooldown) != 30*time.Minute {
		t.Errorf("reply cooldown = %v", time.Duration(cfg.Agent.ReplyCooldown))
	}
	if cfg.Models.Router != "from-env" {
		t.Errorf("router = %q, env must win over file", cfg.Models.Router)
	}
	if cfg.Telegram.APIID != 12345 {
		t.Errorf("api id = %d", cfg.Telegram.APIID)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("driver = %q, want postgres when DSN set", cfg.Database.Driver)
	}
}

func TestValidateListsAllMissing(t *testing.T) {
	cfg := Default()
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for empty secrets")
	}
	for _, want := range []string{
		"VISION_TELEGRAM_API_ID",
		"VISION_TELEGRAM_API_HASH",
		"VISION_GEMINI_API_KEY",
		"VISION_APPROVAL_URL",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("validation error missing %s: %v", want, err)
		}
	}
}

func TestValidatePasses(t *testing.T) {
	cfg := Default()
	cfg.Telegram.APIID = 1
	cfg.Telegram.APIHash = "hash"
	cfg.Models.APIKey = "key"
	cfg.Approval.URL = "https://example.com/hook"
	cfg.Database.Driver = "sqlite"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}
