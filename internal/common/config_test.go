package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Port != 8085 {
		t.Errorf("default port = %d, want 8085", cfg.Server.Port)
	}
	if cfg.DMV.FormURL == "" {
		t.Error("default form URL is empty")
	}
	if cfg.Automation.Concurrency != 2 {
		t.Errorf("default concurrency = %d, want 2", cfg.Automation.Concurrency)
	}
	if !cfg.Automation.Headless {
		t.Error("default headless = false, want true")
	}
}

func TestLoadFromFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "libero.toml")

	content := `
environment = "production"

[server]
port = 9090

[dmv]
form_url = "https://dmv.example/form"
step_timeout = "45s"

[dmv.seller]
name = "Acme Motors"
state = "CA"

[automation]
concurrency = 3
submit_interval = "1500ms"

[monitor]
stale_after = "20m"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromFiles(path)
	if err != nil {
		t.Fatalf("LoadFromFiles: %v", err)
	}

	if cfg.Environment != "production" {
		t.Errorf("environment = %q", cfg.Environment)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.DMV.FormURL != "https://dmv.example/form" {
		t.Errorf("form_url = %q", cfg.DMV.FormURL)
	}
	if cfg.DMV.StepTimeout.Std() != 45*time.Second {
		t.Errorf("step_timeout = %v, want 45s", cfg.DMV.StepTimeout.Std())
	}
	if cfg.Automation.SubmitInterval.Std() != 1500*time.Millisecond {
		t.Errorf("submit_interval = %v, want 1.5s", cfg.Automation.SubmitInterval.Std())
	}
	if cfg.Monitor.StaleAfter.Std() != 20*time.Minute {
		t.Errorf("stale_after = %v, want 20m", cfg.Monitor.StaleAfter.Std())
	}
	if cfg.DMV.Seller.Name != "Acme Motors" {
		t.Errorf("seller name = %q", cfg.DMV.Seller.Name)
	}
	if cfg.Automation.Concurrency != 3 {
		t.Errorf("concurrency = %d, want 3", cfg.Automation.Concurrency)
	}

	// Unset sections keep their defaults
	if cfg.Storage.Badger.Path == "" {
		t.Error("badger path lost its default")
	}
}

func TestLoadFromFilesRejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "libero.toml")
	content := `
[dmv]
step_timeout = "soon"

[dmv.seller]
name = "Acme Motors"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := LoadFromFiles(path); err == nil {
		t.Fatal("expected error for unparsable duration string")
	}
}

func TestLoadFromFilesLaterFileWins(t *testing.T) {
	dir := t.TempDir()

	first := filepath.Join(dir, "first.toml")
	os.WriteFile(first, []byte("[server]\nport = 7000\nhost = \"0.0.0.0\"\n\n[dmv.seller]\nname = \"Acme Motors\"\n"), 0644)

	second := filepath.Join(dir, "second.toml")
	os.WriteFile(second, []byte("[server]\nport = 7001\n"), 0644)

	cfg, err := LoadFromFiles(first, second)
	if err != nil {
		t.Fatalf("LoadFromFiles: %v", err)
	}

	if cfg.Server.Port != 7001 {
		t.Errorf("port = %d, want 7001 (second file wins)", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("host = %q, want value from first file", cfg.Server.Host)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LIBERO_PORT", "8200")
	t.Setenv("LIBERO_HEADLESS", "false")
	t.Setenv("LIBERO_DMV_FORM_URL", "https://dmv.example/alt")

	// The seller identity has no env override and must come from a file
	path := filepath.Join(t.TempDir(), "libero.toml")
	os.WriteFile(path, []byte("[dmv.seller]\nname = \"Acme Motors\"\n"), 0644)

	cfg, err := LoadFromFiles(path)
	if err != nil {
		t.Fatalf("LoadFromFiles: %v", err)
	}

	if cfg.Server.Port != 8200 {
		t.Errorf("port = %d, want 8200", cfg.Server.Port)
	}
	if cfg.Automation.Headless {
		t.Error("headless not overridden to false")
	}
	if cfg.DMV.FormURL != "https://dmv.example/alt" {
		t.Errorf("form_url = %q", cfg.DMV.FormURL)
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := DefaultConfig()

	ApplyFlagOverrides(cfg, 9999, "example.local")
	if cfg.Server.Port != 9999 || cfg.Server.Host != "example.local" {
		t.Errorf("flag overrides not applied: %+v", cfg.Server)
	}

	ApplyFlagOverrides(cfg, 0, "")
	if cfg.Server.Port != 9999 || cfg.Server.Host != "example.local" {
		t.Error("zero-value flags must not override")
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing seller name", func(c *Config) { c.DMV.Seller.Name = "" }},
		{"missing form url", func(c *Config) { c.DMV.FormURL = "" }},
		{"malformed form url", func(c *Config) { c.DMV.FormURL = "not-a-url" }},
		{"concurrency too high", func(c *Config) { c.Automation.Concurrency = 9 }},
		{"concurrency zero", func(c *Config) { c.Automation.Concurrency = 0 }},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.DMV.Seller.Name = "Acme Motors"
			tt.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
