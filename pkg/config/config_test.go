package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("failed to load defaults: %v", err)
	}

	if cfg.AppDir != "/opt/app" {
		t.Errorf("unexpected app dir: %s", cfg.AppDir)
	}
	if cfg.Retry.MaxAttempts != 5 {
		t.Errorf("unexpected retry budget: %d", cfg.Retry.MaxAttempts)
	}
	if cfg.Poll.StateIterations != 60 {
		t.Errorf("unexpected poll bound: %d", cfg.Poll.StateIterations)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing config file must not be fatal: %v", err)
	}
	if cfg.Port != 8000 {
		t.Errorf("unexpected port: %d", cfg.Port)
	}
}

func TestLoad_FileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
app_dir: /srv/weather
service_user: weather
port: 9100
packages: [python3, python3-venv]
retry:
  max_attempts: 3
  initial_delay: 1s
  multiplier: 2
  max_delay: 10s
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}

	if cfg.AppDir != "/srv/weather" {
		t.Errorf("unexpected app dir: %s", cfg.AppDir)
	}
	if cfg.Port != 9100 {
		t.Errorf("unexpected port: %d", cfg.Port)
	}
	if cfg.Retry.MaxAttempts != 3 {
		t.Errorf("unexpected retry budget: %d", cfg.Retry.MaxAttempts)
	}
	if cfg.Retry.InitialDelay != time.Second {
		t.Errorf("unexpected initial delay: %v", cfg.Retry.InitialDelay)
	}
	// Untouched keys keep defaults.
	if cfg.Host != "0.0.0.0" {
		t.Errorf("unexpected host: %s", cfg.Host)
	}
}

func TestLoad_EnvOverridesWin(t *testing.T) {
	t.Setenv("APP_DIR", "/opt/override")
	t.Setenv("SERVICE_USER", "deploy")
	t.Setenv("PORT", "9999")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}

	if cfg.AppDir != "/opt/override" {
		t.Errorf("APP_DIR override ignored: %s", cfg.AppDir)
	}
	if cfg.ServiceUser != "deploy" {
		t.Errorf("SERVICE_USER override ignored: %s", cfg.ServiceUser)
	}
	if cfg.Port != 9999 {
		t.Errorf("PORT override ignored: %d", cfg.Port)
	}
}

func TestLoad_ValidationRejectsBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("port: 99999\n"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for out-of-range port")
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("app_dir: [unterminated\n"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}
