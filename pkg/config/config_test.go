package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dtnitsch/placeshelf/models"
)

// clearEnv blanks every variable Load reads so the host environment does not leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "PLACES_API_KEY", "GOOGLE_MAPS_API_KEY", "PLACES_BASE_URL", "CHROME_PATH",
		"HEADLESS", "BROWSER_IDLE_TIMEOUT_MS", "NAVIGATION_TIMEOUT_MS", "PLACES_BURST",
		"PLACESHELF_DB", "PLACESHELF_CACHE_DIR",
	} {
		t.Setenv(key, "")
	}
	// Run in an empty directory so no .env or default YAML file is picked up.
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Environment != models.EnvDevelopment {
		t.Errorf("Environment = %q", cfg.Environment)
	}
	if cfg.Browser.IdleTimeout != 60*time.Second || cfg.Browser.CheckInterval != 10*time.Second {
		t.Errorf("browser timers = %v / %v", cfg.Browser.IdleTimeout, cfg.Browser.CheckInterval)
	}
	if cfg.Dedupe.ThresholdMeters != 50 {
		t.Errorf("ThresholdMeters = %v", cfg.Dedupe.ThresholdMeters)
	}
	if !cfg.Browser.Headless {
		t.Error("Headless should default to true")
	}
	if cfg.Expander.CacheTTL != 24*time.Hour {
		t.Errorf("CacheTTL = %v", cfg.Expander.CacheTTL)
	}
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "custom.yaml")
	yamlDoc := `
environment: production
places:
  api_key: from-yaml
  requests_per_second: 1
browser:
  exec_path: /usr/bin/chromium
  idle_timeout: 2m
dedupe:
  threshold_meters: 75
`
	if err := os.WriteFile(path, []byte(yamlDoc), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GOOGLE_MAPS_API_KEY", "from-env")
	t.Setenv("HEADLESS", "false")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Environment != models.EnvProduction {
		t.Errorf("Environment = %q", cfg.Environment)
	}
	if cfg.Places.APIKey != "from-env" {
		t.Errorf("APIKey = %q, want env to win", cfg.Places.APIKey)
	}
	if cfg.Places.RequestsPerSecond != 1 {
		t.Errorf("RequestsPerSecond = %v", cfg.Places.RequestsPerSecond)
	}
	if cfg.Places.Burst != 2 {
		t.Errorf("Burst = %d, want default kept", cfg.Places.Burst)
	}
	if cfg.Browser.ExecPath != "/usr/bin/chromium" || cfg.Browser.IdleTimeout != 2*time.Minute {
		t.Errorf("browser = %+v", cfg.Browser)
	}
	if cfg.Browser.Headless {
		t.Error("HEADLESS=false should disable headless mode")
	}
	if cfg.Dedupe.ThresholdMeters != 75 {
		t.Errorf("ThresholdMeters = %v", cfg.Dedupe.ThresholdMeters)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("PLACES_API_KEY")
	os.Unsetenv("GOOGLE_MAPS_API_KEY")

	if err := os.WriteFile(".env", []byte("PLACES_API_KEY=dotenv-key\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("PLACES_API_KEY") })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Places.APIKey != "dotenv-key" {
		t.Errorf("APIKey = %q, want value from .env", cfg.Places.APIKey)
	}
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for explicit missing file")
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("environment: [oops"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Error("expected parse error")
	}

	t.Setenv("APP_ENV", "staging")
	if _, err := Load(""); err == nil {
		t.Error("expected error for unknown environment")
	}
}
