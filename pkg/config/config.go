// Package config loads runtime settings from .env, an optional YAML file and
// the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dtnitsch/placeshelf/models"
)

// DefaultFile is read when no config path is given; it may be absent.
const DefaultFile = "placeshelf.yaml"

// Default returns the configuration used when nothing overrides it.
func Default() *models.Config {
	return &models.Config{
		Environment: models.EnvDevelopment,
		Places: models.PlacesConfig{
			BaseURL:           "https://places.googleapis.com",
			Timeout:           10 * time.Second,
			RequestsPerSecond: 5,
			Burst:             2,
		},
		Browser: models.BrowserConfig{
			Headless:          true,
			IdleTimeout:       60 * time.Second,
			CheckInterval:     10 * time.Second,
			LaunchTimeout:     30 * time.Second,
			NavigationTimeout: 30 * time.Second,
		},
		Expander: models.ExpanderConfig{
			Timeout:  10 * time.Second,
			CacheDir: defaultCacheDir(),
			CacheTTL: 24 * time.Hour,
		},
		Dedupe: models.DedupeConfig{
			ThresholdMeters: 50,
		},
	}
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ".placeshelf-cache"
	}
	return dir + string(os.PathSeparator) + "placeshelf"
}

// Load builds the configuration: defaults, then the YAML file, then the
// environment (including values from .env). An explicit path that does not
// exist is an error; the default file is optional.
func Load(path string) (*models.Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	file := path
	if file == "" {
		file = DefaultFile
	}
	data, err := os.ReadFile(file)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", file, err)
		}
	case errors.Is(err, os.ErrNotExist) && path == "":
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", file, err)
	}

	applyEnv(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *models.Config) {
	cfg.Environment = valueOrDefault(os.Getenv("APP_ENV"), cfg.Environment)
	cfg.Places.APIKey = valueOrDefault(os.Getenv("PLACES_API_KEY"), cfg.Places.APIKey)
	cfg.Places.APIKey = valueOrDefault(os.Getenv("GOOGLE_MAPS_API_KEY"), cfg.Places.APIKey)
	cfg.Places.BaseURL = valueOrDefault(os.Getenv("PLACES_BASE_URL"), cfg.Places.BaseURL)
	cfg.Browser.ExecPath = valueOrDefault(os.Getenv("CHROME_PATH"), cfg.Browser.ExecPath)
	cfg.Browser.Headless = parseBoolEnv("HEADLESS", cfg.Browser.Headless)
	cfg.Browser.IdleTimeout = parseDurationEnv("BROWSER_IDLE_TIMEOUT_MS", cfg.Browser.IdleTimeout)
	cfg.Browser.NavigationTimeout = parseDurationEnv("NAVIGATION_TIMEOUT_MS", cfg.Browser.NavigationTimeout)
	cfg.Places.Burst = parseIntEnv("PLACES_BURST", cfg.Places.Burst)
	cfg.Database.Path = valueOrDefault(os.Getenv("PLACESHELF_DB"), cfg.Database.Path)
	cfg.Expander.CacheDir = valueOrDefault(os.Getenv("PLACESHELF_CACHE_DIR"), cfg.Expander.CacheDir)
}

// Validate rejects settings the pipeline cannot run with.
func Validate(cfg *models.Config) error {
	switch cfg.Environment {
	case models.EnvProduction, models.EnvDevelopment:
	default:
		return fmt.Errorf("invalid environment %q: must be %s or %s", cfg.Environment, models.EnvProduction, models.EnvDevelopment)
	}
	if cfg.Dedupe.ThresholdMeters <= 0 {
		return fmt.Errorf("dedupe threshold must be positive, got %v", cfg.Dedupe.ThresholdMeters)
	}
	if cfg.Browser.CheckInterval <= 0 || cfg.Browser.IdleTimeout <= 0 {
		return fmt.Errorf("browser idle timeout and check interval must be positive")
	}
	return nil
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}

func parseDurationEnv(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	ms, err := strconv.Atoi(value)
	if err != nil || ms < 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

func parseIntEnv(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func parseBoolEnv(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return b
}
