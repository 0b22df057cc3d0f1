package models

import "time"

// Browser environments. Production hosts are constrained sandboxes.
const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

// Config holds runtime configuration. Values come from the YAML file,
// the environment and CLI flags, in that order of precedence (lowest first).
type Config struct {
	Environment string         `yaml:"environment"`
	Places      PlacesConfig   `yaml:"places"`
	Browser     BrowserConfig  `yaml:"browser"`
	Expander    ExpanderConfig `yaml:"expander"`
	Dedupe      DedupeConfig   `yaml:"dedupe"`
	Database    DatabaseConfig `yaml:"database"`
}

// PlacesConfig configures the structured place API client.
type PlacesConfig struct {
	APIKey            string        `yaml:"api_key"`
	BaseURL           string        `yaml:"base_url"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	DetectLanguage    bool          `yaml:"detect_language"`
}

// BrowserConfig configures the shared headless browser.
type BrowserConfig struct {
	ExecPath          string        `yaml:"exec_path"`
	Headless          bool          `yaml:"headless"`
	UserAgent         string        `yaml:"user_agent"`
	IdleTimeout       time.Duration `yaml:"idle_timeout"`
	CheckInterval     time.Duration `yaml:"check_interval"`
	LaunchTimeout     time.Duration `yaml:"launch_timeout"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
}

// ExpanderConfig configures short-link expansion.
type ExpanderConfig struct {
	Timeout  time.Duration `yaml:"timeout"`
	CacheDir string        `yaml:"cache_dir"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// DedupeConfig configures duplicate detection.
type DedupeConfig struct {
	ThresholdMeters float64 `yaml:"threshold_meters"`
}

// DatabaseConfig locates the SQLite store.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}
