package common

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/dtnitsch/placeshelf/models"
	"github.com/dtnitsch/placeshelf/pkg/config"
	"github.com/dtnitsch/placeshelf/pkg/resolver"
)

// Exit codes. Pipeline failures are the user's input; anything else is the host.
const (
	ExitPipeline       = 1
	ExitInfrastructure = 2
)

// NewLogger builds the JSON stderr logger from the global --quiet/--verbose flags.
func NewLogger(c *cli.Context) *slog.Logger {
	logLevel := slog.LevelInfo
	if c.Bool("verbose") {
		logLevel = slog.LevelDebug
	}
	if c.Bool("quiet") {
		logLevel = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

// LoadConfig loads configuration and applies the global flag overrides.
func LoadConfig(c *cli.Context) (*models.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("db") {
		cfg.Database.Path = c.String("db")
	}
	if c.IsSet("api-key") {
		cfg.Places.APIKey = c.String("api-key")
	}
	if c.IsSet("env") {
		cfg.Environment = c.String("env")
		if err := config.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// ErrorType maps a pipeline error onto the short name stored in the resolution log.
func ErrorType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, resolver.ErrNotAMapLink):
		return "not_a_map_link"
	case errors.Is(err, resolver.ErrExpansionFailed):
		return "expansion_failed"
	case errors.Is(err, resolver.ErrUnresolvablePlace):
		return "unresolvable_place"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	}
	return "internal"
}

// ExitCode returns the process exit code for err.
func ExitCode(err error) int {
	switch ErrorType(err) {
	case "not_a_map_link", "expansion_failed", "unresolvable_place":
		return ExitPipeline
	}
	return ExitInfrastructure
}

// Marshal encodes v as YAML or indented JSON.
func Marshal(v any, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		return yaml.Marshal(v)
	case "", "json":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
	return nil, fmt.Errorf("unknown output format %q (use json or yaml)", format)
}

// WriteOutput marshals v in format and writes it to w.
func WriteOutput(w io.Writer, v any, format string) error {
	data, err := Marshal(v, format)
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// FilterFields keeps only the requested top-level JSON fields of result.
// An empty field list keeps everything.
func FilterFields(result any, fieldsStr string) map[string]any {
	full := structToMap(result)
	if strings.TrimSpace(fieldsStr) == "" {
		return full
	}

	filtered := make(map[string]any)
	for _, field := range strings.Split(fieldsStr, ",") {
		field = strings.TrimSpace(field)
		if v, ok := full[field]; ok {
			filtered[field] = v
		}
	}
	return filtered
}

// structToMap converts a struct to map[string]any using JSON marshaling.
func structToMap(obj any) map[string]any {
	data, _ := json.Marshal(obj)
	var result map[string]any
	_ = json.Unmarshal(data, &result)
	return result
}
