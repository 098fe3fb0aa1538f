// Package config loads settings for the site and the terminal CLI.
//
// Sources, lowest priority first: built-in defaults, an optional YAML
// file, environment variables, and explicitly set command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// DefaultFile is read from the working directory when no file is given.
const DefaultFile = "portfolio.yaml"

type Config struct {
	Port         int    `koanf:"port"`
	Mode         string `koanf:"mode"`
	ResumePath   string `koanf:"resume_path"`
	DatabasePath string `koanf:"database_path"`
	Format       string `koanf:"format"`
	HistoryFile  string `koanf:"history_file"`

	Log       LogConfig       `koanf:"log"`
	SMTP      SMTPConfig      `koanf:"smtp"`
	Admin     AdminConfig     `koanf:"admin"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`

	// RetentionDays is how long visits and terminal queries are kept.
	RetentionDays int `koanf:"retention_days"`

	// File is the config file that was loaded, if any.
	File string `koanf:"-"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type SMTPConfig struct {
	Host string `koanf:"host"`
	Port string `koanf:"port"`
	User string `koanf:"user"`
	Pass string `koanf:"pass"`
	To   string `koanf:"to"`
}

// Enabled reports whether contact messages can be mailed.
func (s SMTPConfig) Enabled() bool {
	return s.User != "" && s.Pass != ""
}

type AdminConfig struct {
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

type RateLimitConfig struct {
	PerMinute int `koanf:"per_minute"`
	Burst     int `koanf:"burst"`
}

func defaults() map[string]any {
	return map[string]any{
		"port":                  8080,
		"mode":                  "release",
		"resume_path":           "",
		"database_path":         "portfolio.db",
		"format":                "table",
		"history_file":          "",
		"log.level":             "info",
		"log.format":            "text",
		"smtp.host":             "smtp.gmail.com",
		"smtp.port":             "587",
		"admin.username":        "admin",
		"rate_limit.per_minute": 60,
		"rate_limit.burst":      20,
		"retention_days":        365,
	}
}

// envKeys maps environment variables to config keys. Unlisted variables
// are ignored.
var envKeys = map[string]string{
	"PORT":                  "port",
	"GIN_MODE":              "mode",
	"RESUME_PATH":           "resume_path",
	"DATABASE_PATH":         "database_path",
	"OUTPUT_FORMAT":         "format",
	"HISTORY_FILE":          "history_file",
	"LOG_LEVEL":             "log.level",
	"LOG_FORMAT":            "log.format",
	"SMTP_HOST":             "smtp.host",
	"SMTP_PORT":             "smtp.port",
	"SMTP_USER":             "smtp.user",
	"SMTP_PASS":             "smtp.pass",
	"TO_EMAIL":              "smtp.to",
	"ADMIN_USERNAME":        "admin.username",
	"ADMIN_PASSWORD":        "admin.password",
	"RATE_LIMIT_PER_MINUTE": "rate_limit.per_minute",
	"RATE_LIMIT_BURST":      "rate_limit.burst",
	"RETENTION_DAYS":        "retention_days",
}

// flagKeys maps flag names that do not follow the kebab-to-snake rule.
var flagKeys = map[string]string{
	"output":    "format",
	"log-level": "log.level",
	"database":  "database_path",
	"resume":    "resume_path",
}

// Load reads configuration. path may be empty, in which case DefaultFile
// is used if it exists. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	used := path
	if used == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			used = DefaultFile
		}
	}
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", used, err)
		}
	}

	if err := k.Load(env.Provider("", ".", func(s string) string {
		return envKeys[s]
	}), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed || f.Name == "config" {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = used

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var (
	validFormats   = []string{"table", "json", "csv", "markdown", "html"}
	validLogLevels = []string{"debug", "info", "warn", "error"}
	validModes     = []string{"debug", "release", "test"}
)

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if !oneOf(c.Format, validFormats) {
		errs = append(errs, fmt.Errorf("format %q must be one of %s", c.Format, strings.Join(validFormats, ", ")))
	}
	if !oneOf(strings.ToLower(c.Log.Level), validLogLevels) {
		errs = append(errs, fmt.Errorf("log level %q must be one of %s", c.Log.Level, strings.Join(validLogLevels, ", ")))
	}
	if !oneOf(c.Mode, validModes) {
		errs = append(errs, fmt.Errorf("mode %q must be one of %s", c.Mode, strings.Join(validModes, ", ")))
	}
	if c.RateLimit.PerMinute <= 0 || c.RateLimit.Burst <= 0 {
		errs = append(errs, errors.New("rate_limit.per_minute and rate_limit.burst must be positive"))
	}
	if c.RetentionDays <= 0 {
		errs = append(errs, errors.New("retention_days must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func oneOf(s string, options []string) bool {
	return slices.Contains(options, s)
}
