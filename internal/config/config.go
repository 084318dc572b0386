// Package config loads the process-wide configuration (§6): a YAML file
// (teacher's gopkg.in/yaml.v3 pattern) layered under environment-variable
// overrides with the same keys, validated and defaulted before use.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/digitalfte/fte/internal/zone"
)

// Config is the fully-resolved, validated runtime configuration.
type Config struct {
	VaultPath             string        `yaml:"vault_path"`
	GmailCheckInterval    time.Duration `yaml:"-"`
	GmailCheckIntervalSec int           `yaml:"gmail_check_interval"`
	GmailFilter           string        `yaml:"gmail_filter"`
	AssistantModel        string        `yaml:"assistant_model"`
	LogLevel              string        `yaml:"log_level"`
	DailySendLimit        int           `yaml:"daily_send_limit"`
	FileWatchEnabled      bool          `yaml:"file_watch_enabled"`
	FileWatchDryRun       bool          `yaml:"file_watch_dry_run"`
	AutoApproveThreshold  float64       `yaml:"auto_approve_threshold"`
	VIPSenders            []string      `yaml:"vip_senders"`
	WebEnabled            bool          `yaml:"web_enabled"`
	WebPort               int           `yaml:"web_port"`
	WorkZone              zone.Zone     `yaml:"-"`
	WorkZoneRaw           string        `yaml:"work_zone"`
}

// envOverrides lists the §6 environment-variable names, each mapped to a
// setter against the in-progress Config. Env values always win over the
// YAML file, matching the teacher's layered-load order.
var envOverrides = map[string]func(*Config, string){
	"VAULT_PATH":             func(c *Config, v string) { c.VaultPath = v },
	"GMAIL_CHECK_INTERVAL":   func(c *Config, v string) { c.GmailCheckIntervalSec = atoiOr(v, c.GmailCheckIntervalSec) },
	"GMAIL_FILTER":           func(c *Config, v string) { c.GmailFilter = v },
	"ASSISTANT_MODEL":        func(c *Config, v string) { c.AssistantModel = v },
	"LOG_LEVEL":              func(c *Config, v string) { c.LogLevel = v },
	"DAILY_SEND_LIMIT":       func(c *Config, v string) { c.DailySendLimit = atoiOr(v, c.DailySendLimit) },
	"FILE_WATCH_ENABLED":     func(c *Config, v string) { c.FileWatchEnabled = boolOr(v, c.FileWatchEnabled) },
	"FILE_WATCH_DRY_RUN":     func(c *Config, v string) { c.FileWatchDryRun = boolOr(v, c.FileWatchDryRun) },
	"AUTO_APPROVE_THRESHOLD": func(c *Config, v string) { c.AutoApproveThreshold = floatOr(v, c.AutoApproveThreshold) },
	"VIP_SENDERS":            func(c *Config, v string) { c.VIPSenders = splitCSV(v) },
	"WEB_ENABLED":            func(c *Config, v string) { c.WebEnabled = boolOr(v, c.WebEnabled) },
	"WEB_PORT":               func(c *Config, v string) { c.WebPort = atoiOr(v, c.WebPort) },
	"WORK_ZONE":              func(c *Config, v string) { c.WorkZoneRaw = v },
}

// Load reads path (if it exists; a missing file is not an error — the
// teacher's config is YAML-first but never YAML-required), layers
// environment-variable overrides on top, then validates and defaults.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		}
	}

	for name, setter := range envOverrides {
		if v, ok := os.LookupEnv(name); ok {
			setter(cfg, v)
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	cfg.GmailCheckInterval = time.Duration(cfg.GmailCheckIntervalSec) * time.Second
	cfg.WorkZone = zone.Parse(cfg.WorkZoneRaw)
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		GmailCheckIntervalSec: 60,
		AssistantModel:        "sonnet",
		LogLevel:              "info",
		DailySendLimit:        50,
		AutoApproveThreshold:  1.0,
		WebPort:               8080,
		WorkZoneRaw:           string(zone.Local),
	}
}

func atoiOr(v string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return n
}

func floatOr(v string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return fallback
	}
	return f
}

func boolOr(v string, fallback bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return b
}

func splitCSV(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
