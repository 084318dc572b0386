package config

import "fmt"

var validModels = map[string]bool{
	"opus":   true,
	"sonnet": true,
	"haiku":  true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks cfg for errors. It does not set defaults — that's
// Load's job, via defaults() — Validate only rejects bad values.
func Validate(cfg *Config) error {
	if cfg.VaultPath == "" {
		return fmt.Errorf("config: 'vault_path' (VAULT_PATH) is required")
	}
	if !validModels[cfg.AssistantModel] {
		return fmt.Errorf("config: unknown assistant_model %q (must be opus, sonnet, or haiku)", cfg.AssistantModel)
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("config: unknown log_level %q (must be debug, info, warn, or error)", cfg.LogLevel)
	}
	if cfg.GmailCheckIntervalSec <= 0 {
		return fmt.Errorf("config: gmail_check_interval must be > 0 seconds")
	}
	if cfg.DailySendLimit < 0 {
		return fmt.Errorf("config: daily_send_limit must be >= 0")
	}
	if cfg.AutoApproveThreshold < 0.0 || cfg.AutoApproveThreshold > 1.0 {
		return fmt.Errorf("config: auto_approve_threshold must be within [0.0, 1.0]")
	}
	if cfg.WebPort <= 0 || cfg.WebPort > 65535 {
		return fmt.Errorf("config: web_port must be a valid TCP port")
	}
	switch cfg.WorkZoneRaw {
	case "", "cloud", "local":
	default:
		return fmt.Errorf("config: unknown work_zone %q (must be cloud or local)", cfg.WorkZoneRaw)
	}
	return nil
}
