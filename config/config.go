package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Bot REST API
	BotAPI BotAPIConfig `json:"bot_api" yaml:"bot_api"`

	// Local dashboard server
	Dashboard DashboardConfig `json:"dashboard" yaml:"dashboard"`

	// Poll intervals
	Poll PollConfig `json:"poll" yaml:"poll"`

	// Log pipeline
	Logs LogsConfig `json:"logs" yaml:"logs"`

	// Command stats view
	Stats StatsConfig `json:"stats" yaml:"stats"`

	// Toast timing
	Toast ToastConfig `json:"toast" yaml:"toast"`

	// Audit notifications
	Discord  DiscordConfig  `json:"discord" yaml:"discord"`
	Telegram TelegramConfig `json:"telegram" yaml:"telegram"`

	// Process logging - excluded from settings (env/file only)
	Logging LoggingConfig `json:"-" yaml:"logging"`
}

// BotAPIConfig holds the backend connection settings.
type BotAPIConfig struct {
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// DashboardConfig holds the local dashboard server configuration.
type DashboardConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	ListenAddr string `json:"listen_addr" yaml:"listen_addr"`
	InitialTab string `json:"initial_tab" yaml:"initial_tab"` // tab whose pollers start first
}

// PollConfig holds the refresh interval of each poller.
type PollConfig struct {
	Status        time.Duration `json:"status" yaml:"status"`
	Stats         time.Duration `json:"stats" yaml:"stats"`
	Logs          time.Duration `json:"logs" yaml:"logs"`
	Guilds        time.Duration `json:"guilds" yaml:"guilds"`
	ReactionRoles time.Duration `json:"reaction_roles" yaml:"reaction_roles"`
}

// LogsConfig holds log pipeline configuration.
type LogsConfig struct {
	DisplayLimit      int    `json:"display_limit" yaml:"display_limit"`           // rendered lines cap
	HoldLimit         int    `json:"hold_limit" yaml:"hold_limit"`                 // held entries cap; 0 means twice display_limit
	Incremental       bool   `json:"incremental" yaml:"incremental"`               // append-with-dedup + since filter
	TimestampLocation string `json:"timestamp_location" yaml:"timestamp_location"` // zone for zone-less timestamps
	ServerMarker      string `json:"server_marker" yaml:"server_marker"`           // third-party web server log marker
	DownloadPrefix    string `json:"download_prefix" yaml:"download_prefix"`
}

// StatsConfig holds command stats view configuration.
type StatsConfig struct {
	TopCommands int `json:"top_commands" yaml:"top_commands"`
}

// ToastConfig controls how long notifications stay visible.
type ToastConfig struct {
	Visible    time.Duration `json:"visible" yaml:"visible"`
	ClearDelay time.Duration `json:"clear_delay" yaml:"clear_delay"`
}

// DiscordConfig holds Discord audit notifier configuration.
type DiscordConfig struct {
	BotToken       string `json:"-" yaml:"-"` // Excluded - env var only
	AuditChannelID string `json:"audit_channel_id" yaml:"audit_channel_id"`
}

// TelegramConfig holds Telegram audit notifier configuration.
type TelegramConfig struct {
	BotToken    string `json:"-" yaml:"-"` // Excluded - env var only
	AuditChatID string `json:"audit_chat_id" yaml:"audit_chat_id"`
}

// LoggingConfig holds process logger configuration.
type LoggingConfig struct {
	Format      string `json:"format" yaml:"format"` // "json" or "console"
	Level       string `json:"level" yaml:"level"`
	File        string `json:"file" yaml:"file"` // optional rotating file sink
	FileMaxMB   int    `json:"file_max_mb" yaml:"file_max_mb"`
	FileBackups int    `json:"file_backups" yaml:"file_backups"`
	FileMaxAge  int    `json:"file_max_age_days" yaml:"file_max_age_days"`
}

// Clone creates a copy of the config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// ToJSON serializes the config to JSON.
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// ConfigFromJSON deserializes JSON into a config, merging with base.
func ConfigFromJSON(data []byte, base *Config) (*Config, error) {
	if base == nil {
		base = Defaults()
	}
	cfg := base.Clone()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	// Secrets and logging are not part of the JSON surface; keep them from base.
	cfg.Discord.BotToken = base.Discord.BotToken
	cfg.Telegram.BotToken = base.Telegram.BotToken
	cfg.Logging = base.Logging
	return cfg, nil
}

// Location resolves the configured timestamp zone, falling back to time.Local.
func (l LogsConfig) Location() *time.Location {
	switch strings.TrimSpace(l.TimestampLocation) {
	case "", "Local", "local":
		return time.Local
	case "UTC", "utc":
		return time.UTC
	}
	loc, err := time.LoadLocation(l.TimestampLocation)
	if err != nil {
		return time.Local
	}
	return loc
}

// Defaults returns a config with hardcoded default values.
func Defaults() *Config {
	return &Config{
		BotAPI: BotAPIConfig{
			BaseURL: "http://127.0.0.1:5000",
			Timeout: 10 * time.Second,
		},
		Dashboard: DashboardConfig{
			Enabled:    true,
			ListenAddr: ":8080",
			InitialTab: "all",
		},
		Poll: PollConfig{
			Status:        5 * time.Second,
			Stats:         10 * time.Second,
			Logs:          3 * time.Second,
			Guilds:        30 * time.Second,
			ReactionRoles: 15 * time.Second,
		},
		Logs: LogsConfig{
			DisplayLimit:      500,
			Incremental:       true,
			TimestampLocation: "Local",
			ServerMarker:      "werkzeug",
			DownloadPrefix:    "bot_logs",
		},
		Stats: StatsConfig{
			TopCommands: 5,
		},
		Toast: ToastConfig{
			Visible:    3 * time.Second,
			ClearDelay: 300 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Format:      "json",
			Level:       "info",
			FileMaxMB:   50,
			FileBackups: 3,
			FileMaxAge:  14,
		},
	}
}

// Load loads configuration from environment variables with defaults.
func Load() *Config {
	d := Defaults()
	return &Config{
		BotAPI: BotAPIConfig{
			BaseURL: strings.TrimRight(envString("BOT_API_URL", d.BotAPI.BaseURL), "/"),
			Timeout: envDuration("BOT_API_TIMEOUT", d.BotAPI.Timeout),
		},

		Dashboard: DashboardConfig{
			Enabled:    envBoolDefault("DASHBOARD_ENABLED", d.Dashboard.Enabled),
			ListenAddr: envString("DASHBOARD_LISTEN_ADDR", d.Dashboard.ListenAddr),
			InitialTab: envString("DASHBOARD_INITIAL_TAB", d.Dashboard.InitialTab),
		},

		Poll: PollConfig{
			Status:        envDuration("POLL_STATUS_INTERVAL", d.Poll.Status),
			Stats:         envDuration("POLL_STATS_INTERVAL", d.Poll.Stats),
			Logs:          envDuration("POLL_LOGS_INTERVAL", d.Poll.Logs),
			Guilds:        envDuration("POLL_GUILDS_INTERVAL", d.Poll.Guilds),
			ReactionRoles: envDuration("POLL_REACTION_ROLES_INTERVAL", d.Poll.ReactionRoles),
		},

		Logs: LogsConfig{
			DisplayLimit:      envInt("LOG_DISPLAY_LIMIT", d.Logs.DisplayLimit),
			HoldLimit:         envInt("LOG_HOLD_LIMIT", d.Logs.HoldLimit),
			Incremental:       envBoolDefault("LOG_INCREMENTAL", d.Logs.Incremental),
			TimestampLocation: envString("LOG_TIMESTAMP_LOCATION", d.Logs.TimestampLocation),
			ServerMarker:      strings.ToLower(envString("LOG_SERVER_MARKER", d.Logs.ServerMarker)),
			DownloadPrefix:    envString("LOG_DOWNLOAD_PREFIX", d.Logs.DownloadPrefix),
		},

		Stats: StatsConfig{
			TopCommands: envInt("TOP_COMMANDS_COUNT", d.Stats.TopCommands),
		},

		Toast: ToastConfig{
			Visible:    envDuration("TOAST_VISIBLE", d.Toast.Visible),
			ClearDelay: envDuration("TOAST_CLEAR_DELAY", d.Toast.ClearDelay),
		},

		Discord: DiscordConfig{
			BotToken:       envString("DISCORD_BOT_TOKEN", ""),
			AuditChannelID: envString("DISCORD_AUDIT_CHANNEL_ID", ""),
		},

		Telegram: TelegramConfig{
			BotToken:    envString("TELEGRAM_BOT_KEY", ""),
			AuditChatID: envString("TELEGRAM_AUDIT_CHAT_ID", ""),
		},

		Logging: LoggingConfig{
			Format:      envString("LOG_FORMAT", d.Logging.Format),
			Level:       envString("LOG_LEVEL", d.Logging.Level),
			File:        envString("LOG_FILE", ""),
			FileMaxMB:   envInt("LOG_FILE_MAX_MB", d.Logging.FileMaxMB),
			FileBackups: envInt("LOG_FILE_MAX_BACKUPS", d.Logging.FileBackups),
			FileMaxAge:  envInt("LOG_FILE_MAX_AGE_DAYS", d.Logging.FileMaxAge),
		},
	}
}

// Helper functions for parsing environment variables

func envString(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func envBoolDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	return strings.EqualFold(v, "true") || strings.EqualFold(v, "1") || strings.EqualFold(v, "yes")
}
