package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken string          `yaml:"discord_token"`
	DatabasePath string          `yaml:"database_path"`
	LogLevel     string          `yaml:"log_level"`
	JoinWebhook  WebhookConfig   `yaml:"join_webhook"`
	LeaveWebhook WebhookConfig   `yaml:"leave_webhook"`
	SupportURL   string          `yaml:"support_url"`
	Health       HealthConfig    `yaml:"health"`
	Detection    DetectionConfig `yaml:"detection"`
	Stats        StatsConfig     `yaml:"stats"`
	Worker       WorkerConfig    `yaml:"worker"`
	Currency     CurrencyConfig  `yaml:"currency"`
	GitHub       GitHubConfig    `yaml:"github"`
}

// WebhookConfig identifies a Discord webhook used for operator
// notifications (guild joins/leaves).
type WebhookConfig struct {
	ID    string `yaml:"id"`
	Token string `yaml:"token"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// DetectionConfig carries the policy constants of the bot-detection
// pipeline. Thresholds are tunable; the enforcement mapping only
// requires them to be ordered alert <= timeout <= kick.
type DetectionConfig struct {
	AlertThreshold       int `yaml:"alert_threshold"`
	TimeoutThreshold     int `yaml:"timeout_threshold"`
	KickThreshold        int `yaml:"kick_threshold"`
	GlobalAlertCount     int `yaml:"global_alert_count"`
	GlobalBonusStep      int `yaml:"global_bonus_step"`
	GlobalBonusCap       int `yaml:"global_bonus_cap"`
	SettingsCacheMinutes int `yaml:"settings_cache_minutes"`
	RecentJoinHours      int `yaml:"recent_join_hours"`
	SpamChannels         int `yaml:"spam_channels"`
	SpamWindowSeconds    int `yaml:"spam_window_seconds"`
	TimeoutMinutes       int `yaml:"timeout_minutes"`
}

type StatsConfig struct {
	RetentionDays int `yaml:"retention_days"`
	SnapshotDays  int `yaml:"snapshot_days"`
}

type WorkerConfig struct {
	Enabled         bool `yaml:"enabled"`
	IntervalMinutes int  `yaml:"interval_minutes"`
	LockMinutes     int  `yaml:"lock_minutes"`
}

type CurrencyConfig struct {
	RatesURL   string `yaml:"rates_url"`
	CacheHours int    `yaml:"cache_hours"`
}

type GitHubConfig struct {
	BaseURL   string `yaml:"base_url"`
	UserAgent string `yaml:"user_agent"`
}

func DefaultConfig() Config {
	return Config{
		DatabasePath: "/data/waterfall.db",
		LogLevel:     "info",
		SupportURL:   "https://discord.gg/qD3yfKGk5g",
		Health:       HealthConfig{Enabled: false, Addr: ":8080"},
		Detection: DetectionConfig{
			AlertThreshold:       40,
			TimeoutThreshold:     60,
			KickThreshold:        85,
			GlobalAlertCount:     3,
			GlobalBonusStep:      5,
			GlobalBonusCap:       25,
			SettingsCacheMinutes: 10,
			RecentJoinHours:      2,
			SpamChannels:         3,
			SpamWindowSeconds:    60,
			TimeoutMinutes:       10,
		},
		Stats:    StatsConfig{RetentionDays: 30, SnapshotDays: 60},
		Worker:   WorkerConfig{Enabled: true, IntervalMinutes: 60, LockMinutes: 55},
		Currency: CurrencyConfig{RatesURL: "https://api.exchangerate-api.com/v4/latest/USD", CacheHours: 12},
		GitHub:   GitHubConfig{BaseURL: "https://api.github.com", UserAgent: "WaterfallBot (https://github.com/DevSiege-Studios/waterfall)"},
	}
}

func Load() (Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}

	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	if cfg.DiscordToken == "" {
		return Config{}, errors.New("DISCORD_TOKEN is required")
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.DatabasePath = envString("DATABASE_PATH", cfg.DatabasePath)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.JoinWebhook.ID = envString("JOIN_WEBHOOK_ID", cfg.JoinWebhook.ID)
	cfg.JoinWebhook.Token = envString("JOIN_WEBHOOK_TOKEN", cfg.JoinWebhook.Token)
	cfg.LeaveWebhook.ID = envString("LEAVE_WEBHOOK_ID", cfg.LeaveWebhook.ID)
	cfg.LeaveWebhook.Token = envString("LEAVE_WEBHOOK_TOKEN", cfg.LeaveWebhook.Token)
	cfg.Health.Enabled = envBool("HEALTH_ENABLED", cfg.Health.Enabled)
	cfg.Health.Addr = envString("HEALTH_ADDR", cfg.Health.Addr)
	cfg.Detection.AlertThreshold = envInt("DETECTION_ALERT_THRESHOLD", cfg.Detection.AlertThreshold)
	cfg.Detection.TimeoutThreshold = envInt("DETECTION_TIMEOUT_THRESHOLD", cfg.Detection.TimeoutThreshold)
	cfg.Detection.KickThreshold = envInt("DETECTION_KICK_THRESHOLD", cfg.Detection.KickThreshold)
	cfg.Detection.TimeoutMinutes = envInt("DETECTION_TIMEOUT_MINUTES", cfg.Detection.TimeoutMinutes)
	cfg.Stats.RetentionDays = envInt("STATS_RETENTION_DAYS", cfg.Stats.RetentionDays)
	cfg.Worker.Enabled = envBool("WORKER_ENABLED", cfg.Worker.Enabled)
	cfg.Worker.IntervalMinutes = envInt("WORKER_INTERVAL_MINUTES", cfg.Worker.IntervalMinutes)
	cfg.Currency.RatesURL = envString("CURRENCY_RATES_URL", cfg.Currency.RatesURL)
	cfg.GitHub.BaseURL = envString("GITHUB_BASE_URL", cfg.GitHub.BaseURL)
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl := strings.ToLower(level)
	switch lvl {
	case "debug", "info", "warn", "error":
		cfg.Level = zap.NewAtomicLevelAt(parseLevel(lvl))
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}
