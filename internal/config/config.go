package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken    string          `yaml:"discord_token"`
	OwnerID         string          `yaml:"owner_id"`
	DatabasePath    string          `yaml:"database_path"`
	LogLevel        string          `yaml:"log_level"`
	DefaultPrefix   string          `yaml:"default_prefix"`
	OperatorChannel string          `yaml:"operator_channel"`
	Webhook         WebhookConfig   `yaml:"webhook"`
	BotList         BotListConfig   `yaml:"bot_list"`
	Votes           VoteConfig      `yaml:"votes"`
	Filters         FilterConfig    `yaml:"filters"`
	Telemetry       TelemetryConfig `yaml:"telemetry"`
}

type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Secret  string `yaml:"secret"`
}

type BotListConfig struct {
	Token               string `yaml:"token"`
	StatsURL            string `yaml:"stats_url"`
	PostIntervalMinutes int    `yaml:"post_interval_minutes"`
	VoteLogChannel      string `yaml:"vote_log_channel"`
}

type VoteConfig struct {
	WeekdayMin          int `yaml:"weekday_min"`
	WeekdayMax          int `yaml:"weekday_max"`
	WeekendMin          int `yaml:"weekend_min"`
	WeekendMax          int `yaml:"weekend_max"`
	StreakWindowSeconds int `yaml:"streak_window_seconds"`
	ReminderHours       int `yaml:"reminder_hours"`
}

type FilterConfig struct {
	TimeoutMinutes int `yaml:"timeout_minutes"`
}

type TelemetryConfig struct {
	Enabled              bool `yaml:"enabled"`
	FlushIntervalSeconds int  `yaml:"flush_interval_seconds"`
}

func DefaultConfig() Config {
	return Config{
		DatabasePath:  "/data/warden.db",
		LogLevel:      "info",
		DefaultPrefix: "?",
		Webhook:       WebhookConfig{Enabled: false, Addr: ":8090"},
		BotList:       BotListConfig{PostIntervalMinutes: 30},
		Votes: VoteConfig{
			WeekdayMin:          20,
			WeekdayMax:          25,
			WeekendMin:          40,
			WeekendMax:          50,
			StreakWindowSeconds: 86400,
			ReminderHours:       12,
		},
		Filters:   FilterConfig{TimeoutMinutes: 10},
		Telemetry: TelemetryConfig{Enabled: true, FlushIntervalSeconds: 10},
	}
}

func Load() (Config, error) {
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
	if cfg.Votes.StreakWindowSeconds <= 0 {
		cfg.Votes.StreakWindowSeconds = 86400
	}
	if cfg.Telemetry.FlushIntervalSeconds <= 0 {
		cfg.Telemetry.FlushIntervalSeconds = 10
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.OwnerID = envString("OWNER_ID", cfg.OwnerID)
	cfg.DatabasePath = envString("DATABASE_PATH", cfg.DatabasePath)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.DefaultPrefix = envString("DEFAULT_PREFIX", cfg.DefaultPrefix)
	cfg.OperatorChannel = envString("OPERATOR_CHANNEL", cfg.OperatorChannel)
	cfg.Webhook.Enabled = envBool("WEBHOOK_ENABLED", cfg.Webhook.Enabled)
	cfg.Webhook.Addr = envString("WEBHOOK_ADDR", cfg.Webhook.Addr)
	cfg.Webhook.Secret = envString("WEBHOOK_SECRET", cfg.Webhook.Secret)
	cfg.BotList.Token = envString("BOTLIST_TOKEN", cfg.BotList.Token)
	cfg.BotList.StatsURL = envString("BOTLIST_STATS_URL", cfg.BotList.StatsURL)
	cfg.BotList.PostIntervalMinutes = envInt("BOTLIST_POST_INTERVAL_MINUTES", cfg.BotList.PostIntervalMinutes)
	cfg.BotList.VoteLogChannel = envString("VOTE_LOG_CHANNEL", cfg.BotList.VoteLogChannel)
	cfg.Votes.StreakWindowSeconds = envInt("VOTE_STREAK_WINDOW_SECONDS", cfg.Votes.StreakWindowSeconds)
	cfg.Votes.ReminderHours = envInt("VOTE_REMINDER_HOURS", cfg.Votes.ReminderHours)
	cfg.Filters.TimeoutMinutes = envInt("FILTER_TIMEOUT_MINUTES", cfg.Filters.TimeoutMinutes)
	cfg.Telemetry.Enabled = envBool("TELEMETRY_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.FlushIntervalSeconds = envInt("TELEMETRY_FLUSH_SECONDS", cfg.Telemetry.FlushIntervalSeconds)
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
