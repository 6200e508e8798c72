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
	DiscordToken   string       `yaml:"discord_token"`
	DatabasePath   string       `yaml:"database_path"`
	LogLevel       string       `yaml:"log_level"`
	AlertChannelID string       `yaml:"alert_channel_id"`
	Health         HealthConfig `yaml:"health"`
	AI             AIConfig     `yaml:"ai"`
	Intake         IntakeConfig `yaml:"intake"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type AIConfig struct {
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxAttempts    int    `yaml:"max_attempts"`
}

type IntakeConfig struct {
	BurstThreshold        int  `yaml:"burst_threshold"`
	BurstWindowSeconds    int  `yaml:"burst_window_seconds"`
	AutoExpireEnabled     bool `yaml:"auto_expire_enabled"`
	AutoExpireSeconds     int  `yaml:"auto_expire_seconds"`
	ConfirmTimeoutSeconds int  `yaml:"confirm_timeout_seconds"`
	SelectLimit           int  `yaml:"select_limit"`
	GuildPendingCap       int  `yaml:"guild_pending_cap"`
	SeenCap               int  `yaml:"seen_cap"`
	ReviewCooldownSeconds int  `yaml:"review_cooldown_seconds"`
	AnalyzeCooldownSecs   int  `yaml:"analyze_cooldown_seconds"`
}

func DefaultConfig() Config {
	return Config{
		DatabasePath: "/data/linkkeeper.db",
		LogLevel:     "info",
		Health:       HealthConfig{Enabled: false, Addr: ":8080"},
		AI: AIConfig{
			Model:          "gemini-2.0-flash-exp",
			TimeoutSeconds: 10,
			MaxAttempts:    3,
		},
		Intake: IntakeConfig{
			BurstThreshold:        5,
			BurstWindowSeconds:    3,
			AutoExpireEnabled:     true,
			AutoExpireSeconds:     5,
			ConfirmTimeoutSeconds: 4,
			SelectLimit:           25,
			GuildPendingCap:       200,
			SeenCap:               50000,
			ReviewCooldownSeconds: 5,
			AnalyzeCooldownSecs:   10,
		},
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
	if cfg.Intake.SelectLimit > 25 {
		// Discord select menus cap at 25 options.
		cfg.Intake.SelectLimit = 25
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.DatabasePath = envString("DATABASE_PATH", cfg.DatabasePath)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.AlertChannelID = envString("ALERT_CHANNEL_ID", cfg.AlertChannelID)
	cfg.Health.Enabled = envBool("HEALTH_ENABLED", cfg.Health.Enabled)
	cfg.Health.Addr = envString("HEALTH_ADDR", cfg.Health.Addr)
	cfg.AI.APIKey = envString("GEMINI_API_KEY", cfg.AI.APIKey)
	cfg.AI.Model = envString("GEMINI_MODEL", cfg.AI.Model)
	cfg.AI.TimeoutSeconds = envInt("AI_TIMEOUT_SECONDS", cfg.AI.TimeoutSeconds)
	cfg.AI.MaxAttempts = envInt("AI_MAX_ATTEMPTS", cfg.AI.MaxAttempts)
	cfg.Intake.BurstThreshold = envInt("BURST_THRESHOLD", cfg.Intake.BurstThreshold)
	cfg.Intake.BurstWindowSeconds = envInt("BURST_WINDOW_SECONDS", cfg.Intake.BurstWindowSeconds)
	cfg.Intake.AutoExpireEnabled = envBool("AUTO_EXPIRE_ENABLED", cfg.Intake.AutoExpireEnabled)
	cfg.Intake.AutoExpireSeconds = envInt("AUTO_EXPIRE_AFTER", cfg.Intake.AutoExpireSeconds)
	cfg.Intake.ConfirmTimeoutSeconds = envInt("CONFIRM_TIMEOUT_SECONDS", cfg.Intake.ConfirmTimeoutSeconds)
	cfg.Intake.SelectLimit = envInt("SELECT_LIMIT", cfg.Intake.SelectLimit)
	cfg.Intake.GuildPendingCap = envInt("GUILD_PENDING_CAP", cfg.Intake.GuildPendingCap)
	cfg.Intake.SeenCap = envInt("SEEN_CAP", cfg.Intake.SeenCap)
	cfg.Intake.ReviewCooldownSeconds = envInt("REVIEW_COOLDOWN_SECONDS", cfg.Intake.ReviewCooldownSeconds)
	cfg.Intake.AnalyzeCooldownSecs = envInt("ANALYZE_COOLDOWN_SECONDS", cfg.Intake.AnalyzeCooldownSecs)
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
