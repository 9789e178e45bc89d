package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/example/lumi/pkg/validator"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env       string          `mapstructure:"env" validate:"oneof=development production staging test"`
	LogLevel  string          `mapstructure:"log_level"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Storage   StorageConfig   `mapstructure:"storage"`
	AI        AIConfig        `mapstructure:"ai"`
	Review    ReviewConfig    `mapstructure:"review"`
	Reminders RemindersConfig `mapstructure:"reminders"`
	Learning  LearningConfig  `mapstructure:"learning"`
}

type TelegramConfig struct {
	Token   string        `mapstructure:"token" validate:"required"`
	Debug   bool          `mapstructure:"debug"`
	Timeout time.Duration `mapstructure:"timeout" validate:"min=1s"`
}

type StorageConfig struct {
	Backend string      `mapstructure:"backend" validate:"oneof=sql redis file memory"`
	SQL     SQLConfig   `mapstructure:"sql"`
	Redis   RedisConfig `mapstructure:"redis"`
	File    FileConfig  `mapstructure:"file"`
}

type SQLConfig struct {
	Driver          string        `mapstructure:"driver" validate:"oneof=sqlite3 postgres"`
	DSN             string        `mapstructure:"dsn" validate:"required_if=Driver postgres"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"min=1,max=1000"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"min=0,max=100"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"min=0"`
}

// RedisConfig has no expiry setting: learner data stored in Redis is durable
type RedisConfig struct {
	URL       string `mapstructure:"url"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type FileConfig struct {
	Path string `mapstructure:"path"`
}

type AIConfig struct {
	APIKey        string        `mapstructure:"api_key"`
	BaseURL       string        `mapstructure:"base_url" validate:"omitempty,url"`
	Model         string        `mapstructure:"model" validate:"required"`
	Temperature   float32       `mapstructure:"temperature" validate:"min=0,max=2"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl" validate:"min=0"` // 0 keeps translations forever
	DictionaryURL string        `mapstructure:"dictionary_url" validate:"omitempty,url"`
}

type ReviewConfig struct {
	DefaultRecallStrength float64 `mapstructure:"default_recall_strength" validate:"gte=1.3"`
	MinRecallStrength     float64 `mapstructure:"min_recall_strength" validate:"gte=1.3"`
	MaxIntervalDays       int     `mapstructure:"max_interval_days" validate:"min=1"`
	MasteryStreak         int     `mapstructure:"mastery_streak" validate:"min=1"`
	Rounding              string  `mapstructure:"rounding" validate:"oneof=round floor ceil"`
}

type RemindersConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	StartHour int    `mapstructure:"start_hour" validate:"min=0,max=23"`
	EndHour   int    `mapstructure:"end_hour" validate:"min=0,max=23"`
	Timezone  string `mapstructure:"timezone"`
}

type LearningConfig struct {
	PromotionThreshold int    `mapstructure:"promotion_threshold" validate:"min=1"`
	MaxRetries         int    `mapstructure:"max_retries" validate:"min=1"`
	SourceLang         string `mapstructure:"source_lang" validate:"required"`
	TargetLang         string `mapstructure:"target_lang" validate:"required"`
	NotificationHour   int    `mapstructure:"notification_hour" validate:"min=0,max=23"`
	ItemsPerSession    int    `mapstructure:"items_per_session" validate:"min=1,max=100"`
	QuizQuestions      int    `mapstructure:"quiz_questions" validate:"min=1,max=50"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "production")
	v.SetDefault("log_level", "")

	v.SetDefault("telegram.debug", false)
	v.SetDefault("telegram.timeout", 60*time.Second)

	v.SetDefault("storage.backend", "sql")
	v.SetDefault("storage.sql.driver", "sqlite3")
	v.SetDefault("storage.sql.dsn", "data/lumi.db")
	v.SetDefault("storage.sql.max_open_conns", 10)
	v.SetDefault("storage.sql.max_idle_conns", 5)
	v.SetDefault("storage.sql.conn_max_lifetime", time.Hour)
	v.SetDefault("storage.redis.url", "redis://localhost:6379/0")
	v.SetDefault("storage.redis.key_prefix", "lumi:")
	v.SetDefault("storage.file.path", "data/lumi.json")

	v.SetDefault("ai.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("ai.model", "llama3-8b-8192")
	v.SetDefault("ai.temperature", 0.7)
	v.SetDefault("ai.cache_ttl", 30*24*time.Hour)
	v.SetDefault("ai.dictionary_url", "https://api.dictionaryapi.dev/api/v2/entries")

	v.SetDefault("review.default_recall_strength", 2.5)
	v.SetDefault("review.min_recall_strength", 1.3)
	v.SetDefault("review.max_interval_days", 36500)
	v.SetDefault("review.mastery_streak", 5)
	v.SetDefault("review.rounding", "round")

	v.SetDefault("reminders.enabled", true)
	v.SetDefault("reminders.start_hour", 8)
	v.SetDefault("reminders.end_hour", 22)
	v.SetDefault("reminders.timezone", "UTC")

	v.SetDefault("learning.promotion_threshold", 2)
	v.SetDefault("learning.max_retries", 3)
	v.SetDefault("learning.source_lang", "en")
	v.SetDefault("learning.target_lang", "es")
	v.SetDefault("learning.notification_hour", 9)
	v.SetDefault("learning.items_per_session", 10)
	v.SetDefault("learning.quiz_questions", 10)
}

// explicit environment names kept for compatibility with common setups
var envBindings = map[string][]string{
	"telegram.token":       {"TELEGRAM_BOT_TOKEN", "BOT_TOKEN"},
	"ai.api_key":           {"GROQ_API_KEY", "OPENAI_API_KEY"},
	"storage.sql.dsn":      {"DATABASE_URL"},
	"storage.redis.url":    {"REDIS_URL"},
	"reminders.start_hour": {"NOTIFICATION_START_HOUR"},
	"reminders.end_hour":   {"NOTIFICATION_END_HOUR"},
}

// Init loads the configuration from defaults, an optional
// configs/<CONFIG_NAME>.yaml, a .env file and the environment, in
// increasing order of precedence.
func Init() (*Config, error) {
	// A missing .env is fine: production passes real environment variables
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	configName := os.Getenv("CONFIG_NAME")
	if configName == "" {
		configName = "default"
	}

	return Load("configs", configName)
}

// Load reads configuration from configDir/configName.* and the environment
func Load(configDir, configName string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("LUMI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, names := range envBindings {
		args := append([]string{key, "LUMI_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, names...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	v.AddConfigPath(configDir)
	v.SetConfigName(configName)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.ValidateStruct(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Location resolves the reminders timezone
func (c RemindersConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}
