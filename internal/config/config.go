package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"news-impact-alerts/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Logging    logging.Config   `mapstructure:"logging"`
	Server     ServerConfig     `mapstructure:"server"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Feeds      FeedsConfig      `mapstructure:"feeds"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Ingest     IngestConfig     `mapstructure:"ingest"`
	Correlator CorrelatorConfig `mapstructure:"correlator"`
	Alerting   AlertingConfig   `mapstructure:"alerting"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Export     ExportConfig     `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// ServerConfig governs the HTTP API.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// StorageConfig controls the in-memory store and its on-disk mirror.
type StorageConfig struct {
	BackupDir     string `mapstructure:"backup_dir"`
	BackupEnabled bool   `mapstructure:"backup_enabled"`
}

// DatabaseConfig encapsulates the optional PostgreSQL archive.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// FeedsConfig governs RSS polling.
type FeedsConfig struct {
	URLs           []string      `mapstructure:"urls"`
	File           string        `mapstructure:"file"`
	Interval       time.Duration `mapstructure:"interval"`
	StartupDelay   time.Duration `mapstructure:"startup_delay"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// LLMConfig parameterises the generation client chain.
type LLMConfig struct {
	OpenAIModel    string        `mapstructure:"openai_model"`
	AnthropicModel string        `mapstructure:"anthropic_model"`
	Temperature    float64       `mapstructure:"temperature"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RatePerSecond  float64       `mapstructure:"rate_per_second"`
}

// IngestConfig bounds batch ingestion.
type IngestConfig struct {
	MaxBatchItems int `mapstructure:"max_batch_items"`
}

// CorrelatorConfig tunes the outcome simulation.
type CorrelatorConfig struct {
	HitProbability float64 `mapstructure:"hit_probability"`
	Seed           int64   `mapstructure:"seed"`
}

// AlertingConfig defines alert routing for high-severity events.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig 描述 Telegram 告警参数。
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// KafkaConfig controls the optional event publisher.
type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GEOPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "geopulse")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "30s")

	v.SetDefault("storage.backup_dir", "data")
	v.SetDefault("storage.backup_enabled", true)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("feeds.interval", "2m")
	v.SetDefault("feeds.startup_delay", "0s")
	v.SetDefault("feeds.request_timeout", "15s")
	v.SetDefault("feeds.user_agent", "geopulse/1.0")

	v.SetDefault("llm.openai_model", "gpt-4o-mini")
	v.SetDefault("llm.anthropic_model", "claude-3-5-haiku-latest")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_attempts", 3)
	v.SetDefault("llm.retry_base_delay", "2s")
	v.SetDefault("llm.request_timeout", "60s")
	v.SetDefault("llm.rate_per_second", 2.0)

	v.SetDefault("ingest.max_batch_items", 10)

	v.SetDefault("correlator.hit_probability", 0.70)
	v.SetDefault("correlator.seed", int64(0))

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.topic", "geopulse.events")

	v.SetDefault("export.max_data_points", 100000)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if c.Feeds.Interval <= 0 {
		return fmt.Errorf("feeds.interval must be greater than zero")
	}
	if c.LLM.MaxAttempts <= 0 {
		return fmt.Errorf("llm.max_attempts must be greater than zero")
	}
	if c.LLM.RetryBaseDelay <= 0 {
		return fmt.Errorf("llm.retry_base_delay must be greater than zero")
	}
	if c.Ingest.MaxBatchItems <= 0 {
		return fmt.Errorf("ingest.max_batch_items must be greater than zero")
	}
	if c.Correlator.HitProbability < 0 || c.Correlator.HitProbability > 1 {
		return fmt.Errorf("correlator.hit_probability must be within [0,1]")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers must be configured when kafka is enabled")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token 必须配置")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id 必须配置")
		}
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
