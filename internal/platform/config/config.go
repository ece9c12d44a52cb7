package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Webhook   WebhookConfig   `mapstructure:"webhook"`
	Admin     AdminConfig     `mapstructure:"admin"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Retention RetentionConfig `mapstructure:"retention"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type DatabaseConfig struct {
	Path           string `mapstructure:"path"`
	MaxConnections int    `mapstructure:"max_connections"`
}

type WebhookConfig struct {
	// Secret is the shared HMAC secret the license server signs
	// deliveries with.
	Secret string `mapstructure:"secret"`
	// SkipVerification accepts unsigned deliveries. Local development
	// only; hookd logs a warning when it is set.
	SkipVerification bool  `mapstructure:"skip_verification"`
	MaxBodyBytes     int64 `mapstructure:"max_body_bytes"`
}

type AdminConfig struct {
	// TokenHash is the bcrypt hash of the admin API token. The plaintext
	// token never appears in config.
	TokenHash string `mapstructure:"token_hash"`
}

type RateLimitConfig struct {
	WebhookPerMinute int `mapstructure:"webhook_per_minute"`
	AdminPerMinute   int `mapstructure:"admin_per_minute"`
}

type RetentionConfig struct {
	DeliveryTTL       time.Duration `mapstructure:"delivery_ttl"`
	PruneInterval     time.Duration `mapstructure:"prune_interval"`
	AggregateInterval time.Duration `mapstructure:"aggregate_interval"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

func Load(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config.Webhook.Secret == "" && !config.Webhook.SkipVerification {
		return nil, fmt.Errorf("webhook.secret is required unless webhook.skip_verification is set")
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 10*time.Second)
	viper.SetDefault("server.write_timeout", 10*time.Second)
	viper.SetDefault("server.idle_timeout", 60*time.Second)
	viper.SetDefault("database.path", "data/hookd.db")
	viper.SetDefault("database.max_connections", 10)
	viper.SetDefault("webhook.max_body_bytes", 1<<20)
	viper.SetDefault("rate_limit.webhook_per_minute", 300)
	viper.SetDefault("rate_limit.admin_per_minute", 120)
	viper.SetDefault("retention.delivery_ttl", 30*24*time.Hour)
	viper.SetDefault("retention.prune_interval", time.Hour)
	viper.SetDefault("retention.aggregate_interval", 5*time.Minute)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}
