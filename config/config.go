package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Intake   IntakeConfig   `mapstructure:"intake"`
	Payout   PayoutConfig   `mapstructure:"payout"`
	Provider ProviderConfig `mapstructure:"provider"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// IntakeConfig configures the inbound webhook pipeline.
// WebhookSecret is optional; when empty the shared-secret check is skipped.
type IntakeConfig struct {
	Paybill       string `mapstructure:"paybill"`        // our paybill/shortcode; mismatching deliveries are quarantined
	WebhookSecret string `mapstructure:"webhook_secret"` // shared secret expected in X-Webhook-Secret
	Workers       int    `mapstructure:"workers"`        // dispatcher worker pool size
	QueueSize     int    `mapstructure:"queue_size"`     // dispatcher buffered queue capacity
}

// PayoutConfig configures the payout sweeps and retry bound.
type PayoutConfig struct {
	StuckThreshold time.Duration `mapstructure:"stuck_threshold"` // SENT items older than this are treated as timed out
	SweepInterval  time.Duration `mapstructure:"sweep_interval"`
	MaxAttempts    int           `mapstructure:"max_attempts"` // scheduled retries before alerting
}

// ProviderConfig configures the outbound disbursement provider client.
type ProviderConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	ResultURL   string        `mapstructure:"result_url"`  // result callback URL handed to the provider
	TimeoutURL  string        `mapstructure:"timeout_url"` // queue-timeout callback URL
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
}

type AdminConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	JWTIssuer string `mapstructure:"jwt_issuer"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: SACCO.
// Nested keys use underscore: SACCO_DATABASE_HOST, SACCO_INTAKE_PAYBILL, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "sacco_ledger")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("intake.paybill", "")
	v.SetDefault("intake.webhook_secret", "")
	v.SetDefault("intake.workers", 8)
	v.SetDefault("intake.queue_size", 1024)
	v.SetDefault("payout.stuck_threshold", "15m")
	v.SetDefault("payout.sweep_interval", "1m")
	v.SetDefault("payout.max_attempts", 3)
	v.SetDefault("provider.base_url", "")
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.result_url", "")
	v.SetDefault("provider.timeout_url", "")
	v.SetDefault("provider.http_timeout", "10s")
	v.SetDefault("admin.jwt_secret", "")
	v.SetDefault("admin.jwt_issuer", "sacco-ledger")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: SACCO_DATABASE_HOST -> database.host
	v.SetEnvPrefix("SACCO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required, env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
