package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Storage drivers.
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Callback   CallbackConfig   `mapstructure:"callback"`
	Settlement SettlementConfig `mapstructure:"settlement"`
	Payout     PayoutConfig     `mapstructure:"payout"`
	Gateway    GatewayConfig    `mapstructure:"gateway"`
	Documents  DocumentsConfig  `mapstructure:"documents"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"` // postgres, memory
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
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

// CallbackConfig holds the shared secret the gateway signs callbacks with.
type CallbackConfig struct {
	Secret   string        `mapstructure:"secret"`
	MaxDrift time.Duration `mapstructure:"max_drift"` // allowed X-Timestamp skew
}

type SettlementConfig struct {
	CommissionRate      string        `mapstructure:"commission_rate"`  // fraction of premium, e.g. "0.10"
	TaxRatePercent      string        `mapstructure:"tax_rate_percent"` // e.g. "16"
	PolicyValidityYears int           `mapstructure:"policy_validity_years"`
	RenderAttempts      int           `mapstructure:"render_attempts"`
	RenderBackoff       time.Duration `mapstructure:"render_backoff"`
	SweepInterval       time.Duration `mapstructure:"sweep_interval"`
	SweepBatchSize      int           `mapstructure:"sweep_batch_size"`
}

// Commission parses CommissionRate.
func (s SettlementConfig) Commission() (decimal.Decimal, error) {
	return decimal.NewFromString(s.CommissionRate)
}

// TaxRate parses TaxRatePercent.
func (s SettlementConfig) TaxRate() (decimal.Decimal, error) {
	return decimal.NewFromString(s.TaxRatePercent)
}

type PayoutConfig struct {
	MinimumAmount     string        `mapstructure:"minimum_amount"`
	ProcessingTimeout time.Duration `mapstructure:"processing_timeout"`
}

// Minimum parses MinimumAmount.
func (p PayoutConfig) Minimum() (decimal.Decimal, error) {
	return decimal.NewFromString(p.MinimumAmount)
}

type GatewayConfig struct {
	ShortCode      string        `mapstructure:"short_code"`
	SubmitAttempts int           `mapstructure:"submit_attempts"`
	SubmitBackoff  time.Duration `mapstructure:"submit_backoff"`
	FailurePhone   string        `mapstructure:"failure_phone"` // simulator rejects payouts to this number
	ResultDelay    time.Duration `mapstructure:"result_delay"`  // simulator result callback delay; 0 disables
}

type DocumentsConfig struct {
	Dir string `mapstructure:"dir"`
}

type TracingConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"` // empty disables tracing
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from .env, file, and environment variables.
// Environment variables override file values. Prefix: SIB_ (Settlement Insurance Back-office).
// Nested keys use underscore: SIB_DATABASE_HOST, SIB_JWT_SECRET, etc.
func Load(path string) (*Config, error) {
	// .env is optional; real environment variables win over it.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}

	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("storage.driver", StorageDriverPostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "insurance_settlement")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "insurance-settlement")
	v.SetDefault("callback.secret", "")
	v.SetDefault("callback.max_drift", "5m")
	v.SetDefault("settlement.commission_rate", "0.10")
	v.SetDefault("settlement.tax_rate_percent", "16")
	v.SetDefault("settlement.policy_validity_years", 1)
	v.SetDefault("settlement.render_attempts", 3)
	v.SetDefault("settlement.render_backoff", "200ms")
	v.SetDefault("settlement.sweep_interval", "5m")
	v.SetDefault("settlement.sweep_batch_size", 100)
	v.SetDefault("payout.minimum_amount", "1.00")
	v.SetDefault("payout.processing_timeout", "30m")
	v.SetDefault("gateway.short_code", "600000")
	v.SetDefault("gateway.submit_attempts", 3)
	v.SetDefault("gateway.submit_backoff", "250ms")
	v.SetDefault("gateway.failure_phone", "0700000000")
	v.SetDefault("gateway.result_delay", "2s")
	v.SetDefault("documents.dir", "./data/certificates")
	v.SetDefault("tracing.otlp_endpoint", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// SIB_DATABASE_HOST -> database.host
	v.SetEnvPrefix("SIB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values that cannot be defaulted safely.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageDriverPostgres, StorageDriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	rate, err := c.Settlement.Commission()
	if err != nil {
		return fmt.Errorf("settlement.commission_rate: %w", err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("settlement.commission_rate must be within [0, 1], got %s", rate)
	}
	if _, err := c.Settlement.TaxRate(); err != nil {
		return fmt.Errorf("settlement.tax_rate_percent: %w", err)
	}
	minimum, err := c.Payout.Minimum()
	if err != nil {
		return fmt.Errorf("payout.minimum_amount: %w", err)
	}
	if !minimum.IsPositive() {
		return fmt.Errorf("payout.minimum_amount must be positive, got %s", minimum)
	}
	if c.Settlement.PolicyValidityYears < 1 {
		return fmt.Errorf("settlement.policy_validity_years must be at least 1")
	}
	return nil
}
