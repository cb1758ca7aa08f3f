package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	RateStorePostgres = "postgres"
	RateStoreRedis    = "redis"
)

// Config holds application configuration. Every field maps to the
// environment variable named by its mapstructure tag; each such key needs an
// entry in defaults for viper to pick it up from the environment.
type Config struct {
	ServerPort string `mapstructure:"SERVER_PORT" validate:"required"`

	StoreDriver string `mapstructure:"STORE_DRIVER" validate:"oneof=postgres memory"`
	DBHost      string `mapstructure:"DB_HOST" validate:"required_if=StoreDriver postgres"`
	DBPort      string `mapstructure:"DB_PORT" validate:"required_if=StoreDriver postgres"`
	DBUser      string `mapstructure:"DB_USER" validate:"required_if=StoreDriver postgres"`
	DBPassword  string `mapstructure:"DB_PASSWORD"`
	DBName      string `mapstructure:"DB_NAME" validate:"required_if=StoreDriver postgres"`
	DBSSLMode   string `mapstructure:"DB_SSLMODE" validate:"omitempty,oneof=disable require verify-ca verify-full"`
	DBMaxConns  int    `mapstructure:"DB_MAX_CONNECTIONS" validate:"omitempty,min=1"`
	// DBConnectTimeout bounds the startup retry loop while the database comes up.
	DBConnectTimeout time.Duration `mapstructure:"DB_CONNECT_TIMEOUT"`

	RateStore     string `mapstructure:"RATE_STORE" validate:"oneof=postgres redis"`
	RedisAddr     string `mapstructure:"REDIS_ADDR" validate:"required_if=RateStore redis"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB" validate:"min=0"`
	RedisUseTLS   bool   `mapstructure:"REDIS_USE_TLS"`

	ForexBaseURL           string        `mapstructure:"FOREX_BASE_URL" validate:"required,url"`
	ForexReferenceCurrency string        `mapstructure:"FOREX_REFERENCE_CURRENCY" validate:"required,len=3"`
	ForexTimeout           time.Duration `mapstructure:"FOREX_TIMEOUT"`
	ForexRequestsPerSecond float64       `mapstructure:"FOREX_REQUESTS_PER_SECOND" validate:"min=0"`
	ForexBurst             int           `mapstructure:"FOREX_BURST" validate:"min=0"`
	RateMaxAge             time.Duration `mapstructure:"RATE_MAX_AGE"`

	LogLevel  string `mapstructure:"LOG_LEVEL" validate:"omitempty,oneof=debug info warn error"`
	LogFormat string `mapstructure:"LOG_FORMAT" validate:"omitempty,oneof=json text"`
}

var defaults = map[string]interface{}{
	"SERVER_PORT":               "8080",
	"STORE_DRIVER":              StoreDriverPostgres,
	"DB_HOST":                   "localhost",
	"DB_PORT":                   "5432",
	"DB_USER":                   "postgres",
	"DB_PASSWORD":               "password",
	"DB_NAME":                   "minibank",
	"DB_SSLMODE":                "disable",
	"DB_MAX_CONNECTIONS":        25,
	"DB_CONNECT_TIMEOUT":        "30s",
	"RATE_STORE":                RateStorePostgres,
	"REDIS_ADDR":                "localhost:6379",
	"REDIS_PASSWORD":            "",
	"REDIS_DB":                  0,
	"REDIS_USE_TLS":             false,
	"FOREX_BASE_URL":            "https://api.nbp.pl",
	"FOREX_REFERENCE_CURRENCY":  "PLN",
	"FOREX_TIMEOUT":             "5s",
	"FOREX_REQUESTS_PER_SECOND": 5,
	"FOREX_BURST":               5,
	"RATE_MAX_AGE":              "5m",
	"LOG_LEVEL":                 "info",
	"LOG_FORMAT":                "json",
}

// Load reads configuration from an optional .env file and the environment.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.ForexReferenceCurrency = strings.ToUpper(cfg.ForexReferenceCurrency)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and reports every violation at once.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(validationErrs))
	for _, fe := range validationErrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed '%s' (value=%v)", fe.Field(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// GetDBConnectionString returns a lib/pq keyword/value DSN.
func (c *Config) GetDBConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.sslMode())
}

// GetDBURL returns the same connection as a postgres:// URL.
func (c *Config) GetDBURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     c.DBHost + ":" + c.DBPort,
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + c.sslMode(),
	}
	return u.String()
}

func (c *Config) sslMode() string {
	if c.DBSSLMode == "" {
		return "disable"
	}
	return c.DBSSLMode
}

// SlogLevel maps LogLevel onto slog levels, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
