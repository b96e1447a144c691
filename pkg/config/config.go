package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment variable the service reads.
const EnvPrefix = "vaaney"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Quotes       QuotesConfig
	Cron         CronConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.DB.DSN == "" {
		return nil, fmt.Errorf("database DSN is required")
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"VAANEY_APP_ENV" required:"true"`
	Port         string `envconfig:"VAANEY_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"VAANEY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VAANEY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN             string        `envconfig:"VAANEY_DB_DSN"`
	MaxOpenConns    int           `envconfig:"VAANEY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VAANEY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VAANEY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VAANEY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VAANEY_REDIS_URL"`
	Addr         string        `envconfig:"VAANEY_REDIS_ADDR" default:"localhost:6379"`
	Password     string        `envconfig:"VAANEY_REDIS_PASSWORD"`
	DB           int           `envconfig:"VAANEY_REDIS_DB" default:"0"`
	DialTimeout  time.Duration `envconfig:"VAANEY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VAANEY_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"VAANEY_REDIS_WRITE_TIMEOUT" default:"3s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"VAANEY_JWT_SECRET"`
	Issuer            string `envconfig:"VAANEY_JWT_ISSUER" default:"vaaney"`
	ExpirationMinutes int    `envconfig:"VAANEY_JWT_EXPIRATION_MINUTES" default:"60"`
}

type QuotesConfig struct {
	// DefaultTTL applies when a seller sends a quote without an explicit
	// expiry. Zero disables the implicit deadline.
	DefaultTTL time.Duration `envconfig:"VAANEY_QUOTE_DEFAULT_TTL" default:"168h"`
}

type FeatureFlagsConfig struct {
	// AutoMigrate runs goose migrations on boot in dev environments.
	AutoMigrate bool `envconfig:"VAANEY_AUTO_MIGRATE" default:"false"`
}

type CronConfig struct {
	Interval        time.Duration `envconfig:"VAANEY_CRON_INTERVAL" default:"1h"`
	LockKey         string        `envconfig:"VAANEY_CRON_LOCK_KEY" default:"vaaney:cron:lock"`
	LockTTL         time.Duration `envconfig:"VAANEY_CRON_LOCK_TTL" default:"2h"`
	ReturnStaleDays int           `envconfig:"VAANEY_CRON_RETURN_STALE_DAYS" default:"7"`
}
