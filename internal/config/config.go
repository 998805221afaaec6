package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Env string

const (
	EnvLocal  Env = "local"
	EnvDocker Env = "docker"
)

type StorageDriver string

const (
	StoragePostgres StorageDriver = "postgres"
	StorageMemory   StorageDriver = "memory"
)

type Config struct {
	AppEnv   Env    `env:"APP_ENV" envDefault:"local"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8443"`
	CertFile string `env:"CERT_FILE_PATH"`
	KeyFile  string `env:"KEY_FILE_PATH"`

	StorageDriver StorageDriver `env:"STORAGE_DRIVER" envDefault:"postgres"`
	DatabaseURL   string        `env:"DATABASE_URL"`
	DBMaxConns    int32         `env:"DB_MAX_CONNS" envDefault:"10"`
	AutoMigrate   bool          `env:"AUTO_MIGRATE" envDefault:"true"`

	PaymeLogin     string `env:"PAYME_LOGIN" envDefault:"Paycom"`
	PaymeSecretKey string `env:"PAYME_SECRET_KEY"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	KafkaBrokers      []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaPaymentTopic string   `env:"KAFKA_PAYMENT_TOPIC" envDefault:"registration.payments"`

	GRPCHealthAddr string `env:"GRPC_HEALTH_ADDR"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// LoadConfig reads an optional .env file, then the process environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDatabaseConfig is LoadConfig for tooling that only talks to the
// database, such as the migrate command.
func LoadDatabaseConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.AppEnv != EnvLocal && c.AppEnv != EnvDocker {
		return fmt.Errorf("invalid APP_ENV: %s (must be 'local' or 'docker')", c.AppEnv)
	}
	if c.HTTPAddr == "" {
		return errors.New("HTTP_ADDR is required")
	}
	if (c.CertFile == "") != (c.KeyFile == "") {
		return errors.New("CERT_FILE_PATH and KEY_FILE_PATH must be set together")
	}
	switch c.StorageDriver {
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres storage driver")
		}
		if c.DBMaxConns <= 0 {
			return errors.New("DB_MAX_CONNS must be positive")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("invalid STORAGE_DRIVER: %s (must be 'postgres' or 'memory')", c.StorageDriver)
	}
	if c.PaymeSecretKey == "" {
		return errors.New("PAYME_SECRET_KEY is required")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaPaymentTopic == "" {
		return errors.New("KAFKA_PAYMENT_TOPIC is required when KAFKA_BROKERS is set")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) TLSEnabled() bool {
	return c.CertFile != "" && c.KeyFile != ""
}

// Log writes the effective configuration without secrets.
func (c *Config) Log(logger *zap.Logger) {
	logger.Info("config loaded",
		zap.String("app_env", string(c.AppEnv)),
		zap.String("http_addr", c.HTTPAddr),
		zap.Bool("tls", c.TLSEnabled()),
		zap.String("storage_driver", string(c.StorageDriver)),
		zap.String("database_url", maskDSN(c.DatabaseURL)),
		zap.Int32("db_max_conns", c.DBMaxConns),
		zap.Bool("auto_migrate", c.AutoMigrate),
		zap.String("payme_login", c.PaymeLogin),
		zap.String("redis_addr", c.RedisAddr),
		zap.Strings("kafka_brokers", c.KafkaBrokers),
		zap.String("kafka_payment_topic", c.KafkaPaymentTopic),
		zap.String("grpc_health_addr", c.GRPCHealthAddr),
		zap.Duration("shutdown_timeout", c.ShutdownTimeout),
	)
}

// maskDSN hides the password of a URL-style DSN.
func maskDSN(dsn string) string {
	if dsn == "" {
		return ""
	}
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	if _, ok := u.User.Password(); !ok {
		return dsn
	}
	return u.Redacted()
}
