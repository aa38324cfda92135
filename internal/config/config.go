package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/repository"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

type Config struct {
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	HTTPPort        string        `envconfig:"HTTP_PORT" default:"8080"`
	GRPCPort        string        `envconfig:"GRPC_PORT" default:"9090"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	HealthInterval  time.Duration `envconfig:"HEALTH_INTERVAL" default:"5s"`

	StoreDriver         string        `envconfig:"STORE_DRIVER" default:"memory"`
	CheckoutLockTimeout time.Duration `envconfig:"CHECKOUT_LOCK_TIMEOUT" default:"5s"`

	DBHost         string `envconfig:"DB_HOST" default:"localhost"`
	DBPort         int    `envconfig:"DB_PORT" default:"5432"`
	DBUser         string `envconfig:"DB_USER" default:"postgres"`
	DBPassword     string `envconfig:"DB_PASSWORD" default:"postgres"`
	DBName         string `envconfig:"DB_NAME" default:"auroramart"`
	DBSSLMode      string `envconfig:"DB_SSLMODE" default:"disable"`
	MigrationsPath string `envconfig:"MIGRATIONS_PATH" default:"internal/repository/migrations"`

	// RedisAddr empty disables the cart cache.
	RedisAddr     string `envconfig:"REDIS_ADDR" default:""`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// KafkaBrokers empty disables the outbox publisher.
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS" default:""`

	RecommendationRulesPath string        `envconfig:"RECOMMENDATION_RULES_PATH" default:""`
	RecommendationMetric    string        `envconfig:"RECOMMENDATION_METRIC" default:"confidence"`
	RecommendationTimeout   time.Duration `envconfig:"RECOMMENDATION_TIMEOUT" default:"300ms"`
}

// Load reads an optional .env file, then the environment.
func Load(envFiles ...string) (*Config, error) {
	// Missing .env files are fine, real environment variables still apply.
	_ = godotenv.Load(envFiles...)

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	if c.StoreDriver != DriverMemory && c.StoreDriver != DriverPostgres {
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverMemory, DriverPostgres, c.StoreDriver)
	}
	if c.CheckoutLockTimeout <= 0 {
		return fmt.Errorf("CHECKOUT_LOCK_TIMEOUT must be positive, got %s", c.CheckoutLockTimeout)
	}
	if c.CheckoutLockTimeout >= c.RequestTimeout {
		return fmt.Errorf("CHECKOUT_LOCK_TIMEOUT (%s) must be below REQUEST_TIMEOUT (%s)", c.CheckoutLockTimeout, c.RequestTimeout)
	}

	brokers := c.KafkaBrokers[:0]
	for _, b := range c.KafkaBrokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	c.KafkaBrokers = brokers
	return nil
}

func (c *Config) Credentials() *repository.Credentials {
	return &repository.Credentials{
		Host:              c.DBHost,
		Port:              c.DBPort,
		User:              c.DBUser,
		Password:          c.DBPassword,
		DBName:            c.DBName,
		SSLMode:           c.DBSSLMode,
		MigrationsDirPath: c.MigrationsPath,
	}
}
