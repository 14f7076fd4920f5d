package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/NhuHoa123/stationery-storefront/pkg/config"
)

// Cart storage backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config holds all configuration for the storefront service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"STOREFRONT_HTTP_PORT" envDefault:"8080"`

	// Cart storage: "memory" keeps carts in process, "redis" shares them.
	CartStore string `env:"CART_STORE" envDefault:"memory"`

	// Redis
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Cart TTL in hours (default: 7 days)
	CartTTL int `env:"CART_TTL_HOURS" envDefault:"168"`

	// Cart limits
	MaxQuantityPerItem int `env:"CART_MAX_QUANTITY_PER_ITEM" envDefault:"100"`
	MaxLineItems       int `env:"CART_MAX_LINE_ITEMS" envDefault:"50"`

	// How long a checkout Idempotency-Key stays claimed, in minutes.
	IdempotencyTTL int `env:"CHECKOUT_IDEMPOTENCY_TTL_MINUTES" envDefault:"60"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Pprof debug endpoints (IP allowlist in CIDR notation)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,127.0.0.0/8,::1/128" envSeparator:","`

	// Browser origins allowed to call the API.
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Optional overrides for the built-in catalog and pricing policy.
	CatalogPath       string `env:"CATALOG_PATH" envDefault:""`
	PricingPolicyPath string `env:"PRICING_POLICY_PATH" envDefault:""`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	switch c.CartStore {
	case StoreMemory:
	case StoreRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when CART_STORE is %q", StoreRedis)
		}
	default:
		return fmt.Errorf("CART_STORE must be %q or %q, got %q", StoreMemory, StoreRedis, c.CartStore)
	}
	if c.CartTTL <= 0 {
		return fmt.Errorf("CART_TTL_HOURS must be positive, got %d", c.CartTTL)
	}
	if c.MaxQuantityPerItem <= 0 {
		return fmt.Errorf("CART_MAX_QUANTITY_PER_ITEM must be positive, got %d", c.MaxQuantityPerItem)
	}
	if c.MaxLineItems <= 0 {
		return fmt.Errorf("CART_MAX_LINE_ITEMS must be positive, got %d", c.MaxLineItems)
	}
	if c.IdempotencyTTL <= 0 {
		return fmt.Errorf("CHECKOUT_IDEMPOTENCY_TTL_MINUTES must be positive, got %d", c.IdempotencyTTL)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}

// CartTTLDuration returns CartTTL as a duration.
func (c *Config) CartTTLDuration() time.Duration {
	return time.Duration(c.CartTTL) * time.Hour
}

// IdempotencyTTLDuration returns IdempotencyTTL as a duration.
func (c *Config) IdempotencyTTLDuration() time.Duration {
	return time.Duration(c.IdempotencyTTL) * time.Minute
}
