package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	DBHost     string `envconfig:"DB_HOST"`
	DBUser     string `envconfig:"DB_USER"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	AppPort    string `envconfig:"APP_PORT" default:"5000"`
	AppEnv     string `envconfig:"APP_ENV" default:"development"`
	BaseURL    string `envconfig:"BASE_URL" default:"http://localhost:5000"`
	JWTSecret  string `envconfig:"JWT_SECRET"`

	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"http://localhost:3000"`

	PaystackSecretKey string        `envconfig:"PAYSTACK_SECRET_KEY"`
	PaystackBaseURL   string        `envconfig:"PAYSTACK_BASE_URL" default:"https://api.paystack.co"`
	PaymentTimeout    time.Duration `envconfig:"PAYMENT_TIMEOUT" default:"15s"`
	Currency          string        `envconfig:"PAYMENT_CURRENCY" default:"NGN"`
	ReferencePrefix   string        `envconfig:"REFERENCE_PREFIX" default:"watch"`
	ShippingFee       float64       `envconfig:"SHIPPING_FEE" default:"1000"`
	TaxRate           float64       `envconfig:"TAX_RATE" default:"0.075"`

	NatsURL           string `envconfig:"NATS_URL"`
	InternalSecretKey string `envconfig:"INTERNAL_SECRET_KEY"`
}

var ErrMissingDBHost = errors.New("environment variables not loaded properly: DB_HOST is empty")

func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.DBHost == "" {
		return nil, ErrMissingDBHost
	}
	if cfg.TaxRate < 0 || cfg.ShippingFee < 0 {
		return nil, fmt.Errorf("invalid pricing config: shipping=%v tax=%v", cfg.ShippingFee, cfg.TaxRate)
	}

	return cfg, nil
}

// IsProduction reports whether the service runs with production logging and defaults.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
