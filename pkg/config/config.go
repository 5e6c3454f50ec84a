package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type App struct {
	ServiceName string `envconfig:"SERVICE_NAME" default:"order-service"`
	Env         string `envconfig:"ENV" default:"dev"`

	// DB
	DBDriver   string `envconfig:"DB_DRIVER" default:"postgres"`
	PGOrderDSN string `envconfig:"PG_ORDER_DSN" required:"true"`
	// JWT
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`
	// Razorpay
	RazorpayKeyID     string `envconfig:"RAZORPAY_KEY_ID" required:"true"`
	RazorpayKeySecret string `envconfig:"RAZORPAY_KEY_SECRET" required:"true"`
	Currency          string `envconfig:"ORDER_CURRENCY" default:"INR"`
	// empty leaves the webhook route unregistered
	RazorpayWebhookSecret string `envconfig:"RAZORPAY_WEBHOOK_SECRET" default:""`
	// RabbitMQ
	RabbitURL       string `envconfig:"RABBIT_URL" required:"true"`
	OrderExchange   string `envconfig:"ORDER_EXCHANGE" default:"order.exchange"`
	ProjectionQueue string `envconfig:"ORDER_PROJECTION_QUEUE" default:"order.projection.q"`
	// Redis, empty address disables the course list cache
	RedisAddr      string        `envconfig:"REDIS_ADDR" default:""`
	CourseCacheTTL time.Duration `envconfig:"COURSE_CACHE_TTL" default:"5m"`
	// Network
	OrderHTTPAddr   string        `envconfig:"ORDER_HTTP_ADDR" default:":8080"`
	FinalizeTimeout time.Duration `envconfig:"FINALIZE_TIMEOUT" default:"30s"`
	// Tracing, empty endpoint disables export
	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:""`
}

// Load reads .env when present, then the process environment.
func Load() (App, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return App{}, fmt.Errorf("load .env: %w", err)
	}
	var c App
	if err := envconfig.Process("", &c); err != nil {
		return App{}, err
	}
	return c, c.Validate()
}

// Validate rejects settings that envconfig accepts but the service cannot run
// with, such as required keys that are set to an empty value.
func (c App) Validate() error {
	for key, v := range map[string]string{
		"PG_ORDER_DSN":        c.PGOrderDSN,
		"JWT_SECRET":          c.JWTSecret,
		"RAZORPAY_KEY_ID":     c.RazorpayKeyID,
		"RAZORPAY_KEY_SECRET": c.RazorpayKeySecret,
		"RABBIT_URL":          c.RabbitURL,
	} {
		if v == "" {
			return fmt.Errorf("required key %s is empty", key)
		}
	}
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.Currency == "" {
		return errors.New("ORDER_CURRENCY must not be empty")
	}
	if c.FinalizeTimeout <= 0 {
		return errors.New("FINALIZE_TIMEOUT must be positive")
	}
	return nil
}
