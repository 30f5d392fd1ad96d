// Package config reads service and client settings from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// TablesConfig names the DynamoDB tables.
type TablesConfig struct {
	Orders      string
	Idempotency string
	Products    string
}

// Config is the order service configuration.
type Config struct {
	Addr     string
	RunLocal bool
	LogLevel string

	Tables         TablesConfig
	IdempotencyTTL time.Duration
	QueueURL       string

	JWTSecret string

	// ShippingFee is charged on SHIPPER orders. HAND_DELIVERY is free.
	ShippingFee decimal.Decimal
}

// WorkerConfig is the event worker configuration.
type WorkerConfig struct {
	RunLocal         bool
	LogLevel         string
	MetricsNamespace string
}

// ClientConfig is what the order client needs to reach the service.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
	// Token is a bearer token for tools that act as one user.
	Token string
}

const (
	DefaultClientTimeout  = 15 * time.Second
	DefaultIdempotencyTTL = 48 * time.Hour
)

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("run_local", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("metrics_namespace", "CampusMarket/Orders")
	return v
}

// Load reads the service configuration.
//
//	ADDR, RUN_LOCAL, LOG_LEVEL
//	ORDERS_TABLE, IDEMPOTENCY_TABLE, PRODUCTS_TABLE, IDEMPOTENCY_TTL
//	ORDERS_QUEUE_URL, JWT_SECRET, SHIPPING_FEE
func Load() (Config, error) {
	v := newViper()
	v.SetDefault("addr", ":8080")
	v.SetDefault("orders_table", "orders")
	v.SetDefault("idempotency_table", "idempotency")
	v.SetDefault("products_table", "products")
	v.SetDefault("idempotency_ttl", DefaultIdempotencyTTL)
	v.SetDefault("shipping_fee", "15000")
	v.SetDefault("orders_queue_url", "")
	v.SetDefault("jwt_secret", "")

	fee, err := decimal.NewFromString(v.GetString("shipping_fee"))
	if err != nil {
		return Config{}, fmt.Errorf("SHIPPING_FEE: %w", err)
	}
	if fee.IsNegative() {
		return Config{}, fmt.Errorf("SHIPPING_FEE must not be negative, got %s", fee)
	}

	cfg := Config{
		Addr:     v.GetString("addr"),
		RunLocal: v.GetBool("run_local"),
		LogLevel: v.GetString("log_level"),
		Tables: TablesConfig{
			Orders:      v.GetString("orders_table"),
			Idempotency: v.GetString("idempotency_table"),
			Products:    v.GetString("products_table"),
		},
		IdempotencyTTL: v.GetDuration("idempotency_ttl"),
		QueueURL:       v.GetString("orders_queue_url"),
		JWTSecret:      v.GetString("jwt_secret"),
		ShippingFee:    fee,
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}
	return cfg, nil
}

// LoadWorker reads RUN_LOCAL, LOG_LEVEL and METRICS_NAMESPACE.
func LoadWorker() (WorkerConfig, error) {
	v := newViper()
	cfg := WorkerConfig{
		RunLocal:         v.GetBool("run_local"),
		LogLevel:         v.GetString("log_level"),
		MetricsNamespace: v.GetString("metrics_namespace"),
	}
	if cfg.MetricsNamespace == "" {
		return WorkerConfig{}, errors.New("METRICS_NAMESPACE must not be empty")
	}
	return cfg, nil
}

// LoadClient reads ORDER_SERVICE_URL, ORDER_SERVICE_TIMEOUT and
// ORDER_SERVICE_TOKEN.
func LoadClient() (ClientConfig, error) {
	v := newViper()
	v.SetDefault("order_service_url", "http://localhost:8080")
	v.SetDefault("order_service_timeout", DefaultClientTimeout)

	cfg := ClientConfig{
		BaseURL: v.GetString("order_service_url"),
		Timeout: v.GetDuration("order_service_timeout"),
		Token:   v.GetString("order_service_token"),
	}
	if cfg.Timeout <= 0 {
		return ClientConfig{}, fmt.Errorf("ORDER_SERVICE_TIMEOUT must be positive, got %s", cfg.Timeout)
	}
	return cfg, nil
}
