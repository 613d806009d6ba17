package config

import (
	"os"
	"strconv"
	"time"
)

// Config carries every tunable the services need. Values come from the
// environment so operational tuning never requires a rebuild.
type Config struct {
	Addr        string
	DatabaseURL string
	JWTSecret   string

	// checkout
	CartLockTTL time.Duration

	// pricing
	TaxRate         float64
	ShippingFee     float64
	FreeShippingMin float64

	// payment gateway
	GatewayBaseURL string
	GatewayKeyID   string
	GatewaySecret  string
	Currency       string
}

func Load() Config {
	return Config{
		Addr:        getenv("APP_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),

		CartLockTTL: getduration("CART_LOCK_TTL", 5*time.Minute),

		TaxRate:         getfloat("TAX_RATE", 0.07),
		ShippingFee:     getfloat("SHIPPING_FEE", 50),
		FreeShippingMin: getfloat("FREE_SHIPPING_MIN", 500),

		GatewayBaseURL: getenv("PAYMENT_GATEWAY_URL", "https://api.gateway.test"),
		GatewayKeyID:   os.Getenv("PAYMENT_KEY_ID"),
		GatewaySecret:  os.Getenv("PAYMENT_KEY_SECRET"),
		Currency:       getenv("CURRENCY", "THB"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getfloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
