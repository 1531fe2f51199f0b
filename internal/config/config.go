package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServiceName string
	Env         string
	HTTPAddr    string

	// Optional backing stores; memory implementations are used when unset.
	PostgresDSN  string
	RedisAddr    string
	KafkaBrokers []string

	CashfreeBaseURL   string
	CashfreeAppID     string
	CashfreeSecretKey string
	GatewayTimeout    time.Duration
	GatewayRetries    int

	PaymentReturnURL string
}

// Load reads configuration from the environment, after sourcing a local .env
// file when one exists.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		ServiceName:       getenv("SERVICE_NAME", "shopping-backend"),
		Env:               getenv("ENV", "dev"),
		HTTPAddr:          getenv("HTTP_ADDR", ":3001"),
		PostgresDSN:       os.Getenv("POSTGRES_DSN"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		KafkaBrokers:      splitCSV(os.Getenv("KAFKA_BROKERS")),
		CashfreeBaseURL:   getenv("CASHFREE_BASE_URL", "https://sandbox.cashfree.com"),
		CashfreeAppID:     os.Getenv("CASHFREE_APP_ID"),
		CashfreeSecretKey: os.Getenv("CASHFREE_SECRET_KEY"),
		GatewayTimeout:    getduration("GATEWAY_TIMEOUT", 5*time.Second),
		GatewayRetries:    getint("GATEWAY_RETRIES", 3),
		PaymentReturnURL:  getenv("PAYMENT_RETURN_URL", "http://localhost:3000/customer/vieworders?order_id={order_id}"),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
