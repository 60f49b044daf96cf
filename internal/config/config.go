// Package config provides runtime configuration values for the billing engine.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Store drivers accepted in STORE_DRIVER.
const (
	DriverMemory       = "memory"
	DriverPostgres     = "postgres"
	DriverSQLite       = "sqlite"
	DriverGormPostgres = "gorm-postgres"
)

// Config holds configuration knobs for the server, the stores and the
// billing defaults.
type Config struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	JWTSecret       string

	StoreDriver string
	DatabaseURL string
	SQLitePath  string
	DBDebug     bool

	DefaultTaxRate    decimal.Decimal
	LowStockThreshold decimal.Decimal
	Currency          string
	TxMaxAttempts     int

	LogLevel string
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func durenvs(key string, defSec int) time.Duration {
	sec := atoienv(key, defSec)
	return time.Duration(sec) * time.Second
}

func decenv(key, def string) decimal.Decimal {
	d, err := decimal.NewFromString(getenv(key, def))
	if err != nil || d.IsNegative() {
		return decimal.RequireFromString(def)
	}
	return d
}

func boolenv(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func listenv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Load collects configuration from environment with defaults. The store
// driver defaults to memory.
func Load() Config {
	return LoadFor(DriverMemory)
}

// LoadFor is Load with a different default for STORE_DRIVER. One-shot
// commands use a durable driver so state survives between runs.
func LoadFor(defaultDriver string) Config {
	taxRate := decenv("DEFAULT_TAX_RATE", "0.19")
	if taxRate.GreaterThan(decimal.NewFromInt(1)) {
		taxRate = decimal.RequireFromString("0.19")
	}

	return Config{
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		ShutdownTimeout:   durenvs("SHUTDOWN_TIMEOUT", 15),
		AllowedOrigins:    listenv("ALLOWED_ORIGINS"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		StoreDriver:       strings.ToLower(getenv("STORE_DRIVER", defaultDriver)),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		SQLitePath:        getenv("SQLITE_PATH", "billing.db"),
		DBDebug:           boolenv("DB_DEBUG"),
		DefaultTaxRate:    taxRate,
		LowStockThreshold: decenv("LOW_STOCK_THRESHOLD", "10"),
		Currency:          getenv("CURRENCY", "TND"),
		TxMaxAttempts:     atoienv("TX_MAX_ATTEMPTS", 5),
		LogLevel:          strings.ToLower(getenv("LOG_LEVEL", "info")),
	}
}
