// Package binance provides a market data client for the Binance spot REST API.
package binance

import (
	"os"
	"time"
)

const defaultBaseURL = "https://api.binance.com"

// Config holds configuration for the Binance REST client.
type Config struct {
	BaseURL        string
	Timeout        time.Duration
	CallsPerMinute int
}

// LoadConfig loads Binance configuration from environment variables.
func LoadConfig() Config {
	base := os.Getenv("BINANCE_BASE_URL")
	if base == "" {
		base = defaultBaseURL
	}
	return Config{
		BaseURL:        base,
		Timeout:        10 * time.Second,
		CallsPerMinute: 600,
	}
}
