package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// WashSaleScope controls how widely a wash-sale block applies.
type WashSaleScope string

const (
	// ScopeAccount blocks repurchases only in the account that realized the loss.
	ScopeAccount WashSaleScope = "account"
	// ScopeGroup blocks repurchases in every account of the rebalancing group.
	// This is the conservative default: wash-sale rules apply across accounts
	// under common control.
	ScopeGroup WashSaleScope = "group"
)

// Config holds application configuration
type Config struct {
	DatabasePath string
	LogLevel     string
	Port         int
	DevMode      bool

	// Engine policy
	WashSaleScope     WashSaleScope
	HarvestMinLossPct float64 // loss as fraction of cost basis, e.g. 0.05
	HarvestMinLossAbs float64 // dollar floor, e.g. 2500
	MinTradeAmount    float64 // skip drift corrections smaller than this
	PriceStaleHours   int     // warn when a price is older than this
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnvAsInt("GO_PORT", 8001),
		DevMode:           getEnvAsBool("DEV_MODE", false),
		DatabasePath:      getEnv("DATABASE_PATH", "./data/sleeveworks.db"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		WashSaleScope:     WashSaleScope(getEnv("WASH_SALE_SCOPE", string(ScopeGroup))),
		HarvestMinLossPct: getEnvAsFloat("HARVEST_MIN_LOSS_PCT", 0.05),
		HarvestMinLossAbs: getEnvAsFloat("HARVEST_MIN_LOSS_ABS", 2500.0),
		MinTradeAmount:    getEnvAsFloat("MIN_TRADE_AMOUNT", 100.0),
		PriceStaleHours:   getEnvAsInt("PRICE_STALE_HOURS", 24),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}

	switch c.WashSaleScope {
	case ScopeAccount, ScopeGroup:
	default:
		return fmt.Errorf("WASH_SALE_SCOPE must be %q or %q, got %q",
			ScopeAccount, ScopeGroup, c.WashSaleScope)
	}

	if c.HarvestMinLossPct < 0 || c.HarvestMinLossAbs < 0 {
		return fmt.Errorf("harvest thresholds must not be negative")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
