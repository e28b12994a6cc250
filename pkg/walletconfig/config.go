// Package walletconfig defines the flag-parsed configuration for the
// saplingtool CLI, adapted from cmd/ccoind's Config/parseFlags shape.
package walletconfig

import "flag"

// Config holds the wallet tool's configuration.
type Config struct {
	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	// Wallet
	SeedHex       string
	AccountLimit  uint32
	ChangeAddress string

	// Logging
	LogLevel string
	LogFile  string

	// Data
	DataDir string
}

// Default returns the default wallet tool configuration.
func Default() *Config {
	return &Config{
		DBHost:       "localhost",
		DBPort:       5432,
		DBUser:       "sapling",
		DBPassword:   "",
		DBName:       "sapling",
		AccountLimit: 1,
		LogLevel:     "info",
		DataDir:      "./data",
	}
}

// ParseFlags registers and parses the standard flag set for saplingtool,
// returning the resulting Config.
func ParseFlags() *Config {
	cfg := Default()

	flag.StringVar(&cfg.DBHost, "db-host", cfg.DBHost, "PostgreSQL host")
	flag.IntVar(&cfg.DBPort, "db-port", cfg.DBPort, "PostgreSQL port")
	flag.StringVar(&cfg.DBUser, "db-user", cfg.DBUser, "PostgreSQL user")
	flag.StringVar(&cfg.DBPassword, "db-password", cfg.DBPassword, "PostgreSQL password")
	flag.StringVar(&cfg.DBName, "db-name", cfg.DBName, "PostgreSQL database name")

	flag.StringVar(&cfg.SeedHex, "seed", "", "hex-encoded wallet seed (empty uses the empty seed)")
	accountLimit := uint(cfg.AccountLimit)
	flag.UintVar(&accountLimit, "account-limit", accountLimit, "number of ZIP-32 accounts to derive and watch")
	flag.StringVar(&cfg.ChangeAddress, "change-address", "", "diversified address to receive change (empty reuses the spend address)")

	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	flag.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "log file path (empty for stdout)")

	flag.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "data directory")

	flag.Parse()
	cfg.AccountLimit = uint32(accountLimit)

	return cfg
}
