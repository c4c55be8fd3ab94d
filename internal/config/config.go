package config

import (
	"fmt"
	"os"
	"time"

	"github.com/calvinwijaya/blackjack-3d/internal/game"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config represents the complete configuration file. Both blocks are
// optional.
type Config struct {
	Server *ServerSettings `hcl:"server,block"`
	Table  *TableSettings  `hcl:"table,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address     string `hcl:"address,optional"`
	Port        int    `hcl:"port,optional"`
	LogLevel    string `hcl:"log_level,optional"`
	FrontendURL string `hcl:"frontend_url,optional"`
	// Database is a SQLite path or a postgres:// DSN; empty disables the ledger
	Database string `hcl:"database,optional"`
}

// TableSettings defines the limits and pacing of every session
type TableSettings struct {
	StartingBalance   int   `hcl:"starting_balance,optional"`
	MaxBet            int   `hcl:"max_bet,optional"`
	DealerDelayMs     int   `hcl:"dealer_delay_ms,optional"`
	BankruptcyDelayMs int   `hcl:"bankruptcy_delay_ms,optional"`
	BetChips          []int `hcl:"bet_chips,optional"`
}

const (
	defaultAddress     = "localhost"
	defaultPort        = 8080
	defaultLogLevel    = "info"
	defaultFrontendURL = "http://localhost:5173"
	defaultDatabase    = "./data/blackjack.db"
)

// Default returns the default configuration
func Default() *Config {
	cfg := &Config{
		Server: &ServerSettings{Database: defaultDatabase},
	}
	cfg.applyDefaults()
	return cfg
}

// Load loads configuration from an HCL file. A missing file yields the defaults.
func Load(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var cfg Config
	diags = gohcl.DecodeBody(file.Body, nil, &cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server == nil {
		c.Server = &ServerSettings{}
	}
	if c.Table == nil {
		c.Table = &TableSettings{}
	}

	if c.Server.Address == "" {
		c.Server.Address = defaultAddress
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = defaultLogLevel
	}
	if c.Server.FrontendURL == "" {
		c.Server.FrontendURL = defaultFrontendURL
	}

	if c.Table.StartingBalance == 0 {
		c.Table.StartingBalance = game.DefaultStartingBalance
	}
	if c.Table.MaxBet == 0 {
		c.Table.MaxBet = game.DefaultMaxBet
	}
	if c.Table.DealerDelayMs == 0 {
		c.Table.DealerDelayMs = int(game.DefaultDealerDelay / time.Millisecond)
	}
	if c.Table.BankruptcyDelayMs == 0 {
		c.Table.BankruptcyDelayMs = int(game.DefaultBankruptcyDelay / time.Millisecond)
	}
	if len(c.Table.BetChips) == 0 {
		c.Table.BetChips = append([]int{}, game.DefaultBetChips...)
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	switch c.Server.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Server.LogLevel)
	}

	if c.Table.StartingBalance <= 0 {
		return fmt.Errorf("table: starting balance must be positive")
	}
	if c.Table.MaxBet <= 0 {
		return fmt.Errorf("table: max bet must be positive")
	}
	if c.Table.DealerDelayMs < 0 || c.Table.BankruptcyDelayMs < 0 {
		return fmt.Errorf("table: delays cannot be negative")
	}
	for _, chip := range c.Table.BetChips {
		if chip <= 0 || chip > c.Table.MaxBet {
			return fmt.Errorf("table: bet chip %d outside (0, %d]", chip, c.Table.MaxBet)
		}
	}

	return nil
}

// Address returns the full listen address
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// GameConfig converts the table settings for game.NewSession
func (c *Config) GameConfig() game.Config {
	return game.Config{
		StartingBalance: c.Table.StartingBalance,
		MaxBet:          c.Table.MaxBet,
		DealerDelay:     time.Duration(c.Table.DealerDelayMs) * time.Millisecond,
		BankruptcyDelay: time.Duration(c.Table.BankruptcyDelayMs) * time.Millisecond,
	}
}
