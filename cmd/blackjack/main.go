package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/calvinwijaya/blackjack-3d/internal/config"
	"github.com/calvinwijaya/blackjack-3d/internal/game"
	"github.com/calvinwijaya/blackjack-3d/internal/tui"
	"github.com/charmbracelet/log"
)

var CLI struct {
	Config   string `short:"c" long:"config" default:"blackjack.hcl" help:"Path to HCL configuration file"`
	Balance  int    `short:"b" long:"balance" help:"Starting balance (overrides config)"`
	Seed     int64  `long:"seed" help:"Shuffle seed for a repeatable shoe (0 = random)"`
	LogFile  string `long:"log-file" help:"Write debug logs to this file"`
	LogLevel string `short:"l" long:"log-level" default:"debug" help:"Log level for --log-file"`
}

func main() {
	ctx := kong.Parse(&CLI)

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		ctx.Exit(1)
	}
	if CLI.Balance != 0 {
		cfg.Table.StartingBalance = CLI.Balance
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		ctx.Exit(1)
	}

	// The terminal belongs to the UI, so logs only go to a file when asked
	logger := log.New(io.Discard)
	if CLI.LogFile != "" {
		f, err := os.OpenFile(CLI.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Printf("Error opening log file: %v\n", err)
			ctx.Exit(1)
		}
		defer f.Close()

		logger = log.New(f)
		level, err := log.ParseLevel(CLI.LogLevel)
		if err != nil {
			level = log.DebugLevel
		}
		logger.SetLevel(level)
	}

	opts := []game.Option{game.WithLogger(logger)}
	if CLI.Seed != 0 {
		opts = append(opts, game.WithRand(rand.New(rand.NewSource(CLI.Seed))))
	}
	session := game.NewSession(cfg.GameConfig(), opts...)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := tui.Run(runCtx, session, cfg.Table.BetChips, logger); err != nil {
		logger.Error("TUI failed", "error", err)
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}
