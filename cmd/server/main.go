package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/calvinwijaya/blackjack-3d/internal/api"
	"github.com/calvinwijaya/blackjack-3d/internal/config"
	"github.com/calvinwijaya/blackjack-3d/internal/db"
	"github.com/calvinwijaya/blackjack-3d/internal/store"
	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"
)

var CLI struct {
	Config   string `short:"c" long:"config" default:"blackjack.hcl" help:"Path to HCL configuration file"`
	Addr     string `short:"a" long:"addr" help:"Server address to bind to (overrides config)"`
	Port     int    `short:"p" long:"port" help:"Server port (overrides config)"`
	LogLevel string `short:"l" long:"log-level" help:"Log level (overrides config)"`
	DB       string `long:"db" help:"SQLite path or postgres:// DSN for the round ledger (overrides config)"`
	Frontend string `long:"frontend" help:"Frontend URL for CORS (overrides config)"`
}

func main() {
	ctx := kong.Parse(&CLI)

	// Load configuration
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		ctx.Exit(1)
	}

	// Apply command line overrides
	if CLI.Addr != "" {
		cfg.Server.Address = CLI.Addr
	}
	if CLI.Port != 0 {
		cfg.Server.Port = CLI.Port
	}
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}
	if CLI.DB != "" {
		cfg.Server.Database = CLI.DB
	}
	if CLI.Frontend != "" {
		cfg.Server.FrontendURL = CLI.Frontend
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		ctx.Exit(1)
	}

	logger := newLogger(cfg.Server.LogLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server failed", "error", err)
		ctx.Exit(1)
	}
}

func newLogger(level string) *log.Logger {
	logger := log.New(os.Stderr)
	switch level {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "info":
		logger.SetLevel(log.InfoLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}
	return logger
}

// openLedger opens the round ledger. A failure is logged and the server
// carries on without history.
func openLedger(dsn string, logger *log.Logger) *db.Database {
	if dsn == "" {
		logger.Info("No database configured, round history disabled")
		return nil
	}

	if db.DriverFor(dsn) == "sqlite3" && !strings.HasPrefix(dsn, ":memory:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			logger.Warn("Failed to create data directory", "error", err)
		}
	}

	database, err := db.NewDatabase(dsn)
	if err != nil {
		logger.Warn("Failed to initialize database, continuing without persistence", "error", err)
		return nil
	}

	logger.Info("Database initialized", "driver", database.Driver())
	return database
}

func run(cfg *config.Config, logger *log.Logger) error {
	database := openLedger(cfg.Server.Database, logger)
	if database != nil {
		defer database.Close()
	}

	sessions := store.NewMemoryStore()
	hub := api.NewHub(logger)

	handlers := api.NewHandlers(sessions, database, hub, api.Settings{
		Game:     cfg.GameConfig(),
		BetChips: cfg.Table.BetChips,
	}, logger)

	r := mux.NewRouter()
	handlers.RegisterRoutes(r)
	r.Use(api.LoggingMiddleware(logger))

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.Server.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:         cfg.Address(),
		Handler:      c.Handler(r),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(ctx)
		return nil
	})

	g.Go(func() error {
		logger.Info("Starting blackjack server",
			"addr", cfg.Address(),
			"frontend", cfg.Server.FrontendURL,
			"startingBalance", cfg.Table.StartingBalance,
			"maxBet", cfg.Table.MaxBet)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
