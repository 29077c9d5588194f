package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/operationseasyfi/ai-voice-agent/internal/infrastructure/config"
	"github.com/operationseasyfi/ai-voice-agent/internal/infrastructure/database"
	"github.com/operationseasyfi/ai-voice-agent/internal/infrastructure/telemetry"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to configuration file")
		action     = flag.String("action", "up", "Migration action: up, down, version")
		steps      = flag.Int("steps", 1, "Number of migrations to roll back (down only)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := telemetry.NewLogger(cfg.LogLevel, cfg.Environment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(*action, *steps, cfg.Database.URL, logger); err != nil {
		logger.Error("migration failed", zap.String("action", *action), zap.Error(err))
		os.Exit(1)
	}
}

func run(action string, steps int, databaseURL string, logger *zap.Logger) error {
	m, err := database.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()

	switch action {
	case "up":
		if err := m.Up(); err != nil {
			return err
		}
	case "down":
		if steps <= 0 {
			return fmt.Errorf("steps must be positive, got %d", steps)
		}
		if err := m.Down(steps); err != nil {
			return err
		}
	case "version":
	default:
		return fmt.Errorf("unknown action %q", action)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	logger.Info("schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}
