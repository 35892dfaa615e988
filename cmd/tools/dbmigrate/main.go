// cmd/tools/dbmigrate/main.go
package main

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/codr1/lottiecolor/internal/config"
	"github.com/codr1/lottiecolor/internal/db"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to app config (database.filename is used when -db is empty)")
		dbPath     = flag.String("db", "", "Path to SQLite database")
		command    = flag.String("command", "", "Command to run (up, down, version, steps, force)")
		arg        = flag.String("n", "", "Step count for steps, version for force")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *command == "" {
		log.Error().Msg("-command is required")
		flag.PrintDefaults()
		os.Exit(1)
	}

	path := *dbPath
	if path == "" {
		cfg := config.Default()
		if *configPath != "" {
			loaded, err := config.Load(*configPath)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to load configuration")
			}
			cfg = loaded
		}
		path = cfg.Database.Filename
	}

	absDB, err := filepath.Abs(path)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid database path")
	}

	sqlDB, err := db.OpenSQLite(absDB)
	if err != nil {
		log.Fatal().Err(err).Str("db", absDB).Msg("Failed to open database")
	}
	defer sqlDB.Close()

	m, err := db.Migrator(sqlDB)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create migrate instance")
	}

	logger := log.With().Str("db", absDB).Str("command", *command).Logger()

	// Execute command
	switch *command {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			logger.Fatal().Err(err).Msg("Failed to run migrations")
		}
		logger.Info().Msg("Successfully ran migrations up")

	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			logger.Fatal().Err(err).Msg("Failed to rollback migrations")
		}
		logger.Info().Msg("Successfully ran migrations down")

	case "steps":
		n, err := strconv.Atoi(*arg)
		if err != nil || n == 0 {
			logger.Fatal().Str("n", *arg).Msg("-n must be a non-zero step count")
		}
		if err := m.Steps(n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			logger.Fatal().Err(err).Int("steps", n).Msg("Failed to migrate steps")
		}
		logger.Info().Int("steps", n).Msg("Successfully migrated steps")

	case "force":
		version, err := strconv.Atoi(*arg)
		if err != nil {
			logger.Fatal().Str("n", *arg).Msg("-n must be a migration version")
		}
		if err := m.Force(version); err != nil {
			logger.Fatal().Err(err).Int("version", version).Msg("Failed to force version")
		}
		logger.Info().Int("version", version).Msg("Forced migration version")

	case "version":
		version, dirty, err := m.Version()
		if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
			logger.Fatal().Err(err).Msg("Failed to get version")
		}
		logger.Info().Uint("version", version).Bool("dirty", dirty).Msg("Current migration version")

	default:
		logger.Fatal().Msg("Unknown command")
	}
}
