// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/codr1/lottiecolor/internal/config"
	"github.com/codr1/lottiecolor/internal/db"
	"github.com/codr1/lottiecolor/internal/email"
	"github.com/codr1/lottiecolor/internal/history"
	"github.com/codr1/lottiecolor/internal/importer"
	"github.com/codr1/lottiecolor/internal/lottie"
	"github.com/codr1/lottiecolor/internal/ratelimit"
	"github.com/codr1/lottiecolor/internal/scheduler"
)

const defaultConfigPath = "config/app.yaml"

// deps is everything the handlers are initialized with.
type deps struct {
	cfg      *config.Config
	database *db.DB
	engine   *lottie.Engine
	versions *history.Store
	importer *importer.Importer
	limiter  *ratelimit.Limiter
	sender   email.EmailSender
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

// loadConfig reads CONFIG_PATH, falling back to built-in defaults when the
// file does not exist.
func loadConfig() (*config.Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found")
	}

	path := getEnv("CONFIG_PATH", defaultConfigPath)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		log.Warn().Str("path", path).Msg("Config file not found, using defaults")
		cfg, err := config.Parse(nil)
		if err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		return cfg, nil
	}
	return config.Load(path)
}

func setupLogger(environment string, debug bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func buildDeps(cfg *config.Config) (*deps, error) {
	database, err := db.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	engineCfg := cfg.LottieConfig()
	engineLogger := log.With().Str("component", "lottie").Logger()
	engineCfg.Logger = &engineLogger

	limiterCfg := ratelimit.DefaultConfig()
	limiterCfg.ImportCooldown = cfg.Import.Cooldown()
	limiterCfg.ImportMaxPerHour = cfg.Import.MaxPerHour

	d := &deps{
		cfg:      cfg,
		database: database,
		engine:   lottie.New(engineCfg),
		versions: history.NewStore(cfg.History.MaxVersions),
		importer: importer.New(importer.Config{
			Timeout:      cfg.Import.Timeout(),
			MaxBytes:     cfg.Import.MaxBytes,
			UserAgent:    cfg.Import.UserAgent,
			AllowAnyHost: cfg.Import.AllowAnyHost,
			MaxDepth:     cfg.Engine.MaxDepth,
		}),
		limiter: ratelimit.New(limiterCfg),
	}

	if cfg.ShareEnabled() {
		client, err := email.NewSESClient(cfg.Email.AccessKeyID, cfg.Email.SecretAccessKey, cfg.Email.Region, cfg.Email.FromAddress)
		if err != nil {
			log.Warn().Err(err).Msg("Share email disabled: SES client unavailable")
		} else {
			d.sender = client
		}
	}

	return d, nil
}

func (d *deps) close() {
	d.limiter.Close()
	if err := d.database.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close database")
	}
}

func startScheduler(d *deps) error {
	if err := scheduler.Init(); err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	if err := scheduler.RegisterHistoryPrune(d.database.Queries, d.cfg.History.Retention(), d.cfg.History.PruneCron); err != nil {
		return fmt.Errorf("register history prune: %w", err)
	}
	return scheduler.Start()
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg.App.Environment, cfg.Features.EnableDebug)

	d, err := buildDeps(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize dependencies")
	}
	defer d.close()

	if err := startScheduler(d); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}

	// Create server instance
	server := newServer(d)
	shutdownTimeout := time.Duration(getEnvAsInt("SHUTDOWN_TIMEOUT_SECONDS", 30)) * time.Second

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Run server
	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Str("base_url", cfg.App.BaseURL).Msg("Starting server")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Wait for interrupt signal
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		log.Info().Msg("Shutting down server")
		if err := scheduler.Stop(); err != nil {
			log.Error().Err(err).Msg("Failed to stop scheduler")
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server terminated with error")
		d.close()
		os.Exit(1)
	}
}
