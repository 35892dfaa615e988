// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/codr1/lottiecolor/internal/lottie"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Filename string `yaml:"filename"`
}

type EngineConfig struct {
	ExactTolerance float64 `yaml:"exact_tolerance"`
	ByteTolerance  float64 `yaml:"byte_tolerance"`
	GroupTolerance float64 `yaml:"group_tolerance"`
	GroupMetric    string  `yaml:"group_metric"`
	MaxDepth       int     `yaml:"max_depth"`
}

type ImportConfig struct {
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	MaxBytes        int64  `yaml:"max_bytes"`
	CooldownSeconds int    `yaml:"cooldown_seconds"`
	MaxPerHour      int    `yaml:"max_per_hour"`
	AllowAnyHost    bool   `yaml:"allow_any_host"`
	UserAgent       string `yaml:"user_agent"`
	// TrustProxy reads the client IP from X-Forwarded-For / X-Real-IP.
	TrustProxy bool `yaml:"trust_proxy"`
}

type HistoryConfig struct {
	MaxVersions   int    `yaml:"max_versions"`
	RetentionDays int    `yaml:"retention_days"`
	PruneCron     string `yaml:"prune_cron"`
}

type EmailConfig struct {
	Region          string `yaml:"region"`
	FromAddress     string `yaml:"from_address"`
	AccessKeyID     string `yaml:"-"` // Loaded from environment
	SecretAccessKey string `yaml:"-"` // Loaded from environment
}

type AuthConfig struct {
	AdminUser         string `yaml:"admin_user"`
	AdminPasswordHash string `yaml:"-"` // Loaded from environment
}

type Config struct {
	App struct {
		Name        string `yaml:"name"`
		Environment string `yaml:"environment"`
		Port        int    `yaml:"port"`
		BaseURL     string `yaml:"base_url"`
		StaticDir   string `yaml:"static_dir"`
	} `yaml:"app"`

	Database DatabaseConfig `yaml:"database"`
	Engine   EngineConfig   `yaml:"engine"`
	Import   ImportConfig   `yaml:"import"`
	History  HistoryConfig  `yaml:"history"`
	Email    EmailConfig    `yaml:"email"`
	Auth     AuthConfig     `yaml:"auth"`

	Features struct {
		EnableShare bool `yaml:"enable_share"`
		EnableDebug bool `yaml:"enable_debug"`
	} `yaml:"features"`
}

// Default returns a configuration usable without a YAML file.
func Default() *Config {
	var cfg Config
	cfg.App.Name = "lottiecolor"
	cfg.App.Environment = "development"
	cfg.App.Port = 8080
	cfg.App.BaseURL = "http://localhost:8080"
	cfg.Database.Driver = "sqlite"
	cfg.Database.Filename = "data/lottiecolor.db"
	cfg.applyDefaults()
	return &cfg
}

// Load loads both .env and yaml configuration
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	// Read and parse YAML config
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML over the defaults and loads secrets from the environment.
// It does not validate.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	cfg.applyDefaults()
	cfg.loadSecrets()
	return cfg, nil
}

func (c *Config) loadSecrets() {
	c.Auth.AdminPasswordHash = os.Getenv("APP_ADMIN_PASSWORD_HASH")
	c.Email.AccessKeyID = os.Getenv("SES_ACCESS_KEY_ID")
	c.Email.SecretAccessKey = os.Getenv("SES_SECRET_ACCESS_KEY")
}

func (c *Config) applyDefaults() {
	if c.Engine.ExactTolerance == 0 {
		c.Engine.ExactTolerance = lottie.DefaultExactTolerance
	}
	if c.Engine.ByteTolerance == 0 {
		c.Engine.ByteTolerance = lottie.DefaultByteTolerance
	}
	if c.Engine.GroupTolerance == 0 {
		c.Engine.GroupTolerance = lottie.DefaultGroupTolerance
	}
	if c.Engine.GroupMetric == "" {
		c.Engine.GroupMetric = string(lottie.MetricRGB)
	}
	if c.Engine.MaxDepth == 0 {
		c.Engine.MaxDepth = lottie.DefaultMaxDepth
	}
	if c.Import.TimeoutSeconds == 0 {
		c.Import.TimeoutSeconds = 15
	}
	if c.Import.MaxBytes == 0 {
		c.Import.MaxBytes = 20 << 20
	}
	if c.Import.CooldownSeconds == 0 {
		c.Import.CooldownSeconds = 5
	}
	if c.Import.MaxPerHour == 0 {
		c.Import.MaxPerHour = 60
	}
	if c.Import.UserAgent == "" {
		c.Import.UserAgent = "lottiecolor/1.0"
	}
	if c.History.MaxVersions == 0 {
		c.History.MaxVersions = 50
	}
	if c.History.RetentionDays == 0 {
		c.History.RetentionDays = 90
	}
	if c.History.PruneCron == "" {
		c.History.PruneCron = "0 3 * * *"
	}
	if c.Email.Region == "" {
		c.Email.Region = "us-east-1"
	}
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port == 0 {
		return fmt.Errorf("app port is required")
	}
	if c.Database.Driver == "" {
		return fmt.Errorf("database driver is required")
	}

	// Validate based on database driver
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Filename == "" {
			return fmt.Errorf("database filename is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if err := c.Engine.validate(); err != nil {
		return err
	}

	if c.Import.TimeoutSeconds < 0 || c.Import.MaxBytes < 0 || c.Import.CooldownSeconds < 0 || c.Import.MaxPerHour < 0 {
		return fmt.Errorf("import limits must not be negative")
	}

	if c.History.MaxVersions < 1 {
		return fmt.Errorf("history max_versions must be at least 1")
	}
	if c.History.RetentionDays < 1 {
		return fmt.Errorf("history retention_days must be at least 1")
	}
	if _, err := cron.ParseStandard(c.History.PruneCron); err != nil {
		return fmt.Errorf("invalid history prune_cron %q: %w", c.History.PruneCron, err)
	}

	if c.Features.EnableShare && c.Email.FromAddress == "" {
		return fmt.Errorf("email from_address is required when sharing is enabled")
	}
	if c.Auth.AdminPasswordHash != "" && c.Auth.AdminUser == "" {
		return fmt.Errorf("auth admin_user is required when APP_ADMIN_PASSWORD_HASH is set")
	}

	return nil
}

func (e EngineConfig) validate() error {
	if e.ExactTolerance <= 0 || e.ExactTolerance > 1 {
		return fmt.Errorf("engine exact_tolerance must be in (0, 1]")
	}
	if e.ByteTolerance <= 0 || e.ByteTolerance > 255 {
		return fmt.Errorf("engine byte_tolerance must be in (0, 255]")
	}
	if e.GroupTolerance <= 0 {
		return fmt.Errorf("engine group_tolerance must be positive")
	}
	if _, err := lottie.ParseMetric(e.GroupMetric); err != nil {
		return fmt.Errorf("engine group_metric: %w", err)
	}
	if e.MaxDepth < 1 {
		return fmt.Errorf("engine max_depth must be at least 1")
	}
	return nil
}

// LottieConfig returns the engine settings as a lottie.Config.
func (c *Config) LottieConfig() lottie.Config {
	metric, err := lottie.ParseMetric(c.Engine.GroupMetric)
	if err != nil {
		metric = lottie.MetricRGB
	}
	return lottie.Config{
		ExactTolerance: c.Engine.ExactTolerance,
		ByteTolerance:  c.Engine.ByteTolerance,
		GroupTolerance: c.Engine.GroupTolerance,
		GroupMetric:    metric,
		MaxDepth:       c.Engine.MaxDepth,
	}
}

func (c ImportConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c ImportConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

func (c HistoryConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// ShareEnabled reports whether share-by-email can be offered.
func (c *Config) ShareEnabled() bool {
	return c.Features.EnableShare && c.Email.FromAddress != ""
}
