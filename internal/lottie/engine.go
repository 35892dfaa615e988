// internal/lottie/engine.go
package lottie

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Config holds the engine's tolerances and limits.
type Config struct {
	ExactTolerance float64 // per-channel, unit scale, for replace-if-matches
	ByteTolerance  float64 // per-channel, 0-255 scale, for replace-if-matches
	GroupTolerance float64 // distance under GroupMetric, for grouping
	GroupMetric    Metric
	MaxDepth       int

	// Logger receives one debug event per rewritten site. Nil disables it.
	Logger *zerolog.Logger
}

func DefaultConfig() Config {
	return Config{
		ExactTolerance: DefaultExactTolerance,
		ByteTolerance:  DefaultByteTolerance,
		GroupTolerance: DefaultGroupTolerance,
		GroupMetric:    MetricRGB,
		MaxDepth:       DefaultMaxDepth,
	}
}

// Engine detects and rewrites colors in animation documents. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	cfg Config
}

// New returns an engine, filling zero-valued fields of cfg with defaults.
func New(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.ExactTolerance <= 0 {
		cfg.ExactTolerance = def.ExactTolerance
	}
	if cfg.ByteTolerance <= 0 {
		cfg.ByteTolerance = def.ByteTolerance
	}
	if cfg.GroupTolerance <= 0 {
		cfg.GroupTolerance = def.GroupTolerance
	}
	if cfg.GroupMetric == "" {
		cfg.GroupMetric = def.GroupMetric
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = def.MaxDepth
	}
	return &Engine{cfg: cfg}
}

func (e *Engine) Config() Config {
	return e.cfg
}

var defaultEngine = New(DefaultConfig())

// Default returns the engine used by the package-level helpers.
func Default() *Engine {
	return defaultEngine
}

func checkRoot(doc *Node) error {
	if doc == nil {
		return fmt.Errorf("%w: document is empty", ErrMalformedDocument)
	}
	if !doc.IsObject() && !doc.IsArray() {
		return fmt.Errorf("%w: root is %s, want object or array", ErrMalformedDocument, doc.Kind())
	}
	return nil
}
