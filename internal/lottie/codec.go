// internal/lottie/codec.go
package lottie

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Default tolerances. They were chosen empirically, not from a perceptual model.
const (
	DefaultExactTolerance = 0.01
	DefaultByteTolerance  = 2.0
	DefaultGroupTolerance = 0.04
)

var (
	hexColorRegex      = regexp.MustCompile(`^#?([0-9a-fA-F]{6})$`)
	hexColorFieldRegex = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
)

// RGB is a color with each channel on the unit interval.
type RGB struct {
	R, G, B float64
}

// Hex returns the canonical uppercase #RRGGBB form.
func (c RGB) Hex() string {
	return UnitRGBToHex(c)
}

// Bytes returns the channels rounded and clamped to 0-255.
func (c RGB) Bytes() [3]int {
	return [3]int{toByte(c.R), toByte(c.G), toByte(c.B)}
}

func (c RGB) colorful() colorful.Color {
	return colorful.Color{R: c.R, G: c.G, B: c.B}
}

// Metric selects the distance function used for perceptual grouping.
type Metric string

const (
	MetricRGB       Metric = "rgb"
	MetricCIEDE2000 Metric = "ciede2000"
)

// ParseMetric accepts "rgb" (or empty) and "ciede2000".
func ParseMetric(s string) (Metric, error) {
	switch Metric(strings.ToLower(strings.TrimSpace(s))) {
	case "", MetricRGB:
		return MetricRGB, nil
	case MetricCIEDE2000:
		return MetricCIEDE2000, nil
	default:
		return "", fmt.Errorf("unknown color metric %q", s)
	}
}

// HexToUnitRGB parses #RRGGBB (the leading # is optional, case-insensitive).
func HexToUnitRGB(hex string) (RGB, error) {
	m := hexColorRegex.FindStringSubmatch(hex)
	if m == nil {
		return RGB{}, fmt.Errorf("%w: %q", ErrInvalidColorFormat, hex)
	}
	value, err := strconv.ParseUint(m[1], 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("%w: %q", ErrInvalidColorFormat, hex)
	}
	return RGB{
		R: float64((value>>16)&0xFF) / 255,
		G: float64((value>>8)&0xFF) / 255,
		B: float64(value&0xFF) / 255,
	}, nil
}

// UnitRGBToHex rounds each channel to 0-255, clamps, and formats #RRGGBB.
func UnitRGBToHex(c RGB) string {
	b := c.Bytes()
	return fmt.Sprintf("#%02X%02X%02X", b[0], b[1], b[2])
}

// NormalizeHex returns hex in canonical uppercase #RRGGBB form.
func NormalizeHex(hex string) (string, error) {
	c, err := HexToUnitRGB(hex)
	if err != nil {
		return "", err
	}
	return c.Hex(), nil
}

// IsHexColor reports whether s is a #RRGGBB string as stored in documents.
func IsHexColor(s string) bool {
	return hexColorFieldRegex.MatchString(s)
}

// MatchesExact reports whether every channel of a and b differs by less than tol.
func MatchesExact(a, b RGB, tol float64) bool {
	return math.Abs(a.R-b.R) < tol &&
		math.Abs(a.G-b.G) < tol &&
		math.Abs(a.B-b.B) < tol
}

// MatchesByte compares raw 0-255 channels against target with a per-channel tolerance on that scale.
func MatchesByte(raw [3]float64, target RGB, tol float64) bool {
	return math.Abs(raw[0]-target.R*255) < tol &&
		math.Abs(raw[1]-target.G*255) < tol &&
		math.Abs(raw[2]-target.B*255) < tol
}

// Distance returns the distance between a and b under metric.
func Distance(a, b RGB, metric Metric) float64 {
	if metric == MetricCIEDE2000 {
		return a.colorful().DistanceCIEDE2000(b.colorful())
	}
	return a.colorful().DistanceRgb(b.colorful())
}

// WithinDistance reports whether a and b are closer than tol under metric.
func WithinDistance(a, b RGB, tol float64, metric Metric) bool {
	return Distance(a, b, metric) < tol
}

func toByte(v float64) int {
	n := math.Round(v * 255)
	if n < 0 {
		return 0
	}
	if n > 255 {
		return 255
	}
	return int(n)
}
