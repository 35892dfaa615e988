// internal/models/contrast.go
package models

import (
	"math"

	"github.com/codr1/lottiecolor/internal/lottie"
)

const darkTextColor = "#000000"
const lightTextColor = "#FFFFFF"

// SwatchTextColor picks black or white text, whichever contrasts more with
// the swatch background. Invalid colors get dark text.
func SwatchTextColor(background string) string {
	bg, err := lottie.HexToUnitRGB(background)
	if err != nil {
		return darkTextColor
	}
	l := relativeLuminance(bg)
	if contrastRatio(1, l) >= contrastRatio(0, l) {
		return lightTextColor
	}
	return darkTextColor
}

// ContrastRatio returns the WCAG contrast ratio between two colors.
func ContrastRatio(a, b string) (float64, error) {
	ca, err := lottie.HexToUnitRGB(a)
	if err != nil {
		return 0, err
	}
	cb, err := lottie.HexToUnitRGB(b)
	if err != nil {
		return 0, err
	}
	return contrastRatio(relativeLuminance(ca), relativeLuminance(cb)), nil
}

func contrastRatio(l1, l2 float64) float64 {
	lightest := math.Max(l1, l2)
	darkest := math.Min(l1, l2)
	return (lightest + 0.05) / (darkest + 0.05)
}

func relativeLuminance(c lottie.RGB) float64 {
	return 0.2126*srgbToLinear(c.R) + 0.7152*srgbToLinear(c.G) + 0.0722*srgbToLinear(c.B)
}

func srgbToLinear(value float64) float64 {
	if value <= 0.03928 {
		return value / 12.92
	}
	return math.Pow((value+0.055)/1.055, 2.4)
}
