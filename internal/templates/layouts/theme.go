package layouts

import (
	"fmt"
	"strings"

	"github.com/codr1/lottiecolor/internal/lottie"
	"github.com/codr1/lottiecolor/internal/models"
)

const defaultAccentColor = "#2563EB"

// getThemeCssVars derives the page accent from an animation color so the
// editor chrome matches the document being edited.
func getThemeCssVars(accent string) string {
	accent = themeColorOrDefault(accent, defaultAccentColor)
	return fmt.Sprintf(
		":root{--theme-accent:%s;--theme-accent-text:%s;}",
		accent,
		models.SwatchTextColor(accent),
	)
}

func themeColorOrDefault(value string, fallback string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	normalized, err := lottie.NormalizeHex(trimmed)
	if err != nil {
		return fallback
	}
	return normalized
}
