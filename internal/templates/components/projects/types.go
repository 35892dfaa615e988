package projects

import (
	"github.com/codr1/lottiecolor/internal/history"
	"github.com/codr1/lottiecolor/internal/lottie"
	"github.com/codr1/lottiecolor/internal/models"
)

// Swatch is a template-facing color group with its display text color
// and the nearest named color.
type Swatch struct {
	lottie.ColorGroup
	TextColor string
	Name      string
}

func NewSwatches(groups []lottie.ColorGroup) []Swatch {
	swatches := make([]Swatch, len(groups))
	for i, group := range groups {
		swatches[i] = Swatch{
			ColorGroup: group,
			TextColor:  models.SwatchTextColor(group.Representative),
			Name:       models.ColorName(group.Representative),
		}
	}
	return swatches
}

type EditorData struct {
	Project  models.Project
	Swatches []Swatch
	Edits    []models.ColorEdit
	State    history.State
	EmbedURL string
	CanShare bool
}

// Accent is the color of the largest group, used to tint the page chrome.
func (d EditorData) Accent() string {
	if len(d.Swatches) == 0 {
		return ""
	}
	return d.Swatches[len(d.Swatches)-1].Representative
}
