// internal/models/colornames.go
package models

import (
	"sort"

	"github.com/lucasb-eyer/go-colorful"
)

// ColorMatch is a named reference color and its perceptual distance from
// the color being described.
type ColorMatch struct {
	Name     string  `json:"name"`
	Hex      string  `json:"hex"`
	Distance float64 `json:"distance"`
}

// namedColors are the reference colors palette swatches are described by.
var namedColors = map[string]string{
	"Black":     "#000000",
	"White":     "#FFFFFF",
	"Red":       "#FF0000",
	"Green":     "#008000",
	"Blue":      "#0000FF",
	"Yellow":    "#FFFF00",
	"Cyan":      "#00FFFF",
	"Magenta":   "#FF00FF",
	"Gray":      "#808080",
	"Silver":    "#C0C0C0",
	"Maroon":    "#800000",
	"Olive":     "#808000",
	"Lime":      "#00FF00",
	"Teal":      "#008080",
	"Navy":      "#000080",
	"Purple":    "#800080",
	"Orange":    "#FFA500",
	"Pink":      "#FFC0CB",
	"Brown":     "#A52A2A",
	"Gold":      "#FFD700",
	"Beige":     "#F5F5DC",
	"Turquoise": "#40E0D0",
	"Lavender":  "#E6E6FA",
	"Chocolate": "#D2691E",
	"Coral":     "#FF7F50",
}

// ClosestColorNames ranks the named colors by CIELAB distance from hex and
// returns at most limit of them. Invalid colors have no matches.
func ClosestColorNames(hex string, limit int) []ColorMatch {
	input, err := colorful.Hex(hex)
	if err != nil || limit <= 0 {
		return nil
	}

	matches := make([]ColorMatch, 0, len(namedColors))
	for name, refHex := range namedColors {
		ref, _ := colorful.Hex(refHex)
		matches = append(matches, ColorMatch{Name: name, Hex: refHex, Distance: input.DistanceLab(ref)})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance == matches[j].Distance {
			return matches[i].Name < matches[j].Name
		}
		return matches[i].Distance < matches[j].Distance
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// ColorName is the closest named color to hex, or "" when hex is invalid.
func ColorName(hex string) string {
	matches := ClosestColorNames(hex, 1)
	if len(matches) == 0 {
		return ""
	}
	return matches[0].Name
}
