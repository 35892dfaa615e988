// internal/lottie/group.go
package lottie

import (
	"encoding/json"
	"sort"
)

// ColorGroup is a cluster of color sites close to one representative color.
type ColorGroup struct {
	Representative string               `json:"representativeColor"`
	Paths          []string             `json:"paths"`
	EncodingKinds  map[EncodingKind]int `json:"encodingKinds"`
	Count          int                  `json:"count"`

	rep RGB
}

// Label summarizes the encoding kinds in the group for display.
func (g ColorGroup) Label() string {
	var static, keyframe bool
	for kind := range g.EncodingKinds {
		if kind.IsKeyframe() {
			keyframe = true
		} else {
			static = true
		}
	}
	switch {
	case static && keyframe:
		return "mixed"
	case keyframe:
		return "keyframe start/end"
	default:
		return "static"
	}
}

func (g ColorGroup) MarshalJSON() ([]byte, error) {
	type plain ColorGroup
	return json.Marshal(struct {
		plain
		Label string `json:"label"`
	}{plain: plain(g), Label: g.Label()})
}

// Group clusters sites with the engine's group tolerance and metric.
func (e *Engine) Group(sites []ColorSite) []ColorGroup {
	return groupSites(sites, e.cfg.GroupTolerance, e.cfg.GroupMetric)
}

// GroupColors clusters sites by Euclidean RGB distance. A tolerance <= 0 uses
// DefaultGroupTolerance.
func GroupColors(sites []ColorSite, tolerance float64) []ColorGroup {
	if tolerance <= 0 {
		tolerance = DefaultGroupTolerance
	}
	return groupSites(sites, tolerance, MetricRGB)
}

// groupSites assigns each site, in order, to the first group whose
// representative is within tolerance, or starts a new group. The result is
// sorted by ascending count; ties keep first-seen order.
func groupSites(sites []ColorSite, tolerance float64, metric Metric) []ColorGroup {
	groups := []ColorGroup{}
	for _, site := range sites {
		c, err := HexToUnitRGB(site.Hex)
		if err != nil {
			continue
		}

		idx := -1
		for i := range groups {
			if WithinDistance(groups[i].rep, c, tolerance, metric) {
				idx = i
				break
			}
		}
		if idx < 0 {
			groups = append(groups, ColorGroup{
				Representative: c.Hex(),
				EncodingKinds:  map[EncodingKind]int{},
				rep:            c,
			})
			idx = len(groups) - 1
		}

		g := &groups[idx]
		g.Paths = append(g.Paths, site.Path)
		g.EncodingKinds[site.Kind]++
		g.Count = len(g.Paths)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Count < groups[j].Count
	})
	return groups
}
