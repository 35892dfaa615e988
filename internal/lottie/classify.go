// internal/lottie/classify.go
package lottie

import "strconv"

// EncodingKind describes how a color site stores its value.
type EncodingKind string

const (
	StaticVec3    EncodingKind = "static-vec3"
	StaticVec4    EncodingKind = "static-vec4"
	KeyframeStart EncodingKind = "keyframe-start"
	KeyframeEnd   EncodingKind = "keyframe-end"
	HexString     EncodingKind = "hex-string"
)

// IsKeyframe reports whether the kind belongs to an animated property.
func (k EncodingKind) IsKeyframe() bool {
	return k == KeyframeStart || k == KeyframeEnd
}

// Scale is the numeric range a vector color is expressed in.
type Scale string

const (
	ScaleUnit Scale = "unit"
	ScaleByte Scale = "byte255"
)

// Shape item types whose direct children may hold colors.
var colorShapeTypes = map[string]struct{}{
	"st": {},
	"fl": {},
}

type valueForm uint8

const (
	formVec3 valueForm = iota + 1
	formVec4
	formHex
)

// Descriptor is one classified color value under a node.
type Descriptor struct {
	Kind  EncodingKind
	Scale Scale // empty for hex strings
	Color RGB
	// Rel is the path from the classified node to the value, e.g. ["k"] or ["k","0","s"].
	Rel Path

	form   valueForm
	raw    [3]float64
	holder *Node
	key    string
}

// Classify decides whether node is a color-bearing property given its
// structural context, and returns one descriptor per color value it holds.
// Only nodes keyed "c", or direct children of a stroke/fill shape item, are
// eligible. Unit-interval vectors are tried before 0-255 vectors, so [1,0,0]
// is red, not near-black.
func Classify(node *Node, parentKey string, parent *Node) []Descriptor {
	if !node.IsObject() || !inColorContext(parentKey, parent) {
		return nil
	}
	k := node.Get("k")
	if k == nil {
		return nil
	}

	if d, ok := classifyValue(k); ok {
		if d.form == formHex {
			d.Kind = HexString
		} else if d.form == formVec4 {
			d.Kind = StaticVec4
		} else {
			d.Kind = StaticVec3
		}
		d.Rel = Path{"k"}
		d.holder = node
		d.key = "k"
		return []Descriptor{d}
	}

	if !isKeyframeList(k) {
		return nil
	}
	var out []Descriptor
	for i, kf := range k.Items() {
		for _, field := range [...]struct {
			key  string
			kind EncodingKind
		}{{"s", KeyframeStart}, {"e", KeyframeEnd}} {
			v := kf.Get(field.key)
			if v == nil {
				continue
			}
			d, ok := classifyValue(v)
			if !ok {
				continue
			}
			d.Kind = field.kind
			d.Rel = Path{"k", strconv.Itoa(i), field.key}
			d.holder = kf
			d.key = field.key
			out = append(out, d)
		}
	}
	return out
}

func inColorContext(parentKey string, parent *Node) bool {
	if parentKey == "c" {
		return true
	}
	ty, ok := parent.Get("ty").Text()
	if !ok {
		return false
	}
	_, ok = colorShapeTypes[ty]
	return ok
}

// isKeyframeList reports whether v is a non-empty array of objects in which
// at least one keyframe carries an "s" or "e" value. Hold frames with neither
// field are allowed and skipped by the caller.
func isKeyframeList(v *Node) bool {
	if !v.IsArray() || v.Len() == 0 {
		return false
	}
	found := false
	for _, item := range v.Items() {
		if !item.IsObject() {
			return false
		}
		if item.Get("s") != nil || item.Get("e") != nil {
			found = true
		}
	}
	return found
}

// classifyValue applies the static encoding rules to a single value.
func classifyValue(v *Node) (Descriptor, bool) {
	if s, ok := v.Text(); ok {
		if !IsHexColor(s) {
			return Descriptor{}, false
		}
		c, err := HexToUnitRGB(s)
		if err != nil {
			return Descriptor{}, false
		}
		return Descriptor{Color: c, form: formHex}, true
	}

	n := v.Len()
	if !v.IsArray() || (n != 3 && n != 4) {
		return Descriptor{}, false
	}
	var vals [4]float64
	for i := 0; i < n; i++ {
		f, ok := v.Index(i).Float()
		if !ok {
			return Descriptor{}, false
		}
		vals[i] = f
	}
	form := formVec3
	if n == 4 {
		form = formVec4
	}
	raw := [3]float64{vals[0], vals[1], vals[2]}

	switch {
	case channelsWithin(raw, 1):
		return Descriptor{
			Scale: ScaleUnit,
			Color: RGB{R: raw[0], G: raw[1], B: raw[2]},
			form:  form,
			raw:   raw,
		}, true
	case channelsWithin(raw, 255):
		return Descriptor{
			Scale: ScaleByte,
			Color: RGB{R: raw[0] / 255, G: raw[1] / 255, B: raw[2] / 255},
			form:  form,
			raw:   raw,
		}, true
	}
	return Descriptor{}, false
}

func channelsWithin(raw [3]float64, max float64) bool {
	for _, v := range raw {
		if v < 0 || v > max {
			return false
		}
	}
	return true
}

// encode builds the replacement value for this site, keeping its form and
// scale and reusing the original alpha node of four-component vectors.
// A byte-scale site whose new channels are all 0 or 1 is written on the unit
// scale instead, since [1,0,1] would otherwise be re-read as a unit color.
func (d Descriptor) encode(c RGB, current *Node) *Node {
	if d.form == formHex {
		return NewString(c.Hex())
	}

	b := c.Bytes()
	scale := d.Scale
	if scale == ScaleByte && b[0] <= 1 && b[1] <= 1 && b[2] <= 1 {
		scale = ScaleUnit
	}

	items := make([]*Node, 0, 4)
	for _, ch := range b {
		if scale == ScaleByte {
			items = append(items, NewNumber(float64(ch)))
		} else {
			items = append(items, NewNumber(float64(ch)/255))
		}
	}
	if d.form == formVec4 {
		items = append(items, current.Index(3))
	}
	return NewArray(items...)
}

// matches reports whether the site's current value is target within the
// per-channel tolerance of its own scale.
func (d Descriptor) matches(target RGB, unitTol, byteTol float64) bool {
	if d.Scale == ScaleByte {
		return MatchesByte(d.raw, target, byteTol)
	}
	return MatchesExact(d.Color, target, unitTol)
}
