// internal/lottie/replace.go
package lottie

// Change records one rewritten color site.
type Change struct {
	Path string       `json:"path"`
	Kind EncodingKind `json:"encodingKind"`
	From string       `json:"from"`
	To   string       `json:"to"`
}

// Result is the outcome of a replacement pass. Document is a new copy unless
// the pass was a no-op caused by an invalid color argument, in which case it
// is the input document itself.
type Result struct {
	Document *Node
	Changes  []Change
}

// Changed reports whether any site was rewritten.
func (r Result) Changed() bool {
	return len(r.Changes) > 0
}

type sitePredicate func(path string, d Descriptor) bool

// ReplaceColor rewrites every site whose current color matches oldHex within
// the per-channel tolerance of the site's scale. Each site keeps its
// encoding, scale and alpha component. Invalid colors make this a no-op.
func (e *Engine) ReplaceColor(doc *Node, oldHex, newHex string) (Result, error) {
	if err := checkRoot(doc); err != nil {
		return Result{}, err
	}
	oldColor, err := HexToUnitRGB(oldHex)
	if err != nil {
		e.logInvalidColor("old", oldHex)
		return Result{Document: doc}, nil
	}
	newColor, err := HexToUnitRGB(newHex)
	if err != nil {
		e.logInvalidColor("new", newHex)
		return Result{Document: doc}, nil
	}
	return e.rewrite(doc, newColor, func(_ string, d Descriptor) bool {
		return d.matches(oldColor, e.cfg.ExactTolerance, e.cfg.ByteTolerance)
	})
}

// ReplaceAll rewrites every color site to newHex regardless of its current value.
func (e *Engine) ReplaceAll(doc *Node, newHex string) (Result, error) {
	if err := checkRoot(doc); err != nil {
		return Result{}, err
	}
	newColor, err := HexToUnitRGB(newHex)
	if err != nil {
		e.logInvalidColor("new", newHex)
		return Result{Document: doc}, nil
	}
	return e.rewrite(doc, newColor, func(string, Descriptor) bool { return true })
}

// ReplacePaths rewrites only the color sites whose paths are listed, such as
// the members of a ColorGroup. Paths that are not color sites are ignored.
func (e *Engine) ReplacePaths(doc *Node, paths []string, newHex string) (Result, error) {
	if err := checkRoot(doc); err != nil {
		return Result{}, err
	}
	newColor, err := HexToUnitRGB(newHex)
	if err != nil {
		e.logInvalidColor("new", newHex)
		return Result{Document: doc}, nil
	}
	wanted := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		wanted[p] = struct{}{}
	}
	return e.rewrite(doc, newColor, func(path string, _ Descriptor) bool {
		_, ok := wanted[path]
		return ok
	})
}

func (e *Engine) rewrite(doc *Node, newColor RGB, match sitePredicate) (Result, error) {
	working := doc.Clone()
	to := newColor.Hex()

	changes, err := Fold(working, e.cfg.MaxDepth, []Change{}, func(changes []Change, v Visit) ([]Change, error) {
		for _, d := range Classify(v.Node, v.ParentKey, v.Parent) {
			path := v.Path.Child(d.Rel...).String()
			if !match(path, d) {
				continue
			}
			d.holder.Set(d.key, d.encode(newColor, d.holder.Get(d.key)))
			change := Change{Path: path, Kind: d.Kind, From: d.Color.Hex(), To: to}
			e.logChange(change)
			changes = append(changes, change)
		}
		return changes, nil
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Document: working, Changes: changes}, nil
}

func (e *Engine) logChange(c Change) {
	if e.cfg.Logger == nil {
		return
	}
	e.cfg.Logger.Debug().
		Str("path", c.Path).
		Str("encoding_kind", string(c.Kind)).
		Str("from", c.From).
		Str("to", c.To).
		Msg("Color site rewritten")
}

func (e *Engine) logInvalidColor(role, value string) {
	if e.cfg.Logger == nil {
		return
	}
	e.cfg.Logger.Debug().
		Str("role", role).
		Str("value", value).
		Msg("Ignoring replacement with invalid color")
}

// ReplaceColor runs ReplaceColor with the default engine and returns the new document.
func ReplaceColor(doc *Node, oldHex, newHex string) (*Node, error) {
	res, err := defaultEngine.ReplaceColor(doc, oldHex, newHex)
	return res.Document, err
}

// ReplaceAllColors runs ReplaceAll with the default engine and returns the new document.
func ReplaceAllColors(doc *Node, newHex string) (*Node, error) {
	res, err := defaultEngine.ReplaceAll(doc, newHex)
	return res.Document, err
}
