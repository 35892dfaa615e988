// internal/lottie/extract.go
package lottie

// ColorSite is one color value found in a document.
type ColorSite struct {
	Path  string       `json:"path"`
	Kind  EncodingKind `json:"encodingKind"`
	Scale Scale        `json:"scale,omitempty"`
	Hex   string       `json:"color"`
}

// ExtractAll returns every color site in doc in traversal order. Identical
// colors at different paths are all reported.
func (e *Engine) ExtractAll(doc *Node) ([]ColorSite, error) {
	if err := checkRoot(doc); err != nil {
		return nil, err
	}

	sites, err := Fold(doc, e.cfg.MaxDepth, []ColorSite{}, func(sites []ColorSite, v Visit) ([]ColorSite, error) {
		for _, d := range Classify(v.Node, v.ParentKey, v.Parent) {
			sites = append(sites, ColorSite{
				Path:  v.Path.Child(d.Rel...).String(),
				Kind:  d.Kind,
				Scale: d.Scale,
				Hex:   d.Color.Hex(),
			})
		}
		return sites, nil
	})
	if err != nil {
		return nil, err
	}
	return sites, nil
}

// ExtractAllColors runs ExtractAll with the default engine.
func ExtractAllColors(doc *Node) ([]ColorSite, error) {
	return defaultEngine.ExtractAll(doc)
}
