// Package export writes animation documents as downloads: plain JSON,
// .lottie archives and embed snippets.
package export

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/codr1/lottiecolor/internal/lottie"
)

// FixedZipTime keeps archives byte-for-byte reproducible (1980-01-01 UTC).
var FixedZipTime = time.Unix(315532800, 0).UTC()

const (
	animationID       = "animation"
	defaultPackageName = "Lottie Animation"
)

// Manifest is the dotLottie manifest.json written at the archive root.
type Manifest struct {
	Version    string              `json:"version"`
	Generator  string              `json:"generator"`
	Animations []ManifestAnimation `json:"animations"`
}

type ManifestAnimation struct {
	ID        string  `json:"id"`
	Speed     float64 `json:"speed"`
	Autoplay  bool    `json:"autoplay"`
	Loop      bool    `json:"loop"`
	Direction int     `json:"direction"`
	Name      string  `json:"name"`
}

// NewManifest describes a single looping, autoplaying animation.
func NewManifest(name string) Manifest {
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultPackageName
	}
	return Manifest{
		Version:   "1",
		Generator: "lottiecolor",
		Animations: []ManifestAnimation{{
			ID:        animationID,
			Speed:     1,
			Autoplay:  true,
			Loop:      true,
			Direction: 1,
			Name:      name,
		}},
	}
}

// WritePackage writes doc as a .lottie archive holding manifest.json and
// animations/animation.json.
func WritePackage(w io.Writer, doc *lottie.Node, name string) error {
	if doc == nil {
		return fmt.Errorf("%w: document is empty", lottie.ErrMalformedDocument)
	}
	raw, err := doc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode animation: %w", err)
	}

	zw := zip.NewWriter(w)
	if err := writeJSON(zw, "manifest.json", NewManifest(name)); err != nil {
		return err
	}
	if err := writeEntry(zw, "animations/"+animationID+".json", raw); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	return nil
}

// WriteJSON writes doc as compact JSON.
func WriteJSON(w io.Writer, doc *lottie.Node) error {
	if doc == nil {
		return fmt.Errorf("%w: document is empty", lottie.ErrMalformedDocument)
	}
	raw, err := doc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode animation: %w", err)
	}
	_, err = w.Write(raw)
	return err
}

func writeJSON(zw *zip.Writer, name string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return writeEntry(zw, name, raw)
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	h := &zip.FileHeader{Name: name, Method: zip.Deflate}
	h.SetMode(0o644)
	h.Modified = FixedZipTime
	w, err := zw.CreateHeader(h)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

var unsafeFilenameRegex = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Filename returns a download filename for name with extension ext, e.g.
// Filename("Loading Spinner!", "lottie") is "loading-spinner.lottie".
func Filename(name, ext string) string {
	base := strings.ToLower(strings.TrimSpace(name))
	base = unsafeFilenameRegex.ReplaceAllString(base, "-")
	base = strings.Trim(base, "-.")
	if base == "" {
		base = animationID
	}
	if len(base) > 80 {
		base = strings.TrimRight(base[:80], "-.")
	}
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		return filepath.Base(base)
	}
	return filepath.Base(base + "." + ext)
}
