// internal/importer/archive.go
package importer

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
)

var zipMagic = []byte("PK\x03\x04")

type archiveEntry struct {
	name string
	data []byte
}

type dotLottieManifest struct {
	Animations []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"animations"`
}

// IsArchive reports whether body starts like a ZIP (.lottie) archive.
func IsArchive(body []byte) bool {
	return bytes.HasPrefix(body, zipMagic)
}

// readArchive returns the first animation of a .lottie archive: the one the
// manifest lists first, or else the first animations/*.json entry by name.
func readArchive(data []byte, maxBytes int64) (archiveEntry, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return archiveEntry{}, fmt.Errorf("%w: %v", ErrUnsupportedContent, err)
	}

	files := make(map[string]*zip.File, len(zr.File))
	var candidates []string
	for _, f := range zr.File {
		name := path.Clean(strings.TrimLeft(f.Name, "/"))
		files[name] = f
		if path.Dir(name) == "animations" && strings.EqualFold(path.Ext(name), ".json") {
			candidates = append(candidates, name)
		}
	}
	sort.Strings(candidates)

	var manifest dotLottieManifest
	if f, ok := files["manifest.json"]; ok {
		raw, err := readZipFile(f, maxBytes)
		if err != nil {
			return archiveEntry{}, err
		}
		// A broken manifest falls back to the directory listing.
		_ = json.Unmarshal(raw, &manifest)
	}

	target, name := "", ""
	if len(manifest.Animations) > 0 {
		first := manifest.Animations[0]
		if _, ok := files["animations/"+first.ID+".json"]; ok {
			target = "animations/" + first.ID + ".json"
			name = first.Name
		}
	}
	if target == "" {
		if len(candidates) == 0 {
			return archiveEntry{}, fmt.Errorf("%w: archive has no animations/*.json entry", ErrNoAnimation)
		}
		target = candidates[0]
	}

	raw, err := readZipFile(files[target], maxBytes)
	if err != nil {
		return archiveEntry{}, err
	}
	return archiveEntry{name: name, data: raw}, nil
}

func readZipFile(f *zip.File, maxBytes int64) ([]byte, error) {
	if int64(f.UncompressedSize64) > maxBytes {
		return nil, ErrTooLarge
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrUnsupportedContent, f.Name, err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(io.LimitReader(rc, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrUnsupportedContent, f.Name, err)
	}
	if int64(len(raw)) > maxBytes {
		return nil, ErrTooLarge
	}
	return raw, nil
}
