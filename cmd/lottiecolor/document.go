// cmd/lottiecolor/document.go
package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"github.com/codr1/lottiecolor/internal/export"
	"github.com/codr1/lottiecolor/internal/importer"
	"github.com/codr1/lottiecolor/internal/lottie"
)

// animationFile is a document read from disk along with how it was stored.
type animationFile struct {
	path    string
	name    string
	archive bool
	doc     *lottie.Node
}

func (c *commandContext) readAnimation(path string) (*animationFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	anim, err := importer.New(importer.Config{MaxDepth: c.engine.Config().MaxDepth}).FromBytes(filepath.Base(path), data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &animationFile{
		path:    path,
		name:    anim.Name,
		archive: importer.IsArchive(data),
		doc:     anim.Document,
	}, nil
}

// encode serializes doc the way the file was stored: a .lottie archive stays
// an archive, anything else is written as JSON.
func (f *animationFile) encode(doc *lottie.Node) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	if f.archive {
		err = export.WritePackage(&buf, doc, f.name)
	} else {
		err = export.WriteJSON(&buf, doc)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var errFileLocked = errors.New("file is being rewritten by another lottiecolor process")

// lockFile takes an exclusive advisory lock on path+".lock". The lock file
// stays on disk after unlock so every process locks the same inode.
func lockFile(path string) (func(), error) {
	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, errFileLocked)
	}
	return func() {
		_ = lock.Unlock()
	}, nil
}

// writeFileAtomic replaces path through a temp file in the same directory.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+strings.TrimPrefix(filepath.Base(path), ".")+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
