package main

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codr1/lottiecolor/internal/importer"
	"github.com/codr1/lottiecolor/internal/lottie"
)

const sampleDoc = `{
  "v": "5.7.4",
  "nm": "Traffic Light",
  "layers": [
    {
      "ty": 4,
      "shapes": [
        {"ty": "fl", "c": {"k": [1, 0, 0, 1]}},
        {"ty": "st", "c": {"k": [0, 0, 1]}},
        {"ty": "fl", "c": {"k": [1, 0, 0, 1]}}
      ]
    }
  ]
}`

func writeSample(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(sampleDoc), 0o644))
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func readColors(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	doc, err := lottie.Parse(data)
	require.NoError(t, err)
	sites, err := lottie.ExtractAllColors(doc)
	require.NoError(t, err)
	colors := make([]string, len(sites))
	for i, site := range sites {
		colors[i] = site.Hex
	}
	return colors
}

func TestColorsCommand_JSON(t *testing.T) {
	path := writeSample(t, "light.json")

	out, err := runCLI(t, "colors", path, "--json")
	require.NoError(t, err)

	var got colorsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 3, got.Count)
	assert.Equal(t, "layers.0.shapes.0.c.k", got.Colors[0].Path)
	assert.Equal(t, "#0000FF", got.Colors[1].Hex)
}

func TestColorsCommand_Table(t *testing.T) {
	path := writeSample(t, "light.json")

	out, err := runCLI(t, "colors", path)
	require.NoError(t, err)
	assert.Contains(t, out, "#FF0000")
	assert.Contains(t, out, "layers.0.shapes.1.c.k")
	assert.Contains(t, out, "3 color sites")
}

func TestGroupsCommand(t *testing.T) {
	path := writeSample(t, "light.json")

	out, err := runCLI(t, "groups", path, "--json")
	require.NoError(t, err)

	var got struct {
		Groups []struct {
			Representative string `json:"representativeColor"`
			Count          int    `json:"count"`
		} `json:"groups"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Groups, 2)
	assert.Equal(t, "#0000FF", got.Groups[0].Representative)
	assert.Equal(t, 2, got.Groups[1].Count)

	out, err = runCLI(t, "groups", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Name")
	assert.Contains(t, out, "Blue")

	_, err = runCLI(t, "groups", path, "--tolerance", "3")
	require.Error(t, err)
}

func TestReplaceCommand_DryRun(t *testing.T) {
	path := writeSample(t, "light.json")

	out, err := runCLI(t, "replace", path, "#ff0000", "00ff00")
	require.NoError(t, err)
	assert.Contains(t, out, "2 color sites would change")
	assert.Equal(t, []string{"#FF0000", "#0000FF", "#FF0000"}, readColors(t, path))
}

func TestReplaceCommand_Write(t *testing.T) {
	path := writeSample(t, "light.json")

	out, err := runCLI(t, "replace", path, "#FF0000", "#00FF00", "--write", "--json")
	require.NoError(t, err)

	var got editOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 2, got.Count)
	assert.Equal(t, path, got.Written)
	assert.Equal(t, []string{"#00FF00", "#0000FF", "#00FF00"}, readColors(t, path))

	_, statErr := os.Stat(path + ".lock")
	assert.NoError(t, statErr, "lock file stays in place after unlock")

	unlock, err := lockFile(path)
	require.NoError(t, err, "lock is released after the write")
	unlock()
}

func TestLockFile_ReusesLockFile(t *testing.T) {
	path := writeSample(t, "light.json")

	unlock, err := lockFile(path)
	require.NoError(t, err)
	info, err := os.Stat(path + ".lock")
	require.NoError(t, err)
	unlock()

	unlock, err = lockFile(path)
	require.NoError(t, err)
	defer unlock()
	again, err := os.Stat(path + ".lock")
	require.NoError(t, err)
	assert.True(t, os.SameFile(info, again), "the same lock file is locked again")

	_, err = lockFile(path)
	require.ErrorIs(t, err, errFileLocked)
}

func TestReplaceCommand_NoMatch(t *testing.T) {
	path := writeSample(t, "light.json")
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	out, err := runCLI(t, "replace", path, "#123456", "#00FF00", "--write")
	require.NoError(t, err)
	assert.Contains(t, out, "No matching colors found")

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestReplaceCommand_InvalidColor(t *testing.T) {
	path := writeSample(t, "light.json")

	_, err := runCLI(t, "replace", path, "red", "#00FF00")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OLD must be a 6-digit hex color")
}

func TestReplaceCommand_Locked(t *testing.T) {
	path := writeSample(t, "light.json")

	unlock, err := lockFile(path)
	require.NoError(t, err)
	defer unlock()

	_, err = runCLI(t, "replace", path, "#FF0000", "#00FF00", "--write")
	require.ErrorIs(t, err, errFileLocked)
}

func TestReplaceAllCommand_Output(t *testing.T) {
	path := writeSample(t, "light.json")
	target := filepath.Join(filepath.Dir(path), "black.json")

	_, err := runCLI(t, "replace-all", path, "#000000", "-o", target)
	require.NoError(t, err)
	assert.Equal(t, []string{"#000000", "#000000", "#000000"}, readColors(t, target))
	assert.Equal(t, []string{"#FF0000", "#0000FF", "#FF0000"}, readColors(t, path))
}

func TestPackCommand(t *testing.T) {
	path := writeSample(t, "light.json")

	out, err := runCLI(t, "pack", path, "--json")
	require.NoError(t, err)

	var got packOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, filepath.Join(filepath.Dir(path), "light.lottie"), got.Output)

	data, err := os.ReadFile(got.Output)
	require.NoError(t, err)
	require.True(t, importer.IsArchive(data))

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"manifest.json", "animations/animation.json"}, names)

	// Archives can be recolored in place and stay archives.
	_, err = runCLI(t, "replace", got.Output, "#0000FF", "#FFFF00", "--write")
	require.NoError(t, err)
	rewritten, err := os.ReadFile(got.Output)
	require.NoError(t, err)
	assert.True(t, importer.IsArchive(rewritten))

	out, err = runCLI(t, "colors", got.Output, "--json")
	require.NoError(t, err)
	var colors colorsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &colors))
	assert.Equal(t, "#FFFF00", colors.Colors[1].Hex)
}

func TestColorsCommand_MissingFile(t *testing.T) {
	_, err := runCLI(t, "colors", filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
