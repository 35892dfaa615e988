// internal/models/color_edit.go
package models

import (
	"context"
	"fmt"
	"time"

	dbgen "github.com/codr1/lottiecolor/internal/db/generated"
	"github.com/codr1/lottiecolor/internal/lottie"
)

// DefaultHistoryLimit is the number of edits returned when no limit is given.
const DefaultHistoryLimit = 20

// MaxHistoryLimit caps the limit a caller may request.
const MaxHistoryLimit = 500

// ColorEdit records one applied replacement on a project.
type ColorEdit struct {
	ID           int64     `json:"id"`
	ProjectID    int64     `json:"projectId"`
	OldColor     string    `json:"oldColor"`
	NewColor     string    `json:"newColor"`
	SitesChanged int64     `json:"sitesChanged"`
	Timestamp    time.Time `json:"timestamp"`
}

type ColorEditQueries interface {
	CreateColorEdit(ctx context.Context, arg dbgen.CreateColorEditParams) (dbgen.ColorEdit, error)
	ListColorEdits(ctx context.Context, arg dbgen.ListColorEditsParams) ([]dbgen.ColorEdit, error)
}

func (e ColorEdit) Validate() error {
	if e.ProjectID <= 0 {
		return fmt.Errorf("project_id must be a positive integer")
	}
	if !lottie.IsHexColor(e.OldColor) {
		return fmt.Errorf("old_color must be a 6-digit hex color like #AABBCC")
	}
	if !lottie.IsHexColor(e.NewColor) {
		return fmt.Errorf("new_color must be a 6-digit hex color like #AABBCC")
	}
	if e.SitesChanged < 0 {
		return fmt.Errorf("sites_changed must be 0 or greater")
	}
	return nil
}

// RecordColorEdit validates and stores an edit. Colors are stored in
// canonical uppercase form.
func RecordColorEdit(ctx context.Context, queries ColorEditQueries, e ColorEdit) (ColorEdit, error) {
	if err := e.Validate(); err != nil {
		return ColorEdit{}, err
	}
	oldColor, _ := lottie.NormalizeHex(e.OldColor)
	newColor, _ := lottie.NormalizeHex(e.NewColor)
	row, err := queries.CreateColorEdit(ctx, dbgen.CreateColorEditParams{
		ProjectID:    e.ProjectID,
		OldColor:     oldColor,
		NewColor:     newColor,
		SitesChanged: e.SitesChanged,
	})
	if err != nil {
		return ColorEdit{}, err
	}
	return ColorEditFromDB(row), nil
}

// ListColorEdits returns a project's edits newest first. A limit <= 0 uses
// DefaultHistoryLimit; larger limits are capped at MaxHistoryLimit.
func ListColorEdits(ctx context.Context, queries ColorEditQueries, projectID int64, limit int) ([]ColorEdit, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	rows, err := queries.ListColorEdits(ctx, dbgen.ListColorEditsParams{
		ProjectID: projectID,
		Limit:     int64(limit),
	})
	if err != nil {
		return nil, err
	}
	results := make([]ColorEdit, 0, len(rows))
	for _, row := range rows {
		results = append(results, ColorEditFromDB(row))
	}
	return results, nil
}

func ColorEditFromDB(row dbgen.ColorEdit) ColorEdit {
	return ColorEdit{
		ID:           row.ID,
		ProjectID:    row.ProjectID,
		OldColor:     row.OldColor,
		NewColor:     row.NewColor,
		SitesChanged: row.SitesChanged,
		Timestamp:    row.CreatedAt,
	}
}
