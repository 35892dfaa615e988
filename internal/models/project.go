// internal/models/project.go
package models

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	dbgen "github.com/codr1/lottiecolor/internal/db/generated"
	"github.com/codr1/lottiecolor/internal/lottie"
)

const maxProjectNameLength = 100

// DefaultProjectName is used when an import yields no usable name.
const DefaultProjectName = "animation"

type Project struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	SourceURL    string       `json:"sourceUrl,omitempty"`
	Document     *lottie.Node `json:"document,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	LastModified time.Time    `json:"lastModified"`
}

type ProjectQueries interface {
	CreateProject(ctx context.Context, arg dbgen.CreateProjectParams) (dbgen.Project, error)
	GetProject(ctx context.Context, id int64) (dbgen.Project, error)
	ListProjects(ctx context.Context) ([]dbgen.ListProjectsRow, error)
	UpdateProject(ctx context.Context, arg dbgen.UpdateProjectParams) (dbgen.Project, error)
	DeleteProject(ctx context.Context, id int64) (int64, error)
}

// NormalizeProjectName trims the name and collapses inner whitespace.
func NormalizeProjectName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

func (p Project) Validate() error {
	trimmedName := strings.TrimSpace(p.Name)
	if trimmedName == "" {
		return fmt.Errorf("name is required")
	}
	if trimmedName != p.Name {
		return fmt.Errorf("name must not have leading or trailing whitespace")
	}
	if len(trimmedName) > maxProjectNameLength {
		return fmt.Errorf("name must be %d characters or fewer", maxProjectNameLength)
	}
	if p.Document == nil {
		return fmt.Errorf("document is required")
	}
	if !p.Document.IsObject() && !p.Document.IsArray() {
		return fmt.Errorf("document must be a JSON object or array")
	}
	return nil
}

// CreateParams serializes the project for insertion.
func (p Project) CreateParams() (dbgen.CreateProjectParams, error) {
	doc, err := p.Document.MarshalJSON()
	if err != nil {
		return dbgen.CreateProjectParams{}, fmt.Errorf("encode document: %w", err)
	}
	return dbgen.CreateProjectParams{
		Name:      p.Name,
		SourceUrl: toNullString(p.SourceURL),
		Document:  string(doc),
	}, nil
}

// UpdateParams serializes the project's name and document for an update.
func (p Project) UpdateParams() (dbgen.UpdateProjectParams, error) {
	doc, err := p.Document.MarshalJSON()
	if err != nil {
		return dbgen.UpdateProjectParams{}, fmt.Errorf("encode document: %w", err)
	}
	return dbgen.UpdateProjectParams{
		ID:       p.ID,
		Name:     p.Name,
		Document: string(doc),
	}, nil
}

// GetProject loads a project and parses its stored document.
// A missing project returns sql.ErrNoRows.
func GetProject(ctx context.Context, queries ProjectQueries, id int64) (Project, error) {
	row, err := queries.GetProject(ctx, id)
	if err != nil {
		return Project{}, err
	}
	return ProjectFromDB(row)
}

// ListProjects returns project summaries, most recently modified first.
// Summaries carry no document.
func ListProjects(ctx context.Context, queries ProjectQueries) ([]Project, error) {
	rows, err := queries.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	results := make([]Project, 0, len(rows))
	for _, row := range rows {
		results = append(results, Project{
			ID:           row.ID,
			Name:         row.Name,
			SourceURL:    row.SourceUrl.String,
			CreatedAt:    row.CreatedAt,
			LastModified: row.LastModified,
		})
	}
	return results, nil
}

// SaveProject validates p and inserts it, or updates it when p.ID is set.
func SaveProject(ctx context.Context, queries ProjectQueries, p Project) (Project, error) {
	if err := p.Validate(); err != nil {
		return Project{}, err
	}
	if p.ID == 0 {
		params, err := p.CreateParams()
		if err != nil {
			return Project{}, err
		}
		row, err := queries.CreateProject(ctx, params)
		if err != nil {
			return Project{}, err
		}
		return ProjectFromDB(row)
	}
	params, err := p.UpdateParams()
	if err != nil {
		return Project{}, err
	}
	row, err := queries.UpdateProject(ctx, params)
	if err != nil {
		return Project{}, err
	}
	return ProjectFromDB(row)
}

func ProjectFromDB(row dbgen.Project) (Project, error) {
	doc, err := lottie.Parse([]byte(row.Document))
	if err != nil {
		return Project{}, fmt.Errorf("project %d has an unreadable document: %w", row.ID, err)
	}
	return Project{
		ID:           row.ID,
		Name:         row.Name,
		SourceURL:    row.SourceUrl.String,
		Document:     doc,
		CreatedAt:    row.CreatedAt,
		LastModified: row.LastModified,
	}, nil
}

func toNullString(value string) sql.NullString {
	value = strings.TrimSpace(value)
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
