// internal/api/projects/handlers.go
package projects

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/lottiecolor/internal/api/apiutil"
	colorsapi "github.com/codr1/lottiecolor/internal/api/colors"
	"github.com/codr1/lottiecolor/internal/api/htmx"
	"github.com/codr1/lottiecolor/internal/db"
	dbgen "github.com/codr1/lottiecolor/internal/db/generated"
	"github.com/codr1/lottiecolor/internal/history"
	"github.com/codr1/lottiecolor/internal/lottie"
	"github.com/codr1/lottiecolor/internal/models"
	projecttempl "github.com/codr1/lottiecolor/internal/templates/components/projects"
	"github.com/codr1/lottiecolor/internal/templates/layouts"
)

const (
	projectQueryTimeout = 5 * time.Second
	projectIDParam      = "id"
	defaultMaxBodyBytes = 20 << 20
)

var (
	queries      projectQueries
	runInTx      func(ctx context.Context, fn func(projectQueries) error) error
	engine       *lottie.Engine
	versions     = history.NewStore(history.DefaultCapacity)
	shareEnabled bool
	maxBodyBytes int64 = defaultMaxBodyBytes
	queriesOnce  sync.Once
	locks        = newProjectLocks()
)

type projectQueries interface {
	models.ProjectQueries
	models.ColorEditQueries
	DeleteColorEditsForProject(ctx context.Context, projectID int64) (int64, error)
}

// Options carries the non-database dependencies of the project handlers.
type Options struct {
	Engine       *lottie.Engine
	Versions     *history.Store
	ShareEnabled bool
	MaxBodyBytes int64
}

type projectRequest struct {
	Name      string       `json:"name"`
	SourceURL string       `json:"sourceUrl"`
	Document  *lottie.Node `json:"document"`
}

type projectResponse struct {
	Project models.Project `json:"project"`
	History history.State  `json:"history"`
}

type historyResponse struct {
	Edits   []models.ColorEdit `json:"edits"`
	History history.State      `json:"history"`
}

type projectListResponse struct {
	Projects []models.Project `json:"projects"`
}

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(database *db.DB, opts Options) {
	if database == nil {
		return
	}
	queriesOnce.Do(func() {
		queries = database.Queries
		runInTx = func(ctx context.Context, fn func(projectQueries) error) error {
			return database.RunInTx(ctx, func(tx *db.DB) error {
				return fn(tx.Queries)
			})
		}
		engine = opts.Engine
		if opts.Versions != nil {
			versions = opts.Versions
		}
		shareEnabled = opts.ShareEnabled
		if opts.MaxBodyBytes > 0 {
			maxBodyBytes = opts.MaxBodyBytes
		}
	})
}

// GET /
func HandleProjectsPage(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), projectQueryTimeout)
	defer cancel()

	list, err := models.ListProjects(ctx, q)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list projects")
		http.Error(w, "Failed to load projects", http.StatusInternalServerError)
		return
	}

	page := layouts.Base(layouts.Page{Title: "Projects"}, projecttempl.ProjectList(list))
	if !apiutil.RenderHTMLComponent(r.Context(), w, page, nil, "Failed to render projects page", "Failed to render page") {
		return
	}
}

// GET /projects/{id}
func HandleEditorPage(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	projectID, err := apiutil.IDFromPath(r, projectIDParam, "project")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), projectQueryTimeout)
	defer cancel()

	project, err := models.GetProject(ctx, q, projectID)
	if err != nil {
		apiutil.WriteError(w, r, notFound(err, "Project not found"), "Failed to load project")
		return
	}

	swatches, err := swatchesFor(project.Document, nil)
	if err != nil {
		apiutil.WriteError(w, r, err, "Failed to read project colors")
		return
	}

	edits, err := models.ListColorEdits(ctx, q, projectID, models.DefaultHistoryLimit)
	if err != nil {
		logger.Error().Err(err).Int64("project_id", projectID).Msg("Failed to load color edits")
		edits = nil
	}

	store := loadVersions()
	store.Ensure(projectID, project.Document)

	data := projecttempl.EditorData{
		Project:  project,
		Swatches: swatches,
		Edits:    edits,
		State:    store.State(projectID),
		EmbedURL: fmt.Sprintf("/api/v1/projects/%d/embed", projectID),
		CanShare: shareEnabled,
	}
	page := layouts.Base(layouts.Page{Title: project.Name, Accent: data.Accent()}, projecttempl.Editor(data))
	if !apiutil.RenderHTMLComponent(r.Context(), w, page, nil, "Failed to render editor page", "Failed to render page") {
		return
	}
}

// GET /projects/{id}/palette
func HandlePalette(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	projectID, err := apiutil.IDFromPath(r, projectIDParam, "project")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), projectQueryTimeout)
	defer cancel()

	project, err := models.GetProject(ctx, q, projectID)
	if err != nil {
		apiutil.WriteError(w, r, notFound(err, "Project not found"), "Failed to load project")
		return
	}

	swatches, err := swatchesFor(project.Document, nil)
	if err != nil {
		apiutil.WriteError(w, r, err, "Failed to read project colors")
		return
	}

	component := projecttempl.Palette(projectID, swatches)
	if !apiutil.RenderHTMLComponent(r.Context(), w, component, nil, "Failed to render palette", "Failed to render palette") {
		return
	}
}

// GET /api/v1/projects
func HandleListProjects(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), projectQueryTimeout)
	defer cancel()

	list, err := models.ListProjects(ctx, q)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list projects")
		http.Error(w, "Failed to load projects", http.StatusInternalServerError)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, projectListResponse{Projects: list}); err != nil {
		logger.Error().Err(err).Msg("Failed to write projects response")
	}
}

// POST /api/v1/projects
func HandleCreateProject(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var req projectRequest
	if err := apiutil.DecodeJSONLimited(w, r, &req, maxBodyBytes); err != nil {
		apiutil.WriteError(w, r, err, "Failed to read request")
		return
	}

	project := models.Project{
		Name:      models.NormalizeProjectName(req.Name),
		SourceURL: req.SourceURL,
		Document:  req.Document,
	}
	if err := project.Validate(); err != nil {
		apiutil.WriteError(w, r, invalid(err), "Invalid project")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), projectQueryTimeout)
	defer cancel()

	created, err := models.SaveProject(ctx, q, project)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create project")
		http.Error(w, "Failed to create project", http.StatusInternalServerError)
		return
	}

	store := loadVersions()
	store.Ensure(created.ID, created.Document)

	logger.Info().Int64("project_id", created.ID).Str("name", created.Name).Msg("Project created")

	if err := apiutil.WriteJSON(w, http.StatusCreated, projectResponse{Project: created, History: store.State(created.ID)}); err != nil {
		logger.Error().Err(err).Msg("Failed to write project response")
	}
}

// GET /api/v1/projects/{id}
func HandleGetProject(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	projectID, err := apiutil.IDFromPath(r, projectIDParam, "project")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), projectQueryTimeout)
	defer cancel()

	project, err := models.GetProject(ctx, q, projectID)
	if err != nil {
		apiutil.WriteError(w, r, notFound(err, "Project not found"), "Failed to load project")
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, projectResponse{Project: project, History: loadVersions().State(projectID)}); err != nil {
		logger.Error().Err(err).Msg("Failed to write project response")
	}
}

// PUT /api/v1/projects/{id}
// An omitted name or document keeps the stored value.
func HandleUpdateProject(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	projectID, err := apiutil.IDFromPath(r, projectIDParam, "project")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req projectRequest
	if err := apiutil.DecodeJSONLimited(w, r, &req, maxBodyBytes); err != nil {
		apiutil.WriteError(w, r, err, "Failed to read request")
		return
	}

	unlock := locks.lock(projectID)
	defer unlock()

	ctx, cancel := context.WithTimeout(r.Context(), projectQueryTimeout)
	defer cancel()

	project, err := models.GetProject(ctx, q, projectID)
	if err != nil {
		apiutil.WriteError(w, r, notFound(err, "Project not found"), "Failed to load project")
		return
	}

	store := loadVersions()
	store.Ensure(projectID, project.Document)

	if strings.TrimSpace(req.Name) != "" {
		project.Name = models.NormalizeProjectName(req.Name)
	}
	documentChanged := req.Document != nil && !req.Document.Equal(project.Document)
	if req.Document != nil {
		project.Document = req.Document
	}
	if err := project.Validate(); err != nil {
		apiutil.WriteError(w, r, invalid(err), "Invalid project")
		return
	}

	updated, err := models.SaveProject(ctx, q, project)
	if err != nil {
		apiutil.WriteError(w, r, notFound(err, "Project not found"), "Failed to update project")
		return
	}

	state := store.State(projectID)
	if documentChanged {
		state = store.Push(projectID, updated.Document)
	}

	logger.Info().Int64("project_id", projectID).Bool("document_changed", documentChanged).Msg("Project updated")

	if err := apiutil.WriteJSON(w, http.StatusOK, projectResponse{Project: updated, History: state}); err != nil {
		logger.Error().Err(err).Msg("Failed to write project response")
	}
}

// DELETE /api/v1/projects/{id}
func HandleDeleteProject(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil || runInTx == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	projectID, err := apiutil.IDFromPath(r, projectIDParam, "project")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	unlock := locks.lock(projectID)
	defer unlock()

	ctx, cancel := context.WithTimeout(r.Context(), projectQueryTimeout)
	defer cancel()

	var editsRemoved int64
	err = runInTx(ctx, func(tx projectQueries) error {
		var err error
		editsRemoved, err = tx.DeleteColorEditsForProject(ctx, projectID)
		if err != nil {
			return fmt.Errorf("delete color edits: %w", err)
		}
		deleted, err := tx.DeleteProject(ctx, projectID)
		if err != nil {
			return fmt.Errorf("delete project: %w", err)
		}
		if deleted == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
	if err != nil {
		apiutil.WriteError(w, r, notFound(err, "Project not found"), "Failed to delete project")
		return
	}

	loadVersions().Forget(projectID)

	logger.Info().Int64("project_id", projectID).Int64("edits_removed", editsRemoved).Msg("Project deleted")

	if htmx.IsRequest(r) {
		w.Header().Set("HX-Redirect", "/")
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/projects/{id}/history?limit=
func HandleProjectHistory(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	projectID, err := apiutil.IDFromPath(r, projectIDParam, "project")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	limit, err := apiutil.ParseOptionalIntField(r.URL.Query().Get("limit"), "limit", models.DefaultHistoryLimit)
	if err != nil {
		apiutil.WriteError(w, r, err, "Invalid limit")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), projectQueryTimeout)
	defer cancel()

	if _, err := q.GetProject(ctx, projectID); err != nil {
		apiutil.WriteError(w, r, notFound(err, "Project not found"), "Failed to load project")
		return
	}

	edits, err := models.ListColorEdits(ctx, q, projectID, limit)
	if err != nil {
		logger.Error().Err(err).Int64("project_id", projectID).Msg("Failed to load color edits")
		http.Error(w, "Failed to load history", http.StatusInternalServerError)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, historyResponse{Edits: edits, History: loadVersions().State(projectID)}); err != nil {
		logger.Error().Err(err).Msg("Failed to write history response")
	}
}

// GET /api/v1/projects/{id}/colors
func HandleProjectColors(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	project, ok := loadProjectFromPath(w, r)
	if !ok {
		return
	}

	sites, err := loadEngine().ExtractAll(project.Document)
	if err != nil {
		apiutil.WriteError(w, r, err, "Failed to extract colors")
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"colors": sites, "count": len(sites)}); err != nil {
		logger.Error().Err(err).Msg("Failed to write colors response")
	}
}

// GET /api/v1/projects/{id}/groups?tolerance=
func HandleProjectGroups(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	tolerance, err := toleranceFromQuery(r)
	if err != nil {
		apiutil.WriteError(w, r, err, "Invalid tolerance")
		return
	}

	project, ok := loadProjectFromPath(w, r)
	if !ok {
		return
	}

	swatches, err := swatchesFor(project.Document, tolerance)
	if err != nil {
		apiutil.WriteError(w, r, err, "Failed to group colors")
		return
	}

	if htmx.IsRequest(r) {
		component := projecttempl.Palette(project.ID, swatches)
		apiutil.RenderHTMLComponent(r.Context(), w, component, nil, "Failed to render palette", "Failed to render palette")
		return
	}

	groups := make([]lottie.ColorGroup, len(swatches))
	for i, s := range swatches {
		groups[i] = s.ColorGroup
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"groups": groups}); err != nil {
		logger.Error().Err(err).Msg("Failed to write groups response")
	}
}

func loadProjectFromPath(w http.ResponseWriter, r *http.Request) (models.Project, bool) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return models.Project{}, false
	}

	projectID, err := apiutil.IDFromPath(r, projectIDParam, "project")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return models.Project{}, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), projectQueryTimeout)
	defer cancel()

	project, err := models.GetProject(ctx, q, projectID)
	if err != nil {
		apiutil.WriteError(w, r, notFound(err, "Project not found"), "Failed to load project")
		return models.Project{}, false
	}
	return project, true
}

func toleranceFromQuery(r *http.Request) (*float64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("tolerance"))
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value <= 0 || value > 2 {
		return nil, apiutil.FieldError{Field: "tolerance", Reason: "must be a number in (0, 2]"}
	}
	return &value, nil
}

func swatchesFor(doc *lottie.Node, tolerance *float64) ([]projecttempl.Swatch, error) {
	e := loadEngine()
	sites, err := e.ExtractAll(doc)
	if err != nil {
		return nil, err
	}
	return projecttempl.NewSwatches(colorsapi.GroupWith(e, sites, tolerance)), nil
}

// notFound turns sql.ErrNoRows into a 404 carrying message.
func notFound(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apiutil.HandlerError{Status: http.StatusNotFound, Message: message, Err: err}
	}
	return err
}

func invalid(err error) error {
	return apiutil.HandlerError{Status: http.StatusBadRequest, Message: err.Error(), Err: err}
}

func loadQueries() projectQueries {
	return queries
}

func loadEngine() *lottie.Engine {
	if engine == nil {
		return lottie.Default()
	}
	return engine
}

func loadVersions() *history.Store {
	return versions
}

var _ projectQueries = (*dbgen.Queries)(nil)
