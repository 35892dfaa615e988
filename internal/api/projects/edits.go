// internal/api/projects/edits.go
package projects

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/codr1/lottiecolor/internal/api/apiutil"
	colorsapi "github.com/codr1/lottiecolor/internal/api/colors"
	"github.com/codr1/lottiecolor/internal/api/htmx"
	"github.com/codr1/lottiecolor/internal/history"
	"github.com/codr1/lottiecolor/internal/lottie"
	"github.com/codr1/lottiecolor/internal/models"
)

const refreshPaletteTrigger = "refreshPalette"

type editRequest struct {
	OldColor string   `json:"oldColor"`
	NewColor string   `json:"newColor"`
	Paths    []string `json:"paths"`
}

type editResponse struct {
	Project models.Project     `json:"project"`
	Changes []lottie.Change    `json:"changes"`
	Edits   []models.ColorEdit `json:"edits"`
	History history.State      `json:"history"`
}

type editOp struct {
	action   string
	validate func(editRequest) error
	apply    func(e *lottie.Engine, doc *lottie.Node, req editRequest) (lottie.Result, error)
}

var (
	replaceOp = editOp{
		action: "replace",
		validate: func(req editRequest) error {
			if err := colorsapi.RequireColor("oldColor", req.OldColor); err != nil {
				return err
			}
			return colorsapi.RequireColor("newColor", req.NewColor)
		},
		apply: func(e *lottie.Engine, doc *lottie.Node, req editRequest) (lottie.Result, error) {
			return e.ReplaceColor(doc, req.OldColor, req.NewColor)
		},
	}
	replaceAllOp = editOp{
		action: "replace-all",
		validate: func(req editRequest) error {
			return colorsapi.RequireColor("newColor", req.NewColor)
		},
		apply: func(e *lottie.Engine, doc *lottie.Node, req editRequest) (lottie.Result, error) {
			return e.ReplaceAll(doc, req.NewColor)
		},
	}
	replaceGroupOp = editOp{
		action: "replace-group",
		validate: func(req editRequest) error {
			if len(req.Paths) == 0 {
				return apiutil.FieldError{Field: "paths", Reason: "must list at least one color site"}
			}
			return colorsapi.RequireColor("newColor", req.NewColor)
		},
		apply: func(e *lottie.Engine, doc *lottie.Node, req editRequest) (lottie.Result, error) {
			return e.ReplacePaths(doc, req.Paths, req.NewColor)
		},
	}
)

// POST /api/v1/projects/{id}/colors/replace
func HandleReplaceColor(w http.ResponseWriter, r *http.Request) {
	applyEdit(w, r, replaceOp)
}

// POST /api/v1/projects/{id}/colors/replace-all
func HandleReplaceAllColors(w http.ResponseWriter, r *http.Request) {
	applyEdit(w, r, replaceAllOp)
}

// POST /api/v1/projects/{id}/colors/replace-group
func HandleReplaceGroup(w http.ResponseWriter, r *http.Request) {
	applyEdit(w, r, replaceGroupOp)
}

// applyEdit runs one replacement against the stored document. A pass that
// changes nothing is reported but not persisted.
func applyEdit(w http.ResponseWriter, r *http.Request, op editOp) {
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

	req, err := decodeEditRequest(w, r)
	if err != nil {
		apiutil.WriteErrorFeedback(w, r, err, "Failed to read request")
		return
	}
	if err := op.validate(req); err != nil {
		apiutil.WriteErrorFeedback(w, r, err, "Invalid request")
		return
	}

	unlock := locks.lock(projectID)
	defer unlock()

	ctx, cancel := context.WithTimeout(r.Context(), projectQueryTimeout)
	defer cancel()

	project, err := models.GetProject(ctx, q, projectID)
	if err != nil {
		apiutil.WriteErrorFeedback(w, r, notFound(err, "Project not found"), "Failed to load project")
		return
	}

	store := loadVersions()
	store.Ensure(projectID, project.Document)

	result, err := op.apply(loadEngine(), project.Document, req)
	if err != nil {
		apiutil.WriteErrorFeedback(w, r, err, "Failed to replace colors")
		return
	}

	if !result.Changed() {
		logger.Debug().Int64("project_id", projectID).Str("action", op.action).Msg("Color edit matched no sites")
		if htmx.IsRequest(r) {
			apiutil.WriteHTMLFeedback(w, http.StatusOK, "No matching colors found")
			return
		}
		resp := editResponse{
			Project: project,
			Changes: []lottie.Change{},
			Edits:   []models.ColorEdit{},
			History: store.State(projectID),
		}
		if err := apiutil.WriteJSON(w, http.StatusOK, resp); err != nil {
			logger.Error().Err(err).Msg("Failed to write edit response")
		}
		return
	}

	project.Document = result.Document
	var updated models.Project
	var recorded []models.ColorEdit
	err = runInTx(ctx, func(tx projectQueries) error {
		var err error
		updated, err = models.SaveProject(ctx, tx, project)
		if err != nil {
			return fmt.Errorf("save project: %w", err)
		}
		for _, edit := range summarizeChanges(projectID, result.Changes) {
			saved, err := models.RecordColorEdit(ctx, tx, edit)
			if err != nil {
				return fmt.Errorf("record color edit: %w", err)
			}
			recorded = append(recorded, saved)
		}
		return nil
	})
	if err != nil {
		apiutil.WriteErrorFeedback(w, r, notFound(err, "Project not found"), "Failed to save project")
		return
	}

	state := store.Push(projectID, updated.Document)

	logger.Info().
		Int64("project_id", projectID).
		Str("action", op.action).
		Str("old_color", req.OldColor).
		Str("new_color", req.NewColor).
		Int("changes", len(result.Changes)).
		Msg("Project colors replaced")

	if htmx.IsRequest(r) {
		w.Header().Set("HX-Trigger", refreshPaletteTrigger)
		apiutil.WriteHTMLFeedback(w, http.StatusOK, fmt.Sprintf("Updated %d color sites", len(result.Changes)))
		return
	}

	resp := editResponse{
		Project: updated,
		Changes: result.Changes,
		Edits:   recorded,
		History: state,
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, resp); err != nil {
		logger.Error().Err(err).Msg("Failed to write edit response")
	}
}

// POST /api/v1/projects/{id}/undo
func HandleUndo(w http.ResponseWriter, r *http.Request) {
	moveVersion(w, r, false)
}

// POST /api/v1/projects/{id}/redo
func HandleRedo(w http.ResponseWriter, r *http.Request) {
	moveVersion(w, r, true)
}

func moveVersion(w http.ResponseWriter, r *http.Request, forward bool) {
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

	store := loadVersions()
	action, move, revert := "undo", store.Undo, store.Redo
	if forward {
		action, move, revert = "redo", store.Redo, store.Undo
	}

	unlock := locks.lock(projectID)
	defer unlock()

	ctx, cancel := context.WithTimeout(r.Context(), projectQueryTimeout)
	defer cancel()

	project, err := models.GetProject(ctx, q, projectID)
	if err != nil {
		apiutil.WriteErrorFeedback(w, r, notFound(err, "Project not found"), "Failed to load project")
		return
	}

	doc, state, moved := move(projectID)
	if !moved {
		apiutil.WriteErrorFeedback(w, r, apiutil.HandlerError{Status: http.StatusConflict, Message: "Nothing to " + action}, "Nothing to "+action)
		return
	}

	project.Document = doc
	updated, err := models.SaveProject(ctx, q, project)
	if err != nil {
		revert(projectID)
		logger.Error().Err(err).Int64("project_id", projectID).Str("action", action).Msg("Failed to save restored version")
		apiutil.WriteErrorFeedback(w, r, notFound(err, "Project not found"), "Failed to save project")
		return
	}

	logger.Info().Int64("project_id", projectID).Str("action", action).Int("position", state.Position).Msg("Project version restored")

	if htmx.IsRequest(r) {
		w.Header().Set("HX-Trigger", refreshPaletteTrigger)
		apiutil.WriteHTMLFeedback(w, http.StatusOK, strings.ToUpper(action[:1])+action[1:]+" applied")
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, projectResponse{Project: updated, History: state}); err != nil {
		logger.Error().Err(err).Msg("Failed to write version response")
	}
}

func decodeEditRequest(w http.ResponseWriter, r *http.Request) (editRequest, error) {
	var req editRequest
	if apiutil.IsJSONRequest(r) {
		if err := apiutil.DecodeJSONLimited(w, r, &req, maxBodyBytes); err != nil {
			return editRequest{}, err
		}
		return req, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		return editRequest{}, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "Invalid form data", Err: err}
	}
	req.OldColor = strings.TrimSpace(r.FormValue("oldColor"))
	req.NewColor = strings.TrimSpace(r.FormValue("newColor"))
	for _, path := range r.Form["paths"] {
		if path = strings.TrimSpace(path); path != "" {
			req.Paths = append(req.Paths, path)
		}
	}
	return req, nil
}

// summarizeChanges folds site changes into one edit per distinct source
// color, in first-seen order.
func summarizeChanges(projectID int64, changes []lottie.Change) []models.ColorEdit {
	var edits []models.ColorEdit
	index := make(map[string]int)
	for _, c := range changes {
		i, ok := index[c.From]
		if !ok {
			index[c.From] = len(edits)
			edits = append(edits, models.ColorEdit{
				ProjectID: projectID,
				OldColor:  c.From,
				NewColor:  c.To,
			})
			i = len(edits) - 1
		}
		edits[i].SitesChanged++
	}
	return edits
}
