// internal/api/exports/handlers.go
package exports

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/lottiecolor/internal/api/apiutil"
	"github.com/codr1/lottiecolor/internal/api/htmx"
	"github.com/codr1/lottiecolor/internal/email"
	"github.com/codr1/lottiecolor/internal/export"
	"github.com/codr1/lottiecolor/internal/lottie"
	"github.com/codr1/lottiecolor/internal/models"
	"github.com/codr1/lottiecolor/internal/ratelimit"
	projecttempl "github.com/codr1/lottiecolor/internal/templates/components/projects"
)

const (
	exportQueryTimeout  = 5 * time.Second
	defaultMaxBodyBytes = 20 << 20
	maxShareBodyBytes   = 1 << 16
	maxNoteLength       = 500
	maxEmbedDimension   = 4096
	projectIDParam      = "id"

	formatJSON   = "json"
	formatLottie = "lottie"

	jsonContentType   = "application/json"
	lottieContentType = "application/zip"
)

var (
	queries      models.ProjectQueries
	sender       email.EmailSender
	limiter      *ratelimit.Limiter
	baseURL      string
	trustProxy   bool
	shareEnabled bool
	maxBodyBytes int64 = defaultMaxBodyBytes
	queriesOnce  sync.Once
)

// Options configures downloads, embed links and share email.
type Options struct {
	// BaseURL is the public origin used in embed snippets.
	BaseURL      string
	Sender       email.EmailSender
	Limiter      *ratelimit.Limiter
	TrustProxy   bool
	ShareEnabled bool
	MaxBodyBytes int64
}

type packageRequest struct {
	Document *lottie.Node `json:"document"`
	Name     string       `json:"name"`
}

type shareRequest struct {
	Email string `json:"email"`
	Note  string `json:"note"`
}

type embedResponse struct {
	EmbedCode string `json:"embedCode"`
	JSONURL   string `json:"jsonUrl"`
}

type shareResponse struct {
	Status    string `json:"status"`
	Recipient string `json:"recipient"`
}

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(q models.ProjectQueries, opts Options) {
	if q == nil {
		return
	}
	queriesOnce.Do(func() {
		queries = q
		sender = opts.Sender
		limiter = opts.Limiter
		baseURL = strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
		trustProxy = opts.TrustProxy
		shareEnabled = opts.ShareEnabled
		if opts.MaxBodyBytes > 0 {
			maxBodyBytes = opts.MaxBodyBytes
		}
	})
}

// GET /api/v1/projects/{id}/export?format=json|lottie
func HandleExportProject(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	project, ok := loadProject(w, r)
	if !ok {
		return
	}

	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = formatJSON
	}

	var buf bytes.Buffer
	var contentType string
	var err error
	switch format {
	case formatJSON:
		contentType = jsonContentType
		err = export.WriteJSON(&buf, project.Document)
	case formatLottie:
		contentType = lottieContentType
		err = export.WritePackage(&buf, project.Document, project.Name)
	default:
		apiutil.WriteError(w, r, apiutil.FieldError{Field: "format", Reason: "must be json or lottie"}, "Invalid format")
		return
	}
	if err != nil {
		apiutil.WriteError(w, r, err, "Failed to export project")
		return
	}

	logger.Info().Int64("project_id", project.ID).Str("format", format).Int("bytes", buf.Len()).Msg("Project exported")
	writeDownload(w, r, contentType, export.Filename(project.Name, format), buf.Bytes())
}

// POST /api/v1/export/package
func HandleExportPackage(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	var req packageRequest
	if err := apiutil.DecodeJSONLimited(w, r, &req, maxBodyBytes); err != nil {
		apiutil.WriteError(w, r, err, "Failed to read request")
		return
	}
	if req.Document == nil || req.Document.Kind() == lottie.KindNull {
		apiutil.WriteError(w, r, apiutil.FieldError{Field: "document", Reason: "is required"}, "Invalid request")
		return
	}

	var buf bytes.Buffer
	if err := export.WritePackage(&buf, req.Document, req.Name); err != nil {
		apiutil.WriteError(w, r, err, "Failed to build package")
		return
	}

	logger.Debug().Str("name", req.Name).Int("bytes", buf.Len()).Msg("Package built")
	writeDownload(w, r, lottieContentType, export.Filename(req.Name, formatLottie), buf.Bytes())
}

// GET /api/v1/projects/{id}/embed
func HandleEmbedCode(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	project, ok := loadProject(w, r)
	if !ok {
		return
	}

	width, err := dimensionFromQuery(r, "width", export.DefaultEmbedWidth)
	if err != nil {
		apiutil.WriteErrorFeedback(w, r, err, "Invalid request")
		return
	}
	height, err := dimensionFromQuery(r, "height", export.DefaultEmbedHeight)
	if err != nil {
		apiutil.WriteErrorFeedback(w, r, err, "Invalid request")
		return
	}

	jsonURL := ProjectJSONURL(baseURL, project.ID)
	code := export.EmbedCode(jsonURL, width, height)

	if htmx.IsRequest(r) {
		apiutil.RenderHTMLComponent(r.Context(), w, projecttempl.EmbedSnippet(code, jsonURL), nil, "Failed to render embed snippet", "Failed to render embed code")
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, embedResponse{EmbedCode: code, JSONURL: jsonURL}); err != nil {
		logger.Error().Err(err).Msg("Failed to write embed response")
	}
}

// POST /api/v1/projects/{id}/share
func HandleShareProject(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	client := sender
	if !shareEnabled || client == nil {
		apiutil.WriteErrorFeedback(w, r, apiutil.HandlerError{Status: http.StatusServiceUnavailable, Message: "Sharing is not configured"}, "Sharing is not configured")
		return
	}

	project, ok := loadProject(w, r)
	if !ok {
		return
	}

	req, err := decodeShareRequest(w, r)
	if err != nil {
		apiutil.WriteErrorFeedback(w, r, err, "Failed to read request")
		return
	}
	recipient, err := validRecipient(req.Email)
	if err != nil {
		apiutil.WriteErrorFeedback(w, r, err, "Invalid request")
		return
	}
	if len(req.Note) > maxNoteLength {
		apiutil.WriteErrorFeedback(w, r, apiutil.FieldError{Field: "note", Reason: fmt.Sprintf("must be %d characters or fewer", maxNoteLength)}, "Invalid request")
		return
	}

	ip := ratelimit.GetClientIP(r, trustProxy)
	if limiter != nil {
		result := limiter.CheckShare(recipient, ip)
		if !result.Allowed {
			ratelimit.LogRateLimitExceeded("share", recipient, ip, result.Reason)
			apiutil.WriteRateLimited(w, r, result.RetryAfter, "Too many share emails. Please try again later.")
			return
		}
		limiter.RecordShare(recipient, ip)
	}

	jsonURL := ProjectJSONURL(baseURL, project.ID)
	msg := email.BuildShareEmail(email.ShareDetails{
		ProjectName: project.Name,
		JSONURL:     jsonURL,
		EmbedCode:   export.EmbedCode(jsonURL, 0, 0),
		Note:        req.Note,
	})
	email.SendShareEmail(r.Context(), client, recipient, msg, logger, nil)

	logger.Info().
		Int64("project_id", project.ID).
		Str("recipient", ratelimit.SanitizeRecipient(recipient)).
		Msg("Share email queued")

	if htmx.IsRequest(r) {
		apiutil.WriteHTMLFeedback(w, http.StatusAccepted, fmt.Sprintf("Sent to %s", recipient))
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusAccepted, shareResponse{Status: "queued", Recipient: recipient}); err != nil {
		logger.Error().Err(err).Msg("Failed to write share response")
	}
}

// ProjectJSONURL is the public URL serving a project's current document.
func ProjectJSONURL(base string, projectID int64) string {
	return fmt.Sprintf("%s/api/v1/projects/%d/export?format=%s", strings.TrimRight(base, "/"), projectID, formatJSON)
}

func loadProject(w http.ResponseWriter, r *http.Request) (models.Project, bool) {
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

	ctx, cancel := context.WithTimeout(r.Context(), exportQueryTimeout)
	defer cancel()

	project, err := models.GetProject(ctx, q, projectID)
	if err != nil {
		if apiutil.StatusForError(err) == http.StatusNotFound {
			err = apiutil.HandlerError{Status: http.StatusNotFound, Message: "Project not found", Err: err}
		}
		apiutil.WriteErrorFeedback(w, r, err, "Failed to load project")
		return models.Project{}, false
	}
	return project, true
}

func writeDownload(w http.ResponseWriter, r *http.Request, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Str("filename", filename).Msg("Failed to write download")
	}
}

func dimensionFromQuery(r *http.Request, field string, fallback int) (int, error) {
	value, err := apiutil.ParseOptionalIntField(r.URL.Query().Get(field), field, fallback)
	if err != nil {
		return 0, err
	}
	if value > maxEmbedDimension {
		return 0, apiutil.FieldError{Field: field, Reason: fmt.Sprintf("must be at most %d", maxEmbedDimension)}
	}
	return value, nil
}

func decodeShareRequest(w http.ResponseWriter, r *http.Request) (shareRequest, error) {
	var req shareRequest
	if apiutil.IsJSONRequest(r) {
		if err := apiutil.DecodeJSONLimited(w, r, &req, maxShareBodyBytes); err != nil {
			return shareRequest{}, err
		}
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, maxShareBodyBytes)
		if err := r.ParseForm(); err != nil {
			return shareRequest{}, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "Invalid form data", Err: err}
		}
		req.Email = r.FormValue("email")
		req.Note = r.FormValue("note")
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Note = strings.TrimSpace(req.Note)
	return req, nil
}

// validRecipient accepts a single bare address; display names are dropped.
func validRecipient(raw string) (string, error) {
	if raw == "" {
		return "", apiutil.FieldError{Field: "email", Reason: "is required"}
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil || !strings.Contains(addr.Address, ".") {
		return "", apiutil.FieldError{Field: "email", Reason: "must be a valid email address"}
	}
	return addr.Address, nil
}

func loadQueries() models.ProjectQueries {
	return queries
}
