// internal/api/imports/handlers.go
package imports

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/codr1/lottiecolor/internal/api/apiutil"
	"github.com/codr1/lottiecolor/internal/api/htmx"
	"github.com/codr1/lottiecolor/internal/history"
	"github.com/codr1/lottiecolor/internal/importer"
	"github.com/codr1/lottiecolor/internal/models"
	"github.com/codr1/lottiecolor/internal/ratelimit"
)

const (
	importSaveTimeout  = 5 * time.Second
	maxNameLength      = 100
	defaultUploadLimit = 20 << 20
	multipartOverhead  = 1 << 20
	uploadFieldName    = "file"
)

var (
	queries     models.ProjectQueries
	fetcher     *importer.Importer
	limiter     *ratelimit.Limiter
	versions    *history.Store
	trustProxy  bool
	uploadLimit int64 = defaultUploadLimit
	queriesOnce sync.Once
)

// Options carries the import pipeline and its guards.
type Options struct {
	Importer    *importer.Importer
	Limiter     *ratelimit.Limiter
	Versions    *history.Store
	TrustProxy  bool
	UploadLimit int64
}

type importRequest struct {
	URL string `json:"url"`
}

type importResponse struct {
	Project models.Project `json:"project"`
	JSONURL string         `json:"jsonUrl,omitempty"`
}

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(q models.ProjectQueries, opts Options) {
	if q == nil {
		return
	}
	queriesOnce.Do(func() {
		queries = q
		fetcher = opts.Importer
		limiter = opts.Limiter
		versions = opts.Versions
		trustProxy = opts.TrustProxy
		if opts.UploadLimit > 0 {
			uploadLimit = opts.UploadLimit
		}
	})
}

// POST /api/v1/import
func HandleImportURL(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ip := ratelimit.GetClientIP(r, trustProxy)
	if !allowImport(w, r, ip) {
		return
	}

	var req importRequest
	if apiutil.IsJSONRequest(r) {
		if err := apiutil.DecodeJSONLimited(w, r, &req, 1<<16); err != nil {
			apiutil.WriteErrorFeedback(w, r, err, "Failed to read request")
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			apiutil.WriteErrorFeedback(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "Invalid form data", Err: err}, "Failed to read request")
			return
		}
		req.URL = r.FormValue("url")
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		apiutil.WriteErrorFeedback(w, r, apiutil.FieldError{Field: "url", Reason: "is required"}, "Invalid request")
		return
	}

	if limiter != nil {
		limiter.RecordImport(ip)
	}

	anim, err := loadImporter().FromURL(r.Context(), req.URL)
	if err != nil {
		logger.Warn().Err(err).Str("url", req.URL).Msg("Import failed")
		apiutil.WriteErrorFeedback(w, r, err, "Failed to import animation")
		return
	}

	saveImported(w, r, q, anim)
}

// POST /api/v1/import/upload
func HandleImportUpload(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ip := ratelimit.GetClientIP(r, trustProxy)
	if !allowImport(w, r, ip) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, uploadLimit+multipartOverhead)
	file, header, err := r.FormFile(uploadFieldName)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			err = apiutil.HandlerError{Status: http.StatusRequestEntityTooLarge, Message: "Upload too large", Err: err}
		case errors.Is(err, http.ErrMissingFile):
			err = apiutil.FieldError{Field: uploadFieldName, Reason: "is required"}
		default:
			err = apiutil.HandlerError{Status: http.StatusBadRequest, Message: "Invalid upload", Err: err}
		}
		apiutil.WriteErrorFeedback(w, r, err, "Failed to read upload")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, uploadLimit+1))
	if err != nil {
		apiutil.WriteErrorFeedback(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "Failed to read upload", Err: err}, "Failed to read upload")
		return
	}
	if int64(len(data)) > uploadLimit {
		apiutil.WriteErrorFeedback(w, r, apiutil.HandlerError{Status: http.StatusRequestEntityTooLarge, Message: "Upload too large"}, "Upload too large")
		return
	}

	if limiter != nil {
		limiter.RecordImport(ip)
	}

	anim, err := loadImporter().FromBytes(header.Filename, data)
	if err != nil {
		logger.Warn().Err(err).Str("filename", header.Filename).Msg("Upload import failed")
		apiutil.WriteErrorFeedback(w, r, err, "Failed to import animation")
		return
	}

	saveImported(w, r, q, anim)
}

func allowImport(w http.ResponseWriter, r *http.Request, ip string) bool {
	if limiter == nil {
		return true
	}
	result := limiter.CheckImport(ip)
	if result.Allowed {
		return true
	}
	ratelimit.LogRateLimitExceeded("import", "", ip, result.Reason)
	apiutil.WriteRateLimited(w, r, result.RetryAfter, "Too many imports. Please wait and try again.")
	return false
}

func saveImported(w http.ResponseWriter, r *http.Request, q models.ProjectQueries, anim *importer.Animation) {
	logger := log.Ctx(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), importSaveTimeout)
	defer cancel()

	project, err := models.SaveProject(ctx, q, models.Project{
		Name:      ProjectName(anim.Name),
		SourceURL: anim.SourceURL,
		Document:  anim.Document,
	})
	if err != nil {
		logger.Error().Err(err).Str("import_id", anim.ID).Msg("Failed to save imported project")
		apiutil.WriteErrorFeedback(w, r, err, "Failed to save imported animation")
		return
	}

	if versions != nil {
		versions.Ensure(project.ID, project.Document)
	}

	logger.Info().
		Int64("project_id", project.ID).
		Str("import_id", anim.ID).
		Str("name", project.Name).
		Str("source_url", anim.SourceURL).
		Msg("Animation imported")

	if htmx.IsRequest(r) {
		w.Header().Set("HX-Redirect", fmt.Sprintf("/projects/%d", project.ID))
		apiutil.WriteHTMLFeedback(w, http.StatusCreated, fmt.Sprintf("Imported %s", project.Name))
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusCreated, importResponse{Project: project, JSONURL: anim.JSONURL}); err != nil {
		logger.Error().Err(err).Msg("Failed to write import response")
	}
}

// ProjectName fits an imported name to the project name rules.
func ProjectName(name string) string {
	name = models.NormalizeProjectName(name)
	if name == "" {
		return models.DefaultProjectName
	}
	if len(name) <= maxNameLength {
		return name
	}
	cut := maxNameLength
	for cut > 0 && !utf8.RuneStart(name[cut]) {
		cut--
	}
	return strings.TrimSpace(name[:cut])
}

func loadQueries() models.ProjectQueries {
	return queries
}

func loadImporter() *importer.Importer {
	if fetcher == nil {
		return importer.New(importer.Config{})
	}
	return fetcher
}
