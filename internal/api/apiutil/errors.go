package apiutil

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/lottiecolor/internal/api/htmx"
	"github.com/codr1/lottiecolor/internal/importer"
	"github.com/codr1/lottiecolor/internal/lottie"
)

// StatusForError maps domain errors to HTTP status codes. Unknown errors are
// internal failures.
func StatusForError(err error) int {
	var handlerErr HandlerError
	var fieldErr FieldError
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError

	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &handlerErr):
		return handlerErr.Status
	case errors.As(err, &fieldErr),
		errors.As(err, &syntaxErr),
		errors.As(err, &typeErr),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, lottie.ErrMalformedDocument),
		errors.Is(err, lottie.ErrRecursionLimit),
		errors.Is(err, lottie.ErrInvalidColorFormat),
		errors.Is(err, importer.ErrInvalidURL):
		return http.StatusBadRequest
	case errors.Is(err, sql.ErrNoRows):
		return http.StatusNotFound
	case errors.Is(err, importer.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, importer.ErrUnsupportedContent):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, importer.ErrNoAnimation),
		errors.Is(err, importer.ErrSourceNotFound):
		return http.StatusUnprocessableEntity
	case errors.Is(err, importer.ErrFetchFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes err with the status StatusForError picks. Internal
// failures are logged and answered with fallback instead of the error text.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := StatusForError(err)
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		log.Ctx(r.Context()).Error().Err(err).Msg(fallback)
		http.Error(w, fallback, status)
		return
	}
	log.Ctx(r.Context()).Debug().Err(err).Int("status", status).Msg("Request rejected")
	http.Error(w, err.Error(), status)
}

// WriteErrorFeedback is WriteError for endpoints that htmx forms post to:
// htmx requests get an inline status fragment instead of plain text.
func WriteErrorFeedback(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	if !htmx.IsRequest(r) {
		WriteError(w, r, err, fallback)
		return
	}
	status := StatusForError(err)
	message := err.Error()
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		log.Ctx(r.Context()).Error().Err(err).Msg(fallback)
		message = fallback
	}
	WriteHTMLFeedback(w, status, message)
}

// WriteRateLimited answers 429 with a Retry-After header in whole seconds.
func WriteRateLimited(w http.ResponseWriter, r *http.Request, retryAfter time.Duration, message string) {
	seconds := int(math.Ceil(retryAfter.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	if htmx.IsRequest(r) {
		WriteHTMLFeedback(w, http.StatusTooManyRequests, message)
		return
	}
	http.Error(w, message, http.StatusTooManyRequests)
}
