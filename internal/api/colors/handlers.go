// internal/api/colors/handlers.go
package colors

import (
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/codr1/lottiecolor/internal/api/apiutil"
	"github.com/codr1/lottiecolor/internal/lottie"
)

const defaultMaxBodyBytes = 20 << 20

var (
	engine       *lottie.Engine
	maxBodyBytes int64 = defaultMaxBodyBytes
	engineOnce   sync.Once
)

type extractRequest struct {
	Document *lottie.Node `json:"document"`
}

type groupsRequest struct {
	Document  *lottie.Node `json:"document"`
	Tolerance *float64     `json:"tolerance,omitempty"`
}

type replaceRequest struct {
	Document *lottie.Node `json:"document"`
	OldColor string       `json:"oldColor"`
	NewColor string       `json:"newColor"`
}

type replaceAllRequest struct {
	Document *lottie.Node `json:"document"`
	NewColor string       `json:"newColor"`
}

type colorsResponse struct {
	Colors []lottie.ColorSite `json:"colors"`
	Count  int                `json:"count"`
}

type groupsResponse struct {
	Groups []lottie.ColorGroup `json:"groups"`
}

type replaceResponse struct {
	Document *lottie.Node    `json:"document"`
	Changes  []lottie.Change `json:"changes"`
}

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(e *lottie.Engine, bodyLimit int64) {
	if e == nil {
		return
	}
	engineOnce.Do(func() {
		engine = e
		if bodyLimit > 0 {
			maxBodyBytes = bodyLimit
		}
	})
}

// POST /api/v1/colors/extract
func HandleExtract(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	e := loadEngine()

	var req extractRequest
	if err := decodeRequest(w, r, &req); err != nil {
		apiutil.WriteError(w, r, err, "Failed to read request")
		return
	}
	if err := requireDocument(req.Document); err != nil {
		apiutil.WriteError(w, r, err, "Failed to read request")
		return
	}

	sites, err := e.ExtractAll(req.Document)
	if err != nil {
		apiutil.WriteError(w, r, err, "Failed to extract colors")
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, colorsResponse{Colors: sites, Count: len(sites)}); err != nil {
		logger.Error().Err(err).Msg("Failed to write extract response")
	}
}

// POST /api/v1/colors/groups
func HandleGroups(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	e := loadEngine()

	var req groupsRequest
	if err := decodeRequest(w, r, &req); err != nil {
		apiutil.WriteError(w, r, err, "Failed to read request")
		return
	}
	if err := requireDocument(req.Document); err != nil {
		apiutil.WriteError(w, r, err, "Failed to read request")
		return
	}
	if req.Tolerance != nil && (*req.Tolerance <= 0 || *req.Tolerance > 2) {
		apiutil.WriteError(w, r, apiutil.FieldError{Field: "tolerance", Reason: "must be in (0, 2]"}, "Failed to read request")
		return
	}

	sites, err := e.ExtractAll(req.Document)
	if err != nil {
		apiutil.WriteError(w, r, err, "Failed to extract colors")
		return
	}

	groups := GroupWith(e, sites, req.Tolerance)
	if err := apiutil.WriteJSON(w, http.StatusOK, groupsResponse{Groups: groups}); err != nil {
		logger.Error().Err(err).Msg("Failed to write groups response")
	}
}

// POST /api/v1/colors/replace
func HandleReplace(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	e := loadEngine()

	var req replaceRequest
	if err := decodeRequest(w, r, &req); err != nil {
		apiutil.WriteError(w, r, err, "Failed to read request")
		return
	}
	if err := requireDocument(req.Document); err != nil {
		apiutil.WriteError(w, r, err, "Failed to read request")
		return
	}
	if err := RequireColor("oldColor", req.OldColor); err != nil {
		apiutil.WriteError(w, r, err, "Failed to read request")
		return
	}
	if err := RequireColor("newColor", req.NewColor); err != nil {
		apiutil.WriteError(w, r, err, "Failed to read request")
		return
	}

	result, err := e.ReplaceColor(req.Document, req.OldColor, req.NewColor)
	if err != nil {
		apiutil.WriteError(w, r, err, "Failed to replace color")
		return
	}

	logger.Debug().
		Str("old_color", req.OldColor).
		Str("new_color", req.NewColor).
		Int("changes", len(result.Changes)).
		Msg("Replaced color")

	if err := apiutil.WriteJSON(w, http.StatusOK, replaceResponse{Document: result.Document, Changes: nonNilChanges(result.Changes)}); err != nil {
		logger.Error().Err(err).Msg("Failed to write replace response")
	}
}

// POST /api/v1/colors/replace-all
func HandleReplaceAll(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	e := loadEngine()

	var req replaceAllRequest
	if err := decodeRequest(w, r, &req); err != nil {
		apiutil.WriteError(w, r, err, "Failed to read request")
		return
	}
	if err := requireDocument(req.Document); err != nil {
		apiutil.WriteError(w, r, err, "Failed to read request")
		return
	}
	if err := RequireColor("newColor", req.NewColor); err != nil {
		apiutil.WriteError(w, r, err, "Failed to read request")
		return
	}

	result, err := e.ReplaceAll(req.Document, req.NewColor)
	if err != nil {
		apiutil.WriteError(w, r, err, "Failed to replace colors")
		return
	}

	logger.Debug().
		Str("new_color", req.NewColor).
		Int("changes", len(result.Changes)).
		Msg("Replaced all colors")

	if err := apiutil.WriteJSON(w, http.StatusOK, replaceResponse{Document: result.Document, Changes: nonNilChanges(result.Changes)}); err != nil {
		logger.Error().Err(err).Msg("Failed to write replace-all response")
	}
}

// GroupWith groups sites with the engine's settings, or with an explicit
// tolerance under the engine's metric.
func GroupWith(e *lottie.Engine, sites []lottie.ColorSite, tolerance *float64) []lottie.ColorGroup {
	if tolerance == nil {
		return e.Group(sites)
	}
	cfg := e.Config()
	cfg.GroupTolerance = *tolerance
	return lottie.New(cfg).Group(sites)
}

// RequireColor validates a #RRGGBB request field.
func RequireColor(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return apiutil.FieldError{Field: field, Reason: "is required"}
	}
	if _, err := lottie.NormalizeHex(value); err != nil {
		return apiutil.FieldError{Field: field, Reason: "must be a 6-digit hex color like #AABBCC"}
	}
	return nil
}

func requireDocument(doc *lottie.Node) error {
	if doc == nil || doc.Kind() == lottie.KindNull {
		return apiutil.FieldError{Field: "document", Reason: "is required"}
	}
	return nil
}

func decodeRequest(w http.ResponseWriter, r *http.Request, dst any) error {
	return apiutil.DecodeJSONLimited(w, r, dst, maxBodyBytes)
}

func nonNilChanges(changes []lottie.Change) []lottie.Change {
	if changes == nil {
		return []lottie.Change{}
	}
	return changes
}

func loadEngine() *lottie.Engine {
	if engine == nil {
		return lottie.Default()
	}
	return engine
}
