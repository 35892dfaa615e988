// cmd/server/server.go
package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/lottiecolor/internal/api"
	"github.com/codr1/lottiecolor/internal/api/auth"
	"github.com/codr1/lottiecolor/internal/api/colors"
	"github.com/codr1/lottiecolor/internal/api/exports"
	"github.com/codr1/lottiecolor/internal/api/imports"
	"github.com/codr1/lottiecolor/internal/api/projects"
)

func newServer(d *deps) *http.Server {
	router := http.NewServeMux()

	initHandlers(d)

	// Setup middleware chain
	handler := api.ChainMiddleware(
		router,
		api.WithBasicAuth(auth.BasicAuth{
			User:         d.cfg.Auth.AdminUser,
			PasswordHash: d.cfg.Auth.AdminPasswordHash,
		}),
		api.WithLogging,
		api.WithRecovery,
		api.WithRequestID,
		api.WithContentType,
	)

	// Register routes
	registerRoutes(router, d.cfg.App.StaticDir)

	return &http.Server{
		Addr:         ":" + strconv.Itoa(d.cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func initHandlers(d *deps) {
	bodyLimit := d.cfg.Import.MaxBytes

	colors.InitHandlers(d.engine, bodyLimit)
	projects.InitHandlers(d.database, projects.Options{
		Engine:       d.engine,
		Versions:     d.versions,
		ShareEnabled: d.sender != nil,
		MaxBodyBytes: bodyLimit,
	})
	imports.InitHandlers(d.database.Queries, imports.Options{
		Importer:    d.importer,
		Limiter:     d.limiter,
		Versions:    d.versions,
		TrustProxy:  d.cfg.Import.TrustProxy,
		UploadLimit: bodyLimit,
	})
	exports.InitHandlers(d.database.Queries, exports.Options{
		BaseURL:      d.cfg.App.BaseURL,
		Sender:       d.sender,
		Limiter:      d.limiter,
		TrustProxy:   d.cfg.Import.TrustProxy,
		ShareEnabled: d.sender != nil,
		MaxBodyBytes: bodyLimit,
	})
}

func registerRoutes(mux *http.ServeMux, staticDir string) {
	// Pages
	mux.HandleFunc("GET /{$}", projects.HandleProjectsPage)
	mux.HandleFunc("GET /projects/{id}", projects.HandleEditorPage)
	mux.HandleFunc("GET /projects/{id}/palette", projects.HandlePalette)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Stateless color routes
	mux.HandleFunc("POST /api/v1/colors/extract", colors.HandleExtract)
	mux.HandleFunc("POST /api/v1/colors/groups", colors.HandleGroups)
	mux.HandleFunc("POST /api/v1/colors/replace", colors.HandleReplace)
	mux.HandleFunc("POST /api/v1/colors/replace-all", colors.HandleReplaceAll)

	// Project routes
	mux.HandleFunc("GET /api/v1/projects", projects.HandleListProjects)
	mux.HandleFunc("POST /api/v1/projects", projects.HandleCreateProject)
	mux.HandleFunc("GET /api/v1/projects/{id}", projects.HandleGetProject)
	mux.HandleFunc("PUT /api/v1/projects/{id}", projects.HandleUpdateProject)
	mux.HandleFunc("DELETE /api/v1/projects/{id}", projects.HandleDeleteProject)
	mux.HandleFunc("GET /api/v1/projects/{id}/history", projects.HandleProjectHistory)
	mux.HandleFunc("GET /api/v1/projects/{id}/colors", projects.HandleProjectColors)
	mux.HandleFunc("GET /api/v1/projects/{id}/groups", projects.HandleProjectGroups)
	mux.HandleFunc("POST /api/v1/projects/{id}/colors/replace", projects.HandleReplaceColor)
	mux.HandleFunc("POST /api/v1/projects/{id}/colors/replace-all", projects.HandleReplaceAllColors)
	mux.HandleFunc("POST /api/v1/projects/{id}/colors/replace-group", projects.HandleReplaceGroup)
	mux.HandleFunc("POST /api/v1/projects/{id}/undo", projects.HandleUndo)
	mux.HandleFunc("POST /api/v1/projects/{id}/redo", projects.HandleRedo)

	// Import routes
	mux.HandleFunc("POST /api/v1/import", imports.HandleImportURL)
	mux.HandleFunc("POST /api/v1/import/upload", imports.HandleImportUpload)

	// Export routes
	mux.HandleFunc("GET /api/v1/projects/{id}/export", exports.HandleExportProject)
	mux.HandleFunc("POST /api/v1/export/package", exports.HandleExportPackage)
	mux.HandleFunc("GET /api/v1/projects/{id}/embed", exports.HandleEmbedCode)
	mux.HandleFunc("POST /api/v1/projects/{id}/share", exports.HandleShareProject)

	// Static file handling with logging
	if staticDir == "" {
		// Default to the build directory if not specified
		staticDir = "build/bin/static"
	}
	fs := http.FileServer(http.Dir(staticDir))

	mux.Handle("GET /static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Debug().
			Str("path", r.URL.Path).
			Str("static_dir", staticDir).
			Msg("Static file request")
		http.StripPrefix("/static/", fs).ServeHTTP(w, r)
	}))
}
