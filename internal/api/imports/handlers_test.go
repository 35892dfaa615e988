package imports

// NOTE: Tests cannot use t.Parallel() due to shared package state.

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	dbgen "github.com/codr1/lottiecolor/internal/db/generated"
	"github.com/codr1/lottiecolor/internal/history"
	"github.com/codr1/lottiecolor/internal/importer"
	"github.com/codr1/lottiecolor/internal/ratelimit"
)

const spinnerDoc = `{"v":"5.7.4","nm":"Spinner","layers":[{"ty":4,"shapes":[{"ty":"fl","c":{"a":0,"k":[1,0,0,1]}}]}]}`

type mockProjectQueries struct {
	mu       sync.Mutex
	nextID   int64
	projects map[int64]dbgen.Project
}

func newMockProjectQueries() *mockProjectQueries {
	return &mockProjectQueries{nextID: 1, projects: make(map[int64]dbgen.Project)}
}

func (m *mockProjectQueries) CreateProject(ctx context.Context, arg dbgen.CreateProjectParams) (dbgen.Project, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	project := dbgen.Project{
		ID:           m.nextID,
		Name:         arg.Name,
		SourceUrl:    arg.SourceUrl,
		Document:     arg.Document,
		CreatedAt:    now,
		LastModified: now,
	}
	m.nextID++
	m.projects[project.ID] = project
	return project, nil
}

func (m *mockProjectQueries) GetProject(ctx context.Context, id int64) (dbgen.Project, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()

	project, ok := m.projects[id]
	if !ok {
		return dbgen.Project{}, sql.ErrNoRows
	}
	return project, nil
}

func (m *mockProjectQueries) ListProjects(ctx context.Context) ([]dbgen.ListProjectsRow, error) {
	_ = ctx
	return nil, nil
}

func (m *mockProjectQueries) UpdateProject(ctx context.Context, arg dbgen.UpdateProjectParams) (dbgen.Project, error) {
	_ = ctx
	return dbgen.Project{}, sql.ErrNoRows
}

func (m *mockProjectQueries) DeleteProject(ctx context.Context, id int64) (int64, error) {
	_ = ctx
	return 0, nil
}

func (m *mockProjectQueries) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.projects)
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newAnimationServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/files/spinner.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(spinnerDoc))
	})
	mux.HandleFunc("/animations/empty", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Nothing</title></head><body></body></html>`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func setupImportHandlers(t *testing.T, srv *httptest.Server, lim *ratelimit.Limiter) *mockProjectQueries {
	t.Helper()

	mock := newMockProjectQueries()
	queries = mock
	fetcher = importer.New(importer.Config{AllowAnyHost: true, Client: srv.Client(), Timeout: 5 * time.Second})
	limiter = lim
	versions = history.NewStore(history.DefaultCapacity)
	trustProxy = false
	uploadLimit = defaultUploadLimit

	t.Cleanup(func() {
		queries = nil
		fetcher = nil
		limiter = nil
		versions = nil
		trustProxy = false
		uploadLimit = defaultUploadLimit
		queriesOnce = sync.Once{}
	})

	return mock
}

func newLimiter(t *testing.T) (*ratelimit.Limiter, *fixedClock) {
	t.Helper()
	clock := &fixedClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	lim := ratelimit.New(&ratelimit.Config{
		ImportCooldown:   10 * time.Second,
		ImportMaxPerHour: 5,
		Clock:            clock,
	})
	t.Cleanup(lim.Close)
	return lim, clock
}

func TestHandleImportURL(t *testing.T) {
	srv := newAnimationServer(t)
	mock := setupImportHandlers(t, srv, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/import", strings.NewReader(`{"url":"`+srv.URL+`/files/spinner.json"}`))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	HandleImportURL(recorder, req)

	if recorder.Code != http.StatusCreated {
		t.Fatalf("status: %d body: %s", recorder.Code, recorder.Body.String())
	}
	var resp importResponse
	if err := json.NewDecoder(recorder.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Project.ID != 1 || resp.Project.Name != "spinner" {
		t.Fatalf("unexpected project %+v", resp.Project)
	}
	if resp.Project.SourceURL != srv.URL+"/files/spinner.json" || resp.JSONURL != resp.Project.SourceURL {
		t.Fatalf("unexpected source urls %q %q", resp.Project.SourceURL, resp.JSONURL)
	}
	if mock.count() != 1 {
		t.Fatalf("expected project to be stored")
	}
	if state := versions.State(resp.Project.ID); state.Versions != 1 {
		t.Fatalf("expected imported project to seed its timeline, got %+v", state)
	}
}

func TestHandleImportURL_HTMXForm(t *testing.T) {
	srv := newAnimationServer(t)
	setupImportHandlers(t, srv, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/import", strings.NewReader("url="+srv.URL+"/files/spinner.json"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	recorder := httptest.NewRecorder()
	HandleImportURL(recorder, req)

	if recorder.Code != http.StatusCreated {
		t.Fatalf("status: %d body: %s", recorder.Code, recorder.Body.String())
	}
	if got := recorder.Header().Get("HX-Redirect"); got != "/projects/1" {
		t.Fatalf("expected redirect to the editor, got %q", got)
	}
}

func TestHandleImportURL_Errors(t *testing.T) {
	srv := newAnimationServer(t)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"missing url", `{}`, http.StatusBadRequest},
		{"bad scheme", `{"url":"ftp://example.com/a.json"}`, http.StatusBadRequest},
		{"no player on page", `{"url":"` + srv.URL + `/animations/empty"}`, http.StatusUnprocessableEntity},
		{"missing file", `{"url":"` + srv.URL + `/files/missing.json"}`, http.StatusBadGateway},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mock := setupImportHandlers(t, srv, nil)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/import", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			recorder := httptest.NewRecorder()
			HandleImportURL(recorder, req)
			if recorder.Code != tc.status {
				t.Fatalf("expected %d, got %d (%s)", tc.status, recorder.Code, recorder.Body.String())
			}
			if mock.count() != 0 {
				t.Fatalf("failed import must not store a project")
			}
		})
	}
}

func TestHandleImportURL_RateLimited(t *testing.T) {
	srv := newAnimationServer(t)
	lim, clock := newLimiter(t)
	setupImportHandlers(t, srv, lim)

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/import", strings.NewReader(`{"url":"`+srv.URL+`/files/spinner.json"}`))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "203.0.113.9:5555"
		recorder := httptest.NewRecorder()
		HandleImportURL(recorder, req)
		return recorder
	}

	if recorder := send(); recorder.Code != http.StatusCreated {
		t.Fatalf("first import: %d", recorder.Code)
	}

	recorder := send()
	if recorder.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 during cooldown, got %d", recorder.Code)
	}
	if recorder.Header().Get("Retry-After") != "10" {
		t.Fatalf("expected Retry-After 10, got %q", recorder.Header().Get("Retry-After"))
	}

	clock.Advance(11 * time.Second)
	if recorder := send(); recorder.Code != http.StatusCreated {
		t.Fatalf("import after cooldown: %d", recorder.Code)
	}
}

func newUploadRequest(t *testing.T, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(uploadFieldName, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/import/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestHandleImportUpload(t *testing.T) {
	srv := newAnimationServer(t)
	mock := setupImportHandlers(t, srv, nil)

	recorder := httptest.NewRecorder()
	HandleImportUpload(recorder, newUploadRequest(t, "my_loader-animation.json", []byte(spinnerDoc)))
	if recorder.Code != http.StatusCreated {
		t.Fatalf("status: %d body: %s", recorder.Code, recorder.Body.String())
	}
	var resp importResponse
	if err := json.NewDecoder(recorder.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Project.Name != "my_loader" {
		t.Fatalf("expected cleaned file name, got %q", resp.Project.Name)
	}
	if resp.Project.SourceURL != "" {
		t.Fatalf("uploads have no source url, got %q", resp.Project.SourceURL)
	}
	if mock.count() != 1 {
		t.Fatalf("expected project to be stored")
	}
}

func TestHandleImportUpload_Errors(t *testing.T) {
	srv := newAnimationServer(t)

	t.Run("not an animation", func(t *testing.T) {
		setupImportHandlers(t, srv, nil)
		recorder := httptest.NewRecorder()
		HandleImportUpload(recorder, newUploadRequest(t, "notes.txt", []byte("hello")))
		if recorder.Code != http.StatusUnsupportedMediaType {
			t.Fatalf("expected 415, got %d", recorder.Code)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		setupImportHandlers(t, srv, nil)
		var body bytes.Buffer
		writer := multipart.NewWriter(&body)
		_ = writer.WriteField("other", "value")
		_ = writer.Close()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/import/upload", &body)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		recorder := httptest.NewRecorder()
		HandleImportUpload(recorder, req)
		if recorder.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", recorder.Code)
		}
	})

	t.Run("too large", func(t *testing.T) {
		setupImportHandlers(t, srv, nil)
		uploadLimit = 32
		recorder := httptest.NewRecorder()
		HandleImportUpload(recorder, newUploadRequest(t, "big.json", []byte(spinnerDoc)))
		if recorder.Code != http.StatusRequestEntityTooLarge {
			t.Fatalf("expected 413, got %d", recorder.Code)
		}
	})
}

func TestHandleImportURL_NotInitialized(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/import", strings.NewReader(`{"url":"https://lottiefiles.com/a"}`))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	HandleImportURL(recorder, req)
	if recorder.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", recorder.Code)
	}
}

func TestProjectName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Loading   Dots ", "Loading Dots"},
		{"", "animation"},
		{strings.Repeat("a", 120), strings.Repeat("a", 100)},
		{strings.Repeat("a", 99) + "é", strings.Repeat("a", 99)},
	}
	for _, tc := range tests {
		if got := ProjectName(tc.in); got != tc.want {
			t.Fatalf("ProjectName(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}
