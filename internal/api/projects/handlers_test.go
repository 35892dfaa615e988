package projects

// NOTE: Tests cannot use t.Parallel() due to shared package state.

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	dbgen "github.com/codr1/lottiecolor/internal/db/generated"
	"github.com/codr1/lottiecolor/internal/history"
	"github.com/codr1/lottiecolor/internal/lottie"
)

const fixtureDoc = `{"v":"5.7.4","layers":[{"ty":4,"shapes":[` +
	`{"ty":"fl","c":{"a":0,"k":[1,0,0,1]}},` +
	`{"ty":"st","c":{"a":0,"k":[1,0,0,1]}},` +
	`{"ty":"fl","c":{"a":1,"k":[{"t":0,"s":[0,0,1,1]},{"t":30,"s":[0,1,0,1]}]}}` +
	`]}]}`

type mockProjectQueries struct {
	mu               sync.Mutex
	nextProjectID    int64
	nextEditID       int64
	projects         map[int64]dbgen.Project
	edits            []dbgen.ColorEdit
	colorEditFailure error
}

func newMockProjectQueries() *mockProjectQueries {
	return &mockProjectQueries{
		nextProjectID: 1,
		nextEditID:    1,
		projects:      make(map[int64]dbgen.Project),
	}
}

func (m *mockProjectQueries) addProject(name, document string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	id := m.nextProjectID
	m.nextProjectID++
	m.projects[id] = dbgen.Project{
		ID:           id,
		Name:         name,
		Document:     document,
		CreatedAt:    now,
		LastModified: now,
	}
	return id
}

func (m *mockProjectQueries) document(t *testing.T, id int64) *lottie.Node {
	t.Helper()
	m.mu.Lock()
	row, ok := m.projects[id]
	m.mu.Unlock()
	if !ok {
		t.Fatalf("project %d not stored", id)
	}
	doc, err := lottie.Parse([]byte(row.Document))
	if err != nil {
		t.Fatalf("parse stored document: %v", err)
	}
	return doc
}

func (m *mockProjectQueries) editCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.edits)
}

// inTx restores the stored state when fn fails.
func (m *mockProjectQueries) inTx(fn func(projectQueries) error) error {
	m.mu.Lock()
	projects := make(map[int64]dbgen.Project, len(m.projects))
	for id, p := range m.projects {
		projects[id] = p
	}
	edits := append([]dbgen.ColorEdit(nil), m.edits...)
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.projects = projects
		m.edits = edits
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *mockProjectQueries) CreateProject(ctx context.Context, arg dbgen.CreateProjectParams) (dbgen.Project, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	project := dbgen.Project{
		ID:           m.nextProjectID,
		Name:         arg.Name,
		SourceUrl:    arg.SourceUrl,
		Document:     arg.Document,
		CreatedAt:    now,
		LastModified: now,
	}
	m.nextProjectID++
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
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := make([]dbgen.ListProjectsRow, 0, len(m.projects))
	for _, p := range m.projects {
		rows = append(rows, dbgen.ListProjectsRow{
			ID:           p.ID,
			Name:         p.Name,
			SourceUrl:    p.SourceUrl,
			CreatedAt:    p.CreatedAt,
			LastModified: p.LastModified,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].ID > rows[j].ID
	})
	return rows, nil
}

func (m *mockProjectQueries) UpdateProject(ctx context.Context, arg dbgen.UpdateProjectParams) (dbgen.Project, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()

	project, ok := m.projects[arg.ID]
	if !ok {
		return dbgen.Project{}, sql.ErrNoRows
	}
	project.Name = arg.Name
	project.Document = arg.Document
	project.LastModified = time.Now().UTC()
	m.projects[arg.ID] = project
	return project, nil
}

func (m *mockProjectQueries) DeleteProject(ctx context.Context, id int64) (int64, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.projects[id]; !ok {
		return 0, nil
	}
	delete(m.projects, id)
	return 1, nil
}

func (m *mockProjectQueries) CreateColorEdit(ctx context.Context, arg dbgen.CreateColorEditParams) (dbgen.ColorEdit, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.colorEditFailure != nil {
		return dbgen.ColorEdit{}, m.colorEditFailure
	}
	edit := dbgen.ColorEdit{
		ID:           m.nextEditID,
		ProjectID:    arg.ProjectID,
		OldColor:     arg.OldColor,
		NewColor:     arg.NewColor,
		SitesChanged: arg.SitesChanged,
		CreatedAt:    time.Now().UTC(),
	}
	m.nextEditID++
	m.edits = append(m.edits, edit)
	return edit, nil
}

func (m *mockProjectQueries) ListColorEdits(ctx context.Context, arg dbgen.ListColorEditsParams) ([]dbgen.ColorEdit, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()

	var rows []dbgen.ColorEdit
	for i := len(m.edits) - 1; i >= 0; i-- {
		if m.edits[i].ProjectID != arg.ProjectID {
			continue
		}
		rows = append(rows, m.edits[i])
		if int64(len(rows)) == arg.Limit {
			break
		}
	}
	return rows, nil
}

func (m *mockProjectQueries) DeleteColorEditsForProject(ctx context.Context, projectID int64) (int64, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.edits[:0]
	var removed int64
	for _, edit := range m.edits {
		if edit.ProjectID == projectID {
			removed++
			continue
		}
		kept = append(kept, edit)
	}
	m.edits = kept
	return removed, nil
}

func setupProjectHandlers(t *testing.T) *mockProjectQueries {
	t.Helper()

	mock := newMockProjectQueries()
	queries = mock
	runInTx = func(ctx context.Context, fn func(projectQueries) error) error {
		return mock.inTx(fn)
	}
	engine = lottie.New(lottie.DefaultConfig())
	versions = history.NewStore(history.DefaultCapacity)
	shareEnabled = false
	maxBodyBytes = defaultMaxBodyBytes

	t.Cleanup(func() {
		queries = nil
		runInTx = nil
		engine = nil
		versions = history.NewStore(history.DefaultCapacity)
		shareEnabled = false
		maxBodyBytes = defaultMaxBodyBytes
		queriesOnce = sync.Once{}
	})

	return mock
}

func newProjectRequest(method, target string, id int64, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if id != 0 {
		req.SetPathValue("id", strconv.FormatInt(id, 10))
	}
	return req
}

func decodeProjectResponse(t *testing.T, recorder *httptest.ResponseRecorder) projectResponse {
	t.Helper()
	var resp projectResponse
	if err := json.NewDecoder(recorder.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestHandleCreateProject(t *testing.T) {
	mock := setupProjectHandlers(t)

	body := `{"name":"  Loading   Spinner ","sourceUrl":"https://lottiefiles.com/animations/spinner","document":` + fixtureDoc + `}`
	recorder := httptest.NewRecorder()
	HandleCreateProject(recorder, newProjectRequest(http.MethodPost, "/api/v1/projects", 0, body))

	if recorder.Code != http.StatusCreated {
		t.Fatalf("status: %d body: %s", recorder.Code, recorder.Body.String())
	}
	resp := decodeProjectResponse(t, recorder)
	if resp.Project.Name != "Loading Spinner" {
		t.Fatalf("expected normalized name, got %q", resp.Project.Name)
	}
	if resp.Project.SourceURL != "https://lottiefiles.com/animations/spinner" {
		t.Fatalf("unexpected source url %q", resp.Project.SourceURL)
	}
	if resp.History.Versions != 1 || resp.History.CanUndo {
		t.Fatalf("expected a single seeded version, got %+v", resp.History)
	}
	if !mock.document(t, resp.Project.ID).Equal(resp.Project.Document) {
		t.Fatalf("stored document does not match response")
	}
}

func TestHandleCreateProject_Validation(t *testing.T) {
	setupProjectHandlers(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing document", `{"name":"Spinner"}`},
		{"blank name", `{"name":"   ","document":{}}`},
		{"scalar document", `{"name":"Spinner","document":"nope"}`},
		{"long name", `{"name":"` + strings.Repeat("a", 101) + `","document":{}}`},
		{"malformed", `{"name":`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			HandleCreateProject(recorder, newProjectRequest(http.MethodPost, "/api/v1/projects", 0, tc.body))
			if recorder.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d (%s)", recorder.Code, recorder.Body.String())
			}
		})
	}
}

func TestHandleGetProject(t *testing.T) {
	mock := setupProjectHandlers(t)
	id := mock.addProject("Spinner", fixtureDoc)

	recorder := httptest.NewRecorder()
	HandleGetProject(recorder, newProjectRequest(http.MethodGet, "/api/v1/projects/1", id, ""))
	if recorder.Code != http.StatusOK {
		t.Fatalf("status: %d", recorder.Code)
	}
	resp := decodeProjectResponse(t, recorder)
	if resp.Project.ID != id || resp.Project.Document == nil {
		t.Fatalf("unexpected project %+v", resp.Project)
	}

	recorder = httptest.NewRecorder()
	HandleGetProject(recorder, newProjectRequest(http.MethodGet, "/api/v1/projects/99", 99, ""))
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", recorder.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/projects/abc", nil)
	req.SetPathValue("id", "abc")
	recorder = httptest.NewRecorder()
	HandleGetProject(recorder, req)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
}

func TestHandleGetProject_NotInitialized(t *testing.T) {
	recorder := httptest.NewRecorder()
	HandleGetProject(recorder, newProjectRequest(http.MethodGet, "/api/v1/projects/1", 1, ""))
	if recorder.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", recorder.Code)
	}
}

func TestHandleListProjects(t *testing.T) {
	mock := setupProjectHandlers(t)
	mock.addProject("First", fixtureDoc)
	mock.addProject("Second", fixtureDoc)

	recorder := httptest.NewRecorder()
	HandleListProjects(recorder, newProjectRequest(http.MethodGet, "/api/v1/projects", 0, ""))
	if recorder.Code != http.StatusOK {
		t.Fatalf("status: %d", recorder.Code)
	}
	if strings.Contains(recorder.Body.String(), `"document"`) {
		t.Fatalf("project summaries must not carry documents: %s", recorder.Body.String())
	}

	var resp projectListResponse
	if err := json.NewDecoder(recorder.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Projects) != 2 || resp.Projects[0].Name != "Second" {
		t.Fatalf("unexpected projects %+v", resp.Projects)
	}
}

func TestHandleUpdateProject(t *testing.T) {
	mock := setupProjectHandlers(t)
	id := mock.addProject("Spinner", fixtureDoc)

	recorder := httptest.NewRecorder()
	HandleUpdateProject(recorder, newProjectRequest(http.MethodPut, "/api/v1/projects/1", id, `{"name":"Renamed"}`))
	if recorder.Code != http.StatusOK {
		t.Fatalf("status: %d body: %s", recorder.Code, recorder.Body.String())
	}
	resp := decodeProjectResponse(t, recorder)
	if resp.Project.Name != "Renamed" || resp.History.Versions != 1 {
		t.Fatalf("rename should not add a version: %+v", resp)
	}

	recorder = httptest.NewRecorder()
	HandleUpdateProject(recorder, newProjectRequest(http.MethodPut, "/api/v1/projects/1", id, `{"document":{"layers":[]}}`))
	if recorder.Code != http.StatusOK {
		t.Fatalf("status: %d body: %s", recorder.Code, recorder.Body.String())
	}
	resp = decodeProjectResponse(t, recorder)
	if resp.Project.Name != "Renamed" {
		t.Fatalf("expected name to be kept, got %q", resp.Project.Name)
	}
	if resp.History.Versions != 2 || !resp.History.CanUndo {
		t.Fatalf("expected document change to add a version, got %+v", resp.History)
	}

	recorder = httptest.NewRecorder()
	HandleUpdateProject(recorder, newProjectRequest(http.MethodPut, "/api/v1/projects/1", id, `{"document":7}`))
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for scalar document, got %d", recorder.Code)
	}
}

func TestHandleDeleteProject(t *testing.T) {
	mock := setupProjectHandlers(t)
	id := mock.addProject("Spinner", fixtureDoc)
	other := mock.addProject("Other", fixtureDoc)

	recorder := httptest.NewRecorder()
	HandleReplaceColor(recorder, newProjectRequest(http.MethodPost, "/", id, `{"oldColor":"#FF0000","newColor":"#00FF00"}`))
	recorder = httptest.NewRecorder()
	HandleReplaceColor(recorder, newProjectRequest(http.MethodPost, "/", other, `{"oldColor":"#FF0000","newColor":"#00FF00"}`))
	if mock.editCount() != 2 {
		t.Fatalf("expected 2 edits before delete, got %d", mock.editCount())
	}

	req := newProjectRequest(http.MethodDelete, "/api/v1/projects/1", id, "")
	req.Header.Set("HX-Request", "true")
	recorder = httptest.NewRecorder()
	HandleDeleteProject(recorder, req)
	if recorder.Code != http.StatusNoContent {
		t.Fatalf("status: %d body: %s", recorder.Code, recorder.Body.String())
	}
	if recorder.Header().Get("HX-Redirect") != "/" {
		t.Fatalf("expected HX-Redirect to the project list")
	}
	if mock.editCount() != 1 {
		t.Fatalf("expected only the other project's edit to remain, got %d", mock.editCount())
	}
	if state := versions.State(id); state.Versions != 0 {
		t.Fatalf("expected timeline to be forgotten, got %+v", state)
	}

	recorder = httptest.NewRecorder()
	HandleDeleteProject(recorder, newProjectRequest(http.MethodDelete, "/api/v1/projects/1", id, ""))
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", recorder.Code)
	}
}

func TestHandleProjectHistory(t *testing.T) {
	mock := setupProjectHandlers(t)
	id := mock.addProject("Spinner", fixtureDoc)

	for _, body := range []string{
		`{"oldColor":"#FF0000","newColor":"#00FF00"}`,
		`{"oldColor":"#0000FF","newColor":"#FFFFFF"}`,
	} {
		recorder := httptest.NewRecorder()
		HandleReplaceColor(recorder, newProjectRequest(http.MethodPost, "/", id, body))
		if recorder.Code != http.StatusOK {
			t.Fatalf("replace status: %d body: %s", recorder.Code, recorder.Body.String())
		}
	}

	recorder := httptest.NewRecorder()
	HandleProjectHistory(recorder, newProjectRequest(http.MethodGet, "/api/v1/projects/1/history?limit=1", id, ""))
	if recorder.Code != http.StatusOK {
		t.Fatalf("status: %d", recorder.Code)
	}
	var resp historyResponse
	if err := json.NewDecoder(recorder.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Edits) != 1 || resp.Edits[0].OldColor != "#0000FF" {
		t.Fatalf("expected newest edit only, got %+v", resp.Edits)
	}
	if resp.History.Versions != 3 {
		t.Fatalf("expected 3 versions, got %+v", resp.History)
	}

	for _, limit := range []string{"0", "abc", "-5"} {
		recorder = httptest.NewRecorder()
		HandleProjectHistory(recorder, newProjectRequest(http.MethodGet, "/api/v1/projects/1/history?limit="+limit, id, ""))
		if recorder.Code != http.StatusBadRequest {
			t.Fatalf("limit %q: expected 400, got %d", limit, recorder.Code)
		}
	}

	recorder = httptest.NewRecorder()
	HandleProjectHistory(recorder, newProjectRequest(http.MethodGet, "/api/v1/projects/9/history", 9, ""))
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", recorder.Code)
	}
}

func TestHandleProjectColorsAndGroups(t *testing.T) {
	mock := setupProjectHandlers(t)
	id := mock.addProject("Spinner", fixtureDoc)

	recorder := httptest.NewRecorder()
	HandleProjectColors(recorder, newProjectRequest(http.MethodGet, "/", id, ""))
	if recorder.Code != http.StatusOK {
		t.Fatalf("status: %d", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), `"count":4`) {
		t.Fatalf("expected 4 sites, got %s", recorder.Body.String())
	}

	recorder = httptest.NewRecorder()
	HandleProjectGroups(recorder, newProjectRequest(http.MethodGet, "/?tolerance=2", id, ""))
	if recorder.Code != http.StatusOK {
		t.Fatalf("status: %d", recorder.Code)
	}
	var resp struct {
		Groups []lottie.ColorGroup `json:"groups"`
	}
	if err := json.NewDecoder(recorder.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Groups) != 1 || resp.Groups[0].Count != 4 {
		t.Fatalf("expected one group of 4, got %+v", resp.Groups)
	}

	req := newProjectRequest(http.MethodGet, "/", id, "")
	req.Header.Set("HX-Request", "true")
	recorder = httptest.NewRecorder()
	HandleProjectGroups(recorder, req)
	if !strings.Contains(recorder.Body.String(), "/api/v1/projects/1/colors/replace-group") {
		t.Fatalf("expected palette fragment, got %s", recorder.Body.String())
	}

	recorder = httptest.NewRecorder()
	HandleProjectGroups(recorder, newProjectRequest(http.MethodGet, "/?tolerance=5", id, ""))
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for out-of-range tolerance, got %d", recorder.Code)
	}
}

func TestPages(t *testing.T) {
	mock := setupProjectHandlers(t)
	id := mock.addProject("Spinner <One>", fixtureDoc)
	shareEnabled = true

	recorder := httptest.NewRecorder()
	HandleProjectsPage(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("status: %d", recorder.Code)
	}
	body := recorder.Body.String()
	if !strings.Contains(body, "<!DOCTYPE html>") || !strings.Contains(body, "Spinner &lt;One&gt;") {
		t.Fatalf("unexpected projects page: %s", body)
	}

	recorder = httptest.NewRecorder()
	HandleEditorPage(recorder, newProjectRequest(http.MethodGet, "/projects/1", id, ""))
	if recorder.Code != http.StatusOK {
		t.Fatalf("status: %d", recorder.Code)
	}
	body = recorder.Body.String()
	for _, want := range []string{"/api/v1/projects/1/embed", "/api/v1/projects/1/share", `hx-get="/projects/1/palette"`, "#FF0000"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected editor page to contain %q", want)
		}
	}
	if state := versions.State(id); state.Versions != 1 {
		t.Fatalf("expected editor page to seed the timeline, got %+v", state)
	}

	recorder = httptest.NewRecorder()
	HandlePalette(recorder, newProjectRequest(http.MethodGet, "/projects/1/palette", id, ""))
	if recorder.Code != http.StatusOK || strings.Contains(recorder.Body.String(), "<html") {
		t.Fatalf("expected bare palette fragment, got %d %s", recorder.Code, recorder.Body.String())
	}

	recorder = httptest.NewRecorder()
	HandleEditorPage(recorder, newProjectRequest(http.MethodGet, "/projects/5", 5, ""))
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", recorder.Code)
	}
}
