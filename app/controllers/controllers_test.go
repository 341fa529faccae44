package controllers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"taskboard/app/components"
	"taskboard/app/forms"
	"taskboard/app/models"
	"taskboard/app/services"
	"taskboard/app/store"
	"taskboard/app/store/memory"
)

// recordingBackend records the values of every update it forwards.
type recordingBackend struct {
	store.Backend

	mu      sync.Mutex
	updates []models.Row
}

func (b *recordingBackend) Update(ctx context.Context, table models.Table, values models.Row, filter store.Filter) error {
	b.mu.Lock()
	b.updates = append(b.updates, values.Clone())
	b.mu.Unlock()
	return b.Backend.Update(ctx, table, values, filter)
}

type fixture struct {
	backend *recordingBackend
	hooks   *services.Hooks
	board   *BoardController
	api     *APIController
	router  *mux.Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	backend := &recordingBackend{Backend: memory.New()}
	hooks := services.NewHooks(backend, logger)

	n := 0
	deps := Deps{
		Hooks: hooks,
		Clock: forms.Clock{
			NewID: func() string { n++; return fmt.Sprintf("new-%d", n) },
			Now:   func() time.Time { return time.Date(2024, 3, 1, 12, 0, n, 0, time.UTC) },
		},
		Policy: components.KeepOnError,
		Logger: logger,
	}
	f := &fixture{
		backend: backend,
		hooks:   hooks,
		board:   NewBoardController(deps),
		api:     NewAPIController(deps),
		router:  mux.NewRouter(),
	}
	f.router.HandleFunc("/projects/{projectID}/sections", f.board.CreateSection).Methods(http.MethodPost)
	f.router.HandleFunc("/sections/{sectionID}/edit", f.board.EditSection).Methods(http.MethodPost)
	f.router.HandleFunc("/sections/{sectionID}/tasks", f.board.CreateTasks).Methods(http.MethodPost)
	f.router.HandleFunc("/sections/{sectionID}/reorder", f.board.ReorderTasks).Methods(http.MethodPost)
	f.router.HandleFunc("/tasks/{taskID}/edit", f.board.UpdateTaskText).Methods(http.MethodPost)
	f.router.HandleFunc("/tasks/{taskID}/delete", f.board.DeleteTask).Methods(http.MethodPost)
	f.router.HandleFunc("/api/sections/{sectionID}/tasks", f.api.CreateTasks).Methods(http.MethodPost)
	f.router.HandleFunc("/api/sections/{sectionID}/order", f.api.ReorderTasks).Methods(http.MethodPut)
	f.router.HandleFunc("/api/tables/{table}", f.api.DeleteRows).Methods(http.MethodDelete)
	f.router.HandleFunc("/api/tables/{table}/{id}", f.api.EditColumn).Methods(http.MethodPatch)

	ctx := context.Background()
	mustNoErr(t, ignore(hooks.CreateProject(ctx, models.Project{ID: "p1", Title: "Site"})))
	mustNoErr(t, ignore(hooks.CreateSection(ctx, models.Section{ID: "s1", ProjectRef: "p1", Title: "Build", Description: "d"}, nil)))
	mustNoErr(t, ignore(hooks.CreateSection(ctx, models.Section{ID: "s2", ProjectRef: "p1", Title: "Ship"}, nil)))
	mustNoErr(t, ignore(hooks.CreateTaskSet(ctx, []models.Task{
		{ID: "t1", SectionRef: "s1", Text: "one", Position: 0},
		{ID: "t2", SectionRef: "s1", Text: "two", Position: 1},
		{ID: "t3", SectionRef: "s2", Text: "three", Position: 0},
	})))
	return f
}

func ignore[T any](_ T, err error) error { return err }

func mustNoErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) post(target string, form url.Values, fragment bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if fragment {
		req.Header.Set("HX-Request", "true")
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestCreateSectionRedirectsAfterCreate(t *testing.T) {
	f := newFixture(t)
	rec := f.post("/projects/p1/sections", url.Values{"title": {"Test"}, "deadline": {"2024-05-01"}}, false)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/projects/p1" {
		t.Fatalf("status = %d location = %q", rec.Code, rec.Header().Get("Location"))
	}
	sections, _ := f.hooks.FetchSections(context.Background(), "p1")
	if len(sections) != 3 {
		t.Fatalf("sections = %+v", sections)
	}
	got := sections[2]
	if got.ID != "new-1" || got.ProjectRef != "p1" || got.Deadline != "2024-05-01" || got.CreatedAt.IsZero() {
		t.Errorf("created section = %+v", got)
	}
}

func TestEditSectionDeadlineTouchesOnlyDeadline(t *testing.T) {
	f := newFixture(t)
	rec := f.post("/sections/s1/edit", url.Values{"column": {"Deadline"}, "value": {"2024-12-31"}}, false)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if len(f.backend.updates) != 1 {
		t.Fatalf("updates = %+v", f.backend.updates)
	}
	update := f.backend.updates[0]
	if len(update) != 1 || update[models.ColDeadline] != "2024-12-31" {
		t.Errorf("update = %+v", update)
	}
	s, _ := f.hooks.FetchSection(context.Background(), "s1")
	if s.Title != "Build" || s.Description != "d" || s.Deadline != "2024-12-31" {
		t.Errorf("section = %+v", s)
	}
}

func TestEditSectionRejectsBadDeadline(t *testing.T) {
	f := newFixture(t)
	rec := f.post("/sections/s1/edit", url.Values{"column": {"Deadline"}, "value": {"soon"}}, false)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), forms.MsgDeadlineInvalid) {
		t.Error("message missing")
	}
	if len(f.backend.updates) != 0 {
		t.Errorf("unexpected update %+v", f.backend.updates)
	}
}

func TestCreateTasksAppendsPositions(t *testing.T) {
	f := newFixture(t)
	rec := f.post("/sections/s1/tasks", url.Values{"tasks": {"three\n\n four "}}, false)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	tasks, _ := f.hooks.FetchTasks(context.Background(), "s1")
	if len(tasks) != 4 {
		t.Fatalf("tasks = %+v", tasks)
	}
	if tasks[2].Text != "three" || tasks[2].Position != 2 || tasks[3].Text != "four" || tasks[3].Position != 3 {
		t.Errorf("tasks = %+v", tasks)
	}
}

func TestCreateTasksRequiresOne(t *testing.T) {
	f := newFixture(t)
	rec := f.post("/sections/s1/tasks", url.Values{"tasks": {"   "}}, false)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), forms.MsgTasksRequired) {
		t.Errorf("status = %d body = %s", rec.Code, rec.Body)
	}
}

func TestReorderTasks(t *testing.T) {
	f := newFixture(t)
	rec := f.post("/sections/s1/reorder", url.Values{"order": {"t2", "t1"}}, true)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	tasks, _ := f.hooks.FetchTasks(context.Background(), "s1")
	if tasks[0].ID != "t2" || tasks[1].ID != "t1" {
		t.Errorf("order = %s, %s", tasks[0].ID, tasks[1].ID)
	}
}

func TestUpdateTaskText(t *testing.T) {
	f := newFixture(t)
	rec := f.post("/tasks/t1/edit", url.Values{"text": {" renamed "}}, true)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "renamed") {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
	}

	rec = f.post("/tasks/t1/edit", url.Values{"text": {"  "}}, true)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty text status = %d", rec.Code)
	}
	task, _ := f.hooks.FetchTask(context.Background(), "t1")
	if task.Text != "renamed" {
		t.Errorf("text = %q", task.Text)
	}
}

func TestDeleteTaskKeepsOtherSections(t *testing.T) {
	f := newFixture(t)
	rec := f.post("/tasks/t1/delete", nil, false)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d", rec.Code)
	}
	ctx := context.Background()
	s1, _ := f.hooks.FetchTasks(ctx, "s1")
	s2, _ := f.hooks.FetchTasks(ctx, "s2")
	if len(s1) != 1 || s1[0].ID != "t2" || len(s2) != 1 {
		t.Errorf("s1 = %+v s2 = %+v", s1, s2)
	}
}

func TestDeleteRowsBySectionRef(t *testing.T) {
	f := newFixture(t)
	target := "/api/tables/" + url.PathEscape(string(models.TableTasks)) + "?column=SectionRef&ref=s1"
	req := httptest.NewRequest(http.MethodDelete, target, nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	ctx := context.Background()
	if s1, _ := f.hooks.FetchTasks(ctx, "s1"); len(s1) != 0 {
		t.Errorf("s1 tasks = %+v", s1)
	}
	if s2, _ := f.hooks.FetchTasks(ctx, "s2"); len(s2) != 1 {
		t.Errorf("s2 tasks = %+v", s2)
	}
}

func TestEditColumnRejectsKeyColumn(t *testing.T) {
	f := newFixture(t)
	target := "/api/tables/" + url.PathEscape(string(models.TableTasks)) + "/t1"
	req := httptest.NewRequest(http.MethodPatch, target, strings.NewReader(`{"column":"TaskId","value":"x"}`))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{forms.ErrInvalid, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", store.ErrUnknownColumn), http.StatusBadRequest},
		{store.Wrap("select", models.TableProjects, store.ErrNotFound), http.StatusNotFound},
		{store.ErrReference, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func (f *fixture) send(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestCreateTasksAfterDeleteDoesNotReusePosition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.hooks.DeleteTask(ctx, "t1"); err != nil {
		t.Fatal(err)
	}

	rec := f.post("/sections/s1/tasks", url.Values{"tasks": {"board"}}, false)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("board status = %d: %s", rec.Code, rec.Body)
	}
	rec = f.send(http.MethodPost, "/api/sections/s1/tasks", `["api"]`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("api status = %d: %s", rec.Code, rec.Body)
	}

	tasks, _ := f.hooks.FetchTasks(ctx, "s1")
	var got []string
	positions := map[int]bool{}
	for _, task := range tasks {
		got = append(got, task.Text)
		if positions[task.Position] {
			t.Errorf("position %d used twice: %+v", task.Position, tasks)
		}
		positions[task.Position] = true
	}
	if want := []string{"two", "board", "api"}; !slices.Equal(got, want) {
		t.Errorf("tasks = %v, want %v", got, want)
	}
}

func TestAPICreateTasksRejectsBlankTexts(t *testing.T) {
	f := newFixture(t)
	rec := f.send(http.MethodPost, "/api/sections/s1/tasks", `["", "  "]`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if !strings.Contains(rec.Body.String(), forms.MsgTasksRequired) {
		t.Errorf("body = %s", rec.Body)
	}
	if tasks, _ := f.hooks.FetchTasks(context.Background(), "s1"); len(tasks) != 2 {
		t.Errorf("tasks = %+v", tasks)
	}
}

func TestAPICreateTasksTrimsTexts(t *testing.T) {
	f := newFixture(t)
	rec := f.send(http.MethodPost, "/api/sections/s2/tasks", `[" a ", "", "b"]`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	tasks, _ := f.hooks.FetchTasks(context.Background(), "s2")
	if len(tasks) != 3 || tasks[1].Text != "a" || tasks[2].Text != "b" {
		t.Errorf("tasks = %+v", tasks)
	}
}

func TestAPIReorderRejectsForeignTask(t *testing.T) {
	f := newFixture(t)
	rec := f.send(http.MethodPut, "/api/sections/s1/order", `["t2", "t1", "t3"]`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	t3, _ := f.hooks.FetchTask(context.Background(), "t3")
	if t3.SectionRef != "s2" || t3.Position != 0 {
		t.Errorf("t3 = %+v", t3)
	}
}
