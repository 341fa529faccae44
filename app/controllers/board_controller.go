package controllers

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"taskboard/app/components"
	"taskboard/app/forms"
	"taskboard/app/models"
	"taskboard/app/store"
	"taskboard/app/views"
)

// BoardController serves the HTML board.
type BoardController struct {
	Deps
	editor *components.PopoverEditor
}

// NewBoardController creates a new BoardController.
func NewBoardController(deps Deps) *BoardController {
	return &BoardController{Deps: deps, editor: components.NewPopoverEditor(deps.Hooks)}
}

type indexPage struct {
	Title    string
	Projects []models.Project
	Form     forms.ProjectForm
	Error    string
}

type sectionView struct {
	Section  models.Section
	Tasks    []*components.TaskItem
	TaskForm forms.TaskSetForm
}

type projectPage struct {
	Title       string
	Project     models.Project
	Sections    []sectionView
	SectionForm forms.SectionForm
	Error       string
}

// Index handles GET /.
func (c *BoardController) Index(w http.ResponseWriter, r *http.Request) {
	c.renderIndex(w, r, http.StatusOK, forms.ProjectForm{}, "")
}

// CreateProject handles POST /projects.
func (c *BoardController) CreateProject(w http.ResponseWriter, r *http.Request) {
	form := forms.ProjectFormFromRequest(r)
	project, err := form.Submit(r.Context(), c.Clock, c.Hooks)
	if err != nil {
		c.Logger.Warn("create project failed", "error", err)
		c.renderIndex(w, r, statusFor(err), form, errorText(err))
		return
	}
	http.Redirect(w, r, "/projects/"+project.ID, http.StatusSeeOther)
}

// DeleteProject handles POST /projects/{projectID}/delete.
func (c *BoardController) DeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := c.Hooks.DeleteProject(r.Context(), mux.Vars(r)["projectID"]); err != nil {
		c.Logger.Error("delete project failed", "error", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ShowProject handles GET /projects/{projectID}.
func (c *BoardController) ShowProject(w http.ResponseWriter, r *http.Request) {
	c.renderProject(w, r, http.StatusOK, mux.Vars(r)["projectID"], forms.SectionForm{}, nil, "")
}

// CreateSection handles POST /projects/{projectID}/sections.
func (c *BoardController) CreateSection(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["projectID"]
	form := forms.SectionFormFromRequest(r)
	if _, err := form.Submit(r.Context(), c.Clock, projectID, c.Hooks); err != nil {
		c.Logger.Warn("create section failed", "project", projectID, "error", err)
		c.renderProject(w, r, statusFor(err), projectID, form, nil, errorText(err))
		return
	}
	http.Redirect(w, r, "/projects/"+projectID, http.StatusSeeOther)
}

// EditSection handles POST /sections/{sectionID}/edit with a column and a
// value.
func (c *BoardController) EditSection(w http.ResponseWriter, r *http.Request) {
	sectionID := mux.Vars(r)["sectionID"]
	section, err := c.Hooks.FetchSection(r.Context(), sectionID)
	if err != nil {
		writeError(w, err)
		return
	}

	value := r.PostFormValue("value")
	switch models.Column(r.PostFormValue("column")) {
	case models.ColTitle:
		err = c.Hooks.EditSectionTitle(r.Context(), sectionID, value)
	case models.ColDescription:
		err = c.Hooks.EditSectionDescription(r.Context(), sectionID, value)
	case models.ColDeadline:
		form := forms.SectionForm{Title: section.Title, Deadline: value}
		if !form.Validate() {
			c.renderProject(w, r, http.StatusBadRequest, section.ProjectRef, forms.SectionForm{}, nil, form.Errors["deadline"])
			return
		}
		err = c.Hooks.EditSectionDeadline(r.Context(), sectionID, value)
	default:
		http.Error(w, "unknown column", http.StatusBadRequest)
		return
	}
	if err != nil {
		c.Logger.Error("edit section failed", "section", sectionID, "error", err)
	}
	http.Redirect(w, r, "/projects/"+section.ProjectRef, http.StatusSeeOther)
}

// DeleteSection handles POST /sections/{sectionID}/delete.
func (c *BoardController) DeleteSection(w http.ResponseWriter, r *http.Request) {
	sectionID := mux.Vars(r)["sectionID"]
	section, err := c.Hooks.FetchSection(r.Context(), sectionID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := c.Hooks.DeleteSection(r.Context(), sectionID); err != nil {
		c.Logger.Error("delete section failed", "section", sectionID, "error", err)
	}
	http.Redirect(w, r, "/projects/"+section.ProjectRef, http.StatusSeeOther)
}

// CreateTasks handles POST /sections/{sectionID}/tasks.
func (c *BoardController) CreateTasks(w http.ResponseWriter, r *http.Request) {
	sectionID := mux.Vars(r)["sectionID"]
	section, err := c.Hooks.FetchSection(r.Context(), sectionID)
	if err != nil {
		writeError(w, err)
		return
	}
	existing, err := c.Hooks.FetchTasks(r.Context(), sectionID)
	if err != nil {
		writeError(w, err)
		return
	}

	form := forms.TaskSetFormFromRequest(r)
	if _, err := form.Submit(r.Context(), c.Clock, sectionID, models.NextPosition(existing), c.Hooks); err != nil {
		c.Logger.Warn("create tasks failed", "section", sectionID, "error", err)
		c.renderProject(w, r, statusFor(err), section.ProjectRef, forms.SectionForm{},
			map[string]forms.TaskSetForm{sectionID: form}, errorText(err))
		return
	}
	http.Redirect(w, r, "/projects/"+section.ProjectRef, http.StatusSeeOther)
}

// ReorderTasks handles POST /sections/{sectionID}/reorder with the ids in
// their new order.
func (c *BoardController) ReorderTasks(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if err := c.Hooks.ReorderTasks(r.Context(), mux.Vars(r)["sectionID"], r.PostForm["order"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleTask handles POST /tasks/{taskID}/toggle. The posted state is what
// the user saw, so the flip applies to it even if the cache is behind.
func (c *BoardController) ToggleTask(w http.ResponseWriter, r *http.Request) {
	task, err := c.taskFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if state := r.PostFormValue("state"); state != "" {
		task.State = state == "true"
	}

	item := c.newItem(task)
	_ = item.Toggle(r.Context())
	c.respondItem(w, r, item)
}

// EditTaskForm handles GET /tasks/{taskID}/edit and opens the popover.
func (c *BoardController) EditTaskForm(w http.ResponseWriter, r *http.Request) {
	task, err := c.taskFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := c.newItem(task).OpenEditor(w); err != nil {
		c.Logger.Error("render editor failed", "error", err)
	}
}

// UpdateTaskText handles POST /tasks/{taskID}/edit.
func (c *BoardController) UpdateTaskText(w http.ResponseWriter, r *http.Request) {
	task, err := c.taskFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	text, err := c.editor.Submit(r.Context(), task.ID, r.PostFormValue("text"))
	if err != nil {
		c.Logger.Error("edit task failed", "task", task.ID, "error", err)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(statusFor(err))
		c.editor.Reopen(w, task.ID, r.PostFormValue("text"), err)
		return
	}
	task.Text = text
	c.respondItem(w, r, c.newItem(task))
}

// DeleteTask handles POST /tasks/{taskID}/delete. Failures are only logged.
func (c *BoardController) DeleteTask(w http.ResponseWriter, r *http.Request) {
	task, err := c.taskFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	_ = c.newItem(task).Delete(r.Context())
	if isFragment(r) {
		w.WriteHeader(http.StatusOK)
		return
	}
	c.redirectToSection(w, r, task.SectionRef)
}

func (c *BoardController) newItem(task models.Task) *components.TaskItem {
	return components.NewTaskItem(task, c.Hooks,
		components.WithPolicy(c.Policy),
		components.WithEditor(c.editor),
		components.WithLogger(c.Logger),
	)
}

func (c *BoardController) respondItem(w http.ResponseWriter, r *http.Request, item *components.TaskItem) {
	if !isFragment(r) {
		c.redirectToSection(w, r, item.Task().SectionRef)
		return
	}
	var buf bytes.Buffer
	if err := item.Render(&buf); err != nil {
		c.Logger.Error("render task failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

func (c *BoardController) redirectToSection(w http.ResponseWriter, r *http.Request, sectionID string) {
	section, err := c.Hooks.FetchSection(r.Context(), sectionID)
	if err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/projects/"+section.ProjectRef+"#section-"+sectionID, http.StatusSeeOther)
}

func (c *BoardController) taskFromRequest(r *http.Request) (models.Task, error) {
	return c.Hooks.FetchTask(r.Context(), mux.Vars(r)["taskID"])
}

func (c *BoardController) renderIndex(w http.ResponseWriter, r *http.Request, status int, form forms.ProjectForm, msg string) {
	projects, err := c.Hooks.FetchProjects(r.Context())
	if err != nil {
		c.Logger.Error("fetch projects failed", "error", err)
		msg = store.Message(err)
	}
	c.render(w, status, "index", indexPage{Title: "Projects", Projects: projects, Form: form, Error: msg})
}

func (c *BoardController) renderProject(w http.ResponseWriter, r *http.Request, status int, projectID string, form forms.SectionForm, taskForms map[string]forms.TaskSetForm, msg string) {
	ctx := r.Context()
	project, err := c.Hooks.FetchProject(ctx, projectID)
	if err != nil {
		writeError(w, err)
		return
	}
	sections, err := c.Hooks.FetchSections(ctx, projectID)
	if err != nil {
		c.Logger.Error("fetch sections failed", "project", projectID, "error", err)
		msg = store.Message(err)
	}

	page := projectPage{Title: project.Title, Project: project, SectionForm: form, Error: msg}
	for _, s := range sections {
		tasks, err := c.Hooks.FetchTasks(ctx, s.ID)
		if err != nil {
			c.Logger.Error("fetch tasks failed", "section", s.ID, "error", err)
		}
		view := sectionView{Section: s, TaskForm: taskForms[s.ID]}
		for _, t := range tasks {
			view.Tasks = append(view.Tasks, c.newItem(t))
		}
		page.Sections = append(page.Sections, view)
	}
	c.render(w, status, "project", page)
}

func (c *BoardController) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := views.Render(&buf, name, data); err != nil {
		c.Logger.Error("render failed", "template", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func errorText(err error) string {
	if errors.Is(err, forms.ErrInvalid) {
		return ""
	}
	return store.Message(err)
}
