package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"taskboard/app/forms"
	"taskboard/app/models"
	"taskboard/app/services"
)

// APIController handles JSON requests.
type APIController struct {
	Deps
}

// NewAPIController creates a new APIController.
func NewAPIController(deps Deps) *APIController {
	return &APIController{Deps: deps}
}

// GetProjects handles GET /api/projects.
func (c *APIController) GetProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := c.Hooks.FetchProjects(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

// CreateProject handles POST /api/projects.
func (c *APIController) CreateProject(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title       string `json:"Title"`
		Description string `json:"Description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	form := forms.ProjectForm{Title: body.Title, Description: body.Description}
	project, err := form.Submit(r.Context(), c.Clock, c.Hooks)
	if err != nil {
		c.writeFormError(w, err, form.Errors)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

// GetSections handles GET /api/projects/{projectID}/sections.
func (c *APIController) GetSections(w http.ResponseWriter, r *http.Request) {
	sections, err := c.Hooks.FetchSections(r.Context(), mux.Vars(r)["projectID"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sections)
}

// CreateSection handles POST /api/projects/{projectID}/sections.
func (c *APIController) CreateSection(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title       string `json:"Title"`
		Description string `json:"Description"`
		Deadline    string `json:"Deadline"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	form := forms.SectionForm{Title: body.Title, Description: body.Description, Deadline: body.Deadline}
	section, err := form.Submit(r.Context(), c.Clock, mux.Vars(r)["projectID"], c.Hooks)
	if err != nil {
		c.writeFormError(w, err, form.Errors)
		return
	}
	writeJSON(w, http.StatusCreated, section)
}

// GetTasks handles GET /api/sections/{sectionID}/tasks.
func (c *APIController) GetTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := c.Hooks.FetchTasks(r.Context(), mux.Vars(r)["sectionID"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// CreateTasks handles POST /api/sections/{sectionID}/tasks with a list of
// task texts. Texts are trimmed, blank ones dropped, and at least one must
// remain.
func (c *APIController) CreateTasks(w http.ResponseWriter, r *http.Request) {
	sectionID := mux.Vars(r)["sectionID"]
	var texts []string
	if err := json.NewDecoder(r.Body).Decode(&texts); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	existing, err := c.Hooks.FetchTasks(r.Context(), sectionID)
	if err != nil {
		writeError(w, err)
		return
	}

	form := forms.TaskSetFormFromTexts(texts)
	created, err := form.Submit(r.Context(), c.Clock, sectionID, models.NextPosition(existing), c.Hooks)
	if err != nil {
		c.writeFormError(w, err, form.Errors)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateTask handles PATCH /api/tasks/{taskID}.
func (c *APIController) UpdateTask(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["taskID"]
	var updates struct {
		Text  *string `json:"Task"`
		State *bool   `json:"State"`
	}
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	if updates.Text != nil {
		if err := c.Hooks.EditTask(r.Context(), taskID, *updates.Text); err != nil {
			writeError(w, err)
			return
		}
	}
	if updates.State != nil {
		if err := c.Hooks.SetTaskState(r.Context(), taskID, *updates.State); err != nil {
			writeError(w, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteTask handles DELETE /api/tasks/{taskID}.
func (c *APIController) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := c.Hooks.DeleteTask(r.Context(), mux.Vars(r)["taskID"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteRows handles DELETE /api/tables/{table}?column=X&ref=a&ref=b.
func (c *APIController) DeleteRows(w http.ResponseWriter, r *http.Request) {
	table, err := models.ParseTable(mux.Vars(r)["table"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	q := r.URL.Query()
	req := services.DeleteRequest{
		Refs:   q["ref"],
		Table:  table,
		Column: models.Column(q.Get("column")),
	}
	if req.Column == "" {
		req.Column = table.Key()
	}
	if err := c.Hooks.DeleteByRef(r.Context(), req, nil); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EditColumn handles PATCH /api/tables/{table}/{id} with {"column", "value"}.
// The row is matched on the table's key column unless "match" is given.
func (c *APIController) EditColumn(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	table, err := models.ParseTable(vars["table"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	var body struct {
		Column string `json:"column"`
		Value  any    `json:"value"`
		Match  string `json:"match"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	req := services.EditRequest{
		ID:     vars["id"],
		Value:  body.Value,
		Column: models.Column(body.Column),
		Table:  table,
		Match:  models.Column(body.Match),
	}
	if req.Match == "" {
		req.Match = table.Key()
	}
	if err := c.Hooks.EditColumn(r.Context(), req); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReorderTasks handles PUT /api/sections/{sectionID}/order with a list of ids.
func (c *APIController) ReorderTasks(w http.ResponseWriter, r *http.Request) {
	var ids []string
	if err := json.NewDecoder(r.Body).Decode(&ids); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if err := c.Hooks.ReorderTasks(r.Context(), mux.Vars(r)["sectionID"], ids); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *APIController) writeFormError(w http.ResponseWriter, err error, fields forms.FieldErrors) {
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": fields})
		return
	}
	writeError(w, err)
}
