// Package services holds the data-access hooks: typed wrappers that issue one
// backend call per operation and keep the query cache coherent by
// invalidating related keys after every successful mutation.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"taskboard/app/models"
	"taskboard/app/store"
)

var (
	// ErrNothingToInsert indicates an empty insert.
	ErrNothingToInsert = errors.New("services: nothing to insert")

	// ErrNotEditable indicates a column that cannot be changed in place.
	ErrNotEditable = errors.New("services: column is not editable")

	// ErrNotInSection indicates a reorder naming a task of another section.
	ErrNotInSection = errors.New("services: task does not belong to the section")
)

// Hooks wraps a backend with cached, typed operations.
type Hooks struct {
	backend store.Backend
	cache   *QueryCache
	logger  *slog.Logger
}

// NewHooks returns Hooks over backend. A nil logger discards output.
func NewHooks(backend store.Backend, logger *slog.Logger, opts ...CacheOption) *Hooks {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Hooks{
		backend: backend,
		cache:   NewQueryCache(opts...),
		logger:  logger,
	}
}

// State exposes the cached state of key.
func (h *Hooks) State(key QueryKey) QueryState {
	return h.cache.State(key)
}

// FetchProjects returns all projects, oldest first.
func (h *Hooks) FetchProjects(ctx context.Context) ([]models.Project, error) {
	return fetch(ctx, h.cache, ProjectsKey(), func(ctx context.Context) ([]models.Project, error) {
		rows, err := h.backend.Select(ctx, store.Query{
			Table:   models.TableProjects,
			OrderBy: models.ColCreatedAt,
		})
		return mapRows(rows, models.ProjectFromRow), err
	})
}

// FetchProject returns one project by id.
func (h *Hooks) FetchProject(ctx context.Context, projectID string) (models.Project, error) {
	projects, err := fetch(ctx, h.cache, ProjectKey(projectID), func(ctx context.Context) ([]models.Project, error) {
		f := store.Eq(models.ColProjectID, projectID)
		rows, err := h.backend.Select(ctx, store.Query{Table: models.TableProjects, Filter: &f})
		return mapRows(rows, models.ProjectFromRow), err
	})
	if err != nil {
		return models.Project{}, err
	}
	if len(projects) == 0 {
		return models.Project{}, fmt.Errorf("project %s: %w", projectID, store.ErrNotFound)
	}
	return projects[0], nil
}

// FetchSections returns the sections of a project, oldest first.
func (h *Hooks) FetchSections(ctx context.Context, projectID string) ([]models.Section, error) {
	return fetch(ctx, h.cache, SectionsKey(projectID), func(ctx context.Context) ([]models.Section, error) {
		f := store.Eq(models.ColProjectRef, projectID)
		rows, err := h.backend.Select(ctx, store.Query{
			Table:   models.TableSections,
			Filter:  &f,
			OrderBy: models.ColSectionCreatedAt,
		})
		return mapRows(rows, models.SectionFromRow), err
	})
}

// FetchSection returns one section by id.
func (h *Hooks) FetchSection(ctx context.Context, sectionID string) (models.Section, error) {
	sections, err := fetch(ctx, h.cache, SectionKey(sectionID), func(ctx context.Context) ([]models.Section, error) {
		f := store.Eq(models.ColSectionID, sectionID)
		rows, err := h.backend.Select(ctx, store.Query{Table: models.TableSections, Filter: &f})
		return mapRows(rows, models.SectionFromRow), err
	})
	if err != nil {
		return models.Section{}, err
	}
	if len(sections) == 0 {
		return models.Section{}, fmt.Errorf("section %s: %w", sectionID, store.ErrNotFound)
	}
	return sections[0], nil
}

// FetchTask returns one task by id.
func (h *Hooks) FetchTask(ctx context.Context, taskID string) (models.Task, error) {
	tasks, err := fetch(ctx, h.cache, TaskKey(taskID), func(ctx context.Context) ([]models.Task, error) {
		f := store.Eq(models.ColTaskID, taskID)
		rows, err := h.backend.Select(ctx, store.Query{Table: models.TableTasks, Filter: &f})
		return mapRows(rows, models.TaskFromRow), err
	})
	if err != nil {
		return models.Task{}, err
	}
	if len(tasks) == 0 {
		return models.Task{}, fmt.Errorf("task %s: %w", taskID, store.ErrNotFound)
	}
	return tasks[0], nil
}

// FetchTasks returns the tasks of a section. The service gives no order, so
// tasks are sorted here by position, keeping service order for ties.
func (h *Hooks) FetchTasks(ctx context.Context, sectionID string) ([]models.Task, error) {
	return fetch(ctx, h.cache, TasksKey(sectionID), func(ctx context.Context) ([]models.Task, error) {
		f := store.Eq(models.ColSectionRef, sectionID)
		rows, err := h.backend.Select(ctx, store.Query{Table: models.TableTasks, Filter: &f})
		if err != nil {
			return nil, err
		}
		tasks := mapRows(rows, models.TaskFromRow)
		slices.SortStableFunc(tasks, func(a, b models.Task) int { return a.Position - b.Position })
		return tasks, nil
	})
}

// CreateProject inserts p.
func (h *Hooks) CreateProject(ctx context.Context, p models.Project) (models.Project, error) {
	var created models.Project
	err := h.mutate(ctx, "create project", func(ctx context.Context) error {
		rows, err := h.backend.Insert(ctx, models.TableProjects, []models.Row{p.Row()})
		if err == nil && len(rows) > 0 {
			created = models.ProjectFromRow(rows[0])
		}
		return err
	}, nil, ProjectsKey())
	return created, err
}

// CreateSection inserts s and calls onSuccess once the insert succeeded.
func (h *Hooks) CreateSection(ctx context.Context, s models.Section, onSuccess func()) (models.Section, error) {
	var created models.Section
	err := h.mutate(ctx, "create section", func(ctx context.Context) error {
		rows, err := h.backend.Insert(ctx, models.TableSections, []models.Row{s.Row()})
		if err == nil && len(rows) > 0 {
			created = models.SectionFromRow(rows[0])
		}
		return err
	}, onSuccess, TableKey(models.TableSections))
	return created, err
}

// CreateTaskSet inserts tasks in one call. Section summaries shown next to
// the tasks are invalidated as well.
func (h *Hooks) CreateTaskSet(ctx context.Context, tasks []models.Task) ([]models.Task, error) {
	if len(tasks) == 0 {
		return nil, ErrNothingToInsert
	}
	rows := make([]models.Row, len(tasks))
	for i, t := range tasks {
		rows[i] = t.Row()
	}

	var created []models.Task
	err := h.mutate(ctx, "create tasks", func(ctx context.Context) error {
		stored, err := h.backend.Insert(ctx, models.TableTasks, rows)
		created = mapRows(stored, models.TaskFromRow)
		return err
	}, nil, TableKey(models.TableSections), TableKey(models.TableTasks))
	return created, err
}

// DeleteRequest selects rows to delete by one or more reference values.
type DeleteRequest struct {
	Refs   []string
	Table  models.Table
	Column models.Column
}

// DeleteByRef deletes the rows whose Column equals a single ref, or is one of
// several refs, then calls onSuccess. An empty ref list deletes nothing.
// The backend cascades to child tables, so their queries are invalidated too.
func (h *Hooks) DeleteByRef(ctx context.Context, req DeleteRequest, onSuccess func()) error {
	if !req.Table.HasColumn(req.Column) {
		return fmt.Errorf("%w: %q in %q", store.ErrUnknownColumn, req.Column, req.Table)
	}
	if len(req.Refs) == 0 {
		return nil
	}
	f := store.In(req.Column, req.Refs...)
	return h.mutate(ctx, "delete "+string(req.Table), func(ctx context.Context) error {
		return h.backend.Delete(ctx, req.Table, f)
	}, onSuccess, cascadeKeys(req.Table)...)
}

// cascadeKeys covers table and every table below it.
func cascadeKeys(table models.Table) []QueryKey {
	keys := []QueryKey{TableKey(table)}
	for _, child := range table.Children() {
		keys = append(keys, cascadeKeys(child)...)
	}
	return keys
}

// DeleteTask deletes a single task.
func (h *Hooks) DeleteTask(ctx context.Context, taskID string) error {
	return h.DeleteByRef(ctx, DeleteRequest{Refs: []string{taskID}, Table: models.TableTasks, Column: models.ColTaskID}, nil)
}

// DeleteSection deletes a section; its tasks go with it.
func (h *Hooks) DeleteSection(ctx context.Context, sectionID string) error {
	return h.DeleteByRef(ctx, DeleteRequest{Refs: []string{sectionID}, Table: models.TableSections, Column: models.ColSectionID}, nil)
}

// DeleteProject deletes a project; its sections and their tasks go with it.
func (h *Hooks) DeleteProject(ctx context.Context, projectID string) error {
	return h.DeleteByRef(ctx, DeleteRequest{Refs: []string{projectID}, Table: models.TableProjects, Column: models.ColProjectID}, nil)
}

// EditTask replaces the text of a task.
func (h *Hooks) EditTask(ctx context.Context, taskID, text string) error {
	return h.EditColumn(ctx, EditRequest{
		ID: taskID, Value: text, Column: models.ColTask,
		Table: models.TableTasks, Match: models.ColTaskID,
	})
}

// SetTaskState sets the completion flag of a task.
func (h *Hooks) SetTaskState(ctx context.Context, taskID string, done bool) error {
	return h.EditColumn(ctx, EditRequest{
		ID: taskID, Value: done, Column: models.ColState,
		Table: models.TableTasks, Match: models.ColTaskID,
	})
}

// EditRequest changes one column of the rows where Match equals ID.
type EditRequest struct {
	ID     string
	Value  any
	Column models.Column
	Table  models.Table
	Match  models.Column
}

// EditColumn is the generic single-column update.
func (h *Hooks) EditColumn(ctx context.Context, req EditRequest) error {
	if !req.Table.HasColumn(req.Match) {
		return fmt.Errorf("%w: %q in %q", store.ErrUnknownColumn, req.Match, req.Table)
	}
	if !req.Table.HasColumn(req.Column) {
		return fmt.Errorf("%w: %q in %q", store.ErrUnknownColumn, req.Column, req.Table)
	}
	if !req.Table.Editable(req.Column) {
		return fmt.Errorf("%w: %q", ErrNotEditable, req.Column)
	}
	return h.mutate(ctx, "edit "+string(req.Column), func(ctx context.Context) error {
		return h.backend.Update(ctx, req.Table, models.Row{req.Column: req.Value}, store.Eq(req.Match, req.ID))
	}, nil, TableKey(req.Table))
}

// EditSectionTitle sets a section's title.
func (h *Hooks) EditSectionTitle(ctx context.Context, sectionID, title string) error {
	return h.editSection(ctx, sectionID, models.ColTitle, title)
}

// EditSectionDescription sets a section's description.
func (h *Hooks) EditSectionDescription(ctx context.Context, sectionID, description string) error {
	return h.editSection(ctx, sectionID, models.ColDescription, description)
}

// EditSectionDeadline sets a section's deadline; "" clears it.
func (h *Hooks) EditSectionDeadline(ctx context.Context, sectionID, deadline string) error {
	var v any
	if deadline != "" {
		v = deadline
	}
	return h.editSection(ctx, sectionID, models.ColDeadline, v)
}

// EditProjectTitle sets a project's title.
func (h *Hooks) EditProjectTitle(ctx context.Context, projectID, title string) error {
	return h.EditColumn(ctx, EditRequest{
		ID: projectID, Value: title, Column: models.ColTitle,
		Table: models.TableProjects, Match: models.ColProjectID,
	})
}

// EditProjectDescription sets a project's description.
func (h *Hooks) EditProjectDescription(ctx context.Context, projectID, description string) error {
	return h.EditColumn(ctx, EditRequest{
		ID: projectID, Value: description, Column: models.ColDescription,
		Table: models.TableProjects, Match: models.ColProjectID,
	})
}

func (h *Hooks) editSection(ctx context.Context, sectionID string, column models.Column, value any) error {
	return h.EditColumn(ctx, EditRequest{
		ID: sectionID, Value: value, Column: column,
		Table: models.TableSections, Match: models.ColSectionID,
	})
}

// ReorderTasks stores the order of a section's tasks as given by a drag and
// drop. Every id must belong to sectionID; otherwise nothing is written.
// Each task is one update; the first failure stops the walk and the tasks
// already written keep their new position.
func (h *Hooks) ReorderTasks(ctx context.Context, sectionID string, taskIDs []string) error {
	return h.mutate(ctx, "reorder tasks", func(ctx context.Context) error {
		f := store.Eq(models.ColSectionRef, sectionID)
		rows, err := h.backend.Select(ctx, store.Query{Table: models.TableTasks, Filter: &f})
		if err != nil {
			return err
		}
		owned := make(map[string]bool, len(rows))
		for _, row := range rows {
			owned[row.String(models.ColTaskID)] = true
		}
		for _, id := range taskIDs {
			if !owned[id] {
				return fmt.Errorf("%w: task %q, section %q", ErrNotInSection, id, sectionID)
			}
		}

		for i, id := range taskIDs {
			err := h.backend.Update(ctx, models.TableTasks, models.Row{models.ColPosition: i}, store.Eq(models.ColTaskID, id))
			if err != nil {
				return err
			}
		}
		return nil
	}, nil, TableKey(models.TableTasks))
}

// mutate runs fn and, on success, invalidates keys and calls onSuccess.
// Failures are logged and returned; nothing is retried.
func (h *Hooks) mutate(ctx context.Context, name string, fn func(context.Context) error, onSuccess func(), keys ...QueryKey) error {
	if err := fn(ctx); err != nil {
		h.logger.Error("mutation failed", "mutation", name, "error", err)
		return err
	}
	h.invalidate(keys...)
	if onSuccess != nil {
		onSuccess()
	}
	return nil
}

func (h *Hooks) invalidate(keys ...QueryKey) {
	for _, key := range keys {
		n := h.cache.Invalidate(key)
		h.logger.Debug("query invalidated", "key", key.String(), "entries", n)
	}
}

// fetch loads a typed list through the cache. Callers get their own copy.
func fetch[T any](ctx context.Context, c *QueryCache, key QueryKey, fn func(context.Context) ([]T, error)) ([]T, error) {
	v, err := c.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		return nil, err
	}
	items, _ := v.([]T)
	return slices.Clone(items), nil
}

func mapRows[T any](rows []models.Row, from func(models.Row) T) []T {
	out := make([]T, len(rows))
	for i, row := range rows {
		out[i] = from(row)
	}
	return out
}
