// Package components renders single rows of board data and carries their
// interactions: the task item with its completion toggle, inline editor,
// delete and drag handle.
package components

import (
	"context"
	"io"
	"log/slog"

	"taskboard/app/models"
	"taskboard/app/services"
	"taskboard/app/views"
)

// TaskMutator is the subset of the hooks a TaskItem needs.
type TaskMutator interface {
	SetTaskState(ctx context.Context, taskID string, done bool) error
	DeleteByRef(ctx context.Context, req services.DeleteRequest, onSuccess func()) error
}

// TaskEditor opens an inline editor for a task's text.
type TaskEditor interface {
	Open(w io.Writer, taskID, text string) error
}

// TogglePolicy decides what a failed completion update does to local state.
type TogglePolicy int

const (
	// KeepOnError leaves the flipped state in place; the view converges on
	// the next refetch.
	KeepOnError TogglePolicy = iota
	// RevertOnError restores the previous state.
	RevertOnError
)

// ParseTogglePolicy maps "keep" or "revert" to a policy.
func ParseTogglePolicy(s string) (TogglePolicy, bool) {
	switch s {
	case "", "keep":
		return KeepOnError, true
	case "revert":
		return RevertOnError, true
	default:
		return KeepOnError, false
	}
}

// TogglePhase tracks an optimistic completion change.
type TogglePhase int

const (
	// PhaseConfirmed means local state matches the last known stored state.
	PhaseConfirmed TogglePhase = iota
	// PhaseTentative means local state was flipped and not yet confirmed.
	PhaseTentative
	// PhaseReverted means the update failed and local state was restored.
	PhaseReverted
)

func (p TogglePhase) String() string {
	switch p {
	case PhaseTentative:
		return "tentative"
	case PhaseReverted:
		return "reverted"
	default:
		return "confirmed"
	}
}

// TaskItem is one rendered task with its local completion state.
type TaskItem struct {
	task   models.Task
	done   bool
	phase  TogglePhase
	policy TogglePolicy
	hooks  TaskMutator
	editor TaskEditor
	logger *slog.Logger
}

// Option configures a TaskItem.
type Option func(*TaskItem)

// WithPolicy sets the toggle failure policy.
func WithPolicy(p TogglePolicy) Option {
	return func(t *TaskItem) { t.policy = p }
}

// WithEditor sets the inline text editor.
func WithEditor(e TaskEditor) Option {
	return func(t *TaskItem) { t.editor = e }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *TaskItem) { t.logger = l }
}

// NewTaskItem returns an item showing task.
func NewTaskItem(task models.Task, hooks TaskMutator, opts ...Option) *TaskItem {
	t := &TaskItem{
		task:   task,
		done:   task.State,
		hooks:  hooks,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *TaskItem) ID() string         { return t.task.ID }
func (t *TaskItem) Text() string       { return t.task.Text }
func (t *TaskItem) Done() bool         { return t.done }
func (t *TaskItem) Phase() TogglePhase { return t.phase }
func (t *TaskItem) Task() models.Task  { return t.task }

// SortKey identifies the item in the drag and drop context.
func (t *TaskItem) SortKey() string { return t.task.ID }

// Toggle flips the local state first and then stores the new flag.
// On failure the error is logged and the policy decides the local state.
func (t *TaskItem) Toggle(ctx context.Context) error {
	prev := t.done
	t.done = !prev
	t.phase = PhaseTentative

	err := t.hooks.SetTaskState(ctx, t.task.ID, t.done)
	if err != nil {
		t.logger.Error("toggle task failed", "task", t.task.ID, "state", t.done, "error", err)
		if t.policy == RevertOnError {
			t.done = prev
			t.phase = PhaseReverted
		}
		return err
	}
	t.task.State = t.done
	t.phase = PhaseConfirmed
	return nil
}

// Delete removes the task. Errors are logged, not shown.
func (t *TaskItem) Delete(ctx context.Context) error {
	err := t.hooks.DeleteByRef(ctx, services.DeleteRequest{
		Refs:   []string{t.task.ID},
		Table:  models.TableTasks,
		Column: models.ColTaskID,
	}, nil)
	if err != nil {
		t.logger.Error("delete task failed", "task", t.task.ID, "error", err)
	}
	return err
}

// OpenEditor hands the task to the inline editor.
func (t *TaskItem) OpenEditor(w io.Writer) error {
	if t.editor == nil {
		return nil
	}
	return t.editor.Open(w, t.task.ID, t.task.Text)
}

// Render writes the item's HTML.
func (t *TaskItem) Render(w io.Writer) error {
	return views.Render(w, "task-item", t)
}
