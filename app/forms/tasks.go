package forms

import (
	"context"
	"net/http"
	"strings"

	"taskboard/app/models"
)

// TaskSetCreator is the mutation a TaskSetForm submits to.
type TaskSetCreator interface {
	CreateTaskSet(ctx context.Context, tasks []models.Task) ([]models.Task, error)
}

// TaskSetForm adds several tasks to a section at once, one per line.
type TaskSetForm struct {
	Text   string
	Errors FieldErrors
}

func TaskSetFormFromRequest(r *http.Request) TaskSetForm {
	return TaskSetForm{Text: r.PostFormValue("tasks")}
}

// TaskSetFormFromTexts builds the form from a list of task texts, one entry
// per task.
func TaskSetFormFromTexts(texts []string) TaskSetForm {
	return TaskSetForm{Text: strings.Join(texts, "\n")}
}

// Lines returns the non-blank lines of the form, trimmed.
func (f *TaskSetForm) Lines() []string {
	var out []string
	for _, line := range strings.Split(f.Text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func (f *TaskSetForm) Validate() bool {
	f.Errors = FieldErrors{}
	if len(f.Lines()) == 0 {
		f.Errors["tasks"] = MsgTasksRequired
	}
	return len(f.Errors) == 0
}

// Submit creates one incomplete task per line under sectionID. Positions
// continue after offset so new tasks land below the existing ones.
func (f *TaskSetForm) Submit(ctx context.Context, clock Clock, sectionID string, offset int, creator TaskSetCreator) ([]models.Task, error) {
	if !f.Validate() {
		return nil, ErrInvalid
	}
	lines := f.Lines()
	tasks := make([]models.Task, len(lines))
	for i, line := range lines {
		tasks[i] = models.Task{
			ID:         clock.NewID(),
			SectionRef: sectionID,
			Text:       line,
			Position:   offset + i,
		}
	}
	*f = TaskSetForm{}
	return creator.CreateTaskSet(ctx, tasks)
}
