package forms

import (
	"context"
	"net/http"

	"taskboard/app/models"
)

// ProjectCreator is the mutation a ProjectForm submits to.
type ProjectCreator interface {
	CreateProject(ctx context.Context, p models.Project) (models.Project, error)
}

// ProjectForm holds the fields of the new project form.
type ProjectForm struct {
	Title       string
	Description string
	Errors      FieldErrors
}

func ProjectFormFromRequest(r *http.Request) ProjectForm {
	return ProjectForm{
		Title:       formValue(r, "title"),
		Description: formValue(r, "description"),
	}
}

func (f *ProjectForm) Validate() bool {
	f.Errors = FieldErrors{}
	if f.Title == "" {
		f.Errors["title"] = MsgProjectTitleRequired
	}
	return len(f.Errors) == 0
}

// Submit creates the project and clears the form on dispatch.
func (f *ProjectForm) Submit(ctx context.Context, clock Clock, creator ProjectCreator) (models.Project, error) {
	if !f.Validate() {
		return models.Project{}, ErrInvalid
	}
	p := models.Project{
		ID:          clock.NewID(),
		Title:       f.Title,
		Description: f.Description,
		CreatedAt:   clock.Now(),
	}
	*f = ProjectForm{}
	return creator.CreateProject(ctx, p)
}
