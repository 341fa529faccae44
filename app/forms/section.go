package forms

import (
	"context"
	"net/http"
	"time"

	"taskboard/app/models"
)

// SectionCreator is the mutation a SectionForm submits to.
type SectionCreator interface {
	CreateSection(ctx context.Context, s models.Section, onSuccess func()) (models.Section, error)
}

// SectionForm holds the fields of the "Add a new Section" form.
type SectionForm struct {
	Title       string
	Description string
	Deadline    string
	Errors      FieldErrors
}

// SectionFormFromRequest reads the form fields from a POST body.
func SectionFormFromRequest(r *http.Request) SectionForm {
	return SectionForm{
		Title:       formValue(r, "title"),
		Description: formValue(r, "description"),
		Deadline:    formValue(r, "deadline"),
	}
}

// Validate fills f.Errors and reports whether the form can be submitted.
// Only the title is required.
func (f *SectionForm) Validate() bool {
	f.Errors = FieldErrors{}
	if f.Title == "" {
		f.Errors["title"] = MsgSectionTitleRequired
	}
	if f.Deadline != "" {
		if _, err := time.Parse(models.DateLayout, f.Deadline); err != nil {
			f.Errors["deadline"] = MsgDeadlineInvalid
		}
	}
	return len(f.Errors) == 0
}

// Submit creates the section under projectID. The fields are cleared as soon
// as the mutation is dispatched, whatever its outcome.
func (f *SectionForm) Submit(ctx context.Context, clock Clock, projectID string, creator SectionCreator) (models.Section, error) {
	if !f.Validate() {
		return models.Section{}, ErrInvalid
	}
	s := models.Section{
		ID:          clock.NewID(),
		ProjectRef:  projectID,
		Title:       f.Title,
		Description: f.Description,
		Deadline:    f.Deadline,
		CreatedAt:   clock.Now(),
	}
	f.Reset()
	return creator.CreateSection(ctx, s, nil)
}

// Reset clears every field and error.
func (f *SectionForm) Reset() {
	*f = SectionForm{}
}
