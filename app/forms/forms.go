// Package forms captures user input for new projects, sections and tasks,
// validates it and hands complete rows to the data-access hooks.
package forms

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalid is returned by Submit when validation failed. No mutation is
// issued in that case.
var ErrInvalid = errors.New("forms: invalid input")

const (
	MsgSectionTitleRequired = "** Section Title must be entered! **"
	MsgProjectTitleRequired = "** Project Title must be entered! **"
	MsgTasksRequired        = "** At least one task must be entered! **"
	MsgDeadlineInvalid      = "** Deadline must be a date (YYYY-MM-DD) **"
)

// FieldErrors maps a field name to its validation message.
type FieldErrors map[string]string

// Clock supplies identifiers and timestamps for new rows.
type Clock struct {
	NewID func() string
	Now   func() time.Time
}

// DefaultClock uses random UUIDs and the wall clock in UTC.
var DefaultClock = Clock{
	NewID: uuid.NewString,
	Now:   func() time.Time { return time.Now().UTC() },
}

func formValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.PostFormValue(key))
}
