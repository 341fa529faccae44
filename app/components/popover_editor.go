package components

import (
	"context"
	"errors"
	"io"
	"strings"

	"taskboard/app/views"
)

// ErrEmptyText is returned when a task is edited to blank text.
var ErrEmptyText = errors.New("components: task text must not be empty")

// TextEditor stores new task text.
type TextEditor interface {
	EditTask(ctx context.Context, taskID, text string) error
}

// PopoverEditor is the inline editor opened from a task item. It submits the
// new text itself; closing is the caller re-rendering the item.
type PopoverEditor struct {
	hooks TextEditor
}

// NewPopoverEditor returns an editor that saves through hooks.
func NewPopoverEditor(hooks TextEditor) *PopoverEditor {
	return &PopoverEditor{hooks: hooks}
}

type editorView struct {
	ID    string
	Text  string
	Error string
}

// Open renders the editor prefilled with text.
func (p *PopoverEditor) Open(w io.Writer, taskID, text string) error {
	return views.Render(w, "task-editor", editorView{ID: taskID, Text: text})
}

// Reopen renders the editor again with a validation message.
func (p *PopoverEditor) Reopen(w io.Writer, taskID, text string, err error) error {
	return views.Render(w, "task-editor", editorView{ID: taskID, Text: text, Error: err.Error()})
}

// Submit saves text for taskID.
func (p *PopoverEditor) Submit(ctx context.Context, taskID, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyText
	}
	return text, p.hooks.EditTask(ctx, taskID, text)
}
