package store

import (
	"errors"

	"taskboard/app/models"
)

// Error is the single error shape backends report. Message carries the text
// returned by the remote service.
type Error struct {
	Op      string
	Table   models.Table
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Table == "" {
		return e.Op + ": " + e.Message
	}
	return e.Op + " " + string(e.Table) + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap normalizes err into an *Error. A nil err stays nil; an existing
// *Error keeps its message and only gains the operation if it had none.
func Wrap(op string, table models.Table, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		if se.Op == "" {
			se.Op, se.Table = op, table
		}
		return err
	}
	return &Error{Op: op, Table: table, Message: err.Error(), Err: err}
}

// Message returns the backend message carried by err, or err's text.
func Message(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Message
	}
	return err.Error()
}
