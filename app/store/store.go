// Package store defines the table-level contract of the remote data service
// and the error type every backend reports failures with.
package store

import (
	"context"
	"errors"
	"fmt"

	"taskboard/app/models"
)

var (
	// ErrUnknownTable indicates a table outside the known schema.
	ErrUnknownTable = errors.New("store: unknown table")

	// ErrUnknownColumn indicates a column that does not belong to the table.
	ErrUnknownColumn = errors.New("store: unknown column")

	// ErrMissingFilter indicates an update or delete without a row predicate.
	ErrMissingFilter = errors.New("store: filter required")

	// ErrReference indicates a row referencing a parent that does not exist.
	ErrReference = errors.New("store: referenced row does not exist")

	// ErrDuplicateKey indicates an insert reusing an existing identifier.
	ErrDuplicateKey = errors.New("store: duplicate key")

	// ErrNotFound indicates that no row matched.
	ErrNotFound = errors.New("store: not found")
)

// Backend is the remote relational store. Each method is a single round trip.
type Backend interface {
	Select(ctx context.Context, q Query) ([]models.Row, error)
	Insert(ctx context.Context, table models.Table, rows []models.Row) ([]models.Row, error)
	Update(ctx context.Context, table models.Table, values models.Row, f Filter) error
	Delete(ctx context.Context, table models.Table, f Filter) error
	Close(ctx context.Context) error
}

// Filter matches rows whose Column equals one of Values.
// A single value is an equality predicate; several values a membership one.
type Filter struct {
	Column models.Column
	Values []string
}

// Eq matches rows where column equals value.
func Eq(column models.Column, value string) Filter {
	return Filter{Column: column, Values: []string{value}}
}

// In matches rows where column is one of values.
func In(column models.Column, values ...string) Filter {
	return Filter{Column: column, Values: values}
}

// IsEq reports whether f is a single-value equality predicate.
func (f Filter) IsEq() bool {
	return len(f.Values) == 1
}

// Matches reports whether row satisfies f.
func (f Filter) Matches(row models.Row) bool {
	v := row.String(f.Column)
	for _, want := range f.Values {
		if v == want {
			return true
		}
	}
	return false
}

// Query selects rows of Table, optionally filtered and ordered.
type Query struct {
	Table      models.Table
	Filter     *Filter
	OrderBy    models.Column
	Descending bool
}

// Validate checks that every column named by q belongs to its table.
func (q Query) Validate() error {
	if !q.Table.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownTable, q.Table)
	}
	if q.Filter != nil && !q.Table.HasColumn(q.Filter.Column) {
		return fmt.Errorf("%w: %q in %q", ErrUnknownColumn, q.Filter.Column, q.Table)
	}
	if q.OrderBy != "" && !q.Table.HasColumn(q.OrderBy) {
		return fmt.Errorf("%w: %q in %q", ErrUnknownColumn, q.OrderBy, q.Table)
	}
	return nil
}

// ValidateRow checks that every column of row belongs to table.
func ValidateRow(table models.Table, row models.Row) error {
	if !table.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	for c := range row {
		if !table.HasColumn(c) {
			return fmt.Errorf("%w: %q in %q", ErrUnknownColumn, c, table)
		}
	}
	return nil
}

// ValidateFilter checks that f is usable as a predicate on table.
func ValidateFilter(table models.Table, f Filter) error {
	if !table.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	if f.Column == "" || len(f.Values) == 0 {
		return ErrMissingFilter
	}
	if !table.HasColumn(f.Column) {
		return fmt.Errorf("%w: %q in %q", ErrUnknownColumn, f.Column, table)
	}
	return nil
}
