package models

import (
	"fmt"
	"slices"
)

// Table names a table exposed by the remote data service.
type Table string

const (
	TableProjects Table = "Projects"
	TableSections Table = "Sections of Projects"
	TableTasks    Table = "Tasks of each Section"
)

// Column names a column of one of the known tables.
type Column string

const (
	ColProjectID        Column = "ProjectId"
	ColTitle            Column = "Title"
	ColDescription      Column = "Description"
	ColCreatedAt        Column = "CreatedAt"
	ColSectionID        Column = "SectionId"
	ColProjectRef       Column = "ProjectRef"
	ColDeadline         Column = "Deadline"
	ColSectionCreatedAt Column = "SectionCreatedAt"
	ColTaskID           Column = "TaskId"
	ColSectionRef       Column = "SectionRef"
	ColTask             Column = "Task"
	ColState            Column = "State"
	ColPosition         Column = "Position"
)

type tableInfo struct {
	key       Column
	created   Column
	parent    Table
	parentRef Column
	columns   []Column
}

var tables = map[Table]tableInfo{
	TableProjects: {
		key:     ColProjectID,
		created: ColCreatedAt,
		columns: []Column{ColProjectID, ColTitle, ColDescription, ColCreatedAt},
	},
	TableSections: {
		key:       ColSectionID,
		created:   ColSectionCreatedAt,
		parent:    TableProjects,
		parentRef: ColProjectRef,
		columns:   []Column{ColSectionID, ColProjectRef, ColTitle, ColDescription, ColDeadline, ColSectionCreatedAt},
	},
	TableTasks: {
		key:       ColTaskID,
		parent:    TableSections,
		parentRef: ColSectionRef,
		columns:   []Column{ColTaskID, ColSectionRef, ColTask, ColState, ColPosition},
	},
}

// Tables returns every known table, parents before children.
func Tables() []Table {
	return []Table{TableProjects, TableSections, TableTasks}
}

// ParseTable resolves a table by name.
func ParseTable(name string) (Table, error) {
	t := Table(name)
	if !t.Valid() {
		return "", fmt.Errorf("unknown table %q", name)
	}
	return t, nil
}

// Valid reports whether t is one of the known tables.
func (t Table) Valid() bool {
	_, ok := tables[t]
	return ok
}

// Columns returns the columns of t in declaration order.
func (t Table) Columns() []Column {
	return slices.Clone(tables[t].columns)
}

// HasColumn reports whether c belongs to t.
func (t Table) HasColumn(c Column) bool {
	return slices.Contains(tables[t].columns, c)
}

// Key returns the identifier column of t.
func (t Table) Key() Column {
	return tables[t].key
}

// CreatedColumn returns the creation timestamp column, if t has one.
func (t Table) CreatedColumn() (Column, bool) {
	c := tables[t].created
	return c, c != ""
}

// Parent returns the referenced table and the referencing column.
func (t Table) Parent() (Table, Column, bool) {
	info := tables[t]
	return info.parent, info.parentRef, info.parent != ""
}

// Children returns the tables holding a reference to t.
func (t Table) Children() []Table {
	var out []Table
	for _, child := range Tables() {
		if tables[child].parent == t {
			out = append(out, child)
		}
	}
	return out
}

// Editable reports whether c may be changed through a single-column update.
// Identifier, reference and creation columns are fixed once a row exists.
func (t Table) Editable(c Column) bool {
	info := tables[t]
	if !t.HasColumn(c) {
		return false
	}
	return c != info.key && c != info.created && c != info.parentRef
}
