package models

import "time"

// Section belongs to a project and owns tasks.
type Section struct {
	ID          string    `json:"SectionId"`
	ProjectRef  string    `json:"ProjectRef"`
	Title       string    `json:"Title"`
	Description string    `json:"Description"`
	Deadline    string    `json:"Deadline,omitempty"` // YYYY-MM-DD, empty when unset
	CreatedAt   time.Time `json:"SectionCreatedAt"`
}

// Row converts s into a backend row. An unset deadline is sent as null.
func (s Section) Row() Row {
	row := Row{
		ColSectionID:        s.ID,
		ColProjectRef:       s.ProjectRef,
		ColTitle:            s.Title,
		ColDescription:      s.Description,
		ColDeadline:         nil,
		ColSectionCreatedAt: s.CreatedAt,
	}
	if s.Deadline != "" {
		row[ColDeadline] = s.Deadline
	}
	return row
}

// SectionFromRow builds a Section from a backend row.
func SectionFromRow(r Row) Section {
	return Section{
		ID:          r.String(ColSectionID),
		ProjectRef:  r.String(ColProjectRef),
		Title:       r.String(ColTitle),
		Description: r.String(ColDescription),
		Deadline:    r.String(ColDeadline),
		CreatedAt:   r.Time(ColSectionCreatedAt),
	}
}
