package models

import "time"

// Project groups sections of work.
type Project struct {
	ID          string    `json:"ProjectId"`
	Title       string    `json:"Title"`
	Description string    `json:"Description"`
	CreatedAt   time.Time `json:"CreatedAt"`
}

// Row converts p into a backend row.
func (p Project) Row() Row {
	return Row{
		ColProjectID:   p.ID,
		ColTitle:       p.Title,
		ColDescription: p.Description,
		ColCreatedAt:   p.CreatedAt,
	}
}

// ProjectFromRow builds a Project from a backend row.
func ProjectFromRow(r Row) Project {
	return Project{
		ID:          r.String(ColProjectID),
		Title:       r.String(ColTitle),
		Description: r.String(ColDescription),
		CreatedAt:   r.Time(ColCreatedAt),
	}
}
