package models

// Task is a single unit of work inside a section.
type Task struct {
	ID         string `json:"TaskId"`
	SectionRef string `json:"SectionRef"`
	Text       string `json:"Task"`
	State      bool   `json:"State"`
	Position   int    `json:"Position"`
}

// Row converts t into a backend row.
func (t Task) Row() Row {
	return Row{
		ColTaskID:     t.ID,
		ColSectionRef: t.SectionRef,
		ColTask:       t.Text,
		ColState:      t.State,
		ColPosition:   t.Position,
	}
}

// TaskFromRow builds a Task from a backend row.
func TaskFromRow(r Row) Task {
	return Task{
		ID:         r.String(ColTaskID),
		SectionRef: r.String(ColSectionRef),
		Text:       r.String(ColTask),
		State:      r.Bool(ColState),
		Position:   r.Int(ColPosition),
	}
}

// NextPosition is the position after the last of tasks. Positions may have
// gaps after deletes, so the count of tasks is not enough.
func NextPosition(tasks []Task) int {
	next := 0
	for _, t := range tasks {
		if t.Position >= next {
			next = t.Position + 1
		}
	}
	return next
}
