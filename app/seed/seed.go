// Package seed loads YAML fixtures describing projects, their sections and
// tasks, and writes them through the data-access hooks.
package seed

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"taskboard/app/forms"
	"taskboard/app/models"
	"taskboard/app/services"
)

// Fixture is the root of a seed file.
type Fixture struct {
	Projects []Project `yaml:"projects"`
}

type Project struct {
	Title       string    `yaml:"title"`
	Description string    `yaml:"description"`
	Sections    []Section `yaml:"sections"`
}

type Section struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Deadline    string `yaml:"deadline"`
	Tasks       []Task `yaml:"tasks"`
}

// Task accepts either a plain string or a mapping with text and done.
type Task struct {
	Text string `yaml:"text"`
	Done bool   `yaml:"done"`
}

func (t *Task) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		return value.Decode(&t.Text)
	}
	type plain Task
	return value.Decode((*plain)(t))
}

// Result counts the rows Apply created.
type Result struct {
	Projects int
	Sections int
	Tasks    int
}

// Load decodes a fixture. Unknown fields are rejected.
func Load(r io.Reader) (*Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f Fixture
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return &f, nil
		}
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	return &f, nil
}

// Apply creates every project, section and task of the fixture in order.
// Rows go through the same forms as user input, so a fixture with a missing
// title fails validation the way the UI would.
func Apply(ctx context.Context, hooks *services.Hooks, clock forms.Clock, f *Fixture) (Result, error) {
	var res Result
	for _, p := range f.Projects {
		pf := forms.ProjectForm{Title: p.Title, Description: p.Description}
		project, err := pf.Submit(ctx, clock, hooks)
		if err != nil {
			return res, fmt.Errorf("project %q: %w %v", p.Title, err, pf.Errors)
		}
		res.Projects++

		for _, s := range p.Sections {
			sf := forms.SectionForm{Title: s.Title, Description: s.Description, Deadline: s.Deadline}
			section, err := sf.Submit(ctx, clock, project.ID, hooks)
			if err != nil {
				return res, fmt.Errorf("section %q: %w %v", s.Title, err, sf.Errors)
			}
			res.Sections++

			if len(s.Tasks) == 0 {
				continue
			}
			tasks := make([]models.Task, 0, len(s.Tasks))
			for i, t := range s.Tasks {
				tasks = append(tasks, models.Task{
					ID:         clock.NewID(),
					SectionRef: section.ID,
					Text:       t.Text,
					State:      t.Done,
					Position:   i,
				})
			}
			created, err := hooks.CreateTaskSet(ctx, tasks)
			if err != nil {
				return res, fmt.Errorf("tasks of %q: %w", s.Title, err)
			}
			res.Tasks += len(created)
		}
	}
	return res, nil
}
