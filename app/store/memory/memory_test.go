package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskboard/app/models"
	"taskboard/app/store"
)

func seed(t *testing.T, b *Backend) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	projects := []models.Row{
		models.Project{ID: "p2", Title: "later", CreatedAt: base.Add(time.Hour)}.Row(),
		models.Project{ID: "p1", Title: "first", CreatedAt: base}.Row(),
	}
	if _, err := b.Insert(ctx, models.TableProjects, projects); err != nil {
		t.Fatalf("insert projects: %v", err)
	}
	sections := []models.Row{
		models.Section{ID: "s1", ProjectRef: "p1", Title: "a", CreatedAt: base}.Row(),
		models.Section{ID: "s2", ProjectRef: "p1", Title: "b", CreatedAt: base}.Row(),
		models.Section{ID: "s3", ProjectRef: "p2", Title: "c", CreatedAt: base}.Row(),
	}
	if _, err := b.Insert(ctx, models.TableSections, sections); err != nil {
		t.Fatalf("insert sections: %v", err)
	}
	tasks := []models.Row{
		models.Task{ID: "t1", SectionRef: "s1", Text: "one"}.Row(),
		models.Task{ID: "t2", SectionRef: "s1", Text: "two"}.Row(),
		models.Task{ID: "t3", SectionRef: "s2", Text: "three"}.Row(),
		models.Task{ID: "t4", SectionRef: "s3", Text: "four"}.Row(),
	}
	if _, err := b.Insert(ctx, models.TableTasks, tasks); err != nil {
		t.Fatalf("insert tasks: %v", err)
	}
}

func ids(rows []models.Row, c models.Column) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.String(c)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSelectOrdersByColumn(t *testing.T) {
	b := New()
	seed(t, b)

	rows, err := b.Select(context.Background(), store.Query{Table: models.TableProjects, OrderBy: models.ColCreatedAt})
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if got := ids(rows, models.ColProjectID); !equal(got, []string{"p1", "p2"}) {
		t.Errorf("Select() order = %v, want [p1 p2]", got)
	}
}

func TestSelectFilter(t *testing.T) {
	b := New()
	seed(t, b)

	f := store.Eq(models.ColSectionRef, "s1")
	rows, err := b.Select(context.Background(), store.Query{Table: models.TableTasks, Filter: &f})
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if got := ids(rows, models.ColTaskID); !equal(got, []string{"t1", "t2"}) {
		t.Errorf("Select() = %v, want [t1 t2]", got)
	}
}

func TestInsertRejectsMissingParent(t *testing.T) {
	b := New()
	_, err := b.Insert(context.Background(), models.TableSections, []models.Row{
		models.Section{ID: "s1", ProjectRef: "nope"}.Row(),
	})
	if !errors.Is(err, store.ErrReference) {
		t.Fatalf("Insert() error = %v, want ErrReference", err)
	}
	var se *store.Error
	if !errors.As(err, &se) || se.Table != models.TableSections {
		t.Errorf("Insert() error = %#v, want *store.Error for sections", err)
	}
}

func TestInsertRejectsDuplicateInBatch(t *testing.T) {
	b := New()
	seed(t, b)
	_, err := b.Insert(context.Background(), models.TableTasks, []models.Row{
		models.Task{ID: "t9", SectionRef: "s1"}.Row(),
		models.Task{ID: "t9", SectionRef: "s1"}.Row(),
	})
	if !errors.Is(err, store.ErrDuplicateKey) {
		t.Fatalf("Insert() error = %v, want ErrDuplicateKey", err)
	}

	f := store.Eq(models.ColTaskID, "t9")
	rows, _ := b.Select(context.Background(), store.Query{Table: models.TableTasks, Filter: &f})
	if len(rows) != 0 {
		t.Errorf("failed batch stored %d rows", len(rows))
	}
}

func TestUpdateOnlyTouchesGivenColumns(t *testing.T) {
	b := New()
	seed(t, b)
	ctx := context.Background()

	err := b.Update(ctx, models.TableSections, models.Row{models.ColDeadline: "2024-06-01"}, store.Eq(models.ColSectionID, "s1"))
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	f := store.Eq(models.ColSectionID, "s1")
	rows, _ := b.Select(ctx, store.Query{Table: models.TableSections, Filter: &f})
	got := models.SectionFromRow(rows[0])
	if got.Deadline != "2024-06-01" || got.Title != "a" {
		t.Errorf("section after update = %+v", got)
	}
}

func TestDeleteCascades(t *testing.T) {
	b := New()
	seed(t, b)
	ctx := context.Background()

	if err := b.Delete(ctx, models.TableProjects, store.Eq(models.ColProjectID, "p1")); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	sections, _ := b.Select(ctx, store.Query{Table: models.TableSections})
	if got := ids(sections, models.ColSectionID); !equal(got, []string{"s3"}) {
		t.Errorf("sections after cascade = %v, want [s3]", got)
	}
	tasks, _ := b.Select(ctx, store.Query{Table: models.TableTasks})
	if got := ids(tasks, models.ColTaskID); !equal(got, []string{"t4"}) {
		t.Errorf("tasks after cascade = %v, want [t4]", got)
	}
}

func TestDeleteRequiresFilter(t *testing.T) {
	b := New()
	seed(t, b)
	err := b.Delete(context.Background(), models.TableTasks, store.Filter{Column: models.ColTaskID})
	if !errors.Is(err, store.ErrMissingFilter) {
		t.Fatalf("Delete() error = %v, want ErrMissingFilter", err)
	}
}

func TestSelectUnknownColumn(t *testing.T) {
	b := New()
	_, err := b.Select(context.Background(), store.Query{Table: models.TableTasks, OrderBy: models.ColCreatedAt})
	if !errors.Is(err, store.ErrUnknownColumn) {
		t.Fatalf("Select() error = %v, want ErrUnknownColumn", err)
	}
}
