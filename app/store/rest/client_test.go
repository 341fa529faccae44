package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"taskboard/app/models"
	"taskboard/app/store"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, "anon-key")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestSelectBuildsQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if r.URL.EscapedPath() != "/rest/v1/Sections%20of%20Projects" {
			t.Errorf("path = %s", r.URL.EscapedPath())
		}
		q := r.URL.Query()
		if got := q.Get("ProjectRef"); got != "eq.p1" {
			t.Errorf("filter = %q, want eq.p1", got)
		}
		if got := q.Get("order"); !strings.HasPrefix(got, "SectionCreatedAt.asc") {
			t.Errorf("order = %q", got)
		}
		if got := r.Header.Get("apikey"); got != "anon-key" {
			t.Errorf("apikey = %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer anon-key" {
			t.Errorf("Authorization = %q", got)
		}
		io.WriteString(w, `[{"SectionId":"s1","ProjectRef":"p1","Title":"Plan","SectionCreatedAt":"2024-05-01T09:00:00+00:00"}]`)
	})

	f := store.Eq(models.ColProjectRef, "p1")
	rows, err := c.Select(context.Background(), store.Query{Table: models.TableSections, Filter: &f, OrderBy: models.ColSectionCreatedAt})
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Select() returned %d rows", len(rows))
	}
	s := models.SectionFromRow(rows[0])
	if s.ID != "s1" || s.Title != "Plan" || s.CreatedAt.IsZero() {
		t.Errorf("section = %+v", s)
	}
}

func TestInsertSendsRepresentationPreference(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Prefer"), "return=representation") {
			t.Errorf("Prefer = %q", r.Header.Get("Prefer"))
		}
		var body []map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if len(body) != 2 || body[0]["Task"] != "one" {
			t.Errorf("body = %v", body)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(body)
	})

	rows, err := c.Insert(context.Background(), models.TableTasks, []models.Row{
		models.Task{ID: "t1", SectionRef: "s1", Text: "one", Position: 0}.Row(),
		models.Task{ID: "t2", SectionRef: "s1", Text: "two", Position: 1}.Row(),
	})
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if got := models.TaskFromRow(rows[1]); got.Position != 1 || got.Text != "two" {
		t.Errorf("task = %+v", got)
	}
}

func TestDeleteUsesMembershipFilter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s", r.Method)
		}
		if got := r.URL.Query().Get("TaskId"); got != "in.(a,b)" {
			t.Errorf("filter = %q", got)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	if err := c.Delete(context.Background(), models.TableTasks, store.In(models.ColTaskID, "a", "b")); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
}

func TestUpdateSendsSingleColumn(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("method = %s", r.Method)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if len(body) != 1 || body["Deadline"] != "2024-06-01" {
			t.Errorf("body = %v", body)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	err := c.Update(context.Background(), models.TableSections,
		models.Row{models.ColDeadline: "2024-06-01"}, store.Eq(models.ColSectionID, "s1"))
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
}

func TestErrorCarriesBackendMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		io.WriteString(w, `{"message":"duplicate key value violates unique constraint","code":"23505"}`)
	})

	_, err := c.Insert(context.Background(), models.TableProjects, []models.Row{models.Project{ID: "p1"}.Row()})
	var se *store.Error
	if !errors.As(err, &se) {
		t.Fatalf("Insert() error = %v, want *store.Error", err)
	}
	if se.Message != "duplicate key value violates unique constraint" {
		t.Errorf("Message = %q", se.Message)
	}
	if se.Op != "insert" || se.Table != models.TableProjects {
		t.Errorf("Op/Table = %q/%q", se.Op, se.Table)
	}
	if !errors.Is(err, store.ErrDuplicateKey) {
		t.Errorf("Insert() error = %v, want ErrDuplicateKey", err)
	}
}

func TestForeignKeyViolationIsReferenceError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		io.WriteString(w, `{"message":"insert or update violates foreign key constraint","code":"23503"}`)
	})

	_, err := c.Insert(context.Background(), models.TableSections, []models.Row{models.Section{ID: "s1", ProjectRef: "nope"}.Row()})
	if !errors.Is(err, store.ErrReference) {
		t.Errorf("Insert() error = %v, want ErrReference", err)
	}
	if got := store.Message(err); got != "insert or update violates foreign key constraint" {
		t.Errorf("Message = %q", got)
	}
}

func TestCancelledContextSkipsRequest(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Delete(ctx, models.TableTasks, store.Eq(models.ColTaskID, "t1")); !errors.Is(err, context.Canceled) {
		t.Errorf("Delete() error = %v, want context.Canceled", err)
	}
	if called {
		t.Error("request sent with a cancelled context")
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	if _, err := New("", "key"); err == nil {
		t.Error("New() with empty URL succeeded")
	}
	if _, err := New("https://example.supabase.co", ""); err == nil {
		t.Error("New() with empty key succeeded")
	}
}
