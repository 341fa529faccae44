package graph

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"taskboard/app/models"
	"taskboard/app/store"
)

func TestSelectCypher(t *testing.T) {
	f := store.Eq(models.ColSectionRef, "s1")
	cypher, params := selectCypher(store.Query{Table: models.TableTasks, Filter: &f, OrderBy: models.ColPosition})

	want := "MATCH (n:Task) WHERE n.`SectionRef` IN $values RETURN properties(n) AS row ORDER BY n.`Position`"
	if cypher != want {
		t.Errorf("cypher = %s\nwant %s", cypher, want)
	}
	if !reflect.DeepEqual(params["values"], []string{"s1"}) {
		t.Errorf("params = %v", params)
	}
}

func TestInsertCypherLinksParent(t *testing.T) {
	got := insertCypher(models.TableSections)
	want := "MATCH (p:Project {`ProjectId`: $ref}) CREATE (n:Section) SET n = $props CREATE (n)-[:IN_PROJECT]->(p) RETURN properties(n) AS row"
	if got != want {
		t.Errorf("cypher = %s\nwant %s", got, want)
	}
	if root := insertCypher(models.TableProjects); strings.Contains(root, "MATCH") {
		t.Errorf("root insert should not match a parent: %s", root)
	}
}

func TestUpdateCypherRemovesNulls(t *testing.T) {
	cypher, params := updateCypher(models.TableSections, models.Row{models.ColDeadline: nil}, store.Eq(models.ColSectionID, "s1"))

	if !strings.HasSuffix(cypher, "REMOVE n.`Deadline`") {
		t.Errorf("cypher = %s", cypher)
	}
	if set := params["set"].(map[string]any); len(set) != 0 {
		t.Errorf("set = %v, want empty", set)
	}
}

func TestDeleteCypherCascades(t *testing.T) {
	cypher, _ := deleteCypher(models.TableProjects, store.In(models.ColProjectID, "p1", "p2"))
	if !strings.Contains(cypher, "[:IN_PROJECT|IN_SECTION*]") || !strings.Contains(cypher, "DETACH DELETE n") {
		t.Errorf("cypher = %s", cypher)
	}
}

func TestPropertiesConvertsTypes(t *testing.T) {
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.FixedZone("X", 3600))
	props := properties(models.Row{models.ColPosition: 3, models.ColCreatedAt: at, models.ColDeadline: nil})

	if props["Position"] != int64(3) {
		t.Errorf("Position = %#v", props["Position"])
	}
	if props["CreatedAt"].(time.Time).Location() != time.UTC {
		t.Errorf("CreatedAt not normalized to UTC")
	}
	if _, ok := props["Deadline"]; ok {
		t.Errorf("nil Deadline kept")
	}
}
