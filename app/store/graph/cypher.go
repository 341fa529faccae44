package graph

import (
	"fmt"
	"strings"

	"taskboard/app/models"
	"taskboard/app/store"
)

func filterParams(f *store.Filter) map[string]any {
	if f == nil {
		return map[string]any{}
	}
	return map[string]any{"values": f.Values}
}

func filterClause(f *store.Filter) string {
	if f == nil {
		return ""
	}
	return fmt.Sprintf(" WHERE n.`%s` IN $values", f.Column)
}

func constraintCypher(table models.Table) string {
	info := labels[table]
	return fmt.Sprintf("CREATE CONSTRAINT %s_key IF NOT EXISTS FOR (n:%s) REQUIRE n.`%s` IS UNIQUE",
		strings.ToLower(info.label), info.label, table.Key())
}

func selectCypher(q store.Query) (string, map[string]any) {
	var b strings.Builder
	fmt.Fprintf(&b, "MATCH (n:%s)", labels[q.Table].label)
	b.WriteString(filterClause(q.Filter))
	b.WriteString(" RETURN properties(n) AS row")
	if q.OrderBy != "" {
		fmt.Fprintf(&b, " ORDER BY n.`%s`", q.OrderBy)
		if q.Descending {
			b.WriteString(" DESC")
		}
	}
	return b.String(), filterParams(q.Filter)
}

// insertCypher creates a node and, for child tables, the relationship to the
// parent. It returns no record when the parent does not exist.
func insertCypher(table models.Table) string {
	info := labels[table]
	parent, _, ok := table.Parent()
	if !ok {
		return fmt.Sprintf("CREATE (n:%s) SET n = $props RETURN properties(n) AS row", info.label)
	}
	return fmt.Sprintf(
		"MATCH (p:%s {`%s`: $ref}) CREATE (n:%s) SET n = $props CREATE (n)-[:%s]->(p) RETURN properties(n) AS row",
		labels[parent].label, parent.Key(), info.label, info.relation,
	)
}

func updateCypher(table models.Table, values models.Row, f store.Filter) (string, map[string]any) {
	params := filterParams(&f)
	params["set"] = properties(values)
	cypher := fmt.Sprintf("MATCH (n:%s)%s SET n += $set", labels[table].label, filterClause(&f))

	// A null value removes the property.
	var removes []string
	for _, c := range table.Columns() {
		if v, ok := values[c]; ok && v == nil {
			removes = append(removes, fmt.Sprintf("n.`%s`", c))
		}
	}
	if len(removes) > 0 {
		cypher += " REMOVE " + strings.Join(removes, ", ")
	}
	return cypher, params
}

// deleteCypher removes matching nodes and every node reachable through child
// relationships.
func deleteCypher(table models.Table, f store.Filter) (string, map[string]any) {
	return fmt.Sprintf("MATCH (n:%s)%s OPTIONAL MATCH (d)-[:IN_PROJECT|IN_SECTION*]->(n) "+
		"WITH n, collect(d) AS descendants "+
		"FOREACH (x IN descendants | DETACH DELETE x) "+
		"DETACH DELETE n",
		labels[table].label, filterClause(&f)), filterParams(&f)
}
